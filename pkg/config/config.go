// Package config defines the Machine Master configuration schema: the set of
// agents feeding the aggregator, the declarative devpath merge spec, and the
// ambient app/log/metrics/frontend settings.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration for the machine master process.
type Config struct {
	App      AppConfig      `koanf:"app"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Frontend FrontendConfig `koanf:"frontend"`
	Agents   []AgentConfig  `koanf:"agents"`
	Merge    MergeSpec      `koanf:"merge_spec"`
	Mapper   MapperConfig   `koanf:"mapper"`
	Tracing  TracingConfig  `koanf:"tracing"`
}

// TracingConfig configures the OpenTelemetry exporter. Disabled by default;
// when enabled, spans are batched to an OTLP/gRPC collector at Endpoint.
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// MapperConfig configures the poll loop that periodically calls
// mapper.Mapper.Rebuild; refresh cadence is a policy of the embedding
// service, not the mapper itself.
type MapperConfig struct {
	RefreshInterval time.Duration `koanf:"refresh_interval"`
}

// AppConfig holds process-wide identity settings.
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
}

// LogConfig mirrors the settings accepted by pkg/logger.
type LogConfig struct {
	Level      string `koanf:"level"`  // debug, info, warn, error
	Format     string `koanf:"format"` // json, text
	Output     string `koanf:"output"` // stdout, stderr, file
	FilePath   string `koanf:"file_path"`
	MaxSize    int  `koanf:"max_size"`
	MaxBackups int  `koanf:"max_backups"`
	MaxAge     int  `koanf:"max_age"`
	Compress   bool `koanf:"compress"`
}

// MetricsConfig configures the Prometheus exporter.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Port      int    `koanf:"port"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// FrontendConfig selects the listener the gRPC frontend binds to. Exactly one
// of UnixDomain or Network should be set; Network is the fallback if both are
// zero-valued.
type FrontendConfig struct {
	UnixDomain UnixDomainConfig `koanf:"unix_domain"`
	Network    NetworkConfig    `koanf:"network"`
	KeepAlive  KeepAliveConfig  `koanf:"keepalive"`
}

// UnixDomainConfig configures a local-peer-credentialed UDS listener.
type UnixDomainConfig struct {
	Path string `koanf:"path"`
}

// NetworkConfig configures a local-TCP-credentialed [::]:port listener.
type NetworkConfig struct {
	Port                 int `koanf:"port"`
	MaxRecvMsgSize        int `koanf:"max_recv_msg_size"`
	MaxSendMsgSize        int `koanf:"max_send_msg_size"`
	MaxConcurrentStreams  uint32 `koanf:"max_concurrent_streams"`
}

// KeepAliveConfig mirrors the knobs grpc.KeepaliveParams/EnforcementPolicy
// accept.
type KeepAliveConfig struct {
	MaxConnectionIdle     time.Duration `koanf:"max_connection_idle"`
	MaxConnectionAge      time.Duration `koanf:"max_connection_age"`
	MaxConnectionAgeGrace time.Duration `koanf:"max_connection_age_grace"`
	Time                  time.Duration `koanf:"time"`
	Timeout               time.Duration `koanf:"timeout"`
	MinTime               time.Duration `koanf:"min_time"`
}

// UseUnixDomain reports whether the frontend should bind a unix socket
// instead of a TCP port.
func (f FrontendConfig) UseUnixDomain() bool {
	return f.UnixDomain.Path != ""
}

// AgentConfig describes one management agent the aggregator fans out to.
type AgentConfig struct {
	Name            string   `koanf:"name"`
	OsDomain        string   `koanf:"os_domain"`
	FallbackPlugins []string `koanf:"fallback_plugin"`
	Redfish         RedfishAgentConfig `koanf:"redfish"`

	// StaticPlugins seeds an agent's devpath list directly from
	// configuration, standing in for the agent's own JSON HTTP surface so
	// the aggregator can run end to end against a fixed topology.
	StaticPlugins []string `koanf:"static_plugins"`
}

// RedfishAgentConfig points a Redfish-backed collector at its backend.
type RedfishAgentConfig struct {
	Endpoint string        `koanf:"endpoint"`
	Timeout  time.Duration `koanf:"timeout"`
}

// MergeSpec is the declarative configuration consumed by the graph merger and
// inverter.
type MergeSpec struct {
	Root       string            `koanf:"root"`
	InvertOps  []InvertOp        `koanf:"invert_ops"`
	MergeOps   []MergeOp         `koanf:"merge_ops"`
}

// InvertOp rewrites one agent's graph so new_root_devpath becomes its root.
type InvertOp struct {
	Agent              string   `koanf:"agent"`
	NewRootDevpath     string   `koanf:"new_root_devpath"`
	UpstreamConnectors []string `koanf:"upstream_connectors"`
}

// MergeOp grafts one agent's graph onto another's. Exactly one of
// PluggedInNode or SameNode must be non-nil.
type MergeOp struct {
	BaseAgent      string          `koanf:"base_agent"`
	AppendantAgent string          `koanf:"appendant_agent"`
	PluggedInNode  *PluggedInNode  `koanf:"plugged_in_node"`
	SameNode       *SameNode       `koanf:"same_node"`
}

// PluggedInNode connects an appendant vertex into a base vertex through a
// named connector segment.
type PluggedInNode struct {
	BaseDevpath      string `koanf:"base_devpath"`
	AppendantDevpath string `koanf:"appendant_devpath"`
	Connector        string `koanf:"connector"`
}

// SameNode declares that two vertices from different agents are the same
// physical plugin.
type SameNode struct {
	BaseDevpath      string `koanf:"base_devpath"`
	AppendantDevpath string `koanf:"appendant_devpath"`
}

// Validate checks the parts of the configuration that the core requires to be
// well-formed before any RPC is served. Merge-spec specific checks (devpath
// depth, vertex existence) are left to the topology package, which can give a
// more precise SpecMismatch/SpecUnsatisfiable error.
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	if !c.Frontend.UseUnixDomain() && (c.Frontend.Network.Port <= 0 || c.Frontend.Network.Port > 65535) {
		errs = append(errs, "frontend.network.port must be between 1 and 65535 when no unix_domain.path is set")
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	if len(c.Agents) == 0 {
		errs = append(errs, "at least one agent must be configured")
	}
	seen := make(map[string]bool, len(c.Agents))
	for _, a := range c.Agents {
		if a.Name == "" {
			errs = append(errs, "agents[].name is required")
			continue
		}
		if seen[a.Name] {
			errs = append(errs, fmt.Sprintf("duplicate agent name %q", a.Name))
		}
		seen[a.Name] = true
	}
	if c.Merge.Root != "" && !seen[c.Merge.Root] {
		errs = append(errs, fmt.Sprintf("merge_spec.root %q is not a configured agent", c.Merge.Root))
	}
	for _, op := range c.Merge.MergeOps {
		if op.PluggedInNode == nil && op.SameNode == nil {
			errs = append(errs, fmt.Sprintf("merge_ops entry for %s->%s sets neither plugged_in_node nor same_node", op.BaseAgent, op.AppendantAgent))
		}
		if op.PluggedInNode != nil && op.SameNode != nil {
			errs = append(errs, fmt.Sprintf("merge_ops entry for %s->%s sets both plugged_in_node and same_node", op.BaseAgent, op.AppendantAgent))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// IsDevelopment reports whether the app is running in a development
// environment (enables gRPC reflection).
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}
