// Command mmaster runs the Machine Master aggregation service: it loads
// configuration, builds the devpath mapper and per-agent collectors, and
// serves the streaming resource RPCs over gRPC.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/ecclesia-mmaster/internal/aggregator"
	"github.com/google/ecclesia-mmaster/internal/collector"
	"github.com/google/ecclesia-mmaster/internal/frontend"
	"github.com/google/ecclesia-mmaster/internal/mapper"
	"github.com/google/ecclesia-mmaster/internal/redfish"
	"github.com/google/ecclesia-mmaster/pkg/config"
	"github.com/google/ecclesia-mmaster/pkg/logger"
	"github.com/google/ecclesia-mmaster/pkg/metrics"
	"github.com/google/ecclesia-mmaster/pkg/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	if cfg.Metrics.Enabled {
		metrics.InitMetrics(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)
	}

	ctx := context.Background()

	updaters := make(map[string]mapper.Updater, len(cfg.Agents))
	specs := make([]aggregator.AgentSpec, 0, len(cfg.Agents))
	for _, agent := range cfg.Agents {
		updaters[agent.Name] = newStaticUpdater(agent.StaticPlugins)

		topo, err := redfish.Build(ctx, noopSource{}, nil)
		if err != nil {
			return fmt.Errorf("building redfish topology for agent %s: %w", agent.Name, err)
		}
		specs = append(specs, aggregator.AgentSpec{
			Name:     agent.Name,
			OsDomain: agent.OsDomain,
			Collector: collector.NewComposite(
				collector.NewRedfishCollector(topo, time.Now),
				collector.NewOsDomainCollector(agent.OsDomain),
			),
		})
	}

	m := mapper.New(cfg, updaters)
	if err := m.Rebuild(ctx); err != nil {
		return fmt.Errorf("initial mapper rebuild: %w", err)
	}
	go runRefreshLoop(ctx, m, cfg.Mapper.RefreshInterval)

	agg := aggregator.New(m, specs)

	srv := server.New(cfg, frontend.ServerOption())
	frontend.Register(srv.GetEngine(), agg)

	return srv.Run()
}

// runRefreshLoop periodically calls Mapper.Rebuild. Refresh cadence is a
// policy of the embedding service, not of the mapper itself.
func runRefreshLoop(ctx context.Context, m *mapper.Mapper, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			err := m.Rebuild(ctx)
			if mtr := metrics.Get(); mtr != nil {
				root := m.Snapshot()
				vertexCount := 0
				if root != nil {
					vertexCount = root.Root.Len()
				}
				mtr.RecordMapperRebuild(err == nil, time.Since(start), vertexCount)
			}
			if err != nil {
				logger.Get().Warn("mapper: scheduled rebuild failed", "error", err)
			}
		}
	}
}

// noopSource is the redfish.Source used when an agent has no live Redfish
// backend configured: concrete Redfish/HTTP client transport is an external
// collaborator outside this repository's scope, so this
// reports an empty resource tree rather than fabricating one.
type noopSource struct{}

func (noopSource) FetchAssemblyCollection(ctx context.Context, pathTemplate string) ([]redfish.AssemblyPayload, error) {
	return nil, nil
}

func (noopSource) FetchObject(ctx context.Context, uri string) (map[string]any, error) {
	return nil, nil
}

// staticUpdater reports a fixed devpath list once, then reports no further
// changes. Stands in for the real per-agent updater, which would poll an
// agent's JSON HTTP surface, out of scope here.
type staticUpdater struct {
	plugins  []string
	reported bool
}

func newStaticUpdater(plugins []string) *staticUpdater {
	return &staticUpdater{plugins: plugins}
}

func (u *staticUpdater) Update(ctx context.Context) ([]string, bool, error) {
	if u.reported {
		return u.plugins, false, nil
	}
	u.reported = true
	return u.plugins, true, nil
}
