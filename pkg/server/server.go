package server

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"github.com/google/ecclesia-mmaster/pkg/config"
	"github.com/google/ecclesia-mmaster/pkg/interceptors"
	"github.com/google/ecclesia-mmaster/pkg/logger"
	"github.com/google/ecclesia-mmaster/pkg/metrics"
	"github.com/google/ecclesia-mmaster/pkg/telemetry"
)

// GRPCServer wraps a grpc.Server with the machine master's health, metrics,
// tracing, and graceful shutdown conventions.
type GRPCServer struct {
	server      *grpc.Server
	health      *health.Server
	serviceName string
	config      *config.Config
	telemetry   *telemetry.Provider
}

// New creates a gRPC server bound to the frontend configured in cfg (either a
// unix domain socket or a TCP port, see FrontendConfig.UseUnixDomain).
// extraOpts are appended after the ambient keepalive/interceptor/limit
// options, letting callers install things like a forced wire codec.
func New(cfg *config.Config, extraOpts ...grpc.ServerOption) *GRPCServer {
	kaParams := keepalive.ServerParameters{
		MaxConnectionIdle:     cfg.Frontend.KeepAlive.MaxConnectionIdle,
		MaxConnectionAge:      cfg.Frontend.KeepAlive.MaxConnectionAge,
		MaxConnectionAgeGrace: cfg.Frontend.KeepAlive.MaxConnectionAgeGrace,
		Time:                  cfg.Frontend.KeepAlive.Time,
		Timeout:               cfg.Frontend.KeepAlive.Timeout,
	}

	minTime := cfg.Frontend.KeepAlive.MinTime
	if minTime == 0 {
		minTime = 5 * time.Second
	}
	kaPolicy := keepalive.EnforcementPolicy{
		MinTime:             minTime,
		PermitWithoutStream: true,
	}

	interceptorCfg := &interceptors.ServerConfig{
		ServiceName:   cfg.App.Name,
		EnableTracing: cfg.Tracing.Enabled,
	}

	serverOpts := []grpc.ServerOption{
		grpc.KeepaliveParams(kaParams),
		grpc.KeepaliveEnforcementPolicy(kaPolicy),
		grpc.UnaryInterceptor(interceptors.UnaryServerInterceptors(interceptorCfg)),
		grpc.StreamInterceptor(interceptors.StreamServerInterceptors(interceptorCfg)),
	}

	if cfg.Frontend.Network.MaxRecvMsgSize > 0 {
		serverOpts = append(serverOpts, grpc.MaxRecvMsgSize(cfg.Frontend.Network.MaxRecvMsgSize))
	}
	if cfg.Frontend.Network.MaxSendMsgSize > 0 {
		serverOpts = append(serverOpts, grpc.MaxSendMsgSize(cfg.Frontend.Network.MaxSendMsgSize))
	}
	if cfg.Frontend.Network.MaxConcurrentStreams > 0 {
		serverOpts = append(serverOpts, grpc.MaxConcurrentStreams(cfg.Frontend.Network.MaxConcurrentStreams))
	}

	serverOpts = append(serverOpts, extraOpts...)

	s := grpc.NewServer(serverOpts...)

	h := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, h)

	if cfg.IsDevelopment() {
		reflection.Register(s)
		logger.Log.Debug("gRPC reflection enabled")
	}

	return &GRPCServer{
		server:      s,
		health:      h,
		serviceName: cfg.App.Name,
		config:      cfg,
	}
}

// GetEngine returns the underlying *grpc.Server for service registration.
func (s *GRPCServer) GetEngine() *grpc.Server {
	return s.server
}

// Run opens the configured listener and serves until a shutdown signal
// arrives.
func (s *GRPCServer) Run() error {
	ctx := context.Background()

	if s.config.Tracing.Enabled {
		tp, err := telemetry.Init(ctx, telemetry.Config{
			Enabled:     s.config.Tracing.Enabled,
			Endpoint:    s.config.Tracing.Endpoint,
			ServiceName: s.config.Tracing.ServiceName,
			Version:     s.config.App.Version,
			Environment: s.config.App.Environment,
			SampleRate:  s.config.Tracing.SampleRate,
		})
		if err != nil {
			logger.Log.Warn("failed to init telemetry", "error", err)
		} else {
			s.telemetry = tp
			logger.Log.Info("telemetry initialized",
				"endpoint", s.config.Tracing.Endpoint,
				"sample_rate", s.config.Tracing.SampleRate,
			)
		}
	}

	if s.config.Metrics.Enabled {
		go func() {
			logger.Log.Info("starting metrics server",
				"port", s.config.Metrics.Port,
				"path", s.config.Metrics.Path,
			)
			if err := metrics.StartMetricsServer(s.config.Metrics.Port); err != nil {
				logger.Log.Error("metrics server failed", "error", err)
			}
		}()
	}

	lis, err := s.listen(ctx)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.health.SetServingStatus(s.serviceName, grpc_health_v1.HealthCheckResponse_SERVING)

	errCh := make(chan error, 1)

	go func() {
		logger.Log.Info("starting gRPC server",
			"service", s.serviceName,
			"address", lis.Addr().String(),
			"environment", s.config.App.Environment,
			"version", s.config.App.Version,
		)
		if err := s.server.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	if m := metrics.Get(); m != nil {
		m.SetServiceInfo(s.config.App.Version, s.config.App.Environment)
	}

	return s.waitForShutdown(errCh)
}

// listen opens the unix domain socket or TCP listener named by the frontend
// config. A stale unix socket file from a prior, uncleanly terminated run is
// removed before binding.
func (s *GRPCServer) listen(ctx context.Context) (net.Listener, error) {
	lc := net.ListenConfig{}

	if s.config.Frontend.UseUnixDomain() {
		path := s.config.Frontend.UnixDomain.Path
		if _, err := os.Stat(path); err == nil {
			os.Remove(path)
		}
		return lc.Listen(ctx, "unix", path)
	}

	return lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", s.config.Frontend.Network.Port))
}

func (s *GRPCServer) waitForShutdown(errCh chan error) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Log.Info("received shutdown signal", "signal", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.health.SetServingStatus(s.serviceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	if s.telemetry != nil {
		if err := s.telemetry.Shutdown(ctx); err != nil {
			logger.Log.Warn("failed to shutdown telemetry", "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		logger.Log.Info("server stopped gracefully")
	case <-ctx.Done():
		logger.Log.Warn("forcing server stop")
		s.server.Stop()
	}

	return nil
}

// SetServingStatus sets the service's health status.
func (s *GRPCServer) SetServingStatus(status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus(s.serviceName, status)
}

// Stop stops the server immediately.
func (s *GRPCServer) Stop() {
	s.server.Stop()
}

// GracefulStop stops the server gracefully.
func (s *GRPCServer) GracefulStop() {
	s.server.GracefulStop()
}
