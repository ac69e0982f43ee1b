package interceptors

import (
	"google.golang.org/grpc"

	"github.com/google/ecclesia-mmaster/pkg/telemetry"
)

// ServerConfig configures the server interceptor chain.
type ServerConfig struct {
	ServiceName   string
	EnableTracing bool
}

// UnaryServerInterceptors returns the chain of unary interceptors: recovery,
// tracing (if enabled), metrics, logging, validation. Rate limiting and
// audit logging are not wired here; they are outside this service's scope.
func UnaryServerInterceptors(cfg *ServerConfig) grpc.UnaryServerInterceptor {
	chain := []grpc.UnaryServerInterceptor{RecoveryInterceptor()}
	if cfg.EnableTracing {
		chain = append(chain, telemetry.UnaryServerInterceptor())
	}
	chain = append(chain,
		MetricsInterceptor(cfg.ServiceName),
		LoggingInterceptor(),
		ValidationInterceptor(),
	)
	return chainUnaryInterceptors(chain...)
}

// StreamServerInterceptors returns the chain of stream interceptors:
// recovery, tracing (if enabled), metrics, logging.
func StreamServerInterceptors(cfg *ServerConfig) grpc.StreamServerInterceptor {
	chain := []grpc.StreamServerInterceptor{StreamRecoveryInterceptor()}
	if cfg.EnableTracing {
		chain = append(chain, telemetry.StreamServerInterceptor())
	}
	chain = append(chain,
		StreamMetricsInterceptor(cfg.ServiceName),
		StreamLoggingInterceptor(),
	)
	return chainStreamInterceptors(chain...)
}
