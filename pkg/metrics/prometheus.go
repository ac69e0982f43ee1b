package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the global metrics container for the machine master process.
type Metrics struct {
	// RPC metrics.
	RPCRequestsTotal    *prometheus.CounterVec
	RPCRequestDuration  *prometheus.HistogramVec
	RPCRequestsInFlight prometheus.Gauge

	// Mapper metrics.
	MapperRebuildsTotal   *prometheus.CounterVec
	MapperRebuildDuration prometheus.Histogram
	MapperVertexCount     prometheus.Gauge

	// Property cache metrics.
	PropertyCacheHitsTotal    *prometheus.CounterVec
	PropertyCacheMissesTotal  *prometheus.CounterVec
	PropertyCacheRefreshTotal *prometheus.CounterVec

	// Collector metrics.
	CollectorCallsTotal    *prometheus.CounterVec
	CollectorFailuresTotal *prometheus.CounterVec

	// Service info.
	ServiceInfo *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// InitMetrics registers the full metric set under the given namespace and
// subsystem.
func InitMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		RPCRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rpc_requests_total",
				Help:      "Total number of RPC requests handled by the frontend",
			},
			[]string{"method", "status"},
		),

		RPCRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rpc_request_duration_seconds",
				Help:      "Duration of RPC requests",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),

		RPCRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rpc_requests_in_flight",
				Help:      "Current number of RPC requests being processed",
			},
		),

		MapperRebuildsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "mapper_rebuilds_total",
				Help:      "Total number of devpath mapper snapshot rebuilds",
			},
			[]string{"status"},
		),

		MapperRebuildDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "mapper_rebuild_duration_seconds",
				Help:      "Duration of devpath mapper snapshot rebuilds",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
		),

		MapperVertexCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "mapper_vertex_count",
				Help:      "Number of vertices in the current merged topology snapshot",
			},
		),

		PropertyCacheHitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "property_cache_hits_total",
				Help:      "Property cache reads served from a fresh entry",
			},
			[]string{"property"},
		),

		PropertyCacheMissesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "property_cache_misses_total",
				Help:      "Property cache reads that found no entry or a type mismatch",
			},
			[]string{"property"},
		),

		PropertyCacheRefreshTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "property_cache_refresh_total",
				Help:      "Property cache refresh fetches triggered by an expired entry",
			},
			[]string{"property", "status"},
		),

		CollectorCallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "collector_calls_total",
				Help:      "Total calls made to per-agent resource collectors",
			},
			[]string{"agent", "resource", "operation"},
		),

		CollectorFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "collector_failures_total",
				Help:      "Collector calls that returned a non-OK status",
			},
			[]string{"agent", "resource", "operation"},
		),

		ServiceInfo: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Service information",
			},
			[]string{"version", "environment"},
		),
	}

	defaultMetrics = m
	return m
}

// Get returns the global metrics instance, initializing one with default
// namespace "mmaster" if InitMetrics has not been called yet.
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("mmaster", "")
	}
	return defaultMetrics
}

// RecordRPCRequest records one finished RPC invocation.
func (m *Metrics) RecordRPCRequest(method string, status string, duration time.Duration) {
	m.RPCRequestsTotal.WithLabelValues(method, status).Inc()
	m.RPCRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordMapperRebuild records one devpath mapper snapshot rebuild.
func (m *Metrics) RecordMapperRebuild(success bool, duration time.Duration, vertexCount int) {
	status := "success"
	if !success {
		status = "error"
	}
	m.MapperRebuildsTotal.WithLabelValues(status).Inc()
	m.MapperRebuildDuration.Observe(duration.Seconds())
	if success {
		m.MapperVertexCount.Set(float64(vertexCount))
	}
}

// RecordPropertyCacheHit records a fresh property cache read.
func (m *Metrics) RecordPropertyCacheHit(property string) {
	m.PropertyCacheHitsTotal.WithLabelValues(property).Inc()
}

// RecordPropertyCacheMiss records a property cache miss or type mismatch.
func (m *Metrics) RecordPropertyCacheMiss(property string) {
	m.PropertyCacheMissesTotal.WithLabelValues(property).Inc()
}

// RecordPropertyCacheRefresh records a refresh fetch triggered by an expired entry.
func (m *Metrics) RecordPropertyCacheRefresh(property string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.PropertyCacheRefreshTotal.WithLabelValues(property, status).Inc()
}

// RecordCollectorCall records one collector Enumerate/Query call.
func (m *Metrics) RecordCollectorCall(agent, resource, operation string, ok bool) {
	m.CollectorCallsTotal.WithLabelValues(agent, resource, operation).Inc()
	if !ok {
		m.CollectorFailuresTotal.WithLabelValues(agent, resource, operation).Inc()
	}
}

// SetServiceInfo records static service version/environment labels.
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// Handler returns the HTTP handler serving /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer starts the HTTP server exposing /metrics and /health.
func StartMetricsServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK")) //nolint:errcheck // health endpoint, write failure isn't actionable
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
