// Package observability provides opt-in Prometheus metrics and
// OpenTelemetry tracing for MCP sessions. Both are exposed as session
// hooks: attach them with client.WithHooks or server.WithHooks.
package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcpkit/mcp-go/pkg/session"
)

// MetricsConfig configures the Prometheus hook.
type MetricsConfig struct {
	// Namespace is the metric name prefix. Default "mcp".
	Namespace string

	// ConstLabels are attached to every metric.
	ConstLabels prometheus.Labels

	// Registerer receives the collectors. Nil means a dedicated registry
	// served by Handler.
	Registerer prometheus.Registerer

	// DurationBuckets are the latency histogram buckets. Nil means
	// prometheus.DefBuckets.
	DurationBuckets []float64
}

// MetricsHook records request and notification counts and latencies for a
// session. It implements session.Hook.
type MetricsHook struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	notificationsTotal *prometheus.CounterVec
}

// NewMetricsHook creates and registers the session metrics.
func NewMetricsHook(config MetricsConfig) (*MetricsHook, error) {
	if config.Namespace == "" {
		config.Namespace = "mcp"
	}
	if config.DurationBuckets == nil {
		config.DurationBuckets = prometheus.DefBuckets
	}

	h := &MetricsHook{}
	registerer := config.Registerer
	if registerer == nil {
		h.registry = prometheus.NewRegistry()
		registerer = h.registry
	}

	h.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Name:        "requests_total",
		Help:        "JSON-RPC requests by direction, method and outcome.",
		ConstLabels: config.ConstLabels,
	}, []string{"direction", "method", "status"})

	h.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   config.Namespace,
		Name:        "request_duration_seconds",
		Help:        "JSON-RPC request latency by direction and method.",
		ConstLabels: config.ConstLabels,
		Buckets:     config.DurationBuckets,
	}, []string{"direction", "method"})

	h.notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Name:        "notifications_total",
		Help:        "JSON-RPC notifications by direction and method.",
		ConstLabels: config.ConstLabels,
	}, []string{"direction", "method"})

	for _, collector := range []prometheus.Collector{
		h.requestsTotal, h.requestDuration, h.notificationsTotal,
	} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// OnRequest implements session.Hook.
func (h *MetricsHook) OnRequest(ctx context.Context, direction session.Direction, method string) (context.Context, func(string)) {
	start := time.Now()
	return ctx, func(status string) {
		h.requestsTotal.WithLabelValues(string(direction), method, status).Inc()
		h.requestDuration.WithLabelValues(string(direction), method).Observe(time.Since(start).Seconds())
	}
}

// OnNotification implements session.Hook.
func (h *MetricsHook) OnNotification(ctx context.Context, direction session.Direction, method string) {
	h.notificationsTotal.WithLabelValues(string(direction), method).Inc()
}

// Handler serves the hook's dedicated registry. It returns nil when the
// hook was registered onto an external Registerer.
func (h *MetricsHook) Handler() http.Handler {
	if h.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})
}
