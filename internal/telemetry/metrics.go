// Package telemetry holds the Prometheus metrics and OpenTelemetry spans
// recorded by the build queues and the dev server.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "lalilo").
	Namespace string

	// Buckets are the histogram buckets for build duration.
	Buckets []float64

	// Registry receives the collectors. Default: a fresh registry.
	Registry *prometheus.Registry
}

// MetricsOption configures the Prometheus collectors.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithBuckets sets the build duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry *prometheus.Registry) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "lalilo",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}
}

// Metrics records dev server activity. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	buildsTotal   *prometheus.CounterVec
	buildDuration *prometheus.HistogramVec
	queueDepth    *prometheus.GaugeVec
	reloadsTotal  prometheus.Counter
	changesTotal  *prometheus.CounterVec
	requestsTotal *prometheus.CounterVec
	reloadClients prometheus.Gauge
}

// NewMetrics registers the collectors.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		registry: config.Registry,

		buildsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "builds_total",
			Help:      "Total number of serialized build tasks by category and status",
		}, []string{"queue", "category", "status"}),

		buildDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "build_duration_seconds",
			Help:      "Build task duration in seconds",
			Buckets:   config.Buckets,
		}, []string{"queue", "category"}),

		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "queue_depth",
			Help:      "Tasks waiting in a build queue",
		}, []string{"queue"}),

		reloadsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "reloads_total",
			Help:      "Total number of coalesced reload notifications",
		}),

		changesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "changes_total",
			Help:      "Filesystem changes by classified category",
		}, []string{"category"}),

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "requests_total",
			Help:      "Dev server requests by resolved kind and status code",
		}, []string{"kind", "code"}),

		reloadClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "reload_clients",
			Help:      "Connected live-reload clients",
		}),
	}
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the collected metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordBuild records a finished build task.
func (m *Metrics) RecordBuild(queue, category string, ok bool, took time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if !ok {
		status = "failure"
	}
	m.buildsTotal.WithLabelValues(queue, category, status).Inc()
	m.buildDuration.WithLabelValues(queue, category).Observe(took.Seconds())
}

// SetQueueDepth records the number of waiting tasks.
func (m *Metrics) SetQueueDepth(queue string, n int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(queue).Set(float64(n))
}

// RecordChange counts a classified filesystem change.
func (m *Metrics) RecordChange(category string) {
	if m == nil {
		return
	}
	m.changesTotal.WithLabelValues(category).Inc()
}

// RecordReload counts a reload notification.
func (m *Metrics) RecordReload() {
	if m == nil {
		return
	}
	m.reloadsTotal.Inc()
}

// RecordRequest counts a served request.
func (m *Metrics) RecordRequest(kind string, code int) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(kind, httpCode(code)).Inc()
}

// SetReloadClients records the number of connected reload clients.
func (m *Metrics) SetReloadClients(n int) {
	if m == nil {
		return
	}
	m.reloadClients.Set(float64(n))
}

func httpCode(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
