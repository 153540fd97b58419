package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Classifier labels a request for metrics. The gateway's App.Classify
// is the usual implementation; a nil classifier labels everything as a
// page request.
type Classifier func(r *http.Request) string

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "prerend").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for render duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer

	// Classifier labels requests by class (asset, api, page, dev).
	Classifier Classifier
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// WithClassifier sets the request classifier.
func WithClassifier(fn func(r *http.Request) string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Classifier = fn
	}
}

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace:   "prerend",
		Subsystem:   "",
		ConstLabels: nil,
		Buckets:     prometheus.DefBuckets,
		Registry:    prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus metrics for the gateway.
type metrics struct {
	rendersTotal   *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	renderErrors   *prometheus.CounterVec
	renderTimeouts *prometheus.CounterVec
	proxyRequests  *prometheus.CounterVec
	assetsServed   *prometheus.CounterVec
}

// globalMetrics is the singleton metrics instance.
// Created on first call to Prometheus().
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

// initMetrics initializes the Prometheus metrics.
func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		rendersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "renders_total",
			Help:        "Total number of page renders by route and status",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "status"}),

		renderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_duration_seconds",
			Help:        "Page render duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route"}),

		renderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_errors_total",
			Help:        "Total number of failed page renders by route",
			ConstLabels: config.ConstLabels,
		}, []string{"route"}),

		renderTimeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_timeouts_total",
			Help:        "Total number of page renders that exceeded the deadline",
			ConstLabels: config.ConstLabels,
		}, []string{"route"}),

		proxyRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "proxy_requests_total",
			Help:        "Total number of data-API requests forwarded to the backend",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		assetsServed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "assets_served_total",
			Help:        "Total number of client bundle files served",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),
	}
}

// Prometheus creates middleware that collects Prometheus metrics for
// gateway requests.
//
// Metrics collected:
//   - prerend_renders_total: Counter of page renders by route and status
//   - prerend_render_duration_seconds: Histogram of page render duration
//   - prerend_render_errors_total: Counter of failed renders by route
//   - prerend_render_timeouts_total: Counter of deadline-exceeded renders
//   - prerend_proxy_requests_total: Counter of forwarded data-API requests
//   - prerend_assets_served_total: Counter of served bundle files
//
// Example:
//
//	handler := middleware.Prometheus(
//	    middleware.WithClassifier(app.Classify),
//	)(app)
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) func(http.Handler) http.Handler {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	// Initialize metrics once
	globalMetricsMu.Lock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	m := globalMetrics
	globalMetricsMu.Unlock()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			class := "page"
			if config.Classifier != nil {
				class = config.Classifier(r)
			}

			// Live-reload sockets hijack the connection and stay open;
			// wrapping the writer would break the upgrade.
			if class == "dev" {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(rec, r)

			status := strconv.Itoa(rec.status)
			switch class {
			case "asset":
				m.assetsServed.WithLabelValues(status).Inc()
			case "api":
				m.proxyRequests.WithLabelValues(status).Inc()
			default:
				route := r.URL.Path
				if route == "" {
					route = "/"
				}
				m.renderDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
				m.rendersTotal.WithLabelValues(route, status).Inc()
				if rec.status == http.StatusServiceUnavailable {
					m.renderTimeouts.WithLabelValues(route).Inc()
				} else if rec.status >= http.StatusInternalServerError {
					m.renderErrors.WithLabelValues(route).Inc()
				}
			}
		})
	}
}

// statusRecorder captures the response status for metrics labels.
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wrote {
		r.status = status
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wrote = true
	return r.ResponseWriter.Write(b)
}
