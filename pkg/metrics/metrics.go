package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	URLsProcessed       *prometheus.CounterVec
	ProbeAttempts       *prometheus.CounterVec
	ProbeDuration       prometheus.Histogram
	WorkQueueDepth      prometheus.Gauge
	ResultQueueDepth    prometheus.Gauge
	SinkErrors          prometheus.Counter
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers the metrics on reg. Pass prometheus.DefaultRegisterer in
// binaries and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		URLsProcessed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "urlcleaner_urls_processed_total",
				Help: "Total number of URLs emitted to a sink, by final status.",
			},
			[]string{"status"},
		),
		ProbeAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "urlcleaner_probe_attempts_total",
				Help: "Total number of HEAD probe attempts, by outcome.",
			},
			[]string{"outcome"}, // resolved, retryable, terminal, cancelled
		),
		ProbeDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "urlcleaner_probe_duration_seconds",
				Help:    "Duration of single HEAD probe attempts.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10},
			},
		),
		WorkQueueDepth: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "urlcleaner_work_queue_depth",
				Help: "Work items fed but not yet acknowledged by a worker.",
			},
		),
		ResultQueueDepth: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "urlcleaner_result_queue_depth",
				Help: "Results produced but not yet acknowledged by the sink.",
			},
		),
		SinkErrors: f.NewCounter(
			prometheus.CounterOpts{
				Name: "urlcleaner_sink_errors_total",
				Help: "Total number of records the sink failed to store.",
			},
		),
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
}

func (m *Metrics) ObserveProbe(outcome string, d time.Duration) {
	m.ProbeAttempts.WithLabelValues(outcome).Inc()
	m.ProbeDuration.Observe(d.Seconds())
}

func (m *Metrics) IncProcessed(status string) {
	m.URLsProcessed.WithLabelValues(status).Inc()
}
