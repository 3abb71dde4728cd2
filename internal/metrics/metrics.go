// Package metrics holds the prometheus instruments for batch processing and
// the HTTP surface.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is nil-safe: every method is a no-op on a nil receiver.
type Metrics struct {
	reg *prometheus.Registry

	// Files by outcome: "processed" or "skipped"
	Files *prometheus.CounterVec

	DroppedRows   prometheus.Counter
	Sessions      prometheus.Counter
	Discrepancies *prometheus.CounterVec // by issue tag

	// Batches by outcome: "ok", "empty", "error"
	Batches       *prometheus.CounterVec
	BatchDuration prometheus.Histogram

	HTTPDuration *prometheus.HistogramVec
}

// New registers all instruments on a fresh registry along with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		Files: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kastle_files_total",
			Help: "Uploaded swipe files by outcome",
		}, []string{"outcome"}),
		DroppedRows: f.NewCounter(prometheus.CounterOpts{
			Name: "kastle_dropped_rows_total",
			Help: "Rows dropped for an unparseable timestamp",
		}),
		Sessions: f.NewCounter(prometheus.CounterOpts{
			Name: "kastle_sessions_total",
			Help: "Sessions produced by reconciliation",
		}),
		Discrepancies: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kastle_discrepancies_total",
			Help: "Discrepant sessions by issue tag",
		}, []string{"issue"}),
		Batches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kastle_batches_total",
			Help: "Batches by outcome",
		}, []string{"outcome"}),
		BatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "kastle_batch_duration_seconds",
			Help:    "Wall time to normalize, reconcile and aggregate one batch",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kastle_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) FileProcessed(droppedRows int) {
	if m != nil {
		m.Files.WithLabelValues("processed").Inc()
		m.DroppedRows.Add(float64(droppedRows))
	}
}

func (m *Metrics) FileSkipped() {
	if m != nil {
		m.Files.WithLabelValues("skipped").Inc()
	}
}

// ObserveBatch records a finished batch. issues maps tag to count.
func (m *Metrics) ObserveBatch(outcome string, d time.Duration, sessions int, issues map[string]int) {
	if m == nil {
		return
	}
	m.Batches.WithLabelValues(outcome).Inc()
	m.BatchDuration.Observe(d.Seconds())
	m.Sessions.Add(float64(sessions))
	for tag, n := range issues {
		m.Discrepancies.WithLabelValues(tag).Add(float64(n))
	}
}

func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m != nil {
		m.HTTPDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
	}
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
