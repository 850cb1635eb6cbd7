// Package metrics holds the Prometheus collectors for confirmations and uploads.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeConfirmed = "confirmed"
	OutcomeExpired   = "expired"
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
)

// Metrics exposes Prometheus collectors that report upload activity.
type Metrics struct {
	confirmations  *prometheus.CounterVec
	uploads        *prometheus.CounterVec
	skipped        prometheus.Counter
	uploadDuration prometheus.Histogram
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// Default returns the instance registered with the global Prometheus
// registry, created once so repeated construction does not panic.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNew(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNew registers a fresh set of collectors with reg and panics on
// registration errors, like the promauto helpers.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		confirmations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "uploader",
				Name:      "confirmations_total",
				Help:      "Confirmation prompts resolved, by outcome.",
			},
			[]string{"outcome"},
		),
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "uploader",
				Name:      "uploads_total",
				Help:      "Attachment uploads attempted, by outcome.",
			},
			[]string{"outcome"},
		),
		skipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "uploader",
				Name:      "attachments_skipped_total",
				Help:      "Attachments skipped because they are not images.",
			},
		),
		uploadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "uploader",
				Name:      "upload_duration_seconds",
				Help:      "Time spent downloading and uploading one attachment.",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}

	reg.MustRegister(m.confirmations, m.uploads, m.skipped, m.uploadDuration)
	return m
}

// Confirmation counts a resolved prompt. Nil receivers are a no-op.
func (m *Metrics) Confirmation(outcome string) {
	if m == nil {
		return
	}
	m.confirmations.WithLabelValues(outcome).Inc()
}

// Upload counts one upload attempt and how long it took.
func (m *Metrics) Upload(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome).Inc()
	m.uploadDuration.Observe(took.Seconds())
}

// Skipped counts one attachment that was not uploaded.
func (m *Metrics) Skipped() {
	if m == nil {
		return
	}
	m.skipped.Inc()
}

// Handler serves /metrics for gatherer on its own router, separate from the liveness listener.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}
