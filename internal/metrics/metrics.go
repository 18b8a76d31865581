// Package metrics defines the Prometheus collectors for alignment runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "msa"

// Outcomes recorded on align_requests_total.
const (
	OutcomeSuccess          = "success"
	OutcomeBadRequest       = "bad_request"
	OutcomeToolNotFound     = "tool_not_found"
	OutcomeInvocationFailed = "invocation_failed"
	OutcomeInternal         = "internal_error"
)

// Metrics holds the service collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	requests    *prometheus.CounterVec
	duration    prometheus.Histogram
	inputBytes  prometheus.Histogram
	inflight    prometheus.Gauge
	sweptFiles  prometheus.Counter
	archiveErrs prometheus.Counter
}

// New registers the collectors on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,

		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "align_requests_total",
			Help:      "Alignment requests by outcome",
		}, []string{"outcome"}),

		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "align_duration_seconds",
			Help:      "Wall time spent in the external aligner",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300, 600},
		}),

		inputBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "align_input_bytes",
			Help:      "Size of accepted FASTA uploads in bytes",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10), // 1KB to 256MB
		}),

		inflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "align_inflight",
			Help:      "Aligner processes currently running",
		}),

		sweptFiles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "temp_swept_files_total",
			Help:      "Stale staging files removed by the janitor",
		}),

		archiveErrs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_errors_total",
			Help:      "Aligned outputs that could not be archived",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveRequest counts one request with its outcome.
func (m *Metrics) ObserveRequest(outcome string) {
	m.requests.WithLabelValues(outcome).Inc()
}

// ObserveAlignment records the aligner wall time.
func (m *Metrics) ObserveAlignment(d time.Duration) {
	m.duration.Observe(d.Seconds())
}

// ObserveInput records the size of an accepted upload.
func (m *Metrics) ObserveInput(bytes int64) {
	m.inputBytes.Observe(float64(bytes))
}

// Start marks an aligner process as running and returns its completion func.
func (m *Metrics) Start() func() {
	m.inflight.Inc()
	return m.inflight.Dec
}

// ObserveSweep counts files removed by the janitor.
func (m *Metrics) ObserveSweep(removed int) {
	m.sweptFiles.Add(float64(removed))
}

// ObserveArchiveError counts a failed archive upload.
func (m *Metrics) ObserveArchiveError() {
	m.archiveErrs.Inc()
}
