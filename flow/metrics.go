package flow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes workflow execution metrics through Prometheus.
// All methods are nil-safe so the engine can run without a collector.
//
// Exposed series (namespace "studyflow"):
//   - step_latency_ms histogram, labels step/status
//   - active_threads gauge
//   - suspensions_total counter, label step
//   - retries_total counter, label service
//   - fanout_size histogram
//   - edits_total counter, label outcome (applied/not_found)
type Metrics struct {
	stepLatency   *prometheus.HistogramVec
	activeThreads prometheus.Gauge
	suspensions   *prometheus.CounterVec
	retries       *prometheus.CounterVec
	fanoutSize    prometheus.Histogram
	edits         *prometheus.CounterVec
}

// NewMetrics creates and registers the workflow collectors. A nil
// registry uses the default registerer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		stepLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "studyflow",
			Name:      "step_latency_ms",
			Help:      "Step execution duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000},
		}, []string{"step", "status"}),
		activeThreads: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "studyflow",
			Name:      "active_threads",
			Help:      "Threads currently being stepped",
		}),
		suspensions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studyflow",
			Name:      "suspensions_total",
			Help:      "Suspensions issued awaiting human input",
		}, []string{"step"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studyflow",
			Name:      "retries_total",
			Help:      "External call retry attempts",
		}, []string{"service"}),
		fanoutSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "studyflow",
			Name:      "fanout_size",
			Help:      "Number of child tasks spawned per fan-out",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		}),
		edits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studyflow",
			Name:      "edits_total",
			Help:      "Document edit attempts by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) observeStep(step string, latency time.Duration, status string) {
	if m == nil {
		return
	}
	m.stepLatency.WithLabelValues(step, status).Observe(float64(latency.Milliseconds()))
}

func (m *Metrics) threadStarted() {
	if m == nil {
		return
	}
	m.activeThreads.Inc()
}

func (m *Metrics) threadFinished() {
	if m == nil {
		return
	}
	m.activeThreads.Dec()
}

func (m *Metrics) suspended(step string) {
	if m == nil {
		return
	}
	m.suspensions.WithLabelValues(step).Inc()
}

func (m *Metrics) observeFanOut(size int) {
	if m == nil {
		return
	}
	m.fanoutSize.Observe(float64(size))
}

// RecordRetry counts one retry attempt against an external service.
func (m *Metrics) RecordRetry(service string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(service).Inc()
}

// RecordEdit counts one edit attempt by outcome (applied / not_found).
func (m *Metrics) RecordEdit(outcome string) {
	if m == nil {
		return
	}
	m.edits.WithLabelValues(outcome).Inc()
}
