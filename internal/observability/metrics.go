package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	evalRequestsTotal  *prometheus.CounterVec
	evalLatencySeconds *prometheus.HistogramVec
	evalOutcomesTotal  *prometheus.CounterVec
	signalDegradations *prometheus.CounterVec
	evalCacheHitsTotal prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors for the evaluation
// pipeline and its HTTP surface.
func RegisterMetrics() {
	registerOnce.Do(func() {
		evalRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluation_requests_total",
			Help: "Total number of evaluation API requests served.",
		}, []string{"method", "route", "status"})

		evalLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "evaluation_latency_seconds",
			Help:    "Latency distribution for evaluation API requests.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}, []string{"method", "route"})

		evalOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluation_pipeline_outcomes_total",
			Help: "Terminal pipeline outcomes by category.",
		}, []string{"outcome"})

		signalDegradations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluation_signal_degradations_total",
			Help: "Signal engines that fell back to their neutral constant.",
		}, []string{"signal"})

		evalCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evaluation_cache_hits_total",
			Help: "Evaluation results served from the fingerprint cache.",
		})

		prometheus.MustRegister(
			evalRequestsTotal,
			evalLatencySeconds,
			evalOutcomesTotal,
			signalDegradations,
			evalCacheHitsTotal,
		)
	})
}

// EvalRequests exposes the counter for evaluation API requests.
func EvalRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return evalRequestsTotal
}

// EvalLatency exposes the latency histogram for evaluation API requests.
func EvalLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return evalLatencySeconds
}

// EvalOutcomes exposes the counter for terminal pipeline outcomes.
func EvalOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return evalOutcomesTotal
}

// SignalDegradations exposes the counter for neutral-fallback signal events.
func SignalDegradations() *prometheus.CounterVec {
	RegisterMetrics()
	return signalDegradations
}

// EvalCacheHits exposes the counter for fingerprint-cache hits.
func EvalCacheHits() prometheus.Counter {
	RegisterMetrics()
	return evalCacheHitsTotal
}
