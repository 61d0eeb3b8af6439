package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Turn metrics
	TurnRequests prometheus.Counter
	TurnLatency  prometheus.Histogram
	TurnErrors   *prometheus.CounterVec

	// Side-effect metrics
	SideEffectFailures *prometheus.CounterVec

	// Document metrics
	DocumentsProcessed prometheus.Counter
	DocumentsFailed    prometheus.Counter
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		TurnRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "studymate_turn_requests_total",
			Help: "Total number of conversation turns processed",
		}),

		TurnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "studymate_turn_duration_seconds",
			Help:    "Turn processing latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}, // up to 2 minutes for LLM responses
		}),

		TurnErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "studymate_turn_errors_total",
			Help: "Total number of failed turns by error kind",
		}, []string{"kind"}),

		SideEffectFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "studymate_side_effect_failures_total",
			Help: "Total number of failed side-effect sub-steps by step name",
		}, []string{"step"}),

		DocumentsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "studymate_documents_processed_total",
			Help: "Total number of successfully processed document uploads",
		}),

		DocumentsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "studymate_documents_failed_total",
			Help: "Total number of failed document uploads",
		}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordTurn records a processed turn and its latency
func (m *Metrics) RecordTurn(seconds float64) {
	if m == nil {
		return
	}
	m.TurnRequests.Inc()
	m.TurnLatency.Observe(seconds)
}

// RecordTurnError records a failed turn by error kind
func (m *Metrics) RecordTurnError(kind string) {
	if m == nil {
		return
	}
	m.TurnErrors.WithLabelValues(kind).Inc()
}

// RecordSideEffectFailure records a failed side-effect sub-step
func (m *Metrics) RecordSideEffectFailure(step string) {
	if m == nil {
		return
	}
	m.SideEffectFailures.WithLabelValues(step).Inc()
}

// RecordDocumentProcessed records a successful document upload
func (m *Metrics) RecordDocumentProcessed() {
	if m == nil {
		return
	}
	m.DocumentsProcessed.Inc()
}

// RecordDocumentFailed records a failed document upload
func (m *Metrics) RecordDocumentFailed() {
	if m == nil {
		return
	}
	m.DocumentsFailed.Inc()
}
