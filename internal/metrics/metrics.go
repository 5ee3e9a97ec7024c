package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	QuotaDecisions      *prometheus.CounterVec
	QuotaCountErrors    *prometheus.CounterVec
	ClassifierRequests  *prometheus.CounterVec
	ClassifierLatency   *prometheus.HistogramVec
	SequenceTransitions *prometheus.CounterVec
	Errors              *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = New(namespace)
		prometheus.MustRegister(metricsInstance.Collectors()...)
	})
	return metricsInstance
}

// New builds unregistered collectors. Tests use it to avoid the global registry.
func New(namespace string) *Metrics {
	return &Metrics{
		QuotaDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_decisions_total",
			Help:      "Quota checks by action and outcome.",
		}, []string{"action", "outcome"}),
		QuotaCountErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_count_errors_total",
			Help:      "Usage counting failures by action and policy applied.",
		}, []string{"action", "policy"}),
		ClassifierRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_requests_total",
			Help:      "Reply classification requests by outcome.",
		}, []string{"status"}),
		ClassifierLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classifier_request_duration_seconds",
			Help:      "Latency distribution for reply classification.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		SequenceTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sequence_transitions_total",
			Help:      "Sequence state changes by operation and resulting status.",
		}, []string{"operation", "status"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total errors grouped by component.",
		}, []string{"component"}),
	}
}

func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.QuotaDecisions,
		m.QuotaCountErrors,
		m.ClassifierRequests,
		m.ClassifierLatency,
		m.SequenceTransitions,
		m.Errors,
	}
}

func (m *Metrics) QuotaDecision(action, outcome string) {
	if m == nil {
		return
	}
	m.QuotaDecisions.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) QuotaCountError(action, policy string) {
	if m == nil {
		return
	}
	m.QuotaCountErrors.WithLabelValues(action, policy).Inc()
}

func (m *Metrics) Classification(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.ClassifierRequests.WithLabelValues(status).Inc()
	m.ClassifierLatency.WithLabelValues(status).Observe(d.Seconds())
}

func (m *Metrics) Transition(operation, status string) {
	if m == nil {
		return
	}
	m.SequenceTransitions.WithLabelValues(operation, status).Inc()
}

func (m *Metrics) Error(component string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(component).Inc()
}
