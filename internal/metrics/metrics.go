// Package metrics exposes prometheus instrumentation for the alert engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "alert_engine"

// Metrics holds the engine's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	// Decisions by resulting band
	Decisions *prometheus.CounterVec

	AssessLatency prometheus.Histogram

	// Terms dropped before scoring, by reason
	DiscardedTerms *prometheus.CounterVec

	UnknownFactors prometheus.Counter

	// Repository failures by operation
	StoreErrors *prometheus.CounterVec

	// Events received per intake and outcome
	IntakeEvents *prometheus.CounterVec
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers all collectors on reg
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,

		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Total alert decisions by band",
		}, []string{"decision"}),

		AssessLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assess_duration_seconds",
			Help:      "Duration of a single event assessment including persistence",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		DiscardedTerms: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discarded_terms_total",
			Help:      "Evidence terms discarded as malformed",
		}, []string{"reason"}),

		UnknownFactors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_factors_total",
			Help:      "Evidence terms whose factor is not in the catalog",
		}),

		StoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Assessment repository failures by operation",
		}, []string{"op"}),

		IntakeEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intake_events_total",
			Help:      "Events received by intake and status",
		}, []string{"intake", "status"}),
	}
}

// IncrementDecision records one decision
func (m *Metrics) IncrementDecision(decision string) {
	if m != nil {
		m.Decisions.WithLabelValues(decision).Inc()
	}
}

// ObserveAssessLatency records the duration of one assessment
func (m *Metrics) ObserveAssessLatency(d time.Duration) {
	if m != nil {
		m.AssessLatency.Observe(d.Seconds())
	}
}

// AddDiscarded records n discarded terms
func (m *Metrics) AddDiscarded(reason string, n int) {
	if m != nil && n > 0 {
		m.DiscardedTerms.WithLabelValues(reason).Add(float64(n))
	}
}

// AddUnknownFactors records n unknown factors
func (m *Metrics) AddUnknownFactors(n int) {
	if m != nil && n > 0 {
		m.UnknownFactors.Add(float64(n))
	}
}

// IncrementStoreError records a repository failure
func (m *Metrics) IncrementStoreError(op string) {
	if m != nil {
		m.StoreErrors.WithLabelValues(op).Inc()
	}
}

// IncrementIntake records an event seen by an intake
func (m *Metrics) IncrementIntake(intake, status string) {
	if m != nil {
		m.IntakeEvents.WithLabelValues(intake, status).Inc()
	}
}
