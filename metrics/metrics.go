// Package metrics exposes the Prometheus metrics of validation runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Past validation outcomes.
const (
	OutcomePassed = "passed"
	OutcomeFailed = "failed"
	OutcomeNoPOE  = "no_poe"
)

// Metrics groups the collectors of the validator. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Validations      *prometheus.CounterVec
	TokenEvaluations *prometheus.CounterVec
	PastValidations  *prometheus.CounterVec
	Duration         prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Validations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goades",
			Name:      "validations_total",
			Help:      "Signature verdicts produced, by indication.",
		}, []string{"indication"}),
		TokenEvaluations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goades",
			Name:      "token_evaluations_total",
			Help:      "Basic building block evaluations, by token type and indication.",
		}, []string{"type", "indication"}),
		PastValidations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goades",
			Name:      "past_validations_total",
			Help:      "Past certificate validations, by outcome.",
		}, []string{"outcome"}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "goades",
			Name:      "validation_duration_seconds",
			Help:      "Duration of validation runs.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}),
	}
}

// Verdict counts a signature verdict.
func (m *Metrics) Verdict(indication string) {
	if m == nil {
		return
	}
	m.Validations.WithLabelValues(indication).Inc()
}

// Evaluation counts one token evaluation.
func (m *Metrics) Evaluation(tokenType, indication string) {
	if m == nil {
		return
	}
	m.TokenEvaluations.WithLabelValues(tokenType, indication).Inc()
}

// PastValidation counts one past validation attempt.
func (m *Metrics) PastValidation(outcome string) {
	if m == nil {
		return
	}
	m.PastValidations.WithLabelValues(outcome).Inc()
}

// ObserveRun records the duration of a run.
func (m *Metrics) ObserveRun(d time.Duration) {
	if m == nil {
		return
	}
	m.Duration.Observe(d.Seconds())
}
