package validation

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/georgepadayatti/goades/bbb"
	"github.com/georgepadayatti/goades/metrics"
	"github.com/georgepadayatti/goades/policy"
	"github.com/georgepadayatti/goades/trust"
)

// Option configures a Validator.
type Option func(*Validator)

// WithClock sets the clock used for the default validation time and run
// durations.
func WithClock(c clockwork.Clock) Option {
	return func(v *Validator) {
		if c != nil {
			v.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(v *Validator) {
		v.logger = l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Validator) {
		v.metrics = m
	}
}

// WithTracer sets the tracer used for run spans.
func WithTracer(t trace.Tracer) Option {
	return func(v *Validator) {
		if t != nil {
			v.tracer = t
		}
	}
}

// WithWorkers bounds the number of independent components evaluated at the
// same time. Values below one mean one.
func WithWorkers(n int) Option {
	return func(v *Validator) {
		if n < 1 {
			n = 1
		}
		v.workers = n
	}
}

// WithLevel sets the validation level.
func WithLevel(l policy.ValidationLevel) Option {
	return func(v *Validator) {
		v.level = l
	}
}

// WithValidationTime fixes the validation time. Without it the model's
// validation time is used, then the clock.
func WithValidationTime(t time.Time) Option {
	return func(v *Validator) {
		v.validationTime = t
	}
}

// WithTrustSource adds trust anchors to the ones flagged in the model.
func WithTrustSource(s trust.Source) Option {
	return func(v *Validator) {
		v.trust = s
	}
}

// WithCounterSignaturePolicy validates counter-signatures against p
// instead of the main policy.
func WithCounterSignaturePolicy(p *policy.Policy) Option {
	return func(v *Validator) {
		v.counterPolicy = p
	}
}

// WithEngine replaces the building block engine, typically one with extra
// checks registered.
func WithEngine(e *bbb.Engine) Option {
	return func(v *Validator) {
		if e != nil {
			v.engine = e
		}
	}
}

// WithMaxPasses bounds the retroactive passes run after the evaluation at
// the validation time.
func WithMaxPasses(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.maxPasses = n
		}
	}
}
