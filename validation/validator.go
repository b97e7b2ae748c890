// Package validation orchestrates a validation run: it orders the tokens of
// a diagnostic model along their dependencies, evaluates each one through
// the building block engine, feeds the proofs of existence produced by
// valid timestamps back into the run, re-validates certificates at earlier
// instants when that can resolve them, and aggregates the result into
// reports.
package validation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/georgepadayatti/goades/bbb"
	"github.com/georgepadayatti/goades/diagnostic"
	"github.com/georgepadayatti/goades/metrics"
	"github.com/georgepadayatti/goades/policy"
	"github.com/georgepadayatti/goades/report"
	"github.com/georgepadayatti/goades/trust"
)

const defaultMaxPasses = 16

var (
	// ErrNoModel is returned when Validate is called without a model.
	ErrNoModel = errors.New("no diagnostic model")
	// ErrNoPolicy is returned when Validate is called without a policy.
	ErrNoPolicy = errors.New("no validation policy")
)

// Validator runs validations. It holds configuration only: every run gets
// its own state, so one Validator serves concurrent runs.
type Validator struct {
	engine         *bbb.Engine
	clock          clockwork.Clock
	logger         zerolog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	workers        int
	level          policy.ValidationLevel
	validationTime time.Time
	trust          trust.Source
	counterPolicy  *policy.Policy
	maxPasses      int
}

// New returns a validator with the built-in checks, the archival level and
// one worker.
func New(opts ...Option) *Validator {
	v := &Validator{
		engine:    bbb.New(),
		clock:     clockwork.NewRealClock(),
		logger:    zerolog.Nop(),
		tracer:    otel.Tracer("github.com/georgepadayatti/goades/validation"),
		workers:   1,
		level:     policy.LevelArchivalData,
		maxPasses: defaultMaxPasses,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate validates every token of m against p. Errors are returned only
// for unusable input or configuration, before any token is evaluated, or
// when ctx ends; token failures are verdicts in the reports.
func (v *Validator) Validate(ctx context.Context, m *diagnostic.Model, p *policy.Policy) (*report.Reports, error) {
	if m == nil {
		return nil, ErrNoModel
	}
	if p == nil {
		return nil, ErrNoPolicy
	}
	if err := m.Index(); err != nil {
		return nil, fmt.Errorf("%w: %w", diagnostic.ErrInvalidModel, err)
	}
	if !v.level.Valid() {
		return nil, policy.NewConfigError("level", fmt.Sprintf("unknown validation level %d", int(v.level)))
	}
	if err := v.engine.CheckPolicy(p, m); err != nil {
		return nil, err
	}
	if v.counterPolicy != nil {
		if err := v.engine.CheckCounterSignaturePolicy(v.counterPolicy, m); err != nil {
			return nil, fmt.Errorf("counter-signature policy: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := v.clock.Now()
	now := v.validationTime
	if now.IsZero() {
		now = m.ValidationTime
	}
	if now.IsZero() {
		now = start
	}
	now = now.UTC()

	runID := uuid.NewString()
	ctx, span := v.tracer.Start(ctx, "validation.Validate", trace.WithAttributes(
		attribute.String("goades.run_id", runID),
		attribute.String("goades.policy", p.Name()),
		attribute.String("goades.level", v.level.String()),
		attribute.Int("goades.tokens", len(m.Tokens())),
	))
	defer span.End()

	logger := v.logger.With().Str("run", runID).Logger()
	logger.Info().
		Time("validation_time", now).
		Str("policy", p.Name()).
		Stringer("level", v.level).
		Int("tokens", len(m.Tokens())).
		Msg("validation started")

	r := newRun(v, m, p, now, logger)
	if err := r.execute(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	reports, err := report.Build(report.Input{
		RunID:          runID,
		Model:          m,
		Policy:         p,
		Level:          v.level,
		ValidationTime: now,
		Tokens:         r.traces(),
		POE:            r.env.POE,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	for _, s := range reports.Simple.Signatures {
		v.metrics.Verdict(string(s.Indication))
	}
	elapsed := v.clock.Since(start)
	v.metrics.ObserveRun(elapsed)
	span.SetAttributes(attribute.Int("goades.signatures", reports.Simple.SignaturesCount))
	logger.Info().
		Int("signatures", reports.Simple.SignaturesCount).
		Int("valid", reports.Simple.ValidSignaturesCount).
		Dur("elapsed", elapsed).
		Msg("validation finished")
	return reports, nil
}

func (r *run) execute(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.v.workers)
	for _, nodes := range r.graph.components() {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r.component(nodes)
			return nil
		})
	}
	return g.Wait()
}
