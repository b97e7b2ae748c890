// Package bbb implements the Basic Building Blocks: the per token
// constraint pipeline. A token is evaluated against the ordered constraint
// list its policy defines for the token's context and the run's validation
// level, at a given reference time. The first FAIL level constraint that
// does not hold stops the pipeline and fixes the token's conclusion.
package bbb

import (
	"errors"
	"time"

	"github.com/georgepadayatti/goades/ades"
	"github.com/georgepadayatti/goades/diagnostic"
	"github.com/georgepadayatti/goades/poe"
	"github.com/georgepadayatti/goades/policy"
	"github.com/georgepadayatti/goades/revinfo"
	"github.com/georgepadayatti/goades/trust"
)

// ConclusionSource returns the conclusion currently held for a token.
type ConclusionSource interface {
	Conclusion(tokenID string) (ades.Conclusion, bool)
}

// Env is the per run context shared by every evaluation. Nothing in it is
// global: two runs never share an Env.
type Env struct {
	Model  *diagnostic.Model
	Policy *policy.Policy
	// CounterSignaturePolicy, when set, replaces Policy for
	// counter-signatures.
	CounterSignaturePolicy *policy.Policy
	Level                  policy.ValidationLevel
	// CurrentTime is the validation time of the run.
	CurrentTime time.Time
	POE         *poe.Tracker
	Revocation  revinfo.Source
	Trust       trust.Source
	Conclusions ConclusionSource
}

func (env *Env) policyFor(tok diagnostic.Token) *policy.Policy {
	if s, ok := tok.(*diagnostic.Signature); ok && s.IsCounterSignature() && env.CounterSignaturePolicy != nil {
		return env.CounterSignaturePolicy
	}
	return env.Policy
}

func (env *Env) conclusion(id string) (ades.Conclusion, bool) {
	if env.Conclusions == nil || id == "" {
		return ades.Conclusion{}, false
	}
	return env.Conclusions.Conclusion(id)
}

func (env *Env) trusted(certID string) bool {
	if c, ok := env.Model.Certificate(certID); ok && c.Trusted {
		return true
	}
	return env.Trust != nil && env.Trust.IsTrusted(certID)
}

func (env *Env) revocation(certID string, at time.Time) revinfo.Answer {
	if env.Revocation == nil {
		return revinfo.Answer{}
	}
	return env.Revocation.Lookup(certID, at)
}

// Result is the outcome of one evaluation of one token.
type Result struct {
	TokenID       string               `json:"id" xml:"Id,attr"`
	Type          diagnostic.TokenType `json:"type" xml:"Type,attr"`
	ReferenceTime time.Time            `json:"referenceTime" xml:"ReferenceTime"`
	Constraints   []ades.Constraint    `json:"constraints" xml:"Constraint"`
	Conclusion    ades.Conclusion      `json:"conclusion" xml:"Conclusion"`
}

// Constraint returns the recorded constraint named name.
func (r Result) Constraint(name string) (ades.Constraint, bool) {
	for _, c := range r.Constraints {
		if c.Name == name {
			return c, true
		}
	}
	return ades.Constraint{}, false
}

// Engine evaluates tokens against policies. An Engine holds no per run
// state and is safe for concurrent use once registration is over.
type Engine struct {
	checks map[string]Definition
}

// New returns an engine with the built-in checks registered.
func New() *Engine {
	e := &Engine{checks: make(map[string]Definition, len(builtins))}
	for _, d := range builtins {
		e.checks[d.Name] = d
	}
	return e
}

// Register adds or replaces a check. It must not be called while
// evaluations are running.
func (e *Engine) Register(d Definition) error {
	if d.Name == "" || d.Check == nil {
		return errors.New("check definition needs a name and a function")
	}
	e.checks[d.Name] = d
	return nil
}

// Definition returns the registered check named name.
func (e *Engine) Definition(name string) (Definition, bool) {
	d, ok := e.checks[name]
	return d, ok
}

// Evaluate runs the pipeline of tok at reference time ref.
func (e *Engine) Evaluate(env *Env, tok diagnostic.Token, ref time.Time) Result {
	res := Result{TokenID: tok.ID(), Type: tok.Type(), ReferenceTime: ref}
	ctx := policy.ContextFor(tok)
	specs := env.policyFor(tok).Constraints(ctx, env.Level)

	var warnings, infos []ades.Message
	for _, spec := range specs {
		block := e.block(spec)
		if spec.Level == ades.LevelIgnore {
			res.Constraints = append(res.Constraints, ades.Constraint{
				Block:    block,
				Name:     spec.Name,
				Level:    spec.Level,
				Status:   ades.StatusIgnored,
				Expected: spec.Value,
			})
			continue
		}

		v := e.run(env, tok, spec, ref)
		if v.Outcome == NotApplicable {
			continue
		}
		c := ades.Constraint{
			Block:    block,
			Name:     spec.Name,
			Level:    spec.Level,
			Status:   ades.StatusOK,
			Expected: spec.Value,
		}
		if v.Outcome == OK {
			res.Constraints = append(res.Constraints, c)
			continue
		}

		c.Status = spec.Level.StatusOnFailure()
		c.Answer = ades.AnswerKey(spec.Name)
		c.AdditionalInfo = v.Info
		msg := ades.Message{Key: c.Answer, Value: v.Info}
		switch spec.Level {
		case ades.LevelWarn:
			warnings = append(warnings, msg)
		case ades.LevelInform:
			infos = append(infos, msg)
		default:
			c.Indication, c.SubIndication = mapping(ctx, spec, v)
			res.Constraints = append(res.Constraints, c)
			res.Conclusion = ades.Conclusion{
				Indication:    c.Indication,
				SubIndication: c.SubIndication,
				Errors:        []ades.Message{msg},
				Warnings:      warnings,
				Infos:         infos,
			}
			return res
		}
		res.Constraints = append(res.Constraints, c)
	}
	res.Conclusion = ades.Passed(warnings, infos)
	return res
}

func (e *Engine) block(spec policy.ConstraintSpec) string {
	if spec.Block != "" {
		return spec.Block
	}
	if d, ok := e.checks[spec.Name]; ok && !spec.IsCustom() {
		return d.Block
	}
	return BlockCustom
}

func (e *Engine) run(env *Env, tok diagnostic.Token, spec policy.ConstraintSpec, ref time.Time) Verdict {
	if spec.IsCustom() {
		ok, err := spec.Eval(tok, ref, env.CurrentTime)
		switch {
		case err != nil:
			return absent("expression could not be evaluated: %v", err)
		case !ok:
			return notOK("expression %q does not hold", spec.Expression)
		}
		return pass()
	}
	d, ok := e.checks[spec.Name]
	if !ok {
		return Verdict{
			Outcome:       Absent,
			Indication:    ades.IndicationIndeterminate,
			SubIndication: ades.SubIndicationPolicyProcessingError,
			Info:          "unknown constraint",
		}
	}
	if !d.appliesTo(tok.Type()) {
		return notApplicable()
	}
	return d.Check(&Input{Env: env, Token: tok, Spec: spec, ReferenceTime: ref})
}

func mapping(ctx policy.Context, spec policy.ConstraintSpec, v Verdict) (ades.Indication, ades.SubIndication) {
	m := Mapping{ades.IndicationIndeterminate, ades.SubIndicationSigConstraintsFailure}
	if ctx == policy.ContextCertificate {
		m.SubIndication = ades.SubIndicationChainConstraintsFailure
	}
	if f, ok := FailureFor(spec.Name); ok && !spec.IsCustom() {
		m = f.OnFail
		if v.Outcome == Absent {
			m = f.OnAbsent
		}
	}
	if v.Indication != "" {
		m.Indication = v.Indication
	}
	if v.SubIndication != "" {
		m.SubIndication = v.SubIndication
	}
	if spec.Indication != "" {
		m.Indication = spec.Indication
	}
	if spec.SubIndication != "" {
		m.SubIndication = spec.SubIndication
	}
	// Missing input never gives a definitive verdict.
	if v.Outcome == Absent {
		m.Indication = ades.IndicationIndeterminate
	}
	return m.Indication, m.SubIndication
}
