package bbb

import (
	"fmt"

	"github.com/georgepadayatti/goades/diagnostic"
	"github.com/georgepadayatti/goades/policy"
)

var contextTypes = map[policy.Context]diagnostic.TokenType{
	policy.ContextSignature:        diagnostic.TypeSignature,
	policy.ContextCounterSignature: diagnostic.TypeSignature,
	policy.ContextTimestamp:        diagnostic.TypeTimestamp,
	policy.ContextCertificate:      diagnostic.TypeCertificate,
	policy.ContextRevocation:       diagnostic.TypeRevocation,
	policy.ContextEvidenceRecord:   diagnostic.TypeEvidenceRecord,
}

// CheckPolicy reports the configuration errors that make p unusable with
// this engine: constraints that are neither registered nor custom,
// constraints used in a context they do not apply to, invalid values, and,
// when m is not nil, contexts required by the tokens of m that p does not
// define or leaves empty. Every error matches policy.ErrPolicyConfiguration.
func (e *Engine) CheckPolicy(p *policy.Policy, m *diagnostic.Model) error {
	if err := e.checkConstraints(p); err != nil {
		return err
	}
	if m == nil {
		return nil
	}
	for _, typ := range []diagnostic.TokenType{
		diagnostic.TypeSignature,
		diagnostic.TypeTimestamp,
		diagnostic.TypeCertificate,
		diagnostic.TypeRevocation,
		diagnostic.TypeEvidenceRecord,
	} {
		if !m.Has(typ) {
			continue
		}
		if err := requireContext(p, policy.RequiredContext(typ), typ); err != nil {
			return err
		}
	}
	if hasCounterSignature(m) {
		return requireContext(p, policy.ContextCounterSignature, diagnostic.TypeSignature)
	}
	return nil
}

// CheckCounterSignaturePolicy checks p as the policy applied to the
// counter-signatures of m. Only the counter-signature context, or the
// signature context it falls back to, is required.
func (e *Engine) CheckCounterSignaturePolicy(p *policy.Policy, m *diagnostic.Model) error {
	if err := e.checkConstraints(p); err != nil {
		return err
	}
	if m == nil || !hasCounterSignature(m) {
		return nil
	}
	return requireContext(p, policy.ContextCounterSignature, diagnostic.TypeSignature)
}

func hasCounterSignature(m *diagnostic.Model) bool {
	for _, s := range m.Signatures {
		if s.IsCounterSignature() {
			return true
		}
	}
	return false
}

// requireContext fails unless p has at least one constraint for ctx. An
// empty context would pass every token vacuously.
func requireContext(p *policy.Policy, ctx policy.Context, typ diagnostic.TokenType) error {
	if !p.Defines(ctx) {
		return policy.NewConfigError(string(ctx), fmt.Sprintf("no constraints defined for %s tokens", typ))
	}
	if len(p.Constraints(ctx, policy.LevelArchivalData)) == 0 {
		return policy.NewConfigError(string(ctx), fmt.Sprintf("context defines no constraints for %s tokens", typ))
	}
	return nil
}

func (e *Engine) checkConstraints(p *policy.Policy) error {
	if p == nil {
		return policy.NewConfigError("", "no policy")
	}
	for _, ctx := range policy.Contexts {
		if !p.Defines(ctx) {
			continue
		}
		typ := contextTypes[ctx]
		for i, spec := range p.Constraints(ctx, policy.LevelArchivalData) {
			if spec.IsCustom() {
				continue
			}
			field := fmt.Sprintf("%s[%d]", ctx, i)
			d, ok := e.checks[spec.Name]
			if !ok {
				return policy.NewConfigError(field, fmt.Sprintf("unknown constraint %s", spec.Name))
			}
			if !d.appliesTo(typ) {
				return policy.NewConfigError(field, fmt.Sprintf("constraint %s does not apply to %s tokens", spec.Name, typ))
			}
			if d.ValidateValue != nil {
				if err := d.ValidateValue(spec.Value); err != nil {
					return &policy.ConfigError{
						Field:   field,
						Message: fmt.Sprintf("invalid value %q for %s", spec.Value, spec.Name),
						Err:     err,
					}
				}
			}
		}
	}

	return nil
}
