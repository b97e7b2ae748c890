// Package policy models validation policies: for every validation context
// (signature, timestamp, certificate, ...) and validation level, the ordered
// list of constraints the engine evaluates, plus the cryptographic suite the
// cryptographic constraints consult.
package policy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/georgepadayatti/goades/ades"
	"github.com/georgepadayatti/goades/diagnostic"
)

// ErrPolicyConfiguration is matched by every error caused by an invalid
// policy. Such errors abort a run before any token is evaluated.
var ErrPolicyConfiguration = errors.New("policy configuration error")

// ConfigError represents a policy error with context.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("policy error in '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("policy error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is makes every ConfigError match ErrPolicyConfiguration.
func (e *ConfigError) Is(target error) bool {
	return target == ErrPolicyConfiguration
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// Context selects the constraint set applied to a token.
type Context string

const (
	ContextSignature        Context = "signature"
	ContextCounterSignature Context = "counter-signature"
	ContextTimestamp        Context = "timestamp"
	ContextCertificate      Context = "certificate"
	ContextRevocation       Context = "revocation"
	ContextEvidenceRecord   Context = "evidence-record"
)

// Contexts lists every context in document order.
var Contexts = []Context{
	ContextSignature,
	ContextCounterSignature,
	ContextTimestamp,
	ContextCertificate,
	ContextRevocation,
	ContextEvidenceRecord,
}

// ContextFor returns the context used to validate tok.
func ContextFor(tok diagnostic.Token) Context {
	switch t := tok.(type) {
	case *diagnostic.Signature:
		if t.IsCounterSignature() {
			return ContextCounterSignature
		}
		return ContextSignature
	case *diagnostic.Timestamp:
		return ContextTimestamp
	case *diagnostic.Certificate:
		return ContextCertificate
	case *diagnostic.Revocation:
		return ContextRevocation
	case *diagnostic.EvidenceRecord:
		return ContextEvidenceRecord
	}
	return ""
}

// RequiredContext returns the context a model holding tokens of typ needs.
func RequiredContext(typ diagnostic.TokenType) Context {
	switch typ {
	case diagnostic.TypeSignature:
		return ContextSignature
	case diagnostic.TypeTimestamp:
		return ContextTimestamp
	case diagnostic.TypeCertificate:
		return ContextCertificate
	case diagnostic.TypeRevocation:
		return ContextRevocation
	case diagnostic.TypeEvidenceRecord:
		return ContextEvidenceRecord
	}
	return ""
}

// ValidationLevel is the depth of a validation run.
type ValidationLevel int

const (
	LevelBasicSignatures ValidationLevel = iota + 1
	LevelLongTermData
	LevelArchivalData
)

// String returns the string representation of the level.
func (l ValidationLevel) String() string {
	switch l {
	case LevelBasicSignatures:
		return "BASIC_SIGNATURES"
	case LevelLongTermData:
		return "LONG_TERM_DATA"
	case LevelArchivalData:
		return "ARCHIVAL_DATA"
	default:
		return fmt.Sprintf("ValidationLevel(%d)", int(l))
	}
}

// ParseValidationLevel parses the string form of a validation level.
func ParseValidationLevel(s string) (ValidationLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BASIC_SIGNATURES", "BASIC":
		return LevelBasicSignatures, nil
	case "LONG_TERM_DATA", "LONG_TERM", "LTV":
		return LevelLongTermData, nil
	case "ARCHIVAL_DATA", "ARCHIVAL", "LTA":
		return LevelArchivalData, nil
	default:
		return 0, fmt.Errorf("%w: unknown validation level %q", ErrPolicyConfiguration, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l ValidationLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *ValidationLevel) UnmarshalText(b []byte) error {
	v, err := ParseValidationLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Valid reports whether l is a known level.
func (l ValidationLevel) Valid() bool {
	return l >= LevelBasicSignatures && l <= LevelArchivalData
}

// ConstraintSpec configures one constraint.
type ConstraintSpec struct {
	Name  string     `yaml:"name"`
	Block string     `yaml:"block,omitempty"`
	Level ades.Level `yaml:"level"`
	// Value is the expected value, interpreted by the constraint.
	Value string `yaml:"value,omitempty"`
	// Expression makes the constraint a custom one: a CEL expression over
	// the token attributes that must evaluate to true.
	Expression    string             `yaml:"expression,omitempty"`
	Indication    ades.Indication    `yaml:"indication,omitempty"`
	SubIndication ades.SubIndication `yaml:"sub-indication,omitempty"`

	program *program
}

// IsCustom reports whether the constraint is a custom expression.
func (c ConstraintSpec) IsCustom() bool {
	return c.Expression != ""
}

// ContextSpec holds the constraints of one context, per validation level.
type ContextSpec struct {
	Basic    []ConstraintSpec `yaml:"basic,omitempty"`
	LongTerm []ConstraintSpec `yaml:"long-term,omitempty"`
	Archival []ConstraintSpec `yaml:"archival,omitempty"`
}

func (c *ContextSpec) lists() []*[]ConstraintSpec {
	return []*[]ConstraintSpec{&c.Basic, &c.LongTerm, &c.Archival}
}

// Document is the serialized form of a policy.
type Document struct {
	Name          string              `yaml:"name"`
	Version       string              `yaml:"version"`
	Description   string              `yaml:"description,omitempty"`
	Cryptographic *CryptographicSuite `yaml:"cryptographic,omitempty"`

	Signature        *ContextSpec `yaml:"signature,omitempty"`
	CounterSignature *ContextSpec `yaml:"counter-signature,omitempty"`
	Timestamp        *ContextSpec `yaml:"timestamp,omitempty"`
	Certificate      *ContextSpec `yaml:"certificate,omitempty"`
	Revocation       *ContextSpec `yaml:"revocation,omitempty"`
	EvidenceRecord   *ContextSpec `yaml:"evidence-record,omitempty"`
}

func (d *Document) context(c Context) *ContextSpec {
	switch c {
	case ContextSignature:
		return d.Signature
	case ContextCounterSignature:
		return d.CounterSignature
	case ContextTimestamp:
		return d.Timestamp
	case ContextCertificate:
		return d.Certificate
	case ContextRevocation:
		return d.Revocation
	case ContextEvidenceRecord:
		return d.EvidenceRecord
	}
	return nil
}

// Policy is a checked, immutable validation policy.
type Policy struct {
	doc    Document
	crypto *CryptographicSuite
}

// New checks doc and returns the policy it describes. Custom constraint
// expressions are compiled here so that evaluation never fails on syntax.
func New(doc Document) (*Policy, error) {
	if strings.TrimSpace(doc.Name) == "" {
		return nil, NewConfigError("name", "required field is missing")
	}
	if err := checkVersion(doc.Version); err != nil {
		return nil, err
	}

	p := &Policy{doc: doc}
	if doc.Cryptographic != nil {
		suite := *doc.Cryptographic
		if err := suite.compile(); err != nil {
			return nil, err
		}
		p.crypto = &suite
	} else {
		p.crypto = DefaultCryptographicSuite()
	}

	for _, c := range Contexts {
		orig := doc.context(c)
		if orig == nil {
			continue
		}
		// Deep copy so that compiled programs never leak into the caller's
		// document.
		cs := &ContextSpec{}
		for i, list := range orig.lists() {
			dst := cs.lists()[i]
			*dst = make([]ConstraintSpec, len(*list))
			for j, spec := range *list {
				field := fmt.Sprintf("%s[%d]", c, j)
				checked, err := checkConstraint(field, spec)
				if err != nil {
					return nil, err
				}
				(*dst)[j] = checked
			}
		}
		p.setContext(c, cs)
	}
	return p, nil
}

func (p *Policy) setContext(c Context, cs *ContextSpec) {
	switch c {
	case ContextSignature:
		p.doc.Signature = cs
	case ContextCounterSignature:
		p.doc.CounterSignature = cs
	case ContextTimestamp:
		p.doc.Timestamp = cs
	case ContextCertificate:
		p.doc.Certificate = cs
	case ContextRevocation:
		p.doc.Revocation = cs
	case ContextEvidenceRecord:
		p.doc.EvidenceRecord = cs
	}
}

func checkConstraint(field string, spec ConstraintSpec) (ConstraintSpec, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return spec, NewConfigError(field, "constraint name is missing")
	}
	lvl, err := ades.ParseLevel(string(spec.Level))
	if err != nil {
		return spec, &ConfigError{Field: field, Message: err.Error(), Err: err}
	}
	spec.Level = lvl

	switch spec.Indication {
	case "", ades.IndicationFailed, ades.IndicationIndeterminate:
	default:
		return spec, NewConfigError(field, fmt.Sprintf("indication %q cannot be used as a failure", spec.Indication))
	}
	if spec.Expression != "" {
		prg, err := compileExpression(spec.Expression)
		if err != nil {
			return spec, &ConfigError{Field: field, Message: fmt.Sprintf("invalid expression for %s", spec.Name), Err: err}
		}
		spec.program = prg
	}
	return spec, nil
}

// Name returns the policy name.
func (p *Policy) Name() string { return p.doc.Name }

// Version returns the policy version.
func (p *Policy) Version() string { return p.doc.Version }

// Description returns the policy description.
func (p *Policy) Description() string { return p.doc.Description }

// Cryptographic returns the cryptographic suite of the policy, or the
// default suite when the policy defines none.
func (p *Policy) Cryptographic() *CryptographicSuite { return p.crypto }

// Defines reports whether the policy has constraints for c. A missing
// counter-signature context falls back to the signature context.
func (p *Policy) Defines(c Context) bool {
	return p.resolve(c) != nil
}

func (p *Policy) resolve(c Context) *ContextSpec {
	cs := p.doc.context(c)
	if cs == nil && c == ContextCounterSignature {
		cs = p.doc.Signature
	}
	return cs
}

// Constraints returns the constraints evaluated for context c at level, in
// policy order: basic constraints first, then long-term, then archival.
func (p *Policy) Constraints(c Context, level ValidationLevel) []ConstraintSpec {
	cs := p.resolve(c)
	if cs == nil {
		return nil
	}
	out := make([]ConstraintSpec, 0, len(cs.Basic)+len(cs.LongTerm)+len(cs.Archival))
	out = append(out, cs.Basic...)
	if level >= LevelLongTermData {
		out = append(out, cs.LongTerm...)
	}
	if level >= LevelArchivalData {
		out = append(out, cs.Archival...)
	}
	return out
}

// ConstraintNames returns the distinct constraint names used in the policy.
func (p *Policy) ConstraintNames(c Context) []string {
	var names []string
	seen := make(map[string]bool)
	for _, spec := range p.Constraints(c, LevelArchivalData) {
		if !seen[spec.Name] {
			seen[spec.Name] = true
			names = append(names, spec.Name)
		}
	}
	return names
}

// Document returns a copy of the underlying document.
func (p *Policy) Document() Document {
	return p.doc
}
