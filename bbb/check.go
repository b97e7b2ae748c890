package bbb

import (
	"fmt"
	"time"

	"github.com/georgepadayatti/goades/ades"
	"github.com/georgepadayatti/goades/diagnostic"
	"github.com/georgepadayatti/goades/policy"
)

// Building block names.
const (
	BlockFormat         = "FC"
	BlockIdentification = "ISC"
	BlockContext        = "VCI"
	BlockCryptographic  = "CV"
	BlockX509           = "XCV"
	BlockAcceptance     = "SAV"
	BlockRevocation     = "RFC"
	BlockTimestamps     = "TSV"
	BlockLongTerm       = "LTV"
	BlockArchival       = "LTA"
	BlockPastValidation = "PCV"
	BlockCustom         = "CUSTOM"
)

// Outcome is the raw result of a check, before the constraint level and
// the failure table are applied.
type Outcome int

const (
	OK Outcome = iota
	NotOK
	// Absent means the input the check needs is missing. It always maps to
	// INDETERMINATE.
	Absent
	// NotApplicable checks are left out of the trace.
	NotApplicable
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "OK"
	case NotOK:
		return "NOT_OK"
	case Absent:
		return "ABSENT"
	case NotApplicable:
		return "NOT_APPLICABLE"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Verdict is what a check returns. Indication and SubIndication, when
// set, override the failure table for this occurrence.
type Verdict struct {
	Outcome       Outcome
	Indication    ades.Indication
	SubIndication ades.SubIndication
	Info          string
}

func pass() Verdict          { return Verdict{Outcome: OK} }
func notApplicable() Verdict { return Verdict{Outcome: NotApplicable} }

func notOK(format string, args ...any) Verdict {
	return Verdict{Outcome: NotOK, Info: fmt.Sprintf(format, args...)}
}

func absent(format string, args ...any) Verdict {
	return Verdict{Outcome: Absent, Info: fmt.Sprintf(format, args...)}
}

func holds(cond bool, format string, args ...any) Verdict {
	if cond {
		return pass()
	}
	return notOK(format, args...)
}

// Input is handed to a check.
type Input struct {
	Env           *Env
	Token         diagnostic.Token
	Spec          policy.ConstraintSpec
	ReferenceTime time.Time
}

// CheckFunc evaluates one constraint. It must not modify the token or the
// environment.
type CheckFunc func(in *Input) Verdict

// Definition registers a check under a constraint name.
type Definition struct {
	Name  string
	Block string
	// Types lists the token types the check applies to; empty means all.
	Types []diagnostic.TokenType
	Check CheckFunc
	// ValidateValue, when set, checks the configured value of the
	// constraint at policy load time.
	ValidateValue func(value string) error
}

func (d Definition) appliesTo(t diagnostic.TokenType) bool {
	if len(d.Types) == 0 {
		return true
	}
	for _, typ := range d.Types {
		if typ == t {
			return true
		}
	}
	return false
}
