package validation

import (
	"time"

	"github.com/georgepadayatti/goades/ades"
	"github.com/georgepadayatti/goades/bbb"
	"github.com/georgepadayatti/goades/diagnostic"
)

// State is the progress of one token through a run.
type State string

const (
	StateNotStarted     State = "NOT_STARTED"
	StateInProgress     State = "IN_PROGRESS"
	StatePassComplete   State = "PASS_COMPLETE"
	StatePastValidation State = "PAST_VALIDATION"
	StateTerminal       State = "TERMINAL"
)

// record is the per run bookkeeping of one token.
type record struct {
	tok   diagnostic.Token
	state State
	// current is the latest evaluation at the validation time.
	current bbb.Result
	past    []bbb.Result
	final   ades.Conclusion
	// resolved is set once a past validation passed; final is then kept.
	resolved bool
	// tried holds the reference times already used for past validation,
	// as Unix nanoseconds.
	tried map[int64]bool
	cycle bool
	noPOE bool
}

func newRecord(tok diagnostic.Token) *record {
	return &record{tok: tok, state: StateNotStarted, tried: make(map[int64]bool)}
}

// try marks at as used and reports whether it was new.
func (r *record) try(at time.Time) bool {
	key := at.UnixNano()
	if r.tried[key] {
		return false
	}
	r.tried[key] = true
	return true
}

// recoverable reports whether past validation may improve the record.
func (r *record) recoverable() bool {
	if r.resolved || r.cycle || r.tok.Type() != diagnostic.TypeCertificate {
		return false
	}
	c := r.current.Conclusion
	return c.IsIndeterminate() && c.SubIndication.POERecoverable()
}

func sameVerdict(a, b ades.Conclusion) bool {
	return a.Indication == b.Indication && a.SubIndication == b.SubIndication
}
