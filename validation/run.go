package validation

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/georgepadayatti/goades/ades"
	"github.com/georgepadayatti/goades/bbb"
	"github.com/georgepadayatti/goades/diagnostic"
	"github.com/georgepadayatti/goades/metrics"
	"github.com/georgepadayatti/goades/poe"
	"github.com/georgepadayatti/goades/policy"
	"github.com/georgepadayatti/goades/report"
	"github.com/georgepadayatti/goades/revinfo"
	"github.com/georgepadayatti/goades/trust"
)

// run is the state of one validation. Records are only written by the
// goroutine that owns their component; mu orders those writes with the
// conclusion reads made by the checks.
type run struct {
	v      *Validator
	env    *bbb.Env
	now    time.Time
	graph  *graph
	logger zerolog.Logger

	mu      sync.RWMutex
	records []*record
	byID    map[string]*record
	cycles  map[int][]string
}

func newRun(v *Validator, m *diagnostic.Model, p *policy.Policy, now time.Time, logger zerolog.Logger) *run {
	g := newGraph(m)
	r := &run{
		v:      v,
		now:    now,
		graph:  g,
		logger: logger,
		byID:   make(map[string]*record, len(g.tokens)),
	}
	for _, tok := range g.tokens {
		rec := newRecord(tok)
		r.records = append(r.records, rec)
		r.byID[tok.ID()] = rec
	}

	var ts trust.Source = trust.NewModelSource(m)
	if v.trust != nil {
		ts = trust.Multi{ts, v.trust}
	}
	r.env = &bbb.Env{
		Model:                  m,
		Policy:                 p,
		CounterSignaturePolicy: v.counterPolicy,
		Level:                  v.level,
		CurrentTime:            now,
		POE:                    poe.NewTracker(now),
		Revocation:             revinfo.NewModelSource(m, r.revocationAccepted),
		Trust:                  ts,
		Conclusions:            r,
	}

	r.cycles = g.cycles()
	for i, members := range r.cycles {
		rec := r.records[i]
		rec.cycle = true
		rec.current = bbb.Cycle(rec.tok, now, members)
		rec.final = rec.current.Conclusion
		rec.state = StateTerminal
		logger.Debug().Str("token", rec.tok.ID()).Strs("cycle", members).Msg("dependency cycle")
	}
	return r
}

// Conclusion returns the final conclusion of a token once its evaluation
// has started.
func (r *run) Conclusion(id string) (ades.Conclusion, bool) {
	rec, ok := r.byID[id]
	if !ok {
		return ades.Conclusion{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rec.state == StateNotStarted {
		return ades.Conclusion{}, false
	}
	return rec.final, true
}

// revocationAccepted restricts revocation lookups to revocation data that
// validated.
func (r *run) revocationAccepted(id string) bool {
	c, ok := r.Conclusion(id)
	return ok && c.IsPassed()
}

func (r *run) setState(rec *record, s State) {
	r.mu.Lock()
	rec.state = s
	r.mu.Unlock()
}

// component validates one group of connected tokens.
func (r *run) component(nodes []int) {
	order := r.graph.order(nodes, r.cycles)

	// Evaluation at the validation time, dependencies first.
	for _, i := range order {
		rec := r.records[i]
		r.evaluate(rec)
		r.attest(rec, false)
	}

	// Retroactive passes until nothing changes.
	for pass := 0; pass < r.v.maxPasses; pass++ {
		if !r.retro(order) {
			break
		}
	}

	// Archive timestamps, innermost first, one retroactive pass each.
	for _, rec := range r.archives(order) {
		r.evaluate(rec)
		if r.attest(rec, true) {
			r.retro(order)
		}
	}

	r.mu.Lock()
	for _, i := range nodes {
		r.records[i].state = StateTerminal
	}
	r.mu.Unlock()
}

// evaluate runs the pipeline of rec at the validation time. The final
// conclusion follows the result unless a past validation resolved the
// token.
func (r *run) evaluate(rec *record) {
	if rec.state == StateNotStarted {
		r.setState(rec, StateInProgress)
	}
	res := r.v.engine.Evaluate(r.env, rec.tok, r.now)

	r.mu.Lock()
	rec.current = res
	if !rec.resolved {
		rec.final = res.Conclusion
	}
	rec.state = StatePassComplete
	r.mu.Unlock()

	r.v.metrics.Evaluation(string(rec.tok.Type()), string(res.Conclusion.Indication))
	r.logger.Debug().
		Str("token", rec.tok.ID()).
		Str("type", string(rec.tok.Type())).
		Str("indication", string(res.Conclusion.Indication)).
		Str("sub_indication", string(res.Conclusion.SubIndication)).
		Int("constraints", len(res.Constraints)).
		Msg("token evaluated")
}

// attest records the proofs of existence given by a valid timestamp: its
// production time for every token it covers and for itself. Archive
// timestamps only attest when archive is set. It reports whether the
// timestamp attested.
func (r *run) attest(rec *record, archive bool) bool {
	ts, ok := rec.tok.(*diagnostic.Timestamp)
	if !ok || ts.IsArchive() != archive || !rec.final.IsPassed() {
		return false
	}
	kind := poe.KindTimestamp
	switch {
	case ts.IsArchive():
		kind = poe.KindArchiveTimestamp
	case ts.Kind == diagnostic.TimestampEvidenceRecord:
		kind = poe.KindEvidenceRecord
	}
	at := ts.ProductionTime
	for _, id := range ts.Covered {
		r.env.POE.Record(id, at, ts.TokenID, kind)
	}
	r.env.POE.Record(ts.TokenID, at, ts.TokenID, kind)
	r.logger.Debug().
		Str("token", ts.TokenID).
		Time("at", at).
		Strs("covered", ts.Covered).
		Stringer("kind", kind).
		Msg("proof of existence recorded")
	return true
}

// retro walks order once. Tokens downstream of a change are re-evaluated
// at the validation time, then recoverable certificates are validated
// again at their earlier proofs of existence. It reports whether any final
// conclusion changed.
func (r *run) retro(order []int) bool {
	changed := make(map[int]bool)
	for _, i := range order {
		rec := r.records[i]
		if r.dependsOn(i, changed) {
			before := rec.final
			r.evaluate(rec)
			if !sameVerdict(before, rec.final) {
				changed[i] = true
				r.attest(rec, false)
			}
		}
		if rec.recoverable() {
			before := rec.final
			r.pastValidate(rec)
			if !sameVerdict(before, rec.final) {
				changed[i] = true
			}
		}
	}
	return len(changed) > 0
}

func (r *run) dependsOn(i int, changed map[int]bool) bool {
	for _, j := range r.graph.deps[i] {
		if changed[j] {
			return true
		}
	}
	return false
}

// pastValidate evaluates rec at each untried proof of existence earlier
// than the validation time, earliest first, and stops at the first that
// passes. A certificate that never had such a proof ends with NO_POE; one
// whose attempts all failed keeps its conclusion at the validation time.
func (r *run) pastValidate(rec *record) {
	id := rec.tok.ID()
	for _, at := range r.env.POE.Candidates(id, r.now) {
		if !rec.try(at) {
			continue
		}
		r.setState(rec, StatePastValidation)
		res := r.v.engine.Evaluate(r.env, rec.tok, at)
		passed := res.Conclusion.IsPassed()

		r.mu.Lock()
		rec.past = append(rec.past, res)
		if passed {
			rec.final = res.Conclusion
			rec.resolved = true
		}
		rec.state = StatePassComplete
		r.mu.Unlock()

		r.logger.Debug().
			Str("token", id).
			Time("at", at).
			Str("indication", string(res.Conclusion.Indication)).
			Str("sub_indication", string(res.Conclusion.SubIndication)).
			Msg("past validation")
		if passed {
			r.v.metrics.PastValidation(metrics.OutcomePassed)
			return
		}
		r.v.metrics.PastValidation(metrics.OutcomeFailed)
	}

	// Earlier proofs existed but none helped: the failure at the
	// validation time is more telling than NO_POE, which is kept for
	// certificates that never had a candidate.
	if len(rec.tried) > 0 {
		r.mu.Lock()
		rec.final = rec.current.Conclusion
		r.mu.Unlock()
		return
	}
	res := bbb.NoPOE(rec.tok, r.now)
	r.mu.Lock()
	if !rec.noPOE {
		rec.noPOE = true
		rec.past = append(rec.past, res)
		r.v.metrics.PastValidation(metrics.OutcomeNoPOE)
	}
	rec.final = res.Conclusion
	r.mu.Unlock()
}

// archives returns the archive timestamps of order by ascending production
// time.
func (r *run) archives(order []int) []*record {
	var out []*record
	for _, i := range order {
		if ts, ok := r.records[i].tok.(*diagnostic.Timestamp); ok && ts.IsArchive() {
			out = append(out, r.records[i])
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].tok.(*diagnostic.Timestamp).ProductionTime.Before(out[b].tok.(*diagnostic.Timestamp).ProductionTime)
	})
	return out
}

// traces returns the token traces in model order.
func (r *run) traces() []report.TokenReport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]report.TokenReport, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, report.TokenReport{
			ID:              rec.tok.ID(),
			Type:            rec.tok.Type(),
			State:           string(rec.state),
			Validation:      rec.current,
			PastValidations: rec.past,
			Conclusion:      rec.final,
		})
	}
	return out
}
