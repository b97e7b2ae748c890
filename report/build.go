package report

import (
	"errors"
	"time"

	"github.com/georgepadayatti/goades/ades"
	"github.com/georgepadayatti/goades/diagnostic"
	"github.com/georgepadayatti/goades/poe"
	"github.com/georgepadayatti/goades/policy"
)

// Input is everything a run hands to Build.
type Input struct {
	RunID          string
	Model          *diagnostic.Model
	Policy         *policy.Policy
	Level          policy.ValidationLevel
	ValidationTime time.Time
	// Tokens holds one trace per token of Model, in model order.
	Tokens []TokenReport
	// POE, when set, fills the proof of existence fields of the traces.
	POE *poe.Tracker
}

// Build aggregates the traces of a finished run. Every signature and
// evidence record of the model gets a verdict, whatever its tokens
// concluded.
func Build(in Input) (*Reports, error) {
	if in.Model == nil {
		return nil, errors.New("report: no diagnostic model")
	}

	tokens := make([]TokenReport, len(in.Tokens))
	copy(tokens, in.Tokens)
	finals := make(map[string]ades.Conclusion, len(tokens))
	for i := range tokens {
		t := &tokens[i]
		if in.POE != nil {
			t.LowestPOE = in.POE.Lowest(t.ID)
			t.POE = in.POE.Entries(t.ID)
		}
		finals[t.ID] = t.Conclusion
	}

	a := aggregator{model: in.Model, finals: finals, poe: in.POE, now: in.ValidationTime}
	detailed := &DetailedReport{Tokens: tokens}
	simple := &SimpleReport{ValidationTime: in.ValidationTime}
	name, version := "", ""
	if in.Policy != nil {
		name, version = in.Policy.Name(), in.Policy.Version()
	}
	simple.Policy = name

	for _, s := range in.Model.Signatures {
		d := a.signature(s)
		detailed.Signatures = append(detailed.Signatures, d)
		simple.Signatures = append(simple.Signatures, SignatureEntry{
			ID:                 s.TokenID,
			Format:             s.Format,
			SigningCertificate: s.SigningCertificate,
			ParentID:           s.ParentID,
			Indication:         d.Final.Indication,
			SubIndication:      d.Final.SubIndication,
			BestSignatureTime:  d.BestSignatureTime,
			ClaimedSigningTime: s.ClaimedSigningTime,
			Errors:             d.Final.Errors,
			Warnings:           d.Final.Warnings,
			Infos:              d.Final.Infos,
			Scopes:             s.Scopes,
		})
		simple.SignaturesCount++
		if d.Final.Indication == ades.IndicationTotalPassed {
			simple.ValidSignaturesCount++
		}
	}

	for _, e := range in.Model.EvidenceRecords {
		d := a.evidenceRecord(e)
		detailed.EvidenceRecords = append(detailed.EvidenceRecords, d)
		simple.EvidenceRecords = append(simple.EvidenceRecords, EvidenceRecordEntry{
			ID:            e.TokenID,
			Type:          e.Kind,
			Indication:    d.Final.Indication,
			SubIndication: d.Final.SubIndication,
			BestTime:      a.lowest(e.TokenID),
			Errors:        d.Final.Errors,
			Warnings:      d.Final.Warnings,
			Scopes:        e.Scopes,
		})
	}

	return &Reports{
		RunID:          in.RunID,
		ValidationTime: in.ValidationTime,
		Policy:         name,
		PolicyVersion:  version,
		Level:          in.Level,
		Simple:         simple,
		Detailed:       detailed,
	}, nil
}

type aggregator struct {
	model  *diagnostic.Model
	finals map[string]ades.Conclusion
	poe    *poe.Tracker
	now    time.Time
}

// final returns the final conclusion of id. A token without a trace is
// reported INDETERMINATE: it was never evaluated.
func (a *aggregator) final(id string) ades.Conclusion {
	if c, ok := a.finals[id]; ok {
		return c
	}
	return ades.NewConclusion(ades.IndicationIndeterminate, ades.SubIndicationPolicyProcessingError,
		ades.Message{Key: "NOT_EVALUATED", Value: id})
}

func (a *aggregator) lowest(id string) time.Time {
	if a.poe == nil {
		return a.now
	}
	return a.poe.Lowest(id)
}

func (a *aggregator) best(ids []string) *ades.Conclusion {
	if len(ids) == 0 {
		return nil
	}
	cs := make([]ades.Conclusion, 0, len(ids))
	for _, id := range ids {
		cs = append(cs, a.final(id))
	}
	b := ades.Best(cs...)
	return &b
}

// signature folds the signature's own conclusion, its signing certificate
// and its best timestamp into the signature verdict.
func (a *aggregator) signature(s *diagnostic.Signature) SignatureDetail {
	d := SignatureDetail{
		ID:                s.TokenID,
		Own:               a.final(s.TokenID),
		BestSignatureTime: a.lowest(s.TokenID),
	}
	terms := []ades.Conclusion{d.Own}
	if s.SigningCertificate != "" {
		if _, ok := a.model.Token(s.SigningCertificate); ok {
			c := a.final(s.SigningCertificate)
			d.Chain = &c
			terms = append(terms, c)
		}
	}
	if ts := a.existing(s.Timestamps); len(ts) > 0 {
		d.Timestamp = a.best(ts)
		terms = append(terms, *d.Timestamp)
	}
	d.Final = fold(d.Own, terms)
	return d
}

func (a *aggregator) evidenceRecord(e *diagnostic.EvidenceRecord) EvidenceRecordDetail {
	d := EvidenceRecordDetail{ID: e.TokenID, Own: a.final(e.TokenID)}
	terms := []ades.Conclusion{d.Own}
	if ts := a.existing(e.Timestamps); len(ts) > 0 {
		d.Timestamp = a.best(ts)
		terms = append(terms, *d.Timestamp)
	}
	d.Final = fold(d.Own, terms)
	return d
}

func (a *aggregator) existing(ids []string) []string {
	var out []string
	for _, id := range ids {
		if _, ok := a.model.Token(id); ok {
			out = append(out, id)
		}
	}
	return out
}

// fold returns the worst of terms in its signature level form. The first
// term is the token's own conclusion: it wins ties and its warnings are
// kept whichever term is worst.
func fold(own ades.Conclusion, terms []ades.Conclusion) ades.Conclusion {
	worst := ades.Worst(terms...)
	if worst.Indication.Severity() == own.Indication.Severity() {
		return own.Total()
	}
	return worst.WithWarnings(own.Warnings...).Total()
}
