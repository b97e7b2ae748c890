// Package report folds the per token conclusions of a validation run into
// a Simple Report, one verdict per signature, and a Detailed Report
// carrying every token's constraint trace.
package report

import (
	"encoding/xml"
	"time"

	"github.com/georgepadayatti/goades/ades"
	"github.com/georgepadayatti/goades/bbb"
	"github.com/georgepadayatti/goades/diagnostic"
	"github.com/georgepadayatti/goades/poe"
	"github.com/georgepadayatti/goades/policy"
)

// Reports is the output of one validation run.
type Reports struct {
	XMLName        xml.Name               `json:"-" xml:"ValidationReports"`
	RunID          string                 `json:"runId" xml:"RunId,attr"`
	ValidationTime time.Time              `json:"validationTime" xml:"ValidationTime"`
	Policy         string                 `json:"policy" xml:"Policy"`
	PolicyVersion  string                 `json:"policyVersion,omitempty" xml:"PolicyVersion,omitempty"`
	Level          policy.ValidationLevel `json:"level" xml:"Level"`
	Simple         *SimpleReport          `json:"simpleReport" xml:"SimpleReport"`
	Detailed       *DetailedReport        `json:"detailedReport" xml:"DetailedReport"`
}

// SimpleReport carries one verdict per signature and evidence record.
type SimpleReport struct {
	ValidationTime       time.Time             `json:"validationTime" xml:"ValidationTime"`
	Policy               string                `json:"policy" xml:"Policy"`
	SignaturesCount      int                   `json:"signaturesCount" xml:"SignaturesCount"`
	ValidSignaturesCount int                   `json:"validSignaturesCount" xml:"ValidSignaturesCount"`
	Signatures           []SignatureEntry      `json:"signatures,omitempty" xml:"Signature"`
	EvidenceRecords      []EvidenceRecordEntry `json:"evidenceRecords,omitempty" xml:"EvidenceRecord"`
}

// SignatureEntry is the verdict of one signature.
type SignatureEntry struct {
	ID                 string             `json:"id" xml:"Id,attr"`
	Format             string             `json:"format" xml:"Format"`
	SigningCertificate string             `json:"signingCertificate,omitempty" xml:"SigningCertificate,omitempty"`
	ParentID           string             `json:"parentId,omitempty" xml:"ParentId,attr,omitempty"`
	Indication         ades.Indication    `json:"indication" xml:"Indication"`
	SubIndication      ades.SubIndication `json:"subIndication,omitempty" xml:"SubIndication,omitempty"`
	// BestSignatureTime is the lowest proof of existence of the signature.
	BestSignatureTime  time.Time          `json:"bestSignatureTime" xml:"BestSignatureTime"`
	ClaimedSigningTime time.Time          `json:"claimedSigningTime,omitempty" xml:"ClaimedSigningTime,omitempty"`
	Errors             []ades.Message     `json:"errors,omitempty" xml:"Errors>Error,omitempty"`
	Warnings           []ades.Message     `json:"warnings,omitempty" xml:"Warnings>Warning,omitempty"`
	Infos              []ades.Message     `json:"infos,omitempty" xml:"Infos>Info,omitempty"`
	Scopes             []diagnostic.Scope `json:"scopes,omitempty" xml:"Scopes>Scope,omitempty"`
}

// EvidenceRecordEntry is the verdict of one evidence record.
type EvidenceRecordEntry struct {
	ID            string             `json:"id" xml:"Id,attr"`
	Type          string             `json:"type,omitempty" xml:"Type,omitempty"`
	Indication    ades.Indication    `json:"indication" xml:"Indication"`
	SubIndication ades.SubIndication `json:"subIndication,omitempty" xml:"SubIndication,omitempty"`
	// BestTime is the earliest time the record's content is proven.
	BestTime time.Time          `json:"bestTime" xml:"BestTime"`
	Errors   []ades.Message     `json:"errors,omitempty" xml:"Errors>Error,omitempty"`
	Warnings []ades.Message     `json:"warnings,omitempty" xml:"Warnings>Warning,omitempty"`
	Scopes   []diagnostic.Scope `json:"scopes,omitempty" xml:"Scopes>Scope,omitempty"`
}

// Signature returns the entry of signature id.
func (r *SimpleReport) Signature(id string) (SignatureEntry, bool) {
	for _, s := range r.Signatures {
		if s.ID == id {
			return s, true
		}
	}
	return SignatureEntry{}, false
}

// EvidenceRecord returns the entry of evidence record id.
func (r *SimpleReport) EvidenceRecord(id string) (EvidenceRecordEntry, bool) {
	for _, e := range r.EvidenceRecords {
		if e.ID == id {
			return e, true
		}
	}
	return EvidenceRecordEntry{}, false
}

// Indication returns the verdict of signature or evidence record id, or
// the empty indication when there is none.
func (r *SimpleReport) Indication(id string) ades.Indication {
	if s, ok := r.Signature(id); ok {
		return s.Indication
	}
	if e, ok := r.EvidenceRecord(id); ok {
		return e.Indication
	}
	return ""
}

// SubIndication returns the sub-indication of signature or evidence record
// id.
func (r *SimpleReport) SubIndication(id string) ades.SubIndication {
	if s, ok := r.Signature(id); ok {
		return s.SubIndication
	}
	if e, ok := r.EvidenceRecord(id); ok {
		return e.SubIndication
	}
	return ""
}

// FirstSignatureID returns the identifier of the first signature.
func (r *SimpleReport) FirstSignatureID() string {
	if len(r.Signatures) == 0 {
		return ""
	}
	return r.Signatures[0].ID
}

// SignatureIDs returns the signature identifiers in model order.
func (r *SimpleReport) SignatureIDs() []string {
	out := make([]string, 0, len(r.Signatures))
	for _, s := range r.Signatures {
		out = append(out, s.ID)
	}
	return out
}

// DetailedReport carries the full trace of a run.
type DetailedReport struct {
	Tokens          []TokenReport          `json:"tokens" xml:"Token"`
	Signatures      []SignatureDetail      `json:"signatures,omitempty" xml:"Signature"`
	EvidenceRecords []EvidenceRecordDetail `json:"evidenceRecords,omitempty" xml:"EvidenceRecord"`
}

// TokenReport is the trace of one token.
type TokenReport struct {
	ID    string               `json:"id" xml:"Id,attr"`
	Type  diagnostic.TokenType `json:"type" xml:"Type,attr"`
	State string               `json:"state" xml:"State,attr"`
	// Validation is the evaluation at the validation time.
	Validation bbb.Result `json:"validation" xml:"Validation"`
	// PastValidations holds the evaluations at earlier proofs of
	// existence, in the order they were attempted.
	PastValidations []bbb.Result    `json:"pastValidations,omitempty" xml:"PastValidation,omitempty"`
	Conclusion      ades.Conclusion `json:"conclusion" xml:"Conclusion"`
	LowestPOE       time.Time       `json:"lowestPoe" xml:"LowestPOE"`
	POE             []poe.Entry     `json:"poe,omitempty" xml:"POE,omitempty"`
}

// SignatureDetail records how a signature verdict was aggregated.
type SignatureDetail struct {
	ID  string          `json:"id" xml:"Id,attr"`
	Own ades.Conclusion `json:"own" xml:"Own"`
	// Chain is the final conclusion of the signing certificate.
	Chain *ades.Conclusion `json:"chain,omitempty" xml:"Chain,omitempty"`
	// Timestamp is the best final conclusion among the signature's
	// timestamps.
	Timestamp         *ades.Conclusion `json:"timestamp,omitempty" xml:"Timestamp,omitempty"`
	Final             ades.Conclusion  `json:"final" xml:"Final"`
	BestSignatureTime time.Time        `json:"bestSignatureTime" xml:"BestSignatureTime"`
}

// EvidenceRecordDetail records how an evidence record verdict was
// aggregated.
type EvidenceRecordDetail struct {
	ID        string           `json:"id" xml:"Id,attr"`
	Own       ades.Conclusion  `json:"own" xml:"Own"`
	Timestamp *ades.Conclusion `json:"timestamp,omitempty" xml:"Timestamp,omitempty"`
	Final     ades.Conclusion  `json:"final" xml:"Final"`
}

// Token returns the trace of token id.
func (r *DetailedReport) Token(id string) (TokenReport, bool) {
	for _, t := range r.Tokens {
		if t.ID == id {
			return t, true
		}
	}
	return TokenReport{}, false
}

// BasicBuildingBlockByID returns the evaluation that fixed the final
// conclusion of token id: the passing past validation when there is one,
// the validation at the validation time otherwise.
func (r *DetailedReport) BasicBuildingBlockByID(id string) (bbb.Result, bool) {
	t, ok := r.Token(id)
	if !ok {
		return bbb.Result{}, false
	}
	for _, p := range t.PastValidations {
		if p.Conclusion.IsPassed() {
			return p, true
		}
	}
	return t.Validation, true
}

// Signature returns the aggregation detail of signature id.
func (r *DetailedReport) Signature(id string) (SignatureDetail, bool) {
	for _, s := range r.Signatures {
		if s.ID == id {
			return s, true
		}
	}
	return SignatureDetail{}, false
}
