// Package revinfo answers revocation questions for the validation engine
// and converts raw CRLs and OCSP responses into diagnostic revocation
// tokens.
package revinfo

import (
	"fmt"
	"time"

	"github.com/georgepadayatti/goades/diagnostic"
)

// RevocationReason represents the reason for certificate revocation.
type RevocationReason int

const (
	ReasonUnspecified          RevocationReason = 0
	ReasonKeyCompromise        RevocationReason = 1
	ReasonCACompromise         RevocationReason = 2
	ReasonAffiliationChanged   RevocationReason = 3
	ReasonSuperseded           RevocationReason = 4
	ReasonCessationOfOperation RevocationReason = 5
	ReasonCertificateHold      RevocationReason = 6
	ReasonRemoveFromCRL        RevocationReason = 8
	ReasonPrivilegeWithdrawn   RevocationReason = 9
	ReasonAACompromise         RevocationReason = 10
)

// String returns the string representation of a revocation reason.
func (r RevocationReason) String() string {
	switch r {
	case ReasonUnspecified:
		return "unspecified"
	case ReasonKeyCompromise:
		return "keyCompromise"
	case ReasonCACompromise:
		return "cACompromise"
	case ReasonAffiliationChanged:
		return "affiliationChanged"
	case ReasonSuperseded:
		return "superseded"
	case ReasonCessationOfOperation:
		return "cessationOfOperation"
	case ReasonCertificateHold:
		return "certificateHold"
	case ReasonRemoveFromCRL:
		return "removeFromCRL"
	case ReasonPrivilegeWithdrawn:
		return "privilegeWithdrawn"
	case ReasonAACompromise:
		return "aACompromise"
	default:
		return fmt.Sprintf("unknown(%d)", r)
	}
}

// Answer is the outcome of a revocation lookup.
type Answer struct {
	// Known is false when no usable revocation data reports on the
	// certificate.
	Known bool
	// Revoked is true when the certificate was revoked at or before the
	// instant asked about.
	Revoked        bool
	RevocationTime time.Time
	Reason         string
	// RevocationID identifies the revocation token the answer comes from.
	RevocationID string
	IssuedAt     time.Time
	NextUpdate   time.Time
}

// Source answers whether a certificate is revoked as of an instant. It
// never performs I/O; all material is already resident.
type Source interface {
	Lookup(certID string, at time.Time) Answer
}

// ModelSource answers from the revocation tokens of a diagnostic model.
type ModelSource struct {
	model  *diagnostic.Model
	accept func(revocationID string) bool
}

// NewModelSource returns a source over m. Only revocation tokens for which
// accept returns true are consulted; a nil accept consults all of them.
func NewModelSource(m *diagnostic.Model, accept func(revocationID string) bool) *ModelSource {
	return &ModelSource{model: m, accept: accept}
}

// Lookup uses the most recently issued acceptable revocation token that
// reports on certID.
func (s *ModelSource) Lookup(certID string, at time.Time) Answer {
	var best *diagnostic.Revocation
	for _, r := range s.model.RevocationsFor(certID) {
		if s.accept != nil && !s.accept(r.ID()) {
			continue
		}
		if best == nil || r.IssuedAt().After(best.IssuedAt()) {
			best = r
		}
	}
	if best == nil {
		return Answer{}
	}

	entry, _ := best.Entry(certID)
	ans := Answer{
		Known:        entry.Status != diagnostic.StatusUnknown,
		RevocationID: best.ID(),
		IssuedAt:     best.IssuedAt(),
		NextUpdate:   best.NextUpdate,
	}
	if entry.Status == diagnostic.StatusRevoked {
		ans.RevocationTime = entry.RevocationTime
		ans.Reason = entry.Reason
		ans.Revoked = !entry.RevocationTime.After(at)
	}
	return ans
}
