package diagnostic

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrDuplicateToken is returned when two tokens share an identifier.
	ErrDuplicateToken = errors.New("duplicate token identifier")
	// ErrMissingTokenID is returned for a token without identifier.
	ErrMissingTokenID = errors.New("token without identifier")
)

// Model is the read-only set of tokens of one validation run.
//
// A Model must not be modified once Index has been called.
type Model struct {
	// ValidationTime is the reference time recorded by the extractor. It is
	// used when the caller does not provide one.
	ValidationTime  time.Time         `json:"validationTime,omitempty"`
	Signatures      []*Signature      `json:"signatures,omitempty"`
	Timestamps      []*Timestamp      `json:"timestamps,omitempty"`
	Certificates    []*Certificate    `json:"certificates,omitempty"`
	Revocations     []*Revocation     `json:"revocations,omitempty"`
	EvidenceRecords []*EvidenceRecord `json:"evidenceRecords,omitempty"`

	once  sync.Once
	index map[string]Token
	err   error
}

// Index builds the identifier lookup. It is safe to call repeatedly and from
// several goroutines; the first result is kept.
func (m *Model) Index() error {
	m.once.Do(func() {
		idx := make(map[string]Token)
		for _, t := range m.all() {
			id := t.ID()
			if id == "" {
				m.err = fmt.Errorf("%w: %s", ErrMissingTokenID, t.Type())
				return
			}
			if _, dup := idx[id]; dup {
				m.err = fmt.Errorf("%w: %s", ErrDuplicateToken, id)
				return
			}
			idx[id] = t
		}
		m.index = idx
	})
	return m.err
}

func (m *Model) all() []Token {
	out := make([]Token, 0, len(m.Signatures)+len(m.Timestamps)+len(m.Certificates)+
		len(m.Revocations)+len(m.EvidenceRecords))
	for _, s := range m.Signatures {
		out = append(out, s)
	}
	for _, t := range m.Timestamps {
		out = append(out, t)
	}
	for _, c := range m.Certificates {
		out = append(out, c)
	}
	for _, r := range m.Revocations {
		out = append(out, r)
	}
	for _, e := range m.EvidenceRecords {
		out = append(out, e)
	}
	return out
}

// Tokens returns every token in model order: signatures, timestamps,
// certificates, revocation data, evidence records.
func (m *Model) Tokens() []Token {
	return m.all()
}

// Token returns the token with the given identifier.
func (m *Model) Token(id string) (Token, bool) {
	if err := m.Index(); err != nil {
		return nil, false
	}
	t, ok := m.index[id]
	return t, ok
}

// Has reports whether the model holds a token of type typ.
func (m *Model) Has(typ TokenType) bool {
	switch typ {
	case TypeSignature:
		return len(m.Signatures) > 0
	case TypeTimestamp:
		return len(m.Timestamps) > 0
	case TypeCertificate:
		return len(m.Certificates) > 0
	case TypeRevocation:
		return len(m.Revocations) > 0
	case TypeEvidenceRecord:
		return len(m.EvidenceRecords) > 0
	}
	return false
}

// Certificate returns the certificate with the given identifier.
func (m *Model) Certificate(id string) (*Certificate, bool) {
	t, ok := m.Token(id)
	if !ok {
		return nil, false
	}
	c, ok := t.(*Certificate)
	return c, ok
}

// Timestamp returns the timestamp with the given identifier.
func (m *Model) Timestamp(id string) (*Timestamp, bool) {
	t, ok := m.Token(id)
	if !ok {
		return nil, false
	}
	ts, ok := t.(*Timestamp)
	return ts, ok
}

// Revocation returns the revocation data with the given identifier.
func (m *Model) Revocation(id string) (*Revocation, bool) {
	t, ok := m.Token(id)
	if !ok {
		return nil, false
	}
	r, ok := t.(*Revocation)
	return r, ok
}

// Signature returns the signature with the given identifier.
func (m *Model) Signature(id string) (*Signature, bool) {
	t, ok := m.Token(id)
	if !ok {
		return nil, false
	}
	s, ok := t.(*Signature)
	return s, ok
}

// ChainOf walks issuer references from certID upwards. The result starts
// with the certificate itself and stops at a self-signed certificate, a
// missing issuer or a loop.
func (m *Model) ChainOf(certID string) []*Certificate {
	var chain []*Certificate
	seen := make(map[string]bool)
	for id := certID; id != "" && !seen[id]; {
		c, ok := m.Certificate(id)
		if !ok {
			break
		}
		seen[id] = true
		chain = append(chain, c)
		if c.SelfSigned {
			break
		}
		id = c.IssuerID
	}
	return chain
}

// TimestampsOf returns the timestamps attached to a signature, ordered by
// production time.
func (m *Model) TimestampsOf(s *Signature) []*Timestamp {
	var out []*Timestamp
	for _, id := range s.Timestamps {
		if ts, ok := m.Timestamp(id); ok {
			out = append(out, ts)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ProductionTime.Before(out[j].ProductionTime)
	})
	return out
}

// CounterSignaturesOf returns the signatures counter-signing id.
func (m *Model) CounterSignaturesOf(id string) []*Signature {
	var out []*Signature
	for _, s := range m.Signatures {
		if s.ParentID == id {
			out = append(out, s)
		}
	}
	return out
}

// RevocationsFor returns the revocation tokens reporting on certID.
func (m *Model) RevocationsFor(certID string) []*Revocation {
	var out []*Revocation
	c, ok := m.Certificate(certID)
	if !ok {
		return nil
	}
	for _, id := range c.Revocations {
		if r, ok := m.Revocation(id); ok {
			if _, has := r.Entry(certID); has {
				out = append(out, r)
			}
		}
	}
	return out
}
