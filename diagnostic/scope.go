package diagnostic

import (
	"bytes"
	"fmt"
	"strings"
)

// Document is detached data supplied alongside an evidence record or a
// detached signature. Either Content or Digest is set.
type Document struct {
	Name    string
	Content []byte
	// DigestAlgorithm and Digest describe a digest document, i.e. a document
	// known only by its digest.
	DigestAlgorithm string
	Digest          []byte
}

// DigestProvider answers whether data matches a digest computed with the
// named algorithm.
type DigestProvider interface {
	Matches(algorithm string, data, digest []byte) (bool, error)
}

// ResolveDetachedContents matches digest matchers against the supplied
// detached documents. It returns updated copies of the matchers and one
// scope per matched document, in document order.
//
// A matcher is found and intact when any document matches its digest. When
// exactly one matcher and one document are given and they do not match, the
// matcher is reported found but not intact.
func ResolveDetachedContents(matchers []DigestMatcher, docs []Document, dp DigestProvider) ([]DigestMatcher, []Scope, error) {
	out := make([]DigestMatcher, len(matchers))
	copy(out, matchers)
	matched := make([]*DigestMatcher, len(docs))

	for i := range out {
		m := &out[i]
		if m.Type == MatcherOrphanReference {
			continue
		}
		for j, doc := range docs {
			ok, err := documentMatches(doc, m, dp)
			if err != nil {
				return nil, nil, fmt.Errorf("matching %q against %q: %w", m.Name, doc.Name, err)
			}
			if !ok {
				continue
			}
			m.DataFound, m.DataIntact = true, true
			if m.Name == "" {
				m.Name = doc.Name
			}
			if matched[j] == nil {
				matched[j] = m
			}
			break
		}
	}
	if len(out) == 1 && len(docs) == 1 && !out[0].DataFound {
		out[0].DataFound = true
		out[0].DataIntact = false
	}

	var scopes []Scope
	for j, doc := range docs {
		m := matched[j]
		if m == nil {
			continue
		}
		sc := Scope{
			Name:            doc.Name,
			Type:            ScopeFull,
			Description:     "Full document",
			DigestAlgorithm: m.DigestAlgorithm,
			DigestValue:     m.DigestValue,
		}
		if doc.Content == nil {
			sc.Type = ScopeDigest
			sc.Description = "Digest document"
		}
		scopes = append(scopes, sc)
	}
	return out, scopes, nil
}

func documentMatches(doc Document, m *DigestMatcher, dp DigestProvider) (bool, error) {
	if len(m.DigestValue) == 0 {
		return false, nil
	}
	if doc.Content != nil {
		if dp == nil {
			return false, fmt.Errorf("no digest provider")
		}
		return dp.Matches(m.DigestAlgorithm, doc.Content, m.DigestValue)
	}
	if !strings.EqualFold(doc.DigestAlgorithm, m.DigestAlgorithm) {
		return false, nil
	}
	return bytes.Equal(doc.Digest, m.DigestValue), nil
}

// WithDetachedContents returns a copy of e whose archive object matchers and
// scopes are resolved against docs.
func (e *EvidenceRecord) WithDetachedContents(docs []Document, dp DigestProvider) (*EvidenceRecord, error) {
	matchers, scopes, err := ResolveDetachedContents(e.Matchers, docs, dp)
	if err != nil {
		return nil, err
	}
	out := *e
	out.Matchers = matchers
	out.Scopes = scopes
	out.Timestamps = append([]string(nil), e.Timestamps...)
	return &out, nil
}
