// Package diagnostic is the format independent, read-only view of every
// token extracted from a signed document: signatures, timestamps,
// certificates, revocation data and evidence records.
//
// Format specific readers (CMS, XML, PDF, ASiC, evidence records) produce a
// Model; the validation engine only ever reads it.
package diagnostic

import "time"

// TokenType identifies the variant of a Token.
type TokenType string

const (
	TypeSignature      TokenType = "SIGNATURE"
	TypeTimestamp      TokenType = "TIMESTAMP"
	TypeCertificate    TokenType = "CERTIFICATE"
	TypeRevocation     TokenType = "REVOCATION"
	TypeEvidenceRecord TokenType = "EVIDENCE_RECORD"
)

// Token is implemented by every diagnostic token variant.
type Token interface {
	// ID returns the stable identifier of the token within its model.
	ID() string
	Type() TokenType
	// Dependencies lists the identifiers of the tokens whose conclusions
	// this token's validation consumes.
	Dependencies() []string
	// Attributes returns a flat view of the token used by custom
	// constraint expressions.
	Attributes() map[string]any
}

// DigestMatched is implemented by tokens that reference signed data through
// digests.
type DigestMatched interface {
	Token
	DigestMatchers() []DigestMatcher
}

// Signed is implemented by tokens carrying a cryptographic signature.
type Signed interface {
	Token
	SigningCertificateID() string
	CertificateChainIDs() []string
	SignatureIntact() bool
	SignatureAlgorithm() AlgorithmInfo
}

// AlgorithmInfo describes the algorithms used to produce a signature.
type AlgorithmInfo struct {
	Digest     string `json:"digest,omitempty"`
	Encryption string `json:"encryption,omitempty"`
	KeySize    int    `json:"keySize,omitempty"`
}

// Signer is the signature value part shared by signed tokens.
type Signer struct {
	SigningCertificate string        `json:"signingCertificate,omitempty"`
	Chain              []string      `json:"certificateChain,omitempty"`
	Intact             bool          `json:"signatureIntact"`
	Algorithm          AlgorithmInfo `json:"algorithm"`
}

// SigningCertificateID returns the identifier of the signing certificate,
// or "" when it could not be identified.
func (s Signer) SigningCertificateID() string { return s.SigningCertificate }

// CertificateChainIDs returns the certificate chain, signing certificate first.
func (s Signer) CertificateChainIDs() []string { return s.Chain }

// SignatureIntact reports whether the signature value verified.
func (s Signer) SignatureIntact() bool { return s.Intact }

// SignatureAlgorithm returns the algorithms used by the signature.
func (s Signer) SignatureAlgorithm() AlgorithmInfo { return s.Algorithm }

// DigestMatcherType identifies what a digest matcher points at.
type DigestMatcherType string

const (
	MatcherMessageDigest               DigestMatcherType = "MESSAGE_DIGEST"
	MatcherSignedProperties            DigestMatcherType = "SIGNED_PROPERTIES"
	MatcherReference                   DigestMatcherType = "REFERENCE"
	MatcherObject                      DigestMatcherType = "OBJECT"
	MatcherManifest                    DigestMatcherType = "MANIFEST"
	MatcherManifestEntry               DigestMatcherType = "MANIFEST_ENTRY"
	MatcherContainerEntry              DigestMatcherType = "CONTAINER_ENTRY"
	MatcherMessageImprint              DigestMatcherType = "MESSAGE_IMPRINT"
	MatcherCounterSignedSignatureValue DigestMatcherType = "COUNTER_SIGNED_SIGNATURE_VALUE"
	MatcherArchiveObject               DigestMatcherType = "EVIDENCE_RECORD_ARCHIVE_OBJECT"
	MatcherOrphanReference             DigestMatcherType = "EVIDENCE_RECORD_ORPHAN_REFERENCE"
)

// DigestMatcher records whether the data referenced by a digest was found
// and whether its digest matched.
type DigestMatcher struct {
	Type            DigestMatcherType `json:"type"`
	Name            string            `json:"name,omitempty"`
	DigestAlgorithm string            `json:"digestAlgorithm,omitempty"`
	DigestValue     []byte            `json:"digestValue,omitempty"`
	DataFound       bool              `json:"dataFound"`
	DataIntact      bool              `json:"dataIntact"`
}

// ScopeType qualifies how much of a document a token covers.
type ScopeType string

const (
	ScopeFull     ScopeType = "FULL"
	ScopePartial  ScopeType = "PARTIAL"
	ScopeDigest   ScopeType = "DIGEST"
	ScopeArchived ScopeType = "ARCHIVED"
)

// Scope is a piece of data covered by a signature or evidence record.
type Scope struct {
	Name            string    `json:"name"`
	Type            ScopeType `json:"type"`
	Description     string    `json:"description,omitempty"`
	DigestAlgorithm string    `json:"digestAlgorithm,omitempty"`
	DigestValue     []byte    `json:"digestValue,omitempty"`
}

func appendUnique(deps []string, seen map[string]bool, ids ...string) []string {
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		deps = append(deps, id)
	}
	return deps
}

func matcherAttributes(ms []DigestMatcher) []any {
	out := make([]any, 0, len(ms))
	for _, m := range ms {
		out = append(out, map[string]any{
			"type":   string(m.Type),
			"name":   m.Name,
			"found":  m.DataFound,
			"intact": m.DataIntact,
		})
	}
	return out
}

func algorithmAttributes(a AlgorithmInfo) map[string]any {
	return map[string]any{
		"digest":     a.Digest,
		"encryption": a.Encryption,
		"key_size":   int64(a.KeySize),
	}
}

func stringsAttr(ss []string) []any {
	out := make([]any, 0, len(ss))
	for _, s := range ss {
		out = append(out, s)
	}
	return out
}

func timeAttr(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
