package diagnostic

import "time"

// Signature is an AdES signature found in the validated document.
type Signature struct {
	TokenID string `json:"id"`
	// Format is the detected signature format, e.g. "XAdES-BASELINE-LTA".
	Format string `json:"format"`
	// ContainerType is set when the signature lives inside an ASiC
	// container ("ASiC-S" or "ASiC-E").
	ContainerType      string    `json:"containerType,omitempty"`
	ClaimedSigningTime time.Time `json:"claimedSigningTime"`
	Signer
	// SigningCertificateReference reports whether a signing certificate
	// attribute was present in the signed attributes.
	SigningCertificateReference bool `json:"signingCertificateReference"`
	// SigningCertificateDigestMatch reports whether that attribute's digest
	// matches the identified signing certificate.
	SigningCertificateDigestMatch bool            `json:"signingCertificateDigestMatch"`
	Matchers                      []DigestMatcher `json:"digestMatchers,omitempty"`
	Timestamps                    []string        `json:"timestamps,omitempty"`
	// ParentID is the signature counter-signed by this one.
	ParentID   string  `json:"parent,omitempty"`
	PolicyID   string  `json:"policyId,omitempty"`
	Duplicated bool    `json:"duplicated,omitempty"`
	Scopes     []Scope `json:"scopes,omitempty"`
}

func (s *Signature) ID() string                      { return s.TokenID }
func (s *Signature) Type() TokenType                 { return TypeSignature }
func (s *Signature) DigestMatchers() []DigestMatcher { return s.Matchers }

// IsCounterSignature reports whether s counter-signs another signature.
func (s *Signature) IsCounterSignature() bool { return s.ParentID != "" }

// Dependencies returns the signature's timestamps followed by its
// certificate chain.
func (s *Signature) Dependencies() []string {
	seen := make(map[string]bool)
	deps := appendUnique(nil, seen, s.Timestamps...)
	deps = appendUnique(deps, seen, s.SigningCertificate)
	return appendUnique(deps, seen, s.Chain...)
}

func (s *Signature) Attributes() map[string]any {
	return map[string]any{
		"id":                   s.TokenID,
		"type":                 string(TypeSignature),
		"format":               s.Format,
		"container_type":       s.ContainerType,
		"claimed_signing_time": timeAttr(s.ClaimedSigningTime),
		"signing_certificate":  s.SigningCertificate,
		"chain":                stringsAttr(s.Chain),
		"signature_intact":     s.Intact,
		"algorithm":            algorithmAttributes(s.Algorithm),
		"digest_matchers":      matcherAttributes(s.Matchers),
		"timestamps":           stringsAttr(s.Timestamps),
		"counter_signature":    s.IsCounterSignature(),
		"policy_id":            s.PolicyID,
	}
}

// TimestampType identifies what a timestamp covers.
type TimestampType string

const (
	TimestampContent               TimestampType = "CONTENT_TIMESTAMP"
	TimestampAllDataObjects        TimestampType = "ALL_DATA_OBJECTS_TIMESTAMP"
	TimestampIndividualDataObjects TimestampType = "INDIVIDUAL_DATA_OBJECTS_TIMESTAMP"
	TimestampSignature             TimestampType = "SIGNATURE_TIMESTAMP"
	TimestampValidationData        TimestampType = "VALIDATION_DATA_TIMESTAMP"
	TimestampDocument              TimestampType = "DOCUMENT_TIMESTAMP"
	TimestampArchive               TimestampType = "ARCHIVE_TIMESTAMP"
	TimestampEvidenceRecord        TimestampType = "EVIDENCE_RECORD_TIMESTAMP"
)

// Timestamp is an RFC 3161 time-stamp token.
type Timestamp struct {
	TokenID        string        `json:"id"`
	Kind           TimestampType `json:"type"`
	ProductionTime time.Time     `json:"productionTime"`
	MessageImprint DigestMatcher `json:"messageImprint"`
	// Covered lists the tokens whose existence the timestamp attests.
	Covered []string `json:"covered,omitempty"`
	Signer
}

func (t *Timestamp) ID() string      { return t.TokenID }
func (t *Timestamp) Type() TokenType { return TypeTimestamp }

// DigestMatchers returns the message imprint.
func (t *Timestamp) DigestMatchers() []DigestMatcher {
	return []DigestMatcher{t.MessageImprint}
}

// IsArchive reports whether the timestamp is an archive timestamp.
func (t *Timestamp) IsArchive() bool { return t.Kind == TimestampArchive }

// Covers reports whether id is among the covered tokens.
func (t *Timestamp) Covers(id string) bool {
	for _, c := range t.Covered {
		if c == id {
			return true
		}
	}
	return false
}

// Dependencies returns the TSA certificate.
func (t *Timestamp) Dependencies() []string {
	return appendUnique(nil, make(map[string]bool), t.SigningCertificate)
}

func (t *Timestamp) Attributes() map[string]any {
	return map[string]any{
		"id":                  t.TokenID,
		"type":                string(TypeTimestamp),
		"kind":                string(t.Kind),
		"production_time":     timeAttr(t.ProductionTime),
		"covered":             stringsAttr(t.Covered),
		"signing_certificate": t.SigningCertificate,
		"signature_intact":    t.Intact,
		"algorithm":           algorithmAttributes(t.Algorithm),
		"imprint_found":       t.MessageImprint.DataFound,
		"imprint_intact":      t.MessageImprint.DataIntact,
	}
}

// Certificate is an X.509 certificate.
type Certificate struct {
	TokenID      string `json:"id"`
	Subject      string `json:"subject"`
	Issuer       string `json:"issuer"`
	SerialNumber string `json:"serialNumber"`
	// IssuerID is the identifier of the issuer certificate when it is
	// present in the model.
	IssuerID   string    `json:"issuerCertificate,omitempty"`
	SelfSigned bool      `json:"selfSigned,omitempty"`
	Trusted    bool      `json:"trusted,omitempty"`
	CA         bool      `json:"ca,omitempty"`
	NotBefore  time.Time `json:"notBefore"`
	NotAfter   time.Time `json:"notAfter"`
	KeyUsages  []string  `json:"keyUsages,omitempty"`
	// Intact reports whether the issuer's signature on the certificate
	// verified.
	Intact      bool          `json:"signatureIntact"`
	Algorithm   AlgorithmInfo `json:"algorithm"`
	Revocations []string      `json:"revocations,omitempty"`
	// RevocationCheckNotRequired is set for certificates carrying the
	// id-pkix-ocsp-nocheck extension.
	RevocationCheckNotRequired bool `json:"ocspNoCheck,omitempty"`
}

func (c *Certificate) ID() string                        { return c.TokenID }
func (c *Certificate) Type() TokenType                   { return TypeCertificate }
func (c *Certificate) SigningCertificateID() string      { return c.IssuerID }
func (c *Certificate) CertificateChainIDs() []string     { return nil }
func (c *Certificate) SignatureIntact() bool             { return c.Intact }
func (c *Certificate) SignatureAlgorithm() AlgorithmInfo { return c.Algorithm }

// ValidAt reports whether t lies within the certificate validity period.
func (c *Certificate) ValidAt(t time.Time) bool {
	return !t.Before(c.NotBefore) && !t.After(c.NotAfter)
}

// Dependencies returns the issuer certificate followed by the certificate's
// revocation data.
func (c *Certificate) Dependencies() []string {
	seen := map[string]bool{c.TokenID: true}
	deps := appendUnique(nil, seen, c.IssuerID)
	return appendUnique(deps, seen, c.Revocations...)
}

func (c *Certificate) Attributes() map[string]any {
	return map[string]any{
		"id":               c.TokenID,
		"type":             string(TypeCertificate),
		"subject":          c.Subject,
		"issuer":           c.Issuer,
		"serial_number":    c.SerialNumber,
		"self_signed":      c.SelfSigned,
		"trusted":          c.Trusted,
		"ca":               c.CA,
		"not_before":       timeAttr(c.NotBefore),
		"not_after":        timeAttr(c.NotAfter),
		"key_usages":       stringsAttr(c.KeyUsages),
		"signature_intact": c.Intact,
		"algorithm":        algorithmAttributes(c.Algorithm),
		"revocations":      stringsAttr(c.Revocations),
	}
}

// RevocationType is the kind of revocation data.
type RevocationType string

const (
	RevocationCRL  RevocationType = "CRL"
	RevocationOCSP RevocationType = "OCSP"
)

// CertificateStatus is the status a revocation token reports for one
// certificate.
type CertificateStatus string

const (
	StatusGood    CertificateStatus = "GOOD"
	StatusRevoked CertificateStatus = "REVOKED"
	StatusUnknown CertificateStatus = "UNKNOWN"
)

// RevocationEntry is the status of one certificate in a revocation token.
type RevocationEntry struct {
	CertificateID  string            `json:"certificate"`
	Status         CertificateStatus `json:"status"`
	RevocationTime time.Time         `json:"revocationTime,omitempty"`
	Reason         string            `json:"reason,omitempty"`
}

// Revocation is a CRL or OCSP response.
type Revocation struct {
	TokenID    string            `json:"id"`
	Kind       RevocationType    `json:"type"`
	ThisUpdate time.Time         `json:"thisUpdate"`
	NextUpdate time.Time         `json:"nextUpdate,omitempty"`
	ProducedAt time.Time         `json:"producedAt,omitempty"`
	Entries    []RevocationEntry `json:"entries,omitempty"`
	Signer
}

func (r *Revocation) ID() string      { return r.TokenID }
func (r *Revocation) Type() TokenType { return TypeRevocation }

// Entry returns the status reported for certID.
func (r *Revocation) Entry(certID string) (RevocationEntry, bool) {
	for _, e := range r.Entries {
		if e.CertificateID == certID {
			return e, true
		}
	}
	return RevocationEntry{}, false
}

// IssuedAt returns producedAt for OCSP responses and thisUpdate otherwise.
func (r *Revocation) IssuedAt() time.Time {
	if r.Kind == RevocationOCSP && !r.ProducedAt.IsZero() {
		return r.ProducedAt
	}
	return r.ThisUpdate
}

// Dependencies returns the certificate that signed the revocation data.
func (r *Revocation) Dependencies() []string {
	return appendUnique(nil, make(map[string]bool), r.SigningCertificate)
}

func (r *Revocation) Attributes() map[string]any {
	entries := make([]any, 0, len(r.Entries))
	for _, e := range r.Entries {
		entries = append(entries, map[string]any{
			"certificate":     e.CertificateID,
			"status":          string(e.Status),
			"revocation_time": timeAttr(e.RevocationTime),
			"reason":          e.Reason,
		})
	}
	return map[string]any{
		"id":                  r.TokenID,
		"type":                string(TypeRevocation),
		"kind":                string(r.Kind),
		"this_update":         timeAttr(r.ThisUpdate),
		"next_update":         timeAttr(r.NextUpdate),
		"produced_at":         timeAttr(r.ProducedAt),
		"entries":             entries,
		"signing_certificate": r.SigningCertificate,
		"signature_intact":    r.Intact,
		"algorithm":           algorithmAttributes(r.Algorithm),
	}
}

// EvidenceRecord is an RFC 4998 or RFC 6283 evidence record.
type EvidenceRecord struct {
	TokenID  string          `json:"id"`
	Kind     string          `json:"type"`
	Matchers []DigestMatcher `json:"digestMatchers,omitempty"`
	// Timestamps is the archive timestamp chain, oldest first.
	Timestamps []string `json:"timestamps,omitempty"`
	Scopes     []Scope  `json:"scopes,omitempty"`
}

func (e *EvidenceRecord) ID() string                      { return e.TokenID }
func (e *EvidenceRecord) Type() TokenType                 { return TypeEvidenceRecord }
func (e *EvidenceRecord) DigestMatchers() []DigestMatcher { return e.Matchers }

// Dependencies returns the archive timestamp chain.
func (e *EvidenceRecord) Dependencies() []string {
	return appendUnique(nil, make(map[string]bool), e.Timestamps...)
}

func (e *EvidenceRecord) Attributes() map[string]any {
	return map[string]any{
		"id":              e.TokenID,
		"type":            string(TypeEvidenceRecord),
		"kind":            e.Kind,
		"digest_matchers": matcherAttributes(e.Matchers),
		"timestamps":      stringsAttr(e.Timestamps),
	}
}
