package diagnostic

import (
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// LoadXML reads the DiagnosticData XML subset produced by the format
// readers and indexes the resulting model.
func LoadXML(r io.Reader) (*Model, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	root := doc.SelectElement("DiagnosticData")
	if root == nil {
		return nil, fmt.Errorf("%w: missing DiagnosticData element", ErrInvalidModel)
	}

	x := &xmlReader{}
	m := &Model{ValidationTime: x.time(root.SelectElement("ValidationDate"))}
	for _, el := range children(root, "Signatures", "Signature") {
		m.Signatures = append(m.Signatures, x.signature(el))
	}
	for _, el := range children(root, "UsedTimestamps", "Timestamp") {
		m.Timestamps = append(m.Timestamps, x.timestamp(el))
	}
	for _, el := range children(root, "UsedCertificates", "Certificate") {
		m.Certificates = append(m.Certificates, x.certificate(el))
	}
	for _, el := range children(root, "UsedRevocations", "Revocation") {
		m.Revocations = append(m.Revocations, x.revocation(el))
	}
	for _, el := range children(root, "EvidenceRecords", "EvidenceRecord") {
		m.EvidenceRecords = append(m.EvidenceRecords, x.evidenceRecord(el))
	}
	if x.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, x.err)
	}
	if err := m.Index(); err != nil {
		return nil, err
	}
	return m, nil
}

func children(el *etree.Element, list, item string) []*etree.Element {
	if el == nil {
		return nil
	}
	l := el.SelectElement(list)
	if l == nil {
		return nil
	}
	return l.SelectElements(item)
}

// refs collects the attr values of list/item children.
func refs(el *etree.Element, list, item, attr string) []string {
	var out []string
	for _, c := range children(el, list, item) {
		if v := c.SelectAttrValue(attr, ""); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// xmlReader keeps the first conversion error so that element readers can
// stay linear.
type xmlReader struct {
	err error
}

func (x *xmlReader) fail(el *etree.Element, format string, args ...any) {
	if x.err == nil {
		x.err = fmt.Errorf("%s: %s", el.GetPath(), fmt.Sprintf(format, args...))
	}
}

func text(el *etree.Element) string {
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

func (x *xmlReader) time(el *etree.Element) time.Time {
	s := text(el)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		x.fail(el, "invalid time %q", s)
	}
	return t
}

func (x *xmlReader) bool(el *etree.Element) bool {
	return x.parseBool(el, text(el))
}

func (x *xmlReader) boolAttr(el *etree.Element, name string) bool {
	return x.parseBool(el, el.SelectAttrValue(name, ""))
}

func (x *xmlReader) parseBool(el *etree.Element, s string) bool {
	if s == "" {
		return false
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		x.fail(el, "invalid boolean %q", s)
	}
	return b
}

func (x *xmlReader) int(el *etree.Element) int {
	s := text(el)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		x.fail(el, "invalid integer %q", s)
	}
	return n
}

func (x *xmlReader) bytes(el *etree.Element) []byte {
	s := text(el)
	if s == "" {
		return nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		x.fail(el, "invalid base64 value")
	}
	return b
}

func (x *xmlReader) signer(el *etree.Element) Signer {
	s := Signer{Chain: refs(el, "CertificateChain", "ChainItem", "Certificate")}
	if sc := el.SelectElement("SigningCertificate"); sc != nil {
		s.SigningCertificate = sc.SelectAttrValue("Certificate", "")
	}
	if bs := el.SelectElement("BasicSignature"); bs != nil {
		s.Intact = x.bool(bs.SelectElement("SignatureIntact"))
		s.Algorithm = AlgorithmInfo{
			Digest:     text(bs.SelectElement("DigestAlgoUsedToSignThisToken")),
			Encryption: text(bs.SelectElement("EncryptionAlgoUsedToSignThisToken")),
			KeySize:    x.int(bs.SelectElement("KeyLengthUsedToSignThisToken")),
		}
	}
	return s
}

func (x *xmlReader) digestMatcher(el *etree.Element) DigestMatcher {
	return DigestMatcher{
		Type:            DigestMatcherType(el.SelectAttrValue("type", "")),
		Name:            el.SelectAttrValue("name", ""),
		DigestAlgorithm: text(el.SelectElement("DigestMethod")),
		DigestValue:     x.bytes(el.SelectElement("DigestValue")),
		DataFound:       x.bool(el.SelectElement("DataFound")),
		DataIntact:      x.bool(el.SelectElement("DataIntact")),
	}
}

func (x *xmlReader) digestMatchers(el *etree.Element) []DigestMatcher {
	var out []DigestMatcher
	for _, dm := range children(el, "DigestMatchers", "DigestMatcher") {
		out = append(out, x.digestMatcher(dm))
	}
	return out
}

func (x *xmlReader) scopes(el *etree.Element, list, item string) []Scope {
	var out []Scope
	for _, sc := range children(el, list, item) {
		out = append(out, Scope{
			Name:            text(sc.SelectElement("Name")),
			Type:            ScopeType(sc.SelectAttrValue("SignatureScopeType", sc.SelectAttrValue("Type", ""))),
			Description:     text(sc.SelectElement("Description")),
			DigestAlgorithm: text(sc.SelectElement("DigestMethod")),
			DigestValue:     x.bytes(sc.SelectElement("DigestValue")),
		})
	}
	return out
}

func (x *xmlReader) signature(el *etree.Element) *Signature {
	s := &Signature{
		TokenID:            el.SelectAttrValue("Id", ""),
		ParentID:           el.SelectAttrValue("Parent", ""),
		Duplicated:         x.boolAttr(el, "Duplicated"),
		Format:             text(el.SelectElement("SignatureFormat")),
		ContainerType:      text(el.SelectElement("ContainerType")),
		ClaimedSigningTime: x.time(el.SelectElement("ClaimedSigningTime")),
		PolicyID:           text(el.SelectElement("PolicyId")),
		Signer:             x.signer(el),
		Matchers:           x.digestMatchers(el),
		Timestamps:         refs(el, "FoundTimestamps", "FoundTimestamp", "Timestamp"),
		Scopes:             x.scopes(el, "SignatureScopes", "SignatureScope"),
	}
	if sc := el.SelectElement("SigningCertificate"); sc != nil {
		s.SigningCertificateReference = x.boolAttr(sc, "AttributePresent")
		s.SigningCertificateDigestMatch = x.boolAttr(sc, "DigestValueMatch")
	}
	return s
}

func (x *xmlReader) timestamp(el *etree.Element) *Timestamp {
	t := &Timestamp{
		TokenID:        el.SelectAttrValue("Id", ""),
		Kind:           TimestampType(el.SelectAttrValue("Type", "")),
		ProductionTime: x.time(el.SelectElement("ProductionTime")),
		Covered:        refs(el, "TimestampedObjects", "TimestampedObject", "Token"),
		Signer:         x.signer(el),
	}
	if dm := el.SelectElement("DigestMatcher"); dm != nil {
		t.MessageImprint = x.digestMatcher(dm)
	}
	if t.MessageImprint.Type == "" {
		t.MessageImprint.Type = MatcherMessageImprint
	}
	return t
}

func (x *xmlReader) certificate(el *etree.Element) *Certificate {
	c := &Certificate{
		TokenID:                    el.SelectAttrValue("Id", ""),
		SelfSigned:                 x.boolAttr(el, "SelfSigned"),
		Trusted:                    x.boolAttr(el, "Trusted"),
		CA:                         x.boolAttr(el, "CA"),
		RevocationCheckNotRequired: x.boolAttr(el, "OcspNoCheck"),
		Subject:                    text(el.SelectElement("SubjectDistinguishedName")),
		Issuer:                     text(el.SelectElement("IssuerDistinguishedName")),
		SerialNumber:               text(el.SelectElement("SerialNumber")),
		NotBefore:                  x.time(el.SelectElement("NotBefore")),
		NotAfter:                   x.time(el.SelectElement("NotAfter")),
		Revocations:                refs(el, "Revocations", "CertificateRevocation", "Revocation"),
	}
	if sc := el.SelectElement("SigningCertificate"); sc != nil {
		c.IssuerID = sc.SelectAttrValue("Certificate", "")
	}
	for _, ku := range children(el, "KeyUsages", "KeyUsage") {
		c.KeyUsages = append(c.KeyUsages, text(ku))
	}
	s := x.signer(el)
	c.Intact, c.Algorithm = s.Intact, s.Algorithm
	return c
}

func (x *xmlReader) revocation(el *etree.Element) *Revocation {
	r := &Revocation{
		TokenID:    el.SelectAttrValue("Id", ""),
		Kind:       RevocationType(el.SelectAttrValue("Type", "")),
		ThisUpdate: x.time(el.SelectElement("ThisUpdate")),
		NextUpdate: x.time(el.SelectElement("NextUpdate")),
		ProducedAt: x.time(el.SelectElement("ProducedAt")),
		Signer:     x.signer(el),
	}
	for _, e := range children(el, "Entries", "Entry") {
		entry := RevocationEntry{
			CertificateID: e.SelectAttrValue("Certificate", ""),
			Status:        CertificateStatus(e.SelectAttrValue("Status", string(StatusUnknown))),
			Reason:        e.SelectAttrValue("Reason", ""),
		}
		if rd := e.SelectAttrValue("RevocationDate", ""); rd != "" {
			t, err := time.Parse(time.RFC3339, rd)
			if err != nil {
				x.fail(e, "invalid revocation date %q", rd)
			}
			entry.RevocationTime = t
		}
		r.Entries = append(r.Entries, entry)
	}
	return r
}

func (x *xmlReader) evidenceRecord(el *etree.Element) *EvidenceRecord {
	return &EvidenceRecord{
		TokenID:    el.SelectAttrValue("Id", ""),
		Kind:       el.SelectAttrValue("Type", ""),
		Matchers:   x.digestMatchers(el),
		Timestamps: refs(el, "EvidenceRecordTimestamps", "EvidenceRecordTimestamp", "Timestamp"),
		Scopes:     x.scopes(el, "EvidenceRecordScopes", "EvidenceRecordScope"),
	}
}
