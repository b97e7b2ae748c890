package validation

import (
	"time"

	"github.com/georgepadayatti/goades/diagnostic"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

const (
	day  = 24 * time.Hour
	year = 365 * day
)

var rsa2048 = diagnostic.AlgorithmInfo{Digest: "SHA256", Encryption: "RSA", KeySize: 2048}

// pki is a self contained signature: a trusted root issuing a signer and a
// TSA certificate, a CRL for the signer and one signature timestamp. Every
// identifier carries the prefix so several can share a model.
type pki struct {
	root, leaf, tsa *diagnostic.Certificate
	crl             *diagnostic.Revocation
	ts              *diagnostic.Timestamp
	sig             *diagnostic.Signature
}

func newPKI(prefix string) *pki {
	p := &pki{}
	p.root = &diagnostic.Certificate{
		TokenID:    prefix + "C-ROOT",
		Subject:    "CN=Root " + prefix,
		Issuer:     "CN=Root " + prefix,
		SelfSigned: true,
		Trusted:    true,
		CA:         true,
		NotBefore:  now.Add(-10 * year),
		NotAfter:   now.Add(10 * year),
		Intact:     true,
		Algorithm:  rsa2048,
	}
	p.leaf = &diagnostic.Certificate{
		TokenID:     prefix + "C-LEAF",
		Subject:     "CN=Signer " + prefix,
		Issuer:      p.root.Subject,
		IssuerID:    p.root.TokenID,
		NotBefore:   now.Add(-2 * year),
		NotAfter:    now.Add(year),
		Intact:      true,
		Algorithm:   rsa2048,
		Revocations: []string{prefix + "R-1"},
	}
	p.tsa = &diagnostic.Certificate{
		TokenID:                    prefix + "C-TSA",
		Subject:                    "CN=TSA " + prefix,
		Issuer:                     p.root.Subject,
		IssuerID:                   p.root.TokenID,
		NotBefore:                  now.Add(-3 * year),
		NotAfter:                   now.Add(3 * year),
		Intact:                     true,
		Algorithm:                  rsa2048,
		RevocationCheckNotRequired: true,
	}
	p.crl = &diagnostic.Revocation{
		TokenID:    prefix + "R-1",
		Kind:       diagnostic.RevocationCRL,
		ThisUpdate: now.Add(-time.Hour),
		NextUpdate: now.Add(7 * day),
		Entries:    []diagnostic.RevocationEntry{{CertificateID: p.leaf.TokenID, Status: diagnostic.StatusGood}},
		Signer:     diagnostic.Signer{SigningCertificate: p.root.TokenID, Chain: []string{p.root.TokenID}, Intact: true, Algorithm: rsa2048},
	}
	p.ts = &diagnostic.Timestamp{
		TokenID:        prefix + "T-1",
		Kind:           diagnostic.TimestampSignature,
		ProductionTime: now.Add(-30 * day),
		MessageImprint: diagnostic.DigestMatcher{Type: diagnostic.MatcherMessageImprint, DataFound: true, DataIntact: true},
		Covered:        []string{prefix + "S-1", p.leaf.TokenID},
		Signer:         p.signer(p.tsa),
	}
	p.sig = &diagnostic.Signature{
		TokenID:                       prefix + "S-1",
		Format:                        "XAdES-BASELINE-T",
		ClaimedSigningTime:            now.Add(-31 * day),
		Signer:                        p.signer(p.leaf),
		SigningCertificateReference:   true,
		SigningCertificateDigestMatch: true,
		Matchers: []diagnostic.DigestMatcher{
			{Type: diagnostic.MatcherReference, Name: "doc.xml", DigestAlgorithm: "SHA256", DataFound: true, DataIntact: true},
			{Type: diagnostic.MatcherSignedProperties, DigestAlgorithm: "SHA256", DataFound: true, DataIntact: true},
		},
		Timestamps: []string{p.ts.TokenID},
	}
	return p
}

func (p *pki) signer(c *diagnostic.Certificate) diagnostic.Signer {
	return diagnostic.Signer{
		SigningCertificate: c.TokenID,
		Chain:              []string{c.TokenID, p.root.TokenID},
		Intact:             true,
		Algorithm:          rsa2048,
	}
}

// archive returns an archive timestamp produced at at covering the
// signature and its validation data.
func (p *pki) archive(id string, at time.Time) *diagnostic.Timestamp {
	return &diagnostic.Timestamp{
		TokenID:        id,
		Kind:           diagnostic.TimestampArchive,
		ProductionTime: at,
		MessageImprint: diagnostic.DigestMatcher{Type: diagnostic.MatcherMessageImprint, DataFound: true, DataIntact: true},
		Covered:        []string{p.sig.TokenID, p.ts.TokenID, p.leaf.TokenID, p.crl.TokenID},
		Signer:         p.signer(p.tsa),
	}
}

func (p *pki) add(m *diagnostic.Model) {
	m.Signatures = append(m.Signatures, p.sig)
	m.Timestamps = append(m.Timestamps, p.ts)
	m.Certificates = append(m.Certificates, p.leaf, p.root, p.tsa)
	m.Revocations = append(m.Revocations, p.crl)
}

func model(ps ...*pki) *diagnostic.Model {
	m := &diagnostic.Model{ValidationTime: now}
	for _, p := range ps {
		p.add(m)
	}
	return m
}
