package bbb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/georgepadayatti/goades/ades"
	"github.com/georgepadayatti/goades/diagnostic"
	"github.com/georgepadayatti/goades/poe"
	"github.com/georgepadayatti/goades/policy"
	"github.com/georgepadayatti/goades/revinfo"
	"github.com/georgepadayatti/goades/trust"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

const year = 365 * 24 * time.Hour

var (
	rsa2048  = diagnostic.AlgorithmInfo{Digest: "SHA256", Encryption: "RSA", KeySize: 2048}
	ecdsa256 = diagnostic.AlgorithmInfo{Digest: "SHA256", Encryption: "ECDSA", KeySize: 256}
)

type conclusions map[string]ades.Conclusion

func (c conclusions) Conclusion(id string) (ades.Conclusion, bool) {
	v, ok := c[id]
	return v, ok
}

// fixture is a signature with one signature timestamp, a leaf and a TSA
// certificate issued by a trusted root, and a CRL for the leaf.
type fixture struct {
	model       *diagnostic.Model
	sig         *diagnostic.Signature
	ts          *diagnostic.Timestamp
	leaf        *diagnostic.Certificate
	root        *diagnostic.Certificate
	tsa         *diagnostic.Certificate
	crl         *diagnostic.Revocation
	conclusions conclusions
}

func newFixture() *fixture {
	f := &fixture{}
	f.root = &diagnostic.Certificate{
		TokenID:    "C-ROOT",
		Subject:    "CN=Root",
		Issuer:     "CN=Root",
		SelfSigned: true,
		Trusted:    true,
		CA:         true,
		NotBefore:  now.Add(-10 * year),
		NotAfter:   now.Add(10 * year),
		Intact:     true,
		Algorithm:  rsa2048,
	}
	f.leaf = &diagnostic.Certificate{
		TokenID:     "C-LEAF",
		Subject:     "CN=Signer",
		Issuer:      "CN=Root",
		IssuerID:    "C-ROOT",
		NotBefore:   now.Add(-2 * year),
		NotAfter:    now.Add(year),
		Intact:      true,
		Algorithm:   rsa2048,
		Revocations: []string{"R-1"},
	}
	f.tsa = &diagnostic.Certificate{
		TokenID:                    "C-TSA",
		Subject:                    "CN=TSA",
		Issuer:                     "CN=Root",
		IssuerID:                   "C-ROOT",
		NotBefore:                  now.Add(-3 * year),
		NotAfter:                   now.Add(3 * year),
		Intact:                     true,
		Algorithm:                  rsa2048,
		RevocationCheckNotRequired: true,
	}
	f.crl = &diagnostic.Revocation{
		TokenID:    "R-1",
		Kind:       diagnostic.RevocationCRL,
		ThisUpdate: now.Add(-time.Hour),
		NextUpdate: now.Add(7 * 24 * time.Hour),
		Entries:    []diagnostic.RevocationEntry{{CertificateID: "C-LEAF", Status: diagnostic.StatusGood}},
		Signer:     diagnostic.Signer{SigningCertificate: "C-ROOT", Chain: []string{"C-ROOT"}, Intact: true, Algorithm: rsa2048},
	}
	f.ts = &diagnostic.Timestamp{
		TokenID:        "T-1",
		Kind:           diagnostic.TimestampSignature,
		ProductionTime: now.Add(-30 * 24 * time.Hour),
		MessageImprint: diagnostic.DigestMatcher{Type: diagnostic.MatcherMessageImprint, DataFound: true, DataIntact: true},
		Covered:        []string{"S-1", "C-LEAF"},
		Signer:         diagnostic.Signer{SigningCertificate: "C-TSA", Chain: []string{"C-TSA", "C-ROOT"}, Intact: true, Algorithm: rsa2048},
	}
	f.sig = &diagnostic.Signature{
		TokenID:                       "S-1",
		Format:                        "XAdES-BASELINE-T",
		ClaimedSigningTime:            now.Add(-31 * 24 * time.Hour),
		Signer:                        diagnostic.Signer{SigningCertificate: "C-LEAF", Chain: []string{"C-LEAF", "C-ROOT"}, Intact: true, Algorithm: ecdsa256},
		SigningCertificateReference:   true,
		SigningCertificateDigestMatch: true,
		Matchers: []diagnostic.DigestMatcher{
			{Type: diagnostic.MatcherReference, Name: "doc.xml", DigestAlgorithm: "SHA256", DataFound: true, DataIntact: true},
			{Type: diagnostic.MatcherSignedProperties, DigestAlgorithm: "SHA256", DataFound: true, DataIntact: true},
		},
		Timestamps: []string{"T-1"},
	}
	f.model = &diagnostic.Model{
		ValidationTime: now,
		Signatures:     []*diagnostic.Signature{f.sig},
		Timestamps:     []*diagnostic.Timestamp{f.ts},
		Certificates:   []*diagnostic.Certificate{f.leaf, f.root, f.tsa},
		Revocations:    []*diagnostic.Revocation{f.crl},
	}
	f.conclusions = conclusions{
		"C-ROOT": ades.Passed(nil, nil),
		"C-LEAF": ades.Passed(nil, nil),
		"C-TSA":  ades.Passed(nil, nil),
		"R-1":    ades.Passed(nil, nil),
		"T-1":    ades.Passed(nil, nil),
	}
	return f
}

func (f *fixture) env(t *testing.T, p *policy.Policy, level policy.ValidationLevel) *Env {
	t.Helper()
	require.NoError(t, f.model.Index())
	return &Env{
		Model:       f.model,
		Policy:      p,
		Level:       level,
		CurrentTime: now,
		POE:         poe.NewTracker(now),
		Revocation:  revinfo.NewModelSource(f.model, nil),
		Trust:       trust.NewModelSource(f.model),
		Conclusions: f.conclusions,
	}
}

func names(r Result) []string {
	out := make([]string, 0, len(r.Constraints))
	for _, c := range r.Constraints {
		out = append(out, c.Name)
	}
	return out
}

func mustParse(t *testing.T, doc string) *policy.Policy {
	t.Helper()
	p, err := policy.Parse([]byte(doc))
	require.NoError(t, err)
	return p
}
