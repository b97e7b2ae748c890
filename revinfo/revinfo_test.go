package revinfo

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"golang.org/x/crypto/ocsp"

	"github.com/georgepadayatti/goades/diagnostic"
)

var now = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func genCA(t *testing.T) (*x509.Certificate, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test CA"},
		NotBefore:             now.Add(-365 * 24 * time.Hour),
		NotAfter:              now.Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("Failed to create CA: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("Failed to parse CA: %v", err)
	}
	return cert, key
}

func genLeaf(t *testing.T, ca *x509.Certificate, caKey *ecdsa.PrivateKey, serial int64) *x509.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject:      pkix.Name{CommonName: "Leaf"},
		NotBefore:    now.Add(-30 * 24 * time.Hour),
		NotAfter:     now.Add(30 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, ca, &key.PublicKey, caKey)
	if err != nil {
		t.Fatalf("Failed to create leaf: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("Failed to parse leaf: %v", err)
	}
	return cert
}

func TestFromCRL(t *testing.T) {
	ca, caKey := genCA(t)
	good := genLeaf(t, ca, caKey, 10)
	revoked := genLeaf(t, ca, caKey, 11)
	revokedAt := now.Add(-48 * time.Hour)

	raw, err := x509.CreateRevocationList(rand.Reader, &x509.RevocationList{
		Number:     big.NewInt(1),
		ThisUpdate: now.Add(-time.Hour),
		NextUpdate: now.Add(24 * time.Hour),
		RevokedCertificateEntries: []x509.RevocationListEntry{
			{SerialNumber: big.NewInt(11), RevocationTime: revokedAt, ReasonCode: int(ReasonKeyCompromise)},
		},
	}, ca, caKey)
	if err != nil {
		t.Fatalf("Failed to create CRL: %v", err)
	}

	rev, err := FromCRL(raw, ca, []*x509.Certificate{good, revoked})
	if err != nil {
		t.Fatalf("FromCRL() error = %v", err)
	}
	if rev.Kind != diagnostic.RevocationCRL {
		t.Errorf("Kind = %s, want CRL", rev.Kind)
	}
	if !rev.Intact {
		t.Error("CRL signature should verify")
	}
	if rev.SigningCertificate != diagnostic.CertificateID(ca.Raw) {
		t.Error("signing certificate should be the CA")
	}

	e, ok := rev.Entry(diagnostic.CertificateID(revoked.Raw))
	if !ok || e.Status != diagnostic.StatusRevoked {
		t.Fatalf("revoked entry = %+v, %v", e, ok)
	}
	if e.Reason != "keyCompromise" {
		t.Errorf("Reason = %s, want keyCompromise", e.Reason)
	}
	if !e.RevocationTime.Equal(revokedAt.Truncate(time.Second)) {
		t.Errorf("RevocationTime = %v, want %v", e.RevocationTime, revokedAt)
	}
	if e, _ := rev.Entry(diagnostic.CertificateID(good.Raw)); e.Status != diagnostic.StatusGood {
		t.Errorf("good entry status = %s", e.Status)
	}
}

func TestFromCRLRejectsGarbage(t *testing.T) {
	if _, err := FromCRL([]byte("nope"), nil, nil); err == nil {
		t.Error("FromCRL should fail on garbage")
	}
}

func TestFromOCSP(t *testing.T) {
	ca, caKey := genCA(t)
	leaf := genLeaf(t, ca, caKey, 20)

	raw, err := ocsp.CreateResponse(ca, ca, ocsp.Response{
		Status:           ocsp.Revoked,
		SerialNumber:     leaf.SerialNumber,
		ThisUpdate:       now.Add(-time.Hour),
		NextUpdate:       now.Add(time.Hour),
		RevokedAt:        now.Add(-2 * time.Hour),
		RevocationReason: ocsp.Superseded,
	}, caKey)
	if err != nil {
		t.Fatalf("Failed to create OCSP response: %v", err)
	}

	rev, err := FromOCSP(raw, leaf, ca)
	if err != nil {
		t.Fatalf("FromOCSP() error = %v", err)
	}
	if !rev.Intact {
		t.Error("OCSP signature should verify")
	}
	e, ok := rev.Entry(diagnostic.CertificateID(leaf.Raw))
	if !ok || e.Status != diagnostic.StatusRevoked || e.Reason != "superseded" {
		t.Errorf("entry = %+v", e)
	}

	// A wrong issuer keeps the content but marks the signature broken.
	other, _ := genCA(t)
	rev, err = FromOCSP(raw, leaf, other)
	if err != nil {
		t.Fatalf("FromOCSP() error = %v", err)
	}
	if rev.Intact {
		t.Error("signature should not verify against another CA")
	}
}

func TestModelSourceLookup(t *testing.T) {
	revokedAt := now.Add(-24 * time.Hour)
	m := &diagnostic.Model{
		Certificates: []*diagnostic.Certificate{
			{TokenID: "C-1", Revocations: []string{"R-old", "R-new", "R-bad"}},
			{TokenID: "C-2"},
		},
		Revocations: []*diagnostic.Revocation{
			{TokenID: "R-old", Kind: diagnostic.RevocationCRL, ThisUpdate: now.Add(-72 * time.Hour),
				Entries: []diagnostic.RevocationEntry{{CertificateID: "C-1", Status: diagnostic.StatusGood}}},
			{TokenID: "R-new", Kind: diagnostic.RevocationOCSP, ThisUpdate: now.Add(-time.Hour), ProducedAt: now.Add(-time.Hour),
				Entries: []diagnostic.RevocationEntry{{CertificateID: "C-1", Status: diagnostic.StatusRevoked, RevocationTime: revokedAt}}},
			{TokenID: "R-bad", Kind: diagnostic.RevocationCRL, ThisUpdate: now,
				Entries: []diagnostic.RevocationEntry{{CertificateID: "C-1", Status: diagnostic.StatusGood}}},
		},
	}
	if err := m.Index(); err != nil {
		t.Fatal(err)
	}
	src := NewModelSource(m, func(id string) bool { return id != "R-bad" })

	ans := src.Lookup("C-1", now)
	if !ans.Known || !ans.Revoked || ans.RevocationID != "R-new" {
		t.Errorf("Lookup(now) = %+v", ans)
	}

	// Revoked after the instant asked about.
	ans = src.Lookup("C-1", revokedAt.Add(-time.Hour))
	if ans.Revoked {
		t.Error("certificate should not be revoked before its revocation time")
	}
	if !ans.RevocationTime.Equal(revokedAt) {
		t.Errorf("RevocationTime = %v, want %v", ans.RevocationTime, revokedAt)
	}

	if ans := src.Lookup("C-2", now); ans.Known {
		t.Errorf("Lookup(C-2) = %+v, want unknown", ans)
	}
}

func TestRevocationReasonString(t *testing.T) {
	if got := ReasonCACompromise.String(); got != "cACompromise" {
		t.Errorf("String() = %s", got)
	}
	if got := RevocationReason(42).String(); got != "unknown(42)" {
		t.Errorf("String() = %s", got)
	}
}
