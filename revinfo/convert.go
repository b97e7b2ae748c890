package revinfo

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/ocsp"

	"github.com/georgepadayatti/goades/diagnostic"
)

// ErrParse is returned when raw revocation data cannot be decoded.
var ErrParse = errors.New("failed to parse revocation data")

// RevocationID returns the identifier used for raw revocation data: "R-"
// followed by the upper-case hex SHA-256 of the encoding.
func RevocationID(raw []byte) string {
	sum := sha256.Sum256(raw)
	return "R-" + strings.ToUpper(hex.EncodeToString(sum[:]))
}

// FromCRL converts a DER encoded CRL into a revocation token reporting on
// certs. The signature is checked against issuer when it is not nil.
func FromCRL(raw []byte, issuer *x509.Certificate, certs []*x509.Certificate) (*diagnostic.Revocation, error) {
	crl, err := x509.ParseRevocationList(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	rev := &diagnostic.Revocation{
		TokenID:    RevocationID(raw),
		Kind:       diagnostic.RevocationCRL,
		ThisUpdate: crl.ThisUpdate.UTC(),
		NextUpdate: crl.NextUpdate.UTC(),
		Signer: diagnostic.Signer{
			Algorithm: diagnostic.SignatureAlgorithmInfo(crl.SignatureAlgorithm),
		},
	}
	if issuer != nil {
		rev.SigningCertificate = diagnostic.CertificateID(issuer.Raw)
		rev.Chain = []string{rev.SigningCertificate}
		rev.Intact = crl.CheckSignatureFrom(issuer) == nil
		rev.Algorithm.KeySize = diagnostic.PublicKeySize(issuer.PublicKey)
	}

	for _, cert := range certs {
		entry := diagnostic.RevocationEntry{
			CertificateID: diagnostic.CertificateID(cert.Raw),
			Status:        diagnostic.StatusGood,
		}
		for _, e := range crl.RevokedCertificateEntries {
			if e.SerialNumber.Cmp(cert.SerialNumber) == 0 {
				entry.Status = diagnostic.StatusRevoked
				entry.RevocationTime = e.RevocationTime.UTC()
				entry.Reason = RevocationReason(e.ReasonCode).String()
				break
			}
		}
		rev.Entries = append(rev.Entries, entry)
	}
	return rev, nil
}

// FromOCSP converts a DER encoded OCSP response for cert into a revocation
// token. When issuer is given the response signature is verified against it
// (or against the delegated responder certificate it issued).
func FromOCSP(raw []byte, cert, issuer *x509.Certificate) (*diagnostic.Revocation, error) {
	intact := false
	resp, err := ocsp.ParseResponseForCert(raw, cert, issuer)
	if err == nil && (issuer != nil || resp.Certificate != nil) {
		intact = true
	}
	if err != nil {
		// Keep the content of responses whose signature does not verify.
		resp, err = ocsp.ParseResponseForCert(raw, cert, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
	}

	rev := &diagnostic.Revocation{
		TokenID:    RevocationID(raw),
		Kind:       diagnostic.RevocationOCSP,
		ThisUpdate: resp.ThisUpdate.UTC(),
		NextUpdate: resp.NextUpdate.UTC(),
		ProducedAt: resp.ProducedAt.UTC(),
		Signer: diagnostic.Signer{
			Intact:    intact,
			Algorithm: diagnostic.SignatureAlgorithmInfo(resp.SignatureAlgorithm),
		},
	}
	signer := issuer
	if resp.Certificate != nil {
		signer = resp.Certificate
	}
	if signer != nil {
		rev.SigningCertificate = diagnostic.CertificateID(signer.Raw)
		rev.Chain = []string{rev.SigningCertificate}
		rev.Algorithm.KeySize = diagnostic.PublicKeySize(signer.PublicKey)
	}

	entry := diagnostic.RevocationEntry{CertificateID: diagnostic.CertificateID(cert.Raw)}
	switch resp.Status {
	case ocsp.Good:
		entry.Status = diagnostic.StatusGood
	case ocsp.Revoked:
		entry.Status = diagnostic.StatusRevoked
		entry.RevocationTime = resp.RevokedAt.UTC()
		entry.Reason = RevocationReason(resp.RevocationReason).String()
	default:
		entry.Status = diagnostic.StatusUnknown
	}
	rev.Entries = []diagnostic.RevocationEntry{entry}
	return rev, nil
}
