package diagnostic

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/hex"
	"strings"
)

// CertificateID returns the identifier used for a DER encoded certificate:
// "C-" followed by the upper-case hex SHA-256 of the encoding.
func CertificateID(der []byte) string {
	sum := sha256.Sum256(der)
	return "C-" + strings.ToUpper(hex.EncodeToString(sum[:]))
}

// SignatureAlgorithmInfo maps an x509 signature algorithm to digest and
// encryption algorithm names.
func SignatureAlgorithmInfo(alg x509.SignatureAlgorithm) AlgorithmInfo {
	switch alg {
	case x509.MD5WithRSA:
		return AlgorithmInfo{Digest: "MD5", Encryption: "RSA"}
	case x509.SHA1WithRSA:
		return AlgorithmInfo{Digest: "SHA1", Encryption: "RSA"}
	case x509.SHA256WithRSA:
		return AlgorithmInfo{Digest: "SHA256", Encryption: "RSA"}
	case x509.SHA384WithRSA:
		return AlgorithmInfo{Digest: "SHA384", Encryption: "RSA"}
	case x509.SHA512WithRSA:
		return AlgorithmInfo{Digest: "SHA512", Encryption: "RSA"}
	case x509.SHA256WithRSAPSS:
		return AlgorithmInfo{Digest: "SHA256", Encryption: "RSASSA-PSS"}
	case x509.SHA384WithRSAPSS:
		return AlgorithmInfo{Digest: "SHA384", Encryption: "RSASSA-PSS"}
	case x509.SHA512WithRSAPSS:
		return AlgorithmInfo{Digest: "SHA512", Encryption: "RSASSA-PSS"}
	case x509.ECDSAWithSHA1:
		return AlgorithmInfo{Digest: "SHA1", Encryption: "ECDSA"}
	case x509.ECDSAWithSHA256:
		return AlgorithmInfo{Digest: "SHA256", Encryption: "ECDSA"}
	case x509.ECDSAWithSHA384:
		return AlgorithmInfo{Digest: "SHA384", Encryption: "ECDSA"}
	case x509.ECDSAWithSHA512:
		return AlgorithmInfo{Digest: "SHA512", Encryption: "ECDSA"}
	case x509.PureEd25519:
		return AlgorithmInfo{Digest: "SHA512", Encryption: "Ed25519"}
	default:
		return AlgorithmInfo{}
	}
}

// PublicKeySize returns the size in bits of a public key, or 0 when the key
// type is not supported.
func PublicKeySize(pub any) int {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return k.N.BitLen()
	case *ecdsa.PublicKey:
		return k.Curve.Params().BitSize
	case ed25519.PublicKey:
		return 256
	default:
		return 0
	}
}

var keyUsageNames = []struct {
	usage x509.KeyUsage
	name  string
}{
	{x509.KeyUsageDigitalSignature, "digitalSignature"},
	{x509.KeyUsageContentCommitment, "nonRepudiation"},
	{x509.KeyUsageKeyEncipherment, "keyEncipherment"},
	{x509.KeyUsageDataEncipherment, "dataEncipherment"},
	{x509.KeyUsageKeyAgreement, "keyAgreement"},
	{x509.KeyUsageCertSign, "keyCertSign"},
	{x509.KeyUsageCRLSign, "crlSign"},
	{x509.KeyUsageEncipherOnly, "encipherOnly"},
	{x509.KeyUsageDecipherOnly, "decipherOnly"},
}

var oidOCSPNoCheck = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 1, 5}

// CertificateFromX509 converts a parsed certificate. Issuer linkage is left
// to CertificatesFromX509.
func CertificateFromX509(cert *x509.Certificate) *Certificate {
	c := &Certificate{
		TokenID:      CertificateID(cert.Raw),
		Subject:      cert.Subject.String(),
		Issuer:       cert.Issuer.String(),
		SerialNumber: cert.SerialNumber.String(),
		CA:           cert.IsCA,
		NotBefore:    cert.NotBefore.UTC(),
		NotAfter:     cert.NotAfter.UTC(),
		Algorithm:    SignatureAlgorithmInfo(cert.SignatureAlgorithm),
	}
	for _, ku := range keyUsageNames {
		if cert.KeyUsage&ku.usage != 0 {
			c.KeyUsages = append(c.KeyUsages, ku.name)
		}
	}
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(oidOCSPNoCheck) {
			c.RevocationCheckNotRequired = true
		}
	}
	if bytes.Equal(cert.RawSubject, cert.RawIssuer) && cert.CheckSignatureFrom(cert) == nil {
		c.SelfSigned = true
		c.Intact = true
		c.Algorithm.KeySize = PublicKeySize(cert.PublicKey)
	}
	return c
}

// CertificatesFromX509 converts certs and links every certificate to the
// issuer among them whose key verifies its signature.
func CertificatesFromX509(certs []*x509.Certificate) []*Certificate {
	out := make([]*Certificate, len(certs))
	for i, cert := range certs {
		out[i] = CertificateFromX509(cert)
	}
	for i, cert := range certs {
		if out[i].SelfSigned {
			continue
		}
		for j, issuer := range certs {
			if i == j || !bytes.Equal(cert.RawIssuer, issuer.RawSubject) {
				continue
			}
			if cert.CheckSignatureFrom(issuer) == nil {
				out[i].IssuerID = out[j].TokenID
				out[i].Intact = true
				out[i].Algorithm.KeySize = PublicKeySize(issuer.PublicKey)
				break
			}
		}
	}
	return out
}
