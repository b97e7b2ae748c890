// Package trust provides the trusted certificate sources and the digest
// provider the validation engine consults.
package trust

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"sync"

	"software.sslmate.com/src/go-pkcs12"

	"github.com/georgepadayatti/goades/diagnostic"
)

// ErrNoCertFound is returned when a trust store holds no certificate.
var ErrNoCertFound = errors.New("no certificate found")

// Source answers whether a certificate is a trust anchor.
type Source interface {
	IsTrusted(certID string) bool
}

// ModelSource trusts the certificates flagged as trusted by the extractor.
type ModelSource struct {
	model *diagnostic.Model
}

// NewModelSource returns a source over the Trusted flags of m.
func NewModelSource(m *diagnostic.Model) *ModelSource {
	return &ModelSource{model: m}
}

func (s *ModelSource) IsTrusted(certID string) bool {
	c, ok := s.model.Certificate(certID)
	return ok && c.Trusted
}

// CertificateSource trusts an explicit set of certificates.
type CertificateSource struct {
	mu    sync.RWMutex
	certs map[string]*x509.Certificate
	order []string
}

// NewCertificateSource returns a source trusting certs.
func NewCertificateSource(certs ...*x509.Certificate) *CertificateSource {
	s := &CertificateSource{certs: make(map[string]*x509.Certificate)}
	for _, c := range certs {
		s.Add(c)
	}
	return s
}

// Add adds a trust anchor.
func (s *CertificateSource) Add(cert *x509.Certificate) {
	id := diagnostic.CertificateID(cert.Raw)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.certs[id]; ok {
		return
	}
	s.certs[id] = cert
	s.order = append(s.order, id)
}

func (s *CertificateSource) IsTrusted(certID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.certs[certID]
	return ok
}

// Certificates returns the anchors in insertion order.
func (s *CertificateSource) Certificates() []*x509.Certificate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*x509.Certificate, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.certs[id])
	}
	return out
}

// Len returns the number of anchors.
func (s *CertificateSource) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Multi trusts a certificate trusted by any of its sources.
type Multi []Source

func (m Multi) IsTrusted(certID string) bool {
	for _, s := range m {
		if s != nil && s.IsTrusted(certID) {
			return true
		}
	}
	return false
}

// LoadPEMDER parses certificates from PEM (any number of CERTIFICATE
// blocks) or DER data.
func LoadPEMDER(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate

	if block, rest := pem.Decode(data); block != nil {
		for block != nil {
			if block.Type == "CERTIFICATE" {
				cert, err := x509.ParseCertificate(block.Bytes)
				if err != nil {
					return nil, fmt.Errorf("failed to parse certificate: %w", err)
				}
				certs = append(certs, cert)
			}
			block, rest = pem.Decode(rest)
		}
	} else {
		parsed, err := x509.ParseCertificates(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DER certificate: %w", err)
		}
		certs = parsed
	}

	if len(certs) == 0 {
		return nil, ErrNoCertFound
	}
	return certs, nil
}

// LoadFiles builds a certificate source from PEM or DER files.
func LoadFiles(paths ...string) (*CertificateSource, error) {
	s := NewCertificateSource()
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read trust store %s: %w", p, err)
		}
		certs, err := LoadPEMDER(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		for _, c := range certs {
			s.Add(c)
		}
	}
	return s, nil
}

// LoadPKCS12 builds a certificate source from a PKCS#12 trust store.
func LoadPKCS12(data []byte, password string) (*CertificateSource, error) {
	certs, err := pkcs12.DecodeTrustStore(data, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PKCS#12 trust store: %w", err)
	}
	if len(certs) == 0 {
		return nil, ErrNoCertFound
	}
	return NewCertificateSource(certs...), nil
}
