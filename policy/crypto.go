package policy

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/georgepadayatti/goades/diagnostic"
)

const expirationLayout = "2006-01-02"

// CryptographicSuite lists the algorithms a policy accepts and the dates
// after which they are no longer considered secure.
type CryptographicSuite struct {
	AcceptableDigestAlgorithms     []string `yaml:"acceptable-digest-algorithms,omitempty"`
	AcceptableEncryptionAlgorithms []string `yaml:"acceptable-encryption-algorithms,omitempty"`
	// MinKeySizes maps an encryption algorithm to its minimum key size in
	// bits.
	MinKeySizes map[string]int `yaml:"min-key-sizes,omitempty"`
	// AlgorithmExpirations maps a digest algorithm ("SHA1"), an encryption
	// algorithm ("DSA") or an encryption algorithm with key size
	// ("RSA1024") to its expiration date, formatted YYYY-MM-DD.
	AlgorithmExpirations map[string]string `yaml:"algorithm-expirations,omitempty"`

	expirations map[string]time.Time
}

// DefaultCryptographicSuite returns the suite used when a policy does not
// define one.
func DefaultCryptographicSuite() *CryptographicSuite {
	s := &CryptographicSuite{
		AcceptableDigestAlgorithms: []string{
			"SHA1", "SHA224", "SHA256", "SHA384", "SHA512",
			"SHA3-256", "SHA3-384", "SHA3-512",
		},
		AcceptableEncryptionAlgorithms: []string{"RSA", "RSASSA-PSS", "ECDSA", "Ed25519", "DSA"},
		MinKeySizes: map[string]int{
			"RSA":        1024,
			"RSASSA-PSS": 1024,
			"ECDSA":      160,
			"DSA":        1024,
		},
		AlgorithmExpirations: map[string]string{
			"MD5":     "2004-08-01",
			"SHA1":    "2012-08-01",
			"SHA224":  "2026-01-01",
			"RSA1024": "2012-01-01",
			"RSA1536": "2017-01-01",
			"DSA1024": "2012-01-01",
		},
	}
	if err := s.compile(); err != nil {
		panic(err)
	}
	return s
}

func (s *CryptographicSuite) compile() error {
	s.expirations = make(map[string]time.Time, len(s.AlgorithmExpirations))
	for alg, date := range s.AlgorithmExpirations {
		t, err := time.Parse(expirationLayout, date)
		if err != nil {
			return &ConfigError{
				Field:   "cryptographic.algorithm-expirations." + alg,
				Message: fmt.Sprintf("invalid date %q", date),
				Err:     err,
			}
		}
		s.expirations[strings.ToUpper(alg)] = t
	}
	for alg, size := range s.MinKeySizes {
		if size < 0 {
			return NewConfigError("cryptographic.min-key-sizes."+alg, "negative key size")
		}
	}
	return nil
}

// CryptoResult is the outcome of a cryptographic suite check.
type CryptoResult struct {
	Acceptable bool
	// Reason explains a rejection.
	Reason string
	// ExpiresAt is the earliest expiration among the checked algorithms.
	ExpiresAt time.Time
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

// Check reports whether the algorithms in a are acceptable at time at.
func (s *CryptographicSuite) Check(a diagnostic.AlgorithmInfo, at time.Time) CryptoResult {
	if a.Digest != "" && len(s.AcceptableDigestAlgorithms) > 0 && !contains(s.AcceptableDigestAlgorithms, a.Digest) {
		return CryptoResult{Reason: fmt.Sprintf("digest algorithm %s is not acceptable", a.Digest)}
	}
	if a.Encryption != "" && len(s.AcceptableEncryptionAlgorithms) > 0 && !contains(s.AcceptableEncryptionAlgorithms, a.Encryption) {
		return CryptoResult{Reason: fmt.Sprintf("encryption algorithm %s is not acceptable", a.Encryption)}
	}
	if minSize, ok := s.minKeySize(a.Encryption); ok && a.KeySize > 0 && a.KeySize < minSize {
		return CryptoResult{Reason: fmt.Sprintf("key size %d is below %d for %s", a.KeySize, minSize, a.Encryption)}
	}

	res := CryptoResult{Acceptable: true}
	keys := []string{strings.ToUpper(a.Digest), strings.ToUpper(a.Encryption)}
	if a.KeySize > 0 {
		keys = append(keys, strings.ToUpper(a.Encryption)+strconv.Itoa(a.KeySize))
	}
	for _, k := range keys {
		exp, ok := s.expirations[k]
		if !ok {
			continue
		}
		if res.ExpiresAt.IsZero() || exp.Before(res.ExpiresAt) {
			res.ExpiresAt = exp
		}
		if at.After(exp) {
			res.Acceptable = false
			res.Reason = fmt.Sprintf("algorithm %s expired on %s", k, exp.Format(expirationLayout))
		}
	}
	return res
}

func (s *CryptographicSuite) minKeySize(enc string) (int, bool) {
	for alg, size := range s.MinKeySizes {
		if strings.EqualFold(alg, enc) {
			return size, true
		}
	}
	return 0, false
}
