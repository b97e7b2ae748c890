package trust

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"errors"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ErrUnsupportedDigest is returned for unknown digest algorithm names.
var ErrUnsupportedDigest = errors.New("unsupported digest algorithm")

var digests = map[string]func() hash.Hash{
	"SHA1":     sha1.New,
	"SHA224":   sha256.New224,
	"SHA256":   sha256.New,
	"SHA384":   sha512.New384,
	"SHA512":   sha512.New,
	"SHA3-224": sha3.New224,
	"SHA3-256": sha3.New256,
	"SHA3-384": sha3.New384,
	"SHA3-512": sha3.New512,
}

// HashDigester computes digests by algorithm name.
type HashDigester struct{}

func normalize(alg string) string {
	a := strings.ToUpper(strings.TrimSpace(alg))
	a = strings.ReplaceAll(a, "_", "-")
	if strings.HasPrefix(a, "SHA-") && !strings.HasPrefix(a, "SHA-3") {
		a = "SHA" + strings.TrimPrefix(a, "SHA-")
	}
	return a
}

// Digest returns the digest of data.
func (HashDigester) Digest(alg string, data []byte) ([]byte, error) {
	newHash, ok := digests[normalize(alg)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDigest, alg)
	}
	h := newHash()
	h.Write(data)
	return h.Sum(nil), nil
}

// Matches reports whether data hashes to digest with alg.
func (d HashDigester) Matches(alg string, data, digest []byte) (bool, error) {
	sum, err := d.Digest(alg, data)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(sum, digest) == 1, nil
}
