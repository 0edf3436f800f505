package digest

import (
	"crypto"
	"errors"
	"fmt"
	"strings"

	// Register hash implementations with the crypto package.
	_ "crypto/sha256"
	_ "crypto/sha512"

	_ "golang.org/x/crypto/blake2b"
	_ "golang.org/x/crypto/sha3"
)

// Algorithm names a supported digest function.
type Algorithm string

// Supported algorithms.
const (
	SHA512     Algorithm = "sha512"
	SHA256     Algorithm = "sha256"
	SHA3_512   Algorithm = "sha3-512"
	BLAKE2b512 Algorithm = "blake2b-512"

	// DefaultAlgorithm is used when configuration does not name one.
	DefaultAlgorithm = SHA512
)

// ErrUnknownAlgorithm is returned for algorithm names outside the supported set.
var ErrUnknownAlgorithm = errors.New("unknown digest algorithm")

//nolint:gochecknoglobals // Read-only lookup table.
var cryptoHashes = map[Algorithm]crypto.Hash{
	SHA512:     crypto.SHA512,
	SHA256:     crypto.SHA256,
	SHA3_512:   crypto.SHA3_512,
	BLAKE2b512: crypto.BLAKE2b_512,
}

// ParseAlgorithm converts a configuration value into an Algorithm.
// An empty string selects DefaultAlgorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultAlgorithm, nil
	}

	alg := Algorithm(s)
	if _, ok := cryptoHashes[alg]; !ok {
		return "", fmt.Errorf("%q: %w", s, ErrUnknownAlgorithm)
	}

	return alg, nil
}

// CryptoHash returns the crypto.Hash backing the algorithm.
func (a Algorithm) CryptoHash() (crypto.Hash, error) {
	h, ok := cryptoHashes[a]
	if !ok {
		return 0, fmt.Errorf("%q: %w", string(a), ErrUnknownAlgorithm)
	}

	if !h.Available() {
		return 0, fmt.Errorf("%q is not linked into the binary: %w", string(a), ErrUnknownAlgorithm)
	}

	return h, nil
}

// Size returns the digest length in bytes, 0 for unknown algorithms.
func (a Algorithm) Size() int {
	h, ok := cryptoHashes[a]
	if !ok {
		return 0
	}

	return h.Size()
}

// HexSize returns the length of the canonical hex form.
func (a Algorithm) HexSize() int {
	return a.Size() * 2
}

// String returns the algorithm name.
func (a Algorithm) String() string {
	return string(a)
}
