package digest

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrShortBuffer is returned when a hex destination cannot hold the full digest.
	ErrShortBuffer = errors.New("hex buffer too small for digest")
	// ErrInvalidHex is returned for expected digests that are not canonical hex.
	ErrInvalidHex = errors.New("invalid hex digest")
)

// Digest is a finalized hash value.
type Digest struct {
	// Algorithm produced Sum.
	Algorithm Algorithm
	// Sum holds exactly Algorithm.Size() bytes.
	Sum []byte
}

// ParseHex validates s as the canonical lowercase hex form of an alg digest.
// Uppercase input is rejected since comparison is case-sensitive.
func ParseHex(alg Algorithm, s string) (Digest, error) {
	want := alg.HexSize()
	if want == 0 {
		return Digest{}, fmt.Errorf("%q: %w", alg.String(), ErrUnknownAlgorithm)
	}

	if len(s) != want {
		return Digest{}, fmt.Errorf("%w: got %d characters, want %d", ErrInvalidHex, len(s), want)
	}

	if s != strings.ToLower(s) {
		return Digest{}, fmt.Errorf("%w: must be lowercase", ErrInvalidHex)
	}

	sum, err := hex.DecodeString(s)
	if err != nil {
		return Digest{}, fmt.Errorf("%w: %w", ErrInvalidHex, err)
	}

	return Digest{
		Algorithm: alg,
		Sum:       sum,
	}, nil
}

// Hex returns the canonical lowercase hex representation.
func (d Digest) Hex() string {
	return hex.EncodeToString(d.Sum)
}

// String implements fmt.Stringer.
func (d Digest) String() string {
	return d.Hex()
}

// EncodeHex writes the hex form into dst and returns the number of bytes written.
// dst must hold at least 2*len(Sum) bytes.
func (d Digest) EncodeHex(dst []byte) (int, error) {
	n := hex.EncodedLen(len(d.Sum))
	if len(dst) < n {
		return 0, fmt.Errorf("%w: have %d, need %d", ErrShortBuffer, len(dst), n)
	}

	return hex.Encode(dst, d.Sum), nil
}

// IsZero reports whether the digest holds no value.
func (d Digest) IsZero() bool {
	return len(d.Sum) == 0
}

// Equal compares the hex forms of two digests of the same algorithm.
func (d Digest) Equal(other Digest) bool {
	return d.Algorithm == other.Algorithm && d.EqualHex(other.Hex())
}

// EqualHex compares the hex form with s byte for byte.
func (d Digest) EqualHex(s string) bool {
	return bytes.Equal([]byte(d.Hex()), []byte(s))
}
