package digest

import (
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
)

// ChunkSize is the read size used by File and Reader.
// Any size yields the same digest.
const ChunkSize = 32 * 1024

// ErrFinalized is returned when an Engine is used after Finalize.
var ErrFinalized = errors.New("digest already finalized")

// Engine is a streaming digest context.
type Engine struct {
	alg  Algorithm
	h    hash.Hash
	done bool
}

// New starts a digest context for alg.
func New(alg Algorithm) (*Engine, error) {
	ch, err := alg.CryptoHash()
	if err != nil {
		return nil, err
	}

	return &Engine{
		alg: alg,
		h:   ch.New(),
	}, nil
}

// Algorithm returns the algorithm of the context.
func (e *Engine) Algorithm() Algorithm {
	return e.alg
}

// Write feeds p into the digest. Splitting input into any chunks produces the
// same result as writing it at once.
func (e *Engine) Write(p []byte) (int, error) {
	if e.done {
		return 0, ErrFinalized
	}

	return e.h.Write(p)
}

// Finalize returns the digest and invalidates the context.
func (e *Engine) Finalize() (Digest, error) {
	if e.done {
		return Digest{}, ErrFinalized
	}

	e.done = true

	return Digest{
		Algorithm: e.alg,
		Sum:       e.h.Sum(nil),
	}, nil
}

// Reader hashes everything read from r.
func Reader(alg Algorithm, r io.Reader) (Digest, error) {
	engine, err := New(alg)
	if err != nil {
		return Digest{}, err
	}

	buf := make([]byte, ChunkSize)
	if _, err = io.CopyBuffer(engine, onlyReader{r}, buf); err != nil {
		return Digest{}, fmt.Errorf("read input: %w", err)
	}

	return engine.Finalize()
}

// Bytes hashes an in-memory value.
func Bytes(alg Algorithm, data []byte) (Digest, error) {
	engine, err := New(alg)
	if err != nil {
		return Digest{}, err
	}

	if _, err = engine.Write(data); err != nil {
		return Digest{}, err
	}

	return engine.Finalize()
}

// File hashes the file at path. Open and read failures are returned to the
// caller and no digest is produced for a partially read file.
func File(alg Algorithm, path string) (Digest, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return Digest{}, fmt.Errorf("open %s: %w", path, err)
	}

	defer func() {
		_ = f.Close()
	}()

	d, err := Reader(alg, f)
	if err != nil {
		return Digest{}, fmt.Errorf("hash %s: %w", path, err)
	}

	return d, nil
}

// onlyReader hides WriterTo implementations so io.CopyBuffer honours the chunk size.
type onlyReader struct {
	io.Reader
}
