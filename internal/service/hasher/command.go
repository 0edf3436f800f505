package hasher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/oshokin/stage-loader/internal/digest"
	"github.com/oshokin/stage-loader/internal/domain/cycle"
	"github.com/oshokin/stage-loader/internal/logger"
)

// Options are inputs accepted by the hasher entry point.
type Options struct {
	// Paths are the files to hash.
	Paths []string
	// Algorithm names the digest function, SHA-512 when empty.
	Algorithm string
	// Expected, when set, must equal the digest of every file.
	Expected string
	// Stdout receives "<hex>" for one file or "<hex>  <path>" lines for several.
	Stdout io.Writer
}

var errNoFiles = errors.New("at least one file must be provided")

// Run hashes every file and prints the digests.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "stage-hash")

	if len(opts.Paths) == 0 {
		return errNoFiles
	}

	alg, err := digest.ParseAlgorithm(opts.Algorithm)
	if err != nil {
		return err
	}

	var expected digest.Digest
	if opts.Expected != "" {
		if expected, err = digest.ParseHex(alg, opts.Expected); err != nil {
			return err
		}
	}

	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}

	for _, path := range opts.Paths {
		d, hashErr := digest.File(alg, path)
		if hashErr != nil {
			return cycle.Wrap(cycle.KindFileIOFailed, "hash", hashErr)
		}

		if len(opts.Paths) == 1 {
			_, err = fmt.Fprintln(out, d.Hex())
		} else {
			_, err = fmt.Fprintf(out, "%s  %s\n", d.Hex(), path)
		}

		if err != nil {
			return fmt.Errorf("write digest: %w", err)
		}

		if !expected.IsZero() && !d.EqualHex(expected.Hex()) {
			logger.ErrorKV(ctx, "Digest mismatch", "path", path, "expected", expected.Hex(), "actual", d.Hex())

			return cycle.Wrap(cycle.KindHashMismatch, path, nil)
		}
	}

	return nil
}
