package gate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/stage-loader/internal/digest"
	"github.com/oshokin/stage-loader/internal/domain/cycle"
	"github.com/oshokin/stage-loader/internal/logger"
)

// Strategy selects how a verified artifact replaces the final one.
type Strategy string

const (
	// StrategyRename renames the temporary file over the final name.
	StrategyRename Strategy = "rename"
	// StrategyApply uses go-update, which moves a busy final file aside
	// before swapping in the new one.
	StrategyApply Strategy = "apply"

	// DefaultFileMode is the mode of promoted artifacts.
	DefaultFileMode os.FileMode = 0o755
)

var (
	errPathsRequired    = errors.New("temporary and final paths must be provided")
	errSamePaths        = errors.New("temporary and final paths must differ")
	errExpectedRequired = errors.New("expected digest must be provided")
	errUnknownStrategy  = errors.New("unknown promotion strategy")
)

// ParseStrategy converts a configuration value. Empty selects StrategyRename.
func ParseStrategy(s string) (Strategy, error) {
	switch strategy := Strategy(strings.ToLower(strings.TrimSpace(s))); strategy {
	case "":
		return StrategyRename, nil
	case StrategyRename, StrategyApply:
		return strategy, nil
	default:
		return "", fmt.Errorf("%q: %w", s, errUnknownStrategy)
	}
}

// Request describes one verification.
type Request struct {
	// TempPath is the freshly written artifact.
	TempPath string
	// FinalPath is the stable name consumers use.
	FinalPath string
	// Expected is the only acceptable digest.
	Expected digest.Digest
	// Strategy defaults to StrategyRename.
	Strategy Strategy
	// Mode defaults to DefaultFileMode.
	Mode os.FileMode
	// Machine tracks the cycle state, optional.
	Machine *cycle.Machine
}

// Outcome describes a promoted artifact.
type Outcome struct {
	// Path is the final name.
	Path string
	// Digest is the verified digest.
	Digest digest.Digest
	// Strategy is how the artifact was promoted.
	Strategy Strategy
}

// VerifyAndPromote hashes req.TempPath, compares it with req.Expected and
// promotes or removes the temporary file.
func VerifyAndPromote(ctx context.Context, req *Request) (*Outcome, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	m := req.Machine

	if err := m.Advance(cycle.StateVerifying); err != nil {
		return nil, err
	}

	actual, err := digest.File(req.Expected.Algorithm, req.TempPath)
	if err != nil {
		discard(req.TempPath)

		return nil, m.Reject(cycle.Wrap(cycle.KindFileIOFailed, "hash temporary file", err))
	}

	if !actual.EqualHex(req.Expected.Hex()) {
		discard(req.TempPath)
		logger.ErrorKV(ctx, "Digest mismatch, artifact discarded",
			"expected", req.Expected.Hex(), "actual", actual.Hex(), "path", req.TempPath)

		return nil, m.Reject(cycle.Wrap(cycle.KindHashMismatch, "compare",
			fmt.Errorf("expected %s, got %s", req.Expected.Hex(), actual.Hex())))
	}

	logger.DebugKV(ctx, "Digest verified", "algorithm", actual.Algorithm, "digest", actual.Hex())

	strategy := req.Strategy
	if strategy == "" {
		strategy = StrategyRename
	}

	if err = promote(req, strategy); err != nil {
		discard(req.TempPath)

		return nil, m.Reject(cycle.Wrap(cycle.KindPromotionFailed, string(strategy), err))
	}

	if err = m.Advance(cycle.StatePromoted); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Artifact promoted", "path", req.FinalPath, "strategy", strategy)

	return &Outcome{
		Path:     req.FinalPath,
		Digest:   actual,
		Strategy: strategy,
	}, nil
}

// validate rejects requests that could not be processed safely.
func validate(req *Request) error {
	if req.TempPath == "" || req.FinalPath == "" {
		return errPathsRequired
	}

	if filepath.Clean(req.TempPath) == filepath.Clean(req.FinalPath) {
		return errSamePaths
	}

	if req.Expected.IsZero() {
		return errExpectedRequired
	}

	return nil
}

// promote commits the verified temporary file.
func promote(req *Request, strategy Strategy) error {
	mode := req.Mode
	if mode == 0 {
		mode = DefaultFileMode
	}

	switch strategy {
	case StrategyRename:
		return promoteRename(req.TempPath, req.FinalPath, mode)
	case StrategyApply:
		return promoteApply(req, mode)
	default:
		return fmt.Errorf("%q: %w", string(strategy), errUnknownStrategy)
	}
}

// promoteRename makes the rename the single commit point.
func promoteRename(tempPath, finalPath string, mode os.FileMode) error {
	if err := os.Chmod(tempPath, mode); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}

// promoteApply hands the verified bytes to go-update, which checks the
// checksum once more and swaps the file in through a hidden ".<name>.new"
// sibling. go-update needs an existing target, a first install is a rename.
func promoteApply(req *Request, mode os.FileMode) error {
	if _, err := os.Stat(req.FinalPath); errors.Is(err, os.ErrNotExist) {
		return promoteRename(req.TempPath, req.FinalPath, mode)
	}

	hash, err := req.Expected.Algorithm.CryptoHash()
	if err != nil {
		return err
	}

	f, err := os.Open(filepath.Clean(req.TempPath))
	if err != nil {
		return fmt.Errorf("open verified artifact: %w", err)
	}

	options := goupdate.Options{
		TargetPath: req.FinalPath,
		TargetMode: mode,
		Checksum:   req.Expected.Sum,
		Hash:       hash,
	}

	err = goupdate.Apply(f, options)
	_ = f.Close()

	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}

	discard(req.TempPath)

	return nil
}

// discard removes path, ignoring errors: a leftover temporary file is never
// mistaken for a promoted one.
func discard(path string) {
	_ = os.Remove(path)
}
