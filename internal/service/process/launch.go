package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/oshokin/stage-loader/internal/logger"
)

// ErrUnsupportedOS indicates the current OS is not supported for launching.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// Start launches the executable at path with args as the next stage and does
// not wait for it. The child outlives the loader:
// - Linux/macOS: the binary is started directly with inherited stdio.
// - Windows:     `cmd.exe /C start "" <path> <args>` detaches a console.
func Start(ctx context.Context, path string, args ...string) (int, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", path, err)
	}

	var cmd *exec.Cmd

	osName := strings.ToLower(runtime.GOOS)

	switch {
	case strings.Contains(osName, "linux") || strings.Contains(osName, "darwin"):
		//nolint:gosec,noctx // The path is a verified artifact; the child must outlive ctx.
		cmd = exec.Command(abs, args...)
	case strings.Contains(osName, "windows"):
		//nolint:gosec,noctx // The path is a verified artifact; the child must outlive ctx.
		cmd = exec.Command("cmd.exe", append([]string{"/C", "start", "", abs}, args...)...)
	default:
		return 0, fmt.Errorf("unsupported operating system: %s: %w", runtime.GOOS, ErrUnsupportedOS)
	}

	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err = cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %s: %w", abs, err)
	}

	pid := cmd.Process.Pid

	logger.InfoKV(ctx, "Started next stage", "path", abs, "pid", pid)

	// Nothing waits for the child.
	_ = cmd.Process.Release()

	return pid, nil
}
