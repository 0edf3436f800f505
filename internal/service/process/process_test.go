package process

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestRunning_ExcludesSelf verifies the current process is never reported.
func TestRunning_ExcludesSelf(t *testing.T) {
	t.Parallel()

	self, err := os.Executable()
	require.NoError(t, err)

	ids, err := Running(self)
	require.NoError(t, err)
	require.NotContains(t, ids, os.Getpid())
}

// TestIsRunning_Unknown reports false for a name nothing runs under.
func TestIsRunning_Unknown(t *testing.T) {
	t.Parallel()

	require.False(t, IsRunning(filepath.Join(t.TempDir(), "no-such-stage-binary")))
}

// TestStart launches a shell script that leaves a marker behind.
func TestStart(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("shell script launcher is POSIX only")
	}

	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")
	script := filepath.Join(dir, "next-stage")

	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"$1\" > \""+marker+"\"\n"), 0o755))

	pid, err := Start(context.Background(), script, "hello")
	require.NoError(t, err)
	require.Positive(t, pid)

	require.Eventually(t, func() bool {
		contents, readErr := os.ReadFile(marker)
		return readErr == nil && string(contents) == "hello\n"
	}, 5*time.Second, 20*time.Millisecond)
}

// TestStart_Missing reports a start failure for a missing binary.
func TestStart_Missing(t *testing.T) {
	t.Parallel()

	_, err := Start(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
