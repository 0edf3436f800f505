package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		" Error ": zapcore.ErrorLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	for _, s := range []string{"unknown", "fatal", "panic"} {
		_, ok := ParseLogLevel(s)
		require.False(t, ok, s)
	}
}

// TestContextHelpers verifies that scoped loggers travel through the context.
func TestContextHelpers(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))

	ctx := WithName(context.Background(), "stage-loader")
	require.NotSame(t, Logger(), FromContext(ctx))

	scoped := FromContext(ctx)
	ctx = WithKV(ctx, "host", "example.com")
	require.NotSame(t, scoped, FromContext(ctx))
}

// TestWithFile writes an entry through the rotating sink.
func TestWithFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "loader.log")
	l := New(zapcore.InfoLevel, WithFile(FileOptions{Path: path}))
	l.Infow("fetched", "bytes", 42)
	_ = l.Sync()

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), `"bytes":42`)
}

// TestSetup_RejectsUnknownLevel checks that configuration typos surface.
func TestSetup_RejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	require.Error(t, Setup("verbose", FileOptions{}))
}
