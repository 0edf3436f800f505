package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/stage-loader/internal/digest"
)

// validDigest returns the SHA-512 hex digest of "payload".
func validDigest(t *testing.T) string {
	t.Helper()

	d, err := digest.Bytes(digest.SHA512, []byte("payload"))
	require.NoError(t, err)

	return d.Hex()
}

// TestValidate checks required fields and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing host.
	err := Validate(new(Config))
	require.ErrorIs(t, err, errHostRequired)

	// Missing digest.
	err = Validate(&Config{Host: "example.com"})
	require.ErrorIs(t, err, errDigestRequired)

	// Uppercase digest.
	err = Validate(&Config{Host: "example.com", ExpectedDigest: strings.ToUpper(validDigest(t))})
	require.ErrorIs(t, err, digest.ErrInvalidHex)

	// Bad port.
	err = Validate(&Config{Host: "example.com", Port: 70000, ExpectedDigest: validDigest(t)})
	require.ErrorIs(t, err, errInvalidPort)

	// Relative path.
	err = Validate(&Config{Host: "example.com", Path: "payload", ExpectedDigest: validDigest(t)})
	require.ErrorIs(t, err, errInvalidPath)

	// Unknown promotion.
	err = Validate(&Config{Host: "example.com", Promotion: "copy", ExpectedDigest: validDigest(t)})
	require.Error(t, err)

	// Digest of another algorithm.
	err = Validate(&Config{Host: "example.com", Algorithm: "sha256", ExpectedDigest: validDigest(t)})
	require.ErrorIs(t, err, digest.ErrInvalidHex)
}

// TestValidate_Defaults checks that defaults are filled in.
func TestValidate_Defaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Host:           " example.com ",
		ExpectedDigest: validDigest(t),
	}

	require.NoError(t, Validate(cfg))
	require.Equal(t, "example.com", cfg.Host)
	require.Equal(t, 80, cfg.Port)
	require.Equal(t, "/"+validDigest(t), cfg.Path)
	require.Equal(t, "sha512", cfg.Algorithm)
	require.Equal(t, DefaultOutput, cfg.Output)
	require.Equal(t, DefaultOutput+DefaultTempSuffix, cfg.TempPath())
	require.Equal(t, 30*time.Second, cfg.ReadTimeout)
	require.Equal(t, PromotionAuto, cfg.Promotion)
	require.Equal(t, DefaultLogLevel, cfg.LogLevel)

	expected, err := cfg.Expected()
	require.NoError(t, err)
	require.Equal(t, validDigest(t), expected.Hex())
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := &Config{
		Host:           "ggcmd.example.net",
		Port:           8080,
		ExpectedDigest: validDigest(t),
		Output:         filepath.Join(dir, "stage4"),
		ReadTimeout:    5 * time.Second,
		Promotion:      "apply",
		ExecArgs:       []string{"--help"},
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestLoadOrEmpty tolerates a missing default file only.
func TestLoadOrEmpty(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "missing.yaml")

	cfg, err := LoadOrEmpty(missing, false)
	require.NoError(t, err)
	require.Equal(t, new(Config), cfg)

	_, err = LoadOrEmpty(missing, true)
	require.ErrorIs(t, err, os.ErrNotExist)
}
