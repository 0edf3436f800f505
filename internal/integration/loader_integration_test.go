package integration

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/stage-loader/internal/config"
	"github.com/oshokin/stage-loader/internal/domain/cycle"
	"github.com/oshokin/stage-loader/internal/service/hasher"
	"github.com/oshokin/stage-loader/internal/service/loader"
)

// stageServer serves payloads addressed by their SHA-512 digest, like the
// static hosting the loader is built for.
type stageServer struct {
	// payloads maps "/<hex>" paths to bodies.
	payloads map[string][]byte
	// tamper flips one byte of every body while keeping Content-Length.
	tamper atomic.Bool
	// status is written instead of 200 when non-zero.
	status int
	// server is the underlying listener.
	server *httptest.Server
}

// newStageServer starts a server for the given payloads.
func newStageServer(t *testing.T, payloads ...[]byte) *stageServer {
	t.Helper()

	s := &stageServer{payloads: make(map[string][]byte, len(payloads))}
	for _, p := range payloads {
		s.payloads["/"+sha512Hex(p)] = p
	}

	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := s.payloads[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}

		if s.tamper.Load() {
			body = bytes.Clone(body)
			body[len(body)/2] ^= 0x01
		}

		w.Header().Set("Content-Length", strconv.Itoa(len(body)))

		if s.status != 0 {
			w.WriteHeader(s.status)
		}

		_, _ = w.Write(body)
	}))

	t.Cleanup(s.server.Close)

	return s
}

// port returns the listening port.
func (s *stageServer) port(t *testing.T) int {
	t.Helper()

	addr, ok := s.server.Listener.Addr().(*net.TCPAddr)
	require.True(t, ok)

	return addr.Port
}

// sha512Hex returns the lowercase hex SHA-512 of data.
func sha512Hex(data []byte) string {
	sum := sha512.Sum512(data)

	return hex.EncodeToString(sum[:])
}

// randomPayload returns n random bytes.
func randomPayload(t *testing.T, n int) []byte {
	t.Helper()

	payload := make([]byte, n)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	return payload
}

// runLoader runs one cycle against s with a config file using bufferSize reads.
func runLoader(t *testing.T, s *stageServer, expected, output string, bufferSize int) error {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, config.Save(cfgPath, &config.Config{
		Host:           "127.0.0.1",
		Port:           s.port(t),
		ExpectedDigest: expected,
		Output:         output,
		ReadBufferSize: bufferSize,
		Promotion:      "rename",
	}))

	options := &loader.Options{
		ConfigPath:     cfgPath,
		ConfigExplicit: true,
		Stdout:         new(bytes.Buffer),
	}

	return loader.Run(context.Background(), options)
}

// requireMissing asserts that path does not exist.
func requireMissing(t *testing.T, path string) {
	t.Helper()

	_, err := os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestLoader_RoundTrip promotes a byte-identical copy of the served file.
func TestLoader_RoundTrip(t *testing.T) {
	t.Parallel()

	payload := randomPayload(t, 1<<20)
	s := newStageServer(t, payload)
	output := filepath.Join(t.TempDir(), "stage4")

	err := runLoader(t, s, sha512Hex(payload), output, 0)
	require.NoError(t, err)
	require.Equal(t, cycle.ExitOK, cycle.ExitCode(err))

	got, err := os.ReadFile(output)
	require.NoError(t, err)
	require.Equal(t, payload, got)
	requireMissing(t, output+config.DefaultTempSuffix)
}

// TestLoader_ReadSizes produces the same artifact for every read buffer size.
func TestLoader_ReadSizes(t *testing.T) {
	t.Parallel()

	payload := randomPayload(t, 70_001)
	s := newStageServer(t, payload)

	for _, size := range []int{1, 17, 65536} {
		output := filepath.Join(t.TempDir(), "stage")

		require.NoError(t, runLoader(t, s, sha512Hex(payload), output, size), "buffer %d", size)

		got, err := os.ReadFile(output)
		require.NoError(t, err)
		require.Equal(t, payload, got, "buffer %d", size)
	}
}

// TestLoader_TamperKeepsPreviousArtifact leaves the last verified artifact in place.
func TestLoader_TamperKeepsPreviousArtifact(t *testing.T) {
	t.Parallel()

	payload := randomPayload(t, 4096)
	s := newStageServer(t, payload)
	output := filepath.Join(t.TempDir(), "stage")

	require.NoError(t, runLoader(t, s, sha512Hex(payload), output, 0))

	s.tamper.Store(true)

	err := runLoader(t, s, sha512Hex(payload), output, 0)
	require.ErrorIs(t, err, cycle.ErrHashMismatch)
	require.Equal(t, cycle.KindHashMismatch.ExitCode(), cycle.ExitCode(err))
	requireMissing(t, output+config.DefaultTempSuffix)

	got, err := os.ReadFile(output)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

// TestLoader_TamperFirstInstall leaves nothing behind.
func TestLoader_TamperFirstInstall(t *testing.T) {
	t.Parallel()

	payload := randomPayload(t, 4096)
	s := newStageServer(t, payload)
	s.tamper.Store(true)

	output := filepath.Join(t.TempDir(), "stage")

	err := runLoader(t, s, sha512Hex(payload), output, 0)
	require.ErrorIs(t, err, cycle.ErrHashMismatch)
	requireMissing(t, output)
	requireMissing(t, output+config.DefaultTempSuffix)
}

// TestLoader_Idempotent re-fetches identical content over a promoted artifact.
func TestLoader_Idempotent(t *testing.T) {
	t.Parallel()

	payload := randomPayload(t, 10_000)
	s := newStageServer(t, payload)
	output := filepath.Join(t.TempDir(), "stage")

	for i := 0; i < 2; i++ {
		require.NoError(t, runLoader(t, s, sha512Hex(payload), output, 0))
	}

	var out bytes.Buffer

	err := hasher.Run(context.Background(), &hasher.Options{
		Paths:    []string{output},
		Expected: sha512Hex(payload),
		Stdout:   &out,
	})
	require.NoError(t, err)
	require.Equal(t, sha512Hex(payload)+"\n", out.String())
}

// TestLoader_StatusIgnored accepts a body with a matching digest whatever the status.
func TestLoader_StatusIgnored(t *testing.T) {
	t.Parallel()

	payload := []byte("served with an odd status")
	s := newStageServer(t, payload)
	s.status = http.StatusAccepted
	output := filepath.Join(t.TempDir(), "stage")

	require.NoError(t, runLoader(t, s, sha512Hex(payload), output, 0))

	// A 404 page has its own Content-Length and fails verification instead.
	other := randomPayload(t, 128)
	err := runLoader(t, s, sha512Hex(other), filepath.Join(t.TempDir(), "stage"), 0)
	require.ErrorIs(t, err, cycle.ErrHashMismatch)
}

// TestLoader_ConnectFailed maps a refused connection to its exit code.
func TestLoader_ConnectFailed(t *testing.T) {
	t.Parallel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr, ok := lis.Addr().(*net.TCPAddr)
	require.True(t, ok)
	require.NoError(t, lis.Close())

	output := filepath.Join(t.TempDir(), "stage")

	err = loader.Run(context.Background(), &loader.Options{
		ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"),
		Overrides: loader.Overrides{
			Host:           "127.0.0.1",
			Port:           addr.Port,
			ExpectedDigest: sha512Hex(nil),
			Output:         output,
			Quiet:          true,
		},
	})
	require.ErrorIs(t, err, cycle.ErrConnectFailed)
	require.Equal(t, cycle.KindConnectFailed.ExitCode(), cycle.ExitCode(err))
	requireMissing(t, output+config.DefaultTempSuffix)
}
