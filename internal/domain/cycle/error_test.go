package cycle

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestError_IsMatchesKind verifies that wrapped errors match sentinels by kind only.
func TestError_IsMatchesKind(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("fetch: %w", Wrap(KindTruncatedBody, "read body", io.ErrUnexpectedEOF))

	require.ErrorIs(t, err, ErrTruncatedBody)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.NotErrorIs(t, err, ErrHashMismatch)
	require.Equal(t, KindTruncatedBody, KindOf(err))
}

// TestError_Message checks the message layout with and without op and cause.
func TestError_Message(t *testing.T) {
	t.Parallel()

	require.Equal(t, "HashMismatch", Wrap(KindHashMismatch, "", nil).Error())
	require.Equal(t, "HashMismatch: compare", Wrap(KindHashMismatch, "compare", nil).Error())
	require.Equal(t, "SendFailed: boom", Wrap(KindSendFailed, "", errors.New("boom")).Error())
	require.Equal(t, "ConnectFailed: dial: boom", Wrap(KindConnectFailed, "dial", errors.New("boom")).Error())
}

// TestExitCode verifies the exit code table.
func TestExitCode(t *testing.T) {
	t.Parallel()

	require.Equal(t, ExitOK, ExitCode(nil))
	require.Equal(t, ExitUsage, ExitCode(errors.New("plain")))

	seen := make(map[int]Kind)

	for kind := KindResolutionFailed; kind <= KindFileIOFailed; kind++ {
		code := ExitCode(Wrap(kind, "op", nil))
		require.NotEqual(t, ExitOK, code, kind.String())
		require.NotEqual(t, ExitUsage, code, kind.String())

		other, dup := seen[code]
		require.False(t, dup, "%s shares exit code with %s", kind, other)

		seen[code] = kind
	}
}

// TestState_CanAdvance checks the forward-only transitions.
func TestState_CanAdvance(t *testing.T) {
	t.Parallel()

	for s := StateInit; s < StateVerifying; s++ {
		require.True(t, s.CanAdvance(s+1), s.String())
		require.True(t, s.CanAdvance(StateRejected), s.String())
		require.False(t, (s + 1).CanAdvance(s), s.String())
	}

	require.True(t, StateVerifying.CanAdvance(StatePromoted))
	require.False(t, StatePromoted.CanAdvance(StateRejected))
	require.False(t, StateRejected.CanAdvance(StateInit))
	require.False(t, StateInit.CanAdvance(StateVerifying))
	require.Equal(t, "receiving_body", StateReceivingBody.String())
	require.Equal(t, "unknown", State(42).String())
}
