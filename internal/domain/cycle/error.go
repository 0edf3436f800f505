package cycle

import (
	"errors"
	"fmt"
)

// Kind classifies fatal conditions of a cycle.
type Kind int

// Failure kinds. Every kind aborts the cycle; none is retried internally.
const (
	KindUnknown Kind = iota
	KindResolutionFailed
	KindConnectFailed
	KindSendFailed
	KindMalformedResponse
	KindTruncatedBody
	KindHashMismatch
	KindPromotionFailed
	KindFileIOFailed
)

// Exit codes reported by the loader process.
const (
	// ExitOK is returned when the artifact was verified and promoted.
	ExitOK = 0
	// ExitUsage is returned for configuration and unclassified errors.
	ExitUsage = 1
)

// kindInfo holds the printable name and exit code of a kind.
type kindInfo struct {
	name     string
	exitCode int
}

//nolint:gochecknoglobals // Read-only lookup table.
var kinds = map[Kind]kindInfo{
	KindUnknown:           {"Unknown", ExitUsage},
	KindResolutionFailed:  {"ResolutionFailed", 2},
	KindConnectFailed:     {"ConnectFailed", 3},
	KindSendFailed:        {"SendFailed", 4},
	KindMalformedResponse: {"MalformedResponse", 5},
	KindTruncatedBody:     {"TruncatedBody", 6},
	KindHashMismatch:      {"HashMismatch", 7},
	KindPromotionFailed:   {"PromotionFailed", 8},
	KindFileIOFailed:      {"FileIOFailed", 9},
}

// String returns the kind name.
func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}

	return kinds[KindUnknown].name
}

// ExitCode returns the process exit code for the kind.
func (k Kind) ExitCode() int {
	if info, ok := kinds[k]; ok {
		return info.exitCode
	}

	return ExitUsage
}

// Sentinels to match with errors.Is.
var (
	ErrResolutionFailed  = &Error{Kind: KindResolutionFailed}
	ErrConnectFailed     = &Error{Kind: KindConnectFailed}
	ErrSendFailed        = &Error{Kind: KindSendFailed}
	ErrMalformedResponse = &Error{Kind: KindMalformedResponse}
	ErrTruncatedBody     = &Error{Kind: KindTruncatedBody}
	ErrHashMismatch      = &Error{Kind: KindHashMismatch}
	ErrPromotionFailed   = &Error{Kind: KindPromotionFailed}
	ErrFileIOFailed      = &Error{Kind: KindFileIOFailed}
)

// Error is a classified cycle failure.
type Error struct {
	// Kind is the failure class.
	Kind Kind
	// Op names the step that failed, e.g. "dial" or "rename".
	Op string
	// Err is the underlying cause, may be nil.
	Err error
}

// Wrap classifies err under kind. A nil err still produces an error so that
// callers can report conditions detected without a lower-level cause.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{
		Kind: kind,
		Op:   op,
		Err:  err,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		return e.Kind.String()
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	case e.Op == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels above work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return t.Kind == e.Kind
}

// KindOf extracts the kind from err, KindUnknown if err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindUnknown
}

// ExitCode maps err to the process exit code: ExitOK for nil, the kind's code
// for classified errors and ExitUsage for everything else.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	return KindOf(err).ExitCode()
}
