package cycle

// State is a step of a single fetch-verify-promote cycle.
type State int

// States in the order a cycle passes through them.
const (
	StateInit State = iota
	StateResolving
	StateConnecting
	StateSendingRequest
	StateReceivingHeaders
	StateReceivingBody
	StateVerifying
	StatePromoted
	StateRejected
)

// stateNames maps states to their log representation.
//
//nolint:gochecknoglobals // Read-only lookup table.
var stateNames = map[State]string{
	StateInit:             "init",
	StateResolving:        "resolving",
	StateConnecting:       "connecting",
	StateSendingRequest:   "sending_request",
	StateReceivingHeaders: "receiving_headers",
	StateReceivingBody:    "receiving_body",
	StateVerifying:        "verifying",
	StatePromoted:         "promoted",
	StateRejected:         "rejected",
}

// String returns the state name used in logs.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StatePromoted || s == StateRejected
}

// CanAdvance reports whether moving from s to next is a legal transition.
// Every non-terminal state may fall into Rejected, otherwise transitions only
// move forward by exactly one step, with Verifying ending in Promoted.
func (s State) CanAdvance(next State) bool {
	if s.Terminal() {
		return false
	}

	if next == StateRejected {
		return true
	}

	return next == s+1
}
