package cycle

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition is returned when a transition would move backwards or skip a step.
var ErrIllegalTransition = errors.New("illegal state transition")

// Machine tracks the State of one cycle. The zero value starts in StateInit.
// A nil *Machine accepts every call and records nothing.
type Machine struct {
	// state is the current step.
	state State
	// onChange is notified after every successful transition.
	onChange func(from, to State)
}

// NewMachine returns a machine in StateInit reporting transitions to onChange.
func NewMachine(onChange func(from, to State)) *Machine {
	return &Machine{
		onChange: onChange,
	}
}

// State returns the current state.
func (m *Machine) State() State {
	if m == nil {
		return StateInit
	}

	return m.state
}

// Advance moves to next if the transition is legal.
func (m *Machine) Advance(next State) error {
	if m == nil {
		return nil
	}

	if !m.state.CanAdvance(next) {
		return fmt.Errorf("%s -> %s: %w", m.state, next, ErrIllegalTransition)
	}

	from := m.state
	m.state = next

	if m.onChange != nil {
		m.onChange(from, next)
	}

	return nil
}

// Reject moves to StateRejected unless the machine already finished and
// returns err unchanged, so it can wrap a return statement.
func (m *Machine) Reject(err error) error {
	if m == nil || m.state.Terminal() {
		return err
	}

	_ = m.Advance(StateRejected)

	return err
}
