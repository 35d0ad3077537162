package txlifecycle

import (
	"errors"
	"fmt"
	"time"
)

// State is where a ledger write stands.
type State string

// Lifecycle states.
const (
	StatePrepared  State = "prepared"
	StateSubmitted State = "submitted" // handed to the signer
	StatePending   State = "pending"   // broadcast, awaiting a receipt
	StateConfirmed State = "confirmed"
	StateReverted  State = "reverted"
	StateRejected  State = "rejected"
	StateTimedOut  State = "timed_out"
	StateFailed    State = "failed"
)

// ErrInvalidTransition is returned for a move the lifecycle does not allow.
var ErrInvalidTransition = errors.New("invalid transaction state transition")

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StatePrepared, StateSubmitted, StatePending, StateConfirmed,
		StateReverted, StateRejected, StateTimedOut, StateFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	switch s {
	case StateConfirmed, StateReverted, StateRejected, StateTimedOut, StateFailed:
		return true
	default:
		return false
	}
}

// ValidateTransition checks the lifecycle table:
// prepared  -> submitted|rejected|failed
// submitted -> pending|rejected|failed
// pending   -> confirmed|reverted|timed_out
// terminal states have no exits.
func ValidateTransition(from, to State) error {
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("%w: unknown state", ErrInvalidTransition)
	}
	switch from {
	case StatePrepared:
		if to == StateSubmitted || to == StateRejected || to == StateFailed {
			return nil
		}
	case StateSubmitted:
		if to == StatePending || to == StateRejected || to == StateFailed {
			return nil
		}
	case StatePending:
		if to == StateConfirmed || to == StateReverted || to == StateTimedOut {
			return nil
		}
	case StateConfirmed, StateReverted, StateRejected, StateTimedOut, StateFailed:
		// terminal
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Transition is one entry of an operation's history.
type Transition struct {
	State State     `json:"state"`
	At    time.Time `json:"at"`
}
