package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidAction is returned by explicit move validation. Use errors.As with
// *InvalidActionError to get the reason.
var ErrInvalidAction = errors.New("invalid action")

// ErrNoValidActions is returned when an action is requested for a state without legal moves.
// It cannot happen on a well-formed Hanoi state and indicates a modelling bug.
var ErrNoValidActions = errors.New("no valid actions available")

// ErrAlreadyRunning is logged when learning is started twice.
var ErrAlreadyRunning = errors.New("learning already running")

// ErrPolicyGap is logged when playback reaches a state without a policy entry.
var ErrPolicyGap = errors.New("no policy for state")

// ErrInvalidArgument is returned for out-of-range request parameters such as a non-positive episode count.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrInvalidStateKey is returned when a StateKey cannot be decoded.
var ErrInvalidStateKey = errors.New("invalid state key")

// InvalidActionError describes why a move was rejected.
type InvalidActionError struct {
	Action Action
	Reason string
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("invalid action %s: %s", e.Action, e.Reason)
}

func (e *InvalidActionError) Unwrap() error {
	return ErrInvalidAction
}
