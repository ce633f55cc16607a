package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// KeySeparator joins the per-disk peg values of a StateKey.
const KeySeparator = "|"

// State is a snapshot of the puzzle.
// State[d] is the peg holding disk d. Disk 0 is the smallest.
type State []int

// StateKey is the canonical, hashable identity of a State (e.g. "0|1|2").
type StateKey string

// NewState creates a state with every disk on the given peg.
func NewState(disks, peg int) State {
	s := make(State, disks)
	for i := range s {
		s[i] = peg
	}
	return s
}

// Key returns the canonical key of the state.
func (s State) Key() StateKey {
	return KeyOf(s)
}

// With returns a copy of the state with disk moved to peg.
// The receiver is never modified.
func (s State) With(disk, peg int) State {
	next := s.Clone()
	next[disk] = peg
	return next
}

// Clone returns an independent copy.
func (s State) Clone() State {
	next := make(State, len(s))
	copy(next, s)
	return next
}

// Equal reports whether both states hold the same disks on the same pegs.
func (s State) Equal(other State) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// KeyOf joins the peg of each disk, in disk order, with KeySeparator.
func KeyOf(s State) StateKey {
	parts := make([]string, len(s))
	for i, peg := range s {
		parts[i] = strconv.Itoa(peg)
	}
	return StateKey(strings.Join(parts, KeySeparator))
}

// State decodes the key back into a State.
func (k StateKey) State() (State, error) {
	if k == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidStateKey)
	}
	parts := strings.Split(string(k), KeySeparator)
	s := make(State, len(parts))
	for i, p := range parts {
		peg, err := strconv.Atoi(p)
		if err != nil || peg < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStateKey, string(k))
		}
		s[i] = peg
	}
	return s, nil
}

func (k StateKey) String() string {
	return string(k)
}
