package puzzle

import (
	"fmt"

	"github.com/aretw0/hanoi/pkg/domain"
)

// Rules holds the Tower of Hanoi move-legality engine for a given size.
// The top disk of a peg is the smallest-indexed disk on it.
type Rules struct {
	Disks int
	Pegs  int
}

// Classic returns the 3-disk, 3-peg puzzle.
func Classic() Rules {
	return Rules{Disks: 3, Pegs: 3}
}

// Start returns the state with every disk on peg 0.
func (r Rules) Start() domain.State {
	return domain.NewState(r.Disks, 0)
}

// Goal returns the state with every disk on the last peg.
func (r Rules) Goal() domain.State {
	return domain.NewState(r.Disks, r.Pegs-1)
}

// Size is the number of states, Pegs^Disks.
func (r Rules) Size() int {
	n := 1
	for i := 0; i < r.Disks; i++ {
		n *= r.Pegs
	}
	return n
}

// StateSpace enumerates every state, disk 0 varying slowest.
func (r Rules) StateSpace() []domain.State {
	states := make([]domain.State, 0, r.Size())
	for i := 0; i < r.Size(); i++ {
		s := make(domain.State, r.Disks)
		rem := i
		for d := r.Disks - 1; d >= 0; d-- {
			s[d] = rem % r.Pegs
			rem /= r.Pegs
		}
		states = append(states, s)
	}
	return states
}

// DisksOnPeg returns the disks on peg, ascending. The first one is on top.
func (r Rules) DisksOnPeg(state domain.State, peg int) []int {
	var disks []int
	for d, p := range state {
		if p == peg {
			disks = append(disks, d)
		}
	}
	return disks
}

// IsTopDisk reports whether disk is the smallest disk on peg.
func (r Rules) IsTopDisk(state domain.State, disk, peg int) bool {
	disks := r.DisksOnPeg(state, peg)
	return len(disks) > 0 && disks[0] == disk
}

// CanMoveToPeg reports whether disk may be placed on target: it must be empty
// or its top disk must be larger.
func (r Rules) CanMoveToPeg(state domain.State, disk, target int) bool {
	disks := r.DisksOnPeg(state, target)
	if len(disks) == 0 {
		return true
	}
	return disk < disks[0]
}

// ValidActions lists legal moves, disks ascending then target pegs ascending.
func (r Rules) ValidActions(state domain.State) []domain.Action {
	var actions []domain.Action
	for disk := 0; disk < len(state); disk++ {
		from := state[disk]
		if !r.IsTopDisk(state, disk, from) {
			continue
		}
		for to := 0; to < r.Pegs; to++ {
			if to != from && r.CanMoveToPeg(state, disk, to) {
				actions = append(actions, domain.NewAction(disk, from, to))
			}
		}
	}
	return actions
}

// Apply returns the successor state. It does not check legality; see Validate.
func (r Rules) Apply(state domain.State, action domain.Action) domain.State {
	return state.With(action.Disk, action.To)
}

// IsGoal reports whether every disk sits on the last peg.
func (r Rules) IsGoal(state domain.State) bool {
	if len(state) == 0 {
		return false
	}
	for _, peg := range state {
		if peg != r.Pegs-1 {
			return false
		}
	}
	return true
}

// Validate checks a move against the current state.
// The returned error is a *domain.InvalidActionError.
func (r Rules) Validate(state domain.State, action domain.Action) error {
	reject := func(format string, args ...any) error {
		return &domain.InvalidActionError{Action: action, Reason: fmt.Sprintf(format, args...)}
	}

	if action.Disk < 0 || action.Disk >= r.Disks || action.Disk >= len(state) {
		return reject("disk %d out of range", action.Disk)
	}
	if action.From < 0 || action.From >= r.Pegs {
		return reject("from peg %d out of range", action.From)
	}
	if action.To < 0 || action.To >= r.Pegs {
		return reject("to peg %d out of range", action.To)
	}
	if action.From == action.To {
		return reject("from and to are equal: %d", action.From)
	}

	fromDisks := r.DisksOnPeg(state, action.From)
	if state[action.Disk] != action.From {
		return reject("disk %d is not on peg %d", action.Disk, action.From)
	}
	if fromDisks[0] != action.Disk {
		return reject("disk %d is not the top disk on peg %d", action.Disk, action.From)
	}

	toDisks := r.DisksOnPeg(state, action.To)
	if len(toDisks) > 0 && toDisks[0] < action.Disk {
		return reject("cannot place disk %d on smaller disk %d on peg %d", action.Disk, toDisks[0], action.To)
	}
	return nil
}

// ValidState reports whether the state has the right length and only valid pegs.
func (r Rules) ValidState(state domain.State) bool {
	if len(state) != r.Disks {
		return false
	}
	for _, peg := range state {
		if peg < 0 || peg >= r.Pegs {
			return false
		}
	}
	return true
}
