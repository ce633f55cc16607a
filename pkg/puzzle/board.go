package puzzle

import "github.com/aretw0/hanoi/pkg/domain"

// Board is an interactive puzzle for manual play. Every move is validated.
// Not safe for concurrent use.
type Board struct {
	rules Rules
	state domain.State
	moves []domain.Action
}

// NewBoard creates a board at the start state.
func NewBoard(rules Rules) *Board {
	return &Board{
		rules: rules,
		state: rules.Start(),
	}
}

// Move applies the action if it is legal.
func (b *Board) Move(action domain.Action) error {
	if err := b.rules.Validate(b.state, action); err != nil {
		return err
	}
	b.state = b.rules.Apply(b.state, action)
	b.moves = append(b.moves, action)
	return nil
}

// MovePeg moves the top disk of from onto to.
func (b *Board) MovePeg(from, to int) error {
	disk := -1
	if from >= 0 && from < b.rules.Pegs {
		if disks := b.rules.DisksOnPeg(b.state, from); len(disks) > 0 {
			disk = disks[0]
		}
	}
	if disk < 0 {
		return &domain.InvalidActionError{
			Action: domain.NewAction(disk, from, to),
			Reason: "no disk on source peg",
		}
	}
	return b.Move(domain.NewAction(disk, from, to))
}

// Reset puts every disk back on peg 0.
func (b *Board) Reset() {
	b.state = b.rules.Start()
	b.moves = nil
}

// IsSolved reports whether the goal was reached.
func (b *Board) IsSolved() bool {
	return b.rules.IsGoal(b.state)
}

// State returns a copy of the current state.
func (b *Board) State() domain.State {
	return b.state.Clone()
}

// Moves returns the moves played since the last reset.
func (b *Board) Moves() []domain.Action {
	out := make([]domain.Action, len(b.moves))
	copy(out, b.moves)
	return out
}

// Rules returns the rules the board plays by.
func (b *Board) Rules() Rules {
	return b.rules
}
