package policy

import (
	"math/rand"

	"github.com/aretw0/hanoi/pkg/domain"
	"github.com/aretw0/hanoi/pkg/ports"
	"github.com/aretw0/hanoi/pkg/puzzle"
)

// EpsilonGreedy picks a uniformly random legal move with probability epsilon and
// the highest-valued legal move otherwise.
// Rand is not safe for concurrent use; callers serialise Select.
type EpsilonGreedy struct {
	Rules puzzle.Rules
	Rand  *rand.Rand
}

// Select returns the move to take in state. Reading Q-values through GetOrInsert
// materialises entries for every considered action.
func (p EpsilonGreedy) Select(state domain.State, store ports.QStore, epsilon float64) (domain.Action, error) {
	actions := p.Rules.ValidActions(state)
	if len(actions) == 0 {
		return domain.Action{}, domain.ErrNoValidActions
	}

	if p.Rand.Float64() < epsilon {
		return actions[p.Rand.Intn(len(actions))], nil
	}

	key := state.Key()
	best := actions[0]
	bestValue := store.GetOrInsert(key, best.Key())
	for _, a := range actions[1:] {
		if v := store.GetOrInsert(key, a.Key()); v > bestValue {
			best, bestValue = a, v
		}
	}
	return best, nil
}
