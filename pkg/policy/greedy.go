package policy

import (
	"github.com/aretw0/hanoi/pkg/domain"
	"github.com/aretw0/hanoi/pkg/ports"
	"github.com/aretw0/hanoi/pkg/puzzle"
)

// Map is a deterministic policy: one move per state.
type Map map[domain.StateKey]domain.Action

// Lookup implements the playback lookup signature.
func (m Map) Lookup(key domain.StateKey) (domain.Action, bool) {
	a, ok := m[key]
	return a, ok
}

// Best returns the greedy move for state without inserting into the store.
// Ties keep the first maximum in ValidActions order. The bool is false when
// the state has no legal moves.
func Best(rules puzzle.Rules, store ports.QStore, state domain.State) (domain.Action, bool) {
	actions := rules.ValidActions(state)
	if len(actions) == 0 {
		return domain.Action{}, false
	}

	key := state.Key()
	best := actions[0]
	bestValue := store.Peek(key, best.Key())
	for _, a := range actions[1:] {
		if v := store.Peek(key, a.Key()); v > bestValue {
			best, bestValue = a, v
		}
	}
	return best, true
}

// Extract builds the greedy policy over the whole state space.
func Extract(rules puzzle.Rules, store ports.QStore) Map {
	out := make(Map, rules.Size())
	for _, s := range rules.StateSpace() {
		if a, ok := Best(rules, store, s); ok {
			out[s.Key()] = a
		}
	}
	return out
}
