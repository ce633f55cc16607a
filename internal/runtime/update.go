package runtime

import (
	"github.com/aretw0/hanoi/pkg/domain"
	"github.com/aretw0/hanoi/pkg/ports"
	"github.com/aretw0/hanoi/pkg/puzzle"
)

// Update carries the arithmetic of one TD backup.
type Update struct {
	CurrentQ float64
	MaxNextQ float64
	Target   float64
	NewQ     float64
}

// TDUpdate applies the Q-learning backup for taking action in state and landing in next:
//
//	target = reward + gamma * max_a' Q(next, a')
//	Q(state, action) += alpha * (target - Q(state, action))
//
// The max over an empty action set is 0. Values are read with GetOrInsert.
func TDUpdate(store ports.QStore, rules puzzle.Rules, state domain.State, action domain.Action, reward float64, next domain.State, alpha, gamma float64) Update {
	key := state.Key()
	u := Update{CurrentQ: store.GetOrInsert(key, action.Key())}

	nextKey := next.Key()
	for i, a := range rules.ValidActions(next) {
		v := store.GetOrInsert(nextKey, a.Key())
		if i == 0 || v > u.MaxNextQ {
			u.MaxNextQ = v
		}
	}

	u.Target = reward + gamma*u.MaxNextQ
	u.NewQ = u.CurrentQ + alpha*(u.Target-u.CurrentQ)
	store.Set(key, action.Key(), u.NewQ)
	return u
}

// InitializeAll inserts a zero entry for every legal (state, action) pair that is missing.
func InitializeAll(store ports.QStore, rules puzzle.Rules) {
	for _, s := range rules.StateSpace() {
		key := s.Key()
		for _, a := range rules.ValidActions(s) {
			store.GetOrInsert(key, a.Key())
		}
	}
}

// stateValue is the best Q-value of state, read without inserting.
func stateValue(store ports.QStore, rules puzzle.Rules, state domain.State) float64 {
	var best float64
	key := state.Key()
	for i, a := range rules.ValidActions(state) {
		if v := store.Peek(key, a.Key()); i == 0 || v > best {
			best = v
		}
	}
	return best
}
