package runtime

import (
	"log/slog"

	"github.com/aretw0/hanoi/pkg/domain"
	"github.com/aretw0/hanoi/pkg/policy"
	"github.com/aretw0/hanoi/pkg/puzzle"
)

// Lookup returns the move a policy takes in a state.
type Lookup func(domain.StateKey) (domain.Action, bool)

// Solve replays a policy from the start state until the goal, a state without a
// policy entry, an illegal policy move, or stepCap moves.
func Solve(rules puzzle.Rules, lookup Lookup, stepCap int, logger *slog.Logger) domain.Trajectory {
	state := rules.Start()
	traj := domain.Trajectory{States: []domain.StateKey{state.Key()}}

	for traj.Steps < stepCap && !rules.IsGoal(state) {
		action, ok := lookup(state.Key())
		if !ok {
			logger.Error("policy playback stopped", "state", state.Key(), "step", traj.Steps, "err", domain.ErrPolicyGap)
			break
		}
		if err := rules.Validate(state, action); err != nil {
			logger.Error("policy playback stopped", "state", state.Key(), "step", traj.Steps, "err", err)
			break
		}

		state = rules.Apply(state, action)
		traj.States = append(traj.States, state.Key())
		traj.Actions = append(traj.Actions, action)
		traj.Steps++
	}

	traj.Solved = rules.IsGoal(state)
	return traj
}

// BestAction returns the greedy move for state. The Q-table is not modified.
func (l *Learner) BestAction(state domain.State) (domain.Action, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return policy.Best(l.rules, l.store, state)
}

// AllBestActions returns the greedy move of every state that has one.
func (l *Learner) AllBestActions() policy.Map {
	l.mu.Lock()
	defer l.mu.Unlock()
	return policy.Extract(l.rules, l.store)
}

// OptimalPolicy is the greedy policy used for playback. It has the same entries as AllBestActions.
func (l *Learner) OptimalPolicy() policy.Map {
	return l.AllBestActions()
}

// SolveWithPolicy replays the current greedy policy from the start state.
func (l *Learner) SolveWithPolicy() domain.Trajectory {
	return Solve(l.rules, l.OptimalPolicy().Lookup, l.cfg.SolveStepCap, l.logger)
}
