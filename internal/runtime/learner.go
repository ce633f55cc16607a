package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/aretw0/hanoi/internal/logging"
	"github.com/aretw0/hanoi/pkg/config"
	"github.com/aretw0/hanoi/pkg/domain"
	"github.com/aretw0/hanoi/pkg/policy"
	"github.com/aretw0/hanoi/pkg/ports"
	"github.com/aretw0/hanoi/pkg/puzzle"
	"github.com/google/uuid"
)

// Learner is the TD-control loop. It is Idle until Start is called and returns to
// Idle when the run ends, Stop is called or Reset forces it.
type Learner struct {
	cfg      config.Config
	rules    puzzle.Rules
	store    ports.QStore
	rng      *rand.Rand
	selector policy.EpsilonGreedy
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	sinks    []ports.EventSink

	// ctrl guards the run lifecycle. Lock order: ctrl before mu.
	ctrl       sync.Mutex
	running    bool
	generation uint64
	stop       chan struct{}

	// mu is held for a whole step and guards everything below.
	mu         sync.Mutex
	epsilon    float64
	stats      domain.TrainingStats
	history    []domain.EpisodeEvent
	stepSeq    uint64
	episodeSeq uint64
	resets     uint64
}

// run is the per-Start bookkeeping.
type run struct {
	id     string
	gen    uint64
	stop   <-chan struct{}
	resets uint64
	logger *slog.Logger
}

// episode accumulates the progress of the episode being played.
type episode struct {
	number int
	state  domain.State
	steps  int
	total  float64
	solved bool
}

// NewLearner creates an idle learner. Every legal (state, action) pair missing from
// store is inserted at 0; existing entries are kept.
func NewLearner(cfg config.Config, store ports.QStore, opts ...LearnerOption) *Learner {
	l := &Learner{
		cfg:     cfg,
		rules:   puzzle.Rules{Disks: cfg.Disks, Pegs: cfg.Pegs},
		store:   store,
		logger:  logging.NewNop(),
		epsilon: cfg.Epsilon,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		l.rng = rand.New(rand.NewSource(seed))
	}
	l.selector = policy.EpsilonGreedy{Rules: l.rules, Rand: l.rng}
	l.logger = l.logger.With("component", "learner")

	InitializeAll(l.store, l.rules)
	return l
}

// Start runs up to maxEpisodes episodes and blocks until the run ends.
// If a run is already in progress it logs a warning and returns nil.
// Stop and ctx cancellation end the run without error. A state without legal
// moves aborts the run and is returned.
func (l *Learner) Start(ctx context.Context, maxEpisodes int, stepDelay time.Duration) error {
	r, ok := l.begin()
	if !ok {
		l.logger.Warn("start ignored", "err", domain.ErrAlreadyRunning)
		return nil
	}
	return l.execute(ctx, r, maxEpisodes, stepDelay)
}

// Launch claims the learner and plays the run in a goroutine. The channel
// receives the result of the run and is then closed. Unlike Start, a run
// already in progress is reported with domain.ErrAlreadyRunning.
func (l *Learner) Launch(ctx context.Context, maxEpisodes int, stepDelay time.Duration) (<-chan error, error) {
	r, ok := l.begin()
	if !ok {
		return nil, domain.ErrAlreadyRunning
	}

	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- l.execute(ctx, r, maxEpisodes, stepDelay)
	}()
	return done, nil
}

func (l *Learner) execute(ctx context.Context, r *run, maxEpisodes int, stepDelay time.Duration) error {
	defer l.finish(r.gen)

	r.logger.Info("learning started", "max_episodes", maxEpisodes, "step_delay", stepDelay)

	for i := 0; i < maxEpisodes; i++ {
		halted, err := l.runEpisode(ctx, r, stepDelay)
		if err != nil {
			r.logger.Error("learning aborted", "err", err)
			return err
		}
		if halted || r.halted(ctx) {
			r.logger.Info("learning stopped", "episodes", l.Stats().TotalEpisodes)
			return nil
		}
	}

	stats := l.Stats()
	r.logger.Info("learning finished",
		"episodes", stats.TotalEpisodes,
		"success_rate", stats.SuccessRate(),
		"best_steps", stats.BestSteps,
	)
	return nil
}

// Stop ends the current run cooperatively. The step in progress completes.
func (l *Learner) Stop() {
	l.ctrl.Lock()
	defer l.ctrl.Unlock()
	l.haltLocked()
}

// Reset stops any run, clears the Q-table, statistics and history, restores the
// initial epsilon and re-seeds the table with zeros. It publishes a ResetEvent.
func (l *Learner) Reset() {
	evt, entries := l.clear()

	ctx := context.Background()
	if l.hooks.OnReset != nil {
		l.hooks.OnReset(ctx, evt)
	}
	l.publish(ctx, domain.Event{
		ID:    evt.Count,
		Type:  domain.EventReset,
		Reset: evt,
	})
	l.logger.Info("learner reset", "count", evt.Count, "entries", entries)
}

func (l *Learner) clear() (*domain.ResetEvent, int) {
	l.ctrl.Lock()
	defer l.ctrl.Unlock()
	l.haltLocked()
	l.generation++

	l.mu.Lock()
	defer l.mu.Unlock()

	l.store.Clear()
	InitializeAll(l.store, l.rules)
	l.stats = domain.TrainingStats{}
	l.history = nil
	l.epsilon = l.cfg.Epsilon
	l.resets++

	return &domain.ResetEvent{Count: l.resets}, l.store.Len()
}

// IsRunning reports whether a run is in progress.
func (l *Learner) IsRunning() bool {
	l.ctrl.Lock()
	defer l.ctrl.Unlock()
	return l.running
}

// Snapshot is a consistent view of the learner taken between two steps.
type Snapshot struct {
	Running bool
	Epsilon float64
	Stats   domain.TrainingStats
	Entries int
}

// Snapshot reads the run flag, epsilon, statistics and table size together.
func (l *Learner) Snapshot() Snapshot {
	l.ctrl.Lock()
	defer l.ctrl.Unlock()
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		Running: l.running,
		Epsilon: l.epsilon,
		Stats:   l.stats,
		Entries: l.store.Len(),
	}
}

// Stats returns a snapshot of the training statistics.
func (l *Learner) Stats() domain.TrainingStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// Epsilon returns the current exploration rate.
func (l *Learner) Epsilon() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.epsilon
}

// History returns the most recent episode summaries, oldest first.
func (l *Learner) History() []domain.EpisodeEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.EpisodeEvent, len(l.history))
	copy(out, l.history)
	return out
}

// QValues returns a sorted copy of the Q-table.
func (l *Learner) QValues() []domain.QEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Entries()
}

// Rules returns the puzzle rules the learner plays by.
func (l *Learner) Rules() puzzle.Rules {
	return l.rules
}

func (l *Learner) begin() (*run, bool) {
	l.ctrl.Lock()
	defer l.ctrl.Unlock()
	if l.running {
		return nil, false
	}

	l.running = true
	l.generation++
	stop := make(chan struct{})
	l.stop = stop

	l.mu.Lock()
	resets := l.resets
	l.mu.Unlock()

	id := uuid.NewString()
	return &run{
		id:     id,
		gen:    l.generation,
		stop:   stop,
		resets: resets,
		logger: l.logger.With("run_id", id),
	}, true
}

// finish returns to Idle unless a newer run or a reset took over.
func (l *Learner) finish(gen uint64) {
	l.ctrl.Lock()
	defer l.ctrl.Unlock()
	if l.generation == gen {
		l.running = false
		l.stop = nil
	}
}

func (l *Learner) haltLocked() {
	if l.stop != nil {
		close(l.stop)
		l.stop = nil
	}
	l.running = false
}

// runEpisode plays one episode. halted is true when the run was stopped.
func (l *Learner) runEpisode(ctx context.Context, r *run, stepDelay time.Duration) (halted bool, err error) {
	l.mu.Lock()
	ep := &episode{
		number: l.stats.TotalEpisodes + 1,
		state:  l.rules.Start(),
	}
	l.mu.Unlock()

	for ep.steps < l.cfg.MaxStepsPerEpisode && !ep.solved {
		ok, err := l.step(ctx, r, ep)
		if err != nil {
			return true, fmt.Errorf("episode %d step %d: %w", ep.number, ep.steps+1, err)
		}
		if !ok {
			halted = true
			break
		}
		if !ep.solved && !r.wait(ctx, stepDelay) {
			halted = true
			break
		}
	}

	l.endEpisode(ctx, r, ep)
	return halted, nil
}

// step performs select and update, then emits the step. It returns false
// without touching anything if the run was halted.
func (l *Learner) step(ctx context.Context, r *run, ep *episode) (bool, error) {
	evt, seq, err := l.advance(ctx, r, ep)
	if evt == nil || err != nil {
		return false, err
	}

	// Hooks and sinks run without mu so they may call back into the learner.
	if l.hooks.OnStep != nil {
		l.hooks.OnStep(ctx, evt)
	}
	l.publish(ctx, domain.Event{ID: seq, Type: domain.EventStep, RunID: r.id, Step: evt})
	return true, nil
}

// advance is the locked part of a step. A nil event means the run was halted.
func (l *Learner) advance(ctx context.Context, r *run, ep *episode) (*domain.StepEvent, uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if r.halted(ctx) {
		return nil, 0, nil
	}

	action, err := l.selector.Select(ep.state, l.store, l.epsilon)
	if err != nil {
		return nil, 0, err
	}

	next := l.rules.Apply(ep.state, action)
	solved := l.rules.IsGoal(next)
	reward := l.cfg.StepPenalty
	if solved {
		reward = l.cfg.GoalReward
	}

	u := TDUpdate(l.store, l.rules, ep.state, action, reward, next, l.cfg.Alpha, l.cfg.Gamma)

	ep.steps++
	ep.total += reward

	evt := &domain.StepEvent{
		Episode:      ep.number,
		Step:         ep.steps,
		State:        ep.state.Key(),
		Action:       action,
		ActionKey:    action.Key(),
		Reward:       reward,
		NextState:    next.Key(),
		Value:        stateValue(l.store, l.rules, ep.state),
		CurrentQ:     u.CurrentQ,
		MaxNextQ:     u.MaxNextQ,
		Target:       u.Target,
		NewQ:         u.NewQ,
		Alpha:        l.cfg.Alpha,
		Gamma:        l.cfg.Gamma,
		EpisodeTotal: ep.total,
	}
	l.stepSeq++

	ep.state = next
	ep.solved = solved
	return evt, l.stepSeq, nil
}

// endEpisode records the episode, decays epsilon and publishes the summary.
// Episodes without steps, or interrupted by a reset, are discarded.
func (l *Learner) endEpisode(ctx context.Context, r *run, ep *episode) {
	evt, seq, successRate := l.record(r, ep)
	if evt == nil {
		return
	}

	if l.hooks.OnEpisode != nil {
		l.hooks.OnEpisode(ctx, evt)
	}
	l.publish(ctx, domain.Event{ID: seq, Type: domain.EventEpisode, RunID: r.id, Episode: evt})

	attrs := []any{
		"episode", evt.Episode,
		"steps", evt.Steps,
		"solved", evt.Solved,
		"epsilon", evt.Epsilon,
		"success_rate", successRate,
	}
	if evt.Episode%10 == 0 {
		r.logger.Info("episode finished", attrs...)
	} else {
		r.logger.Debug("episode finished", attrs...)
	}
}

// record folds the episode into the statistics under mu.
func (l *Learner) record(r *run, ep *episode) (*domain.EpisodeEvent, uint64, float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ep.steps == 0 || l.resets != r.resets {
		return nil, 0, 0
	}

	l.stats.Record(ep.steps, ep.solved)
	l.epsilon = math.Max(l.cfg.MinEpsilon, l.epsilon*l.cfg.EpsilonDecay)

	evt := &domain.EpisodeEvent{
		Episode: ep.number,
		Reward:  ep.total,
		Epsilon: l.epsilon,
		Steps:   ep.steps,
		Solved:  ep.solved,
	}
	if l.cfg.HistoryLimit > 0 {
		l.history = append(l.history, *evt)
		if over := len(l.history) - l.cfg.HistoryLimit; over > 0 {
			l.history = append(l.history[:0:0], l.history[over:]...)
		}
	}

	l.episodeSeq++
	return evt, l.episodeSeq, l.stats.SuccessRate()
}

func (l *Learner) publish(ctx context.Context, evt domain.Event) {
	if len(l.sinks) == 0 {
		return
	}
	evt.Timestamp = time.Now()
	for _, s := range l.sinks {
		s.Publish(ctx, evt)
	}
}

func (r *run) halted(ctx context.Context) bool {
	select {
	case <-r.stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// wait sleeps for d. It returns false if the run was halted meanwhile.
func (r *run) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return !r.halted(ctx)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-r.stop:
		return false
	case <-ctx.Done():
		return false
	}
}
