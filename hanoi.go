package hanoi

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/aretw0/hanoi/internal/logging"
	"github.com/aretw0/hanoi/internal/runtime"
	"github.com/aretw0/hanoi/pkg/adapters/memory"
	"github.com/aretw0/hanoi/pkg/config"
	"github.com/aretw0/hanoi/pkg/domain"
	"github.com/aretw0/hanoi/pkg/observability"
	"github.com/aretw0/hanoi/pkg/policy"
	"github.com/aretw0/hanoi/pkg/ports"
	"github.com/aretw0/hanoi/pkg/puzzle"
)

// Engine is the high-level entry point for the hanoi library.
// It wraps the internal learner and provides a simplified API for consumers.
type Engine struct {
	cfg          config.Config
	learner      *runtime.Learner
	store        ports.QStore
	stream       *observability.Stream
	streamBuffer int
	hooks        []domain.LifecycleHooks
	sinks        []ports.EventSink
	rng          *rand.Rand
	logger       *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithConfig replaces the default hyperparameters. The config is validated by New.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRand sets the exploration random source, overriding Config.Seed.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		e.rng = r
	}
}

// WithLifecycleHooks registers observability hooks. It may be given more than once.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = append(e.hooks, hooks)
	}
}

// WithSink adds external event sinks (e.g. the Redis publisher).
func WithSink(sinks ...ports.EventSink) Option {
	return func(e *Engine) {
		e.sinks = append(e.sinks, sinks...)
	}
}

// WithStore injects a Q-table, bypassing the default in-memory table.
// Existing entries are kept.
func WithStore(store ports.QStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithStreamBuffer sets the per-subscriber buffer of the event stream.
func WithStreamBuffer(n int) Option {
	return func(e *Engine) {
		e.streamBuffer = n
	}
}

// Status is a point-in-time summary of the engine.
type Status struct {
	Running bool                 `json:"running"`
	Epsilon float64              `json:"epsilon"`
	Stats   domain.TrainingStats `json:"stats"`
	Entries int                  `json:"entries"`
}

// New initializes a new Engine with an idle learner and a zero-seeded Q-table.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{cfg: config.Default()}
	for _, opt := range opts {
		opt(eng)
	}

	if err := config.Validate(eng.cfg); err != nil {
		return nil, err
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.store == nil {
		eng.store = memory.NewTable()
	}
	eng.stream = observability.NewStream(eng.streamBuffer, eng.logger)

	sinks := append([]ports.EventSink{eng.stream}, eng.sinks...)
	learnerOpts := []runtime.LearnerOption{
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(domain.CombineHooks(eng.hooks...)),
		runtime.WithSinks(sinks...),
	}
	if eng.rng != nil {
		learnerOpts = append(learnerOpts, runtime.WithRand(eng.rng))
	}
	eng.learner = runtime.NewLearner(eng.cfg, eng.store, learnerOpts...)

	return eng, nil
}

// StartLearning runs up to maxEpisodes episodes and blocks until the run ends.
// A zero stepDelay runs at full speed. Calling it while a run is active is a no-op.
func (e *Engine) StartLearning(ctx context.Context, maxEpisodes int, stepDelay time.Duration) error {
	if err := checkRunArgs(maxEpisodes, stepDelay); err != nil {
		return err
	}
	return e.learner.Start(ctx, maxEpisodes, stepDelay)
}

// StartLearningAsync runs StartLearning in a goroutine. The channel receives the
// result and is then closed.
func (e *Engine) StartLearningAsync(ctx context.Context, maxEpisodes int, stepDelay time.Duration) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- e.StartLearning(ctx, maxEpisodes, stepDelay)
	}()
	return done
}

// TryStartLearning starts a run in the background and reports whether it did:
// a run already in progress yields domain.ErrAlreadyRunning instead of a no-op.
// The channel receives the result of the run and is then closed.
func (e *Engine) TryStartLearning(ctx context.Context, maxEpisodes int, stepDelay time.Duration) (<-chan error, error) {
	if err := checkRunArgs(maxEpisodes, stepDelay); err != nil {
		return nil, err
	}
	return e.learner.Launch(ctx, maxEpisodes, stepDelay)
}

func checkRunArgs(maxEpisodes int, stepDelay time.Duration) error {
	if maxEpisodes <= 0 {
		return fmt.Errorf("%w: max episodes must be positive, got %d", domain.ErrInvalidArgument, maxEpisodes)
	}
	if stepDelay < 0 {
		return fmt.Errorf("%w: step delay must not be negative, got %s", domain.ErrInvalidArgument, stepDelay)
	}
	return nil
}

// StopLearning ends the current run after the step in progress.
func (e *Engine) StopLearning() {
	e.learner.Stop()
}

// Reset stops any run and reinitializes the Q-table and statistics.
func (e *Engine) Reset() {
	e.learner.Reset()
}

// IsRunning reports whether a learning run is active.
func (e *Engine) IsRunning() bool {
	return e.learner.IsRunning()
}

// BestAction returns the greedy move for state without modifying the Q-table.
func (e *Engine) BestAction(state domain.State) (domain.Action, bool) {
	return e.learner.BestAction(state)
}

// AllBestActions returns the greedy move for every state, for "best move" overlays.
func (e *Engine) AllBestActions() policy.Map {
	return e.learner.AllBestActions()
}

// OptimalPolicy returns the greedy policy over the whole state space.
func (e *Engine) OptimalPolicy() policy.Map {
	return e.learner.OptimalPolicy()
}

// SolveWithPolicy replays the learned greedy policy from the start state.
func (e *Engine) SolveWithPolicy() domain.Trajectory {
	return e.learner.SolveWithPolicy()
}

// Solve replays an arbitrary policy, such as policy.OptimalThreeDisk.
func (e *Engine) Solve(p policy.Map) domain.Trajectory {
	return runtime.Solve(e.learner.Rules(), p.Lookup, e.cfg.SolveStepCap, e.logger)
}

// Stats returns a snapshot of the training statistics.
func (e *Engine) Stats() domain.TrainingStats {
	return e.learner.Stats()
}

// Epsilon returns the current exploration rate.
func (e *Engine) Epsilon() float64 {
	return e.learner.Epsilon()
}

// QValues returns the Q-table sorted by state and action.
func (e *Engine) QValues() []domain.QEntry {
	return e.learner.QValues()
}

// History returns recent episode summaries, oldest first.
func (e *Engine) History() []domain.EpisodeEvent {
	return e.learner.History()
}

// Status summarises the engine. All fields are read together between two steps.
func (e *Engine) Status() Status {
	snap := e.learner.Snapshot()
	return Status{
		Running: snap.Running,
		Epsilon: snap.Epsilon,
		Stats:   snap.Stats,
		Entries: snap.Entries,
	}
}

// ValidateMove checks a move against state. Errors wrap domain.ErrInvalidAction.
func (e *Engine) ValidateMove(state domain.State, action domain.Action) error {
	rules := e.learner.Rules()
	if !rules.ValidState(state) {
		return &domain.InvalidActionError{Action: action, Reason: fmt.Sprintf("state %v is not a valid %d-disk state", state, rules.Disks)}
	}
	return rules.Validate(state, action)
}

// NewBoard returns a board for manual play with the engine's rules.
func (e *Engine) NewBoard() *puzzle.Board {
	return puzzle.NewBoard(e.learner.Rules())
}

// Events returns the in-process event stream.
func (e *Engine) Events() *observability.Stream {
	return e.stream
}

// Rules returns the puzzle rules.
func (e *Engine) Rules() puzzle.Rules {
	return e.learner.Rules()
}

// Config returns the hyperparameters the engine was built with.
func (e *Engine) Config() config.Config {
	return e.cfg
}
