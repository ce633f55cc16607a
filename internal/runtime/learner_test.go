package runtime_test

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/hanoi/internal/runtime"
	"github.com/aretw0/hanoi/pkg/adapters/memory"
	"github.com/aretw0/hanoi/pkg/config"
	"github.com/aretw0/hanoi/pkg/domain"
	"github.com/aretw0/hanoi/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Publish(_ context.Context, evt domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) ofType(typ domain.EventType) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Event
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func seeded(seed int64) config.Config {
	cfg := config.Default()
	cfg.Seed = seed
	return cfg
}

func startAsync(ctx context.Context, l *runtime.Learner, episodes int, delay time.Duration) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- l.Start(ctx, episodes, delay)
	}()
	return done
}

func TestLearner_Convergence(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping convergence run in short mode")
	}

	for seed := int64(1); seed <= 10; seed++ {
		l := runtime.NewLearner(seeded(seed), memory.NewTable())
		require.NoError(t, l.Start(context.Background(), 300, 0))

		stats := l.Stats()
		assert.Equal(t, 300, stats.TotalEpisodes, "seed %d", seed)

		history := l.History()
		require.Len(t, history, 300)
		for _, ep := range history[len(history)-20:] {
			assert.True(t, ep.Solved, "seed %d episode %d", seed, ep.Episode)
		}

		traj := l.SolveWithPolicy()
		assert.True(t, traj.Solved, "seed %d", seed)
		assert.Equal(t, 7, traj.Steps, "seed %d", seed)
	}
}

func TestLearner_SeededRunFindsOptimalPath(t *testing.T) {
	l := runtime.NewLearner(seeded(1), memory.NewTable())
	require.NoError(t, l.Start(context.Background(), 300, 0))

	traj := l.SolveWithPolicy()
	require.True(t, traj.Solved)
	require.Equal(t, 7, traj.Steps)
	assert.Equal(t, []domain.Action{
		domain.NewAction(0, 0, 2),
		domain.NewAction(1, 0, 1),
		domain.NewAction(0, 2, 1),
		domain.NewAction(2, 0, 2),
		domain.NewAction(0, 1, 0),
		domain.NewAction(1, 1, 2),
		domain.NewAction(0, 0, 2),
	}, traj.Actions)
	assert.Equal(t, 7, l.Stats().BestSteps)
}

func TestLearner_EpsilonFloor(t *testing.T) {
	l := runtime.NewLearner(seeded(3), memory.NewTable())
	assert.Equal(t, 0.9, l.Epsilon())

	require.NoError(t, l.Start(context.Background(), 1, 0))
	assert.InDelta(t, 0.81, l.Epsilon(), 1e-9)

	require.NoError(t, l.Start(context.Background(), 100, 0))
	assert.Equal(t, 0.01, l.Epsilon())

	history := l.History()
	for i := 1; i < len(history); i++ {
		assert.LessOrEqual(t, history[i].Epsilon, history[i-1].Epsilon)
		assert.GreaterOrEqual(t, history[i].Epsilon, 0.01)
	}
}

func TestLearner_StatsAccumulate(t *testing.T) {
	l := runtime.NewLearner(seeded(5), memory.NewTable())

	require.NoError(t, l.Start(context.Background(), 20, 0))
	require.NoError(t, l.Start(context.Background(), 30, 0))

	stats := l.Stats()
	assert.Equal(t, 50, stats.TotalEpisodes)
	assert.LessOrEqual(t, stats.SuccessfulEpisodes, 50)
	if stats.SuccessfulEpisodes > 0 {
		assert.GreaterOrEqual(t, stats.BestSteps, 7)
	}
	assert.Greater(t, stats.AverageSteps, 0.0)
	assert.LessOrEqual(t, stats.AverageSteps, 50.0)
}

func TestLearner_Events(t *testing.T) {
	rec := &recorder{}
	var hookSteps, hookEpisodes int
	hooks := domain.LifecycleHooks{
		OnStep:    func(context.Context, *domain.StepEvent) { hookSteps++ },
		OnEpisode: func(context.Context, *domain.EpisodeEvent) { hookEpisodes++ },
	}

	cfg := seeded(11)
	l := runtime.NewLearner(cfg, memory.NewTable(), runtime.WithSinks(rec), runtime.WithLifecycleHooks(hooks))
	require.NoError(t, l.Start(context.Background(), 3, 0))

	steps := rec.ofType(domain.EventStep)
	episodes := rec.ofType(domain.EventEpisode)
	require.Len(t, episodes, 3)
	assert.Len(t, steps, hookSteps)
	assert.Equal(t, 3, hookEpisodes)

	runID := steps[0].RunID
	assert.NotEmpty(t, runID)

	total := 0
	for i, e := range episodes {
		assert.Equal(t, uint64(i+1), e.ID)
		assert.Equal(t, i+1, e.Episode.Episode)
		assert.Equal(t, runID, e.RunID)
		total += e.Episode.Steps
	}
	assert.Equal(t, total, len(steps))

	for i, e := range steps {
		assert.Equal(t, uint64(i+1), e.ID)
		assert.False(t, e.Timestamp.IsZero())

		s := e.Step
		require.NotNil(t, s)
		assert.Equal(t, s.Action.Key(), s.ActionKey)
		assert.InDelta(t, s.Reward+cfg.Gamma*s.MaxNextQ, s.Target, 1e-9)
		assert.InDelta(t, s.CurrentQ+cfg.Alpha*(s.Target-s.CurrentQ), s.NewQ, 1e-9)
		if s.NextState == "2|2|2" {
			assert.Equal(t, cfg.GoalReward, s.Reward)
		} else {
			assert.Equal(t, cfg.StepPenalty, s.Reward)
		}
	}

	// The last step of the first episode carries its total reward.
	first := episodes[0].Episode
	assert.InDelta(t, first.Reward, steps[first.Steps-1].Step.EpisodeTotal, 1e-9)
}

func TestLearner_StartWhileRunningIsNoop(t *testing.T) {
	l := runtime.NewLearner(seeded(1), memory.NewTable())
	ctx := context.Background()

	done := startAsync(ctx, l, 1000, time.Millisecond)
	require.Eventually(t, l.IsRunning, time.Second, time.Millisecond)

	second := make(chan error, 1)
	go func() { second <- l.Start(ctx, 5, 0) }()
	select {
	case err := <-second:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("second Start did not return")
	}
	assert.True(t, l.IsRunning())

	l.Stop()
	assert.False(t, l.IsRunning())
	require.NoError(t, <-done)
}

func TestLearner_StopAndResume(t *testing.T) {
	var l *runtime.Learner
	steps := 0
	hooks := domain.LifecycleHooks{
		OnStep: func(context.Context, *domain.StepEvent) {
			steps++
			if steps == 30 {
				l.Stop()
			}
		},
	}
	l = runtime.NewLearner(seeded(2), memory.NewTable(), runtime.WithLifecycleHooks(hooks))

	require.NoError(t, l.Start(context.Background(), 100, 0))
	assert.False(t, l.IsRunning())
	assert.Equal(t, 30, steps)

	before := l.Stats()
	assert.Greater(t, before.TotalEpisodes, 0)
	assert.Less(t, before.TotalEpisodes, 100)

	learned := 0
	for _, e := range l.QValues() {
		if e.Value != 0 {
			learned++
		}
	}
	assert.Greater(t, learned, 0)

	require.NoError(t, l.Start(context.Background(), 5, 0))
	assert.Equal(t, before.TotalEpisodes+5, l.Stats().TotalEpisodes)
}

func TestLearner_ContextCancelStops(t *testing.T) {
	l := runtime.NewLearner(seeded(4), memory.NewTable())
	ctx, cancel := context.WithCancel(context.Background())

	done := startAsync(ctx, l, 1000, time.Millisecond)
	require.Eventually(t, l.IsRunning, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("learner did not stop on cancel")
	}
	assert.False(t, l.IsRunning())
}

func TestLearner_ResetForcesIdle(t *testing.T) {
	rec := &recorder{}
	var resets []uint64
	hooks := domain.LifecycleHooks{
		OnReset: func(_ context.Context, e *domain.ResetEvent) { resets = append(resets, e.Count) },
	}
	store := memory.NewTable()
	l := runtime.NewLearner(seeded(9), store, runtime.WithSinks(rec), runtime.WithLifecycleHooks(hooks))
	size := store.Len()

	done := startAsync(context.Background(), l, 1000, time.Millisecond)
	require.Eventually(t, func() bool { return l.Stats().TotalEpisodes > 2 }, 5*time.Second, time.Millisecond)

	l.Reset()
	assert.False(t, l.IsRunning())
	require.NoError(t, <-done)

	assert.Equal(t, domain.TrainingStats{}, l.Stats())
	assert.Empty(t, l.History())
	assert.Equal(t, 0.9, l.Epsilon())
	assert.Equal(t, size, store.Len())
	for _, e := range l.QValues() {
		assert.Zero(t, e.Value, "entry %s %s", e.State, e.Action)
	}

	l.Reset()
	assert.Equal(t, []uint64{1, 2}, resets)
	events := rec.ofType(domain.EventReset)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(2), events[1].Reset.Count)

	// A fresh run after reset learns again.
	require.NoError(t, l.Start(context.Background(), 3, 0))
	assert.Equal(t, 3, l.Stats().TotalEpisodes)
}

func TestLearner_NoValidActionsAborts(t *testing.T) {
	cfg := config.Default()
	cfg.Disks, cfg.Pegs = 1, 1
	l := runtime.NewLearner(cfg, memory.NewTable(), runtime.WithRand(rand.New(rand.NewSource(1))))

	err := l.Start(context.Background(), 10, 0)
	require.ErrorIs(t, err, domain.ErrNoValidActions)
	assert.Contains(t, err.Error(), "episode 1 step 1")
	assert.Zero(t, l.Stats().TotalEpisodes)
	assert.False(t, l.IsRunning())
}

func TestLearner_HistoryLimit(t *testing.T) {
	cfg := seeded(6)
	cfg.HistoryLimit = 5
	l := runtime.NewLearner(cfg, memory.NewTable())

	require.NoError(t, l.Start(context.Background(), 12, 0))

	history := l.History()
	require.Len(t, history, 5)
	assert.Equal(t, 8, history[0].Episode)
	assert.Equal(t, 12, history[4].Episode)
}

func TestLearner_KeepsPreseededStore(t *testing.T) {
	store := memory.NewTable()
	start := domain.StateKey("0|0|0")
	store.Set(start, domain.NewAction(0, 0, 2).Key(), 7)

	var _ ports.QStore = store
	l := runtime.NewLearner(config.Default(), store)

	assert.Equal(t, 7.0, store.Peek(start, domain.NewAction(0, 0, 2).Key()))
	best, ok := l.BestAction(domain.State{0, 0, 0})
	require.True(t, ok)
	assert.Equal(t, domain.NewAction(0, 0, 2), best)
}

func TestLearner_HooksMayCallBack(t *testing.T) {
	var (
		l        *runtime.Learner
		episodes []domain.TrainingStats
		resets   []domain.TrainingStats
	)
	hooks := domain.LifecycleHooks{
		OnStep: func(_ context.Context, e *domain.StepEvent) {
			_ = l.Epsilon()
			state, err := e.NextState.State()
			if err == nil {
				_, _ = l.BestAction(state)
			}
		},
		OnEpisode: func(context.Context, *domain.EpisodeEvent) {
			episodes = append(episodes, l.Stats())
			_ = l.History()
			_ = l.QValues()
			_ = l.Snapshot()
			_ = l.SolveWithPolicy()
		},
		OnReset: func(context.Context, *domain.ResetEvent) {
			resets = append(resets, l.Stats())
		},
	}
	l = runtime.NewLearner(seeded(7), memory.NewTable(), runtime.WithLifecycleHooks(hooks))

	select {
	case err := <-startAsync(context.Background(), l, 3, 0):
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("learner blocked on a hook calling back into it")
	}

	require.Len(t, episodes, 3)
	for i, stats := range episodes {
		assert.Equal(t, i+1, stats.TotalEpisodes)
	}

	l.Reset()
	require.Len(t, resets, 1)
	assert.Zero(t, resets[0].TotalEpisodes)
}

func TestLearner_HookCanReset(t *testing.T) {
	var l *runtime.Learner
	hooks := domain.LifecycleHooks{
		OnEpisode: func(_ context.Context, e *domain.EpisodeEvent) {
			if e.Episode == 2 {
				l.Reset()
			}
		},
	}
	l = runtime.NewLearner(seeded(8), memory.NewTable(), runtime.WithLifecycleHooks(hooks))

	select {
	case err := <-startAsync(context.Background(), l, 50, 0):
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("reset from a hook did not end the run")
	}

	assert.False(t, l.IsRunning())
	assert.Zero(t, l.Stats().TotalEpisodes)
	assert.Equal(t, 0.9, l.Epsilon())
}

func TestLearner_Launch(t *testing.T) {
	l := runtime.NewLearner(seeded(12), memory.NewTable())
	t.Cleanup(l.Stop)

	done, err := l.Launch(context.Background(), 1000, time.Millisecond)
	require.NoError(t, err)
	assert.True(t, l.IsRunning())

	again, err := l.Launch(context.Background(), 5, 0)
	assert.ErrorIs(t, err, domain.ErrAlreadyRunning)
	assert.Nil(t, again)

	l.Stop()
	require.NoError(t, <-done)
	_, open := <-done
	assert.False(t, open)
}

func TestLearner_Snapshot(t *testing.T) {
	store := memory.NewTable()
	l := runtime.NewLearner(seeded(13), store)

	snap := l.Snapshot()
	assert.False(t, snap.Running)
	assert.Equal(t, 0.9, snap.Epsilon)
	assert.Equal(t, store.Len(), snap.Entries)

	require.NoError(t, l.Start(context.Background(), 4, 0))
	snap = l.Snapshot()
	assert.Equal(t, l.Stats(), snap.Stats)
	assert.Equal(t, l.Epsilon(), snap.Epsilon)
	assert.InDelta(t, 0.9*math.Pow(0.9, 4), snap.Epsilon, 1e-12)
}
