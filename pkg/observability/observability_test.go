package observability_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/hanoi/pkg/domain"
	"github.com/aretw0/hanoi/pkg/observability"
	"github.com/aretw0/hanoi/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.EventSink = (*observability.Stream)(nil)

func TestStream_FanOut(t *testing.T) {
	s := observability.NewStream(4, nil)
	ctx := context.Background()

	all, cancelAll := s.Subscribe()
	defer cancelAll()
	episodes, cancelEpisodes := s.Subscribe(domain.EventEpisode)
	defer cancelEpisodes()
	assert.Equal(t, 2, s.Subscribers())

	s.Publish(ctx, domain.Event{ID: 1, Type: domain.EventStep})
	s.Publish(ctx, domain.Event{ID: 1, Type: domain.EventEpisode})

	assert.Equal(t, domain.EventStep, (<-all).Type)
	assert.Equal(t, domain.EventEpisode, (<-all).Type)
	assert.Equal(t, domain.EventEpisode, (<-episodes).Type)
	assert.Empty(t, episodes)
}

func TestStream_DropsWhenFull(t *testing.T) {
	s := observability.NewStream(2, nil)
	ch, cancel := s.Subscribe()
	defer cancel()

	for i := 1; i <= 5; i++ {
		s.Publish(context.Background(), domain.Event{ID: uint64(i), Type: domain.EventStep})
	}

	assert.Len(t, ch, 2)
	assert.Equal(t, uint64(3), s.Dropped())
	assert.Equal(t, uint64(1), (<-ch).ID)
}

func TestStream_CancelClosesAndIsIdempotent(t *testing.T) {
	s := observability.NewStream(0, nil)
	ch, cancel := s.Subscribe()

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, s.Subscribers())

	// Publishing without subscribers is a no-op.
	s.Publish(context.Background(), domain.Event{Type: domain.EventReset})
}

func TestStream_ConcurrentPublishAndSubscribe(t *testing.T) {
	s := observability.NewStream(8, nil)
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Publish(context.Background(), domain.Event{Type: domain.EventStep})
			}
		}()
		go func() {
			defer wg.Done()
			_, cancel := s.Subscribe()
			cancel()
		}()
	}
	wg.Wait()
	assert.Zero(t, s.Subscribers())
}

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	hooks := m.Hooks()
	ctx := context.Background()
	hooks.OnStep(ctx, &domain.StepEvent{Target: 1, CurrentQ: 0})
	hooks.OnStep(ctx, &domain.StepEvent{Target: -0.5, CurrentQ: 0})
	hooks.OnEpisode(ctx, &domain.EpisodeEvent{Episode: 1, Steps: 2, Solved: true, Reward: 49.5, Epsilon: 0.81})
	hooks.OnReset(ctx, &domain.ResetEvent{Count: 1})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Steps))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Episodes.WithLabelValues("true")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Episodes.WithLabelValues("false")))
	assert.Equal(t, 49.5, testutil.ToFloat64(m.Reward))
	assert.Equal(t, 0.81, testutil.ToFloat64(m.Epsilon))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resets))

	// Registering twice on the same registry fails.
	_, err = observability.NewMetrics(reg)
	assert.Error(t, err)
}
