package observability

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aretw0/hanoi/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes learning progress as Prometheus collectors.
// Attach it to an engine with Hooks.
type Metrics struct {
	Steps        prometheus.Counter
	Episodes     *prometheus.CounterVec
	EpisodeSteps prometheus.Histogram
	Reward       prometheus.Gauge
	Epsilon      prometheus.Gauge
	TDError      prometheus.Histogram
	Resets       prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Steps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hanoi_steps_total",
			Help: "Total number of learning steps taken",
		}),
		Episodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hanoi_episodes_total",
			Help: "Total number of finished episodes",
		}, []string{"solved"}),
		EpisodeSteps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hanoi_episode_steps",
			Help:    "Steps taken per episode",
			Buckets: []float64{7, 10, 15, 20, 30, 40, 50},
		}),
		Reward: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hanoi_episode_reward",
			Help: "Total reward of the last finished episode",
		}),
		Epsilon: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hanoi_epsilon",
			Help: "Current exploration rate",
		}),
		TDError: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hanoi_td_error",
			Help:    "Temporal-difference error (target - current Q) per step",
			Buckets: prometheus.LinearBuckets(-10, 5, 13),
		}),
		Resets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hanoi_resets_total",
			Help: "Total number of engine resets",
		}),
	}

	for _, c := range []prometheus.Collector{m.Steps, m.Episodes, m.EpisodeSteps, m.Reward, m.Epsilon, m.TDError, m.Resets} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStep: func(_ context.Context, e *domain.StepEvent) {
			m.Steps.Inc()
			m.TDError.Observe(e.Target - e.CurrentQ)
		},
		OnEpisode: func(_ context.Context, e *domain.EpisodeEvent) {
			m.Episodes.WithLabelValues(strconv.FormatBool(e.Solved)).Inc()
			m.EpisodeSteps.Observe(float64(e.Steps))
			m.Reward.Set(e.Reward)
			m.Epsilon.Set(e.Epsilon)
		},
		OnReset: func(_ context.Context, _ *domain.ResetEvent) {
			m.Resets.Inc()
		},
	}
}
