package runtime

import (
	"log/slog"
	"math/rand"

	"github.com/aretw0/hanoi/pkg/domain"
	"github.com/aretw0/hanoi/pkg/ports"
)

// LearnerOption configures a Learner.
type LearnerOption func(*Learner)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) LearnerOption {
	return func(l *Learner) {
		l.logger = logger
	}
}

// WithLifecycleHooks registers synchronous callbacks, run inside each step.
func WithLifecycleHooks(hooks domain.LifecycleHooks) LearnerOption {
	return func(l *Learner) {
		l.hooks = hooks
	}
}

// WithSinks adds event sinks. Sinks must not block.
func WithSinks(sinks ...ports.EventSink) LearnerOption {
	return func(l *Learner) {
		l.sinks = append(l.sinks, sinks...)
	}
}

// WithRand sets the exploration source. It overrides Config.Seed.
func WithRand(r *rand.Rand) LearnerOption {
	return func(l *Learner) {
		l.rng = r
	}
}
