package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStep    EventType = "step"
	EventEpisode EventType = "episode"
	EventReset   EventType = "reset"
)

// StepEvent describes one transition together with the TD arithmetic that produced it.
type StepEvent struct {
	Episode      int       `json:"episode"`
	Step         int       `json:"step"`
	State        StateKey  `json:"state"`
	Action       Action    `json:"action"`
	ActionKey    ActionKey `json:"action_key"`
	Reward       float64   `json:"reward"`
	NextState    StateKey  `json:"next_state"`
	Value        float64   `json:"value"` // best Q of State after the update
	CurrentQ     float64   `json:"current_q"`
	MaxNextQ     float64   `json:"max_next_q"`
	Target       float64   `json:"target"`
	NewQ         float64   `json:"new_q"`
	Alpha        float64   `json:"alpha"`
	Gamma        float64   `json:"gamma"`
	EpisodeTotal float64   `json:"episode_total"`
}

// EpisodeEvent summarises a finished episode.
type EpisodeEvent struct {
	Episode int     `json:"episode"` // 1-indexed
	Reward  float64 `json:"reward"`
	Epsilon float64 `json:"epsilon"`
	Steps   int     `json:"steps"`
	Solved  bool    `json:"solved"`
}

// ResetEvent is published on every reset. Count increases monotonically.
type ResetEvent struct {
	Count uint64 `json:"count"`
}

// Event is the envelope delivered to event sinks.
// ID increases monotonically per Type so consumers can tell repeated events apart.
type Event struct {
	ID        uint64        `json:"id"`
	Type      EventType     `json:"type"`
	RunID     string        `json:"run_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Step      *StepEvent    `json:"step,omitempty"`
	Episode   *EpisodeEvent `json:"episode,omitempty"`
	Reset     *ResetEvent   `json:"reset,omitempty"`
}

// LifecycleHooks defines synchronous callbacks for engine observability.
// Hooks run on the learning goroutine once the step is committed, so they may read
// the engine; a slow hook slows learning down.
type LifecycleHooks struct {
	OnStep    func(context.Context, *StepEvent)
	OnEpisode func(context.Context, *EpisodeEvent)
	OnReset   func(context.Context, *ResetEvent)
}

// CombineHooks fans out to every non-nil hook in order.
func CombineHooks(all ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStep: func(ctx context.Context, e *StepEvent) {
			for _, h := range all {
				if h.OnStep != nil {
					h.OnStep(ctx, e)
				}
			}
		},
		OnEpisode: func(ctx context.Context, e *EpisodeEvent) {
			for _, h := range all {
				if h.OnEpisode != nil {
					h.OnEpisode(ctx, e)
				}
			}
		},
		OnReset: func(ctx context.Context, e *ResetEvent) {
			for _, h := range all {
				if h.OnReset != nil {
					h.OnReset(ctx, e)
				}
			}
		},
	}
}
