package ports

import (
	"context"

	"github.com/aretw0/hanoi/pkg/domain"
)

// EventSink receives engine events. Publish must not block the learner:
// slow consumers are expected to drop events rather than apply backpressure.
type EventSink interface {
	Publish(ctx context.Context, event domain.Event)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(ctx context.Context, event domain.Event)

// Publish calls f.
func (f SinkFunc) Publish(ctx context.Context, event domain.Event) {
	f(ctx, event)
}
