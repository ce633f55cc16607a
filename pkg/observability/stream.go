package observability

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aretw0/hanoi/internal/logging"
	"github.com/aretw0/hanoi/pkg/domain"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 64

// Stream fans engine events out to subscribers. Publish never blocks:
// a subscriber whose buffer is full misses the event.
type Stream struct {
	mu          sync.RWMutex
	subscribers map[chan domain.Event]filter
	buffer      int
	dropped     atomic.Uint64
	logger      *slog.Logger
}

type filter map[domain.EventType]struct{}

func (f filter) allows(t domain.EventType) bool {
	if len(f) == 0 {
		return true
	}
	_, ok := f[t]
	return ok
}

// NewStream creates a stream. A non-positive buffer uses DefaultBuffer.
func NewStream(buffer int, logger *slog.Logger) *Stream {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stream{
		subscribers: make(map[chan domain.Event]filter),
		buffer:      buffer,
		logger:      logger,
	}
}

// Subscribe returns a channel receiving events of the given types (all types if none).
// The returned cancel func unsubscribes and closes the channel; it is safe to call twice.
func (s *Stream) Subscribe(types ...domain.EventType) (<-chan domain.Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan domain.Event, s.buffer)
	f := make(filter, len(types))
	for _, t := range types {
		f[t] = struct{}{}
	}
	s.subscribers[ch] = f

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
	}
}

// Publish implements ports.EventSink.
func (s *Stream) Publish(_ context.Context, evt domain.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for ch, f := range s.subscribers {
		if !f.allows(evt.Type) {
			continue
		}
		select {
		case ch <- evt:
		default:
			s.logDrop(evt)
		}
	}
}

// Subscribers returns the number of active subscribers.
func (s *Stream) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (s *Stream) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *Stream) logDrop(evt domain.Event) {
	n := s.dropped.Add(1)
	// Step events are frequent; warn once per hundred drops.
	if evt.Type != domain.EventStep || n%100 == 1 {
		s.logger.Warn("stream subscriber buffer full, dropping event", "type", evt.Type, "id", evt.ID, "dropped", n)
	}
}
