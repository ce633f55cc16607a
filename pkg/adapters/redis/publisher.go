package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/hanoi/internal/logging"
	"github.com/aretw0/hanoi/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

const (
	defaultPrefix  = "hanoi:"
	defaultBuffer  = 1024
	publishTimeout = 2 * time.Second
)

// Publisher implements ports.EventSink over Redis pub/sub.
// Events are queued and published by a background goroutine; when the queue is
// full new events are dropped so the learner never waits on the network.
type Publisher struct {
	client  *backend.Client
	prefix  string
	buffer  int
	types   map[domain.EventType]struct{}
	logger  *slog.Logger
	queue   chan domain.Event
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithPrefix sets the channel prefix (default "hanoi:").
func WithPrefix(prefix string) Option {
	return func(p *Publisher) {
		p.prefix = prefix
	}
}

// WithBuffer sets the queue capacity.
func WithBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.buffer = n
		}
	}
}

// WithTypes restricts publishing to the given event types.
func WithTypes(types ...domain.EventType) Option {
	return func(p *Publisher) {
		p.types = make(map[domain.EventType]struct{}, len(types))
		for _, t := range types {
			p.types[t] = struct{}{}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a publisher and starts its background loop. Call Close to stop it.
func NewPublisher(client *backend.Client, opts ...Option) *Publisher {
	p := &Publisher{
		client: client,
		prefix: defaultPrefix,
		buffer: defaultBuffer,
		logger: logging.NewNop(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.queue = make(chan domain.Event, p.buffer)

	p.wg.Add(1)
	go p.loop()
	return p
}

// Channel returns the pub/sub channel used for an event type, e.g. "hanoi:events:episode".
func (p *Publisher) Channel(t domain.EventType) string {
	return p.prefix + "events:" + string(t)
}

// Publish queues the event. It never blocks.
func (p *Publisher) Publish(_ context.Context, evt domain.Event) {
	if len(p.types) > 0 {
		if _, ok := p.types[evt.Type]; !ok {
			return
		}
	}

	select {
	case <-p.done:
		return
	default:
	}

	select {
	case p.queue <- evt:
	default:
		if n := p.dropped.Add(1); n%100 == 1 {
			p.logger.Warn("redis publisher queue full, dropping event", "type", evt.Type, "dropped", n)
		}
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Failed returns how many events Redis rejected.
func (p *Publisher) Failed() uint64 {
	return p.failed.Load()
}

// Close flushes queued events and stops the background loop. It does not close the client.
func (p *Publisher) Close() error {
	p.once.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
	return nil
}

func (p *Publisher) loop() {
	defer p.wg.Done()
	for {
		select {
		case evt := <-p.queue:
			p.send(evt)
		case <-p.done:
			for {
				select {
				case evt := <-p.queue:
					p.send(evt)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) send(evt domain.Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		p.logger.Error("failed to encode event", "type", evt.Type, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.client.Publish(ctx, p.Channel(evt.Type), payload).Err(); err != nil {
		if n := p.failed.Add(1); n%100 == 1 {
			p.logger.Warn("redis publish failed", "type", evt.Type, "failed", n, "error", err)
		}
	}
}
