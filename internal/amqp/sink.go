package amqp

import (
	"context"
	"sync"
	"sync/atomic"

	"halya/internal/log"
	"halya/internal/lookup"
)

// Publisher publishes one event message. *Client satisfies it.
type Publisher interface {
	PublishEvent(ctx context.Context, msg *EventMessage) error
}

// Sink is a lookup.EventSink that hands events to a Publisher from a
// background goroutine. Emit never blocks; events are dropped when the
// buffer is full.
type Sink struct {
	pub    Publisher
	events chan *EventMessage
	logger *log.Logger

	dropped   atomic.Int64
	published atomic.Int64
	failed    atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
}

func NewSink(pub Publisher, buffer int, logger *log.Logger) *Sink {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Sink{
		pub:    pub,
		events: make(chan *EventMessage, buffer),
		logger: logger.WithComponent(log.ComponentAMQP),
		done:   make(chan struct{}),
	}
}

func (s *Sink) Emit(_ context.Context, e lookup.Event) {
	select {
	case <-s.done:
		s.dropped.Add(1)
		return
	default:
	}
	select {
	case s.events <- NewEventMessage(e):
	default:
		s.dropped.Add(1)
	}
}

// Run publishes queued events until ctx is done or Close is called.
func (s *Sink) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case msg := <-s.events:
			if err := s.pub.PublishEvent(ctx, msg); err != nil {
				s.failed.Add(1)
				s.logger.DebugContext(ctx, "Dropping diagnostic event", "kind", msg.Kind, log.FieldError, err.Error())
				continue
			}
			s.published.Add(1)
		}
	}
}

func (s *Sink) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Stats returns published, failed and dropped counts.
func (s *Sink) Stats() (published, failed, dropped int64) {
	return s.published.Load(), s.failed.Load(), s.dropped.Load()
}
