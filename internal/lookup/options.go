package lookup

import (
	"context"
	"time"

	"halya/internal/core"
	"halya/internal/log"
)

// EventKind names a diagnostic event.
type EventKind string

const (
	EventFetchFailed    EventKind = "fetch_failed"
	EventFetchDiscarded EventKind = "fetch_discarded"
	EventResidentViewed EventKind = "resident_viewed"
)

// Event is a diagnostic record of something that happened in a session.
type Event struct {
	Kind       EventKind
	SessionID  string
	Operation  string
	Alley      string
	ResidentID string
	Count      int
	Error      string
	At         time.Time
}

// EventSink receives diagnostic events. Implementations must not block.
type EventSink interface {
	Emit(ctx context.Context, e Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, e Event)

func (f EventSinkFunc) Emit(ctx context.Context, e Event) { f(ctx, e) }

type nopSink struct{}

func (nopSink) Emit(context.Context, Event) {}

type options struct {
	logger       *log.Logger
	classifier   *core.Classifier
	sink         EventSink
	fetchTimeout time.Duration
	sessionID    string
	now          func() time.Time
}

// Option configures pickers, viewers and sessions.
type Option func(*options)

func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithClassifier(c *core.Classifier) Option {
	return func(o *options) {
		if c != nil {
			o.classifier = c
		}
	}
}

func WithEventSink(s EventSink) Option {
	return func(o *options) {
		if s != nil {
			o.sink = s
		}
	}
}

// WithFetchTimeout bounds every store query; zero disables the bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) { o.fetchTimeout = d }
}

func withSessionID(id string) Option {
	return func(o *options) { o.sessionID = id }
}

func withClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{
		logger:     log.New(log.DefaultConfig()).WithComponent(log.ComponentLookup),
		classifier: core.DefaultClassifier(),
		sink:       nopSink{},
		now:        time.Now,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func (o options) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.fetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.fetchTimeout)
}

func (o options) emit(ctx context.Context, e Event) {
	e.SessionID = o.sessionID
	e.At = o.now()
	o.sink.Emit(ctx, e)
}

func (o options) fetchFailed(ctx context.Context, component, op, alley, residentID string, err error) {
	log.NewStructuredLogger(o.logger).LogFetchFailed(ctx, component, op, alley, residentID, err)
	o.emit(ctx, Event{Kind: EventFetchFailed, Operation: op, Alley: alley, ResidentID: residentID, Error: err.Error()})
}

func (o options) fetchDiscarded(ctx context.Context, component, op string, gen uint64) {
	log.NewStructuredLogger(o.logger).LogFetchDiscarded(ctx, component, op, gen)
	o.emit(ctx, Event{Kind: EventFetchDiscarded, Operation: op})
}
