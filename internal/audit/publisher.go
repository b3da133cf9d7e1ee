package audit

import (
	"context"
	"log/slog"
	"sync"

	"streetwatch/pkg/requestcontext"
)

// Sink receives events for durable storage or forwarding.
type Sink interface {
	Append(ctx context.Context, e Event) error
}

// Publisher accepts events from domain logic and hands them to a worker
// that writes the sink off the request path. Emit never blocks: when the
// buffer is full the event is dropped and logged, matching the best-effort
// contract of every audit call site.
type Publisher struct {
	sink   Sink
	inbox  chan Event
	logger *slog.Logger

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

type PublisherOption func(*Publisher)

func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

func WithBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan Event, size)
		}
	}
}

func NewPublisher(sink Sink, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		sink:   sink,
		inbox:  make(chan Event, 256),
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	go p.run()
	return p
}

// Emit queues an event. The timestamp defaults to the request clock. After
// Close the event is dropped and logged instead of sent.
func (p *Publisher) Emit(ctx context.Context, e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = requestcontext.Now(ctx)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.logger.Warn("audit publisher closed, event dropped",
			"action", string(e.Action),
			"incident_id", e.IncidentID.String(),
		)
		return
	}
	select {
	case p.inbox <- e:
	default:
		p.logger.Warn("audit buffer full, event dropped",
			"action", string(e.Action),
			"incident_id", e.IncidentID.String(),
		)
	}
}

// Close stops intake and waits for queued events already in the buffer to
// be written.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.inbox)
		p.mu.Unlock()
		<-p.done
	})
}

func (p *Publisher) run() {
	defer close(p.done)
	for e := range p.inbox {
		if err := p.sink.Append(context.Background(), e); err != nil {
			p.logger.Error("failed to append audit event",
				"action", string(e.Action),
				"error", err,
			)
		}
	}
}
