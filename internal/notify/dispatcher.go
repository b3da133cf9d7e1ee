package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Mailer delivers a single notification. Implementations are at-most-once
// and best-effort; the dispatcher never retries.
type Mailer interface {
	Send(ctx context.Context, n Notification) error
}

const defaultBuffer = 128

// Dispatcher queues notifications onto a buffered channel consumed by a
// single background worker. Dispatch never blocks: when the buffer is full
// the notification is dropped and counted, because a slow mail relay must
// not stall an incident transition.
type Dispatcher struct {
	mailer  Mailer
	logger  *slog.Logger
	inbox   chan Notification
	queued  func()
	dropped func()

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

func WithBuffer(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.inbox = make(chan Notification, n)
		}
	}
}

// WithQueueCounter registers a callback invoked for every notification
// accepted onto the queue (wired to the Prometheus counter in cmd/server).
func WithQueueCounter(fn func()) Option {
	return func(d *Dispatcher) { d.queued = fn }
}

// WithDropCounter registers a callback invoked for every dropped
// notification.
func WithDropCounter(fn func()) Option {
	return func(d *Dispatcher) { d.dropped = fn }
}

// NewDispatcher builds a dispatcher and starts its worker.
func NewDispatcher(mailer Mailer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		mailer:  mailer,
		logger:  slog.Default(),
		inbox:   make(chan Notification, defaultBuffer),
		queued:  func() {},
		dropped: func() {},
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	go d.run()
	return d
}

// Dispatch enqueues a notification. It never blocks and never reports
// delivery errors to the caller; after Close it drops instead of sending.
func (d *Dispatcher) Dispatch(n Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.dropped()
		d.logger.Warn("dispatcher closed, dropping notification",
			"kind", string(n.Kind),
			"recipient", n.Recipient,
		)
		return
	}
	select {
	case d.inbox <- n:
		d.queued()
	default:
		d.dropped()
		d.logger.Warn("notification queue full, dropping",
			"kind", string(n.Kind),
			"recipient", n.Recipient,
		)
	}
}

// Close stops intake and waits for the worker to drain what was already
// queued.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.inbox)
		d.mu.Unlock()
	})
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for n := range d.inbox {
		if err := d.mailer.Send(context.Background(), n); err != nil {
			d.logger.Error("notification delivery failed",
				"kind", string(n.Kind),
				"recipient", n.Recipient,
				"error", err,
			)
		}
	}
}
