package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	id "misiones/pkg/domain"
	audit "misiones/pkg/platform/audit"
	"misiones/pkg/platform/audit/worker"
	txcontext "misiones/pkg/platform/tx"
)

var (
	errBufferFull      = errors.New("audit buffer full")
	errPublisherClosed = errors.New("audit publisher closed")
)

// Publisher records lifecycle events. In the default synchronous mode Emit
// writes through to the store, so an append made inside a site transaction
// fails the transaction when it fails. Async mode hands events to a worker;
// an event emitted inside a journaled memory transaction is queued only after
// that transaction commits, so it cannot fail or outlive it.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger
	now    func() time.Time

	bufferSize int
	inbox      chan audit.Event
	mu         sync.RWMutex
	closed     bool
	wg         sync.WaitGroup
	cancel     context.CancelFunc
	closeOnce  sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to async mode with a buffer of n events.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		p.bufferSize = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.inbox = make(chan audit.Event, p.bufferSize)
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		w := worker.NewWorker(store, p.inbox, p.logger)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			_ = w.Run(ctx)
		}()
	}
	return p
}

// Emit records the event. A zero timestamp is filled from the clock and the
// category is derived from the action when unset.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	// Inside a journaled transaction the event is queued only once it commits.
	deferred := txcontext.AfterCommit(ctx, func() {
		_ = p.enqueue(context.WithoutCancel(ctx), event)
	})
	if deferred {
		return nil
	}
	return p.enqueue(ctx, event)
}

func (p *Publisher) enqueue(ctx context.Context, event audit.Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errPublisherClosed
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
			"registration_id", event.RegistrationID.String(),
		)
		return errBufferFull
	}
}

// List returns the events recorded for a registration in arrival order.
func (p *Publisher) List(ctx context.Context, registrationID id.RegistrationID) ([]audit.Event, error) {
	return p.store.ListByRegistration(ctx, registrationID)
}

// Recent returns up to limit events across all registrations, newest first.
func (p *Publisher) Recent(ctx context.Context, limit int) ([]audit.Event, error) {
	return p.store.ListRecent(ctx, limit)
}

// Close stops accepting events and waits for the worker to drain the buffer.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.inbox == nil {
			return
		}
		p.mu.Lock()
		p.closed = true
		close(p.inbox)
		p.mu.Unlock()
		p.wg.Wait()
		p.cancel()
	})
}
