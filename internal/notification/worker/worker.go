// Package worker drains the notification outbox.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"misiones/internal/notification/metrics"
	"misiones/internal/notification/models"
	"misiones/internal/notification/sender"
	id "misiones/pkg/domain"
	"misiones/pkg/platform/retry"
)

// Outbox is the delivery side of the notification outbox.
type Outbox interface {
	ClaimDue(ctx context.Context, now time.Time, limit, maxAttempts int, lease time.Duration) ([]*models.Notice, error)
	MarkDelivered(ctx context.Context, noticeID id.NoticeID, at time.Time) error
	MarkFailed(ctx context.Context, noticeID id.NoticeID, nextAttemptAt time.Time, lastErr string) error
}

// Config bounds one worker.
type Config struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	// Lease hides claimed notices from other workers while they are sent.
	Lease     time.Duration
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 8
	}
	if c.Lease <= 0 {
		c.Lease = time.Minute
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 30 * time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = time.Hour
	}
	return c
}

// Worker claims due notices, hands them to a Sender and records the outcome.
type Worker struct {
	outbox  Outbox
	sender  sender.Sender
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Worker)

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		w.now = now
	}
}

func New(outbox Outbox, s sender.Sender, cfg Config, logger *slog.Logger, opts ...Option) *Worker {
	w := &Worker{
		outbox: outbox,
		sender: s,
		cfg:    cfg.withDefaults(),
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.WarnContext(ctx, "notification batch failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce processes one batch and returns how many notices were delivered.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	now := w.now().UTC()
	notices, err := w.outbox.ClaimDue(ctx, now, w.cfg.BatchSize, w.cfg.MaxAttempts, w.cfg.Lease)
	if err != nil {
		return 0, err
	}
	if w.metrics != nil {
		w.metrics.IncrementClaimed(len(notices))
	}
	delivered := 0
	var errs []error
	for _, n := range notices {
		ok, err := w.deliver(ctx, n)
		if err != nil {
			errs = append(errs, err)
		}
		if ok {
			delivered++
		}
	}
	return delivered, errors.Join(errs...)
}

// deliver reports whether n was sent. The returned error is an outbox write
// failure; send failures are recorded on the notice instead.
func (w *Worker) deliver(ctx context.Context, n *models.Notice) (bool, error) {
	sendErr := w.sender.Send(ctx, n)
	now := w.now().UTC()
	if sendErr == nil {
		if w.metrics != nil {
			w.metrics.IncrementDelivered(string(n.Kind))
		}
		return true, w.outbox.MarkDelivered(ctx, n.ID, now)
	}

	attempts := n.Attempts + 1
	next := now.Add(retry.NextDelay(attempts, w.cfg.BaseDelay, w.cfg.MaxDelay))
	if w.metrics != nil {
		w.metrics.IncrementFailed(string(n.Kind))
	}
	level := slog.LevelWarn
	if attempts >= w.cfg.MaxAttempts {
		level = slog.LevelError
		if w.metrics != nil {
			w.metrics.IncrementExhausted()
		}
	}
	w.logger.Log(ctx, level, "notice delivery failed",
		"notice_id", n.ID.String(),
		"kind", string(n.Kind),
		"registration_id", n.RegistrationID.String(),
		"attempts", attempts,
		"max_attempts", w.cfg.MaxAttempts,
		"next_attempt_at", next,
		"error", sendErr,
	)
	return false, w.outbox.MarkFailed(ctx, n.ID, next, sendErr.Error())
}
