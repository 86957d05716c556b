package worker

import (
	"context"
	"log/slog"

	audit "misiones/pkg/platform/audit"
)

// Worker consumes events from a channel and persists them. A failed append is
// logged and the worker moves on; the inbox closing ends the run.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run drains the inbox until it is closed. Cancelling ctx stops the worker
// without draining.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.store.Append(context.WithoutCancel(ctx), event); err != nil {
				w.logger.ErrorContext(ctx, "failed to persist audit event",
					"action", event.Action,
					"registration_id", event.RegistrationID.String(),
					"error", err,
				)
			}
		}
	}
}
