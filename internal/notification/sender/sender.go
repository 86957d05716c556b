// Package sender delivers outbox notices to registrants or downstream
// consumers.
package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"misiones/internal/notification/models"
)

// ErrUnavailable is returned while a sender refuses to attempt delivery.
var ErrUnavailable = errors.New("sender unavailable")

// Sender delivers a single notice. A nil error means the notice is done.
type Sender interface {
	Send(ctx context.Context, n *models.Notice) error
}

// Render builds the subject and plain-text body for n.
func Render(n *models.Notice) (subject, body string) {
	switch n.Kind {
	case models.KindPromoted:
		subject = fmt.Sprintf("Tenés lugar confirmado en %s", n.SiteName)
		body = fmt.Sprintf("Hola %s,\n\nSe liberó un lugar en %s y tu inscripción pasó de lista de espera a confirmada.\n",
			n.RecipientName, n.SiteName)
	case models.KindDocumentsMissing:
		subject = fmt.Sprintf("Faltan documentos para %s", n.SiteName)
		body = fmt.Sprintf("Hola %s,\n\nTu inscripción en %s está confirmada pero todavía falta cargar: %s.\n",
			n.RecipientName, n.SiteName, n.Details["missing"])
	default:
		subject = fmt.Sprintf("Novedades sobre %s", n.SiteName)
		body = fmt.Sprintf("Hola %s,\n\nHay novedades sobre tu inscripción.\n", n.RecipientName)
	}
	return subject, body
}

// LogSender writes notices to the log. It is the fallback when no transport
// is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, n *models.Notice) error {
	subject, _ := Render(n)
	s.logger.InfoContext(ctx, "notice delivered to log",
		"notice_id", n.ID.String(),
		"kind", string(n.Kind),
		"registration_id", n.RegistrationID.String(),
		"recipient", n.RecipientEmail,
		"subject", subject,
	)
	return nil
}

// Fanout delivers to every sender and fails if any of them fails. Retries
// redeliver to all of them, so downstream consumers must tolerate repeats.
type Fanout []Sender

func (f Fanout) Send(ctx context.Context, n *models.Notice) error {
	var errs []error
	for _, s := range f {
		if err := s.Send(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Describe lists the concrete sender types, for startup logs.
func Describe(s Sender) string {
	switch v := s.(type) {
	case Fanout:
		names := make([]string, 0, len(v))
		for _, inner := range v {
			names = append(names, Describe(inner))
		}
		return strings.Join(names, "+")
	case *LogSender:
		return "log"
	case *SendGrid:
		return "sendgrid"
	case *Kafka:
		return "kafka"
	default:
		return fmt.Sprintf("%T", s)
	}
}
