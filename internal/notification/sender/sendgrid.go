package sender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"misiones/internal/notification/metrics"
	"misiones/internal/notification/models"
	"misiones/pkg/platform/circuit"
)

// MailClient is the subset of the SendGrid client used here.
type MailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGrid emails notices through the SendGrid v3 API. A circuit breaker
// stops calling the API after repeated failures; notices stay in the outbox
// and are retried later.
type SendGrid struct {
	client    MailClient
	breaker   *circuit.Breaker
	fromEmail string
	fromName  string
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type SendGridOption func(*SendGrid)

func WithBreaker(b *circuit.Breaker) SendGridOption {
	return func(s *SendGrid) {
		s.breaker = b
	}
}

func WithMailClient(c MailClient) SendGridOption {
	return func(s *SendGrid) {
		s.client = c
	}
}

func WithSendGridMetrics(m *metrics.Metrics) SendGridOption {
	return func(s *SendGrid) {
		s.metrics = m
	}
}

func NewSendGrid(apiKey, fromEmail, fromName string, logger *slog.Logger, opts ...SendGridOption) *SendGrid {
	s := &SendGrid{
		client:    sendgrid.NewSendClient(apiKey),
		breaker:   circuit.New("sendgrid"),
		fromEmail: fromEmail,
		fromName:  fromName,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SendGrid) Send(ctx context.Context, n *models.Notice) error {
	if !s.breaker.Allow() {
		return fmt.Errorf("sendgrid: circuit open: %w", ErrUnavailable)
	}
	subject, body := Render(n)
	msg := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.fromEmail),
		subject,
		mail.NewEmail(n.RecipientName, n.RecipientEmail),
		body,
		"",
	)
	resp, err := s.client.SendWithContext(ctx, msg)
	if err == nil && resp.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	if err != nil {
		if _, change := s.breaker.RecordFailure(); change.Opened {
			s.logger.WarnContext(ctx, "email circuit opened", "breaker", s.breaker.Name())
			s.setBreakerGauge(true)
		}
		return fmt.Errorf("send email: %w", err)
	}
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.InfoContext(ctx, "email circuit closed", "breaker", s.breaker.Name())
		s.setBreakerGauge(false)
	}
	return nil
}

func (s *SendGrid) setBreakerGauge(open bool) {
	if s.metrics != nil {
		s.metrics.SetBreakerOpen(open)
	}
}
