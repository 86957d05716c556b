package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	notifmodels "misiones/internal/notification/models"
	"misiones/internal/registration/metrics"
	"misiones/internal/registration/models"
	sitemodels "misiones/internal/site/models"
	id "misiones/pkg/domain"
	dErrors "misiones/pkg/domain-errors"
	"misiones/pkg/platform/audit"
	"misiones/pkg/platform/retry"
	"misiones/pkg/platform/sentinel"
	"misiones/pkg/requestcontext"
)

// Ledger stores registrations. Calls made with a site transaction context
// see and write that transaction's state.
type Ledger interface {
	Create(ctx context.Context, r *models.Registration) error
	FindByID(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	FindActiveByDocument(ctx context.Context, siteID id.SiteID, document string) (*models.Registration, error)
	CountConfirmed(ctx context.Context, siteID id.SiteID) (int, error)
	NextWaitlisted(ctx context.Context, siteID id.SiteID) (*models.Registration, error)
	WaitlistPosition(ctx context.Context, r *models.Registration) (int, error)
	ListBySite(ctx context.Context, siteID id.SiteID, status *models.Status) ([]*models.Registration, error)
	Update(ctx context.Context, r *models.Registration) error
}

type SiteReader interface {
	FindByID(ctx context.Context, siteID id.SiteID) (*sitemodels.Site, error)
}

// SiteTx serializes work on one site. Savepoint must be called with the
// context RunInTx passed to its callback.
type SiteTx interface {
	RunInTx(ctx context.Context, siteID id.SiteID, fn func(txCtx context.Context) error) error
	Savepoint(ctx context.Context, fn func(spCtx context.Context) error) error
}

// NoticeEnqueuer writes notification outbox entries. A duplicate dedupe key
// returns an error wrapping sentinel.ErrConflict.
type NoticeEnqueuer interface {
	Enqueue(ctx context.Context, n *notifmodels.Notice) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// OccupancyInvalidator drops cached occupancy after confirmed counts change.
type OccupancyInvalidator interface {
	InvalidateOccupancy()
}

// DuplicatePolicy decides whether a second live registration with the same
// document number is accepted for a site.
type DuplicatePolicy string

const (
	DuplicateReject DuplicatePolicy = "reject"
	DuplicateAllow  DuplicatePolicy = "allow"
)

// ParseDuplicatePolicy accepts "reject" and "allow".
func ParseDuplicatePolicy(raw string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(raw); p {
	case DuplicateReject, DuplicateAllow:
		return p, nil
	}
	return "", fmt.Errorf("unknown duplicate policy %q", raw)
}

// Service admits, cancels and promotes registrations. Every
// read-count-then-write sequence runs inside SiteTx.RunInTx for the site.
type Service struct {
	ledger          Ledger
	sites           SiteReader
	tx              SiteTx
	notices         NoticeEnqueuer
	logger          *slog.Logger
	auditPublisher  AuditPublisher
	metrics         *metrics.Metrics
	tracer          trace.Tracer
	occupancy       OccupancyInvalidator
	retryPolicy     retry.Policy
	duplicatePolicy DuplicatePolicy
	clock           func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithNoticeEnqueuer enables promotion notices.
func WithNoticeEnqueuer(n NoticeEnqueuer) Option {
	return func(s *Service) {
		s.notices = n
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func WithOccupancyInvalidator(o OccupancyInvalidator) Option {
	return func(s *Service) {
		s.occupancy = o
	}
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Service) {
		s.retryPolicy = p
	}
}

func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(s *Service) {
		s.duplicatePolicy = p
	}
}

// WithClock sets the source of created/updated timestamps. Timestamps never
// decide waitlist order; the ledger sequence does.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// New constructs a Service.
func New(ledger Ledger, sites SiteReader, tx SiteTx, opts ...Option) *Service {
	s := &Service{
		ledger:          ledger,
		sites:           sites,
		tx:              tx,
		logger:          slog.Default(),
		tracer:          otel.Tracer("misiones/registration"),
		retryPolicy:     retry.DefaultPolicy,
		duplicatePolicy: DuplicateReject,
		clock:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

// inSiteTx runs fn under the site lock, retrying transient storage failures.
func (s *Service) inSiteTx(ctx context.Context, siteID id.SiteID, op string, fn func(txCtx context.Context) error) error {
	return retry.Do(ctx, s.retryPolicy, isTransient, func(int) error {
		return s.tx.RunInTx(ctx, siteID, fn)
	}, func(err error, wait time.Duration) {
		if s.metrics != nil {
			s.metrics.IncrementTxRetries(op)
		}
		s.logger.WarnContext(ctx, "retrying site transaction",
			"operation", op,
			"site_id", siteID.String(),
			"error", err,
			"wait", wait,
			"request_id", requestcontext.RequestID(ctx),
		)
	})
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, r *models.Registration, prior models.Status, reason string) error {
	if s.auditPublisher == nil {
		return nil
	}
	return s.auditPublisher.Emit(ctx, audit.Event{
		Action:         string(event),
		SiteID:         r.SiteID,
		RegistrationID: r.ID,
		PriorStatus:    string(prior),
		Status:         r.State.String(),
		Reason:         reason,
		ActorID:        requestcontext.Actor(ctx),
		RequestID:      requestcontext.RequestID(ctx),
		Timestamp:      s.now(),
	})
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, r *models.Registration, attrs ...any) {
	args := append([]any{
		"registration_id", r.ID.String(),
		"site_id", r.SiteID.String(),
		"status", r.State.String(),
		"request_id", requestcontext.RequestID(ctx),
		"event", string(event),
		"log_type", "audit",
	}, attrs...)
	s.logger.InfoContext(ctx, string(event), args...)
}

func (s *Service) invalidateOccupancy() {
	if s.occupancy != nil {
		s.occupancy.InvalidateOccupancy()
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func isTransient(err error) bool {
	return errors.Is(err, sentinel.ErrUnavailable)
}

// translate maps store sentinels to the named domain errors. notFound is the
// error a missing row means for the operation.
func translate(err error, notFound error, msg string) error {
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return notFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
