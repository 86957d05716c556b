package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"misiones/internal/site/metrics"
	"misiones/internal/site/models"
	id "misiones/pkg/domain"
	dErrors "misiones/pkg/domain-errors"
	"misiones/pkg/platform/audit"
	"misiones/pkg/platform/retry"
	"misiones/pkg/platform/sentinel"
	"misiones/pkg/requestcontext"
)

type SiteStore interface {
	CreateIfNameAvailable(ctx context.Context, site *models.Site) error
	FindByID(ctx context.Context, siteID id.SiteID) (*models.Site, error)
	FindByName(ctx context.Context, name string) (*models.Site, error)
	List(ctx context.Context) ([]*models.Site, error)
	Update(ctx context.Context, site *models.Site) error
}

// ConfirmedCounter reads confirmed, non-deleted registration counts from the
// ledger.
type ConfirmedCounter interface {
	CountConfirmed(ctx context.Context, siteID id.SiteID) (int, error)
	CountConfirmedBySite(ctx context.Context) (map[id.SiteID]int, error)
}

// SiteTx serializes work on one site.
type SiteTx interface {
	RunInTx(ctx context.Context, siteID id.SiteID, fn func(txCtx context.Context) error) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns site definitions and answers occupancy queries.
type Service struct {
	sites          SiteStore
	counter        ConfirmedCounter
	tx             SiteTx
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	occupancy      *gocache.Cache
	retryPolicy    retry.Policy
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

// WithOccupancyCache caches occupancy reads for ttl. Zero disables the cache.
func WithOccupancyCache(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl <= 0 {
			s.occupancy = nil
			return
		}
		s.occupancy = gocache.New(ttl, 2*ttl)
	}
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Service) {
		s.retryPolicy = p
	}
}

// New constructs a Service.
func New(sites SiteStore, counter ConfirmedCounter, tx SiteTx, opts ...Option) *Service {
	s := &Service{
		sites:       sites,
		counter:     counter,
		tx:          tx,
		logger:      slog.Default(),
		retryPolicy: retry.DefaultPolicy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSite validates and stores a new site. Names are unique
// case-insensitively.
func (s *Service) CreateSite(ctx context.Context, req *models.CreateSiteRequest) (*models.Site, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	site, err := models.NewSite(id.NewSiteID(), req.Name, req.Capacity, req.IsActive(), requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.sites.CreateIfNameAvailable(ctx, site); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, models.ErrSiteNameTaken
		}
		return nil, storeError(err, "failed to create site")
	}

	s.logAudit(ctx, audit.EventSiteCreated, site, "")
	if s.metrics != nil {
		s.metrics.IncrementSitesCreated()
	}
	s.invalidateOccupancy()
	return site, nil
}

// UpdateSite applies the requested changes under the site lock. Capacity may
// not drop below the confirmed count read inside the same transaction.
func (s *Service) UpdateSite(ctx context.Context, siteID id.SiteID, req *models.UpdateSiteRequest) (*models.Site, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated *models.Site
	err := retry.Do(ctx, s.retryPolicy, isTransient, func(int) error {
		return s.tx.RunInTx(ctx, siteID, func(txCtx context.Context) error {
			site, err := s.sites.FindByID(txCtx, siteID)
			if err != nil {
				return err
			}
			now := requestcontext.Now(ctx)
			capacityChanged := false

			if req.Name != nil {
				if err := site.Rename(*req.Name, now); err != nil {
					return err
				}
			}
			if req.Capacity != nil && *req.Capacity != site.Capacity {
				confirmed, err := s.counter.CountConfirmed(txCtx, siteID)
				if err != nil {
					return err
				}
				if err := site.Resize(*req.Capacity, confirmed, now); err != nil {
					return err
				}
				capacityChanged = true
			}
			if req.Active != nil {
				site.SetActive(*req.Active, now)
			}

			if err := s.sites.Update(txCtx, site); err != nil {
				return err
			}
			if err := s.emit(txCtx, audit.EventSiteUpdated, site, capacityReason(capacityChanged, site)); err != nil {
				return err
			}
			if capacityChanged && s.metrics != nil {
				s.metrics.IncrementCapacityChanges()
			}
			updated = site
			return nil
		})
	}, s.onRetry(ctx, "update_site"))
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, models.ErrSiteNotFound
		case errors.Is(err, sentinel.ErrConflict):
			return nil, models.ErrSiteNameTaken
		case dErrors.HasCode(err, dErrors.CodeInvariantViolation):
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.Message(err))
		}
		return nil, storeError(err, "failed to update site")
	}

	s.logger.InfoContext(ctx, string(audit.EventSiteUpdated),
		"site_id", siteID.String(),
		"capacity", updated.Capacity,
		"active", updated.Active,
		"request_id", requestcontext.RequestID(ctx),
		"log_type", "audit",
	)
	s.invalidateOccupancy()
	return updated, nil
}

// GetSite returns a site by id.
func (s *Service) GetSite(ctx context.Context, siteID id.SiteID) (*models.Site, error) {
	site, err := s.sites.FindByID(ctx, siteID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.ErrSiteNotFound
		}
		return nil, storeError(err, "failed to load site")
	}
	return site, nil
}

// ListSites returns every site ordered by name.
func (s *Service) ListSites(ctx context.Context) ([]*models.Site, error) {
	sites, err := s.sites.List(ctx)
	if err != nil {
		return nil, storeError(err, "failed to list sites")
	}
	return sites, nil
}

func capacityReason(changed bool, site *models.Site) string {
	if !changed {
		return ""
	}
	return "capacity set to " + strconv.Itoa(site.Capacity)
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, site *models.Site, reason string) {
	s.logger.InfoContext(ctx, string(event),
		"site_id", site.ID.String(),
		"name", site.Name,
		"capacity", site.Capacity,
		"request_id", requestcontext.RequestID(ctx),
		"event", string(event),
		"log_type", "audit",
	)
	if err := s.emit(ctx, event, site, reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to record audit event",
			"event", string(event),
			"error", err,
		)
	}
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, site *models.Site, reason string) error {
	if s.auditPublisher == nil {
		return nil
	}
	return s.auditPublisher.Emit(ctx, audit.Event{
		Action:    string(event),
		SiteID:    site.ID,
		Reason:    reason,
		ActorID:   requestcontext.Actor(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Timestamp: requestcontext.Now(ctx),
	})
}

func (s *Service) onRetry(ctx context.Context, op string) func(error, time.Duration) {
	return func(err error, wait time.Duration) {
		s.logger.WarnContext(ctx, "retrying site transaction",
			"operation", op,
			"error", err,
			"wait", wait,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func isTransient(err error) bool {
	return errors.Is(err, sentinel.ErrUnavailable)
}

// storeError keeps coded errors and classifies the rest.
func storeError(err error, msg string) error {
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
