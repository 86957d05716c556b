package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"misiones/internal/registration/models"
	sitemodels "misiones/internal/site/models"
	id "misiones/pkg/domain"
	"misiones/pkg/platform/audit"
	"misiones/pkg/platform/sentinel"
)

// Register admits a registrant to a site. Inside one site transaction it
// checks the site, applies the duplicate policy, counts confirmed
// registrations and inserts the registration as confirmed when a slot is
// free or waitlisted otherwise.
func (s *Service) Register(ctx context.Context, siteID id.SiteID, req *models.RegisterRequest) (_ *models.RegisterResult, err error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "registration.register",
		trace.WithAttributes(attribute.String("site_id", siteID.String())))
	defer func() { endSpan(span, err) }()

	var (
		reg    *models.Registration
		result *models.RegisterResult
	)
	err = s.inSiteTx(ctx, siteID, "register", func(txCtx context.Context) error {
		var txErr error
		reg, result, txErr = s.admit(txCtx, siteID, req.Registrant())
		return txErr
	})
	if s.metrics != nil {
		s.metrics.ObserveAdmission(start)
	}
	if err != nil {
		return nil, translate(err, sitemodels.ErrSiteNotFound, "failed to register")
	}

	span.SetAttributes(attribute.String("status", string(result.Status)))
	s.logAudit(ctx, audit.EventRegistrationCreated, reg)
	if s.metrics != nil {
		s.metrics.IncrementRegistrations(string(result.Status))
	}
	if result.Status == models.StatusConfirmed {
		s.invalidateOccupancy()
	}
	return result, nil
}

func (s *Service) admit(ctx context.Context, siteID id.SiteID, who models.Registrant) (*models.Registration, *models.RegisterResult, error) {
	site, err := s.sites.FindByID(ctx, siteID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, sitemodels.ErrSiteNotFound
		}
		return nil, nil, err
	}
	if !site.AcceptsRegistrations() {
		return nil, nil, models.ErrSiteInactive
	}

	if s.duplicatePolicy == DuplicateReject {
		_, err := s.ledger.FindActiveByDocument(ctx, siteID, who.DocumentNumber)
		switch {
		case err == nil:
			return nil, nil, models.ErrDuplicateRegistration
		case !errors.Is(err, sentinel.ErrNotFound):
			return nil, nil, err
		}
	}

	confirmed, err := s.ledger.CountConfirmed(ctx, siteID)
	if err != nil {
		return nil, nil, err
	}
	status := models.StatusWaitlisted
	if site.HasFreeSlot(confirmed) {
		status = models.StatusConfirmed
	}

	reg, err := models.NewRegistration(id.NewRegistrationID(), siteID, status, who, s.now())
	if err != nil {
		return nil, nil, err
	}
	if err := s.ledger.Create(ctx, reg); err != nil {
		return nil, nil, err
	}
	if err := s.emit(ctx, audit.EventRegistrationCreated, reg, "", ""); err != nil {
		return nil, nil, err
	}

	result := &models.RegisterResult{ID: reg.ID, Status: status}
	if status == models.StatusWaitlisted {
		pos, err := s.ledger.WaitlistPosition(ctx, reg)
		if err != nil {
			return nil, nil, err
		}
		result.WaitlistPosition = &pos
	}
	return reg, result, nil
}
