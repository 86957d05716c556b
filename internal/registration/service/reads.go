package service

import (
	"context"
	"errors"

	"misiones/internal/registration/models"
	sitemodels "misiones/internal/site/models"
	id "misiones/pkg/domain"
	"misiones/pkg/platform/audit"
	"misiones/pkg/platform/sentinel"
)

// GetRegistration returns the status view of a live registration, with its
// waitlist position when waitlisted.
func (s *Service) GetRegistration(ctx context.Context, regID id.RegistrationID) (*models.RegistrationView, error) {
	reg, err := s.ledger.FindByID(ctx, regID)
	if err != nil {
		return nil, translate(err, models.ErrRegistrationNotFound, "failed to load registration")
	}
	if reg.State.IsDeleted() {
		return nil, models.ErrRegistrationNotFound
	}
	return s.view(ctx, reg)
}

// ListRegistrations returns a site's registrations in FIFO order, optionally
// filtered by status.
func (s *Service) ListRegistrations(ctx context.Context, siteID id.SiteID, status *models.Status) ([]*models.RegistrationView, error) {
	if _, err := s.sites.FindByID(ctx, siteID); err != nil {
		return nil, translate(err, sitemodels.ErrSiteNotFound, "failed to load site")
	}
	regs, err := s.ledger.ListBySite(ctx, siteID, status)
	if err != nil {
		return nil, translate(err, sitemodels.ErrSiteNotFound, "failed to list registrations")
	}

	views := make([]*models.RegistrationView, 0, len(regs))
	position := 0
	for _, r := range regs {
		if r.State.Is(models.StatusWaitlisted) {
			position++
		}
		views = append(views, models.NewView(r, position))
	}
	return views, nil
}

// AttachDocument records a document URL on a live registration. Status is
// not affected.
func (s *Service) AttachDocument(ctx context.Context, regID id.RegistrationID, rawKind string, req *models.AttachDocumentRequest) (*models.RegistrationView, error) {
	kind, err := models.ParseDocumentKind(rawKind)
	if err != nil {
		return nil, err
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	siteID, err := s.siteOf(ctx, regID)
	if err != nil {
		return nil, err
	}

	var view *models.RegistrationView
	err = s.inSiteTx(ctx, siteID, "attach_document", func(txCtx context.Context) error {
		reg, err := s.ledger.FindByID(txCtx, regID)
		if err != nil {
			return err
		}
		if err := reg.AttachDocument(kind, req.URL, s.now()); err != nil {
			return err
		}
		if err := s.ledger.Update(txCtx, reg); err != nil {
			return err
		}
		if err := s.emit(txCtx, audit.EventDocumentAttached, reg, "", string(kind)); err != nil {
			return err
		}
		view, err = s.view(txCtx, reg)
		return err
	})
	if err != nil {
		return nil, translate(err, models.ErrRegistrationNotFound, "failed to attach document")
	}
	s.logger.InfoContext(ctx, string(audit.EventDocumentAttached),
		"registration_id", regID.String(),
		"kind", string(kind),
		"log_type", "audit",
	)
	return view, nil
}

func (s *Service) view(ctx context.Context, reg *models.Registration) (*models.RegistrationView, error) {
	position := 0
	if reg.State.Is(models.StatusWaitlisted) {
		pos, err := s.ledger.WaitlistPosition(ctx, reg)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return nil, translate(err, models.ErrRegistrationNotFound, "failed to compute waitlist position")
		}
		position = pos
	}
	return models.NewView(reg, position), nil
}
