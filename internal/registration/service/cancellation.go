package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	notifmodels "misiones/internal/notification/models"
	"misiones/internal/registration/models"
	sitemodels "misiones/internal/site/models"
	id "misiones/pkg/domain"
	"misiones/pkg/platform/audit"
	"misiones/pkg/platform/sentinel"
	"misiones/pkg/requestcontext"
)

// cancelOutcome carries what a committed cancellation changed so logging,
// metrics and failure reporting happen after commit.
type cancelOutcome struct {
	cancelled    *models.Registration
	promoted     *models.Registration
	promotionErr error
	result       *models.CancelResult
}

// CancelAndPromote cancels a registration and, when it held a confirmed slot,
// promotes the FIFO head of the site's waitlist in the same site transaction.
//
// A failed promotion rolls back to a savepoint: the cancellation still
// commits and the result reports PromotionFailed. Cancelling an already
// cancelled registration returns ErrAlreadyCancelled and promotes nobody.
func (s *Service) CancelAndPromote(ctx context.Context, regID id.RegistrationID, req *models.CancelRequest) (_ *models.CancelResult, err error) {
	if req == nil {
		req = &models.CancelRequest{}
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "registration.cancel_and_promote",
		trace.WithAttributes(attribute.String("registration_id", regID.String())))
	defer func() { endSpan(span, err) }()

	siteID, err := s.siteOf(ctx, regID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("site_id", siteID.String()))

	var outcome *cancelOutcome
	err = s.inSiteTx(ctx, siteID, "cancel", func(txCtx context.Context) error {
		var txErr error
		outcome, txErr = s.cancelLocked(txCtx, regID, req.Reason)
		return txErr
	})
	if s.metrics != nil {
		s.metrics.ObserveCancellation(start)
	}
	if err != nil {
		return nil, translate(err, models.ErrRegistrationNotFound, "failed to cancel registration")
	}

	s.afterCancel(ctx, outcome)
	span.SetAttributes(
		attribute.String("prior_status", string(outcome.result.PriorStatus)),
		attribute.Bool("promoted", outcome.result.Promoted != nil),
		attribute.Bool("promotion_failed", outcome.result.PromotionFailed),
	)
	return outcome.result, nil
}

// DeleteRegistration soft-deletes a registration. A live registration is
// cancelled first, with the same promotion rule as CancelAndPromote, inside
// the same transaction.
func (s *Service) DeleteRegistration(ctx context.Context, regID id.RegistrationID) (_ *models.CancelResult, err error) {
	ctx, span := s.tracer.Start(ctx, "registration.delete",
		trace.WithAttributes(attribute.String("registration_id", regID.String())))
	defer func() { endSpan(span, err) }()

	siteID, err := s.siteOf(ctx, regID)
	if err != nil {
		return nil, err
	}

	var (
		outcome *cancelOutcome
		deleted *models.Registration
	)
	err = s.inSiteTx(ctx, siteID, "delete", func(txCtx context.Context) error {
		outcome = nil
		reg, err := s.ledger.FindByID(txCtx, regID)
		if err != nil {
			return err
		}
		if reg.State.IsDeleted() {
			return models.ErrRegistrationNotFound
		}
		if !reg.State.Is(models.StatusCancelled) {
			if outcome, err = s.cancelLocked(txCtx, regID, "deleted by administrator"); err != nil {
				return err
			}
			reg = outcome.cancelled.Clone()
		}
		if err := reg.MarkDeleted(s.now()); err != nil {
			return err
		}
		if err := s.ledger.Update(txCtx, reg); err != nil {
			return err
		}
		if err := s.emit(txCtx, audit.EventRegistrationDeleted, reg, models.StatusCancelled, ""); err != nil {
			return err
		}
		deleted = reg
		return nil
	})
	if err != nil {
		return nil, translate(err, models.ErrRegistrationNotFound, "failed to delete registration")
	}

	result := &models.CancelResult{
		RegistrationID: regID,
		SiteID:         siteID,
		PriorStatus:    models.StatusCancelled,
	}
	if outcome != nil {
		s.afterCancel(ctx, outcome)
		result = outcome.result
	}
	s.logAudit(ctx, audit.EventRegistrationDeleted, deleted)
	return result, nil
}

// PromoteNext promotes the site's waitlist head when a confirmed slot is
// free. It returns nil when the site is full or nobody is waiting.
func (s *Service) PromoteNext(ctx context.Context, siteID id.SiteID) (_ *models.Promoted, err error) {
	ctx, span := s.tracer.Start(ctx, "registration.promote_next",
		trace.WithAttributes(attribute.String("site_id", siteID.String())))
	defer func() { endSpan(span, err) }()

	var promoted *models.Registration
	err = s.inSiteTx(ctx, siteID, "promote", func(txCtx context.Context) error {
		var txErr error
		promoted, txErr = s.promoteHead(txCtx, siteID)
		return txErr
	})
	if err != nil {
		return nil, translate(err, sitemodels.ErrSiteNotFound, "failed to promote")
	}
	if promoted == nil {
		return nil, nil
	}
	s.afterPromotion(ctx, promoted, "manual")
	return promotedView(promoted), nil
}

// siteOf resolves the site a registration belongs to before taking its lock.
func (s *Service) siteOf(ctx context.Context, regID id.RegistrationID) (id.SiteID, error) {
	reg, err := s.ledger.FindByID(ctx, regID)
	if err != nil {
		return id.SiteID{}, translate(err, models.ErrRegistrationNotFound, "failed to load registration")
	}
	if reg.State.IsDeleted() {
		return id.SiteID{}, models.ErrRegistrationNotFound
	}
	return reg.SiteID, nil
}

func (s *Service) cancelLocked(ctx context.Context, regID id.RegistrationID, reason string) (*cancelOutcome, error) {
	reg, err := s.ledger.FindByID(ctx, regID)
	if err != nil {
		return nil, err
	}
	prior, err := reg.Cancel(reason, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Update(ctx, reg); err != nil {
		return nil, err
	}
	if err := s.emit(ctx, audit.EventRegistrationCancelled, reg, prior, reg.CancelReason); err != nil {
		return nil, err
	}

	outcome := &cancelOutcome{
		cancelled: reg,
		result: &models.CancelResult{
			RegistrationID: reg.ID,
			SiteID:         reg.SiteID,
			PriorStatus:    prior,
		},
	}
	if prior != models.StatusConfirmed {
		return outcome, nil
	}

	err = s.tx.Savepoint(ctx, func(spCtx context.Context) error {
		promoted, err := s.promoteHead(spCtx, reg.SiteID)
		if err != nil {
			return err
		}
		outcome.promoted = promoted
		return nil
	})
	if err != nil {
		outcome.promoted = nil
		outcome.promotionErr = err
		outcome.result.PromotionFailed = true
		return outcome, nil
	}
	if outcome.promoted != nil {
		outcome.result.Promoted = promotedView(outcome.promoted)
	}
	return outcome, nil
}

// promoteHead confirms the oldest waitlisted registration if the site has a
// free slot. The caller holds the site lock.
func (s *Service) promoteHead(ctx context.Context, siteID id.SiteID) (*models.Registration, error) {
	site, err := s.sites.FindByID(ctx, siteID)
	if err != nil {
		return nil, err
	}
	confirmed, err := s.ledger.CountConfirmed(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if !site.HasFreeSlot(confirmed) {
		return nil, nil
	}
	head, err := s.ledger.NextWaitlisted(ctx, siteID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := head.Promote(now); err != nil {
		return nil, err
	}
	if err := s.ledger.Update(ctx, head); err != nil {
		return nil, err
	}
	if s.notices != nil {
		notice := notifmodels.NewNotice(notifmodels.KindPromoted, notifmodels.PromotedDedupeKey(head.ID),
			head.ID, siteID, site.Name, head.FullName, head.Email, nil, now)
		if err := s.notices.Enqueue(ctx, notice); err != nil && !errors.Is(err, sentinel.ErrConflict) {
			return nil, err
		}
	}
	if err := s.emit(ctx, audit.EventRegistrationPromoted, head, models.StatusWaitlisted, ""); err != nil {
		return nil, err
	}
	return head, nil
}

func (s *Service) afterCancel(ctx context.Context, o *cancelOutcome) {
	prior := o.result.PriorStatus
	s.logAudit(ctx, audit.EventRegistrationCancelled, o.cancelled, "prior_status", string(prior))
	if s.metrics != nil {
		s.metrics.IncrementCancellations(string(prior))
	}
	if prior == models.StatusConfirmed {
		s.invalidateOccupancy()
	}

	switch {
	case o.promotionErr != nil:
		s.reportPromotionFailure(ctx, o.cancelled, o.promotionErr)
	case o.promoted != nil:
		s.afterPromotion(ctx, o.promoted, "cancellation")
	case prior == models.StatusConfirmed:
		s.logger.InfoContext(ctx, string(audit.EventPromotionSkipped),
			"site_id", o.cancelled.SiteID.String(),
			"cancelled_registration_id", o.cancelled.ID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (s *Service) afterPromotion(ctx context.Context, promoted *models.Registration, trigger string) {
	s.logAudit(ctx, audit.EventRegistrationPromoted, promoted, "trigger", trigger)
	if s.metrics != nil {
		s.metrics.IncrementPromotions()
	}
	s.invalidateOccupancy()
}

// reportPromotionFailure surfaces a freed slot that was not filled so an
// operator can run PromoteNext for the site.
func (s *Service) reportPromotionFailure(ctx context.Context, cancelled *models.Registration, cause error) {
	s.logger.ErrorContext(ctx, string(audit.EventPromotionFailed),
		"event", string(audit.EventPromotionFailed),
		"site_id", cancelled.SiteID.String(),
		"cancelled_registration_id", cancelled.ID.String(),
		"error", cause,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.IncrementPromotionFailures()
	}
	if err := s.emit(ctx, audit.EventPromotionFailed, cancelled, models.StatusConfirmed, cause.Error()); err != nil {
		s.logger.ErrorContext(ctx, "failed to record audit event",
			"event", string(audit.EventPromotionFailed),
			"error", err,
		)
	}
}

func promotedView(r *models.Registration) *models.Promoted {
	return &models.Promoted{
		RegistrationID: r.ID,
		Name:           r.FullName,
		Email:          r.Email,
	}
}
