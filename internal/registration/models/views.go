package models

import (
	"time"

	id "misiones/pkg/domain"
)

// RegistrationView is what clients and operators read.
type RegistrationView struct {
	ID               id.RegistrationID         `json:"id"`
	SiteID           id.SiteID                 `json:"site_id"`
	Status           Status                    `json:"status"`
	WaitlistPosition *int                      `json:"waitlist_position,omitempty"`
	FullName         string                    `json:"full_name"`
	Email            string                    `json:"email"`
	DocumentNumber   string                    `json:"document_number"`
	Attributes       Attributes                `json:"attributes,omitempty"`
	Documents        map[DocumentKind]Document `json:"documents"`
	CancelReason     string                    `json:"cancel_reason,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
	CancelledAt      *time.Time                `json:"cancelled_at,omitempty"`
	PromotedAt       *time.Time                `json:"promoted_at,omitempty"`
}

// NewView renders a live registration. position is 1-based and only set for
// waitlisted registrations.
func NewView(r *Registration, position int) *RegistrationView {
	v := &RegistrationView{
		ID:             r.ID,
		SiteID:         r.SiteID,
		Status:         r.State.Status(),
		FullName:       r.FullName,
		Email:          r.Email,
		DocumentNumber: r.DocumentNumber,
		Attributes:     r.Attributes,
		Documents:      r.Documents,
		CancelReason:   r.CancelReason,
		CreatedAt:      r.CreatedAt,
		CancelledAt:    r.CancelledAt,
		PromotedAt:     r.PromotedAt,
	}
	if v.Documents == nil {
		v.Documents = map[DocumentKind]Document{}
	}
	if r.State.Is(StatusWaitlisted) && position > 0 {
		v.WaitlistPosition = &position
	}
	return v
}

// Promoted is the registrant a promotion confirmed, with the contact data a
// notifier needs.
type Promoted struct {
	RegistrationID id.RegistrationID `json:"registration_id"`
	Name           string            `json:"name"`
	Email          string            `json:"email"`
}

// CancelResult reports a cancellation and the promotion it triggered.
// PromotionFailed means a slot was freed but promoting the waitlist head
// failed; the cancellation still committed and an operator should promote.
type CancelResult struct {
	RegistrationID  id.RegistrationID `json:"registration_id"`
	SiteID          id.SiteID         `json:"site_id"`
	PriorStatus     Status            `json:"prior_status"`
	Promoted        *Promoted         `json:"promoted"`
	PromotionFailed bool              `json:"promotion_failed,omitempty"`
}

// RegisterResult is returned by admission.
type RegisterResult struct {
	ID               id.RegistrationID `json:"id"`
	Status           Status            `json:"status"`
	WaitlistPosition *int              `json:"waitlist_position,omitempty"`
}
