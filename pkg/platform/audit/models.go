package audit

import (
	"context"
	"time"

	id "misiones/pkg/domain"
)

// EventCategory separates the ledger history from operational signals so they
// can be retained and routed differently.
type EventCategory string

const (
	// CategoryCompliance covers changes to registrations and sites. These
	// are written in the same transaction as the change they describe.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers signals an operator acts on, such as a
	// promotion that could not be completed.
	CategoryOperations EventCategory = "operations"
)

// Event records one lifecycle step. Keep it transport-agnostic so stores and
// sinks can fan out.
type Event struct {
	Category       EventCategory     `json:"category"`
	Timestamp      time.Time         `json:"timestamp"`
	Action         string            `json:"action"`
	SiteID         id.SiteID         `json:"site_id"`
	RegistrationID id.RegistrationID `json:"registration_id"`
	PriorStatus    string            `json:"prior_status,omitempty"`
	Status         string            `json:"status,omitempty"`
	Reason         string            `json:"reason,omitempty"`
	// ActorID is the operator subject for admin actions, empty for registrants.
	ActorID   string `json:"actor_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type AuditEvent string

const (
	EventSiteCreated AuditEvent = "site_created"
	EventSiteUpdated AuditEvent = "site_updated"

	EventRegistrationCreated   AuditEvent = "registration_created"
	EventRegistrationCancelled AuditEvent = "registration_cancelled"
	EventRegistrationPromoted  AuditEvent = "registration_promoted"
	EventRegistrationDeleted   AuditEvent = "registration_deleted"
	EventDocumentAttached      AuditEvent = "registration_document_attached"

	EventPromotionFailed  AuditEvent = "registration_promotion_failed"
	EventPromotionSkipped AuditEvent = "registration_promotion_skipped"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventSiteCreated:           CategoryCompliance,
	EventSiteUpdated:           CategoryCompliance,
	EventRegistrationCreated:   CategoryCompliance,
	EventRegistrationCancelled: CategoryCompliance,
	EventRegistrationPromoted:  CategoryCompliance,
	EventRegistrationDeleted:   CategoryCompliance,
	EventDocumentAttached:      CategoryCompliance,
	EventPromotionFailed:       CategoryOperations,
	EventPromotionSkipped:      CategoryOperations,
}

// Category returns the category for this event. Unknown events are operations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists events. Append joins the caller's transaction when the
// context carries one.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByRegistration(ctx context.Context, registrationID id.RegistrationID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
