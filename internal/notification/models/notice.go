package models

import (
	"time"

	id "misiones/pkg/domain"
)

// Kind names the situation a notice tells the registrant about.
type Kind string

const (
	// KindPromoted tells a registrant they moved from the waitlist to confirmed.
	KindPromoted Kind = "promoted"
	// KindDocumentsMissing reminds a confirmed registrant to upload documents.
	KindDocumentsMissing Kind = "documents_missing"
)

// Notice is one outbox entry. DedupeKey is unique across the outbox so the
// same fact is never enqueued twice.
type Notice struct {
	ID             id.NoticeID
	Kind           Kind
	DedupeKey      string
	RegistrationID id.RegistrationID
	SiteID         id.SiteID
	SiteName       string
	RecipientName  string
	RecipientEmail string
	Details        map[string]string
	CreatedAt      time.Time
	NextAttemptAt  time.Time
	Attempts       int
	LastError      string
	DeliveredAt    *time.Time
}

// PromotedDedupeKey identifies the single promotion a registration can have.
func PromotedDedupeKey(regID id.RegistrationID) string {
	return string(KindPromoted) + ":" + regID.String()
}

// DocumentsMissingDedupeKey allows one reminder per registration per UTC day.
func DocumentsMissingDedupeKey(regID id.RegistrationID, day time.Time) string {
	return string(KindDocumentsMissing) + ":" + regID.String() + ":" + day.UTC().Format(time.DateOnly)
}

// NewNotice builds a notice due immediately.
func NewNotice(kind Kind, dedupeKey string, regID id.RegistrationID, siteID id.SiteID, siteName, recipientName, recipientEmail string, details map[string]string, now time.Time) *Notice {
	return &Notice{
		ID:             id.NewNoticeID(),
		Kind:           kind,
		DedupeKey:      dedupeKey,
		RegistrationID: regID,
		SiteID:         siteID,
		SiteName:       siteName,
		RecipientName:  recipientName,
		RecipientEmail: recipientEmail,
		Details:        details,
		CreatedAt:      now,
		NextAttemptAt:  now,
	}
}
