package models

import (
	"strings"
	"time"
	"unicode"

	id "misiones/pkg/domain"
	dErrors "misiones/pkg/domain-errors"
)

// DocumentKind names an uploaded document slot.
type DocumentKind string

const (
	DocumentConsent   DocumentKind = "consent"
	DocumentMedical   DocumentKind = "medical"
	DocumentSignature DocumentKind = "signature"
)

// DocumentKinds lists every slot in display order.
var DocumentKinds = []DocumentKind{DocumentConsent, DocumentMedical, DocumentSignature}

func ParseDocumentKind(raw string) (DocumentKind, error) {
	kind := DocumentKind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case DocumentConsent, DocumentMedical, DocumentSignature:
		return kind, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "document kind must be consent, medical or signature")
}

// Document is an uploaded file reference. Storage of the file itself happens
// elsewhere.
type Document struct {
	URL        string    `json:"url"`
	AttachedAt time.Time `json:"attached_at"`
}

// Attributes are descriptive registrant fields (phone, role, guardian data,
// consent flags). They are stored and returned but never interpreted.
type Attributes map[string]string

// Registration is one registrant's signup for a site.
//
// Invariants:
//   - SiteID and CreatedAt never change
//   - a cancelled registration never becomes confirmed or waitlisted again
//   - only a cancelled registration can be deleted
type Registration struct {
	ID             id.RegistrationID
	Seq            int64
	SiteID         id.SiteID
	State          State
	FullName       string
	Email          string
	DocumentNumber string
	Attributes     Attributes
	Documents      map[DocumentKind]Document
	CancelReason   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CancelledAt    *time.Time
	PromotedAt     *time.Time
}

// Registrant is the validated input for a new registration.
type Registrant struct {
	FullName       string
	Email          string
	DocumentNumber string
	Attributes     Attributes
}

// NewRegistration builds a registration admitted with status, which must be
// confirmed or waitlisted.
func NewRegistration(regID id.RegistrationID, siteID id.SiteID, status Status, who Registrant, now time.Time) (*Registration, error) {
	if status != StatusConfirmed && status != StatusWaitlisted {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "new registrations are confirmed or waitlisted")
	}
	if siteID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "site id is required")
	}
	if who.FullName == "" || who.Email == "" || who.DocumentNumber == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registrant name, email and document number are required")
	}
	attrs := make(Attributes, len(who.Attributes))
	for k, v := range who.Attributes {
		attrs[k] = v
	}
	return &Registration{
		ID:             regID,
		SiteID:         siteID,
		State:          Active(status),
		FullName:       who.FullName,
		Email:          who.Email,
		DocumentNumber: who.DocumentNumber,
		Attributes:     attrs,
		Documents:      map[DocumentKind]Document{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Cancel moves a live registration to cancelled and returns the status it had.
func (r *Registration) Cancel(reason string, now time.Time) (Status, error) {
	if r.State.IsDeleted() {
		return "", ErrRegistrationNotFound
	}
	prior := r.State.Status()
	if prior == StatusCancelled {
		return "", ErrAlreadyCancelled
	}
	r.State = Active(StatusCancelled)
	r.CancelReason = strings.TrimSpace(reason)
	r.CancelledAt = &now
	r.UpdatedAt = now
	return prior, nil
}

// Promote confirms a waitlisted registration.
func (r *Registration) Promote(now time.Time) error {
	if !r.State.Is(StatusWaitlisted) {
		return ErrNotWaitlisted
	}
	r.State = Active(StatusConfirmed)
	r.PromotedAt = &now
	r.UpdatedAt = now
	return nil
}

// MarkDeleted soft-deletes a cancelled registration.
func (r *Registration) MarkDeleted(now time.Time) error {
	if r.State.IsDeleted() {
		return ErrRegistrationNotFound
	}
	if !r.State.Is(StatusCancelled) {
		return ErrNotCancelled
	}
	r.State = Deleted(now)
	r.UpdatedAt = now
	return nil
}

// AttachDocument records a document URL. Status is not affected.
func (r *Registration) AttachDocument(kind DocumentKind, url string, now time.Time) error {
	if r.State.IsDeleted() {
		return ErrRegistrationNotFound
	}
	if r.State.Is(StatusCancelled) {
		return ErrRegistrationCancelled
	}
	if r.Documents == nil {
		r.Documents = map[DocumentKind]Document{}
	}
	r.Documents[kind] = Document{URL: url, AttachedAt: now}
	r.UpdatedAt = now
	return nil
}

// MissingDocuments returns the kinds in required that have no document.
func (r *Registration) MissingDocuments(required []DocumentKind) []DocumentKind {
	var missing []DocumentKind
	for _, kind := range required {
		if _, ok := r.Documents[kind]; !ok {
			missing = append(missing, kind)
		}
	}
	return missing
}

// NormalizeDocument canonicalizes a document number for duplicate detection:
// upper-cased with whitespace, dots and dashes removed.
func NormalizeDocument(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsSpace(r) || r == '.' || r == '-' {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Before orders registrations FIFO by ledger insertion sequence. CreatedAt is
// informational only; wall clocks on different replicas may disagree.
func (r *Registration) Before(other *Registration) bool {
	return r.Seq < other.Seq
}

// Clone returns a deep copy so stores never share maps with callers.
func (r *Registration) Clone() *Registration {
	cp := *r
	if r.Attributes != nil {
		cp.Attributes = make(Attributes, len(r.Attributes))
		for k, v := range r.Attributes {
			cp.Attributes[k] = v
		}
	}
	if r.Documents != nil {
		cp.Documents = make(map[DocumentKind]Document, len(r.Documents))
		for k, v := range r.Documents {
			cp.Documents[k] = v
		}
	}
	if r.CancelledAt != nil {
		t := *r.CancelledAt
		cp.CancelledAt = &t
	}
	if r.PromotedAt != nil {
		t := *r.PromotedAt
		cp.PromotedAt = &t
	}
	return &cp
}
