package models

import (
	"strings"
	"time"

	id "misiones/pkg/domain"
	dErrors "misiones/pkg/domain-errors"
)

const maxSiteNameLength = 128

// Site is a capacity-limited location ("pueblo") registrants sign up for.
//
// Invariants:
//   - Name is non-empty and at most 128 characters
//   - Capacity is never negative
//   - Capacity is never lowered below the site's current confirmed count
//     (checked by Resize under the site lock)
//   - CreatedAt is immutable after construction
type Site struct {
	ID        id.SiteID `json:"id"`
	Name      string    `json:"name"`
	Capacity  int       `json:"capacity"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSite(siteID id.SiteID, name string, capacity int, active bool, now time.Time) (*Site, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if capacity < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "capacity cannot be negative")
	}
	return &Site{
		ID:        siteID,
		Name:      name,
		Capacity:  capacity,
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func validateName(name string) error {
	if name == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "site name cannot be empty")
	}
	if len(name) > maxSiteNameLength {
		return dErrors.New(dErrors.CodeInvariantViolation, "site name must be 128 characters or less")
	}
	return nil
}

// AcceptsRegistrations reports whether new registrations may be admitted.
func (s *Site) AcceptsRegistrations() bool {
	return s.Active
}

// HasFreeSlot reports whether one more registration fits as confirmed.
func (s *Site) HasFreeSlot(confirmed int) bool {
	return confirmed < s.Capacity
}

func (s *Site) Rename(name string, now time.Time) error {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return err
	}
	s.Name = name
	s.UpdatedAt = now
	return nil
}

// Resize changes capacity. confirmed is the site's confirmed count read inside
// the same site transaction.
func (s *Site) Resize(capacity, confirmed int, now time.Time) error {
	if capacity < 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "capacity cannot be negative")
	}
	if capacity < confirmed {
		return ErrCapacityBelowConfirmed
	}
	s.Capacity = capacity
	s.UpdatedAt = now
	return nil
}

func (s *Site) SetActive(active bool, now time.Time) {
	s.Active = active
	s.UpdatedAt = now
}

// Occupancy is the read model served to collaborators.
type Occupancy struct {
	SiteID         id.SiteID `json:"site_id"`
	Name           string    `json:"name"`
	Capacity       int       `json:"capacity"`
	ConfirmedCount int       `json:"confirmed_count"`
	FreeSlots      int       `json:"free_slots"`
	Active         bool      `json:"active"`
}

func NewOccupancy(s *Site, confirmed int) Occupancy {
	return Occupancy{
		SiteID:         s.ID,
		Name:           s.Name,
		Capacity:       s.Capacity,
		ConfirmedCount: confirmed,
		FreeSlots:      max(s.Capacity-confirmed, 0),
		Active:         s.Active,
	}
}
