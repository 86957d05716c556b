package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "misiones/pkg/domain"
	dErrors "misiones/pkg/domain-errors"
)

type SiteModelSuite struct {
	suite.Suite
	now time.Time
}

func TestSiteModelSuite(t *testing.T) {
	suite.Run(t, new(SiteModelSuite))
}

func (s *SiteModelSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *SiteModelSuite) TestNewSite() {
	s.Run("valid site", func() {
		site, err := NewSite(id.NewSiteID(), "  San Ignacio ", 40, true, s.now)
		s.Require().NoError(err)
		s.Equal("San Ignacio", site.Name)
		s.Equal(40, site.Capacity)
		s.True(site.AcceptsRegistrations())
		s.Equal(s.now, site.CreatedAt)
	})

	s.Run("zero capacity is allowed", func() {
		site, err := NewSite(id.NewSiteID(), "Apóstoles", 0, true, s.now)
		s.Require().NoError(err)
		s.False(site.HasFreeSlot(0))
	})

	s.Run("rejects empty name", func() {
		_, err := NewSite(id.NewSiteID(), "   ", 10, true, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("rejects long name", func() {
		_, err := NewSite(id.NewSiteID(), strings.Repeat("x", 129), 10, true, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("rejects negative capacity", func() {
		_, err := NewSite(id.NewSiteID(), "Oberá", -1, true, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *SiteModelSuite) TestResize() {
	site, err := NewSite(id.NewSiteID(), "Oberá", 10, true, s.now)
	s.Require().NoError(err)
	later := s.now.Add(time.Hour)

	s.Run("cannot drop below confirmed", func() {
		err := site.Resize(4, 5, later)
		s.ErrorIs(err, ErrCapacityBelowConfirmed)
		s.Equal(10, site.Capacity)
	})

	s.Run("can shrink to confirmed", func() {
		s.Require().NoError(site.Resize(5, 5, later))
		s.Equal(5, site.Capacity)
		s.Equal(later, site.UpdatedAt)
	})
}

func (s *SiteModelSuite) TestOccupancy() {
	site, err := NewSite(id.NewSiteID(), "Eldorado", 2, false, s.now)
	s.Require().NoError(err)

	occ := NewOccupancy(site, 1)
	s.Equal(1, occ.FreeSlots)
	s.False(occ.Active)

	site.Capacity = 0
	s.Equal(0, NewOccupancy(site, 1).FreeSlots, "free slots never go negative")
}

func (s *SiteModelSuite) TestRequests() {
	s.Run("create defaults to active", func() {
		req := &CreateSiteRequest{Name: " Posadas ", Capacity: 3}
		req.Normalize()
		s.Require().NoError(req.Validate())
		s.Equal("Posadas", req.Name)
		s.True(req.IsActive())
	})

	s.Run("update needs a field", func() {
		req := &UpdateSiteRequest{}
		s.True(dErrors.HasCode(req.Validate(), dErrors.CodeValidation))
	})

	s.Run("update rejects blank name", func() {
		blank := "  "
		req := &UpdateSiteRequest{Name: &blank}
		req.Normalize()
		s.True(dErrors.HasCode(req.Validate(), dErrors.CodeValidation))
	})

	s.Run("update rejects negative capacity", func() {
		neg := -2
		req := &UpdateSiteRequest{Capacity: &neg}
		s.True(dErrors.HasCode(req.Validate(), dErrors.CodeValidation))
	})
}
