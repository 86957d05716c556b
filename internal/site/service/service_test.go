package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"misiones/internal/platform/sitetx"
	"misiones/internal/site/models"
	sitestore "misiones/internal/site/store/site"
	id "misiones/pkg/domain"
	dErrors "misiones/pkg/domain-errors"
	"misiones/pkg/platform/audit"
	"misiones/pkg/platform/audit/publisher"
	auditmemory "misiones/pkg/platform/audit/store/memory"
	"misiones/pkg/platform/retry"
	"misiones/pkg/platform/sentinel"
)

// stubCounter serves fixed confirmed counts.
type stubCounter struct {
	mu     sync.Mutex
	counts map[id.SiteID]int
	err    error
	calls  int
}

func (c *stubCounter) CountConfirmed(_ context.Context, siteID id.SiteID) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return 0, c.err
	}
	return c.counts[siteID], nil
}

func (c *stubCounter) CountConfirmedBySite(context.Context) (map[id.SiteID]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	out := make(map[id.SiteID]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out, nil
}

func (c *stubCounter) set(siteID id.SiteID, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[siteID] = n
}

type SiteServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *sitestore.InMemory
	counter *stubCounter
	events  *auditmemory.InMemoryStore
	service *Service
}

func TestSiteServiceSuite(t *testing.T) {
	suite.Run(t, new(SiteServiceSuite))
}

func (s *SiteServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = sitestore.NewInMemory()
	s.counter = &stubCounter{counts: map[id.SiteID]int{}}
	s.events = auditmemory.NewInMemoryStore()
	s.service = New(s.store, s.counter, sitetx.NewMemory(time.Second),
		WithAuditPublisher(publisher.NewPublisher(s.events)),
		WithRetryPolicy(retry.Policy{MaxAttempts: 1}),
	)
}

func (s *SiteServiceSuite) createSite(name string, capacity int) *models.Site {
	site, err := s.service.CreateSite(s.ctx, &models.CreateSiteRequest{Name: name, Capacity: capacity})
	s.Require().NoError(err)
	return site
}

func (s *SiteServiceSuite) TestCreateSite() {
	s.Run("creates an active site by default", func() {
		site := s.createSite("  San Isidro ", 40)
		s.Equal("San Isidro", site.Name)
		s.True(site.Active)
		s.Len(s.events.ListByAction(s.ctx, audit.EventSiteCreated), 1)
	})

	s.Run("rejects a duplicate name ignoring case", func() {
		_, err := s.service.CreateSite(s.ctx, &models.CreateSiteRequest{Name: "SAN ISIDRO", Capacity: 3})
		s.Require().ErrorIs(err, models.ErrSiteNameTaken)
	})

	s.Run("rejects invalid input", func() {
		_, err := s.service.CreateSite(s.ctx, &models.CreateSiteRequest{Name: "X", Capacity: -1})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *SiteServiceSuite) TestUpdateSite() {
	site := s.createSite("Colonia Aurora", 5)

	s.Run("raises capacity", func() {
		capacity := 8
		updated, err := s.service.UpdateSite(s.ctx, site.ID, &models.UpdateSiteRequest{Capacity: &capacity})
		s.Require().NoError(err)
		s.Equal(8, updated.Capacity)
		s.Len(s.events.ListByAction(s.ctx, audit.EventSiteUpdated), 1)
	})

	s.Run("cannot drop below confirmed count", func() {
		s.counter.set(site.ID, 6)
		capacity := 5
		_, err := s.service.UpdateSite(s.ctx, site.ID, &models.UpdateSiteRequest{Capacity: &capacity})
		s.Require().ErrorIs(err, models.ErrCapacityBelowConfirmed)

		stored, err := s.service.GetSite(s.ctx, site.ID)
		s.Require().NoError(err)
		s.Equal(8, stored.Capacity)
	})

	s.Run("lowering to exactly the confirmed count is allowed", func() {
		capacity := 6
		updated, err := s.service.UpdateSite(s.ctx, site.ID, &models.UpdateSiteRequest{Capacity: &capacity})
		s.Require().NoError(err)
		s.Equal(6, updated.Capacity)
	})

	s.Run("deactivates and renames", func() {
		active := false
		name := "Colonia Aurora Norte"
		updated, err := s.service.UpdateSite(s.ctx, site.ID, &models.UpdateSiteRequest{Name: &name, Active: &active})
		s.Require().NoError(err)
		s.False(updated.Active)
		s.Equal(name, updated.Name)
	})

	s.Run("rename onto another site's name conflicts", func() {
		s.createSite("Puerto Rico", 3)
		name := "puerto rico"
		_, err := s.service.UpdateSite(s.ctx, site.ID, &models.UpdateSiteRequest{Name: &name})
		s.Require().ErrorIs(err, models.ErrSiteNameTaken)
	})

	s.Run("unknown site", func() {
		active := true
		_, err := s.service.UpdateSite(s.ctx, id.NewSiteID(), &models.UpdateSiteRequest{Active: &active})
		s.Require().ErrorIs(err, models.ErrSiteNotFound)
	})

	s.Run("empty update is a validation error", func() {
		_, err := s.service.UpdateSite(s.ctx, site.ID, &models.UpdateSiteRequest{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *SiteServiceSuite) TestOccupancy() {
	a := s.createSite("Alba", 3)
	b := s.createSite("Bella Vista", 2)
	s.counter.set(a.ID, 1)
	s.counter.set(b.ID, 4)

	all, err := s.service.Occupancy(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(models.Occupancy{SiteID: a.ID, Name: "Alba", Capacity: 3, ConfirmedCount: 1, FreeSlots: 2, Active: true}, all[0])
	s.Equal(0, all[1].FreeSlots, "free slots never go negative")

	one, err := s.service.SiteOccupancy(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(2, one.FreeSlots)

	_, err = s.service.SiteOccupancy(s.ctx, id.NewSiteID())
	s.Require().ErrorIs(err, models.ErrSiteNotFound)
}

func (s *SiteServiceSuite) TestOccupancyCache() {
	svc := New(s.store, s.counter, sitetx.NewMemory(time.Second), WithOccupancyCache(time.Minute))
	site, err := svc.CreateSite(s.ctx, &models.CreateSiteRequest{Name: "Cached", Capacity: 2})
	s.Require().NoError(err)

	_, err = svc.SiteOccupancy(s.ctx, site.ID)
	s.Require().NoError(err)
	calls := s.counter.calls

	s.counter.set(site.ID, 2)
	occ, err := svc.SiteOccupancy(s.ctx, site.ID)
	s.Require().NoError(err)
	s.Equal(calls, s.counter.calls, "second read is served from cache")
	s.Equal(0, occ.ConfirmedCount)

	svc.InvalidateOccupancy()
	occ, err = svc.SiteOccupancy(s.ctx, site.ID)
	s.Require().NoError(err)
	s.Equal(2, occ.ConfirmedCount)
}

func (s *SiteServiceSuite) TestOccupancyCacheHandsOutCopies() {
	svc := New(s.store, s.counter, sitetx.NewMemory(time.Second), WithOccupancyCache(time.Minute))
	_, err := svc.CreateSite(s.ctx, &models.CreateSiteRequest{Name: "Montecarlo", Capacity: 4})
	s.Require().NoError(err)

	first, err := svc.Occupancy(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(first, 1)
	first[0].FreeSlots = 0
	first[0].Name = "changed by caller"

	second, err := svc.Occupancy(s.ctx)
	s.Require().NoError(err)
	s.Equal("Montecarlo", second[0].Name)
	s.Equal(4, second[0].FreeSlots)
	second[0].ConfirmedCount = 99

	third, err := svc.Occupancy(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, third[0].ConfirmedCount)
}

func (s *SiteServiceSuite) TestStoreFailuresAreClassified() {
	site := s.createSite("Fallas", 2)

	s.counter.err = errors.Join(sentinel.ErrUnavailable, errors.New("connection reset"))
	capacity := 1
	_, err := s.service.UpdateSite(s.ctx, site.ID, &models.UpdateSiteRequest{Capacity: &capacity})
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	_, err = s.service.Occupancy(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}
