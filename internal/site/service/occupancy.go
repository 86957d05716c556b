package service

import (
	"context"
	"errors"
	"slices"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"misiones/internal/site/models"
	id "misiones/pkg/domain"
	"misiones/pkg/platform/sentinel"
)

const allSitesKey = "occupancy:all"

// Occupancy returns the occupancy of every site ordered by name. The result
// may be stale by up to the cache TTL; admission re-checks under the site
// lock, so a stale read never admits past capacity. Callers own the returned
// slice; the cache keeps its own copy.
func (s *Service) Occupancy(ctx context.Context) ([]models.Occupancy, error) {
	if cached, ok := s.cached(allSitesKey); ok {
		return slices.Clone(cached.([]models.Occupancy)), nil
	}
	start := time.Now()

	sites, err := s.sites.List(ctx)
	if err != nil {
		return nil, storeError(err, "failed to list sites")
	}
	counts, err := s.counter.CountConfirmedBySite(ctx)
	if err != nil {
		return nil, storeError(err, "failed to count confirmed registrations")
	}

	out := make([]models.Occupancy, 0, len(sites))
	for _, site := range sites {
		out = append(out, models.NewOccupancy(site, counts[site.ID]))
	}

	s.store(allSitesKey, slices.Clone(out))
	if s.metrics != nil {
		s.metrics.ObserveOccupancy(start)
	}
	return out, nil
}

// SiteOccupancy returns one site's occupancy. Unknown sites are SiteNotFound.
func (s *Service) SiteOccupancy(ctx context.Context, siteID id.SiteID) (*models.Occupancy, error) {
	key := "occupancy:" + siteID.String()
	if cached, ok := s.cached(key); ok {
		occ := cached.(models.Occupancy)
		return &occ, nil
	}
	start := time.Now()

	site, err := s.sites.FindByID(ctx, siteID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.ErrSiteNotFound
		}
		return nil, storeError(err, "failed to load site")
	}
	confirmed, err := s.counter.CountConfirmed(ctx, siteID)
	if err != nil {
		return nil, storeError(err, "failed to count confirmed registrations")
	}

	occ := models.NewOccupancy(site, confirmed)
	s.store(key, occ)
	if s.metrics != nil {
		s.metrics.ObserveOccupancy(start)
	}
	return &occ, nil
}

// InvalidateOccupancy drops cached occupancy so the next read sees fresh
// counts. Registration writes call it after commit.
func (s *Service) InvalidateOccupancy() {
	s.invalidateOccupancy()
}

func (s *Service) cached(key string) (any, bool) {
	if s.occupancy == nil {
		return nil, false
	}
	v, ok := s.occupancy.Get(key)
	if ok && s.metrics != nil {
		s.metrics.IncrementOccupancyCacheHits()
	}
	return v, ok
}

func (s *Service) store(key string, v any) {
	if s.occupancy != nil {
		s.occupancy.Set(key, v, gocache.DefaultExpiration)
	}
}

func (s *Service) invalidateOccupancy() {
	if s.occupancy != nil {
		s.occupancy.Flush()
	}
}
