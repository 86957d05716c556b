package site

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"misiones/internal/site/models"
	id "misiones/pkg/domain"
	"misiones/pkg/platform/sentinel"
	txcontext "misiones/pkg/platform/tx"
)

// InMemory keeps sites in a map. Callers get copies so mutations only land
// through Update.
type InMemory struct {
	mu    sync.RWMutex
	sites map[id.SiteID]*models.Site
}

func NewInMemory() *InMemory {
	return &InMemory{sites: make(map[id.SiteID]*models.Site)}
}

func (s *InMemory) CreateIfNameAvailable(_ context.Context, site *models.Site) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sites {
		if strings.EqualFold(existing.Name, site.Name) {
			return fmt.Errorf("site name %q: %w", site.Name, sentinel.ErrConflict)
		}
	}
	cp := *site
	s.sites[site.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, siteID id.SiteID) (*models.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	site, ok := s.sites[siteID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *site
	return &cp, nil
}

func (s *InMemory) FindByName(_ context.Context, name string) (*models.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, site := range s.sites {
		if strings.EqualFold(site.Name, strings.TrimSpace(name)) {
			cp := *site
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// List returns sites ordered by name.
func (s *InMemory) List(_ context.Context) ([]*models.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Site, 0, len(s.sites))
	for _, site := range s.sites {
		cp := *site
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *InMemory) Update(ctx context.Context, site *models.Site) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.sites[site.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	for otherID, other := range s.sites {
		if otherID != site.ID && strings.EqualFold(other.Name, site.Name) {
			return fmt.Errorf("site name %q: %w", site.Name, sentinel.ErrConflict)
		}
	}
	cp := *site
	s.sites[site.ID] = &cp
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		s.sites[prev.ID] = prev
		s.mu.Unlock()
	})
	return nil
}
