package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"misiones/internal/registration/models"
	id "misiones/pkg/domain"
	"misiones/pkg/platform/sentinel"
	txcontext "misiones/pkg/platform/tx"
)

// InMemory is a map-backed ledger. It does not serialize read-then-write
// sequences itself; callers hold the site lock from sitetx.
type InMemory struct {
	mu   sync.RWMutex
	regs map[id.RegistrationID]*models.Registration
	seq  int64
}

func NewInMemory() *InMemory {
	return &InMemory{regs: make(map[id.RegistrationID]*models.Registration)}
}

// Create stores r and assigns its insertion sequence. A rolled back create
// leaves a gap in the sequence, as a Postgres bigserial does.
func (s *InMemory) Create(ctx context.Context, r *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.regs[r.ID]; ok {
		return fmt.Errorf("registration %s: %w", r.ID, sentinel.ErrConflict)
	}
	s.seq++
	r.Seq = s.seq
	s.regs[r.ID] = r.Clone()
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		delete(s.regs, r.ID)
		s.mu.Unlock()
	})
	return nil
}

// FindByID returns the registration, deleted or not.
func (s *InMemory) FindByID(_ context.Context, regID id.RegistrationID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.regs[regID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

// FindActiveByDocument returns a non-cancelled, non-deleted registration for
// the site with the normalized document number.
func (s *InMemory) FindActiveByDocument(_ context.Context, siteID id.SiteID, document string) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.regs {
		if r.SiteID == siteID && r.DocumentNumber == document && live(r) && !r.State.Is(models.StatusCancelled) {
			return r.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) CountConfirmed(_ context.Context, siteID id.SiteID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.regs {
		if r.SiteID == siteID && r.State.Is(models.StatusConfirmed) {
			n++
		}
	}
	return n, nil
}

func (s *InMemory) CountConfirmedBySite(_ context.Context) (map[id.SiteID]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[id.SiteID]int)
	for _, r := range s.regs {
		if r.State.Is(models.StatusConfirmed) {
			counts[r.SiteID]++
		}
	}
	return counts, nil
}

// NextWaitlisted returns the FIFO head of the site's waitlist.
func (s *InMemory) NextWaitlisted(_ context.Context, siteID id.SiteID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var head *models.Registration
	for _, r := range s.regs {
		if r.SiteID != siteID || !r.State.Is(models.StatusWaitlisted) {
			continue
		}
		if head == nil || r.Before(head) {
			head = r
		}
	}
	if head == nil {
		return nil, sentinel.ErrNotFound
	}
	return head.Clone(), nil
}

// WaitlistPosition returns the 1-based position of r in its site's waitlist.
func (s *InMemory) WaitlistPosition(_ context.Context, r *models.Registration) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos := 0
	for _, other := range s.regs {
		if other.SiteID == r.SiteID && other.State.Is(models.StatusWaitlisted) && !r.Before(other) {
			pos++
		}
	}
	return pos, nil
}

// ListBySite returns the site's non-deleted registrations in FIFO order,
// optionally filtered by status.
func (s *InMemory) ListBySite(_ context.Context, siteID id.SiteID, status *models.Status) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Registration
	for _, r := range s.regs {
		if r.SiteID != siteID || !live(r) {
			continue
		}
		if status != nil && !r.State.Is(*status) {
			continue
		}
		out = append(out, r.Clone())
	}
	sortFIFO(out)
	return out, nil
}

func (s *InMemory) Update(ctx context.Context, r *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.regs[r.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	s.regs[r.ID] = r.Clone()
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		s.regs[prev.ID] = prev
		s.mu.Unlock()
	})
	return nil
}

// ListConfirmedMissingDocuments returns confirmed, non-deleted registrations
// lacking at least one of kinds.
func (s *InMemory) ListConfirmedMissingDocuments(_ context.Context, kinds []models.DocumentKind) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Registration
	for _, r := range s.regs {
		if r.State.Is(models.StatusConfirmed) && len(r.MissingDocuments(kinds)) > 0 {
			out = append(out, r.Clone())
		}
	}
	sortFIFO(out)
	return out, nil
}

func live(r *models.Registration) bool {
	return !r.State.IsDeleted()
}

func sortFIFO(regs []*models.Registration) {
	sort.Slice(regs, func(i, j int) bool { return regs[i].Before(regs[j]) })
}
