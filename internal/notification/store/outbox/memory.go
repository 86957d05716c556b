package outbox

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"misiones/internal/notification/models"
	id "misiones/pkg/domain"
	"misiones/pkg/platform/sentinel"
	txcontext "misiones/pkg/platform/tx"
)

// InMemory keeps the outbox in a map. Claims lease a notice until
// now+lease so two workers never hold the same entry.
type InMemory struct {
	mu      sync.Mutex
	notices map[id.NoticeID]*models.Notice
	keys    map[string]id.NoticeID
}

func NewInMemory() *InMemory {
	return &InMemory{
		notices: make(map[id.NoticeID]*models.Notice),
		keys:    make(map[string]id.NoticeID),
	}
}

func (s *InMemory) Enqueue(ctx context.Context, n *models.Notice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[n.DedupeKey]; ok {
		return fmt.Errorf("notice %s: %w", n.DedupeKey, sentinel.ErrConflict)
	}
	cp := *n
	s.notices[n.ID] = &cp
	s.keys[n.DedupeKey] = n.ID
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		delete(s.notices, n.ID)
		delete(s.keys, n.DedupeKey)
		s.mu.Unlock()
	})
	return nil
}

func (s *InMemory) ClaimDue(_ context.Context, now time.Time, limit, maxAttempts int, lease time.Duration) ([]*models.Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*models.Notice
	for _, n := range s.notices {
		if n.DeliveredAt == nil && !n.NextAttemptAt.After(now) && n.Attempts < maxAttempts {
			due = append(due, n)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextAttemptAt.Before(due[j].NextAttemptAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	out := make([]*models.Notice, 0, len(due))
	for _, n := range due {
		n.NextAttemptAt = now.Add(lease)
		cp := *n
		out = append(out, &cp)
	}
	return out, nil
}

func (s *InMemory) MarkDelivered(_ context.Context, noticeID id.NoticeID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notices[noticeID]
	if !ok {
		return sentinel.ErrNotFound
	}
	n.DeliveredAt = &at
	n.Attempts++
	n.LastError = ""
	return nil
}

func (s *InMemory) MarkFailed(_ context.Context, noticeID id.NoticeID, nextAttemptAt time.Time, lastErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notices[noticeID]
	if !ok {
		return sentinel.ErrNotFound
	}
	n.Attempts++
	n.NextAttemptAt = nextAttemptAt
	n.LastError = lastErr
	return nil
}

// FindByDedupeKey returns a copy of the notice with key.
func (s *InMemory) FindByDedupeKey(_ context.Context, key string) (*models.Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	noticeID, ok := s.keys[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.notices[noticeID]
	return &cp, nil
}

// Pending counts undelivered notices.
func (s *InMemory) Pending(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, notice := range s.notices {
		if notice.DeliveredAt == nil {
			n++
		}
	}
	return n, nil
}
