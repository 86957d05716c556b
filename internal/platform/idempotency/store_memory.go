package idempotency

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type memoryEntry struct {
	pending  bool
	response *Response
}

// MemoryStore keeps keys in-process. It is used when Redis is not configured,
// so keys are not shared between instances.
type MemoryStore struct {
	cache      *gocache.Cache
	pendingTTL time.Duration
}

func NewMemoryStore(cleanup time.Duration) *MemoryStore {
	return &MemoryStore{
		cache:      gocache.New(defaultPendingTTL, cleanup),
		pendingTTL: defaultPendingTTL,
	}
}

func (s *MemoryStore) Reserve(_ context.Context, key string) (*Response, error) {
	if err := s.cache.Add(key, memoryEntry{pending: true}, s.pendingTTL); err == nil {
		return nil, nil
	}
	v, ok := s.cache.Get(key)
	if !ok {
		// Expired between Add and Get.
		if err := s.cache.Add(key, memoryEntry{pending: true}, s.pendingTTL); err == nil {
			return nil, nil
		}
		return nil, ErrInFlight
	}
	entry := v.(memoryEntry)
	if entry.pending {
		return nil, ErrInFlight
	}
	resp := *entry.response
	resp.Body = append([]byte(nil), entry.response.Body...)
	return &resp, nil
}

func (s *MemoryStore) Complete(_ context.Context, key string, resp *Response, ttl time.Duration) error {
	cp := *resp
	cp.Body = append([]byte(nil), resp.Body...)
	s.cache.Set(key, memoryEntry{response: &cp}, ttl)
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}
