package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "idem:"
	pendingMarker = "pending"
)

// RedisStore shares keys between instances. Reservation is a SETNX of a
// short-lived pending marker that Complete overwrites with the response.
type RedisStore struct {
	client     *redis.Client
	pendingTTL time.Duration
}

type RedisOption func(*RedisStore)

func WithRedisPendingTTL(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.pendingTTL = d
		}
	}
}

func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, pendingTTL: defaultPendingTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Reserve(ctx context.Context, key string) (*Response, error) {
	k := keyPrefix + key
	// A completed key can expire between SETNX and GET; one more round
	// settles it.
	for range 2 {
		ok, err := s.client.SetNX(ctx, k, pendingMarker, s.pendingTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("reserve idempotency key: %w", err)
		}
		if ok {
			return nil, nil
		}
		raw, err := s.client.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read idempotency key: %w", err)
		}
		if string(raw) == pendingMarker {
			return nil, ErrInFlight
		}
		var resp Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("decode idempotent response: %w", err)
		}
		return &resp, nil
	}
	return nil, ErrInFlight
}

func (s *RedisStore) Complete(ctx context.Context, key string, resp *Response, ttl time.Duration) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode idempotent response: %w", err)
	}
	return s.client.Set(ctx, keyPrefix+key, raw, ttl).Err()
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, keyPrefix+key).Err()
}
