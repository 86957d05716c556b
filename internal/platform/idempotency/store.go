// Package idempotency replays the first response for a client-supplied
// Idempotency-Key.
package idempotency

import (
	"context"
	"errors"
	"time"
)

// ErrInFlight means another request with the same key has not finished yet.
var ErrInFlight = errors.New("idempotency key in flight")

// Response is the stored outcome of the first request.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}

// Store reserves keys and keeps completed responses.
type Store interface {
	// Reserve claims key. It returns the stored response when key already
	// completed, ErrInFlight while another request holds it, or (nil, nil)
	// when the caller now owns key.
	Reserve(ctx context.Context, key string) (*Response, error)
	Complete(ctx context.Context, key string, resp *Response, ttl time.Duration) error
	// Release drops a reservation so the client may retry.
	Release(ctx context.Context, key string) error
}

// defaultPendingTTL bounds how long a crashed request blocks its key.
const defaultPendingTTL = time.Minute
