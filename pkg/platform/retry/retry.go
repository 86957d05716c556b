// Package retry runs an operation again on transient failures with bounded
// exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds the retry loop. MaxAttempts counts the first call.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy is three attempts starting at 25ms.
var DefaultPolicy = Policy{
	MaxAttempts:     3,
	InitialInterval: 25 * time.Millisecond,
	MaxInterval:     250 * time.Millisecond,
}

// Do calls op until it succeeds, returns an error for which retryable is false,
// the attempts run out or ctx is done. onRetry, if set, observes each failure
// that will be retried. The last error is returned unchanged.
func Do(ctx context.Context, p Policy, retryable func(error) bool, op func(attempt int) error, onRetry func(err error, wait time.Duration)) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	exp := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		exp.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		exp.MaxInterval = p.MaxInterval
	}
	exp.MaxElapsedTime = 0

	attempt := 0
	wrapped := func() error {
		attempt++
		err := op(attempt)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	var notify backoff.Notify
	if onRetry != nil {
		notify = func(err error, wait time.Duration) { onRetry(err, wait) }
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.MaxAttempts-1)), ctx)
	return backoff.RetryNotify(wrapped, policy, notify)
}

// NextDelay returns the redelivery delay for the given number of prior
// attempts, doubling from base and capped at limit.
func NextDelay(attempts int, base, limit time.Duration) time.Duration {
	d := base
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	if d > limit {
		return limit
	}
	return d
}
