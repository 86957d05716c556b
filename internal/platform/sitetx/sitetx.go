// Package sitetx provides the site-scoped transaction boundary used by every
// read-count-then-write sequence on a site's registrations.
//
// RunInTx serializes callers per site: in memory with sharded mutexes, in
// Postgres by locking the site row FOR UPDATE. Stores invoked with the context
// passed to fn join the same transaction. Savepoint isolates a nested step so
// its failure does not abort the enclosing transaction.
package sitetx

import (
	"context"
	"errors"
	"time"

	id "misiones/pkg/domain"
	dErrors "misiones/pkg/domain-errors"
)

// DefaultTimeout bounds a site transaction when the caller has no deadline.
const DefaultTimeout = 5 * time.Second

// ErrNestedTx is returned when RunInTx is called from inside another site
// transaction.
var ErrNestedTx = errors.New("sitetx: nested site transaction")

type inTxKey struct{}

func markInTx(ctx context.Context) context.Context {
	return context.WithValue(ctx, inTxKey{}, true)
}

// InTx reports whether ctx belongs to an open site transaction.
func InTx(ctx context.Context) bool {
	v, _ := ctx.Value(inTxKey{}).(bool)
	return v
}

func withDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func aborted(err error) error {
	return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
}

// siteKey renders the id used for shard selection.
func siteKey(siteID id.SiteID) string { return siteID.String() }
