package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (usually wrapped with
// fmt.Errorf and %w) and services translate them into coded domain errors.
//
//   - ErrNotFound: row does not exist, or is soft-deleted where that hides it
//   - ErrConflict: a uniqueness rule rejected the write
//   - ErrInvalidState: row is in the wrong state for the requested transition
//   - ErrUnavailable: the store aborted the transaction; retrying from scratch is safe
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
