// Package tx carries an open *sql.Tx through a context so stores called inside
// a transaction callback join it without changing their signatures.
package tx

import (
	"context"
	"database/sql"
	"sync"
)

type ctxKey struct{}

var txKey = ctxKey{}

// Querier is the subset of *sql.DB and *sql.Tx used by the Postgres stores.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Executor returns the transaction in ctx, falling back to db.
func Executor(ctx context.Context, db *sql.DB) Querier {
	if tx, ok := From(ctx); ok {
		return tx
	}
	return db
}

// Journal records what a transaction did for stores that have no native
// rollback: undo entries replayed newest first on rollback, and hooks run in
// order once the transaction commits.
type Journal struct {
	mu      sync.Mutex
	entries []journalEntry
}

type journalEntry struct {
	undo   func()
	commit func()
}

type journalKey struct{}

// WithJournal attaches j to ctx so memory stores can record into it.
func WithJournal(ctx context.Context, j *Journal) context.Context {
	return context.WithValue(ctx, journalKey{}, j)
}

// JournalFrom returns the journal in ctx if present.
func JournalFrom(ctx context.Context) (*Journal, bool) {
	j, ok := ctx.Value(journalKey{}).(*Journal)
	return j, ok
}

// OnRollback records fn to run if the enclosing transaction rolls back.
// Outside a transaction it does nothing.
func OnRollback(ctx context.Context, fn func()) {
	if j, ok := JournalFrom(ctx); ok {
		j.add(journalEntry{undo: fn})
	}
}

// AfterCommit defers fn until the enclosing transaction commits and reports
// true. Outside a transaction it reports false and the caller runs fn itself.
func AfterCommit(ctx context.Context, fn func()) bool {
	j, ok := JournalFrom(ctx)
	if ok {
		j.add(journalEntry{commit: fn})
	}
	return ok
}

func (j *Journal) add(e journalEntry) {
	j.mu.Lock()
	j.entries = append(j.entries, e)
	j.mu.Unlock()
}

// Mark returns a position to pass to RollbackTo.
func (j *Journal) Mark() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

// RollbackTo undoes every entry recorded after mark, newest first, and drops
// their commit hooks.
func (j *Journal) RollbackTo(mark int) {
	j.mu.Lock()
	entries := j.entries[mark:]
	j.entries = j.entries[:mark]
	j.mu.Unlock()
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].undo != nil {
			entries[i].undo()
		}
	}
}

// Commit runs the commit hooks in the order they were recorded.
func (j *Journal) Commit() {
	j.mu.Lock()
	entries := j.entries
	j.entries = nil
	j.mu.Unlock()
	for _, e := range entries {
		if e.commit != nil {
			e.commit()
		}
	}
}
