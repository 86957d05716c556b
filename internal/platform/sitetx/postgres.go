package sitetx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"misiones/internal/platform/postgres"
	id "misiones/pkg/domain"
	"misiones/pkg/platform/sentinel"
	txcontext "misiones/pkg/platform/tx"
)

// Postgres runs fn in a database transaction that holds the site row lock.
type Postgres struct {
	db          *sql.DB
	timeout     time.Duration
	lockTimeout time.Duration
}

func NewPostgres(db *sql.DB, timeout, lockTimeout time.Duration) *Postgres {
	return &Postgres{db: db, timeout: timeout, lockTimeout: lockTimeout}
}

func (p *Postgres) RunInTx(ctx context.Context, siteID id.SiteID, fn func(txCtx context.Context) error) (err error) {
	if InTx(ctx) {
		return ErrNestedTx
	}
	if err := ctx.Err(); err != nil {
		return aborted(err)
	}
	ctx, cancel := withDeadline(ctx, p.timeout)
	defer cancel()

	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return postgres.Classify(fmt.Errorf("begin site transaction: %w", err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if p.lockTimeout > 0 {
		// SET LOCAL does not accept bind parameters.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", p.lockTimeout.Milliseconds())
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return postgres.Classify(fmt.Errorf("set lock timeout: %w", err))
		}
	}

	var locked uuid.UUID
	err = tx.QueryRowContext(ctx, `SELECT id FROM sites WHERE id = $1 FOR UPDATE`, uuid.UUID(siteID)).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lock site %s: %w", siteID, sentinel.ErrNotFound)
	}
	if err != nil {
		return postgres.Classify(fmt.Errorf("lock site: %w", err))
	}

	if err = fn(markInTx(txcontext.WithTx(ctx, tx))); err != nil {
		return postgres.Classify(err)
	}
	if err = tx.Commit(); err != nil {
		return postgres.Classify(fmt.Errorf("commit site transaction: %w", err))
	}
	return nil
}

// Savepoint runs fn inside SAVEPOINT so a failing step rolls back alone.
func (p *Postgres) Savepoint(ctx context.Context, fn func(spCtx context.Context) error) error {
	tx, ok := txcontext.From(ctx)
	if !ok {
		return fn(ctx)
	}
	if _, err := tx.ExecContext(ctx, "SAVEPOINT site_step"); err != nil {
		return postgres.Classify(fmt.Errorf("create savepoint: %w", err))
	}
	if err := fn(ctx); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT site_step"); rbErr != nil {
			return errors.Join(err, postgres.Classify(fmt.Errorf("roll back to savepoint: %w", rbErr)))
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT site_step"); err != nil {
		return postgres.Classify(fmt.Errorf("release savepoint: %w", err))
	}
	return nil
}
