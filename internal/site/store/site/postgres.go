package site

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"misiones/internal/platform/postgres"
	"misiones/internal/site/models"
	id "misiones/pkg/domain"
	"misiones/pkg/platform/sentinel"
	txcontext "misiones/pkg/platform/tx"
)

// PostgresStore persists sites. Calls made with a site-transaction context run
// on that transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const siteColumns = `id, name, capacity, active, created_at, updated_at`

func (s *PostgresStore) CreateIfNameAvailable(ctx context.Context, site *models.Site) error {
	query := `
		INSERT INTO sites (` + siteColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ((LOWER(name))) DO NOTHING
	`
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(site.ID), site.Name, site.Capacity, site.Active, site.CreatedAt, site.UpdatedAt)
	if err != nil {
		return postgres.Classify(fmt.Errorf("insert site: %w", err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert site rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("site name %q: %w", site.Name, sentinel.ErrConflict)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, siteID id.SiteID) (*models.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites WHERE id = $1`
	return s.scanOne(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(siteID)))
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) (*models.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites WHERE LOWER(name) = LOWER($1)`
	return s.scanOne(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, name))
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites ORDER BY LOWER(name)`
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, postgres.Classify(fmt.Errorf("query sites: %w", err))
	}
	defer rows.Close()

	var sites []*models.Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sites: %w", err)
	}
	return sites, nil
}

func (s *PostgresStore) Update(ctx context.Context, site *models.Site) error {
	query := `
		UPDATE sites SET name = $2, capacity = $3, active = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(site.ID), site.Name, site.Capacity, site.Active, site.UpdatedAt)
	if err != nil {
		return postgres.Classify(fmt.Errorf("update site: %w", err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update site rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanOne(row rowScanner) (*models.Site, error) {
	site, err := scanSite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return site, err
}

func scanSite(row rowScanner) (*models.Site, error) {
	var (
		site   models.Site
		siteID uuid.UUID
	)
	if err := row.Scan(&siteID, &site.Name, &site.Capacity, &site.Active, &site.CreatedAt, &site.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, postgres.Classify(fmt.Errorf("scan site: %w", err))
	}
	site.ID = id.SiteID(siteID)
	return &site, nil
}
