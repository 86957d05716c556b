package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"misiones/internal/platform/postgres"
	"misiones/internal/registration/models"
	id "misiones/pkg/domain"
	"misiones/pkg/platform/sentinel"
	txcontext "misiones/pkg/platform/tx"
)

// PostgresStore persists registrations. Reads and writes made with a site
// transaction context run on that transaction, which already holds the site
// row lock.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const registrationColumns = `id, seq, site_id, status, full_name, email, document_number, attributes,
	documents, cancel_reason, created_at, updated_at, cancelled_at, promoted_at, deleted_at`

// Create inserts r and sets r.Seq from the table sequence.
func (s *PostgresStore) Create(ctx context.Context, r *models.Registration) error {
	attrs, docs, err := encodeMaps(r)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO registrations (id, site_id, status, full_name, email, document_number, attributes,
			documents, cancel_reason, created_at, updated_at, cancelled_at, promoted_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING seq
	`
	err = txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query,
		uuid.UUID(r.ID), uuid.UUID(r.SiteID), string(r.State.StorageStatus()), r.FullName, r.Email,
		r.DocumentNumber, attrs, docs, r.CancelReason, r.CreatedAt, r.UpdatedAt, r.CancelledAt,
		r.PromotedAt, deletedAt(r.State),
	).Scan(&r.Seq)
	if err != nil {
		return postgres.Classify(fmt.Errorf("insert registration: %w", err))
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	return scanOne(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(regID)))
}

func (s *PostgresStore) FindActiveByDocument(ctx context.Context, siteID id.SiteID, document string) (*models.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE site_id = $1 AND document_number = $2 AND status <> 'cancelled' AND deleted_at IS NULL
		LIMIT 1
	`
	return scanOne(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(siteID), document))
}

func (s *PostgresStore) CountConfirmed(ctx context.Context, siteID id.SiteID) (int, error) {
	query := `
		SELECT COUNT(*) FROM registrations
		WHERE site_id = $1 AND status = 'confirmed' AND deleted_at IS NULL
	`
	var n int
	if err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(siteID)).Scan(&n); err != nil {
		return 0, postgres.Classify(fmt.Errorf("count confirmed: %w", err))
	}
	return n, nil
}

func (s *PostgresStore) CountConfirmedBySite(ctx context.Context) (map[id.SiteID]int, error) {
	query := `
		SELECT site_id, COUNT(*) FROM registrations
		WHERE status = 'confirmed' AND deleted_at IS NULL
		GROUP BY site_id
	`
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, postgres.Classify(fmt.Errorf("count confirmed by site: %w", err))
	}
	defer rows.Close()

	counts := make(map[id.SiteID]int)
	for rows.Next() {
		var (
			siteID uuid.UUID
			n      int
		)
		if err := rows.Scan(&siteID, &n); err != nil {
			return nil, fmt.Errorf("scan confirmed count: %w", err)
		}
		counts[id.SiteID(siteID)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate confirmed counts: %w", err)
	}
	return counts, nil
}

// NextWaitlisted locks and returns the FIFO head of the site's waitlist.
func (s *PostgresStore) NextWaitlisted(ctx context.Context, siteID id.SiteID) (*models.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE site_id = $1 AND status = 'waitlisted' AND deleted_at IS NULL
		ORDER BY seq
		LIMIT 1
		FOR UPDATE
	`
	return scanOne(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(siteID)))
}

func (s *PostgresStore) WaitlistPosition(ctx context.Context, r *models.Registration) (int, error) {
	query := `
		SELECT COUNT(*) FROM registrations
		WHERE site_id = $1 AND status = 'waitlisted' AND deleted_at IS NULL
			AND seq <= $2
	`
	var n int
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(r.SiteID), r.Seq).Scan(&n)
	if err != nil {
		return 0, postgres.Classify(fmt.Errorf("waitlist position: %w", err))
	}
	return n, nil
}

func (s *PostgresStore) ListBySite(ctx context.Context, siteID id.SiteID, status *models.Status) ([]*models.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE site_id = $1 AND deleted_at IS NULL AND ($2 = '' OR status = $2)
		ORDER BY seq
	`
	filter := ""
	if status != nil {
		filter = string(*status)
	}
	return s.list(ctx, query, uuid.UUID(siteID), filter)
}

func (s *PostgresStore) ListConfirmedMissingDocuments(ctx context.Context, kinds []models.DocumentKind) ([]*models.Registration, error) {
	keys := make([]string, len(kinds))
	for i, k := range kinds {
		keys[i] = string(k)
	}
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE status = 'confirmed' AND deleted_at IS NULL AND NOT (documents ?& $1::text[])
		ORDER BY seq
	`
	return s.list(ctx, query, pq.Array(keys))
}

func (s *PostgresStore) Update(ctx context.Context, r *models.Registration) error {
	attrs, docs, err := encodeMaps(r)
	if err != nil {
		return err
	}
	query := `
		UPDATE registrations
		SET status = $2, attributes = $3, documents = $4, cancel_reason = $5, updated_at = $6,
			cancelled_at = $7, promoted_at = $8, deleted_at = $9
		WHERE id = $1
	`
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(r.ID), string(r.State.StorageStatus()), attrs, docs, r.CancelReason, r.UpdatedAt,
		r.CancelledAt, r.PromotedAt, deletedAt(r.State))
	if err != nil {
		return postgres.Classify(fmt.Errorf("update registration: %w", err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update registration rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Registration, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, postgres.Classify(fmt.Errorf("query registrations: %w", err))
	}
	defer rows.Close()

	var regs []*models.Registration
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return regs, nil
}

func encodeMaps(r *models.Registration) ([]byte, []byte, error) {
	attrs := []byte("{}")
	if len(r.Attributes) > 0 {
		b, err := json.Marshal(r.Attributes)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal attributes: %w", err)
		}
		attrs = b
	}
	docs := []byte("{}")
	if len(r.Documents) > 0 {
		b, err := json.Marshal(r.Documents)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal documents: %w", err)
		}
		docs = b
	}
	return attrs, docs, nil
}

func deletedAt(state models.State) *time.Time {
	if at, ok := state.DeletedAt(); ok {
		return &at
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row rowScanner) (*models.Registration, error) {
	r, err := scanRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return r, err
}

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var (
		r             models.Registration
		regID, siteID uuid.UUID
		status        string
		attrs, docs   []byte
		deleted       *time.Time
	)
	if err := row.Scan(&regID, &r.Seq, &siteID, &status, &r.FullName, &r.Email, &r.DocumentNumber,
		&attrs, &docs, &r.CancelReason, &r.CreatedAt, &r.UpdatedAt, &r.CancelledAt, &r.PromotedAt, &deleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, postgres.Classify(fmt.Errorf("scan registration: %w", err))
	}
	state, err := models.StateFromStorage(status, deleted)
	if err != nil {
		return nil, fmt.Errorf("registration %s: %w", regID, sentinel.ErrInvalidState)
	}
	r.ID = id.RegistrationID(regID)
	r.SiteID = id.SiteID(siteID)
	r.State = state
	if err := json.Unmarshal(attrs, &r.Attributes); err != nil {
		return nil, fmt.Errorf("decode attributes: %w", err)
	}
	if err := json.Unmarshal(docs, &r.Documents); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	if r.Documents == nil {
		r.Documents = map[models.DocumentKind]models.Document{}
	}
	return &r, nil
}
