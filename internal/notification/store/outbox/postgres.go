package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"misiones/internal/notification/models"
	"misiones/internal/platform/postgres"
	id "misiones/pkg/domain"
	"misiones/pkg/platform/sentinel"
	txcontext "misiones/pkg/platform/tx"
)

// PostgresStore persists the outbox in notification_outbox. Enqueue joins a
// site transaction when ctx carries one, so a notice commits with the change
// it announces.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const noticeColumns = `id, kind, dedupe_key, registration_id, site_id, site_name, recipient_name,
	recipient_email, details, created_at, next_attempt_at, attempts, last_error, delivered_at`

func (s *PostgresStore) Enqueue(ctx context.Context, n *models.Notice) error {
	details := []byte("{}")
	if len(n.Details) > 0 {
		var err error
		if details, err = json.Marshal(n.Details); err != nil {
			return fmt.Errorf("marshal notice details: %w", err)
		}
	}
	query := `
		INSERT INTO notification_outbox (` + noticeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (dedupe_key) DO NOTHING
	`
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(n.ID), string(n.Kind), n.DedupeKey, uuid.UUID(n.RegistrationID), uuid.UUID(n.SiteID),
		n.SiteName, n.RecipientName, n.RecipientEmail, details, n.CreatedAt, n.NextAttemptAt,
		n.Attempts, n.LastError, n.DeliveredAt,
	)
	if err != nil {
		return postgres.Classify(fmt.Errorf("insert notice: %w", err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert notice rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("notice %s: %w", n.DedupeKey, sentinel.ErrConflict)
	}
	return nil
}

// ClaimDue locks up to limit due notices with SKIP LOCKED and pushes their
// next attempt out by lease, so concurrent workers claim disjoint batches.
func (s *PostgresStore) ClaimDue(ctx context.Context, now time.Time, limit, maxAttempts int, lease time.Duration) (_ []*models.Notice, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, postgres.Classify(fmt.Errorf("begin claim: %w", err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `
		SELECT ` + noticeColumns + `
		FROM notification_outbox
		WHERE delivered_at IS NULL AND next_attempt_at <= $1 AND attempts < $2
		ORDER BY next_attempt_at
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	`
	rows, err := tx.QueryContext(ctx, query, now, maxAttempts, limit)
	if err != nil {
		return nil, postgres.Classify(fmt.Errorf("select due notices: %w", err))
	}
	var (
		notices []*models.Notice
		ids     []string
	)
	for rows.Next() {
		n, scanErr := scanNotice(rows)
		if scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		notices = append(notices, n)
		ids = append(ids, n.ID.String())
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate due notices: %w", err)
	}
	rows.Close()

	if len(ids) > 0 {
		leaseUntil := now.Add(lease)
		if _, err = tx.ExecContext(ctx,
			`UPDATE notification_outbox SET next_attempt_at = $1 WHERE id = ANY($2::uuid[])`,
			leaseUntil, pq.Array(ids)); err != nil {
			return nil, postgres.Classify(fmt.Errorf("lease notices: %w", err))
		}
		for _, n := range notices {
			n.NextAttemptAt = leaseUntil
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, postgres.Classify(fmt.Errorf("commit claim: %w", err))
	}
	return notices, nil
}

func (s *PostgresStore) MarkDelivered(ctx context.Context, noticeID id.NoticeID, at time.Time) error {
	query := `
		UPDATE notification_outbox
		SET delivered_at = $2, attempts = attempts + 1, last_error = ''
		WHERE id = $1
	`
	return s.updateOne(ctx, query, uuid.UUID(noticeID), at)
}

func (s *PostgresStore) MarkFailed(ctx context.Context, noticeID id.NoticeID, nextAttemptAt time.Time, lastErr string) error {
	query := `
		UPDATE notification_outbox
		SET attempts = attempts + 1, next_attempt_at = $2, last_error = $3
		WHERE id = $1
	`
	return s.updateOne(ctx, query, uuid.UUID(noticeID), nextAttemptAt, lastErr)
}

func (s *PostgresStore) updateOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return postgres.Classify(fmt.Errorf("update notice: %w", err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update notice rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByDedupeKey(ctx context.Context, key string) (*models.Notice, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+noticeColumns+` FROM notification_outbox WHERE dedupe_key = $1`, key)
	n, err := scanNotice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return n, err
}

func (s *PostgresStore) Pending(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notification_outbox WHERE delivered_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, postgres.Classify(fmt.Errorf("count pending notices: %w", err))
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotice(row rowScanner) (*models.Notice, error) {
	var (
		n                       models.Notice
		noticeID, regID, siteID uuid.UUID
		kind                    string
		details                 []byte
	)
	if err := row.Scan(&noticeID, &kind, &n.DedupeKey, &regID, &siteID, &n.SiteName, &n.RecipientName,
		&n.RecipientEmail, &details, &n.CreatedAt, &n.NextAttemptAt, &n.Attempts, &n.LastError, &n.DeliveredAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan notice: %w", err)
	}
	n.ID = id.NoticeID(noticeID)
	n.RegistrationID = id.RegistrationID(regID)
	n.SiteID = id.SiteID(siteID)
	n.Kind = models.Kind(kind)
	if len(details) > 0 {
		if err := json.Unmarshal(details, &n.Details); err != nil {
			return nil, fmt.Errorf("decode notice details: %w", err)
		}
	}
	return &n, nil
}
