package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "misiones/pkg/domain"
	audit "misiones/pkg/platform/audit"
	txcontext "misiones/pkg/platform/tx"
)

// Store writes lifecycle events to registration_events. Appends made inside a
// site transaction commit or roll back with the change they describe.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func nullableUUID(u uuid.UUID) *uuid.UUID {
	if u == uuid.Nil {
		return nil
	}
	return &u
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO registration_events (
			id, timestamp, action, site_id, registration_id,
			prior_status, status, reason, actor_id, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		uuid.New(),
		event.Timestamp,
		event.Action,
		nullableUUID(uuid.UUID(event.SiteID)),
		nullableUUID(uuid.UUID(event.RegistrationID)),
		event.PriorStatus,
		event.Status,
		event.Reason,
		event.ActorID,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert registration event: %w", err)
	}
	return nil
}

const eventColumns = `timestamp, action, site_id, registration_id, prior_status, status, reason, actor_id, request_id`

func (s *Store) ListByRegistration(ctx context.Context, registrationID id.RegistrationID) ([]audit.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM registration_events WHERE registration_id = $1 ORDER BY timestamp ASC`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(registrationID))
	if err != nil {
		return nil, fmt.Errorf("query registration events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM registration_events ORDER BY timestamp DESC LIMIT $1`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query registration events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var event audit.Event
		var siteID, regID *uuid.UUID
		if err := rows.Scan(&event.Timestamp, &event.Action, &siteID, &regID,
			&event.PriorStatus, &event.Status, &event.Reason, &event.ActorID, &event.RequestID); err != nil {
			return nil, fmt.Errorf("scan registration event: %w", err)
		}
		if siteID != nil {
			event.SiteID = id.SiteID(*siteID)
		}
		if regID != nil {
			event.RegistrationID = id.RegistrationID(*regID)
		}
		event.Category = audit.AuditEvent(event.Action).Category()
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registration events: %w", err)
	}
	return events, nil
}
