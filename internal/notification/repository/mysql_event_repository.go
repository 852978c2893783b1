package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/connectkit/credvault/internal/database"
	apperrors "github.com/connectkit/credvault/internal/errors"
	"github.com/connectkit/credvault/internal/notification/domain"
)

// MySQLEventRepository handles notification event persistence for MySQL.
// UUIDs are stored as BINARY(16).
type MySQLEventRepository struct {
	db *sql.DB
}

// NewMySQLEventRepository creates a new MySQLEventRepository.
func NewMySQLEventRepository(db *sql.DB) *MySQLEventRepository {
	return &MySQLEventRepository{db: db}
}

// Create inserts a new notification event.
func (r *MySQLEventRepository) Create(ctx context.Context, event *domain.Event) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO notification_events
			  (id, tenant_id, event_type, payload, status, retries, last_error, processed_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`

	idBytes, err := event.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal event id")
	}
	tenantIDBytes, err := event.TenantID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal tenant id")
	}

	_, err = querier.ExecContext(ctx, query, idBytes, tenantIDBytes, event.EventType,
		event.Payload, event.Status, event.Retries, event.LastError, event.ProcessedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create notification event")
	}

	return nil
}

// GetPendingEvents retrieves pending events, oldest first, locking them for
// the processing transaction.
func (r *MySQLEventRepository) GetPendingEvents(
	ctx context.Context,
	limit int,
) ([]*domain.Event, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, tenant_id, event_type, payload, status, retries, last_error, processed_at, created_at, updated_at
			  FROM notification_events
			  WHERE status = ?
			  ORDER BY created_at ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, domain.EventStatusPending, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list pending events")
	}
	defer rows.Close() //nolint:errcheck

	var events []*domain.Event
	for rows.Next() {
		var (
			event         domain.Event
			idBytes       []byte
			tenantIDBytes []byte
		)
		err := rows.Scan(&idBytes, &tenantIDBytes, &event.EventType, &event.Payload,
			&event.Status, &event.Retries, &event.LastError, &event.ProcessedAt,
			&event.CreatedAt, &event.UpdatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan event")
		}

		if event.ID, err = uuid.FromBytes(idBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to parse event id")
		}
		if event.TenantID, err = uuid.FromBytes(tenantIDBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to parse tenant id")
		}

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate events")
	}

	return events, nil
}

// Update updates a notification event.
func (r *MySQLEventRepository) Update(ctx context.Context, event *domain.Event) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE notification_events
			  SET event_type = ?, payload = ?, status = ?, retries = ?, last_error = ?,
			      processed_at = ?, updated_at = NOW()
			  WHERE id = ?`

	idBytes, err := event.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal event id")
	}

	_, err = querier.ExecContext(ctx, query, event.EventType, event.Payload, event.Status,
		event.Retries, event.LastError, event.ProcessedAt, idBytes)
	if err != nil {
		return apperrors.Wrap(err, "failed to update notification event")
	}

	return nil
}
