// Package repository provides data persistence implementations for
// notification events.
package repository

import (
	"context"
	"database/sql"

	"github.com/connectkit/credvault/internal/database"
	apperrors "github.com/connectkit/credvault/internal/errors"
	"github.com/connectkit/credvault/internal/notification/domain"
)

// PostgreSQLEventRepository handles notification event persistence for
// PostgreSQL.
type PostgreSQLEventRepository struct {
	db *sql.DB
}

// NewPostgreSQLEventRepository creates a new PostgreSQLEventRepository.
func NewPostgreSQLEventRepository(db *sql.DB) *PostgreSQLEventRepository {
	return &PostgreSQLEventRepository{db: db}
}

// Create inserts a new notification event.
func (r *PostgreSQLEventRepository) Create(ctx context.Context, event *domain.Event) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO notification_events
			  (id, tenant_id, event_type, payload, status, retries, last_error, processed_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, event.ID, event.TenantID, event.EventType,
		event.Payload, event.Status, event.Retries, event.LastError, event.ProcessedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create notification event")
	}

	return nil
}

// GetPendingEvents retrieves pending events, oldest first, locking them for
// the processing transaction.
func (r *PostgreSQLEventRepository) GetPendingEvents(
	ctx context.Context,
	limit int,
) ([]*domain.Event, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, tenant_id, event_type, payload, status, retries, last_error, processed_at, created_at, updated_at
			  FROM notification_events
			  WHERE status = $1
			  ORDER BY created_at ASC
			  LIMIT $2
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, domain.EventStatusPending, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list pending events")
	}
	defer rows.Close() //nolint:errcheck

	var events []*domain.Event
	for rows.Next() {
		var event domain.Event
		err := rows.Scan(&event.ID, &event.TenantID, &event.EventType, &event.Payload,
			&event.Status, &event.Retries, &event.LastError, &event.ProcessedAt,
			&event.CreatedAt, &event.UpdatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan event")
		}

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate events")
	}

	return events, nil
}

// Update updates a notification event.
func (r *PostgreSQLEventRepository) Update(ctx context.Context, event *domain.Event) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE notification_events
			  SET event_type = $1, payload = $2, status = $3, retries = $4, last_error = $5,
			      processed_at = $6, updated_at = NOW()
			  WHERE id = $7`

	_, err := querier.ExecContext(ctx, query, event.EventType, event.Payload, event.Status,
		event.Retries, event.LastError, event.ProcessedAt, event.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update notification event")
	}

	return nil
}
