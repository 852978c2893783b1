package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/connectkit/credvault/internal/database"
	apperrors "github.com/connectkit/credvault/internal/errors"
	vaultDomain "github.com/connectkit/credvault/internal/vault/domain"
)

// MySQLConnectionRepository implements tenant-provider connection persistence
// for MySQL.
type MySQLConnectionRepository struct {
	db *sql.DB
}

// NewMySQLConnectionRepository creates a new MySQL connection repository.
func NewMySQLConnectionRepository(db *sql.DB) *MySQLConnectionRepository {
	return &MySQLConnectionRepository{db: db}
}

// Upsert creates or updates the connection for a tenant-provider pair.
func (m *MySQLConnectionRepository) Upsert(
	ctx context.Context,
	connection *vaultDomain.Connection,
) error {
	querier := database.GetTx(ctx, m.db)

	id, err := connection.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal connection id")
	}
	tenantID, err := connection.TenantID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal tenant id")
	}

	now := time.Now().UTC()
	query := `INSERT INTO connections
			  (id, tenant_id, provider, account_id, display_name, status, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
			      account_id = VALUES(account_id),
			      display_name = VALUES(display_name),
			      status = VALUES(status),
			      updated_at = VALUES(updated_at)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		tenantID,
		connection.Provider,
		connection.AccountID,
		connection.DisplayName,
		connection.Status,
		now,
		now,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert connection")
	}

	return nil
}

// GetByTenantAndProvider retrieves a single connection.
func (m *MySQLConnectionRepository) GetByTenantAndProvider(
	ctx context.Context,
	tenantID uuid.UUID,
	provider vaultDomain.Provider,
) (*vaultDomain.Connection, error) {
	querier := database.GetTx(ctx, m.db)

	rawTenantID, err := tenantID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal tenant id")
	}

	query := `SELECT id, tenant_id, provider, account_id, display_name, status, created_at, updated_at
			  FROM connections
			  WHERE tenant_id = ? AND provider = ?`

	var connection vaultDomain.Connection
	err = querier.QueryRowContext(ctx, query, rawTenantID, provider).Scan(
		&connection.ID,
		&connection.TenantID,
		&connection.Provider,
		&connection.AccountID,
		&connection.DisplayName,
		&connection.Status,
		&connection.CreatedAt,
		&connection.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get connection")
	}

	return &connection, nil
}

// ListByTenant returns a page of the tenant's connections.
func (m *MySQLConnectionRepository) ListByTenant(
	ctx context.Context,
	tenantID uuid.UUID,
	offset, limit int,
) ([]*vaultDomain.Connection, error) {
	querier := database.GetTx(ctx, m.db)

	rawTenantID, err := tenantID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal tenant id")
	}

	query := `SELECT id, tenant_id, provider, account_id, display_name, status, created_at, updated_at
			  FROM connections
			  WHERE tenant_id = ?
			  ORDER BY provider ASC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, rawTenantID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list connections")
	}
	defer rows.Close()

	return scanConnections(rows)
}

// ListByStatus returns every connection in the given status for the given providers.
func (m *MySQLConnectionRepository) ListByStatus(
	ctx context.Context,
	status vaultDomain.ConnectionStatus,
	providers []vaultDomain.Provider,
) ([]*vaultDomain.Connection, error) {
	querier := database.GetTx(ctx, m.db)

	placeholders := make([]string, len(providers))
	args := make([]any, 0, len(providers)+1)
	args = append(args, status)
	for i, provider := range providers {
		placeholders[i] = "?"
		args = append(args, provider)
	}

	query := `SELECT id, tenant_id, provider, account_id, display_name, status, created_at, updated_at
			  FROM connections
			  WHERE status = ? AND provider IN (` + strings.Join(placeholders, ", ") + `)
			  ORDER BY tenant_id ASC`

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list connections by status")
	}
	defer rows.Close()

	return scanConnections(rows)
}

// SetStatus updates the connection status for a tenant-provider pair.
func (m *MySQLConnectionRepository) SetStatus(
	ctx context.Context,
	tenantID uuid.UUID,
	provider vaultDomain.Provider,
	status vaultDomain.ConnectionStatus,
) error {
	querier := database.GetTx(ctx, m.db)

	rawTenantID, err := tenantID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal tenant id")
	}

	query := `UPDATE connections
			  SET status = ?, updated_at = ?
			  WHERE tenant_id = ? AND provider = ?`

	if _, err := querier.ExecContext(ctx, query, status, time.Now().UTC(), rawTenantID, provider); err != nil {
		return apperrors.Wrap(err, "failed to set connection status")
	}

	return nil
}

// Delete removes the connection for a tenant-provider pair.
func (m *MySQLConnectionRepository) Delete(
	ctx context.Context,
	tenantID uuid.UUID,
	provider vaultDomain.Provider,
) error {
	querier := database.GetTx(ctx, m.db)

	rawTenantID, err := tenantID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal tenant id")
	}

	query := `DELETE FROM connections WHERE tenant_id = ? AND provider = ?`
	if _, err := querier.ExecContext(ctx, query, rawTenantID, provider); err != nil {
		return apperrors.Wrap(err, "failed to delete connection")
	}

	return nil
}

// scanConnections drains a connection result set.
func scanConnections(rows *sql.Rows) ([]*vaultDomain.Connection, error) {
	var connections []*vaultDomain.Connection
	for rows.Next() {
		var connection vaultDomain.Connection
		if err := rows.Scan(
			&connection.ID,
			&connection.TenantID,
			&connection.Provider,
			&connection.AccountID,
			&connection.DisplayName,
			&connection.Status,
			&connection.CreatedAt,
			&connection.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan connection")
		}
		connections = append(connections, &connection)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate connections")
	}

	return connections, nil
}
