package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/connectkit/credvault/internal/database"
	apperrors "github.com/connectkit/credvault/internal/errors"
	vaultDomain "github.com/connectkit/credvault/internal/vault/domain"
)

// PostgreSQLConnectionRepository implements tenant-provider connection
// persistence for PostgreSQL. Connections carry no secret material.
type PostgreSQLConnectionRepository struct {
	db *sql.DB
}

// NewPostgreSQLConnectionRepository creates a new PostgreSQL connection repository.
func NewPostgreSQLConnectionRepository(db *sql.DB) *PostgreSQLConnectionRepository {
	return &PostgreSQLConnectionRepository{db: db}
}

// Upsert creates or updates the connection for a tenant-provider pair.
func (p *PostgreSQLConnectionRepository) Upsert(
	ctx context.Context,
	connection *vaultDomain.Connection,
) error {
	querier := database.GetTx(ctx, p.db)

	now := time.Now().UTC()
	query := `INSERT INTO connections
			  (id, tenant_id, provider, account_id, display_name, status, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  ON CONFLICT (tenant_id, provider) DO UPDATE SET
			      account_id = EXCLUDED.account_id,
			      display_name = EXCLUDED.display_name,
			      status = EXCLUDED.status,
			      updated_at = EXCLUDED.updated_at`

	_, err := querier.ExecContext(
		ctx,
		query,
		connection.ID,
		connection.TenantID,
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
func (p *PostgreSQLConnectionRepository) GetByTenantAndProvider(
	ctx context.Context,
	tenantID uuid.UUID,
	provider vaultDomain.Provider,
) (*vaultDomain.Connection, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, tenant_id, provider, account_id, display_name, status, created_at, updated_at
			  FROM connections
			  WHERE tenant_id = $1 AND provider = $2`

	var connection vaultDomain.Connection
	err := querier.QueryRowContext(ctx, query, tenantID, provider).Scan(
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
func (p *PostgreSQLConnectionRepository) ListByTenant(
	ctx context.Context,
	tenantID uuid.UUID,
	offset, limit int,
) ([]*vaultDomain.Connection, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, tenant_id, provider, account_id, display_name, status, created_at, updated_at
			  FROM connections
			  WHERE tenant_id = $1
			  ORDER BY provider ASC
			  OFFSET $2 LIMIT $3`

	rows, err := querier.QueryContext(ctx, query, tenantID, offset, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list connections")
	}
	defer rows.Close()

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

// ListByStatus returns every connection in the given status for the given
// provider model's providers; used by the daily validation sweep.
func (p *PostgreSQLConnectionRepository) ListByStatus(
	ctx context.Context,
	status vaultDomain.ConnectionStatus,
	providers []vaultDomain.Provider,
) ([]*vaultDomain.Connection, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, tenant_id, provider, account_id, display_name, status, created_at, updated_at
			  FROM connections
			  WHERE status = $1 AND provider = ANY($2)
			  ORDER BY tenant_id ASC`

	names := make([]string, len(providers))
	for i, provider := range providers {
		names[i] = string(provider)
	}

	rows, err := querier.QueryContext(ctx, query, status, pq.Array(names))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list connections by status")
	}
	defer rows.Close()

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

// SetStatus updates the connection status for a tenant-provider pair.
func (p *PostgreSQLConnectionRepository) SetStatus(
	ctx context.Context,
	tenantID uuid.UUID,
	provider vaultDomain.Provider,
	status vaultDomain.ConnectionStatus,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE connections
			  SET status = $1, updated_at = $2
			  WHERE tenant_id = $3 AND provider = $4`

	if _, err := querier.ExecContext(ctx, query, status, time.Now().UTC(), tenantID, provider); err != nil {
		return apperrors.Wrap(err, "failed to set connection status")
	}

	return nil
}

// Delete removes the connection for a tenant-provider pair.
func (p *PostgreSQLConnectionRepository) Delete(
	ctx context.Context,
	tenantID uuid.UUID,
	provider vaultDomain.Provider,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM connections WHERE tenant_id = $1 AND provider = $2`
	if _, err := querier.ExecContext(ctx, query, tenantID, provider); err != nil {
		return apperrors.Wrap(err, "failed to delete connection")
	}

	return nil
}
