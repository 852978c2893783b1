// Package repository implements data persistence for the credential vault.
// Repositories support both PostgreSQL and MySQL; they store only envelope
// ciphertext plus validity metadata and never inspect or log secret material.
package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/connectkit/credvault/internal/database"
	apperrors "github.com/connectkit/credvault/internal/errors"
	vaultDomain "github.com/connectkit/credvault/internal/vault/domain"
)

// lastUsedTouchTimeout bounds the detached last_used_at update so a stuck
// database cannot pile up goroutines.
const lastUsedTouchTimeout = 5 * time.Second

// PostgreSQLCredentialRepository implements credential persistence for PostgreSQL.
type PostgreSQLCredentialRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgreSQLCredentialRepository creates a new PostgreSQL credential repository.
func NewPostgreSQLCredentialRepository(db *sql.DB, logger *slog.Logger) *PostgreSQLCredentialRepository {
	return &PostgreSQLCredentialRepository{db: db, logger: logger}
}

// Put upserts the credential for the given identity. An existing row gets new
// ciphertext and expiry, is_valid reset to true, last_error cleared and
// last_refreshed_at bumped; the row id never changes. Idempotent under retry.
func (p *PostgreSQLCredentialRepository) Put(
	ctx context.Context,
	identity vaultDomain.Identity,
	envelope string,
	expiresAt *time.Time,
) (uuid.UUID, error) {
	querier := database.GetTx(ctx, p.db)

	now := time.Now().UTC()
	query := `INSERT INTO credentials
			  (id, tenant_id, provider, kind, identifier, ciphertext, expires_at,
			   is_valid, last_error, last_refreshed_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, NULL, $8, $9, $10)
			  ON CONFLICT (tenant_id, provider, kind, identifier) DO UPDATE SET
			      ciphertext = EXCLUDED.ciphertext,
			      expires_at = EXCLUDED.expires_at,
			      is_valid = TRUE,
			      last_error = NULL,
			      last_refreshed_at = EXCLUDED.last_refreshed_at,
			      updated_at = EXCLUDED.updated_at
			  RETURNING id`

	var id uuid.UUID
	err := querier.QueryRowContext(
		ctx,
		query,
		uuid.Must(uuid.NewV7()),
		identity.TenantID,
		identity.Provider,
		identity.Kind,
		identity.Identifier,
		envelope,
		expiresAt,
		now,
		now,
		now,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, apperrors.Wrap(err, "failed to put credential")
	}

	return id, nil
}

// Get retrieves the credential for the given identity. As a side effect it
// schedules a best-effort last_used_at touch that never fails the read.
func (p *PostgreSQLCredentialRepository) Get(
	ctx context.Context,
	identity vaultDomain.Identity,
) (*vaultDomain.CredentialRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, tenant_id, provider, kind, identifier, ciphertext, expires_at,
			         is_valid, last_error, last_used_at, last_refreshed_at, created_at, updated_at
			  FROM credentials
			  WHERE tenant_id = $1 AND provider = $2 AND kind = $3 AND identifier = $4`

	var record vaultDomain.CredentialRecord
	err := querier.QueryRowContext(
		ctx,
		query,
		identity.TenantID,
		identity.Provider,
		identity.Kind,
		identity.Identifier,
	).Scan(
		&record.ID,
		&record.TenantID,
		&record.Provider,
		&record.Kind,
		&record.Identifier,
		&record.Ciphertext,
		&record.ExpiresAt,
		&record.IsValid,
		&record.LastError,
		&record.LastUsedAt,
		&record.LastRefreshedAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get credential")
	}

	p.touchLastUsed(record.ID)

	return &record, nil
}

// touchLastUsed updates last_used_at in a detached goroutine. Failures are
// logged and dropped; recording usage must never fail a read.
func (p *PostgreSQLCredentialRepository) touchLastUsed(id uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), lastUsedTouchTimeout)
		defer cancel()

		query := `UPDATE credentials SET last_used_at = $1 WHERE id = $2`
		if _, err := p.db.ExecContext(ctx, query, time.Now().UTC(), id); err != nil {
			p.logger.Warn("failed to record credential usage",
				slog.String("credential_id", id.String()),
				slog.Any("error", err),
			)
		}
	}()
}

// MarkInvalid flags the credential as unusable, recording the failure reason.
// Irreversible except via a subsequent successful Put.
func (p *PostgreSQLCredentialRepository) MarkInvalid(
	ctx context.Context,
	id uuid.UUID,
	reason string,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE credentials
			  SET is_valid = FALSE, last_error = $1, updated_at = $2
			  WHERE id = $3`

	if _, err := querier.ExecContext(ctx, query, reason, time.Now().UTC(), id); err != nil {
		return apperrors.Wrap(err, "failed to mark credential invalid")
	}

	return nil
}

// Delete hard-deletes a single credential record. Secrets must not linger.
func (p *PostgreSQLCredentialRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM credentials WHERE id = $1`
	if _, err := querier.ExecContext(ctx, query, id); err != nil {
		return apperrors.Wrap(err, "failed to delete credential")
	}

	return nil
}

// DeleteAll hard-deletes every credential a tenant holds for a provider.
// Used when the tenant disconnects the provider.
func (p *PostgreSQLCredentialRepository) DeleteAll(
	ctx context.Context,
	tenantID uuid.UUID,
	provider vaultDomain.Provider,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM credentials WHERE tenant_id = $1 AND provider = $2`
	if _, err := querier.ExecContext(ctx, query, tenantID, provider); err != nil {
		return apperrors.Wrap(err, "failed to delete credentials")
	}

	return nil
}

// FindExpiring returns the identities of valid access-token records whose
// expiry falls within the given window. An empty provider matches all
// providers.
func (p *PostgreSQLCredentialRepository) FindExpiring(
	ctx context.Context,
	within time.Duration,
	provider vaultDomain.Provider,
) ([]vaultDomain.Identity, error) {
	querier := database.GetTx(ctx, p.db)

	deadline := time.Now().UTC().Add(within)
	query := `SELECT tenant_id, provider, kind, identifier
			  FROM credentials
			  WHERE is_valid = TRUE
			    AND kind = $1
			    AND expires_at IS NOT NULL
			    AND expires_at <= $2
			    AND ($3 = '' OR provider = $3)
			  ORDER BY expires_at ASC`

	rows, err := querier.QueryContext(ctx, query, vaultDomain.KindAccessToken, deadline, provider)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to find expiring credentials")
	}
	defer rows.Close()

	var identities []vaultDomain.Identity
	for rows.Next() {
		var identity vaultDomain.Identity
		if err := rows.Scan(
			&identity.TenantID,
			&identity.Provider,
			&identity.Kind,
			&identity.Identifier,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan expiring credential")
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate expiring credentials")
	}

	return identities, nil
}
