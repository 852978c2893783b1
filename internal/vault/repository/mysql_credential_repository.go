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

// MySQLCredentialRepository implements credential persistence for MySQL.
type MySQLCredentialRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewMySQLCredentialRepository creates a new MySQL credential repository.
func NewMySQLCredentialRepository(db *sql.DB, logger *slog.Logger) *MySQLCredentialRepository {
	return &MySQLCredentialRepository{db: db, logger: logger}
}

// Put upserts the credential for the given identity. MySQL has no RETURNING,
// so the row id is read back after the upsert; on conflict the existing row
// keeps its id.
func (m *MySQLCredentialRepository) Put(
	ctx context.Context,
	identity vaultDomain.Identity,
	envelope string,
	expiresAt *time.Time,
) (uuid.UUID, error) {
	querier := database.GetTx(ctx, m.db)

	newID, err := uuid.Must(uuid.NewV7()).MarshalBinary()
	if err != nil {
		return uuid.Nil, apperrors.Wrap(err, "failed to marshal credential id")
	}
	tenantID, err := identity.TenantID.MarshalBinary()
	if err != nil {
		return uuid.Nil, apperrors.Wrap(err, "failed to marshal tenant id")
	}

	now := time.Now().UTC()
	query := `INSERT INTO credentials
			  (id, tenant_id, provider, kind, identifier, ciphertext, expires_at,
			   is_valid, last_error, last_refreshed_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, TRUE, NULL, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
			      ciphertext = VALUES(ciphertext),
			      expires_at = VALUES(expires_at),
			      is_valid = TRUE,
			      last_error = NULL,
			      last_refreshed_at = VALUES(last_refreshed_at),
			      updated_at = VALUES(updated_at)`

	_, err = querier.ExecContext(
		ctx,
		query,
		newID,
		tenantID,
		identity.Provider,
		identity.Kind,
		identity.Identifier,
		envelope,
		expiresAt,
		now,
		now,
		now,
	)
	if err != nil {
		return uuid.Nil, apperrors.Wrap(err, "failed to put credential")
	}

	var id uuid.UUID
	idQuery := `SELECT id FROM credentials
			  WHERE tenant_id = ? AND provider = ? AND kind = ? AND identifier = ?`
	err = querier.QueryRowContext(
		ctx,
		idQuery,
		tenantID,
		identity.Provider,
		identity.Kind,
		identity.Identifier,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, apperrors.Wrap(err, "failed to read credential id")
	}

	return id, nil
}

// Get retrieves the credential for the given identity with a best-effort
// last_used_at touch.
func (m *MySQLCredentialRepository) Get(
	ctx context.Context,
	identity vaultDomain.Identity,
) (*vaultDomain.CredentialRecord, error) {
	querier := database.GetTx(ctx, m.db)

	tenantID, err := identity.TenantID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal tenant id")
	}

	query := `SELECT id, tenant_id, provider, kind, identifier, ciphertext, expires_at,
			         is_valid, last_error, last_used_at, last_refreshed_at, created_at, updated_at
			  FROM credentials
			  WHERE tenant_id = ? AND provider = ? AND kind = ? AND identifier = ?`

	var record vaultDomain.CredentialRecord
	err = querier.QueryRowContext(
		ctx,
		query,
		tenantID,
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

	m.touchLastUsed(record.ID)

	return &record, nil
}

func (m *MySQLCredentialRepository) touchLastUsed(id uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), lastUsedTouchTimeout)
		defer cancel()

		rawID, err := id.MarshalBinary()
		if err != nil {
			return
		}

		query := `UPDATE credentials SET last_used_at = ? WHERE id = ?`
		if _, err := m.db.ExecContext(ctx, query, time.Now().UTC(), rawID); err != nil {
			m.logger.Warn("failed to record credential usage",
				slog.String("credential_id", id.String()),
				slog.Any("error", err),
			)
		}
	}()
}

// MarkInvalid flags the credential as unusable, recording the failure reason.
func (m *MySQLCredentialRepository) MarkInvalid(
	ctx context.Context,
	id uuid.UUID,
	reason string,
) error {
	querier := database.GetTx(ctx, m.db)

	rawID, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal credential id")
	}

	query := `UPDATE credentials
			  SET is_valid = FALSE, last_error = ?, updated_at = ?
			  WHERE id = ?`

	if _, err := querier.ExecContext(ctx, query, reason, time.Now().UTC(), rawID); err != nil {
		return apperrors.Wrap(err, "failed to mark credential invalid")
	}

	return nil
}

// Delete hard-deletes a single credential record.
func (m *MySQLCredentialRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	rawID, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal credential id")
	}

	query := `DELETE FROM credentials WHERE id = ?`
	if _, err := querier.ExecContext(ctx, query, rawID); err != nil {
		return apperrors.Wrap(err, "failed to delete credential")
	}

	return nil
}

// DeleteAll hard-deletes every credential a tenant holds for a provider.
func (m *MySQLCredentialRepository) DeleteAll(
	ctx context.Context,
	tenantID uuid.UUID,
	provider vaultDomain.Provider,
) error {
	querier := database.GetTx(ctx, m.db)

	rawTenantID, err := tenantID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal tenant id")
	}

	query := `DELETE FROM credentials WHERE tenant_id = ? AND provider = ?`
	if _, err := querier.ExecContext(ctx, query, rawTenantID, provider); err != nil {
		return apperrors.Wrap(err, "failed to delete credentials")
	}

	return nil
}

// FindExpiring returns the identities of valid access-token records whose
// expiry falls within the given window.
func (m *MySQLCredentialRepository) FindExpiring(
	ctx context.Context,
	within time.Duration,
	provider vaultDomain.Provider,
) ([]vaultDomain.Identity, error) {
	querier := database.GetTx(ctx, m.db)

	deadline := time.Now().UTC().Add(within)
	query := `SELECT tenant_id, provider, kind, identifier
			  FROM credentials
			  WHERE is_valid = TRUE
			    AND kind = ?
			    AND expires_at IS NOT NULL
			    AND expires_at <= ?
			    AND (? = '' OR provider = ?)
			  ORDER BY expires_at ASC`

	rows, err := querier.QueryContext(
		ctx,
		query,
		vaultDomain.KindAccessToken,
		deadline,
		provider,
		provider,
	)
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
