package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	cryptoService "github.com/connectkit/credvault/internal/crypto/service"
	"github.com/connectkit/credvault/internal/errors"
	vaultDomain "github.com/connectkit/credvault/internal/vault/domain"
	"github.com/connectkit/credvault/internal/vault/provider"
)

// Reasons recorded on invalidated records. Categories only, never upstream
// response bodies.
const (
	reasonExpired                 = "expired"
	reasonRefreshFailed           = "refresh_failed"
	reasonReauthorizationRequired = "reauthorization_required"
)

// OAuthRotationAdapter renews short-lived access tokens with a stored
// long-lived refresh token. One instance serves one provider and is safe for
// concurrent use; callers serialize per identity at the orchestrator.
type OAuthRotationAdapter struct {
	provider vaultDomain.Provider
	store    CredentialStore
	cipher   cryptoService.Cipher
	client   provider.OAuthTokenClient
	logger   *slog.Logger
}

// NewOAuthRotationAdapter creates an OAuthRotationAdapter for one provider.
func NewOAuthRotationAdapter(
	providerName vaultDomain.Provider,
	store CredentialStore,
	cipher cryptoService.Cipher,
	client provider.OAuthTokenClient,
	logger *slog.Logger,
) *OAuthRotationAdapter {
	return &OAuthRotationAdapter{
		provider: providerName,
		store:    store,
		cipher:   cipher,
		client:   client,
		logger:   logger,
	}
}

// Model returns the lifecycle model this adapter drives.
func (a *OAuthRotationAdapter) Model() vaultDomain.CredentialModel {
	return vaultDomain.ModelOAuthRotation
}

// GetAccessToken returns a usable access token for the tenant. A token past
// its expiry is refreshed inline; a token inside the buffer is returned as-is
// with NeedsRefresh set so the caller can renew proactively without blocking.
// Refresh failures are never retried inside the call.
func (a *OAuthRotationAdapter) GetAccessToken(
	ctx context.Context,
	tenantID uuid.UUID,
	identifier string,
	buffer time.Duration,
) (*vaultDomain.PlaintextCredential, error) {
	accessIdentity := a.identity(tenantID, vaultDomain.KindAccessToken, identifier)

	record, err := a.store.Get(ctx, accessIdentity)
	switch {
	case errors.Is(err, errors.ErrNotFound):
		// Never stored, or previously torn down. Try the refresh token.
		return a.refresh(ctx, tenantID, identifier)
	case err != nil:
		return nil, err
	}

	if !record.IsValid {
		return a.refresh(ctx, tenantID, identifier)
	}

	now := time.Now().UTC()
	if record.IsExpired(now) {
		if markErr := a.store.MarkInvalid(ctx, record.ID, reasonExpired); markErr != nil {
			a.logger.Warn("failed to mark expired credential invalid",
				slog.String("identity", accessIdentity.Key()),
				slog.String("error", markErr.Error()),
			)
		}

		cred, refreshErr := a.refresh(ctx, tenantID, identifier)
		if refreshErr != nil {
			return nil, a.expiredRefreshError(refreshErr)
		}
		return cred, nil
	}

	plaintext, err := a.cipher.Decrypt(record.Ciphertext)
	if err != nil {
		return nil, err
	}

	return &vaultDomain.PlaintextCredential{
		Value:        string(plaintext),
		ExpiresAt:    record.ExpiresAt,
		NeedsRefresh: record.ExpiresWithin(now, buffer),
	}, nil
}

// Refresh renews the access token with the stored refresh token and persists
// the result. Used by the proactive sweep and by the expiry path above.
func (a *OAuthRotationAdapter) Refresh(
	ctx context.Context,
	tenantID uuid.UUID,
	identifier string,
) (*vaultDomain.PlaintextCredential, error) {
	return a.refresh(ctx, tenantID, identifier)
}

func (a *OAuthRotationAdapter) refresh(
	ctx context.Context,
	tenantID uuid.UUID,
	identifier string,
) (*vaultDomain.PlaintextCredential, error) {
	refreshIdentity := a.identity(tenantID, vaultDomain.KindRefreshToken, identifier)

	record, err := a.store.Get(ctx, refreshIdentity)
	switch {
	case errors.Is(err, errors.ErrNotFound):
		return nil, vaultDomain.ErrNoCredential
	case err != nil:
		return nil, err
	}
	if !record.IsValid {
		return nil, vaultDomain.ErrReauthorizationRequired
	}

	refreshToken, err := a.cipher.Decrypt(record.Ciphertext)
	if err != nil {
		return nil, err
	}

	token, err := a.client.Refresh(ctx, string(refreshToken))
	if err != nil {
		if errors.Is(err, vaultDomain.ErrRefreshFailed) {
			// The provider rejected the grant. The refresh token is dead
			// until the tenant reconnects.
			if markErr := a.store.MarkInvalid(ctx, record.ID, reasonRefreshFailed); markErr != nil {
				a.logger.Warn("failed to mark refresh token invalid",
					slog.String("identity", refreshIdentity.Key()),
					slog.String("error", markErr.Error()),
				)
			}
			return nil, fmt.Errorf("%w: %w", vaultDomain.ErrReauthorizationRequired, err)
		}
		return nil, err
	}

	expiresAt := tokenExpiresAt(token.ExpiresIn)

	envelope, err := a.cipher.Encrypt([]byte(token.AccessToken))
	if err != nil {
		return nil, err
	}
	accessIdentity := a.identity(tenantID, vaultDomain.KindAccessToken, identifier)
	if _, err := a.store.Put(ctx, accessIdentity, envelope, expiresAt); err != nil {
		return nil, err
	}

	// Some providers rotate the refresh token on use. Persist the new one or
	// the next refresh fails permanently.
	if token.RefreshToken != "" {
		rotated, err := a.cipher.Encrypt([]byte(token.RefreshToken))
		if err != nil {
			return nil, err
		}
		if _, err := a.store.Put(ctx, refreshIdentity, rotated, nil); err != nil {
			return nil, err
		}
	}

	a.logger.Info("access token refreshed",
		slog.String("identity", accessIdentity.Key()),
	)

	return &vaultDomain.PlaintextCredential{
		Value:     token.AccessToken,
		ExpiresAt: expiresAt,
	}, nil
}

// Probe checks the stored access token against the provider with the
// cheapest authenticated call. Used by the daily validation sweep.
func (a *OAuthRotationAdapter) Probe(
	ctx context.Context,
	tenantID uuid.UUID,
	identifier string,
) error {
	accessIdentity := a.identity(tenantID, vaultDomain.KindAccessToken, identifier)

	record, err := a.store.Get(ctx, accessIdentity)
	switch {
	case errors.Is(err, errors.ErrNotFound):
		return vaultDomain.ErrNoCredential
	case err != nil:
		return err
	}

	plaintext, err := a.cipher.Decrypt(record.Ciphertext)
	if err != nil {
		return err
	}

	if err := a.client.Probe(ctx, string(plaintext)); err != nil {
		if errors.Is(err, vaultDomain.ErrUnauthorizedToken) {
			if markErr := a.store.MarkInvalid(ctx, record.ID, reasonReauthorizationRequired); markErr != nil {
				a.logger.Warn("failed to mark probed credential invalid",
					slog.String("identity", accessIdentity.Key()),
					slog.String("error", markErr.Error()),
				)
			}
			return fmt.Errorf("%w: %w", vaultDomain.ErrReauthorizationRequired, err)
		}
		return err
	}

	return nil
}

// expiredRefreshError maps refresh failures after an expired cached token.
// A missing refresh token means the credential expired with no way to renew;
// a rejected grant means the tenant must reauthorize. Transient failures pass
// through untouched.
func (a *OAuthRotationAdapter) expiredRefreshError(err error) error {
	switch {
	case errors.Is(err, vaultDomain.ErrNoCredential):
		return vaultDomain.ErrExpiredNoRefresh
	default:
		return err
	}
}

func (a *OAuthRotationAdapter) identity(
	tenantID uuid.UUID,
	kind vaultDomain.Kind,
	identifier string,
) vaultDomain.Identity {
	return vaultDomain.Identity{
		TenantID:   tenantID,
		Provider:   a.provider,
		Kind:       kind,
		Identifier: identifier,
	}
}

// tokenExpiresAt converts an expires_in lifetime to an absolute expiry.
// A zero lifetime means the provider did not say; the record then carries no
// expiry and the validation sweep is the only staleness check.
func tokenExpiresAt(expiresIn int64) *time.Time {
	if expiresIn <= 0 {
		return nil
	}
	expiresAt := time.Now().UTC().Add(time.Duration(expiresIn) * time.Second)
	return &expiresAt
}
