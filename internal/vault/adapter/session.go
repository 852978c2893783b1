package adapter

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	cryptoService "github.com/connectkit/credvault/internal/crypto/service"
	"github.com/connectkit/credvault/internal/errors"
	vaultDomain "github.com/connectkit/credvault/internal/vault/domain"
	"github.com/connectkit/credvault/internal/vault/provider"
)

// SessionLifecycleAdapter serves providers that authenticate with an explicit
// login that yields a session id, consumed until an explicit logout. One
// instance covers one unit of work and is not safe for concurrent use; create
// a fresh adapter per job.
type SessionLifecycleAdapter struct {
	provider vaultDomain.Provider
	store    CredentialStore
	cipher   cryptoService.Cipher
	client   provider.SessionClient
	logger   *slog.Logger

	sessionID string
}

// NewSessionLifecycleAdapter creates a SessionLifecycleAdapter scoped to one
// unit of work.
func NewSessionLifecycleAdapter(
	providerName vaultDomain.Provider,
	store CredentialStore,
	cipher cryptoService.Cipher,
	client provider.SessionClient,
	logger *slog.Logger,
) *SessionLifecycleAdapter {
	return &SessionLifecycleAdapter{
		provider: providerName,
		store:    store,
		cipher:   cipher,
		client:   client,
		logger:   logger,
	}
}

// Model returns the lifecycle model this adapter drives.
func (a *SessionLifecycleAdapter) Model() vaultDomain.CredentialModel {
	return vaultDomain.ModelSessionLifecycle
}

// Login authenticates with the stored credentials and returns a session id.
// A session already held by this instance is reused.
func (a *SessionLifecycleAdapter) Login(ctx context.Context, tenantID uuid.UUID) (string, error) {
	if a.sessionID != "" {
		return a.sessionID, nil
	}

	identity := vaultDomain.Identity{
		TenantID: tenantID,
		Provider: a.provider,
		Kind:     vaultDomain.KindAPICredentials,
	}

	record, err := a.store.Get(ctx, identity)
	switch {
	case errors.Is(err, errors.ErrNotFound):
		return "", vaultDomain.ErrNoCredential
	case err != nil:
		return "", err
	}
	if !record.IsValid {
		return "", vaultDomain.ErrReauthorizationRequired
	}

	plaintext, err := a.cipher.Decrypt(record.Ciphertext)
	if err != nil {
		return "", err
	}

	var creds provider.SessionCredentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return "", errors.Wrap(err, "failed to decode stored session credentials")
	}

	sessionID, err := a.client.Login(ctx, creds)
	if err != nil {
		if errors.Is(err, vaultDomain.ErrRefreshFailed) {
			if markErr := a.store.MarkInvalid(ctx, record.ID, reasonRefreshFailed); markErr != nil {
				a.logger.Warn("failed to mark session credentials invalid",
					slog.String("identity", identity.Key()),
					slog.String("error", markErr.Error()),
				)
			}
			return "", vaultDomain.ErrReauthorizationRequired
		}
		return "", err
	}

	a.sessionID = sessionID
	return sessionID, nil
}

// Logout releases the held session, if any. Failures are logged and
// swallowed: an orphaned session expires upstream on its own and must never
// mask the outcome of the work it served.
func (a *SessionLifecycleAdapter) Logout(ctx context.Context) {
	if a.sessionID == "" {
		return
	}

	if err := a.client.Logout(ctx, a.sessionID); err != nil {
		a.logger.Warn("session logout failed",
			slog.String("provider", string(a.provider)),
			slog.String("error", err.Error()),
		)
	}
	a.sessionID = ""
}

// SessionFactory hands out a fresh single-use session adapter per unit of
// work. It is the long-lived, concurrency-safe object wired into the
// orchestrator; the adapters it creates are not.
type SessionFactory struct {
	provider vaultDomain.Provider
	store    CredentialStore
	cipher   cryptoService.Cipher
	client   provider.SessionClient
	logger   *slog.Logger
}

// NewSessionFactory creates a SessionFactory.
func NewSessionFactory(
	providerName vaultDomain.Provider,
	store CredentialStore,
	cipher cryptoService.Cipher,
	client provider.SessionClient,
	logger *slog.Logger,
) *SessionFactory {
	return &SessionFactory{
		provider: providerName,
		store:    store,
		cipher:   cipher,
		client:   client,
		logger:   logger,
	}
}

// WithSession runs fn inside a session held by a fresh adapter instance.
func (f *SessionFactory) WithSession(
	ctx context.Context,
	tenantID uuid.UUID,
	fn func(sessionID string) error,
) error {
	a := NewSessionLifecycleAdapter(f.provider, f.store, f.cipher, f.client, f.logger)
	return a.WithSession(ctx, tenantID, fn)
}

// WithSession logs in, runs fn with the session id, and logs out on every
// exit path, panics included. When fn reports the session expired upstream
// the cached id is dropped so the next login re-authenticates instead of
// presenting a dead session.
func (a *SessionLifecycleAdapter) WithSession(
	ctx context.Context,
	tenantID uuid.UUID,
	fn func(sessionID string) error,
) error {
	sessionID, err := a.Login(ctx, tenantID)
	if err != nil {
		return err
	}
	defer a.Logout(ctx)

	if err := fn(sessionID); err != nil {
		if errors.Is(err, vaultDomain.ErrSessionExpired) {
			// The provider already killed the session; skip the logout call.
			a.sessionID = ""
		}
		return err
	}

	return nil
}
