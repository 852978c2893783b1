package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	cryptoService "github.com/connectkit/credvault/internal/crypto/service"
	"github.com/connectkit/credvault/internal/errors"
	vaultDomain "github.com/connectkit/credvault/internal/vault/domain"
	"github.com/connectkit/credvault/internal/vault/provider"
)

// defaultReissueBuffer is the minimum remaining validity before a cached JWT
// is re-issued instead of reused.
const defaultReissueBuffer = 5 * time.Minute

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// TokenCache holds issued JWTs in process, keyed by tenant. It is an explicit
// dependency injected into the adapter so its lifetime is owned by the
// process wiring, and it is safe for concurrent use.
type TokenCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]cachedToken
}

// NewTokenCache creates an empty TokenCache.
func NewTokenCache() *TokenCache {
	return &TokenCache{entries: make(map[uuid.UUID]cachedToken)}
}

// Get returns the cached token for the tenant when it still has at least
// buffer of validity left.
func (c *TokenCache) Get(tenantID uuid.UUID, now time.Time, buffer time.Duration) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[tenantID]
	if !ok || entry.expiresAt.Before(now.Add(buffer)) {
		return "", false
	}
	return entry.token, true
}

// Put stores a freshly issued token for the tenant.
func (c *TokenCache) Put(tenantID uuid.UUID, token string, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[tenantID] = cachedToken{token: token, expiresAt: expiresAt}
}

// Invalidate drops the tenant's cached token.
func (c *TokenCache) Invalidate(tenantID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, tenantID)
}

// ReissuableTokenAdapter serves providers whose API grants short-lived JWTs
// derived from a durable ID/secret pair. The pair lives encrypted in the
// store; issued JWTs are disposable and cached only in process.
type ReissuableTokenAdapter struct {
	provider      vaultDomain.Provider
	store         CredentialStore
	cipher        cryptoService.Cipher
	issuer        provider.TokenIssuer
	cache         *TokenCache
	reissueBuffer time.Duration
	logger        *slog.Logger
}

// NewReissuableTokenAdapter creates a ReissuableTokenAdapter for one provider.
func NewReissuableTokenAdapter(
	providerName vaultDomain.Provider,
	store CredentialStore,
	cipher cryptoService.Cipher,
	issuer provider.TokenIssuer,
	cache *TokenCache,
	logger *slog.Logger,
) *ReissuableTokenAdapter {
	return &ReissuableTokenAdapter{
		provider:      providerName,
		store:         store,
		cipher:        cipher,
		issuer:        issuer,
		cache:         cache,
		reissueBuffer: defaultReissueBuffer,
		logger:        logger,
	}
}

// Model returns the lifecycle model this adapter drives.
func (a *ReissuableTokenAdapter) Model() vaultDomain.CredentialModel {
	return vaultDomain.ModelReissuable
}

// SetReissueBuffer overrides how much remaining validity a cached token must
// have to be served. Non-positive values keep the default.
func (a *ReissuableTokenAdapter) SetReissueBuffer(buffer time.Duration) {
	if buffer > 0 {
		a.reissueBuffer = buffer
	}
}

// GetToken returns a JWT with at least the reissue buffer of validity left,
// issuing a fresh one from the stored ID/secret pair when the cache misses.
func (a *ReissuableTokenAdapter) GetToken(
	ctx context.Context,
	tenantID uuid.UUID,
) (*vaultDomain.PlaintextCredential, error) {
	now := time.Now().UTC()
	if token, ok := a.cache.Get(tenantID, now, a.reissueBuffer); ok {
		return &vaultDomain.PlaintextCredential{Value: token}, nil
	}
	return a.issue(ctx, tenantID)
}

// Do runs call with a usable JWT. When the downstream API rejects the token
// the cache is invalidated and the call retried exactly once with a fresh
// token; a second rejection is returned to the caller.
func (a *ReissuableTokenAdapter) Do(
	ctx context.Context,
	tenantID uuid.UUID,
	call func(token string) error,
) error {
	cred, err := a.GetToken(ctx, tenantID)
	if err != nil {
		return err
	}

	err = call(cred.Value)
	if !errors.Is(err, vaultDomain.ErrUnauthorizedToken) {
		return err
	}

	a.cache.Invalidate(tenantID)
	cred, err = a.issue(ctx, tenantID)
	if err != nil {
		return err
	}
	return call(cred.Value)
}

func (a *ReissuableTokenAdapter) issue(
	ctx context.Context,
	tenantID uuid.UUID,
) (*vaultDomain.PlaintextCredential, error) {
	identity := vaultDomain.Identity{
		TenantID: tenantID,
		Provider: a.provider,
		Kind:     vaultDomain.KindAPICredentials,
	}

	record, err := a.store.Get(ctx, identity)
	switch {
	case errors.Is(err, errors.ErrNotFound):
		return nil, vaultDomain.ErrNoCredential
	case err != nil:
		return nil, err
	}
	if !record.IsValid {
		return nil, vaultDomain.ErrReauthorizationRequired
	}

	plaintext, err := a.cipher.Decrypt(record.Ciphertext)
	if err != nil {
		return nil, err
	}

	var creds APICredentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return nil, errors.Wrap(err, "failed to decode stored api credentials")
	}

	issued, err := a.issuer.IssueToken(ctx, creds.ID, creds.Secret)
	if err != nil {
		if errors.Is(err, vaultDomain.ErrRefreshFailed) {
			// The provider rejected the stored pair. It no longer works and
			// the tenant must re-enter it.
			if markErr := a.store.MarkInvalid(ctx, record.ID, reasonRefreshFailed); markErr != nil {
				a.logger.Warn("failed to mark api credentials invalid",
					slog.String("identity", identity.Key()),
					slog.String("error", markErr.Error()),
				)
			}
			return nil, fmt.Errorf("%w: %w", vaultDomain.ErrReauthorizationRequired, err)
		}
		return nil, err
	}

	a.cache.Put(tenantID, issued.Token, issued.ExpiresAt)

	a.logger.Info("token issued",
		slog.String("identity", identity.Key()),
	)

	return &vaultDomain.PlaintextCredential{
		Value:     issued.Token,
		ExpiresAt: &issued.ExpiresAt,
	}, nil
}
