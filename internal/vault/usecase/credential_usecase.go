package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"
	"golang.org/x/sync/singleflight"

	cryptoDomain "github.com/connectkit/credvault/internal/crypto/domain"
	cryptoService "github.com/connectkit/credvault/internal/crypto/service"
	"github.com/connectkit/credvault/internal/database"
	"github.com/connectkit/credvault/internal/errors"
	appValidation "github.com/connectkit/credvault/internal/validation"
	vaultDomain "github.com/connectkit/credvault/internal/vault/domain"
)

// EventTypeReconnectRequired is emitted when automated renewal for a tenant's
// provider connection has terminally failed and a human must re-grant access.
const EventTypeReconnectRequired = "credential.reconnect_required"

// Config holds orchestrator tuning.
type Config struct {
	// RefreshBuffer is how close to expiry an access token may get before it
	// is flagged for proactive refresh.
	RefreshBuffer time.Duration
	// SingleFlightWait bounds how long a caller waits on another caller's
	// in-flight refresh before giving up with ErrConcurrencyTimeout.
	SingleFlightWait time.Duration
}

// StoreCredentialInput is the first-time ingestion payload.
type StoreCredentialInput struct {
	TenantID   uuid.UUID
	Provider   vaultDomain.Provider
	Kind       vaultDomain.Kind
	Identifier string
	// Value is the plaintext secret. For api_credentials kinds it is the JSON
	// document the matching adapter expects.
	Value     string
	ExpiresAt *time.Time
	// AccountID and DisplayName feed the non-secret connection mirror.
	AccountID   string
	DisplayName string
}

// Validate checks the ingestion payload.
func (i *StoreCredentialInput) Validate() error {
	identity := vaultDomain.Identity{
		TenantID:   i.TenantID,
		Provider:   i.Provider,
		Kind:       i.Kind,
		Identifier: i.Identifier,
	}
	if err := identity.Validate(); err != nil {
		return err
	}

	rules := []validation.Rule{
		validation.Required.Error("value is required"),
		appValidation.NotBlank,
	}
	if i.Kind == vaultDomain.KindAPICredentials {
		rules = append(rules, appValidation.JSONObject)
	}

	err := validation.ValidateStruct(i,
		validation.Field(&i.Value, rules...),
	)
	return appValidation.WrapValidationError(err)
}

// credentialUseCase implements CredentialUseCase.
type credentialUseCase struct {
	config         Config
	txManager      database.TxManager
	credentialRepo CredentialRepository
	connectionRepo ConnectionRepository
	cipher         cryptoService.Cipher
	oauthAdapters  map[vaultDomain.Provider]OAuthAdapter
	reissuable     map[vaultDomain.Provider]ReissuableAdapter
	sessions       map[vaultDomain.Provider]SessionRunner
	publisher      NotificationPublisher
	group          singleflight.Group
	logger         *slog.Logger
}

// NewCredentialUseCase creates the orchestrator. Adapter maps hold one entry
// per provider the deployment supports; a provider with no adapter entry is
// rejected at dispatch.
func NewCredentialUseCase(
	config Config,
	txManager database.TxManager,
	credentialRepo CredentialRepository,
	connectionRepo ConnectionRepository,
	cipher cryptoService.Cipher,
	oauthAdapters map[vaultDomain.Provider]OAuthAdapter,
	reissuable map[vaultDomain.Provider]ReissuableAdapter,
	sessions map[vaultDomain.Provider]SessionRunner,
	publisher NotificationPublisher,
	logger *slog.Logger,
) CredentialUseCase {
	return &credentialUseCase{
		config:         config,
		txManager:      txManager,
		credentialRepo: credentialRepo,
		connectionRepo: connectionRepo,
		cipher:         cipher,
		oauthAdapters:  oauthAdapters,
		reissuable:     reissuable,
		sessions:       sessions,
		publisher:      publisher,
		logger:         logger,
	}
}

// GetUsableCredential returns a usable credential for the identity,
// refreshing through the matching adapter when needed. Concurrent callers
// for the same identity share one in-flight acquisition.
func (u *credentialUseCase) GetUsableCredential(
	ctx context.Context,
	tenantID uuid.UUID,
	provider vaultDomain.Provider,
	kind vaultDomain.Kind,
	identifier string,
) (*vaultDomain.PlaintextCredential, error) {
	identity := vaultDomain.Identity{
		TenantID:   tenantID,
		Provider:   provider,
		Kind:       kind,
		Identifier: identifier,
	}
	if err := identity.Validate(); err != nil {
		return nil, err
	}

	switch provider.Model() {
	case vaultDomain.ModelOAuthRotation:
		adapter, ok := u.oauthAdapters[provider]
		if !ok {
			return nil, fmt.Errorf("%w: no adapter for provider %q", errors.ErrInvalidInput, provider)
		}
		return u.singleFlight(ctx, identity, func(ctx context.Context) (*vaultDomain.PlaintextCredential, error) {
			return adapter.GetAccessToken(ctx, tenantID, identifier, u.config.RefreshBuffer)
		})
	case vaultDomain.ModelReissuable:
		adapter, ok := u.reissuable[provider]
		if !ok {
			return nil, fmt.Errorf("%w: no adapter for provider %q", errors.ErrInvalidInput, provider)
		}
		return u.singleFlight(ctx, identity, func(ctx context.Context) (*vaultDomain.PlaintextCredential, error) {
			return adapter.GetToken(ctx, tenantID)
		})
	case vaultDomain.ModelSessionLifecycle:
		// Sessions are not safely concurrent and must be released after one
		// unit of work; hand out RunInSession instead of a raw session id.
		return nil, fmt.Errorf(
			"%w: provider %q uses scoped sessions, use RunInSession",
			errors.ErrInvalidInput, provider,
		)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", errors.ErrInvalidInput, provider)
	}
}

// RunInSession executes fn inside a fresh provider session.
func (u *credentialUseCase) RunInSession(
	ctx context.Context,
	tenantID uuid.UUID,
	provider vaultDomain.Provider,
	fn func(sessionID string) error,
) error {
	runner, ok := u.sessions[provider]
	if !ok {
		return fmt.Errorf("%w: no session adapter for provider %q", errors.ErrInvalidInput, provider)
	}

	err := runner.WithSession(ctx, tenantID, fn)
	if u.isTerminal(err) {
		u.handleTerminalFailure(ctx, tenantID, provider, err)
	}
	return err
}

// StoreCredential encrypts and stores a first-time credential, then marks the
// connection connected. Both writes commit atomically.
func (u *credentialUseCase) StoreCredential(ctx context.Context, input *StoreCredentialInput) error {
	if err := input.Validate(); err != nil {
		return err
	}

	envelope, err := u.cipher.Encrypt([]byte(input.Value))
	if err != nil {
		return err
	}

	identity := vaultDomain.Identity{
		TenantID:   input.TenantID,
		Provider:   input.Provider,
		Kind:       input.Kind,
		Identifier: input.Identifier,
	}

	err = u.txManager.WithTx(ctx, func(ctx context.Context) error {
		if _, err := u.credentialRepo.Put(ctx, identity, envelope, input.ExpiresAt); err != nil {
			return err
		}

		return u.connectionRepo.Upsert(ctx, &vaultDomain.Connection{
			ID:          uuid.Must(uuid.NewV7()),
			TenantID:    input.TenantID,
			Provider:    input.Provider,
			AccountID:   input.AccountID,
			DisplayName: input.DisplayName,
			Status:      vaultDomain.ConnectionStatusConnected,
		})
	})
	if err != nil {
		return err
	}

	u.logger.Info("credential stored",
		slog.String("identity", identity.Key()),
	)
	return nil
}

// Disconnect hard-deletes every secret the tenant holds for the provider.
// Secrets must not linger after a disconnect; only the non-secret connection
// mirror survives, flipped to disconnected.
func (u *credentialUseCase) Disconnect(
	ctx context.Context,
	tenantID uuid.UUID,
	provider vaultDomain.Provider,
) error {
	if err := provider.Validate(); err != nil {
		return err
	}

	err := u.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := u.credentialRepo.DeleteAll(ctx, tenantID, provider); err != nil {
			return err
		}
		return u.connectionRepo.SetStatus(
			ctx, tenantID, provider, vaultDomain.ConnectionStatusDisconnected,
		)
	})
	if err != nil {
		return err
	}

	u.logger.Info("provider disconnected",
		slog.String("tenant_id", tenantID.String()),
		slog.String("provider", string(provider)),
	)
	return nil
}

// RefreshIdentity renews one credential through its adapter's explicit
// refresh path. Only rotation-model identities carry refreshable access
// tokens; other models are a no-op here.
func (u *credentialUseCase) RefreshIdentity(ctx context.Context, identity vaultDomain.Identity) error {
	if err := identity.Validate(); err != nil {
		return err
	}

	if identity.Provider.Model() != vaultDomain.ModelOAuthRotation {
		return nil
	}
	adapter, ok := u.oauthAdapters[identity.Provider]
	if !ok {
		return fmt.Errorf("%w: no adapter for provider %q", errors.ErrInvalidInput, identity.Provider)
	}

	_, err := u.singleFlight(ctx, identity, func(ctx context.Context) (*vaultDomain.PlaintextCredential, error) {
		return adapter.Refresh(ctx, identity.TenantID, identity.Identifier)
	})
	return err
}

// ValidateConnection probes the provider to detect silent revocation.
func (u *credentialUseCase) ValidateConnection(
	ctx context.Context,
	tenantID uuid.UUID,
	provider vaultDomain.Provider,
	identifier string,
) error {
	adapter, ok := u.oauthAdapters[provider]
	if !ok {
		return fmt.Errorf("%w: no adapter for provider %q", errors.ErrInvalidInput, provider)
	}

	err := adapter.Probe(ctx, tenantID, identifier)
	if u.isTerminal(err) {
		u.handleTerminalFailure(ctx, tenantID, provider, err)
	}
	return err
}

// ListConnections returns the tenant's non-secret connection mirrors.
func (u *credentialUseCase) ListConnections(
	ctx context.Context,
	tenantID uuid.UUID,
	offset, limit int,
) ([]*vaultDomain.Connection, error) {
	return u.connectionRepo.ListByTenant(ctx, tenantID, offset, limit)
}

// singleFlight runs fn with at most one execution in flight per identity.
// Duplicate concurrent refreshes can invalidate each other's refresh tokens
// upstream, so concurrent callers for the same identity await the shared
// outcome instead. The shared execution runs detached from any one caller's
// cancellation: a caller that gives up must not abandon a refresh mid-write.
func (u *credentialUseCase) singleFlight(
	ctx context.Context,
	identity vaultDomain.Identity,
	fn func(ctx context.Context) (*vaultDomain.PlaintextCredential, error),
) (*vaultDomain.PlaintextCredential, error) {
	detachedCtx := context.WithoutCancel(ctx)

	ch := u.group.DoChan(identity.Key(), func() (any, error) {
		cred, err := fn(detachedCtx)
		if u.isTerminal(err) {
			u.handleTerminalFailure(detachedCtx, identity.TenantID, identity.Provider, err)
		}
		if err != nil {
			return nil, err
		}
		return cred, nil
	})

	timer := time.NewTimer(u.config.SingleFlightWait)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*vaultDomain.PlaintextCredential), nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s", vaultDomain.ErrConcurrencyTimeout, identity.Key())
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// isTerminal reports whether the failure cannot be fixed by retrying and
// needs human reauthorization.
func (u *credentialUseCase) isTerminal(err error) bool {
	return errors.Is(err, vaultDomain.ErrReauthorizationRequired) ||
		errors.Is(err, vaultDomain.ErrExpiredNoRefresh) ||
		errors.Is(err, cryptoDomain.ErrDecryptionFailed)
}

// handleTerminalFailure flips the connection to reconnect_required and emits
// the tenant-visible notification. The triggering error is logged and then
// propagated by the caller unmodified; the notification payload carries the
// failure category only.
func (u *credentialUseCase) handleTerminalFailure(
	ctx context.Context,
	tenantID uuid.UUID,
	provider vaultDomain.Provider,
	cause error,
) {
	u.logger.Error("credential terminally failed",
		slog.String("tenant_id", tenantID.String()),
		slog.String("provider", string(provider)),
		slog.Any("error", cause),
	)

	if err := u.connectionRepo.SetStatus(
		ctx, tenantID, provider, vaultDomain.ConnectionStatusReconnectRequired,
	); err != nil {
		u.logger.Error("failed to set connection status",
			slog.String("tenant_id", tenantID.String()),
			slog.String("provider", string(provider)),
			slog.Any("error", err),
		)
	}

	payload := map[string]string{
		"tenant_id": tenantID.String(),
		"provider":  string(provider),
		"reason":    failureReason(cause),
	}
	if err := u.publisher.Publish(ctx, tenantID, EventTypeReconnectRequired, payload); err != nil {
		u.logger.Error("failed to publish reconnect notification",
			slog.String("tenant_id", tenantID.String()),
			slog.String("provider", string(provider)),
			slog.Any("error", err),
		)
	}
}

// failureReason maps a terminal error to its notification category.
func failureReason(err error) string {
	switch {
	case errors.Is(err, cryptoDomain.ErrDecryptionFailed):
		return "decryption_failed"
	case errors.Is(err, vaultDomain.ErrExpiredNoRefresh):
		return "expired_no_refresh"
	default:
		return "reauthorization_required"
	}
}
