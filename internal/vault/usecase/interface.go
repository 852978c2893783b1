// Package usecase implements the credential lifecycle orchestrator: the
// single entry point business code uses to obtain usable credentials. It
// dispatches to the adapter matching the provider's credential model,
// serializes refreshes per identity, and owns the cross-cutting reaction to
// terminal failures (connection status, reconnect notification).
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	vaultDomain "github.com/connectkit/credvault/internal/vault/domain"
)

// CredentialRepository defines the credential persistence operations the
// orchestrator consumes.
type CredentialRepository interface {
	Put(
		ctx context.Context,
		identity vaultDomain.Identity,
		envelope string,
		expiresAt *time.Time,
	) (uuid.UUID, error)
	Get(ctx context.Context, identity vaultDomain.Identity) (*vaultDomain.CredentialRecord, error)
	MarkInvalid(ctx context.Context, id uuid.UUID, reason string) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context, tenantID uuid.UUID, provider vaultDomain.Provider) error
	FindExpiring(
		ctx context.Context,
		within time.Duration,
		provider vaultDomain.Provider,
	) ([]vaultDomain.Identity, error)
}

// ConnectionRepository defines the connection mirror operations the
// orchestrator consumes.
type ConnectionRepository interface {
	Upsert(ctx context.Context, connection *vaultDomain.Connection) error
	GetByTenantAndProvider(
		ctx context.Context,
		tenantID uuid.UUID,
		provider vaultDomain.Provider,
	) (*vaultDomain.Connection, error)
	ListByTenant(
		ctx context.Context,
		tenantID uuid.UUID,
		offset, limit int,
	) ([]*vaultDomain.Connection, error)
	SetStatus(
		ctx context.Context,
		tenantID uuid.UUID,
		provider vaultDomain.Provider,
		status vaultDomain.ConnectionStatus,
	) error
	Delete(ctx context.Context, tenantID uuid.UUID, provider vaultDomain.Provider) error
}

// OAuthAdapter is the rotation adapter surface the orchestrator dispatches to.
type OAuthAdapter interface {
	GetAccessToken(
		ctx context.Context,
		tenantID uuid.UUID,
		identifier string,
		buffer time.Duration,
	) (*vaultDomain.PlaintextCredential, error)
	Refresh(
		ctx context.Context,
		tenantID uuid.UUID,
		identifier string,
	) (*vaultDomain.PlaintextCredential, error)
	Probe(ctx context.Context, tenantID uuid.UUID, identifier string) error
}

// ReissuableAdapter is the reissuable-token adapter surface.
type ReissuableAdapter interface {
	GetToken(ctx context.Context, tenantID uuid.UUID) (*vaultDomain.PlaintextCredential, error)
}

// SessionRunner runs one unit of work inside a provider session. The factory
// indirection exists because session adapters are single-use: each call gets
// a fresh instance and the session is released on every exit path.
type SessionRunner interface {
	WithSession(ctx context.Context, tenantID uuid.UUID, fn func(sessionID string) error) error
}

// NotificationPublisher emits tenant-visible lifecycle events. Payloads carry
// failure categories only, never upstream error bodies or secret material.
type NotificationPublisher interface {
	Publish(ctx context.Context, tenantID uuid.UUID, eventType string, payload map[string]string) error
}

// CredentialUseCase defines the exported surface of the vault. Business code
// sees nothing below this interface.
type CredentialUseCase interface {
	// GetUsableCredential returns a credential ready for use against the
	// provider, refreshing it first when needed. Session-model providers are
	// excluded; their sessions are scoped to one unit of work via RunInSession.
	GetUsableCredential(
		ctx context.Context,
		tenantID uuid.UUID,
		provider vaultDomain.Provider,
		kind vaultDomain.Kind,
		identifier string,
	) (*vaultDomain.PlaintextCredential, error)

	// RunInSession executes fn inside a provider session for session-model
	// providers, guaranteeing release of the session on all exit paths.
	RunInSession(
		ctx context.Context,
		tenantID uuid.UUID,
		provider vaultDomain.Provider,
		fn func(sessionID string) error,
	) error

	// StoreCredential ingests a credential for the first time (OAuth callback
	// payloads, manually entered API credentials) and marks the connection
	// connected.
	StoreCredential(ctx context.Context, input *StoreCredentialInput) error

	// Disconnect hard-deletes every secret the tenant holds for the provider
	// and marks the connection disconnected.
	Disconnect(ctx context.Context, tenantID uuid.UUID, provider vaultDomain.Provider) error

	// RefreshIdentity renews one credential, used by the proactive sweep.
	RefreshIdentity(ctx context.Context, identity vaultDomain.Identity) error

	// ValidateConnection probes the provider with a minimal-cost call to
	// detect silent revocation, used by the daily validation sweep.
	ValidateConnection(
		ctx context.Context,
		tenantID uuid.UUID,
		provider vaultDomain.Provider,
		identifier string,
	) error

	// ListConnections returns the tenant's non-secret connection mirrors.
	ListConnections(
		ctx context.Context,
		tenantID uuid.UUID,
		offset, limit int,
	) ([]*vaultDomain.Connection, error)
}
