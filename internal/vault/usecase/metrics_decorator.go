package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/connectkit/credvault/internal/metrics"
	vaultDomain "github.com/connectkit/credvault/internal/vault/domain"
)

// credentialUseCaseWithMetrics decorates CredentialUseCase with metrics
// instrumentation.
type credentialUseCaseWithMetrics struct {
	next    CredentialUseCase
	metrics metrics.BusinessMetrics
}

// NewCredentialUseCaseWithMetrics wraps a CredentialUseCase with metrics
// recording.
func NewCredentialUseCaseWithMetrics(
	useCase CredentialUseCase,
	m metrics.BusinessMetrics,
) CredentialUseCase {
	return &credentialUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (c *credentialUseCaseWithMetrics) record(
	ctx context.Context,
	operation string,
	start time.Time,
	err error,
) {
	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "vault", operation, status)
	c.metrics.RecordDuration(ctx, "vault", operation, time.Since(start), status)
}

// GetUsableCredential records metrics for credential retrieval operations.
func (c *credentialUseCaseWithMetrics) GetUsableCredential(
	ctx context.Context,
	tenantID uuid.UUID,
	provider vaultDomain.Provider,
	kind vaultDomain.Kind,
	identifier string,
) (*vaultDomain.PlaintextCredential, error) {
	start := time.Now()
	cred, err := c.next.GetUsableCredential(ctx, tenantID, provider, kind, identifier)
	c.record(ctx, "credential_get", start, err)
	return cred, err
}

// RunInSession records metrics for session-scoped work.
func (c *credentialUseCaseWithMetrics) RunInSession(
	ctx context.Context,
	tenantID uuid.UUID,
	provider vaultDomain.Provider,
	fn func(sessionID string) error,
) error {
	start := time.Now()
	err := c.next.RunInSession(ctx, tenantID, provider, fn)
	c.record(ctx, "session_run", start, err)
	return err
}

// StoreCredential records metrics for credential ingestion operations.
func (c *credentialUseCaseWithMetrics) StoreCredential(
	ctx context.Context,
	input *StoreCredentialInput,
) error {
	start := time.Now()
	err := c.next.StoreCredential(ctx, input)
	c.record(ctx, "credential_store", start, err)
	return err
}

// Disconnect records metrics for disconnect operations.
func (c *credentialUseCaseWithMetrics) Disconnect(
	ctx context.Context,
	tenantID uuid.UUID,
	provider vaultDomain.Provider,
) error {
	start := time.Now()
	err := c.next.Disconnect(ctx, tenantID, provider)
	c.record(ctx, "credential_disconnect", start, err)
	return err
}

// RefreshIdentity records metrics for sweep-driven refresh operations.
func (c *credentialUseCaseWithMetrics) RefreshIdentity(
	ctx context.Context,
	identity vaultDomain.Identity,
) error {
	start := time.Now()
	err := c.next.RefreshIdentity(ctx, identity)
	c.record(ctx, "credential_refresh", start, err)
	return err
}

// ValidateConnection records metrics for validation probe operations.
func (c *credentialUseCaseWithMetrics) ValidateConnection(
	ctx context.Context,
	tenantID uuid.UUID,
	provider vaultDomain.Provider,
	identifier string,
) error {
	start := time.Now()
	err := c.next.ValidateConnection(ctx, tenantID, provider, identifier)
	c.record(ctx, "connection_validate", start, err)
	return err
}

// ListConnections records metrics for connection listing operations.
func (c *credentialUseCaseWithMetrics) ListConnections(
	ctx context.Context,
	tenantID uuid.UUID,
	offset, limit int,
) ([]*vaultDomain.Connection, error) {
	start := time.Now()
	connections, err := c.next.ListConnections(ctx, tenantID, offset, limit)
	c.record(ctx, "connection_list", start, err)
	return connections, err
}
