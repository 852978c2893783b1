// Package sweep implements the two background maintenance passes over the
// vault: the proactive refresh of access tokens close to expiry and the daily
// probe that detects silently revoked connections. Both iterate tenants
// sequentially behind a shared rate limit and isolate per-tenant failures, so
// one broken connection never starves the rest of a cycle.
package sweep

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	vaultDomain "github.com/connectkit/credvault/internal/vault/domain"
)

// Orchestrator is the vault surface the sweeps drive.
type Orchestrator interface {
	RefreshIdentity(ctx context.Context, identity vaultDomain.Identity) error
	ValidateConnection(
		ctx context.Context,
		tenantID uuid.UUID,
		provider vaultDomain.Provider,
		identifier string,
	) error
}

// CredentialFinder locates credentials due for proactive refresh.
type CredentialFinder interface {
	FindExpiring(
		ctx context.Context,
		within time.Duration,
		provider vaultDomain.Provider,
	) ([]vaultDomain.Identity, error)
}

// ConnectionLister locates connections for the validation pass.
type ConnectionLister interface {
	ListByStatus(
		ctx context.Context,
		status vaultDomain.ConnectionStatus,
		providers []vaultDomain.Provider,
	) ([]*vaultDomain.Connection, error)
}

// RefreshResult summarizes one proactive refresh pass.
type RefreshResult struct {
	// Refreshed is how many identities were renewed.
	Refreshed int
	// Failed is how many renewals errored. Failures are counted, logged and
	// skipped; they never abort the pass.
	Failed int
	// Skipped is how many identities were passed over (cancelled pass or
	// non-refreshable model).
	Skipped int
}

// ValidationResult summarizes one validation pass.
type ValidationResult struct {
	// Checked is how many connections were probed.
	Checked int
	// Revoked is how many probes found the credential terminally dead.
	Revoked int
	// Failed is how many probes errored transiently.
	Failed int
}

// newLimiter builds the pacing limiter both sweeps share the shape of. The
// rate respects upstream per-client limits across all tenants together.
func newLimiter(perSecond float64) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}
