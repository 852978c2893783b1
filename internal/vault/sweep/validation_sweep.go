package sweep

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/connectkit/credvault/internal/errors"
	vaultDomain "github.com/connectkit/credvault/internal/vault/domain"
)

// ValidationSweep probes every connected rotation-model connection with a
// minimal-cost upstream call to catch revocations that happen silently
// between refreshes (tenant removed the app, admin rotated credentials).
type ValidationSweep struct {
	connections  ConnectionLister
	orchestrator Orchestrator
	providers    []vaultDomain.Provider
	limiter      *rate.Limiter
	logger       *slog.Logger
}

// NewValidationSweep creates a ValidationSweep over the given rotation-model
// providers.
func NewValidationSweep(
	connections ConnectionLister,
	orchestrator Orchestrator,
	providers []vaultDomain.Provider,
	perSecond float64,
	logger *slog.Logger,
) *ValidationSweep {
	return &ValidationSweep{
		connections:  connections,
		orchestrator: orchestrator,
		providers:    providers,
		limiter:      newLimiter(perSecond),
		logger:       logger,
	}
}

// Run executes one pass with the same isolation contract as the refresh
// sweep: probe failures are counted, never propagated.
func (s *ValidationSweep) Run(ctx context.Context) (*ValidationResult, error) {
	connected, err := s.connections.ListByStatus(
		ctx, vaultDomain.ConnectionStatusConnected, s.providers,
	)
	if err != nil {
		return nil, err
	}

	result := &ValidationResult{}
	for _, connection := range connected {
		if err := s.limiter.Wait(ctx); err != nil {
			break
		}

		identifier := ""
		if connection.Provider.IdentifierBearing() {
			identifier = connection.AccountID
		}

		result.Checked++
		err := s.orchestrator.ValidateConnection(
			ctx, connection.TenantID, connection.Provider, identifier,
		)
		switch {
		case err == nil:
		case errors.Is(err, vaultDomain.ErrReauthorizationRequired):
			// The orchestrator already marked the record and raised the
			// reconnect notification.
			result.Revoked++
		default:
			result.Failed++
			s.logger.Warn("validation probe failed",
				slog.String("tenant_id", connection.TenantID.String()),
				slog.String("provider", string(connection.Provider)),
				slog.Any("error", err),
			)
		}
	}

	s.logger.Info("validation sweep finished",
		slog.Int("checked", result.Checked),
		slog.Int("revoked", result.Revoked),
		slog.Int("failed", result.Failed),
	)
	return result, nil
}
