package sweep

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// RefreshSweep renews access tokens before they expire so the reactive
// per-request path almost never has to refresh inline.
type RefreshSweep struct {
	finder       CredentialFinder
	orchestrator Orchestrator
	window       time.Duration
	limiter      *rate.Limiter
	logger       *slog.Logger
}

// NewRefreshSweep creates a RefreshSweep. window is how far ahead of expiry a
// token qualifies; perSecond paces the sequential tenant iteration.
func NewRefreshSweep(
	finder CredentialFinder,
	orchestrator Orchestrator,
	window time.Duration,
	perSecond float64,
	logger *slog.Logger,
) *RefreshSweep {
	return &RefreshSweep{
		finder:       finder,
		orchestrator: orchestrator,
		window:       window,
		limiter:      newLimiter(perSecond),
		logger:       logger,
	}
}

// Run executes one pass. Each identity is refreshed in isolation: an error is
// counted and logged, never propagated, so one tenant's dead credential
// cannot abort the rest of the sweep. Safe to run concurrently with the
// per-request path; the orchestrator serializes per identity.
func (s *RefreshSweep) Run(ctx context.Context) (*RefreshResult, error) {
	identities, err := s.finder.FindExpiring(ctx, s.window, "")
	if err != nil {
		return nil, err
	}

	result := &RefreshResult{}
	for _, identity := range identities {
		if err := s.limiter.Wait(ctx); err != nil {
			// Pass cancelled; whatever is left waits for the next cycle.
			result.Skipped = len(identities) - result.Refreshed - result.Failed
			break
		}

		if err := s.orchestrator.RefreshIdentity(ctx, identity); err != nil {
			result.Failed++
			s.logger.Warn("sweep refresh failed",
				slog.String("identity", identity.Key()),
				slog.Any("error", err),
			)
			continue
		}
		result.Refreshed++
	}

	s.logger.Info("refresh sweep finished",
		slog.Int("refreshed", result.Refreshed),
		slog.Int("failed", result.Failed),
		slog.Int("skipped", result.Skipped),
	)
	return result, nil
}
