package sweep

import (
	"context"
	"log/slog"
	"time"
)

// RunnerConfig holds the intervals for the long-running sweep process.
type RunnerConfig struct {
	RefreshInterval    time.Duration
	ValidationInterval time.Duration
}

// Runner drives both sweeps on their intervals for the long-running sweeps
// command. Each pass runs to completion before the next tick is honored.
type Runner struct {
	config     RunnerConfig
	refresh    *RefreshSweep
	validation *ValidationSweep
	logger     *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(
	config RunnerConfig,
	refresh *RefreshSweep,
	validation *ValidationSweep,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		config:     config,
		refresh:    refresh,
		validation: validation,
		logger:     logger,
	}
}

// Start blocks, running sweeps until the context is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	r.logger.Info("starting sweep runner",
		slog.Duration("refresh_interval", r.config.RefreshInterval),
		slog.Duration("validation_interval", r.config.ValidationInterval),
	)

	refreshTicker := time.NewTicker(r.config.RefreshInterval)
	defer refreshTicker.Stop()
	validationTicker := time.NewTicker(r.config.ValidationInterval)
	defer validationTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping sweep runner")
			return ctx.Err()
		case <-refreshTicker.C:
			if _, err := r.refresh.Run(ctx); err != nil {
				r.logger.Error("refresh sweep failed", slog.Any("error", err))
			}
		case <-validationTicker.C:
			if _, err := r.validation.Run(ctx); err != nil {
				r.logger.Error("validation sweep failed", slog.Any("error", err))
			}
		}
	}
}
