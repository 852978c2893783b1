package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/connectkit/credvault/internal/vault/sweep"
)

// validationRunner is the sweep surface the one-shot command needs.
type validationRunner interface {
	Run(ctx context.Context) (*sweep.ValidationResult, error)
}

// RunValidationSweep executes a single connection validation pass and reports
// the counts. Supports text and JSON output formats.
//
// Requirements: Database must be migrated and accessible.
func RunValidationSweep(
	ctx context.Context,
	sweeper validationRunner,
	logger *slog.Logger,
	w io.Writer,
	format string,
) error {
	logger.Info("running validation sweep")

	result, err := sweeper.Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to run validation sweep: %w", err)
	}

	if format == "json" {
		outputJSON(w, map[string]any{
			"checked": result.Checked,
			"revoked": result.Revoked,
			"failed":  result.Failed,
		})
	} else {
		fmt.Fprintf(
			w,
			"Validation sweep completed: %d checked, %d revoked, %d failed\n",
			result.Checked, result.Revoked, result.Failed,
		)
	}

	logger.Info("validation sweep completed",
		slog.Int("checked", result.Checked),
		slog.Int("revoked", result.Revoked),
		slog.Int("failed", result.Failed),
	)

	return nil
}
