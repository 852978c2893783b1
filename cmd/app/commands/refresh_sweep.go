package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/connectkit/credvault/internal/vault/sweep"
)

// refreshRunner is the sweep surface the one-shot command needs.
type refreshRunner interface {
	Run(ctx context.Context) (*sweep.RefreshResult, error)
}

// RunRefreshSweep executes a single proactive refresh pass and reports the
// counts. Supports text and JSON output formats.
//
// Requirements: Database must be migrated and accessible.
func RunRefreshSweep(
	ctx context.Context,
	sweeper refreshRunner,
	logger *slog.Logger,
	w io.Writer,
	format string,
) error {
	logger.Info("running refresh sweep")

	result, err := sweeper.Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to run refresh sweep: %w", err)
	}

	if format == "json" {
		outputJSON(w, map[string]any{
			"refreshed": result.Refreshed,
			"failed":    result.Failed,
			"skipped":   result.Skipped,
		})
	} else {
		fmt.Fprintf(
			w,
			"Refresh sweep completed: %d refreshed, %d failed, %d skipped\n",
			result.Refreshed, result.Failed, result.Skipped,
		)
	}

	logger.Info("refresh sweep completed",
		slog.Int("refreshed", result.Refreshed),
		slog.Int("failed", result.Failed),
		slog.Int("skipped", result.Skipped),
	)

	return nil
}

// outputJSON writes the result in JSON format for machine consumption.
func outputJSON(w io.Writer, result map[string]any) {
	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "failed to marshal JSON: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(jsonBytes))
}
