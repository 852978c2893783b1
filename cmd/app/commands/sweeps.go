package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/connectkit/credvault/internal/app"
	"github.com/connectkit/credvault/internal/config"
)

// RunSweeps starts the background worker process: the refresh and validation
// sweeps on their intervals plus the notification outbox processor. Blocks
// until receiving SIGINT/SIGTERM or encountering a fatal error.
func RunSweeps(ctx context.Context, version string) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("starting sweeps", slog.String("version", version))

	defer closeContainer(container, logger)

	runner, err := container.SweepRunner()
	if err != nil {
		return fmt.Errorf("failed to initialize sweep runner: %w", err)
	}

	notificationUseCase, err := container.NotificationUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize notification use case: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	workerErr := make(chan error, 2)
	go func() {
		if err := runner.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			workerErr <- fmt.Errorf("sweep runner error: %w", err)
		}
	}()
	go func() {
		if err := notificationUseCase.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			workerErr <- fmt.Errorf("notification processor error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		return nil
	case err := <-workerErr:
		logger.Error("worker error", slog.Any("error", err))
		return err
	}
}
