// Package usecase implements the notification outbox: events are written in
// the same transaction as the state change they announce and delivered by a
// background processor loop.
package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/connectkit/credvault/internal/database"
	apperrors "github.com/connectkit/credvault/internal/errors"
	"github.com/connectkit/credvault/internal/notification/domain"
)

// Config holds notification processor configuration.
type Config struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// EventRepository defines notification event repository operations.
type EventRepository interface {
	Create(ctx context.Context, event *domain.Event) error
	GetPendingEvents(ctx context.Context, limit int) ([]*domain.Event, error)
	Update(ctx context.Context, event *domain.Event) error
}

// EventProcessor delivers one event to its destination (queue, webhook,
// e-mail). The default deployment logs; real deployments plug their own.
type EventProcessor interface {
	Process(ctx context.Context, event *domain.Event) error
}

// NotificationUseCase writes events through the outbox and drives their
// delivery.
type NotificationUseCase struct {
	config         Config
	txManager      database.TxManager
	eventRepo      EventRepository
	eventProcessor EventProcessor
	logger         *slog.Logger
}

// NewNotificationUseCase creates a NotificationUseCase.
func NewNotificationUseCase(
	config Config,
	txManager database.TxManager,
	eventRepo EventRepository,
	eventProcessor EventProcessor,
	logger *slog.Logger,
) *NotificationUseCase {
	return &NotificationUseCase{
		config:         config,
		txManager:      txManager,
		eventRepo:      eventRepo,
		eventProcessor: eventProcessor,
		logger:         logger,
	}
}

// Publish enqueues a tenant-visible event. When called inside a transaction
// the event commits or rolls back with the caller's writes.
func (uc *NotificationUseCase) Publish(
	ctx context.Context,
	tenantID uuid.UUID,
	eventType string,
	payload map[string]string,
) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal event payload")
	}

	event := &domain.Event{
		ID:        uuid.Must(uuid.NewV7()),
		TenantID:  tenantID,
		EventType: eventType,
		Payload:   string(body),
		Status:    domain.EventStatusPending,
	}
	return uc.eventRepo.Create(ctx, event)
}

// Start runs the delivery loop until the context is cancelled.
func (uc *NotificationUseCase) Start(ctx context.Context) error {
	uc.logger.Info("starting notification processor",
		slog.Duration("interval", uc.config.Interval),
		slog.Int("batch_size", uc.config.BatchSize),
	)

	ticker := time.NewTicker(uc.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			uc.logger.Info("stopping notification processor")
			return ctx.Err()
		case <-ticker.C:
			if err := uc.ProcessEvents(ctx); err != nil {
				uc.logger.Error("failed to process events", slog.Any("error", err))
			}
		}
	}
}

// ProcessEvents delivers one batch of pending events in a transaction.
// A failing event is retried on later batches until MaxRetries, then parked
// as failed.
func (uc *NotificationUseCase) ProcessEvents(ctx context.Context) error {
	return uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		events, err := uc.eventRepo.GetPendingEvents(ctx, uc.config.BatchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		for _, event := range events {
			if err := uc.eventProcessor.Process(ctx, event); err != nil {
				uc.logger.Error("failed to deliver event",
					slog.String("event_id", event.ID.String()),
					slog.String("event_type", event.EventType),
					slog.Any("error", err),
				)

				event.Retries++
				errorMsg := err.Error()
				event.LastError = &errorMsg
				if event.Retries >= uc.config.MaxRetries {
					event.Status = domain.EventStatusFailed
				}

				if err := uc.eventRepo.Update(ctx, event); err != nil {
					return err
				}
				continue
			}

			now := time.Now().UTC()
			event.Status = domain.EventStatusProcessed
			event.ProcessedAt = &now

			if err := uc.eventRepo.Update(ctx, event); err != nil {
				return err
			}
		}

		return nil
	})
}

// LogProcessor is the default EventProcessor: it writes the event to the
// structured log. Deployments that deliver to a queue or webhook replace it.
type LogProcessor struct {
	logger *slog.Logger
}

// NewLogProcessor creates a LogProcessor.
func NewLogProcessor(logger *slog.Logger) *LogProcessor {
	return &LogProcessor{logger: logger}
}

// Process logs the event.
func (p *LogProcessor) Process(_ context.Context, event *domain.Event) error {
	p.logger.Info("notification event",
		slog.String("event_id", event.ID.String()),
		slog.String("tenant_id", event.TenantID.String()),
		slog.String("event_type", event.EventType),
		slog.String("payload", event.Payload),
	)
	return nil
}
