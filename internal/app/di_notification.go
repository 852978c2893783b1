package app

import (
	"fmt"

	notificationRepository "github.com/connectkit/credvault/internal/notification/repository"
	notificationUsecase "github.com/connectkit/credvault/internal/notification/usecase"
)

// EventRepository returns the notification event repository based on the
// database driver.
func (c *Container) EventRepository() (notificationUsecase.EventRepository, error) {
	c.eventRepoInit.Do(func() {
		repo, err := c.initEventRepository()
		if err != nil {
			c.initErrors["eventRepo"] = err
			return
		}
		c.eventRepo = repo
	})
	if storedErr, exists := c.initErrors["eventRepo"]; exists {
		return nil, storedErr
	}
	return c.eventRepo, nil
}

// NotificationUseCase returns the notification outbox use case.
func (c *Container) NotificationUseCase() (*notificationUsecase.NotificationUseCase, error) {
	c.notificationUseCaseInit.Do(func() {
		useCase, err := c.initNotificationUseCase()
		if err != nil {
			c.initErrors["notificationUseCase"] = err
			return
		}
		c.notificationUseCase = useCase
	})
	if storedErr, exists := c.initErrors["notificationUseCase"]; exists {
		return nil, storedErr
	}
	return c.notificationUseCase, nil
}

// initEventRepository creates the event repository instance.
func (c *Container) initEventRepository() (notificationUsecase.EventRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for event repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return notificationRepository.NewMySQLEventRepository(db), nil
	case "postgres":
		return notificationRepository.NewPostgreSQLEventRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initNotificationUseCase creates the notification use case instance.
func (c *Container) initNotificationUseCase() (*notificationUsecase.NotificationUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for notification use case: %w", err)
	}

	eventRepo, err := c.EventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get event repository for notification use case: %w", err)
	}

	logger := c.Logger()

	return notificationUsecase.NewNotificationUseCase(
		notificationUsecase.Config{
			Interval:   c.config.NotificationInterval,
			BatchSize:  c.config.NotificationBatchSize,
			MaxRetries: c.config.NotificationMaxRetries,
		},
		txManager,
		eventRepo,
		notificationUsecase.NewLogProcessor(logger),
		logger,
	), nil
}
