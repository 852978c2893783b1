package app

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/connectkit/credvault/internal/http"
	"github.com/connectkit/credvault/internal/metrics"
	"github.com/connectkit/credvault/internal/vault/adapter"
	vaultDomain "github.com/connectkit/credvault/internal/vault/domain"
	vaultHTTP "github.com/connectkit/credvault/internal/vault/http"
	"github.com/connectkit/credvault/internal/vault/provider"
	vaultRepository "github.com/connectkit/credvault/internal/vault/repository"
	"github.com/connectkit/credvault/internal/vault/sweep"
	vaultUsecase "github.com/connectkit/credvault/internal/vault/usecase"
)

// CredentialRepository returns the credential repository based on the
// database driver.
func (c *Container) CredentialRepository() (vaultUsecase.CredentialRepository, error) {
	c.credentialRepoInit.Do(func() {
		repo, err := c.initCredentialRepository()
		if err != nil {
			c.initErrors["credentialRepo"] = err
			return
		}
		c.credentialRepo = repo
	})
	if storedErr, exists := c.initErrors["credentialRepo"]; exists {
		return nil, storedErr
	}
	return c.credentialRepo, nil
}

// ConnectionRepository returns the connection repository based on the
// database driver.
func (c *Container) ConnectionRepository() (vaultUsecase.ConnectionRepository, error) {
	c.connectionRepoInit.Do(func() {
		if err := c.initConnectionRepository(); err != nil {
			c.initErrors["connectionRepo"] = err
		}
	})
	if storedErr, exists := c.initErrors["connectionRepo"]; exists {
		return nil, storedErr
	}
	return c.connectionRepo, nil
}

// ConnectionLister returns the connection listing surface the validation
// sweep iterates.
func (c *Container) ConnectionLister() (sweep.ConnectionLister, error) {
	if _, err := c.ConnectionRepository(); err != nil {
		return nil, err
	}
	return c.connectionLister, nil
}

// CredentialUseCase returns the credential lifecycle orchestrator with all
// provider adapters wired.
func (c *Container) CredentialUseCase() (vaultUsecase.CredentialUseCase, error) {
	c.credentialUseCaseInit.Do(func() {
		useCase, err := c.initCredentialUseCase()
		if err != nil {
			c.initErrors["credentialUseCase"] = err
			return
		}
		c.credentialUseCase = useCase
	})
	if storedErr, exists := c.initErrors["credentialUseCase"]; exists {
		return nil, storedErr
	}
	return c.credentialUseCase, nil
}

// RefreshSweep returns the proactive refresh sweep.
func (c *Container) RefreshSweep() (*sweep.RefreshSweep, error) {
	c.refreshSweepInit.Do(func() {
		s, err := c.initRefreshSweep()
		if err != nil {
			c.initErrors["refreshSweep"] = err
			return
		}
		c.refreshSweep = s
	})
	if storedErr, exists := c.initErrors["refreshSweep"]; exists {
		return nil, storedErr
	}
	return c.refreshSweep, nil
}

// ValidationSweep returns the connection validation sweep.
func (c *Container) ValidationSweep() (*sweep.ValidationSweep, error) {
	c.validationSweepInit.Do(func() {
		s, err := c.initValidationSweep()
		if err != nil {
			c.initErrors["validationSweep"] = err
			return
		}
		c.validationSweep = s
	})
	if storedErr, exists := c.initErrors["validationSweep"]; exists {
		return nil, storedErr
	}
	return c.validationSweep, nil
}

// SweepRunner returns the long-running runner driving both sweeps.
func (c *Container) SweepRunner() (*sweep.Runner, error) {
	c.sweepRunnerInit.Do(func() {
		refresh, err := c.RefreshSweep()
		if err != nil {
			c.initErrors["sweepRunner"] = err
			return
		}
		validation, err := c.ValidationSweep()
		if err != nil {
			c.initErrors["sweepRunner"] = err
			return
		}
		c.sweepRunner = sweep.NewRunner(
			sweep.RunnerConfig{
				RefreshInterval:    c.config.RefreshSweepInterval,
				ValidationInterval: c.config.ValidationSweepInterval,
			},
			refresh,
			validation,
			c.Logger(),
		)
	})
	if storedErr, exists := c.initErrors["sweepRunner"]; exists {
		return nil, storedErr
	}
	return c.sweepRunner, nil
}

// initCredentialRepository creates the credential repository instance.
func (c *Container) initCredentialRepository() (vaultUsecase.CredentialRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for credential repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return vaultRepository.NewMySQLCredentialRepository(db, c.Logger()), nil
	case "postgres":
		return vaultRepository.NewPostgreSQLCredentialRepository(db, c.Logger()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initConnectionRepository creates the connection repository instance. The
// same instance serves both the orchestrator and the validation sweep.
func (c *Container) initConnectionRepository() error {
	db, err := c.DB()
	if err != nil {
		return fmt.Errorf("failed to get database for connection repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		repo := vaultRepository.NewMySQLConnectionRepository(db)
		c.connectionRepo = repo
		c.connectionLister = repo
	case "postgres":
		repo := vaultRepository.NewPostgreSQLConnectionRepository(db)
		c.connectionRepo = repo
		c.connectionLister = repo
	default:
		return fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}

	return nil
}

// initCredentialUseCase assembles the orchestrator: repositories, cipher,
// provider clients, one adapter per provider keyed by credential model, and
// the notification publisher.
func (c *Container) initCredentialUseCase() (vaultUsecase.CredentialUseCase, error) {
	logger := c.Logger()

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for credential use case: %w", err)
	}

	credentialRepo, err := c.CredentialRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get credential repository for credential use case: %w", err)
	}

	connectionRepo, err := c.ConnectionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection repository for credential use case: %w", err)
	}

	cipher, err := c.Cipher()
	if err != nil {
		return nil, fmt.Errorf("failed to get cipher for credential use case: %w", err)
	}

	notificationUseCase, err := c.NotificationUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get notification use case for credential use case: %w", err)
	}

	clientConfig := provider.ClientConfig{
		Timeout:  c.config.ProviderHTTPTimeout,
		RetryMax: c.config.ProviderHTTPRetryMax,
	}

	googleClient := provider.NewGoogleOAuthClient(
		c.config.GoogleTokenURL,
		c.config.GoogleProbeURL,
		c.config.GoogleClientID,
		c.config.GoogleClientSecret,
		clientConfig,
	)
	whatsappClient := provider.NewWhatsAppOAuthClient(
		c.config.WhatsAppTokenURL,
		c.config.WhatsAppProbeURL,
		c.config.WhatsAppAppID,
		c.config.WhatsAppAppSecret,
		clientConfig,
	)
	greeninvoiceIssuer := provider.NewGreeninvoiceTokenIssuer(
		c.config.GreeninvoiceTokenURL,
		clientConfig,
	)
	icountClient := provider.NewICountSessionClient(c.config.ICountBaseURL, clientConfig)

	oauthAdapters := map[vaultDomain.Provider]vaultUsecase.OAuthAdapter{
		vaultDomain.ProviderGoogle: adapter.NewOAuthRotationAdapter(
			vaultDomain.ProviderGoogle, credentialRepo, cipher, googleClient, logger,
		),
		vaultDomain.ProviderWhatsApp: adapter.NewOAuthRotationAdapter(
			vaultDomain.ProviderWhatsApp, credentialRepo, cipher, whatsappClient, logger,
		),
	}

	greeninvoiceAdapter := adapter.NewReissuableTokenAdapter(
		vaultDomain.ProviderGreeninvoice,
		credentialRepo,
		cipher,
		greeninvoiceIssuer,
		adapter.NewTokenCache(),
		logger,
	)
	greeninvoiceAdapter.SetReissueBuffer(c.config.ReissueBuffer)
	reissuableAdapters := map[vaultDomain.Provider]vaultUsecase.ReissuableAdapter{
		vaultDomain.ProviderGreeninvoice: greeninvoiceAdapter,
	}

	sessionRunners := map[vaultDomain.Provider]vaultUsecase.SessionRunner{
		vaultDomain.ProviderICount: adapter.NewSessionFactory(
			vaultDomain.ProviderICount, credentialRepo, cipher, icountClient, logger,
		),
	}

	useCase := vaultUsecase.NewCredentialUseCase(
		vaultUsecase.Config{
			RefreshBuffer:    c.config.RefreshBuffer,
			SingleFlightWait: c.config.SingleFlightWait,
		},
		txManager,
		credentialRepo,
		connectionRepo,
		cipher,
		oauthAdapters,
		reissuableAdapters,
		sessionRunners,
		notificationUseCase,
		logger,
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for credential use case: %w", err)
		}
		useCase = vaultUsecase.NewCredentialUseCaseWithMetrics(useCase, businessMetrics)
	}

	return useCase, nil
}

// initRefreshSweep creates the proactive refresh sweep.
func (c *Container) initRefreshSweep() (*sweep.RefreshSweep, error) {
	credentialRepo, err := c.CredentialRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get credential repository for refresh sweep: %w", err)
	}

	useCase, err := c.CredentialUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get credential use case for refresh sweep: %w", err)
	}

	return sweep.NewRefreshSweep(
		credentialRepo,
		useCase,
		c.config.RefreshSweepWindow,
		c.config.SweepRatePerSec,
		c.Logger(),
	), nil
}

// initValidationSweep creates the connection validation sweep. Only providers
// with a probe endpoint participate.
func (c *Container) initValidationSweep() (*sweep.ValidationSweep, error) {
	connectionLister, err := c.ConnectionLister()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection lister for validation sweep: %w", err)
	}

	useCase, err := c.CredentialUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get credential use case for validation sweep: %w", err)
	}

	probeProviders := []vaultDomain.Provider{
		vaultDomain.ProviderGoogle,
		vaultDomain.ProviderWhatsApp,
	}

	return sweep.NewValidationSweep(
		connectionLister,
		useCase,
		probeProviders,
		c.config.SweepRatePerSec,
		c.Logger(),
	), nil
}

// initHTTPServer creates the connections API server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	useCase, err := c.CredentialUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get credential use case for http server: %w", err)
	}

	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	var metricsMiddleware gin.HandlerFunc
	if metricsProvider != nil {
		metricsMiddleware = metrics.HTTPMetricsMiddleware(
			metricsProvider.MeterProvider(),
			c.config.MetricsNamespace,
		)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)
	server.SetupRouter(
		vaultHTTP.NewConnectionHandler(useCase, logger),
		c.config.CORSEnabled,
		c.config.CORSAllowOrigins,
		metricsMiddleware,
	)

	return server, nil
}
