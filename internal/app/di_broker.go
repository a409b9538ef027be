package app

import (
	"fmt"

	"github.com/opsportal/linkbroker/internal/http"
	"github.com/opsportal/linkbroker/internal/metrics"

	brokerHTTP "github.com/opsportal/linkbroker/internal/broker/http"
	brokerRepository "github.com/opsportal/linkbroker/internal/broker/repository"
	brokerService "github.com/opsportal/linkbroker/internal/broker/service"
	brokerUseCase "github.com/opsportal/linkbroker/internal/broker/usecase"
)

// TokenCodec returns the capability token codec.
func (c *Container) TokenCodec() brokerService.TokenCodec {
	c.tokenCodecInit.Do(func() {
		c.tokenCodec = brokerService.NewTokenCodec()
	})
	return c.tokenCodec
}

// ReferenceGenerator returns the ledger reference generator.
func (c *Container) ReferenceGenerator() brokerService.ReferenceGenerator {
	c.referencesInit.Do(func() {
		c.references = brokerService.NewReferenceGenerator()
	})
	return c.references
}

// LedgerRepository returns the redemption ledger repository instance.
func (c *Container) LedgerRepository() (brokerUseCase.LedgerRepository, error) {
	c.ledgerRepoInit.Do(func() {
		repo, err := c.initLedgerRepository()
		if err != nil {
			c.initErrors["ledgerRepo"] = err
			return
		}
		c.ledgerRepo = repo
	})
	if storedErr, exists := c.initErrors["ledgerRepo"]; exists {
		return nil, storedErr
	}
	return c.ledgerRepo, nil
}

// InviteRepository returns the invite batch repository instance.
func (c *Container) InviteRepository() (brokerUseCase.InviteRepository, error) {
	c.inviteRepoInit.Do(func() {
		repo, err := c.initInviteRepository()
		if err != nil {
			c.initErrors["inviteRepo"] = err
			return
		}
		c.inviteRepo = repo
	})
	if storedErr, exists := c.initErrors["inviteRepo"]; exists {
		return nil, storedErr
	}
	return c.inviteRepo, nil
}

// IssuerUseCase returns the link issuer use case instance.
func (c *Container) IssuerUseCase() (brokerUseCase.IssuerUseCase, error) {
	c.issuerUseCaseInit.Do(func() {
		useCase, err := c.initIssuerUseCase()
		if err != nil {
			c.initErrors["issuerUseCase"] = err
			return
		}
		c.issuerUseCase = useCase
	})
	if storedErr, exists := c.initErrors["issuerUseCase"]; exists {
		return nil, storedErr
	}
	return c.issuerUseCase, nil
}

// InviteUseCase returns the invite batch use case instance.
func (c *Container) InviteUseCase() (brokerUseCase.InviteUseCase, error) {
	c.inviteUseCaseInit.Do(func() {
		useCase, err := c.initInviteUseCase()
		if err != nil {
			c.initErrors["inviteUseCase"] = err
			return
		}
		c.inviteUseCase = useCase
	})
	if storedErr, exists := c.initErrors["inviteUseCase"]; exists {
		return nil, storedErr
	}
	return c.inviteUseCase, nil
}

// RedeemerUseCase returns the edge redeemer use case instance.
func (c *Container) RedeemerUseCase() (brokerUseCase.RedeemerUseCase, error) {
	c.redeemerUseCaseInit.Do(func() {
		useCase, err := c.initRedeemerUseCase()
		if err != nil {
			c.initErrors["redeemerUseCase"] = err
			return
		}
		c.redeemerUseCase = useCase
	})
	if storedErr, exists := c.initErrors["redeemerUseCase"]; exists {
		return nil, storedErr
	}
	return c.redeemerUseCase, nil
}

// HTTPServer returns the HTTP server instance with the full router assembled.
func (c *Container) HTTPServer() (*http.Server, error) {
	c.httpServerInit.Do(func() {
		server, err := c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
			return
		}
		c.httpServer = server
	})
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// initLedgerRepository creates the ledger repository instance.
func (c *Container) initLedgerRepository() (brokerUseCase.LedgerRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for ledger repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return brokerRepository.NewMySQLLedgerRepository(db), nil
	case "postgres":
		return brokerRepository.NewPostgreSQLLedgerRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initInviteRepository creates the invite batch repository instance.
func (c *Container) initInviteRepository() (brokerUseCase.InviteRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for invite repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return brokerRepository.NewMySQLInviteRepository(db), nil
	case "postgres":
		return brokerRepository.NewPostgreSQLInviteRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initIssuerUseCase creates the issuer use case with all its dependencies.
func (c *Container) initIssuerUseCase() (brokerUseCase.IssuerUseCase, error) {
	ledgerRepo, err := c.LedgerRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger repository for issuer use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for issuer use case: %w", err)
	}

	useCase := brokerUseCase.NewIssuerUseCase(
		c.config,
		ledgerRepo,
		c.TokenCodec(),
		c.ReferenceGenerator(),
		c.Notifier(),
		c.Logger(),
	)

	return brokerUseCase.NewIssuerUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initInviteUseCase creates the invite use case with all its dependencies.
func (c *Container) initInviteUseCase() (brokerUseCase.InviteUseCase, error) {
	issuer, err := c.IssuerUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get issuer use case for invite use case: %w", err)
	}

	inviteRepo, err := c.InviteRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get invite repository for invite use case: %w", err)
	}

	store, err := c.ObjectStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get object store for invite use case: %w", err)
	}

	return brokerUseCase.NewInviteUseCase(
		c.config,
		issuer,
		inviteRepo,
		c.ReferenceGenerator(),
		store,
		c.Notifier(),
		c.Logger(),
	), nil
}

// initRedeemerUseCase creates the redeemer use case with all its dependencies.
func (c *Container) initRedeemerUseCase() (brokerUseCase.RedeemerUseCase, error) {
	ledgerRepo, err := c.LedgerRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger repository for redeemer use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for redeemer use case: %w", err)
	}

	useCase := brokerUseCase.NewRedeemerUseCase(ledgerRepo, c.TokenCodec(), c.Logger())

	return brokerUseCase.NewRedeemerUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initHTTPServer creates the HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	issuerUseCase, err := c.IssuerUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get issuer use case for http server: %w", err)
	}

	inviteUseCase, err := c.InviteUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get invite use case for http server: %w", err)
	}

	redeemerUseCase, err := c.RedeemerUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get redeemer use case for http server: %w", err)
	}

	store, err := c.ObjectStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get object store for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)

	routerConfig := http.RouterConfig{
		Config:        c.config,
		LinkHandler:   brokerHTTP.NewLinkHandler(issuerUseCase, logger),
		InviteHandler: brokerHTTP.NewInviteHandler(inviteUseCase, logger),
		EdgeHandler:   brokerHTTP.NewEdgeHandler(redeemerUseCase, issuerUseCase, store, c.config, logger),
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}
	if provider != nil {
		routerConfig.MetricsMiddleware = metrics.HTTPMetricsMiddleware(
			provider.MeterProvider(),
			c.config.MetricsNamespace,
		)
	}

	server.SetupRouter(routerConfig)

	return server, nil
}
