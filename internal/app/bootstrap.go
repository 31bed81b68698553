package app

import (
	"context"
	"fmt"

	"rpcgolden/internal/config"
	"rpcgolden/internal/fixture"
	"rpcgolden/internal/runner"
	"rpcgolden/pkg/logging"
)

// Application wires a validated configuration to the suite services
type Application struct {
	config   config.RPCGoldenConfig
	services *Services
}

// NewApplication validates cfg and initializes the services it describes
func NewApplication(cfg config.RPCGoldenConfig) (*Application, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Application{
		config:   cfg,
		services: InitializeServices(cfg),
	}, nil
}

// Config returns the configuration the application was built from
func (a *Application) Config() config.RPCGoldenConfig {
	return a.config
}

// Services returns the suite components
func (a *Application) Services() *Services {
	return a.services
}

// ListCases loads and filters the cases without starting any server
func (a *Application) ListCases() ([]fixture.Case, error) {
	cases, err := a.services.Loader.Load()
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load cases")
		return nil, fmt.Errorf("failed to load cases: %w", err)
	}
	return cases, nil
}

// Run loads the cases and executes them, reporting to reporter. A fixture
// load error aborts before any server is started.
func (a *Application) Run(ctx context.Context, reporter runner.Reporter) (*runner.SuiteResult, error) {
	cases, err := a.ListCases()
	if err != nil {
		return nil, err
	}

	logging.Debug("Bootstrap", "Loaded %d case(s) from %s", len(cases), a.config.Cases.Dir)

	return a.services.NewRunner(reporter).Run(ctx, cases)
}
