package app

import (
	"rpcgolden/internal/config"
	"rpcgolden/internal/fixture"
	"rpcgolden/internal/golden"
	"rpcgolden/internal/harness"
	"rpcgolden/internal/runner"
)

// Services holds the components a suite run is assembled from
type Services struct {
	Loader  fixture.Loader
	Manager harness.InstanceManager
	Ports   runner.PortAllocator
	Checker golden.Checker
	Options runner.Options
}

// InitializeServices creates the suite components described by cfg
func InitializeServices(cfg config.RPCGoldenConfig) *Services {
	settings := harness.Settings{
		Binary:       cfg.Server.Binary,
		Module:       cfg.Server.Module,
		Host:         cfg.Server.Host,
		ExtraArgs:    cfg.Server.ExtraArgs,
		ReadyTimeout: cfg.Server.ReadyTimeout,
		ReadTimeout:  cfg.Server.ReadTimeout,
		Backoff:      harness.ReadyBackoff(cfg.Server.InitialBackoff, cfg.Server.MaxBackoff, cfg.Server.BackoffMultiplier),
	}

	return &Services{
		Loader: fixture.Loader{
			ExecuteDir:        cfg.Cases.Dir,
			ImpliesEnabled:    cfg.Implies.Enabled,
			ImpliesDir:        cfg.Implies.Dir,
			ImpliesDefinition: cfg.Implies.Definition,
			Names:             cfg.Run.Cases,
		},
		Manager: harness.NewProcessManager(settings),
		Ports:   harness.NewPortPool(cfg.Server.Host, cfg.Server.Port),
		Checker: golden.NewChecker(golden.Policy{
			CreateMissing:  cfg.Golden.CreateMissing,
			RecreateBroken: cfg.Golden.RecreateBroken,
		}, cfg.Output.NoColor),
		Options: runner.Options{
			Parallel:    cfg.Run.Parallel,
			KeepGoing:   cfg.Run.KeepGoing,
			ReadTimeout: cfg.Server.ReadTimeout,
		},
	}
}

// NewRunner creates a runner over the services that reports to reporter
func (s *Services) NewRunner(reporter runner.Reporter) *runner.Runner {
	return runner.New(s.Manager, s.Ports, s.Checker, reporter, s.Options)
}
