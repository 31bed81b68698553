package config

import (
	"time"
)

const (
	DefaultServerBinary = "kore-rpc"
	DefaultModule       = "TEST"
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 31337

	DefaultCasesDir          = "execute"
	DefaultImpliesDir        = "implies"
	DefaultImpliesDefinition = "test-kompiled/definition.kore"
)

// GetDefaultConfig returns the configuration used when no file, environment
// variable or flag overrides a setting.
func GetDefaultConfig() RPCGoldenConfig {
	return RPCGoldenConfig{
		Server: ServerConfig{
			Binary:            DefaultServerBinary,
			Module:            DefaultModule,
			Host:              DefaultHost,
			Port:              DefaultPort,
			ReadyTimeout:      30 * time.Second,
			ReadTimeout:       2 * time.Minute,
			InitialBackoff:    10 * time.Millisecond,
			MaxBackoff:        time.Second,
			BackoffMultiplier: 2,
		},
		Cases: CasesConfig{
			Dir: DefaultCasesDir,
		},
		Implies: ImpliesConfig{
			Enabled:    false,
			Dir:        DefaultImpliesDir,
			Definition: DefaultImpliesDefinition,
		},
		Run: RunConfig{
			Parallel: 1,
		},
	}
}
