package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osGetwd = os.Getwd
var lookupEnv = os.LookupEnv

const (
	projectConfigFileName = ".rpcgolden.yaml"

	EnvCreateMissingGolden  = "CREATE_MISSING_GOLDEN"
	EnvRecreateBrokenGolden = "RECREATE_BROKEN_GOLDEN"
	EnvNoColor              = "NO_COLOR"
)

// LoadConfig loads the rpcgolden configuration by layering the defaults, a
// project file and the environment. When explicitPath is set that file must
// exist; otherwise ./.rpcgolden.yaml is used if present.
func LoadConfig(explicitPath string) (RPCGoldenConfig, error) {
	// 1. Start with the default configuration
	config := GetDefaultConfig()

	// 2. Overlay the project file
	if explicitPath != "" {
		fileConfig, err := loadConfigFromFile(explicitPath)
		if err != nil {
			return RPCGoldenConfig{}, fmt.Errorf("error loading config from %s: %w", explicitPath, err)
		}
		config = mergeConfigs(config, fileConfig)
	} else {
		projectConfigPath, err := getProjectConfigPath()
		if err != nil {
			// Project config is optional
			fmt.Fprintf(os.Stderr, "Warning: Could not determine project config path: %v\n", err)
		} else if _, err := os.Stat(projectConfigPath); err == nil {
			fileConfig, err := loadConfigFromFile(projectConfigPath)
			if err != nil {
				return RPCGoldenConfig{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
			}
			config = mergeConfigs(config, fileConfig)
		}
	}

	// 3. Overlay the environment
	applyEnvironment(&config)

	return config, nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigFileName), nil
}

// loadConfigFromFile loads an RPCGoldenConfig from a YAML file.
func loadConfigFromFile(filePath string) (RPCGoldenConfig, error) {
	var config RPCGoldenConfig
	data, err := os.ReadFile(filePath)
	if err != nil {
		return RPCGoldenConfig{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return RPCGoldenConfig{}, err
	}
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config. Zero values in the
// overlay leave the base untouched; booleans can only be switched on.
func mergeConfigs(base, overlay RPCGoldenConfig) RPCGoldenConfig {
	merged := base

	// Server
	if overlay.Server.Binary != "" {
		merged.Server.Binary = overlay.Server.Binary
	}
	if overlay.Server.Module != "" {
		merged.Server.Module = overlay.Server.Module
	}
	if overlay.Server.Host != "" {
		merged.Server.Host = overlay.Server.Host
	}
	if overlay.Server.Port != 0 {
		merged.Server.Port = overlay.Server.Port
	}
	if len(overlay.Server.ExtraArgs) > 0 {
		merged.Server.ExtraArgs = append([]string(nil), overlay.Server.ExtraArgs...)
	}
	if overlay.Server.ReadyTimeout != 0 {
		merged.Server.ReadyTimeout = overlay.Server.ReadyTimeout
	}
	if overlay.Server.ReadTimeout != 0 {
		merged.Server.ReadTimeout = overlay.Server.ReadTimeout
	}
	if overlay.Server.InitialBackoff != 0 {
		merged.Server.InitialBackoff = overlay.Server.InitialBackoff
	}
	if overlay.Server.MaxBackoff != 0 {
		merged.Server.MaxBackoff = overlay.Server.MaxBackoff
	}
	if overlay.Server.BackoffMultiplier != 0 {
		merged.Server.BackoffMultiplier = overlay.Server.BackoffMultiplier
	}

	// Cases
	if overlay.Cases.Dir != "" {
		merged.Cases.Dir = overlay.Cases.Dir
	}

	// Implies
	merged.Implies.Enabled = merged.Implies.Enabled || overlay.Implies.Enabled
	if overlay.Implies.Dir != "" {
		merged.Implies.Dir = overlay.Implies.Dir
	}
	if overlay.Implies.Definition != "" {
		merged.Implies.Definition = overlay.Implies.Definition
	}

	// Golden
	merged.Golden.CreateMissing = merged.Golden.CreateMissing || overlay.Golden.CreateMissing
	merged.Golden.RecreateBroken = merged.Golden.RecreateBroken || overlay.Golden.RecreateBroken

	// Run
	if overlay.Run.Parallel != 0 {
		merged.Run.Parallel = overlay.Run.Parallel
	}
	merged.Run.KeepGoing = merged.Run.KeepGoing || overlay.Run.KeepGoing
	if len(overlay.Run.Cases) > 0 {
		merged.Run.Cases = append([]string(nil), overlay.Run.Cases...)
	}

	// Output
	merged.Output.Verbose = merged.Output.Verbose || overlay.Output.Verbose
	merged.Output.Debug = merged.Output.Debug || overlay.Output.Debug
	merged.Output.Quiet = merged.Output.Quiet || overlay.Output.Quiet
	merged.Output.JSON = merged.Output.JSON || overlay.Output.JSON
	merged.Output.NoColor = merged.Output.NoColor || overlay.Output.NoColor
	if overlay.Output.ReportPath != "" {
		merged.Output.ReportPath = overlay.Output.ReportPath
	}

	return merged
}

// applyEnvironment overlays the golden policy and colour variables. A set
// policy variable wins over the file in both directions.
func applyEnvironment(config *RPCGoldenConfig) {
	if v, ok := lookupEnv(EnvCreateMissingGolden); ok {
		config.Golden.CreateMissing = IsTruthy(v)
	}
	if v, ok := lookupEnv(EnvRecreateBrokenGolden); ok {
		config.Golden.RecreateBroken = IsTruthy(v)
	}
	if v, ok := lookupEnv(EnvNoColor); ok && v != "" {
		config.Output.NoColor = true
	}
}

// IsTruthy reports whether v is one of "true", "1" or "t", ignoring case.
func IsTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "true", "1", "t":
		return true
	default:
		return false
	}
}

// Validate checks that the configuration can drive a run.
func Validate(config RPCGoldenConfig) error {
	if config.Server.Binary == "" {
		return fmt.Errorf("server binary must be set")
	}
	if config.Server.Host == "" {
		return fmt.Errorf("server host must be set")
	}
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", config.Server.Port)
	}
	if config.Server.ReadyTimeout <= 0 {
		return fmt.Errorf("ready timeout must be positive")
	}
	if config.Server.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if config.Server.InitialBackoff <= 0 {
		return fmt.Errorf("initial backoff must be positive")
	}
	if config.Server.MaxBackoff < config.Server.InitialBackoff {
		return fmt.Errorf("max backoff must not be smaller than initial backoff")
	}
	if config.Server.BackoffMultiplier < 1 {
		return fmt.Errorf("backoff multiplier must be at least 1, got %v", config.Server.BackoffMultiplier)
	}
	if config.Cases.Dir == "" {
		return fmt.Errorf("cases directory must be set")
	}
	if config.Implies.Enabled && (config.Implies.Dir == "" || config.Implies.Definition == "") {
		return fmt.Errorf("implies cases need both a directory and a definition")
	}
	if config.Run.Parallel < 1 || config.Run.Parallel > 64 {
		return fmt.Errorf("parallel workers must be between 1 and 64, got %d", config.Run.Parallel)
	}
	if config.Server.Port+config.Run.Parallel-1 > 65535 {
		return fmt.Errorf("port range %d+%d exceeds 65535", config.Server.Port, config.Run.Parallel)
	}
	return nil
}
