package config

import (
	"time"
)

// RPCGoldenConfig is the top-level configuration structure for rpcgolden.
type RPCGoldenConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Cases   CasesConfig   `yaml:"cases"`
	Implies ImpliesConfig `yaml:"implies"`
	Golden  GoldenConfig  `yaml:"golden"`
	Run     RunConfig     `yaml:"run"`
	Output  OutputConfig  `yaml:"output"`
}

// ServerConfig describes how the RPC server under test is launched and reached.
type ServerConfig struct {
	Binary    string   `yaml:"binary,omitempty"`    // Server executable, e.g. "kore-rpc"
	Module    string   `yaml:"module,omitempty"`    // Value passed to --module
	Host      string   `yaml:"host,omitempty"`      // Address the driver dials
	Port      int      `yaml:"port,omitempty"`      // Base port; parallel workers count upwards from here
	ExtraArgs []string `yaml:"extraArgs,omitempty"` // Appended after the standard arguments

	ReadyTimeout      time.Duration `yaml:"readyTimeout,omitempty"`
	ReadTimeout       time.Duration `yaml:"readTimeout,omitempty"`
	InitialBackoff    time.Duration `yaml:"initialBackoff,omitempty"`
	MaxBackoff        time.Duration `yaml:"maxBackoff,omitempty"`
	BackoffMultiplier float64       `yaml:"backoffMultiplier,omitempty"`
}

// CasesConfig locates the execute fixtures.
type CasesConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// ImpliesConfig locates the implies fixtures. They only run when Enabled is set.
type ImpliesConfig struct {
	Enabled    bool   `yaml:"enabled,omitempty"`
	Dir        string `yaml:"dir,omitempty"`
	Definition string `yaml:"definition,omitempty"` // Shared definition for every implies case
}

// GoldenConfig holds the golden file write policies.
type GoldenConfig struct {
	CreateMissing  bool `yaml:"createMissing,omitempty"`
	RecreateBroken bool `yaml:"recreateBroken,omitempty"`
}

// RunConfig controls case selection and scheduling.
type RunConfig struct {
	Parallel  int      `yaml:"parallel,omitempty"`
	KeepGoing bool     `yaml:"keepGoing,omitempty"` // Run every case instead of stopping at the first failure
	Cases     []string `yaml:"cases,omitempty"`     // Case name filter; empty means all
}

// OutputConfig controls reporting.
type OutputConfig struct {
	Verbose    bool   `yaml:"verbose,omitempty"`
	Debug      bool   `yaml:"debug,omitempty"`
	Quiet      bool   `yaml:"quiet,omitempty"`
	JSON       bool   `yaml:"json,omitempty"`
	NoColor    bool   `yaml:"noColor,omitempty"`
	ReportPath string `yaml:"reportPath,omitempty"` // Directory for the detailed JSON report
}
