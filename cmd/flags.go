package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"rpcgolden/internal/config"
)

// suiteFlags holds the command-line overrides for a configuration. A flag only
// replaces the configured value when it was set explicitly.
type suiteFlags struct {
	configPath string
	debug      bool
	logLevel   string

	casesDir          string
	implies           bool
	impliesDir        string
	impliesDefinition string
	cases             []string

	server       string
	module       string
	host         string
	port         int
	readyTimeout time.Duration
	readTimeout  time.Duration

	parallel       int
	keepGoing      bool
	createMissing  bool
	recreateBroken bool

	noColor bool
	verbose bool
	quiet   bool
	json    bool
	report  string
}

// registerCommon adds the flags every suite command accepts
func (f *suiteFlags) registerCommon(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to a configuration file (default: ./.rpcgolden.yaml if present)")
	cmd.Flags().BoolVar(&f.debug, "debug", false, "Enable debug logging and print server output for each case")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "warn", "Log level on stderr (debug, info, warn, error); --debug implies debug")
}

// registerSelection adds the flags that decide which cases are loaded
func (f *suiteFlags) registerSelection(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.casesDir, "cases-dir", config.DefaultCasesDir, "Directory holding one subdirectory per execute case")
	cmd.Flags().BoolVar(&f.implies, "implies", false, "Also run the implies cases")
	cmd.Flags().StringVar(&f.impliesDir, "implies-dir", config.DefaultImpliesDir, "Directory holding one subdirectory per implies case")
	cmd.Flags().StringVar(&f.impliesDefinition, "implies-definition", config.DefaultImpliesDefinition, "Definition shared by the implies cases")
	cmd.Flags().StringSliceVar(&f.cases, "case", nil, "Run only the named case (repeatable)")
}

// registerServer adds the flags that describe the server under test
func (f *suiteFlags) registerServer(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.server, "server", config.DefaultServerBinary, "Server executable to start for each case")
	cmd.Flags().StringVar(&f.module, "module", config.DefaultModule, "Main module passed to the server")
	cmd.Flags().StringVar(&f.host, "host", config.DefaultHost, "Address the server is dialled on")
	cmd.Flags().IntVar(&f.port, "port", config.DefaultPort, "Base server port; parallel cases count upwards from here")
	cmd.Flags().DurationVar(&f.readyTimeout, "ready-timeout", 30*time.Second, "How long to wait for a server to accept connections")
	cmd.Flags().DurationVar(&f.readTimeout, "read-timeout", 2*time.Minute, "How long to wait for a response")
}

// registerRun adds the scheduling and golden policy flags
func (f *suiteFlags) registerRun(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.parallel, "parallel", 1, "Number of cases to run concurrently")
	cmd.Flags().BoolVar(&f.keepGoing, "keep-going", false, "Run every case instead of stopping at the first failure")
	cmd.Flags().BoolVar(&f.createMissing, "create-missing", false, "Write golden files that do not exist yet (env: "+config.EnvCreateMissingGolden+")")
	cmd.Flags().BoolVar(&f.recreateBroken, "recreate-broken", false, "Overwrite golden files that do not match (env: "+config.EnvRecreateBrokenGolden+")")
}

// registerOutput adds the reporting flags
func (f *suiteFlags) registerOutput(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.noColor, "no-color", false, "Render diffs with text markers instead of colours (env: "+config.EnvNoColor+")")
	cmd.Flags().BoolVar(&f.verbose, "verbose", false, "Print case details and responses")
	cmd.Flags().BoolVar(&f.quiet, "quiet", false, "Only print failures and a one-line summary")
	cmd.Flags().BoolVar(&f.json, "json", false, "Print the suite result as JSON")
	cmd.Flags().StringVar(&f.report, "report", "", "Directory to save a detailed JSON report in")
	cmd.MarkFlagsMutuallyExclusive("quiet", "json")
	cmd.MarkFlagsMutuallyExclusive("quiet", "verbose")
}

// apply overlays the flags that were set on cmd onto cfg
func (f *suiteFlags) apply(cmd *cobra.Command, cfg *config.RPCGoldenConfig) {
	changed := cmd.Flags().Changed

	if changed("cases-dir") {
		cfg.Cases.Dir = f.casesDir
	}
	if changed("implies") {
		cfg.Implies.Enabled = f.implies
	}
	if changed("implies-dir") {
		cfg.Implies.Dir = f.impliesDir
	}
	if changed("implies-definition") {
		cfg.Implies.Definition = f.impliesDefinition
	}
	if changed("case") {
		cfg.Run.Cases = f.cases
	}

	if changed("server") {
		cfg.Server.Binary = f.server
	}
	if changed("module") {
		cfg.Server.Module = f.module
	}
	if changed("host") {
		cfg.Server.Host = f.host
	}
	if changed("port") {
		cfg.Server.Port = f.port
	}
	if changed("ready-timeout") {
		cfg.Server.ReadyTimeout = f.readyTimeout
	}
	if changed("read-timeout") {
		cfg.Server.ReadTimeout = f.readTimeout
	}

	if changed("parallel") {
		cfg.Run.Parallel = f.parallel
	}
	if changed("keep-going") {
		cfg.Run.KeepGoing = f.keepGoing
	}
	if changed("create-missing") {
		cfg.Golden.CreateMissing = f.createMissing
	}
	if changed("recreate-broken") {
		cfg.Golden.RecreateBroken = f.recreateBroken
	}

	if changed("debug") {
		cfg.Output.Debug = f.debug
	}
	if changed("no-color") {
		cfg.Output.NoColor = f.noColor
	}
	if changed("verbose") {
		cfg.Output.Verbose = f.verbose
	}
	if changed("quiet") {
		cfg.Output.Quiet = f.quiet
	}
	if changed("json") {
		cfg.Output.JSON = f.json
	}
	if changed("report") {
		cfg.Output.ReportPath = f.report
	}
}

// load builds the effective configuration: defaults, file, environment and
// then the flags set on cmd.
func (f *suiteFlags) load(cmd *cobra.Command) (config.RPCGoldenConfig, error) {
	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		return config.RPCGoldenConfig{}, err
	}
	f.apply(cmd, &cfg)
	return cfg, nil
}
