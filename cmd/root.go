package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"rpcgolden/pkg/logging"
)

// rootFlags backs the root command, which runs the suite like `run`
var rootFlags = &suiteFlags{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rpcgolden",
	Short: "Golden-file regression tests for a JSON-RPC server",
	Long: `rpcgolden runs golden-file regression tests against a kore-rpc style
JSON-RPC server. Each case starts a fresh server, sends one request over TCP
and compares the response with the case's response.golden file.

Without a subcommand the whole suite runs, exactly like 'rpcgolden run'.`,
	Args: cobra.NoArgs,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. failed cases, missing fixtures)
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSuite(cmd, rootFlags)
	},
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "rpcgolden version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

// initLogging sends logs to stderr; stdout belongs to the report or to MCP.
func initLogging(cmd *cobra.Command) {
	logging.InitForCLI(logLevelFor(cmd), os.Stderr)
}

// logLevelFor reads --log-level and --debug from cmd. Commands without them
// log warnings and errors only.
func logLevelFor(cmd *cobra.Command) logging.LogLevel {
	if debug, err := cmd.Flags().GetBool("debug"); err == nil && debug {
		return logging.LevelDebug
	}
	if name, err := cmd.Flags().GetString("log-level"); err == nil {
		return logging.ParseLevel(name)
	}
	return logging.LevelWarn
}

func init() {
	registerSuiteFlags(rootCmd, rootFlags)

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newMCPServerCmd())
	rootCmd.AddCommand(newVersionCmd())
}
