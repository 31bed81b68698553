package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rpcgolden/internal/app"
	"rpcgolden/pkg/logging"
)

const runLong = `Run the golden cases against the RPC server.

Every case gets a fresh server process on its own port. The driver sends the
case request, kills the server and compares the response with the case's
response.golden file.

Golden file policies:
  --create-missing    write response.golden when a case has none
  --recreate-broken   overwrite response.golden when it does not match

Both policies can also be switched on with the CREATE_MISSING_GOLDEN and
RECREATE_BROKEN_GOLDEN environment variables (true, 1 or t).

By default the run stops at the first failing case. Use --keep-going to run
every case and get an aggregated summary. The exit code is 1 when any case
failed or errored.

Example usage:
  rpcgolden run                                 # Run every execute case
  rpcgolden run --case branching --case loop    # Run selected cases
  rpcgolden run --implies                       # Include the implies cases
  rpcgolden run --parallel=4 --keep-going       # Four servers at a time
  rpcgolden run --create-missing --no-color     # Bootstrap new golden files`

func newRunCmd() *cobra.Command {
	flags := &suiteFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the golden cases",
		Long:  runLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(cmd, flags)
		},
	}
	registerSuiteFlags(cmd, flags)
	return cmd
}

// registerSuiteFlags adds every flag a suite run accepts
func registerSuiteFlags(cmd *cobra.Command, flags *suiteFlags) {
	flags.registerCommon(cmd)
	flags.registerSelection(cmd)
	flags.registerServer(cmd)
	flags.registerRun(cmd)
	flags.registerOutput(cmd)
}

func runSuite(cmd *cobra.Command, flags *suiteFlags) error {
	cfg, err := flags.load(cmd)
	if err != nil {
		return err
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter := app.NewReporter(cfg.Output, cmd.OutOrStdout())
	result, err := application.Run(ctx, reporter)
	if err != nil {
		return err
	}

	if result.Interrupted {
		return fmt.Errorf("run interrupted: %w", context.Canceled)
	}
	if !result.Succeeded() {
		return fmt.Errorf("%d of %d case(s) did not pass", result.FailedCases+result.ErrorCases, result.TotalCases)
	}

	logging.Debug("CLI", "Run finished in %s", result.Duration)
	return nil
}
