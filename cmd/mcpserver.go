package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rpcgolden/internal/agent"
	"rpcgolden/pkg/logging"
)

func newMCPServerCmd() *cobra.Command {
	flags := &suiteFlags{}
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve the golden suite over MCP (stdio transport)",
		Long: `Run an MCP server on stdin and stdout that exposes the golden suite as tools:

  case_list         - List the cases and their golden file status
  case_run          - Run cases and return the suite result with diffs
  case_last_result  - Return the result of the most recent run

The flags set the configuration every tool call starts from. Logs go to
stderr so that stdout only carries the protocol.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logging.Info("CLI", "Starting rpcgolden MCP server (stdio transport)")
			if err := agent.NewServer(cfg, rootCmd.Version).Start(ctx); err != nil {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		},
	}
	flags.registerCommon(cmd)
	flags.registerSelection(cmd)
	flags.registerServer(cmd)
	flags.registerRun(cmd)
	return cmd
}
