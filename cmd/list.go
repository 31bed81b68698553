package cmd

import (
	"fmt"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"rpcgolden/internal/app"
)

func newListCmd() *cobra.Command {
	flags := &suiteFlags{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the golden cases",
		Long: `List the cases the suite would run, with whether each one already has
a golden file. No server is started.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, flags)
		},
	}
	flags.registerCommon(cmd)
	flags.registerSelection(cmd)
	return cmd
}

func runList(cmd *cobra.Command, flags *suiteFlags) error {
	cfg, err := flags.load(cmd)
	if err != nil {
		return err
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		return err
	}

	cases, err := application.ListCases()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(cases) == 0 {
		fmt.Fprintf(out, "No cases found in %s\n", cfg.Cases.Dir)
		return nil
	}

	width := 0
	for _, c := range cases {
		if w := runewidth.StringWidth(c.ID()); w > width {
			width = w
		}
	}

	for _, c := range cases {
		status := "golden"
		if !c.HasGolden() {
			status = "no golden"
		}
		fmt.Fprintf(out, "%s  %s\n", runewidth.FillRight(c.ID(), width), status)
	}
	return nil
}
