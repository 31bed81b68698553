package app

import (
	"io"

	"rpcgolden/internal/config"
	"rpcgolden/internal/reporting"
	"rpcgolden/internal/runner"
)

// NewReporter picks the reporter for the output settings: JSON wins over
// quiet, and the console reporter is the default.
func NewReporter(output config.OutputConfig, out io.Writer) runner.Reporter {
	switch {
	case output.JSON:
		return reporting.NewJSONReporter(out)
	case output.Quiet:
		return reporting.NewQuietReporter(out)
	default:
		return reporting.NewConsoleReporter(out, reporting.Options{
			Verbose:    output.Verbose,
			Debug:      output.Debug,
			NoColor:    output.NoColor,
			ReportPath: output.ReportPath,
		})
	}
}
