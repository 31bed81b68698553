// Package reporting prints case progress and suite results.
package reporting

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"rpcgolden/internal/fixture"
	"rpcgolden/internal/runner"
)

// Options configures the console reporter
type Options struct {
	// Verbose prints case starts and response bytes
	Verbose bool
	// Debug additionally prints captured server output
	Debug bool
	// NoColor disables styled output
	NoColor bool
	// ReportPath is the directory a detailed JSON report is written to
	ReportPath string
}

// consoleReporter implements runner.Reporter for human readers
type consoleReporter struct {
	out       io.Writer
	options   Options
	styles    styles
	nameWidth int
	mu        sync.Mutex
}

// NewConsoleReporter creates a reporter writing human-readable output to out
func NewConsoleReporter(out io.Writer, options Options) runner.Reporter {
	return &consoleReporter{
		out:     out,
		options: options,
		styles:  newStyles(out, options.NoColor),
	}
}

// ReportStart is called when execution begins
func (r *consoleReporter) ReportStart(options runner.Options, cases []fixture.Case) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nameWidth = 0
	for _, c := range cases {
		if w := runewidth.StringWidth(c.ID()); w > r.nameWidth {
			r.nameWidth = w
		}
	}

	fmt.Fprintln(r.out, r.styles.title.Render(fmt.Sprintf("Running %d case(s)", len(cases))))
	if r.options.Verbose {
		fmt.Fprintf(r.out, "  Parallel workers: %d\n", options.Parallel)
		fmt.Fprintf(r.out, "  Keep going: %t\n", options.KeepGoing)
		fmt.Fprintf(r.out, "  Read timeout: %v\n", options.ReadTimeout)
		if r.options.ReportPath != "" {
			fmt.Fprintf(r.out, "  Report path: %s\n", r.options.ReportPath)
		}
	}
	fmt.Fprintln(r.out)
}

// ReportCaseStart is called when a case begins
func (r *consoleReporter) ReportCaseStart(c fixture.Case) {
	if !r.options.Verbose {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, r.styles.subtle.Render(fmt.Sprintf("Running test '%s'...", c.ID())))
}

// ReportCaseResult is called when a case completes
func (r *consoleReporter) ReportCaseResult(result runner.CaseResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := runewidth.FillRight(result.ID, r.nameWidth)
	fmt.Fprintf(r.out, "%s %s  %s %s\n",
		getResultSymbol(result.Outcome),
		name,
		r.outcomeStyle(result.Outcome).Render(string(result.Outcome)),
		r.styles.subtle.Render(fmt.Sprintf("(%v)", result.Duration.Round(time.Millisecond))))

	if r.options.Verbose && result.Response != nil {
		fmt.Fprintf(r.out, "    response: %q\n", result.Response)
	}

	if result.Error != "" {
		fmt.Fprintf(r.out, "    %s\n", r.styles.failure.Render(result.Error))
	}

	if result.Diff != "" {
		fmt.Fprintf(r.out, "%s\n", result.Diff)
	}

	if r.options.Debug && result.ServerLogs != nil && result.ServerLogs.Combined != "" {
		fmt.Fprintln(r.out, r.styles.subtle.Render("    server output:"))
		fmt.Fprintln(r.out, indent(strings.TrimRight(result.ServerLogs.Combined, "\n"), "      "))
	}
}

// ReportSuiteResult is called when all cases complete
func (r *consoleReporter) ReportSuiteResult(suite runner.SuiteResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, r.styles.title.Render("Suite complete"))
	fmt.Fprintf(r.out, "  Duration: %v\n", suite.Duration.Round(time.Millisecond))
	fmt.Fprintf(r.out, "  Passed: %d\n", suite.PassedCases)
	if suite.CreatedCases > 0 {
		fmt.Fprintf(r.out, "  Created: %d\n", suite.CreatedCases)
	}
	if suite.RecreatedCases > 0 {
		fmt.Fprintf(r.out, "  Recreated: %d\n", suite.RecreatedCases)
	}
	if suite.FailedCases > 0 {
		fmt.Fprintf(r.out, "  Failed: %d\n", suite.FailedCases)
	}
	if suite.ErrorCases > 0 {
		fmt.Fprintf(r.out, "  Errors: %d\n", suite.ErrorCases)
	}
	if suite.SkippedCases > 0 {
		fmt.Fprintf(r.out, "  Skipped: %d\n", suite.SkippedCases)
	}
	fmt.Fprintf(r.out, "  Total: %d\n", suite.TotalCases)

	switch {
	case suite.Interrupted:
		fmt.Fprintln(r.out, r.styles.warning.Render("\nInterrupted"))
	case suite.Succeeded():
		fmt.Fprintln(r.out, r.styles.success.Render("\nAll cases passed"))
	default:
		fmt.Fprintln(r.out, r.styles.failure.Render("\nSome cases failed"))
	}

	if r.options.ReportPath != "" {
		path, err := saveDetailedReport(r.options.ReportPath, suite)
		if err != nil {
			fmt.Fprintf(r.out, "Failed to save detailed report: %v\n", err)
		} else {
			fmt.Fprintf(r.out, "Detailed report saved to: %s\n", path)
		}
	}
}

func (r *consoleReporter) outcomeStyle(outcome runner.Outcome) lipgloss.Style {
	switch outcome {
	case runner.OutcomePassed:
		return r.styles.success
	case runner.OutcomeCreated, runner.OutcomeRecreated:
		return r.styles.info
	case runner.OutcomeSkipped:
		return r.styles.warning
	default:
		return r.styles.failure
	}
}

// getResultSymbol returns an appropriate symbol for the case outcome
func getResultSymbol(outcome runner.Outcome) string {
	switch outcome {
	case runner.OutcomePassed:
		return "✅"
	case runner.OutcomeCreated:
		return "🆕"
	case runner.OutcomeRecreated:
		return "🔁"
	case runner.OutcomeFailed:
		return "❌"
	case runner.OutcomeError:
		return "💥"
	case runner.OutcomeSkipped:
		return "⏭️"
	default:
		return "❓"
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
