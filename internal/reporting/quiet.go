package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"rpcgolden/internal/fixture"
	"rpcgolden/internal/runner"
)

// NewQuietReporter creates a reporter that only outputs essential information
func NewQuietReporter(out io.Writer) runner.Reporter {
	return &quietReporter{out: out}
}

// quietReporter implements minimal output for CI/CD integration
type quietReporter struct {
	out io.Writer
	mu  sync.Mutex
}

func (r *quietReporter) ReportStart(options runner.Options, cases []fixture.Case) {
	// Silent start
}

func (r *quietReporter) ReportCaseStart(c fixture.Case) {
	// Silent case start
}

func (r *quietReporter) ReportCaseResult(result runner.CaseResult) {
	// Only report failures
	if !result.Failed() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.out, "%s %s: %s\n", getResultSymbol(result.Outcome), result.ID, result.Error)
	if result.Diff != "" {
		fmt.Fprintln(r.out, result.Diff)
	}
}

func (r *quietReporter) ReportSuiteResult(suite runner.SuiteResult) {
	// Only output final summary
	if suite.Succeeded() {
		fmt.Fprintf(r.out, "✅ All %d cases passed\n", suite.TotalCases)
	} else {
		fmt.Fprintf(r.out, "❌ %d/%d cases failed\n",
			suite.FailedCases+suite.ErrorCases,
			suite.TotalCases)
	}
}

// NewJSONReporter creates a reporter that outputs JSON for CI/CD integration
func NewJSONReporter(out io.Writer) runner.Reporter {
	return &jsonReporter{out: out}
}

// jsonReporter implements JSON output for machine consumption
type jsonReporter struct {
	out io.Writer
}

func (r *jsonReporter) ReportStart(options runner.Options, cases []fixture.Case) {
	// Silent
}

func (r *jsonReporter) ReportCaseStart(c fixture.Case) {
	// Silent
}

func (r *jsonReporter) ReportCaseResult(result runner.CaseResult) {
	// Collected in the suite result
}

func (r *jsonReporter) ReportSuiteResult(suite runner.SuiteResult) {
	// Output complete result as JSON
	jsonData, err := json.MarshalIndent(suite, "", "  ")
	if err != nil {
		fmt.Fprintf(r.out, `{"error": "Failed to marshal results: %v"}`+"\n", err)
		return
	}

	fmt.Fprintln(r.out, string(jsonData))
}
