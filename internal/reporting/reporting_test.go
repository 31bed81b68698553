package reporting

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rpcgolden/internal/fixture"
	"rpcgolden/internal/harness"
	"rpcgolden/internal/runner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCases() []fixture.Case {
	return []fixture.Case{
		{Name: "a", Kind: fixture.KindExecute},
		{Name: "longer-name", Kind: fixture.KindExecute},
	}
}

func sampleSuite() runner.SuiteResult {
	start := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	return runner.SuiteResult{
		StartTime:   start,
		EndTime:     start.Add(2 * time.Second),
		Duration:    2 * time.Second,
		TotalCases:  3,
		PassedCases: 1,
		FailedCases: 1,
		ErrorCases:  1,
		CaseResults: []runner.CaseResult{
			{ID: "execute/a", Outcome: runner.OutcomePassed},
			{ID: "execute/b", Outcome: runner.OutcomeFailed, Error: "mismatch", Diff: "{+x+}[-y-]"},
			{ID: "execute/c", Outcome: runner.OutcomeError, Error: "server did not become ready"},
		},
		Options: runner.Options{Parallel: 1},
	}
}

func TestConsoleReporter_CaseLines(t *testing.T) {
	var out bytes.Buffer
	r := NewConsoleReporter(&out, Options{NoColor: true})

	r.ReportStart(runner.Options{Parallel: 1}, sampleCases())
	r.ReportCaseStart(sampleCases()[0])
	r.ReportCaseResult(runner.CaseResult{
		ID:       "execute/a",
		Outcome:  runner.OutcomePassed,
		Duration: 1500 * time.Microsecond,
		Response: []byte(`{"id":1}`),
	})
	r.ReportCaseResult(runner.CaseResult{
		ID:      "execute/longer-name",
		Outcome: runner.OutcomeFailed,
		Error:   "response does not match golden file",
		Diff:    "ab{+d+}[-c-]",
		ServerLogs: &harness.InstanceLogs{
			Combined: "=== STDERR ===\nwarning\n",
		},
	})

	text := out.String()
	assert.Contains(t, text, "Running 2 case(s)")
	// Names are padded to the widest case ID
	assert.Contains(t, text, "✅ execute/a            PASSED (2ms)")
	assert.Contains(t, text, "❌ execute/longer-name  FAILED")
	assert.Contains(t, text, "    response does not match golden file\n")
	assert.Contains(t, text, "ab{+d+}[-c-]\n")

	// Neither verbose nor debug
	assert.NotContains(t, text, "Running test")
	assert.NotContains(t, text, "response:")
	assert.NotContains(t, text, "server output")
}

func TestConsoleReporter_VerboseAndDebug(t *testing.T) {
	var out bytes.Buffer
	r := NewConsoleReporter(&out, Options{NoColor: true, Verbose: true, Debug: true})

	r.ReportStart(runner.Options{Parallel: 4, KeepGoing: true}, sampleCases())
	r.ReportCaseStart(sampleCases()[0])
	r.ReportCaseResult(runner.CaseResult{
		ID:         "execute/a",
		Outcome:    runner.OutcomeCreated,
		Response:   []byte("{\"id\":1}\n"),
		ServerLogs: &harness.InstanceLogs{Combined: "=== STDOUT ===\nready\n"},
	})

	text := out.String()
	assert.Contains(t, text, "Parallel workers: 4")
	assert.Contains(t, text, "Keep going: true")
	assert.Contains(t, text, "Running test 'execute/a'...")
	assert.Contains(t, text, "🆕 execute/a")
	assert.Contains(t, text, `response: "{\"id\":1}\n"`)
	assert.Contains(t, text, "    server output:\n      === STDOUT ===\n      ready\n")
}

func TestConsoleReporter_Summary(t *testing.T) {
	var out bytes.Buffer
	r := NewConsoleReporter(&out, Options{NoColor: true})

	r.ReportSuiteResult(sampleSuite())

	text := out.String()
	assert.Contains(t, text, "Passed: 1")
	assert.Contains(t, text, "Failed: 1")
	assert.Contains(t, text, "Errors: 1")
	assert.Contains(t, text, "Total: 3")
	assert.NotContains(t, text, "Created:")
	assert.Contains(t, text, "Some cases failed")

	out.Reset()
	r.ReportSuiteResult(runner.SuiteResult{TotalCases: 2, PassedCases: 1, CreatedCases: 1})
	assert.Contains(t, out.String(), "Created: 1")
	assert.Contains(t, out.String(), "All cases passed")

	out.Reset()
	r.ReportSuiteResult(runner.SuiteResult{TotalCases: 1, SkippedCases: 1, Interrupted: true})
	assert.Contains(t, out.String(), "Interrupted")
}

func TestConsoleReporter_SavesDetailedReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	var out bytes.Buffer
	r := NewConsoleReporter(&out, Options{NoColor: true, ReportPath: dir})

	r.ReportSuiteResult(sampleSuite())

	path := filepath.Join(dir, "rpcgolden-report-20261017-093000.json")
	assert.Contains(t, out.String(), "Detailed report saved to: "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(3), decoded["total_cases"])
	results := decoded["case_results"].([]interface{})
	require.Len(t, results, 3)
	assert.Equal(t, "{+x+}[-y-]", results[1].(map[string]interface{})["diff"])
}

func TestQuietReporter(t *testing.T) {
	var out bytes.Buffer
	r := NewQuietReporter(&out)

	r.ReportStart(runner.Options{}, sampleCases())
	r.ReportCaseStart(sampleCases()[0])
	for _, result := range sampleSuite().CaseResults {
		r.ReportCaseResult(result)
	}
	r.ReportSuiteResult(sampleSuite())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		"❌ execute/b: mismatch",
		"{+x+}[-y-]",
		"💥 execute/c: server did not become ready",
		"❌ 2/3 cases failed",
	}, lines)

	out.Reset()
	r.ReportSuiteResult(runner.SuiteResult{TotalCases: 4, PassedCases: 4})
	assert.Equal(t, "✅ All 4 cases passed\n", out.String())
}

func TestJSONReporter(t *testing.T) {
	var out bytes.Buffer
	r := NewJSONReporter(&out)

	r.ReportStart(runner.Options{}, sampleCases())
	r.ReportCaseResult(sampleSuite().CaseResults[0])
	assert.Empty(t, out.String())

	r.ReportSuiteResult(sampleSuite())

	var decoded runner.SuiteResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, 3, decoded.TotalCases)
	assert.Equal(t, runner.OutcomeError, decoded.CaseResults[2].Outcome)
	assert.False(t, decoded.Succeeded())
}
