package runner

import (
	"time"

	"rpcgolden/internal/fixture"
	"rpcgolden/internal/harness"
)

// Outcome represents the result of a single case
type Outcome string

const (
	// OutcomePassed indicates the response matched the golden file
	OutcomePassed Outcome = "PASSED"
	// OutcomeCreated indicates a missing golden file was written
	OutcomeCreated Outcome = "CREATED"
	// OutcomeRecreated indicates a broken golden file was overwritten
	OutcomeRecreated Outcome = "RECREATED"
	// OutcomeFailed indicates a golden mismatch or a missing golden file
	OutcomeFailed Outcome = "FAILED"
	// OutcomeError indicates the server could not be run or reached
	OutcomeError Outcome = "ERROR"
	// OutcomeSkipped indicates the case was not run
	OutcomeSkipped Outcome = "SKIPPED"
)

// Options controls how a suite is executed
type Options struct {
	// Parallel is the number of cases run concurrently
	Parallel int `json:"parallel"`
	// KeepGoing runs every case instead of stopping at the first failure
	KeepGoing bool `json:"keep_going"`
	// ReadTimeout bounds each request/response exchange
	ReadTimeout time.Duration `json:"read_timeout"`
}

// CaseResult represents the result of a single case
type CaseResult struct {
	// Case is the case that was executed
	Case fixture.Case `json:"-"`
	// ID is the kind-qualified case name
	ID string `json:"id"`
	// Outcome of the case
	Outcome Outcome `json:"outcome"`
	// StartTime when the case began
	StartTime time.Time `json:"start_time"`
	// EndTime when the case completed
	EndTime time.Time `json:"end_time"`
	// Duration of the case
	Duration time.Duration `json:"duration"`
	// Port the server listened on
	Port int `json:"port,omitempty"`
	// ResponseSize is the number of response bytes received
	ResponseSize int `json:"response_size"`
	// Response holds the raw response bytes
	Response []byte `json:"-"`
	// Error message if the case failed
	Error string `json:"error,omitempty"`
	// Diff between the golden file and the response, when they differ
	Diff string `json:"diff,omitempty"`
	// ServerLogs contains the captured server output
	ServerLogs *harness.InstanceLogs `json:"server_logs,omitempty"`

	err error
}

// Failed reports whether the case counts against the suite.
func (r CaseResult) Failed() bool {
	return r.Outcome == OutcomeFailed || r.Outcome == OutcomeError
}

// SuiteResult represents the result of a whole run
type SuiteResult struct {
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`

	TotalCases     int `json:"total_cases"`
	PassedCases    int `json:"passed_cases"`
	CreatedCases   int `json:"created_cases"`
	RecreatedCases int `json:"recreated_cases"`
	FailedCases    int `json:"failed_cases"`
	ErrorCases     int `json:"error_cases"`
	SkippedCases   int `json:"skipped_cases"`

	// Interrupted is set when the run was cancelled from outside
	Interrupted bool `json:"interrupted,omitempty"`

	// CaseResults holds the results of the cases that ran, in case order
	CaseResults []CaseResult `json:"case_results"`
	Options     Options      `json:"options"`
}

// Succeeded reports whether every case that ran passed or was (re)created
// and the run was not interrupted.
func (s SuiteResult) Succeeded() bool {
	return s.FailedCases == 0 && s.ErrorCases == 0 && !s.Interrupted
}

// Reporter receives progress and results while a suite runs
type Reporter interface {
	// ReportStart is called when execution begins
	ReportStart(options Options, cases []fixture.Case)
	// ReportCaseStart is called when a case begins
	ReportCaseStart(c fixture.Case)
	// ReportCaseResult is called when a case completes
	ReportCaseResult(result CaseResult)
	// ReportSuiteResult is called when all cases complete
	ReportSuiteResult(result SuiteResult)
}

// PortAllocator hands out server ports to concurrently running cases.
type PortAllocator interface {
	Acquire() (int, error)
	Release(port int)
}
