package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"rpcgolden/internal/fixture"
	"rpcgolden/internal/golden"
	"rpcgolden/internal/harness"
	"rpcgolden/pkg/logging"
)

const subsystem = "Runner"

// errStopped cancels the remaining cases after a failure when not keeping going.
var errStopped = errors.New("stopping after first failure")

// Runner executes cases against fresh server instances
type Runner struct {
	manager  harness.InstanceManager
	ports    PortAllocator
	checker  golden.Checker
	reporter Reporter
	options  Options
}

// New creates a Runner.
func New(manager harness.InstanceManager, ports PortAllocator, checker golden.Checker, reporter Reporter, options Options) *Runner {
	if options.Parallel < 1 {
		options.Parallel = 1
	}
	return &Runner{
		manager:  manager,
		ports:    ports,
		checker:  checker,
		reporter: reporter,
		options:  options,
	}
}

// Run executes cases and returns the suite result.
//
// With Parallel == 1 the cases run strictly one after another in order.
// Unless KeepGoing is set, the first FAILED or ERROR case stops the run and
// every case not yet started is counted as skipped.
func (r *Runner) Run(ctx context.Context, cases []fixture.Case) (*SuiteResult, error) {
	result := &SuiteResult{
		StartTime:   time.Now(),
		TotalCases:  len(cases),
		CaseResults: make([]CaseResult, 0, len(cases)),
		Options:     r.options,
	}

	r.reporter.ReportStart(r.options, cases)

	results := make([]*CaseResult, len(cases))
	var mu sync.Mutex

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.options.Parallel)

	for i, c := range cases {
		if groupCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if groupCtx.Err() != nil {
				return nil
			}

			caseResult := r.runCase(groupCtx, c)

			// A case torn down because a sibling failed did not really run
			if errors.Is(caseResult.err, context.Canceled) && groupCtx.Err() != nil && ctx.Err() == nil {
				logging.Debug(subsystem, "Case %s cancelled after an earlier failure", c.ID())
				return nil
			}

			mu.Lock()
			results[i] = &caseResult
			r.reporter.ReportCaseResult(caseResult)
			mu.Unlock()

			if caseResult.Failed() && !r.options.KeepGoing {
				return errStopped
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, errStopped) {
		return nil, err
	}

	for _, caseResult := range results {
		if caseResult == nil {
			result.SkippedCases++
			continue
		}
		result.CaseResults = append(result.CaseResults, *caseResult)
		r.updateCounters(result, *caseResult)
	}

	result.Interrupted = ctx.Err() != nil
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	r.reporter.ReportSuiteResult(*result)

	return result, nil
}

// runCase spawns a server, exchanges the case request, kills the server and
// checks the response against the golden file.
func (r *Runner) runCase(ctx context.Context, c fixture.Case) CaseResult {
	result := CaseResult{
		Case:      c,
		ID:        c.ID(),
		StartTime: time.Now(),
	}
	r.reporter.ReportCaseStart(c)

	finish := func(outcome Outcome, err error) CaseResult {
		result.Outcome = outcome
		if err != nil {
			result.err = err
			result.Error = err.Error()
		}
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(result.StartTime)
		return result
	}

	request, err := c.Request()
	if err != nil {
		return finish(OutcomeError, err)
	}

	port, err := r.ports.Acquire()
	if err != nil {
		return finish(OutcomeError, fmt.Errorf("failed to allocate port: %w", err))
	}
	defer r.ports.Release(port)
	result.Port = port

	response, err := r.exchange(ctx, c, port, request, &result)
	if err != nil {
		return finish(OutcomeError, err)
	}
	result.Response = response
	result.ResponseSize = len(response)

	checked, err := r.checker.Check(c.GoldenPath, response)
	if err != nil {
		var mismatch *golden.MismatchError
		if errors.As(err, &mismatch) {
			result.Diff = mismatch.Diff
		}
		if errors.Is(err, golden.ErrMismatch) || errors.Is(err, golden.ErrMissing) {
			return finish(OutcomeFailed, err)
		}
		return finish(OutcomeError, err)
	}

	result.Diff = checked.Diff
	switch checked.Outcome {
	case golden.OutcomeCreated:
		return finish(OutcomeCreated, nil)
	case golden.OutcomeRecreated:
		return finish(OutcomeRecreated, nil)
	default:
		return finish(OutcomePassed, nil)
	}
}

// exchange runs one server instance for the request. The instance is always
// destroyed before returning and its logs are attached to result.
func (r *Runner) exchange(ctx context.Context, c fixture.Case, port int, request []byte, result *CaseResult) ([]byte, error) {
	instance, err := r.manager.CreateInstance(ctx, c.ID(), c.DefinitionPath, port)
	if err != nil {
		return nil, fmt.Errorf("failed to start server: %w", err)
	}

	defer func() {
		if err := r.manager.DestroyInstance(instance); err != nil {
			logging.Warn(subsystem, "Failed to destroy server for %s: %v", c.ID(), err)
		}
		result.ServerLogs = instance.Logs
	}()

	conn, err := r.manager.WaitForReady(ctx, instance)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	response, err := harness.Exchange(ctx, conn, request, r.options.ReadTimeout)
	if err != nil {
		return nil, err
	}

	logging.Debug(subsystem, "Case %s received %d bytes", c.ID(), len(response))
	return response, nil
}

// updateCounters updates the suite counters based on a case result
func (r *Runner) updateCounters(suite *SuiteResult, result CaseResult) {
	switch result.Outcome {
	case OutcomePassed:
		suite.PassedCases++
	case OutcomeCreated:
		suite.CreatedCases++
	case OutcomeRecreated:
		suite.RecreatedCases++
	case OutcomeFailed:
		suite.FailedCases++
	case OutcomeError:
		suite.ErrorCases++
	case OutcomeSkipped:
		suite.SkippedCases++
	}
}
