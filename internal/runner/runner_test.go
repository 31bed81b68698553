package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"rpcgolden/internal/fixture"
	"rpcgolden/internal/golden"
	"rpcgolden/internal/harness"
	"rpcgolden/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.InitForCLI(logging.LevelWarn, os.Stderr)
	os.Exit(m.Run())
}

// fakeManager serves canned responses over in-memory pipes instead of spawning servers.
type fakeManager struct {
	mu        sync.Mutex
	responses map[string]string
	readyErr  map[string]error
	delay     time.Duration

	// readyDelay holds WaitForReady back without watching ctx
	readyDelay map[string]time.Duration
	// blockReady makes WaitForReady wait for ctx to be cancelled
	blockReady map[string]bool

	created   []string
	requests  map[string]string
	destroyed int
	active    int
	maxActive int
	ports     map[int]bool
	portClash bool
}

func newFakeManager(responses map[string]string) *fakeManager {
	return &fakeManager{
		responses: responses,
		readyErr:   map[string]error{},
		readyDelay: map[string]time.Duration{},
		blockReady: map[string]bool{},
		requests:   map[string]string{},
		ports:      map[int]bool{},
	}
}

func (m *fakeManager) CreateInstance(ctx context.Context, name, definitionPath string, port int) (*harness.ServerInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.created = append(m.created, name)
	if m.ports[port] {
		m.portClash = true
	}
	m.ports[port] = true
	m.active++
	if m.active > m.maxActive {
		m.maxActive = m.active
	}
	return &harness.ServerInstance{ID: name, DefinitionPath: definitionPath, Port: port}, nil
}

func (m *fakeManager) WaitForReady(ctx context.Context, instance *harness.ServerInstance) (net.Conn, error) {
	m.mu.Lock()
	err := m.readyErr[instance.ID]
	response := m.responses[instance.ID]
	delay := m.readyDelay[instance.ID]
	block := m.blockReady[instance.ID]
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}

	client, server := net.Pipe()
	go func() {
		defer server.Close()
		buf := make([]byte, harness.DefaultBufferSize)
		n, err := server.Read(buf)
		if err != nil {
			return
		}
		m.mu.Lock()
		m.requests[instance.ID] = string(buf[:n])
		m.mu.Unlock()

		if m.delay > 0 {
			time.Sleep(m.delay)
		}
		_, _ = server.Write([]byte(response))
	}()
	return client, nil
}

func (m *fakeManager) DestroyInstance(instance *harness.ServerInstance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.destroyed++
	m.active--
	delete(m.ports, instance.Port)
	instance.Logs = &harness.InstanceLogs{Stdout: "served " + instance.ID + "\n"}
	return nil
}

// counterPorts hands out increasing ports and records releases.
type counterPorts struct {
	mu       sync.Mutex
	next     int
	free     []int
	released int
}

func (p *counterPorts) Acquire() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) > 0 {
		port := p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]
		return port, nil
	}
	p.next++
	return 31336 + p.next, nil
}

func (p *counterPorts) Release(port int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, port)
	p.released++
}

// recordingReporter keeps everything it is told.
type recordingReporter struct {
	mu      sync.Mutex
	total   int
	started []string
	results []CaseResult
	suite   *SuiteResult
}

func (r *recordingReporter) ReportStart(options Options, cases []fixture.Case) { r.total = len(cases) }

func (r *recordingReporter) ReportCaseStart(c fixture.Case) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, c.ID())
}

func (r *recordingReporter) ReportCaseResult(result CaseResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func (r *recordingReporter) ReportSuiteResult(result SuiteResult) { r.suite = &result }

// makeCase creates an execute case in dir, with a golden file when golden is non-nil.
func makeCase(t *testing.T, dir, name string, golden *string) fixture.Case {
	t.Helper()
	caseDir := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(caseDir, 0755))
	goldenPath := filepath.Join(caseDir, fixture.GoldenFile)
	if golden != nil {
		require.NoError(t, os.WriteFile(goldenPath, []byte(*golden), 0644))
	}
	return fixture.Case{
		Name:           name,
		Kind:           fixture.KindExecute,
		Dir:            caseDir,
		DefinitionPath: filepath.Join(caseDir, fixture.DefinitionFile),
		GoldenPath:     goldenPath,
		Method:         "execute",
		Params: map[string]json.RawMessage{
			"state": json.RawMessage(fmt.Sprintf(`{"case":%q}`, name)),
		},
	}
}

func strPtr(s string) *string { return &s }

func newRunner(manager harness.InstanceManager, policy golden.Policy, options Options) (*Runner, *recordingReporter, *counterPorts) {
	reporter := &recordingReporter{}
	ports := &counterPorts{}
	if options.ReadTimeout == 0 {
		options.ReadTimeout = 5 * time.Second
	}
	return New(manager, ports, golden.NewChecker(policy, true), reporter, options), reporter, ports
}

func TestRun_AllPass(t *testing.T) {
	dir := t.TempDir()
	cases := []fixture.Case{
		makeCase(t, dir, "a", strPtr(`{"result":"a"}`)),
		makeCase(t, dir, "b", strPtr(`{"result":"b"}`)),
	}
	manager := newFakeManager(map[string]string{
		"execute/a": `{"result":"a"}`,
		"execute/b": `{"result":"b"}`,
	})
	r, reporter, ports := newRunner(manager, golden.Policy{}, Options{})

	result, err := r.Run(context.Background(), cases)
	require.NoError(t, err)

	assert.True(t, result.Succeeded())
	assert.Equal(t, 2, result.TotalCases)
	assert.Equal(t, 2, result.PassedCases)
	assert.Equal(t, 0, result.SkippedCases)
	require.Len(t, result.CaseResults, 2)
	assert.Equal(t, "execute/a", result.CaseResults[0].ID)
	assert.Equal(t, OutcomePassed, result.CaseResults[0].Outcome)
	assert.Equal(t, len(`{"result":"a"}`), result.CaseResults[0].ResponseSize)
	assert.Equal(t, "served execute/a\n", result.CaseResults[0].ServerLogs.Stdout)

	// Each case got its own server, which was destroyed, and its port returned
	assert.Equal(t, []string{"execute/a", "execute/b"}, manager.created)
	assert.Equal(t, 2, manager.destroyed)
	assert.Equal(t, 2, ports.released)

	assert.Equal(t, 2, reporter.total)
	assert.Equal(t, []string{"execute/a", "execute/b"}, reporter.started)
	require.NotNil(t, reporter.suite)
	assert.Equal(t, 2, reporter.suite.PassedCases)

	var req map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(manager.requests["execute/a"]), &req))
	assert.Equal(t, "2.0", req["jsonrpc"])
	assert.Equal(t, "execute", req["method"])
	assert.Equal(t, float64(1), req["id"])
}

func TestRun_CreateMissing(t *testing.T) {
	dir := t.TempDir()
	c := makeCase(t, dir, "new", nil)
	manager := newFakeManager(map[string]string{"execute/new": `{"result":42}`})
	r, _, _ := newRunner(manager, golden.Policy{CreateMissing: true}, Options{})

	result, err := r.Run(context.Background(), []fixture.Case{c})
	require.NoError(t, err)

	assert.True(t, result.Succeeded())
	assert.Equal(t, 1, result.CreatedCases)
	assert.Equal(t, OutcomeCreated, result.CaseResults[0].Outcome)

	written, err := os.ReadFile(c.GoldenPath)
	require.NoError(t, err)
	assert.Equal(t, `{"result":42}`, string(written))
}

func TestRun_MissingGoldenFails(t *testing.T) {
	dir := t.TempDir()
	c := makeCase(t, dir, "new", nil)
	manager := newFakeManager(map[string]string{"execute/new": `{"result":42}`})
	r, _, _ := newRunner(manager, golden.Policy{}, Options{})

	result, err := r.Run(context.Background(), []fixture.Case{c})
	require.NoError(t, err)

	assert.False(t, result.Succeeded())
	assert.Equal(t, 1, result.FailedCases)
	assert.Contains(t, result.CaseResults[0].Error, "golden file not found")
	assert.NoFileExists(t, c.GoldenPath)
}

func TestRun_RecreateBroken(t *testing.T) {
	dir := t.TempDir()
	c := makeCase(t, dir, "old", strPtr(`{"result":true}`))
	manager := newFakeManager(map[string]string{"execute/old": `{"result":false}`})
	r, _, _ := newRunner(manager, golden.Policy{RecreateBroken: true}, Options{})

	result, err := r.Run(context.Background(), []fixture.Case{c})
	require.NoError(t, err)

	assert.True(t, result.Succeeded())
	assert.Equal(t, 1, result.RecreatedCases)
	assert.Equal(t, `{"result":{+fals+}[-tru-]e}`, result.CaseResults[0].Diff)

	written, err := os.ReadFile(c.GoldenPath)
	require.NoError(t, err)
	assert.Equal(t, `{"result":false}`, string(written))
}

func TestRun_FailFast(t *testing.T) {
	dir := t.TempDir()
	cases := []fixture.Case{
		makeCase(t, dir, "a", strPtr("A")),
		makeCase(t, dir, "b", strPtr("B")),
		makeCase(t, dir, "c", strPtr("C")),
	}
	manager := newFakeManager(map[string]string{
		"execute/a": "A",
		"execute/b": "X",
		"execute/c": "C",
	})
	r, _, _ := newRunner(manager, golden.Policy{}, Options{})

	result, err := r.Run(context.Background(), cases)
	require.NoError(t, err)

	assert.False(t, result.Succeeded())
	assert.Equal(t, 1, result.PassedCases)
	assert.Equal(t, 1, result.FailedCases)
	assert.Equal(t, 1, result.SkippedCases)
	require.Len(t, result.CaseResults, 2)
	assert.Equal(t, OutcomeFailed, result.CaseResults[1].Outcome)
	assert.Equal(t, "{+X+}[-B-]", result.CaseResults[1].Diff)
	assert.Equal(t, []string{"execute/a", "execute/b"}, manager.created)

	// The golden file was left alone
	kept, err := os.ReadFile(cases[1].GoldenPath)
	require.NoError(t, err)
	assert.Equal(t, "B", string(kept))
}

func TestRun_KeepGoing(t *testing.T) {
	dir := t.TempDir()
	cases := []fixture.Case{
		makeCase(t, dir, "a", strPtr("A")),
		makeCase(t, dir, "b", strPtr("B")),
		makeCase(t, dir, "c", strPtr("C")),
	}
	manager := newFakeManager(map[string]string{
		"execute/a": "A",
		"execute/b": "X",
		"execute/c": "C",
	})
	r, _, _ := newRunner(manager, golden.Policy{}, Options{KeepGoing: true})

	result, err := r.Run(context.Background(), cases)
	require.NoError(t, err)

	assert.False(t, result.Succeeded())
	assert.Equal(t, 2, result.PassedCases)
	assert.Equal(t, 1, result.FailedCases)
	assert.Equal(t, 0, result.SkippedCases)
	assert.Len(t, result.CaseResults, 3)
}

func TestRun_ServerNotReady(t *testing.T) {
	dir := t.TempDir()
	c := makeCase(t, dir, "dead", strPtr("A"))
	manager := newFakeManager(nil)
	manager.readyErr["execute/dead"] = fmt.Errorf("%w within 1s", harness.ErrServerNotReady)
	r, _, ports := newRunner(manager, golden.Policy{}, Options{})

	result, err := r.Run(context.Background(), []fixture.Case{c})
	require.NoError(t, err)

	assert.Equal(t, 1, result.ErrorCases)
	assert.Equal(t, OutcomeError, result.CaseResults[0].Outcome)
	assert.Contains(t, result.CaseResults[0].Error, "server did not become ready")

	// The server was still torn down
	assert.Equal(t, 1, manager.destroyed)
	assert.Equal(t, 1, ports.released)
}

func TestRun_ParallelFailFastKeepsRealSiblingErrors(t *testing.T) {
	dir := t.TempDir()
	cases := []fixture.Case{
		makeCase(t, dir, "a", strPtr("A")),
		makeCase(t, dir, "b", strPtr("B")),
		makeCase(t, dir, "c", strPtr("C")),
	}
	manager := newFakeManager(nil)
	manager.readyErr["execute/a"] = fmt.Errorf("%w within 1s", harness.ErrServerNotReady)
	// b fails on its own, after a has already stopped the run
	manager.readyDelay["execute/b"] = 200 * time.Millisecond
	manager.readyErr["execute/b"] = fmt.Errorf("%w (exit status 3)", harness.ErrServerExited)
	// c only ends because the run was stopped
	manager.blockReady["execute/c"] = true

	r, reporter, _ := newRunner(manager, golden.Policy{}, Options{Parallel: 3})

	result, err := r.Run(context.Background(), cases)
	require.NoError(t, err)

	assert.False(t, result.Interrupted)
	assert.Equal(t, 2, result.ErrorCases)
	assert.Equal(t, 1, result.SkippedCases)
	require.Len(t, result.CaseResults, 2)
	assert.Equal(t, "execute/a", result.CaseResults[0].ID)
	assert.Equal(t, "execute/b", result.CaseResults[1].ID)
	assert.Contains(t, result.CaseResults[1].Error, "server exited before becoming ready")
	assert.Len(t, reporter.results, 2)
}

func TestRun_Parallel(t *testing.T) {
	dir := t.TempDir()
	responses := map[string]string{}
	var cases []fixture.Case
	for i := 0; i < 6; i++ {
		name := fmt.Sprintf("case-%d", i)
		body := fmt.Sprintf(`{"n":%d}`, i)
		cases = append(cases, makeCase(t, dir, name, strPtr(body)))
		responses["execute/"+name] = body
	}
	manager := newFakeManager(responses)
	manager.delay = 30 * time.Millisecond
	r, _, _ := newRunner(manager, golden.Policy{}, Options{Parallel: 3})

	result, err := r.Run(context.Background(), cases)
	require.NoError(t, err)

	assert.True(t, result.Succeeded())
	assert.Equal(t, 6, result.PassedCases)
	assert.LessOrEqual(t, manager.maxActive, 3)
	assert.False(t, manager.portClash, "two live servers shared a port")

	// Results come back in case order regardless of completion order
	for i, cr := range result.CaseResults {
		assert.Equal(t, fmt.Sprintf("execute/case-%d", i), cr.ID)
	}
}

func TestRun_Cancelled(t *testing.T) {
	dir := t.TempDir()
	cases := []fixture.Case{makeCase(t, dir, "a", strPtr("A"))}
	manager := newFakeManager(map[string]string{"execute/a": "A"})
	r, _, _ := newRunner(manager, golden.Policy{}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := r.Run(ctx, cases)
	require.NoError(t, err)

	assert.True(t, result.Interrupted)
	assert.False(t, result.Succeeded())
	assert.Equal(t, 1, result.SkippedCases)
	assert.Empty(t, manager.created)
}

func TestRun_Empty(t *testing.T) {
	r, reporter, _ := newRunner(newFakeManager(nil), golden.Policy{}, Options{})

	result, err := r.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Equal(t, 0, result.TotalCases)
	assert.NotNil(t, reporter.suite)
}
