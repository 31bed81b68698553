package harness

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"rpcgolden/pkg/logging"
)

const subsystem = "Harness"

// reapTimeout bounds the wait for a killed process to be reaped.
const reapTimeout = 10 * time.Second

// logCapture captures stdout and stderr from a process
type logCapture struct {
	stdoutBuf    *bytes.Buffer
	stderrBuf    *bytes.Buffer
	stdoutReader *io.PipeReader
	stderrReader *io.PipeReader
	stdoutWriter *io.PipeWriter
	stderrWriter *io.PipeWriter
	wg           sync.WaitGroup
	mu           sync.RWMutex
	closeOnce    sync.Once
}

// newLogCapture creates a new log capture instance
func newLogCapture() *logCapture {
	lc := &logCapture{
		stdoutBuf: &bytes.Buffer{},
		stderrBuf: &bytes.Buffer{},
	}

	lc.stdoutReader, lc.stdoutWriter = io.Pipe()
	lc.stderrReader, lc.stderrWriter = io.Pipe()

	lc.wg.Add(2)
	go lc.captureOutput(lc.stdoutReader, lc.stdoutBuf)
	go lc.captureOutput(lc.stderrReader, lc.stderrBuf)

	return lc
}

// captureOutput copies lines from reader into buffer. The reader is always
// drained so the child never blocks on a full pipe.
func (lc *logCapture) captureOutput(reader io.Reader, buffer *bytes.Buffer) {
	defer lc.wg.Done()

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		lc.mu.Lock()
		buffer.WriteString(line + "\n")
		lc.mu.Unlock()
	}
	if scanner.Err() != nil {
		_, _ = io.Copy(io.Discard, reader)
	}
}

// close closes the capture pipes and waits for the readers to finish
func (lc *logCapture) close() {
	lc.closeOnce.Do(func() {
		lc.stdoutWriter.Close()
		lc.stderrWriter.Close()
	})
	lc.wg.Wait()
}

// getLogs returns the captured logs
func (lc *logCapture) getLogs() *InstanceLogs {
	lc.mu.RLock()
	defer lc.mu.RUnlock()

	stdout := lc.stdoutBuf.String()
	stderr := lc.stderrBuf.String()

	combined := ""
	if stdout != "" {
		combined += "=== STDOUT ===\n" + stdout
	}
	if stderr != "" {
		if combined != "" {
			combined += "\n"
		}
		combined += "=== STDERR ===\n" + stderr
	}

	return &InstanceLogs{
		Stdout:   stdout,
		Stderr:   stderr,
		Combined: combined,
	}
}

// managedProcess is a server process together with its log capture and exit state
type managedProcess struct {
	cmd        *exec.Cmd
	logCapture *logCapture
	exited     chan struct{}
	waitErr    error
}

// processManager implements InstanceManager by running the server as a child process
type processManager struct {
	settings  Settings
	processes map[string]*managedProcess // Track processes by instance ID
	mu        sync.RWMutex
}

// NewProcessManager creates an InstanceManager that launches settings.Binary.
func NewProcessManager(settings Settings) InstanceManager {
	return &processManager{
		settings:  settings,
		processes: make(map[string]*managedProcess),
	}
}

// CreateInstance starts `<binary> <definition> --module <module> --server-port <port>`.
func (m *processManager) CreateInstance(ctx context.Context, name, definitionPath string, port int) (*ServerInstance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(definitionPath); err != nil {
		return nil, fmt.Errorf("definition %s: %w", definitionPath, err)
	}

	binary, err := m.resolveBinary()
	if err != nil {
		return nil, err
	}

	instanceID := fmt.Sprintf("%s-%d", sanitizeFileName(name), port)
	args := ServerArgs(definitionPath, m.settings.Module, port, m.settings.ExtraArgs)

	// Own process group so that wrapper scripts and their children die together
	cmd := exec.Command(binary, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	logCapture := newLogCapture()
	cmd.Stdout = logCapture.stdoutWriter
	cmd.Stderr = logCapture.stderrWriter

	logging.Debug(subsystem, "Starting %s %s", binary, strings.Join(args, " "))

	if err := cmd.Start(); err != nil {
		logCapture.close()
		return nil, fmt.Errorf("failed to start server %s: %w", binary, err)
	}

	proc := &managedProcess{
		cmd:        cmd,
		logCapture: logCapture,
		exited:     make(chan struct{}),
	}
	go func() {
		proc.waitErr = cmd.Wait()
		close(proc.exited)
	}()

	m.mu.Lock()
	m.processes[instanceID] = proc
	m.mu.Unlock()

	instance := &ServerInstance{
		ID:             instanceID,
		DefinitionPath: definitionPath,
		Port:           port,
		Address:        net.JoinHostPort(m.settings.Host, strconv.Itoa(port)),
		Process:        cmd.Process,
		StartTime:      time.Now(),
	}

	logging.Debug(subsystem, "Started server instance %s on port %d (PID: %d)", instanceID, port, cmd.Process.Pid)

	return instance, nil
}

// WaitForReady dials the instance on the settings' backoff schedule until a
// connection succeeds, the process exits, or the readiness timeout passes.
func (m *processManager) WaitForReady(ctx context.Context, instance *ServerInstance) (net.Conn, error) {
	proc := m.lookup(instance.ID)
	if proc == nil {
		return nil, fmt.Errorf("unknown server instance %s", instance.ID)
	}

	readyCtx, cancel := context.WithTimeout(ctx, m.settings.ReadyTimeout)
	defer cancel()

	var (
		dialer  net.Dialer
		conn    net.Conn
		lastErr error
	)
	attempts := 0

	conditionFunc := func(dialCtx context.Context) (bool, error) {
		select {
		case <-proc.exited:
			return false, exitError(proc)
		default:
		}

		attempts++
		c, err := dialer.DialContext(dialCtx, "tcp", instance.Address)
		if err != nil {
			lastErr = err
			return false, nil
		}
		conn = c
		return true, nil
	}

	err := m.settings.Backoff.DelayFunc().Until(readyCtx, true, true, conditionFunc)
	switch {
	case err == nil:
		logging.Debug(subsystem, "Connected to %s after %d attempt(s)", instance.ID, attempts)
		return conn, nil
	case errors.Is(err, ErrServerExited):
		return nil, err
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case wait.Interrupted(err):
		return nil, fmt.Errorf("%w within %v at %s (%d attempts): %v",
			ErrServerNotReady, m.settings.ReadyTimeout, instance.Address, attempts, lastErr)
	default:
		return nil, err
	}
}

// exitError describes a server that exited before accepting a connection,
// with its stderr when it wrote any.
func exitError(proc *managedProcess) error {
	proc.logCapture.close()
	stderr := strings.TrimSpace(proc.logCapture.getLogs().Stderr)
	if stderr != "" {
		return fmt.Errorf("%w (%v): %s", ErrServerExited, proc.waitErr, stderr)
	}
	return fmt.Errorf("%w (%v)", ErrServerExited, proc.waitErr)
}

// DestroyInstance kills the instance's process group, reaps it and stores
// the captured logs on the instance.
func (m *processManager) DestroyInstance(instance *ServerInstance) error {
	proc := m.lookup(instance.ID)
	if proc == nil {
		return nil
	}

	logging.Debug(subsystem, "Destroying server instance %s (PID: %d)", instance.ID, proc.cmd.Process.Pid)

	var killErr error
	select {
	case <-proc.exited:
	default:
		killErr = killGroup(proc.cmd.Process)
		select {
		case <-proc.exited:
		case <-time.After(reapTimeout):
			killErr = errors.Join(killErr, fmt.Errorf("server instance %s not reaped after %v", instance.ID, reapTimeout))
		}
	}

	proc.logCapture.close()
	instance.Logs = proc.logCapture.getLogs()

	m.mu.Lock()
	delete(m.processes, instance.ID)
	m.mu.Unlock()

	if killErr != nil {
		return fmt.Errorf("failed to kill server instance %s: %w", instance.ID, killErr)
	}
	return nil
}

func (m *processManager) lookup(id string) *managedProcess {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.processes[id]
}

// resolveBinary finds the server executable.
func (m *processManager) resolveBinary() (string, error) {
	path, err := exec.LookPath(m.settings.Binary)
	if err != nil {
		return "", fmt.Errorf("server binary %q not found: %w", m.settings.Binary, err)
	}
	return path, nil
}

// ServerArgs builds the server command line after the binary name.
func ServerArgs(definitionPath, module string, port int, extra []string) []string {
	args := []string{
		definitionPath,
		"--module", module,
		"--server-port", strconv.Itoa(port),
	}
	return append(args, extra...)
}

// killGroup sends SIGKILL to the process group led by p, falling back to the
// process itself.
func killGroup(p *os.Process) error {
	if err := syscall.Kill(-p.Pid, syscall.SIGKILL); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		return p.Kill()
	}
	return nil
}

// sanitizeFileName sanitizes a string to be safe for use in an instance ID
func sanitizeFileName(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)

	sanitized := replacer.Replace(name)

	if len(sanitized) > 50 {
		sanitized = sanitized[:50]
	}

	return sanitized
}
