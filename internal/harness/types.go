package harness

import (
	"context"
	"errors"
	"math"
	"net"
	"os"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

var (
	// ErrServerNotReady is returned when the server does not accept a
	// connection within the readiness timeout.
	ErrServerNotReady = errors.New("server did not become ready")
	// ErrServerExited is returned when the server process ends before it
	// accepts a connection.
	ErrServerExited = errors.New("server exited before becoming ready")
	// ErrReadTimeout is returned when the response does not arrive within the
	// read timeout.
	ErrReadTimeout = errors.New("timed out reading response")
)

// DefaultBufferSize is the chunk size used when reading a response. A read
// returning fewer bytes ends the response.
const DefaultBufferSize = 4096

// Settings describes how server instances are launched and reached.
type Settings struct {
	// Binary is the server executable, looked up in PATH unless it contains a separator.
	Binary string
	// Module is passed as --module.
	Module string
	// Host is the address dialled to reach the server.
	Host string
	// ExtraArgs are appended after the standard arguments.
	ExtraArgs []string
	// ReadyTimeout bounds the wait for the first successful connection.
	ReadyTimeout time.Duration
	// ReadTimeout bounds sending the request and reading the response.
	ReadTimeout time.Duration
	// Backoff paces connection attempts while waiting for readiness.
	Backoff wait.Backoff
}

// ReadyBackoff returns the readiness dial schedule: initial, growing by factor
// up to max and staying there until the ready timeout ends the wait.
func ReadyBackoff(initial, max time.Duration, factor float64) wait.Backoff {
	return wait.Backoff{
		Duration: initial,
		Factor:   factor,
		Cap:      max,
		Steps:    math.MaxInt32,
	}
}

// InstanceLogs holds the output captured from a server process.
type InstanceLogs struct {
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	Combined string `json:"combined,omitempty"`
}

// ServerInstance is one running server process, owned by a single case.
type ServerInstance struct {
	ID             string
	DefinitionPath string
	Port           int
	Address        string
	Process        *os.Process
	StartTime      time.Time
	// Logs is populated by DestroyInstance.
	Logs *InstanceLogs
}

// InstanceManager starts, connects to and destroys server instances.
type InstanceManager interface {
	// CreateInstance starts a server for definitionPath listening on port.
	CreateInstance(ctx context.Context, name, definitionPath string, port int) (*ServerInstance, error)
	// WaitForReady dials the instance until it accepts a connection and
	// returns that connection.
	WaitForReady(ctx context.Context, instance *ServerInstance) (net.Conn, error)
	// DestroyInstance kills the instance's process and collects its logs.
	DestroyInstance(instance *ServerInstance) error
}
