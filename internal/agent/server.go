// Package agent exposes the golden suite to MCP clients over stdio, so that an
// assistant can list cases, run them and read back the diffs.
package agent

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"rpcgolden/internal/config"
	"rpcgolden/internal/runner"
	"rpcgolden/pkg/logging"
)

const subsystem = "Agent"

// Server is an MCP server whose tools drive the golden suite
type Server struct {
	config    config.RPCGoldenConfig
	mcpServer *server.MCPServer

	// runMu serializes runs; they share the port range and the golden files
	runMu sync.Mutex

	mu         sync.RWMutex
	lastResult *runner.SuiteResult
}

// NewServer creates an MCP server for the suite described by cfg
func NewServer(cfg config.RPCGoldenConfig, version string) *Server {
	s := &Server{
		config: cfg,
		mcpServer: server.NewMCPServer(
			"rpcgolden",
			version,
			server.WithToolCapabilities(true),
		),
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Start serves MCP over the process's stdin and stdout until ctx is done
func (s *Server) Start(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve serves MCP over the given streams until ctx is done or in is closed
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	logging.Info(subsystem, "Serving %d case tools over stdio", len(s.tools()))
	return server.NewStdioServer(s.mcpServer).Listen(ctx, in, out)
}

func (s *Server) registerTools() {
	for _, t := range s.tools() {
		s.mcpServer.AddTool(t.tool, t.handler)
	}
}

func (s *Server) setLastResult(result *runner.SuiteResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastResult = result
}

func (s *Server) getLastResult() *runner.SuiteResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastResult
}
