package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"rpcgolden/internal/app"
	"rpcgolden/internal/config"
	"rpcgolden/pkg/logging"
)

type toolEntry struct {
	tool    mcp.Tool
	handler server.ToolHandlerFunc
}

// tools returns every tool the server registers
func (s *Server) tools() []toolEntry {
	return []toolEntry{
		{s.listCasesTool(), s.handleListCases},
		{s.runCasesTool(), s.handleRunCases},
		{s.lastResultTool(), s.handleLastResult},
	}
}

// listCasesTool returns the tool definition for listing cases
func (s *Server) listCasesTool() mcp.Tool {
	return mcp.NewTool("case_list",
		mcp.WithDescription("List the golden test cases with their golden file status"),
		mcp.WithBoolean("implies",
			mcp.Description("Include the implies cases"),
			mcp.DefaultBool(false),
		),
	)
}

// runCasesTool returns the tool definition for running cases
func (s *Server) runCasesTool() mcp.Tool {
	return mcp.NewTool("case_run",
		mcp.WithDescription("Run golden test cases against fresh server instances and return the suite result"),
		mcp.WithString("cases",
			mcp.Description("Comma-separated case names; empty runs every case"),
		),
		mcp.WithBoolean("implies",
			mcp.Description("Include the implies cases"),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("keep_going",
			mcp.Description("Run every case instead of stopping at the first failure"),
			mcp.DefaultBool(true),
		),
		mcp.WithBoolean("create_missing",
			mcp.Description("Write golden files that do not exist yet"),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("recreate_broken",
			mcp.Description("Overwrite golden files that do not match"),
			mcp.DefaultBool(false),
		),
	)
}

// lastResultTool returns the tool definition for fetching the last result
func (s *Server) lastResultTool() mcp.Tool {
	return mcp.NewTool("case_last_result",
		mcp.WithDescription("Return the suite result of the most recent case_run call"),
	)
}

type caseInfo struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Kind           string `json:"kind"`
	Dir            string `json:"dir"`
	DefinitionPath string `json:"definition_path"`
	HasGolden      bool   `json:"has_golden"`
}

func (s *Server) handleListCases(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := s.configFor(request.GetArguments())

	application, err := app.NewApplication(cfg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cases, err := application.ListCases()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load cases: %v", err)), nil
	}

	infos := make([]caseInfo, 0, len(cases))
	for _, c := range cases {
		infos = append(infos, caseInfo{
			ID:             c.ID(),
			Name:           c.Name,
			Kind:           string(c.Kind),
			Dir:            c.Dir,
			DefinitionPath: c.DefinitionPath,
			HasGolden:      c.HasGolden(),
		})
	}

	return jsonResult(infos)
}

func (s *Server) handleRunCases(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := s.configFor(request.GetArguments())

	application, err := app.NewApplication(cfg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	logging.Info(subsystem, "Running cases (filter: %v)", cfg.Run.Cases)

	// stdout carries the protocol, so progress output is discarded
	reporter := app.NewReporter(config.OutputConfig{Quiet: true}, io.Discard)
	result, err := application.Run(ctx, reporter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Case run failed: %v", err)), nil
	}

	s.setLastResult(result)
	return jsonResult(result)
}

func (s *Server) handleLastResult(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result := s.getLastResult()
	if result == nil {
		return mcp.NewToolResultText("No case run has completed yet"), nil
	}
	return jsonResult(result)
}

// configFor applies tool arguments to a copy of the server configuration
func (s *Server) configFor(args map[string]interface{}) config.RPCGoldenConfig {
	cfg := s.config
	cfg.Run.Cases = nil
	// Diffs travel as plain text
	cfg.Output.NoColor = true
	cfg.Output.ReportPath = ""
	cfg.Run.KeepGoing = true

	if names, ok := args["cases"].(string); ok {
		for _, name := range strings.Split(names, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cfg.Run.Cases = append(cfg.Run.Cases, name)
			}
		}
	}
	if implies, ok := args["implies"].(bool); ok {
		cfg.Implies.Enabled = implies
	}
	if keepGoing, ok := args["keep_going"].(bool); ok {
		cfg.Run.KeepGoing = keepGoing
	}
	if createMissing, ok := args["create_missing"].(bool); ok {
		cfg.Golden.CreateMissing = createMissing
	}
	if recreateBroken, ok := args["recreate_broken"].(bool); ok {
		cfg.Golden.RecreateBroken = recreateBroken
	}

	return cfg
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
