// Package mcp exposes the gateway to agent runtimes over the Model Context
// Protocol. Agents call skillgate tools instead of touching the host.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/skillgate/internal/gateway"
)

// Config holds MCP server configuration.
type Config struct {
	// Caller is the capability-set identity every request from this
	// transport runs as.
	Caller string
}

// Server wraps the MCP SDK server around the gateway pipeline.
type Server struct {
	mcpServer *mcpsdk.Server
	gw        *gateway.Gateway
	caller    string
}

// New creates an MCP server over an already-wired gateway.
func New(gw *gateway.Gateway, cfg Config) *Server {
	caller := cfg.Caller
	if caller == "" {
		caller = "local"
	}

	s := &Server{gw: gw, caller: caller}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "skillgate",
			Version: "0.1.0",
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// registerTools adds all skillgate tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "skillgate_run",
		Description: "Submit a tool call for gated execution. Safe low-risk calls run immediately in a sandbox; risky ones return pending_approval with a request_id.",
	}, s.handleRun)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "skillgate_check",
		Description: "Evaluate a tool call without executing it (dry-run). Returns the decision the gateway would make.",
	}, s.handleCheck)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "skillgate_approve",
		Description: "Approve a pending request. Returns a single-use token for skillgate_redeem.",
	}, s.handleApprove)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "skillgate_deny",
		Description: "Deny a pending request. Terminal: the request can never execute.",
	}, s.handleDeny)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "skillgate_redeem",
		Description: "Execute an approved request by redeeming its single-use token.",
	}, s.handleRedeem)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "skillgate_pending",
		Description: "List requests waiting for human approval.",
	}, s.handlePending)
}
