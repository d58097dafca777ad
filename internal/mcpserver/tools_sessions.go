package mcpserver

import (
	"context"
	"strings"

	"table-keeper/internal/orchestrator"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"enforce_session",
			mcp.WithDescription("Apply any overdue deadline transitions to one session"),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
			mcp.WithString("source", mcp.Description("client|reconciler|debug, default debug")),
			mcp.WithString("request_id", mcp.Description("Optional correlation id")),
			mcp.WithBoolean("audit_only", mcp.Description("Report without writing")),
		),
		s.handleEnforceSession,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"audit_session",
			mcp.WithDescription("Describe a session's deadlines and the transitions an enforce call would apply"),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		),
		s.handleAuditSession,
	)
}

func (s *Server) handleEnforceSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := strings.TrimSpace(request.GetString("session_id", ""))
	if sessionID == "" {
		return toolError("invalid_request", "session_id is required"), nil
	}
	source := orchestrator.Source(request.GetString("source", string(orchestrator.SourceDebug)))
	resp, err := s.orch.Enforce(ctx, orchestrator.Request{
		SessionID: sessionID,
		Source:    source,
		RequestID: request.GetString("request_id", ""),
		AuditOnly: request.GetBool("audit_only", false),
	})
	if err != nil {
		return enforceError(err), nil
	}
	return toolResult(resp), nil
}

func (s *Server) handleAuditSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := strings.TrimSpace(request.GetString("session_id", ""))
	if sessionID == "" {
		return toolError("invalid_request", "session_id is required"), nil
	}
	report, err := s.orch.Audit(ctx, sessionID)
	if err != nil {
		return enforceError(err), nil
	}
	return toolResult(report), nil
}
