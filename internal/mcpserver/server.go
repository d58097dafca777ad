package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"table-keeper/internal/orchestrator"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server exposes session enforcement and audits to operator tooling over MCP.
type Server struct {
	orch *orchestrator.Orchestrator

	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

func New(orch *orchestrator.Orchestrator) *Server {
	mcpSrv := server.NewMCPServer(
		"table-keeper",
		"0.1.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithResourceRecovery(),
	)
	s := &Server{
		orch:       orch,
		mcpServer:  mcpSrv,
		httpServer: server.NewStreamableHTTPServer(mcpSrv, server.WithStateLess(true), server.WithDisableStreaming(true)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer
}

func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"session://{session_id}/audit",
			"session_audit",
			mcp.WithTemplateDescription("Read-only deadline audit of one session"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			raw := request.Params.URI
			sessionID, ok := sessionIDFromURI(raw)
			if !ok {
				return nil, nil
			}
			report, err := s.orch.Audit(ctx, sessionID)
			if err != nil {
				return nil, err
			}
			payload, err := json.Marshal(report)
			if err != nil {
				return nil, err
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      raw,
					MIMEType: "application/json",
					Text:     string(payload),
				},
			}, nil
		},
	)
}

func sessionIDFromURI(raw string) (string, bool) {
	if !strings.HasPrefix(raw, "session://") || !strings.HasSuffix(raw, "/audit") {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(raw, "session://"), "/audit")
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
