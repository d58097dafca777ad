package mcpserver

import (
	"fmt"

	"table-keeper/internal/orchestrator"

	"github.com/mark3labs/mcp-go/mcp"
)

func toolResult(data any) *mcp.CallToolResult {
	return mcp.NewToolResultStructuredOnly(data)
}

func toolError(code, message string) *mcp.CallToolResult {
	return toolErrorWith(code, message, false)
}

func toolErrorWith(code, message string, retry bool) *mcp.CallToolResult {
	body := map[string]any{
		"code":    code,
		"message": message,
	}
	if retry {
		body["retry"] = true
	}
	result := mcp.NewToolResultStructured(
		map[string]any{"error": body},
		fmt.Sprintf("%s: %s", code, message),
	)
	result.IsError = true
	return result
}

func enforceError(err error) *mcp.CallToolResult {
	if err == nil {
		return toolError("internal_error", "unknown enforce error")
	}
	_, code := orchestrator.MapEnforceError(err)
	return toolErrorWith(code, err.Error(), orchestrator.IsTransient(err))
}
