package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// RegisterMCP exposes the catalog on an MCP server, executing every call
// through d.
func RegisterMCP(s *mcpserver.MCPServer, d *Dispatcher) error {
	if d == nil {
		return fmt.Errorf("dispatcher is required")
	}

	for _, tool := range Catalog() {
		name := tool.Name
		s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			input, err := json.Marshal(request.GetArguments())
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
			}

			res := d.Execute(ctx, Call{ID: uuid.NewString(), Name: name, Input: input})
			if res.IsError {
				return mcp.NewToolResultError(res.Payload), nil
			}
			return mcp.NewToolResultText(res.Payload), nil
		})
	}
	return nil
}
