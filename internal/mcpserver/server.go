// Package mcpserver exposes the tool registry over the Model Context Protocol.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/metalagman/flowchat/internal/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

const serverName = "flowchat"

// New returns an MCP server with one tool per registry entry.
func New(registry *tools.Registry, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil)
	for _, schema := range registry.List() {
		mcp.AddTool(server, &mcp.Tool{
			Name:        schema.Name,
			Description: describe(schema),
		}, invoke(registry, schema.Name))
	}
	return server
}

// Serve runs the server over stdio until ctx is done or the client disconnects.
func Serve(ctx context.Context, registry *tools.Registry, version string) error {
	log.Info().Int("tools", len(registry.List())).Msg("mcp: serving tools over stdio")
	if err := New(registry, version).Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func invoke(registry *tools.Registry, name string) mcp.ToolHandlerFor[map[string]any, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
		out, err := registry.Invoke(ctx, name, tools.StringArgs(args))
		if err != nil {
			return nil, nil, err
		}
		log.Debug().Str("tool", name).Bool("tool_error", tools.IsToolError(out)).Msg("mcp: tool invoked")
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: out}},
			IsError: tools.IsToolError(out),
		}, nil, nil
	}
}

// describe appends the parameter list, since arguments arrive as a free-form object.
func describe(schema tools.Schema) string {
	var b strings.Builder
	b.WriteString(schema.Description)
	if len(schema.Params) == 0 {
		return b.String()
	}
	b.WriteString("\n\nParameters:")
	for _, p := range schema.Params {
		req := "optional"
		if p.Required {
			req = "required"
		}
		fmt.Fprintf(&b, "\n- %s (%s, %s): %s", p.Name, p.Type, req, p.Description)
	}
	return b.String()
}
