package main

import (
	"github.com/metalagman/flowchat/internal/mcpserver"
	"github.com/metalagman/flowchat/internal/tools"
	"github.com/spf13/cobra"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the registered tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return mcpserver.Serve(cmd.Context(), tools.NewDefaultRegistry(), version)
		},
	}
}
