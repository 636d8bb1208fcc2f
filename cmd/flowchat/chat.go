package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/metalagman/flowchat/internal/pipeline"
	"github.com/spf13/cobra"
)

const replyWrapWidth = 100

// askFunc runs one chat turn.
type askFunc func(ctx context.Context, message string) pipeline.Result[pipeline.ChatReply]

func chatCmd() *cobra.Command {
	var (
		agentID     string
		persona     string
		toolNames   []string
		interactive bool
		raw         bool
	)
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the model, optionally as a stored agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := loadServices(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			orch, err := svc.orchestrator(ctx)
			if err != nil {
				return err
			}

			var allow []string
			if cmd.Flags().Changed("tools") {
				allow = append([]string{}, toolNames...)
			}
			ask := func(ctx context.Context, message string) pipeline.Result[pipeline.ChatReply] {
				if agentID != "" {
					return orch.RunAgentChat(ctx, agentID, message)
				}
				return orch.RunChatPipeline(ctx, message, persona, allow)
			}

			render := renderMarkdown
			if raw {
				render = func(s string) string { return s }
			}

			if interactive {
				return runChatTUI(ctx, ask, render, chatTitle(agentID))
			}
			if len(args) == 0 {
				return fmt.Errorf("message is required unless --interactive is set")
			}
			return chatOnce(ctx, cmd.OutOrStdout(), ask, render, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVar(&agentID, "agent", "", "chat as the stored agent with this id")
	cmd.Flags().StringVar(&persona, "persona", "", "system prompt for agent-less chat")
	cmd.Flags().StringSliceVar(&toolNames, "tools", nil, "tool allowlist for agent-less chat (empty disables tools)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "open an interactive chat session")
	cmd.Flags().BoolVar(&raw, "raw", false, "print replies without markdown rendering")
	return cmd
}

func chatOnce(ctx context.Context, w io.Writer, ask askFunc, render func(string) string, message string) error {
	res := ask(ctx, message)
	if !res.OK() {
		return res.Failure
	}
	fmt.Fprintln(w, render(res.Payload.Reply))
	if res.Payload.UsedTool {
		fmt.Fprintln(w, mutedStyle.Render("tool: "+res.Payload.ToolName))
	}
	return nil
}

func chatTitle(agentID string) string {
	if agentID == "" {
		return "flowchat"
	}
	return "flowchat · " + agentID
}

// renderMarkdown renders text for the terminal, falling back to the plain text.
func renderMarkdown(text string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(replyWrapWidth),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
