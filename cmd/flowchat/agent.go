package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/metalagman/flowchat/internal/model"
	"github.com/metalagman/flowchat/internal/store"
	"github.com/spf13/cobra"
)

func agentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage chat agents",
	}
	cmd.AddCommand(agentListCmd())
	cmd.AddCommand(agentShowCmd())
	cmd.AddCommand(agentCreateCmd())
	cmd.AddCommand(agentUpdateCmd())
	cmd.AddCommand(agentDeleteCmd())
	cmd.AddCommand(agentFlowCmd("assign-flow", "Assign a workflow to an agent", (*store.AgentStore).AssignFlow))
	cmd.AddCommand(agentFlowCmd("remove-flow", "Remove a workflow from an agent", (*store.AgentStore).RemoveFlow))
	return cmd
}

func agentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List agents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := loadServices(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			agents, err := svc.agents.List(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(agents))
			for _, a := range agents {
				rows = append(rows, []string{
					a.ID,
					a.Name,
					strconv.FormatBool(a.Active),
					strings.Join(a.Tools, ","),
					strings.Join(a.Flows, ","),
				})
			}
			printTable(cmd.OutOrStdout(), "Agents", []string{"ID", "NAME", "ACTIVE", "TOOLS", "FLOWS"}, rows)
			return nil
		},
	}
}

func agentShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print an agent as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := loadServices(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			rec, err := svc.agents.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("agent %s: %w", args[0], err)
			}
			return printJSON(cmd, rec)
		},
	}
}

func agentCreateCmd() *cobra.Command {
	var spec model.AgentSpec
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an agent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := loadServices(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			rec, err := svc.agents.Create(cmd.Context(), spec)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render("created agent "+rec.ID))
			return nil
		},
	}
	cmd.Flags().StringVar(&spec.Name, "name", "", "agent name")
	cmd.Flags().StringVar(&spec.Description, "description", "", "agent description")
	cmd.Flags().StringVar(&spec.SystemPrompt, "prompt", "", "system prompt")
	cmd.Flags().StringSliceVar(&spec.Tools, "tools", nil, "allowed tools")
	cmd.Flags().StringSliceVar(&spec.Flows, "flows", nil, "assigned workflow ids")
	return cmd
}

func agentUpdateCmd() *cobra.Command {
	var (
		name, description, prompt string
		toolNames, flows          []string
		active                    bool
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change selected fields of an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch model.AgentPatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("prompt") {
				patch.SystemPrompt = &prompt
			}
			if flags.Changed("tools") {
				patch.Tools = &toolNames
			}
			if flags.Changed("flows") {
				patch.Flows = &flows
			}
			if flags.Changed("active") {
				patch.Active = &active
			}
			if patch.Empty() {
				return fmt.Errorf("no fields to update")
			}

			svc, err := loadServices(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			found, err := svc.agents.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("agent %s: %w", args[0], store.ErrNotFound)
			}
			fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render("updated agent "+args[0]))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "agent name")
	cmd.Flags().StringVar(&description, "description", "", "agent description")
	cmd.Flags().StringVar(&prompt, "prompt", "", "system prompt")
	cmd.Flags().StringSliceVar(&toolNames, "tools", nil, "allowed tools")
	cmd.Flags().StringSliceVar(&flows, "flows", nil, "assigned workflow ids")
	cmd.Flags().BoolVar(&active, "active", true, "whether the agent accepts chats")
	return cmd
}

func agentDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := loadServices(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			found, err := svc.agents.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("agent %s: %w", args[0], store.ErrNotFound)
			}
			fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render("deleted agent "+args[0]))
			return nil
		},
	}
}

func agentFlowCmd(use, short string, mutate func(*store.AgentStore, context.Context, string, string) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <agent-id> <flow-id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := loadServices(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			found, err := mutate(svc.agents, cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("agent %s: %w", args[0], store.ErrNotFound)
			}
			return nil
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
