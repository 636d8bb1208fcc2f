package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/metalagman/flowchat/internal/model"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func flowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Generate and inspect workflows",
	}
	cmd.AddCommand(flowGenerateCmd())
	cmd.AddCommand(flowListCmd())
	cmd.AddCommand(flowShowCmd())
	return cmd
}

func flowGenerateCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "generate <description>",
		Short: "Generate a workflow from a free-text description and save it",
		Args:  cobra.MinimumNArgs(1),
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
			res := orch.RunConfigPipeline(ctx, strings.Join(args, " "))
			if !res.OK() {
				if res.Failure.RawOutput != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), mutedStyle.Render(res.Failure.RawOutput))
				}
				return res.Failure
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render(res.Payload.Message))
			return writeWorkflow(out, res.Payload.Workflow, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", formatJSON, "output format: json or yaml")
	return cmd
}

func flowListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored workflows, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := loadServices(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			flows, err := svc.workflows.List(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(flows))
			for _, f := range flows {
				rows = append(rows, []string{f.Key, f.Name, f.CreatedAt, f.Description})
			}
			printTable(cmd.OutOrStdout(), "Workflows", []string{"ID", "NAME", "CREATED", "DESCRIPTION"}, rows)
			return nil
		},
	}
}

func flowShowCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := loadServices(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			doc, err := svc.workflows.Load(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("load flow %s: %w", args[0], err)
			}
			return writeWorkflow(cmd.OutOrStdout(), doc, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", formatJSON, "output format: json or yaml")
	return cmd
}

func writeWorkflow(w io.Writer, doc model.WorkflowDocument, format string) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
