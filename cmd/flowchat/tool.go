package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/metalagman/flowchat/internal/tools"
	"github.com/spf13/cobra"
)

func toolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tool",
		Short: "Inspect and invoke registered tools",
	}
	cmd.AddCommand(toolListCmd())
	cmd.AddCommand(toolInvokeCmd())
	return cmd
}

func toolListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered tools",
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry := tools.NewDefaultRegistry()
			rows := [][]string{}
			for _, s := range registry.List() {
				params := make([]string, 0, len(s.Params))
				for _, p := range s.Params {
					params = append(params, p.Name)
				}
				rows = append(rows, []string{s.Name, strings.Join(params, ","), s.Description})
			}
			printTable(cmd.OutOrStdout(), "Tools", []string{"NAME", "PARAMETERS", "DESCRIPTION"}, rows)
			return nil
		},
	}
}

func toolInvokeCmd() *cobra.Command {
	var params map[string]string
	cmd := &cobra.Command{
		Use:   "invoke <name>",
		Short: "Invoke a tool directly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := tools.NewDefaultRegistry().Invoke(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			if tools.IsToolError(out) {
				return errors.New(out)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringToStringVarP(&params, "param", "p", nil, "tool parameter as key=value (repeatable)")
	return cmd
}
