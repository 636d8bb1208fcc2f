package main

import (
	"strconv"

	"github.com/spf13/cobra"
)

func runsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent pipeline runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := loadServices(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			entries, err := svc.runs.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.StartedAt.Local().Format("2006-01-02 15:04:05"),
					e.Pipeline,
					e.AgentID,
					e.Outcome,
					e.ErrorKind,
					strconv.FormatBool(e.UsedTool),
					e.Duration.String(),
				})
			}
			printTable(cmd.OutOrStdout(), "Recent runs", []string{"STARTED", "PIPELINE", "AGENT", "OUTCOME", "ERROR", "TOOL", "DURATION"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}
