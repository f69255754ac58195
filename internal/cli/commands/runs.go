package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent pipeline runs",
		Long:  `List recent runs from the run history, most recent first.`,
		Example: `  # Show the last 20 runs
  datagov runs

  # Show the last 5 runs as JSON
  datagov runs --limit 5 --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRuns(cmd, limit, jsonOutput)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runRuns(cmd *cobra.Command, limit int, jsonOutput bool) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	runs, err := cmdCtx.Engine.Store().ListRuns(limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	t := newTable(out)
	t.AppendHeader(table.Row{"Run ID", "Environment", "Status", "Started", "Duration", "Audit Log"})
	for _, run := range runs {
		duration := ""
		if run.CompletedAt != nil {
			duration = run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		t.AppendRow(table.Row{
			run.ID,
			run.Environment,
			run.Status,
			run.StartedAt.Format(time.RFC3339),
			duration,
			run.AuditPath,
		})
	}
	t.Render()
	fmt.Fprintf(out, "(%d runs)\n", len(runs))

	return nil
}
