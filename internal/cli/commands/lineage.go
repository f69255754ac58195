package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewLineageCommand creates the lineage command.
func NewLineageCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "lineage [run-id]",
		Short: "Show lineage records for a run",
		Long: `Show the lineage records persisted for a run, in the order they were
produced. Without a run ID, the latest run in the current environment is
used.`,
		Example: `  # Lineage of the latest run
  datagov lineage

  # Lineage of a specific run
  datagov lineage 6f1c9a10-4b7e-4f5e-9d2a-8c3c1e2d4b5a`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) > 0 {
				runID = args[0]
			}
			return runLineage(cmd, runID, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runLineage(cmd *cobra.Command, runID string, jsonOutput bool) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	store := cmdCtx.Engine.Store()

	if runID == "" {
		run, err := store.GetLatestRun(cmdCtx.Cfg.Environment)
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("no runs found for environment %q", cmdCtx.Cfg.Environment)
		}
		runID = run.ID
	}

	records, err := store.GetLineage(runID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	fmt.Fprintf(out, "Lineage for run %s\n", runID)
	t := newTable(out)
	t.AppendHeader(table.Row{"Dataset", "Sources", "Transformation", "Executed By", "Timestamp"})
	for _, rec := range records {
		t.AppendRow(table.Row{
			rec.Dataset,
			strings.Join(rec.Sources, ", "),
			rec.Transformation,
			rec.ExecutedBy,
			rec.Timestamp.Format(time.RFC3339),
		})
	}
	t.Render()
	fmt.Fprintf(out, "(%d records)\n", len(records))

	return nil
}
