package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/datagov/pkg/core"
	"github.com/spf13/cobra"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	JSONOutput bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a full governed pipeline run",
		Long: `Execute one full pipeline run.

For every declared asset this enforces the reader role's access, stages the
raw CSV, validates rows against the asset's quality rules and writes the
valid rows to the processed directory. Configured SQL transformations run
afterwards. Every run produces a JSON audit log and is recorded in the run
history.`,
		Example: `  # Run the pipeline
  datagov run

  # Run against the staging environment
  datagov run --env staging

  # Print the audit log as JSON for CI/CD integration
  datagov run --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Print the audit log as JSON")

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	startTime := time.Now()
	audit, runErr := cmdCtx.Engine.Run(cmd.Context())

	if opts.JSONOutput && audit != nil {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(audit); err != nil {
			return err
		}
		return runErr
	}

	if audit == nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	status := core.RunStatusCompleted
	if audit.Failed() {
		status = core.RunStatusFailed
	}
	fmt.Fprintf(out, "Run %s: %s\n", audit.RunID, status)

	if len(audit.Counts) > 0 {
		t := newTable(out)
		t.AppendHeader(table.Row{"Dataset", "Input Rows", "Valid Rows", "Issues"})
		for _, c := range audit.Counts {
			t.AppendRow(table.Row{c.Dataset, c.Input, c.Valid, c.Issues})
		}
		t.Render()
	}

	fmt.Fprintf(out, "Access decisions: %d, quality issues: %d, lineage records: %d\n",
		len(audit.Decisions), len(audit.QualityIssues), len(audit.Lineage))

	if run, err := cmdCtx.Engine.Store().GetRun(audit.RunID); err == nil && run.AuditPath != "" {
		fmt.Fprintf(out, "Audit log: %s\n", run.AuditPath)
	}

	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}

	fmt.Fprintf(out, "Completed in %s\n", time.Since(startTime).Round(time.Millisecond))
	return nil
}
