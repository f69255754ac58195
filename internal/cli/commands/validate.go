package commands

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/datagov/pkg/core"
	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate raw datasets without running the pipeline",
		Long: `Stage every declared dataset and run its quality rules, reporting the
issues found. Nothing is written to the processed directory and no run is
recorded; access policies are not enforced.

The command exits non-zero when any error-severity issue is found.`,
		Example: `  # Validate all datasets
  datagov validate

  # Validate and emit findings as JSON
  datagov validate --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output findings as JSON")

	return cmd
}

func runValidate(cmd *cobra.Command, jsonOutput bool) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	counts, issues, err := cmdCtx.Engine.ValidateDatasets(cmd.Context())
	if err != nil {
		return err
	}

	errorCount := 0
	for _, issue := range issues {
		if issue.Severity == core.SeverityError {
			errorCount++
		}
	}

	out := cmd.OutOrStdout()

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			Counts []core.DatasetCounts `json:"dataset_counts"`
			Issues []core.QualityIssue  `json:"quality_issues"`
		}{counts, issues}); err != nil {
			return err
		}
	} else {
		t := newTable(out)
		t.AppendHeader(table.Row{"Dataset", "Input Rows", "Valid Rows", "Issues"})
		for _, c := range counts {
			t.AppendRow(table.Row{c.Dataset, c.Input, c.Valid, c.Issues})
		}
		t.Render()

		if len(issues) > 0 {
			it := newTable(out)
			it.AppendHeader(table.Row{"Dataset", "Row", "Column", "Rule", "Severity", "Message"})
			for _, issue := range issues {
				it.AppendRow(table.Row{issue.Dataset, issue.Row, issue.Column, issue.Rule, issue.Severity, issue.Message})
			}
			it.Render()
		}
		fmt.Fprintf(out, "(%d issues, %d at error severity)\n", len(issues), errorCount)
	}

	if errorCount > 0 {
		return fmt.Errorf("validation found %d error-severity issues", errorCount)
	}
	return nil
}
