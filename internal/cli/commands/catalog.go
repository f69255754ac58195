package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the governed data assets",
		Long: `List every asset declared in the configuration, in declaration order,
with its sensitivity classification, owner and source.`,
		Example: `  # Show the catalog
  datagov catalog

  # Show the catalog as JSON
  datagov catalog --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCatalog(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runCatalog(cmd *cobra.Command, jsonOutput bool) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	assets := cmdCtx.Engine.Catalog().Export()
	out := cmd.OutOrStdout()

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(assets)
	}

	t := newTable(out)
	t.AppendHeader(table.Row{"Name", "Sensitivity", "Owner", "Source", "Tags", "Regulations"})
	for _, a := range assets {
		t.AppendRow(table.Row{
			a.Name,
			a.Sensitivity,
			a.Owner,
			a.SourcePath,
			strings.Join(a.Tags, ", "),
			strings.Join(a.Regulations, ", "),
		})
	}
	t.Render()
	fmt.Fprintf(out, "(%d assets)\n", len(assets))

	return nil
}
