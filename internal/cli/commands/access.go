package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewAccessCommand creates the access command with its subcommands.
func NewAccessCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "access",
		Short: "Inspect access policies and evaluate checks",
	}

	cmd.AddCommand(newAccessListCommand())
	cmd.AddCommand(newAccessCheckCommand())

	return cmd
}

func newAccessListCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List access policies in evaluation order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAccessList(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runAccessList(cmd *cobra.Command, jsonOutput bool) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	policies := cmdCtx.Engine.Controller().Export()
	out := cmd.OutOrStdout()

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(policies)
	}

	t := newTable(out)
	t.AppendHeader(table.Row{"Name", "Roles", "Datasets", "Permissions"})
	for _, p := range policies {
		t.AppendRow(table.Row{
			p.Name,
			strings.Join(p.Roles, ", "),
			strings.Join(p.Datasets, ", "),
			strings.Join(p.Permissions, ", "),
		})
	}
	t.Render()
	fmt.Fprintf(out, "(%d policies, unmatched requests are denied)\n", len(policies))

	return nil
}

func newAccessCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <role> <dataset> <permission>",
		Short: "Evaluate a single access check",
		Long: `Evaluate whether role holds permission on dataset under the configured
policies. The first matching policy wins; no match means deny.`,
		Example: `  # Would the analyst role be allowed to read the orders dataset?
  datagov access check analyst orders read`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccessCheck(cmd, args[0], args[1], args[2])
		},
	}

	return cmd
}

func runAccessCheck(cmd *cobra.Command, role, dataset, permission string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	decision := cmdCtx.Engine.Controller().Check(role, dataset, permission)
	out := cmd.OutOrStdout()

	if decision.Allowed() {
		fmt.Fprintf(out, "allow: %s may %s %s (policy %q)\n",
			decision.Role, decision.Permission, decision.Dataset, decision.Policy)
		return nil
	}

	fmt.Fprintf(out, "deny: %s may not %s %s (no matching policy)\n",
		decision.Role, decision.Permission, decision.Dataset)
	return nil
}
