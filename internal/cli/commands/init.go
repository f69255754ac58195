package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// scaffold mirrors the datagov.yaml layout; field order here is the order
// written to the generated file.
type scaffold struct {
	Environment     string                    `yaml:"environment"`
	RawDir          string                    `yaml:"raw_dir"`
	ProcessedDir    string                    `yaml:"processed_dir"`
	LogsDir         string                    `yaml:"logs_dir"`
	StatePath       string                    `yaml:"state_path"`
	Regulations     map[string]string         `yaml:"regulations"`
	AccessPolicies  []scaffoldPolicy          `yaml:"access_policies"`
	Assets          []scaffoldAsset           `yaml:"assets"`
	QualityRules    map[string][]scaffoldRule `yaml:"quality_rules"`
	Transformations []scaffoldTransformation  `yaml:"transformations"`
}

type scaffoldPolicy struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Roles       []string `yaml:"roles"`
	Datasets    []string `yaml:"datasets"`
	Permissions []string `yaml:"permissions"`
}

type scaffoldAsset struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Owner       string   `yaml:"owner"`
	Sensitivity string   `yaml:"sensitivity"`
	Tags        []string `yaml:"tags,omitempty"`
	Source      string   `yaml:"source"`
	Regulations []string `yaml:"regulations,omitempty"`
	ReaderRole  string   `yaml:"reader_role"`
}

type scaffoldRule struct {
	Name     string         `yaml:"name"`
	Type     string         `yaml:"type"`
	Column   string         `yaml:"column"`
	Severity string         `yaml:"severity,omitempty"`
	Params   map[string]any `yaml:"params,omitempty"`
}

type scaffoldTransformation struct {
	Name   string   `yaml:"name"`
	SQL    string   `yaml:"sql"`
	Inputs []string `yaml:"inputs"`
	Output string   `yaml:"output"`
	Notes  string   `yaml:"notes,omitempty"`
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new datagov project",
		Long: `Initialize a new datagov project with a working example configuration.

This creates:
  - datagov.yaml with example assets, access policies and quality rules
  - data/raw/ with a sample customers.csv
  - rules/ with an example Starlark rule`,
		Example: `  # Initialize in current directory
  datagov init

  # Initialize in a new directory
  datagov init my-project

  # Force overwrite existing config
  datagov init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(cmd, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, "datagov.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("datagov.yaml already exists. Use --force to overwrite")
	}

	for _, sub := range []string{"data/raw", "data/processed", "logs", "rules"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o750); err != nil {
			return fmt.Errorf("failed to create %s: %w", sub, err)
		}
	}

	data, err := yaml.Marshal(exampleScaffold())
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	header := []byte("# datagov project configuration\n# Generated by 'datagov init'. Edit to match your datasets and policies.\n")
	if err := os.WriteFile(configPath, append(header, data...), 0o644); err != nil {
		return fmt.Errorf("failed to write datagov.yaml: %w", err)
	}

	files := map[string]string{
		filepath.Join(dir, "data/raw/customers.csv"): exampleCustomersCSV,
		filepath.Join(dir, "rules/consent.star"):     exampleConsentRule,
	}
	for path, content := range files {
		if _, err := os.Stat(path); err == nil && !force {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "datagov project initialized!")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Created:")
	fmt.Fprintln(out, "  datagov.yaml")
	fmt.Fprintln(out, "  data/raw/customers.csv")
	fmt.Fprintln(out, "  rules/consent.star")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Put your raw CSVs in data/raw/")
	fmt.Fprintln(out, "  2. Declare them under assets: in datagov.yaml")
	fmt.Fprintln(out, "  3. Run 'datagov validate' to check data quality")
	fmt.Fprintln(out, "  4. Run 'datagov run' to execute the governed pipeline")

	return nil
}

func exampleScaffold() scaffold {
	return scaffold{
		Environment:  "dev",
		RawDir:       "data/raw",
		ProcessedDir: "data/processed",
		LogsDir:      "logs",
		StatePath:    ".datagov/state.db",
		Regulations: map[string]string{
			"gdpr": "EU General Data Protection Regulation",
		},
		AccessPolicies: []scaffoldPolicy{
			{
				Name:        "analyst_read",
				Description: "Analysts may read customer data",
				Roles:       []string{"analyst"},
				Datasets:    []string{"customers"},
				Permissions: []string{"read"},
			},
		},
		Assets: []scaffoldAsset{
			{
				Name:        "customers",
				Description: "Customer master data with consent timestamps",
				Owner:       "data-team",
				Sensitivity: "confidential",
				Tags:        []string{"pii"},
				Source:      "customers.csv",
				Regulations: []string{"gdpr"},
				ReaderRole:  "analyst",
			},
		},
		QualityRules: map[string][]scaffoldRule{
			"customers": {
				{
					Name:     "consent_fresh",
					Type:     "recency",
					Column:   "consent_date",
					Severity: "error",
					Params:   map[string]any{"max_age_days": 365},
				},
				{
					Name:     "email_format",
					Type:     "pattern",
					Column:   "email",
					Severity: "warning",
					Params:   map[string]any{"regex": `^[^@\s]+@[^@\s]+\.[^@\s]+$`},
				},
				{
					Name:     "consent_not_revoked",
					Type:     "starlark",
					Column:   "consent_status",
					Severity: "error",
					Params:   map[string]any{"file": "rules/consent.star", "function": "check"},
				},
			},
		},
		Transformations: []scaffoldTransformation{
			{
				Name:   "active_customers",
				SQL:    "SELECT * FROM customers_valid WHERE consent_status = 'granted'",
				Inputs: []string{"customers_valid"},
				Output: "active_customers",
				Notes:  "Customers with active consent only",
			},
		},
	}
}

const exampleCustomersCSV = `customer_id,email,consent_status,consent_date
1,alice@example.com,granted,2026-03-01
2,bob@example.com,granted,2024-01-15
3,carol@example,revoked,2026-02-20
`

const exampleConsentRule = `# Custom quality rule: consent_status must be a known value.
# The function receives the cell value and returns True to pass,
# False to fail, or a string describing the failure.

def check(value):
    if value in ("granted", "revoked", "pending"):
        return True
    return "unknown consent status %s" % value
`
