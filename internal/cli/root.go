// Package cli provides the command-line interface for datagov.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/datagov/internal/cli/commands"
	"github.com/leapstack-labs/datagov/internal/cli/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// configKey is used to store config in context.
type configKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "datagov",
		Short: "datagov - Data Governance Pipeline",
		Long: `datagov runs governed batch data pipelines.

It loads governance policies from datagov.yaml, catalogs the declared
datasets, enforces role-based access before any data is read, validates raw
CSV rows against quality rules, runs SQL transformations, and records
lineage plus a complete JSON audit log for every run.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for commands that run before a project exists
			switch cmd.Name() {
			case "help", "completion", "__complete", "init", "version":
				return nil
			}

			var err error
			cfg, err = config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = context.WithValue(ctx, config.LoggerKey(), newLogger(cfg.Verbose))
			cmd.SetContext(ctx)

			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					fmt.Fprintf(os.Stderr, "Using config file: %s\n", configFile)
				}
			}

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Governed data pipelines built with Go and DuckDB
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./datagov.yaml)")
	rootCmd.PersistentFlags().String("project-dir", "", "Path to the project root")
	rootCmd.PersistentFlags().String("raw-dir", "", "Path to raw input data directory")
	rootCmd.PersistentFlags().String("processed-dir", "", "Path to processed output directory")
	rootCmd.PersistentFlags().String("logs-dir", "", "Path to audit log directory")
	rootCmd.PersistentFlags().String("state", "", "Path to state database")
	rootCmd.PersistentFlags().String("env", "", "Environment name (dev, staging, prod)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	_ = rootCmd.RegisterFlagCompletionFunc("env", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"dev", "staging", "prod"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewCatalogCommand())
	rootCmd.AddCommand(commands.NewAccessCommand())
	rootCmd.AddCommand(commands.NewLineageCommand())
	rootCmd.AddCommand(commands.NewRunsCommand())
	rootCmd.AddCommand(commands.NewInitCommand())

	return rootCmd
}

// newLogger builds the CLI logger; debug text output in verbose mode,
// discard otherwise.
func newLogger(verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
