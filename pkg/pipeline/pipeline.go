// Package pipeline is the programmatic entry point for running a governed
// pipeline. It builds an engine from a loaded configuration and executes one
// run, returning the audit log.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/datagov/internal/cli/config"
	"github.com/leapstack-labs/datagov/internal/engine"
	"github.com/leapstack-labs/datagov/pkg/core"

	// Register built-in adapters.
	_ "github.com/leapstack-labs/datagov/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/datagov/pkg/adapters/postgres"
)

// NewEngine builds a ready-to-run engine from a loaded configuration.
// The caller owns the engine and must Close it.
func NewEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	datasets := make([]engine.DatasetSpec, 0, len(cfg.Assets))
	for _, ac := range cfg.Assets {
		asset, err := ac.Asset()
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, engine.DatasetSpec{
			Asset:      asset,
			ReaderRole: ac.ReaderRole,
		})
	}

	return engine.New(engine.Config{
		RawDir:          cfg.RawDir,
		ProcessedDir:    cfg.ProcessedDir,
		LogsDir:         cfg.LogsDir,
		StatePath:       cfg.StatePath,
		Environment:     cfg.Environment,
		ExecutedBy:      cfg.ExecutedBy,
		Target:          cfg.Target,
		Policies:        cfg.PolicySet(),
		Datasets:        datasets,
		Transformations: cfg.Transformations,
		Logger:          logger,
	})
}

// Run loads the configuration at cfgFile (or discovers datagov.yaml when
// empty) and executes one full pipeline run.
//
// The returned audit log is non-nil whenever a run was started, including
// failed runs; the error then describes the step that aborted the run.
func Run(ctx context.Context, cfgFile string, logger *slog.Logger) (*core.AuditLog, error) {
	cfg, err := config.LoadConfig(cfgFile, nil)
	if err != nil {
		return nil, err
	}
	return RunWithConfig(ctx, cfg, logger)
}

// RunWithConfig executes one full pipeline run using an already loaded
// configuration.
func RunWithConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*core.AuditLog, error) {
	eng, err := NewEngine(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = eng.Close() }()

	return eng.Run(ctx)
}
