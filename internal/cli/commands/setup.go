// Package commands implements the datagov CLI subcommands.
package commands

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/datagov/internal/cli/config"
	"github.com/leapstack-labs/datagov/internal/engine"
	"github.com/leapstack-labs/datagov/pkg/pipeline"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Engine *engine.Engine
}

// NewCommandContext creates a CommandContext with an engine.
// Returns the context and a cleanup function that must be called (typically
// via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	eng, err := createEngine(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = eng.Close()
	}

	return &CommandContext{
		Cfg:    cfg,
		Logger: logger,
		Engine: eng,
	}, cleanup, nil
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to
// environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	// Fallback: read from environment with defaults
	return &config.Config{
		RawDir:       getEnvOrDefault("DATAGOV_RAW_DIR", config.DefaultRawDir),
		ProcessedDir: getEnvOrDefault("DATAGOV_PROCESSED_DIR", config.DefaultProcessedDir),
		LogsDir:      getEnvOrDefault("DATAGOV_LOGS_DIR", config.DefaultLogsDir),
		StatePath:    getEnvOrDefault("DATAGOV_STATE_PATH", config.DefaultStateFile),
		Environment:  getEnvOrDefault("DATAGOV_ENVIRONMENT", config.DefaultEnv),
		Verbose:      os.Getenv("DATAGOV_VERBOSE") == "true",
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	// Ensure state directory exists
	stateDir := filepath.Dir(cfg.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0o750); err != nil {
			return nil, err
		}
	}

	return pipeline.NewEngine(cfg, logger)
}

// newTable returns a go-pretty table writer mirrored to w with the style
// used by all datagov commands.
func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}
