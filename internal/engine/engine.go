// Package engine provides the governed pipeline execution engine.
// It sequences policy loading, catalog construction, access enforcement,
// dataset staging, quality validation, transformations and lineage into a
// single audited run.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/datagov/internal/access"
	"github.com/leapstack-labs/datagov/internal/catalog"
	"github.com/leapstack-labs/datagov/internal/lineage"
	"github.com/leapstack-labs/datagov/internal/quality"
	"github.com/leapstack-labs/datagov/internal/state"
	"github.com/leapstack-labs/datagov/pkg/adapter"
	"github.com/leapstack-labs/datagov/pkg/core"
)

// DatasetSpec binds a catalogued asset to the role whose read access is
// enforced before the asset's raw data is loaded.
type DatasetSpec struct {
	Asset      *core.Asset
	ReaderRole string
}

// Config holds engine configuration.
type Config struct {
	// RawDir is the directory holding raw input files.
	RawDir string
	// ProcessedDir is where valid rows and transformation outputs are written.
	ProcessedDir string
	// LogsDir is where audit logs are written.
	LogsDir string
	// StatePath is the path to the SQLite state database.
	StatePath string
	// Environment is the current environment (dev, staging, prod).
	Environment string
	// ExecutedBy is recorded in lineage entries.
	ExecutedBy string

	// Target contains adapter/database configuration.
	Target *core.AdapterConfig

	// Policies is the immutable policy set for this run.
	Policies *core.PolicySet

	// Datasets are the governed datasets, in processing order.
	Datasets []DatasetSpec

	// Transformations run after validation, in configuration order.
	Transformations []core.TransformationConfig

	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Engine orchestrates one governed pipeline run at a time.
type Engine struct {
	// Database adapter (lazy initialized)
	db          adapter.Adapter
	dbConfig    core.AdapterConfig
	dbConnected bool
	dbMu        sync.Mutex

	logger *slog.Logger

	store      core.Store
	catalog    *catalog.Catalog
	controller *access.Controller
	validator  *quality.Validator
	tracker    *lineage.Tracker

	policies        *core.PolicySet
	datasets        []DatasetSpec
	transformations []core.TransformationConfig

	rawDir       string
	processedDir string
	logsDir      string
	environment  string
	executedBy   string
}

// New creates a new engine with lazy database connection.
// It builds the catalog, access controller and quality validator up front;
// any error here is fatal configuration, surfaced before a run starts.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if cfg.Policies == nil {
		return nil, fmt.Errorf("engine requires a policy set")
	}
	if cfg.Target == nil {
		return nil, fmt.Errorf("engine requires a target configuration")
	}

	logger.Debug("initializing engine",
		slog.String("environment", cfg.Environment),
		slog.Int("datasets", len(cfg.Datasets)))

	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate state store: %w", err)
	}

	controller := access.NewController()
	for _, p := range cfg.Policies.AccessPolicies {
		if err := controller.AddPolicy(p); err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	cat := catalog.New()
	for _, spec := range cfg.Datasets {
		if err := cat.Register(spec.Asset); err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	validator, err := quality.NewValidator(cfg.Policies.QualityRules)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	env := cfg.Environment
	if env == "" {
		env = "dev"
	}
	executedBy := cfg.ExecutedBy
	if executedBy == "" {
		executedBy = "datagov_pipeline"
	}

	return &Engine{
		dbConfig:        *cfg.Target,
		logger:          logger,
		store:           store,
		catalog:         cat,
		controller:      controller,
		validator:       validator,
		tracker:         lineage.NewTracker(),
		policies:        cfg.Policies,
		datasets:        cfg.Datasets,
		transformations: cfg.Transformations,
		rawDir:          cfg.RawDir,
		processedDir:    cfg.ProcessedDir,
		logsDir:         cfg.LogsDir,
		environment:     env,
		executedBy:      executedBy,
	}, nil
}

// ensureDBConnected lazily connects the database adapter.
func (e *Engine) ensureDBConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}

	db, err := adapter.NewAdapter(e.dbConfig, e.logger)
	if err != nil {
		return err
	}

	e.logger.Debug("connecting adapter", slog.String("type", e.dbConfig.Type))
	if err := db.Connect(ctx, e.dbConfig); err != nil {
		return err
	}

	e.db = db
	e.dbConnected = true
	return nil
}

// Catalog returns the engine's asset catalog.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Controller returns the engine's access controller.
func (e *Engine) Controller() *access.Controller {
	return e.controller
}

// Store returns the engine's state store.
func (e *Engine) Store() core.Store {
	return e.store
}

// Validator returns the engine's quality validator.
func (e *Engine) Validator() *quality.Validator {
	return e.validator
}

// Close releases the adapter connection and the state store.
func (e *Engine) Close() error {
	var firstErr error

	e.dbMu.Lock()
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			firstErr = err
		}
		e.db = nil
		e.dbConnected = false
	}
	e.dbMu.Unlock()

	if e.store != nil {
		if err := e.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
