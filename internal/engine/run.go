package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/leapstack-labs/datagov/pkg/core"
)

// Run executes one full governed pipeline run: access enforcement, staging,
// quality validation, transformations, lineage and audit. The audit log is
// written and the run recorded in the state store even when a step fails; the
// returned AuditLog is never nil once a run was created.
func (e *Engine) Run(ctx context.Context) (*core.AuditLog, error) {
	run, err := e.store.CreateRun(e.environment)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	e.logger.Info("run started",
		slog.String("run_id", run.ID),
		slog.String("environment", e.environment))

	audit := &core.AuditLog{
		RunID:          run.ID,
		Environment:    e.environment,
		StartedAt:      run.StartedAt,
		Regulations:    e.policies.Regulations,
		Catalog:        e.catalog.Export(),
		AccessPolicies: e.controller.Export(),
	}

	runErr := e.execute(ctx, audit)

	audit.Lineage = e.tracker.Records()
	audit.FinishedAt = time.Now().UTC()

	status := core.RunStatusCompleted
	if runErr != nil {
		audit.Error = runErr.Error()
		status = core.RunStatusFailed
	}

	auditPath, auditErr := e.writeAuditLog(audit)
	if auditErr != nil {
		e.logger.Error("failed to write audit log", slog.Any("error", auditErr))
		if runErr == nil {
			runErr = auditErr
			audit.Error = auditErr.Error()
			status = core.RunStatusFailed
		}
	}

	if err := e.store.CompleteRun(run.ID, status, auditPath, audit.Error); err != nil {
		e.logger.Error("failed to record run completion", slog.Any("error", err))
	}
	if err := e.store.SaveLineage(run.ID, audit.Lineage); err != nil {
		e.logger.Error("failed to persist lineage", slog.Any("error", err))
	}
	if err := e.store.SaveQualitySummary(run.ID, audit.Counts); err != nil {
		e.logger.Error("failed to persist quality summary", slog.Any("error", err))
	}

	if runErr != nil {
		e.logger.Error("run failed",
			slog.String("run_id", run.ID),
			slog.Any("error", runErr))
		return audit, runErr
	}

	e.logger.Info("run completed",
		slog.String("run_id", run.ID),
		slog.Int("datasets", len(audit.Counts)),
		slog.Int("quality_issues", len(audit.QualityIssues)),
		slog.String("audit", auditPath))
	return audit, nil
}

// execute performs the pipeline steps, appending decisions, issues, counts
// and lineage to the audit log as it goes. Partial results collected before
// a failure remain in the audit.
func (e *Engine) execute(ctx context.Context, audit *core.AuditLog) error {
	if err := e.ensureDBConnected(ctx); err != nil {
		return err
	}

	if err := os.MkdirAll(e.processedDir, 0o755); err != nil {
		return fmt.Errorf("failed to create processed dir: %w", err)
	}

	for _, spec := range e.datasets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.processDataset(ctx, spec, audit); err != nil {
			return err
		}
	}

	for _, t := range e.transformations {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.runTransformation(ctx, t); err != nil {
			return fmt.Errorf("transformation %q: %w", t.Name, err)
		}
	}

	return nil
}

// processDataset enforces read access for the dataset's reader role, stages
// the raw file, validates it and materializes the valid rows both in the
// database and as a processed CSV.
func (e *Engine) processDataset(ctx context.Context, spec DatasetSpec, audit *core.AuditLog) error {
	asset := spec.Asset
	logger := e.logger.With(slog.String("dataset", asset.Name))

	decision, err := e.controller.Enforce(spec.ReaderRole, asset.Name, "read")
	audit.Decisions = append(audit.Decisions, decision)
	if err != nil {
		return err
	}

	if _, err := os.Stat(asset.SourcePath); err != nil {
		return fmt.Errorf("dataset %q: source file %s: %w", asset.Name, asset.SourcePath, err)
	}

	logger.Debug("staging raw data", slog.String("source", asset.SourcePath))
	if err := e.db.LoadCSV(ctx, asset.Name, asset.SourcePath); err != nil {
		return fmt.Errorf("dataset %q: %w", asset.Name, err)
	}

	if err := e.checkDeclaredSchema(ctx, asset); err != nil {
		return err
	}

	table, err := e.db.ReadTable(ctx, asset.Name)
	if err != nil {
		return fmt.Errorf("dataset %q: %w", asset.Name, err)
	}

	valid, issues := e.validator.Validate(asset.Name, table)
	audit.QualityIssues = append(audit.QualityIssues, issues...)
	audit.Counts = append(audit.Counts, core.DatasetCounts{
		Dataset: asset.Name,
		Input:   table.RowCount(),
		Valid:   valid.RowCount(),
		Issues:  len(issues),
	})

	validName := asset.Name + "_valid"
	if err := e.db.CreateTableFromRows(ctx, validName, valid); err != nil {
		return fmt.Errorf("dataset %q: %w", asset.Name, err)
	}

	outPath := filepath.Join(e.processedDir, validName+".csv")
	if err := e.db.WriteCSV(ctx, validName, outPath); err != nil {
		return fmt.Errorf("dataset %q: %w", asset.Name, err)
	}

	e.tracker.Record(validName, []string{asset.SourcePath}, "quality_filter",
		e.executedBy, fmt.Sprintf("%d/%d rows passed %d rules",
			valid.RowCount(), table.RowCount(), e.validator.RuleCount(asset.Name)))

	logger.Info("dataset validated",
		slog.Int("input_rows", table.RowCount()),
		slog.Int("valid_rows", valid.RowCount()),
		slog.Int("issues", len(issues)))
	return nil
}

// checkDeclaredSchema verifies the staged table contains every column the
// asset's schema declares. Extra columns are allowed; a missing declared
// column fails the dataset before validation.
func (e *Engine) checkDeclaredSchema(ctx context.Context, asset *core.Asset) error {
	if len(asset.Schema) == 0 {
		return nil
	}

	meta, err := e.db.GetTableMetadata(ctx, asset.Name)
	if err != nil {
		return fmt.Errorf("dataset %q: %w", asset.Name, err)
	}

	staged := make(map[string]bool, len(meta.Columns))
	for _, col := range meta.Columns {
		staged[strings.ToLower(col.Name)] = true
	}

	declared := make([]string, 0, len(asset.Schema))
	for col := range asset.Schema {
		declared = append(declared, col)
	}
	sort.Strings(declared)

	for _, col := range declared {
		if !staged[strings.ToLower(col)] {
			return fmt.Errorf("dataset %q: staged table is missing declared column %q", asset.Name, col)
		}
	}
	return nil
}

// runTransformation materializes the transformation output via CTAS and
// exports it to the processed directory.
func (e *Engine) runTransformation(ctx context.Context, t core.TransformationConfig) error {
	e.logger.Debug("running transformation",
		slog.String("name", t.Name),
		slog.String("output", t.Output))

	// DROP then CREATE instead of CREATE OR REPLACE so the same statements
	// work on both duckdb and postgres.
	if err := e.db.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", t.Output)); err != nil {
		return err
	}
	if err := e.db.Exec(ctx, fmt.Sprintf("CREATE TABLE %s AS %s", t.Output, t.SQL)); err != nil {
		return err
	}

	outPath := filepath.Join(e.processedDir, t.Output+".csv")
	if err := e.db.WriteCSV(ctx, t.Output, outPath); err != nil {
		return err
	}

	e.tracker.Record(t.Output, t.Inputs, t.Name, e.executedBy, t.Notes)
	return nil
}

// ValidateDatasets stages and validates every dataset without enforcing
// access, writing outputs or touching the run history. It backs the
// `datagov validate` command.
func (e *Engine) ValidateDatasets(ctx context.Context) ([]core.DatasetCounts, []core.QualityIssue, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, nil, err
	}

	var counts []core.DatasetCounts
	var allIssues []core.QualityIssue

	for _, spec := range e.datasets {
		asset := spec.Asset
		if _, err := os.Stat(asset.SourcePath); err != nil {
			return counts, allIssues, fmt.Errorf("dataset %q: source file %s: %w", asset.Name, asset.SourcePath, err)
		}
		if err := e.db.LoadCSV(ctx, asset.Name, asset.SourcePath); err != nil {
			return counts, allIssues, fmt.Errorf("dataset %q: %w", asset.Name, err)
		}
		if err := e.checkDeclaredSchema(ctx, asset); err != nil {
			return counts, allIssues, err
		}
		table, err := e.db.ReadTable(ctx, asset.Name)
		if err != nil {
			return counts, allIssues, fmt.Errorf("dataset %q: %w", asset.Name, err)
		}

		valid, issues := e.validator.Validate(asset.Name, table)
		allIssues = append(allIssues, issues...)
		counts = append(counts, core.DatasetCounts{
			Dataset: asset.Name,
			Input:   table.RowCount(),
			Valid:   valid.RowCount(),
			Issues:  len(issues),
		})
	}

	return counts, allIssues, nil
}

// writeAuditLog serializes the audit log as indented JSON under the logs
// directory and returns the file path.
func (e *Engine) writeAuditLog(audit *core.AuditLog) (string, error) {
	if err := os.MkdirAll(e.logsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create logs dir: %w", err)
	}

	// The timestamp alone has second resolution; the run id keeps two runs
	// started within the same second from overwriting each other.
	runID := audit.RunID
	if len(runID) > 8 {
		runID = runID[:8]
	}
	name := fmt.Sprintf("audit_%s_%s.json", audit.StartedAt.UTC().Format("20060102T150405Z"), runID)
	path := filepath.Join(e.logsDir, name)

	data, err := json.MarshalIndent(audit, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize audit log: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("failed to write audit log: %w", err)
	}
	return path, nil
}
