package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/datagov/pkg/core"
)

// CreateRun creates a new pipeline run in running state.
func (s *SQLiteStore) CreateRun(env string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &core.Run{
		ID:          generateID(),
		Environment: env,
		Status:      core.RunStatusRunning,
		StartedAt:   time.Now().UTC(),
	}

	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("environment", env))

	_, err := s.db.Exec(
		`INSERT INTO runs (id, environment, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Environment, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(
		`SELECT id, environment, status, started_at, completed_at, audit_path, error
		 FROM runs WHERE id = ?`, id,
	)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run as completed with the given status.
func (s *SQLiteStore) CompleteRun(id string, status core.RunStatus, auditPath, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	now := time.Now().UTC()

	_, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, audit_path = ?, error = ? WHERE id = ?`,
		string(status), now, nullable(auditPath), nullable(errMsg), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetLatestRun retrieves the most recent run for an environment.
// Returns nil without error when no runs exist.
func (s *SQLiteStore) GetLatestRun(env string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(
		`SELECT id, environment, status, started_at, completed_at, audit_path, error
		 FROM runs WHERE environment = ? ORDER BY started_at DESC LIMIT 1`, env,
	)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves the most recent runs up to the given limit.
func (s *SQLiteStore) ListRuns(limit int) ([]*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, environment, status, started_at, completed_at, audit_path, error
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*core.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// scanner abstracts sql.Row and sql.Rows for scanRun.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*core.Run, error) {
	run := &core.Run{}
	var completedAt sql.NullTime
	var auditPath, errMsg sql.NullString
	var status string

	if err := sc.Scan(&run.ID, &run.Environment, &status, &run.StartedAt, &completedAt, &auditPath, &errMsg); err != nil {
		return nil, err
	}

	run.Status = core.RunStatus(status)
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	if auditPath.Valid {
		run.AuditPath = auditPath.String
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	return run, nil
}

// nullable converts an empty string to a NULL-storing value.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
