package state

import (
	"fmt"

	"github.com/leapstack-labs/datagov/pkg/core"
)

// SaveQualitySummary persists the per-dataset validation counts of a run.
func (s *SQLiteStore) SaveQualitySummary(runID string, counts []core.DatasetCounts) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for i, c := range counts {
		_, err := tx.Exec(
			`INSERT INTO quality_summary (run_id, dataset, input_rows, valid_rows, issues, position)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			runID, c.Dataset, c.Input, c.Valid, c.Issues, i,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to save quality summary: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit quality summary: %w", err)
	}
	return nil
}

// GetQualitySummary retrieves the per-dataset validation counts of a run
// in processing order.
func (s *SQLiteStore) GetQualitySummary(runID string) ([]core.DatasetCounts, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT dataset, input_rows, valid_rows, issues
		 FROM quality_summary WHERE run_id = ? ORDER BY position`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query quality summary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counts []core.DatasetCounts
	for rows.Next() {
		var c core.DatasetCounts
		if err := rows.Scan(&c.Dataset, &c.Input, &c.Valid, &c.Issues); err != nil {
			return nil, fmt.Errorf("failed to scan quality summary: %w", err)
		}
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quality summary: %w", err)
	}

	return counts, nil
}
