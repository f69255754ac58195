package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/leapstack-labs/datagov/pkg/core"
)

// SaveLineage persists a run's lineage records in append order.
func (s *SQLiteStore) SaveLineage(runID string, records []core.LineageRecord) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for i, rec := range records {
		sources, err := json.Marshal(rec.Sources)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to encode sources: %w", err)
		}

		_, err = tx.Exec(
			`INSERT INTO lineage_records
			 (id, run_id, dataset, sources, transformation, executed_by, timestamp, notes, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, runID, rec.Dataset, string(sources), rec.Transformation,
			rec.ExecutedBy, rec.Timestamp, nullable(rec.Notes), i,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to save lineage record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit lineage: %w", err)
	}
	return nil
}

// GetLineage retrieves a run's lineage records in append order.
func (s *SQLiteStore) GetLineage(runID string) ([]core.LineageRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, dataset, sources, transformation, executed_by, timestamp, notes
		 FROM lineage_records WHERE run_id = ? ORDER BY position`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query lineage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []core.LineageRecord
	for rows.Next() {
		var rec core.LineageRecord
		var sources string
		var notes sql.NullString

		if err := rows.Scan(&rec.ID, &rec.Dataset, &sources, &rec.Transformation,
			&rec.ExecutedBy, &rec.Timestamp, &notes); err != nil {
			return nil, fmt.Errorf("failed to scan lineage record: %w", err)
		}

		if err := json.Unmarshal([]byte(sources), &rec.Sources); err != nil {
			return nil, fmt.Errorf("failed to decode sources: %w", err)
		}
		if notes.Valid {
			rec.Notes = notes.String
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lineage: %w", err)
	}

	return records, nil
}
