package adapter

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/leapstack-labs/datagov/pkg/core"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec, Query, ReadTable, CreateTableFromRows and WriteCSV
// implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger

	// Placeholder formats the n-th (1-based) statement placeholder
	// ("?" for DuckDB, "$1" for Postgres). Concrete adapters set it.
	Placeholder func(n int) string
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	_, err := b.DB.ExecContext(ctx, sqlStr)
	if err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Query executes a SQL statement that returns rows.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string) (*core.Rows, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := b.DB.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &core.Rows{Rows: rows}, nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// ReadTable fetches all rows of a table as strings, preserving column order.
func (b *BaseSQLAdapter) ReadTable(ctx context.Context, tableName string) (*core.Table, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	query := fmt.Sprintf("SELECT * FROM %s", SanitizeIdentifier(tableName)) //nolint:gosec // identifier is sanitized
	rows, err := b.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", tableName, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns for %s: %w", tableName, err)
	}

	table := &core.Table{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row from %s: %w", tableName, err)
		}

		row := make(core.Row, len(cols))
		for i, col := range cols {
			row[col] = stringifyValue(values[i])
		}
		table.Rows = append(table.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows of %s: %w", tableName, err)
	}

	return table, nil
}

// CreateTableFromRows materializes an in-memory table, replacing any existing
// table of that name. All columns are created as TEXT.
func (b *BaseSQLAdapter) CreateTableFromRows(ctx context.Context, tableName string, data *core.Table) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	if data == nil || len(data.Columns) == 0 {
		return fmt.Errorf("cannot create table %s: no columns", tableName)
	}

	safeTable := SanitizeIdentifier(tableName)

	if _, err := b.DB.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", safeTable)); err != nil {
		return fmt.Errorf("failed to drop existing table %s: %w", tableName, err)
	}

	colDefs := make([]string, len(data.Columns))
	for i, col := range data.Columns {
		colDefs[i] = fmt.Sprintf("%s TEXT", SanitizeIdentifier(col))
	}
	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", safeTable, strings.Join(colDefs, ", "))
	if _, err := b.DB.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	if len(data.Rows) == 0 {
		return nil
	}

	placeholders := make([]string, len(data.Columns))
	for i := range placeholders {
		placeholders[i] = b.placeholder(i + 1)
	}
	insertSQL := fmt.Sprintf("INSERT INTO %s VALUES (%s)", safeTable, strings.Join(placeholders, ", "))

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range data.Rows {
		args := make([]any, len(data.Columns))
		for i, col := range data.Columns {
			args[i] = row[col]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert into %s: %w", tableName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit insert into %s: %w", tableName, err)
	}

	return nil
}

// WriteCSV exports a table to a CSV file. Concrete adapters may override
// this with an engine-native export (e.g. DuckDB COPY TO).
func (b *BaseSQLAdapter) WriteCSV(ctx context.Context, tableName string, filePath string) error {
	table, err := b.ReadTable(ctx, tableName)
	if err != nil {
		return err
	}

	f, err := os.Create(filePath) //nolint:gosec // output path comes from pipeline configuration
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(table.Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, col := range table.Columns {
			record[i] = row[col]
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}

	return f.Close()
}

// placeholder falls back to "?" when the concrete adapter didn't set one.
func (b *BaseSQLAdapter) placeholder(n int) string {
	if b.Placeholder != nil {
		return b.Placeholder(n)
	}
	return "?"
}

// SanitizeIdentifier strips characters that are not valid in a plain SQL
// identifier. It keeps letters, digits, underscores and dots (for
// schema-qualified names).
func SanitizeIdentifier(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// stringifyValue converts a scanned database value to its string form.
// NULLs become empty strings.
func stringifyValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
