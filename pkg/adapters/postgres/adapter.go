// Package postgres provides a PostgreSQL database adapter for datagov.
package postgres

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leapstack-labs/datagov/pkg/adapter"
)

// Adapter implements the adapter.Adapter interface for PostgreSQL.
// It lets governed pipelines stage raw CSV assets into a shared Postgres
// instance instead of the default embedded DuckDB database.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{
			Logger:      logger,
			Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		},
	}
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildPostgresDSN(cfg)

	a.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if cfg.Options != nil {
		if mode, ok := cfg.Options["sslmode"]; ok {
			sslmode = mode
		}
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.User != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.User)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}

	return dsn
}

// GetTableMetadata retrieves metadata for a specified table.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	schema := "public"
	tableName := table
	if parts := strings.Split(table, "."); len(parts) == 2 {
		schema = parts[0]
		tableName = parts[1]
	}

	query := `
		SELECT
			column_name,
			data_type,
			is_nullable,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := a.DB.QueryContext(ctx, query, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []adapter.Column
	for rows.Next() {
		var col adapter.Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s.%s", schema, tableName) //nolint:gosec // table names are validated by caller
	var rowCount int64
	if err := a.DB.QueryRowContext(ctx, countQuery).Scan(&rowCount); err != nil {
		rowCount = 0
	}

	return &adapter.Metadata{
		Schema:   schema,
		Name:     tableName,
		Columns:  columns,
		RowCount: rowCount,
	}, nil
}

// LoadCSV loads data from a CSV file into a table using COPY FROM STDIN.
// All columns are created as TEXT so quality rules see raw values.
func (a *Adapter) LoadCSV(ctx context.Context, tableName string, filePath string) error {
	if a.DB == nil {
		return fmt.Errorf("database connection not established")
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	file, err := os.Open(absPath) //nolint:gosec // path comes from pipeline configuration
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	headers, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	if err := a.createTextTable(ctx, tableName, headers); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	if _, err := file.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to reset file: %w", err)
	}

	if err := a.copyFromCSV(ctx, tableName, file); err != nil {
		return fmt.Errorf("failed to copy data: %w", err)
	}

	return nil
}

// createTextTable creates or replaces a table with all TEXT columns.
func (a *Adapter) createTextTable(ctx context.Context, tableName string, columns []string) error {
	safeTable := adapter.SanitizeIdentifier(tableName)

	dropSQL := fmt.Sprintf("DROP TABLE IF EXISTS %s", safeTable)
	if _, err := a.DB.ExecContext(ctx, dropSQL); err != nil {
		return err
	}

	var colDefs []string
	for _, col := range columns {
		colDefs = append(colDefs, fmt.Sprintf("%s TEXT", adapter.SanitizeIdentifier(col)))
	}

	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", safeTable, strings.Join(colDefs, ", "))
	_, err := a.DB.ExecContext(ctx, createSQL)
	return err
}

// copyFromCSV uses PostgreSQL COPY to load CSV data.
func (a *Adapter) copyFromCSV(ctx context.Context, tableName string, file *os.File) error {
	conn, err := a.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	return conn.Raw(func(driverConn any) error {
		pgxConn := driverConn.(*stdlib.Conn).Conn()

		copySQL := fmt.Sprintf("COPY %s FROM STDIN WITH (FORMAT csv, HEADER true)",
			adapter.SanitizeIdentifier(tableName))
		_, err := pgxConn.PgConn().CopyFrom(ctx, file, copySQL)
		return err
	})
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
