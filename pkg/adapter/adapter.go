// Package adapter provides database adapter interfaces and shared
// implementations for datagov's pipeline engine.
//
// This package contains the public contract that all adapters must implement.
// Concrete adapter implementations are in pkg/adapters/ subdirectories.
package adapter

import (
	"context"

	"github.com/leapstack-labs/datagov/pkg/core"
)

// Type aliases so adapter implementations can avoid importing pkg/core
// for the common cases.
type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Column is an alias for core.Column.
	Column = core.Column

	// Metadata is an alias for core.TableMetadata.
	Metadata = core.TableMetadata

	// Rows is an alias for core.Rows.
	Rows = core.Rows
)

// Adapter defines the interface that all database adapters must implement.
// The pipeline engine uses it to stage raw datasets, read them back for
// validation, and materialize processed outputs.
type Adapter interface {
	// Connect establishes a connection using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// GetTableMetadata retrieves metadata for a specified table.
	GetTableMetadata(ctx context.Context, table string) (*Metadata, error)

	// LoadCSV loads data from a CSV file into a table, creating the table
	// if needed.
	LoadCSV(ctx context.Context, tableName string, filePath string) error

	// ReadTable fetches all rows of a table as strings, preserving column
	// order. Quality rules parse the values as needed.
	ReadTable(ctx context.Context, tableName string) (*core.Table, error)

	// CreateTableFromRows materializes an in-memory table, replacing any
	// existing table of that name. All columns are created as TEXT.
	CreateTableFromRows(ctx context.Context, tableName string, data *core.Table) error

	// WriteCSV exports a table to a CSV file at filePath.
	WriteCSV(ctx context.Context, tableName string, filePath string) error
}
