package core

import "database/sql"

// AdapterConfig holds connection configuration for a database adapter.
type AdapterConfig struct {
	// Type selects the registered adapter: duckdb, postgres.
	Type string `koanf:"type"`

	// Path is the database file path for file-based engines
	// (empty means in-memory).
	Path string `koanf:"path"`

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`
	Schema   string `koanf:"schema"`

	// Options holds additional driver-specific settings.
	Options map[string]string `koanf:"options"`
}

// Column describes a single column of a table.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Position int
}

// TableMetadata describes a table known to an adapter.
type TableMetadata struct {
	Schema   string
	Name     string
	Columns  []Column
	RowCount int64
}

// Rows wraps sql.Rows so adapter consumers do not import database/sql.
type Rows struct {
	*sql.Rows
}
