package core

import "strings"

// =============================================================================
// Sensitivity
// =============================================================================

// Sensitivity classifies how restricted an asset's data is.
type Sensitivity int

// Sensitivity levels, from least to most restricted.
const (
	// SensitivityPublic indicates data that may be shared freely.
	SensitivityPublic Sensitivity = iota
	// SensitivityInternal indicates data restricted to the organization.
	SensitivityInternal
	// SensitivityConfidential indicates data restricted to named roles.
	SensitivityConfidential
	// SensitivityRestricted indicates data under regulatory constraints.
	SensitivityRestricted
)

// String returns the string representation of the sensitivity level.
func (s Sensitivity) String() string {
	switch s {
	case SensitivityPublic:
		return "public"
	case SensitivityInternal:
		return "internal"
	case SensitivityConfidential:
		return "confidential"
	case SensitivityRestricted:
		return "restricted"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so sensitivity renders as a
// name rather than a number in the audit log.
func (s Sensitivity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseSensitivity converts a string to a Sensitivity value.
// Returns the sensitivity and true if valid, or SensitivityRestricted and
// false if invalid (unknown classifications default to the most restricted).
func ParseSensitivity(s string) (Sensitivity, bool) {
	switch strings.ToLower(s) {
	case "public":
		return SensitivityPublic, true
	case "internal":
		return SensitivityInternal, true
	case "confidential":
		return SensitivityConfidential, true
	case "restricted":
		return SensitivityRestricted, true
	default:
		return SensitivityRestricted, false
	}
}

// =============================================================================
// Asset
// =============================================================================

// Asset describes a governed dataset registered in the catalog.
// Assets are created once at startup from configuration and never mutated.
type Asset struct {
	// Name uniquely identifies the asset within the catalog.
	Name string `json:"name"`

	// Description is free-form documentation for auditors.
	Description string `json:"description,omitempty"`

	// Owner is the role accountable for the asset.
	Owner string `json:"owner"`

	// Sensitivity classifies the asset's data.
	Sensitivity Sensitivity `json:"sensitivity"`

	// Tags are free-form labels (e.g. "pii", "finance").
	Tags []string `json:"tags,omitempty"`

	// SourcePath is the location of the raw data (CSV path or table name).
	SourcePath string `json:"source_path"`

	// Schema maps column names to declared types. When set, staged tables
	// are checked for the declared columns after loading.
	Schema map[string]string `json:"schema,omitempty"`

	// Regulations lists regulatory regimes covering the asset
	// (e.g. "lgpd", "iso_27001").
	Regulations []string `json:"regulations,omitempty"`
}

// =============================================================================
// Row / Table
// =============================================================================

// Row is a single flat record read from a data source.
// Values are kept as strings; quality rules parse them as needed.
type Row map[string]string

// Table holds tabular data with a stable column order.
type Table struct {
	Columns []string
	Rows    []Row
}

// RowCount returns the number of rows in the table.
func (t *Table) RowCount() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}
