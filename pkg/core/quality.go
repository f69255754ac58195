package core

import "strings"

// =============================================================================
// Severity
// =============================================================================

// Severity indicates the importance of a quality issue.
type Severity int

// Severity levels for quality issues.
const (
	// SeverityError indicates a violation that must be investigated.
	SeverityError Severity = iota
	// SeverityWarning indicates a violation that should be reviewed.
	SeverityWarning
	// SeverityInfo indicates informational feedback.
	SeverityInfo
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler for audit log output.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseSeverity converts a string to a Severity value.
// Returns the severity and true if valid, or SeverityWarning and false
// if invalid.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(s) {
	case "error", "high":
		return SeverityError, true
	case "warning", "medium":
		return SeverityWarning, true
	case "info", "low":
		return SeverityInfo, true
	default:
		return SeverityWarning, false
	}
}

// =============================================================================
// QualityIssue
// =============================================================================

// QualityIssue records a single rule violation on a single row.
// Issues are collected into the audit log and never persisted beyond it
// (aside from the per-run summary counts in the state store).
type QualityIssue struct {
	// Dataset is the asset the offending row belongs to.
	Dataset string `json:"dataset"`

	// Row is the 1-based position of the row in the raw input.
	Row int `json:"row"`

	// Column is the field the violated rule applies to.
	Column string `json:"column"`

	// Rule is the configured name of the violated rule.
	Rule string `json:"rule"`

	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}
