// Package core defines the shared language of the datagov system.
//
// This package contains:
//   - Domain entities (Asset, AccessPolicy, QualityIssue, LineageRecord, Run)
//   - The audit log document assembled at the end of every pipeline run
//   - Adapter-facing types (AdapterConfig, Column, TableMetadata, Rows)
//
// The Golden Rule: pkg/core imports ONLY the stdlib.
// All other packages depend on core, not the reverse.
package core
