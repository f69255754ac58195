package core

import "time"

// DatasetCounts summarizes the validation outcome for one dataset.
type DatasetCounts struct {
	Dataset string `json:"dataset"`
	Input   int    `json:"input_rows"`
	Valid   int    `json:"valid_rows"`
	Issues  int    `json:"issues"`
}

// AuditLog is the single externally visible artifact of a pipeline run
// besides the processed data. It is assembled once at the end of a run and
// serialized as JSON. Given a fixed configuration and fixed input, two runs
// produce identical content except for RunID and the timestamp fields.
type AuditLog struct {
	RunID       string    `json:"run_id"`
	Environment string    `json:"environment"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`

	// Regulations summarizes the regulatory regimes declared in config.
	Regulations map[string]string `json:"regulations,omitempty"`

	// Catalog is the full catalog export in registration order.
	Catalog []Asset `json:"catalog"`

	// AccessPolicies is the policy table export in configuration order.
	AccessPolicies []AccessPolicy `json:"access_policies"`

	// Decisions are the access checks evaluated during the run, in
	// evaluation order.
	Decisions []Decision `json:"access_decisions"`

	// QualityIssues are in row-then-rule order per dataset.
	QualityIssues []QualityIssue `json:"quality_issues"`

	// Counts summarizes validation per dataset, in processing order.
	Counts []DatasetCounts `json:"dataset_counts"`

	// Lineage records in append order.
	Lineage []LineageRecord `json:"lineage"`

	// Error is set when a step aborted the run; empty on success.
	Error string `json:"error,omitempty"`
}

// Failed reports whether the run recorded a fatal error.
func (a *AuditLog) Failed() bool {
	return a.Error != ""
}
