package core

import "time"

// LineageRecord describes how one output dataset was produced.
// Records are appended during a run and never mutated or removed.
type LineageRecord struct {
	// ID is a UUID assigned at record time.
	ID string `json:"id"`

	// Dataset is the name of the produced output.
	Dataset string `json:"dataset"`

	// Sources lists the inputs the output was derived from.
	Sources []string `json:"sources"`

	// Transformation names the step that produced the output
	// (e.g. "quality_filter", "consent_filter").
	Transformation string `json:"transformation"`

	// ExecutedBy identifies the component that ran the transformation.
	ExecutedBy string `json:"executed_by"`

	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes,omitempty"`
}
