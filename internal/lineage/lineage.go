// Package lineage records how outputs were produced during a pipeline run.
//
// A Tracker holds the append-only sequence of lineage records for one run.
// Records are never mutated or removed, and nothing is persisted here; the
// engine exports the sequence into the audit log and the state store.
package lineage

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/datagov/pkg/core"
)

// Tracker accumulates lineage records for a single run.
type Tracker struct {
	mu      sync.Mutex
	records []core.LineageRecord

	// now supplies record timestamps; overridable in tests.
	now func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// Record appends a lineage record describing how dataset was produced from
// sources by transformation, and returns the stored record.
func (t *Tracker) Record(dataset string, sources []string, transformation, executedBy, notes string) core.LineageRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := core.LineageRecord{
		ID:             uuid.New().String(),
		Dataset:        dataset,
		Sources:        append([]string(nil), sources...),
		Transformation: transformation,
		ExecutedBy:     executedBy,
		Timestamp:      t.now().UTC(),
		Notes:          notes,
	}
	t.records = append(t.records, rec)
	return rec
}

// Records returns a copy of all records in append order.
func (t *Tracker) Records() []core.LineageRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]core.LineageRecord, len(t.records))
	copy(out, t.records)
	return out
}

// Count returns the number of recorded entries.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}
