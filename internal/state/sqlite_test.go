package state

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/datagov/internal/testutil"
	"github.com/leapstack-labs/datagov/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Migrate(t *testing.T) {
	store := newTestStore(t)

	version, err := store.MigrationVersion()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, version, int64(1))
}

func TestSQLiteStore_CreateAndGetRun(t *testing.T) {
	store := newTestStore(t)

	run, err := store.CreateRun("dev")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "dev", run.Environment)
	assert.Equal(t, core.RunStatusRunning, run.Status)
	assert.False(t, run.StartedAt.IsZero())
	assert.Nil(t, run.CompletedAt)

	got, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, core.RunStatusRunning, got.Status)
	assert.Empty(t, got.AuditPath)
	assert.Empty(t, got.Error)
}

func TestSQLiteStore_GetRunNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRun(uuid.New().String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteStore_CompleteRun(t *testing.T) {
	store := newTestStore(t)

	run, err := store.CreateRun("dev")
	require.NoError(t, err)

	require.NoError(t, store.CompleteRun(run.ID, core.RunStatusCompleted, "logs/audit_x.json", ""))

	got, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
	assert.Equal(t, "logs/audit_x.json", got.AuditPath)
	assert.Empty(t, got.Error)
}

func TestSQLiteStore_CompleteRunFailed(t *testing.T) {
	store := newTestStore(t)

	run, err := store.CreateRun("prod")
	require.NoError(t, err)

	require.NoError(t, store.CompleteRun(run.ID, core.RunStatusFailed, "", "access denied"))

	got, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusFailed, got.Status)
	assert.Equal(t, "access denied", got.Error)
	assert.Empty(t, got.AuditPath)
}

func TestSQLiteStore_GetLatestRun(t *testing.T) {
	store := newTestStore(t)

	latest, err := store.GetLatestRun("dev")
	require.NoError(t, err)
	assert.Nil(t, latest, "no runs yet")

	first, err := store.CreateRun("dev")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := store.CreateRun("dev")
	require.NoError(t, err)
	_, err = store.CreateRun("prod")
	require.NoError(t, err)

	latest, err = store.GetLatestRun("dev")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.ID, latest.ID)
	assert.NotEqual(t, first.ID, latest.ID)
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	store := newTestStore(t)

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := store.CreateRun("dev")
		require.NoError(t, err)
		ids = append(ids, run.ID)
		time.Sleep(5 * time.Millisecond)
	}

	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	// Most recent first
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[0], runs[2].ID)

	limited, err := store.ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLiteStore_LineageRoundTrip(t *testing.T) {
	store := newTestStore(t)

	run, err := store.CreateRun("dev")
	require.NoError(t, err)

	records := []core.LineageRecord{
		{
			ID:             uuid.New().String(),
			Dataset:        "customers_valid",
			Sources:        []string{"data/raw/customers.csv"},
			Transformation: "quality_filter",
			ExecutedBy:     "datagov_pipeline",
			Timestamp:      time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
			Notes:          "3/4 rows passed 2 rules",
		},
		{
			ID:             uuid.New().String(),
			Dataset:        "active_customers",
			Sources:        []string{"customers_valid", "consent_valid"},
			Transformation: "active_customers",
			ExecutedBy:     "datagov_pipeline",
			Timestamp:      time.Date(2026, 6, 1, 12, 0, 1, 0, time.UTC),
		},
	}

	require.NoError(t, store.SaveLineage(run.ID, records))

	got, err := store.GetLineage(run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "customers_valid", got[0].Dataset)
	assert.Equal(t, []string{"data/raw/customers.csv"}, got[0].Sources)
	assert.Equal(t, "3/4 rows passed 2 rules", got[0].Notes)

	assert.Equal(t, "active_customers", got[1].Dataset)
	assert.Equal(t, []string{"customers_valid", "consent_valid"}, got[1].Sources)
	assert.Empty(t, got[1].Notes)
}

func TestSQLiteStore_LineageEmptyRun(t *testing.T) {
	store := newTestStore(t)

	run, err := store.CreateRun("dev")
	require.NoError(t, err)
	require.NoError(t, store.SaveLineage(run.ID, nil))

	got, err := store.GetLineage(run.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteStore_QualitySummaryRoundTrip(t *testing.T) {
	store := newTestStore(t)

	run, err := store.CreateRun("dev")
	require.NoError(t, err)

	counts := []core.DatasetCounts{
		{Dataset: "customers", Input: 4, Valid: 1, Issues: 3},
		{Dataset: "orders", Input: 10, Valid: 10, Issues: 0},
	}
	require.NoError(t, store.SaveQualitySummary(run.ID, counts))

	got, err := store.GetQualitySummary(run.ID)
	require.NoError(t, err)
	assert.Equal(t, counts, got)
}
