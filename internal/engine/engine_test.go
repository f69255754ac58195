package engine

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leapstack-labs/datagov/internal/access"
	"github.com/leapstack-labs/datagov/internal/testutil"
	"github.com/leapstack-labs/datagov/pkg/adapter"
	"github.com/leapstack-labs/datagov/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memAdapter is an in-memory adapter used to exercise the engine without a
// real database.
type memAdapter struct {
	tables map[string]*core.Table
	execs  []string
}

func init() {
	adapter.Register("mem", func(*slog.Logger) adapter.Adapter {
		return &memAdapter{tables: make(map[string]*core.Table)}
	})
}

func (m *memAdapter) Connect(context.Context, adapter.Config) error { return nil }
func (m *memAdapter) Close() error                                  { return nil }

func (m *memAdapter) Exec(_ context.Context, sql string) error {
	m.execs = append(m.execs, sql)
	return nil
}

func (m *memAdapter) Query(context.Context, string) (*adapter.Rows, error) {
	return nil, fmt.Errorf("not supported")
}

func (m *memAdapter) GetTableMetadata(_ context.Context, table string) (*adapter.Metadata, error) {
	t, ok := m.tables[table]
	if !ok {
		return nil, fmt.Errorf("table %s does not exist", table)
	}
	cols := make([]adapter.Column, len(t.Columns))
	for i, name := range t.Columns {
		cols[i] = adapter.Column{Name: name, Type: "TEXT", Position: i + 1}
	}
	return &adapter.Metadata{Name: table, Columns: cols, RowCount: int64(len(t.Rows))}, nil
}

func (m *memAdapter) LoadCSV(_ context.Context, tableName, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("empty csv %s", filePath)
	}

	table := &core.Table{Columns: records[0]}
	for _, rec := range records[1:] {
		row := make(core.Row, len(table.Columns))
		for i, col := range table.Columns {
			row[col] = rec[i]
		}
		table.Rows = append(table.Rows, row)
	}
	m.tables[tableName] = table
	return nil
}

func (m *memAdapter) ReadTable(_ context.Context, tableName string) (*core.Table, error) {
	table, ok := m.tables[tableName]
	if !ok {
		return nil, fmt.Errorf("table %s does not exist", tableName)
	}
	return table, nil
}

func (m *memAdapter) CreateTableFromRows(_ context.Context, tableName string, data *core.Table) error {
	m.tables[tableName] = data
	return nil
}

func (m *memAdapter) WriteCSV(_ context.Context, tableName, filePath string) error {
	table, ok := m.tables[tableName]
	if !ok {
		// Transformations create their output via Exec, which memAdapter
		// only records. Write a header-less placeholder in that case.
		return os.WriteFile(filePath, []byte{}, 0o644)
	}

	f, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(table.Columns); err != nil {
		return err
	}
	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, col := range table.Columns {
			record[i] = row[col]
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

const rawCustomersCSV = `customer_id,email,consent_date
1,alice@example.com,2026-03-01
2,bob@example.com,2024-01-15
3,carol@example,2026-02-20
4,dave@example.com,2099-01-01
`

func testEngineConfig(t *testing.T) Config {
	t.Helper()

	root := t.TempDir()
	rawDir := filepath.Join(root, "raw")
	require.NoError(t, os.MkdirAll(rawDir, 0o755))

	sourcePath := filepath.Join(rawDir, "customers.csv")
	require.NoError(t, os.WriteFile(sourcePath, []byte(rawCustomersCSV), 0o644))

	return Config{
		RawDir:       rawDir,
		ProcessedDir: filepath.Join(root, "processed"),
		LogsDir:      filepath.Join(root, "logs"),
		StatePath:    ":memory:",
		Environment:  "dev",
		ExecutedBy:   "test_pipeline",
		Target:       &core.AdapterConfig{Type: "mem"},
		Policies: &core.PolicySet{
			Regulations: map[string]string{"gdpr": "EU General Data Protection Regulation"},
			AccessPolicies: []core.AccessPolicy{
				{
					Name:        "analyst_read",
					Roles:       []string{"analyst"},
					Datasets:    []string{"customers"},
					Permissions: []string{"read"},
				},
			},
			QualityRules: map[string][]core.QualityRuleConfig{
				"customers": {
					{
						Name:     "consent_fresh",
						Type:     "recency",
						Column:   "consent_date",
						Severity: "error",
						Params:   map[string]any{"max_age_days": 365},
					},
					{
						Name:   "email_format",
						Type:   "pattern",
						Column: "email",
						Params: map[string]any{"regex": `^[^@\s]+@[^@\s]+\.[^@\s]+$`},
					},
				},
			},
		},
		Datasets: []DatasetSpec{
			{
				Asset: &core.Asset{
					Name:        "customers",
					Owner:       "data-team",
					Sensitivity: core.SensitivityConfidential,
					SourcePath:  sourcePath,
					Schema: map[string]string{
						"customer_id":  "integer",
						"email":        "text",
						"consent_date": "date",
					},
					Regulations: []string{"gdpr"},
				},
				ReaderRole: "analyst",
			},
		},
		Logger: testutil.NewTestLogger(t),
	}
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()

	eng, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	eng.validator.Now = func() time.Time {
		return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return eng
}

func TestEngine_Run(t *testing.T) {
	cfg := testEngineConfig(t)
	eng := newTestEngine(t, cfg)

	audit, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, audit)

	assert.NotEmpty(t, audit.RunID)
	assert.Equal(t, "dev", audit.Environment)
	assert.False(t, audit.Failed())
	assert.False(t, audit.FinishedAt.Before(audit.StartedAt))

	// Catalog and policy exports
	require.Len(t, audit.Catalog, 1)
	assert.Equal(t, "customers", audit.Catalog[0].Name)
	require.Len(t, audit.AccessPolicies, 1)

	// One allowed access decision
	require.Len(t, audit.Decisions, 1)
	assert.True(t, audit.Decisions[0].Allowed())
	assert.Equal(t, "analyst_read", audit.Decisions[0].Policy)

	// Rows 2 (stale consent), 3 (bad email) and 4 (future consent) fail
	require.Len(t, audit.Counts, 1)
	assert.Equal(t, 4, audit.Counts[0].Input)
	assert.Equal(t, 1, audit.Counts[0].Valid)
	assert.Equal(t, 3, audit.Counts[0].Issues)
	assert.Len(t, audit.QualityIssues, 3)

	// Lineage for the quality filter step
	require.Len(t, audit.Lineage, 1)
	assert.Equal(t, "customers_valid", audit.Lineage[0].Dataset)
	assert.Equal(t, "quality_filter", audit.Lineage[0].Transformation)
	assert.Equal(t, "test_pipeline", audit.Lineage[0].ExecutedBy)

	// Valid rows written to the processed dir
	validCSV := filepath.Join(cfg.ProcessedDir, "customers_valid.csv")
	content, err := os.ReadFile(validCSV)
	require.NoError(t, err)
	assert.Contains(t, string(content), "alice@example.com")
	assert.NotContains(t, string(content), "bob@example.com")
}

func TestEngine_RunWritesAuditLog(t *testing.T) {
	cfg := testEngineConfig(t)
	eng := newTestEngine(t, cfg)

	audit, err := eng.Run(context.Background())
	require.NoError(t, err)

	entries, err := os.ReadDir(cfg.LogsDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(cfg.LogsDir, entries[0].Name()))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, audit.RunID, decoded["run_id"])
	assert.Contains(t, decoded, "catalog")
	assert.Contains(t, decoded, "access_decisions")
	assert.Contains(t, decoded, "quality_issues")
	assert.Contains(t, decoded, "lineage")
}

func TestEngine_RunRecordsState(t *testing.T) {
	cfg := testEngineConfig(t)
	eng := newTestEngine(t, cfg)

	audit, err := eng.Run(context.Background())
	require.NoError(t, err)

	run, err := eng.Store().GetRun(audit.RunID)
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusCompleted, run.Status)
	assert.NotNil(t, run.CompletedAt)
	assert.NotEmpty(t, run.AuditPath)

	lineage, err := eng.Store().GetLineage(audit.RunID)
	require.NoError(t, err)
	assert.Len(t, lineage, 1)

	counts, err := eng.Store().GetQualitySummary(audit.RunID)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, audit.Counts[0], counts[0])
}

func TestEngine_RunTransformations(t *testing.T) {
	cfg := testEngineConfig(t)
	cfg.Transformations = []core.TransformationConfig{
		{
			Name:   "active_customers",
			SQL:    "SELECT * FROM customers_valid",
			Inputs: []string{"customers_valid"},
			Output: "active_customers",
			Notes:  "all valid customers",
		},
	}
	eng := newTestEngine(t, cfg)

	audit, err := eng.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, audit.Lineage, 2)
	assert.Equal(t, "active_customers", audit.Lineage[1].Dataset)
	assert.Equal(t, []string{"customers_valid"}, audit.Lineage[1].Sources)
	assert.Equal(t, "all valid customers", audit.Lineage[1].Notes)
}

func TestEngine_RunAccessDenied(t *testing.T) {
	cfg := testEngineConfig(t)
	cfg.Datasets[0].ReaderRole = "intern"
	eng := newTestEngine(t, cfg)

	audit, err := eng.Run(context.Background())
	require.Error(t, err)
	require.NotNil(t, audit)

	var denied *access.DeniedError
	require.ErrorAs(t, err, &denied)

	assert.True(t, audit.Failed())
	require.Len(t, audit.Decisions, 1)
	assert.False(t, audit.Decisions[0].Allowed())
	assert.Empty(t, audit.Counts, "no data is read after a deny")

	// The failed run is still recorded with its audit log
	run, storeErr := eng.Store().GetRun(audit.RunID)
	require.NoError(t, storeErr)
	assert.Equal(t, core.RunStatusFailed, run.Status)
	assert.NotEmpty(t, run.Error)
	assert.NotEmpty(t, run.AuditPath)

	_, statErr := os.Stat(run.AuditPath)
	assert.NoError(t, statErr, "audit log is written even for failed runs")
}

func TestEngine_RunMissingSourceFile(t *testing.T) {
	cfg := testEngineConfig(t)
	cfg.Datasets[0].Asset.SourcePath = filepath.Join(cfg.RawDir, "missing.csv")
	eng := newTestEngine(t, cfg)

	audit, err := eng.Run(context.Background())
	require.Error(t, err)
	require.NotNil(t, audit)
	assert.True(t, audit.Failed())
	assert.Contains(t, audit.Error, "missing.csv")
}

func TestEngine_ValidateDatasets(t *testing.T) {
	cfg := testEngineConfig(t)
	eng := newTestEngine(t, cfg)

	counts, issues, err := eng.ValidateDatasets(context.Background())
	require.NoError(t, err)

	require.Len(t, counts, 1)
	assert.Equal(t, 4, counts[0].Input)
	assert.Equal(t, 1, counts[0].Valid)
	assert.Len(t, issues, 3)

	// Validation alone leaves no trace in the run history
	runs, err := eng.Store().ListRuns(10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestEngine_NewRejectsBadPolicies(t *testing.T) {
	cfg := testEngineConfig(t)
	cfg.Policies.AccessPolicies = append(cfg.Policies.AccessPolicies, core.AccessPolicy{
		Name: "analyst_read",
	})

	_, err := New(cfg)
	require.Error(t, err)
}

func TestEngine_NewRejectsBadRules(t *testing.T) {
	cfg := testEngineConfig(t)
	cfg.Policies.QualityRules["customers"] = append(cfg.Policies.QualityRules["customers"],
		core.QualityRuleConfig{Name: "broken", Type: "pattern", Column: "email", Params: map[string]any{"regex": "("}})

	_, err := New(cfg)
	require.Error(t, err)
}

func TestEngine_RunSchemaMismatch(t *testing.T) {
	cfg := testEngineConfig(t)
	cfg.Datasets[0].Asset.Schema["phone"] = "text"
	eng := newTestEngine(t, cfg)

	audit, err := eng.Run(context.Background())
	require.Error(t, err)
	require.NotNil(t, audit)
	assert.True(t, audit.Failed())
	assert.Contains(t, err.Error(), `missing declared column "phone"`)
	assert.Empty(t, audit.Counts, "validation does not run against a mis-declared table")
}

// normalizedAudit runs the engine once and serializes the audit log with the
// per-run identifiers and timestamps blanked out.
func normalizedAudit(t *testing.T, cfg Config) string {
	t.Helper()

	eng := newTestEngine(t, cfg)
	audit, err := eng.Run(context.Background())
	require.NoError(t, err)

	audit.RunID = ""
	audit.StartedAt = time.Time{}
	audit.FinishedAt = time.Time{}
	for i := range audit.Lineage {
		audit.Lineage[i].ID = ""
		audit.Lineage[i].Timestamp = time.Time{}
	}

	data, err := json.MarshalIndent(audit, "", "  ")
	require.NoError(t, err)
	return string(data)
}

func TestEngine_RunAuditContentDeterministic(t *testing.T) {
	cfg := testEngineConfig(t)
	cfg.Transformations = []core.TransformationConfig{
		{
			Name:   "active_customers",
			SQL:    "SELECT * FROM customers_valid",
			Inputs: []string{"customers_valid"},
			Output: "active_customers",
		},
	}

	first := normalizedAudit(t, cfg)
	second := normalizedAudit(t, cfg)
	assert.Equal(t, first, second, "identical config and input produce identical audit content")
}

func TestEngine_RunAuditLogFilesDoNotCollide(t *testing.T) {
	cfg1 := testEngineConfig(t)
	cfg2 := testEngineConfig(t)
	cfg2.LogsDir = cfg1.LogsDir

	// Two runs starting within the same wall-clock second must still
	// produce two audit files.
	audit1, err := newTestEngine(t, cfg1).Run(context.Background())
	require.NoError(t, err)
	audit2, err := newTestEngine(t, cfg2).Run(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, audit1.RunID, audit2.RunID)

	entries, err := os.ReadDir(cfg1.LogsDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	names := []string{entries[0].Name(), entries[1].Name()}
	assert.NotEqual(t, names[0], names[1])
	for _, name := range names {
		assert.Contains(t, []string{audit1.RunID[:8], audit2.RunID[:8]},
			strings.TrimSuffix(name[len(name)-13:], ".json"))
	}
}

func TestEngine_NewRequiresPolicySet(t *testing.T) {
	cfg := testEngineConfig(t)
	cfg.Policies = nil

	_, err := New(cfg)
	require.Error(t, err)
}
