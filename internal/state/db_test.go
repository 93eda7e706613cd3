package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/htafolla/StringRay-sub003/pkg/models"
)

// tempDBPath returns a path to a temp database file.
func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// setupTestDB creates a new temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestOpen(t *testing.T) {
	path := tempDBPath(t)
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("database file does not exist at %s", path)
	}
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "c")
	path := filepath.Join(nested, "test.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(nested); os.IsNotExist(err) {
		t.Errorf("parent directories not created: %s", nested)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

func testRecord(id string, createdAt time.Time) models.DelegationRecord {
	return models.DelegationRecord{
		ID:              id,
		SessionID:       "session-1",
		Operation:       "refactor",
		Strategy:        models.StrategyMulti,
		ComplexityLevel: models.ComplexityComplex,
		ComplexityScore: 31.5,
		Agents:          []string{"refactor-specialist", "code-reviewer"},
		Success:         true,
		Duration:        1200 * time.Millisecond,
		CreatedAt:       createdAt,
	}
}

func TestRecordAndListRecent(t *testing.T) {
	db := setupTestDB(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"d1", "d2", "d3"} {
		if err := db.RecordDelegation(testRecord(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}

	recs, err := db.ListRecent(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].ID != "d3" || recs[1].ID != "d2" {
		t.Errorf("expected newest first, got %s, %s", recs[0].ID, recs[1].ID)
	}

	got := recs[0]
	if got.Strategy != models.StrategyMulti {
		t.Errorf("strategy = %s", got.Strategy)
	}
	if got.ComplexityLevel != models.ComplexityComplex {
		t.Errorf("level = %s", got.ComplexityLevel)
	}
	if got.ComplexityScore != 31.5 {
		t.Errorf("score = %v", got.ComplexityScore)
	}
	if len(got.Agents) != 2 || got.Agents[0] != "refactor-specialist" {
		t.Errorf("agents = %v", got.Agents)
	}
	if !got.Success {
		t.Error("success not round-tripped")
	}
	if got.Duration != 1200*time.Millisecond {
		t.Errorf("duration = %s", got.Duration)
	}
}

func TestListBySession(t *testing.T) {
	db := setupTestDB(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if err := db.RecordDelegation(testRecord("d1", base)); err != nil {
		t.Fatal(err)
	}
	other := testRecord("d2", base.Add(time.Minute))
	other.SessionID = "session-2"
	if err := db.RecordDelegation(other); err != nil {
		t.Fatal(err)
	}

	recs, err := db.ListBySession("session-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].ID != "d1" {
		t.Fatalf("expected only session-1 records, got %+v", recs)
	}
}

func TestMetricsSummary(t *testing.T) {
	db := setupTestDB(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ok := testRecord("d1", base)
	if err := db.RecordDelegation(ok); err != nil {
		t.Fatal(err)
	}

	bad := testRecord("d2", base.Add(time.Minute))
	bad.Success = false
	bad.Strategy = models.StrategySingle
	if err := db.RecordDelegation(bad); err != nil {
		t.Fatal(err)
	}

	m, err := db.MetricsSummary()
	if err != nil {
		t.Fatal(err)
	}
	if m.TotalDelegations != 2 {
		t.Errorf("total = %d", m.TotalDelegations)
	}
	if m.SuccessfulDelegations != 1 || m.FailedDelegations != 1 {
		t.Errorf("success/fail = %d/%d", m.SuccessfulDelegations, m.FailedDelegations)
	}
	if m.StrategyUsage[models.StrategyMulti] != 1 || m.StrategyUsage[models.StrategySingle] != 1 {
		t.Errorf("strategy usage = %v", m.StrategyUsage)
	}
	if m.AverageComplexity != 31.5 {
		t.Errorf("average complexity = %v", m.AverageComplexity)
	}
}

func TestMetricsSummaryEmpty(t *testing.T) {
	db := setupTestDB(t)

	m, err := db.MetricsSummary()
	if err != nil {
		t.Fatal(err)
	}
	if m.TotalDelegations != 0 || m.FailedDelegations != 0 {
		t.Errorf("expected zero metrics, got %+v", m)
	}
}

func TestPurgeOldDelegations(t *testing.T) {
	db := setupTestDB(t)

	old := testRecord("old", time.Now().Add(-48*time.Hour))
	fresh := testRecord("fresh", time.Now())
	if err := db.RecordDelegation(old); err != nil {
		t.Fatal(err)
	}
	if err := db.RecordDelegation(fresh); err != nil {
		t.Fatal(err)
	}

	n, err := db.PurgeOldDelegations(24 * time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 purged, got %d", n)
	}

	recs, err := db.ListRecent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].ID != "fresh" {
		t.Errorf("expected only the fresh record, got %+v", recs)
	}
}

func TestProjectDBPath(t *testing.T) {
	got := ProjectDBPath("/tmp/project")
	want := filepath.Join("/tmp/project", ".strray", "state.db")
	if got != want {
		t.Errorf("ProjectDBPath = %q, want %q", got, want)
	}
}
