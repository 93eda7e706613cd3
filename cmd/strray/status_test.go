package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/htafolla/StringRay-sub003/internal/state"
	"github.com/htafolla/StringRay-sub003/pkg/models"
)

func TestRenderStatusWithHistory(t *testing.T) {
	db, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		t.Fatal(err)
	}

	if err := db.RecordDelegation(models.DelegationRecord{
		ID:              "rec-1",
		Operation:       "refactor",
		Strategy:        models.StrategyMulti,
		ComplexityLevel: models.ComplexityComplex,
		ComplexityScore: 31.5,
		Agents:          []string{"code-reviewer", "refactor-specialist"},
		Success:         true,
		Duration:        3 * time.Second,
		CreatedAt:       time.Now(),
	}); err != nil {
		t.Fatal(err)
	}

	if err := renderStatus(db, 5); err != nil {
		t.Fatal(err)
	}
}

func TestRenderStatusEmptyDatabase(t *testing.T) {
	db, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		t.Fatal(err)
	}

	if err := renderStatus(db, 5); err != nil {
		t.Fatal(err)
	}
}

func TestFormatAge(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{5 * time.Minute, "5m"},
		{90 * time.Minute, "1h30m"},
		{2 * time.Hour, "2h"},
		{49 * time.Hour, "2d"},
	}
	for _, c := range cases {
		if got := formatAge(c.d); got != c.want {
			t.Errorf("formatAge(%s) = %q, want %q", c.d, got, c.want)
		}
	}
}
