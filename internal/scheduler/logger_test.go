package scheduler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDebugLoggerWritesToProjectLogs(t *testing.T) {
	dir := t.TempDir()

	lg := NewDebugLoggerForProject(dir)
	SetPackageLogger(lg)
	defer SetPackageLogger(nil)

	debugLog("wave %d: %v", 1, []string{"a", "b"})
	if err := lg.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ".strray", "logs", "scheduler-debug.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "wave 1: [a b]") {
		t.Errorf("log file missing entry, got %q", string(data))
	}
}

func TestDebugLogWithoutLoggerIsNoOp(t *testing.T) {
	SetPackageLogger(nil)
	debugLog("dropped %s", "silently")
}

func TestNopLoggerIsSafe(t *testing.T) {
	lg := NopLogger()
	lg.Log("nothing %d", 1)
	if err := lg.Close(); err != nil {
		t.Fatal(err)
	}
}
