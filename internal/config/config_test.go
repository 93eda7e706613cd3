package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/htafolla/StringRay-sub003/pkg/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultValues(t *testing.T) {
	cfg := Default()

	if cfg.Scheduler.MaxConcurrentTasks != 5 {
		t.Errorf("max_concurrent_tasks = %d, want 5", cfg.Scheduler.MaxConcurrentTasks)
	}
	if cfg.Scheduler.TaskTimeout != 300*time.Second {
		t.Errorf("task_timeout = %s, want 300s", cfg.Scheduler.TaskTimeout)
	}
	if cfg.Complexity.ModerateThreshold != 10.0 {
		t.Errorf("moderate_threshold = %v, want 10", cfg.Complexity.ModerateThreshold)
	}
	if cfg.Registry.Fallback != "generalist" {
		t.Errorf("fallback = %q, want generalist", cfg.Registry.Fallback)
	}
}

func TestLoadFromPath(t *testing.T) {
	path := writeConfig(t, `
anthropic:
  api_key: test-key
  model: claude-sonnet-4-20250514
scheduler:
  max_concurrent_tasks: 8
  task_timeout: 2m
  conflict_strategy: expert-priority
complexity:
  enterprise_threshold: 80
registry:
  fallback: code-reviewer
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "test-key" {
		t.Errorf("api_key = %q", cfg.Anthropic.APIKey)
	}
	if cfg.Scheduler.MaxConcurrentTasks != 8 {
		t.Errorf("max_concurrent_tasks = %d, want 8", cfg.Scheduler.MaxConcurrentTasks)
	}
	if cfg.Scheduler.TaskTimeout != 2*time.Minute {
		t.Errorf("task_timeout = %s, want 2m", cfg.Scheduler.TaskTimeout)
	}
	if cfg.Scheduler.ResolveConflictStrategy() != models.ConflictExpertPriority {
		t.Errorf("conflict strategy = %s", cfg.Scheduler.ResolveConflictStrategy())
	}
	if cfg.Complexity.EnterpriseThreshold != 80 {
		t.Errorf("enterprise_threshold = %v, want 80", cfg.Complexity.EnterpriseThreshold)
	}
	if cfg.Registry.Fallback != "code-reviewer" {
		t.Errorf("fallback = %q", cfg.Registry.Fallback)
	}

	// Unset sections keep their defaults.
	if cfg.Scheduler.MaxRetries != 2 {
		t.Errorf("max_retries = %d, want default 2", cfg.Scheduler.MaxRetries)
	}
	if cfg.Complexity.ModerateThreshold != 10.0 {
		t.Errorf("moderate_threshold = %v, want default 10", cfg.Complexity.ModerateThreshold)
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadFromPathExpandsEnvInAPIKey(t *testing.T) {
	t.Setenv("TEST_STRRAY_KEY", "expanded-secret")
	path := writeConfig(t, `
anthropic:
  api_key: ${TEST_STRRAY_KEY}
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Anthropic.APIKey != "expanded-secret" {
		t.Errorf("api_key = %q, want expanded value", cfg.Anthropic.APIKey)
	}
}

func TestResolveConflictStrategyInvalid(t *testing.T) {
	sc := SchedulerConfig{ConflictStrategy: "rock-paper-scissors"}
	if got := sc.ResolveConflictStrategy(); got != models.ConflictMajorityVote {
		t.Errorf("invalid strategy should fall back to majority-vote, got %s", got)
	}
}

func TestWatchSignalsOnRewrite(t *testing.T) {
	path := writeConfig(t, "scheduler:\n  max_concurrent_tasks: 5\n")

	changed := make(chan struct{}, 1)
	stop, err := Watch(path, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer stop()

	if err := os.WriteFile(path, []byte("scheduler:\n  max_concurrent_tasks: 9\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not signal within 2s")
	}
}
