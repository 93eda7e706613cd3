package agent

import (
	"strings"
	"testing"

	"github.com/htafolla/StringRay-sub003/pkg/models"
)

func TestSystemPromptKnownRoles(t *testing.T) {
	for _, role := range []string{
		"compliance-auditor",
		"api-designer",
		"security-analyst",
		"code-reviewer",
		"refactor-specialist",
		"test-strategist",
		"generalist",
	} {
		if got := SystemPromptFor(role); got == "" {
			t.Errorf("empty system prompt for %s", role)
		}
	}
}

func TestSystemPromptUnknownRoleFallsBack(t *testing.T) {
	got := SystemPromptFor("interpretive-dancer")
	if got != SystemPromptFor("generalist") {
		t.Errorf("unknown role should use the generalist prompt, got %q", got)
	}
}

func TestUserPromptIncludesTaskFields(t *testing.T) {
	task := models.TaskDefinition{
		ID:           "task-1",
		Description:  "harden the login endpoint",
		SubagentType: "security-analyst",
		Dependencies: []string{"task-0"},
	}
	prompt := UserPromptFor(task)

	for _, want := range []string{"task-1", "harden the login endpoint", "security-analyst", "task-0"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestUserPromptOmitsEmptySections(t *testing.T) {
	prompt := UserPromptFor(models.TaskDefinition{ID: "t", Description: "do the thing"})
	if strings.Contains(prompt, "Requested capability") {
		t.Error("capability line should be omitted when unset")
	}
	if strings.Contains(prompt, "runs after") {
		t.Error("dependency line should be omitted when unset")
	}
}

func TestConfidenceForStopReasons(t *testing.T) {
	if end, trunc := confidenceFor("end_turn"), confidenceFor("max_tokens"); end <= trunc {
		t.Errorf("clean end of turn (%v) should outscore truncation (%v)", end, trunc)
	}
}
