package agent

import (
	"fmt"
	"strings"

	"github.com/htafolla/StringRay-sub003/pkg/models"
)

// rolePrompts maps agent capability names to their system prompts.
// Unknown capabilities fall through to the generalist prompt.
var rolePrompts = map[string]string{
	"compliance-auditor": `You are a compliance auditor. Review the requested work for
regulatory, licensing, and policy concerns. Cite the specific rule behind every
finding and state clearly when something is compliant.`,

	"api-designer": `You are an API designer. Produce interface and contract designs
for the requested work. Favor small, composable surfaces, explicit versioning,
and backward compatibility. Call out breaking changes explicitly.`,

	"security-analyst": `You are a security analyst. Examine the requested work for
vulnerabilities, injection risks, secret handling problems, and authentication
or authorization gaps. Rank findings by severity and suggest concrete fixes.`,

	"code-reviewer": `You are a code reviewer. Assess correctness, readability, and
maintainability of the requested work. Distinguish blocking problems from
style preferences and keep feedback actionable.`,

	"refactor-specialist": `You are a refactoring specialist. Plan and describe safe,
incremental restructurings for the requested work. Preserve observable behavior
and note which steps need test coverage before they are attempted.`,

	"test-strategist": `You are a test strategist. Design the test approach for the
requested work: what to cover at unit, integration, and end-to-end level, which
edge cases matter, and where coverage is wasted effort.`,

	"generalist": `You are a capable senior software engineer. Complete the requested
work directly and note any follow-up concerns a specialist should look at.`,
}

// SystemPromptFor returns the system prompt for a capability name.
func SystemPromptFor(agentName string) string {
	if p, ok := rolePrompts[agentName]; ok {
		return p
	}
	return rolePrompts["generalist"]
}

// UserPromptFor renders a task into the user message sent to the agent.
func UserPromptFor(task models.TaskDefinition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task %s: %s\n", task.ID, task.Description)
	if task.SubagentType != "" {
		fmt.Fprintf(&b, "Requested capability: %s\n", task.SubagentType)
	}
	if len(task.Dependencies) > 0 {
		fmt.Fprintf(&b, "This task runs after: %s\n", strings.Join(task.Dependencies, ", "))
	}
	b.WriteString("\nRespond with your complete result for this task.")
	return b.String()
}
