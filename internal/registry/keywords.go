package registry

import "github.com/htafolla/StringRay-sub003/pkg/models"

// Selection scoring weights. Keyword overlap dominates so a clearly
// on-topic agent beats a slightly better-performing generalist, while
// performance breaks ties between equally matched agents.
const (
	// expertiseMatchWeight is added per expertise tag found in the request text.
	expertiseMatchWeight = 10.0
	// specialtyMatchWeight is added per specialty tag found in the request text.
	specialtyMatchWeight = 15.0
	// performanceWeight scales the agent's 0-100 performance score.
	performanceWeight = 0.5
)

// FallbackAgent is the designated generic agent. Selection falls back to it
// when no specialized agent is available, so selection never comes back empty.
const FallbackAgent = "generalist"

// DefaultRoster returns the bootstrap agent roster: a small fixed set
// covering compliance, design, security, review, refactoring, and
// test-strategy roles, plus the generalist fallback.
func DefaultRoster() []models.AgentCapability {
	return []models.AgentCapability{
		{
			Name:        "compliance-auditor",
			Expertise:   []string{"compliance", "audit", "policy"},
			Specialties: []string{"licensing", "standards", "governance"},
			Capacity:    2,
			Performance: 82,
		},
		{
			Name:        "api-designer",
			Expertise:   []string{"design", "architecture", "api"},
			Specialties: []string{"schema", "interface", "contract"},
			Capacity:    3,
			Performance: 85,
		},
		{
			Name:        "security-analyst",
			Expertise:   []string{"security", "auth", "vulnerability"},
			Specialties: []string{"encryption", "injection", "secrets"},
			Capacity:    2,
			Performance: 90,
		},
		{
			Name:        "code-reviewer",
			Expertise:   []string{"review", "quality", "style"},
			Specialties: []string{"readability", "correctness", "regression"},
			Capacity:    4,
			Performance: 88,
		},
		{
			Name:        "refactor-specialist",
			Expertise:   []string{"refactor", "cleanup", "migration"},
			Specialties: []string{"decomposition", "deduplication", "performance"},
			Capacity:    3,
			Performance: 84,
		},
		{
			Name:        "test-strategist",
			Expertise:   []string{"test", "coverage", "verification"},
			Specialties: []string{"unit", "integration", "flaky"},
			Capacity:    3,
			Performance: 86,
		},
		{
			Name:        "generalist",
			Expertise:   []string{"general"},
			Specialties: nil,
			Capacity:    8,
			Performance: 70,
		},
	}
}
