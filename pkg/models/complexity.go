package models

// ComplexityLevel classifies how much coordination a request needs.
type ComplexityLevel string

const (
	// ComplexitySimple is a small, low-risk change.
	ComplexitySimple ComplexityLevel = "simple"
	// ComplexityModerate is a contained change a single agent can own.
	ComplexityModerate ComplexityLevel = "moderate"
	// ComplexityComplex is a change that benefits from parallel agents.
	ComplexityComplex ComplexityLevel = "complex"
	// ComplexityEnterprise is a change requiring dedicated orchestration.
	ComplexityEnterprise ComplexityLevel = "enterprise"
)

// Valid returns true if the level is a known value.
func (l ComplexityLevel) Valid() bool {
	switch l {
	case ComplexitySimple, ComplexityModerate, ComplexityComplex, ComplexityEnterprise:
		return true
	default:
		return false
	}
}

// Rank returns the ordinal position of the level, lowest first.
// Unknown values rank as simple.
func (l ComplexityLevel) Rank() int {
	switch l {
	case ComplexityModerate:
		return 1
	case ComplexityComplex:
		return 2
	case ComplexityEnterprise:
		return 3
	default:
		return 0
	}
}

// ComplexityScore is the result of analyzing a request's context signals.
type ComplexityScore struct {
	// Level is the classified complexity level.
	Level ComplexityLevel `json:"level"`
	// Score is the raw numeric score the level was derived from.
	Score float64 `json:"score"`
	// RecommendedStrategy is the execution strategy implied by the level.
	RecommendedStrategy Strategy `json:"recommended_strategy"`
	// EstimatedAgents is the suggested number of agents, always at least 1.
	EstimatedAgents int `json:"estimated_agents"`
}
