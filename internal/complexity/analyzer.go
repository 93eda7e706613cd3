// Package complexity scores delegation requests and recommends an
// execution strategy. The analyzer is a pure function over the request's
// context signals: identical inputs always produce identical scores.
package complexity

import (
	"github.com/htafolla/StringRay-sub003/pkg/models"
)

// Weights control how each context signal contributes to the raw score.
// All weights are positive so the score is monotonic in every signal.
type Weights struct {
	// PerFile is added for each affected file.
	PerFile float64
	// PerChangedLine is added for each line of change volume.
	PerChangedLine float64
	// PerDependency is added for each dependency.
	PerDependency float64
}

// Thresholds map the raw score to a complexity level. A score below
// Moderate is simple, below Complex is moderate, below Enterprise is
// complex, and anything at or above Enterprise is enterprise.
type Thresholds struct {
	Moderate   float64
	Complex    float64
	Enterprise float64
}

// DefaultWeights returns the built-in signal weights.
func DefaultWeights() Weights {
	return Weights{
		PerFile:        3.0,
		PerChangedLine: 0.05,
		PerDependency:  2.0,
	}
}

// DefaultThresholds returns the built-in level thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Moderate:   10,
		Complex:    25,
		Enterprise: 60,
	}
}

// riskMultiplier returns the score multiplier for a risk level.
// Multipliers increase strictly with risk rank so raising the risk level
// never lowers the resulting complexity level.
func riskMultiplier(r models.RiskLevel) float64 {
	switch r {
	case models.RiskMedium:
		return 1.5
	case models.RiskHigh:
		return 2.0
	case models.RiskCritical:
		return 3.0
	default:
		return 1.0
	}
}

// Analyzer scores requests using a fixed weight and threshold table.
type Analyzer struct {
	weights    Weights
	thresholds Thresholds
}

// NewAnalyzer creates an Analyzer with the default weights and thresholds.
func NewAnalyzer() *Analyzer {
	return NewAnalyzerWithConfig(DefaultWeights(), DefaultThresholds())
}

// NewAnalyzerWithConfig creates an Analyzer with custom weights and
// thresholds. The thresholds are tunable configuration, not a contract.
func NewAnalyzerWithConfig(w Weights, t Thresholds) *Analyzer {
	return &Analyzer{weights: w, thresholds: t}
}

// Analyze combines the request's context signals into a complexity score.
// The operation tag does not affect the score; it only matters for agent
// selection. Malformed inputs (negative counts, unknown risk) degrade to
// zero contribution rather than failing.
func (a *Analyzer) Analyze(operation string, ctx models.RequestContext) models.ComplexityScore {
	files := len(ctx.Files)
	changeVolume := ctx.ChangeVolume
	if changeVolume < 0 {
		changeVolume = 0
	}
	deps := ctx.Dependencies
	if deps < 0 {
		deps = 0
	}

	raw := float64(files)*a.weights.PerFile +
		float64(changeVolume)*a.weights.PerChangedLine +
		float64(deps)*a.weights.PerDependency
	raw *= riskMultiplier(ctx.RiskLevel)

	level := a.levelFor(raw)

	return models.ComplexityScore{
		Level:               level,
		Score:               raw,
		RecommendedStrategy: StrategyForLevel(level),
		EstimatedAgents:     EstimatedAgents(level),
	}
}

// levelFor maps a raw score to a complexity level.
func (a *Analyzer) levelFor(score float64) models.ComplexityLevel {
	switch {
	case score < a.thresholds.Moderate:
		return models.ComplexitySimple
	case score < a.thresholds.Complex:
		return models.ComplexityModerate
	case score < a.thresholds.Enterprise:
		return models.ComplexityComplex
	default:
		return models.ComplexityEnterprise
	}
}

// StrategyForLevel maps a complexity level to its recommended strategy.
func StrategyForLevel(level models.ComplexityLevel) models.Strategy {
	switch level {
	case models.ComplexityComplex:
		return models.StrategyMulti
	case models.ComplexityEnterprise:
		return models.StrategyOrchestrated
	default:
		return models.StrategySingle
	}
}

// EstimatedAgents maps a complexity level to a suggested agent count.
// The result is always at least 1, and more than 2 for enterprise work.
func EstimatedAgents(level models.ComplexityLevel) int {
	switch level {
	case models.ComplexityComplex:
		return 3
	case models.ComplexityEnterprise:
		return 5
	default:
		return 1
	}
}
