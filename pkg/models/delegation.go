// Package models defines the shared data types for the StringRay
// delegation engine.
package models

import (
	"fmt"
	"time"
)

// RiskLevel represents the declared risk of a requested change.
type RiskLevel string

const (
	// RiskLow indicates routine, low-impact work.
	RiskLow RiskLevel = "low"
	// RiskMedium indicates work with moderate blast radius.
	RiskMedium RiskLevel = "medium"
	// RiskHigh indicates work touching sensitive or widely shared code.
	RiskHigh RiskLevel = "high"
	// RiskCritical indicates work that can take down the system if wrong.
	RiskCritical RiskLevel = "critical"
)

// Valid returns true if the risk level is a known value.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	default:
		return false
	}
}

// Rank returns the ordinal position of the risk level, lowest first.
// Unknown values rank as RiskLow.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	default:
		return 0
	}
}

// Strategy determines how a delegation fans out across agents.
type Strategy string

const (
	// StrategySingle routes the request to exactly one agent.
	StrategySingle Strategy = "single-agent"
	// StrategyMulti fans the request out to several agents concurrently.
	StrategyMulti Strategy = "multi-agent"
	// StrategyOrchestrated hands the request to a coordinating orchestrator.
	StrategyOrchestrated Strategy = "orchestrator-led"
)

// Valid returns true if the strategy is a known value.
func (s Strategy) Valid() bool {
	switch s {
	case StrategySingle, StrategyMulti, StrategyOrchestrated:
		return true
	default:
		return false
	}
}

// ConflictStrategy names the rule used to reconcile divergent agent outputs.
type ConflictStrategy string

const (
	// ConflictMajorityVote picks the most frequent response.
	ConflictMajorityVote ConflictStrategy = "majority-vote"
	// ConflictExpertPriority picks the response with the highest expertise score.
	ConflictExpertPriority ConflictStrategy = "expert-priority"
	// ConflictConsensus picks the response already flagged as consensus.
	ConflictConsensus ConflictStrategy = "consensus"
)

// Valid returns true if the conflict strategy is a known value.
func (c ConflictStrategy) Valid() bool {
	switch c {
	case ConflictMajorityVote, ConflictExpertPriority, ConflictConsensus:
		return true
	default:
		return false
	}
}

// RequestContext carries the change signals attached to a delegation request.
type RequestContext struct {
	// Files lists the paths the request is expected to touch.
	Files []string `json:"files,omitempty"`
	// ChangeVolume is the estimated number of changed lines.
	ChangeVolume int `json:"change_volume,omitempty"`
	// Dependencies is the number of upstream/downstream dependencies involved.
	Dependencies int `json:"dependencies,omitempty"`
	// RiskLevel is the declared risk of the change.
	RiskLevel RiskLevel `json:"risk_level,omitempty"`
}

// DelegationRequest is a unit of work submitted to the delegator.
// Requests may arrive empty or malformed; consumers must degrade to a safe
// default plan instead of failing.
type DelegationRequest struct {
	// Operation is a short tag naming the kind of work ("review", "refactor").
	Operation string `json:"operation"`
	// Description is free text describing the work.
	Description string `json:"description,omitempty"`
	// Context carries the change signals used for complexity analysis.
	Context RequestContext `json:"context"`
	// SessionID groups related delegations, if set.
	SessionID string `json:"session_id,omitempty"`
	// Priority is an optional caller-supplied priority tag.
	Priority string `json:"priority,omitempty"`
}

// DelegationPlan is the ephemeral outcome of analyzing a request.
type DelegationPlan struct {
	// Strategy is the selected execution strategy.
	Strategy Strategy `json:"strategy"`
	// Agents is the ordered list of selected agent names.
	// Exactly 1 for single-agent, at least 2 otherwise.
	Agents []string `json:"agents"`
	// Complexity is the score that drove strategy selection.
	Complexity ComplexityScore `json:"complexity"`
	// ConflictResolution is the strategy for reconciling divergent outputs.
	ConflictResolution ConflictStrategy `json:"conflict_resolution"`
	// EstimatedDuration is the expected wall-clock time for execution.
	EstimatedDuration time.Duration `json:"estimated_duration"`
}

// Validate checks the strategy/agent-count coupling invariant.
func (p *DelegationPlan) Validate() error {
	if !p.Strategy.Valid() {
		return fmt.Errorf("unknown strategy %q", p.Strategy)
	}
	switch p.Strategy {
	case StrategySingle:
		if len(p.Agents) != 1 {
			return fmt.Errorf("single-agent plan has %d agents, want 1", len(p.Agents))
		}
	default:
		if len(p.Agents) < 2 {
			return fmt.Errorf("%s plan has %d agents, want at least 2", p.Strategy, len(p.Agents))
		}
	}
	return nil
}
