package models

import "time"

// TaskDefinition is one subtask inside a decomposed batch.
type TaskDefinition struct {
	// ID uniquely identifies the task within its batch.
	ID string `json:"id"`
	// Description is what the task should accomplish.
	Description string `json:"description"`
	// SubagentType names the agent capability (or tag) that should run it.
	SubagentType string `json:"subagent_type"`
	// Dependencies lists task IDs that must complete before this task starts.
	Dependencies []string `json:"dependencies,omitempty"`
	// Priority is an optional ordering hint within a wave.
	Priority string `json:"priority,omitempty"`
}

// TaskResult records the outcome of one executed subtask.
type TaskResult struct {
	// TaskID is the ID of the task this result belongs to.
	TaskID string `json:"task_id"`
	// Agent is the name of the agent that ran the task.
	Agent string `json:"agent,omitempty"`
	// Success reports whether the task completed.
	Success bool `json:"success"`
	// Result is the task output when successful.
	Result string `json:"result,omitempty"`
	// Error describes the failure when Success is false.
	Error string `json:"error,omitempty"`
	// Duration is how long the task ran (or waited) before settling.
	Duration time.Duration `json:"duration"`
}

// DelegationRecord is one completed delegation as persisted to history.
type DelegationRecord struct {
	// ID uniquely identifies the delegation.
	ID string `json:"id"`
	// SessionID groups delegations belonging to one caller session.
	SessionID string `json:"session_id,omitempty"`
	// Operation is the request's short operation tag.
	Operation string `json:"operation"`
	// Strategy is the execution strategy that was planned.
	Strategy Strategy `json:"strategy"`
	// ComplexityLevel is the analyzed complexity level.
	ComplexityLevel ComplexityLevel `json:"complexity_level"`
	// ComplexityScore is the raw analyzed score.
	ComplexityScore float64 `json:"complexity_score"`
	// Agents lists the capability names the work was delegated to.
	Agents []string `json:"agents"`
	// Success reports whether the delegation returned cleanly.
	Success bool `json:"success"`
	// Duration is the wall-clock execution time.
	Duration time.Duration `json:"duration"`
	// CreatedAt is when the delegation finished.
	CreatedAt time.Time `json:"created_at"`
}

// DelegationMetrics is a snapshot of rolling delegation statistics.
type DelegationMetrics struct {
	// TotalDelegations counts every analyzed request.
	TotalDelegations int64 `json:"total_delegations"`
	// SuccessfulDelegations counts executions that returned to the caller cleanly.
	SuccessfulDelegations int64 `json:"successful_delegations"`
	// FailedDelegations counts executions that errored out to the caller.
	FailedDelegations int64 `json:"failed_delegations"`
	// AverageComplexity is the rolling mean of analyzed complexity scores.
	AverageComplexity float64 `json:"average_complexity"`
	// AverageDuration is the rolling mean execution duration.
	AverageDuration time.Duration `json:"average_duration"`
	// StrategyUsage counts how often each strategy was planned.
	StrategyUsage map[Strategy]int64 `json:"strategy_usage"`
}
