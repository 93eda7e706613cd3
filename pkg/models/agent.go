package models

// AgentCapability describes a named agent: what it is good at and how much
// concurrent work it can absorb. Identity and configuration are owned by the
// capability registry; ActiveTasks is bookkeeping owned by the scheduler.
type AgentCapability struct {
	// Name uniquely identifies the agent.
	Name string `json:"name" yaml:"name"`
	// Expertise lists the broad domains the agent covers.
	Expertise []string `json:"expertise" yaml:"expertise"`
	// Specialties lists narrower tags the agent is particularly strong in.
	Specialties []string `json:"specialties" yaml:"specialties"`
	// Capacity is the maximum number of concurrent tasks, at least 1.
	Capacity int `json:"capacity" yaml:"capacity"`
	// Performance is a rolling quality score in [0, 100].
	Performance float64 `json:"performance" yaml:"performance"`
	// ActiveTasks is the current in-flight task count, 0 <= ActiveTasks <= Capacity.
	ActiveTasks int `json:"active_tasks" yaml:"-"`
}

// Available returns true if the agent can accept another task.
func (a *AgentCapability) Available() bool {
	return a.ActiveTasks < a.Capacity
}

// CapabilityUpdate is a partial update to an agent record. Nil fields are
// left untouched.
type CapabilityUpdate struct {
	Expertise   *[]string
	Specialties *[]string
	Capacity    *int
	Performance *float64
}

// AgentResult is what an agent's execute call eventually produces.
// The agent's internal reasoning is opaque; this is the whole contract.
type AgentResult struct {
	// Success reports whether the agent completed the task.
	Success bool `json:"success"`
	// Result is the agent's output when successful.
	Result string `json:"result,omitempty"`
	// Confidence is the agent's self-reported confidence in [0, 1].
	Confidence float64 `json:"confidence,omitempty"`
	// Error describes the failure when Success is false.
	Error string `json:"error,omitempty"`
}
