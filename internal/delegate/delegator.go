// Package delegate is the top-level entry point of the delegation
// engine. It analyzes a request into a plan, executes the plan under
// the chosen strategy, and maintains rolling delegation metrics.
package delegate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/htafolla/StringRay-sub003/internal/agent"
	"github.com/htafolla/StringRay-sub003/internal/complexity"
	"github.com/htafolla/StringRay-sub003/internal/conflict"
	"github.com/htafolla/StringRay-sub003/internal/registry"
	"github.com/htafolla/StringRay-sub003/internal/store"
	"github.com/htafolla/StringRay-sub003/pkg/models"
)

// ErrNoExecutor reports an execution attempt on a delegator built
// without an agent executor (an analysis-only delegator).
var ErrNoExecutor = errors.New("no agent executor configured")

// Coordinator runs a decomposed task batch on behalf of the delegator.
// The scheduler satisfies this contract.
type Coordinator interface {
	ExecuteComplexTask(ctx context.Context, tasks []models.TaskDefinition) ([]models.TaskResult, error)
}

// Recorder persists completed delegations for later inspection.
type Recorder interface {
	RecordDelegation(rec models.DelegationRecord) error
}

// AgentSlot is one agent's outcome inside a multi-agent fan-out.
type AgentSlot struct {
	Agent      string  `json:"agent"`
	Success    bool    `json:"success"`
	Result     string  `json:"result,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// Outcome is the caller-facing result of an executed delegation.
type Outcome struct {
	// Plan is the delegation plan the execution followed.
	Plan *models.DelegationPlan `json:"plan"`
	// Success reports whether the delegation as a whole succeeded.
	Success bool `json:"success"`
	// Output is the reconciled answer when one exists.
	Output string `json:"output,omitempty"`
	// Agents holds the per-agent slots for fan-out strategies.
	Agents []AgentSlot `json:"agents,omitempty"`
	// Consolidated marks a summary produced by the coordinating layer.
	Consolidated bool `json:"consolidated,omitempty"`
	// Succeeded and Failed count settled subtasks or agent calls.
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	// Duration is the wall-clock execution time.
	Duration time.Duration `json:"duration"`
}

// estimatedDurations maps a complexity level to a planning estimate.
var estimatedDurations = map[models.ComplexityLevel]time.Duration{
	models.ComplexitySimple:     60 * time.Second,
	models.ComplexityModerate:   300 * time.Second,
	models.ComplexityComplex:    900 * time.Second,
	models.ComplexityEnterprise: 1800 * time.Second,
}

// conflictForLevel maps a complexity level to the conflict strategy a
// plan at that level resolves divergent outputs with.
func conflictForLevel(level models.ComplexityLevel) models.ConflictStrategy {
	switch level {
	case models.ComplexityComplex:
		return models.ConflictExpertPriority
	case models.ComplexityEnterprise:
		return models.ConflictConsensus
	default:
		return models.ConflictMajorityVote
	}
}

// Delegator plans and executes delegations.
type Delegator struct {
	analyzer *complexity.Analyzer
	registry *registry.Registry
	exec     agent.Executor
	coord    Coordinator
	recorder Recorder

	mu      sync.Mutex
	metrics models.DelegationMetrics
	// executions counts settled Execute calls for the rolling averages.
	executions int64
}

// Option configures a Delegator.
type Option func(*Delegator)

// WithCoordinator injects the coordinating collaborator used by the
// orchestrator-led strategy. Absent, that strategy falls back to
// multi-agent fan-out.
func WithCoordinator(c Coordinator) Option {
	return func(d *Delegator) { d.coord = c }
}

// WithAnalyzer overrides the default complexity analyzer.
func WithAnalyzer(a *complexity.Analyzer) Option {
	return func(d *Delegator) { d.analyzer = a }
}

// WithRegistry overrides the default capability registry.
func WithRegistry(r *registry.Registry) Option {
	return func(d *Delegator) { d.registry = r }
}

// WithRecorder attaches a history recorder. Recording failures are
// logged and ignored; history is best effort.
func WithRecorder(rec Recorder) Option {
	return func(d *Delegator) { d.recorder = rec }
}

// New creates a Delegator dispatching to exec.
func New(exec agent.Executor, opts ...Option) *Delegator {
	d := &Delegator{
		analyzer: complexity.NewAnalyzer(),
		exec:     exec,
	}
	d.metrics.StrategyUsage = make(map[models.Strategy]int64)
	for _, opt := range opts {
		opt(d)
	}
	if d.registry == nil {
		d.registry = registry.New()
	}
	return d
}

// DiscoverCoordinator looks up a coordinating collaborator in the
// shared store under the orchestrator key. Returns nil when none is
// registered or the stored value does not satisfy the contract.
func DiscoverCoordinator(kv store.KV) Coordinator {
	v, ok := kv.Get(store.OrchestratorKey)
	if !ok {
		return nil
	}
	c, ok := v.(Coordinator)
	if !ok {
		return nil
	}
	return c
}

// Analyze turns a request into a delegation plan. A malformed or empty
// request degrades to a valid single-agent plan rather than failing.
func (d *Delegator) Analyze(req models.DelegationRequest) *models.DelegationPlan {
	score := d.analyzer.Analyze(req.Operation, req.Context)
	agents := d.registry.SelectAgents(req, score)

	plan := &models.DelegationPlan{
		Strategy:           score.RecommendedStrategy,
		Agents:             agents,
		Complexity:         score,
		ConflictResolution: conflictForLevel(score.Level),
		EstimatedDuration:  estimatedDurations[score.Level],
	}

	d.mu.Lock()
	d.metrics.TotalDelegations++
	d.metrics.StrategyUsage[plan.Strategy]++
	d.mu.Unlock()

	return plan
}

// Delegate analyzes the request and executes the resulting plan.
func (d *Delegator) Delegate(ctx context.Context, req models.DelegationRequest) (*Outcome, error) {
	return d.Execute(ctx, d.Analyze(req), req)
}

// Execute runs a plan. Strategy semantics:
//   - single-agent: the one agent's error propagates unchanged.
//   - multi-agent: all agents run concurrently; each gets a success or
//     error slot, and the call errors only when every agent fails.
//   - orchestrator-led: defers to the coordinator; when it is absent
//     or fails, silently falls back to multi-agent fan-out.
func (d *Delegator) Execute(ctx context.Context, plan *models.DelegationPlan, req models.DelegationRequest) (*Outcome, error) {
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	start := time.Now()
	var out *Outcome
	var err error

	switch plan.Strategy {
	case models.StrategySingle:
		out, err = d.executeSingle(ctx, plan, req)
	case models.StrategyMulti:
		out, err = d.executeMulti(ctx, plan, req)
	case models.StrategyOrchestrated:
		out, err = d.executeOrchestrated(ctx, plan, req)
	default:
		err = fmt.Errorf("unknown strategy %q", plan.Strategy)
	}

	duration := time.Since(start)
	if out != nil {
		out.Duration = duration
	}
	d.settle(plan, req, out, err, duration)
	return out, err
}

// capacityRetryInterval is how often a blocked dispatch rechecks a full
// agent's in-flight counter.
const capacityRetryInterval = 10 * time.Millisecond

// acquireAgent reserves a slot on the agent's in-flight counter before
// direct execution, waiting for capacity to free up when the agent is
// full. Agents unknown to the registry run untracked.
func (d *Delegator) acquireAgent(ctx context.Context, name string) (tracked bool, err error) {
	if _, ok := d.registry.Get(name); !ok {
		return false, nil
	}
	for !d.registry.IncrementActive(name) {
		select {
		case <-time.After(capacityRetryInterval):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return true, nil
}

// releaseAgent returns the slot reserved by acquireAgent, if any.
func (d *Delegator) releaseAgent(name string, tracked bool) {
	if tracked {
		d.registry.DecrementActive(name)
	}
}

// executeSingle invokes the plan's one agent directly.
func (d *Delegator) executeSingle(ctx context.Context, plan *models.DelegationPlan, req models.DelegationRequest) (*Outcome, error) {
	if d.exec == nil {
		return nil, ErrNoExecutor
	}

	name := plan.Agents[0]
	task := taskFromRequest(req, name)

	tracked, err := d.acquireAgent(ctx, name)
	if err != nil {
		return nil, err
	}
	res, err := d.exec.Execute(ctx, name, task)
	d.releaseAgent(name, tracked)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Plan:    plan,
		Success: res.Success,
		Output:  res.Result,
		Agents: []AgentSlot{{
			Agent:      name,
			Success:    res.Success,
			Result:     res.Result,
			Confidence: res.Confidence,
			Error:      res.Error,
		}},
		Succeeded: boolToCount(res.Success),
		Failed:    boolToCount(!res.Success),
	}, nil
}

// executeMulti fans the request out to every planned agent concurrently
// and waits for all of them. Partial failure is reported per slot; the
// call itself errors only when no agent produced a result.
func (d *Delegator) executeMulti(ctx context.Context, plan *models.DelegationPlan, req models.DelegationRequest) (*Outcome, error) {
	if d.exec == nil {
		return nil, ErrNoExecutor
	}

	slots := make([]AgentSlot, len(plan.Agents))
	var wg sync.WaitGroup

	for i, name := range plan.Agents {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()

			tracked, err := d.acquireAgent(ctx, name)
			if err != nil {
				slots[i] = AgentSlot{Agent: name, Success: false, Error: err.Error()}
				return
			}
			res, err := d.exec.Execute(ctx, name, taskFromRequest(req, name))
			d.releaseAgent(name, tracked)

			if err != nil {
				slots[i] = AgentSlot{Agent: name, Success: false, Error: err.Error()}
				return
			}
			slots[i] = AgentSlot{
				Agent:      name,
				Success:    res.Success,
				Result:     res.Result,
				Confidence: res.Confidence,
				Error:      res.Error,
			}
		}(i, name)
	}
	wg.Wait()

	succeeded, failed := 0, 0
	var candidates []conflict.Candidate
	for _, s := range slots {
		if s.Success {
			succeeded++
			candidates = append(candidates, conflict.Candidate{
				Agent:      s.Agent,
				Response:   s.Result,
				Confidence: s.Confidence,
			})
		} else {
			failed++
		}
	}

	if succeeded == 0 {
		return nil, fmt.Errorf("all %d agents failed", len(slots))
	}

	winner, err := conflict.Resolve(candidates, plan.ConflictResolution)
	if err != nil {
		return nil, fmt.Errorf("resolving agent outputs: %w", err)
	}

	return &Outcome{
		Plan:      plan,
		Success:   true,
		Output:    winner.Response,
		Agents:    slots,
		Succeeded: succeeded,
		Failed:    failed,
	}, nil
}

// executeOrchestrated hands a decomposed batch to the coordinator and
// wraps its results into a consolidated summary. The caller never sees
// a coordinator failure: absence and errors both fall back to the
// multi-agent path with the same selected agents.
func (d *Delegator) executeOrchestrated(ctx context.Context, plan *models.DelegationPlan, req models.DelegationRequest) (*Outcome, error) {
	if d.coord == nil {
		return d.executeMulti(ctx, plan, req)
	}

	results, err := d.coord.ExecuteComplexTask(ctx, d.decompose(req, plan.Agents))
	if err != nil {
		return d.executeMulti(ctx, plan, req)
	}

	succeeded, failed := 0, 0
	var outputs []string
	slots := make([]AgentSlot, 0, len(results))
	for _, r := range results {
		if r.Success {
			succeeded++
			outputs = append(outputs, r.Result)
		} else {
			failed++
		}
		slots = append(slots, AgentSlot{
			Agent:   r.Agent,
			Success: r.Success,
			Result:  r.Result,
			Error:   r.Error,
		})
	}

	return &Outcome{
		Plan:         plan,
		Success:      failed == 0,
		Output:       strings.Join(outputs, "\n"),
		Agents:       slots,
		Consolidated: true,
		Succeeded:    succeeded,
		Failed:       failed,
	}, nil
}

// decompose turns a request into one subtask per selected agent.
func (d *Delegator) decompose(req models.DelegationRequest, agents []string) []models.TaskDefinition {
	tasks := make([]models.TaskDefinition, 0, len(agents))
	for _, name := range agents {
		tasks = append(tasks, models.TaskDefinition{
			ID:           uuid.NewString(),
			Description:  req.Description,
			SubagentType: name,
			Priority:     req.Priority,
		})
	}
	return tasks
}

// settle updates rolling metrics and writes history after an Execute
// call, whether or not it errored out to the caller.
func (d *Delegator) settle(plan *models.DelegationPlan, req models.DelegationRequest, out *Outcome, err error, duration time.Duration) {
	success := err == nil && out != nil && out.Success

	d.mu.Lock()
	d.executions++
	if success {
		d.metrics.SuccessfulDelegations++
	} else {
		d.metrics.FailedDelegations++
	}
	n := float64(d.executions)
	d.metrics.AverageComplexity += (plan.Complexity.Score - d.metrics.AverageComplexity) / n
	d.metrics.AverageDuration += time.Duration((float64(duration) - float64(d.metrics.AverageDuration)) / n)
	d.mu.Unlock()

	if d.recorder != nil {
		_ = d.recorder.RecordDelegation(models.DelegationRecord{
			ID:              uuid.NewString(),
			SessionID:       req.SessionID,
			Operation:       req.Operation,
			Strategy:        plan.Strategy,
			ComplexityLevel: plan.Complexity.Level,
			ComplexityScore: plan.Complexity.Score,
			Agents:          plan.Agents,
			Success:         success,
			Duration:        duration,
			CreatedAt:       time.Now(),
		})
	}
}

// Metrics returns a copy of the rolling metrics.
func (d *Delegator) Metrics() models.DelegationMetrics {
	d.mu.Lock()
	defer d.mu.Unlock()

	snapshot := d.metrics
	snapshot.StrategyUsage = make(map[models.Strategy]int64, len(d.metrics.StrategyUsage))
	for k, v := range d.metrics.StrategyUsage {
		snapshot.StrategyUsage[k] = v
	}
	return snapshot
}

// taskFromRequest renders a whole request as a single task for direct
// agent execution.
func taskFromRequest(req models.DelegationRequest, agentName string) models.TaskDefinition {
	desc := req.Description
	if desc == "" {
		desc = req.Operation
	}
	return models.TaskDefinition{
		ID:           uuid.NewString(),
		Description:  desc,
		SubagentType: agentName,
		Priority:     req.Priority,
	}
}

func boolToCount(b bool) int {
	if b {
		return 1
	}
	return 0
}
