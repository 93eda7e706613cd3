package delegate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/htafolla/StringRay-sub003/internal/registry"
	"github.com/htafolla/StringRay-sub003/internal/scheduler"
	"github.com/htafolla/StringRay-sub003/internal/store"
	"github.com/htafolla/StringRay-sub003/pkg/models"
)

// The scheduler must satisfy the coordinator contract directly.
var _ Coordinator = (*scheduler.Scheduler)(nil)

// execFunc adapts a function to the agent.Executor interface.
type execFunc func(ctx context.Context, agentName string, task models.TaskDefinition) (*models.AgentResult, error)

func (f execFunc) Execute(ctx context.Context, agentName string, task models.TaskDefinition) (*models.AgentResult, error) {
	return f(ctx, agentName, task)
}

func okExecutor(result string) execFunc {
	return func(_ context.Context, name string, _ models.TaskDefinition) (*models.AgentResult, error) {
		return &models.AgentResult{Success: true, Result: result + " from " + name, Confidence: 0.8}, nil
	}
}

func simpleRequest() models.DelegationRequest {
	return models.DelegationRequest{
		Operation:   "format",
		Description: "format the file",
		Context: models.RequestContext{
			Files:        []string{"a.ts"},
			ChangeVolume: 10,
			RiskLevel:    models.RiskLow,
		},
	}
}

func enterpriseRequest() models.DelegationRequest {
	files := make([]string, 50)
	for i := range files {
		files[i] = fmt.Sprintf("pkg/file%d.go", i)
	}
	return models.DelegationRequest{
		Operation:   "enterprise",
		Description: "replatform the billing system",
		Context: models.RequestContext{
			Files:        files,
			ChangeVolume: 10000,
			Dependencies: 100,
			RiskLevel:    models.RiskCritical,
		},
	}
}

func TestAnalyzeEmptyRequestYieldsValidSingleAgentPlan(t *testing.T) {
	d := New(okExecutor("ok"))

	plan := d.Analyze(models.DelegationRequest{})
	if err := plan.Validate(); err != nil {
		t.Fatalf("empty request must analyze to a valid plan: %v", err)
	}
	if plan.Strategy != models.StrategySingle {
		t.Errorf("expected single-agent for empty request, got %s", plan.Strategy)
	}
	if len(plan.Agents) != 1 {
		t.Errorf("expected exactly 1 agent, got %v", plan.Agents)
	}
}

func TestAnalyzePlanCoupling(t *testing.T) {
	d := New(okExecutor("ok"))

	for _, req := range []models.DelegationRequest{simpleRequest(), enterpriseRequest()} {
		plan := d.Analyze(req)
		if err := plan.Validate(); err != nil {
			t.Errorf("%s: invalid plan: %v", req.Operation, err)
		}
		single := plan.Strategy == models.StrategySingle
		if single && len(plan.Agents) != 1 {
			t.Errorf("%s: single-agent plan has %d agents", req.Operation, len(plan.Agents))
		}
		if !single && len(plan.Agents) < 2 {
			t.Errorf("%s: %s plan has %d agents", req.Operation, plan.Strategy, len(plan.Agents))
		}
	}
}

func TestAnalyzeEnterpriseScenario(t *testing.T) {
	d := New(okExecutor("ok"))

	plan := d.Analyze(enterpriseRequest())
	if plan.Strategy != models.StrategyOrchestrated {
		t.Errorf("expected orchestrator-led, got %s", plan.Strategy)
	}
	if plan.Complexity.Level != models.ComplexityEnterprise {
		t.Errorf("expected enterprise level, got %s", plan.Complexity.Level)
	}
	if len(plan.Agents) <= 2 {
		t.Errorf("expected more than 2 agents, got %v", plan.Agents)
	}
	if plan.ConflictResolution != models.ConflictConsensus {
		t.Errorf("expected consensus resolution at enterprise level, got %s", plan.ConflictResolution)
	}
}

func TestMetricsAccounting(t *testing.T) {
	d := New(okExecutor("ok"))

	reqs := []models.DelegationRequest{
		simpleRequest(), simpleRequest(), enterpriseRequest(), {},
	}
	for _, req := range reqs {
		d.Analyze(req)
	}

	m := d.Metrics()
	if m.TotalDelegations != int64(len(reqs)) {
		t.Errorf("expected %d total delegations, got %d", len(reqs), m.TotalDelegations)
	}
	var sum int64
	for _, n := range m.StrategyUsage {
		sum += n
	}
	if sum != m.TotalDelegations {
		t.Errorf("strategy usage sums to %d, want %d", sum, m.TotalDelegations)
	}
}

func TestExecuteSingleAgentErrorPropagates(t *testing.T) {
	boom := errors.New("agent exploded")
	d := New(execFunc(func(_ context.Context, _ string, _ models.TaskDefinition) (*models.AgentResult, error) {
		return nil, boom
	}))

	req := simpleRequest()
	_, err := d.Delegate(context.Background(), req)
	if !errors.Is(err, boom) {
		t.Fatalf("single-agent error must propagate unchanged, got %v", err)
	}

	m := d.Metrics()
	if m.FailedDelegations != 1 {
		t.Errorf("expected 1 failed delegation, got %d", m.FailedDelegations)
	}
}

func TestExecuteMultiAgentPartialSuccess(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	d := New(execFunc(func(_ context.Context, name string, _ models.TaskDefinition) (*models.AgentResult, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			return nil, errors.New("first agent down")
		}
		return &models.AgentResult{Success: true, Result: "answer from " + name, Confidence: 0.7}, nil
	}))

	plan := &models.DelegationPlan{
		Strategy:           models.StrategyMulti,
		Agents:             []string{"code-reviewer", "security-analyst", "generalist"},
		Complexity:         models.ComplexityScore{Level: models.ComplexityComplex, Score: 30},
		ConflictResolution: models.ConflictMajorityVote,
	}
	out, err := d.Execute(context.Background(), plan, simpleRequest())
	if err != nil {
		t.Fatalf("partial failure must not fail the call: %v", err)
	}
	if !out.Success {
		t.Error("outcome should be successful")
	}
	if out.Succeeded != 2 || out.Failed != 1 {
		t.Errorf("expected 2 succeeded / 1 failed, got %d/%d", out.Succeeded, out.Failed)
	}
	if len(out.Agents) != 3 {
		t.Fatalf("expected a slot per agent, got %d", len(out.Agents))
	}
	if out.Output == "" {
		t.Error("expected a reconciled output")
	}
}

func TestExecuteMultiAgentAllFailed(t *testing.T) {
	d := New(execFunc(func(_ context.Context, _ string, _ models.TaskDefinition) (*models.AgentResult, error) {
		return nil, errors.New("down")
	}))

	plan := &models.DelegationPlan{
		Strategy:           models.StrategyMulti,
		Agents:             []string{"a", "b"},
		Complexity:         models.ComplexityScore{Level: models.ComplexityComplex, Score: 30},
		ConflictResolution: models.ConflictMajorityVote,
	}
	if _, err := d.Execute(context.Background(), plan, simpleRequest()); err == nil {
		t.Fatal("expected error when every agent fails")
	}
	if m := d.Metrics(); m.FailedDelegations != 1 {
		t.Errorf("expected 1 failed delegation, got %d", m.FailedDelegations)
	}
}

// fakeCoordinator returns canned results, or an error when broken.
type fakeCoordinator struct {
	broken bool
	calls  int
}

func (f *fakeCoordinator) ExecuteComplexTask(_ context.Context, tasks []models.TaskDefinition) ([]models.TaskResult, error) {
	f.calls++
	if f.broken {
		return nil, errors.New("coordinator offline")
	}
	results := make([]models.TaskResult, 0, len(tasks))
	for _, task := range tasks {
		results = append(results, models.TaskResult{
			TaskID:  task.ID,
			Agent:   task.SubagentType,
			Success: true,
			Result:  "coordinated " + task.SubagentType,
		})
	}
	return results, nil
}

func orchestratedPlan() *models.DelegationPlan {
	return &models.DelegationPlan{
		Strategy:           models.StrategyOrchestrated,
		Agents:             []string{"api-designer", "security-analyst", "test-strategist"},
		Complexity:         models.ComplexityScore{Level: models.ComplexityEnterprise, Score: 100},
		ConflictResolution: models.ConflictConsensus,
	}
}

func TestExecuteOrchestratedConsolidates(t *testing.T) {
	coord := &fakeCoordinator{}
	d := New(okExecutor("ok"), WithCoordinator(coord))

	out, err := d.Execute(context.Background(), orchestratedPlan(), enterpriseRequest())
	if err != nil {
		t.Fatal(err)
	}
	if !out.Consolidated {
		t.Error("expected a consolidated outcome")
	}
	if out.Succeeded != 3 || out.Failed != 0 {
		t.Errorf("expected 3/0 counts, got %d/%d", out.Succeeded, out.Failed)
	}
	if coord.calls != 1 {
		t.Errorf("coordinator should be called once, got %d", coord.calls)
	}
}

func TestExecuteOrchestratedFallsBackWithoutCoordinator(t *testing.T) {
	d := New(okExecutor("ok"))

	out, err := d.Execute(context.Background(), orchestratedPlan(), enterpriseRequest())
	if err != nil {
		t.Fatalf("missing coordinator must never surface an error: %v", err)
	}
	if out.Consolidated {
		t.Error("fallback outcome should not be marked consolidated")
	}
	if !out.Success {
		t.Error("fallback fan-out should succeed")
	}
	if len(out.Agents) != 3 {
		t.Errorf("fallback should use the same selected agents, got %d slots", len(out.Agents))
	}
}

func TestExecuteOrchestratedFallsBackOnCoordinatorError(t *testing.T) {
	coord := &fakeCoordinator{broken: true}
	d := New(okExecutor("ok"), WithCoordinator(coord))

	out, err := d.Execute(context.Background(), orchestratedPlan(), enterpriseRequest())
	if err != nil {
		t.Fatalf("coordinator failure must never surface an error: %v", err)
	}
	if out.Consolidated {
		t.Error("fallback outcome should not be marked consolidated")
	}
	if coord.calls != 1 {
		t.Errorf("coordinator should be attempted once, got %d", coord.calls)
	}
}

// soloRegistry returns a registry with one capacity-1 agent that is
// also the fallback, so every plan resolves to it.
func soloRegistry() *registry.Registry {
	return registry.New(
		registry.WithAgents([]models.AgentCapability{{
			Name:        "only",
			Expertise:   []string{"formatting"},
			Capacity:    1,
			Performance: 90,
		}}),
		registry.WithFallback("only"),
	)
}

func TestSingleAgentWaitsForCapacity(t *testing.T) {
	reg := soloRegistry()
	if !reg.IncrementActive("only") {
		t.Fatal("expected to reserve the only slot")
	}

	d := New(okExecutor("ok"), WithRegistry(reg))
	done := make(chan error, 1)
	go func() {
		_, err := d.Delegate(context.Background(), simpleRequest())
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("delegation should wait for capacity, returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	reg.DecrementActive("only")

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("delegation did not finish after capacity freed")
	}

	if a, _ := reg.Get("only"); a.ActiveTasks != 0 {
		t.Errorf("active counter should settle at 0, got %d", a.ActiveTasks)
	}
}

func TestCapacityWaitHonorsCancellation(t *testing.T) {
	reg := soloRegistry()
	if !reg.IncrementActive("only") {
		t.Fatal("expected to reserve the only slot")
	}

	d := New(okExecutor("ok"), WithRegistry(reg))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := d.Delegate(ctx, simpleRequest())
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled delegation never returned")
	}

	if a, _ := reg.Get("only"); a.ActiveTasks != 1 {
		t.Errorf("foreign reservation must survive untouched, got %d", a.ActiveTasks)
	}
}

func TestExecuteWithoutExecutorErrors(t *testing.T) {
	d := New(nil)

	_, err := d.Delegate(context.Background(), simpleRequest())
	if !errors.Is(err, ErrNoExecutor) {
		t.Fatalf("expected ErrNoExecutor, got %v", err)
	}
}

func TestDiscoverCoordinatorFindsScheduler(t *testing.T) {
	kv := store.NewCacheStore()
	kv.Set(store.OrchestratorKey, scheduler.New(registry.New(), okExecutor("ok")))

	if DiscoverCoordinator(kv) == nil {
		t.Fatal("a stored scheduler should be discovered as coordinator")
	}
}

func TestDiscoverCoordinator(t *testing.T) {
	kv := store.NewCacheStore()

	if c := DiscoverCoordinator(kv); c != nil {
		t.Error("expected nil coordinator on empty store")
	}

	kv.Set(store.OrchestratorKey, "not a coordinator")
	if c := DiscoverCoordinator(kv); c != nil {
		t.Error("expected nil coordinator for wrong stored type")
	}

	coord := &fakeCoordinator{}
	kv.Set(store.OrchestratorKey, coord)
	if c := DiscoverCoordinator(kv); c == nil {
		t.Error("expected stored coordinator to be discovered")
	}
}

// memoryRecorder collects delegation records in memory.
type memoryRecorder struct {
	mu   sync.Mutex
	recs []models.DelegationRecord
}

func (m *memoryRecorder) RecordDelegation(rec models.DelegationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func TestExecuteWritesHistory(t *testing.T) {
	rec := &memoryRecorder{}
	d := New(okExecutor("ok"), WithRecorder(rec))

	if _, err := d.Delegate(context.Background(), simpleRequest()); err != nil {
		t.Fatal(err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.recs) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(rec.recs))
	}
	r := rec.recs[0]
	if r.Operation != "format" || !r.Success || r.ID == "" {
		t.Errorf("unexpected record: %+v", r)
	}
}

func TestRollingAverages(t *testing.T) {
	d := New(okExecutor("ok"))

	for i := 0; i < 3; i++ {
		if _, err := d.Delegate(context.Background(), simpleRequest()); err != nil {
			t.Fatal(err)
		}
	}

	m := d.Metrics()
	if m.SuccessfulDelegations != 3 {
		t.Errorf("expected 3 successes, got %d", m.SuccessfulDelegations)
	}
	if m.AverageComplexity <= 0 {
		t.Errorf("average complexity should be positive, got %v", m.AverageComplexity)
	}
}
