package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/htafolla/StringRay-sub003/internal/agent"
	"github.com/htafolla/StringRay-sub003/internal/conflict"
	"github.com/htafolla/StringRay-sub003/internal/graph"
	"github.com/htafolla/StringRay-sub003/internal/registry"
	"github.com/htafolla/StringRay-sub003/pkg/models"
)

// Config holds the scheduler's execution limits.
type Config struct {
	// MaxConcurrentTasks bounds how many tasks run at once across all waves.
	MaxConcurrentTasks int
	// TaskTimeout is the per-task deadline. A task that exceeds it is
	// recorded as failed; the underlying agent call is left to finish
	// in the background.
	TaskTimeout time.Duration
	// ConflictStrategy is the default strategy for ResolveConflicts.
	ConflictStrategy models.ConflictStrategy
	// MaxRetries is how many times a failed agent call is retried
	// before the task is recorded as failed.
	MaxRetries int
	// RetryBackoff is the delay before the first retry. Each further
	// retry doubles it.
	RetryBackoff time.Duration
}

// DefaultConfig returns the scheduler defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentTasks: 5,
		TaskTimeout:        300 * time.Second,
		ConflictStrategy:   models.ConflictMajorityVote,
		MaxRetries:         2,
		RetryBackoff:       500 * time.Millisecond,
	}
}

// Status is a snapshot of the scheduler's current load and limits.
type Status struct {
	InFlight           int                     `json:"in_flight"`
	MaxConcurrentTasks int                     `json:"max_concurrent_tasks"`
	TaskTimeout        time.Duration           `json:"task_timeout"`
	ConflictStrategy   models.ConflictStrategy `json:"conflict_strategy"`
}

// Scheduler executes dependency-ordered task batches with bounded
// concurrency. Tasks are grouped into waves by the dependency graph;
// tasks within a wave run in parallel up to MaxConcurrentTasks.
type Scheduler struct {
	cfg      Config
	registry *registry.Registry
	exec     agent.Executor

	mu       sync.Mutex
	inFlight int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithConfig overrides the default execution limits.
func WithConfig(cfg Config) Option {
	return func(s *Scheduler) {
		if cfg.MaxConcurrentTasks > 0 {
			s.cfg.MaxConcurrentTasks = cfg.MaxConcurrentTasks
		}
		if cfg.TaskTimeout > 0 {
			s.cfg.TaskTimeout = cfg.TaskTimeout
		}
		if cfg.ConflictStrategy.Valid() {
			s.cfg.ConflictStrategy = cfg.ConflictStrategy
		}
		if cfg.MaxRetries >= 0 {
			s.cfg.MaxRetries = cfg.MaxRetries
		}
		if cfg.RetryBackoff > 0 {
			s.cfg.RetryBackoff = cfg.RetryBackoff
		}
	}
}

// New creates a Scheduler dispatching to reg's agents via exec.
func New(reg *registry.Registry, exec agent.Executor, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:      DefaultConfig(),
		registry: reg,
		exec:     exec,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExecuteComplexTask runs a batch of interdependent tasks and returns
// one result per task, in the order the tasks were submitted. Graph
// validation failures (duplicate IDs, unknown dependencies, cycles)
// reject the whole batch before any task starts. A failed task does not
// stop its wave; its dependents are recorded as failed without running.
func (s *Scheduler) ExecuteComplexTask(ctx context.Context, tasks []models.TaskDefinition) ([]models.TaskResult, error) {
	g := graph.New()
	if err := g.Build(tasks); err != nil {
		return nil, fmt.Errorf("invalid task batch: %w", err)
	}

	waves, err := g.Waves()
	if err != nil {
		return nil, fmt.Errorf("invalid task batch: %w", err)
	}
	debugLog("[scheduler] executing %d tasks in %d waves", len(tasks), len(waves))

	// resMu guards results and failed. Dependency lookups only consult
	// entries settled in earlier waves, so within a wave the worker
	// goroutines never read what their siblings write.
	var resMu sync.Mutex
	results := make(map[string]models.TaskResult, len(tasks))
	failed := make(map[string]bool, len(tasks))
	sem := make(chan struct{}, s.cfg.MaxConcurrentTasks)

	for i, wave := range waves {
		debugLog("[scheduler] wave %d: %v", i, wave)

		var wg sync.WaitGroup

		for _, id := range wave {
			task, _ := g.GetTask(id)

			// A task below a failed dependency is settled without running.
			if blockedBy := s.failedDependency(g, id, failed, &resMu); blockedBy != "" {
				debugLog("[scheduler] task %s blocked by failed dependency %s", id, blockedBy)
				resMu.Lock()
				results[id] = models.TaskResult{
					TaskID:  id,
					Success: false,
					Error:   fmt.Sprintf("blocked by failed dependency %s", blockedBy),
				}
				failed[id] = true
				resMu.Unlock()
				continue
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return nil, ctx.Err()
			}

			wg.Add(1)
			go func(task models.TaskDefinition) {
				defer wg.Done()
				defer func() { <-sem }()

				res := s.runTask(ctx, task)

				resMu.Lock()
				results[task.ID] = res
				if !res.Success {
					failed[task.ID] = true
				}
				resMu.Unlock()
			}(task)
		}

		wg.Wait()

		for _, id := range wave {
			if !failed[id] {
				g.MarkComplete(id)
			}
		}
	}

	ordered := make([]models.TaskResult, 0, len(tasks))
	for _, id := range g.Order() {
		ordered = append(ordered, results[id])
	}
	return ordered, nil
}

// failedDependency returns the ID of a failed dependency of the task,
// or "" when all of its dependencies succeeded.
func (s *Scheduler) failedDependency(g *graph.DependencyGraph, taskID string, failed map[string]bool, mu *sync.Mutex) string {
	mu.Lock()
	defer mu.Unlock()
	for _, depID := range g.GetDependencies(taskID) {
		if failed[depID] {
			return depID
		}
	}
	return ""
}

// capacityPollInterval is how often dispatch rechecks a full agent's
// in-flight counter. The registry has no free-capacity signal.
const capacityPollInterval = 10 * time.Millisecond

// acquireAgent reserves a slot on the agent's in-flight counter,
// waiting for capacity to free up when the agent is full. Agents
// unknown to the registry are dispatched untracked. The per-task
// deadline and the caller's context bound the wait.
func (s *Scheduler) acquireAgent(ctx context.Context, name string, deadline <-chan time.Time) (tracked bool, err error) {
	if _, ok := s.registry.Get(name); !ok {
		return false, nil
	}
	for !s.registry.IncrementActive(name) {
		select {
		case <-time.After(capacityPollInterval):
		case <-deadline:
			return false, fmt.Errorf("timed out after %s waiting for agent %s", s.cfg.TaskTimeout, name)
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return true, nil
}

// runTask dispatches one task to its agent and waits for completion or
// the per-task timeout. On timeout the task is settled as failed; the
// agent call keeps running in the background and its result is dropped.
func (s *Scheduler) runTask(ctx context.Context, task models.TaskDefinition) models.TaskResult {
	agentName := s.registry.ResolveCapability(task.SubagentType)
	start := time.Now()

	timer := time.NewTimer(s.cfg.TaskTimeout)
	defer timer.Stop()

	tracked, err := s.acquireAgent(ctx, agentName, timer.C)
	if err != nil {
		debugLog("[scheduler] task %s never dispatched: %v", task.ID, err)
		return models.TaskResult{
			TaskID:   task.ID,
			Agent:    agentName,
			Success:  false,
			Error:    err.Error(),
			Duration: time.Since(start),
		}
	}
	s.trackStart()

	type outcome struct {
		res *models.AgentResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := s.callWithRetry(ctx, agentName, task)
		done <- outcome{res, err}
		s.trackDone(agentName, tracked)
	}()

	select {
	case out := <-done:
		duration := time.Since(start)
		if out.err != nil {
			debugLog("[scheduler] task %s failed on agent %s: %v", task.ID, agentName, out.err)
			return models.TaskResult{
				TaskID:   task.ID,
				Agent:    agentName,
				Success:  false,
				Error:    out.err.Error(),
				Duration: duration,
			}
		}
		debugLog("[scheduler] task %s completed on agent %s in %s", task.ID, agentName, duration)
		return models.TaskResult{
			TaskID:   task.ID,
			Agent:    agentName,
			Success:  out.res.Success,
			Result:   out.res.Result,
			Error:    out.res.Error,
			Duration: duration,
		}

	case <-timer.C:
		debugLog("[scheduler] task %s timed out after %s on agent %s", task.ID, s.cfg.TaskTimeout, agentName)
		return models.TaskResult{
			TaskID:   task.ID,
			Agent:    agentName,
			Success:  false,
			Error:    fmt.Sprintf("timed out after %s", s.cfg.TaskTimeout),
			Duration: time.Since(start),
		}

	case <-ctx.Done():
		return models.TaskResult{
			TaskID:   task.ID,
			Agent:    agentName,
			Success:  false,
			Error:    ctx.Err().Error(),
			Duration: time.Since(start),
		}
	}
}

// callWithRetry invokes the executor, retrying failed calls with
// doubling backoff up to MaxRetries.
func (s *Scheduler) callWithRetry(ctx context.Context, agentName string, task models.TaskDefinition) (*models.AgentResult, error) {
	backoff := s.cfg.RetryBackoff
	var lastErr error

	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			debugLog("[scheduler] retrying task %s on agent %s (attempt %d)", task.ID, agentName, attempt+1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}

		res, err := s.exec.Execute(ctx, agentName, task)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, lastErr
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", s.cfg.MaxRetries+1, lastErr)
}

// trackStart records a dispatch. The agent's active counter was already
// reserved by acquireAgent.
func (s *Scheduler) trackStart() {
	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()
}

// trackDone settles the counters after the call returns, even when the
// task was already reported as timed out. The agent's counter is only
// released when acquireAgent reserved it.
func (s *Scheduler) trackDone(agentName string, tracked bool) {
	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
	if tracked {
		s.registry.DecrementActive(agentName)
	}
}

// ResolveConflicts reconciles divergent agent outputs using the given
// strategy, falling back to the configured default when it is empty.
func (s *Scheduler) ResolveConflicts(candidates []conflict.Candidate, strategy models.ConflictStrategy) (conflict.Candidate, error) {
	if strategy == "" {
		strategy = s.cfg.ConflictStrategy
	}
	return conflict.Resolve(candidates, strategy)
}

// GetStatus returns a snapshot of current load and configured limits.
func (s *Scheduler) GetStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		InFlight:           s.inFlight,
		MaxConcurrentTasks: s.cfg.MaxConcurrentTasks,
		TaskTimeout:        s.cfg.TaskTimeout,
		ConflictStrategy:   s.cfg.ConflictStrategy,
	}
}
