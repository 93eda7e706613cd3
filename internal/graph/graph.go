// Package graph builds and validates the dependency graph over a batch
// of delegated tasks and groups it into parallel execution waves.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/htafolla/StringRay-sub003/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found in the task batch.
var ErrCycleDetected = errors.New("circular dependency detected")

// ErrUnknownDependency indicates a task depends on an ID not in the batch.
var ErrUnknownDependency = errors.New("dependency references unknown task")

// ErrDuplicateTask indicates two tasks in the batch share an ID.
var ErrDuplicateTask = errors.New("duplicate task id")

// DependencyGraph is a directed acyclic graph of task dependencies.
// Tasks are nodes, and edges represent "blocked by" relationships.
type DependencyGraph struct {
	mu sync.RWMutex
	// nodes maps task ID to the task itself.
	nodes map[string]models.TaskDefinition
	// edges maps task ID to IDs of tasks it depends on (is blocked by).
	edges map[string][]string
	// order preserves the submission order of task IDs.
	order []string
	// completed tracks which tasks have been marked complete.
	completed map[string]bool
}

// New creates an empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		nodes:     make(map[string]models.TaskDefinition),
		edges:     make(map[string][]string),
		completed: make(map[string]bool),
	}
}

// Build constructs the graph from a batch of tasks. It rejects duplicate
// task IDs, dependencies on IDs outside the batch, and circular
// dependencies.
func (g *DependencyGraph) Build(tasks []models.TaskDefinition) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	// First pass: register all tasks as nodes.
	for _, task := range tasks {
		if _, exists := g.nodes[task.ID]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateTask, task.ID)
		}
		g.nodes[task.ID] = task
		g.edges[task.ID] = nil
		g.order = append(g.order, task.ID)
	}

	// Second pass: build edges from the Dependencies fields.
	for _, task := range tasks {
		for _, depID := range task.Dependencies {
			if _, exists := g.nodes[depID]; !exists {
				return fmt.Errorf("%w: task %s depends on %s", ErrUnknownDependency, task.ID, depID)
			}
			g.edges[task.ID] = append(g.edges[task.ID], depID)
		}
	}

	if cycle := g.findCycleLocked(); len(cycle) > 0 {
		return fmt.Errorf("%w: %v", ErrCycleDetected, cycle)
	}

	return nil
}

// findCycleLocked returns the task IDs on a dependency cycle, or nil when
// the graph is acyclic. Uses depth-first search with coloring to detect
// back edges; the recursion stack at the moment a back edge is found
// names the offending tasks. Caller must hold g.mu.
func (g *DependencyGraph) findCycleLocked() []string {
	// Color states: 0 = white (unvisited), 1 = gray (in progress), 2 = black (done).
	colors := make(map[string]int, len(g.nodes))

	var stack []string
	var cycle []string
	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1
		stack = append(stack, id)

		for _, depID := range g.edges[id] {
			switch colors[depID] {
			case 1:
				// Back edge. Slice the stack from the repeated node.
				for i, sid := range stack {
					if sid == depID {
						cycle = append([]string(nil), stack[i:]...)
						break
					}
				}
				return true
			case 0:
				if visit(depID) {
					return true
				}
			}
			// color == 2 means already processed, skip.
		}

		colors[id] = 2
		stack = stack[:len(stack)-1]
		return false
	}

	for _, id := range g.order {
		if colors[id] == 0 {
			if visit(id) {
				return cycle
			}
		}
	}
	return nil
}

// HasCycle reports whether the graph contains a circular dependency.
func (g *DependencyGraph) HasCycle() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.findCycleLocked()) > 0
}

// Waves groups task IDs into execution waves. Every task in a wave has
// all of its dependencies satisfied by earlier waves, so tasks within a
// wave can run in parallel. A pass that places nothing while tasks
// remain means the leftovers block each other, which is reported as a
// cycle.
func (g *DependencyGraph) Waves() ([][]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	placed := make(map[string]bool, len(g.nodes))
	var waves [][]string

	for len(placed) < len(g.nodes) {
		var wave []string
		for _, id := range g.order {
			if placed[id] {
				continue
			}
			ready := true
			for _, depID := range g.edges[id] {
				if !placed[depID] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, id)
			}
		}

		if len(wave) == 0 {
			var stuck []string
			for _, id := range g.order {
				if !placed[id] {
					stuck = append(stuck, id)
				}
			}
			return nil, fmt.Errorf("%w: %v", ErrCycleDetected, stuck)
		}

		for _, id := range wave {
			placed[id] = true
		}
		waves = append(waves, wave)
	}

	return waves, nil
}

// GetReady returns task IDs with no unmet dependencies that have not yet
// been marked complete. These tasks can run in parallel. The result
// follows submission order.
func (g *DependencyGraph) GetReady() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []string
	for _, id := range g.order {
		if g.completed[id] {
			continue
		}

		allDepsComplete := true
		for _, depID := range g.edges[id] {
			if !g.completed[depID] {
				allDepsComplete = false
				break
			}
		}

		if allDepsComplete {
			ready = append(ready, id)
		}
	}

	return ready
}

// MarkComplete marks a task as completed in the graph.
// This affects subsequent calls to GetReady.
func (g *DependencyGraph) MarkComplete(taskID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.completed[taskID] = true
}

// GetTask returns the task for a given ID. The second return reports
// whether the ID is known.
func (g *DependencyGraph) GetTask(taskID string) (models.TaskDefinition, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	task, ok := g.nodes[taskID]
	return task, ok
}

// Size returns the number of tasks in the graph.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Order returns the task IDs in submission order.
func (g *DependencyGraph) Order() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.order...)
}

// GetDependencies returns the IDs of tasks that the given task depends on.
func (g *DependencyGraph) GetDependencies(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.edges[taskID]...)
}

// GetDependents returns the IDs of tasks that depend on the given task,
// sorted for stable output.
func (g *DependencyGraph) GetDependents(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []string
	for id, deps := range g.edges {
		for _, depID := range deps {
			if depID == taskID {
				dependents = append(dependents, id)
				break
			}
		}
	}
	sort.Strings(dependents)
	return dependents
}
