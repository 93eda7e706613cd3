// Package registry manages the roster of agent capabilities and selects
// agents for delegation requests.
package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/htafolla/StringRay-sub003/internal/store"
	"github.com/htafolla/StringRay-sub003/pkg/models"
)

// Registry holds agent capability records and provides thread-safe
// selection and bookkeeping. Record identity and configuration live here;
// the ActiveTasks counter is mutated by execution bookkeeping.
type Registry struct {
	// agents maps agent name to its capability record.
	agents map[string]*models.AgentCapability
	// fallback is the name of the generic agent selection degrades to.
	fallback string
	// kv mirrors records and counters into the shared store, when set.
	kv store.KV
	// mu protects all fields.
	mu sync.RWMutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithAgents replaces the default roster with a custom one.
func WithAgents(agents []models.AgentCapability) Option {
	return func(r *Registry) {
		r.agents = make(map[string]*models.AgentCapability, len(agents))
		for i := range agents {
			a := agents[i]
			normalize(&a)
			r.agents[a.Name] = &a
		}
	}
}

// WithFallback sets the designated fallback agent name.
func WithFallback(name string) Option {
	return func(r *Registry) { r.fallback = name }
}

// WithStore mirrors agent records and in-flight counters into a shared
// key-value store under "agent:<name>" and "agent:<name>:active_tasks".
func WithStore(kv store.KV) Option {
	return func(r *Registry) { r.kv = kv }
}

// New creates a Registry seeded with the default roster.
func New(opts ...Option) *Registry {
	r := &Registry{fallback: FallbackAgent}
	WithAgents(DefaultRoster())(r)

	for _, opt := range opts {
		opt(r)
	}

	if r.kv != nil {
		r.mu.Lock()
		for name, a := range r.agents {
			r.mirrorLocked(name, a)
		}
		r.mu.Unlock()
	}
	return r
}

// normalize clamps a record's fields into their valid ranges.
func normalize(a *models.AgentCapability) {
	if a.Capacity < 1 {
		a.Capacity = 1
	}
	if a.Performance < 0 {
		a.Performance = 0
	}
	if a.Performance > 100 {
		a.Performance = 100
	}
	if a.ActiveTasks < 0 {
		a.ActiveTasks = 0
	}
}

// Register adds or replaces an agent record.
func (r *Registry) Register(a models.AgentCapability) {
	normalize(&a)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.Name] = &a
	r.mirrorLocked(a.Name, &a)
}

// Get returns a copy of the named agent's record.
func (r *Registry) Get(name string) (models.AgentCapability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[name]
	if !ok {
		return models.AgentCapability{}, false
	}
	return *a, true
}

// All returns copies of every record, sorted by name.
func (r *Registry) All() []models.AgentCapability {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.AgentCapability, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// UpdateCapability applies a partial update to an existing record.
// Unknown names are a no-op: a typo must never create a record.
func (r *Registry) UpdateCapability(name string, u models.CapabilityUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[name]
	if !ok {
		return
	}

	if u.Expertise != nil {
		a.Expertise = append([]string(nil), (*u.Expertise)...)
	}
	if u.Specialties != nil {
		a.Specialties = append([]string(nil), (*u.Specialties)...)
	}
	if u.Capacity != nil {
		a.Capacity = *u.Capacity
	}
	if u.Performance != nil {
		a.Performance = *u.Performance
	}
	normalize(a)
	r.mirrorLocked(name, a)
}

// SelectAgents picks agents for a request according to the recommended
// strategy. Single-agent strategies get the top-scoring available agent
// (or the fallback); multi-agent and orchestrator-led strategies get the
// top N available agents, N >= 2, derived from EstimatedAgents.
// The result is never empty.
func (r *Registry) SelectAgents(req models.DelegationRequest, score models.ComplexityScore) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	text := strings.ToLower(req.Operation + " " + req.Description)
	ranked := r.rankLocked(text)

	if score.RecommendedStrategy == models.StrategySingle {
		for _, name := range ranked {
			if r.agents[name].Available() {
				return []string{name}
			}
		}
		return []string{r.fallback}
	}

	want := score.EstimatedAgents
	if want < 2 {
		want = 2
	}

	var selected []string
	for _, name := range ranked {
		if len(selected) == want {
			break
		}
		if r.agents[name].Available() {
			selected = append(selected, name)
		}
	}

	// Pad with the fallback, then the best-ranked agents regardless of
	// availability; capacity is re-checked at dispatch time.
	if len(selected) < 2 {
		if !contains(selected, r.fallback) {
			selected = append(selected, r.fallback)
		}
		for _, name := range ranked {
			if len(selected) >= 2 {
				break
			}
			if !contains(selected, name) {
				selected = append(selected, name)
			}
		}
	}

	return selected
}

// ResolveCapability maps a subtask's subagent type to a concrete agent
// name. Exact names win; otherwise the type is matched against expertise
// and specialty tags; unknown types resolve to the fallback agent.
func (r *Registry) ResolveCapability(subagentType string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.agents[subagentType]; ok {
		return subagentType
	}

	ranked := r.rankLocked(strings.ToLower(subagentType))
	for _, name := range ranked {
		if scoreAgent(r.agents[name], strings.ToLower(subagentType)) > r.agents[name].Performance*performanceWeight {
			return name
		}
	}
	return r.fallback
}

// IncrementActive records that an agent picked up a task. Returns false
// if the agent is unknown or already at capacity; the counter never
// exceeds capacity.
func (r *Registry) IncrementActive(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[name]
	if !ok || !a.Available() {
		return false
	}
	a.ActiveTasks++
	r.mirrorCounterLocked(name, a.ActiveTasks)
	return true
}

// DecrementActive records that an agent finished (or stopped being
// waited on for) a task. The counter never goes below zero.
func (r *Registry) DecrementActive(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[name]
	if !ok || a.ActiveTasks == 0 {
		return
	}
	a.ActiveTasks--
	r.mirrorCounterLocked(name, a.ActiveTasks)
}

// rankLocked returns agent names ordered by descending selection score.
// Caller must hold r.mu.
func (r *Registry) rankLocked(text string) []string {
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}

	scores := make(map[string]float64, len(names))
	for _, name := range names {
		scores[name] = scoreAgent(r.agents[name], text)
	}

	sort.Slice(names, func(i, j int) bool {
		if scores[names[i]] != scores[names[j]] {
			return scores[names[i]] > scores[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// scoreAgent computes the weighted selection score for one agent against
// the lowercased request text.
func scoreAgent(a *models.AgentCapability, text string) float64 {
	var score float64
	for _, tag := range a.Expertise {
		if strings.Contains(text, strings.ToLower(tag)) {
			score += expertiseMatchWeight
		}
	}
	for _, tag := range a.Specialties {
		if strings.Contains(text, strings.ToLower(tag)) {
			score += specialtyMatchWeight
		}
	}
	return score + a.Performance*performanceWeight
}

// mirrorLocked writes an agent record into the shared store.
// Caller must hold r.mu.
func (r *Registry) mirrorLocked(name string, a *models.AgentCapability) {
	if r.kv == nil {
		return
	}
	record := *a
	r.kv.Set(store.AgentKey(name), record)
	r.kv.Set(store.ActiveTasksKey(name), a.ActiveTasks)
}

// mirrorCounterLocked writes an agent's in-flight counter into the shared
// store. Caller must hold r.mu.
func (r *Registry) mirrorCounterLocked(name string, active int) {
	if r.kv == nil {
		return
	}
	r.kv.Set(store.ActiveTasksKey(name), active)
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
