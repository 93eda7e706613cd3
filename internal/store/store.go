// Package store provides the shared key-value store used for agent record
// mirroring, in-flight counters, and orchestrator discovery. Only
// synchronous, read-after-write-visible get/set semantics are required
// within one process.
package store

import (
	"fmt"

	gocache "github.com/patrickmn/go-cache"
)

// Well-known key prefixes.
const (
	// agentKeyPrefix holds serialized agent capability records.
	agentKeyPrefix = "agent:"
	// activeTasksSuffix holds per-agent in-flight counters.
	activeTasksSuffix = ":active_tasks"
	// OrchestratorKey holds the coordinating collaborator, when one exists.
	OrchestratorKey = "orchestrator"
)

// AgentKey returns the store key for an agent's capability record.
func AgentKey(name string) string {
	return agentKeyPrefix + name
}

// ActiveTasksKey returns the store key for an agent's in-flight counter.
func ActiveTasksKey(name string) string {
	return fmt.Sprintf("%s%s%s", agentKeyPrefix, name, activeTasksSuffix)
}

// KV is the minimal key-value contract the delegation core needs.
type KV interface {
	// Get returns the value for a key and whether it exists.
	Get(key string) (any, bool)
	// Set stores a value. Writes are visible to subsequent Gets.
	Set(key string, value any)
	// Delete removes a key. Deleting a missing key is a no-op.
	Delete(key string)
}

// CacheStore is an in-process KV backed by go-cache. Entries never expire;
// the delegation core manages their lifecycle explicitly.
type CacheStore struct {
	cache *gocache.Cache
}

// NewCacheStore creates an empty CacheStore.
func NewCacheStore() *CacheStore {
	return &CacheStore{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get returns the value for a key and whether it exists.
func (s *CacheStore) Get(key string) (any, bool) {
	return s.cache.Get(key)
}

// Set stores a value with no expiration.
func (s *CacheStore) Set(key string, value any) {
	s.cache.Set(key, value, gocache.NoExpiration)
}

// Delete removes a key.
func (s *CacheStore) Delete(key string) {
	s.cache.Delete(key)
}

// Verify CacheStore implements KV at compile time.
var _ KV = (*CacheStore)(nil)
