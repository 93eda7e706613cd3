package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/htafolla/StringRay-sub003/pkg/models"
)

// rosterFile is the on-disk shape of an agent roster.
type rosterFile struct {
	// Agents is the list of capability records.
	Agents []models.AgentCapability `yaml:"agents"`
	// Fallback names the generic agent; defaults to FallbackAgent.
	Fallback string `yaml:"fallback,omitempty"`
}

// LoadRoster reads an agent roster from a YAML file and returns a Registry
// seeded from it. Records with empty names are rejected.
func LoadRoster(path string, opts ...Option) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}

	var rf rosterFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse roster %s: %w", path, err)
	}
	if len(rf.Agents) == 0 {
		return nil, fmt.Errorf("roster %s contains no agents", path)
	}
	for _, a := range rf.Agents {
		if a.Name == "" {
			return nil, fmt.Errorf("roster %s contains an agent with no name", path)
		}
	}

	all := append([]Option{WithAgents(rf.Agents)}, opts...)
	if rf.Fallback != "" {
		all = append(all, WithFallback(rf.Fallback))
	}
	return New(all...), nil
}
