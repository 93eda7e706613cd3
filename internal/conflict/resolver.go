// Package conflict reconciles divergent agent outputs for overlapping
// decisions into a single winner under a named strategy.
package conflict

import (
	"errors"
	"fmt"
	"sort"

	"github.com/htafolla/StringRay-sub003/pkg/models"
)

// ErrNoCandidates indicates resolution was attempted on an empty set.
var ErrNoCandidates = errors.New("no candidates to resolve")

// Candidate is one agent's answer to an overlapping decision.
type Candidate struct {
	// Agent names the capability that produced the response.
	Agent string `json:"agent,omitempty"`
	// Response is the answer value being voted on.
	Response string `json:"response"`
	// Confidence is the candidate's expertise/confidence score.
	Confidence float64 `json:"confidence"`
	// Consensus marks a candidate the agents already converged on.
	Consensus bool `json:"consensus,omitempty"`
}

// Resolve returns the winning candidate under the given strategy.
// A single candidate always wins outright.
func Resolve(candidates []Candidate, strategy models.ConflictStrategy) (Candidate, error) {
	if len(candidates) == 0 {
		return Candidate{}, ErrNoCandidates
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	switch strategy {
	case models.ConflictMajorityVote:
		return resolveByMajority(candidates), nil
	case models.ConflictExpertPriority:
		return resolveByExpert(candidates), nil
	case models.ConflictConsensus:
		return resolveByConsensus(candidates), nil
	default:
		return Candidate{}, fmt.Errorf("unknown conflict strategy %q", strategy)
	}
}

// resolveByMajority picks the most frequent response value. Ties are
// broken by the highest summed confidence among the tied values.
func resolveByMajority(candidates []Candidate) Candidate {
	counts := make(map[string]int)
	confidence := make(map[string]float64)
	for _, c := range candidates {
		counts[c.Response]++
		confidence[c.Response] += c.Confidence
	}

	responses := make([]string, 0, len(counts))
	for r := range counts {
		responses = append(responses, r)
	}
	sort.Slice(responses, func(i, j int) bool {
		if counts[responses[i]] != counts[responses[j]] {
			return counts[responses[i]] > counts[responses[j]]
		}
		if confidence[responses[i]] != confidence[responses[j]] {
			return confidence[responses[i]] > confidence[responses[j]]
		}
		return responses[i] < responses[j]
	})

	winner := responses[0]

	// Return the strongest candidate carrying the winning response.
	best := Candidate{Confidence: -1}
	for _, c := range candidates {
		if c.Response == winner && c.Confidence > best.Confidence {
			best = c
		}
	}
	return best
}

// resolveByExpert picks the single candidate with the highest confidence,
// irrespective of how many candidates agree with it.
func resolveByExpert(candidates []Candidate) Candidate {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Confidence > best.Confidence {
			best = c
		}
	}
	return best
}

// resolveByConsensus picks the candidate already flagged as consensus.
// With no flagged candidate it falls back to expert priority.
func resolveByConsensus(candidates []Candidate) Candidate {
	for _, c := range candidates {
		if c.Consensus {
			return c
		}
	}
	return resolveByExpert(candidates)
}
