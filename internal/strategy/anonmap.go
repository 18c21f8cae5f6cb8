package strategy

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"

	"github.com/raaihank/pii-sentinel/internal/entity"
)

// AnonymizationMap keeps one job's original-to-synthetic value
// mapping so repeated occurrences of the same value anonymize
// identically. Seeded from the job ID: deterministic within a job,
// independent across jobs. Owned by a single job and discarded with
// it.
type AnonymizationMap struct {
	mu     sync.Mutex
	rng    *rand.Rand
	values map[string]string
	used   map[string]bool
}

// NewAnonymizationMap creates a map seeded from the job identifier
func NewAnonymizationMap(jobID string) *AnonymizationMap {
	h := fnv.New64a()
	h.Write([]byte(jobID))
	return &AnonymizationMap{
		rng:    rand.New(rand.NewSource(int64(h.Sum64()))),
		values: make(map[string]string),
		used:   make(map[string]bool),
	}
}

// Replace returns the synthetic value for an original, generating
// and caching one on first sight. Lookup keys fold case and
// whitespace so "John Smith" and "john  smith" share a replacement.
// Distinct originals never share a synthetic: a generated value that
// collides with an earlier one is regenerated, then numbered once
// the type's combination space is exhausted.
func (m *AnonymizationMap) Replace(t entity.Type, value string) string {
	key := string(t) + ":" + Normalize(value)

	m.mu.Lock()
	defer m.mu.Unlock()

	if synthetic, ok := m.values[key]; ok {
		return synthetic
	}

	synthetic := generate(m.rng, t)
	for tries := 0; m.used[synthetic] && tries < 16; tries++ {
		synthetic = generate(m.rng, t)
	}
	if m.used[synthetic] {
		base := synthetic
		for n := 2; m.used[synthetic]; n++ {
			synthetic = fmt.Sprintf("%s %d", base, n)
		}
	}

	m.values[key] = synthetic
	m.used[synthetic] = true
	return synthetic
}

// Len returns the number of distinct values mapped so far
func (m *AnonymizationMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}
