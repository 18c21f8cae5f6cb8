package detect

import (
	"context"
	"sort"

	"github.com/raaihank/pii-sentinel/internal/entity"
)

// Detector is one detection engine. Detect scans the canonical text
// of an artifact and returns entities with Span offsets into that
// text. Implementations are pure transforms: they never mutate the
// input and carry no per-call state.
type Detector interface {
	// Name returns the engine identifier used in entity provenance
	// and engine-status reporting.
	Name() string

	// Detect scans text for PII. The entity type filter restricts
	// output when non-empty; a nil or "all" filter means everything.
	Detect(ctx context.Context, text string, types []string) ([]entity.Entity, error)
}

// KnownTypes lists every entity type the built-in engines can emit,
// for the discovery endpoint.
func KnownTypes() []string {
	seen := make(map[string]bool)
	for t := range patternTable {
		seen[string(t)] = true
	}
	for _, t := range nerLabelToType {
		if piiRelevant[t] {
			seen[string(t)] = true
		}
	}
	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// typeEnabled checks an entity type against a filter list
func typeEnabled(t entity.Type, types []string) bool {
	if len(types) == 0 {
		return true
	}
	for _, want := range types {
		if want == "all" || want == string(t) {
			return true
		}
	}
	return false
}
