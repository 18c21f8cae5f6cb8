package merge

import (
	"sort"

	"github.com/raaihank/pii-sentinel/internal/entity"
)

// Boost added to an entity's confidence when two engines agree on
// the same occurrence, capped at 1.0.
const multiSourceBoost = 0.10

// Merger reconciles candidate entities from multiple detection
// engines into one non-overlapping canonical set. The result is
// deterministic for any arrival order of the candidates.
type Merger struct {
	threshold    float64
	typePriority map[string]int
}

// New creates a merger. threshold is the overlap ratio above which
// two spans are treated as duplicates of the same occurrence;
// typePriority optionally overrides the built-in specificity table.
func New(threshold float64, typePriority map[string]int) *Merger {
	return &Merger{threshold: threshold, typePriority: typePriority}
}

// Merge collapses duplicates and enforces span disjointness.
//
// Candidates are sorted by start ascending, end descending (longer
// spans first), then confidence descending, and swept left to right
// against the last accepted entity. Any overlap is resolved to a
// single winner so the output is always disjoint; overlap above the
// threshold (or full containment) additionally counts as multi-engine
// agreement and boosts the winner's confidence.
func (m *Merger) Merge(candidates []entity.Entity) []entity.Entity {
	if len(candidates) == 0 {
		return nil
	}

	sorted := make([]entity.Entity, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Span.Start != b.Span.Start {
			return a.Span.Start < b.Span.Start
		}
		if a.Span.End != b.Span.End {
			return a.Span.End > b.Span.End
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		// Total order even for identical spans and confidence
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Source < b.Source
	})

	accepted := make([]entity.Entity, 0, len(sorted))
	for _, cand := range sorted {
		if len(accepted) == 0 {
			accepted = append(accepted, cand)
			continue
		}

		last := &accepted[len(accepted)-1]
		overlap := cand.Span.Overlap(last.Span)
		if overlap == 0 {
			accepted = append(accepted, cand)
			continue
		}

		winner := m.resolve(*last, cand)

		// Overlap past the threshold, or containment either way,
		// means both engines saw the same occurrence.
		minLen := cand.Span.Len()
		if l := last.Span.Len(); l < minLen {
			minLen = l
		}
		duplicate := minLen > 0 && float64(overlap)/float64(minLen) > m.threshold ||
			cand.Span.Contains(last.Span) || last.Span.Contains(cand.Span)

		if duplicate && cand.Source != last.Source {
			winner.Confidence = winner.Confidence + multiSourceBoost
			if winner.Confidence > 1.0 {
				winner.Confidence = 1.0
			}
			winner.Source = last.Source.Combined(cand.Source)
		}

		*last = winner
	}

	sort.Slice(accepted, func(i, j int) bool {
		return accepted[i].Span.Start < accepted[j].Span.Start
	})
	return accepted
}

// resolve picks the canonical entity between two overlapping
// detections: higher type specificity wins, then higher confidence,
// then the longer span.
func (m *Merger) resolve(a, b entity.Entity) entity.Entity {
	pa := entity.Priority(a.Type, m.typePriority)
	pb := entity.Priority(b.Type, m.typePriority)
	if pa != pb {
		if pa > pb {
			return a
		}
		return b
	}
	if a.Confidence != b.Confidence {
		if a.Confidence > b.Confidence {
			return a
		}
		return b
	}
	if a.Span.Len() >= b.Span.Len() {
		return a
	}
	return b
}
