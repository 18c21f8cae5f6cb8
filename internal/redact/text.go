package redact

import (
	"sort"

	"github.com/raaihank/pii-sentinel/internal/entity"
	"github.com/raaihank/pii-sentinel/internal/strategy"
)

// ApplyText substitutes each entity's replacement value into the
// text. Entities are applied right to left so earlier spans stay
// valid while later ones are rewritten. Returns the redacted text
// and the entities with RedactedValue populated, ordered by span.
func ApplyText(text string, entities []entity.Entity, eng *strategy.Engine, strat strategy.Strategy, amap *strategy.AnonymizationMap) (string, []entity.Entity) {
	if len(entities) == 0 {
		return text, entities
	}

	updated := make([]entity.Entity, len(entities))
	copy(updated, entities)
	sort.Slice(updated, func(i, j int) bool {
		return updated[i].Span.Start > updated[j].Span.Start
	})

	redacted := text
	for i := range updated {
		replacement := eng.Redact(updated[i], strat, amap)
		updated[i].RedactedValue = replacement

		start, end := updated[i].Span.Start, updated[i].Span.End
		if start < 0 || end > len(redacted) || start >= end {
			continue
		}
		redacted = redacted[:start] + replacement + redacted[end:]
	}

	sort.Slice(updated, func(i, j int) bool {
		return updated[i].Span.Start < updated[j].Span.Start
	})
	return redacted, updated
}
