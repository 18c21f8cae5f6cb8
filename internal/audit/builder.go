package audit

import (
	"fmt"
	"time"

	"github.com/raaihank/pii-sentinel/internal/entity"
)

// FromEntities builds a job's audit trail from its merged entity set.
// digest turns the raw value into its non-reversible hash; the raw
// value itself is discarded here.
func FromEntities(jobID string, entities []entity.Entity, strategyID string, digest func(string) string) []Entry {
	now := time.Now().UTC()
	entries := make([]Entry, 0, len(entities))
	for _, e := range entities {
		entries = append(entries, Entry{
			JobID:         jobID,
			EntityType:    string(e.Type),
			Strategy:      strategyID,
			Source:        string(e.Source),
			Confidence:    e.Confidence,
			Locator:       locator(e),
			ValueHash:     digest(e.Value),
			RedactedValue: e.RedactedValue,
			CreatedAt:     now,
		})
	}
	return entries
}

// locator renders a human-readable position for the trail. The text
// span is always present; media locations are appended when mapped.
func locator(e entity.Entity) string {
	loc := fmt.Sprintf("text:%d-%d", e.Span.Start, e.Span.End)
	if e.Location == nil {
		return loc
	}
	switch e.Location.Kind {
	case entity.KindPixel:
		if e.Location.Pixel != nil {
			r := e.Location.Pixel
			if e.Location.Page > 0 {
				loc += fmt.Sprintf(" page:%d", e.Location.Page)
			}
			loc += fmt.Sprintf(" pixel:%d,%d,%d,%d", r.X0, r.Y0, r.X1, r.Y1)
		}
	case entity.KindTime:
		if e.Location.Time != nil {
			loc += fmt.Sprintf(" time:%d-%dms", e.Location.Time.StartMS, e.Location.Time.EndMS)
		}
	case entity.KindFrame:
		if e.Location.Frame != nil {
			f := e.Location.Frame
			loc += fmt.Sprintf(" frame:%d pixel:%d,%d,%d,%d", f.FrameIndex, f.X0, f.Y0, f.X1, f.Y1)
		}
	}
	return loc
}
