package mapping

import (
	"sort"
	"time"

	"github.com/raaihank/pii-sentinel/internal/entity"
)

// Mapper translates text-span entities into the location
// representation their medium needs. Entities whose span cannot be
// resolved keep a nil Location and rely on the text-level fallback;
// they are never dropped.
type Mapper struct {
	coalesceGap time.Duration
}

// NewMapper creates a coordinate mapper. coalesceGap controls how
// close two time ranges must be to share one applied redaction
// segment.
func NewMapper(coalesceGap time.Duration) *Mapper {
	return &Mapper{coalesceGap: coalesceGap}
}

// MapText assigns the identity text location to every entity
func (m *Mapper) MapText(entities []entity.Entity) []entity.Entity {
	for i := range entities {
		entities[i].Location = entity.TextLocation(entities[i].Span)
	}
	return entities
}

// MapPage assigns text locations tagged with a PDF page number
func (m *Mapper) MapPage(entities []entity.Entity, page int) []entity.Entity {
	for i := range entities {
		loc := entity.TextLocation(entities[i].Span)
		loc.Page = page
		entities[i].Location = loc
	}
	return entities
}

// MapImage resolves each entity's span to the union of the OCR word
// boxes covering it.
func (m *Mapper) MapImage(entities []entity.Entity, idx *OCRIndex) []entity.Entity {
	for i := range entities {
		if region, ok := idx.Locate(entities[i].Span); ok {
			entities[i].Location = entity.PixelLocation(region)
		}
	}
	return entities
}

// MapTimed resolves each entity's span to the time range covering
// the ASR words it overlaps.
func (m *Mapper) MapTimed(entities []entity.Entity, idx *ASRIndex) []entity.Entity {
	for i := range entities {
		if tr, ok := idx.Locate(entities[i].Span); ok {
			entities[i].Location = entity.TimeLocation(tr)
		}
	}
	return entities
}

// Segments collects the time ranges of located entities and
// coalesces those separated by less than the gap threshold into one
// applied redaction segment. This only shapes the applied beeps; the
// logical entity set and audit log are untouched.
func (m *Mapper) Segments(entities []entity.Entity) []entity.TimeRange {
	var ranges []entity.TimeRange
	for _, e := range entities {
		if e.Location != nil && e.Location.Kind == entity.KindTime && e.Location.Time != nil {
			ranges = append(ranges, *e.Location.Time)
		}
	}
	return Coalesce(ranges, m.coalesceGap)
}

// Coalesce merges time ranges whose gap is below the threshold
func Coalesce(ranges []entity.TimeRange, gap time.Duration) []entity.TimeRange {
	if len(ranges) == 0 {
		return nil
	}

	sorted := make([]entity.TimeRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartMS < sorted[j].StartMS
	})

	gapMS := gap.Milliseconds()
	merged := []entity.TimeRange{sorted[0]}
	for _, tr := range sorted[1:] {
		last := &merged[len(merged)-1]
		if tr.StartMS-last.EndMS < gapMS {
			if tr.EndMS > last.EndMS {
				last.EndMS = tr.EndMS
			}
			continue
		}
		merged = append(merged, tr)
	}
	return merged
}

// Frames expands a time range to the frame indices it covers at the
// artifact's frame rate.
func Frames(tr entity.TimeRange, fps float64) []int {
	if fps <= 0 || tr.EndMS <= tr.StartMS {
		return nil
	}
	first := int(float64(tr.StartMS) * fps / 1000.0)
	last := int(float64(tr.EndMS-1) * fps / 1000.0)
	frames := make([]int, 0, last-first+1)
	for f := first; f <= last; f++ {
		frames = append(frames, f)
	}
	return frames
}
