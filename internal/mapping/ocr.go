package mapping

import (
	"strings"

	"github.com/raaihank/pii-sentinel/internal/entity"
)

// OCRWord is one recognized word with its bounding box, as supplied
// by the OCR collaborator.
type OCRWord struct {
	Text       string             `json:"text"`
	Box        entity.PixelRegion `json:"box"`
	Confidence float64            `json:"confidence"`
}

// OCRIndex maps character offsets in the canonical OCR text back to
// the word boxes that produced them. The canonical text is the
// space-joined word sequence.
type OCRIndex struct {
	text  string
	words []OCRWord
	// starts[i]/ends[i] are the character range of words[i] in text
	starts []int
	ends   []int
}

// NewOCRIndex builds the canonical text and offset index for a word
// sequence.
func NewOCRIndex(words []OCRWord) *OCRIndex {
	idx := &OCRIndex{
		words:  words,
		starts: make([]int, len(words)),
		ends:   make([]int, len(words)),
	}

	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			b.WriteByte(' ')
		}
		idx.starts[i] = b.Len()
		b.WriteString(w.Text)
		idx.ends[i] = b.Len()
	}
	idx.text = b.String()
	return idx
}

// Text returns the canonical text detectors run over
func (idx *OCRIndex) Text() string {
	return idx.text
}

// Locate returns the union of the boxes of all words overlapping the
// span. The second return is false when no word covers the span.
func (idx *OCRIndex) Locate(span entity.TextSpan) (entity.PixelRegion, bool) {
	var region entity.PixelRegion
	found := false
	for i := range idx.words {
		wordSpan := entity.TextSpan{Start: idx.starts[i], End: idx.ends[i]}
		if !span.Overlaps(wordSpan) {
			continue
		}
		if !found {
			region = idx.words[i].Box
			found = true
		} else {
			region = region.Union(idx.words[i].Box)
		}
	}
	return region, found
}
