package mapping

import (
	"strings"

	"github.com/raaihank/pii-sentinel/internal/entity"
)

// ASRWord is one transcribed word with millisecond timestamps
type ASRWord struct {
	Word    string `json:"word"`
	StartMS int64  `json:"start_ms"`
	EndMS   int64  `json:"end_ms"`
}

// Transcript is the ASR collaborator's output: the full transcript
// text plus word-level timestamps. Text may contain punctuation and
// spacing the word list does not, so words are located in it by a
// forward search rather than by concatenation.
type Transcript struct {
	Text  string    `json:"text"`
	Words []ASRWord `json:"words"`
}

// ASRIndex maps character offsets in the transcript text to word
// timestamps.
type ASRIndex struct {
	text   string
	words  []ASRWord
	starts []int
	ends   []int
}

// NewASRIndex resolves each word's character position in the
// transcript with a left-to-right walk. Words that cannot be found
// (transcription artifacts) are skipped.
func NewASRIndex(t Transcript) *ASRIndex {
	idx := &ASRIndex{text: t.Text}

	offset := 0
	for _, w := range t.Words {
		word := strings.TrimSpace(w.Word)
		if word == "" {
			continue
		}
		pos := strings.Index(t.Text[offset:], word)
		if pos < 0 {
			continue
		}
		start := offset + pos
		end := start + len(word)
		offset = end

		idx.words = append(idx.words, w)
		idx.starts = append(idx.starts, start)
		idx.ends = append(idx.ends, end)
	}
	return idx
}

// Text returns the transcript text detectors run over
func (idx *ASRIndex) Text() string {
	return idx.text
}

// Locate returns the time range from the first to the last word
// overlapping the span. The second return is false when no word
// covers the span.
func (idx *ASRIndex) Locate(span entity.TextSpan) (entity.TimeRange, bool) {
	var tr entity.TimeRange
	found := false
	for i := range idx.words {
		wordSpan := entity.TextSpan{Start: idx.starts[i], End: idx.ends[i]}
		if !span.Overlaps(wordSpan) {
			continue
		}
		if !found {
			tr = entity.TimeRange{StartMS: idx.words[i].StartMS, EndMS: idx.words[i].EndMS}
			found = true
			continue
		}
		if idx.words[i].StartMS < tr.StartMS {
			tr.StartMS = idx.words[i].StartMS
		}
		if idx.words[i].EndMS > tr.EndMS {
			tr.EndMS = idx.words[i].EndMS
		}
	}
	return tr, found
}
