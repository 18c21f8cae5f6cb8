package merge

import (
	"reflect"
	"testing"

	"github.com/raaihank/pii-sentinel/internal/entity"
)

func span(start, end int) entity.TextSpan {
	return entity.TextSpan{Start: start, End: end}
}

func TestMergeDisjointness(t *testing.T) {
	m := New(0.5, nil)

	candidates := []entity.Entity{
		{Type: entity.TypeEmail, Value: "john@x.com", Span: span(12, 22), Confidence: 0.95, Source: entity.SourceRegex},
		{Type: entity.TypePersonName, Value: "john@x.com", Span: span(12, 22), Confidence: 0.85, Source: entity.SourceNLP},
		{Type: entity.TypePhone, Value: "555-123-4567", Span: span(31, 43), Confidence: 0.85, Source: entity.SourceRegex},
		{Type: entity.TypeNumber, Value: "555-123", Span: span(31, 38), Confidence: 0.50, Source: entity.SourceNLP},
	}

	merged := m.Merge(candidates)
	for i := 0; i < len(merged); i++ {
		for j := i + 1; j < len(merged); j++ {
			if merged[i].Span.Overlaps(merged[j].Span) {
				t.Errorf("entities %d and %d overlap: %+v / %+v", i, j, merged[i].Span, merged[j].Span)
			}
		}
	}
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged entities, got %d", len(merged))
	}
}

func TestMergeDeterminism(t *testing.T) {
	m := New(0.5, nil)

	base := []entity.Entity{
		{Type: entity.TypeEmail, Value: "a@b.com", Span: span(0, 7), Confidence: 0.95, Source: entity.SourceRegex},
		{Type: entity.TypePersonName, Value: "a@b.com", Span: span(0, 7), Confidence: 0.85, Source: entity.SourceNLP},
		{Type: entity.TypePhone, Value: "555-123-4567", Span: span(20, 32), Confidence: 0.85, Source: entity.SourceRegex},
		{Type: entity.TypeSSN, Value: "123-45-6789", Span: span(40, 51), Confidence: 0.88, Source: entity.SourceRegex},
		{Type: entity.TypeNumber, Value: "123-45", Span: span(40, 46), Confidence: 0.50, Source: entity.SourceNLP},
	}

	permutations := [][]int{
		{0, 1, 2, 3, 4},
		{4, 3, 2, 1, 0},
		{2, 0, 4, 1, 3},
		{1, 4, 0, 3, 2},
	}

	var want []entity.Entity
	for i, perm := range permutations {
		input := make([]entity.Entity, len(base))
		for j, idx := range perm {
			input[j] = base[idx]
		}
		got := m.Merge(input)
		if i == 0 {
			want = got
			continue
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("permutation %v produced different result:\ngot  %+v\nwant %+v", perm, got, want)
		}
	}
}

func TestMergeMultiSourceBoost(t *testing.T) {
	m := New(0.5, nil)

	merged := m.Merge([]entity.Entity{
		{Type: entity.TypeEmail, Value: "a@b.com", Span: span(0, 7), Confidence: 0.95, Source: entity.SourceRegex},
		{Type: entity.TypeEmail, Value: "a@b.com", Span: span(0, 7), Confidence: 0.85, Source: entity.SourceNLP},
	})

	if len(merged) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(merged))
	}
	if merged[0].Confidence != 1.0 {
		t.Errorf("expected boosted confidence capped at 1.0, got %f", merged[0].Confidence)
	}
	if merged[0].Source != "regex+nlp" && merged[0].Source != "nlp+regex" {
		t.Errorf("expected combined source, got %q", merged[0].Source)
	}
}

func TestMergeTypePriority(t *testing.T) {
	m := New(0.5, nil)

	t.Run("deterministic type outranks contextual", func(t *testing.T) {
		merged := m.Merge([]entity.Entity{
			{Type: entity.TypePersonName, Value: "123-45-6789", Span: span(0, 11), Confidence: 0.99, Source: entity.SourceNLP},
			{Type: entity.TypeSSN, Value: "123-45-6789", Span: span(0, 11), Confidence: 0.88, Source: entity.SourceRegex},
		})
		if len(merged) != 1 {
			t.Fatalf("expected 1 entity, got %d", len(merged))
		}
		if merged[0].Type != entity.TypeSSN {
			t.Errorf("expected SSN to win, got %s", merged[0].Type)
		}
	})

	t.Run("confidence breaks ties within a tier", func(t *testing.T) {
		merged := m.Merge([]entity.Entity{
			{Type: entity.TypePhone, Value: "555-123-4567", Span: span(0, 12), Confidence: 0.85, Source: entity.SourceRegex},
			{Type: entity.TypePhone, Value: "555-123-4567", Span: span(0, 12), Confidence: 0.75, Source: entity.SourceRegex},
		})
		if len(merged) != 1 {
			t.Fatalf("expected 1 entity, got %d", len(merged))
		}
		if merged[0].Confidence != 0.85 {
			t.Errorf("expected winning confidence 0.85, got %f", merged[0].Confidence)
		}
	})

	t.Run("override table respected", func(t *testing.T) {
		override := New(0.5, map[string]int{"PERSON_NAME": 10})
		merged := override.Merge([]entity.Entity{
			{Type: entity.TypePersonName, Value: "John", Span: span(0, 4), Confidence: 0.85, Source: entity.SourceNLP},
			{Type: entity.TypeEmail, Value: "John", Span: span(0, 4), Confidence: 0.95, Source: entity.SourceRegex},
		})
		if merged[0].Type != entity.TypePersonName {
			t.Errorf("expected override priority to win, got %s", merged[0].Type)
		}
	})
}

func TestMergeBelowThresholdOverlapStillDisjoint(t *testing.T) {
	m := New(0.5, nil)

	// Two long spans sharing a short overlap: conflict must still be
	// resolved even though the ratio is below the merge threshold.
	merged := m.Merge([]entity.Entity{
		{Type: entity.TypeAddress, Value: "x", Span: span(0, 20), Confidence: 0.78, Source: entity.SourceRegex},
		{Type: entity.TypeAddress, Value: "y", Span: span(18, 40), Confidence: 0.72, Source: entity.SourceNLP},
	})

	if len(merged) != 1 {
		t.Fatalf("expected conflict resolution to a single entity, got %d", len(merged))
	}
	if merged[0].Confidence != 0.78 {
		t.Errorf("expected winner without boost (0.78), got %f", merged[0].Confidence)
	}
}

func TestStats(t *testing.T) {
	stats := Stats([]entity.Entity{
		{Type: entity.TypeEmail, Confidence: 0.95, Source: entity.SourceRegex},
		{Type: entity.TypePhone, Confidence: 0.60, Source: entity.SourceRegex},
		{Type: entity.TypePersonName, Confidence: 0.40, Source: entity.SourceNLP},
	})

	if stats.Total != 3 {
		t.Errorf("expected total 3, got %d", stats.Total)
	}
	if stats.HighConfidence != 1 || stats.MediumConfidence != 1 || stats.LowConfidence != 1 {
		t.Errorf("unexpected confidence bands: %+v", stats)
	}
	if stats.BySource["regex"] != 2 {
		t.Errorf("expected 2 regex entities, got %d", stats.BySource["regex"])
	}
	if stats.AvgConfidence != 0.65 {
		t.Errorf("expected avg confidence 0.65, got %f", stats.AvgConfidence)
	}
}
