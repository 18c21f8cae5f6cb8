package strategy

import (
	"fmt"
	"strings"
	"testing"

	"github.com/raaihank/pii-sentinel/internal/entity"
)

func TestMaskLengthPreservation(t *testing.T) {
	e := NewEngine("test-salt")

	cases := []string{
		"john@x.com",
		"555-123-4567",
		"John Smith",
		"日本語テキスト",
	}
	for _, value := range cases {
		masked := e.Redact(entity.Entity{Type: entity.TypeEmail, Value: value}, Mask, nil)
		if len([]rune(masked)) != len([]rune(value)) {
			t.Errorf("mask of %q has %d runes, want %d", value, len([]rune(masked)), len([]rune(value)))
		}
		for _, r := range masked {
			if r != '█' {
				t.Errorf("mask of %q contains non-block rune %q", value, r)
			}
		}
	}
}

func TestMaskIdempotent(t *testing.T) {
	e := NewEngine("")
	once := e.Redact(entity.Entity{Value: "secret"}, Mask, nil)
	twice := e.Redact(entity.Entity{Value: once}, Mask, nil)
	if once != twice {
		t.Errorf("masking is not idempotent: %q vs %q", once, twice)
	}
}

func TestTagReplace(t *testing.T) {
	e := NewEngine("")
	got := e.Redact(entity.Entity{Type: entity.TypeEmail, Value: "a@b.com"}, TagReplace, nil)
	if got != "[EMAIL]" {
		t.Errorf("expected [EMAIL], got %q", got)
	}
}

func TestAnonymizeConsistency(t *testing.T) {
	e := NewEngine("")

	t.Run("same value maps identically within a job", func(t *testing.T) {
		amap := NewAnonymizationMap("job-1")
		ent := entity.Entity{Type: entity.TypePersonName, Value: "John Smith"}
		first := e.Redact(ent, Anonymize, amap)
		second := e.Redact(ent, Anonymize, amap)
		if first != second {
			t.Errorf("repeated value produced different replacements: %q vs %q", first, second)
		}
		if first == "John Smith" {
			t.Error("synthetic value equals the original")
		}
	})

	t.Run("normalization folds case and whitespace", func(t *testing.T) {
		amap := NewAnonymizationMap("job-1")
		a := e.Redact(entity.Entity{Type: entity.TypePersonName, Value: "John Smith"}, Anonymize, amap)
		b := e.Redact(entity.Entity{Type: entity.TypePersonName, Value: "john  SMITH"}, Anonymize, amap)
		if a != b {
			t.Errorf("normalized variants diverged: %q vs %q", a, b)
		}
	})

	t.Run("jobs are independent but internally deterministic", func(t *testing.T) {
		ent := entity.Entity{Type: entity.TypeEmail, Value: "john@x.com"}
		a1 := e.Redact(ent, Anonymize, NewAnonymizationMap("job-a"))
		a2 := e.Redact(ent, Anonymize, NewAnonymizationMap("job-a"))
		if a1 != a2 {
			t.Errorf("same job seed produced different values: %q vs %q", a1, a2)
		}
	})

	t.Run("distinct values get distinct replacements", func(t *testing.T) {
		amap := NewAnonymizationMap("job-2")
		seen := make(map[string]string)
		values := []string{"alice@x.com", "bob@x.com", "carol@x.com", "dave@x.com"}
		for _, v := range values {
			synthetic := e.Redact(entity.Entity{Type: entity.TypeEmail, Value: v}, Anonymize, amap)
			if prev, dup := seen[synthetic]; dup {
				t.Errorf("values %q and %q collided on %q", prev, v, synthetic)
			}
			seen[synthetic] = v
		}
	})
}

func TestAnonymizeDistinctBeyondPoolSize(t *testing.T) {
	// More originals than the name lists can combine, so the map has
	// to disambiguate collisions rather than reuse a synthetic.
	amap := NewAnonymizationMap("job-pool")
	seen := make(map[string]string)
	for i := 0; i < 600; i++ {
		original := fmt.Sprintf("Person Number%d", i)
		synthetic := amap.Replace(entity.TypePersonName, original)
		if prev, dup := seen[synthetic]; dup {
			t.Fatalf("originals %q and %q share synthetic %q", prev, original, synthetic)
		}
		seen[synthetic] = original
	}
	if amap.Len() != 600 {
		t.Errorf("expected 600 mappings, got %d", amap.Len())
	}
}

func TestRandomSalt(t *testing.T) {
	a, b := RandomSalt(), RandomSalt()
	if len(a) != 64 {
		t.Errorf("unexpected salt length %d", len(a))
	}
	if a == b {
		t.Error("two generated salts are identical")
	}
}

func TestAnonymizeUnknownTypeFallback(t *testing.T) {
	e := NewEngine("")
	amap := NewAnonymizationMap("job-3")
	got := e.Redact(entity.Entity{Type: "GENOME_ID", Value: "xyz"}, Anonymize, amap)
	if got != "[ANON_GENOME_ID]" {
		t.Errorf("expected placeholder for unknown type, got %q", got)
	}
}

func TestHashDeterminism(t *testing.T) {
	e := NewEngine("deployment-salt")
	ent := entity.Entity{Type: entity.TypeSSN, Value: "123-45-6789"}

	first := e.Redact(ent, Hash, nil)
	second := e.Redact(ent, Hash, nil)
	if first != second {
		t.Errorf("hash is not deterministic: %q vs %q", first, second)
	}
	if !strings.HasPrefix(first, "#") || !strings.HasSuffix(first, "#") || len(first) != 18 {
		t.Errorf("unexpected digest format: %q", first)
	}

	other := NewEngine("different-salt").Redact(ent, Hash, nil)
	if other == first {
		t.Error("different salts produced identical digests")
	}
	if strings.Contains(first, "123-45-6789") {
		t.Error("digest leaks the original value")
	}
}

func TestUnknownStrategyFallsBackToMask(t *testing.T) {
	e := NewEngine("")
	got := e.Redact(entity.Entity{Value: "abcd"}, Strategy("scramble"), nil)
	if got != "████" {
		t.Errorf("expected mask fallback, got %q", got)
	}
}

func TestParse(t *testing.T) {
	if _, err := Parse("hash"); err != nil {
		t.Errorf("expected hash to parse: %v", err)
	}
	if s, err := Parse(""); err != nil || s != Mask {
		t.Errorf("expected empty strategy to default to mask, got %v/%v", s, err)
	}
	if _, err := Parse("rot13"); err == nil {
		t.Error("expected unknown strategy to fail")
	}
}

func TestInstruct(t *testing.T) {
	e := NewEngine("")

	timed := entity.Entity{Location: entity.TimeLocation(entity.TimeRange{StartMS: 0, EndMS: 100})}
	if inst := e.Instruct(timed, Mask); inst.Op != OpMute {
		t.Errorf("expected mute for time location, got %s", inst.Op)
	}

	pixel := entity.Entity{
		Location:      entity.PixelLocation(entity.PixelRegion{X1: 10, Y1: 10}),
		RedactedValue: "Jane Doe",
	}
	if inst := e.Instruct(pixel, Anonymize); inst.Op != OpFill || inst.Overlay != "Jane Doe" {
		t.Errorf("expected fill with overlay, got %+v", inst)
	}
}
