package redact

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/raaihank/pii-sentinel/internal/entity"
	"github.com/raaihank/pii-sentinel/internal/strategy"
)

func TestApplyTextMask(t *testing.T) {
	eng := strategy.NewEngine("")
	text := "Email me at john@x.com or call 555-123-4567."
	entities := []entity.Entity{
		{Type: entity.TypeEmail, Value: "john@x.com", Span: entity.TextSpan{Start: 12, End: 22}, Source: entity.SourceRegex},
		{Type: entity.TypePhone, Value: "555-123-4567", Span: entity.TextSpan{Start: 31, End: 43}, Source: entity.SourceRegex},
	}

	redacted, updated := ApplyText(text, entities, eng, strategy.Mask, nil)

	if strings.Contains(redacted, "john@x.com") || strings.Contains(redacted, "555-123-4567") {
		t.Errorf("original values leaked into output: %q", redacted)
	}
	want := "Email me at ██████████ or call ████████████."
	if redacted != want {
		t.Errorf("unexpected output:\ngot  %q\nwant %q", redacted, want)
	}
	for _, e := range updated {
		if len([]rune(e.RedactedValue)) != len([]rune(e.Value)) {
			t.Errorf("mask length mismatch for %q", e.Value)
		}
	}
}

func TestApplyTextTagReplace(t *testing.T) {
	eng := strategy.NewEngine("")
	text := "Email me at john@x.com or call 555-123-4567."
	entities := []entity.Entity{
		{Type: entity.TypeEmail, Value: "john@x.com", Span: entity.TextSpan{Start: 12, End: 22}},
		{Type: entity.TypePhone, Value: "555-123-4567", Span: entity.TextSpan{Start: 31, End: 43}},
	}

	redacted, _ := ApplyText(text, entities, eng, strategy.TagReplace, nil)
	want := "Email me at [EMAIL] or call [PHONE]."
	if redacted != want {
		t.Errorf("unexpected output:\ngot  %q\nwant %q", redacted, want)
	}
}

func TestApplyTextAnonymizeRepeatedName(t *testing.T) {
	eng := strategy.NewEngine("")
	amap := strategy.NewAnonymizationMap("job-x")
	text := "John Smith met with the auditor. Later John Smith signed."
	entities := []entity.Entity{
		{Type: entity.TypePersonName, Value: "John Smith", Span: entity.TextSpan{Start: 0, End: 10}},
		{Type: entity.TypePersonName, Value: "John Smith", Span: entity.TextSpan{Start: 39, End: 49}},
	}

	redacted, updated := ApplyText(text, entities, eng, strategy.Anonymize, amap)

	if updated[0].RedactedValue != updated[1].RedactedValue {
		t.Errorf("repeated name anonymized inconsistently: %q vs %q",
			updated[0].RedactedValue, updated[1].RedactedValue)
	}
	if strings.Contains(redacted, "John Smith") {
		t.Errorf("original name leaked: %q", redacted)
	}
}

func TestApplyTextPreservesEntityOrder(t *testing.T) {
	eng := strategy.NewEngine("")
	entities := []entity.Entity{
		{Type: entity.TypePhone, Value: "555-123-4567", Span: entity.TextSpan{Start: 20, End: 32}},
		{Type: entity.TypeEmail, Value: "a@b.com", Span: entity.TextSpan{Start: 0, End: 7}},
	}
	_, updated := ApplyText("a@b.com and number: 555-123-4567", entities, eng, strategy.Mask, nil)
	if updated[0].Span.Start != 0 || updated[1].Span.Start != 20 {
		t.Errorf("entities not ordered by span: %+v", updated)
	}
}

func TestImagePlanSkipsUnlocated(t *testing.T) {
	eng := strategy.NewEngine("")
	entities := []entity.Entity{
		{Type: entity.TypeSSN, Location: entity.PixelLocation(entity.PixelRegion{X0: 10, Y0: 10, X1: 210, Y1: 32})},
		{Type: entity.TypeEmail, Location: nil},
	}
	fills := ImagePlan(entities, eng, strategy.Mask)
	if len(fills) != 1 {
		t.Fatalf("expected 1 fill, got %d", len(fills))
	}
	if fills[0].Op != strategy.OpFill {
		t.Errorf("expected opaque fill, got %s", fills[0].Op)
	}
}

func TestApplyImageFillsUnionRect(t *testing.T) {
	// White 100x50 source
	src := image.NewRGBA(image.Rect(0, 0, 100, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 100; x++ {
			src.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	out, err := ApplyImage(buf.Bytes(), []RegionFill{
		{Region: entity.PixelRegion{X0: 10, Y0: 10, X1: 40, Y1: 30}, Op: strategy.OpFill},
	})
	if err != nil {
		t.Fatal(err)
	}

	decoded, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}

	check := func(x, y int, wantBlack bool) {
		r, g, b, _ := decoded.At(x, y).RGBA()
		isBlack := r == 0 && g == 0 && b == 0
		if isBlack != wantBlack {
			t.Errorf("pixel (%d,%d): black=%v, want %v", x, y, isBlack, wantBlack)
		}
	}
	check(20, 20, true)
	check(5, 5, false)
	check(50, 20, false)
}

func TestAudioPlanDropsEmptySegments(t *testing.T) {
	beeps := AudioPlan([]entity.TimeRange{
		{StartMS: 100, EndMS: 400},
		{StartMS: 500, EndMS: 500},
	})
	if len(beeps) != 1 {
		t.Fatalf("expected 1 beep, got %d", len(beeps))
	}
}
