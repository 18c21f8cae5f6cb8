package audit

import (
	"strings"
	"testing"

	"github.com/raaihank/pii-sentinel/internal/entity"
)

func testDigest(value string) string {
	return "#" + strings.Repeat("a", 16) + "#"
}

func TestFromEntities(t *testing.T) {
	entities := []entity.Entity{
		{
			Type:          entity.TypeEmail,
			Value:         "jane@example.com",
			Span:          entity.TextSpan{Start: 10, End: 26},
			Confidence:    0.95,
			Source:        entity.SourceRegex,
			RedactedValue: "[EMAIL]",
		},
	}

	trail := FromEntities("job-1", entities, "mask", testDigest)
	if len(trail) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(trail))
	}

	e := trail[0]
	if e.JobID != "job-1" || e.EntityType != "EMAIL" || e.Strategy != "mask" {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.Locator != "text:10-26" {
		t.Errorf("unexpected locator: %q", e.Locator)
	}
	if strings.Contains(e.ValueHash, "jane") {
		t.Error("value hash must not contain the raw value")
	}
	if e.RedactedValue != "[EMAIL]" {
		t.Errorf("expected the applied replacement on the entry, got %q", e.RedactedValue)
	}
	if e.CreatedAt.IsZero() {
		t.Error("expected a timestamp")
	}
}

func TestLocatorRendering(t *testing.T) {
	tests := []struct {
		name string
		e    entity.Entity
		want string
	}{
		{
			name: "text only",
			e:    entity.Entity{Span: entity.TextSpan{Start: 0, End: 5}},
			want: "text:0-5",
		},
		{
			name: "pixel",
			e: entity.Entity{
				Span:     entity.TextSpan{Start: 3, End: 9},
				Location: entity.PixelLocation(entity.PixelRegion{X0: 10, Y0: 20, X1: 110, Y1: 40}),
			},
			want: "text:3-9 pixel:10,20,110,40",
		},
		{
			name: "pixel with page",
			e: entity.Entity{
				Span: entity.TextSpan{Start: 3, End: 9},
				Location: func() *entity.Location {
					l := entity.PixelLocation(entity.PixelRegion{X0: 1, Y0: 2, X1: 3, Y1: 4})
					l.Page = 2
					return l
				}(),
			},
			want: "text:3-9 page:2 pixel:1,2,3,4",
		},
		{
			name: "time range",
			e: entity.Entity{
				Span:     entity.TextSpan{Start: 0, End: 12},
				Location: entity.TimeLocation(entity.TimeRange{StartMS: 700, EndMS: 1800}),
			},
			want: "text:0-12 time:700-1800ms",
		},
		{
			name: "frame",
			e: entity.Entity{
				Span:     entity.TextSpan{Start: 0, End: 4},
				Location: entity.FrameLocation(entity.FrameRegion{FrameIndex: 30, X0: 5, Y0: 6, X1: 7, Y1: 8}),
			},
			want: "text:0-4 frame:30 pixel:5,6,7,8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := locator(tt.e); got != tt.want {
				t.Errorf("locator() = %q, want %q", got, tt.want)
			}
		})
	}
}
