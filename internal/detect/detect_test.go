package detect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/raaihank/pii-sentinel/internal/entity"
	"github.com/raaihank/pii-sentinel/internal/logger"
)

func TestRegexDetector(t *testing.T) {
	d := NewRegexDetector()

	tests := []struct {
		name     string
		text     string
		types    []string
		wantType entity.Type
		want     string
	}{
		{
			name:     "email",
			text:     "contact jane.doe@example.com for details",
			wantType: entity.TypeEmail,
			want:     "jane.doe@example.com",
		},
		{
			name:     "ssn",
			text:     "SSN: 123-45-6789",
			wantType: entity.TypeSSN,
			want:     "123-45-6789",
		},
		{
			name:     "ipv4",
			text:     "connected from 192.168.1.100 yesterday",
			wantType: entity.TypeIPAddress,
			want:     "192.168.1.100",
		},
		{
			name:     "name from contextual phrase",
			text:     "hello, my name is Priya Sharma, can you help",
			wantType: entity.TypePersonName,
			want:     "Priya Sharma",
		},
		{
			name:     "pan card",
			text:     "PAN ABCDE1234F on file",
			wantType: entity.TypePANCard,
			want:     "ABCDE1234F",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := d.Detect(context.Background(), tt.text, tt.types)
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			for _, e := range found {
				if e.Type == tt.wantType && e.Value == tt.want {
					if e.Span.Start < 0 || e.Span.End > len(tt.text) ||
						tt.text[e.Span.Start:e.Span.End] != e.Value {
						t.Errorf("span %v does not cover value %q", e.Span, e.Value)
					}
					if e.Source != entity.SourceRegex {
						t.Errorf("expected regex source, got %q", e.Source)
					}
					return
				}
			}
			t.Errorf("no %s entity with value %q in %+v", tt.wantType, tt.want, found)
		})
	}
}

func TestRegexDetectorRejectsInvalidSSN(t *testing.T) {
	d := NewRegexDetector()

	for _, text := range []string{"SSN 000-12-3456", "SSN 666-12-3456", "SSN 900-12-3456", "SSN 123-00-4567"} {
		found, err := d.Detect(context.Background(), text, []string{string(entity.TypeSSN)})
		if err != nil {
			t.Fatalf("Detect: %v", err)
		}
		if len(found) != 0 {
			t.Errorf("%q: expected unissuable SSN to be rejected, got %+v", text, found)
		}
	}
}

func TestRegexDetectorTypeFilter(t *testing.T) {
	d := NewRegexDetector()
	text := "mail x@y.com or call 555-123-4567"

	found, err := d.Detect(context.Background(), text, []string{string(entity.TypeEmail)})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	for _, e := range found {
		if e.Type != entity.TypeEmail {
			t.Errorf("filter leaked type %s", e.Type)
		}
	}
	if len(found) != 1 {
		t.Errorf("expected 1 email, got %d", len(found))
	}

	// "all" disables the filter
	found, err = d.Detect(context.Background(), text, []string{"all"})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(found) < 2 {
		t.Errorf("expected email and phone with 'all', got %+v", found)
	}
}

func TestRegexDetectorOverlapResolution(t *testing.T) {
	d := NewRegexDetector()

	// A spaced 16-digit number matches both credit card patterns; only
	// one detection may survive per overlapping region.
	found, err := d.Detect(context.Background(), "card 4111 1111 1111 1111 ok",
		[]string{string(entity.TypeCreditCard)})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	for i := 0; i < len(found); i++ {
		for j := i + 1; j < len(found); j++ {
			if found[i].Span.Overlaps(found[j].Span) {
				t.Errorf("overlapping detections survived: %+v and %+v", found[i], found[j])
			}
		}
	}
}

type slowDetector struct{}

func (slowDetector) Name() string { return "slow" }

func (slowDetector) Detect(ctx context.Context, text string, types []string) ([]entity.Entity, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Minute):
		return nil, errors.New("unreachable")
	}
}

func TestRunnerDegradesFailedDetector(t *testing.T) {
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	r := NewRunner([]Detector{NewRegexDetector(), slowDetector{}}, 50*time.Millisecond, log)
	found := r.Run(context.Background(), "reach me at a@b.com", nil)

	if len(found) != 1 || found[0].Type != entity.TypeEmail {
		t.Fatalf("expected regex result despite slow detector, got %+v", found)
	}

	status := r.Status()
	if status["regex"] != true {
		t.Error("regex engine should be up")
	}
	if status["slow"] != false {
		t.Error("timed-out engine should be degraded")
	}
}

func TestKnownTypes(t *testing.T) {
	types := KnownTypes()
	if len(types) == 0 {
		t.Fatal("expected non-empty type list")
	}
	seen := make(map[string]bool)
	for _, typ := range types {
		if seen[typ] {
			t.Errorf("duplicate type %q", typ)
		}
		seen[typ] = true
	}
	if !seen[string(entity.TypeEmail)] || !seen[string(entity.TypePersonName)] {
		t.Errorf("expected email and person_name in %v", types)
	}
}
