package detect

import (
	"context"
	"strings"

	"github.com/raaihank/pii-sentinel/internal/entity"
)

// LabeledSpan is one raw span from the NER backend, with the model's
// own label vocabulary (PERSON, ORG, GPE, ...).
type LabeledSpan struct {
	Label string
	Text  string
	Start int
	End   int
}

// NERBackend defines a pluggable named-entity-recognition backend.
// Implementations may use ONNX Runtime or other engines; a nil
// backend means NER is unavailable for this build.
type NERBackend interface {
	// Recognize labels entity spans in text with character offsets.
	Recognize(ctx context.Context, text string) ([]LabeledSpan, error)
	// IsReady returns whether the backend is initialized and ready.
	IsReady() bool
	// Close releases any native resources.
	Close() error
}

// nerLabelToType maps NER model labels to PII entity types
var nerLabelToType = map[string]entity.Type{
	"PERSON":      entity.TypePersonName,
	"ORG":         entity.TypeOrganization,
	"GPE":         entity.TypeLocation,
	"LOC":         entity.TypeLocation,
	"DATE":        entity.TypeDate,
	"TIME":        entity.TypeTime,
	"MONEY":       entity.TypeFinancial,
	"CARDINAL":    entity.TypeNumber,
	"NORP":        entity.TypeNationality,
	"FAC":         entity.TypeFacility,
	"EVENT":       entity.TypeEvent,
	"WORK_OF_ART": entity.TypeWorkOfArt,
	"PRODUCT":     entity.TypeProduct,
}

// nerConfidence assigns a fixed confidence per entity type; NER
// backends do not expose calibrated per-span scores.
var nerConfidence = map[entity.Type]float64{
	entity.TypePersonName:   0.85,
	entity.TypeOrganization: 0.80,
	entity.TypeLocation:     0.82,
	entity.TypeDate:         0.75,
	entity.TypeTime:         0.70,
	entity.TypeFinancial:    0.78,
	entity.TypeNumber:       0.50,
	entity.TypeNationality:  0.72,
	entity.TypeFacility:     0.68,
	entity.TypeEvent:        0.65,
	entity.TypeWorkOfArt:    0.60,
	entity.TypeProduct:      0.62,
}

// piiRelevant filters out entity types with low privacy value
var piiRelevant = map[entity.Type]bool{
	entity.TypePersonName:   true,
	entity.TypeOrganization: true,
	entity.TypeLocation:     true,
	entity.TypeDate:         true,
	entity.TypeFinancial:    true,
	entity.TypeNationality:  true,
	entity.TypeFacility:     true,
}

// NERDetector adapts a NER backend into the Detector contract.
// Provides high recall for contextual entities the regex engine
// cannot see (names without introduction phrases, organizations).
type NERDetector struct {
	backend NERBackend
	piiOnly bool
}

// NewNERDetector wraps a backend. A nil backend yields a detector
// that reports unavailable and finds nothing.
func NewNERDetector(backend NERBackend) *NERDetector {
	return &NERDetector{backend: backend, piiOnly: true}
}

// Name implements Detector
func (d *NERDetector) Name() string {
	return "nlp"
}

// Available reports whether the backend is loaded
func (d *NERDetector) Available() bool {
	return d.backend != nil && d.backend.IsReady()
}

// Detect implements Detector
func (d *NERDetector) Detect(ctx context.Context, text string, types []string) ([]entity.Entity, error) {
	if !d.Available() {
		return nil, nil
	}

	spans, err := d.backend.Recognize(ctx, text)
	if err != nil {
		return nil, err
	}

	type dedupKey struct {
		t          entity.Type
		start, end int
	}
	seen := make(map[dedupKey]bool)
	var entities []entity.Entity
	for _, span := range spans {
		piiType, ok := nerLabelToType[span.Label]
		if !ok {
			continue
		}
		if d.piiOnly && !piiRelevant[piiType] {
			continue
		}
		if !typeEnabled(piiType, types) {
			continue
		}
		// Skip degenerate spans
		if len(strings.TrimSpace(span.Text)) < 2 {
			continue
		}

		key := dedupKey{t: piiType, start: span.Start, end: span.End}
		if seen[key] {
			continue
		}
		seen[key] = true

		confidence, ok := nerConfidence[piiType]
		if !ok {
			confidence = 0.60
		}

		entities = append(entities, entity.Entity{
			Type:       piiType,
			Value:      span.Text,
			Span:       entity.TextSpan{Start: span.Start, End: span.End},
			Confidence: confidence,
			Source:     entity.SourceNLP,
		})
	}

	return entities, nil
}
