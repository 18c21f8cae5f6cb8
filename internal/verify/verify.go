package verify

import (
	"context"
	"strings"

	"github.com/raaihank/pii-sentinel/internal/detect"
	"github.com/raaihank/pii-sentinel/internal/entity"
)

// Result of a post-redaction scan
type Result struct {
	Passed     bool            `json:"passed"`
	Residual   []entity.Entity `json:"residual_entities,omitempty"`
	ScanCount  int             `json:"scan_count"`
	Confidence float64         `json:"confidence"`
}

// Verifier rescans redacted output to catch residual PII and
// computes the job-level verification flag.
type Verifier struct {
	detectors     []detect.Detector
	minConfidence float64
	maxRetries    int
}

// New creates a verifier over the given detection engines.
// minConfidence is the threshold below which an entity counts as a
// low-confidence detection for the verification gate.
func New(detectors []detect.Detector, minConfidence float64) *Verifier {
	return &Verifier{
		detectors:     detectors,
		minConfidence: minConfidence,
		maxRetries:    2,
	}
}

// Scan re-runs detection over redacted text and reports anything
// that still looks like PII. Redaction artifacts (tags, mask blocks,
// hash markers) are filtered so they do not count as residual.
func (v *Verifier) Scan(ctx context.Context, redactedText string) Result {
	result := Result{Passed: true, Confidence: 1.0}

	for attempt := 0; attempt < v.maxRetries; attempt++ {
		result.ScanCount = attempt + 1

		var residual []entity.Entity
		for _, d := range v.detectors {
			found, err := d.Detect(ctx, redactedText, nil)
			if err != nil {
				continue
			}
			for _, e := range found {
				if !isRedactionArtifact(e, redactedText) {
					residual = append(residual, e)
				}
			}
		}

		if len(residual) == 0 {
			result.Passed = true
			result.Residual = nil
			result.Confidence = 1.0
			break
		}

		result.Passed = false
		result.Residual = residual
		result.Confidence = 1.0 - float64(len(residual))*0.1
		if result.Confidence < 0 {
			result.Confidence = 0
		}
	}

	return result
}

// Passed computes the job's verification_passed flag: the residual
// scan must be clean, and every entity must either meet the
// confidence threshold or have been redacted anyway. Unredacted
// low-confidence PII never passes silently.
func (v *Verifier) Passed(scan Result, entities []entity.Entity) bool {
	if !scan.Passed {
		return false
	}
	for _, e := range entities {
		if e.Confidence < v.minConfidence && e.RedactedValue == "" {
			return false
		}
	}
	return true
}

// isRedactionArtifact checks whether a detection is an artifact of
// redaction itself rather than real PII.
func isRedactionArtifact(e entity.Entity, text string) bool {
	value := e.Value

	// Tag replacement
	if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
		return true
	}

	// Mask blocks
	if value != "" {
		allMask := true
		for _, r := range value {
			if r != '█' {
				allMask = false
				break
			}
		}
		if allMask {
			return true
		}
	}

	// Hash markers
	if strings.HasPrefix(value, "#") && strings.HasSuffix(value, "#") {
		return true
	}

	// Inside a redaction tag
	start := e.Span.Start - 5
	if start < 0 {
		start = 0
	}
	end := e.Span.End + 5
	if end > len(text) {
		end = len(text)
	}
	contextWindow := text[start:end]
	return strings.Contains(contextWindow, "[") && strings.Contains(contextWindow, "]")
}
