package pipeline

import (
	"github.com/raaihank/pii-sentinel/internal/audit"
	"github.com/raaihank/pii-sentinel/internal/entity"
	"github.com/raaihank/pii-sentinel/internal/merge"
	"github.com/raaihank/pii-sentinel/internal/verify"
)

// DetectResult is the detection-only response: entities plus set
// statistics, no redaction applied.
type DetectResult struct {
	Entities      []entity.Entity `json:"entities"`
	TotalEntities int             `json:"total_entities"`
	Stats         merge.SetStats  `json:"stats"`
	ProcessingMS  float64         `json:"processing_time_ms"`
}

// TextResult is the inline response for synchronous text redaction
type TextResult struct {
	RedactedText       string          `json:"redacted_text"`
	Entities           []entity.Entity `json:"entities"`
	TotalEntities      int             `json:"total_entities"`
	Verification       verify.Result   `json:"verification"`
	VerificationPassed bool            `json:"verification_passed"`
	AuditLog           []audit.Entry   `json:"audit_log"`
	ProcessingMS       float64         `json:"processing_time_ms"`
}
