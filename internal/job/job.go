package job

import (
	"errors"
	"time"

	"github.com/raaihank/pii-sentinel/internal/audit"
	"github.com/raaihank/pii-sentinel/internal/entity"
	"github.com/raaihank/pii-sentinel/internal/verify"
)

// Status is the lifecycle state of a redaction job
type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

var (
	// ErrNotFound is returned for job IDs that never existed or were deleted
	ErrNotFound = errors.New("job not found")
	// ErrExpired is returned for jobs past their retention window
	ErrExpired = errors.New("job expired")
	// ErrNotReady is returned when a download is requested before completion
	ErrNotReady = errors.New("job result not ready")
)

// Job is one file redaction request tracked through its lifecycle.
// The redacted artifact itself lives in the artifact store; the job
// record only holds its handle.
type Job struct {
	ID             string          `json:"job_id"`
	Kind           string          `json:"kind"`
	Status         Status          `json:"status"`
	Strategy       string          `json:"strategy"`
	Filename       string          `json:"filename,omitempty"`
	Entities       []entity.Entity `json:"entities,omitempty"`
	TotalEntities  int             `json:"total_entities"`
	AuditLog       []audit.Entry   `json:"audit_log,omitempty"`
	Verification   *verify.Result  `json:"verification,omitempty"`
	ArtifactHandle string          `json:"-"`
	DownloadName   string          `json:"download_name,omitempty"`
	// RedactedTranscript carries the text rendition for audio and
	// video jobs alongside the binary artifact.
	RedactedTranscript string `json:"redacted_transcript,omitempty"`
	Error          string          `json:"error,omitempty"`
	ProcessingMS   float64         `json:"processing_time_ms"`
	CreatedAt      time.Time       `json:"created_at"`
	ExpiresAt      time.Time       `json:"expires_at"`
}

// Expired reports whether the retention window has passed
func (j *Job) Expired(now time.Time) bool {
	return now.After(j.ExpiresAt)
}
