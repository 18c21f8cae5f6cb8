package pipeline

import (
	"context"

	"github.com/raaihank/pii-sentinel/internal/job"
	"github.com/raaihank/pii-sentinel/internal/mapping"
	"github.com/raaihank/pii-sentinel/internal/redact"
)

// OCRClient recognizes text in a raster image. Implementations wrap
// an external OCR engine; word boxes come back in image pixel
// coordinates.
type OCRClient interface {
	Words(ctx context.Context, image []byte) ([]mapping.OCRWord, error)
}

// ASRClient transcribes speech and applies audio redaction.
type ASRClient interface {
	Transcribe(ctx context.Context, audio []byte) (mapping.Transcript, error)
	// Redact replaces the given segments with a tone and returns the
	// re-encoded audio.
	Redact(ctx context.Context, audio []byte, beeps []redact.BeepSegment) ([]byte, error)
}

// PageWords is the OCR output for one PDF page. Pages are 1-based.
type PageWords struct {
	Number int
	Words  []mapping.OCRWord
}

// PDFClient extracts positioned text from PDF pages and draws
// redaction fills back onto them.
type PDFClient interface {
	ExtractPages(ctx context.Context, pdf []byte) ([]PageWords, error)
	Redact(ctx context.Context, pdf []byte, fills []redact.RegionFill) ([]byte, error)
}

// VideoInfo is the probe result for a video artifact
type VideoInfo struct {
	FPS        float64
	DurationMS int64
}

// VideoFrame is one sampled frame handed to OCR
type VideoFrame struct {
	Index       int
	TimestampMS int64
	Image       []byte
}

// VideoClient probes, samples, and re-encodes video artifacts.
type VideoClient interface {
	Probe(ctx context.Context, video []byte) (VideoInfo, error)
	SampleFrames(ctx context.Context, video []byte, rate float64) ([]VideoFrame, error)
	// ExtractAudio returns the audio track, or nil when the video has none.
	ExtractAudio(ctx context.Context, video []byte) ([]byte, error)
	Redact(ctx context.Context, video []byte, fills []redact.FrameFill, beeps []redact.BeepSegment) ([]byte, error)
}

// Notifier receives pipeline events for live broadcasting. All
// methods must be non-blocking.
type Notifier interface {
	JobUpdated(j *job.Job)
	DetectionsFound(jobID, kind string, count int, types []string)
}
