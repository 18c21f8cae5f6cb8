package engines

import (
	"context"

	"github.com/raaihank/pii-sentinel/internal/mapping"
	"github.com/raaihank/pii-sentinel/internal/pipeline"
	"github.com/raaihank/pii-sentinel/internal/redact"
)

// The pipeline collaborator interfaces each want a Redact method with
// a different signature, so one client cannot implement them all.
// These thin facades split the client per media kind.

// ASR exposes the speech capabilities of the sidecar
type ASR struct{ c *Client }

// PDF exposes the document capabilities of the sidecar
type PDF struct{ c *Client }

// Video exposes the video capabilities of the sidecar
type Video struct{ c *Client }

// OCR returns the image text-recognition client
func (c *Client) OCR() pipeline.OCRClient { return c }

// ASR returns the speech client
func (c *Client) ASR() pipeline.ASRClient { return ASR{c} }

// PDF returns the document client
func (c *Client) PDF() pipeline.PDFClient { return PDF{c} }

// Video returns the video client
func (c *Client) Video() pipeline.VideoClient { return Video{c} }

func (a ASR) Transcribe(ctx context.Context, audio []byte) (mapping.Transcript, error) {
	return a.c.transcribe(ctx, audio)
}

func (a ASR) Redact(ctx context.Context, audio []byte, beeps []redact.BeepSegment) ([]byte, error) {
	return a.c.redactAudio(ctx, audio, beeps)
}

func (p PDF) ExtractPages(ctx context.Context, pdf []byte) ([]pipeline.PageWords, error) {
	return p.c.extractPages(ctx, pdf)
}

func (p PDF) Redact(ctx context.Context, pdf []byte, fills []redact.RegionFill) ([]byte, error) {
	return p.c.redactPDF(ctx, pdf, fills)
}

func (v Video) Probe(ctx context.Context, video []byte) (pipeline.VideoInfo, error) {
	return v.c.probe(ctx, video)
}

func (v Video) SampleFrames(ctx context.Context, video []byte, rate float64) ([]pipeline.VideoFrame, error) {
	return v.c.sampleFrames(ctx, video, rate)
}

func (v Video) ExtractAudio(ctx context.Context, video []byte) ([]byte, error) {
	return v.c.extractAudio(ctx, video)
}

func (v Video) Redact(ctx context.Context, video []byte, fills []redact.FrameFill, beeps []redact.BeepSegment) ([]byte, error) {
	return v.c.redactVideo(ctx, video, fills, beeps)
}
