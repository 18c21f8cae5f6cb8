package engines

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"go.uber.org/zap"

	"github.com/raaihank/pii-sentinel/internal/config"
	"github.com/raaihank/pii-sentinel/internal/logger"
	"github.com/raaihank/pii-sentinel/internal/mapping"
	"github.com/raaihank/pii-sentinel/internal/pipeline"
	"github.com/raaihank/pii-sentinel/internal/redact"
)

// Client talks to the media engine sidecar, a companion service that
// wraps the OCR, speech, and re-encoding toolchain behind a small
// HTTP API. One client serves all media kinds; each capability maps
// to one endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

// New creates a media engine client
func New(cfg config.EnginesConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL: cfg.URL,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log.WithComponent("engines"),
	}
}

// Words runs OCR over an image and returns positioned words.
// Satisfies the pipeline's OCR contract.
func (c *Client) Words(ctx context.Context, image []byte) ([]mapping.OCRWord, error) {
	var out struct {
		Words []mapping.OCRWord `json:"words"`
	}
	if err := c.postJSON(ctx, "/ocr", image, nil, &out); err != nil {
		return nil, fmt.Errorf("ocr request failed: %w", err)
	}
	return out.Words, nil
}

func (c *Client) transcribe(ctx context.Context, audio []byte) (mapping.Transcript, error) {
	var out mapping.Transcript
	if err := c.postJSON(ctx, "/asr/transcribe", audio, nil, &out); err != nil {
		return mapping.Transcript{}, fmt.Errorf("transcription request failed: %w", err)
	}
	return out, nil
}

func (c *Client) redactAudio(ctx context.Context, audio []byte, beeps []redact.BeepSegment) ([]byte, error) {
	return c.postRaw(ctx, "/audio/redact", audio, map[string]any{"segments": beeps})
}

func (c *Client) extractPages(ctx context.Context, pdf []byte) ([]pipeline.PageWords, error) {
	var out struct {
		Pages []struct {
			Number int               `json:"number"`
			Words  []mapping.OCRWord `json:"words"`
		} `json:"pages"`
	}
	if err := c.postJSON(ctx, "/pdf/extract", pdf, nil, &out); err != nil {
		return nil, fmt.Errorf("pdf extraction failed: %w", err)
	}
	pages := make([]pipeline.PageWords, 0, len(out.Pages))
	for _, p := range out.Pages {
		pages = append(pages, pipeline.PageWords{Number: p.Number, Words: p.Words})
	}
	return pages, nil
}

func (c *Client) redactPDF(ctx context.Context, pdf []byte, fills []redact.RegionFill) ([]byte, error) {
	return c.postRaw(ctx, "/pdf/redact", pdf, map[string]any{"fills": fills})
}

func (c *Client) probe(ctx context.Context, video []byte) (pipeline.VideoInfo, error) {
	var out struct {
		FPS        float64 `json:"fps"`
		DurationMS int64   `json:"duration_ms"`
	}
	if err := c.postJSON(ctx, "/video/probe", video, nil, &out); err != nil {
		return pipeline.VideoInfo{}, fmt.Errorf("video probe failed: %w", err)
	}
	return pipeline.VideoInfo{FPS: out.FPS, DurationMS: out.DurationMS}, nil
}

func (c *Client) sampleFrames(ctx context.Context, video []byte, rate float64) ([]pipeline.VideoFrame, error) {
	var out struct {
		Frames []struct {
			Index       int    `json:"index"`
			TimestampMS int64  `json:"timestamp_ms"`
			Image       []byte `json:"image"`
		} `json:"frames"`
	}
	if err := c.postJSON(ctx, "/video/frames", video, map[string]any{"rate": rate}, &out); err != nil {
		return nil, fmt.Errorf("frame sampling failed: %w", err)
	}
	frames := make([]pipeline.VideoFrame, 0, len(out.Frames))
	for _, f := range out.Frames {
		frames = append(frames, pipeline.VideoFrame{Index: f.Index, TimestampMS: f.TimestampMS, Image: f.Image})
	}
	return frames, nil
}

func (c *Client) extractAudio(ctx context.Context, video []byte) ([]byte, error) {
	data, err := c.postRaw(ctx, "/video/audio", video, nil)
	if err != nil {
		return nil, fmt.Errorf("audio extraction failed: %w", err)
	}
	return data, nil
}

func (c *Client) redactVideo(ctx context.Context, video []byte, fills []redact.FrameFill, beeps []redact.BeepSegment) ([]byte, error) {
	return c.postRaw(ctx, "/video/redact", video, map[string]any{
		"fills":    fills,
		"segments": beeps,
	})
}

// postJSON uploads a blob with an optional JSON options part and
// decodes a JSON response into out.
func (c *Client) postJSON(ctx context.Context, path string, data []byte, options map[string]any, out any) error {
	body, err := c.do(ctx, path, data, options)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("invalid engine response: %w", err)
	}
	return nil
}

// postRaw uploads a blob and returns the raw response bytes
func (c *Client) postRaw(ctx context.Context, path string, data []byte, options map[string]any) ([]byte, error) {
	return c.do(ctx, path, data, options)
}

func (c *Client) do(ctx context.Context, path string, data []byte, options map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", "artifact")
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if options != nil {
		opts, err := json.Marshal(options)
		if err != nil {
			return nil, err
		}
		if err := mw.WriteField("options", string(opts)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("Engine request failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("engine returned HTTP %d", resp.StatusCode)
	}
	return body, nil
}
