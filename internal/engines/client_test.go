package engines

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/raaihank/pii-sentinel/internal/config"
	"github.com/raaihank/pii-sentinel/internal/entity"
	"github.com/raaihank/pii-sentinel/internal/logger"
	"github.com/raaihank/pii-sentinel/internal/redact"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return New(config.EnginesConfig{URL: srv.URL, Timeout: 5 * time.Second}, log), srv
}

func TestWords(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ocr" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
		} else {
			file.Close()
		}
		json.NewEncoder(w).Encode(map[string]any{
			"words": []map[string]any{
				{"text": "hello", "box": map[string]int{"x0": 1, "y0": 2, "x1": 30, "y1": 12}, "confidence": 0.95},
			},
		})
	}))

	words, err := c.Words(context.Background(), []byte("fake-image"))
	if err != nil {
		t.Fatalf("Words: %v", err)
	}
	if len(words) != 1 || words[0].Text != "hello" {
		t.Fatalf("unexpected words: %+v", words)
	}
	if words[0].Box != (entity.PixelRegion{X0: 1, Y0: 2, X1: 30, Y1: 12}) {
		t.Errorf("unexpected box: %+v", words[0].Box)
	}
}

func TestTranscribe(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"text": "call me maybe",
			"words": []map[string]any{
				{"word": "call", "start_ms": 0, "end_ms": 300},
			},
		})
	}))

	tr, err := c.ASR().Transcribe(context.Background(), []byte("fake-audio"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "call me maybe" || len(tr.Words) != 1 {
		t.Fatalf("unexpected transcript: %+v", tr)
	}
}

func TestRedactAudioSendsSegments(t *testing.T) {
	var gotOptions string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOptions = r.FormValue("options")
		w.Write([]byte("redacted-bytes"))
	}))

	beeps := []redact.BeepSegment{{Range: entity.TimeRange{StartMS: 700, EndMS: 1800}}}
	data, err := c.ASR().Redact(context.Background(), []byte("fake-audio"), beeps)
	if err != nil {
		t.Fatalf("Redact: %v", err)
	}
	if !bytes.Equal(data, []byte("redacted-bytes")) {
		t.Errorf("unexpected payload: %q", data)
	}

	var opts struct {
		Segments []redact.BeepSegment `json:"segments"`
	}
	if err := json.Unmarshal([]byte(gotOptions), &opts); err != nil {
		t.Fatalf("options part: %v", err)
	}
	if len(opts.Segments) != 1 || opts.Segments[0].Range.StartMS != 700 {
		t.Errorf("unexpected segments: %+v", opts.Segments)
	}
}

func TestExtractPages(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"pages": []map[string]any{
				{"number": 1, "words": []map[string]any{{"text": "top"}}},
				{"number": 2, "words": []map[string]any{}},
			},
		})
	}))

	pages, err := c.PDF().ExtractPages(context.Background(), []byte("%PDF-fake"))
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	if len(pages) != 2 || pages[0].Number != 1 || pages[0].Words[0].Text != "top" {
		t.Fatalf("unexpected pages: %+v", pages)
	}
}

func TestSampleFramesPassesRate(t *testing.T) {
	var gotOptions string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOptions = r.FormValue("options")
		json.NewEncoder(w).Encode(map[string]any{
			"frames": []map[string]any{
				{"index": 0, "timestamp_ms": 0},
				{"index": 30, "timestamp_ms": 1000},
			},
		})
	}))

	frames, err := c.Video().SampleFrames(context.Background(), []byte("fake-video"), 2.5)
	if err != nil {
		t.Fatalf("SampleFrames: %v", err)
	}
	if len(frames) != 2 || frames[1].Index != 30 || frames[1].TimestampMS != 1000 {
		t.Fatalf("unexpected frames: %+v", frames)
	}

	var opts struct {
		Rate float64 `json:"rate"`
	}
	if err := json.Unmarshal([]byte(gotOptions), &opts); err != nil {
		t.Fatalf("options part: %v", err)
	}
	if opts.Rate != 2.5 {
		t.Errorf("expected rate 2.5, got %v", opts.Rate)
	}
}

func TestProbe(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"fps": 29.97, "duration_ms": 12000})
	}))

	info, err := c.Video().Probe(context.Background(), []byte("fake-video"))
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if info.FPS != 29.97 || info.DurationMS != 12000 {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestEngineErrorStatus(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "engine busy", http.StatusServiceUnavailable)
	}))

	if _, err := c.Words(context.Background(), []byte("fake-image")); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
