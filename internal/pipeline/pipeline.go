package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/raaihank/pii-sentinel/internal/audit"
	"github.com/raaihank/pii-sentinel/internal/config"
	"github.com/raaihank/pii-sentinel/internal/detect"
	"github.com/raaihank/pii-sentinel/internal/entity"
	"github.com/raaihank/pii-sentinel/internal/job"
	"github.com/raaihank/pii-sentinel/internal/logger"
	"github.com/raaihank/pii-sentinel/internal/mapping"
	"github.com/raaihank/pii-sentinel/internal/merge"
	"github.com/raaihank/pii-sentinel/internal/redact"
	"github.com/raaihank/pii-sentinel/internal/stats"
	"github.com/raaihank/pii-sentinel/internal/storage"
	"github.com/raaihank/pii-sentinel/internal/strategy"
	"github.com/raaihank/pii-sentinel/internal/verify"
)

// Collaborators are the optional media and infrastructure attachments.
// A nil client disables the media types that need it; a nil archive
// keeps audit trails on the job record only.
type Collaborators struct {
	Store    storage.ArtifactStore
	OCR      OCRClient
	ASR      ASRClient
	PDF      PDFClient
	Video    VideoClient
	Archive  *audit.Archive
	Notifier Notifier
}

// Orchestrator runs the detect, merge, map, redact, verify sequence
// for every media type and drives file jobs through their lifecycle.
type Orchestrator struct {
	cfg      *config.Config
	runner   *detect.Runner
	merger   *merge.Merger
	mapper   *mapping.Mapper
	engine   *strategy.Engine
	verifier *verify.Verifier
	jobs     *job.Manager
	agg      *stats.Aggregator
	collab   Collaborators
	log      *logger.Logger
}

// New wires the orchestrator from its collaborators
func New(cfg *config.Config, runner *detect.Runner, verifier *verify.Verifier, jobs *job.Manager, agg *stats.Aggregator, collab Collaborators, log *logger.Logger) *Orchestrator {
	plog := log.WithComponent("pipeline")

	salt := cfg.Redaction.HashSalt
	if salt == "" {
		salt = strategy.RandomSalt()
		plog.Warn("No hash salt configured; generated a random one, hash digests will not be stable across restarts")
	}

	return &Orchestrator{
		cfg:      cfg,
		runner:   runner,
		merger:   merge.New(cfg.Pipeline.MergeThreshold, cfg.Pipeline.TypePriority),
		mapper:   mapping.NewMapper(cfg.Pipeline.CoalesceGap),
		engine:   strategy.NewEngine(salt),
		verifier: verifier,
		jobs:     jobs,
		agg:      agg,
		collab:   collab,
		log:      plog,
	}
}

// detectAndMerge runs every engine over the text and reconciles the
// candidates into the canonical disjoint entity set. Low-confidence
// candidates are kept: they still get redacted, and verification
// flags any that remain unredacted instead of silently dropping them.
func (o *Orchestrator) detectAndMerge(ctx context.Context, text string, types []string) []entity.Entity {
	return o.merger.Merge(o.runner.Run(ctx, text, types))
}

func newRequestID() string {
	return uuid.New().String()
}

// digestFn returns the audit-trail hasher bound to this deployment's salt
func (o *Orchestrator) digestFn() func(string) string {
	return func(value string) string {
		return o.engine.Redact(entity.Entity{Value: value}, strategy.Hash, nil)
	}
}

// DetectPII finds entities in text without redacting anything
func (o *Orchestrator) DetectPII(ctx context.Context, text string, types []string) (*DetectResult, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	start := time.Now()

	entities := o.detectAndMerge(ctx, text, types)
	entities = o.mapper.MapText(entities)

	return &DetectResult{
		Entities:      entities,
		TotalEntities: len(entities),
		Stats:         merge.Stats(entities),
		ProcessingMS:  float64(time.Since(start).Microseconds()) / 1000.0,
	}, nil
}

// RedactText redacts a single text synchronously and returns the
// inline result.
func (o *Orchestrator) RedactText(ctx context.Context, text, strategyID string, types []string) (*TextResult, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	strat, err := strategy.Parse(strategyID)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	requestID := newRequestID()

	entities := o.detectAndMerge(ctx, text, types)
	entities = o.mapper.MapText(entities)

	amap := strategy.NewAnonymizationMap(requestID)
	redacted, entities := redact.ApplyText(text, entities, o.engine, strat, amap)

	scan := o.verifier.Scan(ctx, redacted)
	trail := audit.FromEntities(requestID, entities, string(strat), o.digestFn())
	o.archiveTrail(ctx, trail)

	elapsed := float64(time.Since(start).Microseconds()) / 1000.0
	o.agg.RecordText(entities, string(strat), elapsed)
	o.notifyDetections(requestID, "text", entities)

	return &TextResult{
		RedactedText:       redacted,
		Entities:           entities,
		TotalEntities:      len(entities),
		Verification:       scan,
		VerificationPassed: o.verifier.Passed(scan, entities),
		AuditLog:           trail,
		ProcessingMS:       elapsed,
	}, nil
}

// RedactBatch redacts multiple texts with one shared strategy. Items
// are independent; each slot in the result matches its input index.
func (o *Orchestrator) RedactBatch(ctx context.Context, texts []string, strategyID string, types []string) ([]*TextResult, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	if _, err := strategy.Parse(strategyID); err != nil {
		return nil, err
	}

	results := make([]*TextResult, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			res, err := o.RedactText(gctx, text, strategyID, types)
			if err != nil {
				return fmt.Errorf("batch item %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// SubmitImage starts an asynchronous image redaction job
func (o *Orchestrator) SubmitImage(data []byte, filename, strategyID string, types []string) (*job.Job, error) {
	strat, err := strategy.Parse(strategyID)
	if err != nil {
		return nil, err
	}
	if o.collab.OCR == nil {
		return nil, fmt.Errorf("%w: no OCR engine configured", ErrEngineUnavailable)
	}
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	j := o.jobs.Create("image", string(strat), filename)
	o.notifyJob(j)
	go o.runJob(j.ID, func(ctx context.Context) error {
		return o.processImage(ctx, j.ID, data, filename, strat, types)
	})
	return j, nil
}

// SubmitPDF starts an asynchronous PDF redaction job. The document is
// validated up front so corrupt uploads are rejected at submission.
func (o *Orchestrator) SubmitPDF(data []byte, filename, strategyID string, types []string) (*job.Job, error) {
	strat, err := strategy.Parse(strategyID)
	if err != nil {
		return nil, err
	}
	if o.collab.PDF == nil {
		return nil, fmt.Errorf("%w: no PDF engine configured", ErrEngineUnavailable)
	}
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	if _, err := api.PageCount(bytes.NewReader(data), nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactCorrupt, err)
	}

	j := o.jobs.Create("pdf", string(strat), filename)
	o.notifyJob(j)
	go o.runJob(j.ID, func(ctx context.Context) error {
		return o.processPDF(ctx, j.ID, data, filename, strat, types)
	})
	return j, nil
}

// SubmitAudio starts an asynchronous audio redaction job
func (o *Orchestrator) SubmitAudio(data []byte, filename, strategyID string, types []string) (*job.Job, error) {
	strat, err := strategy.Parse(strategyID)
	if err != nil {
		return nil, err
	}
	if o.collab.ASR == nil {
		return nil, fmt.Errorf("%w: no ASR engine configured", ErrEngineUnavailable)
	}
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	j := o.jobs.Create("audio", string(strat), filename)
	o.notifyJob(j)
	go o.runJob(j.ID, func(ctx context.Context) error {
		return o.processAudio(ctx, j.ID, data, filename, strat, types)
	})
	return j, nil
}

// SubmitVideo starts an asynchronous video redaction job
func (o *Orchestrator) SubmitVideo(data []byte, filename, strategyID string, types []string) (*job.Job, error) {
	strat, err := strategy.Parse(strategyID)
	if err != nil {
		return nil, err
	}
	if o.collab.Video == nil || o.collab.OCR == nil {
		return nil, fmt.Errorf("%w: no video engine configured", ErrEngineUnavailable)
	}
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	j := o.jobs.Create("video", string(strat), filename)
	o.notifyJob(j)
	go o.runJob(j.ID, func(ctx context.Context) error {
		return o.processVideo(ctx, j.ID, data, filename, strat, types)
	})
	return j, nil
}

// runJob bounds job concurrency and records the terminal transition.
// The context is bound to the job so cancellation aborts work in flight.
func (o *Orchestrator) runJob(jobID string, process func(context.Context) error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.jobs.BindCancel(jobID, cancel)

	if err := o.jobs.Acquire(ctx); err != nil {
		o.jobs.Fail(jobID, err)
		return
	}
	defer o.jobs.Release()

	o.jobs.MarkProcessing(jobID)
	if err := process(ctx); err != nil {
		o.jobs.Fail(jobID, err)
	}
	if j, err := o.jobs.Get(context.Background(), jobID); err == nil {
		o.notifyJob(j)
	}
}

func (o *Orchestrator) processImage(ctx context.Context, jobID string, data []byte, filename string, strat strategy.Strategy, types []string) error {
	start := time.Now()

	words, err := o.collab.OCR.Words(ctx, data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArtifactCorrupt, err)
	}
	idx := mapping.NewOCRIndex(words)

	entities := o.detectAndMerge(ctx, idx.Text(), types)
	entities = o.mapper.MapImage(entities, idx)

	amap := strategy.NewAnonymizationMap(jobID)
	redactedText, entities := redact.ApplyText(idx.Text(), entities, o.engine, strat, amap)

	fills := redact.ImagePlan(entities, o.engine, strat)
	out, err := redact.ApplyImage(data, fills)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArtifactCorrupt, err)
	}

	handle, err := o.collab.Store.Save(ctx, filename, out)
	if err != nil {
		return fmt.Errorf("failed to store redacted image: %w", err)
	}

	return o.finishJob(ctx, jobID, "image", strat, entities, redactedText, handle, "redacted_"+filename, "", start)
}

func (o *Orchestrator) processPDF(ctx context.Context, jobID string, data []byte, filename string, strat strategy.Strategy, types []string) error {
	start := time.Now()

	pages, err := o.collab.PDF.ExtractPages(ctx, data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArtifactCorrupt, err)
	}

	amap := strategy.NewAnonymizationMap(jobID)
	var all []entity.Entity
	var redactedDoc bytes.Buffer
	base := 0

	for _, page := range pages {
		idx := mapping.NewOCRIndex(page.Words)
		entities := o.detectAndMerge(ctx, idx.Text(), types)
		entities = o.mapper.MapImage(entities, idx)
		for i := range entities {
			if entities[i].Location != nil {
				entities[i].Location.Page = page.Number
			}
		}

		redactedPage, entities := redact.ApplyText(idx.Text(), entities, o.engine, strat, amap)

		// Shift spans into document-global offsets
		for i := range entities {
			entities[i].Span.Start += base
			entities[i].Span.End += base
		}
		all = append(all, entities...)

		if redactedDoc.Len() > 0 {
			redactedDoc.WriteByte('\n')
		}
		redactedDoc.WriteString(redactedPage)
		base += len(idx.Text()) + 1
	}

	fills := redact.PagePlan(all, o.engine, strat)
	out, err := o.collab.PDF.Redact(ctx, data, fills)
	if err != nil {
		return fmt.Errorf("failed to redact PDF: %w", err)
	}

	handle, err := o.collab.Store.Save(ctx, filename, out)
	if err != nil {
		return fmt.Errorf("failed to store redacted PDF: %w", err)
	}

	return o.finishJob(ctx, jobID, "pdf", strat, all, redactedDoc.String(), handle, "redacted_"+filename, "", start)
}

func (o *Orchestrator) processAudio(ctx context.Context, jobID string, data []byte, filename string, strat strategy.Strategy, types []string) error {
	start := time.Now()

	transcript, err := o.collab.ASR.Transcribe(ctx, data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArtifactCorrupt, err)
	}
	idx := mapping.NewASRIndex(transcript)

	entities := o.detectAndMerge(ctx, idx.Text(), types)
	entities = o.mapper.MapTimed(entities, idx)

	amap := strategy.NewAnonymizationMap(jobID)
	redactedText, entities := redact.ApplyText(idx.Text(), entities, o.engine, strat, amap)

	beeps := redact.AudioPlan(o.mapper.Segments(entities))
	out, err := o.collab.ASR.Redact(ctx, data, beeps)
	if err != nil {
		return fmt.Errorf("failed to redact audio: %w", err)
	}

	handle, err := o.collab.Store.Save(ctx, filename, out)
	if err != nil {
		return fmt.Errorf("failed to store redacted audio: %w", err)
	}

	return o.finishJob(ctx, jobID, "audio", strat, entities, redactedText, handle, "redacted_"+filename, redactedText, start)
}

func (o *Orchestrator) processVideo(ctx context.Context, jobID string, data []byte, filename string, strat strategy.Strategy, types []string) error {
	start := time.Now()

	info, err := o.collab.Video.Probe(ctx, data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArtifactCorrupt, err)
	}
	frames, err := o.collab.Video.SampleFrames(ctx, data, o.cfg.Pipeline.FrameSampleRate)
	if err != nil {
		return fmt.Errorf("failed to sample frames: %w", err)
	}

	amap := strategy.NewAnonymizationMap(jobID)
	var visual []entity.Entity
	var scanText bytes.Buffer
	base := 0

	for _, frame := range frames {
		words, err := o.collab.OCR.Words(ctx, frame.Image)
		if err != nil {
			o.log.Warn("Frame OCR failed",
				zap.String("job_id", jobID),
				zap.Int("frame", frame.Index),
				zap.Error(err))
			continue
		}
		idx := mapping.NewOCRIndex(words)
		entities := o.detectAndMerge(ctx, idx.Text(), types)
		for i := range entities {
			if region, ok := idx.Locate(entities[i].Span); ok {
				entities[i].Location = entity.FrameLocation(entity.FrameRegion{
					FrameIndex: frame.Index,
					X0:         region.X0,
					Y0:         region.Y0,
					X1:         region.X1,
					Y1:         region.Y1,
				})
			}
		}

		redactedFrame, entities := redact.ApplyText(idx.Text(), entities, o.engine, strat, amap)
		for i := range entities {
			entities[i].Span.Start += base
			entities[i].Span.End += base
		}
		visual = append(visual, entities...)

		if scanText.Len() > 0 {
			scanText.WriteByte('\n')
		}
		scanText.WriteString(redactedFrame)
		base += len(idx.Text()) + 1
	}

	// Audio track, when present and ASR is configured
	var audioEntities []entity.Entity
	var beeps []redact.BeepSegment
	var transcript string
	if o.collab.ASR != nil {
		track, err := o.collab.Video.ExtractAudio(ctx, data)
		if err != nil {
			o.log.Warn("Audio extraction failed", zap.String("job_id", jobID), zap.Error(err))
		} else if len(track) > 0 {
			t, err := o.collab.ASR.Transcribe(ctx, track)
			if err != nil {
				o.log.Warn("Video transcription failed", zap.String("job_id", jobID), zap.Error(err))
			} else {
				idx := mapping.NewASRIndex(t)
				entities := o.detectAndMerge(ctx, idx.Text(), types)
				entities = o.mapper.MapTimed(entities, idx)

				redactedTrack, entities := redact.ApplyText(idx.Text(), entities, o.engine, strat, amap)
				for i := range entities {
					entities[i].Span.Start += base
					entities[i].Span.End += base
				}
				audioEntities = entities
				transcript = redactedTrack
				beeps = redact.AudioPlan(o.mapper.Segments(entities))

				if scanText.Len() > 0 {
					scanText.WriteByte('\n')
				}
				scanText.WriteString(redactedTrack)
			}
		}
	}

	fills := redact.VideoPlan(visual, info.FPS, mapping.Frames, o.engine, strat)
	out, err := o.collab.Video.Redact(ctx, data, fills, beeps)
	if err != nil {
		return fmt.Errorf("failed to redact video: %w", err)
	}

	handle, err := o.collab.Store.Save(ctx, filename, out)
	if err != nil {
		return fmt.Errorf("failed to store redacted video: %w", err)
	}

	all := append(visual, audioEntities...)
	return o.finishJob(ctx, jobID, "video", strat, all, scanText.String(), handle, "redacted_"+filename, transcript, start)
}

// finishJob runs verification, archives the trail, and records the
// completed result on the job.
func (o *Orchestrator) finishJob(ctx context.Context, jobID, kind string, strat strategy.Strategy, entities []entity.Entity, redactedText, handle, downloadName, transcript string, start time.Time) error {
	scan := o.verifier.Scan(ctx, redactedText)
	passed := o.verifier.Passed(scan, entities)

	trail := audit.FromEntities(jobID, entities, string(strat), o.digestFn())
	o.archiveTrail(ctx, trail)

	elapsed := float64(time.Since(start).Microseconds()) / 1000.0
	o.agg.RecordFile(entities, string(strat), elapsed)

	o.jobs.Complete(jobID, func(j *job.Job) {
		j.Entities = entities
		j.TotalEntities = len(entities)
		j.AuditLog = trail
		j.Verification = &scan
		j.Verification.Passed = passed
		j.ArtifactHandle = handle
		j.DownloadName = downloadName
		j.RedactedTranscript = transcript
		j.ProcessingMS = elapsed
	})

	o.notifyDetections(jobID, kind, entities)
	o.log.Info("Job completed",
		zap.String("job_id", jobID),
		zap.String("kind", kind),
		zap.Int("entities", len(entities)),
		zap.Bool("verification_passed", passed),
		zap.Float64("processing_ms", elapsed))
	return nil
}

func (o *Orchestrator) archiveTrail(ctx context.Context, trail []audit.Entry) {
	if o.collab.Archive == nil || len(trail) == 0 {
		return
	}
	// Archive failures never fail the job
	if err := o.collab.Archive.Record(ctx, trail); err != nil {
		o.log.Warn("Audit archive unavailable", zap.Error(err))
	}
}

func (o *Orchestrator) notifyJob(j *job.Job) {
	if o.collab.Notifier != nil {
		o.collab.Notifier.JobUpdated(j)
	}
}

func (o *Orchestrator) notifyDetections(id, kind string, entities []entity.Entity) {
	if o.collab.Notifier == nil || len(entities) == 0 {
		return
	}
	seen := make(map[string]bool)
	var types []string
	for _, e := range entities {
		if !seen[string(e.Type)] {
			seen[string(e.Type)] = true
			types = append(types, string(e.Type))
		}
	}
	o.collab.Notifier.DetectionsFound(id, kind, len(entities), types)
}

// Engines reports availability for the status endpoint
func (o *Orchestrator) Engines() map[string]bool {
	status := o.runner.Status()
	status["ocr"] = o.collab.OCR != nil
	status["asr"] = o.collab.ASR != nil
	status["pdf"] = o.collab.PDF != nil
	status["video"] = o.collab.Video != nil
	return status
}
