package job

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/raaihank/pii-sentinel/internal/config"
	"github.com/raaihank/pii-sentinel/internal/logger"
	"github.com/raaihank/pii-sentinel/internal/storage"
)

// record wraps a job with its in-flight download count. Expiry never
// yanks an artifact out from under an active download; the artifact is
// removed once the last reader finishes.
type record struct {
	job    *Job
	refs   int
	doomed bool
	cancel context.CancelFunc
}

// Manager owns the job table: creation, status transitions, result
// downloads, and expiry. Job metadata is optionally mirrored to Redis
// so peer instances can answer status queries.
type Manager struct {
	mu      sync.Mutex
	jobs    map[string]*record
	store   storage.ArtifactStore
	mirror  *storage.RedisJobStore
	expiry  time.Duration
	slots   *semaphore.Weighted
	log     *logger.Logger
	stopped chan struct{}
	done    chan struct{}
}

// NewManager creates a job manager. mirror may be nil.
func NewManager(cfg config.JobsConfig, store storage.ArtifactStore, mirror *storage.RedisJobStore, log *logger.Logger) *Manager {
	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = time.Hour
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	cleanupEvery := cfg.CleanupInterval
	if cleanupEvery <= 0 {
		cleanupEvery = time.Minute
	}

	m := &Manager{
		jobs:    make(map[string]*record),
		store:   store,
		mirror:  mirror,
		expiry:  expiry,
		slots:   semaphore.NewWeighted(int64(maxConcurrent)),
		log:     log,
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go m.cleanupLoop(cleanupEvery)
	return m
}

// Acquire blocks until a processing slot is free
func (m *Manager) Acquire(ctx context.Context) error {
	return m.slots.Acquire(ctx, 1)
}

// Release frees a processing slot
func (m *Manager) Release() {
	m.slots.Release(1)
}

// Create registers a new job in CREATED state
func (m *Manager) Create(kind, strategyID, filename string) *Job {
	now := time.Now().UTC()
	j := &Job{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    StatusCreated,
		Strategy:  strategyID,
		Filename:  filename,
		CreatedAt: now,
		ExpiresAt: now.Add(m.expiry),
	}

	m.mu.Lock()
	m.jobs[j.ID] = &record{job: j}
	m.mu.Unlock()

	m.syncMirror(j)
	m.log.Info("Job created",
		zap.String("job_id", j.ID),
		zap.String("kind", kind),
		zap.String("strategy", strategyID))
	return j
}

// MarkProcessing transitions a job to PROCESSING. Jobs cancelled while
// queued stay failed.
func (m *Manager) MarkProcessing(jobID string) {
	m.update(jobID, func(j *Job) {
		if j.Status != StatusCreated {
			return
		}
		j.Status = StatusProcessing
	})
}

// Complete records the finished result and transitions to COMPLETED.
// A job cancelled mid-run stays failed; late results are discarded.
func (m *Manager) Complete(jobID string, apply func(*Job)) {
	m.update(jobID, func(j *Job) {
		if j.Status == StatusFailed {
			return
		}
		apply(j)
		j.Status = StatusCompleted
	})
}

// Fail records the error and transitions to FAILED. The first terminal
// error wins.
func (m *Manager) Fail(jobID string, err error) {
	m.update(jobID, func(j *Job) {
		if j.Status == StatusFailed {
			return
		}
		j.Status = StatusFailed
		j.Error = err.Error()
	})
	m.log.Warn("Job failed", zap.String("job_id", jobID), zap.Error(err))
}

// BindCancel attaches the processing context's cancel function so
// Cancel can abort work in flight.
func (m *Manager) BindCancel(jobID string, cancel context.CancelFunc) {
	m.mu.Lock()
	if rec, ok := m.jobs[jobID]; ok {
		rec.cancel = cancel
	}
	m.mu.Unlock()
}

// Cancel aborts a job that has not completed yet
func (m *Manager) Cancel(jobID string) error {
	m.mu.Lock()
	rec, ok := m.jobs[jobID]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if rec.job.Status == StatusCompleted || rec.job.Status == StatusFailed {
		m.mu.Unlock()
		return fmt.Errorf("job %s already %s", jobID, rec.job.Status)
	}
	rec.job.Status = StatusFailed
	rec.job.Error = "cancelled"
	cancel := rec.cancel
	j := *rec.job
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.syncMirror(&j)
	return nil
}

func (m *Manager) update(jobID string, apply func(*Job)) {
	m.mu.Lock()
	rec, ok := m.jobs[jobID]
	if !ok {
		m.mu.Unlock()
		return
	}
	apply(rec.job)
	j := *rec.job
	m.mu.Unlock()

	m.syncMirror(&j)
}

// Get returns a copy of the job record. Expired jobs report
// ErrExpired rather than pretending they never existed.
func (m *Manager) Get(ctx context.Context, jobID string) (*Job, error) {
	m.mu.Lock()
	rec, ok := m.jobs[jobID]
	if ok {
		if rec.job.Expired(time.Now().UTC()) {
			m.mu.Unlock()
			return nil, ErrExpired
		}
		j := *rec.job
		m.mu.Unlock()
		return &j, nil
	}
	m.mu.Unlock()

	// Not local; a peer instance may own it
	if m.mirror != nil {
		var j Job
		err := m.mirror.Get(ctx, jobID, &j)
		if err == nil {
			return &j, nil
		}
		if err != storage.ErrNotFound {
			m.log.Warn("Mirror lookup failed", zap.String("job_id", jobID), zap.Error(err))
		}
	}
	return nil, ErrNotFound
}

// Download returns the redacted artifact for a completed job. A
// download that starts before expiry completes even if the cleanup
// pass fires mid-read.
func (m *Manager) Download(ctx context.Context, jobID string) ([]byte, string, error) {
	m.mu.Lock()
	rec, ok := m.jobs[jobID]
	if !ok {
		m.mu.Unlock()
		return nil, "", ErrNotFound
	}
	if rec.job.Expired(time.Now().UTC()) {
		m.mu.Unlock()
		return nil, "", ErrExpired
	}
	if rec.job.Status != StatusCompleted || rec.job.ArtifactHandle == "" {
		m.mu.Unlock()
		return nil, "", ErrNotReady
	}
	handle := rec.job.ArtifactHandle
	name := rec.job.DownloadName
	rec.refs++
	m.mu.Unlock()

	data, err := m.store.Read(ctx, handle)

	m.mu.Lock()
	rec.refs--
	drop := rec.doomed && rec.refs == 0
	m.mu.Unlock()
	if drop {
		m.removeArtifact(handle)
	}

	if err != nil {
		return nil, "", fmt.Errorf("failed to read job artifact: %w", err)
	}
	return data, name, nil
}

// Delete removes a job and its artifact immediately
func (m *Manager) Delete(ctx context.Context, jobID string) error {
	m.mu.Lock()
	rec, ok := m.jobs[jobID]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	handle := rec.job.ArtifactHandle
	busy := rec.refs > 0
	if busy {
		rec.doomed = true
	}
	delete(m.jobs, jobID)
	m.mu.Unlock()

	if handle != "" && !busy {
		m.removeArtifact(handle)
	}
	if m.mirror != nil {
		if err := m.mirror.Delete(ctx, jobID); err != nil {
			m.log.Warn("Mirror delete failed", zap.String("job_id", jobID), zap.Error(err))
		}
	}
	m.log.Info("Job deleted", zap.String("job_id", jobID))
	return nil
}

// Count returns the number of tracked jobs
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// Close stops the cleanup loop
func (m *Manager) Close() {
	select {
	case <-m.stopped:
	default:
		close(m.stopped)
		<-m.done
	}
}

func (m *Manager) cleanupLoop(every time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stopped:
			return
		}
	}
}

// sweep drops expired jobs. Artifacts with active downloads are marked
// and removed when the last reader finishes.
func (m *Manager) sweep() {
	now := time.Now().UTC()

	m.mu.Lock()
	var handles []string
	var removed int
	for id, rec := range m.jobs {
		if !rec.job.Expired(now) {
			continue
		}
		if rec.refs > 0 {
			rec.doomed = true
		} else if rec.job.ArtifactHandle != "" {
			handles = append(handles, rec.job.ArtifactHandle)
		}
		delete(m.jobs, id)
		removed++
	}
	m.mu.Unlock()

	for _, h := range handles {
		m.removeArtifact(h)
	}
	if removed > 0 {
		m.log.Info("Expired jobs cleaned up", zap.Int("removed", removed))
	}
}

func (m *Manager) removeArtifact(handle string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.store.Delete(ctx, handle); err != nil {
		m.log.Warn("Failed to delete artifact", zap.String("handle", handle), zap.Error(err))
	}
}

func (m *Manager) syncMirror(j *Job) {
	if m.mirror == nil {
		return
	}
	ttl := time.Until(j.ExpiresAt)
	if ttl <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.mirror.Put(ctx, j.ID, j, ttl); err != nil {
		m.log.Warn("Mirror sync failed", zap.String("job_id", j.ID), zap.Error(err))
	}
}
