package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/raaihank/pii-sentinel/internal/config"
	"github.com/raaihank/pii-sentinel/internal/entity"
	"github.com/raaihank/pii-sentinel/internal/logger"
	"github.com/raaihank/pii-sentinel/internal/storage"
)

// memStore is an in-memory ArtifactStore for tests
type memStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	next  int
}

func newMemStore() *memStore {
	return &memStore{blobs: make(map[string][]byte)}
}

func (s *memStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	handle := name
	if handle == "" {
		handle = "blob"
	}
	handle = handle + "-" + time.Now().Format("150405") + string(rune('a'+s.next%26))
	s.blobs[handle] = data
	return handle, nil
}

func (s *memStore) Read(ctx context.Context, handle string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[handle]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (s *memStore) Delete(ctx context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, handle)
	return nil
}

func newTestManager(t *testing.T) (*Manager, *memStore) {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	store := newMemStore()
	m := NewManager(config.JobsConfig{
		Expiry:          time.Hour,
		CleanupInterval: time.Hour,
		MaxConcurrent:   2,
	}, store, nil, log)
	t.Cleanup(m.Close)
	return m, store
}

func TestJobLifecycle(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	j := m.Create("image", "mask", "scan.png")
	if j.Status != StatusCreated {
		t.Fatalf("expected CREATED, got %s", j.Status)
	}

	m.MarkProcessing(j.ID)
	got, err := m.Get(ctx, j.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusProcessing {
		t.Errorf("expected PROCESSING, got %s", got.Status)
	}

	handle, _ := store.Save(ctx, "scan.png", []byte("redacted-bytes"))
	m.Complete(j.ID, func(j *Job) {
		j.ArtifactHandle = handle
		j.DownloadName = "redacted_scan.png"
		j.Entities = []entity.Entity{{Type: entity.TypeEmail, Confidence: 0.95}}
	})

	got, err = m.Get(ctx, j.ID)
	if err != nil {
		t.Fatalf("get after complete: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("expected COMPLETED, got %s", got.Status)
	}
	if len(got.Entities) != 1 {
		t.Errorf("expected entities on the record, got %d", len(got.Entities))
	}

	data, name, err := m.Download(ctx, j.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if string(data) != "redacted-bytes" {
		t.Errorf("unexpected artifact bytes: %q", data)
	}
	if name != "redacted_scan.png" {
		t.Errorf("unexpected download name: %q", name)
	}
}

func TestDownloadBeforeCompletion(t *testing.T) {
	m, _ := newTestManager(t)
	j := m.Create("pdf", "mask", "doc.pdf")
	m.MarkProcessing(j.ID)

	if _, _, err := m.Download(context.Background(), j.ID); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady, got %v", err)
	}
}

func TestExpiredJob(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	j := m.Create("audio", "mask", "call.wav")
	handle, _ := store.Save(ctx, "call.wav", []byte("beeped"))
	m.Complete(j.ID, func(j *Job) {
		j.ArtifactHandle = handle
		j.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	})

	if _, err := m.Get(ctx, j.ID); !errors.Is(err, ErrExpired) {
		t.Errorf("expected ErrExpired from Get, got %v", err)
	}
	if _, _, err := m.Download(ctx, j.ID); !errors.Is(err, ErrExpired) {
		t.Errorf("expected ErrExpired from Download, got %v", err)
	}

	m.sweep()
	if _, err := m.Get(ctx, j.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after sweep, got %v", err)
	}
	if _, err := store.Read(ctx, handle); !errors.Is(err, storage.ErrNotFound) {
		t.Error("expected artifact removed by sweep")
	}
}

func TestCancel(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	j := m.Create("video", "mask", "clip.mp4")
	if err := m.Cancel(j.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got, err := m.Get(ctx, j.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusFailed || got.Error != "cancelled" {
		t.Errorf("expected cancelled failure, got %s/%q", got.Status, got.Error)
	}

	// Completed jobs can no longer be cancelled
	done := m.Create("image", "mask", "x.png")
	m.Complete(done.ID, func(j *Job) {})
	if err := m.Cancel(done.ID); err == nil {
		t.Error("expected error cancelling a completed job")
	}
}

func TestDelete(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	j := m.Create("image", "mask", "x.png")
	handle, _ := store.Save(ctx, "x.png", []byte("data"))
	m.Complete(j.ID, func(j *Job) { j.ArtifactHandle = handle })

	if err := m.Delete(ctx, j.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.Get(ctx, j.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Read(ctx, handle); !errors.Is(err, storage.ErrNotFound) {
		t.Error("expected artifact removed on delete")
	}
	if err := m.Delete(ctx, j.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete should report ErrNotFound, got %v", err)
	}
}

func TestConcurrencySlots(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	if err := m.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.Acquire(ctx); err != nil {
		t.Fatal(err)
	}

	// Third slot must block until one is released
	blocked, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := m.Acquire(blocked); err == nil {
		t.Fatal("expected third acquire to block")
	}

	m.Release()
	if err := m.Acquire(ctx); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	m.Release()
	m.Release()
}

func TestCancelAbortsBoundContext(t *testing.T) {
	m, _ := newTestManager(t)

	j := m.Create("video", "mask", "clip.mp4")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.BindCancel(j.ID, cancel)

	if err := m.Cancel(j.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("expected bound context to be cancelled")
	}

	// A result arriving after cancellation is discarded
	m.Complete(j.ID, func(j *Job) { j.ArtifactHandle = "late" })
	got, err := m.Get(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusFailed || got.ArtifactHandle != "" {
		t.Errorf("late completion must not override cancellation, got %s/%q", got.Status, got.ArtifactHandle)
	}
}
