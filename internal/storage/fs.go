package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raaihank/pii-sentinel/internal/logger"
)

// FileStore keeps artifacts on the local filesystem, one file per
// handle under a single directory.
type FileStore struct {
	dir string
	log *logger.Logger
}

// NewFileStore creates the artifact directory if needed
func NewFileStore(dir string, log *logger.Logger) (*FileStore, error) {
	if dir == "" {
		dir = "data/artifacts"
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	log.Info("Artifact store initialized", zap.String("dir", dir))
	return &FileStore{dir: dir, log: log}, nil
}

// Save writes the blob under a fresh random handle. The original name
// only contributes its extension so handles never embed user input.
func (fs *FileStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	handle := uuid.New().String() + sanitizeExt(name)
	path := filepath.Join(fs.dir, handle)

	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	fs.log.Debug("Artifact saved",
		zap.String("handle", handle),
		zap.Int("bytes", len(data)))
	return handle, nil
}

// Read returns the blob for a handle
func (fs *FileStore) Read(ctx context.Context, handle string) ([]byte, error) {
	path, err := fs.resolve(handle)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return data, nil
}

// Delete removes the blob for a handle
func (fs *FileStore) Delete(ctx context.Context, handle string) error {
	path, err := fs.resolve(handle)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}

// resolve rejects handles that would escape the artifact directory
func (fs *FileStore) resolve(handle string) (string, error) {
	if handle == "" || handle != filepath.Base(handle) || strings.Contains(handle, "..") {
		return "", fmt.Errorf("invalid artifact handle %q", handle)
	}
	return filepath.Join(fs.dir, handle), nil
}

func sanitizeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) > 8 {
		return ""
	}
	for _, r := range ext {
		if r != '.' && (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
