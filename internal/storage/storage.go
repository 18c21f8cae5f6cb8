package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an artifact handle resolves to nothing
var ErrNotFound = errors.New("artifact not found")

// ArtifactStore is the binary blob collaborator. The pipeline never
// assumes a specific storage technology; anything honoring this
// contract works.
type ArtifactStore interface {
	// Save persists a blob and returns its handle.
	Save(ctx context.Context, name string, data []byte) (handle string, err error)
	// Read returns the blob for a handle.
	Read(ctx context.Context, handle string) ([]byte, error)
	// Delete removes the blob for a handle. Deleting an unknown
	// handle is not an error.
	Delete(ctx context.Context, handle string) error
}
