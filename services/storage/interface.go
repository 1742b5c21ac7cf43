package storage

import (
	"context"
	"io"
	"time"
)

// MaxSignedURLExpiry caps how long a signed download link stays valid.
const MaxSignedURLExpiry = time.Hour

// Object describes a blob to upload.
type Object struct {
	Path        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// StorageService defines the interface for blob storage operations.
// Failures are reported as apperr.ExternalServiceError.
type StorageService interface {
	Upload(ctx context.Context, obj Object) error
	// Delete succeeds when the blob is already gone.
	Delete(ctx context.Context, path string) error
	SignedURL(ctx context.Context, path string, expires time.Duration) (string, error)
}

// StoredObject is one entry returned by List.
type StoredObject struct {
	Path       string
	ModifiedAt time.Time
}

// Lister is implemented by backends that can enumerate stored blobs for the
// orphan cleanup sweep.
type Lister interface {
	List(ctx context.Context, prefix string) ([]StoredObject, error)
}

// ClampExpiry bounds a requested signed URL lifetime to (0, MaxSignedURLExpiry].
func ClampExpiry(d time.Duration) time.Duration {
	if d <= 0 || d > MaxSignedURLExpiry {
		return MaxSignedURLExpiry
	}
	return d
}
