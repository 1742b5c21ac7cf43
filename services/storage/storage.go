package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"venuebook/config"
)

// New builds the StorageService selected by STORAGE_DRIVER.
func New(ctx context.Context, cfg *config.Config) (StorageService, error) {
	switch cfg.StorageDriver {
	case "s3":
		return NewS3Storage(ctx, S3Config{
			Region:   cfg.S3Region,
			Bucket:   cfg.S3Bucket,
			Endpoint: cfg.S3Endpoint,

			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	case "cloudinary":
		return NewCloudinaryStorage(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	case "memory":
		return NewMemoryStorage(cfg.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER: %s", cfg.StorageDriver)
	}
}

// MemoryStorage keeps blobs in process memory. Used for local development
// and tests; the signed URLs it returns are not servable.
type MemoryStorage struct {
	baseURL string

	mu    sync.RWMutex
	blobs map[string]memoryBlob

	// FailDelete makes Delete fail, to exercise the retry paths.
	FailDelete error
	// FailUpload makes Upload fail.
	FailUpload error
	// Now stamps uploaded blobs.
	Now func() time.Time
}

type memoryBlob struct {
	data       []byte
	modifiedAt time.Time
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{baseURL: strings.TrimRight(baseURL, "/"), blobs: make(map[string]memoryBlob), Now: time.Now}
}

func (s *MemoryStorage) Upload(_ context.Context, obj Object) error {
	if s.FailUpload != nil {
		return s.FailUpload
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj.Body); err != nil {
		return fmt.Errorf("failed to read upload: %w", err)
	}
	s.mu.Lock()
	s.blobs[obj.Path] = memoryBlob{data: buf.Bytes(), modifiedAt: s.Now()}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, path string) error {
	if s.FailDelete != nil {
		return s.FailDelete
	}
	s.mu.Lock()
	delete(s.blobs, path)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) SignedURL(_ context.Context, path string, expires time.Duration) (string, error) {
	exp := time.Now().Add(ClampExpiry(expires)).Unix()
	return fmt.Sprintf("%s/blobs/%s?expires=%d", s.baseURL, url.PathEscape(path), exp), nil
}

func (s *MemoryStorage) List(_ context.Context, prefix string) ([]StoredObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var objects []StoredObject
	for k, b := range s.blobs {
		if strings.HasPrefix(k, prefix) {
			objects = append(objects, StoredObject{Path: k, ModifiedAt: b.modifiedAt})
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Path < objects[j].Path })
	return objects, nil
}

// Has reports whether path is stored.
func (s *MemoryStorage) Has(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[path]
	return ok
}
