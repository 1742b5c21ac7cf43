package documentRepo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"venuebook/models"
	"venuebook/utils/apperr"
)

// InMemoryDocumentRepo is a process-local DocumentRepository.
type InMemoryDocumentRepo struct {
	mu   sync.RWMutex
	docs map[string]models.Document
}

// NewInMemoryDocumentRepo creates an empty in-memory repository.
func NewInMemoryDocumentRepo() *InMemoryDocumentRepo {
	return &InMemoryDocumentRepo{docs: make(map[string]models.Document)}
}

func (r *InMemoryDocumentRepo) Create(_ context.Context, d *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[d.ID]; ok {
		return fmt.Errorf("document %s: %w", d.ID, apperr.ErrConflict)
	}
	for _, existing := range r.docs {
		if existing.StoragePath == d.StoragePath {
			return fmt.Errorf("document path %s: %w", d.StoragePath, apperr.ErrConflict)
		}
	}
	r.docs[d.ID] = *d
	return nil
}

func (r *InMemoryDocumentRepo) GetByID(_ context.Context, id string) (*models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, apperr.ErrNotFound)
	}
	return &d, nil
}

func (r *InMemoryDocumentRepo) SetReview(_ context.Context, id string, review Review) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok || d.DeletingAt != nil {
		return nil, fmt.Errorf("document %s: %w", id, apperr.ErrNotFound)
	}
	d.VerifiedByAdmin = review.Verified
	d.AdminNotes = review.Notes
	d.ReviewedBy = review.ReviewedBy
	if review.Verified {
		at := review.At
		d.VerifiedAt = &at
	} else {
		d.VerifiedAt = nil
	}
	r.docs[id] = d
	return &d, nil
}

func (r *InMemoryDocumentRepo) MarkDeleting(_ context.Context, id string, at time.Time) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, apperr.ErrNotFound)
	}
	if d.DeletingAt == nil {
		marked := at
		d.DeletingAt = &marked
		r.docs[id] = d
	}
	return &d, nil
}

func (r *InMemoryDocumentRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return fmt.Errorf("document %s: %w", id, apperr.ErrNotFound)
	}
	delete(r.docs, id)
	return nil
}

func (r *InMemoryDocumentRepo) ListDeleting(_ context.Context, cutoff time.Time) ([]models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.Document{}
	for _, d := range r.docs {
		if d.DeletingAt != nil && !d.DeletingAt.After(cutoff) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *InMemoryDocumentRepo) ExistsByPath(_ context.Context, storagePath string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.docs {
		if d.StoragePath == storagePath {
			return true, nil
		}
	}
	return false, nil
}

func (r *InMemoryDocumentRepo) ListByUser(_ context.Context, userID string) ([]models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.Document{}
	for _, d := range r.docs {
		if d.UserID == userID && d.DeletingAt == nil {
			out = append(out, d)
		}
	}
	return out, nil
}
