package listingRepo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"venuebook/models"
	"venuebook/utils/apperr"
)

// InMemoryListingRepo is a process-local ListingRepository for development and tests.
type InMemoryListingRepo struct {
	mu       sync.RWMutex
	listings map[string]models.Listing
}

// NewInMemoryListingRepo creates an empty in-memory repository.
func NewInMemoryListingRepo() *InMemoryListingRepo {
	return &InMemoryListingRepo{listings: make(map[string]models.Listing)}
}

func (r *InMemoryListingRepo) Create(_ context.Context, l *models.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.listings[l.ID]; ok {
		return fmt.Errorf("listing %s: %w", l.ID, apperr.ErrConflict)
	}
	r.listings[l.ID] = *l
	return nil
}

func (r *InMemoryListingRepo) GetByID(_ context.Context, id string) (*models.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, fmt.Errorf("listing %s: %w", id, apperr.ErrNotFound)
	}
	return &l, nil
}

func (r *InMemoryListingRepo) TransitionStatus(_ context.Context, id string, change StatusChange) (*models.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, fmt.Errorf("listing %s: %w", id, apperr.ErrNotFound)
	}
	if l.VerificationStatus != change.From {
		return nil, fmt.Errorf("listing %s: %w", id, apperr.ErrInvalidState)
	}
	l.VerificationStatus = change.To
	l.AdminVerified = change.AdminVerified
	l.UpdatedAt = change.At
	if change.AdminVerifiedAt != nil {
		at := *change.AdminVerifiedAt
		l.AdminVerifiedAt = &at
	}
	if change.AdminNotes != "" {
		l.AdminNotes = change.AdminNotes
	}
	r.listings[id] = l
	return &l, nil
}

func (r *InMemoryListingRepo) SetActive(_ context.Context, id string, active bool, at time.Time) (*models.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, fmt.Errorf("listing %s: %w", id, apperr.ErrNotFound)
	}
	if l.VerificationStatus != models.StatusVerified || !l.AdminVerified {
		return nil, fmt.Errorf("listing %s: %w", id, apperr.ErrInvalidState)
	}
	l.IsActive = active
	l.UpdatedAt = at
	r.listings[id] = l
	return &l, nil
}

func (r *InMemoryListingRepo) ListPublic(_ context.Context, f PublicFilter) ([]models.Listing, error) {
	out := r.filter(func(l *models.Listing) bool {
		return l.PubliclyVisible() && (f.Type == "" || l.Type == f.Type)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *InMemoryListingRepo) ListByStatus(_ context.Context, status models.VerificationStatus) ([]models.Listing, error) {
	out := r.filter(func(l *models.Listing) bool { return l.VerificationStatus == status })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryListingRepo) ListByOwner(_ context.Context, ownerID string) ([]models.Listing, error) {
	out := r.filter(func(l *models.Listing) bool { return l.OwnerID == ownerID })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryListingRepo) filter(keep func(*models.Listing) bool) []models.Listing {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.Listing{}
	for _, l := range r.listings {
		if keep(&l) {
			out = append(out, l)
		}
	}
	return out
}
