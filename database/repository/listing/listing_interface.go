package listingRepo

import (
	"context"
	"time"

	"venuebook/models"
)

// StatusChange is a conditional verification-status update. It only applies
// when the stored status still equals From.
type StatusChange struct {
	From            models.VerificationStatus
	To              models.VerificationStatus
	AdminVerified   bool
	AdminVerifiedAt *time.Time
	AdminNotes      string
	At              time.Time
}

// PublicFilter narrows the public listing query.
type PublicFilter struct {
	Type  models.ListingType
	Limit int
}

// ListingRepository defines methods for listing data access.
type ListingRepository interface {
	Create(ctx context.Context, l *models.Listing) error
	// GetByID returns apperr.ErrNotFound when no listing has the id.
	GetByID(ctx context.Context, id string) (*models.Listing, error)
	// TransitionStatus returns apperr.ErrInvalidState if the listing moved on
	// since the caller read it.
	TransitionStatus(ctx context.Context, id string, change StatusChange) (*models.Listing, error)
	// SetActive only succeeds on verified listings.
	SetActive(ctx context.Context, id string, active bool, at time.Time) (*models.Listing, error)
	ListPublic(ctx context.Context, f PublicFilter) ([]models.Listing, error)
	ListByStatus(ctx context.Context, status models.VerificationStatus) ([]models.Listing, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Listing, error)
}
