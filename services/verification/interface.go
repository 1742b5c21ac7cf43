package verification

import (
	"context"
	"time"

	listingRepo "venuebook/database/repository/listing"
	tokenRepo "venuebook/database/repository/token"
	"venuebook/models"
	"venuebook/services/notification"
	"venuebook/utils"

	"go.uber.org/zap"
)

// VerificationService drives a listing from submission to public visibility.
type VerificationService interface {
	// Owner flow
	SubmitListing(ctx context.Context, owner utils.Session, draft ListingDraft) (*models.Listing, error)
	InitiateVerification(ctx context.Context, entityType models.ListingType, entityID, userID string) (string, error)
	VerifyListing(ctx context.Context, token string) (*models.Listing, error)
	SetListingActive(ctx context.Context, owner utils.Session, listingID string, active bool) (*models.Listing, error)
	ResubmitListing(ctx context.Context, owner utils.Session, rejectedID string) (*models.Listing, error)

	// Admin review
	ApproveListing(ctx context.Context, admin utils.Session, listingID, notes string) (*models.Listing, error)
	RejectListing(ctx context.Context, admin utils.Session, listingID, notes string) (*models.Listing, error)
	ListByStatus(ctx context.Context, admin utils.Session, status models.VerificationStatus) ([]models.Listing, error)

	// Reads
	GetListing(ctx context.Context, viewer *utils.Session, listingID string) (*models.Listing, error)
	ListPublic(ctx context.Context, f listingRepo.PublicFilter) ([]models.Listing, error)
	ListMine(ctx context.Context, owner utils.Session) ([]models.Listing, error)
}

// DefaultVerificationService is the production implementation.
type DefaultVerificationService struct {
	Listings listingRepo.ListingRepository
	Tokens   tokenRepo.TokenRepository
	Mailer   notification.Mailer
	// Cache is optional.
	Cache    PublicListingCache
	TokenTTL time.Duration
	BaseURL  string
	Logger   *zap.Logger
	Now      func() time.Time
}

// ListingDraft is what an owner submits.
type ListingDraft struct {
	Type        models.ListingType     `json:"type" binding:"required"`
	Name        string                 `json:"name" binding:"required"`
	Description string                 `json:"description"`
	Price       models.Money           `json:"price"`
	Venue       *models.VenueDetails   `json:"venue,omitempty"`
	Service     *models.ServiceDetails `json:"service,omitempty"`
	SocialLinks models.SocialLinks     `json:"social_links"`
}

func (s *DefaultVerificationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *DefaultVerificationService) tokenTTL() time.Duration {
	if s.TokenTTL > 0 {
		return s.TokenTTL
	}
	return 24 * time.Hour
}
