package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	listingRepo "venuebook/database/repository/listing"
	"venuebook/models"
	"venuebook/services/notification"
	"venuebook/utils"
	"venuebook/utils/apperr"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxPublicListings = 100

func validateDraft(d ListingDraft) error {
	if !d.Type.Valid() {
		return apperr.Validation("type", "must be venue or service_provider")
	}
	if strings.TrimSpace(d.Name) == "" {
		return apperr.Validation("name", "required")
	}
	if d.Price < 0 {
		return apperr.Validation("price", "must not be negative")
	}
	switch d.Type {
	case models.ListingVenue:
		if d.Venue == nil || d.Service != nil {
			return apperr.Validation("venue", "venue listings carry venue details only")
		}
		if d.Venue.Capacity <= 0 {
			return apperr.Validation("venue.capacity", "must be positive")
		}
		if strings.TrimSpace(d.Venue.Location) == "" {
			return apperr.Validation("venue.location", "required")
		}
	case models.ListingServiceProvider:
		if d.Service == nil || d.Venue != nil {
			return apperr.Validation("service", "service provider listings carry service details only")
		}
		if strings.TrimSpace(d.Service.Category) == "" {
			return apperr.Validation("service.category", "required")
		}
	}
	return nil
}

// SubmitListing stores a new pending listing and emails its verification link.
// If the email cannot be sent the listing is still created; the returned
// ExternalServiceError tells the caller to resend.
func (s *DefaultVerificationService) SubmitListing(ctx context.Context, owner utils.Session, draft ListingDraft) (*models.Listing, error) {
	if owner.Role != utils.RoleOwner && !owner.IsAdmin() {
		return nil, fmt.Errorf("only listing owners can submit listings: %w", apperr.ErrForbidden)
	}
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	now := s.now()
	l := &models.Listing{
		ID:                 uuid.New().String(),
		OwnerID:            owner.UserID,
		OwnerEmail:         owner.Email,
		Type:               draft.Type,
		Name:               strings.TrimSpace(draft.Name),
		Description:        draft.Description,
		Price:              draft.Price,
		Venue:              draft.Venue,
		Service:            draft.Service,
		SocialLinks:        draft.SocialLinks,
		VerificationStatus: models.StatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	return s.create(ctx, l)
}

func (s *DefaultVerificationService) create(ctx context.Context, l *models.Listing) (*models.Listing, error) {
	if err := s.Listings.Create(ctx, l); err != nil {
		return nil, err
	}
	s.Logger.Info("listing submitted", zap.String("listingId", l.ID), zap.String("ownerId", l.OwnerID))

	if _, err := s.InitiateVerification(ctx, l.Type, l.ID, l.OwnerID); err != nil {
		return l, err
	}
	return l, nil
}

// InitiateVerification issues a fresh single-use token for a pending listing
// and emails it. Earlier tokens stay valid until they expire.
func (s *DefaultVerificationService) InitiateVerification(ctx context.Context, entityType models.ListingType, entityID, userID string) (string, error) {
	l, err := s.Listings.GetByID(ctx, entityID)
	if err != nil {
		return "", err
	}
	if l.OwnerID != userID {
		return "", fmt.Errorf("listing %s: %w", entityID, apperr.ErrForbidden)
	}
	if entityType != "" && l.Type != entityType {
		return "", apperr.Validation("entity_type", "does not match the listing")
	}
	if l.VerificationStatus != models.StatusPending {
		return "", apperr.Validation("verification_status", "listing is not awaiting email verification")
	}

	raw, err := utils.GenerateSecureToken()
	if err != nil {
		return "", err
	}
	now := s.now()
	if err := s.Tokens.Create(ctx, &models.VerificationToken{
		TokenHash:  utils.HashToken(raw),
		EntityType: l.Type,
		EntityID:   l.ID,
		UserID:     userID,
		ExpiresAt:  now.Add(s.tokenTTL()),
		CreatedAt:  now,
	}); err != nil {
		return "", err
	}

	link := notification.VerificationLink(s.BaseURL, raw)
	if err := s.Mailer.Send(ctx, notification.VerificationEmail(l.OwnerEmail, l, link)); err != nil {
		s.Logger.Error("verification email failed", zap.String("listingId", l.ID), zap.Error(err))
		if apperr.IsExternal(err) {
			return "", err
		}
		return "", apperr.External("mailer", err)
	}
	return raw, nil
}

// VerifyListing consumes token and moves its listing to under_review. Any
// failure leaves the token unusable; the owner requests a new one.
func (s *DefaultVerificationService) VerifyListing(ctx context.Context, token string) (*models.Listing, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperr.ErrTokenInvalid
	}
	now := s.now()
	t, err := s.Tokens.Consume(ctx, utils.HashToken(token), now)
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrNotFound):
		return nil, apperr.ErrTokenInvalid
	case errors.Is(err, apperr.ErrExpired):
		return nil, apperr.ErrTokenExpired
	case errors.Is(err, apperr.ErrAlreadyUsed):
		return nil, apperr.ErrTokenUsed
	case errors.Is(err, apperr.ErrInvalidState):
		return nil, apperr.ErrTokenInvalid
	default:
		return nil, err
	}

	l, err := s.Listings.TransitionStatus(ctx, t.EntityID, listingRepo.StatusChange{
		From: models.StatusPending,
		To:   models.StatusUnderReview,
		At:   now,
	})
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrInvalidState):
		// Another token for the same listing got there first.
		return nil, apperr.ErrTokenUsed
	case errors.Is(err, apperr.ErrNotFound):
		return nil, apperr.ErrTokenInvalid
	default:
		// The listing never moved, so hand the token back for a retry.
		if relErr := s.Tokens.Release(ctx, t.TokenHash, now); relErr != nil {
			s.Logger.Warn("could not release verification token",
				zap.String("listingId", t.EntityID), zap.Error(relErr))
		}
		return nil, err
	}
	s.Logger.Info("listing email verified", zap.String("listingId", l.ID))
	return l, nil
}

// ApproveListing publishes a listing that passed review.
func (s *DefaultVerificationService) ApproveListing(ctx context.Context, admin utils.Session, listingID, notes string) (*models.Listing, error) {
	if !admin.IsAdmin() {
		return nil, apperr.ErrForbidden
	}
	now := s.now()
	l, err := s.review(ctx, listingID, listingRepo.StatusChange{
		From:            models.StatusUnderReview,
		To:              models.StatusVerified,
		AdminVerified:   true,
		AdminVerifiedAt: &now,
		AdminNotes:      strings.TrimSpace(notes),
		At:              now,
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("listing approved", zap.String("listingId", l.ID), zap.String("adminId", admin.UserID))
	s.notify(ctx, notification.ListingApprovedEmail(l.OwnerEmail, l))
	s.invalidate(ctx)
	return l, nil
}

// RejectListing closes a review with the reasons in notes.
func (s *DefaultVerificationService) RejectListing(ctx context.Context, admin utils.Session, listingID, notes string) (*models.Listing, error) {
	if !admin.IsAdmin() {
		return nil, apperr.ErrForbidden
	}
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, apperr.Validation("notes", "a rejection needs reviewer notes")
	}
	l, err := s.review(ctx, listingID, listingRepo.StatusChange{
		From:       models.StatusUnderReview,
		To:         models.StatusRejected,
		AdminNotes: notes,
		At:         s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("listing rejected", zap.String("listingId", l.ID), zap.String("adminId", admin.UserID))
	s.notify(ctx, notification.ListingRejectedEmail(l.OwnerEmail, l))
	return l, nil
}

func (s *DefaultVerificationService) review(ctx context.Context, listingID string, change listingRepo.StatusChange) (*models.Listing, error) {
	if !CanTransition(change.From, change.To) {
		return nil, apperr.Validation("verification_status", "illegal transition")
	}
	l, err := s.Listings.TransitionStatus(ctx, listingID, change)
	if errors.Is(err, apperr.ErrInvalidState) {
		return nil, apperr.Validation("verification_status", "listing is no longer under review")
	}
	return l, err
}

// SetListingActive lets the owner pause or resume a verified listing.
func (s *DefaultVerificationService) SetListingActive(ctx context.Context, owner utils.Session, listingID string, active bool) (*models.Listing, error) {
	l, err := s.Listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l.OwnerID != owner.UserID && !owner.IsAdmin() {
		return nil, fmt.Errorf("listing %s: %w", listingID, apperr.ErrForbidden)
	}
	updated, err := s.Listings.SetActive(ctx, listingID, active, s.now())
	if errors.Is(err, apperr.ErrInvalidState) {
		return nil, apperr.Validation("is_active", "only verified listings can be activated")
	}
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// ResubmitListing starts a new review cycle from a rejected listing's content.
func (s *DefaultVerificationService) ResubmitListing(ctx context.Context, owner utils.Session, rejectedID string) (*models.Listing, error) {
	old, err := s.Listings.GetByID(ctx, rejectedID)
	if err != nil {
		return nil, err
	}
	if old.OwnerID != owner.UserID {
		return nil, fmt.Errorf("listing %s: %w", rejectedID, apperr.ErrForbidden)
	}
	if old.VerificationStatus != models.StatusRejected {
		return nil, apperr.Validation("verification_status", "only rejected listings can be resubmitted")
	}

	now := s.now()
	l := *old
	l.ID = uuid.New().String()
	l.OwnerEmail = firstNonEmpty(owner.Email, old.OwnerEmail)
	l.VerificationStatus = models.StatusPending
	l.AdminVerified = false
	l.AdminVerifiedAt = nil
	l.AdminNotes = ""
	l.IsActive = false
	l.ResubmittedFrom = old.ID
	l.CreatedAt = now
	l.UpdatedAt = now
	return s.create(ctx, &l)
}

func (s *DefaultVerificationService) ListByStatus(ctx context.Context, admin utils.Session, status models.VerificationStatus) ([]models.Listing, error) {
	if !admin.IsAdmin() {
		return nil, apperr.ErrForbidden
	}
	if _, known := transitions[status]; !known {
		return nil, apperr.Validation("status", "unknown verification status")
	}
	return s.Listings.ListByStatus(ctx, status)
}

// GetListing returns a listing to its owner or an admin, and to anyone else
// only while it is publicly visible.
func (s *DefaultVerificationService) GetListing(ctx context.Context, viewer *utils.Session, listingID string) (*models.Listing, error) {
	l, err := s.Listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l.PubliclyVisible() || (viewer != nil && (viewer.UserID == l.OwnerID || viewer.IsAdmin())) {
		return l, nil
	}
	return nil, fmt.Errorf("listing %s: %w", listingID, apperr.ErrNotFound)
}

// ListPublic returns verified, admin-approved, active listings only.
func (s *DefaultVerificationService) ListPublic(ctx context.Context, f listingRepo.PublicFilter) ([]models.Listing, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, apperr.Validation("type", "must be venue or service_provider")
	}
	if f.Limit <= 0 || f.Limit > maxPublicListings {
		f.Limit = maxPublicListings
	}
	if s.Cache != nil {
		if cached, ok := s.Cache.Get(ctx, f); ok {
			return cached, nil
		}
	}
	listings, err := s.Listings.ListPublic(ctx, f)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		s.Cache.Set(ctx, f, listings)
	}
	return listings, nil
}

func (s *DefaultVerificationService) ListMine(ctx context.Context, owner utils.Session) ([]models.Listing, error) {
	return s.Listings.ListByOwner(ctx, owner.UserID)
}

// notify sends an owner email without failing the caller.
func (s *DefaultVerificationService) notify(ctx context.Context, e notification.Email) {
	if err := s.Mailer.Send(ctx, e); err != nil {
		s.Logger.Warn("owner notification failed", zap.String("to", e.To), zap.String("subject", e.Subject), zap.Error(err))
	}
}

func (s *DefaultVerificationService) invalidate(ctx context.Context) {
	if s.Cache != nil {
		s.Cache.Invalidate(ctx)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
