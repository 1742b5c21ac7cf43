package booking

import (
	"context"
	"fmt"

	"venuebook/models"
	"venuebook/utils"
	"venuebook/utils/apperr"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateBooking reserves a publicly visible listing at its current price.
func (s *DefaultBookingService) CreateBooking(ctx context.Context, client utils.Session, req CreateRequest) (*models.Booking, error) {
	if client.Role != utils.RoleClient {
		return nil, fmt.Errorf("only clients can book: %w", apperr.ErrForbidden)
	}
	now := s.now()
	if !req.EventDate.After(now) {
		return nil, apperr.Validation("event_date", "must be in the future")
	}
	if req.Terms.DepositPercent < 0 || req.Terms.DepositPercent > 100 {
		return nil, apperr.Validation("terms.deposit_percent", "must be between 0 and 100")
	}

	l, err := s.Listings.GetByID(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}
	if !l.PubliclyVisible() {
		return nil, apperr.Validation("listing_id", "listing is not available for booking")
	}
	if l.OwnerID == client.UserID {
		return nil, apperr.Validation("listing_id", "owners cannot book their own listing")
	}
	if l.Price <= 0 {
		return nil, apperr.Validation("price", "listing has no price")
	}

	b := &models.Booking{
		ID:            uuid.New().String(),
		ListingID:     l.ID,
		ListingType:   l.Type,
		ClientID:      client.UserID,
		ClientEmail:   client.Email,
		OwnerID:       l.OwnerID,
		EventDate:     req.EventDate.UTC(),
		GrossAmount:   l.Price,
		PaymentStatus: models.PaymentPending,
		PayoutStatus:  models.PayoutPending,
		Terms:         req.Terms,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Bookings.Create(ctx, b); err != nil {
		return nil, err
	}
	s.Logger.Info("booking created", zap.String("bookingId", b.ID), zap.String("listingId", l.ID))
	return b, nil
}

// GetBooking returns a booking to its parties and admins.
func (s *DefaultBookingService) GetBooking(ctx context.Context, viewer utils.Session, bookingID string) (*models.Booking, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsParty(viewer.UserID) && !viewer.IsAdmin() {
		return nil, fmt.Errorf("booking %s: %w", bookingID, apperr.ErrForbidden)
	}
	return b, nil
}

func (s *DefaultBookingService) ListMine(ctx context.Context, client utils.Session) ([]models.Booking, error) {
	return s.Bookings.ListByClient(ctx, client.UserID)
}

// Ledger lists the money movements of a booking.
func (s *DefaultBookingService) Ledger(ctx context.Context, viewer utils.Session, bookingID string) ([]models.Transaction, error) {
	if _, err := s.GetBooking(ctx, viewer, bookingID); err != nil {
		return nil, err
	}
	return s.Ledgers.ListByBooking(ctx, bookingID)
}

// record appends a ledger row. The booking update it follows has already
// committed, so a failure here is logged rather than returned.
func (s *DefaultBookingService) record(ctx context.Context, b *models.Booking, kind models.TransactionKind, amount models.Money, reference string) {
	tx := &models.Transaction{
		ID:        uuid.New().String(),
		BookingID: b.ID,
		Kind:      kind,
		Amount:    amount,
		Gateway:   b.PaymentGateway,
		Reference: reference,
		CreatedAt: s.now(),
	}
	if err := s.Ledgers.Append(ctx, tx); err != nil {
		s.Logger.Error("ledger append failed",
			zap.String("bookingId", b.ID), zap.String("kind", string(kind)), zap.Error(err))
	}
}
