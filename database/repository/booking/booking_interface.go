package bookingRepo

import (
	"context"
	"time"

	"venuebook/models"
)

// Expect is the status pair a booking must still have for UpdateIf to apply.
type Expect struct {
	PaymentStatus models.PaymentStatus
	PayoutStatus  models.PayoutStatus
}

// BookingRepository defines methods for booking data access.
type BookingRepository interface {
	Create(ctx context.Context, b *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	GetByPaymentReference(ctx context.Context, reference string) (*models.Booking, error)
	// UpdateIf replaces b when the stored statuses match expect, returning
	// apperr.ErrInvalidState otherwise.
	UpdateIf(ctx context.Context, b *models.Booking, expect Expect) error
	// ListPayoutEligible returns paid, pending-payout bookings whose refund
	// deadline has passed.
	ListPayoutEligible(ctx context.Context, now time.Time, limit int) ([]models.Booking, error)
	ListByClient(ctx context.Context, clientID string) ([]models.Booking, error)
}
