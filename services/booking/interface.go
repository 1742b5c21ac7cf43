// Package booking runs a booking from reservation through payment to the
// owner's payout or the client's refund.
package booking

import (
	"context"
	"time"

	bookingRepo "venuebook/database/repository/booking"
	listingRepo "venuebook/database/repository/listing"
	transactionRepo "venuebook/database/repository/transaction"
	"venuebook/models"
	"venuebook/services/notification"
	"venuebook/services/payment"
	"venuebook/utils"

	"go.uber.org/zap"
)

// BookingService is the booking workflow.
type BookingService interface {
	CreateBooking(ctx context.Context, client utils.Session, req CreateRequest) (*models.Booking, error)
	GetBooking(ctx context.Context, viewer utils.Session, bookingID string) (*models.Booking, error)
	ListMine(ctx context.Context, client utils.Session) ([]models.Booking, error)
	Ledger(ctx context.Context, viewer utils.Session, bookingID string) ([]models.Transaction, error)

	InitiatePayment(ctx context.Context, client utils.Session, req PaymentRequest) (*PaymentStarted, error)
	ConfirmPayment(ctx context.Context, c Confirmation) (*models.Booking, error)
	HandleGatewayCallback(ctx context.Context, gateway string, cb payment.Callback) (*models.Booking, error)

	CancelBooking(ctx context.Context, actor utils.Session, bookingID string) (*models.Booking, error)
	MarkPayoutProcessed(ctx context.Context, bookingID string) (*models.Booking, error)
	ProcessDuePayouts(ctx context.Context) (int, error)
}

// SettingsSource supplies the platform settings in force.
type SettingsSource interface {
	Current() models.PlatformSettings
}

// DefaultBookingService is the production implementation.
type DefaultBookingService struct {
	Bookings bookingRepo.BookingRepository
	Listings listingRepo.ListingRepository
	Ledgers  transactionRepo.TransactionRepository
	Settings SettingsSource
	Gateways *payment.Registry
	Mailer   notification.Mailer
	// CallbackURL is where hosted checkouts send the client back to.
	CallbackURL string
	Logger      *zap.Logger
	Now         func() time.Time
}

// CreateRequest is a client's reservation.
type CreateRequest struct {
	ListingID string              `json:"listing_id" binding:"required"`
	EventDate time.Time           `json:"event_date" binding:"required"`
	Terms     models.BookingTerms `json:"terms"`
}

// PaymentRequest starts a payment through one gateway.
type PaymentRequest struct {
	BookingID string `json:"-"`
	Gateway   string `json:"gateway" binding:"required"`
	Phone     string `json:"phone"`
}

// PaymentStarted tells the client how to finish paying.
type PaymentStarted struct {
	Booking      *models.Booking `json:"booking"`
	Reference    string          `json:"reference"`
	RedirectURL  string          `json:"redirect_url,omitempty"`
	ClientSecret string          `json:"client_secret,omitempty"`
}

// Confirmation is a verified gateway outcome for a payment reference.
type Confirmation struct {
	Reference            string
	GatewayTransactionID string
	AmountPaid           models.Money
	Success              bool
	// Gateway names the gateway that reported the outcome, when known.
	Gateway string
}

func (s *DefaultBookingService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
