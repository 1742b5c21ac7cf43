package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	bookingRepo "venuebook/database/repository/booking"
	"venuebook/models"
	"venuebook/services/payment"
	"venuebook/services/settlement"
	"venuebook/utils"
	"venuebook/utils/apperr"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var pendingBoth = bookingRepo.Expect{PaymentStatus: models.PaymentPending, PayoutStatus: models.PayoutPending}

func newPaymentReference() string {
	return "VB-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:16])
}

// InitiatePayment starts a charge for a pending booking. The reference is
// stored before the gateway is called so that an early callback finds it.
// A booking keeps one reference for life, so a charge started on a gateway
// the client later switched away from still settles it.
func (s *DefaultBookingService) InitiatePayment(ctx context.Context, client utils.Session, req PaymentRequest) (*PaymentStarted, error) {
	gw, err := s.Gateways.Get(req.Gateway)
	if err != nil {
		return nil, apperr.Validation("gateway", err.Error())
	}
	b, err := s.Bookings.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if b.ClientID != client.UserID {
		return nil, fmt.Errorf("booking %s: %w", b.ID, apperr.ErrForbidden)
	}
	if b.PaymentStatus != models.PaymentPending || b.PayoutStatus != models.PayoutPending {
		return nil, apperr.Validation("payment_status", "booking is not awaiting payment")
	}

	if b.PaymentReference == "" || b.PaymentGateway != gw.Name() {
		if b.PaymentReference == "" {
			b.PaymentReference = newPaymentReference()
		}
		b.PaymentGateway = gw.Name()
		b.GatewayTransactionID = ""
		b.UpdatedAt = s.now()
		if err := s.Bookings.UpdateIf(ctx, b, pendingBoth); err != nil {
			return nil, err
		}
	}

	res, err := gw.Charge(ctx, payment.ChargeRequest{
		BookingID:   b.ID,
		Reference:   b.PaymentReference,
		Amount:      b.GrossAmount,
		Currency:    "KES",
		Phone:       req.Phone,
		Email:       client.Email,
		Description: "Booking " + b.ID,
		CallbackURL: s.CallbackURL,
	})
	if err != nil {
		s.Logger.Error("charge failed", zap.String("bookingId", b.ID), zap.String("gateway", gw.Name()), zap.Error(err))
		return nil, err
	}

	if res.GatewayTransactionID != "" && res.GatewayTransactionID != b.GatewayTransactionID {
		b.GatewayTransactionID = res.GatewayTransactionID
		b.UpdatedAt = s.now()
		if err := s.Bookings.UpdateIf(ctx, b, pendingBoth); err != nil {
			// The callback may already have settled the booking.
			s.Logger.Warn("could not store gateway transaction id", zap.String("bookingId", b.ID), zap.Error(err))
		}
	}
	s.Logger.Info("payment initiated", zap.String("bookingId", b.ID), zap.String("reference", b.PaymentReference))
	return &PaymentStarted{
		Booking:      b,
		Reference:    b.PaymentReference,
		RedirectURL:  res.RedirectURL,
		ClientSecret: res.ClientSecret,
	}, nil
}

// HandleGatewayCallback authenticates a gateway notification and applies its
// outcome. Notifications without an outcome return a nil booking.
func (s *DefaultBookingService) HandleGatewayCallback(ctx context.Context, gateway string, cb payment.Callback) (*models.Booking, error) {
	gw, err := s.Gateways.Get(gateway)
	if err != nil {
		return nil, fmt.Errorf("gateway %s: %w", gateway, apperr.ErrNotFound)
	}
	ev, err := gw.ParseCallback(ctx, cb)
	if err != nil {
		return nil, err
	}
	if !ev.Final {
		return nil, nil
	}
	return s.ConfirmPayment(ctx, Confirmation{
		Reference:            ev.Reference,
		GatewayTransactionID: ev.GatewayTransactionID,
		AmountPaid:           ev.Amount,
		Success:              ev.Success,
		Gateway:              gw.Name(),
	})
}

// ConfirmPayment settles a booking once its payment is confirmed. Repeated
// confirmations of a settled booking change nothing.
func (s *DefaultBookingService) ConfirmPayment(ctx context.Context, c Confirmation) (*models.Booking, error) {
	if c.Reference == "" {
		return nil, apperr.Validation("reference", "required")
	}
	b, err := s.Bookings.GetByPaymentReference(ctx, c.Reference)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus != models.PaymentPending {
		s.Logger.Info("payment confirmation ignored",
			zap.String("bookingId", b.ID), zap.String("paymentStatus", string(b.PaymentStatus)))
		return b, nil
	}
	if c.Gateway != "" && c.Gateway != b.PaymentGateway {
		// Refunds go back through whichever gateway took the money.
		b.PaymentGateway = c.Gateway
		b.GatewayTransactionID = ""
	}
	if c.GatewayTransactionID != "" {
		b.GatewayTransactionID = c.GatewayTransactionID
	}
	now := s.now()

	if !c.Success {
		b.PaymentStatus = models.PaymentFailed
		b.UpdatedAt = now
		if err := s.commit(ctx, b, pendingBoth); err != nil {
			return s.settled(ctx, b.ID, err)
		}
		s.Logger.Info("payment failed", zap.String("bookingId", b.ID))
		return b, nil
	}

	if c.AmountPaid != b.GrossAmount {
		return nil, apperr.Validation("amount", fmt.Sprintf("paid %s but booking costs %s", c.AmountPaid, b.GrossAmount))
	}

	cfg := s.Settings.Current()
	commissionRate, err := settlement.RateFromPercent(cfg.CommissionRate)
	if err != nil {
		return nil, err
	}
	feeRate, err := settlement.RateFromPercent(cfg.TransactionFeeRate)
	if err != nil {
		return nil, err
	}
	split, err := settlement.ComputeSettlement(b.GrossAmount, commissionRate, feeRate)
	if err != nil {
		return nil, err
	}
	deadline := settlement.RefundDeadline(now, cfg.RefundWindow(b.ListingType))

	b.CommissionRate = cfg.CommissionRate
	b.TransactionFeeRate = cfg.TransactionFeeRate
	b.CommissionAmount = split.Commission
	b.TransactionFeeAmount = split.Fee
	b.SellerAmount = split.Seller
	b.PaymentStatus = models.PaymentPaid
	b.PaidAt = &now
	b.RefundDeadline = &deadline
	b.UpdatedAt = now
	if err := s.commit(ctx, b, pendingBoth); err != nil {
		return s.settled(ctx, b.ID, err)
	}

	s.record(ctx, b, models.TxPayment, b.GrossAmount, c.Reference)
	s.Logger.Info("payment confirmed",
		zap.String("bookingId", b.ID),
		zap.Stringer("gross", b.GrossAmount),
		zap.Stringer("commission", b.CommissionAmount),
		zap.Stringer("fee", b.TransactionFeeAmount),
		zap.Stringer("seller", b.SellerAmount),
		zap.Time("refundDeadline", deadline),
	)
	return b, nil
}

func (s *DefaultBookingService) commit(ctx context.Context, b *models.Booking, expect bookingRepo.Expect) error {
	return s.Bookings.UpdateIf(ctx, b, expect)
}

// settled resolves a lost conditional update: when another request already
// moved the booking on, its current state is the answer.
func (s *DefaultBookingService) settled(ctx context.Context, bookingID string, err error) (*models.Booking, error) {
	if !errors.Is(err, apperr.ErrInvalidState) {
		return nil, err
	}
	return s.Bookings.GetByID(ctx, bookingID)
}
