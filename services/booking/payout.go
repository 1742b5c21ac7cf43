package booking

import (
	"context"
	"errors"
	"fmt"

	bookingRepo "venuebook/database/repository/booking"
	"venuebook/models"
	"venuebook/services/notification"
	"venuebook/services/payment"
	"venuebook/services/settlement"
	"venuebook/utils"
	"venuebook/utils/apperr"

	"go.uber.org/zap"
)

const payoutBatchSize = 100

// CancelBooking cancels a booking. An unpaid booking is simply closed. A
// paid one is refunded minus the transaction fee, but only while the refund
// window is open.
func (s *DefaultBookingService) CancelBooking(ctx context.Context, actor utils.Session, bookingID string) (*models.Booking, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsParty(actor.UserID) && !actor.IsAdmin() {
		return nil, fmt.Errorf("booking %s: %w", bookingID, apperr.ErrForbidden)
	}

	switch b.PayoutStatus {
	case models.PayoutProcessed:
		return nil, apperr.PayoutViolation("the owner has already been paid out")
	case models.PayoutCancelled:
		if b.PaymentStatus == models.PaymentPaid {
			// Claimed by a cancellation whose refund has not been recorded.
			return nil, fmt.Errorf("booking %s refund in progress: %w", b.ID, apperr.ErrConflict)
		}
		return b, nil
	}
	now := s.now()

	if b.PaymentStatus != models.PaymentPaid {
		expect := bookingRepo.Expect{PaymentStatus: b.PaymentStatus, PayoutStatus: b.PayoutStatus}
		if b.PaymentStatus == models.PaymentPending {
			b.PaymentStatus = models.PaymentFailed
		}
		b.PayoutStatus = models.PayoutCancelled
		b.CancelledAt = &now
		b.UpdatedAt = now
		if err := s.commit(ctx, b, expect); err != nil {
			return s.settled(ctx, b.ID, err)
		}
		s.Logger.Info("unpaid booking cancelled", zap.String("bookingId", b.ID))
		return b, nil
	}

	if b.RefundDeadline == nil || !now.Before(*b.RefundDeadline) {
		return nil, apperr.PayoutViolation("the refund window has closed")
	}
	feeRate, err := settlement.RateFromPercent(b.TransactionFeeRate)
	if err != nil {
		return nil, err
	}
	refund, err := settlement.ComputeRefund(b.GrossAmount, feeRate)
	if err != nil {
		return nil, err
	}
	gw, err := s.Gateways.Get(b.PaymentGateway)
	if err != nil {
		return nil, apperr.External(b.PaymentGateway, err)
	}

	// Cancel the payout before any money moves so a concurrent payout
	// cannot also succeed.
	b.PayoutStatus = models.PayoutCancelled
	b.CancelledAt = &now
	b.UpdatedAt = now
	if err := s.commit(ctx, b, bookingRepo.Expect{PaymentStatus: models.PaymentPaid, PayoutStatus: models.PayoutPending}); err != nil {
		if !errors.Is(err, apperr.ErrInvalidState) {
			return nil, err
		}
		cur, getErr := s.Bookings.GetByID(ctx, bookingID)
		if getErr != nil {
			return nil, getErr
		}
		if cur.PayoutStatus == models.PayoutProcessed {
			return nil, apperr.PayoutViolation("the owner has already been paid out")
		}
		return nil, fmt.Errorf("booking %s: %w", bookingID, apperr.ErrConflict)
	}
	claimed := bookingRepo.Expect{PaymentStatus: models.PaymentPaid, PayoutStatus: models.PayoutCancelled}

	res, err := gw.Refund(ctx, payment.RefundRequest{
		Reference:            b.PaymentReference,
		GatewayTransactionID: b.GatewayTransactionID,
		Amount:               refund,
		Reason:               "booking cancelled",
	})
	if err != nil {
		s.Logger.Error("refund failed", zap.String("bookingId", b.ID), zap.Error(err))
		b.PayoutStatus = models.PayoutPending
		b.CancelledAt = nil
		b.UpdatedAt = s.now()
		if restoreErr := s.commit(ctx, b, claimed); restoreErr != nil {
			s.Logger.Error("could not restore payout after failed refund",
				zap.String("bookingId", b.ID), zap.Error(restoreErr))
		}
		return nil, err
	}

	b.RefundAmount = refund
	b.PaymentStatus = models.PaymentRefunded
	b.UpdatedAt = s.now()
	if err := s.commit(ctx, b, claimed); err != nil {
		s.Logger.Error("refund issued but booking update failed",
			zap.String("bookingId", b.ID), zap.String("refundReference", res.RefundReference), zap.Error(err))
		s.record(ctx, b, models.TxRefund, refund, res.RefundReference)
		return nil, err
	}

	s.record(ctx, b, models.TxRefund, refund, res.RefundReference)
	s.record(ctx, b, models.TxPayoutCancelled, b.SellerAmount, b.PaymentReference)
	if b.ClientEmail != "" {
		if err := s.Mailer.Send(ctx, notification.RefundIssuedEmail(b.ClientEmail, b)); err != nil {
			s.Logger.Warn("refund email failed", zap.String("bookingId", b.ID), zap.Error(err))
		}
	}
	s.Logger.Info("booking refunded", zap.String("bookingId", b.ID), zap.Stringer("refund", refund))
	return b, nil
}

// MarkPayoutProcessed releases the seller amount once the refund window has
// closed. Processing an already processed payout is a no-op.
func (s *DefaultBookingService) MarkPayoutProcessed(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := settlement.CheckPayout(b, now); err != nil {
		return nil, err
	}
	if b.PayoutStatus == models.PayoutProcessed {
		return b, nil
	}

	b.PayoutStatus = models.PayoutProcessed
	b.PayoutDate = &now
	b.UpdatedAt = now
	if err := s.commit(ctx, b, bookingRepo.Expect{PaymentStatus: models.PaymentPaid, PayoutStatus: models.PayoutPending}); err != nil {
		if !errors.Is(err, apperr.ErrInvalidState) {
			return nil, err
		}
		cur, getErr := s.Bookings.GetByID(ctx, bookingID)
		if getErr != nil {
			return nil, getErr
		}
		if cur.PayoutStatus == models.PayoutProcessed {
			return cur, nil
		}
		if err := settlement.CheckPayout(cur, now); err != nil {
			return nil, err
		}
		return nil, err
	}

	s.record(ctx, b, models.TxPayout, b.SellerAmount, b.PaymentReference)
	s.Logger.Info("payout processed", zap.String("bookingId", b.ID), zap.Stringer("seller", b.SellerAmount))
	return b, nil
}

// ProcessDuePayouts pays out every booking whose refund window has closed.
// It returns how many payouts were processed.
func (s *DefaultBookingService) ProcessDuePayouts(ctx context.Context) (int, error) {
	due, err := s.Bookings.ListPayoutEligible(ctx, s.now(), payoutBatchSize)
	if err != nil {
		return 0, err
	}
	processed := 0
	for _, b := range due {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if _, err := s.MarkPayoutProcessed(ctx, b.ID); err != nil {
			s.Logger.Warn("payout sweep skipped booking", zap.String("bookingId", b.ID), zap.Error(err))
			continue
		}
		processed++
	}
	if processed > 0 {
		s.Logger.Info("payout sweep finished", zap.Int("processed", processed), zap.Int("due", len(due)))
	}
	return processed, nil
}
