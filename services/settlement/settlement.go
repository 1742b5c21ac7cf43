// Package settlement splits booking payments into commission, transaction fee
// and seller payout, and decides when a payout may be released.
//
// Everything here is pure: no I/O, no clock reads. Callers pass "now".
package settlement

import (
	"time"

	"venuebook/models"
	"venuebook/utils/apperr"

	"github.com/shopspring/decimal"
)

var (
	zero    = decimal.Zero
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Rate is a fraction in [0, 1] applied to an amount.
type Rate struct {
	d decimal.Decimal
}

// RateFromPercent converts a stored percentage (0-100) into a Rate.
func RateFromPercent(pct float64) (Rate, error) {
	d := decimal.NewFromFloat(pct)
	if d.LessThan(zero) || d.GreaterThan(hundred) {
		return Rate{}, apperr.Validation("rate", "percentage must be between 0 and 100")
	}
	return Rate{d: d.Div(hundred)}, nil
}

// MustPercent is RateFromPercent for constants known to be valid.
func MustPercent(pct float64) Rate {
	r, err := RateFromPercent(pct)
	if err != nil {
		panic(err)
	}
	return r
}

// RateFromFraction builds a Rate from a fraction such as 0.1. It is not
// range-checked; ComputeSettlement and ComputeRefund do that.
func RateFromFraction(f float64) Rate {
	return Rate{d: decimal.NewFromFloat(f)}
}

// Fraction returns the rate as a decimal fraction.
func (r Rate) Fraction() decimal.Decimal { return r.d }

// Percent returns the rate as a percentage for storage.
func (r Rate) Percent() float64 {
	return r.d.Mul(hundred).InexactFloat64()
}

func (r Rate) valid() bool {
	return !r.d.LessThan(zero) && !r.d.GreaterThan(one)
}

// Settlement is the split of one confirmed payment.
type Settlement struct {
	Gross          models.Money
	Commission     models.Money
	Fee            models.Money
	Seller         models.Money
	CommissionRate Rate
	FeeRate        Rate
}

// ComputeSettlement splits gross into commission, fee and seller amount.
// Commission and fee are rounded half-up to the cent; the seller amount is the
// remainder so the three always add up to gross exactly.
func ComputeSettlement(gross models.Money, commissionRate, feeRate Rate) (Settlement, error) {
	if gross <= 0 {
		return Settlement{}, apperr.Validation("gross_amount", "must be greater than zero")
	}
	if err := checkRates(commissionRate, feeRate); err != nil {
		return Settlement{}, err
	}

	commission := applyRate(gross, commissionRate)
	fee := applyRate(gross, feeRate)
	// Two half-up roundings on a tiny gross can overshoot by a cent.
	if commission+fee > gross {
		fee = gross - commission
	}

	return Settlement{
		Gross:          gross,
		Commission:     commission,
		Fee:            fee,
		Seller:         gross - commission - fee,
		CommissionRate: commissionRate,
		FeeRate:        feeRate,
	}, nil
}

// ComputeRefund returns what a client gets back on cancellation: everything
// except the transaction fee. Commission is returned in full.
func ComputeRefund(gross models.Money, feeRate Rate) (models.Money, error) {
	if gross <= 0 {
		return 0, apperr.Validation("gross_amount", "must be greater than zero")
	}
	if !feeRate.valid() {
		return 0, apperr.Validation("transaction_fee_rate", "must be between 0 and 1")
	}
	return gross - applyRate(gross, feeRate), nil
}

// RefundDeadline is the end of the cancellation window that opens at payment.
func RefundDeadline(paidAt time.Time, window time.Duration) time.Time {
	return paidAt.Add(window)
}

// PayoutEligible reports whether the owner can be paid out now.
func PayoutEligible(b *models.Booking, now time.Time) bool {
	return b.PayoutStatus == models.PayoutPending && CheckPayout(b, now) == nil
}

// CheckPayout explains why a payout cannot be processed, or returns nil. An
// already processed payout passes so that re-processing stays a no-op.
func CheckPayout(b *models.Booking, now time.Time) error {
	switch b.PayoutStatus {
	case models.PayoutProcessed:
		return nil
	case models.PayoutCancelled:
		return apperr.PayoutViolation("payout was cancelled")
	}
	if b.PaymentStatus != models.PaymentPaid {
		return apperr.PayoutViolation("payment status is " + string(b.PaymentStatus))
	}
	if b.RefundDeadline == nil {
		return apperr.PayoutViolation("refund deadline not set")
	}
	if now.Before(*b.RefundDeadline) {
		return apperr.PayoutViolation("refund window closes at " + b.RefundDeadline.UTC().Format(time.RFC3339))
	}
	return nil
}

// ValidateRates checks platform percentages before they are saved.
func ValidateRates(commissionPct, feePct float64) error {
	c, err := RateFromPercent(commissionPct)
	if err != nil {
		return apperr.Validation("commission_rate", "must be between 0 and 100")
	}
	f, err := RateFromPercent(feePct)
	if err != nil {
		return apperr.Validation("transaction_fee_rate", "must be between 0 and 100")
	}
	return checkRates(c, f)
}

func checkRates(commissionRate, feeRate Rate) error {
	if !commissionRate.valid() {
		return apperr.Validation("commission_rate", "must be between 0 and 1")
	}
	if !feeRate.valid() {
		return apperr.Validation("transaction_fee_rate", "must be between 0 and 1")
	}
	if commissionRate.d.Add(feeRate.d).GreaterThan(one) {
		return apperr.Validation("rates", "commission and transaction fee together exceed 100%")
	}
	return nil
}

// applyRate works in cents; Round(0) rounds half away from zero, which is
// half-up for the positive amounts used here.
func applyRate(amount models.Money, r Rate) models.Money {
	return models.Money(decimal.NewFromInt(int64(amount)).Mul(r.d).Round(0).IntPart())
}
