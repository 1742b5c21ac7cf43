package models

import "time"

// PaymentStatus tracks money coming in from the client.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

// PayoutStatus tracks money going out to the listing owner.
type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutProcessed PayoutStatus = "processed"
	PayoutCancelled PayoutStatus = "cancelled"
)

// BookingTerms are the owner's terms agreed at booking time.
type BookingTerms struct {
	DepositPercent     float64  `bson:"deposit_percent,omitempty" json:"deposit_percent,omitempty"`
	CancellationPolicy string   `bson:"cancellation_policy,omitempty" json:"cancellation_policy,omitempty"`
	HouseRules         []string `bson:"house_rules,omitempty" json:"house_rules,omitempty"`
	MaxGuests          int      `bson:"max_guests,omitempty" json:"max_guests,omitempty"`
}

// Booking is a client's reservation of a listing and the settlement of its payment.
type Booking struct {
	ID          string      `bson:"id" json:"id"`
	ListingID   string      `bson:"listing_id" json:"listing_id"`
	ListingType ListingType `bson:"listing_type" json:"listing_type"`
	ClientID    string      `bson:"client_id" json:"client_id"`
	ClientEmail string      `bson:"client_email,omitempty" json:"-"`
	OwnerID     string      `bson:"owner_id" json:"owner_id"`
	EventDate   time.Time   `bson:"event_date" json:"event_date"`

	GrossAmount Money `bson:"gross_amount" json:"gross_amount"`
	// Rates are the percentages in force when the payment settled.
	CommissionRate       float64 `bson:"commission_rate" json:"commission_rate"`
	TransactionFeeRate   float64 `bson:"transaction_fee_rate" json:"transaction_fee_rate"`
	CommissionAmount     Money   `bson:"commission_amount" json:"commission_amount"`
	TransactionFeeAmount Money   `bson:"transaction_fee_amount" json:"transaction_fee_amount"`
	SellerAmount         Money   `bson:"seller_amount" json:"seller_amount"`
	RefundAmount         Money   `bson:"refund_amount,omitempty" json:"refund_amount,omitempty"`

	PaymentStatus        PaymentStatus `bson:"payment_status" json:"payment_status"`
	PayoutStatus         PayoutStatus  `bson:"payout_status" json:"payout_status"`
	PaymentGateway       string        `bson:"payment_gateway,omitempty" json:"payment_gateway,omitempty"`
	PaymentReference     string        `bson:"payment_reference,omitempty" json:"payment_reference,omitempty"`
	GatewayTransactionID string        `bson:"gateway_transaction_id,omitempty" json:"-"`

	PaidAt         *time.Time `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
	RefundDeadline *time.Time `bson:"refund_deadline,omitempty" json:"refund_deadline,omitempty"`
	PayoutDate     *time.Time `bson:"payout_date,omitempty" json:"payout_date,omitempty"`
	CancelledAt    *time.Time `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`

	Terms     BookingTerms `bson:"terms" json:"terms"`
	CreatedAt time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time    `bson:"updated_at" json:"updated_at"`
}

// IsParty reports whether userID is the booking's client or the listing owner.
func (b *Booking) IsParty(userID string) bool {
	return userID != "" && (b.ClientID == userID || b.OwnerID == userID)
}
