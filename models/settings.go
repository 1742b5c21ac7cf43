package models

import "time"

// PlatformSettings are the commercial parameters admins can edit at runtime.
// Rates are percentages in [0, 100].
type PlatformSettings struct {
	CommissionRate      float64       `bson:"commission_rate" json:"commission_rate"`
	TransactionFeeRate  float64       `bson:"transaction_fee_rate" json:"transaction_fee_rate"`
	VenueRefundWindow   time.Duration `bson:"venue_refund_window" json:"venue_refund_window"`
	ServiceRefundWindow time.Duration `bson:"service_refund_window" json:"service_refund_window"`
	UpdatedAt           time.Time     `bson:"updated_at" json:"updated_at"`
	UpdatedBy           string        `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
}

// DefaultPlatformSettings returns the settings used before an admin edits them.
func DefaultPlatformSettings() PlatformSettings {
	return PlatformSettings{
		CommissionRate:      10,
		TransactionFeeRate:  3,
		VenueRefundWindow:   7 * 24 * time.Hour,
		ServiceRefundWindow: 48 * time.Hour,
	}
}

// RefundWindow returns the cancellation window for a listing type.
func (s PlatformSettings) RefundWindow(t ListingType) time.Duration {
	if t == ListingVenue {
		return s.VenueRefundWindow
	}
	return s.ServiceRefundWindow
}
