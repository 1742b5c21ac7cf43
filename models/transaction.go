package models

import "time"

// TransactionKind names a money movement recorded in the ledger.
type TransactionKind string

const (
	TxPayment         TransactionKind = "payment"
	TxRefund          TransactionKind = "refund"
	TxPayout          TransactionKind = "payout"
	TxPayoutCancelled TransactionKind = "payout_cancelled"
)

// Transaction is an append-only ledger row.
type Transaction struct {
	ID        string          `bson:"id" json:"id"`
	BookingID string          `bson:"booking_id" json:"booking_id"`
	Kind      TransactionKind `bson:"kind" json:"kind"`
	Amount    Money           `bson:"amount" json:"amount"`
	Gateway   string          `bson:"gateway,omitempty" json:"gateway,omitempty"`
	Reference string          `bson:"reference,omitempty" json:"reference,omitempty"`
	CreatedAt time.Time       `bson:"created_at" json:"created_at"`
}
