package models

import "time"

// VerificationToken is a single-use email confirmation for a listing. Only the
// hash is stored; the raw token lives in the email link.
type VerificationToken struct {
	TokenHash  string      `bson:"token_hash" json:"-"`
	EntityType ListingType `bson:"entity_type" json:"entity_type"`
	EntityID   string      `bson:"entity_id" json:"entity_id"`
	UserID     string      `bson:"user_id" json:"user_id"`
	ExpiresAt  time.Time   `bson:"expires_at" json:"expires_at"`
	ConsumedAt *time.Time  `bson:"consumed_at" json:"consumed_at,omitempty"`
	CreatedAt  time.Time   `bson:"created_at" json:"created_at"`
}
