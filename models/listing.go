package models

import "time"

// ListingType distinguishes venues from service-provider profiles.
type ListingType string

const (
	ListingVenue           ListingType = "venue"
	ListingServiceProvider ListingType = "service_provider"
)

// Valid reports whether t is a known listing type.
func (t ListingType) Valid() bool {
	return t == ListingVenue || t == ListingServiceProvider
}

// VerificationStatus is the review state of a listing.
type VerificationStatus string

const (
	StatusPending     VerificationStatus = "pending"
	StatusUnderReview VerificationStatus = "under_review"
	StatusVerified    VerificationStatus = "verified"
	StatusRejected    VerificationStatus = "rejected"
)

// VenueDetails holds the fields only venues carry.
type VenueDetails struct {
	Capacity  int      `bson:"capacity" json:"capacity"`
	Location  string   `bson:"location" json:"location"`
	Amenities []string `bson:"amenities,omitempty" json:"amenities,omitempty"`
}

// ServiceDetails holds the fields only service providers carry.
type ServiceDetails struct {
	Category        string `bson:"category" json:"category"`
	ServiceArea     string `bson:"service_area,omitempty" json:"service_area,omitempty"`
	ExperienceYears int    `bson:"experience_years,omitempty" json:"experience_years,omitempty"`
}

// SocialLinks are the optional public profiles of a listing.
type SocialLinks struct {
	Website   string `bson:"website,omitempty" json:"website,omitempty"`
	Instagram string `bson:"instagram,omitempty" json:"instagram,omitempty"`
	Facebook  string `bson:"facebook,omitempty" json:"facebook,omitempty"`
	Twitter   string `bson:"twitter,omitempty" json:"twitter,omitempty"`
	TikTok    string `bson:"tiktok,omitempty" json:"tiktok,omitempty"`
}

// Listing is a venue or a service-provider profile offered for booking.
type Listing struct {
	ID          string          `bson:"id" json:"id"`
	OwnerID     string          `bson:"owner_id" json:"owner_id"`
	OwnerEmail  string          `bson:"owner_email" json:"-"`
	Type        ListingType     `bson:"type" json:"type"`
	Name        string          `bson:"name" json:"name"`
	Description string          `bson:"description,omitempty" json:"description,omitempty"`
	Price       Money           `bson:"price" json:"price"`
	Venue       *VenueDetails   `bson:"venue,omitempty" json:"venue,omitempty"`
	Service     *ServiceDetails `bson:"service,omitempty" json:"service,omitempty"`
	SocialLinks SocialLinks     `bson:"social_links" json:"social_links"`

	VerificationStatus VerificationStatus `bson:"verification_status" json:"verification_status"`
	AdminVerified      bool               `bson:"admin_verified" json:"admin_verified"`
	AdminVerifiedAt    *time.Time         `bson:"admin_verified_at,omitempty" json:"admin_verified_at,omitempty"`
	AdminNotes         string             `bson:"admin_notes,omitempty" json:"admin_notes,omitempty"`
	IsActive           bool               `bson:"is_active" json:"is_active"`
	ResubmittedFrom    string             `bson:"resubmitted_from,omitempty" json:"resubmitted_from,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// PubliclyVisible reports whether the listing may appear in public queries.
func (l *Listing) PubliclyVisible() bool {
	return l.VerificationStatus == StatusVerified && l.AdminVerified && l.IsActive
}
