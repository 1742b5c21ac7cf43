package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	listingRepo "venuebook/database/repository/listing"
	"venuebook/models"

	"github.com/go-redis/redis/v8"
)

// PublicListingCache holds recent public listing pages.
type PublicListingCache interface {
	Get(ctx context.Context, f listingRepo.PublicFilter) ([]models.Listing, bool)
	Set(ctx context.Context, f listingRepo.PublicFilter, listings []models.Listing)
	// Invalidate drops every cached page after visibility changed.
	Invalidate(ctx context.Context)
}

const publicCachePrefix = "listings:public:"

// RedisListingCache caches public listings in Redis for a short TTL.
type RedisListingCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisListingCache creates a RedisListingCache.
func NewRedisListingCache(rdb *redis.Client, ttl time.Duration) *RedisListingCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisListingCache{rdb: rdb, ttl: ttl}
}

func cacheKey(f listingRepo.PublicFilter) string {
	return fmt.Sprintf("%s%s:%d", publicCachePrefix, f.Type, f.Limit)
}

func (c *RedisListingCache) Get(ctx context.Context, f listingRepo.PublicFilter) ([]models.Listing, bool) {
	raw, err := c.rdb.Get(ctx, cacheKey(f)).Bytes()
	if err != nil {
		return nil, false
	}
	var out []cachedListing
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	listings := make([]models.Listing, len(out))
	for i := range out {
		listings[i] = models.Listing(out[i])
	}
	return listings, true
}

func (c *RedisListingCache) Set(ctx context.Context, f listingRepo.PublicFilter, listings []models.Listing) {
	out := make([]cachedListing, len(listings))
	for i := range listings {
		out[i] = cachedListing(listings[i])
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, cacheKey(f), raw, c.ttl)
}

func (c *RedisListingCache) Invalidate(ctx context.Context) {
	iter := c.rdb.Scan(ctx, 0, publicCachePrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil && !errors.Is(err, redis.Nil) {
		return
	}
	if len(keys) > 0 {
		c.rdb.Del(ctx, keys...)
	}
}

// cachedListing mirrors models.Listing with the owner email kept, since the
// API encoding hides it.
type cachedListing struct {
	ID                 string                    `json:"id"`
	OwnerID            string                    `json:"owner_id"`
	OwnerEmail         string                    `json:"owner_email"`
	Type               models.ListingType        `json:"type"`
	Name               string                    `json:"name"`
	Description        string                    `json:"description"`
	Price              models.Money              `json:"price"`
	Venue              *models.VenueDetails      `json:"venue"`
	Service            *models.ServiceDetails    `json:"service"`
	SocialLinks        models.SocialLinks        `json:"social_links"`
	VerificationStatus models.VerificationStatus `json:"verification_status"`
	AdminVerified      bool                      `json:"admin_verified"`
	AdminVerifiedAt    *time.Time                `json:"admin_verified_at"`
	AdminNotes         string                    `json:"admin_notes"`
	IsActive           bool                      `json:"is_active"`
	ResubmittedFrom    string                    `json:"resubmitted_from"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}
