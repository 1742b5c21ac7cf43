package listingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"venuebook/database"
	"venuebook/models"
	"venuebook/utils/apperr"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoListingRepo implements ListingRepository using MongoDB.
type MongoListingRepo struct {
	coll *mongo.Collection
}

// NewMongoListingRepo creates a ListingRepository backed by db.
func NewMongoListingRepo(db *mongo.Database, logger *zap.Logger) ListingRepository {
	repo := &MongoListingRepo{coll: db.Collection(database.ListingsCollection)}
	if err := repo.ensureIndexes(); err != nil {
		logger.Warn("failed to create listing indexes", zap.Error(err))
	}
	return repo
}

func (r *MongoListingRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		{Keys: bson.D{
			{Key: "verification_status", Value: 1},
			{Key: "admin_verified", Value: 1},
			{Key: "is_active", Value: 1},
			{Key: "type", Value: 1},
		}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Create inserts a new listing document.
func (r *MongoListingRepo) Create(ctx context.Context, l *models.Listing) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, l); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("listing %s: %w", l.ID, apperr.ErrConflict)
		}
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

// GetByID retrieves a listing by its unique ID.
func (r *MongoListingRepo) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var l models.Listing
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&l); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("listing %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch listing %s: %w", id, err)
	}
	return &l, nil
}

// TransitionStatus applies change only if the listing is still in change.From.
func (r *MongoListingRepo) TransitionStatus(ctx context.Context, id string, change StatusChange) (*models.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{
		"verification_status": change.To,
		"admin_verified":      change.AdminVerified,
		"updated_at":          change.At,
	}
	if change.AdminVerifiedAt != nil {
		set["admin_verified_at"] = change.AdminVerifiedAt
	}
	if change.AdminNotes != "" {
		set["admin_notes"] = change.AdminNotes
	}

	filter := bson.M{"id": id, "verification_status": change.From}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var l models.Listing
	err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&l)
	if err == nil {
		return &l, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update listing %s: %w", id, err)
	}
	return nil, r.missOrStale(ctx, id)
}

// SetActive toggles is_active on a verified listing.
func (r *MongoListingRepo) SetActive(ctx context.Context, id string, active bool, at time.Time) (*models.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": id, "verification_status": models.StatusVerified, "admin_verified": true}
	update := bson.M{"$set": bson.M{"is_active": active, "updated_at": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var l models.Listing
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&l)
	if err == nil {
		return &l, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update listing %s: %w", id, err)
	}
	return nil, r.missOrStale(ctx, id)
}

// missOrStale tells a missing listing apart from one whose state did not match.
func (r *MongoListingRepo) missOrStale(ctx context.Context, id string) error {
	n, err := r.coll.CountDocuments(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to look up listing %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("listing %s: %w", id, apperr.ErrNotFound)
	}
	return fmt.Errorf("listing %s: %w", id, apperr.ErrInvalidState)
}

// ListPublic returns listings visible to everyone, newest first.
func (r *MongoListingRepo) ListPublic(ctx context.Context, f PublicFilter) ([]models.Listing, error) {
	filter := bson.M{
		"verification_status": models.StatusVerified,
		"admin_verified":      true,
		"is_active":           true,
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	return r.find(ctx, filter, opts)
}

// ListByStatus returns listings in a verification status, oldest first, for the admin queue.
func (r *MongoListingRepo) ListByStatus(ctx context.Context, status models.VerificationStatus) ([]models.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return r.find(ctx, bson.M{"verification_status": status}, opts)
}

// ListByOwner returns every listing of one owner.
func (r *MongoListingRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"owner_id": ownerID}, opts)
}

func (r *MongoListingRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve listings: %w", err)
	}
	defer cursor.Close(ctx)

	listings := []models.Listing{}
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}
	return listings, nil
}
