package bookingRepo

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

// MongoBookingRepo implements BookingRepository using MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo creates a BookingRepository backed by db.
func NewMongoBookingRepo(db *mongo.Database, logger *zap.Logger) BookingRepository {
	repo := &MongoBookingRepo{coll: db.Collection(database.BookingsCollection)}
	if err := repo.ensureIndexes(); err != nil {
		logger.Warn("failed to create booking indexes", zap.Error(err))
	}
	return repo
}

func (r *MongoBookingRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys: bson.D{{Key: "payment_reference", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"payment_reference": bson.M{"$type": "string"}}),
		},
		{Keys: bson.D{{Key: "client_id", Value: 1}}},
		{Keys: bson.D{
			{Key: "payment_status", Value: 1},
			{Key: "payout_status", Value: 1},
			{Key: "refund_deadline", Value: 1},
		}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Create inserts a new booking document.
func (r *MongoBookingRepo) Create(ctx context.Context, b *models.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, b); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("booking %s: %w", b.ID, apperr.ErrConflict)
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// GetByID retrieves a booking by its unique ID.
func (r *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	return r.findOne(ctx, bson.M{"id": id}, "booking "+id)
}

// GetByPaymentReference retrieves the booking a gateway callback refers to.
func (r *MongoBookingRepo) GetByPaymentReference(ctx context.Context, reference string) (*models.Booking, error) {
	return r.findOne(ctx, bson.M{"payment_reference": reference}, "payment reference "+reference)
}

func (r *MongoBookingRepo) findOne(ctx context.Context, filter bson.M, what string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var b models.Booking
	if err := r.coll.FindOne(ctx, filter).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", what, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", what, err)
	}
	return &b, nil
}

// UpdateIf replaces the booking document if its statuses still match expect.
func (r *MongoBookingRepo) UpdateIf(ctx context.Context, b *models.Booking, expect Expect) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"id":             b.ID,
		"payment_status": expect.PaymentStatus,
		"payout_status":  expect.PayoutStatus,
	}
	res, err := r.coll.ReplaceOne(ctx, filter, b)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("booking %s: %w", b.ID, apperr.ErrConflict)
		}
		return fmt.Errorf("failed to update booking %s: %w", b.ID, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"id": b.ID})
	if err != nil {
		return fmt.Errorf("failed to look up booking %s: %w", b.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("booking %s: %w", b.ID, apperr.ErrNotFound)
	}
	return fmt.Errorf("booking %s: %w", b.ID, apperr.ErrInvalidState)
}

// ListPayoutEligible returns bookings due for payout, oldest deadline first.
func (r *MongoBookingRepo) ListPayoutEligible(ctx context.Context, now time.Time, limit int) ([]models.Booking, error) {
	filter := bson.M{
		"payment_status":  models.PaymentPaid,
		"payout_status":   models.PayoutPending,
		"refund_deadline": bson.M{"$lte": now},
	}
	opts := options.Find().SetSort(bson.D{{Key: "refund_deadline", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, filter, opts)
}

// ListByClient returns a client's bookings, newest first.
func (r *MongoBookingRepo) ListByClient(ctx context.Context, clientID string) ([]models.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"client_id": clientID}, opts)
}

func (r *MongoBookingRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []models.Booking{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}
