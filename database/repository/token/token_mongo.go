package tokenRepo

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

// expiredRetention keeps dead tokens long enough to answer "expired" rather
// than "invalid" for a week after they lapse.
const expiredRetention = 7 * 24 * time.Hour

// MongoTokenRepo implements TokenRepository using MongoDB.
type MongoTokenRepo struct {
	coll *mongo.Collection
}

// NewMongoTokenRepo creates a TokenRepository backed by db.
func NewMongoTokenRepo(db *mongo.Database, logger *zap.Logger) TokenRepository {
	repo := &MongoTokenRepo{coll: db.Collection(database.TokensCollection)}
	if err := repo.ensureIndexes(); err != nil {
		logger.Warn("failed to create token indexes", zap.Error(err))
	}
	return repo
}

func (r *MongoTokenRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "token_hash", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "entity_id", Value: 1}}},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(expiredRetention.Seconds())),
		},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Create stores a new token.
func (r *MongoTokenRepo) Create(ctx context.Context, t *models.VerificationToken) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, t); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("verification token: %w", apperr.ErrConflict)
		}
		return fmt.Errorf("failed to create verification token: %w", err)
	}
	return nil
}

// Consume claims the token in a single conditional update, so two concurrent
// calls cannot both succeed.
func (r *MongoTokenRepo) Consume(ctx context.Context, tokenHash string, now time.Time) (*models.VerificationToken, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"token_hash":  tokenHash,
		"consumed_at": nil,
		"expires_at":  bson.M{"$gt": now},
	}
	update := bson.M{"$set": bson.M{"consumed_at": now}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var t models.VerificationToken
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&t)
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to consume verification token: %w", err)
	}

	// Nothing claimed. Work out why for the caller.
	var existing models.VerificationToken
	if err := r.coll.FindOne(ctx, bson.M{"token_hash": tokenHash}).Decode(&existing); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up verification token: %w", err)
	}
	return nil, refusal(&existing, now)
}

// Release clears consumed_at only if it still holds the claim made at consumedAt.
func (r *MongoTokenRepo) Release(ctx context.Context, tokenHash string, consumedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"token_hash": tokenHash, "consumed_at": consumedAt}
	update := bson.M{"$set": bson.M{"consumed_at": nil}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to release verification token: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func refusal(t *models.VerificationToken, now time.Time) error {
	if t.ConsumedAt != nil {
		return apperr.ErrAlreadyUsed
	}
	if !now.Before(t.ExpiresAt) {
		return apperr.ErrExpired
	}
	return apperr.ErrInvalidState
}
