package documentRepo

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

// MongoDocumentRepo implements DocumentRepository using MongoDB.
type MongoDocumentRepo struct {
	coll *mongo.Collection
}

// NewMongoDocumentRepo creates a DocumentRepository backed by db.
func NewMongoDocumentRepo(db *mongo.Database, logger *zap.Logger) DocumentRepository {
	repo := &MongoDocumentRepo{coll: db.Collection(database.DocumentsCollection)}
	if err := repo.ensureIndexes(); err != nil {
		logger.Warn("failed to create document indexes", zap.Error(err))
	}
	return repo
}

func (r *MongoDocumentRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "storage_path", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "deleting_at", Value: 1}}, Options: options.Index().SetSparse(true)},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Create inserts document metadata.
func (r *MongoDocumentRepo) Create(ctx context.Context, d *models.Document) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("document %s: %w", d.ID, apperr.ErrConflict)
		}
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetByID retrieves document metadata by ID.
func (r *MongoDocumentRepo) GetByID(ctx context.Context, id string) (*models.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var d models.Document
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("document %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch document %s: %w", id, err)
	}
	return &d, nil
}

// SetReview records an admin decision. Tombstoned documents are not reviewed.
func (r *MongoDocumentRepo) SetReview(ctx context.Context, id string, review Review) (*models.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{
		"verified_by_admin": review.Verified,
		"admin_notes":       review.Notes,
		"reviewed_by":       review.ReviewedBy,
	}
	update := bson.M{"$set": set}
	if review.Verified {
		set["verified_at"] = review.At
	} else {
		update["$unset"] = bson.M{"verified_at": ""}
	}

	filter := bson.M{"id": id, "deleting_at": bson.M{"$exists": false}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var d models.Document
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("document %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to review document %s: %w", id, err)
	}
	return &d, nil
}

// MarkDeleting sets the tombstone unless one is already present.
func (r *MongoDocumentRepo) MarkDeleting(ctx context.Context, id string, at time.Time) (*models.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": id, "deleting_at": bson.M{"$exists": false}}
	update := bson.M{"$set": bson.M{"deleting_at": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var d models.Document
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&d)
	if err == nil {
		return &d, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to mark document %s: %w", id, err)
	}
	// Either gone or already tombstoned.
	return r.GetByID(ctx, id)
}

// Delete removes the metadata row.
func (r *MongoDocumentRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("document %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// ListDeleting returns documents whose deletion started before cutoff.
func (r *MongoDocumentRepo) ListDeleting(ctx context.Context, cutoff time.Time) ([]models.Document, error) {
	return r.find(ctx, bson.M{"deleting_at": bson.M{"$lte": cutoff}})
}

// ExistsByPath reports whether a metadata row points at storagePath.
func (r *MongoDocumentRepo) ExistsByPath(ctx context.Context, storagePath string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n, err := r.coll.CountDocuments(ctx, bson.M{"storage_path": storagePath}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to look up path %s: %w", storagePath, err)
	}
	return n > 0, nil
}

// ListByUser returns a user's live documents.
func (r *MongoDocumentRepo) ListByUser(ctx context.Context, userID string) ([]models.Document, error) {
	return r.find(ctx, bson.M{"user_id": userID, "deleting_at": bson.M{"$exists": false}})
}

func (r *MongoDocumentRepo) find(ctx context.Context, filter bson.M) ([]models.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve documents: %w", err)
	}
	defer cursor.Close(ctx)

	docs := []models.Document{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return docs, nil
}
