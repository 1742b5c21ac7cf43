package transactionRepo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"venuebook/database"
	"venuebook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// TransactionRepository is the append-only money ledger.
type TransactionRepository interface {
	Append(ctx context.Context, tx *models.Transaction) error
	ListByBooking(ctx context.Context, bookingID string) ([]models.Transaction, error)
}

// MongoTransactionRepo implements TransactionRepository using MongoDB.
type MongoTransactionRepo struct {
	coll *mongo.Collection
}

// NewMongoTransactionRepo creates a TransactionRepository backed by db.
func NewMongoTransactionRepo(db *mongo.Database, logger *zap.Logger) TransactionRepository {
	repo := &MongoTransactionRepo{coll: db.Collection(database.TransactionsCollection)}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "created_at", Value: 1}}},
	})
	if err != nil {
		logger.Warn("failed to create transaction indexes", zap.Error(err))
	}
	return repo
}

func (r *MongoTransactionRepo) Append(ctx context.Context, tx *models.Transaction) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, tx); err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

func (r *MongoTransactionRepo) ListByBooking(ctx context.Context, bookingID string) ([]models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"booking_id": bookingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve transactions: %w", err)
	}
	defer cursor.Close(ctx)

	txs := []models.Transaction{}
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}
	return txs, nil
}

// InMemoryTransactionRepo is a process-local TransactionRepository.
type InMemoryTransactionRepo struct {
	mu  sync.RWMutex
	txs []models.Transaction
}

// NewInMemoryTransactionRepo creates an empty ledger.
func NewInMemoryTransactionRepo() *InMemoryTransactionRepo {
	return &InMemoryTransactionRepo{}
}

func (r *InMemoryTransactionRepo) Append(_ context.Context, tx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs = append(r.txs, *tx)
	return nil
}

func (r *InMemoryTransactionRepo) ListByBooking(_ context.Context, bookingID string) ([]models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.Transaction{}
	for _, tx := range r.txs {
		if tx.BookingID == bookingID {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
