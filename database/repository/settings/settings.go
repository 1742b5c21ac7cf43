package settingsRepo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"venuebook/database"
	"venuebook/models"
	"venuebook/utils/apperr"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// singletonID is the _id of the one platform settings document.
const singletonID = "platform"

// SettingsRepository persists the platform settings singleton.
type SettingsRepository interface {
	// Get returns apperr.ErrNotFound before the first Save.
	Get(ctx context.Context) (*models.PlatformSettings, error)
	Save(ctx context.Context, s *models.PlatformSettings) error
}

// MongoSettingsRepo implements SettingsRepository using MongoDB.
type MongoSettingsRepo struct {
	coll *mongo.Collection
}

// NewMongoSettingsRepo creates a SettingsRepository backed by db.
func NewMongoSettingsRepo(db *mongo.Database) SettingsRepository {
	return &MongoSettingsRepo{coll: db.Collection(database.SettingsCollection)}
}

func (r *MongoSettingsRepo) Get(ctx context.Context) (*models.PlatformSettings, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var s models.PlatformSettings
	if err := r.coll.FindOne(ctx, bson.M{"_id": singletonID}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("platform settings: %w", apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch platform settings: %w", err)
	}
	return &s, nil
}

func (r *MongoSettingsRepo) Save(ctx context.Context, s *models.PlatformSettings) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	if _, err := r.coll.ReplaceOne(ctx, bson.M{"_id": singletonID}, s, opts); err != nil {
		return fmt.Errorf("failed to save platform settings: %w", err)
	}
	return nil
}

// InMemorySettingsRepo is a process-local SettingsRepository.
type InMemorySettingsRepo struct {
	mu sync.RWMutex
	s  *models.PlatformSettings
}

// NewInMemorySettingsRepo creates an empty in-memory repository.
func NewInMemorySettingsRepo() *InMemorySettingsRepo {
	return &InMemorySettingsRepo{}
}

func (r *InMemorySettingsRepo) Get(_ context.Context) (*models.PlatformSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.s == nil {
		return nil, fmt.Errorf("platform settings: %w", apperr.ErrNotFound)
	}
	s := *r.s
	return &s, nil
}

func (r *InMemorySettingsRepo) Save(_ context.Context, s *models.PlatformSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := *s
	r.s = &saved
	return nil
}
