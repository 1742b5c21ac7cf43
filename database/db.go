package database

import (
	"context"
	"fmt"
	"time"

	"venuebook/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection names.
const (
	ListingsCollection     = "listings"
	TokensCollection       = "verification_tokens"
	BookingsCollection     = "bookings"
	DocumentsCollection    = "documents"
	SettingsCollection     = "platform_settings"
	TransactionsCollection = "transactions"
)

// Connect opens and pings the MongoDB connection described by cfg.
func Connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(cfg.DatabaseURL)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("database", cfg.DatabaseName))
	return client, nil
}
