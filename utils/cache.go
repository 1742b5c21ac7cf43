package utils

import (
	"context"
	"fmt"
	"time"

	"venuebook/config"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient connects to the configured Redis on the given logical DB and
// pings it once.
func NewRedisClient(ctx context.Context, cfg *config.Config, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis (db %d): %w", db, err)
	}
	return client, nil
}
