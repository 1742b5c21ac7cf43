package tokenRepo

import (
	"context"
	"time"

	"venuebook/models"
)

// TokenRepository stores verification tokens by hash.
type TokenRepository interface {
	Create(ctx context.Context, t *models.VerificationToken) error
	// Consume atomically marks the token consumed. It fails with
	// apperr.ErrNotFound, apperr.ErrExpired or apperr.ErrAlreadyUsed.
	Consume(ctx context.Context, tokenHash string, now time.Time) (*models.VerificationToken, error)
	// Release undoes a Consume made at consumedAt, so the token can be used again.
	Release(ctx context.Context, tokenHash string, consumedAt time.Time) error
}
