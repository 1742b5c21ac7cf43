package tokenRepo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"venuebook/models"
	"venuebook/utils/apperr"
)

// InMemoryTokenRepo is a process-local TokenRepository. The mutex makes
// Consume a check-and-set just like the conditional update in Mongo.
type InMemoryTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]models.VerificationToken
}

// NewInMemoryTokenRepo creates an empty in-memory repository.
func NewInMemoryTokenRepo() *InMemoryTokenRepo {
	return &InMemoryTokenRepo{tokens: make(map[string]models.VerificationToken)}
}

func (r *InMemoryTokenRepo) Create(_ context.Context, t *models.VerificationToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[t.TokenHash]; ok {
		return fmt.Errorf("verification token: %w", apperr.ErrConflict)
	}
	r.tokens[t.TokenHash] = *t
	return nil
}

func (r *InMemoryTokenRepo) Consume(_ context.Context, tokenHash string, now time.Time) (*models.VerificationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[tokenHash]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if t.ConsumedAt != nil || !now.Before(t.ExpiresAt) {
		return nil, refusal(&t, now)
	}
	consumed := now
	t.ConsumedAt = &consumed
	r.tokens[tokenHash] = t
	return &t, nil
}

func (r *InMemoryTokenRepo) Release(_ context.Context, tokenHash string, consumedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[tokenHash]
	if !ok || t.ConsumedAt == nil || !t.ConsumedAt.Equal(consumedAt) {
		return apperr.ErrNotFound
	}
	t.ConsumedAt = nil
	r.tokens[tokenHash] = t
	return nil
}
