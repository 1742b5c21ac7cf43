package bookingRepo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"venuebook/models"
	"venuebook/utils/apperr"
)

// InMemoryBookingRepo is a process-local BookingRepository.
type InMemoryBookingRepo struct {
	mu       sync.RWMutex
	bookings map[string]models.Booking
}

// NewInMemoryBookingRepo creates an empty in-memory repository.
func NewInMemoryBookingRepo() *InMemoryBookingRepo {
	return &InMemoryBookingRepo{bookings: make(map[string]models.Booking)}
}

func (r *InMemoryBookingRepo) Create(_ context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.ID]; ok {
		return fmt.Errorf("booking %s: %w", b.ID, apperr.ErrConflict)
	}
	r.bookings[b.ID] = *b
	return nil
}

func (r *InMemoryBookingRepo) GetByID(_ context.Context, id string) (*models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", id, apperr.ErrNotFound)
	}
	return &b, nil
}

func (r *InMemoryBookingRepo) GetByPaymentReference(_ context.Context, reference string) (*models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.bookings {
		if reference != "" && b.PaymentReference == reference {
			return &b, nil
		}
	}
	return nil, fmt.Errorf("payment reference %s: %w", reference, apperr.ErrNotFound)
}

func (r *InMemoryBookingRepo) UpdateIf(_ context.Context, b *models.Booking, expect Expect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.bookings[b.ID]
	if !ok {
		return fmt.Errorf("booking %s: %w", b.ID, apperr.ErrNotFound)
	}
	if cur.PaymentStatus != expect.PaymentStatus || cur.PayoutStatus != expect.PayoutStatus {
		return fmt.Errorf("booking %s: %w", b.ID, apperr.ErrInvalidState)
	}
	r.bookings[b.ID] = *b
	return nil
}

func (r *InMemoryBookingRepo) ListPayoutEligible(_ context.Context, now time.Time, limit int) ([]models.Booking, error) {
	r.mu.RLock()
	out := []models.Booking{}
	for _, b := range r.bookings {
		if b.PaymentStatus == models.PaymentPaid && b.PayoutStatus == models.PayoutPending &&
			b.RefundDeadline != nil && !b.RefundDeadline.After(now) {
			out = append(out, b)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].RefundDeadline.Before(*out[j].RefundDeadline) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *InMemoryBookingRepo) ListByClient(_ context.Context, clientID string) ([]models.Booking, error) {
	r.mu.RLock()
	out := []models.Booking{}
	for _, b := range r.bookings {
		if b.ClientID == clientID {
			out = append(out, b)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
