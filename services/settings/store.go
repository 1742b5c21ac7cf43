// Package settings keeps the platform's commercial parameters. Every
// instance reads from an in-memory snapshot; writes go to the database and a
// Redis message tells the other instances to reload.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	settingsRepo "venuebook/database/repository/settings"
	"venuebook/models"
	"venuebook/services/settlement"
	"venuebook/utils/apperr"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ReloadChannel is the pub/sub channel announcing a settings change.
const ReloadChannel = "venuebook:settings:reload"

// Update is an admin edit. Nil fields keep their current value.
type Update struct {
	CommissionRate      *float64       `json:"commission_rate"`
	TransactionFeeRate  *float64       `json:"transaction_fee_rate"`
	VenueRefundWindow   *time.Duration `json:"venue_refund_window"`
	ServiceRefundWindow *time.Duration `json:"service_refund_window"`
}

// Store serves the current PlatformSettings.
type Store struct {
	repo    settingsRepo.SettingsRepository
	redis   *redis.Client
	logger  *zap.Logger
	now     func() time.Time
	current atomic.Pointer[models.PlatformSettings]
}

// NewStore creates a Store holding the defaults until Load runs. rdb may be
// nil, in which case reloads stay local to this process.
func NewStore(repo settingsRepo.SettingsRepository, rdb *redis.Client, logger *zap.Logger) *Store {
	s := &Store{repo: repo, redis: rdb, logger: logger, now: time.Now}
	def := models.DefaultPlatformSettings()
	s.current.Store(&def)
	return s
}

// Load reads the stored settings, saving the defaults on first boot.
func (s *Store) Load(ctx context.Context) error {
	stored, err := s.repo.Get(ctx)
	if errors.Is(err, apperr.ErrNotFound) {
		def := models.DefaultPlatformSettings()
		def.UpdatedAt = s.now().UTC()
		def.UpdatedBy = "system"
		if err := s.repo.Save(ctx, &def); err != nil {
			return err
		}
		s.current.Store(&def)
		s.logger.Info("platform settings initialised with defaults")
		return nil
	}
	if err != nil {
		return err
	}
	if err := settlement.ValidateRates(stored.CommissionRate, stored.TransactionFeeRate); err != nil {
		return fmt.Errorf("stored platform settings are invalid: %w", err)
	}
	s.current.Store(stored)
	return nil
}

// Current returns a copy of the active settings.
func (s *Store) Current() models.PlatformSettings {
	return *s.current.Load()
}

// Update validates and applies an admin edit. Invalid rates are rejected
// before anything is written.
func (s *Store) Update(ctx context.Context, adminID string, u Update) (models.PlatformSettings, error) {
	next := s.Current()
	if u.CommissionRate != nil {
		next.CommissionRate = *u.CommissionRate
	}
	if u.TransactionFeeRate != nil {
		next.TransactionFeeRate = *u.TransactionFeeRate
	}
	if u.VenueRefundWindow != nil {
		next.VenueRefundWindow = *u.VenueRefundWindow
	}
	if u.ServiceRefundWindow != nil {
		next.ServiceRefundWindow = *u.ServiceRefundWindow
	}

	if err := settlement.ValidateRates(next.CommissionRate, next.TransactionFeeRate); err != nil {
		return models.PlatformSettings{}, err
	}
	if next.VenueRefundWindow < 0 || next.ServiceRefundWindow < 0 {
		return models.PlatformSettings{}, apperr.Validation("refund_window", "must not be negative")
	}

	next.UpdatedAt = s.now().UTC()
	next.UpdatedBy = adminID
	if err := s.repo.Save(ctx, &next); err != nil {
		return models.PlatformSettings{}, err
	}
	s.current.Store(&next)
	s.logger.Info("platform settings updated",
		zap.String("by", adminID),
		zap.Float64("commissionRate", next.CommissionRate),
		zap.Float64("transactionFeeRate", next.TransactionFeeRate),
	)

	if s.redis != nil {
		if err := s.redis.Publish(ctx, ReloadChannel, adminID).Err(); err != nil {
			s.logger.Warn("failed to publish settings reload", zap.Error(err))
		}
	}
	return next, nil
}

// WatchReloads reloads the snapshot whenever another instance publishes a
// change. It blocks until ctx is cancelled.
func (s *Store) WatchReloads(ctx context.Context) {
	if s.redis == nil {
		return
	}
	sub := s.redis.Subscribe(ctx, ReloadChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := s.Load(ctx); err != nil {
				s.logger.Error("settings reload failed", zap.String("from", msg.Payload), zap.Error(err))
				continue
			}
			s.logger.Debug("settings reloaded", zap.String("from", msg.Payload))
		}
	}
}
