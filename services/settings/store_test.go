package settings

import (
	"context"
	"testing"
	"time"

	settingsRepo "venuebook/database/repository/settings"
	"venuebook/models"
	"venuebook/utils/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ptr[T any](v T) *T { return &v }

func TestStore_LoadSavesDefaults(t *testing.T) {
	repo := settingsRepo.NewInMemorySettingsRepo()
	s := NewStore(repo, nil, zap.NewNop())
	require.NoError(t, s.Load(context.Background()))

	stored, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10.0, stored.CommissionRate)
	assert.Equal(t, 3.0, stored.TransactionFeeRate)
	assert.Equal(t, 168*time.Hour, s.Current().VenueRefundWindow)
}

func TestStore_UpdateValidatesBeforeWriting(t *testing.T) {
	repo := settingsRepo.NewInMemorySettingsRepo()
	s := NewStore(repo, nil, zap.NewNop())
	require.NoError(t, s.Load(context.Background()))

	cases := []Update{
		{CommissionRate: ptr(-1.0)},
		{TransactionFeeRate: ptr(101.0)},
		{CommissionRate: ptr(98.0), TransactionFeeRate: ptr(3.0)},
		{VenueRefundWindow: ptr(-time.Hour)},
	}
	for _, u := range cases {
		_, err := s.Update(context.Background(), "admin-1", u)
		assert.True(t, apperr.IsValidation(err))
	}
	assert.Equal(t, 10.0, s.Current().CommissionRate)
	stored, _ := repo.Get(context.Background())
	assert.Equal(t, 10.0, stored.CommissionRate)
}

func TestStore_Update(t *testing.T) {
	repo := settingsRepo.NewInMemorySettingsRepo()
	s := NewStore(repo, nil, zap.NewNop())
	require.NoError(t, s.Load(context.Background()))

	got, err := s.Update(context.Background(), "admin-1", Update{CommissionRate: ptr(12.5)})
	require.NoError(t, err)
	assert.Equal(t, 12.5, got.CommissionRate)
	assert.Equal(t, 3.0, got.TransactionFeeRate)
	assert.Equal(t, "admin-1", got.UpdatedBy)

	// A second store over the same data sees the change after Load.
	other := NewStore(repo, nil, zap.NewNop())
	require.NoError(t, other.Load(context.Background()))
	assert.Equal(t, 12.5, other.Current().CommissionRate)
}

func TestStore_LoadRejectsCorruptRates(t *testing.T) {
	repo := settingsRepo.NewInMemorySettingsRepo()
	bad := models.DefaultPlatformSettings()
	bad.CommissionRate = 150
	require.NoError(t, repo.Save(context.Background(), &bad))

	s := NewStore(repo, nil, zap.NewNop())
	assert.Error(t, s.Load(context.Background()))
	assert.Equal(t, 10.0, s.Current().CommissionRate)
}
