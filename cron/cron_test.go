package cron

import (
	"context"
	"testing"
	"time"

	"venuebook/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScheduler_AddRejectsBadSpec(t *testing.T) {
	s := NewScheduler(nil, zap.NewNop())
	err := s.Add(Job{Name: "broken", Spec: "every tuesday", Run: func(context.Context) error { return nil }})
	assert.Error(t, err)
	require.NoError(t, s.Add(Job{Name: "payouts", Spec: "*/15 * * * *", Run: func(context.Context) error { return nil }}))
}

func TestScheduler_RunOnceWithoutRedis(t *testing.T) {
	s := NewScheduler(nil, zap.NewNop())
	calls := 0
	s.runOnce(Job{Name: "sweep", Timeout: time.Second, Run: func(ctx context.Context) error {
		calls++
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return nil
	}})
	assert.Equal(t, 1, calls)
}

func TestScheduler_StopCancelsJobs(t *testing.T) {
	s := NewScheduler(nil, zap.NewNop())
	s.Start()
	s.Stop()
	s.Stop()

	var seen error
	s.runOnce(Job{Name: "late", Timeout: time.Second, Run: func(ctx context.Context) error {
		seen = ctx.Err()
		return nil
	}})
	assert.ErrorIs(t, seen, context.Canceled)
}

func TestRedisOpt(t *testing.T) {
	opt := RedisOpt(&config.Config{RedisAddr: "redis:6379", RedisQueueDB: 2})
	assert.Equal(t, "redis:6379", opt.Addr)
	assert.Equal(t, 2, opt.DB)
}
