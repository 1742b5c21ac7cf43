// Package cron runs the background work: queued email delivery and the
// periodic maintenance sweeps.
package cron

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one periodic task.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
	// Timeout bounds a single run. Zero means ten minutes.
	Timeout time.Duration
}

// Scheduler runs Jobs on cron schedules. With a Redis client, each run takes
// a short lock so only one instance executes a given job at a time.
type Scheduler struct {
	cron   *cron.Cron
	redis  *redis.Client
	logger *zap.Logger
	owner  string

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler creates a Scheduler. rdb may be nil.
func NewScheduler(rdb *redis.Client, logger *zap.Logger) *Scheduler {
	host, _ := os.Hostname()
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cronLogger{logger}))),
		redis:  rdb,
		logger: logger,
		owner:  fmt.Sprintf("%s-%d", host, os.Getpid()),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers a job. It fails on an unparsable schedule.
func (s *Scheduler) Add(job Job) error {
	if job.Timeout <= 0 {
		job.Timeout = 10 * time.Minute
	}
	_, err := s.cron.AddFunc(job.Spec, func() { s.runOnce(job) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", job.Spec, job.Name, err)
	}
	s.logger.Info("job scheduled", zap.String("job", job.Name), zap.String("spec", job.Spec))
	return nil
}

func (s *Scheduler) runOnce(job Job) {
	ctx, cancel := context.WithTimeout(s.ctx, job.Timeout)
	defer cancel()

	if s.redis != nil {
		key := "venuebook:cron:" + job.Name
		ok, err := s.redis.SetNX(ctx, key, s.owner, job.Timeout).Result()
		if err != nil {
			s.logger.Warn("job lock unavailable, running anyway", zap.String("job", job.Name), zap.Error(err))
		} else if !ok {
			s.logger.Debug("job running elsewhere", zap.String("job", job.Name))
			return
		} else {
			defer s.redis.Del(context.Background(), key)
		}
	}

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.logger.Error("job failed", zap.String("job", job.Name), zap.Duration("took", time.Since(start)), zap.Error(err))
		return
	}
	s.logger.Debug("job finished", zap.String("job", job.Name), zap.Duration("took", time.Since(start)))
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cancel()
	<-s.cron.Stop().Done()
	s.running = false
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct{ l *zap.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
