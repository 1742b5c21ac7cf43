package cron

import (
	"context"
	"time"

	"venuebook/config"
	"venuebook/services/notification"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// RedisOpt is the asynq connection for the job queue database.
func RedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisQueueDB,
	}
}

// EmailWorker delivers queued email through the real transport. Retries and
// backoff are asynq's.
type EmailWorker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

// NewEmailWorker creates an EmailWorker sending through transport.
func NewEmailWorker(cfg *config.Config, transport notification.Mailer, logger *zap.Logger) *EmailWorker {
	srv := asynq.NewServer(
		RedisOpt(cfg),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
			Logger:   logger.Sugar(),
			LogLevel: asynq.WarnLevel,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logger.Warn("job failed",
					zap.String("type", task.Type()),
					zap.Int("retry", retried),
					zap.Int("maxRetry", maxRetry),
					zap.Error(err),
				)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(notification.TypeEmailSend, notification.HandleEmailTask(transport, logger))
	return &EmailWorker{srv: srv, mux: mux, logger: logger}
}

// Start runs the worker in the background, retrying the initial start a few
// times while Redis comes up.
func (w *EmailWorker) Start() {
	go func() {
		const maxAttempts = 5
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			err := w.srv.Start(w.mux)
			if err == nil {
				w.logger.Info("email worker started")
				return
			}
			w.logger.Warn("email worker failed to start", zap.Int("attempt", attempt), zap.Error(err))
			if attempt == maxAttempts {
				w.logger.Error("email worker gave up; queued email will wait for the next start")
				return
			}
			time.Sleep(time.Duration(attempt*2) * time.Second)
		}
	}()
}

// Shutdown waits for in-flight jobs and stops the worker.
func (w *EmailWorker) Shutdown() {
	w.srv.Shutdown()
}
