package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"venuebook/models"
	"venuebook/utils/apperr"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// TypeEmailSend is the asynq task type for outgoing email.
const TypeEmailSend = "email:send"

// Enqueuer is the part of asynq.Client the queue mailer needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueMailer hands emails to the asynq worker, which owns retries. Send
// only fails when the task cannot be queued.
type QueueMailer struct {
	queue      Enqueuer
	maxRetries int
	logger     *zap.Logger
}

// NewQueueMailer creates a QueueMailer.
func NewQueueMailer(queue Enqueuer, logger *zap.Logger) *QueueMailer {
	return &QueueMailer{queue: queue, maxRetries: 8, logger: logger}
}

func (m *QueueMailer) Send(ctx context.Context, e Email) error {
	if err := e.Validate(); err != nil {
		return err
	}
	task, err := NewEmailTask(e)
	if err != nil {
		return err
	}
	info, err := m.queue.EnqueueContext(ctx, task,
		asynq.MaxRetry(m.maxRetries),
		asynq.Timeout(30*time.Second),
	)
	if err != nil {
		return apperr.External("email queue", err)
	}
	m.logger.Debug("email queued", zap.String("to", e.To), zap.String("taskId", info.ID))
	return nil
}

// NewEmailTask encodes e as an asynq task.
func NewEmailTask(e Email) (*asynq.Task, error) {
	payload, err := json.Marshal(models.EmailPayload{
		To:       e.To,
		Subject:  e.Subject,
		TextBody: e.TextBody,
		HTMLBody: e.HTMLBody,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode email task: %w", err)
	}
	return asynq.NewTask(TypeEmailSend, payload), nil
}

// HandleEmailTask returns the asynq handler that delivers queued email
// through transport. A malformed payload is not retried.
func HandleEmailTask(transport Mailer, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.EmailPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("invalid email task payload", zap.Error(err))
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		e := Email{To: p.To, Subject: p.Subject, TextBody: p.TextBody, HTMLBody: p.HTMLBody}
		if err := e.Validate(); err != nil {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		if err := transport.Send(ctx, e); err != nil {
			logger.Warn("email delivery failed", zap.String("to", p.To), zap.Error(err))
			return err
		}
		return nil
	}
}
