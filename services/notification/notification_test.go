package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"venuebook/models"
	"venuebook/utils/apperr"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSES struct{ mock.Mock }

func (m *mockSES) SendEmail(ctx context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*sesv2.SendEmailOutput)
	return out, args.Error(1)
}

type mockEnqueuer struct{ mock.Mock }

func (m *mockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	info, _ := args.Get(0).(*asynq.TaskInfo)
	return info, args.Error(1)
}

type recordingMailer struct {
	sent []Email
	err  error
}

func (r *recordingMailer) Send(_ context.Context, e Email) error {
	r.sent = append(r.sent, e)
	return r.err
}

var sample = Email{To: "owner@example.com", Subject: "Hello", TextBody: "Body"}

func TestSESMailer_Send(t *testing.T) {
	client := new(mockSES)
	client.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *sesv2.SendEmailInput) bool {
		return aws.ToString(in.FromEmailAddress) == "no-reply@venuebook.co.ke" &&
			in.Destination.ToAddresses[0] == "owner@example.com" &&
			aws.ToString(in.Content.Simple.Subject.Data) == "Hello"
	})).Return(&sesv2.SendEmailOutput{MessageId: aws.String("m-1")}, nil)

	m := NewSESMailerWithClient(client, "no-reply@venuebook.co.ke", zap.NewNop())
	require.NoError(t, m.Send(context.Background(), sample))
	client.AssertExpectations(t)
}

func TestSESMailer_WrapsFailure(t *testing.T) {
	client := new(mockSES)
	client.On("SendEmail", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	m := NewSESMailerWithClient(client, "no-reply@venuebook.co.ke", zap.NewNop())
	err := m.Send(context.Background(), sample)
	assert.True(t, apperr.IsExternal(err))
}

func TestQueueMailer_Send(t *testing.T) {
	q := new(mockEnqueuer)
	q.On("EnqueueContext", mock.Anything, mock.MatchedBy(func(task *asynq.Task) bool {
		var p models.EmailPayload
		return task.Type() == TypeEmailSend && json.Unmarshal(task.Payload(), &p) == nil && p.To == sample.To
	})).Return(&asynq.TaskInfo{ID: "t-1"}, nil).Once()

	m := NewQueueMailer(q, zap.NewNop())
	require.NoError(t, m.Send(context.Background(), sample))
	q.AssertExpectations(t)
}

func TestQueueMailer_EnqueueFailureIsExternal(t *testing.T) {
	q := new(mockEnqueuer)
	q.On("EnqueueContext", mock.Anything, mock.Anything).Return(nil, errors.New("redis down"))

	err := NewQueueMailer(q, zap.NewNop()).Send(context.Background(), sample)
	assert.True(t, apperr.IsExternal(err))
}

func TestQueueMailer_RejectsIncompleteEmail(t *testing.T) {
	q := new(mockEnqueuer)
	err := NewQueueMailer(q, zap.NewNop()).Send(context.Background(), Email{Subject: "x", TextBody: "y"})
	assert.Error(t, err)
	q.AssertNotCalled(t, "EnqueueContext", mock.Anything, mock.Anything)
}

func TestHandleEmailTask(t *testing.T) {
	transport := &recordingMailer{}
	task, err := NewEmailTask(sample)
	require.NoError(t, err)

	require.NoError(t, HandleEmailTask(transport, zap.NewNop())(context.Background(), task))
	require.Len(t, transport.sent, 1)
	assert.Equal(t, sample, transport.sent[0])

	bad := asynq.NewTask(TypeEmailSend, []byte("{not json"))
	err = HandleEmailTask(transport, zap.NewNop())(context.Background(), bad)
	assert.ErrorIs(t, err, asynq.SkipRetry)

	transport.err = apperr.External("ses", errors.New("throttled"))
	err = HandleEmailTask(transport, zap.NewNop())(context.Background(), task)
	assert.True(t, apperr.IsExternal(err))
}

func TestVerificationLink(t *testing.T) {
	assert.Equal(t,
		"https://venuebook.co.ke/api/listings/verify?token=abc-_123",
		VerificationLink("https://venuebook.co.ke/", "abc-_123"))
}
