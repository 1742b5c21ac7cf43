package notification

import (
	"context"
	"fmt"

	"venuebook/utils/apperr"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

// SESAPI is the slice of the SES v2 client the mailer uses.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESMailer sends email through Amazon SES.
type SESMailer struct {
	client SESAPI
	from   string
	logger *zap.Logger
}

// NewSESMailer loads the default AWS credential chain for region.
func NewSESMailer(ctx context.Context, region, from string, logger *zap.Logger) (*SESMailer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSESMailerWithClient(sesv2.NewFromConfig(awsCfg), from, logger), nil
}

// NewSESMailerWithClient builds a mailer around an existing client.
func NewSESMailerWithClient(client SESAPI, from string, logger *zap.Logger) *SESMailer {
	return &SESMailer{client: client, from: from, logger: logger}
}

func (m *SESMailer) Send(ctx context.Context, e Email) error {
	if err := e.Validate(); err != nil {
		return err
	}

	body := &types.Body{}
	if e.TextBody != "" {
		body.Text = &types.Content{Data: aws.String(e.TextBody), Charset: aws.String("UTF-8")}
	}
	if e.HTMLBody != "" {
		body.Html = &types.Content{Data: aws.String(e.HTMLBody), Charset: aws.String("UTF-8")}
	}

	out, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from),
		Destination:      &types.Destination{ToAddresses: []string{e.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(e.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	})
	if err != nil {
		return apperr.External("ses", err)
	}
	m.logger.Debug("email sent", zap.String("to", e.To), zap.String("messageId", aws.ToString(out.MessageId)))
	return nil
}
