package notification

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// Email is one outgoing message.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Validate checks the fields every transport needs.
func (e Email) Validate() error {
	switch {
	case strings.TrimSpace(e.To) == "":
		return errors.New("mailer: recipient required")
	case e.Subject == "":
		return errors.New("mailer: subject required")
	case e.TextBody == "" && e.HTMLBody == "":
		return errors.New("mailer: textBody or htmlBody required")
	}
	return nil
}

// Mailer sends email. Implementations wrap transport failures in
// apperr.ExternalServiceError.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}

// LogMailer writes emails to the log instead of sending them. It is the
// development transport.
type LogMailer struct {
	Logger *zap.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{Logger: logger}
}

func (m *LogMailer) Send(_ context.Context, e Email) error {
	if err := e.Validate(); err != nil {
		return err
	}
	m.Logger.Info("email (log transport)",
		zap.String("to", e.To),
		zap.String("subject", e.Subject),
		zap.String("body", e.TextBody),
	)
	return nil
}
