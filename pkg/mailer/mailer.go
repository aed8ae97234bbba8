package mailer

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-portal-api/pkg/config"
)

// Message is a single outbound email.
type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Body    string
}

// Mailer delivers messages through an external provider. Delivery is
// best-effort: callers log failures and move on.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New selects a mailer implementation from configuration. Unknown or
// empty providers fall back to the log-only mailer.
func New(cfg config.MailConfig, logger *zap.Logger) Mailer {
	switch cfg.Provider {
	case "sendgrid":
		return NewSendGridMailer(cfg)
	default:
		return NewLogMailer(logger)
	}
}

// LogMailer writes messages to the application log instead of sending
// them. Default in development and tests.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer constructs the log-only mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Send logs the message and reports success.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("email (log only)",
		zap.String("to", msg.ToEmail),
		zap.String("subject", msg.Subject),
	)
	return nil
}
