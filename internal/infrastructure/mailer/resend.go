package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"

	"github.com/yourorg/tourbook/internal/domain"
	"github.com/yourorg/tourbook/internal/reliability/retry"
)

// ResendMailer sends transactional email through the Resend API. Sends are
// idempotent enough to retry: a duplicated notification is preferable to a
// silently dropped one.
type ResendMailer struct {
	client      *resend.Client
	logger      *slog.Logger
	retryConfig *retry.Config
}

// New creates a mailer for the given API key.
func New(apiKey string, logger *slog.Logger) (*ResendMailer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("email provider api key is not configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResendMailer{
		client:      resend.NewClient(apiKey),
		logger:      logger,
		retryConfig: retry.DefaultConfig(),
	}, nil
}

// Send delivers one message and returns the provider's message id.
func (m *ResendMailer) Send(ctx context.Context, msg *domain.EmailMessage) (string, error) {
	params := &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}

	id, err := retry.Do(ctx, m.retryConfig, m.logger, "SendEmail", func(ctx context.Context) (string, error) {
		sent, err := m.client.Emails.SendWithContext(ctx, params)
		if err != nil {
			return "", err
		}
		return sent.Id, nil
	})
	if err != nil {
		return "", fmt.Errorf("email send failed: %w", err)
	}

	m.logger.Info("email sent",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("message_id", id),
	)
	return id, nil
}
