package mailer

import (
	"context"

	"go.uber.org/zap"
)

// LogSender stands in for a provider in development. It records that an email
// would have been sent but never logs the body, which may hold reset links.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender builds a sender that only logs.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendEmail validates params and logs the envelope.
func (s *LogSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Info("email suppressed (no provider configured)",
		zap.String("subject", params.Subject),
		zap.String("tag", params.Tag),
	)
	return nil
}
