// Package mailer delivers transactional email.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
)

var (
	ErrFailedToSendEmail = errors.New("mailer: failed to send email")
	ErrInvalidConfig     = errors.New("mailer: invalid config")
	ErrInvalidParams     = errors.New("mailer: invalid params")
)

// EmailSender sends one email.
type EmailSender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

// SendEmailParams represents the parameters for sending an email.
type SendEmailParams struct {
	SendTo   string
	Subject  string
	BodyHTML string
	BodyText string
	Tag      string
}

// Validate checks the recipient and content before anything is sent.
func (p SendEmailParams) Validate() error {
	if _, err := mail.ParseAddress(p.SendTo); err != nil {
		return fmt.Errorf("%w: invalid recipient", ErrInvalidParams)
	}
	if p.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidParams)
	}
	if p.BodyHTML == "" && p.BodyText == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidParams)
	}
	return nil
}
