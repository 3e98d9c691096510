package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/natours/natours-auth/internal/domain"
	"github.com/natours/natours-auth/internal/events"
	"github.com/natours/natours-auth/internal/mailer"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []mailer.SendEmailParams
	err  error
}

func (s *recordingSender) SendEmail(_ context.Context, params mailer.SendEmailParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := params.Validate(); err != nil {
		return err
	}
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, params)
	return nil
}

func TestNotificationService_SendPasswordReset(t *testing.T) {
	sender := &recordingSender{}
	svc := NewNotificationService(sender, nil, zap.NewNop(), 10*time.Minute)

	principal := &domain.Principal{Name: "Jonas Schmedtmann", Email: "jonas@example.com"}
	link := "https://natours.test/api/v1/users/resetPassword/abc123"
	require.NoError(t, svc.SendPasswordReset(context.Background(), principal, link))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "jonas@example.com", msg.SendTo)
	assert.Equal(t, "Your password reset token (valid for only 10 minutes)", msg.Subject)
	assert.Contains(t, msg.BodyHTML, link)
	assert.Contains(t, msg.BodyHTML, "Hi Jonas,")
	assert.Equal(t, "password-reset", msg.Tag)
}

func TestNotificationService_EscapesNames(t *testing.T) {
	sender := &recordingSender{}
	svc := NewNotificationService(sender, nil, zap.NewNop(), 10*time.Minute)

	principal := &domain.Principal{Name: "<script>", Email: "jonas@example.com"}
	require.NoError(t, svc.SendWelcome(context.Background(), principal, "https://natours.test/me"))

	require.Len(t, sender.sent, 1)
	assert.NotContains(t, sender.sent[0].BodyHTML, "<script>")
	assert.Equal(t, "Welcome to the Natours Family!", sender.sent[0].Subject)
}

func TestNotificationService_PropagatesSendFailure(t *testing.T) {
	sender := &recordingSender{err: errors.New("provider down")}
	svc := NewNotificationService(sender, nil, zap.NewNop(), 10*time.Minute)

	err := svc.SendPasswordReset(context.Background(), &domain.Principal{Name: "J", Email: "j@example.com"}, "https://x/y")
	assert.Error(t, err)
}

func TestNotificationService_WelcomeOnSignUpEvent(t *testing.T) {
	sender := &recordingSender{}
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(sender, dispatcher, zap.NewNop(), 10*time.Minute)
	svc.RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.New(events.EventPrincipalSignedUp, "p-1", time.Now(), events.PrincipalSignedUpPayload{
		Name:       "Jonas",
		Email:      "jonas@example.com",
		ContextURL: "https://natours.test/me",
	}))
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "welcome", sender.sent[0].Tag)
	assert.Contains(t, sender.sent[0].BodyHTML, "https://natours.test/me")

	err = dispatcher.Publish(context.Background(), events.New(events.EventPasswordChanged, "p-1", time.Now(),
		events.PasswordChangedPayload{Reason: events.PasswordChangeReset}))
	assert.NoError(t, err)
	assert.Len(t, sender.sent, 1, "password changes are only audited")
}

func TestFirstName(t *testing.T) {
	assert.Equal(t, "Jonas", firstName("Jonas Schmedtmann"))
	assert.Equal(t, "Jonas", firstName("Jonas"))
	assert.Equal(t, "there", firstName(""))
}
