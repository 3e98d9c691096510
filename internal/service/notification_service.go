package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"go.uber.org/zap"

	"github.com/natours/natours-auth/internal/domain"
	"github.com/natours/natours-auth/internal/events"
	"github.com/natours/natours-auth/internal/mailer"
)

// Notifier is the transactional email collaborator of the auth flows.
type Notifier interface {
	SendWelcome(ctx context.Context, principal *domain.Principal, contextURL string) error
	SendPasswordReset(ctx context.Context, principal *domain.Principal, resetURL string) error
}

var (
	welcomeTemplate = template.Must(template.New("welcome").Parse(
		`<p>Hi {{.Name}},</p>
<p>Welcome to Natours, we're glad to have you!</p>
<p><a href="{{.URL}}">Upload your user photo</a> and get started.</p>`))

	passwordResetTemplate = template.Must(template.New("password_reset").Parse(
		`<p>Hi {{.Name}},</p>
<p>Forgot your password? Submit a PATCH request with your new password and passwordConfirm to the link below.</p>
<p><a href="{{.URL}}">Reset your password</a></p>
<p>The link is valid for {{.Minutes}} minutes. If you didn't forget your password, please ignore this email.</p>`))
)

type emailView struct {
	Name    string
	URL     string
	Minutes int
}

// NotificationService renders and sends account emails and reacts to auth events.
type NotificationService struct {
	sender     mailer.EmailSender
	dispatcher events.Dispatcher
	logger     *zap.Logger
	resetTTL   time.Duration
}

// NewNotificationService creates the service.
func NewNotificationService(sender mailer.EmailSender, dispatcher events.Dispatcher, logger *zap.Logger, resetTTL time.Duration) *NotificationService {
	return &NotificationService{
		sender:     sender,
		dispatcher: dispatcher,
		logger:     logger,
		resetTTL:   resetTTL,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventPrincipalSignedUp, n.handlePrincipalSignedUp)
	n.dispatcher.Subscribe(events.EventPasswordChanged, n.handlePasswordChanged)
	n.dispatcher.Subscribe(events.EventPrincipalDeactivated, n.handlePrincipalDeactivated)
}

// SendWelcome greets a new account.
func (n *NotificationService) SendWelcome(ctx context.Context, principal *domain.Principal, contextURL string) error {
	body, err := render(welcomeTemplate, emailView{Name: firstName(principal.Name), URL: contextURL})
	if err != nil {
		return err
	}
	return n.sender.SendEmail(ctx, mailer.SendEmailParams{
		SendTo:   principal.Email,
		Subject:  "Welcome to the Natours Family!",
		BodyHTML: body,
		Tag:      "welcome",
	})
}

// SendPasswordReset delivers the reset link. resetURL embeds the clear token
// and must not appear in logs.
func (n *NotificationService) SendPasswordReset(ctx context.Context, principal *domain.Principal, resetURL string) error {
	minutes := int(n.resetTTL / time.Minute)
	body, err := render(passwordResetTemplate, emailView{Name: firstName(principal.Name), URL: resetURL, Minutes: minutes})
	if err != nil {
		return err
	}
	return n.sender.SendEmail(ctx, mailer.SendEmailParams{
		SendTo:   principal.Email,
		Subject:  fmt.Sprintf("Your password reset token (valid for only %d minutes)", minutes),
		BodyHTML: body,
		Tag:      "password-reset",
	})
}

func (n *NotificationService) handlePrincipalSignedUp(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PrincipalSignedUpPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	principal := &domain.Principal{ID: event.PrincipalID, Name: payload.Name, Email: payload.Email}
	if err := n.SendWelcome(ctx, principal, payload.ContextURL); err != nil {
		n.logger.Warn("welcome email failed", zap.String("principal_id", event.PrincipalID), zap.Error(err))
		return err
	}
	return nil
}

func (n *NotificationService) handlePasswordChanged(_ context.Context, event events.Event) error {
	reason := ""
	if payload, ok := event.Payload.(events.PasswordChangedPayload); ok {
		reason = string(payload.Reason)
	}
	n.logger.Info("PasswordChanged",
		zap.String("principal_id", event.PrincipalID),
		zap.String("reason", reason),
		zap.Time("at", event.Timestamp))
	return nil
}

func (n *NotificationService) handlePrincipalDeactivated(_ context.Context, event events.Event) error {
	n.logger.Info("PrincipalDeactivated",
		zap.String("principal_id", event.PrincipalID),
		zap.Time("at", event.Timestamp))
	return nil
}

func render(tmpl *template.Template, view emailView) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render %s email: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

func firstName(name string) string {
	for i, r := range name {
		if r == ' ' {
			return name[:i]
		}
	}
	if name == "" {
		return "there"
	}
	return name
}
