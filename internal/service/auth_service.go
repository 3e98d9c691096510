package service

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/natours/natours-auth/internal/auth"
	"github.com/natours/natours-auth/internal/config"
	"github.com/natours/natours-auth/internal/domain"
	"github.com/natours/natours-auth/internal/events"
	"github.com/natours/natours-auth/internal/observability"
	"github.com/natours/natours-auth/internal/repository"
	apperrors "github.com/natours/natours-auth/pkg/util/errorutil"
)

const (
	minPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLength = 72

	rollbackTimeout = 5 * time.Second
)

var errWrongCurrentPassword = apperrors.NewDomainError(
	apperrors.ErrInvalidCredentials.Code,
	"your current password is wrong",
	http.StatusUnauthorized,
	nil,
)

// AuthService coordinates signup, login, session checks and credential changes.
type AuthService struct {
	principals repository.PrincipalRepository
	hasher     *auth.PasswordHasher
	tokens     *auth.TokenManager
	resets     *auth.ResetTokenCodec
	notifier   Notifier
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time

	forgotFloor time.Duration
	sleep       func(context.Context, time.Duration)
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	Principals repository.PrincipalRepository
	Notifier   Notifier
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		principals: deps.Principals,
		hasher:     auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		tokens:     auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL),
		resets:     auth.NewResetTokenCodec(cfg.Auth.ResetTTL),
		notifier:   deps.Notifier,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
		now:        time.Now,

		forgotFloor: cfg.Auth.ForgotPasswordFloor,
		sleep:       sleepContext,
	}
}

// WithClock replaces the time source of the service and its token codecs.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
		s.tokens.WithClock(now)
		s.resets.WithClock(now)
	}
	return s
}

// SignUpInput carries the registration form.
type SignUpInput struct {
	Name            string
	Email           string
	Password        string
	PasswordConfirm string
	// ContextURL is linked from the welcome email.
	ContextURL string
}

// SignUp registers a regular account and issues its first session.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*domain.Principal, domain.Session, error) {
	principal, session, err := s.signUp(ctx, in)
	s.metrics.RecordAuthEvent("signup", err)
	return principal, session, err
}

func (s *AuthService) signUp(ctx context.Context, in SignUpInput) (*domain.Principal, domain.Session, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Session{}, apperrors.NewValidationError("please tell us your name", map[string]any{"field": "name"})
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, domain.Session{}, err
	}
	if err := validateNewPassword(in.Password, in.PasswordConfirm); err != nil {
		return nil, domain.Session{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, domain.Session{}, err
	}
	principal := &domain.Principal{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Active:       true,
	}
	if err := s.principals.Create(ctx, principal); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, domain.Session{}, apperrors.ErrDuplicateEmail
		}
		return nil, domain.Session{}, apperrors.NewInternalError(err)
	}
	principal.PasswordHash = ""

	s.publish(ctx, events.New(events.EventPrincipalSignedUp, principal.ID, s.now(), events.PrincipalSignedUpPayload{
		Name:       principal.Name,
		Email:      principal.Email,
		ContextURL: in.ContextURL,
	}))

	session, err := s.tokens.Issue(principal.ID)
	if err != nil {
		return nil, domain.Session{}, apperrors.NewInternalError(err)
	}
	return principal, session, nil
}

// Login exchanges credentials for a session. Unknown emails and wrong
// passwords fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Principal, domain.Session, error) {
	principal, session, err := s.login(ctx, email, password)
	s.metrics.RecordAuthEvent("login", err)
	return principal, session, err
}

func (s *AuthService) login(ctx context.Context, email, password string) (*domain.Principal, domain.Session, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" || password == "" {
		return nil, domain.Session{}, apperrors.NewValidationError("please provide email and password", nil)
	}

	principal, err := s.principals.FindByEmail(ctx, normalized, true)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.EqualizeTiming(password)
			return nil, domain.Session{}, apperrors.ErrInvalidCredentials
		}
		return nil, domain.Session{}, apperrors.NewInternalError(err)
	}
	if !s.hasher.Verify(password, principal.PasswordHash) {
		return nil, domain.Session{}, apperrors.ErrInvalidCredentials
	}
	principal.PasswordHash = ""

	session, err := s.tokens.Issue(principal.ID)
	if err != nil {
		return nil, domain.Session{}, apperrors.NewInternalError(err)
	}
	return principal, session, nil
}

// Protect resolves a session token to the live principal it belongs to.
func (s *AuthService) Protect(ctx context.Context, token string) (*domain.Principal, error) {
	principal, err := s.protect(ctx, token)
	s.metrics.RecordAuthEvent("protect", err)
	return principal, err
}

func (s *AuthService) protect(ctx context.Context, token string) (*domain.Principal, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	principal, err := s.principals.FindByID(ctx, claims.PrincipalID, false)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrNoSuchPrincipal
		}
		return nil, apperrors.NewInternalError(err)
	}
	if principal.ChangedPasswordAfter(claims.IssuedAt) {
		return nil, apperrors.ErrStaleSession
	}
	return principal, nil
}

// OptionalAuthenticate is Protect for pages that render either way. Every
// failure reads as anonymous.
func (s *AuthService) OptionalAuthenticate(ctx context.Context, token string) (*domain.Principal, bool) {
	if token == "" || token == auth.LoggedOutToken {
		return nil, false
	}
	principal, err := s.protect(ctx, token)
	if err != nil {
		if apperrors.ToDomainError(err).HTTPStatus >= http.StatusInternalServerError {
			s.logger.Warn("optional authentication failed", zap.Error(err))
		}
		return nil, false
	}
	return principal, true
}

// Logout returns the sentinel session that overwrites the client's cookie.
func (s *AuthService) Logout() domain.Session {
	s.metrics.RecordAuthEvent("logout", nil)
	return auth.LogoutSession(s.now())
}

// ForgotPassword emails a single-use reset link built by resetURL from the
// clear token. Unknown emails succeed without effect. When the email cannot
// be sent the stored reset state is cleared again.
func (s *AuthService) ForgotPassword(ctx context.Context, email string, resetURL func(clearToken string) string) error {
	started := s.now()
	err := s.forgotPassword(ctx, email, resetURL)
	s.metrics.RecordAuthEvent("forgot_password", err)
	s.padUntil(ctx, started.Add(s.forgotFloor))
	return err
}

// padUntil holds the caller until deadline or until ctx ends.
func (s *AuthService) padUntil(ctx context.Context, deadline time.Time) {
	if remaining := deadline.Sub(s.now()); remaining > 0 {
		s.sleep(ctx, remaining)
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (s *AuthService) forgotPassword(ctx context.Context, email string, resetURL func(clearToken string) string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	principal, err := s.principals.FindByEmail(ctx, normalized, false)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Debug("password reset requested for unknown email")
			return nil
		}
		return apperrors.NewInternalError(err)
	}

	token, err := s.resets.Generate()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if _, err := s.principals.Update(ctx, principal.ID, repository.PrincipalUpdate{
		Reset: &repository.ResetFields{Digest: token.Digest, ExpiresAt: token.ExpiresAt},
	}); err != nil {
		s.rollbackReset(ctx, principal.ID, token.Digest)
		return apperrors.NewInternalError(err)
	}

	if err := s.notifier.SendPasswordReset(ctx, principal, resetURL(token.Clear)); err != nil {
		s.logger.Error("password reset email failed", zap.String("principal_id", principal.ID), zap.Error(err))
		s.rollbackReset(ctx, principal.ID, token.Digest)
		return apperrors.ErrDelivery.Wrap(err)
	}
	return nil
}

// rollbackReset clears a reset token that was never delivered. It outlives
// the request context and only clears the token it was given.
func (s *AuthService) rollbackReset(ctx context.Context, principalID, digest string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	_, err := s.principals.Update(rctx, principalID, repository.PrincipalUpdate{
		ClearReset:        true,
		ExpectResetDigest: &digest,
	})
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Error("reset token rollback failed", zap.String("principal_id", principalID), zap.Error(err))
	}
}

// ResetPassword consumes a reset token, replaces the password and logs the
// principal in.
func (s *AuthService) ResetPassword(ctx context.Context, clearToken, password, passwordConfirm string) (*domain.Principal, domain.Session, error) {
	principal, session, err := s.resetPassword(ctx, clearToken, password, passwordConfirm)
	s.metrics.RecordAuthEvent("reset_password", err)
	return principal, session, err
}

func (s *AuthService) resetPassword(ctx context.Context, clearToken, password, passwordConfirm string) (*domain.Principal, domain.Session, error) {
	if clearToken == "" {
		return nil, domain.Session{}, apperrors.ErrInvalidOrExpiredResetToken
	}
	if err := validateNewPassword(password, passwordConfirm); err != nil {
		return nil, domain.Session{}, err
	}

	digest := s.resets.DigestOf(clearToken)
	now := s.now()
	principal, err := s.principals.FindByResetDigest(ctx, digest, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Session{}, apperrors.ErrInvalidOrExpiredResetToken
		}
		return nil, domain.Session{}, apperrors.NewInternalError(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, domain.Session{}, err
	}
	changedAt := now.Truncate(time.Microsecond)
	updated, err := s.principals.Update(ctx, principal.ID, repository.PrincipalUpdate{
		PasswordHash:      &hash,
		PasswordChangedAt: &changedAt,
		ClearReset:        true,
		ExpectResetDigest: &digest,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Session{}, apperrors.ErrInvalidOrExpiredResetToken
		}
		return nil, domain.Session{}, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.New(events.EventPasswordChanged, updated.ID, now, events.PasswordChangedPayload{
		Reason: events.PasswordChangeReset,
	}))

	session, err := s.tokens.Issue(updated.ID)
	if err != nil {
		return nil, domain.Session{}, apperrors.NewInternalError(err)
	}
	return updated, session, nil
}

// UpdatePassword replaces the password of an authenticated principal after
// re-checking the current one. Sessions issued before the change go stale.
func (s *AuthService) UpdatePassword(ctx context.Context, principalID, current, password, passwordConfirm string) (*domain.Principal, domain.Session, error) {
	principal, session, err := s.updatePassword(ctx, principalID, current, password, passwordConfirm)
	s.metrics.RecordAuthEvent("update_password", err)
	return principal, session, err
}

func (s *AuthService) updatePassword(ctx context.Context, principalID, current, password, passwordConfirm string) (*domain.Principal, domain.Session, error) {
	if current == "" {
		return nil, domain.Session{}, apperrors.NewValidationError("please provide your current password", map[string]any{"field": "passwordCurrent"})
	}
	if err := validateNewPassword(password, passwordConfirm); err != nil {
		return nil, domain.Session{}, err
	}

	principal, err := s.principals.FindByID(ctx, principalID, true)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Session{}, apperrors.ErrNoSuchPrincipal
		}
		return nil, domain.Session{}, apperrors.NewInternalError(err)
	}
	if !s.hasher.Verify(current, principal.PasswordHash) {
		return nil, domain.Session{}, errWrongCurrentPassword
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, domain.Session{}, err
	}
	now := s.now()
	changedAt := now.Truncate(time.Microsecond)
	updated, err := s.principals.Update(ctx, principal.ID, repository.PrincipalUpdate{
		PasswordHash:      &hash,
		PasswordChangedAt: &changedAt,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Session{}, apperrors.ErrNoSuchPrincipal
		}
		return nil, domain.Session{}, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.New(events.EventPasswordChanged, updated.ID, now, events.PasswordChangedPayload{
		Reason: events.PasswordChangeUpdate,
	}))

	session, err := s.tokens.Issue(updated.ID)
	if err != nil {
		return nil, domain.Session{}, apperrors.NewInternalError(err)
	}
	return updated, session, nil
}

// Deactivate soft-deletes the principal. Its sessions stop resolving at once.
func (s *AuthService) Deactivate(ctx context.Context, principalID string) error {
	inactive := false
	if _, err := s.principals.Update(ctx, principalID, repository.PrincipalUpdate{Active: &inactive}); err != nil {
		s.metrics.RecordAuthEvent("deactivate", err)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrNoSuchPrincipal
		}
		return apperrors.NewInternalError(err)
	}
	s.metrics.RecordAuthEvent("deactivate", nil)
	s.publish(ctx, events.New(events.EventPrincipalDeactivated, principalID, s.now(), nil))
	return nil
}

// GetPrincipal loads an active principal without its credential.
func (s *AuthService) GetPrincipal(ctx context.Context, id string) (*domain.Principal, error) {
	principal, err := s.principals.FindByID(ctx, id, false)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, apperrors.NewInternalError(err)
	}
	return principal, nil
}

// SessionTTL is the lifetime of issued sessions.
func (s *AuthService) SessionTTL() time.Duration {
	return s.tokens.TTL()
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event not delivered",
			zap.String("event", string(event.Type)),
			zap.String("principal_id", event.PrincipalID),
			zap.Error(err))
	}
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", apperrors.NewValidationError("please provide your email", map[string]any{"field": "email"})
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperrors.NewValidationError("please provide a valid email", map[string]any{"field": "email"})
	}
	return email, nil
}

func validateNewPassword(password, confirm string) error {
	switch {
	case len(password) < minPasswordLength:
		return apperrors.NewValidationError("password must have at least 8 characters", map[string]any{"field": "password"})
	case len(password) > maxPasswordLength:
		return apperrors.NewValidationError("password must have at most 72 bytes", map[string]any{"field": "password"})
	case password != confirm:
		return apperrors.NewValidationError("passwords are not the same", map[string]any{"field": "passwordConfirm"})
	}
	return nil
}
