package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/natours/natours-auth/internal/api/dto"
	"github.com/natours/natours-auth/internal/auth"
	"github.com/natours/natours-auth/internal/domain"
	"github.com/natours/natours-auth/internal/service"
	apperrors "github.com/natours/natours-auth/pkg/util/errorutil"
)

const (
	statusSuccess = "success"

	// UsersBasePath prefixes every account route.
	UsersBasePath = "/api/v1/users"
)

var errInvalidPayload = apperrors.NewValidationError("invalid payload", nil)

// AuthHandler exposes signup, login and credential endpoints.
type AuthHandler struct {
	auth      *service.AuthService
	transport *auth.SessionTransport
	publicURL string
}

// NewAuthHandler constructs handler. publicURL, when set, replaces the request
// origin in links sent by email.
func NewAuthHandler(authService *service.AuthService, transport *auth.SessionTransport, publicURL string) *AuthHandler {
	return &AuthHandler{
		auth:      authService,
		transport: transport,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// SignUp handles POST /api/v1/users/signup.
func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return errInvalidPayload
	}

	principal, session, err := h.auth.SignUp(c.UserContext(), service.SignUpInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		ContextURL:      h.origin(c) + UsersBasePath + "/me",
	})
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusCreated, principal, session)
}

// Login handles POST /api/v1/users/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return errInvalidPayload
	}

	principal, session, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusOK, principal, session)
}

// Logout handles GET /api/v1/users/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.transport.Attach(c, h.auth.Logout())
	return c.JSON(dto.StatusResponse{Status: statusSuccess})
}

// ForgotPassword handles POST /api/v1/users/forgotPassword. The answer is the
// same whether or not the email belongs to an account.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return errInvalidPayload
	}

	base := h.origin(c) + UsersBasePath + "/resetPassword/"
	err := h.auth.ForgotPassword(c.UserContext(), req.Email, func(clearToken string) string {
		return base + url.PathEscape(clearToken)
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.StatusResponse{
		Status:  statusSuccess,
		Message: "if the email is registered, a reset link has been sent to it",
	})
}

// ResetPassword handles PATCH /api/v1/users/resetPassword/:token.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return errInvalidPayload
	}

	principal, session, err := h.auth.ResetPassword(c.UserContext(), c.Params("token"), req.Password, req.PasswordConfirm)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusOK, principal, session)
}

// UpdateMyPassword handles PATCH /api/v1/users/updateMyPassword.
func (h *AuthHandler) UpdateMyPassword(c *fiber.Ctx) error {
	current, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdatePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return errInvalidPayload
	}

	principal, session, err := h.auth.UpdatePassword(c.UserContext(), current.ID, req.PasswordCurrent, req.Password, req.PasswordConfirm)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusOK, principal, session)
}

// Me handles GET /api/v1/users/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(dto.PrincipalEnvelope{
		Status: statusSuccess,
		Data:   dto.PrincipalData{User: dto.NewPrincipalResponse(principal)},
	})
}

// DeleteMe handles DELETE /api/v1/users/deleteMe.
func (h *AuthHandler) DeleteMe(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.auth.Deactivate(c.UserContext(), principal.ID); err != nil {
		return err
	}
	h.transport.Attach(c, h.auth.Logout())
	return c.SendStatus(http.StatusNoContent)
}

// Session handles GET /api/v1/users/session. Anonymous callers get a null user.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	return c.JSON(dto.PrincipalEnvelope{
		Status: statusSuccess,
		Data:   dto.PrincipalData{User: dto.NewPrincipalResponse(principal)},
	})
}

// GetUser handles GET /api/v1/users/:id for administrators.
func (h *AuthHandler) GetUser(c *fiber.Ctx) error {
	principal, err := h.auth.GetPrincipal(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.PrincipalEnvelope{
		Status: statusSuccess,
		Data:   dto.PrincipalData{User: dto.NewPrincipalResponse(principal)},
	})
}

func (h *AuthHandler) sendSession(c *fiber.Ctx, status int, principal *domain.Principal, session domain.Session) error {
	h.transport.Attach(c, session)
	return c.Status(status).JSON(dto.AuthResponse{
		Status:    statusSuccess,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Data:      dto.PrincipalData{User: dto.NewPrincipalResponse(principal)},
	})
}

func (h *AuthHandler) origin(c *fiber.Ctx) string {
	if h.publicURL != "" {
		return h.publicURL
	}
	return c.BaseURL()
}

func requirePrincipal(c *fiber.Ctx) (*domain.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.ErrNotLoggedIn
	}
	return principal, nil
}
