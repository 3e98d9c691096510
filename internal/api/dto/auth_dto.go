package dto

import (
	"time"

	"github.com/natours/natours-auth/internal/domain"
)

// SignUpRequest payload for new accounts. Any role sent by the client is ignored.
type SignUpRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest starts the reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest completes the reset flow. The token travels in the path.
type ResetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// UpdatePasswordRequest changes the password of the logged in principal.
type UpdatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// PrincipalResponse is the public view of an account.
type PrincipalResponse struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Role              string     `json:"role"`
	PasswordChangedAt *time.Time `json:"passwordChangedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// NewPrincipalResponse maps a principal, leaving out every credential field.
func NewPrincipalResponse(p *domain.Principal) *PrincipalResponse {
	if p == nil {
		return nil
	}
	return &PrincipalResponse{
		ID:                p.ID,
		Name:              p.Name,
		Email:             p.Email,
		Role:              string(p.Role),
		PasswordChangedAt: p.PasswordChangedAt,
		CreatedAt:         p.CreatedAt,
	}
}

// PrincipalData wraps a principal in the data envelope.
type PrincipalData struct {
	User *PrincipalResponse `json:"user"`
}

// AuthResponse is returned whenever a session is issued.
type AuthResponse struct {
	Status    string        `json:"status"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Data      PrincipalData `json:"data"`
}

// PrincipalEnvelope is returned by read endpoints.
type PrincipalEnvelope struct {
	Status string        `json:"status"`
	Data   PrincipalData `json:"data"`
}

// StatusResponse acknowledges requests that return no resource.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
