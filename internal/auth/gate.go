package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/natours/natours-auth/internal/domain"
	apperrors "github.com/natours/natours-auth/pkg/util/errorutil"
)

// Authenticator resolves presented session tokens to principals.
type Authenticator interface {
	Protect(ctx context.Context, token string) (*domain.Principal, error)
	OptionalAuthenticate(ctx context.Context, token string) (*domain.Principal, bool)
}

type principalKey struct{}

// AccessGate authenticates requests before they reach resource handlers.
type AccessGate struct {
	authn     Authenticator
	transport *SessionTransport
}

// NewAccessGate constructs the gate.
func NewAccessGate(authn Authenticator, transport *SessionTransport) *AccessGate {
	return &AccessGate{authn: authn, transport: transport}
}

// RequireAuthenticated rejects the request unless it carries a valid session.
func (g *AccessGate) RequireAuthenticated(c *fiber.Ctx) error {
	token := g.transport.TokenFrom(c)
	if token == "" || token == LoggedOutToken {
		return apperrors.ErrNotLoggedIn
	}

	principal, err := g.authn.Protect(c.UserContext(), token)
	if err != nil {
		return err
	}

	c.SetUserContext(WithPrincipal(c.UserContext(), principal))
	return c.Next()
}

// OptionalAuthenticated attaches the principal when the session is valid and
// always continues to the next handler.
func (g *AccessGate) OptionalAuthenticated(c *fiber.Ctx) error {
	token := g.transport.TokenFrom(c)
	if token == "" || token == LoggedOutToken {
		return c.Next()
	}

	if principal, ok := g.authn.OptionalAuthenticate(c.UserContext(), token); ok {
		c.SetUserContext(WithPrincipal(c.UserContext(), principal))
	}
	return c.Next()
}

// WithPrincipal returns a context carrying the authenticated principal.
func WithPrincipal(ctx context.Context, principal *domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFrom returns the principal attached to ctx, if any.
func PrincipalFrom(ctx context.Context) (*domain.Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(*domain.Principal)
	return principal, ok && principal != nil
}

// PrincipalFromContext retrieves the authenticated principal of the request.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Principal, bool) {
	return PrincipalFrom(c.UserContext())
}
