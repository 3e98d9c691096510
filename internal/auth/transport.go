package auth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/natours/natours-auth/internal/domain"
)

// LoggedOutToken overwrites the session cookie on logout.
const LoggedOutToken = "Logged-Out"

const (
	// DefaultSessionCookie is the cookie that carries the session token.
	DefaultSessionCookie = "jwt"

	logoutCookieTTL = 10 * time.Second
)

// SessionTransport moves session tokens between the service and callers.
type SessionTransport struct {
	cookieName string
}

// NewSessionTransport builds a transport using the named cookie.
func NewSessionTransport(cookieName string) *SessionTransport {
	if cookieName == "" {
		cookieName = DefaultSessionCookie
	}
	return &SessionTransport{cookieName: cookieName}
}

// TokenFrom extracts the presented token. A bearer header wins over the cookie.
func (t *SessionTransport) TokenFrom(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.Cookies(t.cookieName)
}

// Attach writes session as an HTTP-only cookie expiring with the token.
func (t *SessionTransport) Attach(c *fiber.Ctx, session domain.Session) {
	c.Cookie(&fiber.Cookie{
		Name:     t.cookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   isHTTPSRequest(c),
	})
}

// LogoutSession is the sentinel session written on logout.
func LogoutSession(now time.Time) domain.Session {
	return domain.Session{Token: LoggedOutToken, ExpiresAt: now.Add(logoutCookieTTL)}
}

// CookieName returns the session cookie name.
func (t *SessionTransport) CookieName() string {
	return t.cookieName
}

// isHTTPSRequest covers direct TLS and proxies reporting X-Forwarded-Proto.
func isHTTPSRequest(c *fiber.Ctx) bool {
	return c.Protocol() == "https"
}
