package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/natours/natours-auth/internal/domain"
	apperrors "github.com/natours/natours-auth/pkg/util/errorutil"
)

// RequireRole ensures the authenticated principal holds one of the allowed
// roles. It must be mounted after AccessGate.RequireAuthenticated.
func RequireRole(allowed domain.RoleSet) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.ErrNotLoggedIn
		}
		if !allowed.Contains(principal.Role) {
			return apperrors.ErrForbidden
		}
		return c.Next()
	}
}
