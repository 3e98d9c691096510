package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/natours/natours-auth/internal/api/http/handlers"
	"github.com/natours/natours-auth/internal/auth"
	"github.com/natours/natours-auth/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Auth        *handlers.AuthHandler
	Gate        *auth.AccessGate
	RateLimiter fiber.Handler
	Gatherer    prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if cfg.Health != nil {
		app.Get("/health/live", cfg.Health.Live)
		app.Get("/health/ready", cfg.Health.Ready)
	}
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter)
	}

	users := app.Group(handlers.UsersBasePath)
	users.Post("/signup", cfg.Auth.SignUp)
	users.Post("/login", cfg.Auth.Login)
	users.Get("/logout", cfg.Auth.Logout)
	users.Post("/forgotPassword", cfg.Auth.ForgotPassword)
	users.Patch("/resetPassword/:token", cfg.Auth.ResetPassword)
	users.Get("/session", cfg.Gate.OptionalAuthenticated, cfg.Auth.Session)

	users.Patch("/updateMyPassword", cfg.Gate.RequireAuthenticated, cfg.Auth.UpdateMyPassword)
	users.Get("/me", cfg.Gate.RequireAuthenticated, cfg.Auth.Me)
	users.Delete("/deleteMe", cfg.Gate.RequireAuthenticated, cfg.Auth.DeleteMe)

	users.Get("/:id",
		cfg.Gate.RequireAuthenticated,
		auth.RequireRole(domain.NewRoleSet(domain.RoleAdmin)),
		cfg.Auth.GetUser,
	)
}
