package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/natours/natours-auth/internal/persistence"
)

const probeTimeout = 2 * time.Second

// Dependency is a backing service reported by the readiness probe. Only
// required dependencies can make the service unready.
type Dependency struct {
	Name     string
	Required bool
	// Disabled reports that the dependency is not configured.
	Disabled func() bool
	Ping     func(context.Context) error
}

// PostgresDependency gates readiness on the credential store when one is configured.
func PostgresDependency(pg *persistence.Postgres) Dependency {
	return Dependency{
		Name:     "postgres",
		Required: true,
		Disabled: func() bool { return !pg.Enabled() },
		Ping:     pg.Ping,
	}
}

// RedisDependency is informational: the limiter falls back to memory.
func RedisDependency(r *persistence.Redis) Dependency {
	return Dependency{Name: "redis", Ping: r.Ping}
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName  string
	version      string
	dependencies []Dependency
}

func NewHealthHandler(serviceName, version string, deps ...Dependency) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, dependencies: deps}
}

func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), probeTimeout)
	defer cancel()

	report := make(fiber.Map, len(h.dependencies))
	ready := true
	for _, dep := range h.dependencies {
		state := probe(ctx, dep)
		report[dep.Name] = state
		if dep.Required && state == "unavailable" {
			ready = false
		}
	}

	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "one or more dependencies unavailable",
				"details": report,
			},
		})
	}
	return c.JSON(fiber.Map{"status": "ready", "dependencies": report})
}

// probe maps a dependency to a fixed state; ping errors are never exposed.
func probe(ctx context.Context, dep Dependency) string {
	if dep.Disabled != nil && dep.Disabled() {
		return "disabled"
	}
	if err := dep.Ping(ctx); err != nil {
		return "unavailable"
	}
	return "ok"
}
