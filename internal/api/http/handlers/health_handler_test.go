package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyBody(t *testing.T, deps ...Dependency) (int, map[string]any) {
	t.Helper()
	app := fiber.New()
	app.Get("/ready", NewHealthHandler("natours-auth", "test", deps...).Ready)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ready", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestReadyOptionalDependencyDoesNotGate(t *testing.T) {
	down := func(context.Context) error { return errors.New("dial tcp 10.0.0.1:6379: refused") }
	status, body := readyBody(t,
		Dependency{Name: "postgres", Required: true, Ping: func(context.Context) error { return nil }},
		Dependency{Name: "redis", Ping: down},
	)

	assert.Equal(t, http.StatusOK, status)
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "ok", deps["postgres"])
	assert.Equal(t, "unavailable", deps["redis"])
}

func TestReadyRequiredDependencyDown(t *testing.T) {
	status, body := readyBody(t, Dependency{
		Name:     "postgres",
		Required: true,
		Ping:     func(context.Context) error { return errors.New("password authentication failed for user natours") },
	})

	assert.Equal(t, http.StatusServiceUnavailable, status)
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", errBody["code"])
	assert.Equal(t, map[string]any{"postgres": "unavailable"}, errBody["details"])
}

func TestReadyDisabledDependencySkipsPing(t *testing.T) {
	pinged := false
	status, body := readyBody(t, Dependency{
		Name:     "postgres",
		Required: true,
		Disabled: func() bool { return true },
		Ping: func(context.Context) error {
			pinged = true
			return nil
		},
	})

	assert.Equal(t, http.StatusOK, status)
	assert.False(t, pinged)
	assert.Equal(t, "disabled", body["dependencies"].(map[string]any)["postgres"])
}
