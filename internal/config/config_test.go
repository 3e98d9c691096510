package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("AUTH_JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 90*24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 10*time.Minute, cfg.Auth.ResetTTL)
	assert.Equal(t, 1500*time.Millisecond, cfg.Auth.ForgotPasswordFloor)
	assert.Equal(t, "jwt", cfg.Auth.SessionCookie)
	assert.Equal(t, 10240, cfg.App.BodyLimitBytes)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, time.Hour, cfg.RateLimit.Window)
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("AUTH_SESSION_TTL", "1h")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("APP_HOST", "127.0.0.1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "127.0.0.1:9090", cfg.App.Addr())
}

func validConfig() Config {
	return Config{
		App:       AppConfig{Env: "development"},
		Auth:      AuthConfig{JWTSecret: "s3cret", SessionTTL: time.Hour, ResetTTL: time.Minute, BcryptCost: 10},
		RateLimit: RateLimitConfig{Max: 100, Window: time.Hour},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: "AUTH_JWT_SECRET must not be empty"},
		{
			name: "dev secret in production",
			mutate: func(c *Config) {
				c.App.Env = "production"
				c.Auth.JWTSecret = DevJWTSecret
			},
			wantErr: "AUTH_JWT_SECRET must be set in production",
		},
		{
			name: "public url missing in production",
			mutate: func(c *Config) {
				c.App.Env = "production"
				c.App.PublicURL = ""
			},
			wantErr: "APP_PUBLIC_URL must be set in production",
		},
		{
			name: "production with public url",
			mutate: func(c *Config) {
				c.App.Env = "production"
				c.App.PublicURL = "https://natours.io"
			},
		},
		{name: "public url without scheme", mutate: func(c *Config) { c.App.PublicURL = "natours.io" }, wantErr: "absolute http(s) URL"},
		{name: "public url with query", mutate: func(c *Config) { c.App.PublicURL = "https://natours.io/?next=x" }, wantErr: "must not carry"},
		{name: "bcrypt cost", mutate: func(c *Config) { c.Auth.BcryptCost = 2 }, wantErr: "AUTH_BCRYPT_COST"},
		{name: "session ttl", mutate: func(c *Config) { c.Auth.SessionTTL = 0 }, wantErr: "AUTH_SESSION_TTL"},
		{name: "reset ttl", mutate: func(c *Config) { c.Auth.ResetTTL = -time.Second }, wantErr: "AUTH_PASSWORD_RESET_TTL"},
		{name: "negative forgot password floor", mutate: func(c *Config) { c.Auth.ForgotPasswordFloor = -time.Second }, wantErr: "AUTH_FORGOT_PASSWORD_MIN_DURATION"},
		{name: "rate limit", mutate: func(c *Config) { c.RateLimit.Max = 0 }, wantErr: "RATE_LIMIT_MAX"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAppConfig_RequestTimeout(t *testing.T) {
	assert.Zero(t, AppConfig{}.RequestTimeout())
	assert.Equal(t, 5*time.Second, AppConfig{RequestTimeoutSeconds: 5}.RequestTimeout())
	assert.True(t, AppConfig{Env: "production"}.IsProduction())
}
