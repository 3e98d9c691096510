package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// DevJWTSecret is the fallback signing secret. It is refused in production.
const DevJWTSecret = "dev-secret"

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	RateLimit    RateLimitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `env:"APP_NAME" envDefault:"natours-auth"`
	Env                   string `env:"APP_ENV" envDefault:"development"`
	Host                  string `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port                  string `env:"APP_PORT" envDefault:"8080"`
	Version               string `env:"APP_VERSION" envDefault:"dev"`
	RequestTimeoutSeconds int    `env:"HTTP_REQUEST_TIMEOUT_SECONDS" envDefault:"30"`
	BodyLimitBytes        int    `env:"HTTP_BODY_LIMIT_BYTES" envDefault:"10240"`
	// PublicURL is the scheme://host used in emailed links. Required in
	// production; elsewhere links fall back to the request's own origin.
	PublicURL string `env:"APP_PUBLIC_URL"`
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string `env:"POSTGRES_DSN"`
	MaxConns       int32  `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	MinConns       int32  `env:"POSTGRES_MIN_CONNS" envDefault:"2"`
	RunMigrations  bool   `env:"POSTGRES_RUN_MIGRATIONS" envDefault:"true"`
	ConnMaxIdleSec int32  `env:"POSTGRES_CONN_MAX_IDLE_SECONDS" envDefault:"30"`
	ConnMaxLifeSec int32  `env:"POSTGRES_CONN_MAX_LIFE_SECONDS" envDefault:"300"`
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret     string        `env:"AUTH_JWT_SECRET" envDefault:"dev-secret"`
	SessionTTL    time.Duration `env:"AUTH_SESSION_TTL" envDefault:"2160h"`
	SessionCookie string        `env:"AUTH_SESSION_COOKIE" envDefault:"jwt"`
	ResetTTL      time.Duration `env:"AUTH_PASSWORD_RESET_TTL" envDefault:"10m"`
	BcryptCost    int           `env:"AUTH_BCRYPT_COST" envDefault:"12"`
	// ForgotPasswordFloor is the minimum duration of a forgot-password
	// request, so registered and unknown emails answer alike.
	ForgotPasswordFloor time.Duration `env:"AUTH_FORGOT_PASSWORD_MIN_DURATION" envDefault:"1500ms"`
}

// NotificationConfig holds transactional email settings. Without a Postmark
// server token emails are only logged.
type NotificationConfig struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	EmailFrom            string `env:"NOTIFY_EMAIL_FROM" envDefault:"noreply@natours.io"`
	SupportEmail         string `env:"NOTIFY_SUPPORT_EMAIL" envDefault:"support@natours.io"`
	QueueSize            int    `env:"NOTIFY_QUEUE_SIZE" envDefault:"256"`
}

// RateLimitConfig bounds requests per client IP on the API.
type RateLimitConfig struct {
	Max    int           `env:"RATE_LIMIT_MAX" envDefault:"100"`
	Window time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1h"`
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot run safely with.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET must not be empty"))
	}
	if c.App.IsProduction() && c.Auth.JWTSecret == DevJWTSecret {
		errs = append(errs, errors.New("AUTH_JWT_SECRET must be set in production"))
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("AUTH_BCRYPT_COST must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, errors.New("AUTH_SESSION_TTL must be positive"))
	}
	if c.Auth.ResetTTL <= 0 {
		errs = append(errs, errors.New("AUTH_PASSWORD_RESET_TTL must be positive"))
	}
	if c.Auth.ForgotPasswordFloor < 0 {
		errs = append(errs, errors.New("AUTH_FORGOT_PASSWORD_MIN_DURATION must not be negative"))
	}
	if c.App.IsProduction() && c.App.PublicURL == "" {
		errs = append(errs, errors.New("APP_PUBLIC_URL must be set in production"))
	}
	if c.App.PublicURL != "" {
		if err := validatePublicURL(c.App.PublicURL); err != nil {
			errs = append(errs, err)
		}
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_MAX and RATE_LIMIT_WINDOW must be positive"))
	}
	return errors.Join(errs...)
}

func validatePublicURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("APP_PUBLIC_URL must be an absolute http(s) URL")
	}
	if u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return errors.New("APP_PUBLIC_URL must not carry credentials, a query or a fragment")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsProduction reports whether the service runs with production settings.
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}
