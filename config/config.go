package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string `env:"ENV"       envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT"      envDefault:"8080"  validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"  validate:"oneof=debug info warn error"`
	AppName  string `env:"APP_NAME"  envDefault:"Credential Gateway"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	// Empty selects the in-process rate limiter and inline notifications.
	RedisURL string `env:"REDIS_URL"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	JWTSecret string        `env:"JWT_SECRET,required" validate:"required,min=32"`
	TokenTTL  time.Duration `env:"TOKEN_TTL"            envDefault:"720h" validate:"min=1m"`

	LoginMaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS" envDefault:"5"   validate:"min=1,max=1000"`
	LoginDecay       time.Duration `env:"LOGIN_DECAY"        envDefault:"60s" validate:"min=1s"`
	MXLookupTimeout  time.Duration `env:"MX_LOOKUP_TIMEOUT"  envDefault:"3s"  validate:"min=100ms"`
	BcryptCost       int           `env:"BCRYPT_COST"        envDefault:"12"  validate:"min=10,max=14"`

	RevokeTokenOnLogout bool `env:"REVOKE_TOKEN_ON_LOGOUT" envDefault:"false"`

	CookieDomain string `env:"COOKIE_DOMAIN"`
	CookieSecure bool   `env:"COOKIE_SECURE" envDefault:"true"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	TrustedProxies     []string `env:"TRUSTED_PROXIES"      envSeparator:","`

	NotifyConcurrency int `env:"NOTIFY_CONCURRENCY" envDefault:"5" validate:"min=1,max=100"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom   string `env:"RESEND_FROM"    validate:"required_if=Env production,required_if=Env staging"`
}

// NotifierConfig is what cmd/notifier needs. It has no database or token
// settings so the worker can run without them.
type NotifierConfig struct {
	Env      string `env:"ENV"       envDefault:"local" validate:"required,oneof=local staging production"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"  validate:"oneof=debug info warn error"`
	AppName  string `env:"APP_NAME"  envDefault:"Credential Gateway"`

	RedisURL    string `env:"REDIS_URL,required" validate:"required"`
	MetricsPort string `env:"METRICS_PORT"       envDefault:"9090"`

	NotifyConcurrency int `env:"NOTIFY_CONCURRENCY" envDefault:"5" validate:"min=1,max=100"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom   string `env:"RESEND_FROM"    validate:"required_if=Env production,required_if=Env staging"`
}

// Load reads .env when present, then the process environment, which wins.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadNotifier is Load for cmd/notifier.
func LoadNotifier() (*NotifierConfig, error) {
	cfg := &NotifierConfig{}
	if err := load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(cfg any) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

func (c *Config) SlogLevel() slog.Level { return slogLevel(c.LogLevel) }

func (c *NotifierConfig) SlogLevel() slog.Level { return slogLevel(c.LogLevel) }

func slogLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}
