// Package config builds the process configuration once at startup. Services
// receive the resulting *Config; nothing below cmd/ reads the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/videopass/internal/pkg/env"
)

const (
	PADDLE_ENV_SANDBOX = "sandbox"
	PADDLE_ENV_LIVE    = "live"

	SIGNATURE_VERIFICATION_ENABLED  = "enabled"
	SIGNATURE_VERIFICATION_DISABLED = "disabled"

	PADDLE_LIVE_BASE_URL    = "https://api.paddle.com"
	PADDLE_SANDBOX_BASE_URL = "https://sandbox-api.paddle.com"
)

var ErrMissingWebhookSecret = errors.New("PADDLE_WEBHOOK_SECRET is required when signature verification is enabled")

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Paddle    PaddleConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Playback  PlaybackConfig
	Log       LogConfig
	Tracing   TracingConfig
	Monitor   MonitorConfig
}

type AppConfig struct {
	Env            string `validate:"required"`
	Host           string
	Port           string `validate:"required,numeric"`
	AllowedOrigins []string
	DocsPath       string
}

func (a AppConfig) IsDev() bool {
	return a.Env == "dev"
}

type DatabaseConfig struct {
	Driver      string `validate:"oneof=postgres mysql sqlite"`
	DSN         string
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	AutoMigrate bool
	MaxRetries  int `validate:"min=1"`
	RetryDelay  time.Duration
}

type PaddleConfig struct {
	APIKey                string
	Environment           string `validate:"oneof=sandbox live"`
	BaseURL               string `validate:"omitempty,url"`
	WebhookSecret         string
	SignatureVerification string `validate:"oneof=enabled disabled"`
	WebhookTolerance      time.Duration `validate:"min=0"`
	HTTPTimeout           time.Duration `validate:"gt=0"`
	PriceMap              PriceMap
}

// APIBaseURL returns the explicit override or the URL for the environment.
func (p PaddleConfig) APIBaseURL() string {
	if p.BaseURL != "" {
		return strings.TrimRight(p.BaseURL, "/")
	}
	if p.Environment == PADDLE_ENV_LIVE {
		return PADDLE_LIVE_BASE_URL
	}
	return PADDLE_SANDBOX_BASE_URL
}

func (p PaddleConfig) VerifySignatures() bool {
	return p.SignatureVerification != SIGNATURE_VERIFICATION_DISABLED
}

type CacheConfig struct {
	Host       string
	Port       string
	Password   string
	DB         int
	CatalogTTL time.Duration
}

// RedisEnabled reports whether a Redis/Dragonfly host is configured.
func (c CacheConfig) RedisEnabled() bool {
	return c.Host != ""
}

func (c CacheConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type RateLimitConfig struct {
	Max        int `validate:"min=0"`
	Expiration time.Duration
}

type PlaybackConfig struct {
	S3Region          string
	S3EndpointURL     string
	S3AccessKeyID     string
	S3SecretAccessKey string
	URLTTL            time.Duration
}

func (p PlaybackConfig) S3Enabled() bool {
	return p.S3AccessKeyID != "" && p.S3SecretAccessKey != ""
}

type LogConfig struct {
	Level string
	Dev   bool
}

type TracingConfig struct {
	Endpoint    string
	ServiceName string
	Insecure    bool
}

type MonitorConfig struct {
	User     string
	Password string
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	priceMap, err := ParsePriceMap(env.GetEnv("VIDEO_PRICE_MAP", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Env:            env.GetEnv("APP_ENV", "prod"),
			Host:           env.GetEnv("APP_HOST", "0.0.0.0"),
			Port:           env.GetEnv("APP_PORT", "4000"),
			AllowedOrigins: splitList(env.GetEnv("ALLOWED_ORIGINS", "")),
			DocsPath:       env.GetEnv("OPENAPI_FILE", "public/docs/v1/openapi.yml"),
		},
		Database: DatabaseConfig{
			Driver:      env.GetEnv("DB_DRIVER", "postgres"),
			DSN:         env.GetEnv("DATABASE_URL", ""),
			Host:        env.GetEnv("DB_HOST", "127.0.0.1"),
			Port:        env.GetEnv("DB_PORT", "5432"),
			User:        env.GetEnv("DB_USER", "postgres"),
			Password:    env.GetEnv("DB_PASSWORD", ""),
			Name:        env.GetEnv("DB_NAME", "postgres"),
			SSLMode:     env.GetEnv("DB_SSLMODE", "require"),
			AutoMigrate: env.GetEnvBool("DB_AUTO_MIGRATE", false),
			MaxRetries:  env.GetEnvInt("DB_MAX_RETRIES", 5),
			RetryDelay:  env.GetEnvDuration("DB_RETRY_DELAY", 5*time.Second),
		},
		Paddle: PaddleConfig{
			APIKey:                env.GetEnv("PADDLE_API_KEY", ""),
			Environment:           strings.ToLower(env.GetEnv("PADDLE_ENV", PADDLE_ENV_SANDBOX)),
			BaseURL:               env.GetEnv("PADDLE_API_BASE_URL", ""),
			WebhookSecret:         env.GetEnv("PADDLE_WEBHOOK_SECRET", ""),
			SignatureVerification: strings.ToLower(env.GetEnv("PADDLE_SIGNATURE_VERIFICATION", SIGNATURE_VERIFICATION_ENABLED)),
			WebhookTolerance:      env.GetEnvDuration("PADDLE_WEBHOOK_TOLERANCE", 0),
			HTTPTimeout:           env.GetEnvDuration("PADDLE_HTTP_TIMEOUT", 15*time.Second),
			PriceMap:              priceMap,
		},
		Cache: CacheConfig{
			Host:       env.GetEnv("CACHE_HOST", ""),
			Port:       env.GetEnv("CACHE_PORT", "6379"),
			Password:   env.GetEnv("CACHE_PASSWORD", ""),
			DB:         env.GetEnvInt("CACHE_DB", 0),
			CatalogTTL: env.GetEnvDuration("CATALOG_CACHE_TTL", time.Minute),
		},
		RateLimit: RateLimitConfig{
			Max:        env.GetEnvInt("CHECKOUT_RATE_LIMIT", 20),
			Expiration: env.GetEnvDuration("CHECKOUT_RATE_WINDOW", time.Minute),
		},
		Playback: PlaybackConfig{
			S3Region:          env.GetEnv("S3_REGION", "us-east-1"),
			S3EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
			S3AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
			S3SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
			URLTTL:            env.GetEnvDuration("PLAYBACK_URL_TTL", 15*time.Minute),
		},
		Log: LogConfig{
			Level: env.GetEnv("LOG_LEVEL", ""),
			Dev:   env.GetEnvBool("LOG_DEV", false),
		},
		Tracing: TracingConfig{
			Endpoint:    env.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName: env.GetEnv("OTEL_SERVICE_NAME", "videopass"),
			Insecure:    env.GetEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		},
		Monitor: MonitorConfig{
			User:     env.GetEnv("MONITOR_USER", "admin"),
			Password: env.GetEnv("MONITOR_PASSWORD", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Paddle.VerifySignatures() && c.Paddle.WebhookSecret == "" {
		return ErrMissingWebhookSecret
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
