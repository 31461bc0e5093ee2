package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Port     string `mapstructure:"PORT"`
	GinMode  string `mapstructure:"GIN_MODE"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`

	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	// StripeAPIURL overrides the Stripe API base URL (stripe-mock, tests).
	StripeAPIURL string `mapstructure:"STRIPE_API_URL"`

	PriceIndividualMonthly string `mapstructure:"PRICE_INDIVIDUAL_MONTHLY"`
	PriceProMonthly        string `mapstructure:"PRICE_PRO_MONTHLY"`
	FreePrepsPerMonth      int    `mapstructure:"FREE_PREPS_PER_MONTH"`

	AnalysisWebhookURL string        `mapstructure:"ANALYSIS_WEBHOOK_URL"`
	AnalysisTimeout    time.Duration `mapstructure:"ANALYSIS_TIMEOUT"`

	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	RedisPassword   string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int           `mapstructure:"REDIS_DB"`
	ContextCacheTTL time.Duration `mapstructure:"CONTEXT_CACHE_TTL"`

	AMQPURL                 string `mapstructure:"AMQP_URL"`
	SubscriptionEventsQueue string `mapstructure:"SUBSCRIPTION_EVENTS_QUEUE"`

	RateLimitRPS        float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst      int     `mapstructure:"RATE_LIMIT_BURST"`
	WebhookMaxBodyBytes int64   `mapstructure:"WEBHOOK_MAX_BODY_BYTES"`

	ClientURL string `mapstructure:"CLIENT_URL"`
}

var keys = []string{
	"PORT", "GIN_MODE", "LOG_LEVEL",
	"FIREBASE_PROJECT_ID", "GOOGLE_APPLICATION_CREDENTIALS", "FIREBASE_SERVICE_ACCOUNT_JSON_BASE64",
	"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET", "STRIPE_API_URL",
	"PRICE_INDIVIDUAL_MONTHLY", "PRICE_PRO_MONTHLY", "FREE_PREPS_PER_MONTH",
	"ANALYSIS_WEBHOOK_URL", "ANALYSIS_TIMEOUT",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "CONTEXT_CACHE_TTL",
	"AMQP_URL", "SUBSCRIPTION_EVENTS_QUEUE",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "WEBHOOK_MAX_BODY_BYTES",
	"CLIENT_URL",
}

// LoadConfig loads configuration from environment variables using Viper.
// A .env file in the working directory is read first when present; real
// environment variables always take precedence over it.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.New("failed to read .env file: " + err.Error())
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("PRICE_INDIVIDUAL_MONTHLY", "price_individual_monthly")
	v.SetDefault("PRICE_PRO_MONTHLY", "price_pro_monthly")
	v.SetDefault("FREE_PREPS_PER_MONTH", 1)
	v.SetDefault("ANALYSIS_TIMEOUT", "60s")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CONTEXT_CACHE_TTL", "10m")
	v.SetDefault("SUBSCRIPTION_EVENTS_QUEUE", "subscription-events")
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 30)
	v.SetDefault("WEBHOOK_MAX_BODY_BYTES", 65536)

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}

	// Firebase clients cannot be built without a project; everything else
	// fails lazily at first use.
	if cfg.FirebaseProjectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID is required")
	}
	if cfg.FreePrepsPerMonth < 0 {
		return nil, errors.New("FREE_PREPS_PER_MONTH must not be negative")
	}

	return &cfg, nil
}

// Warnings lists settings that are absent but only needed by some routes.
func (c *Config) Warnings() []string {
	var out []string
	if c.StripeSecretKey == "" {
		out = append(out, "STRIPE_SECRET_KEY is not set; checkout and portal requests will fail")
	}
	if c.StripeWebhookSecret == "" {
		out = append(out, "STRIPE_WEBHOOK_SECRET is not set; every webhook delivery will be rejected")
	}
	if c.AnalysisWebhookURL == "" {
		out = append(out, "ANALYSIS_WEBHOOK_URL is not set; profile analysis is disabled")
	}
	if c.ClientURL == "" {
		out = append(out, "CLIENT_URL is not set; browser routes accept any origin")
	}
	return out
}

// IsRelease reports whether gin runs in release mode.
func (c *Config) IsRelease() bool {
	return strings.EqualFold(c.GinMode, "release")
}
