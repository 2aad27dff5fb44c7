package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	ReplicateAPIToken string
	ReplicateBaseURL  string

	ClerkSecretKey  string
	ClerkAPIBaseURL string
	ClerkJWKSURL    string
	ClerkIssuer     string

	PayPalClientID      string
	PayPalClientSecret  string
	PayPalAPIBase       string
	PayPalEnv           string
	PayPalCreditsPerUSD int

	PayhipWebhookSecret     string
	PaddleWebhookSecret     string
	FastSpringWebhookSecret string
	StripeWebhookSecret     string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "3001"),

		ReplicateAPIToken: os.Getenv("REPLICATE_API_TOKEN"),
		ReplicateBaseURL:  getEnv("REPLICATE_BASE_URL", "https://api.replicate.com"),

		ClerkSecretKey:  os.Getenv("CLERK_SECRET_KEY"),
		ClerkAPIBaseURL: getEnv("CLERK_API_BASE_URL", "https://api.clerk.com"),
		ClerkJWKSURL:    os.Getenv("CLERK_JWKS_URL"),
		ClerkIssuer:     os.Getenv("CLERK_ISSUER"),

		PayPalClientID:      os.Getenv("PAYPAL_CLIENT_ID"),
		PayPalClientSecret:  os.Getenv("PAYPAL_CLIENT_SECRET"),
		PayPalAPIBase:       os.Getenv("PAYPAL_API_BASE"),
		PayPalEnv:           getEnv("PAYPAL_ENV", "production"),
		PayPalCreditsPerUSD: getEnvInt("PAYPAL_CREDITS_PER_USD", 2),

		PayhipWebhookSecret:     getEnv("PAYHIP_WEBHOOK_SECRET", os.Getenv("PAYHIP_API_KEY")),
		PaddleWebhookSecret:     os.Getenv("PADDLE_WEBHOOK_SECRET_KEY"),
		FastSpringWebhookSecret: os.Getenv("FASTSPRING_WEBHOOK_SECRET"),
		StripeWebhookSecret:     os.Getenv("STRIPE_WEBHOOK_SECRET"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}

	if cfg.ReplicateAPIToken == "" {
		return nil, fmt.Errorf("REPLICATE_API_TOKEN is required")
	}

	if cfg.ClerkSecretKey == "" {
		return nil, fmt.Errorf("CLERK_SECRET_KEY is required")
	}

	if cfg.PayPalAPIBase == "" {
		if cfg.PayPalEnv == "sandbox" {
			cfg.PayPalAPIBase = "https://api-m.sandbox.paypal.com"
		} else {
			cfg.PayPalAPIBase = "https://api-m.paypal.com"
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
