package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every runtime setting the application reads from the
// environment. A .env file is honoured in development; production relies on
// real environment variables only.
type Config struct {
	Environment string
	HTTPAddr    string
	DatabaseURL string

	JWTSecret string
	TokenTTL  time.Duration

	FedaPay FedaPayConfig

	// BootstrapInviteCode is the referral code owned by the seeded root
	// account. Registration is invite-only, so the graph needs a root.
	BootstrapInviteCode string

	WithdrawalMinimum int64
	// WithdrawalFeePercent is applied to the gross amount; the account is
	// debited the gross, the payout carries the net.
	WithdrawalFeePercent int

	AppBaseURL string
}

// FedaPayConfig configures the payment processor client and the shared
// webhook secret.
type FedaPayConfig struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
	Environment   string
	CallbackURL   string
	Currency      string
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load builds a Config from the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment: getEnv("APP_ENV", "development"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		TokenTTL:    getDuration("TOKEN_TTL", 24*time.Hour),
		FedaPay: FedaPayConfig{
			BaseURL:       getEnv("FEDAPAY_BASE_URL", "https://api.fedapay.com"),
			APIKey:        getEnv("FEDAPAY_SECRET_KEY", ""),
			WebhookSecret: getEnv("FEDAPAY_WEBHOOK_SECRET", ""),
			Environment:   getEnv("FEDAPAY_ENVIRONMENT", "sandbox"),
			CallbackURL:   getEnv("FEDAPAY_CALLBACK_URL", ""),
			Currency:      getEnv("FEDAPAY_CURRENCY", "XOF"),
		},
		BootstrapInviteCode:  getEnv("BOOTSTRAP_INVITE_CODE", "ROOT00"),
		WithdrawalMinimum:    getInt64("WITHDRAWAL_MINIMUM", 1000),
		WithdrawalFeePercent: getInt("WITHDRAWAL_FEE_PERCENT", 15),
		AppBaseURL:           getEnv("APP_BASE_URL", "https://app.investapp.local"),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
