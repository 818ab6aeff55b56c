package config

import (
	"os"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Bitnob   BitnobConfig
	Payment  PaymentConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

// BitnobConfig configures the payment provider client.
type BitnobConfig struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
	WebhookBaseURL string // callback will be WebhookBaseURL + /api/v1/webhooks/bitnob
}

type PaymentConfig struct {
	Currency          string
	ProcessingFeeRate decimal.Decimal // fraction of subtotal, e.g. 0.015
	SettlementWallet  string          // provider wallet used to pay invoices
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getenv("PORT", "8099"),
			Env:          getenv("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             getenv("DATABASE_DSN", "mpola:mpola@tcp(localhost:3306)/mpola?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret:  getenv("JWT_ACCESS_SECRET", "change-me-in-production"),
			RefreshSecret: getenv("JWT_REFRESH_SECRET", "change-me-refresh"),
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 168 * time.Hour,
			Issuer:        "mpola",
		},
		Bitnob: BitnobConfig{
			BaseURL:        getenv("BITNOB_BASE_URL", "https://api.bitnob.co/api/v1"),
			APIKey:         os.Getenv("BITNOB_API_KEY"),
			RequestTimeout: 30 * time.Second,
			WebhookBaseURL: getenv("WEBHOOK_BASE_URL", "https://mpola.app"),
		},
		Payment: PaymentConfig{
			Currency:          getenv("PAYMENT_CURRENCY", "UGX"),
			ProcessingFeeRate: decimal.NewFromFloat(0.015),
			SettlementWallet:  getenv("SETTLEMENT_WALLET", "USD"),
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
