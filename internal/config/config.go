package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type HTTPConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type DBConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type AuthConfig struct {
	AccessSecret string
}

type BillingConfig struct {
	CancelGrace      time.Duration
	DefaultVATRate   decimal.Decimal
	AggregateTimeout time.Duration
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Billing     BillingConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 7090)
	v.SetDefault("STORAGE_DRIVER", StoragePostgres)
	v.SetDefault("BILLING_CANCEL_GRACE", "48h")
	v.SetDefault("BILLING_DEFAULT_VAT_RATE", "0.20")
	v.SetDefault("BILLING_AGGREGATE_TIMEOUT", "60s")

	_ = v.ReadInConfig()

	vatRate, err := decimal.NewFromString(strings.TrimSpace(v.GetString("BILLING_DEFAULT_VAT_RATE")))
	if err != nil {
		return nil, fmt.Errorf("BILLING_DEFAULT_VAT_RATE: %w", err)
	}

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host:           v.GetString("HTTP_HOST"),
			Port:           v.GetInt("HTTP_PORT"),
			AllowedOrigins: parseList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			Driver:          strings.ToLower(v.GetString("STORAGE_DRIVER")),
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Billing: BillingConfig{
			CancelGrace:      v.GetDuration("BILLING_CANCEL_GRACE"),
			DefaultVATRate:   vatRate,
			AggregateTimeout: v.GetDuration("BILLING_AGGREGATE_TIMEOUT"),
		},
	}

	if len(cfg.HTTP.AllowedOrigins) == 0 {
		cfg.HTTP.AllowedOrigins = []string{"*"}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.DB.Driver {
	case StoragePostgres:
		if cfg.DB.DSN == "" {
			return fmt.Errorf("DB_DSN is required")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q", StoragePostgres, StorageMemory)
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.Billing.CancelGrace <= 0 {
		return fmt.Errorf("BILLING_CANCEL_GRACE must be positive")
	}
	if cfg.Billing.AggregateTimeout <= 0 {
		return fmt.Errorf("BILLING_AGGREGATE_TIMEOUT must be positive")
	}
	if cfg.Billing.DefaultVATRate.IsNegative() || cfg.Billing.DefaultVATRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("BILLING_DEFAULT_VAT_RATE must be a fraction in [0, 1)")
	}
	return nil
}

func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
