package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
)

const (
	LedgerBackendPostgres = "postgres"
	LedgerBackendRedis    = "redis"
)

type Config struct {
	DatabaseDSN    string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL    string `env:"RABBITMQ_URL,required=true"`
	RedisURL       string `env:"REDIS_URL,required=true"`
	ProviderURL    string `env:"PROVIDER_URL,required=true"`
	ProviderAPIKey string `env:"PROVIDER_API_KEY,required=true"`

	AdminRecipient    string `env:"ADMIN_RECIPIENT,required=true"`
	SenderEmail       string `env:"SENDER_EMAIL,required=true"`
	SenderName        string `env:"SENDER_NAME,default=Website"`
	ReplyToEmail      string `env:"REPLY_TO_EMAIL"`
	SiteName          string `env:"SITE_NAME"`
	CustomerAutoReply bool   `env:"CUSTOMER_AUTO_REPLY,default=true"`

	LedgerBackend          string        `env:"LEDGER_BACKEND,default=postgres"`
	RateLimitPerSec        int           `env:"RATE_LIMIT_PER_SEC,default=10"`
	WorkerConcurrency      int           `env:"WORKER_CONCURRENCY,default=4"`
	MaxDeliveries          int           `env:"MAX_DELIVERIES,default=8"`
	RetryDelayMs           int           `env:"RETRY_DELAY_MS,default=30000"`
	RedeliveryScanInterval time.Duration `env:"REDELIVERY_SCAN_INTERVAL,default=60s"`
	RedeliveryStaleAfter   time.Duration `env:"REDELIVERY_STALE_AFTER,default=10m"`

	DBMaxOpenConns int    `env:"DB_MAX_OPEN_CONNS,default=25"`
	APIPort        int    `env:"API_PORT,default=8080"`
	LogLevel       string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.LedgerBackend = strings.ToLower(strings.TrimSpace(c.LedgerBackend))
	switch c.LedgerBackend {
	case LedgerBackendPostgres, LedgerBackendRedis:
	default:
		return fmt.Errorf("LEDGER_BACKEND must be %q or %q, got %q", LedgerBackendPostgres, LedgerBackendRedis, c.LedgerBackend)
	}
	if c.RateLimitPerSec <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_SEC must be positive")
	}
	if c.WorkerConcurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive")
	}
	if c.MaxDeliveries <= 0 {
		return fmt.Errorf("MAX_DELIVERIES must be positive")
	}
	if c.RetryDelayMs <= 0 || c.RetryDelayMs > 1<<31-1 {
		return fmt.Errorf("RETRY_DELAY_MS out of range")
	}
	if c.RedeliveryScanInterval <= 0 || c.RedeliveryStaleAfter <= 0 {
		return fmt.Errorf("redelivery intervals must be positive")
	}
	return nil
}

// DefaultSettings returns the settings used until an operator stores an
// override, and for any override field left blank.
func (c *Config) DefaultSettings() domain.Settings {
	return domain.Settings{
		CustomerAutoReplyEnabled: c.CustomerAutoReply,
		SenderName:               c.SenderName,
		SenderEmail:              c.SenderEmail,
		AdminRecipient:           c.AdminRecipient,
		ReplyToEmail:             c.ReplyToEmail,
		SiteName:                 c.SiteName,
	}
}
