package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	DatabaseURL          string `env:"DATABASE_URL,required"`
	RedisURL             string `env:"REDIS_URL,required"`
	RPCURL               string `env:"RPC_URL,required"`
	ChainID              int64  `env:"CHAIN_ID" envDefault:"10143"`
	RelayerPrivateKey    string `env:"RELAYER_PRIVATE_KEY,required"`
	ForwarderContract    string `env:"FORWARDER_CONTRACT,required"`
	SubscriptionContract string `env:"SUBSCRIPTION_CONTRACT,required"`

	ReceiptTimeoutSeconds  int    `env:"RECEIPT_TIMEOUT_SECONDS" envDefault:"90"`
	RenewalIntervalMinutes int    `env:"RENEWAL_INTERVAL_MINUTES" envDefault:"60"`
	LogLevel               string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) ReceiptTimeout() time.Duration {
	return time.Duration(c.ReceiptTimeoutSeconds) * time.Second
}

func (c *Config) RenewalInterval() time.Duration {
	return time.Duration(c.RenewalIntervalMinutes) * time.Minute
}

func (c *Config) Validate() error {
	if c.ChainID <= 0 {
		return fmt.Errorf("CHAIN_ID must be positive, got %d", c.ChainID)
	}
	if c.RenewalIntervalMinutes <= 0 {
		return fmt.Errorf("RENEWAL_INTERVAL_MINUTES must be positive, got %d", c.RenewalIntervalMinutes)
	}
	if strings.HasPrefix(c.RedisURL, "redis://") && !strings.Contains(c.RedisURL, "localhost") {
		log.Warn().Msg("REDIS_URL uses redis:// (not TLS): consider using rediss://")
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
