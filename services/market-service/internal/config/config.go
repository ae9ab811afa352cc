// Package config reads the market service settings from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v9"

	"github.com/floroz/bazaar/pkg/auth"
)

type Config struct {
	DBURL     string `env:"MARKET_DB_URL,required"`
	RabbitURL string `env:"RABBITMQ_URL,required"`
	RedisURL  string `env:"REDIS_URL" envDefault:"localhost:6379"`
	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":8080"`

	PrivateKeyPath string        `env:"AUTH_PRIVATE_KEY_PATH"`
	PublicKeyPath  string        `env:"AUTH_PUBLIC_KEY_PATH"`
	Issuer         string        `env:"AUTH_ISSUER" envDefault:"bazaar"`
	AccessTTL      time.Duration `env:"AUTH_ACCESS_TTL" envDefault:"24h"`

	LockTimeout         time.Duration `env:"DB_LOCK_TIMEOUT" envDefault:"3s"`
	OutboxBatchSize     int           `env:"OUTBOX_BATCH_SIZE" envDefault:"10"`
	OutboxInterval      time.Duration `env:"OUTBOX_INTERVAL" envDefault:"1s"`
	ExpirySweepInterval time.Duration `env:"EXPIRY_SWEEP_INTERVAL" envDefault:"30s"`
	ActiveAuctionsTTL   time.Duration `env:"ACTIVE_AUCTIONS_CACHE_TTL" envDefault:"30s"`
	Exchange            string        `env:"MARKET_EXCHANGE" envDefault:"market.events"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if (cfg.PrivateKeyPath == "") != (cfg.PublicKeyPath == "") {
		return nil, fmt.Errorf("AUTH_PRIVATE_KEY_PATH and AUTH_PUBLIC_KEY_PATH must be set together")
	}
	if cfg.OutboxBatchSize <= 0 {
		return nil, fmt.Errorf("OUTBOX_BATCH_SIZE must be positive, got %d", cfg.OutboxBatchSize)
	}
	return &cfg, nil
}

// EphemeralKeys reports whether no key pair is configured. Tokens signed
// with a generated pair do not survive a restart.
func (c *Config) EphemeralKeys() bool {
	return c.PrivateKeyPath == ""
}

// Signer builds the token signer from the configured key files, or from a
// freshly generated pair when none are configured.
func (c *Config) Signer() (*auth.Signer, error) {
	var privatePEM, publicPEM []byte
	var err error

	if c.EphemeralKeys() {
		privatePEM, publicPEM, err = auth.GenerateKeyPair()
		if err != nil {
			return nil, fmt.Errorf("failed to generate key pair: %w", err)
		}
	} else {
		if privatePEM, err = os.ReadFile(c.PrivateKeyPath); err != nil {
			return nil, fmt.Errorf("failed to read private key: %w", err)
		}
		if publicPEM, err = os.ReadFile(c.PublicKeyPath); err != nil {
			return nil, fmt.Errorf("failed to read public key: %w", err)
		}
	}

	return auth.NewSigner(privatePEM, publicPEM, c.Issuer, c.AccessTTL)
}
