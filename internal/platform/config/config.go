package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Server captures process level configuration. Empty connection settings select
// in-memory implementations so the service runs without infrastructure.
type Server struct {
	Addr            string        `env:"ORGPROFILE_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	JWTSigningKey   string        `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	JWTIssuer       string        `env:"JWT_ISSUER" envDefault:"orgprofile"`

	Database       Database
	Kafka          Kafka
	RedisURL       string `env:"REDIS_URL"`
	Legacy         Legacy
	Classification string `env:"INDUSTRY_CLASSIFICATION_FILE"`
}

// Database configures the primary and legacy stores. LegacyURL defaults to URL.
type Database struct {
	URL             string        `env:"DATABASE_URL"`
	LegacyURL       string        `env:"LEGACY_DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"20"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
	Migrate         bool          `env:"DATABASE_MIGRATE" envDefault:"true"`
}

// Kafka configures the company change feed.
type Kafka struct {
	Brokers     []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic       string   `env:"KAFKA_COMPANY_TOPIC" envDefault:"company.changed"`
	Partitions  int32    `env:"KAFKA_COMPANY_TOPIC_PARTITIONS" envDefault:"3"`
	EnsureTopic bool     `env:"KAFKA_ENSURE_TOPIC" envDefault:"true"`
}

// Legacy configures the optional push of updates to the legacy system.
type Legacy struct {
	SendUpdates bool          `env:"LEGACY_SEND_UPDATES" envDefault:"false"`
	AdapterURL  string        `env:"LEGACY_ADAPTER_URL"`
	Timeout     time.Duration `env:"LEGACY_ADAPTER_TIMEOUT" envDefault:"5s"`
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Database.LegacyURL == "" {
		cfg.Database.LegacyURL = cfg.Database.URL
	}
	if cfg.Legacy.SendUpdates && cfg.Legacy.AdapterURL == "" {
		return Server{}, fmt.Errorf("LEGACY_ADAPTER_URL is required when LEGACY_SEND_UPDATES is enabled")
	}
	return cfg, nil
}
