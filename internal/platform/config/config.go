// Package config loads service configuration from DOCVERIFY_* environment
// variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration.
type Config struct {
	Addr        string `env:"DOCVERIFY_ADDR" envDefault:":8080"`
	Environment string `env:"DOCVERIFY_ENV" envDefault:"local"`
	LogLevel    string `env:"DOCVERIFY_LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"DOCVERIFY_LOG_FORMAT" envDefault:"json"`

	// EncryptionKey is the hex encoded 32-byte payload master key.
	EncryptionKey string `env:"DOCVERIFY_ENCRYPTION_KEY"`

	// AdminToken enables the audit trail API. Empty leaves it unmounted.
	AdminToken string `env:"DOCVERIFY_ADMIN_TOKEN"`

	JWT        JWTConfig        `envPrefix:"DOCVERIFY_JWT_"`
	Redis      RedisConfig      `envPrefix:"DOCVERIFY_REDIS_"`
	Postgres   PostgresConfig   `envPrefix:"DOCVERIFY_POSTGRES_"`
	Kafka      KafkaConfig      `envPrefix:"DOCVERIFY_KAFKA_"`
	Providers  ProvidersConfig  `envPrefix:"DOCVERIFY_PROVIDER_"`
	Security   SecurityConfig   `envPrefix:"DOCVERIFY_SECURITY_"`
	Compliance ComplianceConfig `envPrefix:"DOCVERIFY_COMPLIANCE_"`
}

type JWTConfig struct {
	SigningKey string `env:"SIGNING_KEY"`
	Issuer     string `env:"ISSUER" envDefault:"docverify"`
	Audience   string `env:"AUDIENCE" envDefault:"docverify-api"`
}

// RedisConfig configures the shared Redis client. An empty URL keeps rate
// limits and fingerprints in process.
type RedisConfig struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

// PostgresConfig configures the audit trail database. An empty DSN keeps
// trails in memory.
type PostgresConfig struct {
	DSN             string        `env:"DSN"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
	Migrate         bool          `env:"MIGRATE" envDefault:"true"`
}

// KafkaConfig configures trail publication. No brokers disables it.
type KafkaConfig struct {
	Brokers          []string `env:"BROKERS" envSeparator:","`
	Topic            string   `env:"TOPIC" envDefault:"docverify.verification-trails"`
	ClientID         string   `env:"CLIENT_ID" envDefault:"docverify"`
	CreateTopic      bool     `env:"CREATE_TOPIC" envDefault:"false"`
	TopicPartitions  int32    `env:"TOPIC_PARTITIONS" envDefault:"3"`
	TopicReplication int16    `env:"TOPIC_REPLICATION" envDefault:"1"`
}

// ProvidersConfig maps provider IDs to extraction endpoints. Providers
// without an endpoint run in static mode. FallbackClass "none" disables
// fallback routing.
type ProvidersConfig struct {
	Endpoints        map[string]string `env:"ENDPOINTS" envSeparator:"," envKeyValSeparator:"="`
	APIKeys          map[string]string `env:"API_KEYS" envSeparator:"," envKeyValSeparator:"="`
	Timeout          time.Duration     `env:"TIMEOUT" envDefault:"30s"`
	FallbackClass    string            `env:"FALLBACK_CLASS" envDefault:"bank_statement"`
	StaticConfidence float64           `env:"STATIC_CONFIDENCE" envDefault:"0.9"`
}

type SecurityConfig struct {
	MaxUploadBytes int           `env:"MAX_UPLOAD_BYTES" envDefault:"52428800"`
	ScannerURL     string        `env:"SCANNER_URL"`
	ScannerTimeout time.Duration `env:"SCANNER_TIMEOUT" envDefault:"10s"`
	SubmitterLimit int           `env:"SUBMITTER_LIMIT" envDefault:"20"`
	AddressLimit   int           `env:"ADDRESS_LIMIT" envDefault:"60"`
	RateWindow     time.Duration `env:"RATE_WINDOW" envDefault:"1h"`
	FingerprintTTL time.Duration `env:"FINGERPRINT_TTL" envDefault:"2160h"`
	ConsentMaxAge  time.Duration `env:"CONSENT_MAX_AGE" envDefault:"24h"`
}

type ComplianceConfig struct {
	Jurisdiction  string `env:"JURISDICTION" envDefault:"IE"`
	RetentionDays int    `env:"RETENTION_DAYS" envDefault:"2555"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations that cannot start. Local environments get
// development defaults for secrets.
func (c *Config) Validate() error {
	if c.EncryptionKey == "" {
		if c.Environment != "local" {
			return errors.New("DOCVERIFY_ENCRYPTION_KEY is required")
		}
		c.EncryptionKey = devEncryptionKey
	}
	if key, err := hex.DecodeString(c.EncryptionKey); err != nil || len(key) != 32 {
		return errors.New("DOCVERIFY_ENCRYPTION_KEY must be 64 hex characters")
	}
	if c.JWT.SigningKey == "" {
		if c.Environment != "local" {
			return errors.New("DOCVERIFY_JWT_SIGNING_KEY is required")
		}
		c.JWT.SigningKey = "dev-secret-key-change-in-production"
	}
	if c.Providers.StaticConfidence < 0 || c.Providers.StaticConfidence > 1 {
		return errors.New("DOCVERIFY_PROVIDER_STATIC_CONFIDENCE must be within [0,1]")
	}
	return nil
}

// EncryptionKeyBytes returns the decoded master key. Call after Validate.
func (c *Config) EncryptionKeyBytes() []byte {
	key, _ := hex.DecodeString(c.EncryptionKey)
	return key
}

const devEncryptionKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
