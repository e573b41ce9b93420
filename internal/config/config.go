package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Security  SecurityConfig  `yaml:"security"`
	Session   SessionConfig   `yaml:"session"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"15s"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-default:"postgres"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB" env-default:"mortiscope"`
	SSLMode  string `yaml:"sslmode" env:"POSTGRES_SSLMODE" env-default:"disable"`
}

// DSN builds the pgx connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled" env:"KAFKA_ENABLED" env-default:"false"`
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"auth-events"`
}

type SecurityConfig struct {
	// EncryptionKey is the symmetric secret for the encryption module:
	// 32 bytes, hex encoded (64 characters).
	EncryptionKey string `yaml:"encryption_key" env:"ENCRYPTION_KEY"`
	TOTPIssuer    string `yaml:"totp_issuer" env:"TOTP_ISSUER" env-default:"Mortiscope"`
}

type SessionConfig struct {
	// CookieSecret is the shared secret the edge decoder derives its
	// session-cookie key from. Distinct from the encryption key.
	CookieSecret string        `yaml:"cookie_secret" env:"SESSION_COOKIE_SECRET"`
	CookieName   string        `yaml:"cookie_name" env:"SESSION_COOKIE_NAME" env-default:"authjs.session-token"`
	MaxAge       time.Duration `yaml:"max_age" env:"SESSION_MAX_AGE" env-default:"720h"`
}

type RateLimitConfig struct {
	Enabled         bool          `yaml:"enabled" env:"RATE_LIMIT_ENABLED" env-default:"true"`
	TwoFactorLimit  int           `yaml:"two_factor_limit" env:"RATE_LIMIT_2FA_LIMIT" env-default:"5"`
	TwoFactorWindow time.Duration `yaml:"two_factor_window" env:"RATE_LIMIT_2FA_WINDOW" env-default:"1m"`
}

type LoggingConfig struct {
	Level       string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Environment string `yaml:"environment" env:"APP_ENV" env-default:"development"`
}

// Load reads configuration from an optional YAML file and the
// environment. A .env file is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from environment: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the secrets the subsystem cannot run without. Both
// secrets must be present at startup; the process fails fast otherwise.
func (c *Config) Validate() error {
	if c.Security.EncryptionKey == "" {
		return errors.New("config: ENCRYPTION_KEY is required")
	}
	key, err := hex.DecodeString(c.Security.EncryptionKey)
	if err != nil {
		return fmt.Errorf("config: ENCRYPTION_KEY must be hex encoded: %w", err)
	}
	if len(key) != 32 {
		return fmt.Errorf("config: ENCRYPTION_KEY must be 32 bytes (64 hex characters), got %d bytes", len(key))
	}
	if c.Session.CookieSecret == "" {
		return errors.New("config: SESSION_COOKIE_SECRET is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("config: KAFKA_BROKERS is required when Kafka is enabled")
	}
	return nil
}
