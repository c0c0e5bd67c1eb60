// Package config defines the top-level configuration for the bidding ledger
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by MASRICO_* environment
// variables.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	PSP      PSPConfig      `toml:"psp"`
	Identity IdentityConfig `toml:"identity"`
	Auction  AuctionConfig  `toml:"auction"`
	Webhook  WebhookConfig  `toml:"webhook"`
	Archive  ArchiveConfig  `toml:"archive"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`

	// BidRateLimit is the number of bid initiations allowed per caller per
	// BidRateWindow.
	BidRateLimit  int      `toml:"bid_rate_limit"`
	BidRateWindow duration `toml:"bid_rate_window"`
}

// PostgresConfig holds PostgreSQL connection parameters. Set DSN to use a
// full connection string; otherwise the discrete fields are assembled into
// one.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the history
// archive.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// PSPConfig holds payment processor API credentials.
type PSPConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

// IdentityConfig holds identity provider API credentials. Leave BaseURL
// empty to run without authentication (local development only).
type IdentityConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

// AuctionConfig holds the bidding rules.
type AuctionConfig struct {
	// MinPaymentCents is the processor's minimum charge in minor units.
	MinPaymentCents int64 `toml:"min_payment_cents"`

	// EpsilonCents is the amount by which a new total must exceed the
	// throne to win it, in minor units.
	EpsilonCents int64 `toml:"epsilon_cents"`

	// SettleMaxRetries bounds transaction re-runs after store conflicts.
	SettleMaxRetries int `toml:"settle_max_retries"`

	// DedupRetention is how long settled payment references stay in the
	// in-memory replay filter.
	DedupRetention duration `toml:"dedup_retention"`
}

// WebhookConfig holds the payment webhook signing secret. Provide the
// secret directly, or point at an encrypted file plus its password.
type WebhookConfig struct {
	Secret          string   `toml:"secret"`
	EncryptedPath   string   `toml:"encrypted_path"`
	SecretPassword  string   `toml:"secret_password"`
	ToleranceWindow duration `toml:"tolerance_window"`
}

// ArchiveConfig holds history archival parameters.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
}

// NotifyConfig holds operator alert channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration wraps time.Duration so the TOML decoder can parse strings like
// "5m" or "30s".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:          8000,
			CORSOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
			BidRateLimit:  10,
			BidRateWindow: duration{time.Minute},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "masrico",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "masrico-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Auction: AuctionConfig{
			MinPaymentCents:  50,
			EpsilonCents:     1,
			SettleMaxRetries: 5,
			DedupRetention:   duration{24 * time.Hour},
		},
		Webhook: WebhookConfig{
			ToleranceWindow: duration{5 * time.Minute},
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 90,
			Interval:      duration{24 * time.Hour},
		},
		Notify: NotifyConfig{
			Events: []string{"settlement_unprocessable", "archive_failed"},
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve":   true,
	"archive": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, archive)", c.Mode))
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.BidRateLimit < 1 {
		errs = append(errs, "server: bid_rate_limit must be >= 1")
	}
	if c.Server.BidRateWindow.Duration <= 0 {
		errs = append(errs, "server: bid_rate_window must be positive")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 is only required when archival is enabled or in archive mode.
	if c.Archive.Enabled || strings.ToLower(c.Mode) == "archive" {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archival is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archival is enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
	}

	// PSP — required to initiate bids.
	if strings.ToLower(c.Mode) == "serve" {
		if c.PSP.BaseURL == "" {
			errs = append(errs, "psp: base_url must not be empty")
		}
		if c.PSP.APIKey == "" {
			errs = append(errs, "psp: api_key must not be empty")
		}
		if c.Webhook.Secret == "" && c.Webhook.EncryptedPath == "" {
			errs = append(errs, "webhook: either secret or encrypted_path must be set")
		}
		if c.Webhook.EncryptedPath != "" && c.Webhook.SecretPassword == "" {
			errs = append(errs, "webhook: secret_password is required when encrypted_path is set")
		}
	}
	if c.Webhook.ToleranceWindow.Duration <= 0 {
		errs = append(errs, "webhook: tolerance_window must be positive")
	}

	// Auction
	if c.Auction.MinPaymentCents < 1 {
		errs = append(errs, "auction: min_payment_cents must be >= 1")
	}
	if c.Auction.EpsilonCents < 1 {
		errs = append(errs, "auction: epsilon_cents must be >= 1")
	}
	if c.Auction.SettleMaxRetries < 1 {
		errs = append(errs, "auction: settle_max_retries must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
