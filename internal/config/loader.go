package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MASRICO_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MASRICO_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "MASRICO_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "MASRICO_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.BidRateLimit, "MASRICO_SERVER_BID_RATE_LIMIT")
	setDuration(&cfg.Server.BidRateWindow, "MASRICO_SERVER_BID_RATE_WINDOW")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "MASRICO_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "MASRICO_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MASRICO_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MASRICO_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MASRICO_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MASRICO_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MASRICO_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "MASRICO_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "MASRICO_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "MASRICO_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "MASRICO_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MASRICO_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MASRICO_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MASRICO_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MASRICO_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MASRICO_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "MASRICO_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MASRICO_S3_REGION")
	setStr(&cfg.S3.Bucket, "MASRICO_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MASRICO_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MASRICO_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MASRICO_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MASRICO_S3_FORCE_PATH_STYLE")

	// ── PSP ──
	setStr(&cfg.PSP.BaseURL, "MASRICO_PSP_BASE_URL")
	setStr(&cfg.PSP.APIKey, "MASRICO_PSP_API_KEY")

	// ── Identity ──
	setStr(&cfg.Identity.BaseURL, "MASRICO_IDENTITY_BASE_URL")
	setStr(&cfg.Identity.APIKey, "MASRICO_IDENTITY_API_KEY")

	// ── Auction ──
	setInt64(&cfg.Auction.MinPaymentCents, "MASRICO_AUCTION_MIN_PAYMENT_CENTS")
	setInt64(&cfg.Auction.EpsilonCents, "MASRICO_AUCTION_EPSILON_CENTS")
	setInt(&cfg.Auction.SettleMaxRetries, "MASRICO_AUCTION_SETTLE_MAX_RETRIES")
	setDuration(&cfg.Auction.DedupRetention, "MASRICO_AUCTION_DEDUP_RETENTION")

	// ── Webhook ──
	setStr(&cfg.Webhook.Secret, "MASRICO_WEBHOOK_SECRET")
	setStr(&cfg.Webhook.EncryptedPath, "MASRICO_WEBHOOK_ENCRYPTED_PATH")
	setStr(&cfg.Webhook.SecretPassword, "MASRICO_WEBHOOK_SECRET_PASSWORD")
	setDuration(&cfg.Webhook.ToleranceWindow, "MASRICO_WEBHOOK_TOLERANCE_WINDOW")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "MASRICO_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "MASRICO_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "MASRICO_ARCHIVE_INTERVAL")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "MASRICO_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MASRICO_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MASRICO_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MASRICO_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "MASRICO_MODE")
	setStr(&cfg.LogLevel, "MASRICO_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
