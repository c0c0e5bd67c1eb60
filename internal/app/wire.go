package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/Elmasricoweb/mas-rico-internet/internal/blob/s3"
	"github.com/Elmasricoweb/mas-rico-internet/internal/cache/redis"
	"github.com/Elmasricoweb/mas-rico-internet/internal/config"
	"github.com/Elmasricoweb/mas-rico-internet/internal/crypto"
	"github.com/Elmasricoweb/mas-rico-internet/internal/domain"
	"github.com/Elmasricoweb/mas-rico-internet/internal/metrics"
	"github.com/Elmasricoweb/mas-rico-internet/internal/notify"
	"github.com/Elmasricoweb/mas-rico-internet/internal/platform/identity"
	"github.com/Elmasricoweb/mas-rico-internet/internal/platform/psp"
	"github.com/Elmasricoweb/mas-rico-internet/internal/store/postgres"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	Bidders    domain.BidderStore
	Throne     domain.ThroneStore
	History    domain.HistoryStore
	Settlement domain.SettlementStore

	// Caches (serve mode only)
	ThroneCache domain.ThroneCache
	RateLimiter domain.RateLimiter

	// Platform clients (serve mode only)
	Payments *psp.Client
	Identity identity.Verifier // nil when auth is disabled

	// WebhookVerifier authenticates payment confirmations.
	WebhookVerifier *crypto.WebhookVerifier

	// Archiver is set when object storage is configured.
	Archiver *s3blob.Archiver

	Notifier *notify.Notifier
	Metrics  *metrics.Metrics
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	serve := strings.ToLower(cfg.Mode) == "serve"
	deps := &Dependencies{
		Metrics: metrics.New(),
	}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.Bidders = postgres.NewBidderStore(pool)
	deps.Throne = postgres.NewThroneStore(pool)
	historyStore := postgres.NewHistoryStore(pool)
	deps.History = historyStore
	deps.Settlement = postgres.NewSettlementStore(pool)

	// --- Redis (serve mode only) ---
	if serve {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.ThroneCache = redis.NewThroneCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
	}

	// --- S3 blob storage (when archival is in play) ---
	if cfg.Archive.Enabled || !serve {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			s3blob.NewReader(s3Client),
			historyStore,
			deps.Metrics,
			logger,
		)
	}

	// --- Payment processor and webhook verification (serve mode only) ---
	if serve {
		deps.Payments = psp.NewClient(cfg.PSP.BaseURL, cfg.PSP.APIKey)

		secret, err := crypto.LoadSecret(crypto.SecretConfig{
			RawSecret:     cfg.Webhook.Secret,
			EncryptedPath: cfg.Webhook.EncryptedPath,
			Password:      cfg.Webhook.SecretPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: webhook secret: %w", err)
		}
		deps.WebhookVerifier = crypto.NewWebhookVerifier(secret, cfg.Webhook.ToleranceWindow.Duration)

		if cfg.Identity.BaseURL != "" {
			deps.Identity = identity.NewClient(cfg.Identity.BaseURL, cfg.Identity.APIKey)
		} else {
			logger.Warn("identity provider not configured, authentication disabled")
		}
	}

	// --- Operator alerts ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
