package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Elmasricoweb/mas-rico-internet/internal/domain"
	"github.com/Elmasricoweb/mas-rico-internet/internal/notify"
	"github.com/Elmasricoweb/mas-rico-internet/internal/quote"
	"github.com/Elmasricoweb/mas-rico-internet/internal/server"
	"github.com/Elmasricoweb/mas-rico-internet/internal/server/handler"
	"github.com/Elmasricoweb/mas-rico-internet/internal/service"
	"github.com/Elmasricoweb/mas-rico-internet/internal/settle"
)

// paymentCurrency is the ISO currency all bids are charged in.
const paymentCurrency = "USD"

// ServeMode runs the HTTP API, the settlement engine behind the payment
// webhook, and the periodic background workers. It blocks until the context
// is cancelled.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	quoter := quote.NewQuoter(
		domain.Cents(a.cfg.Auction.MinPaymentCents),
		domain.Cents(a.cfg.Auction.EpsilonCents),
	)

	dedup := settle.NewDedup(a.cfg.Auction.DedupRetention.Duration)
	engine := settle.NewEngine(deps.Settlement, dedup, deps.Metrics, a.logger, a.cfg.Auction.SettleMaxRetries)

	bidSvc := service.NewBidService(
		deps.Bidders, deps.Throne, deps.ThroneCache,
		quoter, deps.Payments, paymentCurrency,
		deps.Metrics, a.logger,
	)
	throneSvc := service.NewThroneService(deps.Throne, deps.Bidders, deps.ThroneCache, a.logger)
	historySvc := service.NewHistoryService(deps.History)

	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(a.logger),
		Bids:    handler.NewBidHandler(bidSvc, a.logger),
		Webhook: handler.NewWebhookHandler(deps.WebhookVerifier, engine, throneSvc, deps.Notifier, deps.Metrics, a.logger),
		Throne:  handler.NewThroneHandler(throneSvc, a.logger),
		History: handler.NewHistoryHandler(historySvc, a.logger),
		Metrics: deps.Metrics.Handler(),
	}

	srv := server.NewServer(server.Config{
		Port:          a.cfg.Server.Port,
		CORSOrigins:   a.cfg.Server.CORSOrigins,
		BidRateLimit:  a.cfg.Server.BidRateLimit,
		BidRateWindow: a.cfg.Server.BidRateWindow.Duration,
	}, handlers, deps.Identity, deps.RateLimiter, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	// Replay-filter maintenance.
	g.Go(func() error {
		interval := a.cfg.Auction.DedupRetention.Duration
		if interval <= 0 || interval > time.Hour {
			interval = time.Hour
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				dedup.Cleanup()
			}
		}
	})

	// Periodic history archival.
	if a.cfg.Archive.Enabled && deps.Archiver != nil {
		g.Go(func() error {
			interval := a.cfg.Archive.Interval.Duration
			if interval <= 0 {
				interval = 24 * time.Hour
			}
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					a.runArchive(ctx, deps)
				}
			}
		})
	}

	return g.Wait()
}

// ArchiveMode performs a single archival run and exits. Intended for cron or
// manual invocation.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode",
		slog.Int("retention_days", a.cfg.Archive.RetentionDays),
	)
	if deps.Archiver == nil {
		return fmt.Errorf("archive mode: object storage not configured")
	}

	before := time.Now().UTC().AddDate(0, 0, -a.cfg.Archive.RetentionDays)
	n, err := deps.Archiver.ArchiveHistory(ctx, before)
	if err != nil {
		return fmt.Errorf("archive mode: %w", err)
	}

	a.logger.InfoContext(ctx, "archive run complete",
		slog.Int64("events", n),
		slog.Time("before", before),
	)
	return nil
}

// runArchive performs one archival pass and alerts operators on failure.
func (a *App) runArchive(ctx context.Context, deps *Dependencies) {
	before := time.Now().UTC().AddDate(0, 0, -a.cfg.Archive.RetentionDays)
	n, err := deps.Archiver.ArchiveHistory(ctx, before)
	if err != nil {
		a.logger.ErrorContext(ctx, "history archival failed",
			slog.String("error", err.Error()),
		)
		if notifyErr := deps.Notifier.Notify(ctx, notify.EventArchiveFailed,
			"History archival failed", err.Error()); notifyErr != nil {
			a.logger.WarnContext(ctx, "operator notification failed",
				slog.String("error", notifyErr.Error()),
			)
		}
		return
	}
	if n > 0 {
		a.logger.InfoContext(ctx, "history archival complete",
			slog.Int64("events", n),
		)
	}
}
