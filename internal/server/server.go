// Package server assembles the HTTP API: bid initiation, the payment
// confirmation webhook, and the public read endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Elmasricoweb/mas-rico-internet/internal/domain"
	"github.com/Elmasricoweb/mas-rico-internet/internal/platform/identity"
	"github.com/Elmasricoweb/mas-rico-internet/internal/server/handler"
	"github.com/Elmasricoweb/mas-rico-internet/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string

	// BidRateLimit/BidRateWindow throttle POST /api/bids per bidder.
	BidRateLimit  int
	BidRateWindow time.Duration
}

// Handlers aggregates all HTTP handlers the server registers.
type Handlers struct {
	Health  *handler.HealthHandler
	Bids    *handler.BidHandler
	Webhook *handler.WebhookHandler
	Throne  *handler.ThroneHandler
	History *handler.HistoryHandler
	Metrics http.Handler // optional
}

// Server is the HTTP API server for the bidding ledger.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered. verifier may be nil
// to disable authentication (tests); limiter may be nil to disable rate
// limiting.
func NewServer(cfg Config, handlers Handlers, verifier identity.Verifier, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Bid initiation. The rate limit protects the quote + payment-creation
	// path; reads stay unthrottled.
	initiate := http.Handler(http.HandlerFunc(handlers.Bids.InitiateBid))
	if limiter != nil {
		limit, window := cfg.BidRateLimit, cfg.BidRateWindow
		if limit <= 0 {
			limit = 10
		}
		if window <= 0 {
			window = time.Minute
		}
		initiate = middleware.RateLimit(limiter, limit, window)(initiate)
	}
	mux.Handle("POST /api/bids", initiate)
	mux.HandleFunc("GET /api/bids/quote", handlers.Bids.GetQuote)

	// Payment processor webhook. Authenticated by HMAC signature inside the
	// handler, not by bearer token.
	mux.HandleFunc("POST /webhooks/payments", handlers.Webhook.HandlePaymentConfirmed)

	// Read endpoints.
	mux.HandleFunc("GET /api/throne", handlers.Throne.GetThrone)
	mux.HandleFunc("GET /api/leaderboard", handlers.Throne.GetLeaderboard)
	mux.HandleFunc("GET /api/bidders/{id}", handlers.Throne.GetBidder)
	mux.HandleFunc("GET /api/history", handlers.History.ListHistory)

	if handlers.Metrics != nil {
		mux.Handle("GET /metrics", handlers.Metrics)
	}

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Auth(verifier)(h)
	h = middleware.Logging(logger)(h)
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware returns middleware that sets CORS headers for the allowed
// origins. If no origins are specified, it defaults to allowing all origins.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
