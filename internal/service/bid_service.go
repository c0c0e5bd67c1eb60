// Package service wires stores, caches and platform clients behind the HTTP
// handlers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Elmasricoweb/mas-rico-internet/internal/domain"
	"github.com/Elmasricoweb/mas-rico-internet/internal/metrics"
	"github.com/Elmasricoweb/mas-rico-internet/internal/platform/psp"
	"github.com/Elmasricoweb/mas-rico-internet/internal/quote"
)

// PaymentCreator is the slice of the processor client the bid service needs.
type PaymentCreator interface {
	CreatePayment(ctx context.Context, req psp.PaymentRequest) (psp.PaymentIntent, error)
}

// BidInitiation is the result of a successful bid initiation: the processor's
// opaque handle plus the quote-time prediction attached to it.
type BidInitiation struct {
	PaymentRef  string            `json:"payment_ref"`
	CheckoutURL string            `json:"checkout_url"`
	Pending     domain.PendingBid `json:"pending_bid"`
}

// BidService handles bid initiation: ensure the bidder exists, quote the
// contribution against the live throne, and register the payment with the
// processor.
type BidService struct {
	bidders  domain.BidderStore
	throne   domain.ThroneStore
	cache    domain.ThroneCache // optional
	quoter   quote.Quoter
	payments PaymentCreator
	currency string
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewBidService creates a BidService. cache may be nil; the store is always
// authoritative.
func NewBidService(
	bidders domain.BidderStore,
	throne domain.ThroneStore,
	cache domain.ThroneCache,
	quoter quote.Quoter,
	payments PaymentCreator,
	currency string,
	m *metrics.Metrics,
	logger *slog.Logger,
) *BidService {
	return &BidService{
		bidders:  bidders,
		throne:   throne,
		cache:    cache,
		quoter:   quoter,
		payments: payments,
		currency: currency,
		metrics:  m,
		logger:   logger.With(slog.String("component", "bid_service")),
	}
}

// InitiateBid quotes amount for the verified bidder and creates the payment
// request. An insufficient amount returns *quote.InsufficientBidError with
// the required payment; the bidder record is created on first interaction.
func (s *BidService) InitiateBid(ctx context.Context, bidderID, displayName string, amount domain.Cents) (BidInitiation, error) {
	bidder, err := s.bidders.Ensure(ctx, bidderID, displayName)
	if err != nil {
		return BidInitiation{}, fmt.Errorf("bid_service: ensure bidder %s: %w", bidderID, err)
	}

	throne, err := s.currentThrone(ctx)
	if err != nil {
		return BidInitiation{}, fmt.Errorf("bid_service: read throne: %w", err)
	}

	pending, err := s.quoter.Quote(bidder, throne, amount)
	if err != nil {
		var insufficient *quote.InsufficientBidError
		if errors.As(err, &insufficient) {
			s.metrics.QuoteRejected()
		}
		return BidInitiation{}, err
	}

	intent, err := s.payments.CreatePayment(ctx, psp.PaymentRequest{
		BidderID:    bidder.ID,
		Amount:      amount,
		Currency:    s.currency,
		Description: fmt.Sprintf("throne bid by %s", bidder.DisplayName),
		Metadata:    pending,
	})
	if err != nil {
		return BidInitiation{}, fmt.Errorf("bid_service: create payment: %w", err)
	}

	s.logger.InfoContext(ctx, "bid initiated",
		slog.String("bidder_id", bidder.ID),
		slog.String("amount", amount.String()),
		slog.String("payment_ref", intent.PaymentRef),
		slog.Bool("predicted_king", pending.PredictedWillBeKing),
	)

	return BidInitiation{
		PaymentRef:  intent.PaymentRef,
		CheckoutURL: intent.CheckoutURL,
		Pending:     pending,
	}, nil
}

// RequiredPayment returns the minimum payment for a bidder against the live
// throne. Unknown bidders are quoted from zero investment.
func (s *BidService) RequiredPayment(ctx context.Context, bidderID string) (domain.Cents, error) {
	var total domain.Cents
	if bidderID != "" {
		bidder, err := s.bidders.Get(ctx, bidderID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return 0, fmt.Errorf("bid_service: get bidder %s: %w", bidderID, err)
		}
		total = bidder.TotalInvested
	}

	throne, err := s.currentThrone(ctx)
	if err != nil {
		return 0, fmt.Errorf("bid_service: read throne: %w", err)
	}
	return s.quoter.RequiredPayment(total, throne.Amount), nil
}

// currentThrone reads the throne through the cache when available. A vacant
// throne (bootstrap) is returned as the zero value.
func (s *BidService) currentThrone(ctx context.Context) (domain.Throne, error) {
	if s.cache != nil {
		if t, err := s.cache.Get(ctx); err == nil {
			return t, nil
		}
	}

	t, err := s.throne.Get(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Throne{}, nil
		}
		return domain.Throne{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, t); err != nil {
			s.logger.WarnContext(ctx, "throne cache set failed",
				slog.String("error", err.Error()),
			)
		}
	}
	return t, nil
}
