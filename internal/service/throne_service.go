package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Elmasricoweb/mas-rico-internet/internal/domain"
)

// ThroneService serves the read side: current throne, leaderboard and bidder
// profiles.
type ThroneService struct {
	throne  domain.ThroneStore
	bidders domain.BidderStore
	cache   domain.ThroneCache // optional
	logger  *slog.Logger
}

// NewThroneService creates a ThroneService. cache may be nil.
func NewThroneService(throne domain.ThroneStore, bidders domain.BidderStore, cache domain.ThroneCache, logger *slog.Logger) *ThroneService {
	return &ThroneService{
		throne:  throne,
		bidders: bidders,
		cache:   cache,
		logger:  logger.With(slog.String("component", "throne_service")),
	}
}

// Current returns the throne, preferring the cache. domain.ErrNotFound means
// the throne has never been claimed.
func (s *ThroneService) Current(ctx context.Context) (domain.Throne, error) {
	if s.cache != nil {
		if t, err := s.cache.Get(ctx); err == nil {
			return t, nil
		}
	}

	t, err := s.throne.Get(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Throne{}, err
		}
		return domain.Throne{}, fmt.Errorf("throne_service: get throne: %w", err)
	}

	if s.cache != nil {
		if cacheErr := s.cache.Set(ctx, t); cacheErr != nil {
			s.logger.WarnContext(ctx, "throne cache set failed",
				slog.String("error", cacheErr.Error()),
			)
		}
	}
	return t, nil
}

// InvalidateCache drops the cached throne after a coronation.
func (s *ThroneService) InvalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "throne cache invalidate failed",
			slog.String("error", err.Error()),
		)
	}
}

// Leaderboard returns the top bidders by cumulative investment.
func (s *ThroneService) Leaderboard(ctx context.Context, limit int) ([]domain.Bidder, error) {
	bidders, err := s.bidders.ListTop(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("throne_service: leaderboard: %w", err)
	}
	return bidders, nil
}

// GetBidder returns one bidder's profile and reign stats.
func (s *ThroneService) GetBidder(ctx context.Context, id string) (domain.Bidder, error) {
	b, err := s.bidders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Bidder{}, err
		}
		return domain.Bidder{}, fmt.Errorf("throne_service: get bidder %s: %w", id, err)
	}
	return b, nil
}
