package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Elmasricoweb/mas-rico-internet/internal/domain"
)

// ThroneService defines the read-side methods the throne handler requires.
type ThroneService interface {
	Current(ctx context.Context) (domain.Throne, error)
	Leaderboard(ctx context.Context, limit int) ([]domain.Bidder, error)
	GetBidder(ctx context.Context, id string) (domain.Bidder, error)
}

// ThroneHandler serves throne, leaderboard and bidder profile endpoints.
type ThroneHandler struct {
	throne ThroneService
	logger *slog.Logger
}

// NewThroneHandler creates a ThroneHandler.
func NewThroneHandler(throne ThroneService, logger *slog.Logger) *ThroneHandler {
	return &ThroneHandler{
		throne: throne,
		logger: logger,
	}
}

// GetThrone returns the current throne holder, or a vacant marker before the
// first coronation.
// GET /api/throne
func (h *ThroneHandler) GetThrone(w http.ResponseWriter, r *http.Request) {
	t, err := h.throne.Current(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{"vacant": true})
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get throne failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get throne")
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// leaderboardResponse wraps the leaderboard response.
type leaderboardResponse struct {
	Bidders []domain.Bidder `json:"bidders"`
}

// GetLeaderboard returns the top bidders by cumulative investment.
// GET /api/leaderboard?limit=10
func (h *ThroneHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}

	bidders, err := h.throne.Leaderboard(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: leaderboard failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get leaderboard")
		return
	}

	if bidders == nil {
		bidders = []domain.Bidder{}
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Bidders: bidders})
}

// GetBidder returns one bidder's profile and reign stats.
// GET /api/bidders/{id}
func (h *ThroneHandler) GetBidder(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing bidder id")
		return
	}

	b, err := h.throne.GetBidder(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "bidder not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get bidder failed",
			slog.String("bidder_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get bidder")
		return
	}

	writeJSON(w, http.StatusOK, b)
}
