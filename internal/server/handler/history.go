package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Elmasricoweb/mas-rico-internet/internal/domain"
)

// HistoryService defines the methods the history handler requires.
type HistoryService interface {
	List(ctx context.Context, opts domain.ListOpts) ([]domain.HistoryEvent, error)
}

// HistoryHandler serves the settlement ledger.
type HistoryHandler struct {
	history HistoryService
	logger  *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(history HistoryService, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{
		history: history,
		logger:  logger,
	}
}

// listHistoryResponse wraps the list history response.
type listHistoryResponse struct {
	Events []domain.HistoryEvent `json:"events"`
}

// ListHistory returns settlement events newest first.
// GET /api/history?limit=50&offset=0
func (h *HistoryHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	events, err := h.history.List(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list history failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}

	if events == nil {
		events = []domain.HistoryEvent{}
	}
	writeJSON(w, http.StatusOK, listHistoryResponse{Events: events})
}
