package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Elmasricoweb/mas-rico-internet/internal/domain"
	"github.com/Elmasricoweb/mas-rico-internet/internal/quote"
	"github.com/Elmasricoweb/mas-rico-internet/internal/server/middleware"
	"github.com/Elmasricoweb/mas-rico-internet/internal/service"
)

// BidService defines the methods the bid handler requires from the service
// layer.
type BidService interface {
	InitiateBid(ctx context.Context, bidderID, displayName string, amount domain.Cents) (service.BidInitiation, error)
	RequiredPayment(ctx context.Context, bidderID string) (domain.Cents, error)
}

// BidHandler serves bid initiation endpoints.
type BidHandler struct {
	bids   BidService
	logger *slog.Logger
}

// NewBidHandler creates a BidHandler.
func NewBidHandler(bids BidService, logger *slog.Logger) *BidHandler {
	return &BidHandler{
		bids:   bids,
		logger: logger,
	}
}

// initiateBidRequest is the POST /api/bids body. Amount is in minor units.
type initiateBidRequest struct {
	Amount domain.Cents `json:"amount"`
}

// InitiateBid quotes the amount against the live throne and creates a
// payment request with the processor. Requires a verified identity.
// POST /api/bids
func (h *BidHandler) InitiateBid(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req initiateBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	initiation, err := h.bids.InitiateBid(r.Context(), principal.BidderID, principal.DisplayName, req.Amount)
	if err != nil {
		var insufficient *quote.InsufficientBidError
		if errors.As(err, &insufficient) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":            "insufficient bid amount",
				"required_payment": insufficient.Required,
			})
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: initiate bid failed",
			slog.String("bidder_id", principal.BidderID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to initiate bid")
		return
	}

	writeJSON(w, http.StatusCreated, initiation)
}

// GetQuote returns the minimum payment for the caller (or an anonymous
// newcomer) against the current throne.
// GET /api/bids/quote
func (h *BidHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	var bidderID string
	if principal, ok := middleware.PrincipalFrom(r.Context()); ok {
		bidderID = principal.BidderID
	}

	required, err := h.bids.RequiredPayment(r.Context(), bidderID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: quote failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to compute quote")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"required_payment": required,
	})
}
