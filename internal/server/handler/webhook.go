package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Elmasricoweb/mas-rico-internet/internal/crypto"
	"github.com/Elmasricoweb/mas-rico-internet/internal/domain"
	"github.com/Elmasricoweb/mas-rico-internet/internal/metrics"
	"github.com/Elmasricoweb/mas-rico-internet/internal/settle"
)

// Webhook delivery headers set by the payment processor.
const (
	headerSignature = "X-Payment-Signature"
	headerTimestamp = "X-Payment-Timestamp"
)

// maxWebhookBody bounds the confirmation payload size.
const maxWebhookBody = 1 << 20

// SettlementEngine defines what the webhook handler needs from the engine.
type SettlementEngine interface {
	Settle(ctx context.Context, ev domain.PaymentConfirmation) (settle.Outcome, error)
}

// CacheInvalidator drops the cached throne after a coronation.
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context)
}

// Notifier sends operator alerts.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// WebhookHandler consumes confirmed-payment webhooks from the processor.
// Signature verification precedes settlement; an invalid signature never
// reaches the engine.
type WebhookHandler struct {
	verifier *crypto.WebhookVerifier
	engine   SettlementEngine
	throne   CacheInvalidator // optional
	notifier Notifier         // optional
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler. throne and notifier may be nil.
func NewWebhookHandler(
	verifier *crypto.WebhookVerifier,
	engine SettlementEngine,
	throne CacheInvalidator,
	notifier Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		engine:   engine,
		throne:   throne,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// HandlePaymentConfirmed settles one confirmed payment. Delivery is
// at-least-once: replays return 200 without re-mutating state. Permanently
// unprocessable events also return 200 (so the processor stops retrying) and
// are reported to operators; transient failures return 500 so the processor
// redelivers.
// POST /webhooks/payments
func (h *WebhookHandler) HandlePaymentConfirmed(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if err := h.verifier.Verify(r.Header.Get(headerTimestamp), body, r.Header.Get(headerSignature)); err != nil {
		h.metrics.WebhookBadSignature()
		h.logger.WarnContext(r.Context(), "webhook signature rejected",
			slog.String("error", err.Error()),
			slog.String("remote_addr", r.RemoteAddr),
		)
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var ev domain.PaymentConfirmation
	if err := json.Unmarshal(body, &ev); err != nil {
		h.reportUnprocessable(r.Context(), "", fmt.Errorf("malformed confirmation payload: %w", err))
		writeJSON(w, http.StatusOK, map[string]string{"status": "unprocessable"})
		return
	}

	out, err := h.engine.Settle(r.Context(), ev)
	if err != nil {
		if errors.Is(err, domain.ErrUnprocessable) || errors.Is(err, domain.ErrNotFound) {
			h.reportUnprocessable(r.Context(), ev.PaymentRef, err)
			writeJSON(w, http.StatusOK, map[string]string{"status": "unprocessable"})
			return
		}
		h.logger.ErrorContext(r.Context(), "settlement failed, processor will retry",
			slog.String("payment_ref", ev.PaymentRef),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "settlement failed")
		return
	}

	if out.Crowned && h.throne != nil {
		h.throne.InvalidateCache(r.Context())
	}

	status := "contribution"
	switch {
	case out.Replay:
		status = "replay"
	case out.Crowned:
		status = "coronation"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"new_total": out.NewTotal,
	})
}

// reportUnprocessable logs and alerts operators about an event that will
// never settle.
func (h *WebhookHandler) reportUnprocessable(ctx context.Context, paymentRef string, err error) {
	h.logger.ErrorContext(ctx, "unprocessable payment confirmation",
		slog.String("payment_ref", paymentRef),
		slog.String("error", err.Error()),
	)
	if h.notifier == nil {
		return
	}
	msg := fmt.Sprintf("payment_ref=%s error=%v", paymentRef, err)
	if notifyErr := h.notifier.Notify(ctx, "settlement_unprocessable", "Unprocessable payment confirmation", msg); notifyErr != nil {
		h.logger.WarnContext(ctx, "operator notification failed",
			slog.String("error", notifyErr.Error()),
		)
	}
}
