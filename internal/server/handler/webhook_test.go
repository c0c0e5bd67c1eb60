package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elmasricoweb/mas-rico-internet/internal/crypto"
	"github.com/Elmasricoweb/mas-rico-internet/internal/domain"
	"github.com/Elmasricoweb/mas-rico-internet/internal/settle"
)

type stubEngine struct {
	out    settle.Outcome
	err    error
	calls  int
	lastEv domain.PaymentConfirmation
}

func (s *stubEngine) Settle(_ context.Context, ev domain.PaymentConfirmation) (settle.Outcome, error) {
	s.calls++
	s.lastEv = ev
	return s.out, s.err
}

type stubInvalidator struct {
	calls int
}

func (s *stubInvalidator) InvalidateCache(context.Context) { s.calls++ }

type stubNotifier struct {
	events []string
}

func (s *stubNotifier) Notify(_ context.Context, event, _, _ string) error {
	s.events = append(s.events, event)
	return nil
}

func signedRequest(t *testing.T, v *crypto.WebhookVerifier, body []byte) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewReader(body))
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	r.Header.Set(headerTimestamp, ts)
	r.Header.Set(headerSignature, v.Sign(ts, body))
	return r
}

func confirmationBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(domain.PaymentConfirmation{
		PaymentRef: "pay-1",
		BidderID:   "alice",
		AmountPaid: 1001,
	})
	require.NoError(t, err)
	return body
}

func TestHandlePaymentConfirmed_BadSignature(t *testing.T) {
	v := crypto.NewWebhookVerifier("whsec_test", 5*time.Minute)
	engine := &stubEngine{}
	h := NewWebhookHandler(v, engine, nil, nil, nil, slog.Default())

	r := signedRequest(t, v, confirmationBody(t))
	r.Header.Set(headerSignature, "deadbeef")
	w := httptest.NewRecorder()
	h.HandlePaymentConfirmed(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, engine.calls, "unverified events must never reach the engine")
}

func TestHandlePaymentConfirmed_Coronation(t *testing.T) {
	v := crypto.NewWebhookVerifier("whsec_test", 5*time.Minute)
	engine := &stubEngine{out: settle.Outcome{Crowned: true, NewTotal: 1001}}
	throne := &stubInvalidator{}
	h := NewWebhookHandler(v, engine, throne, nil, nil, slog.Default())

	w := httptest.NewRecorder()
	h.HandlePaymentConfirmed(w, signedRequest(t, v, confirmationBody(t)))

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "coronation", resp["status"])
	assert.Equal(t, float64(1001), resp["new_total"])
	assert.Equal(t, "pay-1", engine.lastEv.PaymentRef)
	assert.Equal(t, 1, throne.calls, "cached throne must be dropped after a coronation")
}

func TestHandlePaymentConfirmed_ReplayReturns200(t *testing.T) {
	v := crypto.NewWebhookVerifier("whsec_test", 5*time.Minute)
	engine := &stubEngine{out: settle.Outcome{Replay: true, NewTotal: 1001}}
	throne := &stubInvalidator{}
	h := NewWebhookHandler(v, engine, throne, nil, nil, slog.Default())

	w := httptest.NewRecorder()
	h.HandlePaymentConfirmed(w, signedRequest(t, v, confirmationBody(t)))

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "replay", resp["status"])
	assert.Zero(t, throne.calls)
}

func TestHandlePaymentConfirmed_UnprocessableAcknowledged(t *testing.T) {
	v := crypto.NewWebhookVerifier("whsec_test", 5*time.Minute)
	engine := &stubEngine{err: domain.ErrUnprocessable}
	notifier := &stubNotifier{}
	h := NewWebhookHandler(v, engine, nil, notifier, nil, slog.Default())

	w := httptest.NewRecorder()
	h.HandlePaymentConfirmed(w, signedRequest(t, v, confirmationBody(t)))

	// 200 so the processor stops redelivering an event that can never settle.
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unprocessable", resp["status"])
	assert.Equal(t, []string{"settlement_unprocessable"}, notifier.events)
}

func TestHandlePaymentConfirmed_TransientFailureRetried(t *testing.T) {
	v := crypto.NewWebhookVerifier("whsec_test", 5*time.Minute)
	engine := &stubEngine{err: domain.ErrConflict}
	notifier := &stubNotifier{}
	h := NewWebhookHandler(v, engine, nil, notifier, nil, slog.Default())

	w := httptest.NewRecorder()
	h.HandlePaymentConfirmed(w, signedRequest(t, v, confirmationBody(t)))

	// 500 tells the processor to redeliver; no operator alert for transients.
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, notifier.events)
}

func TestHandlePaymentConfirmed_MalformedPayload(t *testing.T) {
	v := crypto.NewWebhookVerifier("whsec_test", 5*time.Minute)
	engine := &stubEngine{}
	notifier := &stubNotifier{}
	h := NewWebhookHandler(v, engine, nil, notifier, nil, slog.Default())

	w := httptest.NewRecorder()
	h.HandlePaymentConfirmed(w, signedRequest(t, v, []byte("{not json")))

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unprocessable", resp["status"])
	assert.Zero(t, engine.calls)
}
