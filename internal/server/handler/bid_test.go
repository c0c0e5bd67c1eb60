package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elmasricoweb/mas-rico-internet/internal/domain"
	"github.com/Elmasricoweb/mas-rico-internet/internal/platform/identity"
	"github.com/Elmasricoweb/mas-rico-internet/internal/quote"
	"github.com/Elmasricoweb/mas-rico-internet/internal/server/middleware"
	"github.com/Elmasricoweb/mas-rico-internet/internal/service"
)

type stubBidService struct {
	initiation service.BidInitiation
	initErr    error
	required   domain.Cents
	quoteErr   error

	lastBidder string
	lastAmount domain.Cents
}

func (s *stubBidService) InitiateBid(_ context.Context, bidderID, _ string, amount domain.Cents) (service.BidInitiation, error) {
	s.lastBidder = bidderID
	s.lastAmount = amount
	return s.initiation, s.initErr
}

func (s *stubBidService) RequiredPayment(_ context.Context, bidderID string) (domain.Cents, error) {
	s.lastBidder = bidderID
	return s.required, s.quoteErr
}

type stubVerifier struct {
	principal identity.Principal
	err       error
}

func (s stubVerifier) Verify(context.Context, string) (identity.Principal, error) {
	return s.principal, s.err
}

// authenticated wraps the handler with the auth middleware so the request
// carries a verified principal, the same way the server assembles routes.
func authenticated(h http.HandlerFunc, p identity.Principal) http.Handler {
	return middleware.Auth(stubVerifier{principal: p})(h)
}

func TestInitiateBid_RequiresIdentity(t *testing.T) {
	h := NewBidHandler(&stubBidService{}, slog.Default())

	r := httptest.NewRequest(http.MethodPost, "/api/bids", strings.NewReader(`{"amount":1001}`))
	w := httptest.NewRecorder()
	h.InitiateBid(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInitiateBid_Success(t *testing.T) {
	svc := &stubBidService{
		initiation: service.BidInitiation{
			PaymentRef:  "pay-1",
			CheckoutURL: "https://pay.example/p/pay-1",
		},
	}
	h := NewBidHandler(svc, slog.Default())
	srv := authenticated(h.InitiateBid, identity.Principal{BidderID: "alice", DisplayName: "Alice"})

	r := httptest.NewRequest(http.MethodPost, "/api/bids", strings.NewReader(`{"amount":1001}`))
	r.Header.Set("Authorization", "Bearer token")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "alice", svc.lastBidder)
	assert.Equal(t, domain.Cents(1001), svc.lastAmount)

	var resp service.BidInitiation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "pay-1", resp.PaymentRef)
	assert.Equal(t, "https://pay.example/p/pay-1", resp.CheckoutURL)
}

func TestInitiateBid_InsufficientAmount(t *testing.T) {
	svc := &stubBidService{
		initErr: &quote.InsufficientBidError{Given: 500, Required: 501},
	}
	h := NewBidHandler(svc, slog.Default())
	srv := authenticated(h.InitiateBid, identity.Principal{BidderID: "alice"})

	r := httptest.NewRequest(http.MethodPost, "/api/bids", strings.NewReader(`{"amount":500}`))
	r.Header.Set("Authorization", "Bearer token")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(501), resp["required_payment"])
}

func TestInitiateBid_MalformedBody(t *testing.T) {
	h := NewBidHandler(&stubBidService{}, slog.Default())
	srv := authenticated(h.InitiateBid, identity.Principal{BidderID: "alice"})

	r := httptest.NewRequest(http.MethodPost, "/api/bids", strings.NewReader(`{amount`))
	r.Header.Set("Authorization", "Bearer token")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetQuote_AnonymousNewcomer(t *testing.T) {
	svc := &stubBidService{required: 1001}
	h := NewBidHandler(svc, slog.Default())

	r := httptest.NewRequest(http.MethodGet, "/api/bids/quote", nil)
	w := httptest.NewRecorder()
	h.GetQuote(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, svc.lastBidder, "anonymous callers are quoted from zero")

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(1001), resp["required_payment"])
}

func TestGetQuote_AuthenticatedBidder(t *testing.T) {
	svc := &stubBidService{required: 501}
	h := NewBidHandler(svc, slog.Default())
	srv := authenticated(h.GetQuote, identity.Principal{BidderID: "alice"})

	r := httptest.NewRequest(http.MethodGet, "/api/bids/quote", nil)
	r.Header.Set("Authorization", "Bearer token")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", svc.lastBidder)
}
