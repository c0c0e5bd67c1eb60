// Package psp is the REST client for the external payment processor. The
// processor owns the whole capture flow (card details, 3-D Secure, moving
// money); this service only creates payment requests and later consumes the
// signed confirmation webhooks.
package psp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Elmasricoweb/mas-rico-internet/internal/domain"
)

// Client is the payment-processor API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a processor client.
//
// baseURL is the API root, e.g. "https://api.payments.example.com".
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreatePayment registers a payment request with the processor and returns
// the opaque handle the bidder uses to complete capture.
func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (PaymentIntent, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return PaymentIntent{}, fmt.Errorf("psp: marshal payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/payments", bytes.NewReader(body))
	if err != nil {
		return PaymentIntent{}, fmt.Errorf("psp: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return PaymentIntent{}, fmt.Errorf("psp: create payment: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return PaymentIntent{}, fmt.Errorf("psp: read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return PaymentIntent{}, fmt.Errorf("psp: create payment: %w", domain.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return PaymentIntent{}, fmt.Errorf("psp: create payment: %s (%d)", apiErr.Error, resp.StatusCode)
		}
		return PaymentIntent{}, fmt.Errorf("psp: create payment: unexpected status %d", resp.StatusCode)
	}

	var intent PaymentIntent
	if err := json.Unmarshal(respBody, &intent); err != nil {
		return PaymentIntent{}, fmt.Errorf("psp: decode payment intent: %w", err)
	}
	if intent.PaymentRef == "" {
		return PaymentIntent{}, fmt.Errorf("psp: payment intent missing reference")
	}
	return intent, nil
}
