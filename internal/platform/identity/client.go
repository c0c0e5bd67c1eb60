// Package identity is the REST client for the external identity provider.
// Authentication itself is delegated; this service only introspects bearer
// tokens to obtain a verified bidder identifier and display name.
package identity

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

// Principal is a verified caller identity.
type Principal struct {
	BidderID    string `json:"sub"`
	DisplayName string `json:"name"`
}

// Verifier resolves a bearer token to a Principal.
type Verifier interface {
	Verify(ctx context.Context, token string) (Principal, error)
}

// Client introspects tokens against the identity provider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates an identity provider client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// introspection is the provider's token introspection response.
type introspection struct {
	Active bool   `json:"active"`
	Sub    string `json:"sub"`
	Name   string `json:"name"`
}

// Verify introspects the token. Inactive or unknown tokens yield
// domain.ErrUnauthorized.
func (c *Client) Verify(ctx context.Context, token string) (Principal, error) {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return Principal{}, fmt.Errorf("identity: marshal introspection: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/introspect", bytes.NewReader(body))
	if err != nil {
		return Principal{}, fmt.Errorf("identity: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Principal{}, fmt.Errorf("identity: introspect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Principal{}, domain.ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return Principal{}, fmt.Errorf("identity: introspect: unexpected status %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Principal{}, fmt.Errorf("identity: read response: %w", err)
	}

	var intro introspection
	if err := json.Unmarshal(respBody, &intro); err != nil {
		return Principal{}, fmt.Errorf("identity: decode introspection: %w", err)
	}
	if !intro.Active || intro.Sub == "" {
		return Principal{}, domain.ErrUnauthorized
	}

	return Principal{BidderID: intro.Sub, DisplayName: intro.Name}, nil
}

// Compile-time interface check.
var _ Verifier = (*Client)(nil)
