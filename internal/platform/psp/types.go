package psp

import "github.com/Elmasricoweb/mas-rico-internet/internal/domain"

// PaymentRequest is the payload for creating a payment with the processor.
// The pending bid travels as opaque metadata and is echoed back on the
// confirmation webhook for correlation and auditing.
type PaymentRequest struct {
	BidderID    string            `json:"bidder_id"`
	Amount      domain.Cents      `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description,omitempty"`
	Metadata    domain.PendingBid `json:"metadata"`
}

// PaymentIntent is the processor's handle for a created payment. PaymentRef
// is the reference the confirmation webhook will carry; CheckoutURL is where
// the bidder completes capture.
type PaymentIntent struct {
	PaymentRef  string `json:"payment_ref"`
	CheckoutURL string `json:"checkout_url"`
	ExpiresAt   string `json:"expires_at,omitempty"`
}

// apiError is the processor's error response body.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
