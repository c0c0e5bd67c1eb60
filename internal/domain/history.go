package domain

import "time"

// HistoryKind distinguishes the two settlement outcomes.
type HistoryKind string

const (
	// HistoryCoronation records a throne change.
	HistoryCoronation HistoryKind = "coronation"
	// HistoryContribution records a payment that did not take the throne.
	HistoryContribution HistoryKind = "contribution"
)

// HistoryEvent is one immutable row of the settlement ledger. Exactly one
// event exists per payment reference; the unique PaymentRef is what makes
// settlement idempotent under at-least-once delivery.
type HistoryEvent struct {
	ID          string      `json:"id"`
	Kind        HistoryKind `json:"kind"`
	BidderID    string      `json:"bidder_id"`
	BidderName  string      `json:"bidder_name"`
	Amount      Cents       `json:"amount"`
	NewTotal    Cents       `json:"new_total"`
	DethronedID string      `json:"dethroned_id,omitempty"`
	PaymentRef  string      `json:"payment_ref"`
	CreatedAt   time.Time   `json:"created_at"`
}
