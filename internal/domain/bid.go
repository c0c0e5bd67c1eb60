package domain

// PendingBid is the quote-time prediction attached to an outgoing payment
// request as processor metadata. It exists only between quote and settlement
// and is advisory: the settlement engine recomputes the outcome against live
// state, because the throne may change between quote and confirmation.
type PendingBid struct {
	BidderID            string `json:"bidder_id"`
	Amount              Cents  `json:"amount"`
	PriorTotal          Cents  `json:"prior_total"`
	PredictedNewTotal   Cents  `json:"predicted_new_total"`
	PredictedWillBeKing bool   `json:"predicted_will_be_king"`
	ThroneAmountAtQuote Cents  `json:"throne_amount_at_quote"`
}

// PaymentConfirmation is the confirmed-payment event emitted by the payment
// processor after capture. Delivery is at-least-once: the same PaymentRef may
// arrive more than once and must settle exactly once. Signature verification
// of the carrying webhook happens before this event reaches the engine.
type PaymentConfirmation struct {
	PaymentRef string     `json:"payment_ref"`
	BidderID   string     `json:"bidder_id"`
	AmountPaid Cents      `json:"amount_paid"`
	Pending    PendingBid `json:"pending_bid"`
}
