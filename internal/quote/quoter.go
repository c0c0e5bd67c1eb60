// Package quote computes the minimum contribution required to take the throne
// and the predicted post-payment outcome attached to outgoing payment
// requests. The prediction is advisory only: the settlement engine is the
// sole authority on the actual outcome.
package quote

import (
	"fmt"

	"github.com/Elmasricoweb/mas-rico-internet/internal/domain"
)

// InsufficientBidError signals that a proposed contribution is missing,
// non-positive, or below the required minimum. It carries RequiredPayment so
// the caller can retry with a corrected amount.
type InsufficientBidError struct {
	Given    domain.Cents
	Required domain.Cents
}

func (e *InsufficientBidError) Error() string {
	return fmt.Sprintf("quote: bid of %s is below required payment %s", e.Given, e.Required)
}

// Quoter computes required payments. Epsilon is the minimal overbid above the
// current throne amount; MinPayment is the processor-imposed payment floor.
// Both are fixed configuration constants.
type Quoter struct {
	MinPayment domain.Cents
	Epsilon    domain.Cents
}

// NewQuoter creates a Quoter with the given processor floor and overbid step.
func NewQuoter(minPayment, epsilon domain.Cents) Quoter {
	return Quoter{MinPayment: minPayment, Epsilon: epsilon}
}

// RequiredPayment returns the minimum payment that would put a bidder with
// the given cumulative investment strictly above the current throne amount,
// clamped to the processor floor.
func (q Quoter) RequiredPayment(bidderTotal, throneAmount domain.Cents) domain.Cents {
	need := throneAmount + q.Epsilon - bidderTotal
	if need < q.MinPayment {
		need = q.MinPayment
	}
	return need
}

// Quote validates a proposed contribution against the live throne amount and,
// when acceptable, returns the PendingBid prediction to attach to the payment
// request. A rejected amount yields an *InsufficientBidError.
func (q Quoter) Quote(bidder domain.Bidder, throne domain.Throne, amount domain.Cents) (domain.PendingBid, error) {
	required := q.RequiredPayment(bidder.TotalInvested, throne.Amount)
	if amount <= 0 || amount < required {
		return domain.PendingBid{}, &InsufficientBidError{Given: amount, Required: required}
	}

	newTotal := bidder.TotalInvested + amount
	return domain.PendingBid{
		BidderID:            bidder.ID,
		Amount:              amount,
		PriorTotal:          bidder.TotalInvested,
		PredictedNewTotal:   newTotal,
		PredictedWillBeKing: newTotal > throne.Amount,
		ThroneAmountAtQuote: throne.Amount,
	}, nil
}
