package quote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elmasricoweb/mas-rico-internet/internal/domain"
)

func newTestQuoter() Quoter {
	// $0.50 processor floor, 1-cent overbid step.
	return NewQuoter(50, 1)
}

func TestRequiredPayment_Newcomer(t *testing.T) {
	q := newTestQuoter()
	// Throne at 10.00, bidder starts at zero: needs 10.01.
	assert.Equal(t, domain.Cents(1001), q.RequiredPayment(0, 1000))
}

func TestRequiredPayment_PartialInvestment(t *testing.T) {
	q := newTestQuoter()
	// Bidder already holds 5.00 of cumulative investment.
	assert.Equal(t, domain.Cents(501), q.RequiredPayment(500, 1000))
}

func TestRequiredPayment_ClampedToProcessorFloor(t *testing.T) {
	q := newTestQuoter()
	// Bidder total already above the throne: floor applies.
	assert.Equal(t, domain.Cents(50), q.RequiredPayment(1200, 1000))
}

func TestRequiredPayment_VacantThrone(t *testing.T) {
	q := newTestQuoter()
	// No coronation yet: one cent beats the zero-amount throne, but the
	// processor floor wins.
	assert.Equal(t, domain.Cents(50), q.RequiredPayment(0, 0))
}

func TestQuote_AcceptsSufficientAmount(t *testing.T) {
	q := newTestQuoter()
	bidder := domain.Bidder{ID: "alice", TotalInvested: 500}
	throne := domain.Throne{HolderID: "bob", Amount: 1000}

	pending, err := q.Quote(bidder, throne, 600)
	require.NoError(t, err)

	assert.Equal(t, "alice", pending.BidderID)
	assert.Equal(t, domain.Cents(600), pending.Amount)
	assert.Equal(t, domain.Cents(500), pending.PriorTotal)
	assert.Equal(t, domain.Cents(1100), pending.PredictedNewTotal)
	assert.True(t, pending.PredictedWillBeKing)
	assert.Equal(t, domain.Cents(1000), pending.ThroneAmountAtQuote)
}

func TestQuote_RejectsBelowRequired(t *testing.T) {
	q := newTestQuoter()
	bidder := domain.Bidder{ID: "alice", TotalInvested: 500}
	throne := domain.Throne{HolderID: "bob", Amount: 1000}

	_, err := q.Quote(bidder, throne, 500)
	require.Error(t, err)

	var insufficient *InsufficientBidError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, domain.Cents(500), insufficient.Given)
	assert.Equal(t, domain.Cents(501), insufficient.Required)
}

func TestQuote_RejectsNonPositiveAmount(t *testing.T) {
	q := newTestQuoter()
	bidder := domain.Bidder{ID: "alice", TotalInvested: 2000}
	throne := domain.Throne{HolderID: "alice", Amount: 2000}

	for _, amount := range []domain.Cents{0, -100} {
		_, err := q.Quote(bidder, throne, amount)
		var insufficient *InsufficientBidError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, domain.Cents(50), insufficient.Required)
	}
}

func TestQuote_SelfOverbidNotPredictedKingWhenEqual(t *testing.T) {
	q := NewQuoter(50, 1)
	// Paying the floor on top of an already-leading total stays king.
	bidder := domain.Bidder{ID: "alice", TotalInvested: 1200}
	throne := domain.Throne{HolderID: "alice", Amount: 1200}

	pending, err := q.Quote(bidder, throne, 50)
	require.NoError(t, err)
	assert.True(t, pending.PredictedWillBeKing)
	assert.Equal(t, domain.Cents(1250), pending.PredictedNewTotal)
}
