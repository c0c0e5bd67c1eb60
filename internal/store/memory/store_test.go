package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elmasricoweb/mas-rico-internet/internal/domain"
)

func TestEnsure_CreatesOnce(t *testing.T) {
	ctx := context.Background()
	s := New()

	created, err := s.Ensure(ctx, "alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", created.ID)
	assert.Equal(t, domain.Cents(0), created.TotalInvested)

	again, err := s.Ensure(ctx, "alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, created.CreatedAt, again.CreatedAt)
}

func TestEnsure_RefreshesDisplayName(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Ensure(ctx, "alice", "Alice")
	require.NoError(t, err)

	renamed, err := s.Ensure(ctx, "alice", "Alicia")
	require.NoError(t, err)
	assert.Equal(t, "Alicia", renamed.DisplayName)
}

func TestGet_UnknownBidder(t *testing.T) {
	_, err := New().Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListTop_OrdersByInvestment(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, b := range []struct {
		id    string
		total domain.Cents
	}{{"low", 100}, {"high", 900}, {"mid", 500}} {
		_, err := s.Ensure(ctx, b.id, b.id)
		require.NoError(t, err)
		require.NoError(t, s.Settle(ctx, func(tx domain.SettlementTx) error {
			bidder, err := tx.BidderForUpdate(ctx, b.id)
			if err != nil {
				return err
			}
			bidder.TotalInvested = b.total
			return tx.UpdateBidder(ctx, bidder)
		}))
	}

	top, err := s.ListTop(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "high", top[0].ID)
	assert.Equal(t, "mid", top[1].ID)
}

func TestGetThrone_VacantAtBootstrap(t *testing.T) {
	_, err := New().GetThrone(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = ThroneView{New()}.Get(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSettle_CommitPublishesWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.Ensure(ctx, "alice", "Alice")
	require.NoError(t, err)

	err = s.Settle(ctx, func(tx domain.SettlementTx) error {
		b, err := tx.BidderForUpdate(ctx, "alice")
		if err != nil {
			return err
		}
		b.TotalInvested = 1000
		if err := tx.UpdateBidder(ctx, b); err != nil {
			return err
		}
		if err := tx.AppendHistory(ctx, domain.HistoryEvent{
			ID: "ev-1", Kind: domain.HistoryCoronation,
			BidderID: "alice", Amount: 1000, NewTotal: 1000,
			PaymentRef: "pay-1", CreatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}
		return tx.ReplaceThrone(ctx, domain.Throne{
			HolderID: "alice", Amount: 1000, PaymentRef: "pay-1",
		})
	})
	require.NoError(t, err)

	alice, err := s.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.Cents(1000), alice.TotalInvested)

	throne, err := s.GetThrone(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", throne.HolderID)

	ev, err := s.GetByPaymentRef(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, "ev-1", ev.ID)
}

func TestSettle_ForcedConflictDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.Ensure(ctx, "alice", "Alice")
	require.NoError(t, err)

	s.FailNextSettlements(1)
	err = s.Settle(ctx, func(tx domain.SettlementTx) error {
		b, err := tx.BidderForUpdate(ctx, "alice")
		if err != nil {
			return err
		}
		b.TotalInvested = 999
		return tx.UpdateBidder(ctx, b)
	})
	require.ErrorIs(t, err, domain.ErrConflict)

	alice, err := s.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.Cents(0), alice.TotalInvested, "aborted writes must not leak")
}

func TestAppendHistory_DuplicateRef(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Settle(ctx, func(tx domain.SettlementTx) error {
		return tx.AppendHistory(ctx, domain.HistoryEvent{ID: "ev-1", PaymentRef: "pay-1"})
	}))

	err := s.Settle(ctx, func(tx domain.SettlementTx) error {
		return tx.AppendHistory(ctx, domain.HistoryEvent{ID: "ev-2", PaymentRef: "pay-1"})
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestList_PaginationNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()

	base := time.Now().UTC()
	require.NoError(t, s.Settle(ctx, func(tx domain.SettlementTx) error {
		for i := 0; i < 5; i++ {
			if err := tx.AppendHistory(ctx, domain.HistoryEvent{
				ID:         string(rune('a' + i)),
				PaymentRef: string(rune('a' + i)),
				CreatedAt:  base.Add(time.Duration(i) * time.Second),
			}); err != nil {
				return err
			}
		}
		return nil
	}))

	page, err := s.List(ctx, domain.ListOpts{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "d", page[0].ID)
	assert.Equal(t, "c", page[1].ID)
}

func TestDeleteBefore_PrunesAndReindexes(t *testing.T) {
	ctx := context.Background()
	s := New()

	base := time.Now().UTC()
	require.NoError(t, s.Settle(ctx, func(tx domain.SettlementTx) error {
		for i, ref := range []string{"old-1", "old-2", "new-1"} {
			if err := tx.AppendHistory(ctx, domain.HistoryEvent{
				ID:         ref,
				PaymentRef: ref,
				CreatedAt:  base.Add(time.Duration(i) * time.Hour),
			}); err != nil {
				return err
			}
		}
		return nil
	}))

	cutoff := base.Add(90 * time.Minute)

	old, err := s.ListBefore(ctx, cutoff)
	require.NoError(t, err)
	assert.Len(t, old, 2)

	deleted, err := s.DeleteBefore(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = s.GetByPaymentRef(ctx, "old-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	kept, err := s.GetByPaymentRef(ctx, "new-1")
	require.NoError(t, err)
	assert.Equal(t, "new-1", kept.ID)
}
