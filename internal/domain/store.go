package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// BidderStore persists bidder records.
type BidderStore interface {
	Get(ctx context.Context, id string) (Bidder, error)
	// Ensure returns the bidder with the given id, creating the record on
	// first interaction with the supplied display name.
	Ensure(ctx context.Context, id, displayName string) (Bidder, error)
	// ListTop returns bidders ordered by TotalInvested descending.
	ListTop(ctx context.Context, limit int) ([]Bidder, error)
}

// ThroneStore reads the singleton throne record. It returns ErrNotFound only
// at system bootstrap, before the first coronation. All throne writes happen
// inside a settlement transaction.
type ThroneStore interface {
	Get(ctx context.Context) (Throne, error)
}

// HistoryStore reads the append-only settlement ledger. Writes happen only
// inside a settlement transaction.
type HistoryStore interface {
	List(ctx context.Context, opts ListOpts) ([]HistoryEvent, error)
	GetByPaymentRef(ctx context.Context, ref string) (HistoryEvent, error)
	// ListBefore returns all events created strictly before the cutoff, for
	// archival.
	ListBefore(ctx context.Context, before time.Time) ([]HistoryEvent, error)
	// DeleteBefore prunes archived events. Returns the number deleted.
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// SettlementTx exposes the reads and writes available inside one settlement
// transaction. The throne is the point of serialization: any transaction that
// reads it to decide a coronation conflicts with concurrent settlements.
type SettlementTx interface {
	HistoryByPaymentRef(ctx context.Context, ref string) (HistoryEvent, error)
	BidderForUpdate(ctx context.Context, id string) (Bidder, error)
	Throne(ctx context.Context) (Throne, error)
	UpdateBidder(ctx context.Context, b Bidder) error
	AppendHistory(ctx context.Context, ev HistoryEvent) error
	ReplaceThrone(ctx context.Context, t Throne) error
}

// SettlementStore runs fn inside a single atomic, isolated transaction.
// When the underlying store detects a write conflict with a concurrent
// settlement it returns an error matching ErrConflict; the caller re-runs the
// whole procedure, idempotency check included.
type SettlementStore interface {
	Settle(ctx context.Context, fn func(tx SettlementTx) error) error
}
