// Package memory implements the domain store interfaces in process memory.
// A single mutex serializes settlement transactions, giving the same
// atomicity and isolation guarantees the PostgreSQL store provides. It backs
// the engine and service tests and small single-node deployments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Elmasricoweb/mas-rico-internet/internal/domain"
)

// Store holds all ledger state behind one mutex.
type Store struct {
	mu      sync.Mutex
	bidders map[string]domain.Bidder
	throne  *domain.Throne
	history []domain.HistoryEvent
	byRef   map[string]int // paymentRef -> history index

	// conflictsLeft forces the next n settlement commits to abort with
	// domain.ErrConflict, for retry-path tests.
	conflictsLeft int
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		bidders: make(map[string]domain.Bidder),
		byRef:   make(map[string]int),
	}
}

// FailNextSettlements makes the next n Settle calls abort with
// domain.ErrConflict after fn has run, discarding its writes.
func (s *Store) FailNextSettlements(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflictsLeft = n
}

// --- domain.BidderStore ---

func (s *Store) Get(ctx context.Context, id string) (domain.Bidder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bidders[id]
	if !ok {
		return domain.Bidder{}, domain.ErrNotFound
	}
	return b, nil
}

func (s *Store) Ensure(ctx context.Context, id, displayName string) (domain.Bidder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.bidders[id]; ok {
		if displayName != "" && b.DisplayName != displayName {
			b.DisplayName = displayName
			b.UpdatedAt = time.Now().UTC()
			s.bidders[id] = b
		}
		return b, nil
	}

	now := time.Now().UTC()
	b := domain.Bidder{
		ID:          id,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.bidders[id] = b
	return b, nil
}

func (s *Store) ListTop(ctx context.Context, limit int) ([]domain.Bidder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}

	top := make([]domain.Bidder, 0, len(s.bidders))
	for _, b := range s.bidders {
		top = append(top, b)
	}
	sort.Slice(top, func(i, j int) bool {
		return top[i].TotalInvested > top[j].TotalInvested
	})
	if len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}

// --- domain.ThroneStore ---

// GetThrone returns the current throne, or domain.ErrNotFound at bootstrap.
// Named GetThrone rather than Get so Store can also satisfy BidderStore; wrap
// with ThroneView for the domain.ThroneStore interface.
func (s *Store) GetThrone(ctx context.Context) (domain.Throne, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.throne == nil {
		return domain.Throne{}, domain.ErrNotFound
	}
	return *s.throne, nil
}

// ThroneView adapts Store to domain.ThroneStore.
type ThroneView struct{ *Store }

func (v ThroneView) Get(ctx context.Context) (domain.Throne, error) {
	return v.GetThrone(ctx)
}

// --- domain.HistoryStore ---

func (s *Store) List(ctx context.Context, opts domain.ListOpts) ([]domain.HistoryEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []domain.HistoryEvent
	for i := len(s.history) - 1; i >= 0; i-- { // newest first
		ev := s.history[i]
		if opts.Since != nil && ev.CreatedAt.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && ev.CreatedAt.After(*opts.Until) {
			continue
		}
		events = append(events, ev)
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(events) {
			return nil, nil
		}
		events = events[opts.Offset:]
	}
	if opts.Limit > 0 && len(events) > opts.Limit {
		events = events[:opts.Limit]
	}
	return events, nil
}

func (s *Store) GetByPaymentRef(ctx context.Context, ref string) (domain.HistoryEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byRef[ref]
	if !ok {
		return domain.HistoryEvent{}, domain.ErrNotFound
	}
	return s.history[idx], nil
}

func (s *Store) ListBefore(ctx context.Context, before time.Time) ([]domain.HistoryEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []domain.HistoryEvent
	for _, ev := range s.history {
		if ev.CreatedAt.Before(before) {
			events = append(events, ev)
		}
	}
	return events, nil
}

func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.history[:0]
	var deleted int64
	for _, ev := range s.history {
		if ev.CreatedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, ev)
	}
	s.history = kept

	s.byRef = make(map[string]int, len(s.history))
	for i, ev := range s.history {
		s.byRef[ev.PaymentRef] = i
	}
	return deleted, nil
}

// --- domain.SettlementStore ---

// Settle runs fn while holding the store mutex, staging writes that are only
// published on commit. Forced conflicts (FailNextSettlements) discard the
// staged writes, mimicking a serialization abort.
func (s *Store) Settle(ctx context.Context, fn func(tx domain.SettlementTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &settlementTx{store: s, staged: make(map[string]domain.Bidder)}
	if err := fn(tx); err != nil {
		return err
	}

	if s.conflictsLeft > 0 {
		s.conflictsLeft--
		return domain.ErrConflict
	}

	tx.commit()
	return nil
}

type settlementTx struct {
	store  *Store
	staged map[string]domain.Bidder
	throne *domain.Throne
	events []domain.HistoryEvent
}

func (t *settlementTx) HistoryByPaymentRef(ctx context.Context, ref string) (domain.HistoryEvent, error) {
	idx, ok := t.store.byRef[ref]
	if !ok {
		return domain.HistoryEvent{}, domain.ErrNotFound
	}
	return t.store.history[idx], nil
}

func (t *settlementTx) BidderForUpdate(ctx context.Context, id string) (domain.Bidder, error) {
	if b, ok := t.staged[id]; ok {
		return b, nil
	}
	b, ok := t.store.bidders[id]
	if !ok {
		return domain.Bidder{}, domain.ErrNotFound
	}
	return b, nil
}

func (t *settlementTx) Throne(ctx context.Context) (domain.Throne, error) {
	if t.throne != nil {
		return *t.throne, nil
	}
	if t.store.throne == nil {
		return domain.Throne{}, domain.ErrNotFound
	}
	return *t.store.throne, nil
}

func (t *settlementTx) UpdateBidder(ctx context.Context, b domain.Bidder) error {
	if _, ok := t.store.bidders[b.ID]; !ok {
		return domain.ErrNotFound
	}
	t.staged[b.ID] = b
	return nil
}

func (t *settlementTx) AppendHistory(ctx context.Context, ev domain.HistoryEvent) error {
	if _, ok := t.store.byRef[ev.PaymentRef]; ok {
		return domain.ErrAlreadyExists
	}
	t.events = append(t.events, ev)
	return nil
}

func (t *settlementTx) ReplaceThrone(ctx context.Context, th domain.Throne) error {
	t.throne = &th
	return nil
}

func (t *settlementTx) commit() {
	for id, b := range t.staged {
		t.store.bidders[id] = b
	}
	for _, ev := range t.events {
		t.store.history = append(t.store.history, ev)
		t.store.byRef[ev.PaymentRef] = len(t.store.history) - 1
	}
	if t.throne != nil {
		t.store.throne = t.throne
	}
}

// Compile-time interface checks.
var (
	_ domain.BidderStore     = (*Store)(nil)
	_ domain.HistoryStore    = (*Store)(nil)
	_ domain.SettlementStore = (*Store)(nil)
	_ domain.ThroneStore     = ThroneView{}
	_ domain.SettlementTx    = (*settlementTx)(nil)
)
