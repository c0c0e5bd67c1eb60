// Package settle applies confirmed payments to the ledger. Each confirmation
// runs as one atomic transaction: idempotency check, authoritative recompute
// of the bidder's total against the freshly read throne, then the bidder,
// history and throne writes. Conflicting transactions are re-run from the
// idempotency check, so at-least-once webhook delivery settles exactly once.
package settle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Elmasricoweb/mas-rico-internet/internal/domain"
	"github.com/Elmasricoweb/mas-rico-internet/internal/metrics"
)

// Outcome describes what one settlement did to the ledger.
type Outcome struct {
	// Replay is true when the payment reference had already settled and the
	// call was an idempotent no-op.
	Replay bool
	// Crowned is true when this settlement replaced the throne.
	Crowned bool
	// NewTotal is the bidder's cumulative investment after the settlement.
	NewTotal domain.Cents
	// Event is the history row for this payment reference (the original row
	// on replays).
	Event domain.HistoryEvent
}

// Engine is the settlement engine. It is safe to invoke concurrently for
// different bidders racing for the same throne; the store serializes
// transactions that touch the throne record.
type Engine struct {
	store      domain.SettlementStore
	dedup      *Dedup
	metrics    *metrics.Metrics
	logger     *slog.Logger
	maxRetries int
	backoff    time.Duration

	now func() time.Time
}

// NewEngine creates an Engine. maxRetries bounds how many times a conflicted
// transaction is re-run before the error is surfaced to the caller.
func NewEngine(store domain.SettlementStore, dedup *Dedup, m *metrics.Metrics, logger *slog.Logger, maxRetries int) *Engine {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Engine{
		store:      store,
		dedup:      dedup,
		metrics:    m,
		logger:     logger.With(slog.String("component", "settle")),
		maxRetries: maxRetries,
		backoff:    25 * time.Millisecond,
		now:        time.Now,
	}
}

// Settle applies one confirmed payment. Malformed events and unknown bidders
// are fatal for the event (wrapped in domain.ErrUnprocessable, reported, not
// retried); store conflicts are retried with the full procedure re-run from
// the idempotency check.
func (e *Engine) Settle(ctx context.Context, ev domain.PaymentConfirmation) (Outcome, error) {
	if err := validate(ev); err != nil {
		e.metrics.SettlementSettled("unprocessable")
		return Outcome{}, err
	}

	// Fast path for redeliveries of already-committed references. The
	// transactional check below remains authoritative; this only skips the
	// recomputation when the replay row has to be fetched anyway.
	if e.dedup != nil && e.dedup.Seen(ev.PaymentRef) {
		out, err := e.replay(ctx, ev.PaymentRef)
		if err == nil {
			return out, nil
		}
		// Fall through to the full procedure on any lookup problem.
	}

	var out Outcome
	for attempt := 1; ; attempt++ {
		err := e.store.Settle(ctx, func(tx domain.SettlementTx) error {
			return e.apply(ctx, tx, ev, &out)
		})
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrConflict) && attempt < e.maxRetries {
			e.metrics.SettlementRetried()
			e.logger.WarnContext(ctx, "settlement conflict, retrying",
				slog.String("payment_ref", ev.PaymentRef),
				slog.Int("attempt", attempt),
			)
			select {
			case <-ctx.Done():
				return Outcome{}, fmt.Errorf("settle: %s: %w", ev.PaymentRef, ctx.Err())
			case <-time.After(e.backoff * time.Duration(attempt)):
			}
			continue
		}
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUnprocessable) {
			e.metrics.SettlementSettled("unprocessable")
		}
		return Outcome{}, fmt.Errorf("settle: %s: %w", ev.PaymentRef, err)
	}

	if e.dedup != nil {
		e.dedup.Mark(ev.PaymentRef)
	}

	switch {
	case out.Replay:
		e.metrics.SettlementSettled("replay")
	case out.Crowned:
		e.metrics.SettlementSettled("coronation")
		e.logger.InfoContext(ctx, "new throne holder",
			slog.String("bidder_id", ev.BidderID),
			slog.String("amount", out.NewTotal.String()),
			slog.String("payment_ref", ev.PaymentRef),
		)
	default:
		e.metrics.SettlementSettled("contribution")
	}
	return out, nil
}

// apply runs the settlement algorithm inside one transaction. All reads
// happen before any write so the store can provide optimistic or pessimistic
// isolation around the throne.
func (e *Engine) apply(ctx context.Context, tx domain.SettlementTx, ev domain.PaymentConfirmation, out *Outcome) error {
	// Step 1: idempotency. An existing history row for this reference means a
	// previous delivery already committed.
	if prior, err := tx.HistoryByPaymentRef(ctx, ev.PaymentRef); err == nil {
		*out = Outcome{Replay: true, NewTotal: prior.NewTotal, Event: prior}
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("idempotency check: %w", err)
	}

	// Step 2: read phase. A confirmed payment must reference an existing
	// bidder; its absence is fatal for the event.
	bidder, err := tx.BidderForUpdate(ctx, ev.BidderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("bidder %s: %w", ev.BidderID, domain.ErrUnprocessable)
		}
		return fmt.Errorf("read bidder %s: %w", ev.BidderID, err)
	}

	throne, err := tx.Throne(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("read throne: %w", err)
		}
		// Bootstrap: no coronation yet, treated as a holder with amount 0.
		throne = domain.Throne{}
	}

	var dethroned *domain.Bidder
	if !throne.Vacant() && throne.HolderID != bidder.ID {
		prev, err := tx.BidderForUpdate(ctx, throne.HolderID)
		if err != nil {
			return fmt.Errorf("read holder %s: %w", throne.HolderID, err)
		}
		dethroned = &prev
	}

	// Step 3: authoritative recompute against stored state. The quote-time
	// prediction is never trusted; whichever confirmation settles first wins
	// the throne for that instant, and a losing racer is still recorded as a
	// valid contribution.
	now := e.now().UTC()
	newTotal := bidder.TotalInvested + ev.AmountPaid
	crowned := newTotal > throne.Amount

	// Step 4: write phase.
	bidder.TotalInvested = newTotal
	bidder.UpdatedAt = now

	event := domain.HistoryEvent{
		ID:         uuid.NewString(),
		Kind:       domain.HistoryContribution,
		BidderID:   bidder.ID,
		BidderName: bidder.DisplayName,
		Amount:     ev.AmountPaid,
		NewTotal:   newTotal,
		PaymentRef: ev.PaymentRef,
		CreatedAt:  now,
	}

	if crowned {
		event.Kind = domain.HistoryCoronation
		if dethroned != nil {
			event.DethronedID = dethroned.ID

			reign := now.Sub(throne.CrownedAt)
			dethroned.Stats.TotalTimeAsKing += reign
			if reign > dethroned.Stats.LongestReign {
				dethroned.Stats.LongestReign = reign
			}
			dethroned.UpdatedAt = now
			if err := tx.UpdateBidder(ctx, *dethroned); err != nil {
				return fmt.Errorf("update dethroned %s: %w", dethroned.ID, err)
			}
		}

		bidder.Stats.TimesAsKing++
		bidder.Stats.LastCrownedAt = &now
	}

	if err := tx.UpdateBidder(ctx, bidder); err != nil {
		return fmt.Errorf("update bidder %s: %w", bidder.ID, err)
	}
	if err := tx.AppendHistory(ctx, event); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	if crowned {
		if err := tx.ReplaceThrone(ctx, domain.Throne{
			HolderID:   bidder.ID,
			HolderName: bidder.DisplayName,
			Amount:     newTotal,
			CrownedAt:  now,
			PaymentRef: ev.PaymentRef,
		}); err != nil {
			return fmt.Errorf("replace throne: %w", err)
		}
	}

	*out = Outcome{Crowned: crowned, NewTotal: newTotal, Event: event}
	return nil
}

// replay fetches the committed history row for a reference known to have
// settled already.
func (e *Engine) replay(ctx context.Context, paymentRef string) (Outcome, error) {
	var out Outcome
	err := e.store.Settle(ctx, func(tx domain.SettlementTx) error {
		prior, err := tx.HistoryByPaymentRef(ctx, paymentRef)
		if err != nil {
			return err
		}
		out = Outcome{Replay: true, NewTotal: prior.NewTotal, Event: prior}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	e.metrics.SettlementSettled("replay")
	return out, nil
}

func validate(ev domain.PaymentConfirmation) error {
	switch {
	case ev.PaymentRef == "":
		return fmt.Errorf("settle: missing payment reference: %w", domain.ErrUnprocessable)
	case ev.BidderID == "":
		return fmt.Errorf("settle: %s: missing bidder id: %w", ev.PaymentRef, domain.ErrUnprocessable)
	case ev.AmountPaid <= 0:
		return fmt.Errorf("settle: %s: non-positive amount: %w", ev.PaymentRef, domain.ErrUnprocessable)
	}
	return nil
}
