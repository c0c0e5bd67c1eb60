package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Elmasricoweb/mas-rico-internet/internal/domain"
)

// SettlementStore implements domain.SettlementStore using a SERIALIZABLE pgx
// transaction. Concurrent settlements that both read the throne to decide a
// coronation cannot both commit: the loser aborts with a serialization
// failure, surfaced as domain.ErrConflict so the engine re-runs the whole
// procedure.
type SettlementStore struct {
	pool *pgxpool.Pool
}

// NewSettlementStore creates a SettlementStore backed by the given pool.
func NewSettlementStore(pool *pgxpool.Pool) *SettlementStore {
	return &SettlementStore{pool: pool}
}

// Settle runs fn inside one transaction. All reads and writes commit together
// or not at all.
func (s *SettlementStore) Settle(ctx context.Context, fn func(tx domain.SettlementTx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("postgres: begin settlement tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&settlementTx{tx: tx}); err != nil {
		return mapTxErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return mapTxErr(fmt.Errorf("postgres: commit settlement tx: %w", err))
	}
	return nil
}

// mapTxErr translates PostgreSQL abort conditions into domain.ErrConflict so
// the engine retries. A duplicate payment_ref insert (unique violation) is a
// lost race with another delivery of the same event; retrying lands on the
// idempotency check.
func mapTxErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "23505":
			return fmt.Errorf("postgres: settlement aborted (%s): %w", pgErr.Code, domain.ErrConflict)
		}
	}
	return err
}

// settlementTx implements domain.SettlementTx on a pgx transaction.
type settlementTx struct {
	tx pgx.Tx
}

func (t *settlementTx) HistoryByPaymentRef(ctx context.Context, ref string) (domain.HistoryEvent, error) {
	var ev domain.HistoryEvent
	err := t.tx.QueryRow(ctx,
		`SELECT `+historySelectCols+` FROM history_events WHERE payment_ref = $1`, ref,
	).Scan(
		&ev.ID, &ev.Kind, &ev.BidderID, &ev.BidderName, &ev.Amount,
		&ev.NewTotal, &ev.DethronedID, &ev.PaymentRef, &ev.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.HistoryEvent{}, domain.ErrNotFound
		}
		return domain.HistoryEvent{}, fmt.Errorf("postgres: tx history by ref %s: %w", ref, err)
	}
	return ev, nil
}

func (t *settlementTx) BidderForUpdate(ctx context.Context, id string) (domain.Bidder, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+bidderSelectCols+` FROM bidders WHERE id = $1 FOR UPDATE`, id)

	b, err := scanBidder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Bidder{}, domain.ErrNotFound
		}
		return domain.Bidder{}, fmt.Errorf("postgres: tx bidder %s for update: %w", id, err)
	}
	return b, nil
}

func (t *settlementTx) Throne(ctx context.Context) (domain.Throne, error) {
	var th domain.Throne
	err := t.tx.QueryRow(ctx,
		`SELECT holder_id, holder_name, amount, crowned_at, payment_ref FROM throne FOR UPDATE`,
	).Scan(&th.HolderID, &th.HolderName, &th.Amount, &th.CrownedAt, &th.PaymentRef)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Throne{}, domain.ErrNotFound
		}
		return domain.Throne{}, fmt.Errorf("postgres: tx throne: %w", err)
	}
	return th, nil
}

func (t *settlementTx) UpdateBidder(ctx context.Context, b domain.Bidder) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE bidders SET
			display_name = $2,
			total_invested = $3,
			times_as_king = $4,
			total_time_as_king = $5,
			longest_reign = $6,
			last_crowned_at = $7,
			updated_at = $8
		WHERE id = $1`,
		b.ID, b.DisplayName, b.TotalInvested, b.Stats.TimesAsKing,
		int64(b.Stats.TotalTimeAsKing), int64(b.Stats.LongestReign),
		b.Stats.LastCrownedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: tx update bidder %s: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: tx update bidder %s: %w", b.ID, domain.ErrNotFound)
	}
	return nil
}

func (t *settlementTx) AppendHistory(ctx context.Context, ev domain.HistoryEvent) error {
	var dethroned *string
	if ev.DethronedID != "" {
		dethroned = &ev.DethronedID
	}

	_, err := t.tx.Exec(ctx, `
		INSERT INTO history_events (
			id, kind, bidder_id, bidder_name, amount,
			new_total, dethroned_id, payment_ref, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ev.ID, ev.Kind, ev.BidderID, ev.BidderName, ev.Amount,
		ev.NewTotal, dethroned, ev.PaymentRef, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: tx append history %s: %w", ev.PaymentRef, err)
	}
	return nil
}

func (t *settlementTx) ReplaceThrone(ctx context.Context, th domain.Throne) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO throne (singleton, holder_id, holder_name, amount, crowned_at, payment_ref)
		VALUES (TRUE, $1, $2, $3, $4, $5)
		ON CONFLICT (singleton) DO UPDATE SET
			holder_id = EXCLUDED.holder_id,
			holder_name = EXCLUDED.holder_name,
			amount = EXCLUDED.amount,
			crowned_at = EXCLUDED.crowned_at,
			payment_ref = EXCLUDED.payment_ref`,
		th.HolderID, th.HolderName, th.Amount, th.CrownedAt, th.PaymentRef,
	)
	if err != nil {
		return fmt.Errorf("postgres: tx replace throne: %w", err)
	}
	return nil
}

// Compile-time interface checks.
var (
	_ domain.SettlementStore = (*SettlementStore)(nil)
	_ domain.SettlementTx    = (*settlementTx)(nil)
)
