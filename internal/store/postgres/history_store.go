package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Elmasricoweb/mas-rico-internet/internal/domain"
)

// HistoryStore implements domain.HistoryStore using PostgreSQL. Rows are
// append-only; the unique payment_ref column backs settlement idempotency.
type HistoryStore struct {
	pool *pgxpool.Pool
}

// NewHistoryStore creates a HistoryStore backed by the given connection pool.
func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

const historySelectCols = `id, kind, bidder_id, bidder_name, amount,
	new_total, COALESCE(dethroned_id, ''), payment_ref, created_at`

func scanHistoryRows(rows pgx.Rows) ([]domain.HistoryEvent, error) {
	var events []domain.HistoryEvent
	for rows.Next() {
		var ev domain.HistoryEvent
		if err := rows.Scan(
			&ev.ID, &ev.Kind, &ev.BidderID, &ev.BidderName, &ev.Amount,
			&ev.NewTotal, &ev.DethronedID, &ev.PaymentRef, &ev.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// List returns history events newest first, with pagination and optional time
// filtering.
func (s *HistoryStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.HistoryEvent, error) {
	query := `SELECT ` + historySelectCols + ` FROM history_events WHERE TRUE`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list history: %w", err)
	}
	defer rows.Close()

	events, err := scanHistoryRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan history: %w", err)
	}
	return events, nil
}

// GetByPaymentRef returns the event settled for a payment reference, or
// domain.ErrNotFound.
func (s *HistoryStore) GetByPaymentRef(ctx context.Context, ref string) (domain.HistoryEvent, error) {
	var ev domain.HistoryEvent
	err := s.pool.QueryRow(ctx,
		`SELECT `+historySelectCols+` FROM history_events WHERE payment_ref = $1`, ref,
	).Scan(
		&ev.ID, &ev.Kind, &ev.BidderID, &ev.BidderName, &ev.Amount,
		&ev.NewTotal, &ev.DethronedID, &ev.PaymentRef, &ev.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.HistoryEvent{}, domain.ErrNotFound
		}
		return domain.HistoryEvent{}, fmt.Errorf("postgres: get history by ref %s: %w", ref, err)
	}
	return ev, nil
}

// ListBefore returns all events created strictly before the cutoff, oldest
// first (for archiving).
func (s *HistoryStore) ListBefore(ctx context.Context, before time.Time) ([]domain.HistoryEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+historySelectCols+` FROM history_events
		 WHERE created_at < $1 ORDER BY created_at ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list history before: %w", err)
	}
	defer rows.Close()
	return scanHistoryRows(rows)
}

// DeleteBefore deletes all events created before the cutoff. Returns the
// number deleted. Only call after the archive upload has been verified.
func (s *HistoryStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM history_events WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete history before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.HistoryStore = (*HistoryStore)(nil)
