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

// BidderStore implements domain.BidderStore using PostgreSQL.
type BidderStore struct {
	pool *pgxpool.Pool
}

// NewBidderStore creates a BidderStore backed by the given connection pool.
func NewBidderStore(pool *pgxpool.Pool) *BidderStore {
	return &BidderStore{pool: pool}
}

const bidderSelectCols = `id, display_name, total_invested, times_as_king,
	total_time_as_king, longest_reign, last_crowned_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBidder(row rowScanner) (domain.Bidder, error) {
	var (
		b             domain.Bidder
		totalAsKing   int64
		longestReign  int64
		lastCrownedAt *time.Time
	)
	err := row.Scan(
		&b.ID, &b.DisplayName, &b.TotalInvested, &b.Stats.TimesAsKing,
		&totalAsKing, &longestReign, &lastCrownedAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return domain.Bidder{}, err
	}
	b.Stats.TotalTimeAsKing = time.Duration(totalAsKing)
	b.Stats.LongestReign = time.Duration(longestReign)
	b.Stats.LastCrownedAt = lastCrownedAt
	return b, nil
}

// Get returns a bidder by id, or domain.ErrNotFound.
func (s *BidderStore) Get(ctx context.Context, id string) (domain.Bidder, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+bidderSelectCols+` FROM bidders WHERE id = $1`, id)

	b, err := scanBidder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Bidder{}, domain.ErrNotFound
		}
		return domain.Bidder{}, fmt.Errorf("postgres: get bidder %s: %w", id, err)
	}
	return b, nil
}

// Ensure returns the bidder with the given id, inserting the record on first
// interaction. The display name issued by the identity provider wins on every
// call so renames propagate.
func (s *BidderStore) Ensure(ctx context.Context, id, displayName string) (domain.Bidder, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO bidders (id, display_name)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			updated_at = NOW()
		RETURNING `+bidderSelectCols,
		id, displayName,
	)

	b, err := scanBidder(row)
	if err != nil {
		return domain.Bidder{}, fmt.Errorf("postgres: ensure bidder %s: %w", id, err)
	}
	return b, nil
}

// ListTop returns bidders ordered by cumulative investment descending.
func (s *BidderStore) ListTop(ctx context.Context, limit int) ([]domain.Bidder, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+bidderSelectCols+` FROM bidders
		 ORDER BY total_invested DESC, updated_at ASC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list top bidders: %w", err)
	}
	defer rows.Close()

	var bidders []domain.Bidder
	for rows.Next() {
		b, err := scanBidder(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan top bidders: %w", err)
		}
		bidders = append(bidders, b)
	}
	return bidders, rows.Err()
}

// Compile-time interface check.
var _ domain.BidderStore = (*BidderStore)(nil)
