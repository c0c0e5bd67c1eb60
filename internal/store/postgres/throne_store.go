package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Elmasricoweb/mas-rico-internet/internal/domain"
)

// ThroneStore implements domain.ThroneStore using PostgreSQL. The throne
// table holds at most one row; writes go through the settlement transaction.
type ThroneStore struct {
	pool *pgxpool.Pool
}

// NewThroneStore creates a ThroneStore backed by the given connection pool.
func NewThroneStore(pool *pgxpool.Pool) *ThroneStore {
	return &ThroneStore{pool: pool}
}

// Get returns the current throne, or domain.ErrNotFound before the first
// coronation.
func (s *ThroneStore) Get(ctx context.Context) (domain.Throne, error) {
	var t domain.Throne
	err := s.pool.QueryRow(ctx,
		`SELECT holder_id, holder_name, amount, crowned_at, payment_ref FROM throne`,
	).Scan(&t.HolderID, &t.HolderName, &t.Amount, &t.CrownedAt, &t.PaymentRef)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Throne{}, domain.ErrNotFound
		}
		return domain.Throne{}, fmt.Errorf("postgres: get throne: %w", err)
	}
	return t, nil
}

// Compile-time interface check.
var _ domain.ThroneStore = (*ThroneStore)(nil)
