package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmreyes/memesnipe/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a new PositionStore backed by the given pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

const positionSelectCols = `id, token, side, size_usd, strategy_id, status, opened_at, closed_at`

func scanPositionRows(rows pgx.Rows) ([]domain.Position, error) {
	var positions []domain.Position
	for rows.Next() {
		var p domain.Position
		var side, status string

		if err := rows.Scan(
			&p.ID, &p.Token, &side, &p.SizeUSD, &p.StrategyID,
			&status, &p.OpenedAt, &p.ClosedAt,
		); err != nil {
			return nil, err
		}
		p.Side = domain.Side(side)
		p.Status = domain.PositionStatus(status)
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// Open inserts a new open position.
func (s *PositionStore) Open(ctx context.Context, p domain.Position) error {
	const query = `
		INSERT INTO positions (
			id, token, side, size_usd, strategy_id, status, opened_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW()
		)`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.Token, string(p.Side), p.SizeUSD, p.StrategyID,
		string(p.Status), p.OpenedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: open position %s: %w", p.ID, err)
	}
	return nil
}

// CloseAll closes every open position in the given token.
func (s *PositionStore) CloseAll(ctx context.Context, token string) error {
	const query = `
		UPDATE positions SET
			status     = 'closed',
			closed_at  = NOW(),
			updated_at = NOW()
		WHERE token = $1 AND status = 'open'`

	if _, err := s.pool.Exec(ctx, query, token); err != nil {
		return fmt.Errorf("postgres: close positions for %s: %w", token, err)
	}
	return nil
}

// CountOpen returns the number of open positions.
func (s *PositionStore) CountOpen(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM positions WHERE status = 'open'`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count open positions: %w", err)
	}
	return count, nil
}

// ListOpen returns all open positions, newest first.
func (s *PositionStore) ListOpen(ctx context.Context) ([]domain.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionSelectCols+` FROM positions
		 WHERE status = 'open'
		 ORDER BY opened_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open positions: %w", err)
	}
	defer rows.Close()

	positions, err := scanPositionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan open positions: %w", err)
	}
	return positions, nil
}

// Compile-time interface check.
var _ domain.PositionStore = (*PositionStore)(nil)
