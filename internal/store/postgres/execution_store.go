package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmreyes/memesnipe/internal/domain"
)

// ExecutionStore implements domain.ExecutionStore using PostgreSQL.
type ExecutionStore struct {
	pool *pgxpool.Pool
}

// NewExecutionStore creates a new ExecutionStore backed by the given pool.
func NewExecutionStore(pool *pgxpool.Pool) *ExecutionStore {
	return &ExecutionStore{pool: pool}
}

const executionSelectCols = `intent_id, strategy_id, token, side, size_usd,
	status, reason, realized_slippage_bps, tx_signature, bundle_id, paper, created_at`

func scanExecutionRows(rows pgx.Rows) ([]domain.ExecutionOutcome, error) {
	var outcomes []domain.ExecutionOutcome
	for rows.Next() {
		var o domain.ExecutionOutcome
		var side, status string

		if err := rows.Scan(
			&o.IntentID, &o.StrategyID, &o.Token, &side, &o.SizeUSD,
			&status, &o.Reason, &o.RealizedSlippageBps,
			&o.TxSignature, &o.BundleID, &o.Paper, &o.CreatedAt,
		); err != nil {
			return nil, err
		}
		o.Side = domain.Side(side)
		o.Status = domain.ExecutionStatus(status)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// Record inserts a terminal execution outcome. Re-recording the same intent
// is a no-op so at-least-once event delivery cannot duplicate rows.
func (s *ExecutionStore) Record(ctx context.Context, o domain.ExecutionOutcome) error {
	const query = `
		INSERT INTO executions (
			intent_id, strategy_id, token, side, size_usd,
			status, reason, realized_slippage_bps, tx_signature, bundle_id, paper, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11, $12
		)
		ON CONFLICT (intent_id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		o.IntentID, o.StrategyID, o.Token, string(o.Side), o.SizeUSD,
		string(o.Status), o.Reason, o.RealizedSlippageBps,
		o.TxSignature, o.BundleID, o.Paper, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: record execution %s: %w", o.IntentID, err)
	}
	return nil
}

// Recent returns the most recent execution outcomes, newest first.
func (s *ExecutionStore) Recent(ctx context.Context, limit int) ([]domain.ExecutionOutcome, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+executionSelectCols+` FROM executions
		 ORDER BY created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent executions: %w", err)
	}
	defer rows.Close()

	outcomes, err := scanExecutionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan recent executions: %w", err)
	}
	return outcomes, nil
}

// Compile-time interface check.
var _ domain.ExecutionStore = (*ExecutionStore)(nil)
