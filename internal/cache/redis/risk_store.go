package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jmreyes/memesnipe/internal/domain"
)

// Shared risk/halt key space. The breaker is the single writer of the
// system:* keys; the portfolio:* keys are written by the external
// portfolio-accounting process.
const (
	keyDrawdown       = "portfolio:drawdown"
	keyDailyPnL       = "portfolio:daily_pnl"
	keyOpenPositions  = "portfolio:open_positions"
	keyTradingEnabled = "system:trading_enabled"
	keyHaltReason     = "system:halt_reason"
	keyHaltTrippedAt  = "system:halt_tripped_at"
)

// RiskStore implements domain.RiskStore on the shared Redis key space.
type RiskStore struct {
	rdb *redis.Client
}

// NewRiskStore creates a RiskStore backed by the given Client.
func NewRiskStore(c *Client) *RiskStore {
	return &RiskStore{rdb: c.rdb}
}

// Snapshot reads the current portfolio risk indicators. Missing keys read as
// zero so a fresh deployment starts from a clean state; transport errors are
// surfaced so the breaker can fail closed.
func (s *RiskStore) Snapshot(ctx context.Context) (domain.RiskSnapshot, error) {
	vals, err := s.rdb.MGet(ctx, keyDrawdown, keyDailyPnL, keyOpenPositions).Result()
	if err != nil {
		return domain.RiskSnapshot{}, fmt.Errorf("redis: risk snapshot: %w: %v", domain.ErrRiskStore, err)
	}

	snap := domain.RiskSnapshot{}
	snap.DrawdownFraction = parseFloat(vals[0])
	snap.DailyPnLUSD = parseFloat(vals[1])
	snap.OpenPositionCount = int(parseFloat(vals[2]))
	return snap, nil
}

// TradingEnabled reads the halt flag. An absent key means trading is enabled.
func (s *RiskStore) TradingEnabled(ctx context.Context) (bool, error) {
	v, err := s.rdb.Get(ctx, keyTradingEnabled).Result()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis: trading enabled: %w: %v", domain.ErrRiskStore, err)
	}
	return v != "false", nil
}

// HaltState reads the full halt record.
func (s *RiskStore) HaltState(ctx context.Context) (domain.HaltState, error) {
	enabled, err := s.TradingEnabled(ctx)
	if err != nil {
		return domain.HaltState{}, err
	}
	if enabled {
		return domain.HaltState{}, nil
	}

	state := domain.HaltState{Halted: true}
	if reason, err := s.rdb.Get(ctx, keyHaltReason).Result(); err == nil {
		state.Reason = reason
	}
	if ts, err := s.rdb.Get(ctx, keyHaltTrippedAt).Result(); err == nil {
		if parsed, perr := time.Parse(time.RFC3339, ts); perr == nil {
			state.TrippedAt = parsed
		}
	}
	return state, nil
}

// SetHalt writes the halt record. Only the circuit breaker calls this; it is
// a one-way transition cleared exclusively by operator action outside this
// process.
func (s *RiskStore) SetHalt(ctx context.Context, state domain.HaltState) error {
	pipe := s.rdb.TxPipeline()
	if state.Halted {
		pipe.Set(ctx, keyTradingEnabled, "false", 0)
		pipe.Set(ctx, keyHaltReason, state.Reason, 0)
		pipe.Set(ctx, keyHaltTrippedAt, state.TrippedAt.UTC().Format(time.RFC3339), 0)
	} else {
		pipe.Set(ctx, keyTradingEnabled, "true", 0)
		pipe.Del(ctx, keyHaltReason, keyHaltTrippedAt)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set halt: %w: %v", domain.ErrRiskStore, err)
	}
	return nil
}

// Ping checks store reachability for health reporting.
func (s *RiskStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w: %v", domain.ErrRiskStore, err)
	}
	return nil
}

func parseFloat(v any) float64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// Compile-time interface check.
var _ domain.RiskStore = (*RiskStore)(nil)
