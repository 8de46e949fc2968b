// Package risk implements the circuit breaker: a background sampler of
// shared portfolio-risk state that trips a cluster-wide trading halt.
package risk

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmreyes/memesnipe/internal/domain"
)

// Alerter is the operator-alert surface the breaker fires on trip.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Thresholds are the trip levels, derived from configured capital at wiring
// time rather than hard-coded.
type Thresholds struct {
	// MaxDrawdownFraction trips when drawdown_fraction <= -MaxDrawdownFraction.
	MaxDrawdownFraction float64
	// DailyLossLimitUSD trips when daily_pnl_usd <= -DailyLossLimitUSD.
	DailyLossLimitUSD float64
	// MaxOpenPositions trips when open_position_count > MaxOpenPositions.
	MaxOpenPositions int
}

// Breaker samples the shared risk store on a fixed interval and performs the
// one-way Normal -> Halted transition. It is the single writer of the halt
// flag; there is no automatic reset, clearing requires operator action on
// the store. A store read failure fails closed: if risk cannot be confirmed
// within bounds, the breaker halts rather than assume safety.
type Breaker struct {
	store      domain.RiskStore
	control    domain.ControlBus
	alerter    Alerter
	thresholds Thresholds
	interval   time.Duration
	logger     *slog.Logger

	tripped   bool // guards the one-shot HALT broadcast per process
	persisted bool // halt record landed in the store
	haltState domain.HaltState
}

// NewBreaker creates a Breaker. interval is the sampling period; zero means
// 10 seconds.
func NewBreaker(store domain.RiskStore, control domain.ControlBus, alerter Alerter, thresholds Thresholds, interval time.Duration, logger *slog.Logger) *Breaker {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Breaker{
		store:      store,
		control:    control,
		alerter:    alerter,
		thresholds: thresholds,
		interval:   interval,
		logger:     logger.With(slog.String("component", "breaker")),
	}
}

// Run samples until the context is cancelled. It returns ctx.Err() on
// cancellation; it never returns on a trip, since a halted system still
// wants the breaker alive to observe state.
func (b *Breaker) Run(ctx context.Context) error {
	// Adopt an existing halt so a restart does not rebroadcast.
	if state, err := b.store.HaltState(ctx); err == nil && state.Halted {
		b.tripped = true
		b.persisted = true
		b.haltState = state
		b.logger.Warn("starting with trading already halted",
			slog.String("reason", state.Reason))
	}

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.logger.Info("circuit breaker running",
		slog.Duration("interval", b.interval),
		slog.Float64("max_drawdown", b.thresholds.MaxDrawdownFraction),
		slog.Float64("daily_loss_limit_usd", b.thresholds.DailyLossLimitUSD),
		slog.Int("max_open_positions", b.thresholds.MaxOpenPositions))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.sample(ctx)
		}
	}
}

// sample takes one risk reading and trips if any threshold is breached.
// Once tripped it keeps retrying halt persistence until the write lands,
// so a store outage at trip time cannot leave trading_enabled set.
func (b *Breaker) sample(ctx context.Context) {
	if b.tripped {
		if !b.persisted {
			b.persistHalt(ctx)
		}
		return
	}

	snap, err := b.store.Snapshot(ctx)
	if err != nil {
		// Fail closed: unreadable risk state is treated as a breach.
		b.logger.Error("risk snapshot failed, failing closed",
			slog.String("error", err.Error()))
		b.trip(ctx, fmt.Sprintf("risk store unreachable: %v", err), nil)
		return
	}

	breaches := b.evaluate(snap)
	if len(breaches) == 0 {
		return
	}
	b.trip(ctx, breaches[0], breaches)
}

// evaluate checks every threshold and returns all breaches; the first entry
// becomes the halt reason.
func (b *Breaker) evaluate(snap domain.RiskSnapshot) []string {
	var breaches []string

	if snap.DrawdownFraction <= -b.thresholds.MaxDrawdownFraction {
		breaches = append(breaches, fmt.Sprintf(
			"drawdown %.4f breached limit -%.4f", snap.DrawdownFraction, b.thresholds.MaxDrawdownFraction))
	}
	if snap.DailyPnLUSD <= -b.thresholds.DailyLossLimitUSD {
		breaches = append(breaches, fmt.Sprintf(
			"daily pnl %.2f breached limit -%.2f", snap.DailyPnLUSD, b.thresholds.DailyLossLimitUSD))
	}
	if snap.OpenPositionCount > b.thresholds.MaxOpenPositions {
		breaches = append(breaches, fmt.Sprintf(
			"open positions %d above maximum %d", snap.OpenPositionCount, b.thresholds.MaxOpenPositions))
	}
	return breaches
}

// trip performs the one-way transition: persist the halt, broadcast exactly
// one HALT, alert the operator once.
func (b *Breaker) trip(ctx context.Context, reason string, allBreaches []string) {
	b.tripped = true
	b.haltState = domain.HaltState{
		Halted:    true,
		Reason:    reason,
		TrippedAt: time.Now().UTC(),
	}

	b.logger.Error("circuit breaker tripped", slog.String("reason", reason))

	// The broadcast below still reaches live consumers; persistence is
	// retried on every subsequent sample until it succeeds.
	b.persistHalt(ctx)

	if err := b.control.Publish(ctx, domain.ControlHalt); err != nil {
		b.logger.Error("failed to broadcast halt",
			slog.String("error", err.Error()))
	}

	if b.alerter != nil {
		msg := reason
		if len(allBreaches) > 1 {
			msg = strings.Join(allBreaches, "\n")
		}
		if err := b.alerter.Notify(ctx, "risk_halt", "TRADING HALTED", msg); err != nil {
			b.logger.Error("failed to send halt alert",
				slog.String("error", err.Error()))
		}
	}
}

// persistHalt writes the halt record to the store, marking it durable only
// on success so sample keeps retrying after a store outage.
func (b *Breaker) persistHalt(ctx context.Context) {
	if err := b.store.SetHalt(ctx, b.haltState); err != nil {
		b.logger.Error("failed to persist halt state, will retry",
			slog.String("error", err.Error()))
		return
	}
	b.persisted = true
}

// Tripped reports whether this breaker has tripped since process start.
func (b *Breaker) Tripped() bool {
	return b.tripped
}
