// Package engine drives the event loop: it pulls market events from the
// transport, gates dispatch on the trading halt flag, routes events through
// the strategy registry, and forwards resulting trade intents to the
// execution router.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jmreyes/memesnipe/internal/domain"
	"github.com/jmreyes/memesnipe/internal/strategy"
)

// Loop is the top-level event driver. Events are consumed one at a time;
// backpressure is pushed to the transport rather than absorbed in memory, so
// worst-case staleness stays bounded.
type Loop struct {
	source   domain.EventSource
	registry *strategy.Registry
	risk     domain.RiskStore
	control  domain.ControlBus
	intents  chan<- domain.TradeIntent
	refresh  time.Duration
	logger   *slog.Logger

	halted atomic.Bool
}

// NewLoop creates a Loop. refresh bounds halt-flag staleness when the
// control broadcast is missed; zero means 10 seconds.
func NewLoop(source domain.EventSource, registry *strategy.Registry, risk domain.RiskStore,
	control domain.ControlBus, intents chan<- domain.TradeIntent, refresh time.Duration, logger *slog.Logger) *Loop {
	if refresh <= 0 {
		refresh = 10 * time.Second
	}
	return &Loop{
		source:   source,
		registry: registry,
		risk:     risk,
		control:  control,
		intents:  intents,
		refresh:  refresh,
		logger:   logger.With(slog.String("component", "engine")),
	}
}

// Run consumes events until the context is cancelled or the transport fails
// fatally. Initialization fails fast: a broker outage means no strategy can
// see markets anyway, so the process restarts instead of retrying here.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.source.Initialize(ctx); err != nil {
		return fmt.Errorf("engine: %w: %w", domain.ErrTransport, err)
	}

	l.primeHaltFlag(ctx)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return l.watchControl(ctx)
	})
	g.Go(func() error {
		l.refreshHaltFlag(ctx)
		return nil
	})
	g.Go(func() error {
		err := l.source.Consume(ctx, l.handleEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("engine: %w: %w", domain.ErrTransport, err)
		}
		return err
	})

	return g.Wait()
}

// primeHaltFlag seeds the halt flag from the store so a restart under an
// active halt never dispatches.
func (l *Loop) primeHaltFlag(ctx context.Context) {
	enabled, err := l.risk.TradingEnabled(ctx)
	if err != nil {
		// Fail closed until the next successful refresh.
		l.logger.Warn("could not read trading flag at startup, assuming halted",
			slog.String("error", err.Error()))
		l.halted.Store(true)
		return
	}
	l.halted.Store(!enabled)
}

// watchControl reacts to halt broadcasts within one message delivery rather
// than one refresh interval.
func (l *Loop) watchControl(ctx context.Context) error {
	ch, err := l.control.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("engine: subscribe control: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return ctx.Err()
			}
			if msg == domain.ControlHalt {
				l.halted.Store(true)
				l.logger.Warn("halt broadcast received, dispatch suspended")
			}
		}
	}
}

// refreshHaltFlag periodically re-reads the store flag. This both catches a
// missed broadcast and observes an operator clearing the halt.
func (l *Loop) refreshHaltFlag(ctx context.Context) {
	ticker := time.NewTicker(l.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			enabled, err := l.risk.TradingEnabled(ctx)
			if err != nil {
				l.logger.Warn("trading flag refresh failed, failing closed",
					slog.String("error", err.Error()))
				l.halted.Store(true)
				continue
			}
			was := l.halted.Swap(!enabled)
			if was && enabled {
				l.logger.Info("trading flag cleared, dispatch resumed")
			}
		}
	}
}

// handleEvent processes one event: halt check, dispatch, intent forwarding.
// Events arriving during a halt are still consumed (no unbounded backlog)
// but produce no trade intents.
func (l *Loop) handleEvent(ctx context.Context, event domain.MarketEvent) {
	if l.halted.Load() {
		l.logger.Debug("trading halted, event skipped",
			slog.String("event_type", string(event.Type)),
			slog.String("token", event.Token))
		return
	}

	results, err := l.registry.Dispatch(ctx, event)
	switch {
	case errors.Is(err, domain.ErrNoConsumer):
		l.logger.Debug("no strategy subscribed",
			slog.String("event_type", string(event.Type)))
		return
	case errors.Is(err, domain.ErrAllConsumersFailed):
		l.logger.Warn("all subscribed strategies failed",
			slog.String("event_type", string(event.Type)),
			slog.String("token", event.Token))
		return
	}

	for _, res := range results {
		if res.Err != nil || res.Action.Kind == domain.ActionHold {
			continue
		}
		intent := domain.NewTradeIntent(res.StrategyID, res.Action)
		select {
		case l.intents <- intent:
			l.logger.Info("trade intent forwarded",
				slog.String("intent", intent.ID),
				slog.String("strategy", intent.StrategyID),
				slog.String("token", intent.Token),
				slog.String("side", string(intent.Side)),
				slog.Float64("size_usd", intent.SizeUSD))
		case <-ctx.Done():
			return
		}
	}
}

// Halted reports the loop's current view of the halt flag, for status
// reporting.
func (l *Loop) Halted() bool {
	return l.halted.Load()
}
