package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jmreyes/memesnipe/internal/domain"
	"github.com/jmreyes/memesnipe/internal/engine"
	"github.com/jmreyes/memesnipe/internal/execution"
	"github.com/jmreyes/memesnipe/internal/feed"
	"github.com/jmreyes/memesnipe/internal/platform/dexscreener"
	"github.com/jmreyes/memesnipe/internal/platform/jito"
	"github.com/jmreyes/memesnipe/internal/platform/jupiter"
	"github.com/jmreyes/memesnipe/internal/platform/signer"
	"github.com/jmreyes/memesnipe/internal/risk"
	"github.com/jmreyes/memesnipe/internal/server"
	"github.com/jmreyes/memesnipe/internal/server/handler"
	"github.com/jmreyes/memesnipe/internal/strategy"
)

// intentBuffer bounds how far the event loop can run ahead of the execution
// router before dispatch blocks.
const intentBuffer = 64

// TradeMode runs the full trading stack: the event loop dispatching to
// strategies, the spec listener for hot strategy activation, the circuit
// breaker, the execution router, and the HTTP surface.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")
	return a.runTrading(ctx, deps)
}

// IngestMode runs only the market-data feed, normalizing upstream messages
// onto the event streams for a separate trading process to consume.
func (a *App) IngestMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting ingest mode")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.runFeed(ctx, deps)
	})
	return g.Wait()
}

// FullMode runs ingestion and trading in a single process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.runFeed(ctx, deps)
	})
	g.Go(func() error {
		return a.runTrading(ctx, deps)
	})
	return g.Wait()
}

func (a *App) runFeed(ctx context.Context, deps *Dependencies) error {
	f := feed.NewHeliusFeed(a.cfg.Helius.WsURL, a.cfg.Helius.APIKey, a.cfg.Helius.Tokens, deps.EventStream, deps.Logger)
	return f.Run(ctx)
}

func (a *App) runTrading(ctx context.Context, deps *Dependencies) error {
	registry := strategy.NewRegistry(deps.Logger)
	factory := strategy.NewFactory(deps.Logger)

	for _, family := range a.cfg.Strategy.Active {
		s, err := factory.New(family, family, a.cfg.Strategy.Params[family])
		if err != nil {
			return fmt.Errorf("app: build strategy %q: %w", family, err)
		}
		if err := s.Init(ctx); err != nil {
			return fmt.Errorf("app: init strategy %q: %w", family, err)
		}
		registry.Register(s.ID(), s)
	}
	defer registry.Close()

	router, err := a.buildRouter(ctx, deps)
	if err != nil {
		return err
	}

	breaker := risk.NewBreaker(deps.RiskStore, deps.ControlBus, deps.Notifier, risk.Thresholds{
		MaxDrawdownFraction: a.cfg.Capital.MaxDrawdownFraction,
		DailyLossLimitUSD:   a.cfg.Capital.DailyLossLimitUSD(),
		MaxOpenPositions:    a.cfg.Capital.MaxOpenPositions,
	}, a.cfg.Breaker.SampleInterval.Duration, deps.Logger)

	intents := make(chan domain.TradeIntent, intentBuffer)
	loop := engine.NewLoop(deps.EventStream, registry, deps.RiskStore, deps.ControlBus,
		intents, a.cfg.Breaker.SampleInterval.Duration, deps.Logger)
	specs := engine.NewSpecListener(deps.SpecQueue, factory, registry, deps.Logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(intents)
		return loop.Run(ctx)
	})
	g.Go(func() error {
		return specs.Run(ctx)
	})
	g.Go(func() error {
		return breaker.Run(ctx)
	})
	g.Go(func() error {
		return router.Run(ctx, intents)
	})

	if a.cfg.Server.Enabled {
		srv := a.buildServer(deps, registry)
		g.Go(func() error {
			return srv.Start()
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// buildRouter assembles the execution pipeline. The paper/live decision is
// made exactly once here: everything downstream receives its collaborators
// through interfaces and cannot tell the modes apart.
func (a *App) buildRouter(ctx context.Context, deps *Dependencies) (*execution.Router, error) {
	analyzer := execution.NewAnalyzer(execution.Limits{
		MinLiquidityUSD:   a.cfg.Liquidity.MinLiquidityUSD,
		MaxPriceImpact:    a.cfg.Liquidity.MaxPriceImpact,
		MinLPBurnedPct:    a.cfg.Liquidity.MinLPBurnedPct,
		RiskySizeFraction: a.cfg.Liquidity.RiskySizeFraction,
	})

	routerCfg := execution.RouterConfig{
		TipLamports:   a.cfg.Execution.TipLamports,
		MaxConcurrent: a.cfg.Execution.MaxConcurrent,
		Paper:         a.cfg.Execution.Paper(),
	}

	var (
		pools  execution.PoolSource
		quoter execution.Quoter
		sign   execution.Signer
		relay  execution.Relay
	)

	if a.cfg.Execution.Paper() {
		pools = execution.NewPaperPoolSource()
		quoter = execution.NewPaperQuoter()
		sign = execution.NewPaperSigner()
		relay = execution.NewPaperRelay()
	} else {
		signerClient := signer.New(a.cfg.Signer.URL, a.cfg.Signer.Timeout.Duration)
		pubkey, err := signerClient.Pubkey(ctx)
		if err != nil {
			return nil, fmt.Errorf("app: fetch signer pubkey: %w", err)
		}

		screener := dexscreener.New(a.cfg.Pools.DexScreenerBaseURL)
		pools = execution.NewLivePoolSource(deps.PoolCache, screener, a.cfg.Pools.FallbackFeeBps, deps.Logger)
		quoter = execution.NewLiveQuoter(jupiter.New(a.cfg.Jupiter.BaseURL, a.cfg.Jupiter.APIKey), pubkey, a.cfg.Execution.SlippageBps)
		sign = signerClient
		relay = execution.NewJitoRelay(jito.New(a.cfg.Jito.BlockEngineURL, a.cfg.Jito.AuthIdentity))
	}

	var (
		store    domain.ExecutionStore
		position domain.PositionStore
	)
	if deps.Executions != nil {
		store = deps.Executions
	}
	if deps.Positions != nil {
		position = deps.Positions
	}

	return execution.NewRouter(analyzer, pools, quoter, sign, relay, store, position, routerCfg, deps.Logger), nil
}

func (a *App) buildServer(deps *Dependencies, registry *strategy.Registry) *server.Server {
	checks := map[string]handler.Pinger{
		"redis": deps.Redis,
	}
	if deps.Postgres != nil {
		checks["postgres"] = deps.Postgres
	}

	var executions domain.ExecutionStore
	if deps.Executions != nil {
		executions = deps.Executions
	}

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(checks),
		Status: handler.NewStatusHandler(deps.RiskStore, registry, executions, a.cfg.Execution.Mode, deps.Logger),
	}
	return server.NewServer(server.Config{Port: a.cfg.Server.Port}, handlers, deps.Logger)
}
