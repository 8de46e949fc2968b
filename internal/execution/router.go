package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jmreyes/memesnipe/internal/domain"
)

// PoolSource supplies the pool snapshot the liquidity gate evaluates.
type PoolSource interface {
	PoolData(ctx context.Context, token string) (domain.PoolData, error)
}

// BuiltSwap is a quoted, unsigned swap ready for signing.
type BuiltSwap struct {
	TransactionB64 string
	PriceImpactPct float64 // fraction, e.g. 0.0204
	InAmount       string
	OutAmount      string
}

// Quoter prices a trade at a given size and builds the unsigned transaction.
type Quoter interface {
	QuoteAndBuild(ctx context.Context, token string, side domain.Side, sizeUSD float64) (BuiltSwap, error)
}

// Signer signs a base64 transaction in a single round trip, no retry.
type Signer interface {
	Sign(ctx context.Context, transactionB64 string) (string, error)
}

// Relay submits one signed transaction as an atomic bundle with a tip.
type Relay interface {
	Submit(ctx context.Context, signedTxB64 string, tipLamports uint64) (bundleID, status string, err error)
}

// RouterConfig carries the router's fixed pipeline parameters.
type RouterConfig struct {
	TipLamports   uint64
	MaxConcurrent int
	Paper         bool
}

// Router runs the fixed execution pipeline for each cleared TradeIntent:
// pool fetch, liquidity gate, quote at the cleared size, sign, submit. It
// never retries: a signing or relay failure is surfaced as a Failed outcome
// and retry policy, if any, belongs to the caller. The paper/live split is
// decided once at wiring time through the injected collaborators; the
// pipeline itself is identical in both modes.
type Router struct {
	analyzer *Analyzer
	pools    PoolSource
	quoter   Quoter
	signer   Signer
	relay    Relay
	store    domain.ExecutionStore
	position domain.PositionStore
	cfg      RouterConfig
	logger   *slog.Logger
}

// NewRouter creates a Router. store and position may be nil when persistence
// is disabled.
func NewRouter(analyzer *Analyzer, pools PoolSource, quoter Quoter, signer Signer, relay Relay,
	store domain.ExecutionStore, position domain.PositionStore, cfg RouterConfig, logger *slog.Logger) *Router {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	return &Router{
		analyzer: analyzer,
		pools:    pools,
		quoter:   quoter,
		signer:   signer,
		relay:    relay,
		store:    store,
		position: position,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "router")),
	}
}

// Run consumes intents until the channel closes or the context is
// cancelled. Each intent executes on its own goroutine, bounded by
// MaxConcurrent; an in-flight execution is never cancelled once started.
func (r *Router) Run(ctx context.Context, intents <-chan domain.TradeIntent) error {
	g := new(errgroup.Group)
	g.SetLimit(r.cfg.MaxConcurrent)

	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			return ctx.Err()
		case intent, ok := <-intents:
			if !ok {
				return g.Wait()
			}
			g.Go(func() error {
				outcome := r.Execute(context.WithoutCancel(ctx), intent)
				r.record(context.WithoutCancel(ctx), outcome)
				return nil
			})
		}
	}
}

// Execute runs the pipeline for one intent and returns its terminal outcome.
func (r *Router) Execute(ctx context.Context, intent domain.TradeIntent) domain.ExecutionOutcome {
	outcome := domain.ExecutionOutcome{
		IntentID:   intent.ID,
		StrategyID: intent.StrategyID,
		Token:      intent.Token,
		Side:       intent.Side,
		SizeUSD:    intent.SizeUSD,
		Paper:      r.cfg.Paper,
		CreatedAt:  time.Now().UTC(),
	}

	pool, err := r.pools.PoolData(ctx, intent.Token)
	if err != nil {
		outcome.Status = domain.ExecutionRejected
		outcome.Reason = fmt.Sprintf("no pool data: %v", err)
		r.logger.Warn("intent rejected, no pool data",
			slog.String("intent", intent.ID),
			slog.String("token", intent.Token),
			slog.String("error", err.Error()))
		return outcome
	}

	decision := r.analyzer.Analyze(intent.SizeUSD, pool)
	sizeUSD := intent.SizeUSD

	switch decision.Verdict {
	case domain.LiquidityNotViable:
		outcome.Status = domain.ExecutionRejected
		outcome.Reason = decision.Reason
		r.logger.Info("intent rejected by liquidity gate",
			slog.String("intent", intent.ID),
			slog.String("token", intent.Token),
			slog.String("reason", decision.Reason))
		return outcome
	case domain.LiquidityRisky:
		sizeUSD = intent.SizeUSD * decision.SuggestedSizeReduction
		outcome.SizeUSD = sizeUSD
		r.logger.Info("intent size reduced by liquidity gate",
			slog.String("intent", intent.ID),
			slog.String("token", intent.Token),
			slog.Float64("original_usd", intent.SizeUSD),
			slog.Float64("reduced_usd", sizeUSD),
			slog.String("reason", decision.Reason))
	}

	swap, err := r.quoter.QuoteAndBuild(ctx, intent.Token, intent.Side, sizeUSD)
	if err != nil {
		outcome.Status = domain.ExecutionFailed
		outcome.Reason = fmt.Sprintf("quote: %v", err)
		return outcome
	}
	outcome.RealizedSlippageBps = swap.PriceImpactPct * 10000

	signed, err := r.signer.Sign(ctx, swap.TransactionB64)
	if err != nil {
		outcome.Status = domain.ExecutionFailed
		outcome.Reason = fmt.Sprintf("sign: %v", err)
		r.logger.Error("signing failed",
			slog.String("intent", intent.ID),
			slog.String("error", err.Error()))
		return outcome
	}

	bundleID, status, err := r.relay.Submit(ctx, signed, r.cfg.TipLamports)
	if err != nil {
		outcome.Status = domain.ExecutionFailed
		outcome.Reason = fmt.Sprintf("submit: %v", err)
		r.logger.Error("bundle submission failed",
			slog.String("intent", intent.ID),
			slog.String("error", err.Error()))
		return outcome
	}

	outcome.Status = domain.ExecutionExecuted
	outcome.BundleID = bundleID
	outcome.TxSignature = extractSignature(signed)
	outcome.Reason = status

	r.logger.Info("intent executed",
		slog.String("intent", intent.ID),
		slog.String("token", intent.Token),
		slog.String("side", string(intent.Side)),
		slog.Float64("size_usd", sizeUSD),
		slog.String("bundle_id", bundleID),
		slog.Bool("paper", r.cfg.Paper))
	return outcome
}

// record persists the outcome and updates minimal position state. Failures
// here are logged, never propagated: the trade already happened.
func (r *Router) record(ctx context.Context, outcome domain.ExecutionOutcome) {
	if r.store != nil {
		if err := r.store.Record(ctx, outcome); err != nil {
			r.logger.Error("failed to record outcome",
				slog.String("intent", outcome.IntentID),
				slog.String("error", err.Error()))
		}
	}

	if r.position == nil || outcome.Status != domain.ExecutionExecuted {
		return
	}

	switch outcome.Side {
	case domain.SideBuy:
		p := domain.Position{
			ID:         outcome.IntentID,
			Token:      outcome.Token,
			Side:       outcome.Side,
			SizeUSD:    outcome.SizeUSD,
			StrategyID: outcome.StrategyID,
			Status:     domain.PositionOpen,
			OpenedAt:   outcome.CreatedAt,
		}
		if err := r.position.Open(ctx, p); err != nil {
			r.logger.Error("failed to open position",
				slog.String("intent", outcome.IntentID),
				slog.String("error", err.Error()))
		}
	case domain.SideSell:
		if err := r.position.CloseAll(ctx, outcome.Token); err != nil {
			r.logger.Error("failed to close positions",
				slog.String("token", outcome.Token),
				slog.String("error", err.Error()))
		}
	}
}
