package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmreyes/memesnipe/internal/cache/redis"
	"github.com/jmreyes/memesnipe/internal/domain"
	"github.com/jmreyes/memesnipe/internal/platform/dexscreener"
	"github.com/jmreyes/memesnipe/internal/platform/jito"
	"github.com/jmreyes/memesnipe/internal/platform/jupiter"
)

// usdcMint is the quote currency every swap is priced in.
const usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

// LivePoolSource reads pool snapshots from the cache maintained by the
// ingest pipeline, falling back to DexScreener for depth when the cache
// misses. A fallback snapshot carries LPBurnedPercent 0, so the gate treats
// unverified pools as pullable and shrinks size.
type LivePoolSource struct {
	cache          *redis.PoolCache
	screener       *dexscreener.Client
	fallbackFeeBps int
	logger         *slog.Logger
}

// NewLivePoolSource creates a LivePoolSource.
func NewLivePoolSource(cache *redis.PoolCache, screener *dexscreener.Client, fallbackFeeBps int, logger *slog.Logger) *LivePoolSource {
	if fallbackFeeBps <= 0 {
		fallbackFeeBps = 30
	}
	return &LivePoolSource{
		cache:          cache,
		screener:       screener,
		fallbackFeeBps: fallbackFeeBps,
		logger:         logger.With(slog.String("component", "pool_source")),
	}
}

// PoolData implements PoolSource.
func (s *LivePoolSource) PoolData(ctx context.Context, token string) (domain.PoolData, error) {
	pd, err := s.cache.Get(ctx, token)
	if err == nil {
		return pd, nil
	}
	if !errors.Is(err, redis.ErrPoolMiss) {
		return domain.PoolData{}, err
	}

	pair, err := s.screener.DeepestPair(ctx, token)
	if err != nil {
		return domain.PoolData{}, fmt.Errorf("execution: pool fallback for %s: %w", token, err)
	}

	pd = domain.PoolData{
		LiquidityUSD:    pair.Liquidity.USD,
		FeeBps:          s.fallbackFeeBps,
		LPBurnedPercent: 0, // unverified, gate will treat as risky
	}
	if err := s.cache.Set(ctx, token, pd); err != nil {
		s.logger.Warn("failed to cache fallback pool snapshot",
			slog.String("token", token),
			slog.String("error", err.Error()))
	}
	return pd, nil
}

// LiveQuoter prices swaps through Jupiter and builds the unsigned
// transaction for the signing wallet. Buys swap USDC into the token with an
// exact input; sells swap the token back with an exact USDC output.
type LiveQuoter struct {
	client      *jupiter.Client
	userPubkey  string
	slippageBps int
}

// NewLiveQuoter creates a LiveQuoter for the given signing wallet.
func NewLiveQuoter(client *jupiter.Client, userPubkey string, slippageBps int) *LiveQuoter {
	return &LiveQuoter{
		client:      client,
		userPubkey:  userPubkey,
		slippageBps: slippageBps,
	}
}

// QuoteAndBuild implements Quoter.
func (q *LiveQuoter) QuoteAndBuild(ctx context.Context, token string, side domain.Side, sizeUSD float64) (BuiltSwap, error) {
	req := jupiter.QuoteRequest{
		Amount:      uint64(sizeUSD * 1e6), // USDC has 6 decimals
		SlippageBps: q.slippageBps,
	}
	switch side {
	case domain.SideBuy:
		req.InputMint = usdcMint
		req.OutputMint = token
	case domain.SideSell:
		req.InputMint = token
		req.OutputMint = usdcMint
		req.SwapMode = "ExactOut"
	default:
		return BuiltSwap{}, fmt.Errorf("execution: unknown side %q", side)
	}

	quote, err := q.client.GetQuote(ctx, req)
	if err != nil {
		return BuiltSwap{}, err
	}

	tx, err := q.client.BuildSwap(ctx, quote, q.userPubkey)
	if err != nil {
		return BuiltSwap{}, err
	}

	return BuiltSwap{
		TransactionB64: tx,
		PriceImpactPct: quote.PriceImpact(),
		InAmount:       quote.InAmount,
		OutAmount:      quote.OutAmount,
	}, nil
}

// JitoRelay adapts the Jito client to the Relay interface, wrapping each
// signed transaction as a single-transaction bundle.
type JitoRelay struct {
	client *jito.Client
}

// NewJitoRelay creates a JitoRelay.
func NewJitoRelay(client *jito.Client) *JitoRelay {
	return &JitoRelay{client: client}
}

// Submit implements Relay.
func (r *JitoRelay) Submit(ctx context.Context, signedTxB64 string, tipLamports uint64) (string, string, error) {
	receipt, err := r.client.SubmitBundle(ctx, []string{signedTxB64}, tipLamports)
	if err != nil {
		return "", "", err
	}
	return receipt.BundleID, receipt.Status, nil
}

// Compile-time interface checks.
var (
	_ PoolSource = (*LivePoolSource)(nil)
	_ Quoter     = (*LiveQuoter)(nil)
	_ Relay      = (*JitoRelay)(nil)
)
