// Package execution holds the pre-trade liquidity gate and the execution
// router that turns cleared trade intents into signed, bundled swaps.
package execution

import (
	"fmt"

	"github.com/jmreyes/memesnipe/internal/domain"
)

// Limits are the liquidity-gate thresholds.
type Limits struct {
	MinLiquidityUSD   float64
	MaxPriceImpact    float64 // fraction, e.g. 0.02
	MinLPBurnedPct    float64 // below this, liquidity is considered pullable
	RiskySizeFraction float64 // fraction of intended size kept on a Risky verdict
}

// Analyzer is the pre-trade liquidity gate: a pure decision over a candidate
// size and a pool snapshot. Hard depth and impact floors reject
// unconditionally; rug risk is a soft signal that shrinks size instead of
// blocking.
type Analyzer struct {
	limits Limits
}

// NewAnalyzer creates an Analyzer with the given limits.
func NewAnalyzer(limits Limits) *Analyzer {
	return &Analyzer{limits: limits}
}

// Analyze evaluates the decision tree in fixed order, first match returns.
func (a *Analyzer) Analyze(candidateSizeUSD float64, pool domain.PoolData) domain.LiquidityDecision {
	if pool.LiquidityUSD < a.limits.MinLiquidityUSD {
		return domain.LiquidityDecision{
			Verdict: domain.LiquidityNotViable,
			Reason: fmt.Sprintf("pool liquidity %.0f below minimum %.0f",
				pool.LiquidityUSD, a.limits.MinLiquidityUSD),
		}
	}

	sizeRatio := candidateSizeUSD / pool.LiquidityUSD
	if sizeRatio >= 1 {
		return domain.LiquidityDecision{
			Verdict: domain.LiquidityNotViable,
			Reason:  fmt.Sprintf("size %.0f exceeds pool depth %.0f", candidateSizeUSD, pool.LiquidityUSD),
		}
	}

	impact := sizeRatio / (1 - sizeRatio) * (1 - float64(pool.FeeBps)/10000)
	if impact > a.limits.MaxPriceImpact {
		return domain.LiquidityDecision{
			Verdict: domain.LiquidityNotViable,
			Reason: fmt.Sprintf("price impact %.4f above maximum %.4f",
				impact, a.limits.MaxPriceImpact),
		}
	}

	if pool.LPBurnedPercent < a.limits.MinLPBurnedPct {
		return domain.LiquidityDecision{
			Verdict: domain.LiquidityRisky,
			Reason: fmt.Sprintf("lp burned %.1f%% below %.1f%%, liquidity pullable",
				pool.LPBurnedPercent, a.limits.MinLPBurnedPct),
			SuggestedSizeReduction: a.limits.RiskySizeFraction,
		}
	}

	return domain.LiquidityDecision{
		Verdict:               domain.LiquidityViable,
		ExpectedSlippageBps:   impact * 10000,
		AvailableLiquidityUSD: pool.LiquidityUSD,
	}
}
