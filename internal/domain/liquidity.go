package domain

// PoolData is the pool-depth snapshot the liquidity gate evaluates a
// candidate trade against.
type PoolData struct {
	LiquidityUSD    float64 `json:"liquidity_usd"`
	FeeBps          int     `json:"fee_bps"`
	LPBurnedPercent float64 `json:"lp_burned_percent"`
}

// LiquidityVerdict classifies a candidate trade size against pool depth.
type LiquidityVerdict string

const (
	// LiquidityViable clears the trade at full size.
	LiquidityViable LiquidityVerdict = "viable"
	// LiquidityRisky clears the trade at a reduced size (rug risk).
	LiquidityRisky LiquidityVerdict = "risky"
	// LiquidityNotViable rejects the trade unconditionally.
	LiquidityNotViable LiquidityVerdict = "not_viable"
)

// LiquidityDecision is the typed outcome of the pre-trade liquidity gate.
// A NotViable decision is an expected business outcome, not an error.
type LiquidityDecision struct {
	Verdict                LiquidityVerdict
	Reason                 string
	SuggestedSizeReduction float64 // Risky only, fraction of intended size to keep
	ExpectedSlippageBps    float64 // Viable only
	AvailableLiquidityUSD  float64 // Viable only
}
