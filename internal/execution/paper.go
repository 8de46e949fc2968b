package execution

import (
	"context"
	"encoding/base64"
	"fmt"
	"hash/fnv"

	"github.com/jmreyes/memesnipe/internal/domain"
)

// Paper-mode collaborators. They are deterministic pure functions of their
// inputs and touch no network, so simulated runs are reproducible and the
// liquidity gate is exercised exactly as in live mode.

// PaperPoolSource derives a stable synthetic pool per token. Token identity
// hashes to a depth between 25k and 400k USD with a 30 bps fee; roughly one
// token in four reads as unburned LP so the risky path gets exercised too.
type PaperPoolSource struct{}

// NewPaperPoolSource creates a PaperPoolSource.
func NewPaperPoolSource() *PaperPoolSource { return &PaperPoolSource{} }

// PoolData implements PoolSource.
func (PaperPoolSource) PoolData(_ context.Context, token string) (domain.PoolData, error) {
	h := tokenHash(token)

	pd := domain.PoolData{
		LiquidityUSD:    25_000 + float64(h%16)*25_000,
		FeeBps:          30,
		LPBurnedPercent: 100,
	}
	if h%4 == 0 {
		pd.LPBurnedPercent = 50
	}
	return pd, nil
}

// PaperQuoter simulates a quote locally with a fixed synthetic depth.
type PaperQuoter struct{}

// NewPaperQuoter creates a PaperQuoter.
func NewPaperQuoter() *PaperQuoter { return &PaperQuoter{} }

// QuoteAndBuild implements Quoter. Impact is size over a nominal 100k depth,
// and the "transaction" is just the trade description, base64-encoded so the
// downstream stages handle it like a real payload.
func (PaperQuoter) QuoteAndBuild(_ context.Context, token string, side domain.Side, sizeUSD float64) (BuiltSwap, error) {
	impact := sizeUSD / 100_000

	payload := fmt.Sprintf("paper:%s:%s:%.2f", token, side, sizeUSD)
	return BuiltSwap{
		TransactionB64: base64.StdEncoding.EncodeToString([]byte(payload)),
		PriceImpactPct: impact,
		InAmount:       fmt.Sprintf("%.0f", sizeUSD*1e6),
		OutAmount:      fmt.Sprintf("%.0f", sizeUSD*1e6*(1-impact)),
	}, nil
}

// PaperSigner "signs" by tagging the transaction.
type PaperSigner struct{}

// NewPaperSigner creates a PaperSigner.
func NewPaperSigner() *PaperSigner { return &PaperSigner{} }

// Sign implements Signer.
func (PaperSigner) Sign(_ context.Context, transactionB64 string) (string, error) {
	return "papersig:" + transactionB64, nil
}

// PaperRelay acknowledges every bundle with a deterministic id.
type PaperRelay struct{}

// NewPaperRelay creates a PaperRelay.
func NewPaperRelay() *PaperRelay { return &PaperRelay{} }

// Submit implements Relay.
func (PaperRelay) Submit(_ context.Context, signedTxB64 string, _ uint64) (string, string, error) {
	return fmt.Sprintf("paper-bundle-%08x", tokenHash(signedTxB64)), "simulated", nil
}

func tokenHash(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

// Compile-time interface checks.
var (
	_ PoolSource = (*PaperPoolSource)(nil)
	_ Quoter     = (*PaperQuoter)(nil)
	_ Signer     = (*PaperSigner)(nil)
	_ Relay      = (*PaperRelay)(nil)
)
