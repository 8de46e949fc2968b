package execution

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmreyes/memesnipe/internal/domain"
)

type fakePoolSource struct {
	pool domain.PoolData
	err  error
}

func (f fakePoolSource) PoolData(context.Context, string) (domain.PoolData, error) {
	return f.pool, f.err
}

type fakeQuoter struct {
	mu         sync.Mutex
	quotedSize float64
	err        error
}

func (f *fakeQuoter) QuoteAndBuild(_ context.Context, _ string, _ domain.Side, sizeUSD float64) (BuiltSwap, error) {
	f.mu.Lock()
	f.quotedSize = sizeUSD
	f.mu.Unlock()
	if f.err != nil {
		return BuiltSwap{}, f.err
	}
	return BuiltSwap{TransactionB64: "dW5zaWduZWQ=", PriceImpactPct: 0.015}, nil
}

type fakeSigner struct{ err error }

func (f fakeSigner) Sign(_ context.Context, tx string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "signed:" + tx, nil
}

type fakeRelay struct{ err error }

func (f fakeRelay) Submit(_ context.Context, _ string, _ uint64) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	return "bundle-1", "landed", nil
}

type memExecutionStore struct {
	mu       sync.Mutex
	outcomes []domain.ExecutionOutcome
}

func (m *memExecutionStore) Record(_ context.Context, o domain.ExecutionOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, o)
	return nil
}

func (m *memExecutionStore) Recent(context.Context, int) ([]domain.ExecutionOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ExecutionOutcome(nil), m.outcomes...), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func goodPool() domain.PoolData {
	return domain.PoolData{LiquidityUSD: 100_000, FeeBps: 30, LPBurnedPercent: 100}
}

func intent(side domain.Side, size float64) domain.TradeIntent {
	return domain.TradeIntent{
		ID:         "intent-1",
		Token:      "MINTxyz",
		Side:       side,
		SizeUSD:    size,
		StrategyID: "momentum_5m",
		Kind:       domain.ActionEnter,
		CreatedAt:  time.Now().UTC(),
	}
}

func TestExecuteHappyPath(t *testing.T) {
	quoter := &fakeQuoter{}
	r := NewRouter(NewAnalyzer(testLimits()), fakePoolSource{pool: goodPool()}, quoter,
		fakeSigner{}, fakeRelay{}, nil, nil, RouterConfig{TipLamports: 10_000}, discardLogger())

	out := r.Execute(context.Background(), intent(domain.SideBuy, 1000))

	require.Equal(t, domain.ExecutionExecuted, out.Status)
	assert.Equal(t, "bundle-1", out.BundleID)
	assert.Equal(t, "landed", out.Reason)
	assert.Equal(t, "signed:dW5zaWduZWQ=", out.TxSignature)
	assert.InDelta(t, 150.0, out.RealizedSlippageBps, 0.001)
	assert.Equal(t, 1000.0, quoter.quotedSize, "viable intents quote at full size")
}

func TestExecuteRejectsWhenPoolUnavailable(t *testing.T) {
	r := NewRouter(NewAnalyzer(testLimits()), fakePoolSource{err: errors.New("cache down")},
		&fakeQuoter{}, fakeSigner{}, fakeRelay{}, nil, nil, RouterConfig{}, discardLogger())

	out := r.Execute(context.Background(), intent(domain.SideBuy, 1000))

	require.Equal(t, domain.ExecutionRejected, out.Status)
	assert.Contains(t, out.Reason, "no pool data")
}

func TestExecuteRejectsNotViable(t *testing.T) {
	shallow := domain.PoolData{LiquidityUSD: 1000, FeeBps: 30, LPBurnedPercent: 100}
	r := NewRouter(NewAnalyzer(testLimits()), fakePoolSource{pool: shallow},
		&fakeQuoter{}, fakeSigner{}, fakeRelay{}, nil, nil, RouterConfig{}, discardLogger())

	out := r.Execute(context.Background(), intent(domain.SideBuy, 1000))

	require.Equal(t, domain.ExecutionRejected, out.Status)
	assert.Contains(t, out.Reason, "below minimum")
}

func TestExecuteRiskyPoolHalvesSize(t *testing.T) {
	unburned := domain.PoolData{LiquidityUSD: 100_000, FeeBps: 30, LPBurnedPercent: 50}
	quoter := &fakeQuoter{}
	r := NewRouter(NewAnalyzer(testLimits()), fakePoolSource{pool: unburned}, quoter,
		fakeSigner{}, fakeRelay{}, nil, nil, RouterConfig{}, discardLogger())

	out := r.Execute(context.Background(), intent(domain.SideBuy, 1000))

	require.Equal(t, domain.ExecutionExecuted, out.Status)
	assert.Equal(t, 500.0, quoter.quotedSize, "risky intents quote at the reduced size")
	assert.Equal(t, 500.0, out.SizeUSD, "outcome carries the executed size")
}

func TestExecuteSignFailureIsTerminal(t *testing.T) {
	r := NewRouter(NewAnalyzer(testLimits()), fakePoolSource{pool: goodPool()}, &fakeQuoter{},
		fakeSigner{err: errors.New("signer timeout")}, fakeRelay{}, nil, nil, RouterConfig{}, discardLogger())

	out := r.Execute(context.Background(), intent(domain.SideBuy, 1000))

	require.Equal(t, domain.ExecutionFailed, out.Status)
	assert.Contains(t, out.Reason, "sign:")
}

func TestExecuteSubmitFailureIsTerminal(t *testing.T) {
	r := NewRouter(NewAnalyzer(testLimits()), fakePoolSource{pool: goodPool()}, &fakeQuoter{},
		fakeSigner{}, fakeRelay{err: errors.New("relay rejected")}, nil, nil, RouterConfig{}, discardLogger())

	out := r.Execute(context.Background(), intent(domain.SideBuy, 1000))

	require.Equal(t, domain.ExecutionFailed, out.Status)
	assert.Contains(t, out.Reason, "submit:")
}

func TestRunPersistsOutcomesAndDrainsChannel(t *testing.T) {
	store := &memExecutionStore{}
	r := NewRouter(NewAnalyzer(testLimits()), fakePoolSource{pool: goodPool()}, &fakeQuoter{},
		fakeSigner{}, fakeRelay{}, store, nil, RouterConfig{Paper: true}, discardLogger())

	intents := make(chan domain.TradeIntent, 3)
	for i := 0; i < 3; i++ {
		in := intent(domain.SideBuy, 500)
		in.ID = in.ID + string(rune('a'+i))
		intents <- in
	}
	close(intents)

	err := r.Run(context.Background(), intents)
	require.NoError(t, err)

	recorded, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recorded, 3)
	for _, o := range recorded {
		assert.Equal(t, domain.ExecutionExecuted, o.Status)
		assert.True(t, o.Paper)
	}
}

func TestPaperPipelineEndToEnd(t *testing.T) {
	r := NewRouter(NewAnalyzer(testLimits()), NewPaperPoolSource(), NewPaperQuoter(),
		NewPaperSigner(), NewPaperRelay(), nil, nil, RouterConfig{Paper: true}, discardLogger())

	out := r.Execute(context.Background(), intent(domain.SideBuy, 200))

	require.Equal(t, domain.ExecutionExecuted, out.Status)
	assert.Equal(t, "simulated", out.Reason)
	assert.Contains(t, out.BundleID, "paper-bundle-")
	assert.Contains(t, out.TxSignature, "papersig:")
	assert.True(t, out.Paper)

	// Deterministic: the same intent produces the same bundle.
	again := r.Execute(context.Background(), intent(domain.SideBuy, 200))
	assert.Equal(t, out.BundleID, again.BundleID)
}
