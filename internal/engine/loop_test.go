package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmreyes/memesnipe/internal/domain"
	"github.com/jmreyes/memesnipe/internal/strategy"
)

type fakeRiskStore struct {
	enabled bool
	err     error
}

func (f *fakeRiskStore) Snapshot(context.Context) (domain.RiskSnapshot, error) {
	return domain.RiskSnapshot{}, nil
}

func (f *fakeRiskStore) TradingEnabled(context.Context) (bool, error) {
	return f.enabled, f.err
}

func (f *fakeRiskStore) HaltState(context.Context) (domain.HaltState, error) {
	return domain.HaltState{Halted: !f.enabled}, nil
}

func (f *fakeRiskStore) SetHalt(context.Context, domain.HaltState) error { return nil }

func (f *fakeRiskStore) Ping(context.Context) error { return nil }

type enterStrategy struct {
	id string
}

func (s *enterStrategy) ID() string { return s.id }
func (s *enterStrategy) Subscriptions() []domain.EventType {
	return []domain.EventType{domain.EventTypePrice}
}
func (s *enterStrategy) Init(context.Context) error { return nil }
func (s *enterStrategy) Close() error               { return nil }

func (s *enterStrategy) OnEvent(_ context.Context, e domain.MarketEvent) (domain.StrategyAction, error) {
	return domain.Enter(e.Token, domain.SideBuy, 25, "test signal"), nil
}

func testEvent() domain.MarketEvent {
	return domain.MarketEvent{
		Type:      domain.EventTypePrice,
		Token:     "MINT",
		Timestamp: time.Now().UTC(),
		Price:     &domain.PriceUpdate{PriceUSD: 0.01},
	}
}

func newTestLoop(t *testing.T, enabled bool) (*Loop, chan domain.TradeIntent) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := strategy.NewRegistry(logger)
	registry.Register("s", &enterStrategy{id: "s"})

	intents := make(chan domain.TradeIntent, 8)
	l := NewLoop(nil, registry, &fakeRiskStore{enabled: enabled}, nil, intents, time.Second, logger)
	l.primeHaltFlag(context.Background())
	return l, intents
}

func TestHandleEventForwardsIntent(t *testing.T) {
	l, intents := newTestLoop(t, true)

	l.handleEvent(context.Background(), testEvent())

	require.Len(t, intents, 1)
	intent := <-intents
	assert.Equal(t, "s", intent.StrategyID)
	assert.Equal(t, "MINT", intent.Token)
	assert.Equal(t, domain.SideBuy, intent.Side)
	assert.Equal(t, 25.0, intent.SizeUSD)
	assert.NotEmpty(t, intent.ID)
}

func TestHandleEventSkipsWhenHalted(t *testing.T) {
	l, intents := newTestLoop(t, false)

	require.True(t, l.Halted())
	l.handleEvent(context.Background(), testEvent())

	assert.Empty(t, intents, "halted loop must not produce intents")
}

func TestHandleEventNoConsumerIsQuiet(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := strategy.NewRegistry(logger)

	intents := make(chan domain.TradeIntent, 1)
	l := NewLoop(nil, registry, &fakeRiskStore{enabled: true}, nil, intents, time.Second, logger)
	l.primeHaltFlag(context.Background())

	l.handleEvent(context.Background(), testEvent())

	assert.Empty(t, intents)
}

func TestPrimeHaltFlagFailsClosed(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := strategy.NewRegistry(logger)
	intents := make(chan domain.TradeIntent, 1)

	l := NewLoop(nil, registry, &fakeRiskStore{err: errors.New("redis down")}, nil, intents, time.Second, logger)
	l.primeHaltFlag(context.Background())

	assert.True(t, l.Halted(), "unreadable flag must read as halted")
}

func TestHaltBroadcastSuspendsDispatch(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := strategy.NewRegistry(logger)
	registry.Register("s", &enterStrategy{id: "s"})

	ch := make(chan string, 1)
	bus := chanControlBus{ch: ch}
	intents := make(chan domain.TradeIntent, 8)
	l := NewLoop(nil, registry, &fakeRiskStore{enabled: true}, bus, intents, time.Second, logger)
	l.primeHaltFlag(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- l.watchControl(ctx) }()

	ch <- domain.ControlHalt
	require.Eventually(t, l.Halted, time.Second, 5*time.Millisecond)

	l.handleEvent(ctx, testEvent())
	assert.Empty(t, intents)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchControl did not stop on cancellation")
	}
}

type chanControlBus struct {
	ch chan string
}

func (b chanControlBus) Publish(_ context.Context, msg string) error {
	b.ch <- msg
	return nil
}

func (b chanControlBus) Subscribe(context.Context) (<-chan string, error) {
	return b.ch, nil
}
