package risk

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
)

type fakeRiskStore struct {
	snap    domain.RiskSnapshot
	snapErr error
	halt    domain.HaltState
	haltErr error

	setCalls    []domain.HaltState
	setFailures int // SetHalt errors for the first N calls
}

func (f *fakeRiskStore) Snapshot(context.Context) (domain.RiskSnapshot, error) {
	return f.snap, f.snapErr
}

func (f *fakeRiskStore) TradingEnabled(context.Context) (bool, error) {
	return !f.halt.Halted, nil
}

func (f *fakeRiskStore) HaltState(context.Context) (domain.HaltState, error) {
	return f.halt, f.haltErr
}

func (f *fakeRiskStore) SetHalt(_ context.Context, state domain.HaltState) error {
	f.setCalls = append(f.setCalls, state)
	if len(f.setCalls) <= f.setFailures {
		return errors.New("write timeout")
	}
	f.halt = state
	return nil
}

func (f *fakeRiskStore) Ping(context.Context) error { return nil }

type fakeControlBus struct {
	published []string
}

func (f *fakeControlBus) Publish(_ context.Context, message string) error {
	f.published = append(f.published, message)
	return nil
}

func (f *fakeControlBus) Subscribe(context.Context) (<-chan string, error) {
	ch := make(chan string)
	close(ch)
	return ch, nil
}

type fakeAlerter struct {
	events   []string
	messages []string
}

func (f *fakeAlerter) Notify(_ context.Context, event, _, message string) error {
	f.events = append(f.events, event)
	f.messages = append(f.messages, message)
	return nil
}

func testThresholds() Thresholds {
	return Thresholds{
		MaxDrawdownFraction: 0.10,
		DailyLossLimitUSD:   50,
		MaxOpenPositions:    10,
	}
}

func newTestBreaker(store *fakeRiskStore, control *fakeControlBus, alerter *fakeAlerter) *Breaker {
	var a Alerter
	if alerter != nil {
		a = alerter
	}
	return NewBreaker(store, control, a, testThresholds(), time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSampleWithinLimitsDoesNotTrip(t *testing.T) {
	store := &fakeRiskStore{snap: domain.RiskSnapshot{DrawdownFraction: -0.05, DailyPnLUSD: -10, OpenPositionCount: 3}}
	control := &fakeControlBus{}
	b := newTestBreaker(store, control, nil)

	b.sample(context.Background())

	assert.False(t, b.Tripped())
	assert.Empty(t, control.published)
	assert.Empty(t, store.setCalls)
}

func TestSampleTripsOnDrawdown(t *testing.T) {
	store := &fakeRiskStore{snap: domain.RiskSnapshot{DrawdownFraction: -0.12}}
	control := &fakeControlBus{}
	alerter := &fakeAlerter{}
	b := newTestBreaker(store, control, alerter)

	b.sample(context.Background())

	require.True(t, b.Tripped())
	require.Len(t, store.setCalls, 1)
	assert.True(t, store.setCalls[0].Halted)
	assert.Contains(t, store.setCalls[0].Reason, "-0.1200", "halt reason carries the observed value")
	assert.Equal(t, []string{domain.ControlHalt}, control.published)
	assert.Equal(t, []string{"risk_halt"}, alerter.events)
}

func TestSampleTripsOnDailyLoss(t *testing.T) {
	store := &fakeRiskStore{snap: domain.RiskSnapshot{DailyPnLUSD: -50}}
	control := &fakeControlBus{}
	b := newTestBreaker(store, control, nil)

	b.sample(context.Background())

	require.True(t, b.Tripped())
	assert.Contains(t, store.setCalls[0].Reason, "daily pnl")
}

func TestSampleTripsOnPositionCount(t *testing.T) {
	store := &fakeRiskStore{snap: domain.RiskSnapshot{OpenPositionCount: 11}}
	control := &fakeControlBus{}
	b := newTestBreaker(store, control, nil)

	b.sample(context.Background())

	require.True(t, b.Tripped())
	assert.Contains(t, store.setCalls[0].Reason, "open positions 11")
}

func TestExactLimitDoesNotTripPositions(t *testing.T) {
	store := &fakeRiskStore{snap: domain.RiskSnapshot{OpenPositionCount: 10}}
	b := newTestBreaker(store, &fakeControlBus{}, nil)

	b.sample(context.Background())

	assert.False(t, b.Tripped())
}

func TestHaltBroadcastIsOneShot(t *testing.T) {
	store := &fakeRiskStore{snap: domain.RiskSnapshot{DrawdownFraction: -0.2}}
	control := &fakeControlBus{}
	b := newTestBreaker(store, control, nil)

	for i := 0; i < 5; i++ {
		b.sample(context.Background())
	}

	assert.Len(t, control.published, 1, "subsequent samples must not rebroadcast")
	assert.Len(t, store.setCalls, 1)
}

func TestNoAutomaticReset(t *testing.T) {
	store := &fakeRiskStore{snap: domain.RiskSnapshot{DrawdownFraction: -0.2}}
	control := &fakeControlBus{}
	b := newTestBreaker(store, control, nil)

	b.sample(context.Background())
	require.True(t, b.Tripped())

	// Risk recovers; the breaker must stay tripped.
	store.snap = domain.RiskSnapshot{}
	b.sample(context.Background())

	assert.True(t, b.Tripped())
	assert.True(t, store.halt.Halted)
}

func TestStoreErrorFailsClosed(t *testing.T) {
	store := &fakeRiskStore{snapErr: errors.New("connection refused")}
	control := &fakeControlBus{}
	b := newTestBreaker(store, control, nil)

	b.sample(context.Background())

	require.True(t, b.Tripped())
	require.Len(t, store.setCalls, 1)
	assert.Contains(t, store.setCalls[0].Reason, "risk store unreachable")
	assert.Equal(t, []string{domain.ControlHalt}, control.published)
}

func TestAllBreachesReachTheAlert(t *testing.T) {
	store := &fakeRiskStore{snap: domain.RiskSnapshot{
		DrawdownFraction:  -0.15,
		DailyPnLUSD:       -80,
		OpenPositionCount: 12,
	}}
	alerter := &fakeAlerter{}
	b := newTestBreaker(store, &fakeControlBus{}, alerter)

	b.sample(context.Background())

	require.Len(t, alerter.messages, 1)
	assert.Contains(t, alerter.messages[0], "drawdown")
	assert.Contains(t, alerter.messages[0], "daily pnl")
	assert.Contains(t, alerter.messages[0], "open positions")
	// First breach in evaluation order becomes the persisted reason.
	assert.Contains(t, store.setCalls[0].Reason, "drawdown")
}

func TestHaltPersistenceRetriedUntilStoreRecovers(t *testing.T) {
	store := &fakeRiskStore{
		snap:        domain.RiskSnapshot{DrawdownFraction: -0.2},
		setFailures: 2,
	}
	control := &fakeControlBus{}
	alerter := &fakeAlerter{}
	b := newTestBreaker(store, control, alerter)

	for i := 0; i < 5; i++ {
		b.sample(context.Background())
	}

	require.True(t, b.Tripped())
	// Trip attempt plus two retries until the store accepts the write.
	assert.Len(t, store.setCalls, 3)
	assert.True(t, store.halt.Halted, "halt record lands once the store recovers")
	assert.Len(t, control.published, 1, "retries must not rebroadcast")
	assert.Len(t, alerter.events, 1, "retries must not re-alert")
}

func TestHaltPersistenceKeepsRetryingWhileStoreFails(t *testing.T) {
	store := &fakeRiskStore{
		snap:        domain.RiskSnapshot{DrawdownFraction: -0.2},
		setFailures: 100,
	}
	control := &fakeControlBus{}
	b := newTestBreaker(store, control, nil)

	for i := 0; i < 5; i++ {
		b.sample(context.Background())
	}

	require.True(t, b.Tripped())
	assert.Len(t, store.setCalls, 5, "every sample retries the failed write")
	assert.False(t, store.halt.Halted)
	assert.Len(t, control.published, 1)
}

func TestRunAdoptsExistingHaltWithoutRebroadcast(t *testing.T) {
	store := &fakeRiskStore{
		snap: domain.RiskSnapshot{DrawdownFraction: -0.2},
		halt: domain.HaltState{Halted: true, Reason: "operator pause", TrippedAt: time.Now().UTC()},
	}
	control := &fakeControlBus{}
	b := newTestBreaker(store, control, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := b.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.True(t, b.Tripped(), "existing halt is adopted at startup")
	assert.Empty(t, control.published, "adoption must not rebroadcast")
	assert.Len(t, store.setCalls, 0)
}
