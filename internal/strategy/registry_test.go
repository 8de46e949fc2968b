package strategy

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

type stubStrategy struct {
	id     string
	subs   []domain.EventType
	action domain.StrategyAction
	err    error

	events []domain.MarketEvent
	closed bool
}

func (s *stubStrategy) ID() string { return s.id }

func (s *stubStrategy) Subscriptions() []domain.EventType { return s.subs }

func (s *stubStrategy) Init(context.Context) error { return nil }

func (s *stubStrategy) Close() error { s.closed = true; return nil }

func (s *stubStrategy) OnEvent(_ context.Context, e domain.MarketEvent) (domain.StrategyAction, error) {
	s.events = append(s.events, e)
	if s.err != nil {
		return domain.StrategyAction{}, s.err
	}
	return s.action, nil
}

func priceEvent(token string) domain.MarketEvent {
	return domain.MarketEvent{
		Type:      domain.EventTypePrice,
		Token:     token,
		Timestamp: time.Now().UTC(),
		Price:     &domain.PriceUpdate{PriceUSD: 1.0},
	}
}

func newTestRegistry() *Registry {
	return NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDispatchRoutesBySubscription(t *testing.T) {
	r := newTestRegistry()
	priceStrat := &stubStrategy{id: "p", subs: []domain.EventType{domain.EventTypePrice}, action: domain.Hold()}
	whaleStrat := &stubStrategy{id: "w", subs: []domain.EventType{domain.EventTypeWhale}, action: domain.Hold()}
	r.Register("p", priceStrat)
	r.Register("w", whaleStrat)

	results, err := r.Dispatch(context.Background(), priceEvent("MINT"))
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "p", results[0].StrategyID)
	assert.Len(t, priceStrat.events, 1)
	assert.Empty(t, whaleStrat.events, "unsubscribed strategies never see the event")
}

func TestDispatchNoConsumer(t *testing.T) {
	r := newTestRegistry()
	r.Register("w", &stubStrategy{id: "w", subs: []domain.EventType{domain.EventTypeWhale}})

	results, err := r.Dispatch(context.Background(), priceEvent("MINT"))

	require.ErrorIs(t, err, domain.ErrNoConsumer)
	assert.Nil(t, results)
}

func TestDispatchIsolatesFailures(t *testing.T) {
	r := newTestRegistry()
	failing := &stubStrategy{id: "bad", subs: []domain.EventType{domain.EventTypePrice}, err: errors.New("boom")}
	healthy := &stubStrategy{id: "good", subs: []domain.EventType{domain.EventTypePrice},
		action: domain.Enter("MINT", domain.SideBuy, 50, "signal")}
	r.Register("bad", failing)
	r.Register("good", healthy)

	results, err := r.Dispatch(context.Background(), priceEvent("MINT"))
	require.NoError(t, err, "one failure must not fail the dispatch")

	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	var serr *domain.StrategyError
	require.ErrorAs(t, results[0].Err, &serr)
	assert.Equal(t, "bad", serr.StrategyID)

	assert.NoError(t, results[1].Err)
	assert.Equal(t, domain.ActionEnter, results[1].Action.Kind)
	assert.Len(t, healthy.events, 1, "healthy strategy still ran after the failure")
}

func TestDispatchAllConsumersFailed(t *testing.T) {
	r := newTestRegistry()
	r.Register("a", &stubStrategy{id: "a", subs: []domain.EventType{domain.EventTypePrice}, err: errors.New("a down")})
	r.Register("b", &stubStrategy{id: "b", subs: []domain.EventType{domain.EventTypePrice}, err: errors.New("b down")})

	results, err := r.Dispatch(context.Background(), priceEvent("MINT"))

	require.ErrorIs(t, err, domain.ErrAllConsumersFailed)
	assert.Len(t, results, 2, "per-strategy results still returned")
}

func TestDispatchFollowsRegistrationOrder(t *testing.T) {
	r := newTestRegistry()
	var ids []string
	for _, id := range []string{"third", "first", "second"} {
		r.Register(id, &stubStrategy{id: id, subs: []domain.EventType{domain.EventTypePrice}})
		ids = append(ids, id)
	}

	results, err := r.Dispatch(context.Background(), priceEvent("MINT"))
	require.NoError(t, err)

	got := make([]string, len(results))
	for i, res := range results {
		got[i] = res.StrategyID
	}
	assert.Equal(t, ids, got)
}

func TestRegisterReplacesAndClosesOld(t *testing.T) {
	r := newTestRegistry()
	old := &stubStrategy{id: "s", subs: []domain.EventType{domain.EventTypePrice}}
	r.Register("s", old)

	replacement := &stubStrategy{id: "s", subs: []domain.EventType{domain.EventTypePrice}, action: domain.Hold()}
	r.Register("s", replacement)

	assert.True(t, old.closed, "replaced strategy must be closed")
	assert.Equal(t, 1, r.Count())

	results, err := r.Dispatch(context.Background(), priceEvent("MINT"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Len(t, replacement.events, 1)
	assert.Empty(t, old.events)
}

func TestDeactivateRemovesFromDispatch(t *testing.T) {
	r := newTestRegistry()
	s := &stubStrategy{id: "s", subs: []domain.EventType{domain.EventTypePrice}}
	r.Register("s", s)
	r.Deactivate("s")

	_, err := r.Dispatch(context.Background(), priceEvent("MINT"))

	require.ErrorIs(t, err, domain.ErrNoConsumer)
	assert.Equal(t, 1, r.Count())
	assert.Equal(t, 0, r.ActiveCount())
}

func TestCloseClosesAll(t *testing.T) {
	r := newTestRegistry()
	a := &stubStrategy{id: "a"}
	b := &stubStrategy{id: "b"}
	r.Register("a", a)
	r.Register("b", b)

	r.Close()

	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

type blockingStrategy struct {
	stubStrategy
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStrategy) OnEvent(context.Context, domain.MarketEvent) (domain.StrategyAction, error) {
	close(s.entered)
	<-s.release
	return domain.Hold(), nil
}

func TestRegisterWaitsForInFlightDispatch(t *testing.T) {
	r := newTestRegistry()
	old := &blockingStrategy{
		stubStrategy: stubStrategy{id: "m", subs: []domain.EventType{domain.EventTypePrice}},
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	r.Register("m", old)

	dispatched := make(chan struct{})
	go func() {
		_, _ = r.Dispatch(context.Background(), priceEvent("MINT"))
		close(dispatched)
	}()
	<-old.entered

	replaced := make(chan struct{})
	go func() {
		r.Register("m", &stubStrategy{id: "m", subs: []domain.EventType{domain.EventTypePrice}})
		close(replaced)
	}()

	// The replaced instance must not be closed under a handler still
	// running for the current event.
	select {
	case <-replaced:
		t.Fatal("registration completed while dispatch was in flight")
	case <-time.After(50 * time.Millisecond):
	}
	assert.False(t, old.closed)

	close(old.release)
	<-dispatched
	<-replaced
	assert.True(t, old.closed)
}
