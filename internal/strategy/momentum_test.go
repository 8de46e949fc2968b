package strategy

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmreyes/memesnipe/internal/domain"
)

func momentumPriceEvent(token string, change5m, volume5m float64) domain.MarketEvent {
	return domain.MarketEvent{
		Type:      domain.EventTypePrice,
		Token:     token,
		Timestamp: time.Now().UTC(),
		Price: &domain.PriceUpdate{
			PriceUSD:      0.001,
			PriceChange5m: change5m,
			VolumeUSD5m:   volume5m,
		},
	}
}

func momentumVolumeEvent(token string, spike, buy, sell float64) domain.MarketEvent {
	return domain.MarketEvent{
		Type:      domain.EventTypeVolume,
		Token:     token,
		Timestamp: time.Now().UTC(),
		Volume: &domain.VolumeUpdate{
			SpikeRatio:    spike,
			BuyVolumeUSD:  buy,
			SellVolumeUSD: sell,
		},
	}
}

func TestMomentumEntersOnMoveWithVolume(t *testing.T) {
	m := NewMomentum("m", nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	action, err := m.OnEvent(context.Background(), momentumPriceEvent("MINT", 0.08, 10_000))
	require.NoError(t, err)

	assert.Equal(t, domain.ActionEnter, action.Kind)
	assert.Equal(t, domain.SideBuy, action.Side)
	assert.Equal(t, 50.0, action.SizeUSD)
}

func TestMomentumHoldsWithoutVolume(t *testing.T) {
	m := NewMomentum("m", nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	action, err := m.OnEvent(context.Background(), momentumPriceEvent("MINT", 0.08, 100))
	require.NoError(t, err)

	assert.Equal(t, domain.ActionHold, action.Kind)
}

func TestMomentumExitsOnReversal(t *testing.T) {
	m := NewMomentum("m", nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	_, err := m.OnEvent(ctx, momentumPriceEvent("MINT", 0.08, 10_000))
	require.NoError(t, err)

	action, err := m.OnEvent(ctx, momentumPriceEvent("MINT", -0.05, 10_000))
	require.NoError(t, err)

	assert.Equal(t, domain.ActionExit, action.Kind)
	assert.Equal(t, "MINT", action.Token)
}

func TestMomentumNoReentryWhileHeld(t *testing.T) {
	m := NewMomentum("m", nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	first, _ := m.OnEvent(ctx, momentumPriceEvent("MINT", 0.08, 10_000))
	require.Equal(t, domain.ActionEnter, first.Kind)

	second, _ := m.OnEvent(ctx, momentumPriceEvent("MINT", 0.09, 12_000))
	assert.Equal(t, domain.ActionHold, second.Kind)
}

func TestMomentumVolumeSpikeEntry(t *testing.T) {
	m := NewMomentum("m", nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	action, err := m.OnEvent(context.Background(), momentumVolumeEvent("MINT", 4.0, 8_000, 2_000))
	require.NoError(t, err)
	assert.Equal(t, domain.ActionEnter, action.Kind)

	// Sell-dominated spikes are distribution, not accumulation.
	m2 := NewMomentum("m2", nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	action, err = m2.OnEvent(context.Background(), momentumVolumeEvent("MINT", 4.0, 2_000, 8_000))
	require.NoError(t, err)
	assert.Equal(t, domain.ActionHold, action.Kind)
}

func TestMomentumParamsOverrideDefaults(t *testing.T) {
	m := NewMomentum("m", Params{"min_change_5m": 0.20, "size_usd": 15.0}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	action, _ := m.OnEvent(context.Background(), momentumPriceEvent("MINT", 0.08, 10_000))
	assert.Equal(t, domain.ActionHold, action.Kind, "below the raised entry bar")

	action, _ = m.OnEvent(context.Background(), momentumPriceEvent("MINT", 0.25, 10_000))
	require.Equal(t, domain.ActionEnter, action.Kind)
	assert.Equal(t, 15.0, action.SizeUSD)
}

func TestRugSnifferAlwaysExits(t *testing.T) {
	s := NewRugSniffer("rug", slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	for _, kind := range []string{"lp_pull", "mint_authority_enabled", "freeze_authority_enabled", "large_dev_transfer"} {
		ev := domain.MarketEvent{
			Type:      domain.EventTypeOnChain,
			Token:     "MINT",
			Timestamp: time.Now().UTC(),
			OnChain:   &domain.OnChainEvent{Kind: kind},
		}
		action, err := s.OnEvent(ctx, ev)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionExit, action.Kind, "kind %s", kind)
		assert.Contains(t, action.Reason, kind)
	}
}

func TestRugSnifferIgnoresBenignEvents(t *testing.T) {
	s := NewRugSniffer("rug", slog.New(slog.NewTextHandler(io.Discard, nil)))

	ev := domain.MarketEvent{
		Type:      domain.EventTypeOnChain,
		Token:     "MINT",
		Timestamp: time.Now().UTC(),
		OnChain:   &domain.OnChainEvent{Kind: "lp_add"},
	}
	action, err := s.OnEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionHold, action.Kind)
}
