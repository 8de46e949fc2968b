// Package feed ingests market data: it connects to the Helius websocket,
// normalizes token updates into market events, and publishes them onto the
// event streams the trading engine consumes.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jmreyes/memesnipe/internal/domain"
)

const (
	writeTimeout  = 10 * time.Second
	pongWait      = 60 * time.Second
	pingInterval  = 30 * time.Second
	reconnectWait = 2 * time.Second
)

// HeliusFeed streams token activity for the watched mints and republishes it
// as price and volume events. It reconnects with a fixed backoff on
// disconnect; the consumer side tolerates the resulting duplicates.
type HeliusFeed struct {
	wsURL     string
	apiKey    string
	tokens    []string
	publisher domain.EventPublisher
	logger    *slog.Logger
}

// NewHeliusFeed creates a feed watching the given token mints.
func NewHeliusFeed(wsURL, apiKey string, tokens []string, publisher domain.EventPublisher, logger *slog.Logger) *HeliusFeed {
	return &HeliusFeed{
		wsURL:     wsURL,
		apiKey:    apiKey,
		tokens:    tokens,
		publisher: publisher,
		logger:    logger.With(slog.String("component", "helius_feed")),
	}
}

// subscribeMsg is the watch request sent after connecting.
type subscribeMsg struct {
	Type   string   `json:"type"`
	Tokens []string `json:"tokens"`
}

// feedMsg is one incoming gateway message. Kind selects which payload is
// populated.
type feedMsg struct {
	Kind      string `json:"kind"` // "price", "volume", "onchain", "whale"
	Token     string `json:"token"`
	Timestamp int64  `json:"timestamp"` // unix millis

	PriceUSD      float64 `json:"price_usd"`
	VolumeUSD1m   float64 `json:"volume_usd_1m"`
	VolumeUSD5m   float64 `json:"volume_usd_5m"`
	PriceChange5m float64 `json:"price_change_5m"`
	LiquidityUSD  float64 `json:"liquidity_usd"`

	SpikeRatio    float64 `json:"spike_ratio"`
	BuyVolumeUSD  float64 `json:"buy_volume_usd"`
	SellVolumeUSD float64 `json:"sell_volume_usd"`
	UniqueTraders int     `json:"unique_traders"`

	OnChainKind    string          `json:"onchain_kind"`
	OnChainDetails json.RawMessage `json:"onchain_details"`

	Wallet           string  `json:"wallet"`
	Action           string  `json:"action"`
	AmountUSD        float64 `json:"amount_usd"`
	WalletBalanceUSD float64 `json:"wallet_balance_usd"`
}

// Run connects and streams until the context is cancelled.
func (f *HeliusFeed) Run(ctx context.Context) error {
	if len(f.tokens) == 0 {
		f.logger.Info("no tokens to watch, feed idle")
		<-ctx.Done()
		return ctx.Err()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := f.runConnection(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logger.Warn("helius ws disconnected, reconnecting",
				slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectWait):
		}
	}
}

func (f *HeliusFeed) runConnection(ctx context.Context) error {
	endpoint, err := f.endpoint()
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("feed: dial %s: %w", f.wsURL, err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(subscribeMsg{Type: "subscribe", Tokens: f.tokens}); err != nil {
		return fmt.Errorf("feed: subscribe: %w", err)
	}
	f.logger.Info("helius ws subscribed", slog.Int("tokens", len(f.tokens)))

	// Close the connection when the context ends so ReadMessage unblocks,
	// and keep the peer alive with pings meanwhile.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				_ = conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("feed: read: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg feedMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			f.logger.Warn("unparseable feed message", slog.String("error", err.Error()))
			continue
		}
		f.handle(ctx, msg)
	}
}

func (f *HeliusFeed) endpoint() (string, error) {
	u, err := url.Parse(f.wsURL)
	if err != nil {
		return "", fmt.Errorf("feed: parse ws url: %w", err)
	}
	if f.apiKey != "" {
		q := u.Query()
		q.Set("api-key", f.apiKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// handle normalizes one gateway message into a market event and publishes
// it. Unknown kinds are skipped.
func (f *HeliusFeed) handle(ctx context.Context, msg feedMsg) {
	if msg.Token == "" {
		return
	}

	event := domain.MarketEvent{
		Token:     msg.Token,
		Timestamp: time.UnixMilli(msg.Timestamp).UTC(),
	}
	if msg.Timestamp == 0 {
		event.Timestamp = time.Now().UTC()
	}

	switch msg.Kind {
	case "price":
		event.Type = domain.EventTypePrice
		event.Price = &domain.PriceUpdate{
			PriceUSD:      msg.PriceUSD,
			VolumeUSD1m:   msg.VolumeUSD1m,
			VolumeUSD5m:   msg.VolumeUSD5m,
			PriceChange5m: msg.PriceChange5m,
			LiquidityUSD:  msg.LiquidityUSD,
		}
	case "volume":
		event.Type = domain.EventTypeVolume
		event.Volume = &domain.VolumeUpdate{
			SpikeRatio:    msg.SpikeRatio,
			BuyVolumeUSD:  msg.BuyVolumeUSD,
			SellVolumeUSD: msg.SellVolumeUSD,
			UniqueTraders: msg.UniqueTraders,
		}
	case "onchain":
		event.Type = domain.EventTypeOnChain
		event.OnChain = &domain.OnChainEvent{
			Kind:    msg.OnChainKind,
			Details: msg.OnChainDetails,
		}
	case "whale":
		event.Type = domain.EventTypeWhale
		event.Whale = &domain.WhaleMove{
			Wallet:           msg.Wallet,
			Action:           msg.Action,
			AmountUSD:        msg.AmountUSD,
			WalletBalanceUSD: msg.WalletBalanceUSD,
		}
	default:
		f.logger.Debug("unknown feed message kind", slog.String("kind", msg.Kind))
		return
	}

	if err := f.publisher.Publish(ctx, event); err != nil {
		f.logger.Warn("failed to publish event",
			slog.String("token", event.Token),
			slog.String("type", string(event.Type)),
			slog.String("error", err.Error()))
	}
}
