// Package config defines the top-level configuration for the memesnipe
// executor and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by MEMESNIPE_* environment variables.
type Config struct {
	Redis     RedisConfig     `toml:"redis"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Capital   CapitalConfig   `toml:"capital"`
	Breaker   BreakerConfig   `toml:"breaker"`
	Liquidity LiquidityConfig `toml:"liquidity"`
	Execution ExecutionConfig `toml:"execution"`
	Jupiter   JupiterConfig   `toml:"jupiter"`
	Pools     PoolsConfig     `toml:"pools"`
	Jito      JitoConfig      `toml:"jito"`
	Signer    SignerConfig    `toml:"signer"`
	Helius    HeliusConfig    `toml:"helius"`
	Strategy  StrategyConfig  `toml:"strategy"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// RedisConfig holds connection parameters for the shared risk/halt store and
// the event transport.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds connection parameters for execution/position
// persistence.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// CapitalConfig sizes the portfolio-level risk limits. The circuit breaker
// derives its thresholds from these values rather than hard-coding dollar
// amounts.
type CapitalConfig struct {
	InitialCapitalUSD    float64 `toml:"initial_capital_usd"`
	MaxOpenPositions     int     `toml:"max_open_positions"`
	MaxDrawdownFraction  float64 `toml:"max_drawdown_fraction"`   // e.g. 0.10
	DailyLossCapitalFrac float64 `toml:"daily_loss_capital_frac"` // e.g. 0.25
}

// DailyLossLimitUSD is the daily-loss trip level in dollars, derived from the
// configured capital.
func (c CapitalConfig) DailyLossLimitUSD() float64 {
	return c.DailyLossCapitalFrac * c.InitialCapitalUSD
}

// BreakerConfig controls the circuit breaker's sampling loop.
type BreakerConfig struct {
	SampleInterval duration `toml:"sample_interval"`
}

// LiquidityConfig holds the pre-trade liquidity gate thresholds.
type LiquidityConfig struct {
	MinLiquidityUSD   float64 `toml:"min_liquidity_usd"`
	MaxPriceImpact    float64 `toml:"max_price_impact"`
	MinLPBurnedPct    float64 `toml:"min_lp_burned_pct"`
	RiskySizeFraction float64 `toml:"risky_size_fraction"`
}

// ExecutionConfig controls the execution router. Mode is the single
// paper-trading toggle threaded through the router; clients never consult the
// environment themselves.
type ExecutionConfig struct {
	Mode          string `toml:"mode"` // "live" or "paper"
	SlippageBps   int    `toml:"slippage_bps"`
	TipLamports   uint64 `toml:"tip_lamports"`
	MaxConcurrent int    `toml:"max_concurrent"`
}

// Paper reports whether the router runs with simulated signing/submission.
func (e ExecutionConfig) Paper() bool { return strings.EqualFold(e.Mode, "paper") }

// JupiterConfig holds the quote/swap service endpoint.
type JupiterConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

// PoolsConfig controls the live pool-data source: fresh pool snapshots come
// from the cache written by the ingest pipeline, with a DexScreener fallback
// for liquidity when the cache misses.
type PoolsConfig struct {
	DexScreenerBaseURL string   `toml:"dexscreener_base_url"`
	CacheTTL           duration `toml:"cache_ttl"`
	FallbackFeeBps     int      `toml:"fallback_fee_bps"`
}

// JitoConfig holds the bundle-relay endpoint.
type JitoConfig struct {
	BlockEngineURL string `toml:"block_engine_url"`
	AuthIdentity   string `toml:"auth_identity"`
}

// SignerConfig holds the remote transaction-signing service endpoint.
type SignerConfig struct {
	URL     string   `toml:"url"`
	Timeout duration `toml:"timeout"`
}

// HeliusConfig holds market-data gateway parameters (ingest mode).
type HeliusConfig struct {
	WsURL  string   `toml:"ws_url"`
	APIKey string   `toml:"api_key"`
	Tokens []string `toml:"tokens"`
}

// StrategyConfig selects the active strategy families and their parameters.
type StrategyConfig struct {
	// Active lists the strategy families instantiated at startup. Families
	// not listed can still arrive later through the spec queue.
	Active []string                  `toml:"active"`
	Params map[string]map[string]any `toml:"params"` // keyed by family
}

// ServerConfig holds the health/status HTTP surface parameters.
type ServerConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// NotifyConfig holds operator alert channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration wraps time.Duration for TOML decoding from strings like "10s".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Defaults returns the built-in configuration baseline.
func Defaults() Config {
	return Config{
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "memesnipe",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Capital: CapitalConfig{
			InitialCapitalUSD:    200.0,
			MaxOpenPositions:     10,
			MaxDrawdownFraction:  0.10,
			DailyLossCapitalFrac: 0.25,
		},
		Breaker: BreakerConfig{
			SampleInterval: duration{10 * time.Second},
		},
		Liquidity: LiquidityConfig{
			MinLiquidityUSD:   10_000.0,
			MaxPriceImpact:    0.02,
			MinLPBurnedPct:    90.0,
			RiskySizeFraction: 0.5,
		},
		Execution: ExecutionConfig{
			Mode:          "paper",
			SlippageBps:   50,
			TipLamports:   10_000,
			MaxConcurrent: 4,
		},
		Jupiter: JupiterConfig{
			BaseURL: "https://api.jup.ag/swap/v1",
		},
		Pools: PoolsConfig{
			DexScreenerBaseURL: "https://api.dexscreener.com",
			CacheTTL:           duration{5 * time.Minute},
			FallbackFeeBps:     30,
		},
		Jito: JitoConfig{
			BlockEngineURL: "https://mainnet.block-engine.jito.wtf/api/v1",
		},
		Signer: SignerConfig{
			URL:     "http://localhost:8989",
			Timeout: duration{30 * time.Second},
		},
		Helius: HeliusConfig{
			WsURL: "wss://atlas-mainnet.helius-rpc.com",
		},
		Strategy: StrategyConfig{
			Active: []string{"momentum_5m", "mean_revert_1h"},
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8080,
		},
		Mode:     "trade",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"trade":  true,
	"ingest": true,
	"full":   true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for internal consistency. It collects all
// problems rather than stopping at the first.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, ingest, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}

	if c.Capital.InitialCapitalUSD <= 0 {
		errs = append(errs, "capital: initial_capital_usd must be positive")
	}
	if c.Capital.MaxOpenPositions <= 0 {
		errs = append(errs, "capital: max_open_positions must be positive")
	}
	if c.Capital.MaxDrawdownFraction <= 0 || c.Capital.MaxDrawdownFraction >= 1 {
		errs = append(errs, "capital: max_drawdown_fraction must be in (0, 1)")
	}
	if c.Capital.DailyLossCapitalFrac <= 0 || c.Capital.DailyLossCapitalFrac >= 1 {
		errs = append(errs, "capital: daily_loss_capital_frac must be in (0, 1)")
	}

	if c.Breaker.SampleInterval.Duration <= 0 {
		errs = append(errs, "breaker: sample_interval must be positive")
	}

	if c.Liquidity.MinLiquidityUSD <= 0 {
		errs = append(errs, "liquidity: min_liquidity_usd must be positive")
	}
	if c.Liquidity.MaxPriceImpact <= 0 {
		errs = append(errs, "liquidity: max_price_impact must be positive")
	}
	if c.Liquidity.RiskySizeFraction <= 0 || c.Liquidity.RiskySizeFraction > 1 {
		errs = append(errs, "liquidity: risky_size_fraction must be in (0, 1]")
	}

	switch strings.ToLower(c.Execution.Mode) {
	case "live":
		if c.Signer.URL == "" {
			errs = append(errs, "signer: url is required for live execution")
		}
		if c.Jito.BlockEngineURL == "" {
			errs = append(errs, "jito: block_engine_url is required for live execution")
		}
		if c.Jupiter.BaseURL == "" {
			errs = append(errs, "jupiter: base_url is required for live execution")
		}
	case "paper":
		// No external endpoints needed.
	default:
		errs = append(errs, fmt.Sprintf("execution: unknown mode %q (valid: live, paper)", c.Execution.Mode))
	}

	mode := strings.ToLower(c.Mode)
	if (mode == "ingest" || mode == "full") && c.Helius.WsURL == "" {
		errs = append(errs, "helius: ws_url is required for ingest mode")
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server: invalid port %d", c.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
