package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MEMESNIPE_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MEMESNIPE_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Redis ──
	setStr(&cfg.Redis.Addr, "MEMESNIPE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MEMESNIPE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MEMESNIPE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MEMESNIPE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MEMESNIPE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MEMESNIPE_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "MEMESNIPE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "MEMESNIPE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MEMESNIPE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MEMESNIPE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MEMESNIPE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MEMESNIPE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MEMESNIPE_POSTGRES_SSL_MODE")
	setBool(&cfg.Postgres.RunMigrations, "MEMESNIPE_POSTGRES_RUN_MIGRATIONS")

	// ── Capital / breaker ──
	setFloat64(&cfg.Capital.InitialCapitalUSD, "MEMESNIPE_CAPITAL_INITIAL_USD")
	setInt(&cfg.Capital.MaxOpenPositions, "MEMESNIPE_CAPITAL_MAX_OPEN_POSITIONS")
	setFloat64(&cfg.Capital.MaxDrawdownFraction, "MEMESNIPE_CAPITAL_MAX_DRAWDOWN_FRACTION")
	setFloat64(&cfg.Capital.DailyLossCapitalFrac, "MEMESNIPE_CAPITAL_DAILY_LOSS_FRAC")
	setDuration(&cfg.Breaker.SampleInterval, "MEMESNIPE_BREAKER_SAMPLE_INTERVAL")

	// ── Liquidity ──
	setFloat64(&cfg.Liquidity.MinLiquidityUSD, "MEMESNIPE_LIQUIDITY_MIN_USD")
	setFloat64(&cfg.Liquidity.MaxPriceImpact, "MEMESNIPE_LIQUIDITY_MAX_PRICE_IMPACT")
	setFloat64(&cfg.Liquidity.MinLPBurnedPct, "MEMESNIPE_LIQUIDITY_MIN_LP_BURNED_PCT")

	// ── Execution ──
	setStr(&cfg.Execution.Mode, "MEMESNIPE_EXECUTION_MODE")
	setInt(&cfg.Execution.SlippageBps, "MEMESNIPE_EXECUTION_SLIPPAGE_BPS")
	setUint64(&cfg.Execution.TipLamports, "MEMESNIPE_EXECUTION_TIP_LAMPORTS")
	setInt(&cfg.Execution.MaxConcurrent, "MEMESNIPE_EXECUTION_MAX_CONCURRENT")

	// ── External services ──
	setStr(&cfg.Jupiter.BaseURL, "MEMESNIPE_JUPITER_BASE_URL")
	setStr(&cfg.Jupiter.APIKey, "MEMESNIPE_JUPITER_API_KEY")
	setStr(&cfg.Pools.DexScreenerBaseURL, "MEMESNIPE_POOLS_DEXSCREENER_BASE_URL")
	setDuration(&cfg.Pools.CacheTTL, "MEMESNIPE_POOLS_CACHE_TTL")
	setInt(&cfg.Pools.FallbackFeeBps, "MEMESNIPE_POOLS_FALLBACK_FEE_BPS")
	setStr(&cfg.Jito.BlockEngineURL, "MEMESNIPE_JITO_BLOCK_ENGINE_URL")
	setStr(&cfg.Jito.AuthIdentity, "MEMESNIPE_JITO_AUTH_IDENTITY")
	setStr(&cfg.Signer.URL, "MEMESNIPE_SIGNER_URL")
	setDuration(&cfg.Signer.Timeout, "MEMESNIPE_SIGNER_TIMEOUT")
	setStr(&cfg.Helius.WsURL, "MEMESNIPE_HELIUS_WS_URL")
	setStr(&cfg.Helius.APIKey, "MEMESNIPE_HELIUS_API_KEY")
	setStringSlice(&cfg.Helius.Tokens, "MEMESNIPE_HELIUS_TOKENS")

	// ── Strategy ──
	setStringSlice(&cfg.Strategy.Active, "MEMESNIPE_STRATEGY_ACTIVE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "MEMESNIPE_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "MEMESNIPE_SERVER_PORT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "MEMESNIPE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MEMESNIPE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MEMESNIPE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MEMESNIPE_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "MEMESNIPE_MODE")
	setStr(&cfg.LogLevel, "MEMESNIPE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
