package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	redisc "github.com/jmreyes/memesnipe/internal/cache/redis"
	"github.com/jmreyes/memesnipe/internal/config"
	"github.com/jmreyes/memesnipe/internal/notify"
	"github.com/jmreyes/memesnipe/internal/store/postgres"
)

// Dependencies bundles all shared infrastructure created at startup. Mode
// runners pick what they need from here.
type Dependencies struct {
	Redis       *redisc.Client
	RiskStore   *redisc.RiskStore
	ControlBus  *redisc.ControlBus
	EventStream *redisc.EventStream
	SpecQueue   *redisc.SpecQueue
	PoolCache   *redisc.PoolCache

	Postgres   *postgres.Client
	Executions *postgres.ExecutionStore
	Positions  *postgres.PositionStore

	Notifier *notify.Notifier

	Logger *slog.Logger
}

// needsPostgres reports whether the given mode persists executions and
// positions. Ingest-only deployments run without a database.
func needsPostgres(mode string) bool {
	switch strings.ToLower(mode) {
	case "trade", "full":
		return true
	default:
		return false
	}
}

// consumerName builds a stable-enough consumer identity for the Redis
// consumer groups: one per process, unique across restarts.
func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "executor"
	}
	return host + "-" + uuid.NewString()[:8]
}

// Wire creates all infrastructure dependencies from the configuration. The
// returned cleanup function closes everything in reverse creation order.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()
	deps := &Dependencies{Logger: logger}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	rdb, err := redisc.New(ctx, redisc.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	closers = append(closers, func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("closing redis client", slog.Any("error", err))
		}
	})

	consumer := consumerName()
	deps.Redis = rdb
	deps.RiskStore = redisc.NewRiskStore(rdb)
	deps.ControlBus = redisc.NewControlBus(rdb)
	deps.EventStream = redisc.NewEventStream(rdb, consumer, logger)
	deps.SpecQueue = redisc.NewSpecQueue(rdb, consumer, logger)
	deps.PoolCache = redisc.NewPoolCache(rdb, cfg.Pools.CacheTTL.Duration)

	if needsPostgres(cfg.Mode) {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, pg.Close)

		if cfg.Postgres.RunMigrations {
			if err := pg.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("run migrations: %w", err)
			}
		}

		deps.Postgres = pg
		deps.Executions = postgres.NewExecutionStore(pg.Pool())
		deps.Positions = postgres.NewPositionStore(pg.Pool())
	}

	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	logger.Info("dependencies wired",
		slog.String("consumer", consumer),
		slog.Bool("postgres", deps.Postgres != nil),
		slog.Int("notify_senders", len(senders)),
	)

	return deps, cleanup, nil
}
