package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jmreyes/memesnipe/internal/domain"
)

const (
	specStream = "strategy:specs"
	specGroup  = "executor_group"
)

// SpecQueue implements domain.SpecQueue over the strategy:specs Redis
// stream. New strategy specs published by the evolution service are picked
// up here and hot-loaded into the registry.
type SpecQueue struct {
	rdb      *redis.Client
	consumer string
	log      *slog.Logger
}

// NewSpecQueue creates a SpecQueue. The consumer name must be unique per
// process within the group.
func NewSpecQueue(c *Client, consumer string, log *slog.Logger) *SpecQueue {
	return &SpecQueue{
		rdb:      c.rdb,
		consumer: consumer,
		log:      log.With(slog.String("component", "spec_queue")),
	}
}

// Consume reads strategy specs from the stream and invokes handle for each
// decoded spec. Malformed entries are logged, acknowledged, and skipped.
// Consume blocks until the context is cancelled.
func (q *SpecQueue) Consume(ctx context.Context, handle func(context.Context, domain.StrategySpec)) error {
	err := q.rdb.XGroupCreateMkStream(ctx, specStream, specGroup, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("redis: create group on %s: %w", specStream, err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    specGroup,
			Consumer: q.consumer,
			Streams:  []string{specStream, ">"},
			Count:    16,
			Block:    readBlock,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			q.log.Warn("spec read failed", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				q.handleMessage(ctx, msg, handle)
			}
		}
	}
}

func (q *SpecQueue) handleMessage(ctx context.Context, msg redis.XMessage, handle func(context.Context, domain.StrategySpec)) {
	defer func() {
		if err := q.rdb.XAck(ctx, specStream, specGroup, msg.ID).Err(); err != nil {
			q.log.Warn("spec ack failed",
				slog.String("id", msg.ID),
				slog.String("error", err.Error()))
		}
	}()

	raw, ok := msg.Values["data"].(string)
	if !ok {
		q.log.Warn("spec entry missing data field", slog.String("id", msg.ID))
		return
	}

	var spec domain.StrategySpec
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		q.log.Warn("spec decode failed",
			slog.String("id", msg.ID),
			slog.String("error", err.Error()))
		return
	}
	if spec.ID == "" || spec.Family == "" {
		q.log.Warn("spec missing id or family", slog.String("id", msg.ID))
		return
	}

	handle(ctx, spec)
}

// Compile-time interface check.
var _ domain.SpecQueue = (*SpecQueue)(nil)
