package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jmreyes/memesnipe/internal/domain"
)

const (
	eventStreamPrefix = "events:"
	executorGroup     = "executor_group"

	// streamMaxLen bounds each event stream so slow consumers can never
	// grow Redis without limit.
	streamMaxLen = 100_000

	readBlock = 2 * time.Second

	// readCount stays at 1 so at most one decoded event is in flight per
	// consumer; anything unread remains pending in the group and survives
	// a crash unacknowledged.
	readCount = 1
)

// EventStream implements domain.EventSource and domain.EventPublisher over
// the events:<type> Redis streams, one stream per market event type,
// consumed through a shared consumer group.
type EventStream struct {
	rdb      *redis.Client
	consumer string
	log      *slog.Logger
}

// NewEventStream creates an EventStream. The consumer name must be unique
// per process within the consumer group.
func NewEventStream(c *Client, consumer string, log *slog.Logger) *EventStream {
	return &EventStream{
		rdb:      c.rdb,
		consumer: consumer,
		log:      log.With(slog.String("component", "event_stream")),
	}
}

func streamKey(t domain.EventType) string {
	return eventStreamPrefix + string(t)
}

// Initialize creates the consumer group on every event stream, creating the
// streams themselves if they do not exist yet. Safe to call repeatedly.
func (s *EventStream) Initialize(ctx context.Context) error {
	for _, t := range domain.AllEventTypes {
		key := streamKey(t)
		err := s.rdb.XGroupCreateMkStream(ctx, key, executorGroup, "$").Err()
		if err != nil && !isBusyGroup(err) {
			return fmt.Errorf("redis: create group on %s: %w", key, err)
		}
	}
	return nil
}

// isBusyGroup reports whether err is the BUSYGROUP reply returned when the
// consumer group already exists.
func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

// Consume reads market events from all event streams and invokes handle for
// each decoded event. Entries are acknowledged after handle returns; handle
// must not block indefinitely. Consume blocks until the context is
// cancelled.
func (s *EventStream) Consume(ctx context.Context, handle func(context.Context, domain.MarketEvent)) error {
	streams := make([]string, 0, len(domain.AllEventTypes)*2)
	for _, t := range domain.AllEventTypes {
		streams = append(streams, streamKey(t))
	}
	for range domain.AllEventTypes {
		streams = append(streams, ">")
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := s.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    executorGroup,
			Consumer: s.consumer,
			Streams:  streams,
			Count:    readCount,
			Block:    readBlock,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			s.log.Warn("event read failed", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				s.handleMessage(ctx, stream.Stream, msg, handle)
			}
		}
	}
}

func (s *EventStream) handleMessage(ctx context.Context, stream string, msg redis.XMessage, handle func(context.Context, domain.MarketEvent)) {
	defer func() {
		if err := s.rdb.XAck(ctx, stream, executorGroup, msg.ID).Err(); err != nil {
			s.log.Warn("event ack failed",
				slog.String("stream", stream),
				slog.String("id", msg.ID),
				slog.String("error", err.Error()))
		}
	}()

	raw, ok := msg.Values["data"].(string)
	if !ok {
		s.log.Warn("event entry missing data field",
			slog.String("stream", stream),
			slog.String("id", msg.ID))
		return
	}

	ev, err := domain.DecodeMarketEvent([]byte(raw))
	if err != nil {
		// Malformed entries are acked and dropped so they cannot wedge
		// the group.
		s.log.Warn("event decode failed",
			slog.String("stream", stream),
			slog.String("id", msg.ID),
			slog.String("error", err.Error()))
		return
	}

	handle(ctx, ev)
}

// Publish appends a market event to the stream for its type.
func (s *EventStream) Publish(ctx context.Context, ev domain.MarketEvent) error {
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("redis: publish event: %w", err)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("redis: encode event: %w", err)
	}
	err = s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey(ev.Type),
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{"data": string(data)},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis: publish event to %s: %w", streamKey(ev.Type), err)
	}
	return nil
}

// Ping verifies connectivity to the event transport.
func (s *EventStream) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Compile-time interface checks.
var (
	_ domain.EventSource    = (*EventStream)(nil)
	_ domain.EventPublisher = (*EventStream)(nil)
)
