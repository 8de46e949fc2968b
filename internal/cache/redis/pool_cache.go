package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jmreyes/memesnipe/internal/domain"
)

// ErrPoolMiss is returned when no pool snapshot is cached for a token.
var ErrPoolMiss = errors.New("redis: pool snapshot not cached")

// PoolCache stores per-token pool snapshots under pool:<mint>. The ingest
// pipeline writes them; the execution router reads them before quoting.
type PoolCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPoolCache creates a PoolCache with the given snapshot TTL.
func NewPoolCache(c *Client, ttl time.Duration) *PoolCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PoolCache{rdb: c.rdb, ttl: ttl}
}

func poolKey(token string) string {
	return "pool:" + token
}

// Get returns the cached pool snapshot for token, or ErrPoolMiss.
func (p *PoolCache) Get(ctx context.Context, token string) (domain.PoolData, error) {
	raw, err := p.rdb.Get(ctx, poolKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.PoolData{}, ErrPoolMiss
		}
		return domain.PoolData{}, fmt.Errorf("redis: get pool %s: %w", token, err)
	}

	var pd domain.PoolData
	if err := json.Unmarshal([]byte(raw), &pd); err != nil {
		return domain.PoolData{}, fmt.Errorf("redis: decode pool %s: %w", token, err)
	}
	return pd, nil
}

// Set stores a pool snapshot for token with the cache TTL.
func (p *PoolCache) Set(ctx context.Context, token string, pd domain.PoolData) error {
	raw, err := json.Marshal(pd)
	if err != nil {
		return fmt.Errorf("redis: encode pool %s: %w", token, err)
	}
	if err := p.rdb.Set(ctx, poolKey(token), raw, p.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set pool %s: %w", token, err)
	}
	return nil
}
