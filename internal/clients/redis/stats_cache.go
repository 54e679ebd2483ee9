package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/agiindex/agi-index-backend/internal/logger"
	"github.com/agiindex/agi-index-backend/internal/types"
)

const statsKey = "agi_index:stats:current"

// StatsCache keeps the latest global snapshot in redis so display surfaces
// read it without touching the questions/votes tables. Single writer (the
// stats service), many readers.
type StatsCache interface {
	Set(ctx context.Context, stats *types.AGIStats) error
	Get(ctx context.Context) (*types.AGIStats, error)
	Close() error
}

type statsCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewStatsCache(log *logger.Logger, addr string, ttl time.Duration) (StatsCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &statsCache{
		log: log.With("service", "RedisStatsCache"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func (c *statsCache) Set(ctx context.Context, stats *types.AGIStats) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("stats cache not initialized")
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, statsKey, raw, c.ttl).Err()
}

// Get returns (nil, nil) on a cache miss.
func (c *statsCache) Get(ctx context.Context) (*types.AGIStats, error) {
	if c == nil || c.rdb == nil {
		return nil, fmt.Errorf("stats cache not initialized")
	}
	raw, err := c.rdb.Get(ctx, statsKey).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var stats types.AGIStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *statsCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
