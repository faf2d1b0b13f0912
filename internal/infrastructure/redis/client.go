package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the redis client and implements the tag cache backing the
// reference-store client's cached reads.
type Client struct {
	rdb    *redis.Client
	logger *slog.Logger
}

const (
	keyPrefix = "cache:"
	tagPrefix = "cachetag:"
)

// NewClient connects to redis and verifies the connection.
func NewClient(url string, logger *slog.Logger) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Client{rdb: rdb, logger: logger}, nil
}

// Set stores a value with its tags and TTL. Tag sets carry the same TTL so
// they cannot outlive every entry they index by more than one period.
func (c *Client) Set(ctx context.Context, key string, value []byte, tags []string, ttl time.Duration) {
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, keyPrefix+key, value, ttl)
	for _, tag := range tags {
		pipe.SAdd(ctx, tagPrefix+tag, key)
		pipe.Expire(ctx, tagPrefix+tag, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("cache set failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// Get retrieves a cached value. A miss or any redis error reads as a miss.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

// InvalidateTags drops every cached entry carrying any of the given tags.
func (c *Client) InvalidateTags(ctx context.Context, tags ...string) {
	for _, tag := range tags {
		keys, err := c.rdb.SMembers(ctx, tagPrefix+tag).Result()
		if err != nil {
			c.logger.Warn("cache tag lookup failed", slog.String("tag", tag), slog.String("error", err.Error()))
			continue
		}
		if len(keys) > 0 {
			prefixed := make([]string, len(keys))
			for i, k := range keys {
				prefixed[i] = keyPrefix + k
			}
			if err := c.rdb.Del(ctx, prefixed...).Err(); err != nil {
				c.logger.Warn("cache invalidation failed", slog.String("tag", tag), slog.String("error", err.Error()))
			}
		}
		_ = c.rdb.Del(ctx, tagPrefix+tag).Err()
	}
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}
