package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrKeyNotFound is returned by Get when the key does not exist
var ErrKeyNotFound = errors.New("redis: key not found")

var (
	compareAndSwap = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2])
	return 1
end
return 0`)

	compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("DEL", KEYS[1])
	return 1
end
return 0`)
)

// Client wraps the Redis client with the operations the document store needs
type Client struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewClient creates a new Redis client and verifies the connection
func NewClient(url string, logger *slog.Logger) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("connected to redis", slog.String("addr", opts.Addr), slog.Int("db", opts.DB))
	return &Client{rdb: rdb, logger: logger}, nil
}

// SetNX stores a value only when the key is absent and reports whether it did
func (c *Client) SetNX(ctx context.Context, key string, value string) (bool, error) {
	return c.rdb.SetNX(ctx, key, value, 0).Result()
}

// Get retrieves a value
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	return v, err
}

// CompareAndSwap replaces the value of key with next only if it still holds
// old, and reports whether it did
func (c *Client) CompareAndSwap(ctx context.Context, key, old, next string) (bool, error) {
	n, err := compareAndSwap.Run(ctx, c.rdb, []string{key}, old, next).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CompareAndDelete removes key only if it still holds old
func (c *Client) CompareAndDelete(ctx context.Context, key, old string) (bool, error) {
	n, err := compareAndDelete.Run(ctx, c.rdb, []string{key}, old).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Delete removes keys
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// RPush appends a value to a list
func (c *Client) RPush(ctx context.Context, key string, value string) error {
	return c.rdb.RPush(ctx, key, value).Err()
}

// LRange returns every element of a list
func (c *Client) LRange(ctx context.Context, key string) ([]string, error) {
	return c.rdb.LRange(ctx, key, 0, -1).Result()
}

// LRem removes all occurrences of value from a list
func (c *Client) LRem(ctx context.Context, key string, value string) error {
	return c.rdb.LRem(ctx, key, 0, value).Err()
}

// Ping checks connectivity
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
