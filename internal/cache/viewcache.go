package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ViewCache is a JSON-backed Redis cache for read projections, bound to
// a value type T. TTL of 0 means keys never expire.
type ViewCache[T any] struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewViewCache[T any](client *goredis.Client, ttl time.Duration) *ViewCache[T] {
	return &ViewCache[T]{client: client, ttl: ttl}
}

// Get retrieves and unmarshals a value. Any miss or decode failure
// reads as a plain miss.
func (c *ViewCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}
	return decodeView[T]([]byte(data))
}

// Set stores value under key. A failed cache write is logged, not
// returned; the store remains the source of truth.
func (c *ViewCache[T]) Set(ctx context.Context, key string, value *T) {
	data, err := encodeView(value)
	if err != nil {
		slog.Warn("cache marshal failed", "key", key, "error", err.Error())
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		slog.Warn("cache write failed", "key", key, "error", err.Error())
	}
}

func encodeView[T any](value *T) ([]byte, error) {
	return json.Marshal(value)
}

func decodeView[T any](data []byte) (*T, bool) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false
	}
	return &v, true
}

// Delete removes a key.
func (c *ViewCache[T]) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		slog.Warn("cache delete failed", "key", key, "error", err.Error())
	}
}
