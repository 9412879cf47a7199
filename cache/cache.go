// Package cache is a Redis-backed response cache. Redis failures degrade to
// cache misses so a down cache never fails a request.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = time.Hour

type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

func New(client *redis.Client, ttl time.Duration, logger *log.Logger) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// Key derives a stable cache key from a namespace and the request parts that
// affect the response.
func Key(namespace string, parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return namespace + ":" + hex.EncodeToString(sum[:])
}

// Get unmarshals the cached value for key into dst. Returns false on miss or
// on any Redis/decode error.
func (c *Cache) Get(ctx context.Context, key string, dst any) bool {
	if c == nil || c.client == nil {
		return false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Printf("cache get %s: %v", key, err)
		}
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Printf("cache decode %s: %v", key, err)
		return false
	}
	return true
}

// Set stores value under key with the configured TTL. Errors are logged and
// swallowed.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	if c == nil || c.client == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Printf("cache encode %s: %v", key, err)
		return
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Printf("cache set %s: %v", key, err)
	}
}
