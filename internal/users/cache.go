package users

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const summaryKeyPrefix = "user:summary:"

// Cache is a redis read-through cache for user summaries. Summaries are
// immutable after registration, so entries are never invalidated, only
// expired. All cache failures degrade to a miss; the repository stays the
// source of truth.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a summary cache.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached summary for username, if present.
func (c *Cache) Get(ctx context.Context, username string) (*Summary, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, summaryKeyPrefix+username).Bytes()
	if err != nil {
		return nil, false
	}
	var s Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false
	}
	return &s, true
}

// Set stores a summary under its username.
func (c *Cache) Set(ctx context.Context, s Summary) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, summaryKeyPrefix+s.Username, raw, c.ttl).Err()
}
