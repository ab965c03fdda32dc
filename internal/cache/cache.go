// Package cache keeps a JSON copy of the topic catalog in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/practice-tracker/internal/model"
)

// TopicsKey prefixes the encoded catalog. Each stored catalog gets its own
// entry, see topicsKey.
const TopicsKey = "catalog:topics"

// topicsKey names the entry for one stored catalog. A re-seeded or different
// database has a different catalog id, so it never reads another's entry.
func topicsKey(catalogID string) string {
	return TopicsKey + ":" + catalogID
}

// Cache wraps a Redis client.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// New connects to Redis and verifies the connection. Entries expire after ttl;
// zero means no expiry.
func New(ctx context.Context, url string, ttl time.Duration) (*Cache, error) {
	opts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}

	return &Cache{client: client, ttl: ttl}, nil
}

// GetTopics returns the cached copy of the catalog identified by catalogID.
// ok is false on a miss.
func (c *Cache) GetTopics(ctx context.Context, catalogID string) (topics []model.Topic, ok bool, err error) {
	key := topicsKey(catalogID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: reading %s: %w", key, err)
	}
	if err := json.Unmarshal(data, &topics); err != nil {
		return nil, false, fmt.Errorf("cache: decoding %s: %w", key, err)
	}
	return topics, true, nil
}

// SetTopics stores topics as the copy of the catalog identified by catalogID.
func (c *Cache) SetTopics(ctx context.Context, catalogID string, topics []model.Topic) error {
	key := topicsKey(catalogID)
	data, err := json.Marshal(topics)
	if err != nil {
		return fmt.Errorf("cache: encoding topics: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: writing %s: %w", key, err)
	}
	return nil
}

// Close shuts down the cache client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// HealthCheck verifies the cache connection is alive.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
