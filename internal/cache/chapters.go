// Package cache provides a Redis-backed read cache for chapter list views.
// The remote store charges per call, so repeated list reads for the same
// project are served from here until a mutation invalidates them.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bookstudio/api/internal/store"
)

type ChapterLists struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func New(redisURL string, ttl time.Duration) (*ChapterLists, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewWithClient(client, ttl), nil
}

// NewWithClient creates a cache from an existing Redis client.
func NewWithClient(client *redis.Client, ttl time.Duration) *ChapterLists {
	return &ChapterLists{
		client: client,
		prefix: "chapters:",
		ttl:    ttl,
	}
}

func (c *ChapterLists) key(projectID string) string {
	if projectID == "" {
		projectID = "_all"
	}
	return c.prefix + projectID
}

// Get returns the cached chapter list for a project, if present.
func (c *ChapterLists) Get(ctx context.Context, projectID string) ([]store.Chapter, bool) {
	raw, err := c.client.Get(ctx, c.key(projectID)).Result()
	if err != nil {
		return nil, false
	}
	var chapters []store.Chapter
	if err := json.Unmarshal([]byte(raw), &chapters); err != nil {
		return nil, false
	}
	return chapters, true
}

// Put stores a chapter list with the configured TTL. Failures are returned so
// callers can log them, but a failed Put never breaks a read path.
func (c *ChapterLists) Put(ctx context.Context, projectID string, chapters []store.Chapter) error {
	raw, err := json.Marshal(chapters)
	if err != nil {
		return fmt.Errorf("marshal chapter list: %w", err)
	}
	if err := c.client.Set(ctx, c.key(projectID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache chapter list: %w", err)
	}
	return nil
}

// Invalidate drops the cached list for one project (and the unscoped list,
// which any chapter mutation also stales).
func (c *ChapterLists) Invalidate(ctx context.Context, projectID string) error {
	return c.client.Del(ctx, c.key(projectID), c.key("")).Err()
}

// InvalidateAll drops every cached chapter list. Used by reorder, which knows
// record ids but not which project they belong to.
func (c *ChapterLists) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *ChapterLists) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *ChapterLists) Close() error {
	return c.client.Close()
}
