package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"agora/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	ProfileKeyPrefix = "profile:%d"
	ProfileTTL       = 2 * time.Minute
)

// ProfileKey is the cache key of a user's public profile.
func ProfileKey(userID uint) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

// Cache is a read-through JSON cache. A nil client makes every call a miss.
type Cache struct {
	client *redis.Client
}

// New wraps client, which may be nil.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Aside loads dest from key, or calls load to fill dest and stores the
// result for ttl. Redis errors fall back to load.
func (c *Cache) Aside(ctx context.Context, key string, dest any, ttl time.Duration, load func() error) error {
	if c == nil || c.client == nil {
		return load()
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			return nil
		}
	} else if !errors.Is(err, redis.Nil) {
		observability.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	if err := load(); err != nil {
		return err
	}

	encoded, err := json.Marshal(dest)
	if err != nil {
		return nil
	}
	if err := c.client.Set(ctx, key, encoded, ttl).Err(); err != nil {
		observability.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

// Invalidate drops the given keys.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.client == nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		observability.Logger.WarnContext(ctx, "cache invalidate failed", slog.Any("keys", keys), slog.String("error", err.Error()))
	}
}

// InvalidateProfiles drops the cached profiles of the given users.
func (c *Cache) InvalidateProfiles(ctx context.Context, userIDs ...uint) {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, ProfileKey(id))
	}
	c.Invalidate(ctx, keys...)
}
