package directory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kanaquest/progress-engine/internal/infrastructure/persistence/redis"
)

// ══════════════════════════════════════════════════════════════════════════════
// CACHED CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// CachedClient wraps the directory client with a Redis read-through cache.
// Profile data changes rarely and the leaderboard endpoints resolve many
// profiles per request, so cache hits dominate.
type CachedClient struct {
	client *Client
	cache  *redis.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedClient creates a new CachedClient.
// A non-positive ttl falls back to the default directory TTL.
func NewCachedClient(client *Client, cache *redis.Cache, ttl time.Duration, logger *slog.Logger) *CachedClient {
	if ttl <= 0 {
		ttl = redis.TTLDirectoryCache
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedClient{
		client: client,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With("component", "directory_cache"),
	}
}

// GetProfile returns a profile, preferring the cache.
func (c *CachedClient) GetProfile(ctx context.Context, userID string) (*ProfileDTO, error) {
	if c.cache != nil {
		var cached ProfileDTO
		err := c.cache.Get(ctx, redis.DirectoryKey(userID), &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, redis.ErrCacheMiss) {
			// Degraded cache must not block the lookup
			c.logger.Warn("profile cache read failed", "user_id", userID, "error", err)
		}
	}

	profile, err := c.client.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, redis.DirectoryKey(userID), profile, c.ttl); err != nil {
			c.logger.Warn("profile cache write failed", "user_id", userID, "error", err)
		}
	}
	return profile, nil
}

// GetProfiles returns profiles for a set of user IDs, keyed by ID.
// Cached entries are served locally; only the misses hit the directory.
func (c *CachedClient) GetProfiles(ctx context.Context, userIDs []string) (map[string]ProfileDTO, error) {
	out := make(map[string]ProfileDTO, len(userIDs))
	var misses []string

	for _, userID := range userIDs {
		if c.cache == nil {
			misses = append(misses, userID)
			continue
		}
		var cached ProfileDTO
		if err := c.cache.Get(ctx, redis.DirectoryKey(userID), &cached); err == nil {
			out[userID] = cached
		} else {
			misses = append(misses, userID)
		}
	}

	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := c.client.GetProfiles(ctx, misses)
	if err != nil {
		// Partial cache data is better than nothing for display purposes
		if len(out) > 0 {
			c.logger.Warn("directory batch fetch failed, serving cached subset",
				"requested", len(userIDs), "cached", len(out), "error", err)
			return out, nil
		}
		return nil, err
	}

	for userID, profile := range fetched {
		out[userID] = profile
		if c.cache != nil {
			p := profile
			if err := c.cache.Set(ctx, redis.DirectoryKey(userID), &p, c.ttl); err != nil {
				c.logger.Warn("profile cache write failed", "user_id", userID, "error", err)
			}
		}
	}
	return out, nil
}

// Invalidate drops a cached profile.
func (c *CachedClient) Invalidate(ctx context.Context, userID string) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Delete(ctx, redis.DirectoryKey(userID))
}

// IsHealthy reports whether the underlying directory service is reachable.
func (c *CachedClient) IsHealthy(ctx context.Context) bool {
	return c.client.IsHealthy(ctx)
}
