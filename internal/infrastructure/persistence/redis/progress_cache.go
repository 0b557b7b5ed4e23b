package redis

import (
	"context"
	"time"

	"github.com/kanaquest/progress-engine/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS CACHE
// ══════════════════════════════════════════════════════════════════════════════

// ProgressCache implements progress.Cache on top of the generic Cache.
// Progress snapshots are written through on every XP award and read on
// the hot GetProgress path.
type ProgressCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewProgressCache creates a new ProgressCache.
// A non-positive ttl falls back to TTLProgressCache.
func NewProgressCache(cache *Cache, ttl time.Duration) *ProgressCache {
	if ttl <= 0 {
		ttl = TTLProgressCache
	}
	return &ProgressCache{cache: cache, ttl: ttl}
}

// GetProgress returns the cached progress snapshot.
// Returns ErrCacheMiss if the user is not cached.
func (p *ProgressCache) GetProgress(ctx context.Context, userID string) (*progress.UserProgress, error) {
	var up progress.UserProgress
	if err := p.cache.Get(ctx, ProgressKey(userID), &up); err != nil {
		return nil, err
	}
	return &up, nil
}

// SetProgress caches a progress snapshot.
func (p *ProgressCache) SetProgress(ctx context.Context, up *progress.UserProgress) error {
	if up == nil {
		return ErrCacheNilValue
	}
	return p.cache.Set(ctx, ProgressKey(up.UserID), up, p.ttl)
}

// InvalidateUser drops the cached snapshot for a user.
func (p *ProgressCache) InvalidateUser(ctx context.Context, userID string) error {
	return p.cache.Delete(ctx, ProgressKey(userID))
}
