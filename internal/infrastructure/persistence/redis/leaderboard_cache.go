package redis

import (
	"context"
	"time"

	"github.com/kanaquest/progress-engine/internal/domain/leaderboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache implements leaderboard.Cache on top of the generic Cache.
//
// Pages and ranks are cached as plain JSON values keyed by period:
//   - "leaderboard:{period}:{limit}:{offset}" -> []*leaderboard.Entry
//   - "rank:{period}:{userID}"                -> *leaderboard.RankInfo
//
// The whole period namespace is dropped after every rebuild, so short TTLs
// only bound staleness between rebuild and invalidation.
type LeaderboardCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewLeaderboardCache creates a new LeaderboardCache.
// A non-positive ttl falls back to TTLLeaderboardCache.
func NewLeaderboardCache(cache *Cache, ttl time.Duration) *LeaderboardCache {
	if ttl <= 0 {
		ttl = TTLLeaderboardCache
	}
	return &LeaderboardCache{cache: cache, ttl: ttl}
}

// GetPage returns a cached leaderboard page.
// Returns ErrCacheMiss if the page is not cached.
func (l *LeaderboardCache) GetPage(ctx context.Context, period leaderboard.Period, limit, offset int) ([]*leaderboard.Entry, error) {
	var entries []*leaderboard.Entry
	key := LeaderboardPageKey(string(period), limit, offset)
	if err := l.cache.Get(ctx, key, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SetPage caches a leaderboard page.
func (l *LeaderboardCache) SetPage(ctx context.Context, period leaderboard.Period, limit, offset int, entries []*leaderboard.Entry) error {
	if entries == nil {
		entries = []*leaderboard.Entry{}
	}
	key := LeaderboardPageKey(string(period), limit, offset)
	return l.cache.Set(ctx, key, entries, l.ttl)
}

// GetRank returns a cached rank for a user.
// Returns ErrCacheMiss if the rank is not cached.
func (l *LeaderboardCache) GetRank(ctx context.Context, userID string, period leaderboard.Period) (*leaderboard.RankInfo, error) {
	var info leaderboard.RankInfo
	if err := l.cache.Get(ctx, RankKey(string(period), userID), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SetRank caches a user's rank.
func (l *LeaderboardCache) SetRank(ctx context.Context, info *leaderboard.RankInfo) error {
	if info == nil {
		return ErrCacheNilValue
	}
	return l.cache.Set(ctx, RankKey(string(info.Period), info.UserID), info, l.ttl)
}

// InvalidatePeriod drops all cached pages and ranks for a period.
// Called after each leaderboard rebuild.
func (l *LeaderboardCache) InvalidatePeriod(ctx context.Context, period leaderboard.Period) error {
	if err := l.cache.DeleteByPattern(ctx, PrefixLeaderboard+string(period)+":*"); err != nil {
		return err
	}
	return l.cache.DeleteByPattern(ctx, PrefixRank+string(period)+":*")
}
