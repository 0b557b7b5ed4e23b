package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanaquest/progress-engine/internal/domain/leaderboard"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
)

func seedBoard(t *testing.T, repo *fakeBoardRepo, period leaderboard.Period, count int) {
	t.Helper()

	entries := make([]*leaderboard.Entry, count)
	for i := 0; i < count; i++ {
		entries[i] = seedEntry(fmt.Sprintf("user-%d", i+1), period, i+1, 1000-i*100)
	}
	require.NoError(t, repo.ReplaceEntries(context.Background(), period, entries))
}

func TestGetLeaderboardPaging(t *testing.T) {
	repo := newFakeBoardRepo()
	handler := NewGetLeaderboardHandler(repo, newFakeBoardCache())
	seedBoard(t, repo, leaderboard.PeriodWeekly, 5)

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{
		Period: "WEEKLY",
		Limit:  2,
		Offset: 2,
	})
	require.NoError(t, err)

	require.Len(t, result.Entries, 2)
	assert.Equal(t, 3, result.Entries[0].Rank)
	assert.Equal(t, "user-3", result.Entries[0].UserID)
	assert.Equal(t, 4, result.Entries[1].Rank)
	assert.Equal(t, 5, result.TotalCount)
	assert.True(t, result.HasMore)
	assert.Equal(t, 2, result.Page)
	assert.Equal(t, 2, result.PageSize)
}

func TestGetLeaderboardLastPage(t *testing.T) {
	repo := newFakeBoardRepo()
	handler := NewGetLeaderboardHandler(repo, newFakeBoardCache())
	seedBoard(t, repo, leaderboard.PeriodWeekly, 5)

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{
		Period: "WEEKLY",
		Limit:  2,
		Offset: 4,
	})
	require.NoError(t, err)

	require.Len(t, result.Entries, 1)
	assert.False(t, result.HasMore)
	assert.Equal(t, 3, result.Page)
}

func TestGetLeaderboardFillsCacheOnMiss(t *testing.T) {
	repo := newFakeBoardRepo()
	cache := newFakeBoardCache()
	handler := NewGetLeaderboardHandler(repo, cache)
	seedBoard(t, repo, leaderboard.PeriodDaily, 3)

	_, err := handler.Handle(context.Background(), GetLeaderboardQuery{Period: "DAILY", Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.pageSets)

	// Second read hits the cached page
	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{Period: "DAILY", Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.pageSets)
	assert.Len(t, result.Entries, 3)
}

func TestGetLeaderboardDefaultsLimit(t *testing.T) {
	repo := newFakeBoardRepo()
	handler := NewGetLeaderboardHandler(repo, nil)
	seedBoard(t, repo, leaderboard.PeriodAllTime, 2)

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{Period: "ALL_TIME"})
	require.NoError(t, err)
	assert.Equal(t, 20, result.PageSize)
	assert.Len(t, result.Entries, 2)
}

func TestGetLeaderboardUnknownPeriod(t *testing.T) {
	handler := NewGetLeaderboardHandler(newFakeBoardRepo(), nil)

	_, err := handler.Handle(context.Background(), GetLeaderboardQuery{Period: "FORTNIGHTLY"})
	assert.True(t, shared.IsValidation(err))
}

func TestGetLeaderboardRejectsNegativeOffset(t *testing.T) {
	handler := NewGetLeaderboardHandler(newFakeBoardRepo(), nil)

	_, err := handler.Handle(context.Background(), GetLeaderboardQuery{Period: "WEEKLY", Offset: -1})
	assert.True(t, shared.IsValidation(err))
}
