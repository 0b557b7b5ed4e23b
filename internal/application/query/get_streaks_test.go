package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/internal/domain/streak"
)

func seedStreak(t *testing.T, repo *fakeStreakRepo, streakType streak.Type, current, longest int, active bool) {
	t.Helper()

	now := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateStreak(context.Background(), &streak.Streak{
		ID:           "st-" + string(streakType),
		UserID:       testUserID,
		Type:         streakType,
		CurrentCount: current,
		LongestCount: longest,
		FreezeCount:  1,
		IsActive:     active,
		LastActivity: now,
	}))
}

func TestGetStreaksSummarizesAllTypes(t *testing.T) {
	repo := newFakeStreakRepo()
	handler := NewGetStreaksHandler(repo)

	seedStreak(t, repo, streak.TypeDailyPractice, 5, 12, true)
	seedStreak(t, repo, streak.TypePerfectScore, 0, 4, false)

	result, err := handler.Handle(context.Background(), GetStreaksQuery{UserID: testUserID})
	require.NoError(t, err)

	require.Len(t, result.Streaks, 2)
	assert.Equal(t, 1, result.TotalActive)
	assert.Equal(t, 12, result.LongestOverall)
	assert.InDelta(t, 5.0, result.AverageCurrent, 1e-9)
}

func TestGetStreaksReportsNextMilestone(t *testing.T) {
	repo := newFakeStreakRepo()
	handler := NewGetStreaksHandler(repo)
	seedStreak(t, repo, streak.TypeDailyPractice, 5, 5, true)

	result, err := handler.Handle(context.Background(), GetStreaksQuery{UserID: testUserID})
	require.NoError(t, err)

	require.Len(t, result.Streaks, 1)
	dto := result.Streaks[0]
	assert.Equal(t, 7, dto.NextMilestoneDays)
	assert.Equal(t, 150, dto.NextMilestoneXP)
	assert.Equal(t, 2, dto.DaysToMilestone)
}

func TestGetStreaksEmptyForNewUser(t *testing.T) {
	handler := NewGetStreaksHandler(newFakeStreakRepo())

	result, err := handler.Handle(context.Background(), GetStreaksQuery{UserID: "ghost"})
	require.NoError(t, err)
	assert.Empty(t, result.Streaks)
	assert.Zero(t, result.TotalActive)
}

func TestGetStreaksRequiresUserID(t *testing.T) {
	handler := NewGetStreaksHandler(newFakeStreakRepo())

	_, err := handler.Handle(context.Background(), GetStreaksQuery{})
	assert.True(t, shared.IsValidation(err))
}
