package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanaquest/progress-engine/internal/domain/mastery"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

func TestGetMasteryStatsAggregates(t *testing.T) {
	repo := newFakeMasteryRepo()
	now := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	handler := NewGetMasteryStatsHandler(repo, timeutil.NewFixedClock(now))
	ctx := context.Background()

	require.NoError(t, repo.SavePracticeResult(ctx, &mastery.CharacterMastery{
		UserID:         testUserID,
		CharacterID:    "hira-a",
		CharacterType:  mastery.TypeHiragana,
		MasteryLevel:   mastery.LevelMastered,
		AccuracyScore:  90,
		TotalTimeSpent: 600,
		NextReviewDate: now.AddDate(0, 0, 3),
	}, nil, false))
	require.NoError(t, repo.SavePracticeResult(ctx, &mastery.CharacterMastery{
		UserID:         testUserID,
		CharacterID:    "kanji-hi",
		CharacterType:  mastery.TypeKanji,
		MasteryLevel:   mastery.LevelLearning,
		AccuracyScore:  60,
		TotalTimeSpent: 300,
		NextReviewDate: now.AddDate(0, 0, -1),
	}, nil, false))

	result, err := handler.Handle(ctx, GetMasteryStatsQuery{UserID: testUserID})
	require.NoError(t, err)

	stats := result.Stats
	assert.Equal(t, 2, stats.TotalCharacters)
	assert.Equal(t, 1, stats.ByLevel["MASTERED"])
	assert.Equal(t, 1, stats.ByLevel["LEARNING"])
	assert.Equal(t, 1, stats.ByType["HIRAGANA"])
	assert.Equal(t, 1, stats.ByType["KANJI"])
	assert.InDelta(t, 75.0, stats.AverageAccuracy, 1e-9)
	assert.Equal(t, 900, stats.TotalPracticeTimeSeconds)
	assert.Equal(t, 1, stats.DueForReview)
}

func TestGetMasteryStatsEmptyUser(t *testing.T) {
	handler := NewGetMasteryStatsHandler(newFakeMasteryRepo(), timeutil.SystemClock{})

	result, err := handler.Handle(context.Background(), GetMasteryStatsQuery{UserID: "ghost"})
	require.NoError(t, err)
	assert.Zero(t, result.Stats.TotalCharacters)
	assert.Zero(t, result.Stats.AverageAccuracy)
}

func TestGetMasteryStatsRequiresUserID(t *testing.T) {
	handler := NewGetMasteryStatsHandler(newFakeMasteryRepo(), timeutil.SystemClock{})

	_, err := handler.Handle(context.Background(), GetMasteryStatsQuery{})
	assert.True(t, shared.IsValidation(err))
}
