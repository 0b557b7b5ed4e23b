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

func seedMastery(t *testing.T, repo *fakeMasteryRepo, characterID string, accuracy float64, nextReview time.Time) {
	t.Helper()

	m := &mastery.CharacterMastery{
		UserID:         testUserID,
		CharacterID:    characterID,
		CharacterType:  mastery.TypeHiragana,
		MasteryLevel:   mastery.LevelPracticing,
		AccuracyScore:  accuracy,
		PracticeCount:  5,
		NextReviewDate: nextReview,
		UpdatedAt:      nextReview,
	}
	require.NoError(t, repo.SavePracticeResult(context.Background(), m, nil, false))
}

func TestGetReviewQueueReturnsDueCharacters(t *testing.T) {
	repo := newFakeMasteryRepo()
	now := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	handler := NewGetReviewQueueHandler(repo, timeutil.NewFixedClock(now))

	seedMastery(t, repo, "hira-a", 85, now.AddDate(0, 0, -3))
	seedMastery(t, repo, "hira-ka", 72, now.AddDate(0, 0, -1))
	seedMastery(t, repo, "hira-sa", 95, now.AddDate(0, 0, 2))

	result, err := handler.Handle(context.Background(), GetReviewQueueQuery{UserID: testUserID})
	require.NoError(t, err)

	require.Equal(t, 2, result.Count)
	// Most overdue first
	assert.Equal(t, "hira-a", result.Items[0].CharacterID)
	assert.Equal(t, 3, result.Items[0].OverdueDays)
	assert.Equal(t, "hira-ka", result.Items[1].CharacterID)
	assert.Equal(t, 1, result.Items[1].OverdueDays)
}

func TestGetReviewQueueHonorsLimit(t *testing.T) {
	repo := newFakeMasteryRepo()
	now := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	handler := NewGetReviewQueueHandler(repo, timeutil.NewFixedClock(now))

	seedMastery(t, repo, "hira-a", 85, now.AddDate(0, 0, -3))
	seedMastery(t, repo, "hira-ka", 72, now.AddDate(0, 0, -1))

	result, err := handler.Handle(context.Background(), GetReviewQueueQuery{UserID: testUserID, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
}

func TestGetReviewQueueEmptyForUnknownUser(t *testing.T) {
	repo := newFakeMasteryRepo()
	handler := NewGetReviewQueueHandler(repo, timeutil.SystemClock{})

	result, err := handler.Handle(context.Background(), GetReviewQueueQuery{UserID: "ghost"})
	require.NoError(t, err)
	assert.Zero(t, result.Count)
}

func TestGetReviewQueueRequiresUserID(t *testing.T) {
	handler := NewGetReviewQueueHandler(newFakeMasteryRepo(), timeutil.SystemClock{})

	_, err := handler.Handle(context.Background(), GetReviewQueueQuery{})
	assert.True(t, shared.IsValidation(err))
}
