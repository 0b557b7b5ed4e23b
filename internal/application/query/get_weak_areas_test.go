package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanaquest/progress-engine/internal/domain/mastery"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
)

func seedWeakCandidate(t *testing.T, repo *fakeMasteryRepo, characterID string, level mastery.Level, accuracy float64) {
	t.Helper()

	now := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SavePracticeResult(context.Background(), &mastery.CharacterMastery{
		UserID:         testUserID,
		CharacterID:    characterID,
		CharacterType:  mastery.TypeKatakana,
		MasteryLevel:   level,
		AccuracyScore:  accuracy,
		PracticeCount:  4,
		NextReviewDate: now.AddDate(0, 0, 1),
		UpdatedAt:      now,
	}, nil, false))
}

func TestGetWeakAreasWorstAccuracyFirst(t *testing.T) {
	repo := newFakeMasteryRepo()
	handler := NewGetWeakAreasHandler(repo)

	seedWeakCandidate(t, repo, "kata-sa", mastery.LevelPracticing, 65)
	seedWeakCandidate(t, repo, "kata-ka", mastery.LevelPracticing, 50)
	seedWeakCandidate(t, repo, "kata-a", mastery.LevelMastered, 92)

	result, err := handler.Handle(context.Background(), GetWeakAreasQuery{UserID: testUserID})
	require.NoError(t, err)

	require.Equal(t, 2, result.Count)
	assert.Equal(t, "kata-ka", result.Areas[0].CharacterID)
	assert.Equal(t, "kata-sa", result.Areas[1].CharacterID)
}

func TestGetWeakAreasIncludesLearningLevel(t *testing.T) {
	repo := newFakeMasteryRepo()
	handler := NewGetWeakAreasHandler(repo)

	// Высокая точность, но уровень LEARNING всё равно требует внимания
	seedWeakCandidate(t, repo, "kata-ta", mastery.LevelLearning, 85)

	result, err := handler.Handle(context.Background(), GetWeakAreasQuery{UserID: testUserID})
	require.NoError(t, err)

	require.Equal(t, 1, result.Count)
	assert.Equal(t, "LEARNING", result.Areas[0].MasteryLevel)
}

func TestGetWeakAreasHonorsLimit(t *testing.T) {
	repo := newFakeMasteryRepo()
	handler := NewGetWeakAreasHandler(repo)

	seedWeakCandidate(t, repo, "kata-sa", mastery.LevelPracticing, 65)
	seedWeakCandidate(t, repo, "kata-ka", mastery.LevelPracticing, 50)

	result, err := handler.Handle(context.Background(), GetWeakAreasQuery{UserID: testUserID, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
}

func TestGetWeakAreasRejectsNegativeLimit(t *testing.T) {
	handler := NewGetWeakAreasHandler(newFakeMasteryRepo())

	_, err := handler.Handle(context.Background(), GetWeakAreasQuery{UserID: testUserID, Limit: -1})
	assert.True(t, shared.IsValidation(err))
}

func TestGetWeakAreasRequiresUserID(t *testing.T) {
	handler := NewGetWeakAreasHandler(newFakeMasteryRepo())

	_, err := handler.Handle(context.Background(), GetWeakAreasQuery{})
	assert.True(t, shared.IsValidation(err))
}
