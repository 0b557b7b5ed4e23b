package mastery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validAttempt() PracticeAttempt {
	return PracticeAttempt{
		UserID:           "b7c1e0a4-0000-4000-8000-000000000001",
		CharacterID:      "あ",
		CharacterType:    TypeHiragana,
		Accuracy:         96,
		TimeSpentSeconds: 25,
		IsPerfect:        true,
		StrokesCorrect:   3,
		StrokesTotal:     3,
	}
}

func TestAttemptValidate(t *testing.T) {
	assert.NoError(t, validAttempt().Validate())

	bad := validAttempt()
	bad.Accuracy = 101
	assert.Error(t, bad.Validate())

	bad = validAttempt()
	bad.Accuracy = -1
	assert.Error(t, bad.Validate())

	bad = validAttempt()
	bad.StrokesTotal = 0
	assert.Error(t, bad.Validate())

	bad = validAttempt()
	bad.StrokesCorrect = 5
	bad.StrokesTotal = 3
	assert.Error(t, bad.Validate())

	bad = validAttempt()
	bad.CharacterType = CharacterType("ROMAJI")
	assert.Error(t, bad.Validate())

	bad = validAttempt()
	bad.TimeSpentSeconds = -1
	assert.Error(t, bad.Validate())
}

func TestFirstPracticeCreatesLearningRecord(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	m := NewCharacterMastery("id-1", validAttempt(), now)

	assert.Equal(t, LevelLearning, m.MasteryLevel)
	assert.Equal(t, 96.0, m.AccuracyScore)
	assert.Equal(t, 100.0, m.StrokeOrderScore)
	assert.Equal(t, 96.0, m.RecognitionScore)
	assert.Equal(t, 1, m.PracticeCount)
	assert.Equal(t, 1, m.CorrectCount)
	assert.Equal(t, 1, m.StreakCount)
	assert.Equal(t, 25, m.TotalTimeSpent)
	// LEARNING base 1 day, doubled for accuracy >= 95.
	assert.Equal(t, now.AddDate(0, 0, 2), m.NextReviewDate)
	assert.False(t, m.NextReviewDate.Before(m.LastPracticed))
}

func TestWeightedMeanUpdate(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	first := validAttempt()
	first.Accuracy = 80
	first.StrokesCorrect = 2
	first.StrokesTotal = 4
	first.IsPerfect = false

	m := NewCharacterMastery("id-1", first, now)
	assert.Equal(t, 80.0, m.AccuracyScore)
	assert.Equal(t, 50.0, m.StrokeOrderScore)

	second := validAttempt()
	second.Accuracy = 100
	second.StrokesCorrect = 4
	second.StrokesTotal = 4
	m.ApplyPractice(second, now.Add(2*time.Hour))

	assert.Equal(t, 90.0, m.AccuracyScore)
	assert.Equal(t, 75.0, m.StrokeOrderScore)
	assert.Equal(t, 90.0, m.RecognitionScore)
	assert.Equal(t, 2, m.PracticeCount)
}

func TestCharacterStreakTransitions(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	m := NewCharacterMastery("id-1", validAttempt(), now)
	assert.Equal(t, 1, m.StreakCount)

	// Same day: unchanged.
	m.ApplyPractice(validAttempt(), now.Add(3*time.Hour))
	assert.Equal(t, 1, m.StreakCount)

	// Next calendar day: +1.
	m.ApplyPractice(validAttempt(), now.AddDate(0, 0, 1))
	assert.Equal(t, 2, m.StreakCount)

	// Gap of two days: reset to 1.
	m.ApplyPractice(validAttempt(), now.AddDate(0, 0, 3))
	assert.Equal(t, 1, m.StreakCount)
}

func TestPromotionPriorityOrder(t *testing.T) {
	// Accuracy 96 with 12 practices must be EXPERT, never MASTERED.
	assert.Equal(t, LevelExpert, promotionFor(96, 12))
	assert.Equal(t, LevelMastered, promotionFor(92, 7))
	assert.Equal(t, LevelPracticing, promotionFor(85, 3))
	assert.Equal(t, LevelLearning, promotionFor(85, 2))
	assert.Equal(t, LevelLearning, promotionFor(60, 50))

	// High accuracy but too few practices stays below EXPERT.
	assert.Equal(t, LevelMastered, promotionFor(96, 5))
}

func TestPromotionNeverDemotes(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	m := NewCharacterMastery("id-1", validAttempt(), now)
	m.MasteryLevel = LevelMastered
	m.AccuracyScore = 90

	// A bad attempt drags accuracy down but must not demote.
	bad := validAttempt()
	bad.Accuracy = 10
	bad.IsPerfect = false
	m.ApplyPractice(bad, now.Add(time.Hour))

	assert.Equal(t, LevelMastered, m.MasteryLevel)
}

func TestReviewIntervalDays(t *testing.T) {
	// Base intervals per level.
	assert.Equal(t, 1, ReviewIntervalDays(LevelLearning, 80, 1))
	assert.Equal(t, 3, ReviewIntervalDays(LevelPracticing, 80, 1))
	assert.Equal(t, 7, ReviewIntervalDays(LevelMastered, 80, 1))
	assert.Equal(t, 14, ReviewIntervalDays(LevelExpert, 80, 1))

	// Doubled at accuracy >= 95.
	assert.Equal(t, 14, ReviewIntervalDays(LevelMastered, 95, 1))

	// Halved below 70, floored at 1 day.
	assert.Equal(t, 3, ReviewIntervalDays(LevelMastered, 69, 1))
	assert.Equal(t, 1, ReviewIntervalDays(LevelLearning, 50, 1))

	// Long character streak stretches the interval by half.
	assert.Equal(t, 10, ReviewIntervalDays(LevelMastered, 80, 5))

	// Combined: expert, high accuracy, long streak.
	assert.Equal(t, 42, ReviewIntervalDays(LevelExpert, 97, 6))
}

func TestReviewIntervalGrowsWithLevel(t *testing.T) {
	levels := AllLevels()
	for i := 1; i < len(levels); i++ {
		lower := ReviewIntervalDays(levels[i-1], 85, 1)
		higher := ReviewIntervalDays(levels[i], 85, 1)
		assert.Greater(t, higher, lower, "%s vs %s", levels[i], levels[i-1])
	}
}

func TestSessionXP(t *testing.T) {
	// 10 base + 20 accuracy + 25 perfect + 10 fast.
	assert.Equal(t, 65, SessionXP(96, true, 25))

	// 10 base + 15 accuracy band.
	assert.Equal(t, 25, SessionXP(92, false, 60))

	// 10 base + 10 accuracy band + 5 slow.
	assert.Equal(t, 25, SessionXP(85, false, 150))

	// 10 base + 5 accuracy band.
	assert.Equal(t, 15, SessionXP(71, false, 45))

	// 10 base only, plus fast bonus.
	assert.Equal(t, 20, SessionXP(40, false, 10))
}

func TestApplyPracticeOutcome(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	m := NewCharacterMastery("id-1", validAttempt(), now)

	attempt := validAttempt()
	outcome := m.ApplyPractice(attempt, now.AddDate(0, 0, 1))

	assert.Equal(t, LevelLearning, outcome.PreviousLevel)
	assert.False(t, outcome.Promoted)
	assert.Equal(t, 65, outcome.SessionXP)

	// Third perfect attempt at high accuracy promotes to PRACTICING.
	outcome = m.ApplyPractice(attempt, now.AddDate(0, 0, 2))
	assert.True(t, outcome.Promoted)
	assert.Equal(t, LevelPracticing, m.MasteryLevel)
}

func TestNewPracticeSession(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	attempt := validAttempt()

	session := NewPracticeSession("sid-1", attempt, 65, now)

	assert.Equal(t, attempt.UserID, session.UserID)
	assert.Equal(t, attempt.CharacterID, session.CharacterID)
	assert.Equal(t, now, session.EndTime)
	assert.Equal(t, now.Add(-25*time.Second), session.StartTime)
	assert.Equal(t, 65, session.XPEarned)
	assert.True(t, session.IsPerfect)
}
