package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanaquest/progress-engine/internal/domain/mastery"
)

var insightsNow = time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

func dailyRow(daysAgo int, accuracy float64, xp, minutes, practiced int) *UserAnalytics {
	day := insightsNow.AddDate(0, 0, -daysAgo)
	return &UserAnalytics{
		ID:                  "row",
		UserID:              "u1",
		Date:                time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
		StudyTimeMinutes:    minutes,
		CharactersPracticed: practiced,
		AccuracyAverage:     accuracy,
		XPEarned:            xp,
	}
}

func TestAccumulateWeightedAccuracy(t *testing.T) {
	row := NewUserAnalytics("id", "u1", insightsNow)

	row.Accumulate(10, 80, 50, insightsNow)
	row.Accumulate(5, 90, 30, insightsNow)

	assert.Equal(t, 2, row.CharactersPracticed)
	assert.Equal(t, 15, row.StudyTimeMinutes)
	assert.Equal(t, 80, row.XPEarned)
	assert.InDelta(t, 85.0, row.AccuracyAverage, 0.001)
}

func TestParseWindow(t *testing.T) {
	assert.Equal(t, 7, ParseWindow("7d").Days)
	assert.Equal(t, 90, ParseWindow("90d").Days)
	assert.Equal(t, 365, ParseWindow("1y").Days)
	assert.Equal(t, 30, ParseWindow("").Days)
	assert.Equal(t, 30, ParseWindow("bogus").Days)
}

func TestImprovementRate(t *testing.T) {
	rows := []*UserAnalytics{
		dailyRow(4, 70, 0, 0, 0),
		dailyRow(3, 72, 0, 0, 0),
		dailyRow(2, 80, 0, 0, 0),
		dailyRow(1, 86, 0, 0, 0),
	}

	// Second half (80, 86) minus first half (70, 72).
	assert.InDelta(t, 12.0, ImprovementRate(rows), 0.001)
}

func TestImprovementRateTooFewRows(t *testing.T) {
	assert.Equal(t, 0.0, ImprovementRate(nil))
	assert.Equal(t, 0.0, ImprovementRate([]*UserAnalytics{dailyRow(1, 90, 0, 0, 0)}))
}

func TestComputeInsightsEmptyWindow(t *testing.T) {
	got := ComputeInsights("u1", Window30d, nil, nil, ProgressState{CurrentLevel: 3, XPToNextLevel: 120}, insightsNow)

	assert.Equal(t, 0, got.StudyTimeMinutes)
	assert.Equal(t, 0.0, got.AverageAccuracy)
	assert.Empty(t, got.AccuracyTrend)
	assert.Empty(t, got.WeakAreas)
	assert.Equal(t, 0.0, got.ImprovementRate)

	// No XP history means no level projection.
	assert.Equal(t, 0, got.Predictions.DaysToNextLevel)
	assert.Nil(t, got.Predictions.NextLevelDate)
	assert.Equal(t, 0.0, got.Predictions.MasteryProjection)
}

func TestComputeInsightsTotalsAndTrend(t *testing.T) {
	rows := []*UserAnalytics{
		dailyRow(3, 70, 100, 20, 5),
		dailyRow(2, 80, 150, 30, 8),
		dailyRow(1, 90, 50, 10, 3),
	}

	got := ComputeInsights("u1", Window7d, rows, nil, ProgressState{CurrentLevel: 2, XPToNextLevel: 200}, insightsNow)

	assert.Equal(t, 60, got.StudyTimeMinutes)
	assert.Equal(t, 16, got.CharactersPracticed)
	assert.Equal(t, 300, got.XPEarned)
	assert.Equal(t, []float64{70, 80, 90}, got.AccuracyTrend)
	assert.InDelta(t, 80.0, got.AverageAccuracy, 0.001)

	// avg daily XP = 100; 200 XP remaining -> 2 days.
	assert.Equal(t, 2, got.Predictions.DaysToNextLevel)
	require.NotNil(t, got.Predictions.NextLevelDate)
	assert.Equal(t, insightsNow.AddDate(0, 0, 2), *got.Predictions.NextLevelDate)
}

func masteryRecord(accuracy, strokeOrder float64, level mastery.Level, practiceCount, streak int, due bool) *mastery.CharacterMastery {
	next := insightsNow.AddDate(0, 0, 2)
	if due {
		next = insightsNow.AddDate(0, 0, -1)
	}
	return &mastery.CharacterMastery{
		UserID:           "u1",
		CharacterID:      "hiragana-a",
		CharacterType:    mastery.TypeHiragana,
		MasteryLevel:     level,
		AccuracyScore:    accuracy,
		StrokeOrderScore: strokeOrder,
		PracticeCount:    practiceCount,
		StreakCount:      streak,
		NextReviewDate:   next,
	}
}

func TestWeakAndStrongAreas(t *testing.T) {
	masteries := []*mastery.CharacterMastery{
		masteryRecord(60, 70, mastery.LevelLearning, 2, 0, true),
		masteryRecord(95, 92, mastery.LevelExpert, 15, 6, false),
		masteryRecord(85, 85, mastery.LevelPracticing, 4, 1, false),
	}

	got := ComputeInsights("u1", Window30d, nil, masteries, ProgressState{}, insightsNow)

	assert.Contains(t, got.WeakAreas, "Low accuracy: 1 characters")
	assert.Contains(t, got.WeakAreas, "Insufficient practice: 1 characters")
	assert.Contains(t, got.WeakAreas, "Due for review: 1 characters")
	assert.Contains(t, got.WeakAreas, "Stroke order issues: 1 characters")

	assert.Contains(t, got.StrongAreas, "High accuracy: 1 characters")
	assert.Contains(t, got.StrongAreas, "Mastered: 1 characters")
	assert.Contains(t, got.StrongAreas, "Consistent practice: 1 characters")
	assert.Contains(t, got.StrongAreas, "Long streaks: 1 characters")

	assert.Contains(t, got.Predictions.RecommendedFocus, "Focus on characters with low accuracy scores")
	assert.Contains(t, got.Predictions.RecommendedFocus, "Review characters that are due for practice")
}

func TestMasteryProjectionCapped(t *testing.T) {
	rows := []*UserAnalytics{dailyRow(1, 90, 5000, 60, 40)}
	masteries := []*mastery.CharacterMastery{
		masteryRecord(96, 95, mastery.LevelMastered, 12, 6, false),
	}

	got := ComputeInsights("u1", Window7d, rows, masteries, ProgressState{XPToNextLevel: 100}, insightsNow)

	// 100% mastered plus a huge daily XP bonus still caps at 100.
	assert.Equal(t, 100.0, got.Predictions.MasteryProjection)
}
