package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanaquest/progress-engine/internal/domain/analytics"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

func seedDaily(t *testing.T, repo *fakeAnalyticsRepo, daysAgo int, accuracy float64, minutes, practiced, xp int) {
	t.Helper()

	now := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	date := timeutil.StartOfDay(now.AddDate(0, 0, -daysAgo))
	require.NoError(t, repo.UpsertDaily(context.Background(), &analytics.UserAnalytics{
		ID:                  "an-" + date.Format("2006-01-02"),
		UserID:              testUserID,
		Date:                date,
		StudyTimeMinutes:    minutes,
		CharactersPracticed: practiced,
		AccuracyAverage:     accuracy,
		XPEarned:            xp,
	}))
}

func TestGetInsightsAggregatesWindow(t *testing.T) {
	analyticsRepo := newFakeAnalyticsRepo()
	now := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	handler := NewGetInsightsHandler(analyticsRepo, newFakeMasteryRepo(), newFakeProgressRepo(), timeutil.NewFixedClock(now))

	seedDaily(t, analyticsRepo, 3, 70, 20, 10, 100)
	seedDaily(t, analyticsRepo, 2, 80, 30, 15, 150)
	seedDaily(t, analyticsRepo, 1, 90, 25, 12, 120)
	// Вне окна 7d, не должна попасть в агрегаты
	seedDaily(t, analyticsRepo, 10, 40, 60, 30, 300)

	result, err := handler.Handle(context.Background(), GetInsightsQuery{UserID: testUserID, Window: "7d"})
	require.NoError(t, err)

	assert.Equal(t, "7d", result.Window)
	assert.Equal(t, 75, result.StudyTimeMinutes)
	assert.Equal(t, 37, result.CharactersPracticed)
	assert.Equal(t, 370, result.XPEarned)
	assert.InDelta(t, 80.0, result.AverageAccuracy, 1e-9)
	assert.Equal(t, []float64{70, 80, 90}, result.AccuracyTrend)
	// Вторая половина (80, 90) против первой (70)
	assert.InDelta(t, 15.0, result.ImprovementRate, 1e-9)
}

func TestGetInsightsDefaultsToThirtyDays(t *testing.T) {
	handler := NewGetInsightsHandler(newFakeAnalyticsRepo(), newFakeMasteryRepo(), newFakeProgressRepo(), timeutil.SystemClock{})

	result, err := handler.Handle(context.Background(), GetInsightsQuery{UserID: testUserID, Window: "fortnight"})
	require.NoError(t, err)
	assert.Equal(t, "30d", result.Window)
}

func TestGetInsightsWorksWithoutProgressRow(t *testing.T) {
	analyticsRepo := newFakeAnalyticsRepo()
	now := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	handler := NewGetInsightsHandler(analyticsRepo, newFakeMasteryRepo(), newFakeProgressRepo(), timeutil.NewFixedClock(now))
	seedDaily(t, analyticsRepo, 1, 85, 15, 8, 90)

	result, err := handler.Handle(context.Background(), GetInsightsQuery{UserID: testUserID})
	require.NoError(t, err)
	assert.Equal(t, 90, result.XPEarned)
	assert.Zero(t, result.Predictions.DaysToNextLevel)
}

func TestGetInsightsRequiresUserID(t *testing.T) {
	handler := NewGetInsightsHandler(newFakeAnalyticsRepo(), newFakeMasteryRepo(), newFakeProgressRepo(), timeutil.SystemClock{})

	_, err := handler.Handle(context.Background(), GetInsightsQuery{})
	assert.True(t, shared.IsValidation(err))
}
