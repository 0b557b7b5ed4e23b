package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("WEEKLY")
	require.NoError(t, err)
	assert.Equal(t, PeriodWeekly, p)

	_, err = ParsePeriod("YEARLY")
	assert.ErrorIs(t, err, ErrUnknownPeriod)

	_, err = ParsePeriod("daily")
	assert.Error(t, err)
}

func TestPeriodMultiplier(t *testing.T) {
	assert.Equal(t, 1.0, PeriodDaily.Multiplier())
	assert.Equal(t, 1.2, PeriodWeekly.Multiplier())
	assert.Equal(t, 1.5, PeriodMonthly.Multiplier())
	assert.Equal(t, 2.0, PeriodAllTime.Multiplier())
}

func TestPeriodWindowStart(t *testing.T) {
	// Wednesday afternoon.
	now := time.Date(2026, 3, 18, 15, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC), PeriodDaily.WindowStart(now))
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), PeriodWeekly.WindowStart(now))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), PeriodMonthly.WindowStart(now))
	assert.True(t, PeriodAllTime.WindowStart(now).IsZero())
}

func TestScoreCompositeFormula(t *testing.T) {
	snapshot := UserSnapshot{
		UserID:           "u1",
		PeriodXP:         500,
		CurrentLevel:     5,
		StreakCount:      7,
		MasteredCount:    3,
		AchievementCount: 2,
		PracticeDays:     4,
		AverageAccuracy:  88.5,
	}

	// 500 + 500 + 350 + 600 + 300 + 100 + 177 = 2527
	got := Score(snapshot, PeriodDaily, DefaultScoreWeights())
	assert.Equal(t, 2527, got)

	// Weekly multiplies by 1.2 and rounds: 2527 * 1.2 = 3032.4 -> 3032.
	got = Score(snapshot, PeriodWeekly, DefaultScoreWeights())
	assert.Equal(t, 3032, got)

	got = Score(snapshot, PeriodAllTime, DefaultScoreWeights())
	assert.Equal(t, 5054, got)
}

func TestScoreZeroSnapshot(t *testing.T) {
	got := Score(UserSnapshot{UserID: "u1"}, PeriodMonthly, DefaultScoreWeights())
	assert.Equal(t, 0, got)
}

func TestEntryValidate(t *testing.T) {
	entry := &Entry{UserID: "u1", Period: PeriodDaily, Rank: 1, Score: 100}
	assert.NoError(t, entry.Validate())

	assert.ErrorIs(t, (&Entry{Period: PeriodDaily, Rank: 1}).Validate(), ErrInvalidUserID)
	assert.ErrorIs(t, (&Entry{UserID: "u1", Period: "BAD", Rank: 1}).Validate(), ErrUnknownPeriod)
	assert.ErrorIs(t, (&Entry{UserID: "u1", Period: PeriodDaily, Rank: 0}).Validate(), ErrInvalidRankValue)
}
