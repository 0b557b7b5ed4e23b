package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanaquest/progress-engine/internal/domain/mastery"
	"github.com/kanaquest/progress-engine/internal/domain/progress"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/internal/domain/streak"
	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

var practiceDay = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

const testUserID = "b7c1e0a4-0000-4000-8000-000000000042"

type recordPracticeFixture struct {
	handler       *RecordPracticeHandler
	masteryRepo   *fakeMasteryRepo
	progressRepo  *fakeProgressRepo
	progressCache *fakeProgressCache
	streakRepo    *fakeStreakRepo
	analyticsRepo *fakeAnalyticsRepo
	publisher     *capturingPublisher
	clock         *timeutil.FixedClock
}

func newRecordPracticeFixture() *recordPracticeFixture {
	f := &recordPracticeFixture{
		masteryRepo:   newFakeMasteryRepo(),
		progressRepo:  newFakeProgressRepo(),
		progressCache: newFakeProgressCache(),
		streakRepo:    newFakeStreakRepo(),
		analyticsRepo: newFakeAnalyticsRepo(),
		publisher:     &capturingPublisher{},
		clock:         timeutil.NewFixedClock(practiceDay),
	}
	f.handler = NewRecordPracticeHandler(
		f.masteryRepo,
		f.progressRepo,
		f.progressCache,
		f.streakRepo,
		f.analyticsRepo,
		progress.NewCalculator(progress.DefaultCalculatorConfig()),
		progress.NewLevelCurve(progress.DefaultLevelCurveConfig()),
		f.publisher,
		f.clock,
	)
	return f
}

func practiceCommand() RecordPracticeCommand {
	return RecordPracticeCommand{
		UserID:           testUserID,
		CharacterID:      "hiragana-a",
		CharacterType:    mastery.TypeHiragana,
		Accuracy:         85,
		TimeSpentSeconds: 45,
		StrokesCorrect:   3,
		StrokesTotal:     3,
	}
}

func TestRecordPracticeFirstAttemptCreatesEverything(t *testing.T) {
	f := newRecordPracticeFixture()

	result, err := f.handler.Handle(context.Background(), practiceCommand())
	require.NoError(t, err)

	assert.True(t, result.MasteryCreated)
	assert.Equal(t, mastery.LevelLearning, result.MasteryLevel)
	assert.Positive(t, result.SessionXP)

	// Progress row created with the base practice award on the ledger
	prog, err := f.progressRepo.GetProgress(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Equal(t, 10, prog.TotalXP)
	require.Len(t, f.progressRepo.txs, 1)
	assert.Equal(t, progress.SourceCharacterPractice, f.progressRepo.txs[0].Source)
	assert.Equal(t, 10, f.progressRepo.txs[0].Amount)

	// Practice and login streaks start at day one
	daily, err := f.streakRepo.GetStreak(context.Background(), testUserID, streak.TypeDailyPractice)
	require.NoError(t, err)
	assert.Equal(t, 1, daily.CurrentCount)
	login, err := f.streakRepo.GetStreak(context.Background(), testUserID, streak.TypeDailyLogin)
	require.NoError(t, err)
	assert.Equal(t, 1, login.CurrentCount)

	// No perfect streak for an imperfect attempt
	_, err = f.streakRepo.GetStreak(context.Background(), testUserID, streak.TypePerfectScore)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	// Daily analytics row folded in
	row, err := f.analyticsRepo.GetDaily(context.Background(), testUserID, timeutil.StartOfDay(practiceDay))
	require.NoError(t, err)
	assert.Equal(t, 1, row.CharactersPracticed)
	assert.Equal(t, 10, row.XPEarned)
	assert.InDelta(t, 85, row.AccuracyAverage, 0.001)
}

func TestRecordPracticeSessionXPStaysOffTheLedger(t *testing.T) {
	f := newRecordPracticeFixture()

	result, err := f.handler.Handle(context.Background(), practiceCommand())
	require.NoError(t, err)

	// Accuracy 85 in 45s earns 20 session XP, but the ledger records the
	// flat practice award
	assert.Equal(t, 20, result.SessionXP)
	assert.Equal(t, 10, result.NewTotalXP)

	sessions, err := f.masteryRepo.ListSessions(context.Background(), testUserID, "hiragana-a", 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 20, sessions[0].XPEarned)
}

func TestRecordPracticePerfectAttemptFeedsPerfectStreak(t *testing.T) {
	f := newRecordPracticeFixture()

	cmd := practiceCommand()
	cmd.Accuracy = 100
	cmd.IsPerfect = true

	_, err := f.handler.Handle(context.Background(), cmd)
	require.NoError(t, err)

	perfect, err := f.streakRepo.GetStreak(context.Background(), testUserID, streak.TypePerfectScore)
	require.NoError(t, err)
	assert.Equal(t, 1, perfect.CurrentCount)
}

func TestRecordPracticeSecondDayExtendsStreak(t *testing.T) {
	f := newRecordPracticeFixture()
	ctx := context.Background()

	_, err := f.handler.Handle(ctx, practiceCommand())
	require.NoError(t, err)

	f.clock.AdvanceDays(1)
	result, err := f.handler.Handle(ctx, practiceCommand())
	require.NoError(t, err)

	assert.True(t, result.StreakExtended)
	assert.Equal(t, 2, result.DailyStreak)

	// Denormalized copy on the progress row follows the streak
	prog, err := f.progressRepo.GetProgress(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 2, prog.StreakCount)
	assert.Equal(t, 2, prog.LongestStreak)
}

func TestRecordPracticeSameDayDoesNotExtendStreak(t *testing.T) {
	f := newRecordPracticeFixture()
	ctx := context.Background()

	_, err := f.handler.Handle(ctx, practiceCommand())
	require.NoError(t, err)

	result, err := f.handler.Handle(ctx, practiceCommand())
	require.NoError(t, err)

	assert.False(t, result.StreakExtended)
	assert.Equal(t, 1, result.DailyStreak)

	// Mastery still accumulates on repeat practice
	m, err := f.masteryRepo.GetMastery(ctx, testUserID, "hiragana-a")
	require.NoError(t, err)
	assert.Equal(t, 2, m.PracticeCount)
}

func TestRecordPracticeMilestonePublishesEvent(t *testing.T) {
	f := newRecordPracticeFixture()
	ctx := context.Background()

	// Day 3 of DAILY_PRACTICE is the first milestone
	for day := 0; day < 3; day++ {
		if day > 0 {
			f.clock.AdvanceDays(1)
		}
		result, err := f.handler.Handle(ctx, practiceCommand())
		require.NoError(t, err)
		if day == 2 {
			require.NotNil(t, result.Milestone)
			assert.Equal(t, 3, result.Milestone.Days)
		}
	}

	assert.Contains(t, f.publisher.typesSeen(), shared.EventStreakMilestoneReached)
}

func TestRecordPracticePublishesCoreEvents(t *testing.T) {
	f := newRecordPracticeFixture()

	_, err := f.handler.Handle(context.Background(), practiceCommand())
	require.NoError(t, err)

	types := f.publisher.typesSeen()
	assert.Contains(t, types, shared.EventPracticeRecorded)
	assert.Contains(t, types, shared.EventXPAwarded)
	assert.Contains(t, types, shared.EventStreakExtended)
}

func TestRecordPracticeInvalidatesProgressCache(t *testing.T) {
	f := newRecordPracticeFixture()

	_, err := f.handler.Handle(context.Background(), practiceCommand())
	require.NoError(t, err)

	assert.Contains(t, f.progressCache.invalidations, testUserID)
}

func TestRecordPracticeRejectsInvalidAccuracy(t *testing.T) {
	f := newRecordPracticeFixture()

	cmd := practiceCommand()
	cmd.Accuracy = 120

	_, err := f.handler.Handle(context.Background(), cmd)
	assert.Error(t, err)
	assert.Empty(t, f.publisher.events)
}
