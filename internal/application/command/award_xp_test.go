package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanaquest/progress-engine/internal/domain/progress"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

var awardDay = time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)

type awardXPFixture struct {
	handler      *AwardXPHandler
	progressRepo *fakeProgressRepo
	cache        *fakeProgressCache
	publisher    *capturingPublisher
}

func newAwardXPFixture() *awardXPFixture {
	f := &awardXPFixture{
		progressRepo: newFakeProgressRepo(),
		cache:        newFakeProgressCache(),
		publisher:    &capturingPublisher{},
	}
	f.handler = NewAwardXPHandler(
		f.progressRepo,
		f.cache,
		progress.NewCalculator(progress.DefaultCalculatorConfig()),
		progress.NewLevelCurve(progress.DefaultLevelCurveConfig()),
		f.publisher,
		timeutil.NewFixedClock(awardDay),
	)
	return f
}

// seedProgress creates the level-1 row the award path expects to exist.
func (f *awardXPFixture) seedProgress(t *testing.T) {
	t.Helper()
	info := progress.NewLevelCurve(progress.DefaultLevelCurveConfig()).LevelFor(0)
	err := f.progressRepo.CreateProgress(context.Background(), &progress.UserProgress{
		UserID:        testUserID,
		CurrentLevel:  info.Level,
		XPToNextLevel: info.XPToNext,
		LevelName:     info.Name,
		CreatedAt:     awardDay,
		UpdatedAt:     awardDay,
	})
	require.NoError(t, err)
}

func TestAwardXPFailsForUnknownUser(t *testing.T) {
	f := newAwardXPFixture()

	_, err := f.handler.Handle(context.Background(), AwardXPCommand{
		UserID: testUserID,
		Source: progress.SourceDailyLogin,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrUserNotFound)

	// No row, no ledger entry, no events
	assert.Empty(t, f.progressRepo.txs)
	assert.Empty(t, f.publisher.events)
	_, err = f.progressRepo.GetProgress(context.Background(), testUserID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAwardXPAppliesToExistingProgress(t *testing.T) {
	f := newAwardXPFixture()
	f.seedProgress(t)

	result, err := f.handler.Handle(context.Background(), AwardXPCommand{
		UserID: testUserID,
		Source: progress.SourceDailyLogin,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, result.Award.TotalXP)
	assert.Equal(t, 5, result.NewTotalXP)
	assert.False(t, result.LeveledUp)

	prog, err := f.progressRepo.GetProgress(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Equal(t, 1, prog.CurrentLevel)
	assert.Equal(t, 5, prog.TotalXP)
}

func TestAwardXPLevelUpEmitsEvent(t *testing.T) {
	f := newAwardXPFixture()
	f.seedProgress(t)

	// Level 2 threshold is 100 XP on the default curve
	result, err := f.handler.Handle(context.Background(), AwardXPCommand{
		UserID: testUserID,
		Source: progress.SourceMonthlyChallenge,
	})
	require.NoError(t, err)

	assert.True(t, result.LeveledUp)
	assert.Greater(t, result.NewLevel, 1)
	assert.Contains(t, f.publisher.typesSeen(), shared.EventLevelUp)
}

func TestAwardXPStreakMultiplierApplies(t *testing.T) {
	f := newAwardXPFixture()
	f.seedProgress(t)

	result, err := f.handler.Handle(context.Background(), AwardXPCommand{
		UserID:           testUserID,
		Source:           progress.SourceLessonCompletion,
		StreakMultiplier: true,
	})
	require.NoError(t, err)

	// 30 base * 1.5 streak multiplier
	assert.Equal(t, 45, result.Award.TotalXP)
}

func TestAwardXPAmountOverrideWins(t *testing.T) {
	f := newAwardXPFixture()
	f.seedProgress(t)

	result, err := f.handler.Handle(context.Background(), AwardXPCommand{
		UserID:      testUserID,
		Source:      progress.SourceStreakMilestone,
		Amount:      75,
		StreakCount: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, 75, result.Award.TotalXP)
	assert.Equal(t, 1.0, result.Award.Multiplier)
}

func TestAwardXPAppendsLedgerTransaction(t *testing.T) {
	f := newAwardXPFixture()
	f.seedProgress(t)
	ctx := context.Background()

	_, err := f.handler.Handle(ctx, AwardXPCommand{UserID: testUserID, Source: progress.SourceDailyLogin})
	require.NoError(t, err)
	_, err = f.handler.Handle(ctx, AwardXPCommand{UserID: testUserID, Source: progress.SourceReviewSession})
	require.NoError(t, err)

	require.Len(t, f.progressRepo.txs, 2)
	sum, err := f.progressRepo.SumTransactions(ctx, testUserID)
	require.NoError(t, err)

	prog, err := f.progressRepo.GetProgress(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, prog.TotalXP, sum, "ledger must reconcile with the aggregate")
}

func TestAwardXPInvalidatesCache(t *testing.T) {
	f := newAwardXPFixture()
	f.seedProgress(t)

	_, err := f.handler.Handle(context.Background(), AwardXPCommand{UserID: testUserID, Source: progress.SourceDailyLogin})
	require.NoError(t, err)

	assert.Contains(t, f.cache.invalidations, testUserID)
}

func TestAwardXPEventTimestampFollowsClock(t *testing.T) {
	f := newAwardXPFixture()
	f.seedProgress(t)

	result, err := f.handler.Handle(context.Background(), AwardXPCommand{
		UserID: testUserID,
		Source: progress.SourceMonthlyChallenge,
	})
	require.NoError(t, err)

	require.NotEmpty(t, result.Events)
	for _, event := range result.Events {
		assert.Equal(t, awardDay, event.OccurredAt())
	}
}

func TestAwardXPRejectsUnknownSource(t *testing.T) {
	f := newAwardXPFixture()

	_, err := f.handler.Handle(context.Background(), AwardXPCommand{
		UserID: testUserID,
		Source: progress.XPSource("NOT_A_SOURCE"),
	})
	assert.ErrorIs(t, err, shared.ErrInvalidXPSource)
}
