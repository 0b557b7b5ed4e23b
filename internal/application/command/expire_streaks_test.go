package command

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanaquest/progress-engine/internal/domain/progress"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/internal/domain/streak"
	"github.com/kanaquest/progress-engine/pkg/logger"
	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

var sweepDay = time.Date(2026, 5, 10, 4, 0, 0, 0, time.UTC)

type expireFixture struct {
	handler       *ExpireStreaksHandler
	streakRepo    *fakeStreakRepo
	progressRepo  *fakeProgressRepo
	progressCache *fakeProgressCache
	publisher     *capturingPublisher
}

func newExpireFixture() *expireFixture {
	f := &expireFixture{
		streakRepo:    newFakeStreakRepo(),
		progressRepo:  newFakeProgressRepo(),
		progressCache: newFakeProgressCache(),
		publisher:     &capturingPublisher{},
	}
	f.handler = NewExpireStreaksHandler(
		f.streakRepo,
		f.progressRepo,
		f.progressCache,
		f.publisher,
		timeutil.NewFixedClock(sweepDay),
		logger.New(logger.Options{Output: io.Discard}),
	)
	return f
}

func seedStreak(t *testing.T, repo *fakeStreakRepo, userID string, streakType streak.Type, count, freezes, daysAgo int) {
	t.Helper()

	s := streak.NewStreak("sid-"+userID+"-"+string(streakType), userID, streakType, sweepDay.AddDate(0, 0, -daysAgo))
	s.CurrentCount = count
	s.LongestCount = count
	s.FreezeCount = freezes
	require.NoError(t, repo.CreateStreak(context.Background(), s))
}

func TestExpireStreaksZeroesStaleStreaks(t *testing.T) {
	f := newExpireFixture()
	ctx := context.Background()

	seedStreak(t, f.streakRepo, testUserID, streak.TypeDailyPractice, 12, 0, 5)
	seedStreak(t, f.streakRepo, testUserID, streak.TypeDailyLogin, 3, 0, 0)
	require.NoError(t, f.progressRepo.CreateProgress(ctx, &progress.UserProgress{
		UserID:      testUserID,
		StreakCount: 12,
	}))

	result, err := f.handler.Handle(ctx, ExpireStreaksCommand{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Examined)
	assert.Equal(t, 1, result.Expired)

	stale, err := f.streakRepo.GetStreak(ctx, testUserID, streak.TypeDailyPractice)
	require.NoError(t, err)
	assert.False(t, stale.IsActive)
	assert.Equal(t, 0, stale.CurrentCount)
	assert.Equal(t, 12, stale.LongestCount, "the record survives the break")

	fresh, err := f.streakRepo.GetStreak(ctx, testUserID, streak.TypeDailyLogin)
	require.NoError(t, err)
	assert.True(t, fresh.IsActive)
	assert.Equal(t, 3, fresh.CurrentCount)
}

func TestExpireStreaksSyncsProgressRow(t *testing.T) {
	f := newExpireFixture()
	ctx := context.Background()

	seedStreak(t, f.streakRepo, testUserID, streak.TypeDailyPractice, 12, 0, 5)
	require.NoError(t, f.progressRepo.CreateProgress(ctx, &progress.UserProgress{
		UserID:      testUserID,
		StreakCount: 12,
	}))

	_, err := f.handler.Handle(ctx, ExpireStreaksCommand{})
	require.NoError(t, err)

	prog, err := f.progressRepo.GetProgress(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 0, prog.StreakCount)
	assert.Contains(t, f.progressCache.invalidations, testUserID)
}

func TestExpireStreaksHonorsFreezes(t *testing.T) {
	f := newExpireFixture()
	ctx := context.Background()

	// Two days of gap covered by one banked freeze
	seedStreak(t, f.streakRepo, testUserID, streak.TypeDailyPractice, 8, 1, 2)

	result, err := f.handler.Handle(ctx, ExpireStreaksCommand{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Expired)
	s, err := f.streakRepo.GetStreak(ctx, testUserID, streak.TypeDailyPractice)
	require.NoError(t, err)
	assert.True(t, s.IsActive)
}

func TestExpireStreaksPublishesEvents(t *testing.T) {
	f := newExpireFixture()
	ctx := context.Background()

	seedStreak(t, f.streakRepo, testUserID, streak.TypePerfectScore, 4, 0, 3)

	result, err := f.handler.Handle(ctx, ExpireStreaksCommand{})
	require.NoError(t, err)

	types := f.publisher.typesSeen()
	assert.Contains(t, types, shared.EventStreakBroken)
	assert.Contains(t, types, shared.EventSweepCompleted)
	assert.Len(t, result.Events, 2)
}

func TestExpireStreaksPagesThroughActiveSet(t *testing.T) {
	f := newExpireFixture()
	ctx := context.Background()

	// More streaks than one batch, all stale
	users := []string{"user-1", "user-2", "user-3", "user-4", "user-5"}
	for _, userID := range users {
		seedStreak(t, f.streakRepo, userID, streak.TypeDailyPractice, 2, 0, 4)
	}

	result, err := f.handler.Handle(ctx, ExpireStreaksCommand{BatchSize: 2})
	require.NoError(t, err)

	assert.Equal(t, len(users), result.Examined)
	assert.Equal(t, len(users), result.Expired)
}

func TestExpireStreaksEmptySweep(t *testing.T) {
	f := newExpireFixture()

	result, err := f.handler.Handle(context.Background(), ExpireStreaksCommand{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Examined)
	assert.Equal(t, 0, result.Expired)
	assert.Contains(t, f.publisher.typesSeen(), shared.EventSweepCompleted)
}
