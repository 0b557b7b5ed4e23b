package command

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanaquest/progress-engine/internal/domain/leaderboard"
	"github.com/kanaquest/progress-engine/internal/domain/progress"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/internal/domain/streak"
	"github.com/kanaquest/progress-engine/pkg/logger"
	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

var rebuildDay = time.Date(2026, 5, 10, 3, 0, 0, 0, time.UTC)

type rebuildFixture struct {
	handler      *RebuildLeaderboardHandler
	progressRepo *fakeProgressRepo
	streakRepo   streak.Repository
	boardRepo    *fakeBoardRepo
	boardCache   *fakeBoardCache
	publisher    *capturingPublisher
}

func newRebuildFixture(streakRepo streak.Repository) *rebuildFixture {
	f := &rebuildFixture{
		progressRepo: newFakeProgressRepo(),
		streakRepo:   streakRepo,
		boardRepo:    newFakeBoardRepo(),
		boardCache:   &fakeBoardCache{},
		publisher:    &capturingPublisher{},
	}
	f.handler = NewRebuildLeaderboardHandler(
		f.progressRepo,
		newFakeMasteryRepo(),
		f.streakRepo,
		newFakeAnalyticsRepo(),
		f.boardRepo,
		f.boardCache,
		leaderboard.DefaultScoreWeights(),
		f.publisher,
		timeutil.NewFixedClock(rebuildDay),
		logger.New(logger.Options{Output: io.Discard}),
	)
	return f
}

func (f *rebuildFixture) seedUser(t *testing.T, userID string, level, weekXP int) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, f.progressRepo.CreateProgress(ctx, &progress.UserProgress{
		UserID:       userID,
		TotalXP:      weekXP,
		CurrentLevel: level,
	}))
	f.progressRepo.txs = append(f.progressRepo.txs, &progress.XPTransaction{
		ID:        "tx-" + userID,
		UserID:    userID,
		Amount:    weekXP,
		Source:    progress.SourceCharacterPractice,
		CreatedAt: rebuildDay.AddDate(0, 0, -1),
	})
}

func TestRebuildLeaderboardRanksByScore(t *testing.T) {
	f := newRebuildFixture(newFakeStreakRepo())
	ctx := context.Background()

	f.seedUser(t, "user-a", 3, 400)
	f.seedUser(t, "user-b", 1, 50)

	result, err := f.handler.Handle(ctx, RebuildLeaderboardCommand{Period: leaderboard.PeriodWeekly})
	require.NoError(t, err)

	assert.Equal(t, 2, result.EntryCount)
	assert.Equal(t, 0, result.Skipped)

	stored := f.boardRepo.entries[leaderboard.PeriodWeekly]
	require.Len(t, stored, 2)
	assert.Equal(t, "user-a", stored[0].UserID)
	assert.Equal(t, 1, stored[0].Rank)
	assert.Equal(t, "user-b", stored[1].UserID)
	assert.Equal(t, 2, stored[1].Rank)
	assert.Greater(t, stored[0].Score, stored[1].Score)
	assert.Equal(t, stored[0].Score, result.TopScore)
	assert.Equal(t, (stored[0].Score+stored[1].Score)/2, result.AverageScore)
}

func TestRebuildLeaderboardSnapshotCarriesMetadata(t *testing.T) {
	f := newRebuildFixture(newFakeStreakRepo())
	ctx := context.Background()

	f.seedUser(t, "user-a", 2, 120)
	s := streak.NewStreak("sid-a", "user-a", streak.TypeDailyPractice, rebuildDay.AddDate(0, 0, -1))
	s.CurrentCount = 6
	require.NoError(t, f.streakRepo.CreateStreak(ctx, s))

	_, err := f.handler.Handle(ctx, RebuildLeaderboardCommand{Period: leaderboard.PeriodWeekly})
	require.NoError(t, err)

	stored := f.boardRepo.entries[leaderboard.PeriodWeekly]
	require.Len(t, stored, 1)
	assert.Equal(t, 120, stored[0].Metadata.PeriodXP)
	assert.Equal(t, 2, stored[0].Metadata.CurrentLevel)
	assert.Equal(t, 6, stored[0].Metadata.StreakCount)
	assert.Equal(t, 1, stored[0].Metadata.PracticeDays)
}

func TestRebuildLeaderboardInvalidatesCacheAndPublishes(t *testing.T) {
	f := newRebuildFixture(newFakeStreakRepo())

	f.seedUser(t, "user-a", 1, 10)

	_, err := f.handler.Handle(context.Background(), RebuildLeaderboardCommand{Period: leaderboard.PeriodMonthly})
	require.NoError(t, err)

	assert.Contains(t, f.boardCache.invalidated, leaderboard.PeriodMonthly)
	assert.Contains(t, f.publisher.typesSeen(), shared.EventLeaderboardRebuilt)
}

// failingStreakRepo breaks GetStreak for one user to exercise the skip path.
type failingStreakRepo struct {
	*fakeStreakRepo
	failFor string
}

func (f *failingStreakRepo) GetStreak(ctx context.Context, userID string, streakType streak.Type) (*streak.Streak, error) {
	if userID == f.failFor {
		return nil, errors.New("connection reset")
	}
	return f.fakeStreakRepo.GetStreak(ctx, userID, streakType)
}

func TestRebuildLeaderboardSkipsBrokenUsers(t *testing.T) {
	f := newRebuildFixture(&failingStreakRepo{fakeStreakRepo: newFakeStreakRepo(), failFor: "user-b"})

	f.seedUser(t, "user-a", 1, 80)
	f.seedUser(t, "user-b", 1, 90)

	result, err := f.handler.Handle(context.Background(), RebuildLeaderboardCommand{Period: leaderboard.PeriodWeekly})
	require.NoError(t, err)

	assert.Equal(t, 1, result.EntryCount)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, f.boardRepo.entries[leaderboard.PeriodWeekly], 1)
	assert.Equal(t, "user-a", f.boardRepo.entries[leaderboard.PeriodWeekly][0].UserID)
}

func TestRebuildLeaderboardRejectsInvalidPeriod(t *testing.T) {
	f := newRebuildFixture(newFakeStreakRepo())

	_, err := f.handler.Handle(context.Background(), RebuildLeaderboardCommand{Period: leaderboard.Period("HOURLY")})
	assert.ErrorIs(t, err, shared.ErrInvalidPeriod)
}
