package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/internal/domain/streak"
	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

func newFreezeFixture(t *testing.T) (*FreezeStreakHandler, *fakeStreakRepo, *capturingPublisher) {
	t.Helper()

	streakRepo := newFakeStreakRepo()
	publisher := &capturingPublisher{}
	handler := NewFreezeStreakHandler(
		streakRepo,
		publisher,
		timeutil.NewFixedClock(time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)),
		DefaultFreezeStreakHandlerConfig(),
	)
	return handler, streakRepo, publisher
}

func TestFreezeStreakBanksFreeze(t *testing.T) {
	handler, streakRepo, publisher := newFreezeFixture(t)
	ctx := context.Background()

	s := streak.NewStreak("sid-1", testUserID, streak.TypeDailyPractice, time.Date(2026, 5, 9, 20, 0, 0, 0, time.UTC))
	require.NoError(t, streakRepo.CreateStreak(ctx, s))

	result, err := handler.Handle(ctx, FreezeStreakCommand{UserID: testUserID, StreakType: streak.TypeDailyPractice})
	require.NoError(t, err)

	assert.Equal(t, 1, result.FreezeCount)
	assert.Equal(t, 3, result.FreezeLimit)
	assert.Contains(t, publisher.typesSeen(), shared.EventStreakFrozen)

	stored, err := streakRepo.GetStreak(ctx, testUserID, streak.TypeDailyPractice)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.FreezeCount)
}

func TestFreezeStreakRespectsLimit(t *testing.T) {
	handler, streakRepo, _ := newFreezeFixture(t)
	ctx := context.Background()

	s := streak.NewStreak("sid-1", testUserID, streak.TypeDailyPractice, time.Date(2026, 5, 9, 20, 0, 0, 0, time.UTC))
	s.FreezeCount = 3
	require.NoError(t, streakRepo.CreateStreak(ctx, s))

	_, err := handler.Handle(ctx, FreezeStreakCommand{UserID: testUserID, StreakType: streak.TypeDailyPractice})
	assert.ErrorIs(t, err, shared.ErrFreezeLimitReached)
}

func TestFreezeStreakDefaultLimitMatchesConfig(t *testing.T) {
	cfg := DefaultFreezeStreakHandlerConfig()
	assert.Equal(t, 3, cfg.FreezeLimit)
}

func TestFreezeStreakUnknownStreak(t *testing.T) {
	handler, _, _ := newFreezeFixture(t)

	_, err := handler.Handle(context.Background(), FreezeStreakCommand{UserID: testUserID, StreakType: streak.TypeDailyLogin})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestFreezeStreakRejectsInvalidType(t *testing.T) {
	handler, _, _ := newFreezeFixture(t)

	_, err := handler.Handle(context.Background(), FreezeStreakCommand{UserID: testUserID, StreakType: streak.Type("WEEKLY_NAP")})
	assert.ErrorIs(t, err, shared.ErrInvalidStreakType)
}
