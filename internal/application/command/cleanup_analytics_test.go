package command

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanaquest/progress-engine/internal/domain/analytics"
	"github.com/kanaquest/progress-engine/internal/domain/progress"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/pkg/logger"
	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

var cleanupDay = time.Date(2026, 5, 10, 5, 0, 0, 0, time.UTC)

type cleanupFixture struct {
	handler       *CleanupAnalyticsHandler
	analyticsRepo *fakeAnalyticsRepo
	progressRepo  *fakeProgressRepo
	publisher     *capturingPublisher
}

func newCleanupFixture() *cleanupFixture {
	f := &cleanupFixture{
		analyticsRepo: newFakeAnalyticsRepo(),
		progressRepo:  newFakeProgressRepo(),
		publisher:     &capturingPublisher{},
	}
	f.handler = NewCleanupAnalyticsHandler(
		f.analyticsRepo,
		f.progressRepo,
		f.publisher,
		timeutil.NewFixedClock(cleanupDay),
		logger.New(logger.Options{Output: io.Discard}),
	)
	return f
}

func (f *cleanupFixture) seedDaily(t *testing.T, id string, daysAgo int) {
	t.Helper()
	row := analytics.NewUserAnalytics(id, testUserID, cleanupDay.AddDate(0, 0, -daysAgo))
	require.NoError(t, f.analyticsRepo.UpsertDaily(context.Background(), row))
}

func TestCleanupAnalyticsDeletesOldRows(t *testing.T) {
	f := newCleanupFixture()
	ctx := context.Background()

	f.seedDaily(t, "row-old", 400)
	f.seedDaily(t, "row-recent", 10)

	result, err := f.handler.Handle(ctx, CleanupAnalyticsCommand{})
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.AnalyticsDeleted)
	assert.Equal(t, int64(0), result.TransactionsDeleted)

	_, err = f.analyticsRepo.GetDaily(ctx, testUserID, cleanupDay.AddDate(0, 0, -400))
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = f.analyticsRepo.GetDaily(ctx, testUserID, cleanupDay.AddDate(0, 0, -10))
	assert.NoError(t, err)
}

func TestCleanupAnalyticsRespectsRetentionDays(t *testing.T) {
	f := newCleanupFixture()

	f.seedDaily(t, "row-a", 45)
	f.seedDaily(t, "row-b", 15)

	result, err := f.handler.Handle(context.Background(), CleanupAnalyticsCommand{RetentionDays: 30})
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.AnalyticsDeleted)
	assert.Equal(t, cleanupDay.AddDate(0, 0, -30), result.Cutoff)
}

func TestCleanupAnalyticsPrunesLedgerOnRequest(t *testing.T) {
	f := newCleanupFixture()

	f.progressRepo.txs = append(f.progressRepo.txs,
		&progress.XPTransaction{ID: "tx-old", UserID: testUserID, Amount: 10, Source: progress.SourceDailyLogin, CreatedAt: cleanupDay.AddDate(0, 0, -400)},
		&progress.XPTransaction{ID: "tx-new", UserID: testUserID, Amount: 10, Source: progress.SourceDailyLogin, CreatedAt: cleanupDay.AddDate(0, 0, -5)},
	)

	result, err := f.handler.Handle(context.Background(), CleanupAnalyticsCommand{IncludeTransactions: true})
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.TransactionsDeleted)
	require.Len(t, f.progressRepo.txs, 1)
	assert.Equal(t, "tx-new", f.progressRepo.txs[0].ID)
}

func TestCleanupAnalyticsLeavesLedgerByDefault(t *testing.T) {
	f := newCleanupFixture()

	f.progressRepo.txs = append(f.progressRepo.txs,
		&progress.XPTransaction{ID: "tx-old", UserID: testUserID, Amount: 10, Source: progress.SourceDailyLogin, CreatedAt: cleanupDay.AddDate(0, 0, -400)},
	)

	result, err := f.handler.Handle(context.Background(), CleanupAnalyticsCommand{})
	require.NoError(t, err)

	assert.Equal(t, int64(0), result.TransactionsDeleted)
	assert.Len(t, f.progressRepo.txs, 1)
}

func TestCleanupAnalyticsPublishesSweepEvent(t *testing.T) {
	f := newCleanupFixture()

	_, err := f.handler.Handle(context.Background(), CleanupAnalyticsCommand{})
	require.NoError(t, err)

	assert.Contains(t, f.publisher.typesSeen(), shared.EventSweepCompleted)
}
