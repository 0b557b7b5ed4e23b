package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kanaquest/progress-engine/internal/domain/analytics"
	"github.com/kanaquest/progress-engine/internal/domain/leaderboard"
	"github.com/kanaquest/progress-engine/internal/domain/mastery"
	"github.com/kanaquest/progress-engine/internal/domain/progress"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/internal/domain/streak"
	"github.com/kanaquest/progress-engine/pkg/logger"
	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARD COMMAND
// Recomputes one period's leaderboard from scratch: snapshot every user,
// score, rank, swap the stored entries atomically, drop the period cache.
// ══════════════════════════════════════════════════════════════════════════════

// RebuildLeaderboardCommand contains the data to rebuild a leaderboard.
type RebuildLeaderboardCommand struct {
	// Period is the leaderboard period to rebuild.
	Period leaderboard.Period
}

// Validate validates the command.
func (c RebuildLeaderboardCommand) Validate() error {
	if !c.Period.IsValid() {
		return shared.ErrInvalidPeriod
	}
	return nil
}

// RebuildLeaderboardResult contains the result of a rebuild.
type RebuildLeaderboardResult struct {
	// Period is the rebuilt period.
	Period leaderboard.Period

	// EntryCount is the number of ranked users.
	EntryCount int

	// TopScore is the highest score on the board.
	TopScore int

	// AverageScore is the mean score across all ranked users.
	AverageScore int

	// Skipped is the number of users skipped due to snapshot errors.
	Skipped int

	// Elapsed is how long the rebuild took.
	Elapsed time.Duration

	// Events contains domain events generated.
	Events []shared.Event
}

// RebuildLeaderboardHandler handles the RebuildLeaderboardCommand.
type RebuildLeaderboardHandler struct {
	progressRepo  progress.Repository
	masteryRepo   mastery.Repository
	streakRepo    streak.Repository
	analyticsRepo analytics.Repository
	boardRepo     leaderboard.Repository
	boardCache    leaderboard.Cache
	weights       leaderboard.ScoreWeights
	publisher     shared.EventPublisher
	clock         timeutil.Clock
	log           *logger.Logger
}

// NewRebuildLeaderboardHandler creates a new RebuildLeaderboardHandler.
func NewRebuildLeaderboardHandler(
	progressRepo progress.Repository,
	masteryRepo mastery.Repository,
	streakRepo streak.Repository,
	analyticsRepo analytics.Repository,
	boardRepo leaderboard.Repository,
	boardCache leaderboard.Cache,
	weights leaderboard.ScoreWeights,
	publisher shared.EventPublisher,
	clock timeutil.Clock,
	log *logger.Logger,
) *RebuildLeaderboardHandler {
	return &RebuildLeaderboardHandler{
		progressRepo:  progressRepo,
		masteryRepo:   masteryRepo,
		streakRepo:    streakRepo,
		analyticsRepo: analyticsRepo,
		boardRepo:     boardRepo,
		boardCache:    boardCache,
		weights:       weights,
		publisher:     publisher,
		clock:         clock,
		log:           log,
	}
}

// Handle executes the rebuild leaderboard command.
func (h *RebuildLeaderboardHandler) Handle(ctx context.Context, cmd RebuildLeaderboardCommand) (*RebuildLeaderboardResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("rebuild_leaderboard: validation failed: %w", err)
	}

	started := h.clock.Now()
	from := cmd.Period.WindowStart(started)

	userIDs, err := h.progressRepo.ListUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("rebuild_leaderboard: failed to list users: %w", err)
	}

	ranking := leaderboard.NewRanking()
	skipped := 0

	for _, userID := range userIDs {
		snapshot, err := h.snapshotUser(ctx, userID, from, started)
		if err != nil {
			// One bad user must not sink the whole rebuild
			h.log.Warn("rebuild_leaderboard: skipping user",
				logger.UserID(userID), logger.Period(cmd.Period.String()), logger.Err(err))
			skipped++
			continue
		}

		entry := &leaderboard.Entry{
			UserID:       userID,
			Period:       cmd.Period,
			Score:        leaderboard.Score(snapshot, cmd.Period, h.weights),
			Metadata:     snapshot,
			CalculatedAt: started,
		}
		if err := ranking.Add(entry); err != nil {
			return nil, fmt.Errorf("rebuild_leaderboard: failed to add entry: %w", err)
		}
	}

	ranking.SortByScore()
	board := leaderboard.NewBoard(cmd.Period, ranking, started)

	if err := h.boardRepo.ReplaceEntries(ctx, cmd.Period, board.Entries); err != nil {
		return nil, fmt.Errorf("rebuild_leaderboard: failed to replace entries: %w", err)
	}
	if h.boardCache != nil {
		if err := h.boardCache.InvalidatePeriod(ctx, cmd.Period); err != nil {
			// Stale cache self-heals on TTL, do not fail the rebuild
			h.log.Warn("rebuild_leaderboard: cache invalidation failed",
				logger.Period(cmd.Period.String()), logger.Err(err))
		}
	}

	finished := h.clock.Now()
	elapsed := finished.Sub(started)
	event := shared.NewLeaderboardRebuiltEvent(cmd.Period.String(), board.TotalUsers, ranking.TopScore(), elapsed, finished)
	_ = h.publisher.Publish(event)

	h.log.Info("rebuild_leaderboard: completed",
		logger.Period(cmd.Period.String()),
		logger.Int("entries", board.TotalUsers),
		logger.Int("avg_score", board.AverageScore),
		logger.Int("skipped", skipped),
		logger.Latency(elapsed))

	return &RebuildLeaderboardResult{
		Period:       cmd.Period,
		EntryCount:   board.TotalUsers,
		TopScore:     ranking.TopScore(),
		AverageScore: board.AverageScore,
		Skipped:      skipped,
		Elapsed:      elapsed,
		Events:       []shared.Event{event},
	}, nil
}

// snapshotUser assembles the scoring inputs for one user over the period
// window [from, now].
func (h *RebuildLeaderboardHandler) snapshotUser(ctx context.Context, userID string, from, now time.Time) (leaderboard.UserSnapshot, error) {
	snapshot := leaderboard.UserSnapshot{UserID: userID}

	prog, err := h.progressRepo.GetProgress(ctx, userID)
	if err != nil {
		return snapshot, err
	}
	snapshot.CurrentLevel = prog.CurrentLevel

	periodXP, err := h.progressRepo.SumTransactionsInWindow(ctx, userID, from, now)
	if err != nil {
		return snapshot, err
	}
	snapshot.PeriodXP = periodXP

	practiceDays, err := h.progressRepo.CountDistinctActivityDays(ctx, userID, from, now)
	if err != nil {
		return snapshot, err
	}
	snapshot.PracticeDays = practiceDays

	totals, err := h.progressRepo.SumBySource(ctx, userID, from, now)
	if err != nil {
		return snapshot, err
	}
	for _, t := range totals {
		if t.Source == progress.SourceAchievementUnlock {
			snapshot.AchievementCount = t.Count
		}
	}

	mastered, err := h.masteryRepo.CountMasteredInWindow(ctx, userID, from, now)
	if err != nil {
		return snapshot, err
	}
	snapshot.MasteredCount = mastered

	daily, err := h.streakRepo.GetStreak(ctx, userID, streak.TypeDailyPractice)
	switch {
	case err == nil:
		snapshot.StreakCount = daily.CurrentCount
	case !errors.Is(err, shared.ErrNotFound):
		return snapshot, err
	}

	snapshot.AverageAccuracy, err = h.windowAccuracy(ctx, userID, from, now)
	if err != nil {
		return snapshot, err
	}

	return snapshot, nil
}

// windowAccuracy averages daily accuracy over the window, weighted by
// practice volume per day.
func (h *RebuildLeaderboardHandler) windowAccuracy(ctx context.Context, userID string, from, to time.Time) (float64, error) {
	rows, err := h.analyticsRepo.ListRange(ctx, userID, from, to)
	if err != nil {
		return 0, err
	}

	var sum float64
	var count int
	for _, row := range rows {
		sum += row.AccuracyAverage * float64(row.CharactersPracticed)
		count += row.CharactersPracticed
	}
	if count == 0 {
		return 0, nil
	}
	return sum / float64(count), nil
}
