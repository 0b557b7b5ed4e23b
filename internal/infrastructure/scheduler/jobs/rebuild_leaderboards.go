package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kanaquest/progress-engine/internal/application/command"
	"github.com/kanaquest/progress-engine/internal/domain/leaderboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARDS JOB
// ══════════════════════════════════════════════════════════════════════════════

// RebuildLeaderboardsJob recomputes every configured leaderboard period
// from the write-side stores. Boards are rebuilt from scratch rather than
// updated incrementally: the score formula spans five stores and a full
// recompute keeps them consistent without cross-store transactions.
type RebuildLeaderboardsJob struct {
	handler *command.RebuildLeaderboardHandler
	logger  *slog.Logger
	config  RebuildLeaderboardsConfig

	lastRunStats atomic.Value // *RebuildLeaderboardsStats
}

// RebuildLeaderboardsConfig contains configuration for the rebuild job.
type RebuildLeaderboardsConfig struct {
	// Periods are the leaderboard periods to rebuild, in order.
	Periods []leaderboard.Period

	// Timeout is the maximum duration for rebuilding all periods.
	Timeout time.Duration

	// ContinueOnError keeps rebuilding remaining periods after a failure.
	ContinueOnError bool
}

// DefaultRebuildLeaderboardsConfig returns sensible defaults.
func DefaultRebuildLeaderboardsConfig() RebuildLeaderboardsConfig {
	return RebuildLeaderboardsConfig{
		Periods:         leaderboard.AllPeriods(),
		Timeout:         10 * time.Minute,
		ContinueOnError: true,
	}
}

// RebuildLeaderboardsStats contains statistics from a rebuild run.
type RebuildLeaderboardsStats struct {
	StartedAt      time.Time
	CompletedAt    time.Time
	Duration       time.Duration
	PeriodsRebuilt int
	PeriodsFailed  int
	TotalEntries   int
	TotalSkipped   int
}

// NewRebuildLeaderboardsJob creates a new rebuild leaderboards job.
func NewRebuildLeaderboardsJob(handler *command.RebuildLeaderboardHandler, logger *slog.Logger, config RebuildLeaderboardsConfig) *RebuildLeaderboardsJob {
	if logger == nil {
		logger = slog.Default()
	}
	if len(config.Periods) == 0 {
		config.Periods = leaderboard.AllPeriods()
	}
	return &RebuildLeaderboardsJob{
		handler: handler,
		logger:  logger,
		config:  config,
	}
}

// Name returns the job name.
func (j *RebuildLeaderboardsJob) Name() string {
	return "rebuild_leaderboards"
}

// Description returns a human-readable description.
func (j *RebuildLeaderboardsJob) Description() string {
	return "Recomputes all leaderboard periods from the write-side stores"
}

// Run executes the rebuild for every configured period.
func (j *RebuildLeaderboardsJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &RebuildLeaderboardsStats{StartedAt: startedAt}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	var errs []error
	for _, period := range j.config.Periods {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := j.handler.Handle(ctx, command.RebuildLeaderboardCommand{Period: period})
		if err != nil {
			stats.PeriodsFailed++
			errs = append(errs, fmt.Errorf("period %s: %w", period, err))
			j.logger.Error("leaderboard rebuild failed",
				"period", period.String(),
				"error", err,
			)
			if !j.config.ContinueOnError {
				break
			}
			continue
		}

		stats.PeriodsRebuilt++
		stats.TotalEntries += result.EntryCount
		stats.TotalSkipped += result.Skipped
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)
	j.lastRunStats.Store(stats)

	j.logger.Info("rebuild_leaderboards job completed",
		"periods_rebuilt", stats.PeriodsRebuilt,
		"periods_failed", stats.PeriodsFailed,
		"total_entries", stats.TotalEntries,
		"duration", stats.Duration,
	)

	if len(errs) > 0 {
		return fmt.Errorf("rebuild leaderboards: %w", errors.Join(errs...))
	}
	return nil
}

// LastRunStats returns statistics from the most recent run.
func (j *RebuildLeaderboardsJob) LastRunStats() *RebuildLeaderboardsStats {
	stats, _ := j.lastRunStats.Load().(*RebuildLeaderboardsStats)
	return stats
}
