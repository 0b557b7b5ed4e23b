package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kanaquest/progress-engine/internal/application/command"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLEANUP ANALYTICS JOB
// ══════════════════════════════════════════════════════════════════════════════

// CleanupAnalyticsJob prunes daily analytics rows past the retention
// window. The XP ledger is left alone unless explicitly enabled: deleting
// ledger rows narrows the window rebuildable leaderboards can see.
type CleanupAnalyticsJob struct {
	handler *command.CleanupAnalyticsHandler
	logger  *slog.Logger
	config  CleanupAnalyticsConfig

	lastRunStats atomic.Value // *CleanupAnalyticsStats
}

// CleanupAnalyticsConfig contains configuration for the cleanup job.
type CleanupAnalyticsConfig struct {
	// RetentionDays is how many days of history to keep.
	RetentionDays int

	// IncludeTransactions also prunes the XP transaction ledger.
	IncludeTransactions bool

	// Timeout is the maximum duration for the sweep.
	Timeout time.Duration
}

// DefaultCleanupAnalyticsConfig returns sensible defaults.
func DefaultCleanupAnalyticsConfig() CleanupAnalyticsConfig {
	return CleanupAnalyticsConfig{
		RetentionDays:       365,
		IncludeTransactions: false,
		Timeout:             5 * time.Minute,
	}
}

// CleanupAnalyticsStats contains statistics from a cleanup run.
type CleanupAnalyticsStats struct {
	StartedAt           time.Time
	CompletedAt         time.Time
	Duration            time.Duration
	Cutoff              time.Time
	AnalyticsDeleted    int64
	TransactionsDeleted int64
}

// NewCleanupAnalyticsJob creates a new cleanup analytics job.
func NewCleanupAnalyticsJob(handler *command.CleanupAnalyticsHandler, logger *slog.Logger, config CleanupAnalyticsConfig) *CleanupAnalyticsJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupAnalyticsJob{
		handler: handler,
		logger:  logger,
		config:  config,
	}
}

// Name returns the job name.
func (j *CleanupAnalyticsJob) Name() string {
	return "cleanup_analytics"
}

// Description returns a human-readable description.
func (j *CleanupAnalyticsJob) Description() string {
	return "Prunes daily analytics rows past the retention window"
}

// Run executes the retention sweep.
func (j *CleanupAnalyticsJob) Run(ctx context.Context) error {
	startedAt := time.Now()

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	result, err := j.handler.Handle(ctx, command.CleanupAnalyticsCommand{
		RetentionDays:       j.config.RetentionDays,
		IncludeTransactions: j.config.IncludeTransactions,
	})
	if err != nil {
		return fmt.Errorf("cleanup analytics sweep failed: %w", err)
	}

	stats := &CleanupAnalyticsStats{
		StartedAt:           startedAt,
		CompletedAt:         time.Now(),
		Cutoff:              result.Cutoff,
		AnalyticsDeleted:    result.AnalyticsDeleted,
		TransactionsDeleted: result.TransactionsDeleted,
	}
	stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)
	j.lastRunStats.Store(stats)

	j.logger.Info("cleanup_analytics job completed",
		"cutoff", stats.Cutoff,
		"analytics_deleted", stats.AnalyticsDeleted,
		"transactions_deleted", stats.TransactionsDeleted,
		"duration", stats.Duration,
	)
	return nil
}

// LastRunStats returns statistics from the most recent run.
func (j *CleanupAnalyticsJob) LastRunStats() *CleanupAnalyticsStats {
	stats, _ := j.lastRunStats.Load().(*CleanupAnalyticsStats)
	return stats
}
