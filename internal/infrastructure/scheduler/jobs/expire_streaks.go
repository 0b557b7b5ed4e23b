// Package jobs contains implementations of scheduled jobs for the progress engine.
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
// EXPIRE STREAKS JOB
// ══════════════════════════════════════════════════════════════════════════════

// ExpireStreaksJob runs the daily streak expiry sweep. Streaks whose
// activity gap outran their freeze balance are zeroed and a break event
// is published for each.
//
// The sweep must run after the day boundary in UTC: a streak is only
// considered stale once a full calendar day has passed without activity.
type ExpireStreaksJob struct {
	handler *command.ExpireStreaksHandler
	logger  *slog.Logger
	config  ExpireStreaksConfig

	lastRunStats atomic.Value // *ExpireStreaksStats
}

// ExpireStreaksConfig contains configuration for the expire streaks job.
type ExpireStreaksConfig struct {
	// BatchSize is the page size for scanning active streaks.
	BatchSize int

	// Timeout is the maximum duration for the sweep.
	Timeout time.Duration
}

// DefaultExpireStreaksConfig returns sensible defaults.
func DefaultExpireStreaksConfig() ExpireStreaksConfig {
	return ExpireStreaksConfig{
		BatchSize: 500,
		Timeout:   5 * time.Minute,
	}
}

// ExpireStreaksStats contains statistics from an expiry run.
type ExpireStreaksStats struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Examined    int
	Expired     int
}

// NewExpireStreaksJob creates a new expire streaks job.
func NewExpireStreaksJob(handler *command.ExpireStreaksHandler, logger *slog.Logger, config ExpireStreaksConfig) *ExpireStreaksJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpireStreaksJob{
		handler: handler,
		logger:  logger,
		config:  config,
	}
}

// Name returns the job name.
func (j *ExpireStreaksJob) Name() string {
	return "expire_streaks"
}

// Description returns a human-readable description.
func (j *ExpireStreaksJob) Description() string {
	return "Zeroes streaks whose activity gap outran their freeze balance"
}

// Run executes the expiry sweep.
func (j *ExpireStreaksJob) Run(ctx context.Context) error {
	startedAt := time.Now()

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	result, err := j.handler.Handle(ctx, command.ExpireStreaksCommand{
		BatchSize: j.config.BatchSize,
	})
	if err != nil {
		return fmt.Errorf("expire streaks sweep failed: %w", err)
	}

	stats := &ExpireStreaksStats{
		StartedAt:   startedAt,
		CompletedAt: time.Now(),
		Examined:    result.Examined,
		Expired:     result.Expired,
	}
	stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)
	j.lastRunStats.Store(stats)

	j.logger.Info("expire_streaks job completed",
		"examined", stats.Examined,
		"expired", stats.Expired,
		"duration", stats.Duration,
	)
	return nil
}

// LastRunStats returns statistics from the most recent run.
func (j *ExpireStreaksJob) LastRunStats() *ExpireStreaksStats {
	stats, _ := j.lastRunStats.Load().(*ExpireStreaksStats)
	return stats
}
