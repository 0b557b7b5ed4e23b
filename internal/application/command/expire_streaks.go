package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kanaquest/progress-engine/internal/domain/progress"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/internal/domain/streak"
	"github.com/kanaquest/progress-engine/pkg/logger"
	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPIRE STREAKS COMMAND
// Daily sweep: zeroes every active streak whose gap outran its freeze
// balance. Keeps the denormalized streak copy on the progress row in sync.
// ══════════════════════════════════════════════════════════════════════════════

// ExpireStreaksCommand contains the data for a streak expiry sweep.
type ExpireStreaksCommand struct {
	// BatchSize is the page size for scanning active streaks
	// (defaults to 500 if not positive).
	BatchSize int
}

// Validate validates the command.
func (c ExpireStreaksCommand) Validate() error {
	if c.BatchSize < 0 {
		return errors.New("expire_streaks: batch_size cannot be negative")
	}
	return nil
}

// ExpireStreaksResult contains the result of a sweep.
type ExpireStreaksResult struct {
	// Examined is the number of active streaks scanned.
	Examined int

	// Expired is the number of streaks zeroed.
	Expired int

	// Elapsed is how long the sweep took.
	Elapsed time.Duration

	// Events contains domain events generated.
	Events []shared.Event
}

// ExpireStreaksHandler handles the ExpireStreaksCommand.
type ExpireStreaksHandler struct {
	streakRepo    streak.Repository
	progressRepo  progress.Repository
	progressCache progress.Cache
	publisher     shared.EventPublisher
	clock         timeutil.Clock
	log           *logger.Logger
}

// NewExpireStreaksHandler creates a new ExpireStreaksHandler.
func NewExpireStreaksHandler(
	streakRepo streak.Repository,
	progressRepo progress.Repository,
	progressCache progress.Cache,
	publisher shared.EventPublisher,
	clock timeutil.Clock,
	log *logger.Logger,
) *ExpireStreaksHandler {
	return &ExpireStreaksHandler{
		streakRepo:    streakRepo,
		progressRepo:  progressRepo,
		progressCache: progressCache,
		publisher:     publisher,
		clock:         clock,
		log:           log,
	}
}

// Handle executes the streak expiry sweep.
func (h *ExpireStreaksHandler) Handle(ctx context.Context, cmd ExpireStreaksCommand) (*ExpireStreaksResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("expire_streaks: validation failed: %w", err)
	}

	batchSize := cmd.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	started := h.clock.Now()
	result := &ExpireStreaksResult{
		Events: make([]shared.Event, 0, 8),
	}

	// Collect first: expiring mutates the active set, so paging while
	// writing would skip rows.
	active, err := h.listAllActive(ctx, batchSize)
	if err != nil {
		return nil, fmt.Errorf("expire_streaks: failed to list active streaks: %w", err)
	}
	result.Examined = len(active)

	for _, s := range active {
		if !s.IsExpired(started) {
			continue
		}

		previousCount := s.CurrentCount
		daysMissed := timeutil.DaysBetween(s.LastActivity, started)

		s.Expire(started)
		if err := h.streakRepo.UpdateStreak(ctx, s); err != nil {
			h.log.Warn("expire_streaks: failed to expire streak",
				logger.UserID(s.UserID), logger.StreakType(s.Type.String()), logger.Err(err))
			continue
		}
		result.Expired++

		if s.Type == streak.TypeDailyPractice {
			h.zeroProgressStreak(ctx, s.UserID)
		}

		event := shared.NewStreakBrokenEvent(s.UserID, s.Type.String(), previousCount, daysMissed, started)
		result.Events = append(result.Events, event)
		_ = h.publisher.Publish(event)
	}

	finished := h.clock.Now()
	result.Elapsed = finished.Sub(started)

	sweep := shared.NewSweepCompletedEvent("expire_streaks", result.Expired, result.Elapsed, finished)
	result.Events = append(result.Events, sweep)
	_ = h.publisher.Publish(sweep)

	h.log.Info("expire_streaks: completed",
		logger.Int("examined", result.Examined),
		logger.Int("expired", result.Expired),
		logger.Latency(result.Elapsed))

	return result, nil
}

// listAllActive pages through every active streak.
func (h *ExpireStreaksHandler) listAllActive(ctx context.Context, batchSize int) ([]*streak.Streak, error) {
	var all []*streak.Streak
	for offset := 0; ; offset += batchSize {
		page, err := h.streakRepo.ListActive(ctx, batchSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < batchSize {
			return all, nil
		}
	}
}

// zeroProgressStreak clears the denormalized DAILY_PRACTICE streak copy.
func (h *ExpireStreaksHandler) zeroProgressStreak(ctx context.Context, userID string) {
	prog, err := h.progressRepo.GetProgress(ctx, userID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.log.Warn("expire_streaks: failed to load progress", logger.UserID(userID), logger.Err(err))
		}
		return
	}

	prog.StreakCount = 0
	prog.UpdatedAt = h.clock.Now()
	if err := h.progressRepo.UpdateProgress(ctx, prog); err != nil {
		h.log.Warn("expire_streaks: failed to update progress", logger.UserID(userID), logger.Err(err))
		return
	}
	if h.progressCache != nil {
		_ = h.progressCache.InvalidateUser(ctx, userID)
	}
}
