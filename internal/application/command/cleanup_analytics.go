package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kanaquest/progress-engine/internal/domain/analytics"
	"github.com/kanaquest/progress-engine/internal/domain/progress"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/pkg/logger"
	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLEANUP ANALYTICS COMMAND
// Retention sweep: deletes daily analytics rows and XP transactions older
// than the retention window. Progress totals are unaffected, they live on
// the aggregate row.
// ══════════════════════════════════════════════════════════════════════════════

// CleanupAnalyticsCommand contains the data for a retention sweep.
type CleanupAnalyticsCommand struct {
	// RetentionDays is how many days of history to keep
	// (defaults to 365 if not positive).
	RetentionDays int

	// IncludeTransactions also prunes the XP transaction ledger.
	IncludeTransactions bool
}

// Validate validates the command.
func (c CleanupAnalyticsCommand) Validate() error {
	if c.RetentionDays < 0 {
		return errors.New("cleanup_analytics: retention_days cannot be negative")
	}
	return nil
}

// CleanupAnalyticsResult contains the result of a retention sweep.
type CleanupAnalyticsResult struct {
	// Cutoff is the computed retention boundary.
	Cutoff time.Time

	// AnalyticsDeleted is the number of daily rows removed.
	AnalyticsDeleted int64

	// TransactionsDeleted is the number of ledger rows removed.
	TransactionsDeleted int64

	// Elapsed is how long the sweep took.
	Elapsed time.Duration

	// Events contains domain events generated.
	Events []shared.Event
}

// CleanupAnalyticsHandler handles the CleanupAnalyticsCommand.
type CleanupAnalyticsHandler struct {
	analyticsRepo analytics.Repository
	progressRepo  progress.Repository
	publisher     shared.EventPublisher
	clock         timeutil.Clock
	log           *logger.Logger
}

// NewCleanupAnalyticsHandler creates a new CleanupAnalyticsHandler.
func NewCleanupAnalyticsHandler(
	analyticsRepo analytics.Repository,
	progressRepo progress.Repository,
	publisher shared.EventPublisher,
	clock timeutil.Clock,
	log *logger.Logger,
) *CleanupAnalyticsHandler {
	return &CleanupAnalyticsHandler{
		analyticsRepo: analyticsRepo,
		progressRepo:  progressRepo,
		publisher:     publisher,
		clock:         clock,
		log:           log,
	}
}

// Handle executes the retention sweep.
func (h *CleanupAnalyticsHandler) Handle(ctx context.Context, cmd CleanupAnalyticsCommand) (*CleanupAnalyticsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("cleanup_analytics: validation failed: %w", err)
	}

	retention := cmd.RetentionDays
	if retention <= 0 {
		retention = 365
	}

	started := h.clock.Now()
	cutoff := started.AddDate(0, 0, -retention)

	deleted, err := h.analyticsRepo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("cleanup_analytics: failed to delete analytics rows: %w", err)
	}

	var txDeleted int64
	if cmd.IncludeTransactions {
		txDeleted, err = h.progressRepo.DeleteTransactionsBefore(ctx, cutoff)
		if err != nil {
			return nil, fmt.Errorf("cleanup_analytics: failed to delete transactions: %w", err)
		}
	}

	finished := h.clock.Now()
	elapsed := finished.Sub(started)

	sweep := shared.NewSweepCompletedEvent("cleanup_analytics", int(deleted+txDeleted), elapsed, finished)
	_ = h.publisher.Publish(sweep)

	h.log.Info("cleanup_analytics: completed",
		logger.Int64("analytics_deleted", deleted),
		logger.Int64("transactions_deleted", txDeleted),
		logger.Latency(elapsed))

	return &CleanupAnalyticsResult{
		Cutoff:              cutoff,
		AnalyticsDeleted:    deleted,
		TransactionsDeleted: txDeleted,
		Elapsed:             elapsed,
		Events:              []shared.Event{sweep},
	}, nil
}
