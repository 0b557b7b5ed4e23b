// Package eventhandler содержит обработчики доменных событий.
package eventhandler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kanaquest/progress-engine/internal/application/command"
	"github.com/kanaquest/progress-engine/internal/domain/progress"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON STREAK MILESTONE HANDLER
// Начисляет табличную награду XP за достигнутый рубеж серии.
//
// Награда идёт через событие, а не внутри записи практики: рубеж может
// быть достигнут любым путём продвижения серии, и ровно одно место
// превращает его в транзакцию XP.
// ═══════════════════════════════════════════════════════════════════════════

// OnStreakMilestoneHandler обрабатывает событие достижения рубежа серии.
type OnStreakMilestoneHandler struct {
	awardXP *command.AwardXPHandler
	logger  *slog.Logger
}

// NewOnStreakMilestoneHandler создаёт новый обработчик рубежей серий.
func NewOnStreakMilestoneHandler(awardXP *command.AwardXPHandler, logger *slog.Logger) *OnStreakMilestoneHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnStreakMilestoneHandler{
		awardXP: awardXP,
		logger:  logger.With("handler", "on_streak_milestone"),
	}
}

// Handle обрабатывает событие достижения рубежа.
// Реализует интерфейс shared.EventHandler.
func (h *OnStreakMilestoneHandler) Handle(event shared.Event) error {
	milestoneEvent, ok := event.(shared.StreakMilestoneReachedEvent)
	if !ok {
		h.logger.Warn("received non-StreakMilestoneReachedEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	ctx := context.Background()

	result, err := h.awardXP.Handle(ctx, command.AwardXPCommand{
		UserID:      milestoneEvent.UserID,
		Source:      progress.SourceStreakMilestone,
		Amount:      milestoneEvent.XPReward,
		StreakCount: milestoneEvent.Days,
		Description: fmt.Sprintf("Streak milestone: %s (%d days)", milestoneEvent.Badge, milestoneEvent.Days),
		Metadata: map[string]any{
			"streak_type": milestoneEvent.StreakType,
			"badge":       milestoneEvent.Badge,
			"days":        milestoneEvent.Days,
		},
	})
	if err != nil {
		h.logger.Error("failed to award milestone XP",
			"user_id", milestoneEvent.UserID,
			"streak_type", milestoneEvent.StreakType,
			"days", milestoneEvent.Days,
			"error", err,
		)
		return fmt.Errorf("award milestone XP: %w", err)
	}

	h.logger.Info("milestone XP awarded",
		"user_id", milestoneEvent.UserID,
		"streak_type", milestoneEvent.StreakType,
		"days", milestoneEvent.Days,
		"xp", result.Award.TotalXP,
		"badge", milestoneEvent.Badge,
	)

	return nil
}

// EventType возвращает тип события, который обрабатывает этот handler.
func (h *OnStreakMilestoneHandler) EventType() shared.EventType {
	return shared.EventStreakMilestoneReached
}
