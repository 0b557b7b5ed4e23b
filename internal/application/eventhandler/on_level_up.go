package eventhandler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kanaquest/progress-engine/internal/domain/analytics"
	"github.com/kanaquest/progress-engine/internal/domain/progress"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON LEVEL UP HANDLER
// Обрабатывает повышение уровня: засчитывает разблокированные награды
// уровня как достижения в дневной аналитике.
// ═══════════════════════════════════════════════════════════════════════════

// OnLevelUpHandler обрабатывает событие повышения уровня.
type OnLevelUpHandler struct {
	analyticsRepo analytics.Repository
	clock         timeutil.Clock
	logger        *slog.Logger
}

// NewOnLevelUpHandler создаёт новый обработчик повышения уровня.
func NewOnLevelUpHandler(analyticsRepo analytics.Repository, clock timeutil.Clock, logger *slog.Logger) *OnLevelUpHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnLevelUpHandler{
		analyticsRepo: analyticsRepo,
		clock:         clock,
		logger:        logger.With("handler", "on_level_up"),
	}
}

// Handle обрабатывает событие повышения уровня.
// Реализует интерфейс shared.EventHandler.
func (h *OnLevelUpHandler) Handle(event shared.Event) error {
	levelEvent, ok := event.(shared.LevelUpEvent)
	if !ok {
		h.logger.Warn("received non-LevelUpEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	ctx := context.Background()
	now := h.clock.Now()

	// Переход мог перепрыгнуть несколько уровней за одно начисление
	var unlocked int
	for level := levelEvent.PreviousLevel + 1; level <= levelEvent.NewLevel; level++ {
		rewards := progress.RewardsFor(level)
		unlocked += len(rewards)
		for _, reward := range rewards {
			h.logger.Info("level reward unlocked",
				"user_id", levelEvent.UserID,
				"level", level,
				"kind", string(reward.Kind),
				"label", reward.Label,
			)
		}
	}
	if unlocked == 0 {
		return nil
	}

	if err := h.recordAchievements(ctx, levelEvent.UserID, unlocked, now); err != nil {
		h.logger.Error("failed to record level achievements",
			"user_id", levelEvent.UserID,
			"new_level", levelEvent.NewLevel,
			"error", err,
		)
		return fmt.Errorf("record level achievements: %w", err)
	}

	return nil
}

// recordAchievements засчитывает разблокированные награды в дневной строке.
func (h *OnLevelUpHandler) recordAchievements(ctx context.Context, userID string, count int, now time.Time) error {
	row, err := h.analyticsRepo.GetDaily(ctx, userID, timeutil.StartOfDay(now))
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		row = analytics.NewUserAnalytics(uuid.NewString(), userID, now)
	}

	for i := 0; i < count; i++ {
		row.MarkAchievementUnlocked(now)
	}
	return h.analyticsRepo.UpsertDaily(ctx, row)
}

// EventType возвращает тип события, который обрабатывает этот handler.
func (h *OnLevelUpHandler) EventType() shared.EventType {
	return shared.EventLevelUp
}
