package query

import (
	"context"
	"errors"

	"github.com/kanaquest/progress-engine/internal/domain/mastery"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET MASTERY STATS QUERY
// Получает сводную статистику владения: разбивки по уровням и типам,
// средняя точность, суммарное время практики, очередь повторения.
// ══════════════════════════════════════════════════════════════════════════════

// GetMasteryStatsQuery содержит параметры запроса статистики владения.
type GetMasteryStatsQuery struct {
	// UserID - идентификатор пользователя.
	UserID string
}

// Validate проверяет корректность параметров запроса.
func (q *GetMasteryStatsQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user_id is required")
	}
	return nil
}

// MasteryStatsDTO - DTO сводной статистики владения.
type MasteryStatsDTO struct {
	// TotalCharacters - всего символов в работе.
	TotalCharacters int `json:"total_characters"`

	// ByLevel - количество символов по уровням владения.
	ByLevel map[string]int `json:"by_level"`

	// ByType - количество символов по типам.
	ByType map[string]int `json:"by_type"`

	// AverageAccuracy - средняя точность по всем символам.
	AverageAccuracy float64 `json:"average_accuracy"`

	// TotalPracticeTimeSeconds - суммарное время практики в секундах.
	TotalPracticeTimeSeconds int `json:"total_practice_time_seconds"`

	// DueForReview - символов, ожидающих повторения.
	DueForReview int `json:"due_for_review"`
}

// GetMasteryStatsResult содержит результат запроса статистики владения.
type GetMasteryStatsResult struct {
	// Stats - сводная статистика.
	Stats MasteryStatsDTO `json:"stats"`
}

// GetMasteryStatsHandler обрабатывает запросы статистики владения.
type GetMasteryStatsHandler struct {
	masteryRepo mastery.Repository
	clock       timeutil.Clock
}

// NewGetMasteryStatsHandler создаёт новый обработчик статистики владения.
func NewGetMasteryStatsHandler(masteryRepo mastery.Repository, clock timeutil.Clock) *GetMasteryStatsHandler {
	return &GetMasteryStatsHandler{masteryRepo: masteryRepo, clock: clock}
}

// Handle выполняет запрос статистики владения.
func (h *GetMasteryStatsHandler) Handle(ctx context.Context, query GetMasteryStatsQuery) (*GetMasteryStatsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetMasteryStats", shared.ErrValidation, err.Error(), err)
	}

	stats, err := h.masteryRepo.GetStats(ctx, query.UserID, h.clock.Now())
	if err != nil {
		return nil, err
	}

	byLevel := make(map[string]int, len(stats.ByLevel))
	for level, count := range stats.ByLevel {
		byLevel[level.String()] = count
	}
	byType := make(map[string]int, len(stats.ByType))
	for charType, count := range stats.ByType {
		byType[charType.String()] = count
	}

	return &GetMasteryStatsResult{
		Stats: MasteryStatsDTO{
			TotalCharacters:          stats.TotalCharacters,
			ByLevel:                  byLevel,
			ByType:                   byType,
			AverageAccuracy:          stats.AverageAccuracy,
			TotalPracticeTimeSeconds: stats.TotalPracticeTime,
			DueForReview:             stats.DueForReview,
		},
	}, nil
}
