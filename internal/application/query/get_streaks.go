package query

import (
	"context"
	"errors"
	"time"

	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STREAKS QUERY
// Получает все серии пользователя со сводкой и следующими рубежами.
// ══════════════════════════════════════════════════════════════════════════════

// GetStreaksQuery содержит параметры запроса серий.
type GetStreaksQuery struct {
	// UserID - идентификатор пользователя.
	UserID string
}

// Validate проверяет корректность параметров запроса.
func (q *GetStreaksQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user_id is required")
	}
	return nil
}

// StreakDTO - DTO одной серии.
type StreakDTO struct {
	// Type - тип серии.
	Type string `json:"type"`

	// CurrentCount - текущая длина серии в днях.
	CurrentCount int `json:"current_count"`

	// LongestCount - лучшая длина серии.
	LongestCount int `json:"longest_count"`

	// FreezeCount - запас заморозок.
	FreezeCount int `json:"freeze_count"`

	// IsActive - жива ли серия.
	IsActive bool `json:"is_active"`

	// LastActivity - время последней засчитанной активности.
	LastActivity time.Time `json:"last_activity"`

	// NextMilestoneDays - следующий рубеж в днях (0, если все пройдены).
	NextMilestoneDays int `json:"next_milestone_days,omitempty"`

	// NextMilestoneXP - награда следующего рубежа.
	NextMilestoneXP int `json:"next_milestone_xp,omitempty"`

	// DaysToMilestone - дней до следующего рубежа.
	DaysToMilestone int `json:"days_to_milestone,omitempty"`
}

// GetStreaksResult содержит результат запроса серий.
type GetStreaksResult struct {
	// Streaks - серии пользователя.
	Streaks []StreakDTO `json:"streaks"`

	// TotalActive - количество активных серий.
	TotalActive int `json:"total_active"`

	// LongestOverall - лучшая серия среди всех типов.
	LongestOverall int `json:"longest_overall"`

	// AverageCurrent - средняя длина активных серий.
	AverageCurrent float64 `json:"average_current"`
}

// GetStreaksHandler обрабатывает запросы серий.
type GetStreaksHandler struct {
	streakRepo streak.Repository
}

// NewGetStreaksHandler создаёт новый обработчик запроса серий.
func NewGetStreaksHandler(streakRepo streak.Repository) *GetStreaksHandler {
	return &GetStreaksHandler{streakRepo: streakRepo}
}

// Handle выполняет запрос серий.
func (h *GetStreaksHandler) Handle(ctx context.Context, query GetStreaksQuery) (*GetStreaksResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetStreaks", shared.ErrValidation, err.Error(), err)
	}

	streaks, err := h.streakRepo.ListByUser(ctx, query.UserID)
	if err != nil {
		return nil, err
	}

	result := &GetStreaksResult{
		Streaks: make([]StreakDTO, 0, len(streaks)),
	}

	var activeSum int
	for _, s := range streaks {
		dto := StreakDTO{
			Type:         s.Type.String(),
			CurrentCount: s.CurrentCount,
			LongestCount: s.LongestCount,
			FreezeCount:  s.FreezeCount,
			IsActive:     s.IsActive,
			LastActivity: s.LastActivity,
		}
		if next := streak.NextMilestoneFor(s.Type, s.CurrentCount); next != nil {
			dto.NextMilestoneDays = next.Milestone.Days
			dto.NextMilestoneXP = next.Milestone.XPReward
			dto.DaysToMilestone = next.DaysRemaining
		}
		result.Streaks = append(result.Streaks, dto)

		if s.IsActive {
			result.TotalActive++
			activeSum += s.CurrentCount
		}
		if s.LongestCount > result.LongestOverall {
			result.LongestOverall = s.LongestCount
		}
	}

	if result.TotalActive > 0 {
		result.AverageCurrent = float64(activeSum) / float64(result.TotalActive)
	}

	return result, nil
}
