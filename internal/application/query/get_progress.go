// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"errors"
	"time"

	"github.com/kanaquest/progress-engine/internal/domain/progress"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// Получает снимок прогресса пользователя: XP, уровень, серия.
// Горячий путь - читает сквозь кэш (cache-aside).
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery содержит параметры запроса прогресса.
type GetProgressQuery struct {
	// UserID - идентификатор пользователя.
	UserID string
}

// Validate проверяет корректность параметров запроса.
func (q *GetProgressQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user_id is required")
	}
	return nil
}

// ProgressDTO - DTO снимка прогресса.
type ProgressDTO struct {
	// UserID - идентификатор пользователя.
	UserID string `json:"user_id"`

	// TotalXP - суммарный XP за всё время.
	TotalXP int `json:"total_xp"`

	// CurrentXP - XP внутри текущего уровня.
	CurrentXP int `json:"current_xp"`

	// CurrentLevel - текущий уровень.
	CurrentLevel int `json:"current_level"`

	// LevelName - название полосы уровня.
	LevelName string `json:"level_name"`

	// XPToNextLevel - XP до следующего уровня.
	XPToNextLevel int `json:"xp_to_next_level"`

	// LevelProgress - доля пройденного уровня [0, 1].
	LevelProgress float64 `json:"level_progress"`

	// StreakCount - текущая серия DAILY_PRACTICE.
	StreakCount int `json:"streak_count"`

	// LongestStreak - лучшая серия за всё время.
	LongestStreak int `json:"longest_streak"`

	// LastActivityDate - время последней активности.
	LastActivityDate time.Time `json:"last_activity_date"`
}

// GetProgressResult содержит результат запроса прогресса.
type GetProgressResult struct {
	// Progress - снимок прогресса.
	Progress ProgressDTO `json:"progress"`

	// FromCache - получен ли снимок из кэша.
	FromCache bool `json:"-"`
}

// GetProgressHandler обрабатывает запросы прогресса.
type GetProgressHandler struct {
	progressRepo  progress.Repository
	progressCache progress.Cache
}

// NewGetProgressHandler создаёт новый обработчик запроса прогресса.
func NewGetProgressHandler(
	progressRepo progress.Repository,
	progressCache progress.Cache,
) *GetProgressHandler {
	return &GetProgressHandler{
		progressRepo:  progressRepo,
		progressCache: progressCache,
	}
}

// Handle выполняет запрос прогресса.
func (h *GetProgressHandler) Handle(ctx context.Context, query GetProgressQuery) (*GetProgressResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetProgress", shared.ErrValidation, err.Error(), err)
	}

	if h.progressCache != nil {
		if cached, err := h.progressCache.GetProgress(ctx, query.UserID); err == nil {
			return &GetProgressResult{Progress: toProgressDTO(cached), FromCache: true}, nil
		}
	}

	prog, err := h.progressRepo.GetProgress(ctx, query.UserID)
	if err != nil {
		return nil, err
	}

	if h.progressCache != nil {
		// Промах кэша не критичен, ошибку записи тоже игнорируем
		_ = h.progressCache.SetProgress(ctx, prog)
	}

	return &GetProgressResult{Progress: toProgressDTO(prog)}, nil
}

// toProgressDTO конвертирует доменную сущность в DTO.
func toProgressDTO(p *progress.UserProgress) ProgressDTO {
	dto := ProgressDTO{
		UserID:           p.UserID,
		TotalXP:          p.TotalXP,
		CurrentXP:        p.CurrentXP,
		CurrentLevel:     p.CurrentLevel,
		LevelName:        p.LevelName,
		XPToNextLevel:    p.XPToNextLevel,
		StreakCount:      p.StreakCount,
		LongestStreak:    p.LongestStreak,
		LastActivityDate: p.LastActivityDate,
	}
	if span := p.CurrentXP + p.XPToNextLevel; span > 0 {
		dto.LevelProgress = float64(p.CurrentXP) / float64(span)
	}
	return dto
}
