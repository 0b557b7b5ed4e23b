package query

import (
	"context"
	"errors"
	"time"

	"github.com/kanaquest/progress-engine/internal/domain/leaderboard"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Получает страницу лидерборда за период. Страницы читаются сквозь кэш:
// кэш сбрасывается целиком после каждого пересчёта периода.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery содержит параметры запроса лидерборда.
type GetLeaderboardQuery struct {
	// Period - период лидерборда (DAILY, WEEKLY, MONTHLY, ALL_TIME).
	Period string

	// Limit - количество записей (по умолчанию 20, максимум 100).
	Limit int

	// Offset - смещение для пагинации.
	Offset int
}

// Validate проверяет корректность параметров запроса.
func (q *GetLeaderboardQuery) Validate() error {
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		return errors.New("offset cannot be negative")
	}
	return nil
}

// LeaderboardEntryDTO - DTO записи лидерборда.
type LeaderboardEntryDTO struct {
	// Rank - позиция (плотное ранжирование: равные счёты делят ранг).
	Rank int `json:"rank"`

	// UserID - идентификатор пользователя.
	UserID string `json:"user_id"`

	// Score - композитный счёт.
	Score int `json:"score"`

	// PeriodXP - XP, заработанный в окне периода.
	PeriodXP int `json:"period_xp"`

	// Level - текущий уровень пользователя.
	Level int `json:"level"`

	// StreakCount - текущая серия DAILY_PRACTICE.
	StreakCount int `json:"streak_count"`

	// MasteredCount - символов, освоенных в окне.
	MasteredCount int `json:"mastered_count"`

	// AverageAccuracy - средняя точность в окне.
	AverageAccuracy float64 `json:"average_accuracy"`

	// CalculatedAt - время расчёта.
	CalculatedAt time.Time `json:"calculated_at"`
}

// GetLeaderboardResult содержит результат запроса лидерборда.
type GetLeaderboardResult struct {
	// Period - запрошенный период.
	Period string `json:"period"`

	// Entries - страница записей.
	Entries []LeaderboardEntryDTO `json:"entries"`

	// TotalCount - всего участников периода.
	TotalCount int `json:"total_count"`

	// HasMore - есть ли ещё записи после текущей страницы.
	HasMore bool `json:"has_more"`

	// Page - текущая страница (1-based).
	Page int `json:"page"`

	// PageSize - размер страницы.
	PageSize int `json:"page_size"`
}

// GetLeaderboardHandler обрабатывает запросы лидерборда.
type GetLeaderboardHandler struct {
	boardRepo  leaderboard.Repository
	boardCache leaderboard.Cache
}

// NewGetLeaderboardHandler создаёт новый обработчик запроса лидерборда.
func NewGetLeaderboardHandler(
	boardRepo leaderboard.Repository,
	boardCache leaderboard.Cache,
) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{
		boardRepo:  boardRepo,
		boardCache: boardCache,
	}
}

// Handle выполняет запрос лидерборда.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, query GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrValidation, err.Error(), err)
	}

	period, err := leaderboard.ParsePeriod(query.Period)
	if err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrValidation, "unknown period", err)
	}

	entries, fromCache := h.tryGetPage(ctx, period, query.Limit, query.Offset)
	if entries == nil {
		entries, err = h.boardRepo.ListEntries(ctx, period, query.Limit, query.Offset)
		if err != nil {
			return nil, err
		}
	}

	totalCount, err := h.boardRepo.CountEntries(ctx, period)
	if err != nil {
		totalCount = len(entries)
	}

	if !fromCache && h.boardCache != nil {
		_ = h.boardCache.SetPage(ctx, period, query.Limit, query.Offset, entries)
	}

	dtos := make([]LeaderboardEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = LeaderboardEntryDTO{
			Rank:            e.Rank,
			UserID:          e.UserID,
			Score:           e.Score,
			PeriodXP:        e.Metadata.PeriodXP,
			Level:           e.Metadata.CurrentLevel,
			StreakCount:     e.Metadata.StreakCount,
			MasteredCount:   e.Metadata.MasteredCount,
			AverageAccuracy: e.Metadata.AverageAccuracy,
			CalculatedAt:    e.CalculatedAt,
		}
	}

	return &GetLeaderboardResult{
		Period:     period.String(),
		Entries:    dtos,
		TotalCount: totalCount,
		HasMore:    query.Offset+len(entries) < totalCount,
		Page:       (query.Offset / query.Limit) + 1,
		PageSize:   query.Limit,
	}, nil
}

// tryGetPage пытается получить страницу из кэша.
func (h *GetLeaderboardHandler) tryGetPage(ctx context.Context, period leaderboard.Period, limit, offset int) ([]*leaderboard.Entry, bool) {
	if h.boardCache == nil {
		return nil, false
	}
	entries, err := h.boardCache.GetPage(ctx, period, limit, offset)
	if err != nil {
		return nil, false
	}
	return entries, true
}
