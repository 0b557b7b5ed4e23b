package query

import (
	"context"
	"errors"

	"github.com/kanaquest/progress-engine/internal/domain/leaderboard"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER RANK QUERY
// Получает позицию одного пользователя в лидерборде за период.
// ══════════════════════════════════════════════════════════════════════════════

// GetUserRankQuery содержит параметры запроса ранга.
type GetUserRankQuery struct {
	// UserID - идентификатор пользователя.
	UserID string

	// Period - период лидерборда.
	Period string

	// NeighborRange - сколько соседей по рангу вернуть с каждой стороны
	// (0 - без соседей, максимум 10).
	NeighborRange int
}

// Validate проверяет корректность параметров запроса.
func (q *GetUserRankQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user_id is required")
	}
	if q.NeighborRange < 0 {
		return errors.New("neighbor_range cannot be negative")
	}
	if q.NeighborRange > 10 {
		q.NeighborRange = 10
	}
	return nil
}

// RankDTO - DTO позиции пользователя.
type RankDTO struct {
	// UserID - идентификатор пользователя.
	UserID string `json:"user_id"`

	// Period - период лидерборда.
	Period string `json:"period"`

	// Rank - позиция (плотное ранжирование).
	Rank int `json:"rank"`

	// Score - композитный счёт.
	Score int `json:"score"`

	// TotalUsers - всего участников.
	TotalUsers int `json:"total_users"`

	// Percentile - процентиль: (total - rank + 1) / total * 100.
	Percentile float64 `json:"percentile"`
}

// GetUserRankResult содержит результат запроса ранга.
type GetUserRankResult struct {
	// Rank - позиция пользователя.
	Rank RankDTO `json:"rank"`

	// Neighbors - записи вокруг пользователя (включая его самого),
	// заполняется только при NeighborRange > 0.
	Neighbors []LeaderboardEntryDTO `json:"neighbors,omitempty"`
}

// GetUserRankHandler обрабатывает запросы ранга.
type GetUserRankHandler struct {
	boardRepo  leaderboard.Repository
	boardCache leaderboard.Cache
}

// NewGetUserRankHandler создаёт новый обработчик запроса ранга.
func NewGetUserRankHandler(
	boardRepo leaderboard.Repository,
	boardCache leaderboard.Cache,
) *GetUserRankHandler {
	return &GetUserRankHandler{
		boardRepo:  boardRepo,
		boardCache: boardCache,
	}
}

// Handle выполняет запрос ранга.
func (h *GetUserRankHandler) Handle(ctx context.Context, query GetUserRankQuery) (*GetUserRankResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetUserRank", shared.ErrValidation, err.Error(), err)
	}

	period, err := leaderboard.ParsePeriod(query.Period)
	if err != nil {
		return nil, shared.WrapError("query", "GetUserRank", shared.ErrValidation, "unknown period", err)
	}

	// Соседи требуют полного лидерборда, кэш одиночного ранга не подходит
	if query.NeighborRange > 0 {
		return h.handleWithNeighbors(ctx, query.UserID, period, query.NeighborRange)
	}

	if h.boardCache != nil {
		if info, err := h.boardCache.GetRank(ctx, query.UserID, period); err == nil {
			return &GetUserRankResult{Rank: toRankDTO(info)}, nil
		}
	}

	entry, err := h.boardRepo.GetEntry(ctx, query.UserID, period)
	if err != nil {
		return nil, err
	}

	total, err := h.boardRepo.CountEntries(ctx, period)
	if err != nil {
		return nil, err
	}

	info := &leaderboard.RankInfo{
		UserID:     entry.UserID,
		Period:     period,
		Rank:       entry.Rank,
		Score:      entry.Score,
		TotalUsers: total,
	}
	if total > 0 {
		info.Percentile = float64(total-entry.Rank+1) / float64(total) * 100
	}

	if h.boardCache != nil {
		_ = h.boardCache.SetRank(ctx, info)
	}

	return &GetUserRankResult{Rank: toRankDTO(info)}, nil
}

// handleWithNeighbors собирает Board периода целиком и возвращает ранг
// вместе с окном записей вокруг пользователя.
func (h *GetUserRankHandler) handleWithNeighbors(ctx context.Context, userID string, period leaderboard.Period, rangeSize int) (*GetUserRankResult, error) {
	entries, err := h.listAllEntries(ctx, period)
	if err != nil {
		return nil, err
	}

	board := leaderboard.NewBoardFromEntries(period, entries)
	info := board.RankInfoFor(userID)
	if info == nil {
		return nil, shared.ErrRankNotFound
	}

	neighbors := board.Neighbors(userID, rangeSize)
	dtos := make([]LeaderboardEntryDTO, len(neighbors))
	for i, e := range neighbors {
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

	return &GetUserRankResult{
		Rank:      toRankDTO(info),
		Neighbors: dtos,
	}, nil
}

// listAllEntries постранично выгружает все записи периода.
func (h *GetUserRankHandler) listAllEntries(ctx context.Context, period leaderboard.Period) ([]*leaderboard.Entry, error) {
	const batchSize = 500

	var all []*leaderboard.Entry
	for offset := 0; ; offset += batchSize {
		page, err := h.boardRepo.ListEntries(ctx, period, batchSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < batchSize {
			return all, nil
		}
	}
}

// toRankDTO конвертирует доменную сущность в DTO.
func toRankDTO(info *leaderboard.RankInfo) RankDTO {
	return RankDTO{
		UserID:     info.UserID,
		Period:     info.Period.String(),
		Rank:       info.Rank,
		Score:      info.Score,
		TotalUsers: info.TotalUsers,
		Percentile: info.Percentile,
	}
}
