package query

import (
	"context"
	"errors"

	"github.com/kanaquest/progress-engine/internal/domain/mastery"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET WEAK AREAS QUERY
// Получает символы, требующие внимания: низкая точность или уровень
// LEARNING, худшие - первыми.
// ══════════════════════════════════════════════════════════════════════════════

// GetWeakAreasQuery содержит параметры запроса слабых мест.
type GetWeakAreasQuery struct {
	// UserID - идентификатор пользователя.
	UserID string

	// Limit - количество записей (по умолчанию 10, максимум 50).
	Limit int
}

// Validate проверяет корректность параметров запроса.
func (q *GetWeakAreasQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user_id is required")
	}
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if q.Limit > 50 {
		q.Limit = 50
	}
	if q.Limit == 0 {
		q.Limit = 10
	}
	return nil
}

// WeakAreaDTO - DTO одного слабого символа.
type WeakAreaDTO struct {
	// CharacterID - идентификатор символа.
	CharacterID string `json:"character_id"`

	// CharacterType - тип символа.
	CharacterType string `json:"character_type"`

	// MasteryLevel - текущий уровень владения.
	MasteryLevel string `json:"mastery_level"`

	// AccuracyScore - накопленная точность.
	AccuracyScore float64 `json:"accuracy_score"`

	// StrokeOrderScore - накопленная оценка порядка черт.
	StrokeOrderScore float64 `json:"stroke_order_score"`

	// PracticeCount - количество попыток практики.
	PracticeCount int `json:"practice_count"`
}

// GetWeakAreasResult содержит результат запроса слабых мест.
type GetWeakAreasResult struct {
	// Areas - слабые символы.
	Areas []WeakAreaDTO `json:"areas"`

	// Count - количество найденных символов.
	Count int `json:"count"`
}

// GetWeakAreasHandler обрабатывает запросы слабых мест.
type GetWeakAreasHandler struct {
	masteryRepo mastery.Repository
}

// NewGetWeakAreasHandler создаёт новый обработчик слабых мест.
func NewGetWeakAreasHandler(masteryRepo mastery.Repository) *GetWeakAreasHandler {
	return &GetWeakAreasHandler{masteryRepo: masteryRepo}
}

// Handle выполняет запрос слабых мест.
func (h *GetWeakAreasHandler) Handle(ctx context.Context, query GetWeakAreasQuery) (*GetWeakAreasResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetWeakAreas", shared.ErrValidation, err.Error(), err)
	}

	weak, err := h.masteryRepo.ListWeakAreas(ctx, query.UserID, query.Limit)
	if err != nil {
		return nil, err
	}

	areas := make([]WeakAreaDTO, len(weak))
	for i, m := range weak {
		areas[i] = WeakAreaDTO{
			CharacterID:      m.CharacterID,
			CharacterType:    m.CharacterType.String(),
			MasteryLevel:     m.MasteryLevel.String(),
			AccuracyScore:    m.AccuracyScore,
			StrokeOrderScore: m.StrokeOrderScore,
			PracticeCount:    m.PracticeCount,
		}
	}

	return &GetWeakAreasResult{Areas: areas, Count: len(areas)}, nil
}
