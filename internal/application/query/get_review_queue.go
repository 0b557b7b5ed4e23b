package query

import (
	"context"
	"errors"
	"time"

	"github.com/kanaquest/progress-engine/internal/domain/mastery"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET REVIEW QUEUE QUERY
// Получает очередь интервального повторения: символы с наступившей датой
// повторения, самые просроченные и самые слабые - первыми.
// ══════════════════════════════════════════════════════════════════════════════

// GetReviewQueueQuery содержит параметры запроса очереди повторения.
type GetReviewQueueQuery struct {
	// UserID - идентификатор пользователя.
	UserID string

	// Limit - количество записей (по умолчанию 20, максимум 100).
	Limit int
}

// Validate проверяет корректность параметров запроса.
func (q *GetReviewQueueQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user_id is required")
	}
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
	return nil
}

// ReviewItemDTO - DTO одного символа в очереди повторения.
type ReviewItemDTO struct {
	// CharacterID - идентификатор символа.
	CharacterID string `json:"character_id"`

	// CharacterType - тип символа.
	CharacterType string `json:"character_type"`

	// MasteryLevel - текущий уровень владения.
	MasteryLevel string `json:"mastery_level"`

	// AccuracyScore - накопленная точность.
	AccuracyScore float64 `json:"accuracy_score"`

	// NextReviewDate - плановая дата повторения.
	NextReviewDate time.Time `json:"next_review_date"`

	// OverdueDays - на сколько дней повторение просрочено.
	OverdueDays int `json:"overdue_days"`
}

// GetReviewQueueResult содержит результат запроса очереди повторения.
type GetReviewQueueResult struct {
	// Items - очередь повторения.
	Items []ReviewItemDTO `json:"items"`

	// Count - количество символов в очереди.
	Count int `json:"count"`
}

// GetReviewQueueHandler обрабатывает запросы очереди повторения.
type GetReviewQueueHandler struct {
	masteryRepo mastery.Repository
	clock       timeutil.Clock
}

// NewGetReviewQueueHandler создаёт новый обработчик очереди повторения.
func NewGetReviewQueueHandler(masteryRepo mastery.Repository, clock timeutil.Clock) *GetReviewQueueHandler {
	return &GetReviewQueueHandler{masteryRepo: masteryRepo, clock: clock}
}

// Handle выполняет запрос очереди повторения.
func (h *GetReviewQueueHandler) Handle(ctx context.Context, query GetReviewQueueQuery) (*GetReviewQueueResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetReviewQueue", shared.ErrValidation, err.Error(), err)
	}

	now := h.clock.Now()
	due, err := h.masteryRepo.ListDueForReview(ctx, query.UserID, now, query.Limit)
	if err != nil {
		return nil, err
	}

	items := make([]ReviewItemDTO, len(due))
	for i, m := range due {
		items[i] = ReviewItemDTO{
			CharacterID:    m.CharacterID,
			CharacterType:  m.CharacterType.String(),
			MasteryLevel:   m.MasteryLevel.String(),
			AccuracyScore:  m.AccuracyScore,
			NextReviewDate: m.NextReviewDate,
			OverdueDays:    timeutil.DaysBetween(m.NextReviewDate, now),
		}
	}

	return &GetReviewQueueResult{Items: items, Count: len(items)}, nil
}
