package query

import (
	"context"
	"errors"
	"time"

	"github.com/kanaquest/progress-engine/internal/domain/progress"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET XP HISTORY QUERY
// Получает журнал транзакций XP пользователя с фильтрацией по источнику
// и окну времени. Журнал неизменяем - ответ сортирован от новых к старым.
// ══════════════════════════════════════════════════════════════════════════════

// GetXPHistoryQuery содержит параметры запроса журнала XP.
type GetXPHistoryQuery struct {
	// UserID - идентификатор пользователя.
	UserID string

	// Source - фильтр по источнику (пустая строка = все источники).
	Source string

	// From - начало окна (нулевое время = без ограничения).
	From time.Time

	// To - конец окна (нулевое время = без ограничения).
	To time.Time

	// Limit - количество записей (по умолчанию 20, максимум 100).
	Limit int

	// Offset - смещение для пагинации.
	Offset int
}

// Validate проверяет корректность параметров запроса.
func (q *GetXPHistoryQuery) Validate() error {
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
	if q.Offset < 0 {
		return errors.New("offset cannot be negative")
	}
	if q.Source != "" && !progress.XPSource(q.Source).IsValid() {
		return shared.ErrInvalidXPSource
	}
	return nil
}

// XPTransactionDTO - DTO одной транзакции XP.
type XPTransactionDTO struct {
	// ID - идентификатор транзакции.
	ID string `json:"id"`

	// Amount - начисленный XP.
	Amount int `json:"amount"`

	// Source - источник начисления.
	Source string `json:"source"`

	// Description - человекочитаемое описание.
	Description string `json:"description"`

	// CreatedAt - время начисления.
	CreatedAt time.Time `json:"created_at"`
}

// GetXPHistoryResult содержит результат запроса журнала XP.
type GetXPHistoryResult struct {
	// Transactions - страница транзакций.
	Transactions []XPTransactionDTO `json:"transactions"`

	// HasMore - есть ли ещё записи после текущей страницы.
	HasMore bool `json:"has_more"`

	// Page - текущая страница (1-based).
	Page int `json:"page"`

	// PageSize - размер страницы.
	PageSize int `json:"page_size"`
}

// GetXPHistoryHandler обрабатывает запросы журнала XP.
type GetXPHistoryHandler struct {
	progressRepo progress.Repository
}

// NewGetXPHistoryHandler создаёт новый обработчик запроса журнала.
func NewGetXPHistoryHandler(progressRepo progress.Repository) *GetXPHistoryHandler {
	return &GetXPHistoryHandler{progressRepo: progressRepo}
}

// Handle выполняет запрос журнала XP.
func (h *GetXPHistoryHandler) Handle(ctx context.Context, query GetXPHistoryQuery) (*GetXPHistoryResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetXPHistory", shared.ErrValidation, err.Error(), err)
	}

	filter := progress.TransactionFilter{
		From: query.From,
		To:   query.To,
		// Одна лишняя запись, чтобы понять, есть ли следующая страница
		Limit:  query.Limit + 1,
		Offset: query.Offset,
	}
	if query.Source != "" {
		source := progress.XPSource(query.Source)
		filter.Source = &source
	}

	transactions, err := h.progressRepo.ListTransactions(ctx, query.UserID, filter)
	if err != nil {
		return nil, err
	}

	hasMore := len(transactions) > query.Limit
	if hasMore {
		transactions = transactions[:query.Limit]
	}

	dtos := make([]XPTransactionDTO, len(transactions))
	for i, tx := range transactions {
		dtos[i] = XPTransactionDTO{
			ID:          tx.ID,
			Amount:      tx.Amount,
			Source:      tx.Source.String(),
			Description: tx.Description,
			CreatedAt:   tx.CreatedAt,
		}
	}

	return &GetXPHistoryResult{
		Transactions: dtos,
		HasMore:      hasMore,
		Page:         (query.Offset / query.Limit) + 1,
		PageSize:     query.Limit,
	}, nil
}
