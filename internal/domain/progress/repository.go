package progress

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// TransactionFilter - фильтр выборки транзакций XP.
type TransactionFilter struct {
	// Source - фильтр по источнику (nil = все источники).
	Source *XPSource

	// From - начало окна (нулевое время = без ограничения).
	From time.Time

	// To - конец окна (нулевое время = без ограничения).
	To time.Time

	// Limit - максимум записей (0 = значение по умолчанию).
	Limit int

	// Offset - смещение для пагинации.
	Offset int
}

// Repository определяет персистентность прогресса и журнала XP.
type Repository interface {
	// ─── User progress ──────────────────────────────────────────────────────

	// GetProgress возвращает прогресс пользователя.
	// Возвращает shared.ErrUserNotFound, если записи нет.
	GetProgress(ctx context.Context, userID string) (*UserProgress, error)

	// CreateProgress создаёт запись прогресса для нового пользователя.
	CreateProgress(ctx context.Context, progress *UserProgress) error

	// UpdateProgress сохраняет изменённый прогресс.
	UpdateProgress(ctx context.Context, progress *UserProgress) error

	// ListUserIDs возвращает ID всех пользователей с записью прогресса.
	ListUserIDs(ctx context.Context) ([]string, error)

	// ─── XP ledger ──────────────────────────────────────────────────────────

	// ApplyAward атомарно записывает транзакцию XP и обновлённый прогресс.
	// Обе записи выполняются в одной транзакции хранилища.
	ApplyAward(ctx context.Context, progress *UserProgress, tx *XPTransaction) error

	// ListTransactions возвращает транзакции пользователя по фильтру,
	// отсортированные от новых к старым.
	ListTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]*XPTransaction, error)

	// SumTransactions возвращает сумму всех транзакций пользователя.
	// Используется для сверки журнала с TotalXP.
	SumTransactions(ctx context.Context, userID string) (int, error)

	// SumTransactionsInWindow возвращает сумму транзакций за окно времени.
	SumTransactionsInWindow(ctx context.Context, userID string, from, to time.Time) (int, error)

	// SumBySource возвращает суммарный XP по источникам за окно времени.
	SumBySource(ctx context.Context, userID string, from, to time.Time) ([]SourceTotal, error)

	// CountDistinctActivityDays возвращает число дней с хотя бы одной
	// транзакцией в окне времени.
	CountDistinctActivityDays(ctx context.Context, userID string, from, to time.Time) (int, error)

	// DeleteTransactionsBefore удаляет транзакции старше cutoff.
	// Возвращает количество удалённых записей.
	DeleteTransactionsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Cache кэширует прогресс и уровень пользователя. Кэш только
// инвалидируется при записи, никогда не обновляется на месте.
type Cache interface {
	// GetProgress возвращает закэшированный прогресс или ошибку промаха.
	GetProgress(ctx context.Context, userID string) (*UserProgress, error)

	// SetProgress кэширует прогресс пользователя.
	SetProgress(ctx context.Context, progress *UserProgress) error

	// InvalidateUser удаляет закэшированные прогресс и уровень пользователя.
	InvalidateUser(ctx context.Context, userID string) error
}
