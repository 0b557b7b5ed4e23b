package analytics

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет персистентность дневных агрегатов.
type Repository interface {
	// GetDaily возвращает строку за день (полночь UTC).
	// Возвращает shared.ErrAnalyticsNotFound, если строки нет.
	GetDaily(ctx context.Context, userID string, date time.Time) (*UserAnalytics, error)

	// UpsertDaily вставляет или обновляет строку по (userID, date).
	UpsertDaily(ctx context.Context, row *UserAnalytics) error

	// ListRange возвращает строки окна [from, to] по возрастанию даты.
	ListRange(ctx context.Context, userID string, from, to time.Time) ([]*UserAnalytics, error)

	// GetStatistics возвращает агрегаты пользователя за всё время.
	GetStatistics(ctx context.Context, userID string) (*Statistics, error)

	// DeleteBefore удаляет строки старше cutoff и возвращает их количество.
	// Используется уборкой по сроку хранения.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
