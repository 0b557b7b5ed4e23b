package leaderboard

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет персистентность записей лидерборда.
// Реализация находится в infrastructure слое (PostgreSQL).
type Repository interface {
	// ReplaceEntries атомарно заменяет все записи периода новым списком:
	// удаление и массовая вставка в одной транзакции, частичная запись
	// никогда не видна читателям.
	ReplaceEntries(ctx context.Context, period Period, entries []*Entry) error

	// ListEntries возвращает страницу записей периода по возрастанию ранга.
	ListEntries(ctx context.Context, period Period, limit, offset int) ([]*Entry, error)

	// CountEntries возвращает количество записей периода.
	CountEntries(ctx context.Context, period Period) (int, error)

	// GetEntry возвращает запись пользователя за период.
	// Возвращает shared.ErrRankNotFound, если записи нет.
	GetEntry(ctx context.Context, userID string, period Period) (*Entry, error)
}

// Cache кэширует страницы лидерборда и ранги пользователей.
// Кэш инвалидируется целиком по периоду после пересчёта.
type Cache interface {
	// GetPage возвращает закэшированную страницу или ошибку промаха.
	GetPage(ctx context.Context, period Period, limit, offset int) ([]*Entry, error)

	// SetPage кэширует страницу лидерборда.
	SetPage(ctx context.Context, period Period, limit, offset int, entries []*Entry) error

	// GetRank возвращает закэшированный ранг пользователя.
	GetRank(ctx context.Context, userID string, period Period) (*RankInfo, error)

	// SetRank кэширует ранг пользователя.
	SetRank(ctx context.Context, info *RankInfo) error

	// InvalidatePeriod удаляет все закэшированные страницы и ранги периода.
	InvalidatePeriod(ctx context.Context, period Period) error
}
