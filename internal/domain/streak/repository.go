package streak

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет персистентность серий активности.
type Repository interface {
	// GetStreak возвращает серию по (userID, type).
	// Возвращает shared.ErrStreakNotFound, если записи нет.
	GetStreak(ctx context.Context, userID string, streakType Type) (*Streak, error)

	// ListByUser возвращает все серии пользователя.
	ListByUser(ctx context.Context, userID string) ([]*Streak, error)

	// CreateStreak создаёт новую серию.
	CreateStreak(ctx context.Context, s *Streak) error

	// UpdateStreak сохраняет изменённую серию.
	UpdateStreak(ctx context.Context, s *Streak) error

	// DeleteStreak удаляет серию (административный сброс).
	DeleteStreak(ctx context.Context, userID string, streakType Type) error

	// ListActive возвращает все активные серии постранично.
	// Используется ежедневной уборкой просроченных серий.
	ListActive(ctx context.Context, limit, offset int) ([]*Streak, error)
}
