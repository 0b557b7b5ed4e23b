package mastery

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет персистентность владения символами и журнала сессий.
type Repository interface {
	// ─── Mastery rows ───────────────────────────────────────────────────────

	// GetMastery возвращает запись владения по (userID, characterID).
	// Возвращает shared.ErrMasteryNotFound, если записи нет.
	GetMastery(ctx context.Context, userID, characterID string) (*CharacterMastery, error)

	// ListByUser возвращает все записи владения пользователя.
	ListByUser(ctx context.Context, userID string) ([]*CharacterMastery, error)

	// SavePracticeResult атомарно сохраняет обновлённую (или новую) запись
	// владения вместе с записью сессии. Обе записи в одной транзакции:
	// ни сессий-сирот, ни незажурналированных обновлений.
	SavePracticeResult(ctx context.Context, m *CharacterMastery, session *PracticeSession, created bool) error

	// ─── Review scheduling ──────────────────────────────────────────────────

	// ListDueForReview возвращает записи с NextReviewDate <= now,
	// отсортированные по (NextReviewDate asc, AccuracyScore asc).
	ListDueForReview(ctx context.Context, userID string, now time.Time, limit int) ([]*CharacterMastery, error)

	// ListWeakAreas возвращает записи с AccuracyScore < 70 или уровнем
	// LEARNING, отсортированные по (AccuracyScore asc, PracticeCount desc).
	ListWeakAreas(ctx context.Context, userID string, limit int) ([]*CharacterMastery, error)

	// ─── Statistics ─────────────────────────────────────────────────────────

	// GetStats возвращает сводную статистику владения пользователя.
	GetStats(ctx context.Context, userID string, now time.Time) (*Stats, error)

	// CountMasteredInWindow возвращает число символов, достигших уровня
	// MASTERED или EXPERT, обновлённых в окне времени.
	CountMasteredInWindow(ctx context.Context, userID string, from, to time.Time) (int, error)

	// ─── Sessions ───────────────────────────────────────────────────────────

	// ListSessions возвращает сессии символа от новых к старым.
	ListSessions(ctx context.Context, userID, characterID string, limit int) ([]*PracticeSession, error)

	// ─── Admin ──────────────────────────────────────────────────────────────

	// ResetMastery атомарно удаляет запись владения вместе со всеми её
	// сессиями. Возвращает shared.ErrMasteryNotFound, если записи нет.
	ResetMastery(ctx context.Context, userID, characterID string) error
}
