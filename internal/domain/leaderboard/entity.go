// Package leaderboard содержит доменную модель лидербордов по периодам:
// композитный скоринг, плотное ранжирование и снапшоты рейтинга.
// Записи периода всегда заменяются целиком при пересчёте - частичных
// обновлений рангов не бывает.
package leaderboard

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PERIOD
// ══════════════════════════════════════════════════════════════════════════════

// Period определяет временное окно лидерборда.
type Period string

const (
	// PeriodDaily - лидерборд за сегодня.
	PeriodDaily Period = "DAILY"

	// PeriodWeekly - лидерборд с начала ISO-недели.
	PeriodWeekly Period = "WEEKLY"

	// PeriodMonthly - лидерборд с начала месяца.
	PeriodMonthly Period = "MONTHLY"

	// PeriodAllTime - лидерборд за всё время.
	PeriodAllTime Period = "ALL_TIME"
)

// IsValid проверяет корректность периода.
func (p Period) IsValid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAllTime:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление.
func (p Period) String() string {
	return string(p)
}

// AllPeriods возвращает все периоды лидерборда.
func AllPeriods() []Period {
	return []Period{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAllTime}
}

// Multiplier возвращает множитель итогового счёта периода.
func (p Period) Multiplier() float64 {
	switch p {
	case PeriodDaily:
		return 1.0
	case PeriodWeekly:
		return 1.2
	case PeriodMonthly:
		return 1.5
	case PeriodAllTime:
		return 2.0
	default:
		return 1.0
	}
}

// WindowStart возвращает начало окна периода для момента now.
// Для ALL_TIME окно не ограничено (нулевое время).
func (p Period) WindowStart(now time.Time) time.Time {
	switch p {
	case PeriodDaily:
		return timeutil.StartOfDay(now)
	case PeriodWeekly:
		return timeutil.StartOfWeek(now)
	case PeriodMonthly:
		return timeutil.StartOfMonth(now)
	case PeriodAllTime:
		return time.Time{}
	default:
		return timeutil.StartOfDay(now)
	}
}

// ParsePeriod разбирает период из строки запроса.
func ParsePeriod(s string) (Period, error) {
	p := Period(s)
	if !p.IsValid() {
		return "", ErrUnknownPeriod
	}
	return p, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SCORING
// ══════════════════════════════════════════════════════════════════════════════

// UserSnapshot - входные данные скоринга одного пользователя.
// Все величины, кроме уровня и серии, рассчитаны внутри окна периода.
type UserSnapshot struct {
	// UserID - идентификатор пользователя.
	UserID string

	// PeriodXP - XP, заработанный в окне периода.
	PeriodXP int

	// CurrentLevel - текущий уровень пользователя.
	CurrentLevel int

	// StreakCount - текущая серия DAILY_PRACTICE.
	StreakCount int

	// MasteredCount - символов, освоенных в окне (MASTERED или EXPERT).
	MasteredCount int

	// AchievementCount - достижений, разблокированных в окне.
	AchievementCount int

	// PracticeDays - различных дней с практикой в окне.
	PracticeDays int

	// AverageAccuracy - средняя точность в окне [0, 100].
	AverageAccuracy float64
}

// ScoreWeights - веса слагаемых композитного счёта.
type ScoreWeights struct {
	PeriodXP     float64
	Level        float64
	Streak       float64
	Mastered     float64
	Achievements float64
	PracticeDays float64
	Accuracy     float64
}

// DefaultScoreWeights возвращает веса по умолчанию.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		PeriodXP:     1.0,
		Level:        100,
		Streak:       50,
		Mastered:     200,
		Achievements: 150,
		PracticeDays: 25,
		Accuracy:     2.0,
	}
}

// Score рассчитывает композитный счёт снапшота для периода:
// взвешенная сумма слагаемых, умноженная на множитель периода
// и округлённая до целого.
func Score(s UserSnapshot, period Period, w ScoreWeights) int {
	sum := float64(s.PeriodXP)*w.PeriodXP +
		float64(s.CurrentLevel)*w.Level +
		float64(s.StreakCount)*w.Streak +
		float64(s.MasteredCount)*w.Mastered +
		float64(s.AchievementCount)*w.Achievements +
		float64(s.PracticeDays)*w.PracticeDays +
		s.AverageAccuracy*w.Accuracy

	return int(math.Round(sum * period.Multiplier()))
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Entry - одна запись лидерборда, уникальна по (UserID, Period).
type Entry struct {
	// UserID - идентификатор пользователя.
	UserID string

	// Period - период лидерборда.
	Period Period

	// Rank - позиция (с 1, плотное ранжирование: равные счёты делят ранг).
	Rank int

	// Score - композитный счёт.
	Score int

	// Metadata - снапшот слагаемых счёта на момент расчёта.
	Metadata UserSnapshot

	// CalculatedAt - время расчёта.
	CalculatedAt time.Time
}

// Validate проверяет корректность записи.
func (e *Entry) Validate() error {
	if e.UserID == "" {
		return ErrInvalidUserID
	}
	if !e.Period.IsValid() {
		return ErrUnknownPeriod
	}
	if e.Rank < 1 {
		return ErrInvalidRankValue
	}
	return nil
}

// String возвращает строковое представление для логирования.
func (e *Entry) String() string {
	return fmt.Sprintf("Entry{Period: %s, Rank: %d, UserID: %s, Score: %d}",
		e.Period, e.Rank, e.UserID, e.Score)
}

// ══════════════════════════════════════════════════════════════════════════════
// RANK INFO
// ══════════════════════════════════════════════════════════════════════════════

// RankInfo - позиция одного пользователя в лидерборде.
type RankInfo struct {
	// UserID - идентификатор пользователя.
	UserID string

	// Period - период лидерборда.
	Period Period

	// Rank - позиция (плотное ранжирование).
	Rank int

	// Score - композитный счёт.
	Score int

	// TotalUsers - всего участников.
	TotalUsers int

	// Percentile - процентиль: (total - rank + 1) / total * 100.
	Percentile float64
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrUnknownPeriod - неизвестный период лидерборда.
	ErrUnknownPeriod = errors.New("unknown leaderboard period")

	// ErrInvalidUserID - пустой идентификатор пользователя.
	ErrInvalidUserID = errors.New("invalid user id: cannot be empty")

	// ErrInvalidRankValue - ранг должен быть положительным.
	ErrInvalidRankValue = errors.New("invalid rank: must be positive")

	// ErrNilEntry - попытка добавить nil запись.
	ErrNilEntry = errors.New("cannot add nil entry")

	// ErrDuplicateUser - пользователь уже есть в рейтинге.
	ErrDuplicateUser = errors.New("user already exists in ranking")

	// ErrEmptyLeaderboard - лидерборд пуст.
	ErrEmptyLeaderboard = errors.New("leaderboard is empty")
)
