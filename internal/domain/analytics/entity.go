// Package analytics содержит производную модель обучающей аналитики:
// дневные агрегаты активности и вычисляемые инсайты. Пакет только читает
// состояние остальных доменов и не имеет собственных инвариантов,
// кроме защиты от деления на пустые окна.
package analytics

import (
	"time"

	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER ANALYTICS (Daily Row)
// ══════════════════════════════════════════════════════════════════════════════

// UserAnalytics - дневной агрегат активности пользователя.
// Уникален по (UserID, Date), обновляется upsert-ом.
type UserAnalytics struct {
	// ID - уникальный идентификатор строки.
	ID string

	// UserID - идентификатор пользователя.
	UserID string

	// Date - день агрегата (полночь UTC).
	Date time.Time

	// StudyTimeMinutes - минуты практики за день.
	StudyTimeMinutes int

	// CharactersPracticed - количество практик символов за день.
	CharactersPracticed int

	// AccuracyAverage - средняя точность за день [0, 100].
	AccuracyAverage float64

	// XPEarned - XP, заработанный за день.
	XPEarned int

	// AchievementsUnlocked - достижений, разблокированных за день.
	AchievementsUnlocked int

	// StreakMaintained - была ли продлена серия в этот день.
	StreakMaintained bool

	// CreatedAt - время создания строки.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// NewUserAnalytics создаёт пустую строку за день момента now.
func NewUserAnalytics(id, userID string, now time.Time) *UserAnalytics {
	return &UserAnalytics{
		ID:        id,
		UserID:    userID,
		Date:      timeutil.StartOfDay(now),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Accumulate добавляет результат одной практики в дневной агрегат.
// Точность усредняется с весом по количеству практик.
func (a *UserAnalytics) Accumulate(studyMinutes int, accuracy float64, xpEarned int, now time.Time) {
	oldCount := a.CharactersPracticed

	a.AccuracyAverage = (a.AccuracyAverage*float64(oldCount) + accuracy) / float64(oldCount+1)
	a.CharactersPracticed = oldCount + 1
	a.StudyTimeMinutes += studyMinutes
	a.XPEarned += xpEarned
	a.UpdatedAt = now
}

// AddXP добавляет XP в дневной агрегат без записи практики.
func (a *UserAnalytics) AddXP(xpEarned int, now time.Time) {
	a.XPEarned += xpEarned
	a.UpdatedAt = now
}

// MarkStreakMaintained отмечает продление серии за день.
func (a *UserAnalytics) MarkStreakMaintained(now time.Time) {
	a.StreakMaintained = true
	a.UpdatedAt = now
}

// MarkAchievementUnlocked увеличивает счётчик достижений за день.
func (a *UserAnalytics) MarkAchievementUnlocked(now time.Time) {
	a.AchievementsUnlocked++
	a.UpdatedAt = now
}

// ══════════════════════════════════════════════════════════════════════════════
// WINDOW
// ══════════════════════════════════════════════════════════════════════════════

// Window - окно запроса аналитики.
type Window struct {
	// Label - исходная метка окна ("7d", "30d", "90d", "1y").
	Label string

	// Days - длина окна в днях.
	Days int
}

// Предопределённые окна запросов.
var (
	Window7d  = Window{Label: "7d", Days: 7}
	Window30d = Window{Label: "30d", Days: 30}
	Window90d = Window{Label: "90d", Days: 90}
	Window1y  = Window{Label: "1y", Days: 365}
)

// ParseWindow разбирает окно из строки запроса.
// Неизвестная или пустая метка трактуется как 30 дней.
func ParseWindow(s string) Window {
	switch s {
	case "7d":
		return Window7d
	case "90d":
		return Window90d
	case "1y":
		return Window1y
	default:
		return Window30d
	}
}

// Range возвращает границы окна [From, To] для момента now.
func (w Window) Range(now time.Time) (time.Time, time.Time) {
	return now.AddDate(0, 0, -w.Days), now
}

// ══════════════════════════════════════════════════════════════════════════════
// STATISTICS
// ══════════════════════════════════════════════════════════════════════════════

// Statistics - агрегированная статистика пользователя за всё время.
type Statistics struct {
	// TotalDays - всего дней с активностью.
	TotalDays int

	// AverageStudyTime - среднее время практики в минутах за день.
	AverageStudyTime float64

	// AverageAccuracy - средняя точность за всё время.
	AverageAccuracy float64

	// TotalXP - суммарный XP по дневным агрегатам.
	TotalXP int
}
