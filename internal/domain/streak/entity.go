// Package streak содержит доменную модель серий активности:
// машину состояний продления/заморозки/разрыва и таблицы рубежей.
package streak

import (
	"time"

	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK TYPE
// ══════════════════════════════════════════════════════════════════════════════

// Type определяет тип серии активности.
type Type string

const (
	// TypeDailyLogin - серия ежедневных входов.
	TypeDailyLogin Type = "DAILY_LOGIN"

	// TypeDailyPractice - серия ежедневной практики.
	TypeDailyPractice Type = "DAILY_PRACTICE"

	// TypePerfectScore - серия идеальных результатов.
	TypePerfectScore Type = "PERFECT_SCORE"

	// TypeWeeklyStudy - серия недельных учебных целей.
	TypeWeeklyStudy Type = "WEEKLY_STUDY"

	// TypeMonthlyGoal - серия месячных целей.
	TypeMonthlyGoal Type = "MONTHLY_GOAL"
)

// IsValid проверяет корректность типа серии.
func (t Type) IsValid() bool {
	switch t {
	case TypeDailyLogin, TypeDailyPractice, TypePerfectScore, TypeWeeklyStudy, TypeMonthlyGoal:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление.
func (t Type) String() string {
	return string(t)
}

// AllTypes возвращает все типы серий.
func AllTypes() []Type {
	return []Type{TypeDailyLogin, TypeDailyPractice, TypePerfectScore, TypeWeeklyStudy, TypeMonthlyGoal}
}

// ══════════════════════════════════════════════════════════════════════════════
// STREAK AGGREGATE
// ══════════════════════════════════════════════════════════════════════════════

// Streak - серия активности, уникальна по (UserID, Type).
// Инвариант: CurrentCount == 0 тогда и только тогда, когда IsActive == false.
type Streak struct {
	// ID - идентификатор записи (UUID).
	ID string

	// UserID - идентификатор пользователя.
	UserID string

	// Type - тип серии.
	Type Type

	// CurrentCount - текущая длина серии в днях.
	CurrentCount int

	// LongestCount - лучшая длина серии за всё время.
	LongestCount int

	// LastActivity - время последней засчитанной активности.
	LastActivity time.Time

	// FreezeCount - запас заморозок (ограничен настройкой).
	FreezeCount int

	// IsActive - серия жива.
	IsActive bool

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// NewStreak создаёт серию при первой засчитанной активности данного типа.
func NewStreak(id, userID string, streakType Type, activity time.Time) *Streak {
	return &Streak{
		ID:           id,
		UserID:       userID,
		Type:         streakType,
		CurrentCount: 1,
		LongestCount: 1,
		LastActivity: activity,
		FreezeCount:  0,
		IsActive:     true,
		CreatedAt:    activity,
		UpdatedAt:    activity,
	}
}

// AdvanceResult описывает, что произошло с серией при продвижении.
type AdvanceResult struct {
	// DaysGap - календарных дней с прошлой активности.
	DaysGap int

	// Extended - серия продлена на день.
	Extended bool

	// Protected - серия сохранена за счёт заморозок.
	Protected bool

	// FreezesConsumed - потрачено заморозок.
	FreezesConsumed int

	// Broken - серия разорвана и начата заново.
	Broken bool

	// PreviousCount - длина серии до разрыва (если Broken).
	PreviousCount int

	// Milestone - достигнутый рубеж (nil, если рубеж не достигнут).
	Milestone *Milestone
}

// Advance продвигает серию по активности в момент activity.
// Повторная активность в тот же день идемпотентна. Разрыв возможен только
// когда разрыв в днях превышает запас заморозок плюс один.
func (s *Streak) Advance(activity time.Time) AdvanceResult {
	days := timeutil.DaysBetween(s.LastActivity, activity)
	result := AdvanceResult{DaysGap: days}

	switch {
	case days <= 0:
		// Тот же день (или перестановка часов назад): без изменений.

	case days == 1:
		s.CurrentCount++
		if s.CurrentCount > s.LongestCount {
			s.LongestCount = s.CurrentCount
		}
		result.Extended = true
		if m, ok := MilestoneFor(s.Type, s.CurrentCount); ok {
			result.Milestone = &m
		}

	case days <= s.FreezeCount+1:
		consumed := days - 1
		s.FreezeCount -= consumed
		if s.FreezeCount < 0 {
			s.FreezeCount = 0
		}
		result.Protected = true
		result.FreezesConsumed = consumed

	default:
		result.Broken = true
		result.PreviousCount = s.CurrentCount
		s.CurrentCount = 1
	}

	s.LastActivity = activity
	s.IsActive = s.CurrentCount > 0
	s.UpdatedAt = activity
	return result
}

// Freeze добавляет одну заморозку. Возвращает shared.ErrFreezeLimitReached,
// если запас уже на пределе.
func (s *Streak) Freeze(limit int) error {
	if s.FreezeCount >= limit {
		return shared.ErrFreezeLimitReached
	}
	s.FreezeCount++
	return nil
}

// IsExpired проверяет, просрочена ли активная серия на момент now:
// разрыв в днях превышает запас заморозок плюс один.
func (s *Streak) IsExpired(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	days := timeutil.DaysBetween(s.LastActivity, now)
	return days > 1 && days > s.FreezeCount+1
}

// Expire гасит просроченную серию: длина обнуляется, серия неактивна.
func (s *Streak) Expire(now time.Time) {
	s.CurrentCount = 0
	s.IsActive = false
	s.UpdatedAt = now
}

// ══════════════════════════════════════════════════════════════════════════════
// SUMMARY
// ══════════════════════════════════════════════════════════════════════════════

// Summary - сводка серий пользователя по всем типам.
type Summary struct {
	// TotalActive - количество активных серий.
	TotalActive int

	// LongestOverall - лучшая серия среди всех типов.
	LongestOverall int

	// AverageCurrent - средняя длина активных серий.
	AverageCurrent float64

	// ByType - разбивка по типам.
	ByType map[Type]TypeSummary
}

// TypeSummary - сводка одной серии.
type TypeSummary struct {
	// Current - текущая длина.
	Current int

	// Longest - лучшая длина.
	Longest int

	// FreezeCount - запас заморозок.
	FreezeCount int

	// NextMilestone - следующий рубеж (nil, если все пройдены).
	NextMilestone *NextMilestone
}
