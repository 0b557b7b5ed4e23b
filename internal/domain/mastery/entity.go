// Package mastery содержит доменную модель владения символами:
// накопительные оценки точности, уровни владения и интервальное
// повторение (spaced repetition).
package mastery

import (
	"time"

	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// CharacterType определяет тип изучаемого символа.
type CharacterType string

const (
	// TypeHiragana - хирагана.
	TypeHiragana CharacterType = "HIRAGANA"

	// TypeKatakana - катакана.
	TypeKatakana CharacterType = "KATAKANA"

	// TypeKanji - кандзи.
	TypeKanji CharacterType = "KANJI"
)

// IsValid проверяет корректность типа символа.
func (t CharacterType) IsValid() bool {
	switch t {
	case TypeHiragana, TypeKatakana, TypeKanji:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление.
func (t CharacterType) String() string {
	return string(t)
}

// AllCharacterTypes возвращает все типы символов.
func AllCharacterTypes() []CharacterType {
	return []CharacterType{TypeHiragana, TypeKatakana, TypeKanji}
}

// Level определяет уровень владения символом.
// Уровни монотонно не убывают при обычных обновлениях.
type Level string

const (
	// LevelLearning - символ в стадии изучения.
	LevelLearning Level = "LEARNING"

	// LevelPracticing - символ закрепляется практикой.
	LevelPracticing Level = "PRACTICING"

	// LevelMastered - символ освоен.
	LevelMastered Level = "MASTERED"

	// LevelExpert - символ доведён до автоматизма.
	LevelExpert Level = "EXPERT"
)

// IsValid проверяет корректность уровня.
func (l Level) IsValid() bool {
	switch l {
	case LevelLearning, LevelPracticing, LevelMastered, LevelExpert:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление.
func (l Level) String() string {
	return string(l)
}

// Rank возвращает порядковый номер уровня для сравнения.
func (l Level) Rank() int {
	switch l {
	case LevelLearning:
		return 0
	case LevelPracticing:
		return 1
	case LevelMastered:
		return 2
	case LevelExpert:
		return 3
	default:
		return -1
	}
}

// AllLevels возвращает все уровни владения от младшего к старшему.
func AllLevels() []Level {
	return []Level{LevelLearning, LevelPracticing, LevelMastered, LevelExpert}
}

// ══════════════════════════════════════════════════════════════════════════════
// PRACTICE ATTEMPT
// ══════════════════════════════════════════════════════════════════════════════

// PracticeAttempt - наблюдение одной попытки практики символа.
type PracticeAttempt struct {
	// UserID - идентификатор пользователя.
	UserID string

	// CharacterID - идентификатор символа.
	CharacterID string

	// CharacterType - тип символа.
	CharacterType CharacterType

	// Accuracy - точность попытки в процентах [0, 100].
	Accuracy float64

	// TimeSpentSeconds - затраченное время в секундах.
	TimeSpentSeconds int

	// IsPerfect - попытка без единой ошибки.
	IsPerfect bool

	// StrokesCorrect - количество правильных черт.
	StrokesCorrect int

	// StrokesTotal - общее количество черт (>0).
	StrokesTotal int
}

// Validate проверяет корректность наблюдения.
func (a PracticeAttempt) Validate() error {
	if a.UserID == "" {
		return shared.NewDomainError("mastery", "Validate", shared.ErrEmptyValue, "user ID cannot be empty")
	}
	if a.CharacterID == "" {
		return shared.NewDomainError("mastery", "Validate", shared.ErrEmptyValue, "character ID cannot be empty")
	}
	if !a.CharacterType.IsValid() {
		return shared.ErrInvalidCharacterType
	}
	if a.Accuracy < 0 || a.Accuracy > 100 {
		return shared.ErrInvalidAccuracy
	}
	if a.TimeSpentSeconds < 0 {
		return shared.NewDomainError("mastery", "Validate", shared.ErrNegativeValue, "time spent cannot be negative")
	}
	if a.StrokesTotal <= 0 || a.StrokesCorrect < 0 || a.StrokesCorrect > a.StrokesTotal {
		return shared.ErrInvalidStrokes
	}
	return nil
}

// StrokeOrderScore возвращает оценку порядка черт в процентах.
func (a PracticeAttempt) StrokeOrderScore() float64 {
	return float64(a.StrokesCorrect) / float64(a.StrokesTotal) * 100
}

// ══════════════════════════════════════════════════════════════════════════════
// CHARACTER MASTERY
// ══════════════════════════════════════════════════════════════════════════════

// CharacterMastery - агрегат владения символом, уникален по
// (UserID, CharacterID). Хранит только накопительные оценки;
// сырая история попыток лежит в PracticeSession.
type CharacterMastery struct {
	// ID - идентификатор записи (UUID).
	ID string

	// UserID - идентификатор пользователя.
	UserID string

	// CharacterID - идентификатор символа.
	CharacterID string

	// CharacterType - тип символа.
	CharacterType CharacterType

	// MasteryLevel - текущий уровень владения.
	MasteryLevel Level

	// AccuracyScore - накопительное взвешенное среднее точности [0, 100].
	AccuracyScore float64

	// PracticeCount - количество попыток практики.
	PracticeCount int

	// CorrectCount - количество идеальных попыток.
	CorrectCount int

	// TotalTimeSpent - суммарное время практики в секундах.
	TotalTimeSpent int

	// StreakCount - последовательные дни практики этого символа.
	StreakCount int

	// StrokeOrderScore - взвешенное среднее оценки порядка черт.
	StrokeOrderScore float64

	// RecognitionScore - взвешенное среднее оценки распознавания.
	RecognitionScore float64

	// LastPracticed - время последней практики.
	LastPracticed time.Time

	// NextReviewDate - расчётная дата следующего повторения (>= LastPracticed).
	NextReviewDate time.Time

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// PracticeOutcome - результат применения попытки к агрегату.
type PracticeOutcome struct {
	// Created - попытка создала новую запись владения.
	Created bool

	// Promoted - уровень владения повысился.
	Promoted bool

	// PreviousLevel - уровень до обновления.
	PreviousLevel Level

	// SessionXP - XP, заработанный за сессию (по формуле сессии).
	SessionXP int
}

// NewCharacterMastery создаёт запись владения из первой попытки.
// Первая попытка записывает сырые значения без усреднения.
func NewCharacterMastery(id string, attempt PracticeAttempt, now time.Time) *CharacterMastery {
	correct := 0
	if attempt.IsPerfect {
		correct = 1
	}

	m := &CharacterMastery{
		ID:               id,
		UserID:           attempt.UserID,
		CharacterID:      attempt.CharacterID,
		CharacterType:    attempt.CharacterType,
		MasteryLevel:     LevelLearning,
		AccuracyScore:    attempt.Accuracy,
		PracticeCount:    1,
		CorrectCount:     correct,
		TotalTimeSpent:   attempt.TimeSpentSeconds,
		StreakCount:      1,
		StrokeOrderScore: attempt.StrokeOrderScore(),
		RecognitionScore: attempt.Accuracy,
		LastPracticed:    now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	m.NextReviewDate = now.AddDate(0, 0, m.reviewIntervalDays())
	return m
}

// ApplyPractice применяет повторную попытку к существующей записи.
func (m *CharacterMastery) ApplyPractice(attempt PracticeAttempt, now time.Time) PracticeOutcome {
	outcome := PracticeOutcome{PreviousLevel: m.MasteryLevel}

	// Взвешенные средние по прежнему количеству попыток.
	oldCount := float64(m.PracticeCount)
	m.AccuracyScore = (m.AccuracyScore*oldCount + attempt.Accuracy) / (oldCount + 1)
	m.StrokeOrderScore = (m.StrokeOrderScore*oldCount + attempt.StrokeOrderScore()) / (oldCount + 1)
	m.RecognitionScore = (m.RecognitionScore*oldCount + attempt.Accuracy) / (oldCount + 1)

	m.PracticeCount++
	if attempt.IsPerfect {
		m.CorrectCount++
	}
	m.TotalTimeSpent += attempt.TimeSpentSeconds

	// Серия практики символа по календарным дням.
	switch days := timeutil.DaysBetween(m.LastPracticed, now); {
	case days == 1:
		m.StreakCount++
	case days > 1:
		m.StreakCount = 1
	}

	// Повышение уровня: порог проверяется от старшего к младшему,
	// понижение этим путём невозможно.
	if promoted := promotionFor(m.AccuracyScore, m.PracticeCount); promoted.Rank() > m.MasteryLevel.Rank() {
		m.MasteryLevel = promoted
		outcome.Promoted = true
	}

	m.LastPracticed = now
	m.NextReviewDate = now.AddDate(0, 0, m.reviewIntervalDays())
	m.UpdatedAt = now

	outcome.SessionXP = SessionXP(attempt.Accuracy, attempt.IsPerfect, attempt.TimeSpentSeconds)
	return outcome
}

// promotionFor возвращает уровень, заслуженный текущими показателями.
func promotionFor(accuracy float64, practiceCount int) Level {
	switch {
	case accuracy >= 95 && practiceCount >= 10:
		return LevelExpert
	case accuracy >= 90 && practiceCount >= 5:
		return LevelMastered
	case accuracy >= 80 && practiceCount >= 3:
		return LevelPracticing
	default:
		return LevelLearning
	}
}

// reviewIntervalDays возвращает интервал до следующего повторения в днях.
func (m *CharacterMastery) reviewIntervalDays() int {
	return ReviewIntervalDays(m.MasteryLevel, m.AccuracyScore, m.StreakCount)
}

// ReviewIntervalDays рассчитывает интервал повторения: базовый интервал
// уровня, удвоение при высокой точности, сокращение вдвое (минимум 1 день)
// при низкой, удлинение в полтора раза при длинной серии.
func ReviewIntervalDays(level Level, accuracy float64, streak int) int {
	var days int
	switch level {
	case LevelLearning:
		days = 1
	case LevelPracticing:
		days = 3
	case LevelMastered:
		days = 7
	case LevelExpert:
		days = 14
	default:
		days = 1
	}

	if accuracy >= 95 {
		days *= 2
	} else if accuracy < 70 {
		days /= 2
		if days < 1 {
			days = 1
		}
	}

	if streak >= 5 {
		days = days * 3 / 2
	}

	return days
}

// SessionXP возвращает XP за одну сессию практики.
func SessionXP(accuracy float64, isPerfect bool, timeSpentSeconds int) int {
	xp := 10

	switch {
	case accuracy >= 95:
		xp += 20
	case accuracy >= 90:
		xp += 15
	case accuracy >= 80:
		xp += 10
	case accuracy >= 70:
		xp += 5
	}

	if isPerfect {
		xp += 25
	}

	if timeSpentSeconds < 30 {
		xp += 10
	} else if timeSpentSeconds > 120 {
		xp += 5
	}

	return xp
}

// ══════════════════════════════════════════════════════════════════════════════
// PRACTICE SESSION
// ══════════════════════════════════════════════════════════════════════════════

// PracticeSession - неизменяемая запись одной попытки практики.
// Служит журналом для пересчёта и отладки накопительных оценок.
type PracticeSession struct {
	// ID - идентификатор сессии (UUID).
	ID string

	// UserID - идентификатор пользователя.
	UserID string

	// CharacterID - идентификатор символа.
	CharacterID string

	// StartTime - время начала попытки.
	StartTime time.Time

	// EndTime - время окончания попытки.
	EndTime time.Time

	// Duration - длительность в секундах.
	Duration int

	// Accuracy - точность попытки.
	Accuracy float64

	// StrokesCorrect - правильных черт.
	StrokesCorrect int

	// StrokesTotal - всего черт.
	StrokesTotal int

	// XPEarned - XP, заработанный за сессию.
	XPEarned int

	// IsPerfect - попытка без ошибок.
	IsPerfect bool

	// CreatedAt - время записи.
	CreatedAt time.Time
}

// NewPracticeSession создаёт запись сессии из попытки.
func NewPracticeSession(id string, attempt PracticeAttempt, xpEarned int, now time.Time) *PracticeSession {
	start := now.Add(-time.Duration(attempt.TimeSpentSeconds) * time.Second)
	return &PracticeSession{
		ID:             id,
		UserID:         attempt.UserID,
		CharacterID:    attempt.CharacterID,
		StartTime:      start,
		EndTime:        now,
		Duration:       attempt.TimeSpentSeconds,
		Accuracy:       attempt.Accuracy,
		StrokesCorrect: attempt.StrokesCorrect,
		StrokesTotal:   attempt.StrokesTotal,
		XPEarned:       xpEarned,
		IsPerfect:      attempt.IsPerfect,
		CreatedAt:      now,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// STATISTICS
// ══════════════════════════════════════════════════════════════════════════════

// Stats - сводная статистика владения для пользователя.
type Stats struct {
	// TotalCharacters - всего символов в работе.
	TotalCharacters int

	// ByLevel - количество символов по уровням владения.
	ByLevel map[Level]int

	// ByType - количество символов по типам.
	ByType map[CharacterType]int

	// AverageAccuracy - средняя точность по всем символам.
	AverageAccuracy float64

	// TotalPracticeTime - суммарное время практики в секундах.
	TotalPracticeTime int

	// DueForReview - символов, ожидающих повторения.
	DueForReview int
}
