// Package progress содержит доменную модель прогресса пользователя:
// очки опыта (XP), транзакции XP и кривую уровней.
package progress

import (
	"math"
	"time"

	"github.com/kanaquest/progress-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// XP SOURCE
// ══════════════════════════════════════════════════════════════════════════════

// XPSource определяет источник начисления XP.
type XPSource string

const (
	// SourceCharacterPractice - практика отдельного символа.
	SourceCharacterPractice XPSource = "CHARACTER_PRACTICE"

	// SourcePerfectStroke - идеальный порядок черт.
	SourcePerfectStroke XPSource = "PERFECT_STROKE"

	// SourceDailyStreak - продление ежедневной серии.
	SourceDailyStreak XPSource = "DAILY_STREAK"

	// SourceAchievementUnlock - разблокировка достижения.
	SourceAchievementUnlock XPSource = "ACHIEVEMENT_UNLOCK"

	// SourceLessonCompletion - завершение урока.
	SourceLessonCompletion XPSource = "LESSON_COMPLETION"

	// SourceVocabularyLearned - выученное слово.
	SourceVocabularyLearned XPSource = "VOCABULARY_LEARNED"

	// SourceStreakMilestone - достижение рубежа серии.
	SourceStreakMilestone XPSource = "STREAK_MILESTONE"

	// SourcePerfectScore - идеальный результат упражнения.
	SourcePerfectScore XPSource = "PERFECT_SCORE"

	// SourceDailyLogin - ежедневный вход.
	SourceDailyLogin XPSource = "DAILY_LOGIN"

	// SourceWeeklyChallenge - недельный челлендж.
	SourceWeeklyChallenge XPSource = "WEEKLY_CHALLENGE"

	// SourceMonthlyChallenge - месячный челлендж.
	SourceMonthlyChallenge XPSource = "MONTHLY_CHALLENGE"

	// SourceSocialShare - шеринг прогресса.
	SourceSocialShare XPSource = "SOCIAL_SHARE"

	// SourceReviewSession - сессия повторения.
	SourceReviewSession XPSource = "REVIEW_SESSION"

	// SourceMistakeCorrection - исправление ошибки.
	SourceMistakeCorrection XPSource = "MISTAKE_CORRECTION"

	// SourceSpeedChallenge - челлендж на скорость.
	SourceSpeedChallenge XPSource = "SPEED_CHALLENGE"
)

// AllSources возвращает все известные источники XP.
func AllSources() []XPSource {
	return []XPSource{
		SourceCharacterPractice, SourcePerfectStroke, SourceDailyStreak,
		SourceAchievementUnlock, SourceLessonCompletion, SourceVocabularyLearned,
		SourceStreakMilestone, SourcePerfectScore, SourceDailyLogin,
		SourceWeeklyChallenge, SourceMonthlyChallenge, SourceSocialShare,
		SourceReviewSession, SourceMistakeCorrection, SourceSpeedChallenge,
	}
}

// IsValid проверяет, что источник известен.
func (s XPSource) IsValid() bool {
	switch s {
	case SourceCharacterPractice, SourcePerfectStroke, SourceDailyStreak,
		SourceAchievementUnlock, SourceLessonCompletion, SourceVocabularyLearned,
		SourceStreakMilestone, SourcePerfectScore, SourceDailyLogin,
		SourceWeeklyChallenge, SourceMonthlyChallenge, SourceSocialShare,
		SourceReviewSession, SourceMistakeCorrection, SourceSpeedChallenge:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление источника.
func (s XPSource) String() string {
	return string(s)
}

// defaultBaseAward - награда для неизвестного источника.
const defaultBaseAward = 10

// baseAwards - фиксированная таблица базовых наград по источникам.
var baseAwards = map[XPSource]int{
	SourceCharacterPractice: 10,
	SourcePerfectStroke:     20,
	SourceDailyStreak:       50,
	SourceAchievementUnlock: 100,
	SourceLessonCompletion:  30,
	SourceVocabularyLearned: 15,
	SourceStreakMilestone:   100,
	SourcePerfectScore:      25,
	SourceDailyLogin:        5,
	SourceWeeklyChallenge:   200,
	SourceMonthlyChallenge:  500,
	SourceSocialShare:       10,
	SourceReviewSession:     15,
	SourceMistakeCorrection: 5,
	SourceSpeedChallenge:    40,
}

// BaseAward возвращает базовую награду источника без множителей.
// Для ACHIEVEMENT_UNLOCK и STREAK_MILESTONE награда зависит от контекста.
func (s XPSource) BaseAward(ctx AwardContext) int {
	switch s {
	case SourceAchievementUnlock:
		if ctx.AchievementReward > 0 {
			return ctx.AchievementReward
		}
		return baseAwards[SourceAchievementUnlock]
	case SourceStreakMilestone:
		if ctx.StreakCount > 0 {
			return ctx.StreakCount * 10
		}
		return baseAwards[SourceStreakMilestone]
	default:
		if base, ok := baseAwards[s]; ok {
			return base
		}
		return defaultBaseAward
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// XP CALCULATION
// ══════════════════════════════════════════════════════════════════════════════

// AwardContext - контекст начисления XP (влияет на размер награды).
type AwardContext struct {
	// StreakMultiplier - применить множитель серии.
	StreakMultiplier bool

	// AchievementMultiplier - применить множитель достижения.
	AchievementMultiplier bool

	// AchievementReward - явная награда достижения (для ACHIEVEMENT_UNLOCK).
	AchievementReward int

	// StreakCount - длина серии (для STREAK_MILESTONE).
	StreakCount int

	// Description - произвольное описание для журнала транзакций.
	Description string

	// Extra - дополнительные данные, сохраняемые в метаданных транзакции.
	Extra map[string]any
}

// XPAward - результат расчёта награды.
type XPAward struct {
	// Source - источник начисления.
	Source XPSource

	// BaseXP - базовая награда до множителей.
	BaseXP int

	// Multiplier - итоговый множитель.
	Multiplier float64

	// BonusXP - бонусная часть награды (сверх базы).
	BonusXP int

	// TotalXP - итоговая награда.
	TotalXP int

	// Description - описание для журнала.
	Description string
}

// Calculator рассчитывает награды XP. Чистая детерминированная логика:
// одинаковые входные данные всегда дают одинаковый результат.
type Calculator struct {
	baseMultiplier        float64
	streakMultiplier      float64
	achievementMultiplier float64
}

// CalculatorConfig - множители расчёта XP.
type CalculatorConfig struct {
	// BaseMultiplier - глобальный множитель (по умолчанию 1.0).
	BaseMultiplier float64

	// StreakMultiplier - множитель за активную серию (по умолчанию 1.5).
	StreakMultiplier float64

	// AchievementMultiplier - множитель достижения (по умолчанию 2.0).
	AchievementMultiplier float64
}

// DefaultCalculatorConfig возвращает множители по умолчанию.
func DefaultCalculatorConfig() CalculatorConfig {
	return CalculatorConfig{
		BaseMultiplier:        1.0,
		StreakMultiplier:      1.5,
		AchievementMultiplier: 2.0,
	}
}

// NewCalculator создаёт Calculator с заданными множителями.
func NewCalculator(cfg CalculatorConfig) *Calculator {
	if cfg.BaseMultiplier <= 0 {
		cfg.BaseMultiplier = 1.0
	}
	if cfg.StreakMultiplier <= 0 {
		cfg.StreakMultiplier = 1.5
	}
	if cfg.AchievementMultiplier <= 0 {
		cfg.AchievementMultiplier = 2.0
	}
	return &Calculator{
		baseMultiplier:        cfg.BaseMultiplier,
		streakMultiplier:      cfg.StreakMultiplier,
		achievementMultiplier: cfg.AchievementMultiplier,
	}
}

// Calculate рассчитывает награду за источник с учётом контекста.
// Цепочка множителей: база × серия × достижение.
func (c *Calculator) Calculate(source XPSource, ctx AwardContext) XPAward {
	base := source.BaseAward(ctx)

	multiplier := c.baseMultiplier
	if ctx.StreakMultiplier {
		multiplier *= c.streakMultiplier
	}
	if ctx.AchievementMultiplier {
		multiplier *= c.achievementMultiplier
	}

	total := int(math.Floor(float64(base) * multiplier))
	bonus := int(math.Floor(float64(base) * (multiplier - 1)))
	if bonus < 0 {
		bonus = 0
	}

	description := ctx.Description
	if description == "" {
		description = defaultDescription(source)
	}

	return XPAward{
		Source:      source,
		BaseXP:      base,
		Multiplier:  multiplier,
		BonusXP:     bonus,
		TotalXP:     total,
		Description: description,
	}
}

// defaultDescription возвращает описание источника для журнала.
func defaultDescription(source XPSource) string {
	switch source {
	case SourceCharacterPractice:
		return "Practiced a character"
	case SourcePerfectStroke:
		return "Perfect stroke order"
	case SourceDailyStreak:
		return "Daily streak continued"
	case SourceAchievementUnlock:
		return "Achievement unlocked"
	case SourceLessonCompletion:
		return "Lesson completed"
	case SourceVocabularyLearned:
		return "New vocabulary learned"
	case SourceStreakMilestone:
		return "Streak milestone reached"
	case SourcePerfectScore:
		return "Perfect score"
	case SourceDailyLogin:
		return "Daily login"
	case SourceWeeklyChallenge:
		return "Weekly challenge completed"
	case SourceMonthlyChallenge:
		return "Monthly challenge completed"
	case SourceSocialShare:
		return "Progress shared"
	case SourceReviewSession:
		return "Review session completed"
	case SourceMistakeCorrection:
		return "Mistake corrected"
	case SourceSpeedChallenge:
		return "Speed challenge completed"
	default:
		return "XP awarded"
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// UserProgress - агрегат прогресса пользователя. Поля XP и уровня
// изменяются только через путь AddXP; остальные компоненты читают их.
type UserProgress struct {
	// UserID - идентификатор пользователя (уникален).
	UserID string

	// TotalXP - суммарный заработанный XP (сверяется с журналом транзакций).
	TotalXP int

	// CurrentXP - текущий XP (неотрицательный).
	CurrentXP int

	// CurrentLevel - текущий уровень (производный от TotalXP, >=1).
	CurrentLevel int

	// XPToNextLevel - сколько XP осталось до следующего уровня.
	XPToNextLevel int

	// LevelName - название полосы уровня (Bronze/Silver/Gold/Platinum).
	LevelName string

	// StreakCount - денормализованная копия серии DAILY_PRACTICE.
	StreakCount int

	// LongestStreak - лучшая серия за всё время.
	LongestStreak int

	// LastActivityDate - время последней активности.
	LastActivityDate time.Time

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// Validate проверяет инварианты агрегата.
func (p *UserProgress) Validate() error {
	if p.UserID == "" {
		return shared.NewDomainError("progress", "Validate", shared.ErrEmptyValue, "user ID cannot be empty")
	}
	if p.TotalXP < 0 || p.CurrentXP < 0 {
		return shared.NewDomainError("progress", "Validate", shared.ErrNegativeValue, "XP cannot be negative")
	}
	if p.CurrentLevel < 1 {
		return shared.NewDomainError("progress", "Validate", shared.ErrValueOutOfRange, "level must be at least 1")
	}
	return nil
}

// ApplyAward добавляет награду к прогрессу и пересчитывает уровень.
// Возвращает true, если произошло повышение уровня.
func (p *UserProgress) ApplyAward(award XPAward, curve *LevelCurve, now time.Time) bool {
	previousLevel := p.CurrentLevel

	p.TotalXP += award.TotalXP
	p.CurrentXP += award.TotalXP

	level := curve.LevelFor(p.TotalXP)
	p.CurrentLevel = level.Level
	p.XPToNextLevel = level.XPToNext
	p.LevelName = level.Name
	p.LastActivityDate = now
	p.UpdatedAt = now

	return p.CurrentLevel > previousLevel
}

// XPTransaction - неизменяемая запись журнала начислений XP.
// Записи никогда не изменяются и не удаляются, кроме очистки по сроку хранения.
type XPTransaction struct {
	// ID - уникальный идентификатор транзакции (UUID).
	ID string

	// UserID - идентификатор пользователя.
	UserID string

	// Amount - величина начисления (>0).
	Amount int

	// Source - источник начисления.
	Source XPSource

	// Description - человекочитаемое описание.
	Description string

	// Metadata - дополнительные данные начисления.
	Metadata map[string]any

	// CreatedAt - время начисления.
	CreatedAt time.Time
}

// Validate проверяет корректность транзакции.
func (t *XPTransaction) Validate() error {
	if t.UserID == "" {
		return shared.NewDomainError("progress", "Validate", shared.ErrEmptyValue, "user ID cannot be empty")
	}
	if t.Amount <= 0 {
		return shared.ErrInvalidXPAmount
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SOURCE STATISTICS
// ══════════════════════════════════════════════════════════════════════════════

// SourceTotal - суммарный XP по одному источнику за окно.
type SourceTotal struct {
	// Source - источник начисления.
	Source XPSource

	// TotalXP - суммарный XP.
	TotalXP int

	// Count - количество транзакций.
	Count int
}
