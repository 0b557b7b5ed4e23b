package progress

import (
	"math"
	"strconv"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL CURVE
// ══════════════════════════════════════════════════════════════════════════════

// maxLevelIterations ограничивает поиск уровня, чтобы патологические
// значения множителя или TotalXP не приводили к бесконечному циклу.
const maxLevelIterations = 10000

// LevelInfo - полная информация об уровне для заданного TotalXP.
type LevelInfo struct {
	// Level - номер уровня (>=1).
	Level int

	// Name - название полосы уровня.
	Name string

	// CurrentLevelXP - суммарный XP, необходимый для текущего уровня.
	CurrentLevelXP int

	// NextLevelXP - суммарный XP, необходимый для следующего уровня.
	NextLevelXP int

	// XPToNext - сколько XP осталось до следующего уровня.
	XPToNext int

	// Rewards - награды, выдаваемые при достижении этого уровня.
	Rewards []LevelReward
}

// LevelReward - информационная награда за достижение уровня.
// Награды не персистятся движком, только сообщаются вызывающему коду.
type LevelReward struct {
	// Kind - тип награды (badge/avatar/theme/title).
	Kind RewardKind

	// Label - название награды.
	Label string
}

// RewardKind определяет тип награды за уровень.
type RewardKind string

const (
	// RewardBadge - значок (каждый 5-й уровень).
	RewardBadge RewardKind = "badge"

	// RewardAvatar - аватар (каждый 10-й уровень).
	RewardAvatar RewardKind = "avatar"

	// RewardTheme - тема оформления (каждый 20-й уровень).
	RewardTheme RewardKind = "theme"

	// RewardTitle - титул (каждый 50-й уровень).
	RewardTitle RewardKind = "title"
)

// LevelCurve рассчитывает уровень по суммарному XP. Кривая кумулятивная:
// для перехода с уровня n-1 на n требуется floor(base × multiplier^(n-2)) XP.
type LevelCurve struct {
	base       int
	multiplier float64
}

// LevelCurveConfig - параметры кривой уровней.
type LevelCurveConfig struct {
	// BaseXP - XP для перехода с 1-го на 2-й уровень (по умолчанию 100).
	BaseXP int

	// Multiplier - рост стоимости каждого следующего уровня (по умолчанию 1.2).
	Multiplier float64
}

// DefaultLevelCurveConfig возвращает параметры кривой по умолчанию.
func DefaultLevelCurveConfig() LevelCurveConfig {
	return LevelCurveConfig{
		BaseXP:     100,
		Multiplier: 1.2,
	}
}

// NewLevelCurve создаёт кривую уровней.
func NewLevelCurve(cfg LevelCurveConfig) *LevelCurve {
	if cfg.BaseXP <= 0 {
		cfg.BaseXP = 100
	}
	if cfg.Multiplier <= 1.0 {
		cfg.Multiplier = 1.2
	}
	return &LevelCurve{
		base:       cfg.BaseXP,
		multiplier: cfg.Multiplier,
	}
}

// LevelFor возвращает уровень для заданного суммарного XP.
// Уровень 1 требует 0 XP; отрицательный XP трактуется как 0.
func (c *LevelCurve) LevelFor(totalXP int) LevelInfo {
	if totalXP < 0 {
		totalXP = 0
	}

	level := 1
	cumulative := 0
	next := cumulative + c.stepCost(level+1)

	for next <= totalXP && level < maxLevelIterations {
		level++
		cumulative = next
		next = cumulative + c.stepCost(level+1)
	}

	return LevelInfo{
		Level:          level,
		Name:           LevelName(level),
		CurrentLevelXP: cumulative,
		NextLevelXP:    next,
		XPToNext:       next - totalXP,
		Rewards:        RewardsFor(level),
	}
}

// stepCost возвращает стоимость перехода на уровень n (n >= 2).
func (c *LevelCurve) stepCost(n int) int {
	return int(math.Floor(float64(c.base) * math.Pow(c.multiplier, float64(n-2))))
}

// LevelName возвращает название полосы уровня.
func LevelName(level int) string {
	switch {
	case level >= 20:
		return "Platinum"
	case level >= 15:
		return "Gold"
	case level >= 10:
		return "Silver"
	default:
		return "Bronze"
	}
}

// RewardsFor возвращает информационные награды за достижение уровня.
func RewardsFor(level int) []LevelReward {
	if level < 5 {
		return nil
	}

	var rewards []LevelReward
	if level%5 == 0 {
		rewards = append(rewards, LevelReward{Kind: RewardBadge, Label: badgeLabel(level)})
	}
	if level%10 == 0 {
		rewards = append(rewards, LevelReward{Kind: RewardAvatar, Label: "New avatar unlocked"})
	}
	if level%20 == 0 {
		rewards = append(rewards, LevelReward{Kind: RewardTheme, Label: "New theme unlocked"})
	}
	if level%50 == 0 {
		rewards = append(rewards, LevelReward{Kind: RewardTitle, Label: "New title unlocked"})
	}
	return rewards
}

// badgeLabel возвращает название значка уровня.
func badgeLabel(level int) string {
	return "Level " + strconv.Itoa(level) + " badge"
}
