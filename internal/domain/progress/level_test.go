package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelForZeroXP(t *testing.T) {
	curve := NewLevelCurve(DefaultLevelCurveConfig())

	info := curve.LevelFor(0)

	assert.Equal(t, 1, info.Level)
	assert.Equal(t, "Bronze", info.Name)
	assert.Equal(t, 0, info.CurrentLevelXP)
	assert.Equal(t, 100, info.NextLevelXP)
	assert.Equal(t, 100, info.XPToNext)
}

func TestLevelForExactThreshold(t *testing.T) {
	curve := NewLevelCurve(DefaultLevelCurveConfig())

	// 100 XP is exactly the level 2 threshold.
	info := curve.LevelFor(100)

	assert.Equal(t, 2, info.Level)
	assert.Equal(t, 100, info.CurrentLevelXP)
	// Level 3 costs floor(100*1.2) = 120 more.
	assert.Equal(t, 220, info.NextLevelXP)
	assert.Equal(t, 120, info.XPToNext)
}

func TestLevelForJustBelowThreshold(t *testing.T) {
	curve := NewLevelCurve(DefaultLevelCurveConfig())

	info := curve.LevelFor(99)

	assert.Equal(t, 1, info.Level)
	assert.Equal(t, 1, info.XPToNext)
}

func TestLevelForNegativeXP(t *testing.T) {
	curve := NewLevelCurve(DefaultLevelCurveConfig())

	info := curve.LevelFor(-50)

	assert.Equal(t, 1, info.Level)
}

func TestLevelForMonotonic(t *testing.T) {
	curve := NewLevelCurve(DefaultLevelCurveConfig())

	previous := 0
	for xp := 0; xp <= 100000; xp += 37 {
		info := curve.LevelFor(xp)
		assert.GreaterOrEqual(t, info.Level, 1, "xp=%d", xp)
		assert.GreaterOrEqual(t, info.Level, previous, "level must never decrease, xp=%d", xp)
		assert.Greater(t, info.XPToNext, 0, "xp=%d", xp)
		previous = info.Level
	}
}

func TestLevelForIterationCap(t *testing.T) {
	// A multiplier of exactly 1.0 is rejected by the constructor, but a huge
	// XP total must still terminate under the iteration cap.
	curve := NewLevelCurve(LevelCurveConfig{BaseXP: 1, Multiplier: 1.0001})

	info := curve.LevelFor(1 << 50)

	assert.LessOrEqual(t, info.Level, maxLevelIterations)
}

func TestLevelNames(t *testing.T) {
	assert.Equal(t, "Bronze", LevelName(1))
	assert.Equal(t, "Bronze", LevelName(9))
	assert.Equal(t, "Silver", LevelName(10))
	assert.Equal(t, "Silver", LevelName(14))
	assert.Equal(t, "Gold", LevelName(15))
	assert.Equal(t, "Gold", LevelName(19))
	assert.Equal(t, "Platinum", LevelName(20))
	assert.Equal(t, "Platinum", LevelName(100))
}

func TestRewardsForLevelMultiples(t *testing.T) {
	assert.Empty(t, RewardsFor(3))
	assert.Len(t, RewardsFor(5), 1)
	assert.Len(t, RewardsFor(10), 2)
	assert.Len(t, RewardsFor(20), 3)
	assert.Len(t, RewardsFor(100), 4)

	rewards := RewardsFor(100)
	kinds := make([]RewardKind, 0, len(rewards))
	for _, r := range rewards {
		kinds = append(kinds, r.Kind)
	}
	assert.Contains(t, kinds, RewardBadge)
	assert.Contains(t, kinds, RewardAvatar)
	assert.Contains(t, kinds, RewardTheme)
	assert.Contains(t, kinds, RewardTitle)
}
