package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateBaseAwards(t *testing.T) {
	calc := NewCalculator(DefaultCalculatorConfig())

	tests := []struct {
		source XPSource
		want   int
	}{
		{SourceCharacterPractice, 10},
		{SourcePerfectStroke, 20},
		{SourceDailyStreak, 50},
		{SourceLessonCompletion, 30},
		{SourceVocabularyLearned, 15},
		{SourcePerfectScore, 25},
		{SourceDailyLogin, 5},
		{SourceWeeklyChallenge, 200},
		{SourceMonthlyChallenge, 500},
		{SourceSocialShare, 10},
		{SourceReviewSession, 15},
		{SourceMistakeCorrection, 5},
		{SourceSpeedChallenge, 40},
	}

	for _, tt := range tests {
		award := calc.Calculate(tt.source, AwardContext{})
		assert.Equal(t, tt.want, award.TotalXP, "source %s", tt.source)
		assert.Equal(t, tt.want, award.BaseXP, "source %s", tt.source)
		assert.Equal(t, 0, award.BonusXP, "source %s", tt.source)
	}
}

func TestCalculateUnknownSourceFallsBack(t *testing.T) {
	calc := NewCalculator(DefaultCalculatorConfig())

	award := calc.Calculate(XPSource("SOMETHING_NEW"), AwardContext{})

	assert.Equal(t, 10, award.TotalXP)
}

func TestCalculateAchievementReward(t *testing.T) {
	calc := NewCalculator(DefaultCalculatorConfig())

	withReward := calc.Calculate(SourceAchievementUnlock, AwardContext{AchievementReward: 250})
	assert.Equal(t, 250, withReward.TotalXP)

	withoutReward := calc.Calculate(SourceAchievementUnlock, AwardContext{})
	assert.Equal(t, 100, withoutReward.TotalXP)
}

func TestCalculateStreakMilestoneScalesWithCount(t *testing.T) {
	calc := NewCalculator(DefaultCalculatorConfig())

	award := calc.Calculate(SourceStreakMilestone, AwardContext{StreakCount: 30})
	assert.Equal(t, 300, award.TotalXP)

	fallback := calc.Calculate(SourceStreakMilestone, AwardContext{})
	assert.Equal(t, 100, fallback.TotalXP)
}

func TestCalculateMultiplierChain(t *testing.T) {
	calc := NewCalculator(DefaultCalculatorConfig())

	streak := calc.Calculate(SourceCharacterPractice, AwardContext{StreakMultiplier: true})
	assert.Equal(t, 15, streak.TotalXP)
	assert.Equal(t, 5, streak.BonusXP)

	achievement := calc.Calculate(SourceCharacterPractice, AwardContext{AchievementMultiplier: true})
	assert.Equal(t, 20, achievement.TotalXP)
	assert.Equal(t, 10, achievement.BonusXP)

	both := calc.Calculate(SourceCharacterPractice, AwardContext{
		StreakMultiplier:      true,
		AchievementMultiplier: true,
	})
	assert.Equal(t, 30, both.TotalXP)
	assert.Equal(t, 20, both.BonusXP)
	assert.InDelta(t, 3.0, both.Multiplier, 0.0001)
}

func TestCalculateDeterministic(t *testing.T) {
	calc := NewCalculator(DefaultCalculatorConfig())
	ctx := AwardContext{StreakMultiplier: true, StreakCount: 7}

	first := calc.Calculate(SourceDailyStreak, ctx)
	for i := 0; i < 10; i++ {
		again := calc.Calculate(SourceDailyStreak, ctx)
		assert.Equal(t, first, again)
	}
}

func TestXPSourceIsValid(t *testing.T) {
	for _, source := range AllSources() {
		assert.True(t, source.IsValid(), "source %s", source)
	}
	assert.False(t, XPSource("BOGUS").IsValid())
}

func TestApplyAwardLevelUp(t *testing.T) {
	curve := NewLevelCurve(DefaultLevelCurveConfig())
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	p := &UserProgress{
		UserID:       "b7c1e0a4-0000-4000-8000-000000000001",
		TotalXP:      90,
		CurrentXP:    90,
		CurrentLevel: 1,
	}

	leveledUp := p.ApplyAward(XPAward{TotalXP: 20}, curve, now)

	assert.True(t, leveledUp)
	assert.Equal(t, 110, p.TotalXP)
	assert.Equal(t, 2, p.CurrentLevel)
	// Level 3 sits at 220 cumulative XP, so 110 remain.
	assert.Equal(t, 110, p.XPToNextLevel)
	assert.Equal(t, now, p.LastActivityDate)
}

func TestApplyAwardNoLevelUp(t *testing.T) {
	curve := NewLevelCurve(DefaultLevelCurveConfig())
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	p := &UserProgress{
		UserID:       "b7c1e0a4-0000-4000-8000-000000000001",
		TotalXP:      10,
		CurrentXP:    10,
		CurrentLevel: 1,
	}

	leveledUp := p.ApplyAward(XPAward{TotalXP: 5}, curve, now)

	assert.False(t, leveledUp)
	assert.Equal(t, 1, p.CurrentLevel)
	assert.Equal(t, 85, p.XPToNextLevel)
}

func TestXPTransactionValidate(t *testing.T) {
	tx := &XPTransaction{UserID: "u", Amount: 10}
	assert.NoError(t, tx.Validate())

	assert.Error(t, (&XPTransaction{UserID: "", Amount: 10}).Validate())
	assert.Error(t, (&XPTransaction{UserID: "u", Amount: 0}).Validate())
	assert.Error(t, (&XPTransaction{UserID: "u", Amount: -5}).Validate())
}
