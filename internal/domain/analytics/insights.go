package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/kanaquest/progress-engine/internal/domain/mastery"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEARNING INSIGHTS
// ══════════════════════════════════════════════════════════════════════════════

// Insights - вычисленные инсайты обучения за окно.
type Insights struct {
	// UserID - идентификатор пользователя.
	UserID string

	// Window - окно вычисления.
	Window Window

	// StudyTimeMinutes - суммарное время практики за окно.
	StudyTimeMinutes int

	// CharactersPracticed - суммарное количество практик за окно.
	CharactersPracticed int

	// AverageAccuracy - средняя дневная точность за окно.
	AverageAccuracy float64

	// XPEarned - суммарный XP за окно.
	XPEarned int

	// AchievementsUnlocked - достижений за окно.
	AchievementsUnlocked int

	// AccuracyTrend - дневная точность по возрастанию даты.
	AccuracyTrend []float64

	// WeakAreas - слабые стороны (метки с количеством символов).
	WeakAreas []string

	// StrongAreas - сильные стороны.
	StrongAreas []string

	// ImprovementRate - средняя точность второй половины окна минус первой.
	ImprovementRate float64

	// Predictions - простые линейные прогнозы.
	Predictions Predictions
}

// Predictions - прогнозы на основе среднего дневного XP.
type Predictions struct {
	// DaysToNextLevel - дней до следующего уровня (0, если прогноз невозможен).
	DaysToNextLevel int

	// NextLevelDate - ожидаемая дата следующего уровня (nil без прогноза).
	NextLevelDate *time.Time

	// MasteryProjection - прогноз процента освоения [0, 100].
	MasteryProjection float64

	// RecommendedFocus - рекомендации по фокусу практики.
	RecommendedFocus []string
}

// ProgressState - срез прогресса пользователя, нужный для прогнозов.
type ProgressState struct {
	CurrentLevel  int
	XPToNextLevel int
}

// ComputeInsights вычисляет инсайты по дневным агрегатам окна и текущему
// состоянию владения символами. Пустое окно даёт нулевые значения.
func ComputeInsights(
	userID string,
	window Window,
	rows []*UserAnalytics,
	masteries []*mastery.CharacterMastery,
	prog ProgressState,
	now time.Time,
) *Insights {
	insights := &Insights{
		UserID:        userID,
		Window:        window,
		AccuracyTrend: make([]float64, 0, len(rows)),
	}

	for _, row := range rows {
		insights.StudyTimeMinutes += row.StudyTimeMinutes
		insights.CharactersPracticed += row.CharactersPracticed
		insights.XPEarned += row.XPEarned
		insights.AchievementsUnlocked += row.AchievementsUnlocked
		insights.AccuracyTrend = append(insights.AccuracyTrend, row.AccuracyAverage)
	}
	if len(rows) > 0 {
		var sum float64
		for _, row := range rows {
			sum += row.AccuracyAverage
		}
		insights.AverageAccuracy = sum / float64(len(rows))
	}

	insights.WeakAreas = identifyWeakAreas(masteries, now)
	insights.StrongAreas = identifyStrongAreas(masteries)
	insights.ImprovementRate = ImprovementRate(rows)
	insights.Predictions = computePredictions(rows, masteries, prog, now)

	return insights
}

// ImprovementRate возвращает разницу средней точности второй и первой
// половины окна. Меньше двух строк - нулевое улучшение.
func ImprovementRate(rows []*UserAnalytics) float64 {
	if len(rows) < 2 {
		return 0
	}

	mid := len(rows) / 2
	firstHalf := rows[:mid]
	secondHalf := rows[mid:]

	return meanAccuracy(secondHalf) - meanAccuracy(firstHalf)
}

func meanAccuracy(rows []*UserAnalytics) float64 {
	if len(rows) == 0 {
		return 0
	}
	var sum float64
	for _, row := range rows {
		sum += row.AccuracyAverage
	}
	return sum / float64(len(rows))
}

// identifyWeakAreas помечает группы символов, требующие внимания.
func identifyWeakAreas(masteries []*mastery.CharacterMastery, now time.Time) []string {
	var lowAccuracy, fewPractices, dueForReview, lowStrokeOrder int
	for _, m := range masteries {
		if m.AccuracyScore < 70 {
			lowAccuracy++
		}
		if m.PracticeCount < 3 {
			fewPractices++
		}
		if !m.NextReviewDate.IsZero() && !m.NextReviewDate.After(now) {
			dueForReview++
		}
		if m.StrokeOrderScore < 80 {
			lowStrokeOrder++
		}
	}

	areas := make([]string, 0, 4)
	if lowAccuracy > 0 {
		areas = append(areas, fmt.Sprintf("Low accuracy: %d characters", lowAccuracy))
	}
	if fewPractices > 0 {
		areas = append(areas, fmt.Sprintf("Insufficient practice: %d characters", fewPractices))
	}
	if dueForReview > 0 {
		areas = append(areas, fmt.Sprintf("Due for review: %d characters", dueForReview))
	}
	if lowStrokeOrder > 0 {
		areas = append(areas, fmt.Sprintf("Stroke order issues: %d characters", lowStrokeOrder))
	}
	return areas
}

// identifyStrongAreas помечает группы символов, где пользователь силён.
func identifyStrongAreas(masteries []*mastery.CharacterMastery) []string {
	var highAccuracy, mastered, consistent, longStreaks int
	for _, m := range masteries {
		if m.AccuracyScore >= 90 {
			highAccuracy++
		}
		if m.MasteryLevel == mastery.LevelMastered || m.MasteryLevel == mastery.LevelExpert {
			mastered++
		}
		if m.PracticeCount >= 10 {
			consistent++
		}
		if m.StreakCount >= 5 {
			longStreaks++
		}
	}

	areas := make([]string, 0, 4)
	if highAccuracy > 0 {
		areas = append(areas, fmt.Sprintf("High accuracy: %d characters", highAccuracy))
	}
	if mastered > 0 {
		areas = append(areas, fmt.Sprintf("Mastered: %d characters", mastered))
	}
	if consistent > 0 {
		areas = append(areas, fmt.Sprintf("Consistent practice: %d characters", consistent))
	}
	if longStreaks > 0 {
		areas = append(areas, fmt.Sprintf("Long streaks: %d characters", longStreaks))
	}
	return areas
}

func computePredictions(rows []*UserAnalytics, masteries []*mastery.CharacterMastery, prog ProgressState, now time.Time) Predictions {
	var totalXP int
	for _, row := range rows {
		totalXP += row.XPEarned
	}
	days := len(rows)
	if days == 0 {
		days = 1
	}
	avgDailyXP := float64(totalXP) / float64(days)

	p := Predictions{
		RecommendedFocus: recommendedFocus(masteries, now),
	}

	if avgDailyXP > 0 {
		p.DaysToNextLevel = int(math.Ceil(float64(prog.XPToNextLevel) / avgDailyXP))
		nextLevelDate := now.AddDate(0, 0, p.DaysToNextLevel)
		p.NextLevelDate = &nextLevelDate
	}

	var masteryRate float64
	if len(masteries) > 0 {
		var masteredCount int
		for _, m := range masteries {
			if m.MasteryLevel == mastery.LevelMastered || m.MasteryLevel == mastery.LevelExpert {
				masteredCount++
			}
		}
		masteryRate = float64(masteredCount) / float64(len(masteries))
	}
	p.MasteryProjection = math.Min(100, masteryRate*100+avgDailyXP*0.1)

	return p
}

func recommendedFocus(masteries []*mastery.CharacterMastery, now time.Time) []string {
	var lowAccuracy, dueForReview, fewPractices, strokeOrder bool
	for _, m := range masteries {
		if m.AccuracyScore < 70 {
			lowAccuracy = true
		}
		if !m.NextReviewDate.IsZero() && !m.NextReviewDate.After(now) {
			dueForReview = true
		}
		if m.PracticeCount < 3 {
			fewPractices = true
		}
		if m.StrokeOrderScore < 80 {
			strokeOrder = true
		}
	}

	recommendations := make([]string, 0, 4)
	if lowAccuracy {
		recommendations = append(recommendations, "Focus on characters with low accuracy scores")
	}
	if dueForReview {
		recommendations = append(recommendations, "Review characters that are due for practice")
	}
	if fewPractices {
		recommendations = append(recommendations, "Practice characters you haven't worked on much")
	}
	if strokeOrder {
		recommendations = append(recommendations, "Improve stroke order for characters with low scores")
	}
	return recommendations
}
