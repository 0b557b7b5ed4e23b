package query

import (
	"context"
	"errors"
	"time"

	"github.com/kanaquest/progress-engine/internal/domain/analytics"
	"github.com/kanaquest/progress-engine/internal/domain/mastery"
	"github.com/kanaquest/progress-engine/internal/domain/progress"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET INSIGHTS QUERY
// Вычисляет инсайты обучения за окно: тренд точности, сильные и слабые
// стороны, темп улучшения и простые линейные прогнозы.
// ══════════════════════════════════════════════════════════════════════════════

// GetInsightsQuery содержит параметры запроса инсайтов.
type GetInsightsQuery struct {
	// UserID - идентификатор пользователя.
	UserID string

	// Window - окно вычисления: "7d", "30d" или "90d" (по умолчанию 30d).
	Window string
}

// Validate проверяет корректность параметров запроса.
func (q *GetInsightsQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user_id is required")
	}
	return nil
}

// PredictionsDTO - DTO прогнозов.
type PredictionsDTO struct {
	// DaysToNextLevel - дней до следующего уровня (0 без прогноза).
	DaysToNextLevel int `json:"days_to_next_level"`

	// NextLevelDate - ожидаемая дата следующего уровня.
	NextLevelDate *time.Time `json:"next_level_date,omitempty"`

	// MasteryProjection - прогноз процента освоения [0, 100].
	MasteryProjection float64 `json:"mastery_projection"`

	// RecommendedFocus - рекомендации по фокусу практики.
	RecommendedFocus []string `json:"recommended_focus"`
}

// GetInsightsResult содержит результат запроса инсайтов.
type GetInsightsResult struct {
	// UserID - идентификатор пользователя.
	UserID string `json:"user_id"`

	// Window - использованное окно.
	Window string `json:"window"`

	// StudyTimeMinutes - суммарное время практики за окно.
	StudyTimeMinutes int `json:"study_time_minutes"`

	// CharactersPracticed - суммарное количество практик за окно.
	CharactersPracticed int `json:"characters_practiced"`

	// AverageAccuracy - средняя дневная точность за окно.
	AverageAccuracy float64 `json:"average_accuracy"`

	// XPEarned - суммарный XP за окно.
	XPEarned int `json:"xp_earned"`

	// AccuracyTrend - дневная точность по возрастанию даты.
	AccuracyTrend []float64 `json:"accuracy_trend"`

	// WeakAreas - слабые стороны.
	WeakAreas []string `json:"weak_areas"`

	// StrongAreas - сильные стороны.
	StrongAreas []string `json:"strong_areas"`

	// ImprovementRate - точность второй половины окна минус первой.
	ImprovementRate float64 `json:"improvement_rate"`

	// Predictions - прогнозы.
	Predictions PredictionsDTO `json:"predictions"`
}

// GetInsightsHandler обрабатывает запросы инсайтов.
type GetInsightsHandler struct {
	analyticsRepo analytics.Repository
	masteryRepo   mastery.Repository
	progressRepo  progress.Repository
	clock         timeutil.Clock
}

// NewGetInsightsHandler создаёт новый обработчик запроса инсайтов.
func NewGetInsightsHandler(
	analyticsRepo analytics.Repository,
	masteryRepo mastery.Repository,
	progressRepo progress.Repository,
	clock timeutil.Clock,
) *GetInsightsHandler {
	return &GetInsightsHandler{
		analyticsRepo: analyticsRepo,
		masteryRepo:   masteryRepo,
		progressRepo:  progressRepo,
		clock:         clock,
	}
}

// Handle выполняет запрос инсайтов.
func (h *GetInsightsHandler) Handle(ctx context.Context, query GetInsightsQuery) (*GetInsightsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetInsights", shared.ErrValidation, err.Error(), err)
	}

	now := h.clock.Now()
	window := analytics.ParseWindow(query.Window)
	from, to := window.Range(now)

	rows, err := h.analyticsRepo.ListRange(ctx, query.UserID, from, to)
	if err != nil {
		return nil, err
	}

	masteries, err := h.masteryRepo.ListByUser(ctx, query.UserID)
	if err != nil {
		return nil, err
	}

	// Без записи прогресса прогнозы уровня невозможны, остальное считается
	var state analytics.ProgressState
	if prog, err := h.progressRepo.GetProgress(ctx, query.UserID); err == nil {
		state = analytics.ProgressState{
			CurrentLevel:  prog.CurrentLevel,
			XPToNextLevel: prog.XPToNextLevel,
		}
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	insights := analytics.ComputeInsights(query.UserID, window, rows, masteries, state, now)

	return &GetInsightsResult{
		UserID:              insights.UserID,
		Window:              insights.Window.Label,
		StudyTimeMinutes:    insights.StudyTimeMinutes,
		CharactersPracticed: insights.CharactersPracticed,
		AverageAccuracy:     insights.AverageAccuracy,
		XPEarned:            insights.XPEarned,
		AccuracyTrend:       insights.AccuracyTrend,
		WeakAreas:           insights.WeakAreas,
		StrongAreas:         insights.StrongAreas,
		ImprovementRate:     insights.ImprovementRate,
		Predictions: PredictionsDTO{
			DaysToNextLevel:   insights.Predictions.DaysToNextLevel,
			NextLevelDate:     insights.Predictions.NextLevelDate,
			MasteryProjection: insights.Predictions.MasteryProjection,
			RecommendedFocus:  insights.Predictions.RecommendedFocus,
		},
	}, nil
}
