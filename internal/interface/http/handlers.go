package http

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/kanaquest/progress-engine/config"
	"github.com/kanaquest/progress-engine/internal/application/command"
	"github.com/kanaquest/progress-engine/internal/application/query"
	"github.com/kanaquest/progress-engine/internal/domain/leaderboard"
	"github.com/kanaquest/progress-engine/internal/domain/mastery"
	"github.com/kanaquest/progress-engine/internal/domain/progress"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/internal/domain/streak"
	"github.com/kanaquest/progress-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot returns basic service information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Endpoint not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "kanaquest-progress-engine",
		"version": "v1",
		"status":  "running",
		"uptime":  s.Uptime().Round(time.Second).String(),
	})
}

// handleHealth returns the full health status of the service.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"healthy": true,
			"message": "No health checker configured",
		})
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())

	httpStatus := http.StatusOK
	if !status.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, status)
}

// handleReady returns readiness status for orchestration.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"ready": true})
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"ready":   false,
			"message": status.Message,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ready": true})
}

// handleLive returns liveness status. Always 200 if the process is up.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"alive": true})
}

// handleMetrics returns basic runtime metrics in a text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "# Progress engine metrics\n")
	fmt.Fprintf(w, "uptime_seconds %d\n", int(s.Uptime().Seconds()))
	fmt.Fprintf(w, "goroutines %d\n", runtime.NumGoroutine())
	fmt.Fprintf(w, "memory_alloc_bytes %d\n", m.Alloc)
	fmt.Fprintf(w, "memory_sys_bytes %d\n", m.Sys)
	fmt.Fprintf(w, "gc_runs %d\n", m.NumGC)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps domain errors to HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsLimitReached(err):
		writeJSONError(w, http.StatusConflict, "limit_reached", err.Error())
	case shared.IsExternalService(err):
		writeJSONError(w, http.StatusBadGateway, "upstream_unavailable", err.Error())
	default:
		s.logger.Error("request failed",
			logger.String("path", r.URL.Path),
			logger.Err(err),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// USER PROGRESS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetProgress returns the full progress snapshot for a user.
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetProgressHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Progress queries are not available")
		return
	}

	result, err := s.deps.GetProgressHandler.Handle(r.Context(), query.GetProgressQuery{
		UserID: r.PathValue("id"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result.Progress)
}

// handleGetXPHistory returns a page of the user's XP ledger.
func (s *Server) handleGetXPHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetXPHistoryHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "XP history queries are not available")
		return
	}

	q := query.GetXPHistoryQuery{
		UserID: r.PathValue("id"),
		Source: getQueryParam(r, "source", ""),
		Limit:  getQueryParamInt(r, "limit", 20),
		Offset: getQueryParamInt(r, "offset", 0),
	}
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "validation_failed", "from must be RFC 3339")
			return
		}
		q.From = t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "validation_failed", "to must be RFC 3339")
			return
		}
		q.To = t
	}

	result, err := s.deps.GetXPHistoryHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result.Transactions, &ResponseMeta{
		Page:     result.Page,
		PageSize: result.PageSize,
		HasMore:  result.HasMore,
	})
}

// handleGetReviewQueue returns the characters due for spaced-repetition review.
func (s *Server) handleGetReviewQueue(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetReviewQueueHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Review queue queries are not available")
		return
	}

	result, err := s.deps.GetReviewQueueHandler.Handle(r.Context(), query.GetReviewQueueQuery{
		UserID: r.PathValue("id"),
		Limit:  getQueryParamInt(r, "limit", 20),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result.Items, &ResponseMeta{
		TotalCount: result.Count,
	})
}

// handleGetWeakAreas returns the user's weakest characters.
func (s *Server) handleGetWeakAreas(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetWeakAreasHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Weak area queries are not available")
		return
	}

	result, err := s.deps.GetWeakAreasHandler.Handle(r.Context(), query.GetWeakAreasQuery{
		UserID: r.PathValue("id"),
		Limit:  getQueryParamInt(r, "limit", 10),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result.Areas, &ResponseMeta{
		TotalCount: result.Count,
	})
}

// handleGetMasteryStats returns aggregate mastery statistics.
func (s *Server) handleGetMasteryStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetMasteryStatsHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Mastery stats queries are not available")
		return
	}

	result, err := s.deps.GetMasteryStatsHandler.Handle(r.Context(), query.GetMasteryStatsQuery{
		UserID: r.PathValue("id"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result.Stats)
}

// handleGetStreaks returns all streaks of a user.
func (s *Server) handleGetStreaks(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetStreaksHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Streak queries are not available")
		return
	}

	result, err := s.deps.GetStreaksHandler.Handle(r.Context(), query.GetStreaksQuery{
		UserID: r.PathValue("id"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetUserRank returns the user's leaderboard position for a period.
func (s *Server) handleGetUserRank(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetUserRankHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Rank queries are not available")
		return
	}

	q := query.GetUserRankQuery{
		UserID: r.PathValue("id"),
		Period: strings.ToUpper(getQueryParam(r, "period", string(leaderboard.PeriodWeekly))),
	}
	if n := getQueryParamInt(r, "neighbors", 0); n > 0 && s.featureEnabled(config.FeatureLeaderboardNeighbors, q.UserID) {
		q.NeighborRange = n
	}

	result, err := s.deps.GetUserRankHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	if len(result.Neighbors) > 0 {
		writeJSON(w, http.StatusOK, result)
		return
	}
	writeJSON(w, http.StatusOK, result.Rank)
}

// featureEnabled evaluates a per-user feature flag (false when flags are
// not configured).
func (s *Server) featureEnabled(name, userID string) bool {
	if s.deps.Features == nil {
		return false
	}
	return s.deps.Features.IsEnabled(name, &config.FeatureContext{UserID: userID})
}

// handleGetInsights returns learning analytics for a user.
func (s *Server) handleGetInsights(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetInsightsHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Insight queries are not available")
		return
	}

	result, err := s.deps.GetInsightsHandler.Handle(r.Context(), query.GetInsightsQuery{
		UserID: r.PathValue("id"),
		Window: getQueryParam(r, "window", ""),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetProfile resolves a user's display profile via the directory service.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	if s.deps.Directory == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Directory integration is not configured")
		return
	}

	profile, err := s.deps.Directory.GetProfile(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// leaderboardEntryView is a leaderboard row enriched with directory data.
type leaderboardEntryView struct {
	query.LeaderboardEntryDTO
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// handleGetLeaderboard returns a page of the leaderboard for a period.
// Entries are enriched with display names when the directory is reachable.
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetLeaderboardHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Leaderboard queries are not available")
		return
	}

	result, err := s.deps.GetLeaderboardHandler.Handle(r.Context(), query.GetLeaderboardQuery{
		Period: strings.ToUpper(getQueryParam(r, "period", string(leaderboard.PeriodWeekly))),
		Limit:  getQueryParamInt(r, "limit", 20),
		Offset: getQueryParamInt(r, "offset", 0),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	entries := s.enrichLeaderboard(r, result.Entries)

	writeJSONWithMeta(w, r, http.StatusOK, map[string]interface{}{
		"period":  result.Period,
		"entries": entries,
	}, &ResponseMeta{
		TotalCount: result.TotalCount,
		Page:       result.Page,
		PageSize:   result.PageSize,
		HasMore:    result.HasMore,
	})
}

// enrichLeaderboard attaches directory profiles to leaderboard entries.
// A failing directory degrades to bare user IDs rather than failing the page.
func (s *Server) enrichLeaderboard(r *http.Request, entries []query.LeaderboardEntryDTO) []leaderboardEntryView {
	views := make([]leaderboardEntryView, len(entries))
	for i, e := range entries {
		views[i] = leaderboardEntryView{LeaderboardEntryDTO: e}
	}

	if s.deps.Directory == nil || len(entries) == 0 {
		return views
	}

	userIDs := make([]string, len(entries))
	for i, e := range entries {
		userIDs[i] = e.UserID
	}

	profiles, err := s.deps.Directory.GetProfiles(r.Context(), userIDs)
	if err != nil {
		s.logger.Warn("leaderboard profile enrichment failed",
			logger.Int("entries", len(entries)),
			logger.Err(err),
			logger.String("request_id", getRequestID(r.Context())),
		)
		return views
	}

	for i := range views {
		if p, ok := profiles[views[i].UserID]; ok {
			views[i].DisplayName = p.Name()
			views[i].AvatarURL = p.AvatarURL
		}
	}
	return views
}

// ══════════════════════════════════════════════════════════════════════════════
// PRACTICE & STREAK HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// recordPracticeRequest is the request body for POST /api/v1/practice.
type recordPracticeRequest struct {
	UserID           string    `json:"user_id"`
	CharacterID      string    `json:"character_id"`
	CharacterType    string    `json:"character_type"`
	Accuracy         float64   `json:"accuracy"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
	IsPerfect        bool      `json:"is_perfect"`
	StrokesCorrect   int       `json:"strokes_correct"`
	StrokesTotal     int       `json:"strokes_total"`
	Timestamp        time.Time `json:"timestamp"`
}

// toCommand converts the request body to a command.
func (req recordPracticeRequest) toCommand() command.RecordPracticeCommand {
	return command.RecordPracticeCommand{
		UserID:           req.UserID,
		CharacterID:      req.CharacterID,
		CharacterType:    mastery.CharacterType(strings.ToUpper(req.CharacterType)),
		Accuracy:         req.Accuracy,
		TimeSpentSeconds: req.TimeSpentSeconds,
		IsPerfect:        req.IsPerfect,
		StrokesCorrect:   req.StrokesCorrect,
		StrokesTotal:     req.StrokesTotal,
		Timestamp:        req.Timestamp,
	}
}

// recordPracticeResponse is the response body for a recorded attempt.
type recordPracticeResponse struct {
	UserID          string            `json:"user_id"`
	CharacterID     string            `json:"character_id"`
	SessionXP       int               `json:"session_xp"`
	MasteryCreated  bool              `json:"mastery_created"`
	MasteryPromoted bool              `json:"mastery_promoted"`
	MasteryLevel    string            `json:"mastery_level"`
	NextReviewDate  time.Time         `json:"next_review_date"`
	LeveledUp       bool              `json:"leveled_up"`
	NewLevel        int               `json:"new_level"`
	NewTotalXP      int               `json:"new_total_xp"`
	DailyStreak     int               `json:"daily_streak"`
	StreakExtended  bool              `json:"streak_extended"`
	StreakBroken    bool              `json:"streak_broken"`
	Milestone       *streak.Milestone `json:"milestone,omitempty"`
}

func newRecordPracticeResponse(result *command.RecordPracticeResult) recordPracticeResponse {
	return recordPracticeResponse{
		UserID:          result.UserID,
		CharacterID:     result.CharacterID,
		SessionXP:       result.SessionXP,
		MasteryCreated:  result.MasteryCreated,
		MasteryPromoted: result.MasteryPromoted,
		MasteryLevel:    string(result.MasteryLevel),
		NextReviewDate:  result.NextReviewDate,
		LeveledUp:       result.LeveledUp,
		NewLevel:        result.NewLevel,
		NewTotalXP:      result.NewTotalXP,
		DailyStreak:     result.DailyStreak,
		StreakExtended:  result.StreakExtended,
		StreakBroken:    result.StreakBroken,
		Milestone:       result.Milestone,
	}
}

// handleRecordPractice records a single practice attempt.
func (s *Server) handleRecordPractice(w http.ResponseWriter, r *http.Request) {
	if s.deps.RecordPracticeHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Practice recording is not available")
		return
	}

	var req recordPracticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}

	result, err := s.deps.RecordPracticeHandler.Handle(r.Context(), req.toCommand())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newRecordPracticeResponse(result))
}

// awardXPRequest is the request body for POST /api/v1/users/{id}/xp.
type awardXPRequest struct {
	Source                string         `json:"source"`
	Amount                int            `json:"amount"`
	Description           string         `json:"description"`
	StreakMultiplier      bool           `json:"streak_multiplier"`
	AchievementMultiplier bool           `json:"achievement_multiplier"`
	AchievementReward     int            `json:"achievement_reward"`
	Metadata              map[string]any `json:"metadata"`
}

// handleAwardXP awards XP to a user from an explicit source, e.g. a lesson
// service or achievement system that is not part of the practice flow.
func (s *Server) handleAwardXP(w http.ResponseWriter, r *http.Request) {
	if s.deps.AwardXPHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "XP awarding is not available")
		return
	}

	var req awardXPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}

	result, err := s.deps.AwardXPHandler.Handle(r.Context(), command.AwardXPCommand{
		UserID:                r.PathValue("id"),
		Source:                progress.XPSource(strings.ToUpper(req.Source)),
		Amount:                req.Amount,
		StreakMultiplier:      req.StreakMultiplier,
		AchievementMultiplier: req.AchievementMultiplier,
		AchievementReward:     req.AchievementReward,
		Description:           req.Description,
		Metadata:              req.Metadata,
		CorrelationID:         getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user_id":        result.UserID,
		"awarded_xp":     result.Award.TotalXP,
		"new_total_xp":   result.NewTotalXP,
		"leveled_up":     result.LeveledUp,
		"previous_level": result.PreviousLevel,
		"new_level":      result.NewLevel,
		"level_name":     result.LevelName,
	})
}

// handleFreezeStreak banks a streak freeze for a user.
func (s *Server) handleFreezeStreak(w http.ResponseWriter, r *http.Request) {
	if s.deps.FreezeStreakHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Streak freezing is not available")
		return
	}

	result, err := s.deps.FreezeStreakHandler.Handle(r.Context(), command.FreezeStreakCommand{
		UserID:     r.PathValue("id"),
		StreakType: streak.Type(strings.ToUpper(r.PathValue("type"))),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":      result.UserID,
		"streak_type":  result.StreakType,
		"freeze_count": result.FreezeCount,
		"freeze_limit": result.FreezeLimit,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleResetMastery wipes a character's mastery record for a user.
func (s *Server) handleResetMastery(w http.ResponseWriter, r *http.Request) {
	if s.deps.ResetMasteryHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Mastery reset is not available")
		return
	}

	result, err := s.deps.ResetMasteryHandler.Handle(r.Context(), command.ResetMasteryCommand{
		UserID:      r.PathValue("id"),
		CharacterID: r.PathValue("character_id"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":        result.UserID,
		"character_id":   result.CharacterID,
		"previous_level": result.PreviousLevel,
	})
}

// handleRebuildLeaderboard triggers a leaderboard rebuild for a period.
func (s *Server) handleRebuildLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.RebuildLeaderboardHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Leaderboard rebuilding is not available")
		return
	}

	period, err := leaderboard.ParsePeriod(strings.ToUpper(getQueryParam(r, "period", string(leaderboard.PeriodWeekly))))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	result, err := s.deps.RebuildLeaderboardHandler.Handle(r.Context(), command.RebuildLeaderboardCommand{
		Period: period,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"period":      result.Period,
		"entry_count": result.EntryCount,
		"top_score":   result.TopScore,
		"skipped":     result.Skipped,
		"elapsed_ms":  result.Elapsed.Milliseconds(),
	})
}

// handleCleanupAnalytics triggers a retention sweep over the analytics store.
func (s *Server) handleCleanupAnalytics(w http.ResponseWriter, r *http.Request) {
	if s.deps.CleanupAnalyticsHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Analytics cleanup is not available")
		return
	}

	result, err := s.deps.CleanupAnalyticsHandler.Handle(r.Context(), command.CleanupAnalyticsCommand{
		RetentionDays:       getQueryParamInt(r, "retention_days", 0),
		IncludeTransactions: getQueryParamBool(r, "include_transactions"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cutoff":               result.Cutoff,
		"analytics_deleted":    result.AnalyticsDeleted,
		"transactions_deleted": result.TransactionsDeleted,
		"elapsed_ms":           result.Elapsed.Milliseconds(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// WEBHOOK HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handlePracticeWebhook ingests a batch of practice events from a trusted
// client, e.g. the mobile app flushing an offline session queue.
func (s *Server) handlePracticeWebhook(w http.ResponseWriter, r *http.Request) {
	if s.deps.WebhookHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Practice ingestion is not available")
		return
	}

	if s.config.WebhookSecret != "" {
		secret := r.Header.Get("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(secret), []byte(s.config.WebhookSecret)) != 1 {
			writeJSONError(w, http.StatusUnauthorized, "invalid_secret", "Webhook secret mismatch")
			return
		}
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Failed to read request body")
		return
	}

	if err := s.deps.WebhookHandler.HandlePracticeBatch(r.Context(), payload); err != nil {
		s.logger.Error("practice batch ingestion failed",
			logger.Err(err),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusUnprocessableEntity, "batch_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{"accepted": true})
}
