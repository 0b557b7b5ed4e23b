package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kanaquest/progress-engine/internal/domain/analytics"
	"github.com/kanaquest/progress-engine/internal/domain/mastery"
	"github.com/kanaquest/progress-engine/internal/domain/progress"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/internal/domain/streak"
	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD PRACTICE COMMAND
// The central write path: one practice attempt updates mastery, appends a
// session, awards XP, advances streaks and folds into daily analytics.
// ══════════════════════════════════════════════════════════════════════════════

// RecordPracticeCommand contains the data of a single practice attempt.
type RecordPracticeCommand struct {
	// UserID is the ID of the practicing user.
	UserID string

	// CharacterID is the ID of the practiced character.
	CharacterID string

	// CharacterType is the character script (HIRAGANA, KATAKANA, KANJI).
	CharacterType mastery.CharacterType

	// Accuracy is the attempt accuracy [0, 100].
	Accuracy float64

	// TimeSpentSeconds is the attempt duration in seconds.
	TimeSpentSeconds int

	// IsPerfect marks a flawless attempt.
	IsPerfect bool

	// StrokesCorrect is the number of strokes drawn in the right order.
	StrokesCorrect int

	// StrokesTotal is the number of strokes in the character.
	StrokesTotal int

	// Timestamp is when the attempt happened (defaults to now if zero).
	Timestamp time.Time
}

// attempt converts the command into a domain practice attempt.
func (c RecordPracticeCommand) attempt() mastery.PracticeAttempt {
	return mastery.PracticeAttempt{
		UserID:           c.UserID,
		CharacterID:      c.CharacterID,
		CharacterType:    c.CharacterType,
		Accuracy:         c.Accuracy,
		TimeSpentSeconds: c.TimeSpentSeconds,
		IsPerfect:        c.IsPerfect,
		StrokesCorrect:   c.StrokesCorrect,
		StrokesTotal:     c.StrokesTotal,
	}
}

// Validate validates the command.
func (c RecordPracticeCommand) Validate() error {
	return c.attempt().Validate()
}

// RecordPracticeResult contains the result of recording a practice attempt.
type RecordPracticeResult struct {
	// UserID is the ID of the user.
	UserID string

	// CharacterID is the ID of the practiced character.
	CharacterID string

	// SessionXP is the XP earned by this attempt.
	SessionXP int

	// MasteryCreated indicates this was the first attempt for the character.
	MasteryCreated bool

	// MasteryPromoted indicates the mastery level went up.
	MasteryPromoted bool

	// MasteryLevel is the mastery level after the attempt.
	MasteryLevel mastery.Level

	// NextReviewDate is the recalculated spaced-repetition due date.
	NextReviewDate time.Time

	// LeveledUp indicates the user crossed a level threshold.
	LeveledUp bool

	// NewLevel is the user level after the award.
	NewLevel int

	// NewTotalXP is the total XP after the award.
	NewTotalXP int

	// DailyStreak is the DAILY_PRACTICE streak length after the attempt.
	DailyStreak int

	// StreakExtended indicates the DAILY_PRACTICE streak grew by a day.
	StreakExtended bool

	// StreakBroken indicates the DAILY_PRACTICE streak was reset.
	StreakBroken bool

	// Milestone is the DAILY_PRACTICE milestone reached, if any.
	Milestone *streak.Milestone

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordPracticeHandler handles the RecordPracticeCommand.
type RecordPracticeHandler struct {
	masteryRepo   mastery.Repository
	progressRepo  progress.Repository
	progressCache progress.Cache
	streakRepo    streak.Repository
	analyticsRepo analytics.Repository
	calculator    *progress.Calculator
	curve         *progress.LevelCurve
	publisher     shared.EventPublisher
	clock         timeutil.Clock
}

// NewRecordPracticeHandler creates a new RecordPracticeHandler.
func NewRecordPracticeHandler(
	masteryRepo mastery.Repository,
	progressRepo progress.Repository,
	progressCache progress.Cache,
	streakRepo streak.Repository,
	analyticsRepo analytics.Repository,
	calculator *progress.Calculator,
	curve *progress.LevelCurve,
	publisher shared.EventPublisher,
	clock timeutil.Clock,
) *RecordPracticeHandler {
	return &RecordPracticeHandler{
		masteryRepo:   masteryRepo,
		progressRepo:  progressRepo,
		progressCache: progressCache,
		streakRepo:    streakRepo,
		analyticsRepo: analyticsRepo,
		calculator:    calculator,
		curve:         curve,
		publisher:     publisher,
		clock:         clock,
	}
}

// Handle executes the record practice command.
func (h *RecordPracticeHandler) Handle(ctx context.Context, cmd RecordPracticeCommand) (*RecordPracticeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("record_practice: validation failed: %w", err)
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = h.clock.Now()
	}
	attempt := cmd.attempt()

	result := &RecordPracticeResult{
		UserID:      cmd.UserID,
		CharacterID: cmd.CharacterID,
		Events:      make([]shared.Event, 0, 6),
	}

	// 1. Mastery: create on first attempt, fold in otherwise.
	m, outcome, err := h.applyMastery(ctx, attempt, now)
	if err != nil {
		return nil, fmt.Errorf("record_practice: failed to apply mastery: %w", err)
	}
	result.SessionXP = outcome.SessionXP
	result.MasteryCreated = outcome.Created
	result.MasteryPromoted = outcome.Promoted
	result.MasteryLevel = m.MasteryLevel
	result.NextReviewDate = m.NextReviewDate

	session := mastery.NewPracticeSession(uuid.NewString(), attempt, outcome.SessionXP, now)
	if err := h.masteryRepo.SavePracticeResult(ctx, m, session, outcome.Created); err != nil {
		return nil, fmt.Errorf("record_practice: failed to save practice result: %w", err)
	}

	// 2. Streaks: practice always counts as a login and a practice day,
	// a flawless attempt also feeds the perfect-score streak.
	daily, dailyAdv, err := h.advanceStreak(ctx, cmd.UserID, streak.TypeDailyPractice, now, result)
	if err != nil {
		return nil, fmt.Errorf("record_practice: failed to advance practice streak: %w", err)
	}
	if _, _, err := h.advanceStreak(ctx, cmd.UserID, streak.TypeDailyLogin, now, result); err != nil {
		return nil, fmt.Errorf("record_practice: failed to advance login streak: %w", err)
	}
	if cmd.IsPerfect {
		if _, _, err := h.advanceStreak(ctx, cmd.UserID, streak.TypePerfectScore, now, result); err != nil {
			return nil, fmt.Errorf("record_practice: failed to advance perfect streak: %w", err)
		}
	}
	result.DailyStreak = daily.CurrentCount
	result.StreakExtended = dailyAdv.Extended
	result.StreakBroken = dailyAdv.Broken
	result.Milestone = dailyAdv.Milestone

	// 3. Progress: append the practice award to the ledger. The session XP
	// stays on the session record; the ledger gets the calculator's award.
	prog, err := getOrCreateProgress(ctx, h.progressRepo, h.curve, cmd.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("record_practice: failed to load progress: %w", err)
	}
	previousLevel := prog.CurrentLevel

	award := h.calculator.Calculate(progress.SourceCharacterPractice, progress.AwardContext{
		Description: "Practice session: " + cmd.CharacterID,
	})
	leveledUp := prog.ApplyAward(award, h.curve, now)

	// Denormalized streak copy lives on the progress row
	prog.StreakCount = daily.CurrentCount
	if daily.LongestCount > prog.LongestStreak {
		prog.LongestStreak = daily.LongestCount
	}

	tx := &progress.XPTransaction{
		ID:          uuid.NewString(),
		UserID:      cmd.UserID,
		Amount:      award.TotalXP,
		Source:      award.Source,
		Description: award.Description,
		Metadata: map[string]any{
			"character_id": cmd.CharacterID,
			"accuracy":     cmd.Accuracy,
			"is_perfect":   cmd.IsPerfect,
		},
		CreatedAt: now,
	}
	if err := h.progressRepo.ApplyAward(ctx, prog, tx); err != nil {
		return nil, fmt.Errorf("record_practice: failed to apply XP award: %w", err)
	}
	if h.progressCache != nil {
		_ = h.progressCache.InvalidateUser(ctx, cmd.UserID)
	}

	result.LeveledUp = leveledUp
	result.NewLevel = prog.CurrentLevel
	result.NewTotalXP = prog.TotalXP

	// 4. Analytics: fold the attempt into today's row.
	if err := h.accumulateAnalytics(ctx, cmd, award.TotalXP, dailyAdv.Extended, now); err != nil {
		return nil, fmt.Errorf("record_practice: failed to update analytics: %w", err)
	}

	// 5. Events.
	result.Events = append(result.Events,
		shared.NewPracticeRecordedEvent(cmd.UserID, cmd.CharacterID, cmd.Accuracy, cmd.IsPerfect, outcome.SessionXP, now),
		shared.NewXPAwardedEvent(cmd.UserID, award.TotalXP, prog.TotalXP, award.Source.String(), now),
	)
	if outcome.Promoted {
		result.Events = append(result.Events, shared.NewMasteryPromotedEvent(
			cmd.UserID, cmd.CharacterID, outcome.PreviousLevel.String(), m.MasteryLevel.String(), m.AccuracyScore, now))
	}
	if leveledUp {
		result.Events = append(result.Events, shared.NewLevelUpEvent(
			cmd.UserID, previousLevel, prog.CurrentLevel, prog.LevelName, now))
	}

	for _, event := range result.Events {
		_ = h.publisher.Publish(event)
	}

	return result, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Steps
// ──────────────────────────────────────────────────────────────────────────────

// applyMastery loads or creates the mastery record and applies the attempt.
func (h *RecordPracticeHandler) applyMastery(ctx context.Context, attempt mastery.PracticeAttempt, now time.Time) (*mastery.CharacterMastery, mastery.PracticeOutcome, error) {
	m, err := h.masteryRepo.GetMastery(ctx, attempt.UserID, attempt.CharacterID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, mastery.PracticeOutcome{}, err
		}
		m = mastery.NewCharacterMastery(uuid.NewString(), attempt, now)
		outcome := mastery.PracticeOutcome{
			Created:       true,
			PreviousLevel: mastery.LevelLearning,
			SessionXP:     mastery.SessionXP(attempt.Accuracy, attempt.IsPerfect, attempt.TimeSpentSeconds),
		}
		return m, outcome, nil
	}

	return m, m.ApplyPractice(attempt, now), nil
}

// advanceStreak advances one streak type, persists it and queues its events
// on the result. A missing streak starts at day one.
func (h *RecordPracticeHandler) advanceStreak(ctx context.Context, userID string, streakType streak.Type, now time.Time, result *RecordPracticeResult) (*streak.Streak, streak.AdvanceResult, error) {
	s, err := h.streakRepo.GetStreak(ctx, userID, streakType)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, streak.AdvanceResult{}, err
		}
		s = streak.NewStreak(uuid.NewString(), userID, streakType, now)
		if err := h.streakRepo.CreateStreak(ctx, s); err != nil {
			return nil, streak.AdvanceResult{}, err
		}
		adv := streak.AdvanceResult{Extended: true}
		result.Events = append(result.Events,
			shared.NewStreakExtendedEvent(userID, streakType.String(), s.CurrentCount, s.LongestCount, now))
		return s, adv, nil
	}

	adv := s.Advance(now)
	if err := h.streakRepo.UpdateStreak(ctx, s); err != nil {
		return nil, streak.AdvanceResult{}, err
	}

	if adv.Extended {
		result.Events = append(result.Events,
			shared.NewStreakExtendedEvent(userID, streakType.String(), s.CurrentCount, s.LongestCount, now))
	}
	if adv.Broken {
		result.Events = append(result.Events,
			shared.NewStreakBrokenEvent(userID, streakType.String(), adv.PreviousCount, adv.DaysGap, now))
	}
	if adv.Milestone != nil {
		result.Events = append(result.Events, shared.NewStreakMilestoneReachedEvent(
			userID, streakType.String(), adv.Milestone.Days, adv.Milestone.XPReward, adv.Milestone.Badge, now))
	}
	return s, adv, nil
}

// accumulateAnalytics folds the attempt into the daily analytics row.
func (h *RecordPracticeHandler) accumulateAnalytics(ctx context.Context, cmd RecordPracticeCommand, xpEarned int, streakExtended bool, now time.Time) error {
	row, err := h.analyticsRepo.GetDaily(ctx, cmd.UserID, timeutil.StartOfDay(now))
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		row = analytics.NewUserAnalytics(uuid.NewString(), cmd.UserID, now)
	}

	row.Accumulate(cmd.TimeSpentSeconds/60, cmd.Accuracy, xpEarned, now)
	if streakExtended {
		row.MarkStreakMaintained(now)
	}
	return h.analyticsRepo.UpsertDaily(ctx, row)
}

// getOrCreateProgress loads the user's progress row, creating a fresh
// level-1 row on first practice. Practice ingestion is the only path that
// brings a new user into the system.
func getOrCreateProgress(
	ctx context.Context,
	repo progress.Repository,
	curve *progress.LevelCurve,
	userID string,
	now time.Time,
) (*progress.UserProgress, error) {
	prog, err := repo.GetProgress(ctx, userID)
	if err == nil {
		return prog, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	info := curve.LevelFor(0)
	prog = &progress.UserProgress{
		UserID:        userID,
		CurrentLevel:  info.Level,
		XPToNextLevel: info.XPToNext,
		LevelName:     info.Name,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := repo.CreateProgress(ctx, prog); err != nil {
		// Lost a create race: another writer owns the row now
		if errors.Is(err, shared.ErrAlreadyExists) {
			return repo.GetProgress(ctx, userID)
		}
		return nil, err
	}
	return prog, nil
}
