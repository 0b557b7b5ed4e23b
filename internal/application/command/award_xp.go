// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kanaquest/progress-engine/internal/domain/progress"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// AWARD XP COMMAND
// Awards XP from any source, appends an immutable ledger transaction and
// recomputes the level in one storage transaction.
// ══════════════════════════════════════════════════════════════════════════════

// AwardXPCommand contains the data to award XP to a user.
type AwardXPCommand struct {
	// UserID is the ID of the user receiving XP.
	UserID string

	// Source is the XP source.
	Source progress.XPSource

	// Amount overrides the source base award when positive
	// (used for milestone rewards with table-driven values).
	Amount int

	// StreakMultiplier applies the active-streak multiplier.
	StreakMultiplier bool

	// AchievementMultiplier applies the achievement multiplier.
	AchievementMultiplier bool

	// AchievementReward is the explicit reward for ACHIEVEMENT_UNLOCK.
	AchievementReward int

	// StreakCount is the streak length for STREAK_MILESTONE awards.
	StreakCount int

	// Description overrides the default ledger description.
	Description string

	// Metadata is stored on the ledger transaction.
	Metadata map[string]any

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c AwardXPCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("award_xp: user_id is required")
	}
	if !c.Source.IsValid() {
		return shared.ErrInvalidXPSource
	}
	if c.Amount < 0 {
		return errors.New("award_xp: amount cannot be negative")
	}
	return nil
}

// AwardXPResult contains the result of awarding XP.
type AwardXPResult struct {
	// UserID is the ID of the user.
	UserID string

	// Award is the computed award.
	Award progress.XPAward

	// NewTotalXP is the total XP after the award.
	NewTotalXP int

	// LeveledUp indicates a level threshold was crossed.
	LeveledUp bool

	// PreviousLevel is the level before the award.
	PreviousLevel int

	// NewLevel is the level after the award.
	NewLevel int

	// LevelName is the level band name after the award.
	LevelName string

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AwardXPHandler handles the AwardXPCommand.
type AwardXPHandler struct {
	progressRepo  progress.Repository
	progressCache progress.Cache
	calculator    *progress.Calculator
	curve         *progress.LevelCurve
	publisher     shared.EventPublisher
	clock         timeutil.Clock
}

// NewAwardXPHandler creates a new AwardXPHandler.
func NewAwardXPHandler(
	progressRepo progress.Repository,
	progressCache progress.Cache,
	calculator *progress.Calculator,
	curve *progress.LevelCurve,
	publisher shared.EventPublisher,
	clock timeutil.Clock,
) *AwardXPHandler {
	return &AwardXPHandler{
		progressRepo:  progressRepo,
		progressCache: progressCache,
		calculator:    calculator,
		curve:         curve,
		publisher:     publisher,
		clock:         clock,
	}
}

// Handle executes the award XP command.
func (h *AwardXPHandler) Handle(ctx context.Context, cmd AwardXPCommand) (*AwardXPResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("award_xp: validation failed: %w", err)
	}

	now := h.clock.Now()

	// Awards land on existing users only; the row is created by the
	// practice ingestion path, not here.
	prog, err := h.progressRepo.GetProgress(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("award_xp: failed to load progress: %w", err)
	}

	award := h.buildAward(cmd)
	previousLevel := prog.CurrentLevel

	leveledUp := prog.ApplyAward(award, h.curve, now)

	tx := &progress.XPTransaction{
		ID:          uuid.NewString(),
		UserID:      cmd.UserID,
		Amount:      award.TotalXP,
		Source:      award.Source,
		Description: award.Description,
		Metadata:    cmd.Metadata,
		CreatedAt:   now,
	}
	if err := tx.Validate(); err != nil {
		return nil, fmt.Errorf("award_xp: invalid transaction: %w", err)
	}

	if err := h.progressRepo.ApplyAward(ctx, prog, tx); err != nil {
		return nil, fmt.Errorf("award_xp: failed to apply award: %w", err)
	}

	// Cached snapshot is stale after any award
	if h.progressCache != nil {
		_ = h.progressCache.InvalidateUser(ctx, cmd.UserID)
	}

	result := &AwardXPResult{
		UserID:        cmd.UserID,
		Award:         award,
		NewTotalXP:    prog.TotalXP,
		LeveledUp:     leveledUp,
		PreviousLevel: previousLevel,
		NewLevel:      prog.CurrentLevel,
		LevelName:     prog.LevelName,
		Events:        make([]shared.Event, 0, 2),
	}

	awarded := shared.NewXPAwardedEvent(cmd.UserID, award.TotalXP, prog.TotalXP, award.Source.String(), now)
	if cmd.CorrelationID != "" {
		awarded.BaseEvent = awarded.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, awarded)

	if leveledUp {
		levelUp := shared.NewLevelUpEvent(cmd.UserID, previousLevel, prog.CurrentLevel, prog.LevelName, now)
		if cmd.CorrelationID != "" {
			levelUp.BaseEvent = levelUp.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		result.Events = append(result.Events, levelUp)
	}

	for _, event := range result.Events {
		_ = h.publisher.Publish(event)
	}

	return result, nil
}

// buildAward computes the award, honoring an explicit amount override.
func (h *AwardXPHandler) buildAward(cmd AwardXPCommand) progress.XPAward {
	awardCtx := progress.AwardContext{
		StreakMultiplier:      cmd.StreakMultiplier,
		AchievementMultiplier: cmd.AchievementMultiplier,
		AchievementReward:     cmd.AchievementReward,
		StreakCount:           cmd.StreakCount,
		Description:           cmd.Description,
		Extra:                 cmd.Metadata,
	}

	award := h.calculator.Calculate(cmd.Source, awardCtx)
	if cmd.Amount > 0 {
		award.BaseXP = cmd.Amount
		award.Multiplier = 1.0
		award.BonusXP = 0
		award.TotalXP = cmd.Amount
	}
	return award
}
