package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/kanaquest/progress-engine/internal/domain/mastery"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESET MASTERY COMMAND
// Wipes mastery state for one character so the user can relearn it from
// scratch. Earned XP stays in the ledger.
// ══════════════════════════════════════════════════════════════════════════════

// ResetMasteryCommand contains the data to reset a character's mastery.
type ResetMasteryCommand struct {
	// UserID is the ID of the user.
	UserID string

	// CharacterID is the ID of the character to reset.
	CharacterID string
}

// Validate validates the command.
func (c ResetMasteryCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("reset_mastery: user_id is required")
	}
	if c.CharacterID == "" {
		return errors.New("reset_mastery: character_id is required")
	}
	return nil
}

// ResetMasteryResult contains the result of a mastery reset.
type ResetMasteryResult struct {
	// UserID is the ID of the user.
	UserID string

	// CharacterID is the ID of the reset character.
	CharacterID string

	// PreviousLevel is the mastery level before the reset.
	PreviousLevel mastery.Level

	// Events contains domain events generated.
	Events []shared.Event
}

// ResetMasteryHandler handles the ResetMasteryCommand.
type ResetMasteryHandler struct {
	masteryRepo mastery.Repository
	publisher   shared.EventPublisher
	clock       timeutil.Clock
}

// NewResetMasteryHandler creates a new ResetMasteryHandler.
func NewResetMasteryHandler(
	masteryRepo mastery.Repository,
	publisher shared.EventPublisher,
	clock timeutil.Clock,
) *ResetMasteryHandler {
	return &ResetMasteryHandler{
		masteryRepo: masteryRepo,
		publisher:   publisher,
		clock:       clock,
	}
}

// Handle executes the reset mastery command.
func (h *ResetMasteryHandler) Handle(ctx context.Context, cmd ResetMasteryCommand) (*ResetMasteryResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("reset_mastery: validation failed: %w", err)
	}

	m, err := h.masteryRepo.GetMastery(ctx, cmd.UserID, cmd.CharacterID)
	if err != nil {
		return nil, fmt.Errorf("reset_mastery: failed to load mastery: %w", err)
	}

	if err := h.masteryRepo.ResetMastery(ctx, cmd.UserID, cmd.CharacterID); err != nil {
		return nil, fmt.Errorf("reset_mastery: failed to reset mastery: %w", err)
	}

	event := shared.NewMasteryResetEvent(cmd.UserID, cmd.CharacterID, h.clock.Now())
	_ = h.publisher.Publish(event)

	return &ResetMasteryResult{
		UserID:        cmd.UserID,
		CharacterID:   cmd.CharacterID,
		PreviousLevel: m.MasteryLevel,
		Events:        []shared.Event{event},
	}, nil
}
