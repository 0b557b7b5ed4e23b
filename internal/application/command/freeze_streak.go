package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/internal/domain/streak"
	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// FREEZE STREAK COMMAND
// Banks one streak freeze so a missed day does not break the streak.
// ══════════════════════════════════════════════════════════════════════════════

// FreezeStreakCommand contains the data to bank a streak freeze.
type FreezeStreakCommand struct {
	// UserID is the ID of the user.
	UserID string

	// StreakType is the streak to protect.
	StreakType streak.Type
}

// Validate validates the command.
func (c FreezeStreakCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("freeze_streak: user_id is required")
	}
	if !c.StreakType.IsValid() {
		return shared.ErrInvalidStreakType
	}
	return nil
}

// FreezeStreakResult contains the result of banking a freeze.
type FreezeStreakResult struct {
	// UserID is the ID of the user.
	UserID string

	// StreakType is the protected streak type.
	StreakType streak.Type

	// FreezeCount is the freeze balance after banking.
	FreezeCount int

	// FreezeLimit is the configured maximum balance.
	FreezeLimit int

	// Events contains domain events generated.
	Events []shared.Event
}

// FreezeStreakHandlerConfig contains configuration for the handler.
type FreezeStreakHandlerConfig struct {
	// FreezeLimit is the maximum number of banked freezes per streak.
	FreezeLimit int
}

// DefaultFreezeStreakHandlerConfig returns the default configuration.
func DefaultFreezeStreakHandlerConfig() FreezeStreakHandlerConfig {
	return FreezeStreakHandlerConfig{
		FreezeLimit: 3,
	}
}

// FreezeStreakHandler handles the FreezeStreakCommand.
type FreezeStreakHandler struct {
	streakRepo streak.Repository
	publisher  shared.EventPublisher
	clock      timeutil.Clock
	config     FreezeStreakHandlerConfig
}

// NewFreezeStreakHandler creates a new FreezeStreakHandler.
func NewFreezeStreakHandler(
	streakRepo streak.Repository,
	publisher shared.EventPublisher,
	clock timeutil.Clock,
	config FreezeStreakHandlerConfig,
) *FreezeStreakHandler {
	return &FreezeStreakHandler{
		streakRepo: streakRepo,
		publisher:  publisher,
		clock:      clock,
		config:     config,
	}
}

// Handle executes the freeze streak command.
func (h *FreezeStreakHandler) Handle(ctx context.Context, cmd FreezeStreakCommand) (*FreezeStreakResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("freeze_streak: validation failed: %w", err)
	}

	s, err := h.streakRepo.GetStreak(ctx, cmd.UserID, cmd.StreakType)
	if err != nil {
		return nil, fmt.Errorf("freeze_streak: failed to load streak: %w", err)
	}

	if err := s.Freeze(h.config.FreezeLimit); err != nil {
		return nil, err
	}
	now := h.clock.Now()
	s.UpdatedAt = now

	if err := h.streakRepo.UpdateStreak(ctx, s); err != nil {
		return nil, fmt.Errorf("freeze_streak: failed to update streak: %w", err)
	}

	event := shared.NewStreakFrozenEvent(cmd.UserID, cmd.StreakType.String(), s.FreezeCount, now)
	_ = h.publisher.Publish(event)

	return &FreezeStreakResult{
		UserID:      cmd.UserID,
		StreakType:  cmd.StreakType,
		FreezeCount: s.FreezeCount,
		FreezeLimit: h.config.FreezeLimit,
		Events:      []shared.Event{event},
	}, nil
}
