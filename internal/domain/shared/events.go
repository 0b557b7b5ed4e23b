// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Progress events
	EventXPAwarded EventType = "progress.xp_awarded"
	EventLevelUp   EventType = "progress.level_up"

	// Mastery events
	EventPracticeRecorded EventType = "mastery.practice_recorded"
	EventMasteryPromoted  EventType = "mastery.promoted"
	EventMasteryReset     EventType = "mastery.reset"

	// Streak events
	EventStreakExtended         EventType = "streak.extended"
	EventStreakBroken           EventType = "streak.broken"
	EventStreakFrozen           EventType = "streak.frozen"
	EventStreakMilestoneReached EventType = "streak.milestone_reached"

	// Leaderboard events
	EventLeaderboardRebuilt EventType = "leaderboard.rebuilt"

	// Analytics events
	EventAnalyticsRolledUp EventType = "analytics.rolled_up"

	// System events
	EventSweepCompleted EventType = "system.sweep_completed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event. The caller supplies the
// timestamp so event time follows the application clock.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// XPAwardedEvent is emitted after an XP transaction is committed.
type XPAwardedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	Amount   int    `json:"amount"`
	NewTotal int    `json:"new_total"`
	Source   string `json:"source"`
}

// Payload implements Event interface.
func (e XPAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"amount":    e.Amount,
		"new_total": e.NewTotal,
		"source":    e.Source,
	}
}

// NewXPAwardedEvent creates a new XPAwardedEvent.
func NewXPAwardedEvent(userID string, amount, newTotal int, source string, at time.Time) XPAwardedEvent {
	return XPAwardedEvent{
		BaseEvent: NewBaseEvent(EventXPAwarded, userID, at),
		UserID:    userID,
		Amount:    amount,
		NewTotal:  newTotal,
		Source:    source,
	}
}

// LevelUpEvent is emitted when an XP award pushes a user past a level threshold.
type LevelUpEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	PreviousLevel int    `json:"previous_level"`
	NewLevel      int    `json:"new_level"`
	LevelName     string `json:"level_name"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"previous_level": e.PreviousLevel,
		"new_level":      e.NewLevel,
		"level_name":     e.LevelName,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID string, previousLevel, newLevel int, levelName string, at time.Time) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent:     NewBaseEvent(EventLevelUp, userID, at),
		UserID:        userID,
		PreviousLevel: previousLevel,
		NewLevel:      newLevel,
		LevelName:     levelName,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Mastery Events
// ═══════════════════════════════════════════════════════════════════════════

// PracticeRecordedEvent is emitted after a practice attempt is committed.
type PracticeRecordedEvent struct {
	BaseEvent
	UserID      string  `json:"user_id"`
	CharacterID string  `json:"character_id"`
	Accuracy    float64 `json:"accuracy"`
	IsPerfect   bool    `json:"is_perfect"`
	SessionXP   int     `json:"session_xp"`
}

// Payload implements Event interface.
func (e PracticeRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      e.UserID,
		"character_id": e.CharacterID,
		"accuracy":     e.Accuracy,
		"is_perfect":   e.IsPerfect,
		"session_xp":   e.SessionXP,
	}
}

// NewPracticeRecordedEvent creates a new PracticeRecordedEvent.
func NewPracticeRecordedEvent(userID, characterID string, accuracy float64, isPerfect bool, sessionXP int, at time.Time) PracticeRecordedEvent {
	return PracticeRecordedEvent{
		BaseEvent:   NewBaseEvent(EventPracticeRecorded, userID, at),
		UserID:      userID,
		CharacterID: characterID,
		Accuracy:    accuracy,
		IsPerfect:   isPerfect,
		SessionXP:   sessionXP,
	}
}

// MasteryResetEvent is emitted after an administrative mastery reset.
type MasteryResetEvent struct {
	BaseEvent
	UserID      string `json:"user_id"`
	CharacterID string `json:"character_id"`
}

// Payload implements Event interface.
func (e MasteryResetEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      e.UserID,
		"character_id": e.CharacterID,
	}
}

// NewMasteryResetEvent creates a new MasteryResetEvent.
func NewMasteryResetEvent(userID, characterID string, at time.Time) MasteryResetEvent {
	return MasteryResetEvent{
		BaseEvent:   NewBaseEvent(EventMasteryReset, userID, at),
		UserID:      userID,
		CharacterID: characterID,
	}
}

// MasteryPromotedEvent is emitted when a character crosses a mastery band.
type MasteryPromotedEvent struct {
	BaseEvent
	UserID        string  `json:"user_id"`
	CharacterID   string  `json:"character_id"`
	PreviousLevel string  `json:"previous_level"`
	NewLevel      string  `json:"new_level"`
	AccuracyScore float64 `json:"accuracy_score"`
}

// Payload implements Event interface.
func (e MasteryPromotedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"character_id":   e.CharacterID,
		"previous_level": e.PreviousLevel,
		"new_level":      e.NewLevel,
		"accuracy_score": e.AccuracyScore,
	}
}

// NewMasteryPromotedEvent creates a new MasteryPromotedEvent.
func NewMasteryPromotedEvent(userID, characterID, previousLevel, newLevel string, accuracy float64, at time.Time) MasteryPromotedEvent {
	return MasteryPromotedEvent{
		BaseEvent:     NewBaseEvent(EventMasteryPromoted, userID, at),
		UserID:        userID,
		CharacterID:   characterID,
		PreviousLevel: previousLevel,
		NewLevel:      newLevel,
		AccuracyScore: accuracy,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Streak Events
// ═══════════════════════════════════════════════════════════════════════════

// StreakExtendedEvent is emitted when a streak count increases.
type StreakExtendedEvent struct {
	BaseEvent
	UserID       string `json:"user_id"`
	StreakType   string `json:"streak_type"`
	CurrentCount int    `json:"current_count"`
	LongestCount int    `json:"longest_count"`
}

// Payload implements Event interface.
func (e StreakExtendedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":       e.UserID,
		"streak_type":   e.StreakType,
		"current_count": e.CurrentCount,
		"longest_count": e.LongestCount,
	}
}

// NewStreakExtendedEvent creates a new StreakExtendedEvent.
func NewStreakExtendedEvent(userID, streakType string, currentCount, longestCount int, at time.Time) StreakExtendedEvent {
	return StreakExtendedEvent{
		BaseEvent:    NewBaseEvent(EventStreakExtended, userID, at),
		UserID:       userID,
		StreakType:   streakType,
		CurrentCount: currentCount,
		LongestCount: longestCount,
	}
}

// StreakBrokenEvent is emitted when a gap exceeds the freeze allowance.
type StreakBrokenEvent struct {
	BaseEvent
	UserID         string `json:"user_id"`
	StreakType     string `json:"streak_type"`
	PreviousStreak int    `json:"previous_streak"`
	DaysMissed     int    `json:"days_missed"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"streak_type":     e.StreakType,
		"previous_streak": e.PreviousStreak,
		"days_missed":     e.DaysMissed,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(userID, streakType string, previousStreak, daysMissed int, at time.Time) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, userID, at),
		UserID:         userID,
		StreakType:     streakType,
		PreviousStreak: previousStreak,
		DaysMissed:     daysMissed,
	}
}

// StreakFrozenEvent is emitted when a freeze is added to a streak.
type StreakFrozenEvent struct {
	BaseEvent
	UserID      string `json:"user_id"`
	StreakType  string `json:"streak_type"`
	FreezeCount int    `json:"freeze_count"`
}

// Payload implements Event interface.
func (e StreakFrozenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      e.UserID,
		"streak_type":  e.StreakType,
		"freeze_count": e.FreezeCount,
	}
}

// NewStreakFrozenEvent creates a new StreakFrozenEvent.
func NewStreakFrozenEvent(userID, streakType string, freezeCount int, at time.Time) StreakFrozenEvent {
	return StreakFrozenEvent{
		BaseEvent:   NewBaseEvent(EventStreakFrozen, userID, at),
		UserID:      userID,
		StreakType:  streakType,
		FreezeCount: freezeCount,
	}
}

// StreakMilestoneReachedEvent is emitted when a streak hits a milestone day count.
type StreakMilestoneReachedEvent struct {
	BaseEvent
	UserID     string `json:"user_id"`
	StreakType string `json:"streak_type"`
	Days       int    `json:"days"`
	XPReward   int    `json:"xp_reward"`
	Badge      string `json:"badge"`
}

// Payload implements Event interface.
func (e StreakMilestoneReachedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"streak_type": e.StreakType,
		"days":        e.Days,
		"xp_reward":   e.XPReward,
		"badge":       e.Badge,
	}
}

// NewStreakMilestoneReachedEvent creates a new StreakMilestoneReachedEvent.
func NewStreakMilestoneReachedEvent(userID, streakType string, days, xpReward int, badge string, at time.Time) StreakMilestoneReachedEvent {
	return StreakMilestoneReachedEvent{
		BaseEvent:  NewBaseEvent(EventStreakMilestoneReached, userID, at),
		UserID:     userID,
		StreakType: streakType,
		Days:       days,
		XPReward:   xpReward,
		Badge:      badge,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Leaderboard Events
// ═══════════════════════════════════════════════════════════════════════════

// LeaderboardRebuiltEvent is emitted after a full period recomputation.
type LeaderboardRebuiltEvent struct {
	BaseEvent
	Period     string        `json:"period"`
	EntryCount int           `json:"entry_count"`
	TopScore   int           `json:"top_score"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Payload implements Event interface.
func (e LeaderboardRebuiltEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"period":      e.Period,
		"entry_count": e.EntryCount,
		"top_score":   e.TopScore,
		"elapsed":     e.Elapsed.String(),
	}
}

// NewLeaderboardRebuiltEvent creates a new LeaderboardRebuiltEvent.
func NewLeaderboardRebuiltEvent(period string, entryCount, topScore int, elapsed time.Duration, at time.Time) LeaderboardRebuiltEvent {
	return LeaderboardRebuiltEvent{
		BaseEvent:  NewBaseEvent(EventLeaderboardRebuilt, period, at),
		Period:     period,
		EntryCount: entryCount,
		TopScore:   topScore,
		Elapsed:    elapsed,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// System Events
// ═══════════════════════════════════════════════════════════════════════════

// SweepCompletedEvent is emitted after a maintenance sweep finishes.
type SweepCompletedEvent struct {
	BaseEvent
	SweepName string        `json:"sweep_name"`
	Affected  int           `json:"affected"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Payload implements Event interface.
func (e SweepCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"sweep_name": e.SweepName,
		"affected":   e.Affected,
		"elapsed":    e.Elapsed.String(),
	}
}

// NewSweepCompletedEvent creates a new SweepCompletedEvent.
func NewSweepCompletedEvent(sweepName string, affected int, elapsed time.Duration, at time.Time) SweepCompletedEvent {
	return SweepCompletedEvent{
		BaseEvent: NewBaseEvent(EventSweepCompleted, sweepName, at),
		SweepName: sweepName,
		Affected:  affected,
		Elapsed:   elapsed,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Publishing
// ═══════════════════════════════════════════════════════════════════════════

// EventPublisher publishes domain events to interested subscribers.
type EventPublisher interface {
	Publish(event Event) error
}

// EventHandler processes a single published event.
type EventHandler func(event Event) error

// EventBus is the publish/subscribe surface implemented by the messaging layer.
type EventBus interface {
	EventPublisher

	// Subscribe registers a handler for a specific event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error

	// Close shuts down the bus and waits for in-flight handlers.
	Close() error
}
