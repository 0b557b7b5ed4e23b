package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanaquest/progress-engine/internal/domain/mastery"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

func TestResetMasteryDeletesRecordAndPublishes(t *testing.T) {
	masteryRepo := newFakeMasteryRepo()
	publisher := &capturingPublisher{}
	now := time.Date(2026, 5, 10, 10, 0, 0, 0, time.UTC)
	handler := NewResetMasteryHandler(masteryRepo, publisher, timeutil.NewFixedClock(now))
	ctx := context.Background()

	attempt := mastery.PracticeAttempt{
		UserID:           testUserID,
		CharacterID:      "kanji-mizu",
		CharacterType:    mastery.TypeKanji,
		Accuracy:         92,
		TimeSpentSeconds: 60,
	}
	m := mastery.NewCharacterMastery("mid-1", attempt, now)
	session := mastery.NewPracticeSession("sid-1", attempt, 20, now)
	require.NoError(t, masteryRepo.SavePracticeResult(ctx, m, session, true))

	result, err := handler.Handle(ctx, ResetMasteryCommand{UserID: testUserID, CharacterID: "kanji-mizu"})
	require.NoError(t, err)

	assert.Equal(t, mastery.LevelLearning, result.PreviousLevel)
	assert.Contains(t, publisher.typesSeen(), shared.EventMasteryReset)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, now, publisher.events[0].OccurredAt())

	_, err = masteryRepo.GetMastery(ctx, testUserID, "kanji-mizu")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestResetMasteryUnknownCharacter(t *testing.T) {
	handler := NewResetMasteryHandler(newFakeMasteryRepo(), &capturingPublisher{},
		timeutil.NewFixedClock(time.Date(2026, 5, 10, 10, 0, 0, 0, time.UTC)))

	_, err := handler.Handle(context.Background(), ResetMasteryCommand{UserID: testUserID, CharacterID: "missing"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
