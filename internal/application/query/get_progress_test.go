package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanaquest/progress-engine/internal/domain/shared"
)

func TestGetProgressCacheMissFallsBackToRepo(t *testing.T) {
	repo := newFakeProgressRepo()
	cache := newFakeProgressCache()
	handler := NewGetProgressHandler(repo, cache)
	ctx := context.Background()

	require.NoError(t, repo.CreateProgress(ctx, seedProgress(testUserID, 450, 50, 3, 150)))

	result, err := handler.Handle(ctx, GetProgressQuery{UserID: testUserID})
	require.NoError(t, err)

	assert.False(t, result.FromCache)
	assert.Equal(t, 450, result.Progress.TotalXP)
	assert.Equal(t, 3, result.Progress.CurrentLevel)
	assert.Equal(t, "Apprentice", result.Progress.LevelName)
	// 50 XP into a 200 XP band
	assert.InDelta(t, 0.25, result.Progress.LevelProgress, 1e-9)

	// Miss fills the cache for the next read
	assert.Equal(t, 1, cache.sets)
}

func TestGetProgressServesFromCache(t *testing.T) {
	repo := newFakeProgressRepo()
	cache := newFakeProgressCache()
	handler := NewGetProgressHandler(repo, cache)
	ctx := context.Background()

	require.NoError(t, cache.SetProgress(ctx, seedProgress(testUserID, 900, 0, 4, 300)))

	result, err := handler.Handle(ctx, GetProgressQuery{UserID: testUserID})
	require.NoError(t, err)

	assert.True(t, result.FromCache)
	assert.Equal(t, 900, result.Progress.TotalXP)
}

func TestGetProgressWorksWithoutCache(t *testing.T) {
	repo := newFakeProgressRepo()
	handler := NewGetProgressHandler(repo, nil)
	ctx := context.Background()

	require.NoError(t, repo.CreateProgress(ctx, seedProgress(testUserID, 100, 100, 1, 100)))

	result, err := handler.Handle(ctx, GetProgressQuery{UserID: testUserID})
	require.NoError(t, err)
	assert.Equal(t, 100, result.Progress.TotalXP)
}

func TestGetProgressUnknownUser(t *testing.T) {
	handler := NewGetProgressHandler(newFakeProgressRepo(), newFakeProgressCache())

	_, err := handler.Handle(context.Background(), GetProgressQuery{UserID: "ghost"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetProgressRequiresUserID(t *testing.T) {
	handler := NewGetProgressHandler(newFakeProgressRepo(), newFakeProgressCache())

	_, err := handler.Handle(context.Background(), GetProgressQuery{})
	assert.True(t, shared.IsValidation(err))
}
