package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(userID string, score int) *Entry {
	return &Entry{
		UserID:       userID,
		Period:       PeriodWeekly,
		Score:        score,
		CalculatedAt: time.Date(2026, 3, 18, 12, 0, 0, 0, time.UTC),
	}
}

func buildRanking(t *testing.T, entries ...*Entry) *Ranking {
	t.Helper()
	r := NewRanking()
	for _, e := range entries {
		require.NoError(t, r.Add(e))
	}
	r.SortByScore()
	return r
}

func TestAddRejectsNilAndDuplicates(t *testing.T) {
	r := NewRanking()

	assert.ErrorIs(t, r.Add(nil), ErrNilEntry)

	require.NoError(t, r.Add(entry("u1", 100)))
	assert.ErrorIs(t, r.Add(entry("u1", 200)), ErrDuplicateUser)
}

func TestSortByScoreSharedRanks(t *testing.T) {
	// Two users at 1000 share rank 1, the 900 user gets rank 3.
	r := buildRanking(t,
		entry("u2", 1000),
		entry("u3", 900),
		entry("u1", 1000),
	)

	all := r.All()
	require.Len(t, all, 3)

	assert.Equal(t, "u1", all[0].UserID)
	assert.Equal(t, 1, all[0].Rank)
	assert.Equal(t, "u2", all[1].UserID)
	assert.Equal(t, 1, all[1].Rank)
	assert.Equal(t, "u3", all[2].UserID)
	assert.Equal(t, 3, all[2].Rank)
}

func TestSortByScoreTieOrderIsDeterministic(t *testing.T) {
	r := buildRanking(t,
		entry("zeta", 500),
		entry("alpha", 500),
		entry("mid", 500),
	)

	all := r.All()
	assert.Equal(t, "alpha", all[0].UserID)
	assert.Equal(t, "mid", all[1].UserID)
	assert.Equal(t, "zeta", all[2].UserID)
	for _, e := range all {
		assert.Equal(t, 1, e.Rank)
	}
}

func TestRankOf(t *testing.T) {
	r := buildRanking(t,
		entry("u1", 1000),
		entry("u2", 1000),
		entry("u3", 900),
		entry("u4", 800),
	)

	assert.Equal(t, 1, r.RankOf("u1"))
	assert.Equal(t, 1, r.RankOf("u2"))
	assert.Equal(t, 3, r.RankOf("u3"))
	assert.Equal(t, 4, r.RankOf("u4"))
	assert.Equal(t, 0, r.RankOf("missing"))
}

func TestPercentile(t *testing.T) {
	r := buildRanking(t,
		entry("u1", 400),
		entry("u2", 300),
		entry("u3", 200),
		entry("u4", 100),
	)

	assert.Equal(t, 100.0, r.Percentile("u1"))
	assert.Equal(t, 75.0, r.Percentile("u2"))
	assert.Equal(t, 25.0, r.Percentile("u4"))
	assert.Equal(t, 0.0, r.Percentile("missing"))
	assert.Equal(t, 0.0, NewRanking().Percentile("u1"))
}

func TestTopAndSlice(t *testing.T) {
	r := buildRanking(t,
		entry("u1", 300),
		entry("u2", 200),
		entry("u3", 100),
	)

	top := r.Top(2)
	require.Len(t, top, 2)
	assert.Equal(t, "u1", top[0].UserID)

	assert.Len(t, r.Top(10), 3)
	assert.Nil(t, r.Top(0))

	slice := r.Slice(1, 3)
	require.Len(t, slice, 2)
	assert.Equal(t, "u2", slice[0].UserID)
	assert.Nil(t, r.Slice(3, 5))
}

func TestBoardFromRanking(t *testing.T) {
	r := buildRanking(t,
		entry("u1", 300),
		entry("u2", 200),
		entry("u3", 100),
	)

	at := time.Date(2026, 3, 18, 6, 0, 0, 0, time.UTC)
	board := NewBoard(PeriodWeekly, r, at)

	assert.Equal(t, 3, board.TotalUsers)
	assert.Equal(t, 600, board.TotalScore)
	assert.Equal(t, 200, board.AverageScore)
	assert.True(t, board.Contains("u2"))
	assert.False(t, board.Contains("u9"))

	info := board.RankInfoFor("u2")
	require.NotNil(t, info)
	assert.Equal(t, 2, info.Rank)
	assert.Equal(t, 3, info.TotalUsers)
	assert.InDelta(t, 66.66, info.Percentile, 0.01)

	assert.Nil(t, board.RankInfoFor("u9"))
}

func TestBoardPaging(t *testing.T) {
	r := NewRanking()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, r.Add(entry(id, 100)))
	}
	r.SortByScore()

	board := NewBoard(PeriodDaily, r, time.Now().UTC())

	page := board.Page(2, 2)
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].UserID)

	assert.Len(t, board.Page(3, 2), 1)
	assert.Nil(t, board.Page(4, 2))
	assert.Equal(t, 3, board.TotalPages(2))
}

func TestBoardNeighbors(t *testing.T) {
	r := buildRanking(t,
		entry("u1", 500),
		entry("u2", 400),
		entry("u3", 300),
		entry("u4", 200),
		entry("u5", 100),
	)
	board := NewBoard(PeriodDaily, r, time.Now().UTC())

	around := board.Neighbors("u3", 1)
	require.Len(t, around, 3)
	assert.Equal(t, "u2", around[0].UserID)
	assert.Equal(t, "u4", around[2].UserID)

	edge := board.Neighbors("u1", 2)
	require.Len(t, edge, 3)
	assert.Equal(t, "u1", edge[0].UserID)

	assert.Nil(t, board.Neighbors("missing", 1))
}

func TestEmptyBoard(t *testing.T) {
	board := NewBoard(PeriodDaily, nil, time.Now().UTC())

	assert.True(t, board.IsEmpty())
	assert.Equal(t, 0, board.Count())
	assert.Nil(t, board.RankInfoFor("u1"))
}
