package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kanaquest/progress-engine/internal/domain/analytics"
	"github.com/kanaquest/progress-engine/internal/domain/leaderboard"
	"github.com/kanaquest/progress-engine/internal/domain/mastery"
	"github.com/kanaquest/progress-engine/internal/domain/progress"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/internal/domain/streak"
)

const testUserID = "user-1"

// In-memory fakes for query handler tests. Read paths only need the
// lookup methods, the rest of each interface is implemented just enough
// to compile and fail loudly if a handler starts writing.

// ──────────────────────────────────────────────────────────────────────────────
// Progress
// ──────────────────────────────────────────────────────────────────────────────

type fakeProgressRepo struct {
	rows map[string]*progress.UserProgress
	txs  []*progress.XPTransaction
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{rows: make(map[string]*progress.UserProgress)}
}

func (f *fakeProgressRepo) GetProgress(_ context.Context, userID string) (*progress.UserProgress, error) {
	row, ok := f.rows[userID]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	clone := *row
	return &clone, nil
}

func (f *fakeProgressRepo) CreateProgress(_ context.Context, p *progress.UserProgress) error {
	clone := *p
	f.rows[p.UserID] = &clone
	return nil
}

func (f *fakeProgressRepo) UpdateProgress(_ context.Context, p *progress.UserProgress) error {
	clone := *p
	f.rows[p.UserID] = &clone
	return nil
}

func (f *fakeProgressRepo) ListUserIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.rows))
	for id := range f.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeProgressRepo) ApplyAward(_ context.Context, p *progress.UserProgress, tx *progress.XPTransaction) error {
	clone := *p
	f.rows[p.UserID] = &clone
	txClone := *tx
	f.txs = append(f.txs, &txClone)
	return nil
}

func (f *fakeProgressRepo) ListTransactions(_ context.Context, userID string, filter progress.TransactionFilter) ([]*progress.XPTransaction, error) {
	var out []*progress.XPTransaction
	for i := len(f.txs) - 1; i >= 0; i-- {
		tx := f.txs[i]
		if tx.UserID != userID {
			continue
		}
		if filter.Source != nil && tx.Source != *filter.Source {
			continue
		}
		if !filter.From.IsZero() && tx.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && tx.CreatedAt.After(filter.To) {
			continue
		}
		out = append(out, tx)
	}
	if filter.Offset > 0 && filter.Offset < len(out) {
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeProgressRepo) SumTransactions(_ context.Context, userID string) (int, error) {
	sum := 0
	for _, tx := range f.txs {
		if tx.UserID == userID {
			sum += tx.Amount
		}
	}
	return sum, nil
}

func (f *fakeProgressRepo) SumTransactionsInWindow(_ context.Context, userID string, from, to time.Time) (int, error) {
	sum := 0
	for _, tx := range f.txs {
		if tx.UserID == userID && !tx.CreatedAt.Before(from) && !tx.CreatedAt.After(to) {
			sum += tx.Amount
		}
	}
	return sum, nil
}

func (f *fakeProgressRepo) SumBySource(context.Context, string, time.Time, time.Time) ([]progress.SourceTotal, error) {
	return nil, nil
}

func (f *fakeProgressRepo) CountDistinctActivityDays(context.Context, string, time.Time, time.Time) (int, error) {
	return 0, nil
}

func (f *fakeProgressRepo) DeleteTransactionsBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type fakeProgressCache struct {
	rows map[string]*progress.UserProgress
	sets int
}

func newFakeProgressCache() *fakeProgressCache {
	return &fakeProgressCache{rows: make(map[string]*progress.UserProgress)}
}

func (f *fakeProgressCache) GetProgress(_ context.Context, userID string) (*progress.UserProgress, error) {
	row, ok := f.rows[userID]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return row, nil
}

func (f *fakeProgressCache) SetProgress(_ context.Context, p *progress.UserProgress) error {
	f.rows[p.UserID] = p
	f.sets++
	return nil
}

func (f *fakeProgressCache) InvalidateUser(_ context.Context, userID string) error {
	delete(f.rows, userID)
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Leaderboard
// ──────────────────────────────────────────────────────────────────────────────

type fakeBoardRepo struct {
	entries map[leaderboard.Period][]*leaderboard.Entry
}

func newFakeBoardRepo() *fakeBoardRepo {
	return &fakeBoardRepo{entries: make(map[leaderboard.Period][]*leaderboard.Entry)}
}

func (f *fakeBoardRepo) ReplaceEntries(_ context.Context, period leaderboard.Period, entries []*leaderboard.Entry) error {
	f.entries[period] = entries
	return nil
}

func (f *fakeBoardRepo) ListEntries(_ context.Context, period leaderboard.Period, limit, offset int) ([]*leaderboard.Entry, error) {
	all := f.entries[period]
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f *fakeBoardRepo) CountEntries(_ context.Context, period leaderboard.Period) (int, error) {
	return len(f.entries[period]), nil
}

func (f *fakeBoardRepo) GetEntry(_ context.Context, userID string, period leaderboard.Period) (*leaderboard.Entry, error) {
	for _, e := range f.entries[period] {
		if e.UserID == userID {
			return e, nil
		}
	}
	return nil, shared.ErrRankNotFound
}

type fakeBoardCache struct {
	pages    map[string][]*leaderboard.Entry
	ranks    map[string]*leaderboard.RankInfo
	pageSets int
	rankSets int
}

func newFakeBoardCache() *fakeBoardCache {
	return &fakeBoardCache{
		pages: make(map[string][]*leaderboard.Entry),
		ranks: make(map[string]*leaderboard.RankInfo),
	}
}

func pageKey(period leaderboard.Period, limit, offset int) string {
	return fmt.Sprintf("%s/%d/%d", period, limit, offset)
}

func (f *fakeBoardCache) GetPage(_ context.Context, period leaderboard.Period, limit, offset int) ([]*leaderboard.Entry, error) {
	page, ok := f.pages[pageKey(period, limit, offset)]
	if !ok {
		return nil, shared.ErrRankNotFound
	}
	return page, nil
}

func (f *fakeBoardCache) SetPage(_ context.Context, period leaderboard.Period, limit, offset int, entries []*leaderboard.Entry) error {
	f.pages[pageKey(period, limit, offset)] = entries
	f.pageSets++
	return nil
}

func (f *fakeBoardCache) GetRank(_ context.Context, userID string, period leaderboard.Period) (*leaderboard.RankInfo, error) {
	info, ok := f.ranks[userID+"/"+string(period)]
	if !ok {
		return nil, shared.ErrRankNotFound
	}
	return info, nil
}

func (f *fakeBoardCache) SetRank(_ context.Context, info *leaderboard.RankInfo) error {
	f.ranks[info.UserID+"/"+string(info.Period)] = info
	f.rankSets++
	return nil
}

func (f *fakeBoardCache) InvalidatePeriod(_ context.Context, period leaderboard.Period) error {
	for key := range f.pages {
		if strings.HasPrefix(key, string(period)+"/") {
			delete(f.pages, key)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Mastery
// ──────────────────────────────────────────────────────────────────────────────

type fakeMasteryRepo struct {
	rows map[string]*mastery.CharacterMastery
}

func newFakeMasteryRepo() *fakeMasteryRepo {
	return &fakeMasteryRepo{rows: make(map[string]*mastery.CharacterMastery)}
}

func masteryKey(userID, characterID string) string {
	return userID + "/" + characterID
}

func (f *fakeMasteryRepo) GetMastery(_ context.Context, userID, characterID string) (*mastery.CharacterMastery, error) {
	row, ok := f.rows[masteryKey(userID, characterID)]
	if !ok {
		return nil, shared.ErrMasteryNotFound
	}
	clone := *row
	return &clone, nil
}

func (f *fakeMasteryRepo) ListByUser(_ context.Context, userID string) ([]*mastery.CharacterMastery, error) {
	var out []*mastery.CharacterMastery
	for key, row := range f.rows {
		if strings.HasPrefix(key, userID+"/") {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeMasteryRepo) SavePracticeResult(_ context.Context, m *mastery.CharacterMastery, _ *mastery.PracticeSession, _ bool) error {
	clone := *m
	f.rows[masteryKey(m.UserID, m.CharacterID)] = &clone
	return nil
}

func (f *fakeMasteryRepo) ListDueForReview(_ context.Context, userID string, now time.Time, limit int) ([]*mastery.CharacterMastery, error) {
	var out []*mastery.CharacterMastery
	for key, row := range f.rows {
		if strings.HasPrefix(key, userID+"/") && !row.NextReviewDate.After(now) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextReviewDate.Equal(out[j].NextReviewDate) {
			return out[i].NextReviewDate.Before(out[j].NextReviewDate)
		}
		return out[i].AccuracyScore < out[j].AccuracyScore
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMasteryRepo) ListWeakAreas(_ context.Context, userID string, limit int) ([]*mastery.CharacterMastery, error) {
	var out []*mastery.CharacterMastery
	for key, row := range f.rows {
		if strings.HasPrefix(key, userID+"/") && (row.AccuracyScore < 70 || row.MasteryLevel == mastery.LevelLearning) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccuracyScore < out[j].AccuracyScore })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMasteryRepo) GetStats(_ context.Context, userID string, now time.Time) (*mastery.Stats, error) {
	stats := &mastery.Stats{
		ByLevel: make(map[mastery.Level]int),
		ByType:  make(map[mastery.CharacterType]int),
	}
	var accuracySum float64
	for key, row := range f.rows {
		if !strings.HasPrefix(key, userID+"/") {
			continue
		}
		stats.TotalCharacters++
		stats.ByLevel[row.MasteryLevel]++
		stats.ByType[row.CharacterType]++
		stats.TotalPracticeTime += row.TotalTimeSpent
		accuracySum += row.AccuracyScore
		if !row.NextReviewDate.After(now) {
			stats.DueForReview++
		}
	}
	if stats.TotalCharacters > 0 {
		stats.AverageAccuracy = accuracySum / float64(stats.TotalCharacters)
	}
	return stats, nil
}

func (f *fakeMasteryRepo) CountMasteredInWindow(context.Context, string, time.Time, time.Time) (int, error) {
	return 0, nil
}

func (f *fakeMasteryRepo) ListSessions(context.Context, string, string, int) ([]*mastery.PracticeSession, error) {
	return nil, nil
}

func (f *fakeMasteryRepo) ResetMastery(_ context.Context, userID, characterID string) error {
	delete(f.rows, masteryKey(userID, characterID))
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Streak
// ──────────────────────────────────────────────────────────────────────────────

type fakeStreakRepo struct {
	rows map[string]*streak.Streak
}

func newFakeStreakRepo() *fakeStreakRepo {
	return &fakeStreakRepo{rows: make(map[string]*streak.Streak)}
}

func streakKey(userID string, streakType streak.Type) string {
	return userID + "/" + string(streakType)
}

func (f *fakeStreakRepo) GetStreak(_ context.Context, userID string, streakType streak.Type) (*streak.Streak, error) {
	row, ok := f.rows[streakKey(userID, streakType)]
	if !ok {
		return nil, shared.ErrStreakNotFound
	}
	clone := *row
	return &clone, nil
}

func (f *fakeStreakRepo) ListByUser(_ context.Context, userID string) ([]*streak.Streak, error) {
	var out []*streak.Streak
	for key, row := range f.rows {
		if strings.HasPrefix(key, userID+"/") {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func (f *fakeStreakRepo) CreateStreak(_ context.Context, s *streak.Streak) error {
	clone := *s
	f.rows[streakKey(s.UserID, s.Type)] = &clone
	return nil
}

func (f *fakeStreakRepo) UpdateStreak(_ context.Context, s *streak.Streak) error {
	clone := *s
	f.rows[streakKey(s.UserID, s.Type)] = &clone
	return nil
}

func (f *fakeStreakRepo) DeleteStreak(_ context.Context, userID string, streakType streak.Type) error {
	delete(f.rows, streakKey(userID, streakType))
	return nil
}

func (f *fakeStreakRepo) ListActive(context.Context, int, int) ([]*streak.Streak, error) {
	return nil, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Analytics
// ──────────────────────────────────────────────────────────────────────────────

type fakeAnalyticsRepo struct {
	rows []*analytics.UserAnalytics
}

func newFakeAnalyticsRepo() *fakeAnalyticsRepo {
	return &fakeAnalyticsRepo{}
}

func (f *fakeAnalyticsRepo) GetDaily(_ context.Context, userID string, date time.Time) (*analytics.UserAnalytics, error) {
	for _, row := range f.rows {
		if row.UserID == userID && row.Date.Equal(date) {
			return row, nil
		}
	}
	return nil, shared.ErrAnalyticsNotFound
}

func (f *fakeAnalyticsRepo) UpsertDaily(_ context.Context, row *analytics.UserAnalytics) error {
	for i, existing := range f.rows {
		if existing.UserID == row.UserID && existing.Date.Equal(row.Date) {
			f.rows[i] = row
			return nil
		}
	}
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeAnalyticsRepo) ListRange(_ context.Context, userID string, from, to time.Time) ([]*analytics.UserAnalytics, error) {
	var out []*analytics.UserAnalytics
	for _, row := range f.rows {
		if row.UserID == userID && !row.Date.Before(from) && !row.Date.After(to) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (f *fakeAnalyticsRepo) GetStatistics(context.Context, string) (*analytics.Statistics, error) {
	return &analytics.Statistics{}, nil
}

func (f *fakeAnalyticsRepo) DeleteBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Builders
// ──────────────────────────────────────────────────────────────────────────────

func seedProgress(userID string, totalXP, currentXP, level, toNext int) *progress.UserProgress {
	now := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	return &progress.UserProgress{
		UserID:           userID,
		TotalXP:          totalXP,
		CurrentXP:        currentXP,
		CurrentLevel:     level,
		LevelName:        "Apprentice",
		XPToNextLevel:    toNext,
		StreakCount:      3,
		LongestStreak:    7,
		LastActivityDate: now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func seedEntry(userID string, period leaderboard.Period, rank, score int) *leaderboard.Entry {
	return &leaderboard.Entry{
		UserID: userID,
		Period: period,
		Rank:   rank,
		Score:  score,
		Metadata: leaderboard.UserSnapshot{
			UserID:          userID,
			PeriodXP:        score / 2,
			CurrentLevel:    rank + 1,
			StreakCount:     rank,
			MasteredCount:   rank * 2,
			AverageAccuracy: 90,
		},
		CalculatedAt: time.Date(2026, 5, 10, 6, 0, 0, 0, time.UTC),
	}
}
