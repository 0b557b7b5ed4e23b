package command

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/kanaquest/progress-engine/internal/domain/analytics"
	"github.com/kanaquest/progress-engine/internal/domain/leaderboard"
	"github.com/kanaquest/progress-engine/internal/domain/mastery"
	"github.com/kanaquest/progress-engine/internal/domain/progress"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/internal/domain/streak"
	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

// In-memory fakes for handler tests. They mimic the PostgreSQL
// implementations closely enough for orchestration logic: same sentinel
// errors, same ordering guarantees where handlers depend on them.

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
	if _, ok := f.rows[p.UserID]; ok {
		return shared.ErrProgressExists
	}
	clone := *p
	f.rows[p.UserID] = &clone
	return nil
}

func (f *fakeProgressRepo) UpdateProgress(_ context.Context, p *progress.UserProgress) error {
	if _, ok := f.rows[p.UserID]; !ok {
		return shared.ErrUserNotFound
	}
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

func (f *fakeProgressRepo) SumBySource(_ context.Context, userID string, from, to time.Time) ([]progress.SourceTotal, error) {
	totals := make(map[progress.XPSource]*progress.SourceTotal)
	for _, tx := range f.txs {
		if tx.UserID != userID || tx.CreatedAt.Before(from) || tx.CreatedAt.After(to) {
			continue
		}
		t, ok := totals[tx.Source]
		if !ok {
			t = &progress.SourceTotal{Source: tx.Source}
			totals[tx.Source] = t
		}
		t.TotalXP += tx.Amount
		t.Count++
	}
	out := make([]progress.SourceTotal, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeProgressRepo) CountDistinctActivityDays(_ context.Context, userID string, from, to time.Time) (int, error) {
	days := make(map[string]struct{})
	for _, tx := range f.txs {
		if tx.UserID == userID && !tx.CreatedAt.Before(from) && !tx.CreatedAt.After(to) {
			days[timeutil.DateKey(tx.CreatedAt)] = struct{}{}
		}
	}
	return len(days), nil
}

func (f *fakeProgressRepo) DeleteTransactionsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	kept := f.txs[:0]
	var deleted int64
	for _, tx := range f.txs {
		if tx.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, tx)
	}
	f.txs = kept
	return deleted, nil
}

type fakeProgressCache struct {
	rows          map[string]*progress.UserProgress
	invalidations []string
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
	return nil
}

func (f *fakeProgressCache) InvalidateUser(_ context.Context, userID string) error {
	delete(f.rows, userID)
	f.invalidations = append(f.invalidations, userID)
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Mastery
// ──────────────────────────────────────────────────────────────────────────────

type fakeMasteryRepo struct {
	rows     map[string]*mastery.CharacterMastery
	sessions []*mastery.PracticeSession
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

func (f *fakeMasteryRepo) SavePracticeResult(_ context.Context, m *mastery.CharacterMastery, session *mastery.PracticeSession, _ bool) error {
	clone := *m
	f.rows[masteryKey(m.UserID, m.CharacterID)] = &clone
	f.sessions = append(f.sessions, session)
	return nil
}

func (f *fakeMasteryRepo) ListDueForReview(_ context.Context, userID string, now time.Time, limit int) ([]*mastery.CharacterMastery, error) {
	var out []*mastery.CharacterMastery
	for key, row := range f.rows {
		if strings.HasPrefix(key, userID+"/") && !row.NextReviewDate.After(now) {
			out = append(out, row)
		}
	}
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

func (f *fakeMasteryRepo) CountMasteredInWindow(_ context.Context, userID string, from, to time.Time) (int, error) {
	count := 0
	for key, row := range f.rows {
		if !strings.HasPrefix(key, userID+"/") {
			continue
		}
		if row.MasteryLevel != mastery.LevelMastered && row.MasteryLevel != mastery.LevelExpert {
			continue
		}
		if !row.UpdatedAt.Before(from) && !row.UpdatedAt.After(to) {
			count++
		}
	}
	return count, nil
}

func (f *fakeMasteryRepo) ListSessions(_ context.Context, userID, characterID string, limit int) ([]*mastery.PracticeSession, error) {
	var out []*mastery.PracticeSession
	for i := len(f.sessions) - 1; i >= 0; i-- {
		s := f.sessions[i]
		if s.UserID == userID && s.CharacterID == characterID {
			out = append(out, s)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMasteryRepo) ResetMastery(_ context.Context, userID, characterID string) error {
	key := masteryKey(userID, characterID)
	if _, ok := f.rows[key]; !ok {
		return shared.ErrMasteryNotFound
	}
	delete(f.rows, key)
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
	return out, nil
}

func (f *fakeStreakRepo) CreateStreak(_ context.Context, s *streak.Streak) error {
	clone := *s
	f.rows[streakKey(s.UserID, s.Type)] = &clone
	return nil
}

func (f *fakeStreakRepo) UpdateStreak(_ context.Context, s *streak.Streak) error {
	if _, ok := f.rows[streakKey(s.UserID, s.Type)]; !ok {
		return shared.ErrStreakNotFound
	}
	clone := *s
	f.rows[streakKey(s.UserID, s.Type)] = &clone
	return nil
}

func (f *fakeStreakRepo) DeleteStreak(_ context.Context, userID string, streakType streak.Type) error {
	delete(f.rows, streakKey(userID, streakType))
	return nil
}

func (f *fakeStreakRepo) ListActive(_ context.Context, limit, offset int) ([]*streak.Streak, error) {
	keys := make([]string, 0, len(f.rows))
	for key, row := range f.rows {
		if row.IsActive {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	if offset >= len(keys) {
		return nil, nil
	}
	end := offset + limit
	if end > len(keys) {
		end = len(keys)
	}

	out := make([]*streak.Streak, 0, end-offset)
	for _, key := range keys[offset:end] {
		clone := *f.rows[key]
		out = append(out, &clone)
	}
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Analytics
// ──────────────────────────────────────────────────────────────────────────────

type fakeAnalyticsRepo struct {
	rows map[string]*analytics.UserAnalytics
}

func newFakeAnalyticsRepo() *fakeAnalyticsRepo {
	return &fakeAnalyticsRepo{rows: make(map[string]*analytics.UserAnalytics)}
}

func analyticsKey(userID string, date time.Time) string {
	return userID + "/" + timeutil.DateKey(date)
}

func (f *fakeAnalyticsRepo) GetDaily(_ context.Context, userID string, date time.Time) (*analytics.UserAnalytics, error) {
	row, ok := f.rows[analyticsKey(userID, date)]
	if !ok {
		return nil, shared.ErrAnalyticsNotFound
	}
	clone := *row
	return &clone, nil
}

func (f *fakeAnalyticsRepo) UpsertDaily(_ context.Context, row *analytics.UserAnalytics) error {
	clone := *row
	f.rows[analyticsKey(row.UserID, row.Date)] = &clone
	return nil
}

func (f *fakeAnalyticsRepo) ListRange(_ context.Context, userID string, from, to time.Time) ([]*analytics.UserAnalytics, error) {
	var out []*analytics.UserAnalytics
	for _, row := range f.rows {
		if row.UserID == userID && !row.Date.Before(timeutil.StartOfDay(from)) && !row.Date.After(to) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (f *fakeAnalyticsRepo) GetStatistics(context.Context, string) (*analytics.Statistics, error) {
	return &analytics.Statistics{}, nil
}

func (f *fakeAnalyticsRepo) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	for key, row := range f.rows {
		if row.Date.Before(cutoff) {
			delete(f.rows, key)
			deleted++
		}
	}
	return deleted, nil
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
	invalidated []leaderboard.Period
}

func (f *fakeBoardCache) GetPage(context.Context, leaderboard.Period, int, int) ([]*leaderboard.Entry, error) {
	return nil, shared.ErrRankNotFound
}

func (f *fakeBoardCache) SetPage(context.Context, leaderboard.Period, int, int, []*leaderboard.Entry) error {
	return nil
}

func (f *fakeBoardCache) GetRank(context.Context, string, leaderboard.Period) (*leaderboard.RankInfo, error) {
	return nil, shared.ErrRankNotFound
}

func (f *fakeBoardCache) SetRank(context.Context, *leaderboard.RankInfo) error {
	return nil
}

func (f *fakeBoardCache) InvalidatePeriod(_ context.Context, period leaderboard.Period) error {
	f.invalidated = append(f.invalidated, period)
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Events
// ──────────────────────────────────────────────────────────────────────────────

type capturingPublisher struct {
	events []shared.Event
}

func (p *capturingPublisher) Publish(event shared.Event) error {
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) typesSeen() []shared.EventType {
	types := make([]shared.EventType, len(p.events))
	for i, e := range p.events {
		types[i] = e.EventType()
	}
	return types
}
