package leaderboard

import (
	"sort"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANKING (Ranked List)
// ══════════════════════════════════════════════════════════════════════════════

// Ranking - полный отсортированный список участников периода.
// Вспомогательная структура для построения и пересчёта лидерборда.
type Ranking struct {
	entries []*Entry
	byID    map[string]*Entry
}

// NewRanking создаёт пустой Ranking.
func NewRanking() *Ranking {
	return &Ranking{
		entries: make([]*Entry, 0),
		byID:    make(map[string]*Entry),
	}
}

// Add добавляет запись в рейтинг (без автоматической сортировки).
func (r *Ranking) Add(entry *Entry) error {
	if entry == nil {
		return ErrNilEntry
	}
	if _, exists := r.byID[entry.UserID]; exists {
		return ErrDuplicateUser
	}

	r.entries = append(r.entries, entry)
	r.byID[entry.UserID] = entry
	return nil
}

// SortByScore сортирует записи по счёту (по убыванию) и присваивает ранги.
// Равные счёты делят ранг; следующий различный счёт получает ранг,
// равный своей позиции в списке (две записи по 1000 - ранг 1, затем 900 -
// ранг 3). Вторичный порядок при равенстве - по UserID, чтобы сортировка
// была детерминированной.
func (r *Ranking) SortByScore() {
	sort.Slice(r.entries, func(i, j int) bool {
		if r.entries[i].Score != r.entries[j].Score {
			return r.entries[i].Score > r.entries[j].Score
		}
		return r.entries[i].UserID < r.entries[j].UserID
	})

	for i, entry := range r.entries {
		if i > 0 && entry.Score == r.entries[i-1].Score {
			// Равный счёт = тот же ранг
			entry.Rank = r.entries[i-1].Rank
		} else {
			entry.Rank = i + 1
		}
	}
}

// GetByID возвращает запись по ID пользователя.
func (r *Ranking) GetByID(userID string) *Entry {
	return r.byID[userID]
}

// RankOf возвращает ранг пользователя: 1 + количество строго больших
// счётов. Для отсутствующего пользователя возвращает 0.
func (r *Ranking) RankOf(userID string) int {
	entry := r.byID[userID]
	if entry == nil {
		return 0
	}

	greater := 0
	for _, e := range r.entries {
		if e.Score > entry.Score {
			greater++
		}
	}
	return greater + 1
}

// Percentile возвращает процентиль пользователя:
// (total - rank + 1) / total * 100. Для пустого рейтинга возвращает 0.
func (r *Ranking) Percentile(userID string) float64 {
	total := len(r.entries)
	if total == 0 {
		return 0
	}
	rank := r.RankOf(userID)
	if rank == 0 {
		return 0
	}
	return float64(total-rank+1) / float64(total) * 100
}

// Top возвращает топ-N записей.
func (r *Ranking) Top(n int) []*Entry {
	if n <= 0 {
		return nil
	}
	if n > len(r.entries) {
		n = len(r.entries)
	}
	result := make([]*Entry, n)
	copy(result, r.entries[:n])
	return result
}

// Slice возвращает срез записей [from:to).
func (r *Ranking) Slice(from, to int) []*Entry {
	if from < 0 {
		from = 0
	}
	if to > len(r.entries) {
		to = len(r.entries)
	}
	if from >= to {
		return nil
	}
	result := make([]*Entry, to-from)
	copy(result, r.entries[from:to])
	return result
}

// Count возвращает общее количество записей.
func (r *Ranking) Count() int {
	return len(r.entries)
}

// All возвращает все записи.
func (r *Ranking) All() []*Entry {
	result := make([]*Entry, len(r.entries))
	copy(result, r.entries)
	return result
}

// TopScore возвращает максимальный счёт (0 для пустого рейтинга).
func (r *Ranking) TopScore() int {
	if len(r.entries) == 0 {
		return 0
	}
	return r.entries[0].Score
}
