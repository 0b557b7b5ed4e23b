package leaderboard

import (
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// BOARD (Computed Leaderboard)
// ══════════════════════════════════════════════════════════════════════════════

// Board - полностью рассчитанный лидерборд периода на момент времени.
// Строится из Ranking после пересчёта и служит read-моделью для
// страничных запросов и поиска позиции пользователя.
type Board struct {
	// Period - период лидерборда.
	Period Period

	// CalculatedAt - время расчёта.
	CalculatedAt time.Time

	// TotalUsers - общее количество участников.
	TotalUsers int

	// TotalScore - суммарный счёт всех участников.
	TotalScore int

	// AverageScore - средний счёт.
	AverageScore int

	// Entries - записи, отсортированные по рангу.
	Entries []*Entry

	// byID - индекс для быстрого поиска по ID пользователя.
	byID map[string]*Entry
}

// NewBoard создаёт Board из отсортированного Ranking.
func NewBoard(period Period, ranking *Ranking, calculatedAt time.Time) *Board {
	if ranking == nil {
		return &Board{
			Period:       period,
			CalculatedAt: calculatedAt,
			Entries:      make([]*Entry, 0),
			byID:         make(map[string]*Entry),
		}
	}

	entries := ranking.All()
	byID := make(map[string]*Entry, len(entries))

	var totalScore int
	for _, entry := range entries {
		byID[entry.UserID] = entry
		totalScore += entry.Score
	}

	var avgScore int
	if len(entries) > 0 {
		avgScore = totalScore / len(entries)
	}

	return &Board{
		Period:       period,
		CalculatedAt: calculatedAt,
		TotalUsers:   len(entries),
		TotalScore:   totalScore,
		AverageScore: avgScore,
		Entries:      entries,
		byID:         byID,
	}
}

// NewBoardFromEntries восстанавливает Board из записей, загруженных из
// хранилища. Записи должны быть отсортированы по рангу; время расчёта
// берётся из первой записи.
func NewBoardFromEntries(period Period, entries []*Entry) *Board {
	board := &Board{
		Period:  period,
		Entries: entries,
	}
	if len(entries) > 0 {
		board.CalculatedAt = entries[0].CalculatedAt
	}

	var totalScore int
	for _, entry := range entries {
		totalScore += entry.Score
	}
	board.TotalUsers = len(entries)
	board.TotalScore = totalScore
	if len(entries) > 0 {
		board.AverageScore = totalScore / len(entries)
	}

	board.RebuildIndex()
	return board
}

// GetByID возвращает запись по ID пользователя.
func (b *Board) GetByID(userID string) *Entry {
	if b.byID == nil {
		return nil
	}
	return b.byID[userID]
}

// RankInfoFor возвращает позицию пользователя с процентилем.
// Возвращает nil, если пользователь не участвует.
func (b *Board) RankInfoFor(userID string) *RankInfo {
	entry := b.GetByID(userID)
	if entry == nil {
		return nil
	}

	percentile := float64(b.TotalUsers-entry.Rank+1) / float64(b.TotalUsers) * 100

	return &RankInfo{
		UserID:     entry.UserID,
		Period:     b.Period,
		Rank:       entry.Rank,
		Score:      entry.Score,
		TotalUsers: b.TotalUsers,
		Percentile: percentile,
	}
}

// Top возвращает топ-N записей.
func (b *Board) Top(n int) []*Entry {
	if n <= 0 {
		return nil
	}
	if n > len(b.Entries) {
		n = len(b.Entries)
	}
	result := make([]*Entry, n)
	copy(result, b.Entries[:n])
	return result
}

// Page возвращает страницу лидерборда.
// page начинается с 1, pageSize - количество записей на странице.
func (b *Board) Page(page, pageSize int) []*Entry {
	if page < 1 || pageSize <= 0 {
		return nil
	}

	from := (page - 1) * pageSize
	to := from + pageSize

	if from >= len(b.Entries) {
		return nil
	}
	if to > len(b.Entries) {
		to = len(b.Entries)
	}

	result := make([]*Entry, to-from)
	copy(result, b.Entries[from:to])
	return result
}

// TotalPages возвращает общее количество страниц.
func (b *Board) TotalPages(pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	pages := len(b.Entries) / pageSize
	if len(b.Entries)%pageSize != 0 {
		pages++
	}
	return pages
}

// Neighbors возвращает соседей пользователя по рангу (±rangeSize).
func (b *Board) Neighbors(userID string, rangeSize int) []*Entry {
	entry := b.GetByID(userID)
	if entry == nil {
		return nil
	}

	var idx int
	for i, e := range b.Entries {
		if e.UserID == userID {
			idx = i
			break
		}
	}

	from := idx - rangeSize
	to := idx + rangeSize + 1

	if from < 0 {
		from = 0
	}
	if to > len(b.Entries) {
		to = len(b.Entries)
	}

	result := make([]*Entry, to-from)
	copy(result, b.Entries[from:to])
	return result
}

// IsEmpty возвращает true, если лидерборд пуст.
func (b *Board) IsEmpty() bool {
	return len(b.Entries) == 0
}

// Count возвращает количество записей.
func (b *Board) Count() int {
	return len(b.Entries)
}

// Contains проверяет, есть ли пользователь в лидерборде.
func (b *Board) Contains(userID string) bool {
	return b.GetByID(userID) != nil
}

// String возвращает строковое представление для логирования.
func (b *Board) String() string {
	return fmt.Sprintf(
		"Board{Period: %s, Users: %d, AvgScore: %d, At: %s}",
		b.Period, b.TotalUsers, b.AverageScore,
		b.CalculatedAt.Format(time.RFC3339),
	)
}

// RebuildIndex перестраивает внутренний индекс byID.
// Используется после загрузки записей из БД.
func (b *Board) RebuildIndex() {
	b.byID = make(map[string]*Entry, len(b.Entries))
	for _, entry := range b.Entries {
		b.byID[entry.UserID] = entry
	}
}
