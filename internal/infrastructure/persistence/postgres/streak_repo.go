package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StreakRepository implements streak.Repository for PostgreSQL.
type StreakRepository struct {
	conn *Connection
}

// NewStreakRepository creates a new StreakRepository.
func NewStreakRepository(conn *Connection) *StreakRepository {
	return &StreakRepository{conn: conn}
}

const streakColumns = `
	id, user_id, streak_type, current_count, longest_count,
	last_activity, freeze_count, is_active, created_at, updated_at
`

// GetStreak returns the streak for (userID, type).
func (r *StreakRepository) GetStreak(ctx context.Context, userID string, streakType streak.Type) (*streak.Streak, error) {
	query := `SELECT ` + streakColumns + ` FROM streaks WHERE user_id = $1 AND streak_type = $2`

	row := r.conn.QueryRow(ctx, query, userID, string(streakType))
	s, err := scanStreak(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStreakNotFound
		}
		return nil, fmt.Errorf("failed to get streak: %w", err)
	}
	return s, nil
}

// ListByUser returns all streaks for a user.
func (r *StreakRepository) ListByUser(ctx context.Context, userID string) ([]*streak.Streak, error) {
	query := `SELECT ` + streakColumns + ` FROM streaks WHERE user_id = $1 ORDER BY streak_type`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list streaks: %w", err)
	}
	defer rows.Close()

	return collectStreaks(rows)
}

// CreateStreak inserts a new streak row.
func (r *StreakRepository) CreateStreak(ctx context.Context, s *streak.Streak) error {
	query := `
		INSERT INTO streaks (` + streakColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.conn.Exec(ctx, query,
		s.ID, s.UserID, string(s.Type), s.CurrentCount, s.LongestCount,
		s.LastActivity, s.FreezeCount, s.IsActive, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create streak: %w", err)
	}

	return nil
}

// UpdateStreak saves a modified streak row.
func (r *StreakRepository) UpdateStreak(ctx context.Context, s *streak.Streak) error {
	query := `
		UPDATE streaks SET
			current_count = $1,
			longest_count = $2,
			last_activity = $3,
			freeze_count = $4,
			is_active = $5,
			updated_at = $6
		WHERE user_id = $7 AND streak_type = $8
	`

	result, err := r.conn.Exec(ctx, query,
		s.CurrentCount, s.LongestCount, s.LastActivity,
		s.FreezeCount, s.IsActive, s.UpdatedAt,
		s.UserID, string(s.Type),
	)
	if err != nil {
		return fmt.Errorf("failed to update streak: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrStreakNotFound
	}

	return nil
}

// DeleteStreak removes a streak row (administrative reset).
func (r *StreakRepository) DeleteStreak(ctx context.Context, userID string, streakType streak.Type) error {
	result, err := r.conn.Exec(ctx,
		`DELETE FROM streaks WHERE user_id = $1 AND streak_type = $2`,
		userID, string(streakType))
	if err != nil {
		return fmt.Errorf("failed to delete streak: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrStreakNotFound
	}

	return nil
}

// ListActive returns active streaks page by page, oldest activity first.
func (r *StreakRepository) ListActive(ctx context.Context, limit, offset int) ([]*streak.Streak, error) {
	query := `
		SELECT ` + streakColumns + `
		FROM streaks
		WHERE is_active = TRUE
		ORDER BY last_activity ASC, id ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.conn.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list active streaks: %w", err)
	}
	defer rows.Close()

	return collectStreaks(rows)
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan helpers
// ─────────────────────────────────────────────────────────────────────────────

func scanStreak(row pgx.Row) (*streak.Streak, error) {
	var s streak.Streak
	var streakType string

	err := row.Scan(
		&s.ID, &s.UserID, &streakType, &s.CurrentCount, &s.LongestCount,
		&s.LastActivity, &s.FreezeCount, &s.IsActive, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Type = streak.Type(streakType)
	return &s, nil
}

func collectStreaks(rows pgx.Rows) ([]*streak.Streak, error) {
	var streaks []*streak.Streak
	for rows.Next() {
		s, err := scanStreak(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan streak: %w", err)
		}
		streaks = append(streaks, s)
	}
	return streaks, rows.Err()
}
