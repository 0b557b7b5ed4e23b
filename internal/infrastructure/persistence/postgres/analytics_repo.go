package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kanaquest/progress-engine/internal/domain/analytics"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ANALYTICS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AnalyticsRepository implements analytics.Repository for PostgreSQL.
type AnalyticsRepository struct {
	conn *Connection
}

// NewAnalyticsRepository creates a new AnalyticsRepository.
func NewAnalyticsRepository(conn *Connection) *AnalyticsRepository {
	return &AnalyticsRepository{conn: conn}
}

const analyticsColumns = `
	id, user_id, date, study_time_minutes, characters_practiced,
	accuracy_average, xp_earned, achievements_unlocked, streak_maintained,
	created_at, updated_at
`

// GetDaily returns the row for (userID, date).
func (r *AnalyticsRepository) GetDaily(ctx context.Context, userID string, date time.Time) (*analytics.UserAnalytics, error) {
	query := `SELECT ` + analyticsColumns + ` FROM user_analytics WHERE user_id = $1 AND date = $2`

	row := r.conn.QueryRow(ctx, query, userID, date)
	a, err := scanAnalytics(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrAnalyticsNotFound
		}
		return nil, fmt.Errorf("failed to get analytics row: %w", err)
	}
	return a, nil
}

// UpsertDaily inserts or updates the row keyed by (userID, date).
func (r *AnalyticsRepository) UpsertDaily(ctx context.Context, a *analytics.UserAnalytics) error {
	query := `
		INSERT INTO user_analytics (` + analyticsColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, date) DO UPDATE SET
			study_time_minutes = EXCLUDED.study_time_minutes,
			characters_practiced = EXCLUDED.characters_practiced,
			accuracy_average = EXCLUDED.accuracy_average,
			xp_earned = EXCLUDED.xp_earned,
			achievements_unlocked = EXCLUDED.achievements_unlocked,
			streak_maintained = EXCLUDED.streak_maintained,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.conn.Exec(ctx, query,
		a.ID, a.UserID, a.Date, a.StudyTimeMinutes, a.CharactersPracticed,
		a.AccuracyAverage, a.XPEarned, a.AchievementsUnlocked, a.StreakMaintained,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert analytics row: %w", err)
	}

	return nil
}

// ListRange returns rows inside [from, to] ordered by date ascending.
func (r *AnalyticsRepository) ListRange(ctx context.Context, userID string, from, to time.Time) ([]*analytics.UserAnalytics, error) {
	query := `
		SELECT ` + analyticsColumns + `
		FROM user_analytics
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`

	rows, err := r.conn.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list analytics rows: %w", err)
	}
	defer rows.Close()

	var result []*analytics.UserAnalytics
	for rows.Next() {
		a, err := scanAnalytics(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analytics row: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// GetStatistics returns all-time aggregates for a user.
func (r *AnalyticsRepository) GetStatistics(ctx context.Context, userID string) (*analytics.Statistics, error) {
	var stats analytics.Statistics
	err := r.conn.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COALESCE(AVG(study_time_minutes), 0),
			COALESCE(AVG(accuracy_average), 0),
			COALESCE(SUM(xp_earned), 0)
		FROM user_analytics
		WHERE user_id = $1
	`, userID).Scan(
		&stats.TotalDays,
		&stats.AverageStudyTime,
		&stats.AverageAccuracy,
		&stats.TotalXP,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get analytics statistics: %w", err)
	}
	return &stats, nil
}

// DeleteBefore removes rows older than cutoff.
func (r *AnalyticsRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.conn.Exec(ctx,
		`DELETE FROM user_analytics WHERE date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete analytics rows: %w", err)
	}
	return result.RowsAffected(), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan helpers
// ─────────────────────────────────────────────────────────────────────────────

func scanAnalytics(row pgx.Row) (*analytics.UserAnalytics, error) {
	var a analytics.UserAnalytics

	err := row.Scan(
		&a.ID, &a.UserID, &a.Date, &a.StudyTimeMinutes, &a.CharactersPracticed,
		&a.AccuracyAverage, &a.XPEarned, &a.AchievementsUnlocked, &a.StreakMaintained,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
