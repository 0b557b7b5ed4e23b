package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kanaquest/progress-engine/internal/domain/mastery"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MASTERY REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// MasteryRepository implements mastery.Repository for PostgreSQL.
type MasteryRepository struct {
	conn *Connection
}

// NewMasteryRepository creates a new MasteryRepository.
func NewMasteryRepository(conn *Connection) *MasteryRepository {
	return &MasteryRepository{conn: conn}
}

const masteryColumns = `
	id, user_id, character_id, character_type, mastery_level, accuracy_score,
	practice_count, correct_count, total_time_spent, streak_count,
	stroke_order_score, recognition_score, last_practiced, next_review_date,
	created_at, updated_at
`

// ─────────────────────────────────────────────────────────────────────────────
// Mastery rows
// ─────────────────────────────────────────────────────────────────────────────

// GetMastery returns the mastery row for (userID, characterID).
func (r *MasteryRepository) GetMastery(ctx context.Context, userID, characterID string) (*mastery.CharacterMastery, error) {
	query := `SELECT ` + masteryColumns + ` FROM character_masteries WHERE user_id = $1 AND character_id = $2`

	row := r.conn.QueryRow(ctx, query, userID, characterID)
	m, err := scanMastery(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrMasteryNotFound
		}
		return nil, fmt.Errorf("failed to get mastery: %w", err)
	}
	return m, nil
}

// ListByUser returns every mastery row for a user.
func (r *MasteryRepository) ListByUser(ctx context.Context, userID string) ([]*mastery.CharacterMastery, error) {
	query := `SELECT ` + masteryColumns + ` FROM character_masteries WHERE user_id = $1 ORDER BY character_id`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list masteries: %w", err)
	}
	defer rows.Close()

	return collectMasteries(rows)
}

// SavePracticeResult writes the mastery row and its session atomically.
func (r *MasteryRepository) SavePracticeResult(ctx context.Context, m *mastery.CharacterMastery, session *mastery.PracticeSession, created bool) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if created {
			_, err := tx.Exec(ctx, `
				INSERT INTO character_masteries (`+masteryColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			`,
				m.ID, m.UserID, m.CharacterID, string(m.CharacterType), string(m.MasteryLevel),
				m.AccuracyScore, m.PracticeCount, m.CorrectCount, m.TotalTimeSpent, m.StreakCount,
				m.StrokeOrderScore, m.RecognitionScore, nullableTime(m.LastPracticed),
				nullableTime(m.NextReviewDate), m.CreatedAt, m.UpdatedAt,
			)
			if err != nil {
				if IsUniqueViolation(err) {
					return shared.ErrAlreadyExists
				}
				return fmt.Errorf("failed to insert mastery: %w", err)
			}
		} else {
			result, err := tx.Exec(ctx, `
				UPDATE character_masteries SET
					mastery_level = $1,
					accuracy_score = $2,
					practice_count = $3,
					correct_count = $4,
					total_time_spent = $5,
					streak_count = $6,
					stroke_order_score = $7,
					recognition_score = $8,
					last_practiced = $9,
					next_review_date = $10,
					updated_at = $11
				WHERE user_id = $12 AND character_id = $13
			`,
				string(m.MasteryLevel), m.AccuracyScore, m.PracticeCount, m.CorrectCount,
				m.TotalTimeSpent, m.StreakCount, m.StrokeOrderScore, m.RecognitionScore,
				nullableTime(m.LastPracticed), nullableTime(m.NextReviewDate), m.UpdatedAt,
				m.UserID, m.CharacterID,
			)
			if err != nil {
				return fmt.Errorf("failed to update mastery: %w", err)
			}
			if result.RowsAffected() == 0 {
				return shared.ErrMasteryNotFound
			}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO practice_sessions (
				id, user_id, character_id, accuracy, time_spent,
				strokes_correct, strokes_total, is_perfect, xp_earned,
				start_time, end_time, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`,
			session.ID, session.UserID, session.CharacterID, session.Accuracy, session.Duration,
			session.StrokesCorrect, session.StrokesTotal, session.IsPerfect, session.XPEarned,
			session.StartTime, session.EndTime, session.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert practice session: %w", err)
		}

		return nil
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Review scheduling
// ─────────────────────────────────────────────────────────────────────────────

// ListDueForReview returns rows whose review date has passed.
func (r *MasteryRepository) ListDueForReview(ctx context.Context, userID string, now time.Time, limit int) ([]*mastery.CharacterMastery, error) {
	query := `
		SELECT ` + masteryColumns + `
		FROM character_masteries
		WHERE user_id = $1 AND next_review_date IS NOT NULL AND next_review_date <= $2
		ORDER BY next_review_date ASC, accuracy_score ASC
		LIMIT $3
	`

	rows, err := r.conn.Query(ctx, query, userID, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due reviews: %w", err)
	}
	defer rows.Close()

	return collectMasteries(rows)
}

// ListWeakAreas returns rows with low accuracy or still in LEARNING.
func (r *MasteryRepository) ListWeakAreas(ctx context.Context, userID string, limit int) ([]*mastery.CharacterMastery, error) {
	query := `
		SELECT ` + masteryColumns + `
		FROM character_masteries
		WHERE user_id = $1 AND (accuracy_score < 70 OR mastery_level = 'LEARNING')
		ORDER BY accuracy_score ASC, practice_count DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list weak areas: %w", err)
	}
	defer rows.Close()

	return collectMasteries(rows)
}

// ─────────────────────────────────────────────────────────────────────────────
// Statistics
// ─────────────────────────────────────────────────────────────────────────────

// GetStats returns aggregated mastery statistics for a user.
func (r *MasteryRepository) GetStats(ctx context.Context, userID string, now time.Time) (*mastery.Stats, error) {
	stats := &mastery.Stats{
		ByLevel: make(map[mastery.Level]int),
		ByType:  make(map[mastery.CharacterType]int),
	}

	err := r.conn.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COALESCE(AVG(accuracy_score), 0),
			COALESCE(SUM(total_time_spent), 0),
			COUNT(*) FILTER (WHERE next_review_date IS NOT NULL AND next_review_date <= $2)
		FROM character_masteries
		WHERE user_id = $1
	`, userID, now).Scan(
		&stats.TotalCharacters,
		&stats.AverageAccuracy,
		&stats.TotalPracticeTime,
		&stats.DueForReview,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get mastery stats: %w", err)
	}

	rows, err := r.conn.Query(ctx, `
		SELECT mastery_level, character_type, COUNT(*)
		FROM character_masteries
		WHERE user_id = $1
		GROUP BY mastery_level, character_type
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get mastery breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var level, charType string
		var count int
		if err := rows.Scan(&level, &charType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan breakdown row: %w", err)
		}
		stats.ByLevel[mastery.Level(level)] += count
		stats.ByType[mastery.CharacterType(charType)] += count
	}
	return stats, rows.Err()
}

// CountMasteredInWindow counts rows that reached MASTERED or EXPERT in [from, to].
func (r *MasteryRepository) CountMasteredInWindow(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM character_masteries
		WHERE user_id = $1
		  AND mastery_level IN ('MASTERED', 'EXPERT')
		  AND updated_at >= $2 AND updated_at <= $3
	`, userID, from, to).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count mastered: %w", err)
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Sessions
// ─────────────────────────────────────────────────────────────────────────────

// ListSessions returns practice sessions for a character, newest first.
func (r *MasteryRepository) ListSessions(ctx context.Context, userID, characterID string, limit int) ([]*mastery.PracticeSession, error) {
	query := `
		SELECT id, user_id, character_id, accuracy, time_spent,
			   strokes_correct, strokes_total, is_perfect, xp_earned,
			   start_time, end_time, created_at
		FROM practice_sessions
		WHERE user_id = $1 AND character_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.conn.Query(ctx, query, userID, characterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*mastery.PracticeSession
	for rows.Next() {
		var s mastery.PracticeSession
		err := rows.Scan(
			&s.ID, &s.UserID, &s.CharacterID, &s.Accuracy, &s.Duration,
			&s.StrokesCorrect, &s.StrokesTotal, &s.IsPerfect, &s.XPEarned,
			&s.StartTime, &s.EndTime, &s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Admin
// ─────────────────────────────────────────────────────────────────────────────

// ResetMastery deletes the mastery row and all its sessions atomically.
func (r *MasteryRepository) ResetMastery(ctx context.Context, userID, characterID string) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx,
			`DELETE FROM character_masteries WHERE user_id = $1 AND character_id = $2`,
			userID, characterID)
		if err != nil {
			return fmt.Errorf("failed to delete mastery: %w", err)
		}
		if result.RowsAffected() == 0 {
			return shared.ErrMasteryNotFound
		}

		_, err = tx.Exec(ctx,
			`DELETE FROM practice_sessions WHERE user_id = $1 AND character_id = $2`,
			userID, characterID)
		if err != nil {
			return fmt.Errorf("failed to delete sessions: %w", err)
		}

		return nil
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan helpers
// ─────────────────────────────────────────────────────────────────────────────

func scanMastery(row pgx.Row) (*mastery.CharacterMastery, error) {
	var m mastery.CharacterMastery
	var charType, level string
	var lastPracticed, nextReview *time.Time

	err := row.Scan(
		&m.ID, &m.UserID, &m.CharacterID, &charType, &level,
		&m.AccuracyScore, &m.PracticeCount, &m.CorrectCount, &m.TotalTimeSpent,
		&m.StreakCount, &m.StrokeOrderScore, &m.RecognitionScore,
		&lastPracticed, &nextReview, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.CharacterType = mastery.CharacterType(charType)
	m.MasteryLevel = mastery.Level(level)
	if lastPracticed != nil {
		m.LastPracticed = *lastPracticed
	}
	if nextReview != nil {
		m.NextReviewDate = *nextReview
	}
	return &m, nil
}

func collectMasteries(rows pgx.Rows) ([]*mastery.CharacterMastery, error) {
	var masteries []*mastery.CharacterMastery
	for rows.Next() {
		m, err := scanMastery(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mastery: %w", err)
		}
		masteries = append(masteries, m)
	}
	return masteries, rows.Err()
}
