package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kanaquest/progress-engine/internal/domain/progress"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progress.Repository for PostgreSQL.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

const progressColumns = `
	user_id, total_xp, current_xp, current_level, xp_to_next_level, level_name,
	streak_count, longest_streak, last_activity_date, created_at, updated_at
`

// ─────────────────────────────────────────────────────────────────────────────
// User progress
// ─────────────────────────────────────────────────────────────────────────────

// GetProgress returns the progress row for a user.
func (r *ProgressRepository) GetProgress(ctx context.Context, userID string) (*progress.UserProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM user_progress WHERE user_id = $1`

	row := r.conn.QueryRow(ctx, query, userID)
	p, err := scanProgress(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return p, nil
}

// CreateProgress inserts a fresh progress row.
func (r *ProgressRepository) CreateProgress(ctx context.Context, p *progress.UserProgress) error {
	query := `
		INSERT INTO user_progress (` + progressColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.conn.Exec(ctx, query,
		p.UserID,
		p.TotalXP,
		p.CurrentXP,
		p.CurrentLevel,
		p.XPToNextLevel,
		p.LevelName,
		p.StreakCount,
		p.LongestStreak,
		nullableTime(p.LastActivityDate),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrProgressExists
		}
		return fmt.Errorf("failed to create progress: %w", err)
	}

	return nil
}

// UpdateProgress saves a modified progress row.
func (r *ProgressRepository) UpdateProgress(ctx context.Context, p *progress.UserProgress) error {
	query := `
		UPDATE user_progress SET
			total_xp = $1,
			current_xp = $2,
			current_level = $3,
			xp_to_next_level = $4,
			level_name = $5,
			streak_count = $6,
			longest_streak = $7,
			last_activity_date = $8,
			updated_at = $9
		WHERE user_id = $10
	`

	result, err := r.conn.Exec(ctx, query,
		p.TotalXP,
		p.CurrentXP,
		p.CurrentLevel,
		p.XPToNextLevel,
		p.LevelName,
		p.StreakCount,
		p.LongestStreak,
		nullableTime(p.LastActivityDate),
		time.Now().UTC(),
		p.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}

	return nil
}

// ListUserIDs returns every user with a progress row.
func (r *ProgressRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.conn.Query(ctx, `SELECT user_id FROM user_progress ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// XP ledger
// ─────────────────────────────────────────────────────────────────────────────

// ApplyAward writes the XP transaction and the updated progress atomically.
func (r *ProgressRepository) ApplyAward(ctx context.Context, p *progress.UserProgress, xptx *progress.XPTransaction) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		metadataJSON, err := json.Marshal(xptx.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO xp_transactions (id, user_id, amount, source, description, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			xptx.ID,
			xptx.UserID,
			xptx.Amount,
			string(xptx.Source),
			xptx.Description,
			metadataJSON,
			xptx.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert xp transaction: %w", err)
		}

		result, err := tx.Exec(ctx, `
			UPDATE user_progress SET
				total_xp = $1,
				current_xp = $2,
				current_level = $3,
				xp_to_next_level = $4,
				level_name = $5,
				streak_count = $6,
				longest_streak = $7,
				last_activity_date = $8,
				updated_at = $9
			WHERE user_id = $10
		`,
			p.TotalXP,
			p.CurrentXP,
			p.CurrentLevel,
			p.XPToNextLevel,
			p.LevelName,
			p.StreakCount,
			p.LongestStreak,
			nullableTime(p.LastActivityDate),
			p.UpdatedAt,
			p.UserID,
		)
		if err != nil {
			return fmt.Errorf("failed to update progress: %w", err)
		}
		if result.RowsAffected() == 0 {
			return shared.ErrUserNotFound
		}

		return nil
	})
}

// ListTransactions returns the XP ledger for a user, newest first.
func (r *ProgressRepository) ListTransactions(ctx context.Context, userID string, filter progress.TransactionFilter) ([]*progress.XPTransaction, error) {
	query := `
		SELECT id, user_id, amount, source, description, metadata, created_at
		FROM xp_transactions
		WHERE user_id = $1
	`
	args := []interface{}{userID}

	if filter.Source != nil {
		args = append(args, string(*filter.Source))
		query += fmt.Sprintf(" AND source = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*progress.XPTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// SumTransactions returns the all-time ledger total for a user.
func (r *ProgressRepository) SumTransactions(ctx context.Context, userID string) (int, error) {
	var sum int
	err := r.conn.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM xp_transactions WHERE user_id = $1`,
		userID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return sum, nil
}

// SumTransactionsInWindow returns the ledger total inside [from, to].
func (r *ProgressRepository) SumTransactionsInWindow(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var sum int
	err := r.conn.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM xp_transactions
		WHERE user_id = $1 AND created_at >= $2 AND created_at <= $3
	`, userID, from, to).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum transactions in window: %w", err)
	}
	return sum, nil
}

// SumBySource returns per-source totals inside [from, to].
func (r *ProgressRepository) SumBySource(ctx context.Context, userID string, from, to time.Time) ([]progress.SourceTotal, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT source, COALESCE(SUM(amount), 0), COUNT(*)
		FROM xp_transactions
		WHERE user_id = $1 AND created_at >= $2 AND created_at <= $3
		GROUP BY source
		ORDER BY SUM(amount) DESC
	`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to sum by source: %w", err)
	}
	defer rows.Close()

	var totals []progress.SourceTotal
	for rows.Next() {
		var t progress.SourceTotal
		var source string
		if err := rows.Scan(&source, &t.TotalXP, &t.Count); err != nil {
			return nil, fmt.Errorf("failed to scan source total: %w", err)
		}
		t.Source = progress.XPSource(source)
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// CountDistinctActivityDays counts days with at least one transaction in [from, to].
func (r *ProgressRepository) CountDistinctActivityDays(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, `
		SELECT COUNT(DISTINCT DATE(created_at AT TIME ZONE 'UTC'))
		FROM xp_transactions
		WHERE user_id = $1 AND created_at >= $2 AND created_at <= $3
	`, userID, from, to).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count activity days: %w", err)
	}
	return count, nil
}

// DeleteTransactionsBefore removes ledger rows older than cutoff.
func (r *ProgressRepository) DeleteTransactionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.conn.Exec(ctx,
		`DELETE FROM xp_transactions WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions: %w", err)
	}
	return result.RowsAffected(), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan helpers
// ─────────────────────────────────────────────────────────────────────────────

func scanProgress(row pgx.Row) (*progress.UserProgress, error) {
	var p progress.UserProgress
	var lastActivity *time.Time

	err := row.Scan(
		&p.UserID,
		&p.TotalXP,
		&p.CurrentXP,
		&p.CurrentLevel,
		&p.XPToNextLevel,
		&p.LevelName,
		&p.StreakCount,
		&p.LongestStreak,
		&lastActivity,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastActivity != nil {
		p.LastActivityDate = *lastActivity
	}
	return &p, nil
}

func scanTransaction(rows pgx.Rows) (*progress.XPTransaction, error) {
	var t progress.XPTransaction
	var source string
	var metadataJSON []byte

	err := rows.Scan(
		&t.ID,
		&t.UserID,
		&t.Amount,
		&source,
		&t.Description,
		&metadataJSON,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	t.Source = progress.XPSource(source)
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &t.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &t, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
