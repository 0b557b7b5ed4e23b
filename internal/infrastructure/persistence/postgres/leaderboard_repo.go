package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kanaquest/progress-engine/internal/domain/leaderboard"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardRepository implements leaderboard.Repository for PostgreSQL.
type LeaderboardRepository struct {
	conn *Connection
}

// NewLeaderboardRepository creates a new LeaderboardRepository.
func NewLeaderboardRepository(conn *Connection) *LeaderboardRepository {
	return &LeaderboardRepository{conn: conn}
}

// ReplaceEntries swaps the full entry set for a period in one transaction.
// Readers never observe a partially rebuilt leaderboard.
func (r *LeaderboardRepository) ReplaceEntries(ctx context.Context, period leaderboard.Period, entries []*leaderboard.Entry) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`DELETE FROM leaderboard_entries WHERE period = $1`, string(period))
		if err != nil {
			return fmt.Errorf("failed to clear period: %w", err)
		}

		if len(entries) == 0 {
			return nil
		}

		// Batch insert entries
		batch := &pgx.Batch{}
		for _, entry := range entries {
			metadataJSON, err := json.Marshal(entry.Metadata)
			if err != nil {
				return fmt.Errorf("failed to marshal snapshot: %w", err)
			}

			batch.Queue(`
				INSERT INTO leaderboard_entries (user_id, period, rank, score, metadata, calculated_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			`,
				entry.UserID,
				string(entry.Period),
				entry.Rank,
				entry.Score,
				metadataJSON,
				entry.CalculatedAt,
			)
		}

		br := tx.SendBatch(ctx, batch)
		defer br.Close()

		for range entries {
			if _, err := br.Exec(); err != nil {
				return fmt.Errorf("failed to insert entry: %w", err)
			}
		}

		return nil
	})
}

// ListEntries returns a page of entries for a period, ordered by rank.
func (r *LeaderboardRepository) ListEntries(ctx context.Context, period leaderboard.Period, limit, offset int) ([]*leaderboard.Entry, error) {
	query := `
		SELECT user_id, period, rank, score, metadata, calculated_at
		FROM leaderboard_entries
		WHERE period = $1
		ORDER BY rank ASC, user_id ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.conn.Query(ctx, query, string(period), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []*leaderboard.Entry
	for rows.Next() {
		entry, err := scanLeaderboardEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CountEntries returns the number of entries for a period.
func (r *LeaderboardRepository) CountEntries(ctx context.Context, period leaderboard.Period) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM leaderboard_entries WHERE period = $1`,
		string(period)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// GetEntry returns one user's entry for a period.
func (r *LeaderboardRepository) GetEntry(ctx context.Context, userID string, period leaderboard.Period) (*leaderboard.Entry, error) {
	query := `
		SELECT user_id, period, rank, score, metadata, calculated_at
		FROM leaderboard_entries
		WHERE user_id = $1 AND period = $2
	`

	row := r.conn.QueryRow(ctx, query, userID, string(period))
	entry, err := scanLeaderboardEntry(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrRankNotFound
		}
		return nil, err
	}
	return entry, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan helpers
// ─────────────────────────────────────────────────────────────────────────────

func scanLeaderboardEntry(row pgx.Row) (*leaderboard.Entry, error) {
	var entry leaderboard.Entry
	var period string
	var metadataJSON []byte

	err := row.Scan(
		&entry.UserID,
		&period,
		&entry.Rank,
		&entry.Score,
		&metadataJSON,
		&entry.CalculatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan entry: %w", err)
	}

	entry.Period = leaderboard.Period(period)
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}
	}
	return &entry, nil
}
