// Package postgres implements the PostgreSQL persistence layer for the
// KanaQuest progress engine.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create progress tables
-- Version: 001

-- Per-user progress aggregate. Users live in the external directory
-- service, so user_id is the primary key here with no local FK target.
CREATE TABLE IF NOT EXISTS user_progress (
    user_id UUID PRIMARY KEY,
    total_xp INTEGER NOT NULL DEFAULT 0,
    current_xp INTEGER NOT NULL DEFAULT 0,
    current_level INTEGER NOT NULL DEFAULT 1,
    xp_to_next_level INTEGER NOT NULL DEFAULT 100,
    level_name VARCHAR(20) NOT NULL DEFAULT 'Bronze',
    streak_count INTEGER NOT NULL DEFAULT 0,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    last_activity_date TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    -- Constraints for data integrity
    CONSTRAINT valid_total_xp CHECK (total_xp >= 0),
    CONSTRAINT valid_level CHECK (current_level >= 1),
    CONSTRAINT valid_streaks CHECK (streak_count >= 0 AND longest_streak >= streak_count)
);

CREATE INDEX IF NOT EXISTS idx_user_progress_total_xp ON user_progress(total_xp DESC);
CREATE INDEX IF NOT EXISTS idx_user_progress_level ON user_progress(current_level DESC);
CREATE INDEX IF NOT EXISTS idx_user_progress_last_activity ON user_progress(last_activity_date);

-- Append-only XP transaction ledger
CREATE TABLE IF NOT EXISTS xp_transactions (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES user_progress(user_id) ON DELETE CASCADE,
    amount INTEGER NOT NULL,
    source VARCHAR(40) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    metadata JSONB,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT positive_amount CHECK (amount > 0)
);

CREATE INDEX IF NOT EXISTS idx_xp_transactions_user ON xp_transactions(user_id);
CREATE INDEX IF NOT EXISTS idx_xp_transactions_created ON xp_transactions(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_xp_transactions_user_date ON xp_transactions(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_xp_transactions_user_source ON xp_transactions(user_id, source);

-- Updated_at trigger function for automatic timestamp updates
CREATE OR REPLACE FUNCTION update_updated_at_column()
RETURNS TRIGGER AS $$
BEGIN
    NEW.updated_at = NOW();
    RETURN NEW;
END;
$$ language 'plpgsql';

DROP TRIGGER IF EXISTS update_user_progress_updated_at ON user_progress;
CREATE TRIGGER update_user_progress_updated_at
    BEFORE UPDATE ON user_progress
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();
`

const migration001Down = `
DROP TRIGGER IF EXISTS update_user_progress_updated_at ON user_progress;
DROP FUNCTION IF EXISTS update_updated_at_column();
DROP TABLE IF EXISTS xp_transactions;
DROP TABLE IF EXISTS user_progress;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE MASTERY
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create character mastery tables
-- Version: 002

CREATE TABLE IF NOT EXISTS character_masteries (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL,
    character_id VARCHAR(50) NOT NULL,
    character_type VARCHAR(10) NOT NULL,
    mastery_level VARCHAR(12) NOT NULL DEFAULT 'LEARNING',
    accuracy_score DECIMAL(5,2) NOT NULL DEFAULT 0,
    practice_count INTEGER NOT NULL DEFAULT 0,
    correct_count INTEGER NOT NULL DEFAULT 0,
    total_time_spent INTEGER NOT NULL DEFAULT 0,
    streak_count INTEGER NOT NULL DEFAULT 0,
    stroke_order_score DECIMAL(5,2) NOT NULL DEFAULT 0,
    recognition_score DECIMAL(5,2) NOT NULL DEFAULT 0,
    last_practiced TIMESTAMP WITH TIME ZONE,
    next_review_date TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(user_id, character_id),
    CONSTRAINT valid_character_type CHECK (character_type IN ('HIRAGANA', 'KATAKANA', 'KANJI')),
    CONSTRAINT valid_mastery_level CHECK (mastery_level IN ('LEARNING', 'PRACTICING', 'MASTERED', 'EXPERT')),
    CONSTRAINT valid_accuracy CHECK (accuracy_score >= 0 AND accuracy_score <= 100)
);

CREATE INDEX IF NOT EXISTS idx_masteries_user ON character_masteries(user_id);
CREATE INDEX IF NOT EXISTS idx_masteries_review ON character_masteries(user_id, next_review_date, accuracy_score);
CREATE INDEX IF NOT EXISTS idx_masteries_weak ON character_masteries(user_id, accuracy_score);
CREATE INDEX IF NOT EXISTS idx_masteries_level ON character_masteries(user_id, mastery_level);

DROP TRIGGER IF EXISTS update_character_masteries_updated_at ON character_masteries;
CREATE TRIGGER update_character_masteries_updated_at
    BEFORE UPDATE ON character_masteries
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();

-- Raw practice session log
CREATE TABLE IF NOT EXISTS practice_sessions (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL,
    character_id VARCHAR(50) NOT NULL,
    accuracy DECIMAL(5,2) NOT NULL,
    time_spent INTEGER NOT NULL DEFAULT 0,
    strokes_correct INTEGER NOT NULL DEFAULT 0,
    strokes_total INTEGER NOT NULL DEFAULT 0,
    is_perfect BOOLEAN NOT NULL DEFAULT FALSE,
    xp_earned INTEGER NOT NULL DEFAULT 0,
    start_time TIMESTAMP WITH TIME ZONE NOT NULL,
    end_time TIMESTAMP WITH TIME ZONE NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_practice_sessions_user ON practice_sessions(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_practice_sessions_character ON practice_sessions(user_id, character_id);
`

const migration002Down = `
DROP TRIGGER IF EXISTS update_character_masteries_updated_at ON character_masteries;
DROP TABLE IF EXISTS practice_sessions;
DROP TABLE IF EXISTS character_masteries;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE STREAKS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create streak tables
-- Version: 003

CREATE TABLE IF NOT EXISTS streaks (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL,
    streak_type VARCHAR(20) NOT NULL,
    current_count INTEGER NOT NULL DEFAULT 0,
    longest_count INTEGER NOT NULL DEFAULT 0,
    last_activity TIMESTAMP WITH TIME ZONE NOT NULL,
    freeze_count INTEGER NOT NULL DEFAULT 0,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(user_id, streak_type),
    CONSTRAINT valid_streak_type CHECK (streak_type IN
        ('DAILY_LOGIN', 'DAILY_PRACTICE', 'PERFECT_SCORE', 'WEEKLY_STUDY', 'MONTHLY_GOAL')),
    CONSTRAINT valid_counts CHECK (current_count >= 0 AND longest_count >= 0),
    CONSTRAINT valid_freezes CHECK (freeze_count >= 0)
);

CREATE INDEX IF NOT EXISTS idx_streaks_user ON streaks(user_id);
CREATE INDEX IF NOT EXISTS idx_streaks_active ON streaks(last_activity) WHERE is_active = TRUE;

DROP TRIGGER IF EXISTS update_streaks_updated_at ON streaks;
CREATE TRIGGER update_streaks_updated_at
    BEFORE UPDATE ON streaks
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();
`

const migration003Down = `
DROP TRIGGER IF EXISTS update_streaks_updated_at ON streaks;
DROP TABLE IF EXISTS streaks;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: CREATE LEADERBOARD
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Create leaderboard tables
-- Version: 004

-- Entries are replaced wholesale per period on each rebuild.
CREATE TABLE IF NOT EXISTS leaderboard_entries (
    id SERIAL PRIMARY KEY,
    user_id UUID NOT NULL,
    period VARCHAR(10) NOT NULL,
    rank INTEGER NOT NULL,
    score INTEGER NOT NULL DEFAULT 0,
    metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
    calculated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(period, user_id),
    CONSTRAINT valid_period CHECK (period IN ('DAILY', 'WEEKLY', 'MONTHLY', 'ALL_TIME')),
    CONSTRAINT valid_rank CHECK (rank >= 1)
);

CREATE INDEX IF NOT EXISTS idx_leaderboard_period_rank ON leaderboard_entries(period, rank);
CREATE INDEX IF NOT EXISTS idx_leaderboard_user ON leaderboard_entries(user_id);
`

const migration004Down = `
DROP TABLE IF EXISTS leaderboard_entries;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 005: CREATE ANALYTICS
// ══════════════════════════════════════════════════════════════════════════════

const migration005Up = `
-- Migration: Create analytics tables
-- Version: 005

-- Daily activity aggregates, upserted by (user_id, date).
CREATE TABLE IF NOT EXISTS user_analytics (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL,
    date DATE NOT NULL,
    study_time_minutes INTEGER NOT NULL DEFAULT 0,
    characters_practiced INTEGER NOT NULL DEFAULT 0,
    accuracy_average DECIMAL(5,2) NOT NULL DEFAULT 0,
    xp_earned INTEGER NOT NULL DEFAULT 0,
    achievements_unlocked INTEGER NOT NULL DEFAULT 0,
    streak_maintained BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(user_id, date)
);

CREATE INDEX IF NOT EXISTS idx_user_analytics_user_date ON user_analytics(user_id, date DESC);
CREATE INDEX IF NOT EXISTS idx_user_analytics_date ON user_analytics(date);

DROP TRIGGER IF EXISTS update_user_analytics_updated_at ON user_analytics;
CREATE TRIGGER update_user_analytics_updated_at
    BEFORE UPDATE ON user_analytics
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();
`

const migration005Down = `
DROP TRIGGER IF EXISTS update_user_analytics_updated_at ON user_analytics;
DROP TABLE IF EXISTS user_analytics;
`
