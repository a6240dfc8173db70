package postgres

import (
	"context"
	"fmt"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: LEARNING PLANS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create learning plans table
-- Version: 001

-- A learning plan is the parent record every snapshot row references.
-- It is created implicitly on the first successful snapshot sync.
CREATE TABLE IF NOT EXISTS learning_plans (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    player_id VARCHAR(64) NOT NULL,
    subject_id VARCHAR(64) NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_learning_plans_pair UNIQUE (player_id, subject_id)
);

CREATE INDEX IF NOT EXISTS idx_learning_plans_player ON learning_plans(player_id);
CREATE INDEX IF NOT EXISTS idx_learning_plans_subject ON learning_plans(subject_id);
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: PROGRESS SNAPSHOTS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create progress snapshots table
-- Version: 002

-- One row per (player, subject): the durable ground truth behind the cache.
-- The bitset is an opaque base64 byte buffer; best hearts a JSON object.
CREATE TABLE IF NOT EXISTS progress_snapshots (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    plan_id UUID NOT NULL REFERENCES learning_plans(id) ON DELETE CASCADE,
    player_id VARCHAR(64) NOT NULL,
    subject_id VARCHAR(64) NOT NULL,
    encoded_bitset TEXT NOT NULL DEFAULT '',
    best_hearts JSONB NOT NULL DEFAULT '{}'::jsonb,
    total_xp INTEGER NOT NULL DEFAULT 0,
    completion_percent DECIMAL(5,2) NOT NULL DEFAULT 0.00,
    last_synced_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_progress_snapshots_pair UNIQUE (player_id, subject_id),
    CONSTRAINT valid_total_xp CHECK (total_xp >= 0),
    CONSTRAINT valid_completion CHECK (completion_percent >= 0 AND completion_percent <= 100)
);

CREATE INDEX IF NOT EXISTS idx_progress_snapshots_player ON progress_snapshots(player_id);
CREATE INDEX IF NOT EXISTS idx_progress_snapshots_synced ON progress_snapshots(last_synced_at);
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: ENROLLMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create enrollments table
-- Version: 003

-- Enrollment membership consulted before recording a completion.
-- Rows are managed by the enrollment service, read-only here.
CREATE TABLE IF NOT EXISTS enrollments (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    player_id VARCHAR(64) NOT NULL,
    subject_id VARCHAR(64) NOT NULL,
    enrolled_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_enrollments_pair UNIQUE (player_id, subject_id)
);

CREATE INDEX IF NOT EXISTS idx_enrollments_player ON enrollments(player_id);
`

// migrations lists all migrations in order.
var migrations = []struct {
	version int
	name    string
	up      string
}{
	{1, "create_learning_plans", migration001Up},
	{2, "create_progress_snapshots", migration002Up},
	{3, "create_enrollments", migration003Up},
}

const migrationTableSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

// Migrate applies all pending migrations in order.
func Migrate(ctx context.Context, conn *Connection) error {
	if _, err := conn.Exec(ctx, migrationTableSQL); err != nil {
		return fmt.Errorf("%w: failed to create schema_migrations: %v", ErrMigrationFailed, err)
	}

	for _, m := range migrations {
		var applied bool
		err := conn.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, m.version,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("%w: failed to check version %d: %v", ErrMigrationFailed, m.version, err)
		}
		if applied {
			continue
		}

		if _, err := conn.Exec(ctx, m.up); err != nil {
			return fmt.Errorf("%w: migration %03d (%s): %v", ErrMigrationFailed, m.version, m.name, err)
		}

		if _, err := conn.Exec(ctx,
			`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.version, m.name,
		); err != nil {
			return fmt.Errorf("%w: failed to record version %d: %v", ErrMigrationFailed, m.version, err)
		}
	}

	return nil
}
