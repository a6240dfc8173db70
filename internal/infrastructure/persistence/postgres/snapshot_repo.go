package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lessonforge/progress-engine/internal/domain/progress"
)

// SnapshotRepository implements progress.SnapshotRepository for PostgreSQL.
type SnapshotRepository struct {
	conn *Connection
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(conn *Connection) *SnapshotRepository {
	return &SnapshotRepository{conn: conn}
}

// Get returns the snapshot row for the pair, or nil when no row exists.
func (r *SnapshotRepository) Get(ctx context.Context, key progress.Key) (*progress.SnapshotRow, error) {
	query := `
		SELECT player_id, subject_id, encoded_bitset, best_hearts,
		       total_xp, completion_percent, last_synced_at
		FROM progress_snapshots
		WHERE player_id = $1 AND subject_id = $2
	`

	var row progress.SnapshotRow
	var heartsJSON []byte

	err := r.conn.QueryRow(ctx, query, key.PlayerID, key.SubjectID).Scan(
		&row.PlayerID,
		&row.SubjectID,
		&row.EncodedBitset,
		&heartsJSON,
		&row.TotalXP,
		&row.CompletionPercent,
		&row.LastSyncedAt,
	)
	if err != nil {
		if errors.Is(err, ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	row.BestHearts = progress.BestHearts{}
	if len(heartsJSON) > 0 {
		if err := json.Unmarshal(heartsJSON, &row.BestHearts); err != nil {
			return nil, fmt.Errorf("failed to decode best hearts: %w", err)
		}
	}

	return &row, nil
}

// Upsert writes the full snapshot for the pair, creating the parent plan
// row on first sync. Every sync overwrites the whole state, which is what
// makes the write-behind retry naturally idempotent.
func (r *SnapshotRepository) Upsert(ctx context.Context, row *progress.SnapshotRow) error {
	if row == nil {
		return errors.New("postgres: nil snapshot row")
	}

	planID, err := r.ensurePlan(ctx, row.PlayerID, row.SubjectID)
	if err != nil {
		return err
	}

	hearts := row.BestHearts
	if hearts == nil {
		hearts = progress.BestHearts{}
	}
	heartsJSON, err := json.Marshal(hearts)
	if err != nil {
		return fmt.Errorf("failed to encode best hearts: %w", err)
	}

	syncedAt := row.LastSyncedAt
	if syncedAt.IsZero() {
		syncedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO progress_snapshots
			(id, plan_id, player_id, subject_id, encoded_bitset, best_hearts,
			 total_xp, completion_percent, last_synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (player_id, subject_id) DO UPDATE SET
			encoded_bitset = EXCLUDED.encoded_bitset,
			best_hearts = EXCLUDED.best_hearts,
			total_xp = EXCLUDED.total_xp,
			completion_percent = EXCLUDED.completion_percent,
			last_synced_at = EXCLUDED.last_synced_at
	`

	_, err = r.conn.Exec(ctx, query,
		uuid.New(),
		planID,
		row.PlayerID,
		row.SubjectID,
		row.EncodedBitset,
		heartsJSON,
		row.TotalXP,
		row.CompletionPercent,
		syncedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	return nil
}

// ensurePlan resolves the parent plan row for a pair, creating it if absent.
func (r *SnapshotRepository) ensurePlan(ctx context.Context, playerID, subjectID string) (uuid.UUID, error) {
	query := `
		INSERT INTO learning_plans (id, player_id, subject_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (player_id, subject_id) DO UPDATE SET player_id = EXCLUDED.player_id
		RETURNING id
	`

	var planID uuid.UUID
	if err := r.conn.QueryRow(ctx, query, uuid.New(), playerID, subjectID).Scan(&planID); err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve learning plan: %w", err)
	}
	return planID, nil
}
