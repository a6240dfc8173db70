// Package jobs contains implementations of scheduled jobs for the progress
// engine. The snapshot sync job is the write-behind half of the cache-aside
// design: completions land in the fast store immediately and this job flushes
// them to the durable store on a fixed cadence.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/lessonforge/progress-engine/internal/domain/progress"
	"github.com/lessonforge/progress-engine/internal/domain/shared"
	"github.com/lessonforge/progress-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// SYNC SNAPSHOTS JOB
// ══════════════════════════════════════════════════════════════════════════════

// SyncSnapshotsJob flushes dirty (player, subject) pairs to the durable
// snapshot store. Each pair's full current state is re-read from the cache
// at flush time and written with an overwrite upsert, so retried or
// duplicated flushes converge on the same row.
//
// A pair that fails to flush is re-marked dirty and picked up again on the
// next tick; one bad pair never aborts the batch.
type SyncSnapshotsJob struct {
	ledger         progress.Ledger
	dirty          progress.DirtySet
	snapshots      progress.SnapshotRepository
	retrier        *retry.Retrier
	eventPublisher shared.EventPublisher
	logger         *slog.Logger

	config SyncSnapshotsConfig

	lastSyncStats atomic.Value // *progress.SyncStats
}

// SyncSnapshotsConfig contains configuration for the sync job.
type SyncSnapshotsConfig struct {
	// MaxBatch is the maximum number of dirty pairs drained per tick.
	// Pairs beyond the batch stay dirty and flush on a later tick.
	MaxBatch int

	// Timeout is the maximum duration for one full sync tick.
	Timeout time.Duration
}

// DefaultSyncSnapshotsConfig returns sensible defaults.
func DefaultSyncSnapshotsConfig() SyncSnapshotsConfig {
	return SyncSnapshotsConfig{
		MaxBatch: 256,
		Timeout:  time.Minute,
	}
}

// NewSyncSnapshotsJob creates a new snapshot sync job.
func NewSyncSnapshotsJob(
	ledger progress.Ledger,
	dirty progress.DirtySet,
	snapshots progress.SnapshotRepository,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
	config SyncSnapshotsConfig,
) *SyncSnapshotsJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxBatch <= 0 {
		config.MaxBatch = 256
	}

	return &SyncSnapshotsJob{
		ledger:         ledger,
		dirty:          dirty,
		snapshots:      snapshots,
		retrier:        retry.SnapshotRetrier(),
		eventPublisher: eventPublisher,
		logger:         logger,
		config:         config,
	}
}

// Name returns the job name.
func (j *SyncSnapshotsJob) Name() string {
	return "sync_snapshots"
}

// Description returns a human-readable description.
func (j *SyncSnapshotsJob) Description() string {
	return "Flushes dirty progress pairs to the durable snapshot store"
}

// Run executes one sync tick.
func (j *SyncSnapshotsJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &progress.SyncStats{}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	// Pop first, then sync. A completion that re-marks a popped pair while
	// its flush is in flight lands as a fresh member and survives the tick.
	keys, err := j.dirty.PopN(ctx, j.config.MaxBatch)
	if err != nil {
		return fmt.Errorf("failed to drain dirty set: %w", err)
	}

	if len(keys) == 0 {
		j.lastSyncStats.Store(stats)
		return nil
	}

	j.logger.Info("starting snapshot sync", "dirty_count", len(keys))

	for _, key := range keys {
		select {
		case <-ctx.Done():
			// Remaining pairs go back to the dirty set for the next tick.
			j.requeue(key)
			stats.FailedCount++
			continue
		default:
		}

		if err := j.syncPair(ctx, key); err != nil {
			stats.FailedCount++
			j.requeue(key)
			j.logger.Error("failed to sync pair",
				"player_id", key.PlayerID,
				"subject_id", key.SubjectID,
				"error", err,
			)
			continue
		}
		stats.SyncedCount++
	}

	j.lastSyncStats.Store(stats)
	j.emitSyncedEvent(stats)

	j.logger.Info("snapshot sync completed",
		"duration", time.Since(startedAt).String(),
		"synced", stats.SyncedCount,
		"failed", stats.FailedCount,
	)

	return nil
}

// syncPair reads the pair's current cache state and overwrites its durable row.
func (j *SyncSnapshotsJob) syncPair(ctx context.Context, key progress.Key) error {
	bits, err := j.ledger.Bitset(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read bitset: %w", err)
	}

	best, err := j.ledger.BestHearts(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read best hearts: %w", err)
	}

	aggr, err := j.ledger.Aggregates(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read aggregates: %w", err)
	}

	row := &progress.SnapshotRow{
		PlayerID:          key.PlayerID,
		SubjectID:         key.SubjectID,
		EncodedBitset:     bits.Encode(),
		BestHearts:        best,
		TotalXP:           aggr.TotalXP,
		CompletionPercent: aggr.CompletionPercent,
		LastSyncedAt:      time.Now().UTC(),
	}

	return j.retrier.Do(ctx, func(ctx context.Context) error {
		if err := j.snapshots.Upsert(ctx, row); err != nil {
			return retry.Retryable(err)
		}
		return nil
	})
}

// requeue puts a failed pair back in the dirty set. Uses a detached context
// so a cancelled tick can still return its leftovers.
func (j *SyncSnapshotsJob) requeue(key progress.Key) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := j.dirty.Add(ctx, key); err != nil {
		j.logger.Error("failed to re-mark pair dirty, pending changes may be lost until next write",
			"player_id", key.PlayerID,
			"subject_id", key.SubjectID,
			"error", err,
		)
	}
}

// emitSyncedEvent publishes a sync completed event.
func (j *SyncSnapshotsJob) emitSyncedEvent(stats *progress.SyncStats) {
	if j.eventPublisher == nil {
		return
	}
	event := shared.NewSnapshotSyncedEvent(stats.SyncedCount, stats.FailedCount)
	if err := j.eventPublisher.Publish(event); err != nil {
		j.logger.Warn("failed to publish snapshot synced event", "error", err)
	}
}

// LastSyncStats returns statistics from the last sync run.
func (j *SyncSnapshotsJob) LastSyncStats() *progress.SyncStats {
	stats := j.lastSyncStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*progress.SyncStats)
}
