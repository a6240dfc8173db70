// Package service contains infrastructure adapters that compose persistence
// components into the domain-facing capabilities the application layer uses.
package service

import (
	"context"

	"github.com/lessonforge/progress-engine/internal/domain/progress"
	"github.com/lessonforge/progress-engine/pkg/circuitbreaker"
	"github.com/lessonforge/progress-engine/pkg/logger"
)

// CacheWarmer repopulates the progress cache from the durable snapshot
// store after a miss. It never fails the caller: any durable-read trouble
// is logged and degraded to empty state, because the read path favors
// availability over freshness.
//
// An absent row is a definitive answer, not a failure: the empty state is
// cached so the pair costs exactly one durable read, after which every read
// is a cache hit. Only genuine read failures leave the entry uncached, so
// the next read retries the durable store.
//
// Warming is idempotent under concurrent duplicate calls: overlapping warms
// derive identical state from the same durable row, so whichever write lands
// last leaves the cache correct.
type CacheWarmer struct {
	snapshots progress.SnapshotRepository
	cache     progress.ProgressCache
	breaker   *circuitbreaker.CircuitBreaker
	log       *logger.Logger
}

// NewCacheWarmer creates a CacheWarmer. The breaker guards the durable
// store against read storms while it is down; a nil breaker disables the
// guard.
func NewCacheWarmer(
	snapshots progress.SnapshotRepository,
	cache progress.ProgressCache,
	breaker *circuitbreaker.CircuitBreaker,
	log *logger.Logger,
) *CacheWarmer {
	if log == nil {
		log = logger.Default()
	}
	return &CacheWarmer{
		snapshots: snapshots,
		cache:     cache,
		breaker:   breaker,
		log:       log.With(logger.Component("cache_warmer")),
	}
}

// WarmBitset populates and returns the pair's bitset from the durable row.
// An absent row means empty progress and the empty bitset is cached as such.
func (w *CacheWarmer) WarmBitset(ctx context.Context, key progress.Key) progress.Bitset {
	row, ok := w.readRow(ctx, key)
	if !ok {
		return progress.NewBitset()
	}

	bits := progress.NewBitset()
	if row != nil {
		decoded, err := progress.DecodeBitset(row.EncodedBitset)
		if err != nil {
			// Leave the entry uncached so the read retries once the row is
			// repaired.
			w.log.Error("corrupt bitset in snapshot, degrading to empty",
				logger.PlayerID(key.PlayerID), logger.SubjectID(key.SubjectID), logger.Err(err))
			return progress.NewBitset()
		}
		bits = decoded
	}

	if err := w.cache.SetBitset(ctx, key, bits); err != nil {
		w.log.Warn("failed to populate bitset cache entry",
			logger.PlayerID(key.PlayerID), logger.SubjectID(key.SubjectID), logger.Err(err))
	}
	return bits
}

// WarmBestHearts populates and returns the pair's best-hearts map.
func (w *CacheWarmer) WarmBestHearts(ctx context.Context, key progress.Key) progress.BestHearts {
	row, ok := w.readRow(ctx, key)
	if !ok {
		return progress.BestHearts{}
	}

	best := progress.BestHearts{}
	if row != nil && row.BestHearts != nil {
		best = row.BestHearts
	}

	if err := w.cache.SetBestHearts(ctx, key, best); err != nil {
		w.log.Warn("failed to populate best-hearts cache entry",
			logger.PlayerID(key.PlayerID), logger.SubjectID(key.SubjectID), logger.Err(err))
	}
	return best
}

// WarmAggregates populates and returns the pair's aggregate counters.
func (w *CacheWarmer) WarmAggregates(ctx context.Context, key progress.Key) progress.Aggregates {
	row, ok := w.readRow(ctx, key)
	if !ok {
		return progress.Aggregates{}
	}

	a := progress.Aggregates{}
	if row != nil {
		a.TotalXP = row.TotalXP
		a.CompletionPercent = row.CompletionPercent
	}

	if err := w.cache.SetAggregates(ctx, key, a); err != nil {
		w.log.Warn("failed to populate aggregates cache entry",
			logger.PlayerID(key.PlayerID), logger.SubjectID(key.SubjectID), logger.Err(err))
	}
	return a
}

// readRow fetches the durable row through the breaker. ok=false means the
// read itself failed (logged, degraded to empty, left uncached); a nil row
// with ok=true is the definitive "no progress recorded yet" answer.
func (w *CacheWarmer) readRow(ctx context.Context, key progress.Key) (row *progress.SnapshotRow, ok bool) {
	read := func(ctx context.Context) error {
		var err error
		row, err = w.snapshots.Get(ctx, key)
		return err
	}

	var err error
	if w.breaker != nil {
		err = w.breaker.Execute(ctx, read)
	} else {
		err = read(ctx)
	}

	if err != nil {
		w.log.Error("durable read failed during warm, degrading to empty state",
			logger.PlayerID(key.PlayerID), logger.SubjectID(key.SubjectID), logger.Err(err))
		return nil, false
	}
	return row, true
}
