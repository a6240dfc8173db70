package service

import (
	"context"
	"fmt"

	"github.com/lessonforge/progress-engine/internal/domain/progress"
	"github.com/lessonforge/progress-engine/pkg/logger"
)

// Warmer is the miss-repair dependency of the ledger. It always returns a
// usable value; durable-read failures degrade to empty state inside it.
type Warmer interface {
	WarmBitset(ctx context.Context, key progress.Key) progress.Bitset
	WarmBestHearts(ctx context.Context, key progress.Key) progress.BestHearts
	WarmAggregates(ctx context.Context, key progress.Key) progress.Aggregates
}

// BitLedger implements progress.Ledger: cache-aside reads with automatic
// miss-warming, and write-behind writes that land in cache and mark the
// pair dirty for the snapshot syncer.
//
// SetBit is a plain read-modify-write on the cache entry. Two concurrent
// completions on the same pair can race last-write-wins; this is the
// accepted weak-consistency trade-off and is not strengthened here.
type BitLedger struct {
	cache  progress.ProgressCache
	warmer Warmer
	dirty  progress.DirtySet
	log    *logger.Logger
}

// NewBitLedger creates a BitLedger.
func NewBitLedger(cache progress.ProgressCache, warmer Warmer, dirty progress.DirtySet, log *logger.Logger) *BitLedger {
	if log == nil {
		log = logger.Default()
	}
	return &BitLedger{
		cache:  cache,
		warmer: warmer,
		dirty:  dirty,
		log:    log.With(logger.Component("bit_ledger")),
	}
}

// Bitset returns the pair's completion bitset, warming the cache on miss.
func (l *BitLedger) Bitset(ctx context.Context, key progress.Key) (progress.Bitset, error) {
	bits, found, err := l.cache.GetBitset(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("bit_ledger: failed to read bitset: %w", err)
	}
	if !found {
		bits = l.warmer.WarmBitset(ctx, key)
	}
	return bits, nil
}

// BestHearts returns the pair's best-hearts map, warming the cache on miss.
func (l *BitLedger) BestHearts(ctx context.Context, key progress.Key) (progress.BestHearts, error) {
	m, found, err := l.cache.GetBestHearts(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("bit_ledger: failed to read best hearts: %w", err)
	}
	if !found {
		m = l.warmer.WarmBestHearts(ctx, key)
	}
	return m, nil
}

// Aggregates returns the pair's aggregate counters, warming the cache on miss.
func (l *BitLedger) Aggregates(ctx context.Context, key progress.Key) (progress.Aggregates, error) {
	a, found, err := l.cache.GetAggregates(ctx, key)
	if err != nil {
		return progress.Aggregates{}, fmt.Errorf("bit_ledger: failed to read aggregates: %w", err)
	}
	if !found {
		a = l.warmer.WarmAggregates(ctx, key)
	}
	return a, nil
}

// SetBit sets the bit at the given slot, growing the buffer as needed, and
// marks the pair dirty. Setting an already-set bit writes a byte-identical
// value; the dirty mark is still placed, which is harmless because sync
// overwrites full state.
func (l *BitLedger) SetBit(ctx context.Context, key progress.Key, slot int) (progress.Bitset, error) {
	bits, err := l.Bitset(ctx, key)
	if err != nil {
		return nil, err
	}

	updated := bits.Set(slot)
	if err := l.cache.SetBitset(ctx, key, updated); err != nil {
		return nil, fmt.Errorf("bit_ledger: failed to write bitset: %w", err)
	}
	l.markDirty(ctx, key)
	return updated, nil
}

// SetBestHearts stores the best-hearts map and marks the pair dirty.
func (l *BitLedger) SetBestHearts(ctx context.Context, key progress.Key, m progress.BestHearts) error {
	if err := l.cache.SetBestHearts(ctx, key, m); err != nil {
		return fmt.Errorf("bit_ledger: failed to write best hearts: %w", err)
	}
	l.markDirty(ctx, key)
	return nil
}

// SetAggregates stores the aggregate counters and marks the pair dirty.
func (l *BitLedger) SetAggregates(ctx context.Context, key progress.Key, a progress.Aggregates) error {
	if err := l.cache.SetAggregates(ctx, key, a); err != nil {
		return fmt.Errorf("bit_ledger: failed to write aggregates: %w", err)
	}
	l.markDirty(ctx, key)
	return nil
}

// markDirty records the pair for the next sync tick. A failed mark is
// logged rather than surfaced: the completion already landed in cache, and
// failing the request now would not make the snapshot any fresher.
func (l *BitLedger) markDirty(ctx context.Context, key progress.Key) {
	if err := l.dirty.Add(ctx, key); err != nil {
		l.log.Error("failed to mark pair dirty",
			logger.PlayerID(key.PlayerID), logger.SubjectID(key.SubjectID), logger.Err(err))
	}
}
