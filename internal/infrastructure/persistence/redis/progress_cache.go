package redis

import (
	"context"
	"errors"

	"github.com/lessonforge/progress-engine/internal/domain/progress"
)

// ProgressCache implements progress.ProgressCache on the generic Cache.
//
// The bitset entry holds raw bytes; best hearts and aggregates are JSON.
// Entries are written without TTL: a pair's cache entry is created lazily on
// first read, mutated on each completion, and persists indefinitely.
type ProgressCache struct {
	cache *Cache
}

// NewProgressCache creates a new ProgressCache.
func NewProgressCache(cache *Cache) *ProgressCache {
	return &ProgressCache{cache: cache}
}

// GetBitset returns the cached bitset for the pair.
func (p *ProgressCache) GetBitset(ctx context.Context, key progress.Key) (progress.Bitset, bool, error) {
	data, err := p.cache.GetBytes(ctx, BitsetKey(key.PlayerID, key.SubjectID))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return progress.Bitset(data), true, nil
}

// SetBitset stores the bitset for the pair.
func (p *ProgressCache) SetBitset(ctx context.Context, key progress.Key, b progress.Bitset) error {
	return p.cache.SetBytes(ctx, BitsetKey(key.PlayerID, key.SubjectID), []byte(b), 0)
}

// GetBestHearts returns the cached best-hearts map for the pair.
func (p *ProgressCache) GetBestHearts(ctx context.Context, key progress.Key) (progress.BestHearts, bool, error) {
	var m progress.BestHearts
	err := p.cache.GetJSON(ctx, BestHeartsKey(key.PlayerID, key.SubjectID), &m)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if m == nil {
		m = progress.BestHearts{}
	}
	return m, true, nil
}

// SetBestHearts stores the best-hearts map for the pair.
func (p *ProgressCache) SetBestHearts(ctx context.Context, key progress.Key, m progress.BestHearts) error {
	return p.cache.SetJSON(ctx, BestHeartsKey(key.PlayerID, key.SubjectID), m, 0)
}

// GetAggregates returns the cached aggregate counters for the pair.
func (p *ProgressCache) GetAggregates(ctx context.Context, key progress.Key) (progress.Aggregates, bool, error) {
	var a progress.Aggregates
	err := p.cache.GetJSON(ctx, AggregatesKey(key.PlayerID, key.SubjectID), &a)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return progress.Aggregates{}, false, nil
		}
		return progress.Aggregates{}, false, err
	}
	return a, true, nil
}

// SetAggregates stores the aggregate counters for the pair.
func (p *ProgressCache) SetAggregates(ctx context.Context, key progress.Key, a progress.Aggregates) error {
	return p.cache.SetJSON(ctx, AggregatesKey(key.PlayerID, key.SubjectID), a, 0)
}
