package redis

import (
	"context"

	"github.com/lessonforge/progress-engine/internal/domain/progress"
)

// DirtyTracker implements progress.DirtySet on a Redis SET. Members are the
// "player|subject" wire form of progress.Key.
//
// PopN uses SPOPN, so a popped key is out of the set before its sync starts.
// A mark that arrives while the flush is still in flight lands as a fresh
// member and survives into the next tick; nothing is ever silently lost.
type DirtyTracker struct {
	cache *Cache
	key   string
}

// NewDirtyTracker creates a DirtyTracker on the default dirty-set key.
func NewDirtyTracker(cache *Cache) *DirtyTracker {
	return &DirtyTracker{cache: cache, key: KeyDirtySet}
}

// Add marks a pair as differing from its durable snapshot. Marking an
// already-dirty pair is a no-op at the set level.
func (t *DirtyTracker) Add(ctx context.Context, key progress.Key) error {
	return t.cache.SAdd(ctx, t.key, key.String())
}

// PopN removes and returns up to n dirty keys. Malformed members are
// dropped; they cannot be synced and re-adding them would wedge the set.
func (t *DirtyTracker) PopN(ctx context.Context, n int) ([]progress.Key, error) {
	if n <= 0 {
		return nil, nil
	}

	members, err := t.cache.SPopN(ctx, t.key, int64(n))
	if err != nil {
		return nil, err
	}

	keys := make([]progress.Key, 0, len(members))
	for _, m := range members {
		key, err := progress.ParseKey(m)
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Pending returns the number of keys currently marked dirty.
func (t *DirtyTracker) Pending(ctx context.Context) (int64, error) {
	return t.cache.SCard(ctx, t.key)
}
