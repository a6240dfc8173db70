package progress

import "context"

// SnapshotRepository is the durable snapshot store: one row per
// (player, subject) pair, full-state overwrite on every sync.
type SnapshotRepository interface {
	// Get returns the snapshot row for the pair, or nil when no row exists.
	// An absent row is not an error: it simply means empty progress.
	Get(ctx context.Context, key Key) (*SnapshotRow, error)

	// Upsert writes the full snapshot, creating the row (and its required
	// parent plan reference) on first sync.
	Upsert(ctx context.Context, row *SnapshotRow) error
}

// ProgressCache is the fast ephemeral store for per-pair progress state.
// The bitset, best-hearts map, and aggregates are independent cache entries
// with their own freshness lifecycles, but share the pair's dirty mark.
//
// Implementations sit on an injected key-value capability; the domain never
// couples to a specific cache technology.
type ProgressCache interface {
	// GetBitset returns the cached bitset. found=false means a cache miss,
	// which is distinct from a present-but-empty bitset.
	GetBitset(ctx context.Context, key Key) (b Bitset, found bool, err error)
	SetBitset(ctx context.Context, key Key, b Bitset) error

	GetBestHearts(ctx context.Context, key Key) (m BestHearts, found bool, err error)
	SetBestHearts(ctx context.Context, key Key, m BestHearts) error

	GetAggregates(ctx context.Context, key Key) (a Aggregates, found bool, err error)
	SetAggregates(ctx context.Context, key Key, a Aggregates) error
}

// DirtySet tracks the (player, subject) pairs known to differ from their
// durable snapshots. Marking is idempotent; PopN removes the returned keys
// from the set, so a mark that races an in-flight flush lands as a fresh
// member and survives the tick.
type DirtySet interface {
	Add(ctx context.Context, key Key) error
	PopN(ctx context.Context, n int) ([]Key, error)
}

// Ledger is the cache-aside accessor for per-pair progress state: reads warm
// the cache from the durable store on miss, writes land in cache and mark
// the pair dirty for the write-behind syncer.
//
// Reads never fail on durable-store trouble; they degrade to empty state.
// Two concurrent writes to the same pair race last-write-wins; this is the
// documented weak-consistency trade-off.
type Ledger interface {
	Bitset(ctx context.Context, key Key) (Bitset, error)
	BestHearts(ctx context.Context, key Key) (BestHearts, error)
	Aggregates(ctx context.Context, key Key) (Aggregates, error)

	// SetBit performs the read-modify-write on the cached bitset and returns
	// the updated value. Idempotent on an already-set slot.
	SetBit(ctx context.Context, key Key, slot int) (Bitset, error)

	SetBestHearts(ctx context.Context, key Key, m BestHearts) error
	SetAggregates(ctx context.Context, key Key, a Aggregates) error
}

// EnrollmentChecker verifies that a player may record progress in a subject.
// Enrollment itself is managed outside this engine.
type EnrollmentChecker interface {
	IsEnrolled(ctx context.Context, playerID, subjectID string) (bool, error)
}
