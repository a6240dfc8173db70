package progress

import (
	"fmt"
	"strings"
	"time"
)

// Key identifies a (player, subject) progress pair. All cache entries,
// dirty marks, and snapshot rows hang off this composite key.
type Key struct {
	PlayerID  string
	SubjectID string
}

// NewKey creates a Key.
func NewKey(playerID, subjectID string) Key {
	return Key{PlayerID: playerID, SubjectID: subjectID}
}

// String renders the key in its wire form "player|subject", used as the
// dirty-set member encoding.
func (k Key) String() string {
	return k.PlayerID + "|" + k.SubjectID
}

// ParseKey is the inverse of String.
func ParseKey(s string) (Key, error) {
	player, subject, ok := strings.Cut(s, "|")
	if !ok || player == "" || subject == "" {
		return Key{}, fmt.Errorf("progress: malformed dirty key %q", s)
	}
	return Key{PlayerID: player, SubjectID: subject}, nil
}

// Aggregates are the denormalized per-pair counters carried alongside the
// bitset, kept in cache and written out with every snapshot sync.
type Aggregates struct {
	// TotalXP is the accumulated XP for this (player, subject) pair.
	TotalXP int `json:"total_xp"`

	// CompletionPercent is passed/total*100, rounded to 2 decimals.
	CompletionPercent float64 `json:"completion_percent"`
}

// SnapshotRow mirrors one durable row: the ground truth for a
// (player, subject) pair. The bitset travels encoded; best hearts as JSON.
type SnapshotRow struct {
	PlayerID          string
	SubjectID         string
	EncodedBitset     string
	BestHearts        BestHearts
	TotalXP           int
	CompletionPercent float64
	LastSyncedAt      time.Time
}

// CompletionResult is the outcome of recording a lesson completion.
type CompletionResult struct {
	Success           bool `json:"success"`
	XPEarned          int  `json:"xp_earned"`
	NewTotalXP        int  `json:"new_total_xp"`
	IsFirstCompletion bool `json:"is_first_completion"`
	IsNewRecord       bool `json:"is_new_record"`
}

// SyncStats summarizes one write-behind sync tick.
type SyncStats struct {
	SyncedCount int
	FailedCount int
}
