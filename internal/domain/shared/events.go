package shared

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened in the progress domain.
const (
	// Progress events
	EventLessonCompleted EventType = "progress.lesson_completed"

	// System events
	EventSnapshotSynced EventType = "system.snapshot_synced"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventHandler processes a published event.
type EventHandler func(event Event) error

// EventPublisher publishes domain events to interested subscribers.
type EventPublisher interface {
	Publish(event Event) error
}

// EventBus is a publisher that also manages subscriptions.
type EventBus interface {
	EventPublisher
	Subscribe(eventType EventType, handler EventHandler) error
	SubscribeAll(handler EventHandler) error
	Close() error
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

// NewBaseEvent creates a BaseEvent stamped with a fresh id and the current time.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// EventType returns the type of the event.
func (e BaseEvent) EventType() EventType { return e.Type }

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// AggregateID returns the aggregate that produced the event.
func (e BaseEvent) AggregateID() string { return e.AggregateId }

// LessonCompletedEvent is published every time a completion is recorded,
// first pass or replay.
type LessonCompletedEvent struct {
	BaseEvent
	PlayerID          string `json:"player_id"`
	SubjectID         string `json:"subject_id"`
	LessonID          string `json:"lesson_id"`
	Hearts            int    `json:"hearts"`
	XPEarned          int    `json:"xp_earned"`
	IsFirstCompletion bool   `json:"is_first_completion"`
	IsNewRecord       bool   `json:"is_new_record"`
}

// NewLessonCompletedEvent creates a LessonCompletedEvent.
func NewLessonCompletedEvent(playerID, subjectID, lessonID string, hearts, xpEarned int, first, record bool) *LessonCompletedEvent {
	return &LessonCompletedEvent{
		BaseEvent:         NewBaseEvent(EventLessonCompleted, playerID),
		PlayerID:          playerID,
		SubjectID:         subjectID,
		LessonID:          lessonID,
		Hearts:            hearts,
		XPEarned:          xpEarned,
		IsFirstCompletion: first,
		IsNewRecord:       record,
	}
}

// Payload returns the event data for serialization.
func (e *LessonCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"player_id":           e.PlayerID,
		"subject_id":          e.SubjectID,
		"lesson_id":           e.LessonID,
		"hearts":              e.Hearts,
		"xp_earned":           e.XPEarned,
		"is_first_completion": e.IsFirstCompletion,
		"is_new_record":       e.IsNewRecord,
	}
}

// SnapshotSyncedEvent is published after a write-behind sync tick completes.
type SnapshotSyncedEvent struct {
	BaseEvent
	SyncedCount int `json:"synced_count"`
	FailedCount int `json:"failed_count"`
}

// NewSnapshotSyncedEvent creates a SnapshotSyncedEvent.
func NewSnapshotSyncedEvent(synced, failed int) *SnapshotSyncedEvent {
	return &SnapshotSyncedEvent{
		BaseEvent:   NewBaseEvent(EventSnapshotSynced, "snapshot-syncer"),
		SyncedCount: synced,
		FailedCount: failed,
	}
}

// Payload returns the event data for serialization.
func (e *SnapshotSyncedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"synced_count": e.SyncedCount,
		"failed_count": e.FailedCount,
	}
}
