// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"

	"github.com/lessonforge/progress-engine/internal/domain/content"
	"github.com/lessonforge/progress-engine/internal/domain/progress"
	"github.com/lessonforge/progress-engine/internal/domain/shared"
	"github.com/lessonforge/progress-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD COMPLETION COMMAND
// Records a lesson completion: sets the slot bit, settles the XP reward, and
// refreshes the pair's aggregates. The durable snapshot catches up on the
// next sync tick.
// ══════════════════════════════════════════════════════════════════════════════

// RecordCompletionCommand contains the data to record a lesson completion.
// The subject is not part of the input; it is resolved from the lesson.
type RecordCompletionCommand struct {
	// PlayerID is the ID of the player who completed the lesson.
	PlayerID string

	// LessonID is the ID of the completed lesson.
	LessonID string

	// HeartsRemaining is the completion quality, 0 to 5.
	HeartsRemaining int
}

// Validate validates the command.
func (c RecordCompletionCommand) Validate() error {
	if c.PlayerID == "" {
		return shared.ErrEmptyPlayerID
	}
	if c.LessonID == "" {
		return shared.ErrEmptyLessonID
	}
	if c.HeartsRemaining < progress.MinHearts || c.HeartsRemaining > progress.MaxHearts {
		return shared.ErrInvalidHearts
	}
	return nil
}

// StructureProvider resolves lessons to subjects and serves parsed trees.
type StructureProvider interface {
	// Load returns the validated content tree for a subject.
	Load(ctx context.Context, subjectID string) (*content.Node, error)

	// LocateLesson resolves the subject a lesson belongs to.
	LocateLesson(ctx context.Context, lessonID string) (string, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordCompletionHandler handles the RecordCompletionCommand.
type RecordCompletionHandler struct {
	structures     StructureProvider
	ledger         progress.Ledger
	enrollment     progress.EnrollmentChecker
	eventPublisher shared.EventPublisher
	log            *logger.Logger

	baseXP int
}

// NewRecordCompletionHandler creates a new RecordCompletionHandler.
// A non-positive baseXP falls back to the default first-completion reward.
func NewRecordCompletionHandler(
	structures StructureProvider,
	ledger progress.Ledger,
	enrollment progress.EnrollmentChecker,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
	baseXP int,
) *RecordCompletionHandler {
	if log == nil {
		log = logger.Default()
	}
	if baseXP <= 0 {
		baseXP = progress.DefaultBaseXP
	}

	return &RecordCompletionHandler{
		structures:     structures,
		ledger:         ledger,
		enrollment:     enrollment,
		eventPublisher: eventPublisher,
		log:            log.With(logger.Component("record_completion")),
		baseXP:         baseXP,
	}
}

// Handle executes the record completion command.
//
// Replays are first-class: completing an already-passed lesson succeeds,
// leaves the bitset unchanged, and pays XP only for a hearts improvement.
func (h *RecordCompletionHandler) Handle(ctx context.Context, cmd RecordCompletionCommand) (*progress.CompletionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	subjectID, err := h.structures.LocateLesson(ctx, cmd.LessonID)
	if err != nil {
		return nil, err
	}

	enrolled, err := h.enrollment.IsEnrolled(ctx, cmd.PlayerID, subjectID)
	if err != nil {
		return nil, fmt.Errorf("record_completion: failed to check enrollment: %w", err)
	}
	if !enrolled {
		return nil, shared.ErrPlayerNotEnrolled
	}

	tree, err := h.structures.Load(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	lesson := content.FindLesson(tree, cmd.LessonID)
	if lesson == nil || lesson.SlotIndex == nil {
		// The index located the lesson but the loaded tree disagrees: the
		// content changed underneath us.
		return nil, shared.ErrLessonNotFound
	}
	slot := *lesson.SlotIndex

	key := progress.NewKey(cmd.PlayerID, subjectID)

	bits, err := h.ledger.Bitset(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("record_completion: failed to read progress: %w", err)
	}
	isFirst := !bits.Check(slot)

	best, err := h.ledger.BestHearts(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("record_completion: failed to read best hearts: %w", err)
	}

	outcome := progress.CalculateXP(cmd.LessonID, cmd.HeartsRemaining, isFirst, best, h.baseXP)

	updatedBits := bits
	if isFirst {
		updatedBits, err = h.ledger.SetBit(ctx, key, slot)
		if err != nil {
			return nil, fmt.Errorf("record_completion: failed to set completion bit: %w", err)
		}
	}

	if outcome.IsNewRecord {
		if err := h.ledger.SetBestHearts(ctx, key, outcome.UpdatedBest); err != nil {
			return nil, fmt.Errorf("record_completion: failed to store best hearts: %w", err)
		}
	}

	aggr, err := h.ledger.Aggregates(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("record_completion: failed to read aggregates: %w", err)
	}

	annotated := content.Resolve(tree, updatedBits, outcome.UpdatedBest)
	passed := content.CountPassed(annotated)
	total := tree.CountLessons()

	newAggr := progress.Aggregates{
		TotalXP:           aggr.TotalXP + outcome.XPEarned,
		CompletionPercent: content.CompletionPercent(passed, total),
	}
	if err := h.ledger.SetAggregates(ctx, key, newAggr); err != nil {
		return nil, fmt.Errorf("record_completion: failed to store aggregates: %w", err)
	}

	h.publishCompleted(cmd, subjectID, outcome, isFirst)

	h.log.Info("completion recorded",
		logger.PlayerID(cmd.PlayerID),
		logger.SubjectID(subjectID),
		logger.LessonID(cmd.LessonID),
		logger.Slot(slot),
		logger.XPAmount(outcome.XPEarned),
		logger.Bool("first", isFirst),
	)

	return &progress.CompletionResult{
		Success:           true,
		XPEarned:          outcome.XPEarned,
		NewTotalXP:        newAggr.TotalXP,
		IsFirstCompletion: isFirst,
		IsNewRecord:       outcome.IsNewRecord,
	}, nil
}

// publishCompleted emits the completion event. Publish failures are logged
// rather than surfaced; the completion itself already succeeded.
func (h *RecordCompletionHandler) publishCompleted(cmd RecordCompletionCommand, subjectID string, outcome progress.XPOutcome, isFirst bool) {
	if h.eventPublisher == nil {
		return
	}

	event := shared.NewLessonCompletedEvent(
		cmd.PlayerID, subjectID, cmd.LessonID,
		cmd.HeartsRemaining, outcome.XPEarned, isFirst, outcome.IsNewRecord,
	)
	if err := h.eventPublisher.Publish(event); err != nil {
		h.log.Warn("failed to publish lesson completed event",
			logger.PlayerID(cmd.PlayerID), logger.LessonID(cmd.LessonID), logger.Err(err))
	}
}
