// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"

	"github.com/lessonforge/progress-engine/internal/domain/content"
	"github.com/lessonforge/progress-engine/internal/domain/progress"
	"github.com/lessonforge/progress-engine/internal/domain/shared"
	"github.com/lessonforge/progress-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// Projects a player's completion state onto a subject's content tree and
// resolves the locked / unlocked / passed status of every node.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery requests the annotated progress tree for one pair.
type GetProgressQuery struct {
	// PlayerID is the ID of the player.
	PlayerID string

	// SubjectID is the ID of the subject.
	SubjectID string
}

// Validate validates the query.
func (q GetProgressQuery) Validate() error {
	if q.PlayerID == "" {
		return shared.ErrEmptyPlayerID
	}
	if q.SubjectID == "" {
		return shared.ErrEmptySubjectID
	}
	return nil
}

// StructureLoader serves parsed, validated content trees.
type StructureLoader interface {
	Load(ctx context.Context, subjectID string) (*content.Node, error)
}

// ProgressView is the full query result: the annotated tree plus the derived
// summary figures the caller would otherwise recompute.
type ProgressView struct {
	SubjectID             string                `json:"subject_id"`
	Root                  *content.ProgressNode `json:"root"`
	CompletionPercentage  float64               `json:"completion_percentage"`
	TotalXPEarned         int                   `json:"total_xp_earned"`
	SuggestedNextLessonID *string               `json:"suggested_next_lesson_id"`
	TotalLessons          int                   `json:"total_lessons"`
	PassedLessons         int                   `json:"passed_lessons"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressHandler handles the GetProgressQuery.
type GetProgressHandler struct {
	structures StructureLoader
	ledger     progress.Ledger
	log        *logger.Logger
}

// NewGetProgressHandler creates a new GetProgressHandler.
func NewGetProgressHandler(structures StructureLoader, ledger progress.Ledger, log *logger.Logger) *GetProgressHandler {
	if log == nil {
		log = logger.Default()
	}
	return &GetProgressHandler{
		structures: structures,
		ledger:     ledger,
		log:        log.With(logger.Component("get_progress")),
	}
}

// Handle executes the query.
//
// A player with no recorded progress gets a fully resolved tree with every
// first-eligible lesson unlocked; there is no "not started" error state.
// Completion percentage is recomputed from the resolved tree rather than
// trusting the cached aggregate, so content edits reflect immediately.
func (h *GetProgressHandler) Handle(ctx context.Context, q GetProgressQuery) (*ProgressView, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	tree, err := h.structures.Load(ctx, q.SubjectID)
	if err != nil {
		return nil, err
	}

	key := progress.NewKey(q.PlayerID, q.SubjectID)

	bits, err := h.ledger.Bitset(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get_progress: failed to read progress: %w", err)
	}

	best, err := h.ledger.BestHearts(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get_progress: failed to read best hearts: %w", err)
	}

	aggr, err := h.ledger.Aggregates(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get_progress: failed to read aggregates: %w", err)
	}

	annotated := content.Resolve(tree, bits, best)
	passed := content.CountPassed(annotated)
	total := tree.CountLessons()

	view := &ProgressView{
		SubjectID:            q.SubjectID,
		Root:                 annotated,
		CompletionPercentage: content.CompletionPercent(passed, total),
		TotalXPEarned:        aggr.TotalXP,
		TotalLessons:         total,
		PassedLessons:        passed,
	}

	// Null, not empty string, when everything is passed or nothing is playable.
	if next := content.NextLesson(annotated); next != "" {
		view.SuggestedNextLessonID = &next
	}

	return view, nil
}
