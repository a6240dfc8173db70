package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lessonforge/progress-engine/internal/domain/content"
	"github.com/lessonforge/progress-engine/internal/domain/progress"
	"github.com/lessonforge/progress-engine/internal/domain/shared"
)

// ─────────────────────────────────────────────────────────────────────────────
// FAKES
// ─────────────────────────────────────────────────────────────────────────────

type fakeStructures struct {
	trees map[string]*content.Node
}

func (f *fakeStructures) Load(_ context.Context, subjectID string) (*content.Node, error) {
	tree, ok := f.trees[subjectID]
	if !ok {
		return nil, shared.ErrStructureNotFound
	}
	return tree, nil
}

func (f *fakeStructures) LocateLesson(_ context.Context, lessonID string) (string, error) {
	for subjectID, tree := range f.trees {
		if content.FindLesson(tree, lessonID) != nil {
			return subjectID, nil
		}
	}
	return "", shared.ErrLessonNotFound
}

type fakeLedger struct {
	bits       map[progress.Key]progress.Bitset
	best       map[progress.Key]progress.BestHearts
	aggregates map[progress.Key]progress.Aggregates
	dirtyMarks int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		bits:       make(map[progress.Key]progress.Bitset),
		best:       make(map[progress.Key]progress.BestHearts),
		aggregates: make(map[progress.Key]progress.Aggregates),
	}
}

func (f *fakeLedger) Bitset(_ context.Context, key progress.Key) (progress.Bitset, error) {
	if b, ok := f.bits[key]; ok {
		return b, nil
	}
	return progress.NewBitset(), nil
}

func (f *fakeLedger) BestHearts(_ context.Context, key progress.Key) (progress.BestHearts, error) {
	if m, ok := f.best[key]; ok {
		return m, nil
	}
	return progress.BestHearts{}, nil
}

func (f *fakeLedger) Aggregates(_ context.Context, key progress.Key) (progress.Aggregates, error) {
	return f.aggregates[key], nil
}

func (f *fakeLedger) SetBit(ctx context.Context, key progress.Key, slot int) (progress.Bitset, error) {
	b, _ := f.Bitset(ctx, key)
	updated := b.Set(slot)
	f.bits[key] = updated
	f.dirtyMarks++
	return updated, nil
}

func (f *fakeLedger) SetBestHearts(_ context.Context, key progress.Key, m progress.BestHearts) error {
	f.best[key] = m
	f.dirtyMarks++
	return nil
}

func (f *fakeLedger) SetAggregates(_ context.Context, key progress.Key, a progress.Aggregates) error {
	f.aggregates[key] = a
	f.dirtyMarks++
	return nil
}

type fakeEnrollment struct {
	enrolled map[string]bool
	err      error
}

func (f *fakeEnrollment) IsEnrolled(_ context.Context, playerID, subjectID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.enrolled[playerID+"|"+subjectID], nil
}

type capturingPublisher struct {
	events []shared.Event
}

func (p *capturingPublisher) Publish(event shared.Event) error {
	p.events = append(p.events, event)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// FIXTURE
// ─────────────────────────────────────────────────────────────────────────────

func slotPtr(i int) *int { return &i }

// subjectTree builds a linear subject with one track/unit/topic chain and
// three lessons at slots 0..2.
func subjectTree() *content.Node {
	return &content.Node{
		ID: "algebra", Title: "Algebra", Kind: content.KindSubject, IsLinear: true,
		Children: []content.Node{
			{ID: "t1", Title: "Track", Kind: content.KindTrack, IsLinear: true,
				Children: []content.Node{
					{ID: "u1", Title: "Unit", Kind: content.KindUnit, IsLinear: true,
						Children: []content.Node{
							{ID: "top1", Title: "Topic", Kind: content.KindTopic, IsLinear: true,
								Children: []content.Node{
									{ID: "l0", Title: "L0", Kind: content.KindLesson, SlotIndex: slotPtr(0)},
									{ID: "l1", Title: "L1", Kind: content.KindLesson, SlotIndex: slotPtr(1)},
									{ID: "l2", Title: "L2", Kind: content.KindLesson, SlotIndex: slotPtr(2)},
								}},
						}},
				}},
		},
	}
}

func newHandler() (*RecordCompletionHandler, *fakeLedger, *capturingPublisher) {
	structures := &fakeStructures{trees: map[string]*content.Node{"algebra": subjectTree()}}
	ledger := newFakeLedger()
	enrollment := &fakeEnrollment{enrolled: map[string]bool{"p1|algebra": true}}
	publisher := &capturingPublisher{}
	h := NewRecordCompletionHandler(structures, ledger, enrollment, publisher, nil, 10)
	return h, ledger, publisher
}

// ─────────────────────────────────────────────────────────────────────────────
// TESTS
// ─────────────────────────────────────────────────────────────────────────────

func TestRecordCompletion_FirstCompletion(t *testing.T) {
	h, ledger, publisher := newHandler()

	result, err := h.Handle(context.Background(), RecordCompletionCommand{
		PlayerID: "p1", LessonID: "l0", HeartsRemaining: 3,
	})

	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.IsFirstCompletion)
	assert.True(t, result.IsNewRecord)
	assert.Equal(t, 40, result.XPEarned)
	assert.Equal(t, 40, result.NewTotalXP)

	key := progress.NewKey("p1", "algebra")
	assert.True(t, ledger.bits[key].Check(0))
	assert.Equal(t, 3, ledger.best[key]["l0"])
	assert.Equal(t, 33.33, ledger.aggregates[key].CompletionPercent)

	assert.Len(t, publisher.events, 1)
	assert.Equal(t, shared.EventLessonCompleted, publisher.events[0].EventType())
}

func TestRecordCompletion_ReplayImprovement(t *testing.T) {
	h, ledger, _ := newHandler()
	ctx := context.Background()

	_, err := h.Handle(ctx, RecordCompletionCommand{PlayerID: "p1", LessonID: "l0", HeartsRemaining: 3})
	assert.NoError(t, err)

	result, err := h.Handle(ctx, RecordCompletionCommand{PlayerID: "p1", LessonID: "l0", HeartsRemaining: 5})
	assert.NoError(t, err)

	assert.False(t, result.IsFirstCompletion)
	assert.True(t, result.IsNewRecord)
	assert.Equal(t, 20, result.XPEarned)
	assert.Equal(t, 60, result.NewTotalXP)

	key := progress.NewKey("p1", "algebra")
	assert.Equal(t, 5, ledger.best[key]["l0"])
	assert.Equal(t, 1, ledger.bits[key].Count())
}

func TestRecordCompletion_ReplayWorseRun(t *testing.T) {
	h, ledger, _ := newHandler()
	ctx := context.Background()

	_, err := h.Handle(ctx, RecordCompletionCommand{PlayerID: "p1", LessonID: "l0", HeartsRemaining: 5})
	assert.NoError(t, err)

	result, err := h.Handle(ctx, RecordCompletionCommand{PlayerID: "p1", LessonID: "l0", HeartsRemaining: 2})
	assert.NoError(t, err)

	assert.True(t, result.Success)
	assert.False(t, result.IsFirstCompletion)
	assert.False(t, result.IsNewRecord)
	assert.Equal(t, 0, result.XPEarned)

	key := progress.NewKey("p1", "algebra")
	assert.Equal(t, 5, ledger.best[key]["l0"])
}

func TestRecordCompletion_CompletionPercentProgresses(t *testing.T) {
	h, ledger, _ := newHandler()
	ctx := context.Background()
	key := progress.NewKey("p1", "algebra")

	_, _ = h.Handle(ctx, RecordCompletionCommand{PlayerID: "p1", LessonID: "l0", HeartsRemaining: 5})
	assert.Equal(t, 33.33, ledger.aggregates[key].CompletionPercent)

	_, _ = h.Handle(ctx, RecordCompletionCommand{PlayerID: "p1", LessonID: "l1", HeartsRemaining: 5})
	assert.Equal(t, 66.67, ledger.aggregates[key].CompletionPercent)

	_, _ = h.Handle(ctx, RecordCompletionCommand{PlayerID: "p1", LessonID: "l2", HeartsRemaining: 5})
	assert.Equal(t, 100.0, ledger.aggregates[key].CompletionPercent)
}

func TestRecordCompletion_ValidationFailures(t *testing.T) {
	h, _, _ := newHandler()
	ctx := context.Background()

	_, err := h.Handle(ctx, RecordCompletionCommand{LessonID: "l0", HeartsRemaining: 3})
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	_, err = h.Handle(ctx, RecordCompletionCommand{PlayerID: "p1", HeartsRemaining: 3})
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	_, err = h.Handle(ctx, RecordCompletionCommand{PlayerID: "p1", LessonID: "l0", HeartsRemaining: 6})
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)

	_, err = h.Handle(ctx, RecordCompletionCommand{PlayerID: "p1", LessonID: "l0", HeartsRemaining: -1})
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)
}

func TestRecordCompletion_UnknownLesson(t *testing.T) {
	h, _, _ := newHandler()

	_, err := h.Handle(context.Background(), RecordCompletionCommand{
		PlayerID: "p1", LessonID: "ghost", HeartsRemaining: 3,
	})
	assert.ErrorIs(t, err, shared.ErrLessonNotFound)
}

func TestRecordCompletion_NotEnrolled(t *testing.T) {
	h, _, _ := newHandler()

	_, err := h.Handle(context.Background(), RecordCompletionCommand{
		PlayerID: "p2", LessonID: "l0", HeartsRemaining: 3,
	})
	assert.ErrorIs(t, err, shared.ErrNotEnrolled)
	assert.True(t, shared.IsValidation(err))
}

func TestRecordCompletion_EnrollmentCheckFailure(t *testing.T) {
	structures := &fakeStructures{trees: map[string]*content.Node{"algebra": subjectTree()}}
	enrollment := &fakeEnrollment{err: errors.New("db down")}
	h := NewRecordCompletionHandler(structures, newFakeLedger(), enrollment, nil, nil, 10)

	_, err := h.Handle(context.Background(), RecordCompletionCommand{
		PlayerID: "p1", LessonID: "l0", HeartsRemaining: 3,
	})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrNotEnrolled)
}
