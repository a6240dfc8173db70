package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lessonforge/progress-engine/internal/domain/content"
	"github.com/lessonforge/progress-engine/internal/domain/progress"
	"github.com/lessonforge/progress-engine/internal/domain/shared"
)

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

type fakeLedger struct {
	bits       map[progress.Key]progress.Bitset
	best       map[progress.Key]progress.BestHearts
	aggregates map[progress.Key]progress.Aggregates
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

func (f *fakeLedger) SetBit(_ context.Context, _ progress.Key, _ int) (progress.Bitset, error) {
	panic("queries never write")
}

func (f *fakeLedger) SetBestHearts(_ context.Context, _ progress.Key, _ progress.BestHearts) error {
	panic("queries never write")
}

func (f *fakeLedger) SetAggregates(_ context.Context, _ progress.Key, _ progress.Aggregates) error {
	panic("queries never write")
}

func slotPtr(i int) *int { return &i }

// linearSubject builds the full variable-depth chain: subject, track, unit,
// topic, then three lessons at slots 0..2, every level linear.
func linearSubject() *content.Node {
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

func newHandler(ledger *fakeLedger) *GetProgressHandler {
	structures := &fakeStructures{trees: map[string]*content.Node{"algebra": linearSubject()}}
	return NewGetProgressHandler(structures, ledger, nil)
}

func TestGetProgress_PartialProgress(t *testing.T) {
	key := progress.NewKey("p1", "algebra")
	ledger := &fakeLedger{
		bits:       map[progress.Key]progress.Bitset{key: progress.NewBitset().Set(0)},
		best:       map[progress.Key]progress.BestHearts{key: {"l0": 4}},
		aggregates: map[progress.Key]progress.Aggregates{key: {TotalXP: 50, CompletionPercent: 33.33}},
	}
	h := newHandler(ledger)

	view, err := h.Handle(context.Background(), GetProgressQuery{PlayerID: "p1", SubjectID: "algebra"})
	assert.NoError(t, err)

	assert.Equal(t, "algebra", view.SubjectID)
	assert.Equal(t, 33.33, view.CompletionPercentage)
	assert.Equal(t, 50, view.TotalXPEarned)
	assert.Equal(t, 3, view.TotalLessons)
	assert.Equal(t, 1, view.PassedLessons)

	assert.NotNil(t, view.SuggestedNextLessonID)
	assert.Equal(t, "l1", *view.SuggestedNextLessonID)

	topic := view.Root.Children[0].Children[0].Children[0]
	assert.Equal(t, content.KindTopic, topic.Kind)
	assert.Equal(t, content.StatusPassed, topic.Children[0].Status)
	assert.Equal(t, content.StatusUnlocked, topic.Children[1].Status)
	assert.Equal(t, content.StatusLocked, topic.Children[2].Status)
	assert.Equal(t, 4, *topic.Children[0].BestHearts)
}

func TestGetProgress_NoRecordedProgress(t *testing.T) {
	ledger := &fakeLedger{
		bits:       map[progress.Key]progress.Bitset{},
		best:       map[progress.Key]progress.BestHearts{},
		aggregates: map[progress.Key]progress.Aggregates{},
	}
	h := newHandler(ledger)

	view, err := h.Handle(context.Background(), GetProgressQuery{PlayerID: "new", SubjectID: "algebra"})
	assert.NoError(t, err)

	assert.Equal(t, 0.0, view.CompletionPercentage)
	assert.Equal(t, 0, view.TotalXPEarned)
	assert.Equal(t, 0, view.PassedLessons)
	assert.NotNil(t, view.SuggestedNextLessonID)
	assert.Equal(t, "l0", *view.SuggestedNextLessonID)
}

func TestGetProgress_FullyPassed(t *testing.T) {
	key := progress.NewKey("p1", "algebra")
	ledger := &fakeLedger{
		bits:       map[progress.Key]progress.Bitset{key: progress.NewBitset().Set(0).Set(1).Set(2)},
		best:       map[progress.Key]progress.BestHearts{key: {"l0": 5, "l1": 5, "l2": 5}},
		aggregates: map[progress.Key]progress.Aggregates{key: {TotalXP: 180, CompletionPercent: 100}},
	}
	h := newHandler(ledger)

	view, err := h.Handle(context.Background(), GetProgressQuery{PlayerID: "p1", SubjectID: "algebra"})
	assert.NoError(t, err)

	assert.Equal(t, 100.0, view.CompletionPercentage)
	assert.Equal(t, 3, view.PassedLessons)
	assert.Nil(t, view.SuggestedNextLessonID)
}

func TestGetProgress_Validation(t *testing.T) {
	h := newHandler(&fakeLedger{})
	ctx := context.Background()

	_, err := h.Handle(ctx, GetProgressQuery{SubjectID: "algebra"})
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	_, err = h.Handle(ctx, GetProgressQuery{PlayerID: "p1"})
	assert.ErrorIs(t, err, shared.ErrEmptyValue)
}

func TestGetProgress_UnknownSubject(t *testing.T) {
	h := newHandler(&fakeLedger{})

	_, err := h.Handle(context.Background(), GetProgressQuery{PlayerID: "p1", SubjectID: "nope"})
	assert.ErrorIs(t, err, shared.ErrStructureNotFound)
}
