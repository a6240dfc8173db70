package content

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lessonforge/progress-engine/internal/domain/progress"
)

func slot(i int) *int { return &i }

func lesson(id string, slotIndex int) Node {
	return Node{ID: id, Title: id, Kind: KindLesson, SlotIndex: slot(slotIndex)}
}

func container(id string, kind Kind, linear bool, children ...Node) Node {
	return Node{ID: id, Title: id, Kind: kind, IsLinear: linear, Children: children}
}

func bitsFor(slots ...int) progress.Bitset {
	b := progress.NewBitset()
	for _, s := range slots {
		b = b.Set(s)
	}
	return b
}

func statuses(n *ProgressNode) []Status {
	out := make([]Status, 0, len(n.Children))
	for i := range n.Children {
		out = append(out, n.Children[i].Status)
	}
	return out
}

func TestResolve_LinearGating(t *testing.T) {
	root := container("subject", KindSubject, true,
		lesson("l0", 0), lesson("l1", 1), lesson("l2", 2))

	annotated := Resolve(&root, bitsFor(0), progress.BestHearts{"l0": 4})

	assert.Equal(t, []Status{StatusPassed, StatusUnlocked, StatusLocked}, statuses(annotated))
	assert.Equal(t, 4, *annotated.Children[0].BestHearts)
	assert.Nil(t, annotated.Children[1].BestHearts)
}

func TestResolve_LinearFirstChildAlwaysEligible(t *testing.T) {
	root := container("subject", KindSubject, true,
		lesson("l0", 0), lesson("l1", 1))

	annotated := Resolve(&root, progress.NewBitset(), progress.BestHearts{})

	assert.Equal(t, []Status{StatusUnlocked, StatusLocked}, statuses(annotated))
}

func TestResolve_NonLinearNoGating(t *testing.T) {
	root := container("subject", KindSubject, false,
		lesson("l0", 0), lesson("l1", 1), lesson("l2", 2))

	annotated := Resolve(&root, bitsFor(1), progress.BestHearts{})

	assert.Equal(t, []Status{StatusUnlocked, StatusPassed, StatusUnlocked}, statuses(annotated))
}

func TestResolve_EmptyContainerIsUnlockedNotPassed(t *testing.T) {
	root := container("subject", KindSubject, true,
		container("t-empty", KindTrack, true),
		container("t-full", KindTrack, true, lesson("l0", 0)))

	annotated := Resolve(&root, progress.NewBitset(), progress.BestHearts{})

	// The empty track can never be passed, so under the linear subject the
	// following track's lessons stay locked.
	assert.Equal(t, StatusUnlocked, annotated.Children[0].Status)
	assert.Equal(t, StatusLocked, annotated.Children[1].Children[0].Status)
}

func TestResolve_ContainerPassedWhenAllChildrenPassed(t *testing.T) {
	root := container("subject", KindSubject, true,
		container("t1", KindTrack, true, lesson("l0", 0), lesson("l1", 1)),
		container("t2", KindTrack, true, lesson("l2", 2)))

	annotated := Resolve(&root, bitsFor(0, 1), progress.BestHearts{})

	assert.Equal(t, StatusPassed, annotated.Children[0].Status)
	assert.Equal(t, StatusUnlocked, annotated.Children[1].Status)
	// First track passed, so the second track's first lesson opens up.
	assert.Equal(t, StatusUnlocked, annotated.Children[1].Children[0].Status)
}

func TestResolve_LockPropagatesThroughContainers(t *testing.T) {
	root := container("subject", KindSubject, true,
		container("t1", KindTrack, true, lesson("l0", 0)),
		container("t2", KindTrack, false, lesson("l1", 1), lesson("l2", 2)))

	annotated := Resolve(&root, progress.NewBitset(), progress.BestHearts{})

	// t2 sits behind an unfinished t1. The container itself reads unlocked,
	// but every lesson inside it is locked regardless of t2's own linearity.
	t2 := &annotated.Children[1]
	assert.Equal(t, StatusUnlocked, t2.Status)
	assert.Equal(t, []Status{StatusLocked, StatusLocked}, statuses(t2))
}

func TestResolve_MixedLinearityComposes(t *testing.T) {
	// Linear subject; first track non-linear, second track linear.
	root := container("subject", KindSubject, true,
		container("t1", KindTrack, false, lesson("l0", 0), lesson("l1", 1)),
		container("t2", KindTrack, true, lesson("l2", 2), lesson("l3", 3)))

	annotated := Resolve(&root, bitsFor(0, 1), progress.BestHearts{})

	assert.Equal(t, StatusPassed, annotated.Children[0].Status)

	t2 := &annotated.Children[1]
	assert.Equal(t, []Status{StatusUnlocked, StatusLocked}, statuses(t2))
}

func TestResolve_PassedStickEvenWhenGated(t *testing.T) {
	// l1's bit is set even though l0 is not passed (content was reordered).
	// Passed must win over gating.
	root := container("subject", KindSubject, true,
		lesson("l0", 0), lesson("l1", 1), lesson("l2", 2))

	annotated := Resolve(&root, bitsFor(1), progress.BestHearts{})

	assert.Equal(t, []Status{StatusUnlocked, StatusPassed, StatusUnlocked}, statuses(annotated))
}

func TestResolve_NilRoot(t *testing.T) {
	assert.Nil(t, Resolve(nil, progress.NewBitset(), progress.BestHearts{}))
}

func TestNextLesson_FirstUnlockedInPreorder(t *testing.T) {
	root := container("subject", KindSubject, true,
		container("t1", KindTrack, true, lesson("l0", 0), lesson("l1", 1)),
		container("t2", KindTrack, true, lesson("l2", 2)))

	annotated := Resolve(&root, bitsFor(0), progress.BestHearts{})
	assert.Equal(t, "l1", NextLesson(annotated))
}

func TestNextLesson_NothingStarted(t *testing.T) {
	root := container("subject", KindSubject, true,
		lesson("l0", 0), lesson("l1", 1))

	annotated := Resolve(&root, progress.NewBitset(), progress.BestHearts{})
	assert.Equal(t, "l0", NextLesson(annotated))
}

func TestNextLesson_AllPassed(t *testing.T) {
	root := container("subject", KindSubject, true,
		lesson("l0", 0), lesson("l1", 1))

	annotated := Resolve(&root, bitsFor(0, 1), progress.BestHearts{})
	assert.Equal(t, "", NextLesson(annotated))
}

func TestCountPassedAndCompletionPercent(t *testing.T) {
	root := container("subject", KindSubject, false,
		lesson("l0", 0), lesson("l1", 1), lesson("l2", 2))

	annotated := Resolve(&root, bitsFor(2), progress.BestHearts{})

	assert.Equal(t, 1, CountPassed(annotated))
	assert.Equal(t, 33.33, CompletionPercent(1, 3))
	assert.Equal(t, 66.67, CompletionPercent(2, 3))
	assert.Equal(t, 100.0, CompletionPercent(3, 3))
	assert.Equal(t, 0.0, CompletionPercent(0, 0))
}
