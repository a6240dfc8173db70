package content

import (
	"math"

	"github.com/lessonforge/progress-engine/internal/domain/progress"
)

// Status is the resolved progression state of a node.
type Status string

const (
	StatusLocked   Status = "locked"
	StatusUnlocked Status = "unlocked"
	StatusPassed   Status = "passed"
)

// ProgressNode is the annotated projection of a content Node. The input tree
// is never mutated; Resolve builds a fresh tree.
//
// Only lesson nodes ever carry StatusLocked. Containers report passed or
// unlocked; their reachability gating is implicit in their children.
type ProgressNode struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Kind       Kind           `json:"kind"`
	IsLinear   bool           `json:"isLinear"`
	SlotIndex  *int           `json:"slotIndex,omitempty"`
	Status     Status         `json:"status"`
	BestHearts *int           `json:"bestHearts,omitempty"`
	Children   []ProgressNode `json:"children,omitempty"`
}

// Resolve maps a content tree and a completion bitset to an annotated tree
// with the final tri-state status on every node.
//
// Pass 1 (bottom-up): a lesson is passed iff its slot bit is set; a container
// is passed iff it has at least one child and all children are passed. An
// empty container is unlocked, never passed.
//
// Pass 2 (top-down): passed sticks unconditionally. Under a locked parent
// everything below is locked. Under a linear parent the first child is always
// eligible and each later child is locked unless its immediately preceding
// sibling resolved to passed. Under a non-linear parent every non-passed
// child is unlocked. Each node's own IsLinear flag governs only its own
// children, so mixed subtrees compose freely.
func Resolve(root *Node, bits progress.Bitset, best progress.BestHearts) *ProgressNode {
	if root == nil {
		return nil
	}
	annotated := buildPassState(root, bits, best)
	applyGating(annotated, false)
	return annotated
}

// buildPassState is pass 1: it copies the tree and computes the binary
// passed / not-passed signal. Non-passed nodes start as unlocked; pass 2
// downgrades lessons to locked where gating demands it.
func buildPassState(n *Node, bits progress.Bitset, best progress.BestHearts) *ProgressNode {
	out := &ProgressNode{
		ID:        n.ID,
		Title:     n.Title,
		Kind:      n.Kind,
		IsLinear:  n.IsLinear,
		SlotIndex: n.SlotIndex,
	}

	if n.IsLeaf() {
		out.Status = StatusUnlocked
		if n.SlotIndex != nil && bits.Check(*n.SlotIndex) {
			out.Status = StatusPassed
			if hearts, ok := best[n.ID]; ok {
				h := hearts
				out.BestHearts = &h
			}
		}
		return out
	}

	out.Children = make([]ProgressNode, 0, len(n.Children))
	allPassed := len(n.Children) > 0
	for i := range n.Children {
		child := buildPassState(&n.Children[i], bits, best)
		if child.Status != StatusPassed {
			allPassed = false
		}
		out.Children = append(out.Children, *child)
	}

	out.Status = StatusUnlocked
	if allPassed {
		out.Status = StatusPassed
	}
	return out
}

// applyGating is pass 2: it walks top-down carrying whether the node itself
// is reachable, and resolves each child list under this node's own linearity.
func applyGating(n *ProgressNode, parentLocked bool) {
	for i := range n.Children {
		child := &n.Children[i]

		locked := parentLocked
		if !locked && n.IsLinear && i > 0 {
			locked = n.Children[i-1].Status != StatusPassed
		}

		if child.Status != StatusPassed && locked {
			if child.Kind == KindLesson {
				child.Status = StatusLocked
			}
			// Containers stay unlocked on the surface; the lock still
			// propagates to the lessons below.
			applyGating(child, true)
			continue
		}

		applyGating(child, false)
	}
}

// NextLesson returns the id of the suggested next lesson: the first unlocked
// lesson in a depth-first preorder walk. A locked lesson or a fully locked
// branch stops descent on that branch. Returns "" when nothing is playable.
func NextLesson(n *ProgressNode) string {
	if n == nil {
		return ""
	}

	if n.Kind == KindLesson {
		if n.Status == StatusUnlocked {
			return n.ID
		}
		return ""
	}

	for i := range n.Children {
		if id := NextLesson(&n.Children[i]); id != "" {
			return id
		}
	}
	return ""
}

// CountPassed returns the number of passed lesson leaves in an annotated tree.
func CountPassed(n *ProgressNode) int {
	if n == nil {
		return 0
	}
	if n.Kind == KindLesson {
		if n.Status == StatusPassed {
			return 1
		}
		return 0
	}
	total := 0
	for i := range n.Children {
		total += CountPassed(&n.Children[i])
	}
	return total
}

// CompletionPercent computes passed/total*100 rounded to 2 decimals.
// A tree with zero lessons is 0 percent complete.
func CompletionPercent(passed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(passed)/float64(total)*10000) / 100
}
