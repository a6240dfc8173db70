// Package content models the read-only content tree this engine consumes.
// Trees are produced by the upstream authoring pipeline, arrive pre-filtered
// for access and pre-annotated with linearity flags and stable per-lesson
// slot indices, and are never mutated here.
package content

import (
	"encoding/json"
	"fmt"

	"github.com/lessonforge/progress-engine/internal/domain/shared"
)

// Kind discriminates node types in the content tree.
type Kind string

const (
	KindSubject Kind = "subject"
	KindTrack   Kind = "track"
	KindUnit    Kind = "unit"
	KindTopic   Kind = "topic"
	KindLesson  Kind = "lesson"
)

// Node is one node of the content tree. Containers carry children; lessons
// carry a slot index instead. The upstream sentinel for "unassigned slot"
// must never reach this layer, hence the optional pointer.
type Node struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Kind      Kind   `json:"kind"`
	IsLinear  bool   `json:"isLinear"`
	SlotIndex *int   `json:"slotIndex,omitempty"`
	Children  []Node `json:"children,omitempty"`
}

// IsLeaf reports whether the node is a lesson.
func (n *Node) IsLeaf() bool {
	return n.Kind == KindLesson
}

// CountLessons returns the number of lesson leaves under the node.
func (n *Node) CountLessons() int {
	if n.IsLeaf() {
		return 1
	}
	total := 0
	for i := range n.Children {
		total += n.Children[i].CountLessons()
	}
	return total
}

// subjectArtifact is the wire form of the upstream structure artifact:
// the subject header plus its top-level tracks.
type subjectArtifact struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	IsLinear *bool  `json:"isLinear"`
	Tracks   []Node `json:"tracks"`
}

// ParseStructure decodes and validates an upstream structure artifact into
// a subject tree. It never silently accepts malformed input.
func ParseStructure(raw []byte) (*Node, error) {
	var artifact subjectArtifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, shared.WrapError("content", "Parse", shared.ErrInvalidStructure, "structure artifact is not valid JSON", err)
	}

	if artifact.ID == "" || artifact.Title == "" || artifact.IsLinear == nil || len(artifact.Tracks) == 0 {
		return nil, shared.ErrMalformedStructure
	}

	root := &Node{
		ID:       artifact.ID,
		Title:    artifact.Title,
		Kind:     KindSubject,
		IsLinear: *artifact.IsLinear,
		Children: artifact.Tracks,
	}

	if err := Validate(root); err != nil {
		return nil, err
	}
	return root, nil
}

// Validate checks structural integrity of a parsed tree: ids and titles
// present, lessons with assigned non-negative slot indices, containers with
// consistent children. Returns a typed content-integrity error on failure.
func Validate(root *Node) error {
	if root == nil {
		return shared.ErrMalformedStructure
	}
	return validateNode(root, root.ID)
}

func validateNode(n *Node, path string) error {
	if n.ID == "" || n.Title == "" {
		return shared.WrapError("content", "Validate", shared.ErrInvalidStructure,
			fmt.Sprintf("node under %q is missing id or title", path), nil)
	}

	switch n.Kind {
	case KindLesson:
		if len(n.Children) > 0 {
			return shared.WrapError("content", "Validate", shared.ErrInvalidStructure,
				fmt.Sprintf("lesson %q has children", n.ID), nil)
		}
		if n.SlotIndex == nil || *n.SlotIndex < 0 {
			return shared.WrapError("content", "Validate", shared.ErrInvalidStructure,
				fmt.Sprintf("lesson %q: %v", n.ID, shared.ErrUnassignedSlot), nil)
		}
	case KindSubject, KindTrack, KindUnit, KindTopic:
		for i := range n.Children {
			if err := validateNode(&n.Children[i], n.ID); err != nil {
				return err
			}
		}
	default:
		return shared.WrapError("content", "Validate", shared.ErrInvalidStructure,
			fmt.Sprintf("node %q has unknown kind %q", n.ID, n.Kind), nil)
	}

	return nil
}

// FindLesson returns the lesson node with the given id, or nil when the tree
// does not contain it.
func FindLesson(root *Node, lessonID string) *Node {
	if root == nil {
		return nil
	}
	if root.IsLeaf() {
		if root.ID == lessonID {
			return root
		}
		return nil
	}
	for i := range root.Children {
		if found := FindLesson(&root.Children[i], lessonID); found != nil {
			return found
		}
	}
	return nil
}
