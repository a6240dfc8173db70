package structure

import (
	"container/list"
	"context"
	"sync"

	"github.com/lessonforge/progress-engine/internal/domain/content"
	"github.com/lessonforge/progress-engine/internal/domain/shared"
)

// DefaultCapacity is the default number of parsed trees kept in memory.
const DefaultCapacity = 32

// Cache is a bounded LRU of parsed, validated subject trees. It also keeps
// a lesson index (lessonID -> subjectID) filled on every load, so record
// requests can resolve a lesson's subject without re-parsing.
//
// Parsed trees are shared read-only: callers must never mutate the returned
// node, which holds because the unlock engine always builds a fresh
// annotated tree.
type Cache struct {
	mu       sync.Mutex
	source   Source
	capacity int

	entries map[string]*list.Element
	order   *list.List // front = most recently used

	lessonIndex map[string]string
}

type cacheEntry struct {
	subjectID string
	tree      *content.Node
}

// NewCache creates a Cache over the given source. A non-positive capacity
// falls back to DefaultCapacity.
func NewCache(source Source, capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		source:      source,
		capacity:    capacity,
		entries:     make(map[string]*list.Element),
		order:       list.New(),
		lessonIndex: make(map[string]string),
	}
}

// Load returns the parsed tree for a subject, fetching and validating the
// artifact on miss. Validation failures are typed content-integrity errors;
// malformed input is never silently accepted.
func (c *Cache) Load(ctx context.Context, subjectID string) (*content.Node, error) {
	c.mu.Lock()
	if el, ok := c.entries[subjectID]; ok {
		c.order.MoveToFront(el)
		tree := el.Value.(*cacheEntry).tree
		c.mu.Unlock()
		return tree, nil
	}
	c.mu.Unlock()

	raw, err := c.source.LoadSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	tree, err := content.ParseStructure(raw)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// A concurrent load may have won the race; both derived the same tree
	// from the same artifact, so either copy is fine.
	if el, ok := c.entries[subjectID]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*cacheEntry).tree, nil
	}

	el := c.order.PushFront(&cacheEntry{subjectID: subjectID, tree: tree})
	c.entries[subjectID] = el
	c.indexLessons(subjectID, tree)

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).subjectID)
		}
	}

	return tree, nil
}

// Invalidate drops all cached trees. Triggered externally on content change;
// the lesson index is kept, as slot assignments are stable and stale entries
// only cost one extra source lookup.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Len returns the number of cached trees.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// LocateLesson resolves the subject a lesson belongs to. It consults the
// index first and falls back to scanning the source's subject list, loading
// (and thereby indexing) each tree until the lesson is found.
func (c *Cache) LocateLesson(ctx context.Context, lessonID string) (string, error) {
	c.mu.Lock()
	if subjectID, ok := c.lessonIndex[lessonID]; ok {
		c.mu.Unlock()
		return subjectID, nil
	}
	c.mu.Unlock()

	subjects, err := c.source.Subjects(ctx)
	if err != nil {
		return "", err
	}

	for _, subjectID := range subjects {
		tree, err := c.Load(ctx, subjectID)
		if err != nil {
			// A broken sibling subject must not block resolution in the rest.
			continue
		}
		if content.FindLesson(tree, lessonID) != nil {
			return subjectID, nil
		}
	}

	return "", shared.ErrLessonNotFound
}

// indexLessons records lessonID -> subjectID for every leaf. Caller holds mu.
func (c *Cache) indexLessons(subjectID string, n *content.Node) {
	if n.IsLeaf() {
		c.lessonIndex[n.ID] = subjectID
		return
	}
	for i := range n.Children {
		c.indexLessons(subjectID, &n.Children[i])
	}
}
