package structure

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lessonforge/progress-engine/internal/domain/shared"
)

// fakeSource serves in-memory artifacts and counts loads.
type fakeSource struct {
	artifacts map[string][]byte
	loads     map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		artifacts: make(map[string][]byte),
		loads:     make(map[string]int),
	}
}

func (s *fakeSource) add(subjectID string, lessonIDs ...string) {
	lessons := ""
	for i, id := range lessonIDs {
		if i > 0 {
			lessons += ","
		}
		lessons += fmt.Sprintf(`{"id":%q,"title":%q,"kind":"lesson","slotIndex":%d}`, id, id, i)
	}
	s.artifacts[subjectID] = []byte(fmt.Sprintf(`{
		"id": %q, "title": %q, "isLinear": true,
		"tracks": [{"id": "t1", "title": "T", "kind": "track", "isLinear": true, "children": [%s]}]
	}`, subjectID, subjectID, lessons))
}

func (s *fakeSource) LoadSubject(_ context.Context, subjectID string) ([]byte, error) {
	raw, ok := s.artifacts[subjectID]
	if !ok {
		return nil, shared.ErrStructureNotFound
	}
	s.loads[subjectID]++
	return raw, nil
}

func (s *fakeSource) Subjects(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(s.artifacts))
	for id := range s.artifacts {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestCache_LoadParsesAndCaches(t *testing.T) {
	src := newFakeSource()
	src.add("algebra", "a1", "a2")
	cache := NewCache(src, 4)

	tree, err := cache.Load(context.Background(), "algebra")
	assert.NoError(t, err)
	assert.Equal(t, "algebra", tree.ID)
	assert.Equal(t, 2, tree.CountLessons())

	again, err := cache.Load(context.Background(), "algebra")
	assert.NoError(t, err)
	assert.Same(t, tree, again)
	assert.Equal(t, 1, src.loads["algebra"])
}

func TestCache_MissingSubject(t *testing.T) {
	cache := NewCache(newFakeSource(), 4)

	_, err := cache.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, shared.ErrStructureNotFound)
}

func TestCache_MalformedArtifactRejected(t *testing.T) {
	src := newFakeSource()
	src.artifacts["broken"] = []byte(`{"id": "broken"}`)
	cache := NewCache(src, 4)

	_, err := cache.Load(context.Background(), "broken")
	assert.Error(t, err)
	assert.True(t, shared.IsContentIntegrity(err))
	assert.Equal(t, 0, cache.Len())
}

func TestCache_LRUEviction(t *testing.T) {
	src := newFakeSource()
	src.add("s1", "l1")
	src.add("s2", "l2")
	src.add("s3", "l3")
	cache := NewCache(src, 2)

	ctx := context.Background()
	_, _ = cache.Load(ctx, "s1")
	_, _ = cache.Load(ctx, "s2")

	// Touch s1 so s2 becomes the eviction candidate.
	_, _ = cache.Load(ctx, "s1")
	_, _ = cache.Load(ctx, "s3")

	assert.Equal(t, 2, cache.Len())

	_, _ = cache.Load(ctx, "s2")
	assert.Equal(t, 2, src.loads["s2"])
	assert.Equal(t, 1, src.loads["s1"])
}

func TestCache_Invalidate(t *testing.T) {
	src := newFakeSource()
	src.add("s1", "l1")
	cache := NewCache(src, 4)

	ctx := context.Background()
	_, _ = cache.Load(ctx, "s1")
	assert.Equal(t, 1, cache.Len())

	cache.Invalidate()
	assert.Equal(t, 0, cache.Len())

	_, err := cache.Load(ctx, "s1")
	assert.NoError(t, err)
	assert.Equal(t, 2, src.loads["s1"])
}

func TestCache_LocateLessonViaIndex(t *testing.T) {
	src := newFakeSource()
	src.add("s1", "l1", "l2")
	cache := NewCache(src, 4)

	ctx := context.Background()
	_, _ = cache.Load(ctx, "s1")

	subjectID, err := cache.LocateLesson(ctx, "l2")
	assert.NoError(t, err)
	assert.Equal(t, "s1", subjectID)
}

func TestCache_LocateLessonFallbackScan(t *testing.T) {
	src := newFakeSource()
	src.add("s1", "l1")
	src.add("s2", "l2")
	cache := NewCache(src, 4)

	// Nothing loaded yet: the index is cold and the scan must find it.
	subjectID, err := cache.LocateLesson(context.Background(), "l2")
	assert.NoError(t, err)
	assert.Equal(t, "s2", subjectID)
}

func TestCache_LocateLessonUnknown(t *testing.T) {
	src := newFakeSource()
	src.add("s1", "l1")
	cache := NewCache(src, 4)

	_, err := cache.LocateLesson(context.Background(), "ghost")
	assert.ErrorIs(t, err, shared.ErrLessonNotFound)
}

func TestCache_IndexSurvivesInvalidate(t *testing.T) {
	src := newFakeSource()
	src.add("s1", "l1")
	cache := NewCache(src, 4)

	ctx := context.Background()
	_, _ = cache.Load(ctx, "s1")
	cache.Invalidate()

	subjectID, err := cache.LocateLesson(ctx, "l1")
	assert.NoError(t, err)
	assert.Equal(t, "s1", subjectID)
}
