package content

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lessonforge/progress-engine/internal/domain/shared"
)

func validArtifact() []byte {
	return []byte(`{
		"id": "algebra",
		"title": "Algebra",
		"isLinear": true,
		"tracks": [
			{
				"id": "t1", "title": "Basics", "kind": "track", "isLinear": true,
				"children": [
					{
						"id": "u1", "title": "Unit 1", "kind": "unit", "isLinear": true,
						"children": [
							{
								"id": "top1", "title": "Topic 1", "kind": "topic", "isLinear": true,
								"children": [
									{"id": "l1", "title": "Lesson 1", "kind": "lesson", "slotIndex": 0},
									{"id": "l2", "title": "Lesson 2", "kind": "lesson", "slotIndex": 1}
								]
							}
						]
					}
				]
			}
		]
	}`)
}

func TestParseStructure_ValidArtifact(t *testing.T) {
	root, err := ParseStructure(validArtifact())
	assert.NoError(t, err)
	assert.Equal(t, "algebra", root.ID)
	assert.Equal(t, KindSubject, root.Kind)
	assert.True(t, root.IsLinear)
	assert.Equal(t, 2, root.CountLessons())

	lesson := FindLesson(root, "l2")
	assert.NotNil(t, lesson)
	assert.Equal(t, 1, *lesson.SlotIndex)
}

func TestParseStructure_InvalidJSON(t *testing.T) {
	_, err := ParseStructure([]byte(`{not json`))
	assert.Error(t, err)
	assert.True(t, shared.IsContentIntegrity(err))
}

func TestParseStructure_MissingHeaderFields(t *testing.T) {
	cases := []string{
		`{"title": "x", "isLinear": true, "tracks": [{"id":"t","title":"t","kind":"track"}]}`,
		`{"id": "x", "isLinear": true, "tracks": [{"id":"t","title":"t","kind":"track"}]}`,
		`{"id": "x", "title": "x", "tracks": [{"id":"t","title":"t","kind":"track"}]}`,
		`{"id": "x", "title": "x", "isLinear": false, "tracks": []}`,
	}

	for _, raw := range cases {
		_, err := ParseStructure([]byte(raw))
		assert.Error(t, err, "artifact %s should be rejected", raw)
		assert.True(t, shared.IsContentIntegrity(err))
	}
}

func TestParseStructure_LessonWithoutSlot(t *testing.T) {
	raw := []byte(`{
		"id": "s", "title": "S", "isLinear": true,
		"tracks": [
			{"id": "t1", "title": "T", "kind": "track", "isLinear": true,
			 "children": [{"id": "l1", "title": "L", "kind": "lesson"}]}
		]
	}`)

	_, err := ParseStructure(raw)
	assert.Error(t, err)
	assert.True(t, shared.IsContentIntegrity(err))
}

func TestParseStructure_NegativeSlot(t *testing.T) {
	raw := []byte(`{
		"id": "s", "title": "S", "isLinear": true,
		"tracks": [
			{"id": "t1", "title": "T", "kind": "track", "isLinear": true,
			 "children": [{"id": "l1", "title": "L", "kind": "lesson", "slotIndex": -1}]}
		]
	}`)

	_, err := ParseStructure(raw)
	assert.Error(t, err)
}

func TestParseStructure_LessonWithChildren(t *testing.T) {
	raw := []byte(`{
		"id": "s", "title": "S", "isLinear": true,
		"tracks": [
			{"id": "t1", "title": "T", "kind": "track", "isLinear": true,
			 "children": [
				{"id": "l1", "title": "L", "kind": "lesson", "slotIndex": 0,
				 "children": [{"id": "l2", "title": "L2", "kind": "lesson", "slotIndex": 1}]}
			 ]}
		]
	}`)

	_, err := ParseStructure(raw)
	assert.Error(t, err)
}

func TestParseStructure_UnknownKind(t *testing.T) {
	raw := []byte(`{
		"id": "s", "title": "S", "isLinear": true,
		"tracks": [
			{"id": "t1", "title": "T", "kind": "chapter", "isLinear": true}
		]
	}`)

	_, err := ParseStructure(raw)
	assert.Error(t, err)
}

func TestFindLesson_NotPresent(t *testing.T) {
	root, err := ParseStructure(validArtifact())
	assert.NoError(t, err)
	assert.Nil(t, FindLesson(root, "nope"))
}
