package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateXP_FirstCompletion(t *testing.T) {
	outcome := CalculateXP("lesson-1", 3, true, BestHearts{}, 10)

	assert.Equal(t, 40, outcome.XPEarned)
	assert.True(t, outcome.IsNewRecord)
	assert.Equal(t, 3, outcome.UpdatedBest["lesson-1"])
}

func TestCalculateXP_FirstCompletionZeroHearts(t *testing.T) {
	outcome := CalculateXP("lesson-1", 0, true, BestHearts{}, 10)

	assert.Equal(t, 10, outcome.XPEarned)
	assert.True(t, outcome.IsNewRecord)
	assert.Equal(t, 0, outcome.UpdatedBest["lesson-1"])
}

func TestCalculateXP_ReplayImprovement(t *testing.T) {
	prior := BestHearts{"lesson-1": 3}
	outcome := CalculateXP("lesson-1", 5, false, prior, 10)

	assert.Equal(t, 20, outcome.XPEarned)
	assert.True(t, outcome.IsNewRecord)
	assert.Equal(t, 5, outcome.UpdatedBest["lesson-1"])

	// The input map is never mutated.
	assert.Equal(t, 3, prior["lesson-1"])
}

func TestCalculateXP_ReplayWorseRun(t *testing.T) {
	prior := BestHearts{"lesson-1": 5}
	outcome := CalculateXP("lesson-1", 2, false, prior, 10)

	assert.Equal(t, 0, outcome.XPEarned)
	assert.False(t, outcome.IsNewRecord)
	assert.Equal(t, 5, outcome.UpdatedBest["lesson-1"])
}

func TestCalculateXP_ReplayEqualRun(t *testing.T) {
	prior := BestHearts{"lesson-1": 4}
	outcome := CalculateXP("lesson-1", 4, false, prior, 10)

	assert.Equal(t, 0, outcome.XPEarned)
	assert.False(t, outcome.IsNewRecord)
}

func TestCalculateXP_ClampsHearts(t *testing.T) {
	over := CalculateXP("lesson-1", 9, true, BestHearts{}, 10)
	assert.Equal(t, 60, over.XPEarned)
	assert.Equal(t, 5, over.UpdatedBest["lesson-1"])

	under := CalculateXP("lesson-1", -2, true, BestHearts{}, 10)
	assert.Equal(t, 10, under.XPEarned)
	assert.Equal(t, 0, under.UpdatedBest["lesson-1"])
}

func TestCalculateXP_ReplayWithNoPriorEntry(t *testing.T) {
	// A set bit without a best-hearts entry (legacy data) behaves like a
	// prior best of zero.
	outcome := CalculateXP("lesson-1", 4, false, BestHearts{}, 10)

	assert.Equal(t, 40, outcome.XPEarned)
	assert.True(t, outcome.IsNewRecord)
}

func TestBestHearts_Clone(t *testing.T) {
	orig := BestHearts{"a": 3, "b": 5}
	clone := orig.Clone()

	clone["a"] = 1
	assert.Equal(t, 3, orig["a"])
	assert.Equal(t, 5, clone["b"])
}
