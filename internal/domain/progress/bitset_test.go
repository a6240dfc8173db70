package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitset_SetAndCheck(t *testing.T) {
	b := NewBitset()

	assert.False(t, b.Check(0))
	assert.False(t, b.Check(100))

	b = b.Set(0)
	assert.True(t, b.Check(0))
	assert.False(t, b.Check(1))

	b = b.Set(9)
	assert.True(t, b.Check(0))
	assert.True(t, b.Check(9))
	assert.False(t, b.Check(8))
	assert.False(t, b.Check(10))
}

func TestBitset_BitsAreIndependent(t *testing.T) {
	b := NewBitset()
	for _, slot := range []int{0, 3, 7, 8, 63, 64} {
		b = b.Set(slot)
	}

	for slot := 0; slot < 70; slot++ {
		switch slot {
		case 0, 3, 7, 8, 63, 64:
			assert.True(t, b.Check(slot), "slot %d should be set", slot)
		default:
			assert.False(t, b.Check(slot), "slot %d should be unset", slot)
		}
	}
	assert.Equal(t, 6, b.Count())
}

func TestBitset_SetIsIdempotent(t *testing.T) {
	b := NewBitset().Set(5)
	again := b.Set(5)

	assert.True(t, b.Equal(again))
	assert.Equal(t, 1, again.Count())
}

func TestBitset_SetDoesNotMutateReceiver(t *testing.T) {
	b := NewBitset().Set(2)
	_ = b.Set(3)

	assert.True(t, b.Check(2))
	assert.False(t, b.Check(3))
}

func TestBitset_GrowthPreservesLowSlots(t *testing.T) {
	b := NewBitset().Set(1)
	b = b.Set(200)

	assert.True(t, b.Check(1))
	assert.True(t, b.Check(200))
	assert.Equal(t, 26, len(b))
}

func TestBitset_NegativeSlot(t *testing.T) {
	b := NewBitset().Set(-1)
	assert.Equal(t, 0, b.Count())
	assert.False(t, b.Check(-1))
}

func TestBitset_EncodeDecodeRoundTrip(t *testing.T) {
	b := NewBitset().Set(0).Set(12).Set(77)

	decoded, err := DecodeBitset(b.Encode())
	assert.NoError(t, err)
	assert.True(t, b.Equal(decoded))
}

func TestBitset_EmptyEncodesToEmptyString(t *testing.T) {
	assert.Equal(t, "", NewBitset().Encode())

	decoded, err := DecodeBitset("")
	assert.NoError(t, err)
	assert.Equal(t, 0, len(decoded))
}

func TestDecodeBitset_InvalidInput(t *testing.T) {
	_, err := DecodeBitset("not-valid-base64!!!")
	assert.Error(t, err)
}
