// Package progress contains the core progress-tracking domain: the
// per-(player, subject) completion bitset, best-hearts records, XP
// computation, and the repository contracts the infrastructure implements.
package progress

import (
	"bytes"
	"encoding/base64"
	"fmt"
)

// Bitset is a growable completion bitmap. Bit i is set iff the lesson at
// stable slot index i has been passed at least once. Slot indices are
// assigned once per subject and never reused, so the buffer only ever grows.
//
// Layout: bit i lives in byte i/8 at position i%8 (value |= 1<<(i%8)).
// Growth appends zero bytes at the end, which preserves the numeric meaning
// of every previously set bit.
type Bitset []byte

// NewBitset returns an empty bitset.
func NewBitset() Bitset {
	return Bitset{}
}

// Check reports whether the bit at the given slot is set.
// Slots beyond the current buffer are unset by definition.
func (b Bitset) Check(slot int) bool {
	if slot < 0 {
		return false
	}
	idx := slot / 8
	if idx >= len(b) {
		return false
	}
	return b[idx]&(1<<(slot%8)) != 0
}

// Set returns a bitset with the bit at the given slot set. The receiver is
// not mutated. Setting an already-set bit yields a byte-identical result.
func (b Bitset) Set(slot int) Bitset {
	if slot < 0 {
		return b.Clone()
	}
	idx := slot / 8
	out := b.Clone()
	for len(out) <= idx {
		out = append(out, 0)
	}
	out[idx] |= 1 << (slot % 8)
	return out
}

// Count returns the number of set bits.
func (b Bitset) Count() int {
	n := 0
	for _, by := range b {
		for by != 0 {
			n += int(by & 1)
			by >>= 1
		}
	}
	return n
}

// Clone returns an independent copy of the bitset.
func (b Bitset) Clone() Bitset {
	out := make(Bitset, len(b))
	copy(out, b)
	return out
}

// Equal reports whether two bitsets are byte-identical.
func (b Bitset) Equal(other Bitset) bool {
	return bytes.Equal(b, other)
}

// Encode serializes the bitset for durable storage. The empty bitset
// encodes to the empty string; Decode inverts this losslessly.
func (b Bitset) Encode() string {
	if len(b) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeBitset is the inverse of Encode.
func DecodeBitset(encoded string) (Bitset, error) {
	if encoded == "" {
		return NewBitset(), nil
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("progress: failed to decode bitset: %w", err)
	}
	return Bitset(raw), nil
}
