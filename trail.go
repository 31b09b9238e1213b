package blockpress

import (
	"fmt"

	"github.com/boljen/go-bitmap"
)

// MaxTrailFlags is the number of flags a single trail can hold. A chain of
// transforms deeper than this is not supported.
const MaxTrailFlags = 64

// Trail is the per-block side channel of a transform chain. It holds two
// independent stacks: one-bit flags and 32-bit values. Transforms push in
// Transform and pop in Reverse; because chained reverses run in the opposite
// order, each stage pops exactly what it pushed.
//
// The zero value is an empty trail ready for use.
type Trail struct {
	flags    bitmap.Bitmap
	numFlags int
	values   []uint32
}

// PushFlag appends a flag to the trail.
func (t *Trail) PushFlag(value bool) error {
	if t.numFlags == MaxTrailFlags {
		return ErrArgumentOutOfRange.WithMessage(
			fmt.Sprintf("trail already holds the maximum of %d flags", MaxTrailFlags),
		)
	}
	if t.flags == nil {
		t.flags = bitmap.New(MaxTrailFlags)
	}
	t.flags.Set(t.numFlags, value)
	t.numFlags++
	return nil
}

// PopFlag removes and returns the most recently pushed flag. Popping an empty
// stack means the transform that wants the flag never ran, so there is nothing
// to reverse with: the error is [ErrNotInvertible].
func (t *Trail) PopFlag() (bool, error) {
	if t.numFlags == 0 {
		return false, ErrNotInvertible.WithMessage("no flag recorded on the trail")
	}
	t.numFlags--
	value := t.flags.Get(t.numFlags)
	t.flags.Set(t.numFlags, false)
	return value, nil
}

// PushValue appends a value to the trail.
func (t *Trail) PushValue(value uint32) {
	t.values = append(t.values, value)
}

// PopValue removes and returns the most recently pushed value.
func (t *Trail) PopValue() (uint32, error) {
	if len(t.values) == 0 {
		return 0, ErrNotInvertible.WithMessage("no value recorded on the trail")
	}
	last := len(t.values) - 1
	value := t.values[last]
	t.values = t.values[:last]
	return value, nil
}

// FlagCount gives the number of flags currently on the trail.
func (t *Trail) FlagCount() int {
	return t.numFlags
}

// ValueCount gives the number of values currently on the trail.
func (t *Trail) ValueCount() int {
	return len(t.values)
}

// SizeBits is the cost of storing the trail alongside a compressed block: one
// bit per flag and 32 bits per value.
func (t *Trail) SizeBits() int {
	return t.numFlags + 32*len(t.values)
}

// Empty is true if nothing is recorded on the trail.
func (t *Trail) Empty() bool {
	return t.numFlags == 0 && len(t.values) == 0
}

// Reset discards everything on the trail.
func (t *Trail) Reset() {
	t.flags = nil
	t.numFlags = 0
	t.values = nil
}

// Clone returns an independent copy of the trail.
func (t *Trail) Clone() Trail {
	clone := Trail{numFlags: t.numFlags}
	if t.flags != nil {
		clone.flags = bitmap.New(MaxTrailFlags)
		copy(clone.flags, t.flags)
	}
	if len(t.values) > 0 {
		clone.values = make([]uint32, len(t.values))
		copy(clone.values, t.values)
	}
	return clone
}

// Equal is true if both trails hold the same flags and values in the same
// order.
func (t *Trail) Equal(other *Trail) bool {
	if t.numFlags != other.numFlags || len(t.values) != len(other.values) {
		return false
	}
	for i := 0; i < t.numFlags; i++ {
		if t.flags.Get(i) != other.flags.Get(i) {
			return false
		}
	}
	for i := range t.values {
		if t.values[i] != other.values[i] {
			return false
		}
	}
	return true
}
