package core

import (
	"errors"
	"fmt"
)

// ErrShape is returned when a tensor does not have the rank or dimensions an
// operation requires.
var ErrShape = errors.New("shape mismatch")

// Shape is the dimension sizes of a tensor, e.g. [batch, seq, embed].
type Shape []int

// Strides are byte offsets per axis (row-major).
type Strides []int

// ContiguousStrides computes row-major strides for a shape.
// Last axis stride = elemSize; strides[i] = strides[i+1] * shape[i+1].
func ContiguousStrides(shape Shape, elemSize uintptr) Strides {
	if len(shape) == 0 {
		return nil
	}
	strides := make(Strides, len(shape))
	strides[len(shape)-1] = int(elemSize)
	for i := len(shape) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * shape[i+1]
	}
	return strides
}

// NumElements returns the total number of elements (product of dimensions).
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 0
	}
	n := 1
	for _, d := range s {
		if d <= 0 {
			return 0
		}
		n *= d
	}
	return n
}

// Equal reports whether s and o have the same rank and dimensions.
func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of s that does not share its backing array.
func (s Shape) Clone() Shape {
	out := make(Shape, len(s))
	copy(out, s)
	return out
}

// CheckRank fails with ErrShape unless shape has exactly rank axes.
func CheckRank(name string, shape Shape, rank int) error {
	if len(shape) != rank {
		return fmt.Errorf("%s: want rank %d, got shape %v: %w", name, rank, shape, ErrShape)
	}
	return nil
}

// CheckDim fails with ErrShape unless shape[axis] == want.
func CheckDim(name string, shape Shape, axis, want int) error {
	if axis < 0 || axis >= len(shape) {
		return fmt.Errorf("%s: axis %d out of range for shape %v: %w", name, axis, shape, ErrShape)
	}
	if shape[axis] != want {
		return fmt.Errorf("%s: axis %d must be %d, got shape %v: %w", name, axis, want, shape, ErrShape)
	}
	return nil
}
