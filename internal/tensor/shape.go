package tensor

import (
	"fmt"
	"strconv"
	"strings"
)

// Shape represents the dimensions of a tensor.
//
// A shape is fixed for the lifetime of the storage it describes. Two shapes
// are equal iff they have the same rank and the same dimensions in order.
type Shape []int

// NumElements returns the total number of elements described by the shape.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Rank returns the number of dimensions.
func (s Shape) Rank() int {
	return len(s)
}

// Validate checks if the shape is valid (at least one dimension, all > 0).
func (s Shape) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("empty shape: at least one dimension is required")
	}
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// Offset maps an index tuple to its row-major flat offset.
//
// Returns an *IndexError (matching ErrIndexOutOfBounds) if the number of
// indices differs from the rank or any index falls outside its dimension.
func (s Shape) Offset(indices ...int) (int, error) {
	if len(indices) != len(s) {
		return 0, &IndexError{Indices: append([]int(nil), indices...), Shape: s.Clone()}
	}
	offset, stride := 0, 1
	for i := len(s) - 1; i >= 0; i-- {
		idx := indices[i]
		if idx < 0 || idx >= s[i] {
			return 0, &IndexError{Indices: append([]int(nil), indices...), Shape: s.Clone(), Dim: i}
		}
		offset += idx * stride
		stride *= s[i]
	}
	return offset, nil
}

// String renders the shape as a parenthesised tuple, e.g. "(1,28,28)".
func (s Shape) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, dim := range s {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(dim))
	}
	sb.WriteByte(')')
	return sb.String()
}

// Ident renders the shape for use inside Go identifiers, e.g. "1x28x28".
func (s Shape) Ident() string {
	parts := make([]string, len(s))
	for i, dim := range s {
		parts[i] = strconv.Itoa(dim)
	}
	return strings.Join(parts, "x")
}
