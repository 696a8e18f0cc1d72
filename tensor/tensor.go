// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/typednet/internal/tensor"
)

// Type aliases for public API

// Float is the constraint for element types: float32 or float64.
type Float = tensor.Float

// DataType represents the element type of a tensor at run time.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
)

// ParseDataType parses "float32" or "float64".
func ParseDataType(s string) (DataType, error) {
	return tensor.ParseDataType(s)
}

// DataTypeOf returns the DataType of T.
func DataTypeOf[T Float]() DataType {
	return tensor.DataTypeOf[T]()
}

// Shape represents the dimensions of a tensor.
// Example: Shape{1, 28, 28} is one 28x28 channel.
type Shape = tensor.Shape

// Tensor owns contiguous row-major storage tagged with a shape.
//
// Example:
//
//	x := tensor.New[float32](2, 3)
//	x.Set(1.5, 1, 2)
//	v := x.View()
type Tensor[T Float] = tensor.Tensor[T]

// View is a non-owning, shape-tagged window over existing storage.
//
// ViewAs reinterprets the storage under another shape whose element count
// fits the remaining storage; nothing is copied and writes through any view
// are visible through every other view of the storage.
type View[T Float] = tensor.View[T]

// Matrix is a rows x cols row-major tensor.
type Matrix[T Float] = tensor.Matrix[T]

// Errors.
var (
	ErrIndexOutOfBounds = tensor.ErrIndexOutOfBounds
	ErrShapeMismatch    = tensor.ErrShapeMismatch
	ErrAliased          = tensor.ErrAliased
)

// IndexError reports an index outside a shape.
type IndexError = tensor.IndexError

// ShapeError reports operands whose shapes do not fit together.
type ShapeError = tensor.ShapeError

// Creation functions

// New creates a zero-filled tensor with the given dimensions.
func New[T Float](dims ...int) *Tensor[T] {
	return tensor.New[T](dims...)
}

// Zeros creates a zero-filled tensor of shape.
func Zeros[T Float](shape Shape) *Tensor[T] {
	return tensor.Zeros[T](shape)
}

// FromSlice creates a tensor of shape holding a copy of data.
//
// Example:
//
//	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
func FromSlice[T Float](data []T, shape Shape) (*Tensor[T], error) {
	return tensor.FromSlice(data, shape)
}

// NewMatrix creates a zero-filled rows x cols matrix.
func NewMatrix[T Float](rows, cols int) *Matrix[T] {
	return tensor.NewMatrix[T](rows, cols)
}

// ViewOf views data under shape. The capacity of data beyond the shape
// stays reachable through ViewAs.
func ViewOf[T Float](data []T, shape Shape) (View[T], error) {
	return tensor.ViewOf(data, shape)
}

// MustViewOf is ViewOf that panics on error.
func MustViewOf[T Float](data []T, shape Shape) View[T] {
	return tensor.MustViewOf(data, shape)
}

// Operations

// MatVec computes dst = m·x.
func MatVec[T Float](dst, m, x View[T]) error {
	return tensor.MatVec(dst, m, x)
}
