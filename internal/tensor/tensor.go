package tensor

import "fmt"

// Tensor is a contiguous, row-major, owning storage block of type T whose
// shape is fixed at construction.
//
// The backing memory is allocated once on the heap and never resized, so
// arbitrarily large shapes never touch the stack. Other code may alias a
// tensor's storage only through a View.
//
// Example:
//
//	t := tensor.New[float32](2, 3)
//	t.Set(1.5, 1, 2)
//	v, _ := t.ViewAs(tensor.Shape{3, 2}) // same memory, different shape
type Tensor[T Float] struct {
	data    []T
	shape   Shape
	strides []int
}

// New creates a zero-filled tensor with the given dimensions.
// Panics if the shape is invalid; shapes are expected to be known statically.
func New[T Float](dims ...int) *Tensor[T] {
	shape := Shape(dims)
	if err := shape.Validate(); err != nil {
		panic(fmt.Sprintf("tensor.New: %v", err))
	}
	return &Tensor[T]{
		data:    make([]T, shape.NumElements()),
		shape:   shape.Clone(),
		strides: shape.ComputeStrides(),
	}
}

// Zeros creates a zero-filled tensor with the given shape.
func Zeros[T Float](shape Shape) *Tensor[T] {
	return New[T](shape...)
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice[T Float](data []T, shape Shape) (*Tensor[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if shape.NumElements() != len(data) {
		return nil, &ShapeError{
			Op:      "FromSlice",
			Details: fmt.Sprintf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data)),
		}
	}
	t := New[T](shape...)
	copy(t.data, data)
	return t, nil
}

// Shape returns the tensor's shape.
func (t *Tensor[T]) Shape() Shape {
	return t.shape
}

// Len returns the total number of elements.
func (t *Tensor[T]) Len() int {
	return len(t.data)
}

// DType returns the tensor's data type.
func (t *Tensor[T]) DType() DataType {
	return DataTypeOf[T]()
}

// Data returns the tensor's storage (zero-copy).
//
// WARNING: Modifications to the returned slice will modify the tensor.
func (t *Tensor[T]) Data() []T {
	return t.data
}

// At returns the element at the given indices.
// Panics with an *IndexError if the indices are out of bounds.
//
// Example:
//
//	t := tensor.New[float32](3, 4)
//	value := t.At(1, 2) // Row 1, column 2
func (t *Tensor[T]) At(indices ...int) T {
	return t.data[mustOffset(t.shape, t.strides, indices)]
}

// Set sets the element at the given indices.
// Panics with an *IndexError if the indices are out of bounds.
func (t *Tensor[T]) Set(value T, indices ...int) {
	t.data[mustOffset(t.shape, t.strides, indices)] = value
}

// Get is the non-panicking form of At.
func (t *Tensor[T]) Get(indices ...int) (T, error) {
	off, err := t.shape.Offset(indices...)
	if err != nil {
		var zero T
		return zero, err
	}
	return t.data[off], nil
}

// Fill sets every element to value.
func (t *Tensor[T]) Fill(value T) {
	for i := range t.data {
		t.data[i] = value
	}
}

// Clone creates a deep copy of the tensor.
func (t *Tensor[T]) Clone() *Tensor[T] {
	c := New[T](t.shape...)
	copy(c.data, t.data)
	return c
}

// View returns a view of the whole tensor under its own shape.
func (t *Tensor[T]) View() View[T] {
	return View[T]{data: t.data, shape: t.shape, strides: t.strides}
}

// ViewAs reinterprets the tensor's storage under a different shape.
//
// Succeeds only if the new shape's element count fits the storage; the view
// then covers the leading elements. No data is copied.
func (t *Tensor[T]) ViewAs(shape Shape) (View[T], error) {
	return t.ViewAt(0, shape)
}

// ViewAt reinterprets the storage starting at offset under shape.
func (t *Tensor[T]) ViewAt(offset int, shape Shape) (View[T], error) {
	return t.View().Slice(offset, shape)
}

// String returns a human-readable representation of the tensor.
func (t *Tensor[T]) String() string {
	return fmt.Sprintf("Tensor[%s]%v", t.DType(), t.shape)
}

// mustOffset computes the flat offset of indices and panics on failure.
// Out-of-bounds access outside the generated forward path is a programmer
// defect and is reported immediately.
func mustOffset(shape Shape, strides, indices []int) int {
	if len(indices) != len(shape) {
		panic(&IndexError{Indices: append([]int(nil), indices...), Shape: shape.Clone()})
	}
	offset := 0
	for i, idx := range indices {
		if idx < 0 || idx >= shape[i] {
			panic(&IndexError{Indices: append([]int(nil), indices...), Shape: shape.Clone(), Dim: i})
		}
		offset += idx * strides[i]
	}
	return offset
}
