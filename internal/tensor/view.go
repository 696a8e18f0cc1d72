package tensor

import (
	"fmt"
	"unsafe"
)

// View is a non-owning reinterpretation of a Tensor's (or another View's)
// storage under a possibly different shape.
//
// A view never copies data and never owns it: it must not outlive the tensor
// or buffer it was taken from. Its element count never exceeds the storage
// remaining from its offset, which is the capacity of its backing slice.
//
// Views are small values; taking one does not allocate beyond its shape.
type View[T Float] struct {
	data    []T // len == shape.NumElements(); cap reaches the end of the storage
	shape   Shape
	strides []int
}

// ViewOf wraps an existing buffer as a view with the given shape.
//
// The view covers the first shape.NumElements() elements of data, which must
// fit within len(data).
func ViewOf[T Float](data []T, shape Shape) (View[T], error) {
	if err := shape.Validate(); err != nil {
		return View[T]{}, fmt.Errorf("invalid shape: %w", err)
	}
	n := shape.NumElements()
	if n > len(data) {
		return View[T]{}, &ShapeError{
			Op:      "ViewOf",
			Details: fmt.Sprintf("shape %v needs %d elements, buffer has %d", shape, n, len(data)),
		}
	}
	return View[T]{data: data[:n:len(data)], shape: shape.Clone(), strides: shape.ComputeStrides()}, nil
}

// MustViewOf is like ViewOf but panics on error.
// Generated code uses it for buffers whose sizes were fixed at build time.
func MustViewOf[T Float](data []T, shape Shape) View[T] {
	v, err := ViewOf(data, shape)
	if err != nil {
		panic(err)
	}
	return v
}

// Shape returns the view's shape.
func (v View[T]) Shape() Shape {
	return v.shape
}

// Len returns the number of elements covered by the view.
func (v View[T]) Len() int {
	return len(v.data)
}

// Remaining returns the element count of the underlying storage from the
// view's offset.
func (v View[T]) Remaining() int {
	return cap(v.data)
}

// Data returns the elements covered by the view (zero-copy).
func (v View[T]) Data() []T {
	return v.data
}

// IsZero reports whether v is the zero View.
func (v View[T]) IsZero() bool {
	return v.shape == nil
}

// At returns the element at the given indices.
// Panics with an *IndexError if the indices are out of bounds.
func (v View[T]) At(indices ...int) T {
	return v.data[mustOffset(v.shape, v.strides, indices)]
}

// Set sets the element at the given indices.
// Panics with an *IndexError if the indices are out of bounds.
func (v View[T]) Set(value T, indices ...int) {
	v.data[mustOffset(v.shape, v.strides, indices)] = value
}

// Get is the non-panicking form of At.
func (v View[T]) Get(indices ...int) (T, error) {
	off, err := v.shape.Offset(indices...)
	if err != nil {
		var zero T
		return zero, err
	}
	return v.data[off], nil
}

// ViewAs reinterprets the same storage under shape.
//
// Succeeds only if shape's element count fits the storage remaining from
// the view's offset. Returns a *ShapeError otherwise.
//
// Example:
//
//	img, _ := t.ViewAs(tensor.Shape{1, 28, 28})
//	flat, _ := img.ViewAs(tensor.Shape{784})
func (v View[T]) ViewAs(shape Shape) (View[T], error) {
	return v.Slice(0, shape)
}

// Slice returns a view of shape starting offset elements into v's storage.
func (v View[T]) Slice(offset int, shape Shape) (View[T], error) {
	if err := shape.Validate(); err != nil {
		return View[T]{}, fmt.Errorf("invalid shape: %w", err)
	}
	n := shape.NumElements()
	if offset < 0 || offset > cap(v.data) || n > cap(v.data)-offset {
		return View[T]{}, &ShapeError{
			Op: "ViewAs",
			Details: fmt.Sprintf("shape %v needs %d elements at offset %d, storage has %d remaining",
				shape, n, offset, cap(v.data)),
		}
	}
	full := v.data[:cap(v.data)]
	return View[T]{data: full[offset : offset+n], shape: shape.Clone(), strides: shape.ComputeStrides()}, nil
}

// Row returns the sub-view at index i of the leading dimension.
func (v View[T]) Row(i int) (View[T], error) {
	if len(v.shape) < 2 {
		return View[T]{}, &ShapeError{Op: "Row", Details: fmt.Sprintf("view of shape %v has no rows", v.shape)}
	}
	if i < 0 || i >= v.shape[0] {
		return View[T]{}, &IndexError{Indices: []int{i}, Shape: v.shape[:1].Clone()}
	}
	return v.Slice(i*v.strides[0], v.shape[1:])
}

// CopyFrom copies src's elements into v. Both views must have equal shapes.
func (v View[T]) CopyFrom(src View[T]) error {
	if !v.shape.Equal(src.shape) {
		return &ShapeError{Op: "CopyFrom", Got: src.shape, Want: v.shape}
	}
	copy(v.data, src.data)
	return nil
}

// Equal reports whether v and other have equal shapes and equal elements.
func (v View[T]) Equal(other View[T]) bool {
	if !v.shape.Equal(other.shape) {
		return false
	}
	for i := range v.data {
		if v.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

// Clone copies the view's elements into a new owning Tensor.
func (v View[T]) Clone() *Tensor[T] {
	t := New[T](v.shape...)
	copy(t.data, v.data)
	return t
}

// String returns a human-readable representation of the view.
func (v View[T]) String() string {
	return fmt.Sprintf("View[%s]%v", DataTypeOf[T](), v.shape)
}

// overlaps reports whether a and b share any element of memory.
func overlaps[T Float](a, b []T) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	var elem T
	size := unsafe.Sizeof(elem)
	//nolint:gosec // address comparison only, no dereference
	aStart := uintptr(unsafe.Pointer(unsafe.SliceData(a)))
	//nolint:gosec // address comparison only, no dereference
	bStart := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	aEnd := aStart + uintptr(len(a))*size
	bEnd := bStart + uintptr(len(b))*size
	return aStart < bEnd && bStart < aEnd
}
