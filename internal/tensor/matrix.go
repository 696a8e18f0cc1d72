package tensor

import "fmt"

// Matrix is row-major 2D storage with fixed row and column counts.
//
// The backing memory is allocated once at construction and never resized.
// Element (i, j) lives at data[i*cols+j].
type Matrix[T Float] struct {
	rows int
	cols int
	data []T
}

// NewMatrix creates a zero-filled rows×cols matrix.
// Panics if either dimension is not positive.
func NewMatrix[T Float](rows, cols int) *Matrix[T] {
	if rows <= 0 || cols <= 0 {
		panic(fmt.Sprintf("tensor.NewMatrix: invalid dimensions %dx%d", rows, cols))
	}
	return &Matrix[T]{
		rows: rows,
		cols: cols,
		data: make([]T, rows*cols),
	}
}

// Rows returns the number of rows.
func (m *Matrix[T]) Rows() int {
	return m.rows
}

// Cols returns the number of columns.
func (m *Matrix[T]) Cols() int {
	return m.cols
}

// Shape returns (rows, cols).
func (m *Matrix[T]) Shape() Shape {
	return Shape{m.rows, m.cols}
}

// Data returns the row-major storage (zero-copy).
func (m *Matrix[T]) Data() []T {
	return m.data
}

// At returns element (i, j). Panics with an *IndexError when out of bounds.
func (m *Matrix[T]) At(i, j int) T {
	return m.data[m.offset(i, j)]
}

// Set sets element (i, j). Panics with an *IndexError when out of bounds.
func (m *Matrix[T]) Set(value T, i, j int) {
	m.data[m.offset(i, j)] = value
}

// Row returns row i as a slice aliasing the matrix storage.
func (m *Matrix[T]) Row(i int) []T {
	if i < 0 || i >= m.rows {
		panic(&IndexError{Indices: []int{i}, Shape: Shape{m.rows}})
	}
	return m.data[i*m.cols : (i+1)*m.cols]
}

// View returns a (rows, cols) view of the matrix storage.
func (m *Matrix[T]) View() View[T] {
	shape := m.Shape()
	return View[T]{data: m.data, shape: shape, strides: shape.ComputeStrides()}
}

func (m *Matrix[T]) offset(i, j int) int {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		dim := 0
		if i >= 0 && i < m.rows {
			dim = 1
		}
		panic(&IndexError{Indices: []int{i, j}, Shape: m.Shape(), Dim: dim})
	}
	return i*m.cols + j
}
