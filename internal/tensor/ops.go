package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"
)

// MatVec computes dst = m · x.
//
// Operands are combined only through views so that each operand's declared
// shape governs its role: m must be rank 2 with m.cols == x.Len() and
// m.rows == dst.Len(), and dst must not share storage with x.
func MatVec[T Float](dst, m, x View[T]) error {
	if len(m.shape) != 2 {
		return &ShapeError{Op: "MatVec", Details: fmt.Sprintf("matrix operand must be rank 2, got %v", m.shape)}
	}
	rows, cols := m.shape[0], m.shape[1]
	if x.Len() != cols {
		return &ShapeError{
			Op:      "MatVec",
			Details: fmt.Sprintf("matrix %v needs a vector of %d elements, got %v", m.shape, cols, x.shape),
		}
	}
	if dst.Len() != rows {
		return &ShapeError{
			Op:      "MatVec",
			Details: fmt.Sprintf("matrix %v produces %d elements, destination is %v", m.shape, rows, dst.shape),
		}
	}
	if overlaps(dst.data, x.data) || overlaps(dst.data, m.data) {
		return fmt.Errorf("MatVec: %w", ErrAliased)
	}
	Gemv(rows, cols, m.data, x.data, 0, dst.data)
	return nil
}

// Gemv computes y = A·x + beta·y for a row-major rows×cols matrix A.
//
// It performs no shape checks; callers guarantee len(a) >= rows*cols,
// len(x) >= cols and len(y) >= rows. This is the kernel behind generated
// forward passes whose shapes were proven at build time.
func Gemv[T Float](rows, cols int, a, x []T, beta T, y []T) {
	switch a := any(a).(type) {
	case []float32:
		blas32.Gemv(blas.NoTrans, 1,
			blas32.General{Rows: rows, Cols: cols, Stride: cols, Data: a},
			blas32.Vector{N: cols, Inc: 1, Data: any(x).([]float32)},
			any(beta).(float32),
			blas32.Vector{N: rows, Inc: 1, Data: any(y).([]float32)})
	case []float64:
		blas64.Gemv(blas.NoTrans, 1,
			blas64.General{Rows: rows, Cols: cols, Stride: cols, Data: a},
			blas64.Vector{N: cols, Inc: 1, Data: any(x).([]float64)},
			any(beta).(float64),
			blas64.Vector{N: rows, Inc: 1, Data: any(y).([]float64)})
	}
}

// Gemm computes C = A·B + beta·C for row-major A (m×k), B (k×n), C (m×n).
//
// Like Gemv it trusts its dimensions.
func Gemm[T Float](m, n, k int, a, b []T, beta T, c []T) {
	switch a := any(a).(type) {
	case []float32:
		blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
			blas32.General{Rows: m, Cols: k, Stride: k, Data: a},
			blas32.General{Rows: k, Cols: n, Stride: n, Data: any(b).([]float32)},
			any(beta).(float32),
			blas32.General{Rows: m, Cols: n, Stride: n, Data: any(c).([]float32)})
	case []float64:
		blas64.Gemm(blas.NoTrans, blas.NoTrans, 1,
			blas64.General{Rows: m, Cols: k, Stride: k, Data: a},
			blas64.General{Rows: k, Cols: n, Stride: n, Data: any(b).([]float64)},
			any(beta).(float64),
			blas64.General{Rows: m, Cols: n, Stride: n, Data: any(c).([]float64)})
	}
}
