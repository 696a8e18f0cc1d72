package tensor

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrIndexOutOfBounds = errors.New("index out of bounds")
	ErrShapeMismatch    = errors.New("shape mismatch")
	ErrAliased          = errors.New("operands share storage")
)

// IndexError reports an element access outside a shape.
type IndexError struct {
	Indices []int
	Shape   Shape
	Dim     int // Offending dimension; meaningless when the arity is wrong
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	if len(e.Indices) != len(e.Shape) {
		return fmt.Sprintf("index out of bounds: %d indices for shape %v", len(e.Indices), e.Shape)
	}
	return fmt.Sprintf("index out of bounds: %v for shape %v (dimension %d has size %d)",
		e.Indices, e.Shape, e.Dim, e.Shape[e.Dim])
}

// Unwrap returns ErrIndexOutOfBounds.
func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfBounds
}

// ShapeError reports a reinterpretation or combination whose shapes do not fit.
type ShapeError struct {
	Op      string
	Got     Shape
	Want    Shape
	Details string
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: shape mismatch: %s", e.Op, e.Details)
	}
	return fmt.Sprintf("%s: shape mismatch: got %v, want %v", e.Op, e.Got, e.Want)
}

// Unwrap returns ErrShapeMismatch.
func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}
