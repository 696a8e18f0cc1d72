package netdef

import (
	"errors"
	"fmt"

	"github.com/born-ml/typednet/internal/tensor"
)

// Common errors.
var (
	ErrShapeChain             = errors.New("layer shapes do not chain")
	ErrConvOutputNonPositive  = errors.New("convolution output size is not positive")
	ErrInvalidParam           = errors.New("invalid layer parameter")
	ErrNoLayers               = errors.New("network has no layers")
	ErrInvalidName            = errors.New("network name is not a valid Go identifier")
	ErrDuplicateName          = errors.New("duplicate network name")
	ErrUnsupportedElementType = errors.New("unsupported element type")
)

// Position locates a layer in a network definition.
//
// Index is the zero-based position in the layer list; Line is the source
// line when the definition was parsed from text and zero otherwise. Errors
// returned by Layer.OutputShape carry Index -1 until Resolve places them.
type Position struct {
	Index int
	Line  int
}

var noPosition = Position{Index: -1}

func (p Position) String() string {
	switch {
	case p.Index < 0:
		return ""
	case p.Line > 0:
		return fmt.Sprintf("layers[%d] (line %d)", p.Index, p.Line)
	default:
		return fmt.Sprintf("layers[%d]", p.Index)
	}
}

func (p *Position) place(at Position) {
	*p = at
}

// prefix renders "<position> <layer>: " for error messages.
func prefix(p Position, l Layer) string {
	s := p.String()
	if l != nil {
		if s != "" {
			s += " "
		}
		s += l.String()
	}
	if s == "" {
		return ""
	}
	return s + ": "
}

// ShapeChainError reports a layer whose required input does not match the
// shape produced by the layer before it.
type ShapeChainError struct {
	Position
	Layer Layer
	Got   tensor.Shape // Shape arriving at the layer
	Want  tensor.Shape // Shape the layer declares it accepts
}

// Error implements the error interface.
func (e *ShapeChainError) Error() string {
	return fmt.Sprintf("%sinput shape %v does not match declared input %v", prefix(e.Position, e.Layer), e.Got, e.Want)
}

// Unwrap returns ErrShapeChain.
func (e *ShapeChainError) Unwrap() error {
	return ErrShapeChain
}

// ConvOutputNonPositiveError reports a convolution whose kernel does not fit
// its (padded) input along some spatial axis.
type ConvOutputNonPositiveError struct {
	Position
	Layer Conv
	Input tensor.Shape
	Axis  string // "height" or "width"
	Size  int    // floor((in + 2*padding - kernel)/stride) + 1
}

// Error implements the error interface.
func (e *ConvOutputNonPositiveError) Error() string {
	return fmt.Sprintf("%soutput %s would be %d for input %v", prefix(e.Position, e.Layer), e.Axis, e.Size, e.Input)
}

// Unwrap returns ErrConvOutputNonPositive.
func (e *ConvOutputNonPositiveError) Unwrap() error {
	return ErrConvOutputNonPositive
}

// ParamError reports a descriptor parameter or input shape outside its
// valid range.
type ParamError struct {
	Position
	Layer Layer // nil for network-level parameters such as the input shape
	Param string
	Value any
	Msg   string
}

// Error implements the error interface.
func (e *ParamError) Error() string {
	return fmt.Sprintf("%sinvalid %s %v: %s", prefix(e.Position, e.Layer), e.Param, e.Value, e.Msg)
}

// Unwrap returns ErrInvalidParam.
func (e *ParamError) Unwrap() error {
	return ErrInvalidParam
}

// SyntaxError reports malformed DSL or YAML definition text.
type SyntaxError struct {
	Line   int
	Column int
	Msg    string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	if e.Column > 0 {
		return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("%d: %s", e.Line, e.Msg)
}

// locate fills the position of a layer error produced by OutputShape.
func locate(err error, at Position) error {
	var placed interface{ place(Position) }
	if errors.As(err, &placed) {
		placed.place(at)
	}
	return err
}
