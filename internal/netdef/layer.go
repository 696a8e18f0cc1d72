// Package netdef describes networks as build-time layer descriptors and
// validates that their shapes chain.
//
// Descriptors carry only the parameters needed to compute a layer's output
// shape from its input shape. They never carry weights and have no runtime
// representation: the generator lowers a resolved Network into concrete Go
// types, after which the descriptors are discarded.
package netdef

import (
	"fmt"
	"strings"

	"github.com/born-ml/typednet/internal/tensor"
)

// Kind identifies a layer variant.
type Kind int

// Layer kinds.
const (
	KindDense Kind = iota
	KindConv
	KindReLU
	KindSigmoid
)

var kindNames = [...]string{
	KindDense:   "dense",
	KindConv:    "conv",
	KindReLU:    "relu",
	KindSigmoid: "sigmoid",
}

// String returns the lower-case kind name used by the DSL and YAML formats.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind parses a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(s)
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown layer kind %q", s)
}

// Layer is a build-time layer descriptor.
//
// The set of implementations is closed: Dense, Conv, ReLU and Sigmoid.
type Layer interface {
	Kind() Kind

	// OutputShape computes the layer's output shape for the given input or
	// reports why the input is unacceptable.
	OutputShape(in tensor.Shape) (tensor.Shape, error)

	// WeightShapes returns the shapes of the parameters a runtime layer
	// needs for the given input, weight first. Only meaningful after
	// OutputShape accepted in.
	WeightShapes(in tensor.Shape) []tensor.Shape

	String() string

	descriptor()
}

// Dense is a fully connected layer producing Size outputs.
//
// It flattens any input. When In is non-zero the layer also declares the
// element count it expects, and a different incoming count is a chain error.
type Dense struct {
	Size int
	In   int
}

// Kind returns KindDense.
func (Dense) Kind() Kind { return KindDense }

// OutputShape returns (Size).
func (d Dense) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	if d.Size <= 0 {
		return nil, &ParamError{Position: noPosition, Layer: d, Param: "size", Value: d.Size, Msg: "must be positive"}
	}
	if d.In < 0 {
		return nil, &ParamError{Position: noPosition, Layer: d, Param: "in", Value: d.In, Msg: "must not be negative"}
	}
	if d.In > 0 && in.NumElements() != d.In {
		return nil, &ShapeChainError{Position: noPosition, Layer: d, Got: in.Clone(), Want: tensor.Shape{d.In}}
	}
	return tensor.Shape{d.Size}, nil
}

// WeightShapes returns (Size, in elements) and (Size).
func (d Dense) WeightShapes(in tensor.Shape) []tensor.Shape {
	return []tensor.Shape{{d.Size, in.NumElements()}, {d.Size}}
}

func (d Dense) String() string {
	if d.In > 0 {
		return fmt.Sprintf("dense(%d, in=%d)", d.Size, d.In)
	}
	return fmt.Sprintf("dense(%d)", d.Size)
}

func (Dense) descriptor() {}

// Conv is a 2-D convolution with square kernels and OutChannels filters.
//
// Inputs are interpreted by rank: (n) is a single channel of length n
// convolved along its only axis, (H, W) is a single-channel image and
// (C, H, W) is a C-channel image. Each convolved axis has output size
// floor((in + 2*Padding - Kernel)/Stride) + 1.
type Conv struct {
	OutChannels int
	Kernel      int
	Stride      int
	Padding     int
}

// ConvGeometry is a Conv resolved against a concrete input shape.
type ConvGeometry struct {
	InRank                        int
	InChannels, InHeight, InWidth int
	OutChannels                   int
	KernelH, KernelW              int
	Stride                        int
	PadH, PadW                    int
	OutHeight, OutWidth           int
}

// OutputShape returns the convolution's output shape as (OC, out) for a
// rank-1 input and (OC, outH, outW) otherwise.
func (c Conv) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	g, err := c.Geometry(in)
	if err != nil {
		return nil, err
	}
	return g.OutputShape(), nil
}

// Geometry resolves c against the input shape.
func (c Conv) Geometry(in tensor.Shape) (ConvGeometry, error) {
	if err := c.validate(); err != nil {
		return ConvGeometry{}, err
	}

	g := ConvGeometry{
		InChannels:  1,
		InHeight:    1,
		OutChannels: c.OutChannels,
		KernelH:     c.Kernel,
		KernelW:     c.Kernel,
		Stride:      c.Stride,
		PadH:        c.Padding,
		PadW:        c.Padding,
		InRank:      len(in),
	}
	switch len(in) {
	case 1:
		g.InWidth = in[0]
		g.KernelH, g.PadH = 1, 0
	case 2:
		g.InHeight, g.InWidth = in[0], in[1]
	case 3:
		g.InChannels, g.InHeight, g.InWidth = in[0], in[1], in[2]
	default:
		return ConvGeometry{}, &ParamError{
			Position: noPosition, Layer: c, Param: "input shape", Value: in,
			Msg: "convolution accepts rank 1, 2 or 3 inputs",
		}
	}

	g.OutHeight = ConvOutputSize(g.InHeight, g.KernelH, g.Stride, g.PadH)
	g.OutWidth = ConvOutputSize(g.InWidth, g.KernelW, g.Stride, g.PadW)
	if g.OutHeight <= 0 {
		return ConvGeometry{}, &ConvOutputNonPositiveError{
			Position: noPosition, Layer: c, Input: in.Clone(), Axis: "height", Size: g.OutHeight,
		}
	}
	if g.OutWidth <= 0 {
		return ConvGeometry{}, &ConvOutputNonPositiveError{
			Position: noPosition, Layer: c, Input: in.Clone(), Axis: "width", Size: g.OutWidth,
		}
	}
	return g, nil
}

func (c Conv) validate() error {
	check := func(name string, v int, ok bool, msg string) error {
		if ok {
			return nil
		}
		return &ParamError{Position: noPosition, Layer: c, Param: name, Value: v, Msg: msg}
	}
	if err := check("out_channels", c.OutChannels, c.OutChannels > 0, "must be positive"); err != nil {
		return err
	}
	if err := check("kernel", c.Kernel, c.Kernel > 0, "must be positive"); err != nil {
		return err
	}
	if err := check("stride", c.Stride, c.Stride > 0, "must be positive"); err != nil {
		return err
	}
	return check("padding", c.Padding, c.Padding >= 0, "must not be negative")
}

// ConvOutputSize is floor((in + 2*padding - kernel)/stride) + 1.
//
// The floor is taken toward negative infinity so that kernels larger than
// the padded input always yield a non-positive size.
func ConvOutputSize(in, kernel, stride, padding int) int {
	n := in + 2*padding - kernel
	q := n / stride
	if n%stride != 0 && n < 0 {
		q--
	}
	return q + 1
}

// Kind returns KindConv.
func (Conv) Kind() Kind { return KindConv }

// WeightShapes returns the filter bank (OC, C, kh, kw) and bias (OC).
func (c Conv) WeightShapes(in tensor.Shape) []tensor.Shape {
	g, err := c.Geometry(in)
	if err != nil {
		return nil
	}
	return []tensor.Shape{{g.OutChannels, g.InChannels, g.KernelH, g.KernelW}, {g.OutChannels}}
}

func (c Conv) String() string {
	return fmt.Sprintf("conv(%d,%d,%d,%d)", c.OutChannels, c.Kernel, c.Stride, c.Padding)
}

func (Conv) descriptor() {}

// OutputShape returns the geometry's output shape.
func (g ConvGeometry) OutputShape() tensor.Shape {
	if g.InRank == 1 {
		return tensor.Shape{g.OutChannels, g.OutWidth}
	}
	return tensor.Shape{g.OutChannels, g.OutHeight, g.OutWidth}
}

// ReLU is the shape-preserving max(0, x) activation.
type ReLU struct{}

// Kind returns KindReLU.
func (ReLU) Kind() Kind { return KindReLU }

// OutputShape returns in unchanged.
func (ReLU) OutputShape(in tensor.Shape) (tensor.Shape, error) { return in.Clone(), nil }

// WeightShapes returns nil.
func (ReLU) WeightShapes(tensor.Shape) []tensor.Shape { return nil }

func (ReLU) String() string { return "relu" }

func (ReLU) descriptor() {}

// Sigmoid is the shape-preserving logistic activation.
type Sigmoid struct{}

// Kind returns KindSigmoid.
func (Sigmoid) Kind() Kind { return KindSigmoid }

// OutputShape returns in unchanged.
func (Sigmoid) OutputShape(in tensor.Shape) (tensor.Shape, error) { return in.Clone(), nil }

// WeightShapes returns nil.
func (Sigmoid) WeightShapes(tensor.Shape) []tensor.Shape { return nil }

func (Sigmoid) String() string { return "sigmoid" }

func (Sigmoid) descriptor() {}
