// Package nn implements the runtime layers of typednet networks.
//
// This package provides the kernels that generated network types call:
//   - Layer interface: a layer with fixed input and output shapes
//   - Parameter: a named view over weights a layer owns
//   - Dense, Conv: parameterised layers, initialised from a Source
//   - ReLU, Sigmoid: element-wise activations
//   - Network: the interpreted counterpart of a generated network
//
// Layers never allocate in Forward and never validate their arguments:
// shapes are fixed when the layer is built, and generated code only ever
// passes buffers of exactly those sizes.
package nn

import (
	"github.com/born-ml/typednet/internal/tensor"
)

// Layer is a runtime layer whose shapes are fixed at construction.
//
// Example:
//
//	src := rand.New(rand.NewSource(1))
//	layer := nn.NewDense[float32](784, 128, src)
//	layer.Forward(in, out) // len(in) == 784, len(out) == 128
type Layer[T tensor.Float] interface {
	// Forward reads InShape().NumElements() elements from in and writes
	// OutShape().NumElements() elements to out. in and out must not overlap.
	Forward(in, out []T)

	InShape() tensor.Shape
	OutShape() tensor.Shape

	// Parameters returns the layer's weights, or nil for layers without any.
	Parameters() []*Parameter[T]

	String() string
}
