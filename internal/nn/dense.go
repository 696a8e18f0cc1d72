package nn

import (
	"fmt"

	"github.com/born-ml/typednet/internal/tensor"
)

// Dense implements a fully connected layer.
//
// Performs the transformation: out = W · in + b
// where:
//   - in is the input flattened to in elements
//   - W is the weight matrix with shape [out, in]
//   - b is the bias vector with shape [out]
//
// Weights are initialized using Xavier/Glorot initialization.
// Biases are initialized to zeros.
type Dense[T tensor.Float] struct {
	in     int
	out    int
	weight *tensor.Matrix[T] // [out, in]
	bias   *tensor.Tensor[T] // [out]
	params []*Parameter[T]
}

// NewDense creates a dense layer from in to out elements.
// Panics if either size is not positive.
func NewDense[T tensor.Float](in, out int, src Source) *Dense[T] {
	d := &Dense[T]{
		in:     in,
		out:    out,
		weight: tensor.NewMatrix[T](out, in),
		bias:   tensor.New[T](out),
	}
	Xavier(d.weight.Data(), in, out, src)
	d.params = []*Parameter[T]{
		NewParameter("weight", d.weight.View()),
		NewParameter("bias", d.bias.View()),
	}
	return d
}

// Forward computes out = W·in + b.
func (d *Dense[T]) Forward(in, out []T) {
	copy(out[:d.out], d.bias.Data())
	tensor.Gemv(d.out, d.in, d.weight.Data(), in, 1, out)
}

// InShape returns (in).
func (d *Dense[T]) InShape() tensor.Shape { return tensor.Shape{d.in} }

// OutShape returns (out).
func (d *Dense[T]) OutShape() tensor.Shape { return tensor.Shape{d.out} }

// Weight returns the weight matrix.
func (d *Dense[T]) Weight() *tensor.Matrix[T] { return d.weight }

// Bias returns the bias vector.
func (d *Dense[T]) Bias() *tensor.Tensor[T] { return d.bias }

// Parameters returns [weight, bias].
func (d *Dense[T]) Parameters() []*Parameter[T] { return d.params }

func (d *Dense[T]) String() string {
	return fmt.Sprintf("Dense<%d,%d>", d.in, d.out)
}
