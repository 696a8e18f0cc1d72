package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/typednet/internal/tensor"
)

// ReLU applies the element-wise function out[i] = max(0, in[i]) to the
// first len(out) elements of in.
func ReLU[T tensor.Float](in, out []T) {
	in = in[:len(out)]
	for i, v := range in {
		if v > 0 {
			out[i] = v
		} else {
			out[i] = 0
		}
	}
}

// Sigmoid applies the element-wise logistic function
// out[i] = 1 / (1 + exp(-in[i])) to the first len(out) elements of in.
func Sigmoid[T tensor.Float](in, out []T) {
	in = in[:len(out)]
	for i, v := range in {
		x := float64(v)
		// Evaluate on the side where exp cannot overflow.
		if x >= 0 {
			out[i] = T(1 / (1 + math.Exp(-x)))
		} else {
			e := math.Exp(x)
			out[i] = T(e / (1 + e))
		}
	}
}

// Activation is a shape-preserving element-wise layer.
//
// Example:
//
//	relu := nn.NewReLU[float32](tensor.Shape{128})
//	relu.Forward(in, out)  // All negative values become 0
type Activation[T tensor.Float] struct {
	name  string
	shape tensor.Shape
	fn    func(in, out []T)
	size  int
}

// NewReLU creates a ReLU layer over the given shape.
func NewReLU[T tensor.Float](shape tensor.Shape) *Activation[T] {
	return &Activation[T]{name: "ReLU", shape: shape.Clone(), fn: ReLU[T], size: shape.NumElements()}
}

// NewSigmoid creates a Sigmoid layer over the given shape.
func NewSigmoid[T tensor.Float](shape tensor.Shape) *Activation[T] {
	return &Activation[T]{name: "Sigmoid", shape: shape.Clone(), fn: Sigmoid[T], size: shape.NumElements()}
}

// Forward applies the activation.
func (a *Activation[T]) Forward(in, out []T) {
	a.fn(in, out[:a.size])
}

// InShape returns the activation's shape.
func (a *Activation[T]) InShape() tensor.Shape { return a.shape }

// OutShape returns the activation's shape.
func (a *Activation[T]) OutShape() tensor.Shape { return a.shape }

// Parameters returns nil (activations have no trainable parameters).
func (a *Activation[T]) Parameters() []*Parameter[T] { return nil }

func (a *Activation[T]) String() string {
	return fmt.Sprintf("%s<%s>", a.name, a.shape.Ident())
}
