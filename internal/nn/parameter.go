package nn

import (
	"github.com/born-ml/typednet/internal/tensor"
)

// Parameter is a named view over storage owned by a layer.
//
// Parameters are how training code and checkpoints reach a layer's weights
// and biases: writing through the view mutates the layer. The parameter
// never owns its storage and is valid for the lifetime of its layer.
//
// Example:
//
//	for _, p := range net.Parameters() {
//	    fmt.Println(p.Name(), p.Shape()) // "0.weight (128,784)"
//	}
type Parameter[T tensor.Float] struct {
	name string
	view tensor.View[T]
}

// NewParameter creates a parameter named name over v.
func NewParameter[T tensor.Float](name string, v tensor.View[T]) *Parameter[T] {
	return &Parameter[T]{name: name, view: v}
}

// Name returns the parameter name.
func (p *Parameter[T]) Name() string {
	return p.name
}

// View returns the parameter's view.
func (p *Parameter[T]) View() tensor.View[T] {
	return p.view
}

// Shape returns the parameter's shape.
func (p *Parameter[T]) Shape() tensor.Shape {
	return p.view.Shape()
}

// Data returns the parameter's elements (zero-copy).
func (p *Parameter[T]) Data() []T {
	return p.view.Data()
}

// WithPrefix returns params renamed to "<prefix>.<name>".
// The returned parameters share storage with params.
func WithPrefix[T tensor.Float](prefix string, params []*Parameter[T]) []*Parameter[T] {
	out := make([]*Parameter[T], len(params))
	for i, p := range params {
		out[i] = &Parameter[T]{name: prefix + "." + p.name, view: p.view}
	}
	return out
}
