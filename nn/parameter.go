// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/typednet/internal/nn"
	"github.com/born-ml/typednet/tensor"
)

// Parameter is a named view over a layer's weights or bias.
//
// Writing through the view mutates the layer, which is how checkpoints
// restore weights.
//
// Example:
//
//	for _, p := range net.Parameters() {
//	    fmt.Println(p.Name(), p.Shape()) // "0.weight (128,784)"
//	}
//
// Methods:
//
//	Name() string
//	    Returns the parameter name (e.g., "0.weight").
//
//	View() tensor.View[T]
//	    Returns the view over the layer's storage.
type Parameter[T tensor.Float] = nn.Parameter[T]

// NewParameter creates a parameter named name over v.
func NewParameter[T tensor.Float](name string, v tensor.View[T]) *Parameter[T] {
	return nn.NewParameter(name, v)
}

// WithPrefix returns params renamed to "<prefix>.<name>", sharing storage.
func WithPrefix[T tensor.Float](prefix string, params []*Parameter[T]) []*Parameter[T] {
	return nn.WithPrefix(prefix, params)
}
