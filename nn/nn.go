// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/typednet/internal/netdef"
	"github.com/born-ml/typednet/internal/nn"
	"github.com/born-ml/typednet/internal/plan"
	"github.com/born-ml/typednet/tensor"
)

// Source supplies uniform samples in [0, 1) for weight initialization.
// *math/rand.Rand satisfies it. A nil Source yields zero weights.
type Source = nn.Source

// Xavier fills dst from U(-a, a) with a = sqrt(6 / (fanIn + fanOut)).
func Xavier[T tensor.Float](dst []T, fanIn, fanOut int, src Source) {
	nn.Xavier(dst, fanIn, fanOut, src)
}

// Layers

// Dense is a fully connected layer computing W·x + b.
type Dense[T tensor.Float] = nn.Dense[T]

// NewDense creates a dense layer with Xavier-initialized weights and zero bias.
//
// Example:
//
//	layer := nn.NewDense[float32](784, 128, rand.New(rand.NewSource(1)))
func NewDense[T tensor.Float](in, out int, src Source) *Dense[T] {
	return nn.NewDense[T](in, out, src)
}

// ConvConfig is the complete geometry of a convolution.
type ConvConfig = nn.ConvConfig

// Conv is a square-kernel convolution over (C,H,W), (H,W) or (W) inputs.
type Conv[T tensor.Float] = nn.Conv[T]

// NewConv creates a convolution. It panics if cfg yields an empty output.
//
// Example:
//
//	conv := nn.NewConv[float32](nn.ConvConfig{
//	    InRank: 3, InChannels: 1, InHeight: 28, InWidth: 28,
//	    OutChannels: 8, KernelH: 3, KernelW: 3, Stride: 1,
//	}, src) // (1,28,28) -> (8,26,26)
func NewConv[T tensor.Float](cfg ConvConfig, src Source) *Conv[T] {
	return nn.NewConv[T](cfg, src)
}

// Activations

// ReLU writes max(0, in[i]) to out[i] for every i < len(out).
func ReLU[T tensor.Float](in, out []T) {
	nn.ReLU(in, out)
}

// Sigmoid writes 1/(1+exp(-in[i])) to out[i] for every i < len(out).
func Sigmoid[T tensor.Float](in, out []T) {
	nn.Sigmoid(in, out)
}

// Activation is an element-wise layer with a fixed shape.
type Activation[T tensor.Float] = nn.Activation[T]

// NewReLU creates a ReLU layer over shape.
func NewReLU[T tensor.Float](shape tensor.Shape) *Activation[T] {
	return nn.NewReLU[T](shape)
}

// NewSigmoid creates a sigmoid layer over shape.
func NewSigmoid[T tensor.Float](shape tensor.Shape) *Activation[T] {
	return nn.NewSigmoid[T](shape)
}

// Networks

// Network runs a resolved network without generated code.
type Network[T tensor.Float] = nn.Network[T]

// NewNetwork builds the layers and buffers of a plan.
func NewNetwork[T tensor.Float](p *plan.Plan, src Source) *Network[T] {
	return nn.NewNetwork[T](p, src)
}

// Compile plans net and builds it.
//
// Example:
//
//	def, _ := netdef.ParseDSL("MNIST", "input(784) -> dense(128) -> relu -> dense(10)")
//	net, err := netdef.Resolve(def)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	m := nn.Compile[float32](net, rand.New(rand.NewSource(1)))
//	out := m.Forward(image)
func Compile[T tensor.Float](net *netdef.Network, src Source) *Network[T] {
	return nn.NewNetwork[T](plan.New(net), src)
}

// Build constructs the runtime layers of net in order.
func Build[T tensor.Float](net *netdef.Network, src Source) []Layer[T] {
	return nn.Build[T](net, src)
}
