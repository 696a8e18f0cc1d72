// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package netdef describes networks as ordered layer sequences and checks
// that their shapes chain.
//
// Definitions come from Go values, from the arrow syntax
//
//	input(1,28,28) -> conv(8,3) -> relu -> dense(10) -> sigmoid
//
// or from a YAML file holding several networks. Resolve computes every
// layer's input and output shape and rejects the first layer whose shapes
// do not fit, so a network that resolves can be planned and generated
// without further checks.
package netdef

import (
	"io"

	"github.com/born-ml/typednet/internal/netdef"
	"github.com/born-ml/typednet/internal/plan"
)

// Layer descriptors

// Layer is a declarative layer descriptor: Dense, Conv, ReLU or Sigmoid.
type Layer = netdef.Layer

// Kind identifies a layer descriptor.
type Kind = netdef.Kind

// Layer kinds.
const (
	KindDense   Kind = netdef.KindDense
	KindConv    Kind = netdef.KindConv
	KindReLU    Kind = netdef.KindReLU
	KindSigmoid Kind = netdef.KindSigmoid
)

// Dense declares a fully connected layer with Size outputs. A non-zero In
// must equal the incoming element count.
type Dense = netdef.Dense

// Conv declares a square-kernel convolution.
type Conv = netdef.Conv

// ConvGeometry is a convolution resolved against its input shape.
type ConvGeometry = netdef.ConvGeometry

// ReLU declares max(0, x) over the incoming shape.
type ReLU = netdef.ReLU

// Sigmoid declares the logistic function over the incoming shape.
type Sigmoid = netdef.Sigmoid

// ConvOutputSize returns floor((in + 2*padding - kernel) / stride) + 1.
func ConvOutputSize(in, kernel, stride, padding int) int {
	return netdef.ConvOutputSize(in, kernel, stride, padding)
}

// Definitions and resolution

// Definition is an unresolved network.
type Definition = netdef.Definition

// Network is a resolved network: every layer with its input and output shape.
type Network = netdef.Network

// Resolved is one layer of a Network.
type Resolved = netdef.Resolved

// Resolve checks def and computes every layer's shapes.
//
// Example:
//
//	net, err := netdef.Resolve(netdef.Definition{
//	    Name:   "MNIST",
//	    Input:  tensor.Shape{784},
//	    Layers: []netdef.Layer{netdef.Dense{Size: 128}, netdef.ReLU{}, netdef.Dense{Size: 10}},
//	})
func Resolve(def Definition) (*Network, error) {
	return netdef.Resolve(def)
}

// ParseDSL parses a network in the arrow syntax.
func ParseDSL(name, src string) (Definition, error) {
	return netdef.ParseDSL(name, src)
}

// File is a parsed YAML definition file.
type File = netdef.File

// LoadFile reads and parses a YAML definition file.
func LoadFile(path string) (*File, error) {
	return netdef.LoadFile(path)
}

// ParseFile parses a YAML definition file from r.
func ParseFile(r io.Reader) (*File, error) {
	return netdef.ParseFile(r)
}

// Plans

// Plan assigns every layer of a network a source and destination buffer.
type Plan = plan.Plan

// NewPlan plans a resolved network.
func NewPlan(net *Network) *Plan {
	return plan.New(net)
}

// Errors

// Sentinel errors, matched with errors.Is.
var (
	ErrShapeChain             = netdef.ErrShapeChain
	ErrConvOutputNonPositive  = netdef.ErrConvOutputNonPositive
	ErrInvalidParam           = netdef.ErrInvalidParam
	ErrNoLayers               = netdef.ErrNoLayers
	ErrInvalidName            = netdef.ErrInvalidName
	ErrDuplicateName          = netdef.ErrDuplicateName
	ErrUnsupportedElementType = netdef.ErrUnsupportedElementType
)

// Position locates a layer by index and, for parsed definitions, line.
type Position = netdef.Position

// ShapeChainError reports a layer whose declared input does not match the
// shape it receives.
type ShapeChainError = netdef.ShapeChainError

// ConvOutputNonPositiveError reports a convolution whose output is empty.
type ConvOutputNonPositiveError = netdef.ConvOutputNonPositiveError

// ParamError reports an invalid layer parameter.
type ParamError = netdef.ParamError

// SyntaxError reports malformed definition text.
type SyntaxError = netdef.SyntaxError
