// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the runtime layers that typednet networks are built from.
//
// # Overview
//
// This package contains:
//   - Layers: Dense, Conv
//   - Activations: ReLU, Sigmoid (as functions and as layers)
//   - Utilities: Layer interface, Parameter, Xavier initialization
//   - Network: the interpreted form of a resolved network
//
// Code generated by shapegen embeds these layers in types whose Forward
// methods take fixed-size array pointers. The same layers can be driven at
// run time through Network, which generated code is tested against.
//
// # Basic Usage
//
//	import (
//	    "math/rand"
//
//	    "github.com/born-ml/typednet/netdef"
//	    "github.com/born-ml/typednet/nn"
//	)
//
//	func main() {
//	    def, _ := netdef.ParseDSL("MNIST", "input(784) -> dense(128) -> relu -> dense(10)")
//	    net, err := netdef.Resolve(def)
//	    if err != nil {
//	        log.Fatal(err) // shape errors are reported here, before any layer exists
//	    }
//	    m := nn.Compile[float32](net, rand.New(rand.NewSource(1)))
//	    scores := m.Forward(image) // 10 elements
//	}
//
// # Initialization
//
// Dense and Conv weights are drawn from an injected Source with Xavier
// uniform bounds. Biases start at zero. Two networks built from equal
// seeds have equal weights.
package nn
