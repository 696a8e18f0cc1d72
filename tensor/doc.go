// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the storage types of the typednet framework.
//
// # Overview
//
// A Tensor owns a contiguous row-major slice tagged with a Shape. A View is a
// value that borrows storage and carries its own shape, so one buffer can be
// seen as (784) by one layer and (1,28,28) by the next:
//
//	buf := make([]float32, 784)
//	flat := tensor.MustViewOf(buf, tensor.Shape{784})
//	image, err := flat.ViewAs(tensor.Shape{1, 28, 28})
//
// Generated networks mostly work on fixed-size arrays and reach this package
// only for Output views. It is also usable on its own.
//
// # Errors
//
// At and Set panic with *IndexError for indices outside the shape, as slice
// indexing does. Get returns the same error instead. Operations on operands
// of incompatible shapes return *ShapeError, which matches ErrShapeMismatch
// under errors.Is.
package tensor
