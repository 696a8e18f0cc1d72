// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/typednet/internal/nn"
	"github.com/born-ml/typednet/tensor"
)

// Layer is the runtime form of one resolved layer.
//
// Forward reads InShape().NumElements() elements of in and overwrites
// OutShape().NumElements() elements of out. in and out must not share
// storage. Generated layer types wrap a Layer behind fixed-size array
// pointers; the interpreted Network calls it directly.
type Layer[T tensor.Float] = nn.Layer[T]
