// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package checkpoint saves and restores the parameters of typednet networks.
//
// A checkpoint records the signature of the network it was taken from and
// loads only into a network with the same signature, parameter names and
// shapes.
//
// Example:
//
//	id, err := checkpoint.SaveFile("mnist.tnck", mnist.MNISTSignature, net.Parameters())
//	...
//	info, err := checkpoint.LoadFile("mnist.tnck", mnist.MNISTSignature, other.Parameters())
package checkpoint

import (
	"io"

	"github.com/google/uuid"

	"github.com/born-ml/typednet/internal/checkpoint"
	"github.com/born-ml/typednet/nn"
	"github.com/born-ml/typednet/tensor"
)

// Info describes a stored checkpoint.
type Info = checkpoint.Info

// ParamInfo describes one stored parameter.
type ParamInfo = checkpoint.ParamInfo

// MismatchError reports a stored parameter that does not fit its target.
type MismatchError = checkpoint.MismatchError

// Errors.
var (
	ErrInvalidMagic       = checkpoint.ErrInvalidMagic
	ErrUnsupportedVersion = checkpoint.ErrUnsupportedVersion
	ErrChecksumMismatch   = checkpoint.ErrChecksumMismatch
	ErrPayloadTooLarge    = checkpoint.ErrPayloadTooLarge
	ErrMalformedPayload   = checkpoint.ErrMalformedPayload
	ErrSignatureMismatch  = checkpoint.ErrSignatureMismatch
	ErrParameterMismatch  = checkpoint.ErrParameterMismatch
)

// Save writes params to w under signature.
func Save[T tensor.Float](w io.Writer, signature string, params []*nn.Parameter[T]) (uuid.UUID, error) {
	return checkpoint.Save(w, signature, params)
}

// Load reads a checkpoint from r into params.
func Load[T tensor.Float](r io.Reader, signature string, params []*nn.Parameter[T]) (*Info, error) {
	return checkpoint.Load(r, signature, params)
}

// Inspect reads a checkpoint's metadata.
func Inspect(r io.Reader) (*Info, error) {
	return checkpoint.Inspect(r)
}

// SaveFile writes a checkpoint to path.
func SaveFile[T tensor.Float](path, signature string, params []*nn.Parameter[T]) (uuid.UUID, error) {
	return checkpoint.SaveFile(path, signature, params)
}

// LoadFile loads the checkpoint at path into params.
func LoadFile[T tensor.Float](path, signature string, params []*nn.Parameter[T]) (*Info, error) {
	return checkpoint.LoadFile(path, signature, params)
}
