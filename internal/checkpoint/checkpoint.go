// Package checkpoint saves and restores network parameters.
//
// A checkpoint is bound to the signature of the network it was taken from,
// so weights can only be loaded into a network with the same resolved
// layers. The file layout is:
//
//	[4 bytes: Magic "TNCK"]
//	[4 bytes: Version (uint32 LE)]
//	[8 bytes: Payload size (uint64 LE)]
//	[Payload: protobuf wire encoding]
//	[32 bytes: SHA-256 of the payload]
//
// The payload holds a random checkpoint ID, the network signature and one
// record per parameter with its name, dimensions, element type and
// little-endian data.
//
// Example usage:
//
//	net := mnist.NewMNIST(rand.New(rand.NewSource(1)))
//	if _, err := checkpoint.SaveFile("mnist.tnck", mnist.MNISTSignature, net.Parameters()); err != nil {
//	    log.Fatal(err)
//	}
//
//	restored := mnist.NewMNIST(nil)
//	if _, err := checkpoint.LoadFile("mnist.tnck", mnist.MNISTSignature, restored.Parameters()); err != nil {
//	    log.Fatal(err)
//	}
package checkpoint

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/born-ml/typednet/internal/nn"
	"github.com/born-ml/typednet/internal/tensor"
)

// Save writes params to w under signature and returns the new checkpoint's ID.
func Save[T tensor.Float](w io.Writer, signature string, params []*nn.Parameter[T]) (uuid.UUID, error) {
	if len(params) > MaxParams {
		return uuid.Nil, fmt.Errorf("too many parameters: %d, max %d", len(params), MaxParams)
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to generate checkpoint id: %w", err)
	}

	dtype := tensor.DataTypeOf[T]()
	records := make([]record, len(params))
	for i, p := range params {
		if len(p.Name()) > MaxNameLen {
			return uuid.Nil, fmt.Errorf("parameter %d: name longer than %d bytes", i, MaxNameLen)
		}
		records[i] = record{
			ParamInfo: ParamInfo{Name: p.Name(), Shape: p.Shape(), DType: dtype},
			data:      encodeData(p.Data()),
		}
	}
	payload := appendPayload(nil, id, signature, records)
	sum := sha256.Sum256(payload)

	var header [headerSize]byte
	copy(header[:4], Magic)
	binary.LittleEndian.PutUint32(header[4:8], Version)
	binary.LittleEndian.PutUint64(header[8:16], uint64(len(payload)))

	for _, chunk := range [][]byte{header[:], payload, sum[:]} {
		if _, err := w.Write(chunk); err != nil {
			return uuid.Nil, fmt.Errorf("failed to write checkpoint: %w", err)
		}
	}
	return id, nil
}

// Load reads a checkpoint from r and copies its data into params.
//
// The stored signature must equal signature, and the stored parameters must
// match params one for one in name, shape and element type. Nothing is
// copied unless every check passes.
func Load[T tensor.Float](r io.Reader, signature string, params []*nn.Parameter[T]) (*Info, error) {
	info, records, err := read(r)
	if err != nil {
		return nil, err
	}
	if info.Signature != signature {
		return nil, fmt.Errorf("%w: checkpoint has %q, network is %q", ErrSignatureMismatch, info.Signature, signature)
	}
	if len(records) != len(params) {
		return nil, &MismatchError{
			Param:   "count",
			Details: fmt.Sprintf("checkpoint has %d parameters, network has %d", len(records), len(params)),
		}
	}

	dtype := tensor.DataTypeOf[T]()
	for i, rec := range records {
		p := params[i]
		switch {
		case rec.Name != p.Name():
			return nil, &MismatchError{
				Param:   fmt.Sprint(i),
				Details: fmt.Sprintf("checkpoint has %q, network has %q", rec.Name, p.Name()),
			}
		case !rec.Shape.Equal(p.Shape()):
			return nil, &MismatchError{
				Param:   rec.Name,
				Details: fmt.Sprintf("checkpoint shape %v, network shape %v", rec.Shape, p.Shape()),
			}
		case rec.DType != dtype:
			return nil, &MismatchError{
				Param:   rec.Name,
				Details: fmt.Sprintf("checkpoint holds %v, network uses %v", rec.DType, dtype),
			}
		}
	}

	for i, rec := range records {
		decodeData(params[i].Data(), rec.data)
	}
	return info, nil
}

// Inspect reads a checkpoint's metadata without loading it into a network.
func Inspect(r io.Reader) (*Info, error) {
	info, _, err := read(r)
	return info, err
}

func read(r io.Reader) (*Info, []record, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}
	if string(header[:4]) != Magic {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidMagic, header[:4])
	}
	if v := binary.LittleEndian.Uint32(header[4:8]); v != Version {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	size := binary.LittleEndian.Uint64(header[8:16])
	if size > MaxPayloadSize {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, size)
	}

	// CopyN grows the buffer only as data arrives.
	var payload bytes.Buffer
	if n, err := io.CopyN(&payload, r, int64(size)); err != nil {
		return nil, nil, fmt.Errorf("failed to read payload (%d of %d bytes): %w", n, size, err)
	}
	var stored [ChecksumSize]byte
	if _, err := io.ReadFull(r, stored[:]); err != nil {
		return nil, nil, fmt.Errorf("failed to read checksum: %w", err)
	}
	if sha256.Sum256(payload.Bytes()) != stored {
		return nil, nil, ErrChecksumMismatch
	}
	return decodePayload(payload.Bytes())
}

// SaveFile writes a checkpoint to path.
func SaveFile[T tensor.Float](path, signature string, params []*nn.Parameter[T]) (id uuid.UUID, err error) {
	//nolint:gosec // G304: checkpoint paths come from the caller
	f, err := os.Create(path)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	w := bufio.NewWriter(f)
	if id, err = Save(w, signature, params); err != nil {
		return uuid.Nil, err
	}
	if err := w.Flush(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return id, nil
}

// LoadFile loads the checkpoint at path into params.
func LoadFile[T tensor.Float](path, signature string, params []*nn.Parameter[T]) (*Info, error) {
	//nolint:gosec // G304: checkpoint paths come from the caller
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := Load(bufio.NewReader(f), signature, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return info, nil
}
