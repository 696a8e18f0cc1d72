package checkpoint

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/born-ml/typednet/internal/tensor"
)

// Format constants.
const (
	Magic        = "TNCK"
	Version      = 1
	ChecksumSize = 32 // SHA-256

	headerSize = 4 + 4 + 8 // magic, version, payload length
)

// Validation limits.
const (
	MaxPayloadSize = 4 << 30 // 4GiB
	MaxParams      = 100_000
	MaxNameLen     = 4096
)

// Payload field numbers.
const (
	fieldID        protowire.Number = 1
	fieldSignature protowire.Number = 2
	fieldParam     protowire.Number = 3
)

// Parameter field numbers.
const (
	paramName  protowire.Number = 1
	paramDims  protowire.Number = 2
	paramDType protowire.Number = 3
	paramData  protowire.Number = 4
)

// Info describes a checkpoint without its parameter data.
type Info struct {
	ID        uuid.UUID
	Signature string
	Params    []ParamInfo
}

// ParamInfo describes one stored parameter.
type ParamInfo struct {
	Name  string
	Shape tensor.Shape
	DType tensor.DataType
}

// record is a decoded parameter with its raw little-endian data.
type record struct {
	ParamInfo
	data []byte
}

func appendPayload(b []byte, id uuid.UUID, signature string, params []record) []byte {
	b = protowire.AppendTag(b, fieldID, protowire.BytesType)
	b = protowire.AppendBytes(b, id[:])
	b = protowire.AppendTag(b, fieldSignature, protowire.BytesType)
	b = protowire.AppendString(b, signature)
	for _, p := range params {
		b = protowire.AppendTag(b, fieldParam, protowire.BytesType)
		b = protowire.AppendBytes(b, appendParam(nil, p))
	}
	return b
}

func appendParam(b []byte, p record) []byte {
	b = protowire.AppendTag(b, paramName, protowire.BytesType)
	b = protowire.AppendString(b, p.Name)

	var dims []byte
	for _, d := range p.Shape {
		dims = protowire.AppendVarint(dims, uint64(d))
	}
	b = protowire.AppendTag(b, paramDims, protowire.BytesType)
	b = protowire.AppendBytes(b, dims)

	b = protowire.AppendTag(b, paramDType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.DType))
	b = protowire.AppendTag(b, paramData, protowire.BytesType)
	b = protowire.AppendBytes(b, p.data)
	return b
}

// consumeField reads one tag and returns the field's raw value for
// length-delimited fields or its varint otherwise.
func consumeField(b []byte) (num protowire.Number, value []byte, varint uint64, n int, err error) {
	num, typ, tagLen := protowire.ConsumeTag(b)
	if tagLen < 0 {
		return 0, nil, 0, 0, fmt.Errorf("%w: %w", ErrMalformedPayload, protowire.ParseError(tagLen))
	}
	var valLen int
	switch typ {
	case protowire.BytesType:
		value, valLen = protowire.ConsumeBytes(b[tagLen:])
	case protowire.VarintType:
		varint, valLen = protowire.ConsumeVarint(b[tagLen:])
	default:
		valLen = protowire.ConsumeFieldValue(num, typ, b[tagLen:])
	}
	if valLen < 0 {
		return 0, nil, 0, 0, fmt.Errorf("%w: field %d: %w", ErrMalformedPayload, num, protowire.ParseError(valLen))
	}
	return num, value, varint, tagLen + valLen, nil
}

func decodePayload(b []byte) (*Info, []record, error) {
	info := &Info{}
	var records []record
	for len(b) > 0 {
		num, value, _, n, err := consumeField(b)
		if err != nil {
			return nil, nil, err
		}
		b = b[n:]

		switch num {
		case fieldID:
			id, err := uuid.FromBytes(value)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: id: %w", ErrMalformedPayload, err)
			}
			info.ID = id
		case fieldSignature:
			info.Signature = string(value)
		case fieldParam:
			if len(records) >= MaxParams {
				return nil, nil, fmt.Errorf("%w: more than %d parameters", ErrMalformedPayload, MaxParams)
			}
			r, err := decodeParam(value)
			if err != nil {
				return nil, nil, fmt.Errorf("parameter %d: %w", len(records), err)
			}
			records = append(records, r)
			info.Params = append(info.Params, r.ParamInfo)
		}
	}
	return info, records, nil
}

func decodeParam(b []byte) (record, error) {
	var r record
	for len(b) > 0 {
		num, value, varint, n, err := consumeField(b)
		if err != nil {
			return r, err
		}
		b = b[n:]

		switch num {
		case paramName:
			if len(value) > MaxNameLen {
				return r, fmt.Errorf("%w: name longer than %d bytes", ErrMalformedPayload, MaxNameLen)
			}
			r.Name = string(value)
		case paramDims:
			for len(value) > 0 {
				d, n := protowire.ConsumeVarint(value)
				if n < 0 || d > math.MaxInt32 {
					return r, fmt.Errorf("%w: bad dimension", ErrMalformedPayload)
				}
				r.Shape = append(r.Shape, int(d))
				value = value[n:]
			}
		case paramDType:
			switch dt := tensor.DataType(varint); dt {
			case tensor.Float32, tensor.Float64:
				r.DType = dt
			default:
				return r, fmt.Errorf("%w: unknown dtype %d", ErrMalformedPayload, varint)
			}
		case paramData:
			r.data = value
		}
	}
	if want := r.Shape.NumElements() * r.DType.Size(); len(r.data) != want {
		return r, fmt.Errorf("%w: %q holds %d bytes, shape %v needs %d",
			ErrMalformedPayload, r.Name, len(r.data), r.Shape, want)
	}
	return r, nil
}

// encodeData converts elements to little-endian bytes.
func encodeData[T tensor.Float](data []T) []byte {
	switch d := any(data).(type) {
	case []float32:
		b := make([]byte, 0, 4*len(d))
		for _, v := range d {
			b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
		}
		return b
	case []float64:
		b := make([]byte, 0, 8*len(d))
		for _, v := range d {
			b = binary.LittleEndian.AppendUint64(b, math.Float64bits(v))
		}
		return b
	default:
		panic("unsupported element type")
	}
}

// decodeData fills dst from little-endian bytes of the same element type.
func decodeData[T tensor.Float](dst []T, b []byte) {
	switch d := any(dst).(type) {
	case []float32:
		for i := range d {
			d[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
		}
	case []float64:
		for i := range d {
			d[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
		}
	}
}
