package tensor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DType Tests

func TestDataTypeSize(t *testing.T) {
	assert.Equal(t, 4, Float32.Size())
	assert.Equal(t, 8, Float64.Size())
}

func TestParseDataType(t *testing.T) {
	tests := []struct {
		in      string
		want    DataType
		wantErr bool
	}{
		{"float32", Float32, false},
		{"", Float32, false},
		{"f64", Float64, false},
		{"float64", Float64, false},
		{"int8", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseDataType(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	assert.Equal(t, Float32, DataTypeOf[float32]())
	assert.Equal(t, Float64, DataTypeOf[float64]())
}

// Shape Tests

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		shape    Shape
		expected int
	}{
		{Shape{}, 1},
		{Shape{5}, 5},
		{Shape{3, 4}, 12},
		{Shape{2, 3, 4}, 24},
		{Shape{1, 1, 1}, 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.shape.NumElements(), "Shape%v", tt.shape)
	}
}

func TestShapeValidation(t *testing.T) {
	for _, s := range []Shape{{1}, {3, 4}, {2, 3, 4}} {
		assert.NoError(t, s.Validate(), "Shape%v", s)
	}
	for _, s := range []Shape{{}, {0}, {3, 0}, {-1}, {3, -4}} {
		assert.Error(t, s.Validate(), "Shape%v", s)
	}
}

func TestShapeEqual(t *testing.T) {
	assert.True(t, Shape{3, 4}.Equal(Shape{3, 4}))
	assert.False(t, Shape{3, 4}.Equal(Shape{4, 3}))
	assert.False(t, Shape{3}.Equal(Shape{3, 1}))
}

func TestComputeStrides(t *testing.T) {
	assert.Equal(t, []int{1}, Shape{4}.ComputeStrides())
	assert.Equal(t, []int{4, 1}, Shape{3, 4}.ComputeStrides())
	assert.Equal(t, []int{12, 4, 1}, Shape{2, 3, 4}.ComputeStrides())
}

func TestShapeOffset(t *testing.T) {
	s := Shape{2, 3, 4}

	off, err := s.Offset(1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 23, off)

	_, err = s.Offset(2, 0, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIndexOutOfBounds))

	var ie *IndexError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 0, ie.Dim)

	_, err = s.Offset(1, 2)
	assert.ErrorIs(t, err, ErrIndexOutOfBounds)
}

func TestShapeString(t *testing.T) {
	assert.Equal(t, "(1,28,28)", Shape{1, 28, 28}.String())
	assert.Equal(t, "1x28x28", Shape{1, 28, 28}.Ident())
	assert.Equal(t, "784", Shape{784}.Ident())
}

// Tensor Tests

func TestNew(t *testing.T) {
	x := New[float32](2, 3)
	assert.Equal(t, 6, x.Len())
	assert.Equal(t, Shape{2, 3}, x.Shape())
	assert.Equal(t, Float32, x.DType())
	for _, v := range x.Data() {
		assert.Zero(t, v)
	}
	assert.Equal(t, "Tensor[float32](2,3)", x.String())

	assert.Panics(t, func() { New[float64](0, 3) })
	assert.Panics(t, func() { New[float64]() })
}

func TestFromSlice(t *testing.T) {
	x, err := FromSlice([]float64{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	require.NoError(t, err)
	assert.Equal(t, 6.0, x.At(1, 2))

	_, err = FromSlice([]float64{1, 2, 3}, Shape{2, 3})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = FromSlice([]float64{}, Shape{0})
	assert.Error(t, err)
}

func TestTensorAtSet(t *testing.T) {
	x, err := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	require.NoError(t, err)

	tests := []struct {
		indices  []int
		expected float32
	}{
		{[]int{0, 0}, 1},
		{[]int{0, 2}, 3},
		{[]int{1, 0}, 4},
		{[]int{1, 2}, 6},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, x.At(tt.indices...), "At%v", tt.indices)
	}

	x.Set(3.14, 1, 1)
	assert.Equal(t, float32(3.14), x.At(1, 1))
}

func TestTensorOutOfBoundsPanics(t *testing.T) {
	x := New[float32](2, 3)

	assertIndexPanic := func(f func()) {
		t.Helper()
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected panic")
			err, ok := r.(error)
			require.True(t, ok, "panic value should be an error, got %T", r)
			assert.ErrorIs(t, err, ErrIndexOutOfBounds)
		}()
		f()
	}

	assertIndexPanic(func() { x.At(2, 0) })
	assertIndexPanic(func() { x.At(0, -1) })
	assertIndexPanic(func() { x.At(0) })
	assertIndexPanic(func() { x.Set(1, 0, 3) })

	_, err := x.Get(5, 5)
	assert.ErrorIs(t, err, ErrIndexOutOfBounds)
	v, err := x.Get(1, 2)
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestTensorCloneIsDeep(t *testing.T) {
	x := New[float64](3)
	x.Fill(2)
	c := x.Clone()
	c.Set(7, 0)

	assert.Equal(t, 2.0, x.At(0))
	assert.Equal(t, 7.0, c.At(0))
}
