package nn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/typednet/internal/netdef"
	"github.com/born-ml/typednet/internal/plan"
	"github.com/born-ml/typednet/internal/tensor"
)

func TestXavier(t *testing.T) {
	data := make([]float32, 1000)
	Xavier(data, 784, 128, rand.New(rand.NewSource(1)))

	bound := float32(math.Sqrt(6.0 / float64(784+128)))
	nonZero := 0
	for _, v := range data {
		assert.LessOrEqual(t, v, bound)
		assert.GreaterOrEqual(t, v, -bound)
		if v != 0 {
			nonZero++
		}
	}
	assert.Greater(t, nonZero, 990)

	zeros := make([]float64, 10)
	Xavier(zeros, 4, 4, nil)
	assert.Equal(t, make([]float64, 10), zeros)
}

func TestDenseForward(t *testing.T) {
	d := NewDense[float64](3, 2, nil)
	// W = [[1 2 3] [-1 0 1]], b = [0.5 -0.5]
	copy(d.Weight().Data(), []float64{1, 2, 3, -1, 0, 1})
	copy(d.Bias().Data(), []float64{0.5, -0.5})

	out := make([]float64, 2)
	d.Forward([]float64{1, 1, 2}, out)
	assert.Equal(t, []float64{9.5, 0.5}, out)

	// Forward overwrites rather than accumulates.
	d.Forward([]float64{1, 1, 2}, out)
	assert.Equal(t, []float64{9.5, 0.5}, out)

	assert.Equal(t, tensor.Shape{3}, d.InShape())
	assert.Equal(t, tensor.Shape{2}, d.OutShape())
	assert.Equal(t, "Dense<3,2>", d.String())

	params := d.Parameters()
	require.Len(t, params, 2)
	assert.Equal(t, "weight", params[0].Name())
	assert.Equal(t, tensor.Shape{2, 3}, params[0].Shape())
	assert.Equal(t, "bias", params[1].Name())

	// Parameters alias the layer's storage.
	params[1].Data()[0] = 0
	d.Forward([]float64{1, 1, 2}, out)
	assert.Equal(t, 9.0, out[0])
}

func TestActivations(t *testing.T) {
	out := make([]float32, 4)
	ReLU([]float32{-2, -0.5, 0, 3}, out)
	assert.Equal(t, []float32{0, 0, 0, 3}, out)

	sig := make([]float64, 3)
	Sigmoid([]float64{0, 1000, -1000}, sig)
	assert.InDelta(t, 0.5, sig[0], 1e-12)
	assert.InDelta(t, 1.0, sig[1], 1e-12)
	assert.InDelta(t, 0.0, sig[2], 1e-12)
	assert.False(t, math.IsNaN(sig[2]))

	// Inputs longer than the output are read only up to len(out).
	relu := NewReLU[float32](tensor.Shape{2, 2})
	buf := []float32{-1, 2, -3, 4, -5, 6}
	dst := make([]float32, 4)
	relu.Forward(buf, dst)
	assert.Equal(t, []float32{0, 2, 0, 4}, dst)
	assert.Equal(t, "ReLU<2x2>", relu.String())
	assert.Nil(t, relu.Parameters())
	assert.Equal(t, "Sigmoid<10>", NewSigmoid[float32](tensor.Shape{10}).String())
}

// naiveConv is a direct evaluation of the convolution sum.
func naiveConv(in, weight, bias []float64, cfg ConvConfig) []float64 {
	oh, ow := cfg.OutHeight(), cfg.OutWidth()
	H, W := cfg.InHeight, cfg.InWidth
	out := make([]float64, cfg.OutChannels*oh*ow)
	for oc := 0; oc < cfg.OutChannels; oc++ {
		for y := 0; y < oh; y++ {
			for x := 0; x < ow; x++ {
				s := bias[oc]
				for c := 0; c < cfg.InChannels; c++ {
					for i := 0; i < cfg.KernelH; i++ {
						for j := 0; j < cfg.KernelW; j++ {
							h := y*cfg.Stride - cfg.PadH + i
							w := x*cfg.Stride - cfg.PadW + j
							if h < 0 || h >= H || w < 0 || w >= W {
								continue
							}
							s += in[(c*H+h)*W+w] * weight[((oc*cfg.InChannels+c)*cfg.KernelH+i)*cfg.KernelW+j]
						}
					}
				}
				out[(oc*oh+y)*ow+x] = s
			}
		}
	}
	return out
}

func TestConvSmall(t *testing.T) {
	// 3x3 input, one 2x2 filter of ones: each output is a window sum.
	cfg := ConvConfig{InRank: 2, InChannels: 1, InHeight: 3, InWidth: 3, OutChannels: 1, KernelH: 2, KernelW: 2, Stride: 1}
	c := NewConv[float64](cfg, nil)
	c.Weight().Fill(1)

	out := make([]float64, 4)
	c.Forward([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8}, out)
	assert.Equal(t, []float64{8, 12, 20, 24}, out)
	assert.Equal(t, tensor.Shape{3, 3}, c.InShape())
	assert.Equal(t, tensor.Shape{1, 2, 2}, c.OutShape())
}

func TestConvMatchesNaive(t *testing.T) {
	configs := []ConvConfig{
		{InRank: 3, InChannels: 1, InHeight: 28, InWidth: 28, OutChannels: 4, KernelH: 3, KernelW: 3, Stride: 1},
		{InRank: 3, InChannels: 3, InHeight: 9, InWidth: 7, OutChannels: 5, KernelH: 3, KernelW: 3, Stride: 2, PadH: 1, PadW: 1},
		{InRank: 2, InChannels: 1, InHeight: 5, InWidth: 5, OutChannels: 2, KernelH: 5, KernelW: 5, Stride: 1, PadH: 2, PadW: 2},
		{InRank: 1, InChannels: 1, InHeight: 1, InWidth: 12, OutChannels: 3, KernelH: 1, KernelW: 4, Stride: 2, PadW: 1},
	}
	rng := rand.New(rand.NewSource(42))
	for _, cfg := range configs {
		c := NewConv[float64](cfg, rng)
		for i := range c.Bias().Data() {
			c.Bias().Data()[i] = rng.Float64()
		}
		in := make([]float64, cfg.InShape().NumElements())
		for i := range in {
			in[i] = rng.NormFloat64()
		}
		out := make([]float64, cfg.OutShape().NumElements())
		c.Forward(in, out)

		want := naiveConv(in, c.Weight().Data(), c.Bias().Data(), cfg)
		require.Len(t, out, len(want))
		for i := range want {
			assert.InDelta(t, want[i], out[i], 1e-9, "%v at %d", cfg, i)
		}
	}
}

func TestConvOutputShape28(t *testing.T) {
	c := NewConv[float32](ConvConfig{
		InRank: 3, InChannels: 1, InHeight: 28, InWidth: 28, OutChannels: 8, KernelH: 3, KernelW: 3, Stride: 1,
	}, nil)
	assert.Equal(t, tensor.Shape{8, 26, 26}, c.OutShape())
	assert.Equal(t, "Conv<1x28x28,8x26x26,k3,s1,p0>", c.String())
	assert.Equal(t, tensor.Shape{8, 1, 3, 3}, c.Parameters()[0].Shape())

	assert.Panics(t, func() {
		NewConv[float32](ConvConfig{InRank: 2, InChannels: 1, InHeight: 2, InWidth: 2, OutChannels: 1, KernelH: 3, KernelW: 3, Stride: 1}, nil)
	})
}

func TestConvOutputSizeFloors(t *testing.T) {
	// (3 - 4)/2 truncates to 0 but floors to -1, so the output width is 0.
	cfg := ConvConfig{InRank: 1, InChannels: 1, InHeight: 1, InWidth: 3, OutChannels: 1, KernelH: 1, KernelW: 4, Stride: 2}
	assert.Equal(t, 0, cfg.OutWidth())
	assert.Equal(t, netdef.ConvOutputSize(3, 4, 2, 0), cfg.OutWidth())
	assert.Panics(t, func() { NewConv[float32](cfg, nil) })

	cfg.InWidth, cfg.PadW = 5, 1
	assert.Equal(t, netdef.ConvOutputSize(5, 4, 2, 1), cfg.OutWidth())
	assert.Equal(t, tensor.Shape{1, 2}, NewConv[float32](cfg, nil).OutShape())
}

func resolve(t *testing.T, def netdef.Definition) *netdef.Network {
	t.Helper()
	net, err := netdef.Resolve(def)
	require.NoError(t, err)
	return net
}

func mnistNetwork(t *testing.T, seed int64) *Network[float32] {
	t.Helper()
	net := resolve(t, netdef.Definition{
		Name:   "MNIST",
		Input:  tensor.Shape{784},
		Layers: []netdef.Layer{netdef.Dense{Size: 128}, netdef.ReLU{}, netdef.Dense{Size: 10}},
	})
	return NewNetwork[float32](plan.New(net), rand.New(rand.NewSource(seed)))
}

func TestNetworkMNIST(t *testing.T) {
	n := mnistNetwork(t, 1)
	assert.Equal(t, tensor.Shape{784}, n.InputShape())
	assert.Equal(t, tensor.Shape{10}, n.OutputShape())
	assert.Equal(t, "MNIST[Dense<784,128> ReLU<128> Dense<128,10>]", n.String())

	in := make([]float32, 784)
	for i := range in {
		in[i] = float32(i%17) / 17
	}
	out := n.Forward(in)
	assert.Len(t, out, 10)
	assert.Equal(t, tensor.Shape{10}, n.Output().Shape())
	assert.Equal(t, out, n.Output().Data())

	nonZero := false
	for _, v := range out {
		nonZero = nonZero || v != 0
	}
	assert.True(t, nonZero, "random weights should produce a non-zero output")

	assert.Panics(t, func() { n.Forward(make([]float32, 783)) })
}

func TestNetworkForwardIdempotent(t *testing.T) {
	n := mnistNetwork(t, 3)
	in := make([]float32, 784)
	rng := rand.New(rand.NewSource(9))
	for i := range in {
		in[i] = rng.Float32()
	}

	first := append([]float32(nil), n.Forward(in)...)
	second := n.Forward(in)
	assert.Equal(t, first, second)
}

func TestNetworkSeedsAreReproducible(t *testing.T) {
	a, b := mnistNetwork(t, 5), mnistNetwork(t, 5)
	in := make([]float32, 784)
	in[100] = 1
	assert.Equal(t, a.Forward(in), b.Forward(in))

	c := mnistNetwork(t, 6)
	assert.NotEqual(t, a.Forward(in), c.Forward(in))
}

func TestNetworkParameters(t *testing.T) {
	n := mnistNetwork(t, 1)
	params := n.Parameters()

	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name()
	}
	assert.Equal(t, []string{"0.weight", "0.bias", "2.weight", "2.bias"}, names)
	assert.Equal(t, tensor.Shape{128, 784}, params[0].Shape())
	assert.Equal(t, tensor.Shape{10}, params[3].Shape())
}

func TestNetworkConvToDense(t *testing.T) {
	net := resolve(t, netdef.Definition{
		Name:  "ConvNet",
		Input: tensor.Shape{1, 28, 28},
		Layers: []netdef.Layer{
			netdef.Conv{OutChannels: 8, Kernel: 3, Stride: 1},
			netdef.ReLU{},
			netdef.Dense{Size: 10},
			netdef.Sigmoid{},
		},
	})
	p := plan.New(net)
	n := NewNetwork[float64](p, rand.New(rand.NewSource(2)))

	require.Len(t, n.Layers(), 4)
	assert.Equal(t, tensor.Shape{8, 26, 26}, n.Layers()[0].OutShape())
	assert.Equal(t, net.Signature(), n.String())
	for i, l := range n.Layers() {
		assert.Equal(t, net.Layers[i].Signature(), l.String())
	}

	out := n.Forward(make([]float64, 784))
	require.Len(t, out, 10)
	for _, v := range out {
		assert.Greater(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestNetworkBuffersRespectPlan(t *testing.T) {
	n := mnistNetwork(t, 1)
	for i, s := range n.steps {
		assert.False(t, sameStorage(s.in, s.out), "step %d reads and writes one buffer", i)
		assert.False(t, sameStorage(s.in, n.final), "step %d reads the final buffer", i)
		if i < len(n.steps)-1 {
			assert.False(t, sameStorage(s.out, n.final), "step %d writes the final buffer", i)
		}
	}
	last := n.steps[len(n.steps)-1]
	assert.True(t, sameStorage(last.out, n.final))
}

func sameStorage(a, b []float32) bool {
	return len(a) > 0 && len(b) > 0 && &a[0] == &b[0]
}
