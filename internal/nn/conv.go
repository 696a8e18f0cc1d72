package nn

import (
	"fmt"

	"github.com/born-ml/typednet/internal/netdef"
	"github.com/born-ml/typednet/internal/tensor"
)

// ConvConfig fixes the geometry of a convolution.
//
// InRank is the rank of the input as the network sees it: 1 for a
// single-channel 1-D convolution over InWidth elements (InChannels 1,
// InHeight 1, KernelH 1, PadH 0), 2 for a single-channel image and 3 for a
// multi-channel image. A rank-1 input produces (OC, outW).
type ConvConfig struct {
	InRank                        int
	InChannels, InHeight, InWidth int
	OutChannels                   int
	KernelH, KernelW              int
	Stride                        int
	PadH, PadW                    int
}

// OutHeight returns floor((InHeight + 2*PadH - KernelH)/Stride) + 1.
func (c ConvConfig) OutHeight() int {
	return netdef.ConvOutputSize(c.InHeight, c.KernelH, c.Stride, c.PadH)
}

// OutWidth returns floor((InWidth + 2*PadW - KernelW)/Stride) + 1.
func (c ConvConfig) OutWidth() int {
	return netdef.ConvOutputSize(c.InWidth, c.KernelW, c.Stride, c.PadW)
}

// InShape returns (W), (H, W) or (C, H, W) according to InRank.
func (c ConvConfig) InShape() tensor.Shape {
	switch c.InRank {
	case 1:
		return tensor.Shape{c.InWidth}
	case 2:
		return tensor.Shape{c.InHeight, c.InWidth}
	default:
		return tensor.Shape{c.InChannels, c.InHeight, c.InWidth}
	}
}

// OutShape returns (OC, outW) for 1-D convolutions and (OC, outH, outW)
// otherwise.
func (c ConvConfig) OutShape() tensor.Shape {
	if c.InRank == 1 {
		return tensor.Shape{c.OutChannels, c.OutWidth()}
	}
	return tensor.Shape{c.OutChannels, c.OutHeight(), c.OutWidth()}
}

func (c ConvConfig) validate() error {
	switch {
	case c.InChannels <= 0 || c.InHeight <= 0 || c.InWidth <= 0:
		return fmt.Errorf("invalid input %dx%dx%d", c.InChannels, c.InHeight, c.InWidth)
	case c.OutChannels <= 0 || c.KernelH <= 0 || c.KernelW <= 0 || c.Stride <= 0:
		return fmt.Errorf("invalid parameters out=%d kernel=%dx%d stride=%d", c.OutChannels, c.KernelH, c.KernelW, c.Stride)
	case c.PadH < 0 || c.PadW < 0:
		return fmt.Errorf("invalid padding %dx%d", c.PadH, c.PadW)
	case c.OutHeight() <= 0 || c.OutWidth() <= 0:
		return fmt.Errorf("output size %dx%d is not positive", c.OutHeight(), c.OutWidth())
	}
	return nil
}

// Conv implements a 2-D convolution using im2col + Gemm.
//
// Forward unrolls every receptive field of the input into a column buffer
// of shape [C*kh*kw, outH*outW] allocated at construction, then computes
// out = W · cols + b with the filter bank viewed as [OC, C*kh*kw].
type Conv[T tensor.Float] struct {
	cfg    ConvConfig
	weight *tensor.Tensor[T] // [OC, C, kh, kw]
	bias   *tensor.Tensor[T] // [OC]
	cols   []T
	params []*Parameter[T]
}

// NewConv creates a convolution layer.
// Panics if cfg describes an empty or non-positive output.
func NewConv[T tensor.Float](cfg ConvConfig, src Source) *Conv[T] {
	if err := cfg.validate(); err != nil {
		panic(fmt.Sprintf("nn.NewConv: %v", err))
	}
	patch := cfg.InChannels * cfg.KernelH * cfg.KernelW
	c := &Conv[T]{
		cfg:    cfg,
		weight: tensor.New[T](cfg.OutChannels, cfg.InChannels, cfg.KernelH, cfg.KernelW),
		bias:   tensor.New[T](cfg.OutChannels),
		cols:   make([]T, patch*cfg.OutHeight()*cfg.OutWidth()),
	}
	Xavier(c.weight.Data(), patch, cfg.OutChannels*cfg.KernelH*cfg.KernelW, src)
	c.params = []*Parameter[T]{
		NewParameter("weight", c.weight.View()),
		NewParameter("bias", c.bias.View()),
	}
	return c
}

// Forward computes the convolution of in into out.
func (c *Conv[T]) Forward(in, out []T) {
	cfg := c.cfg
	spatial := cfg.OutHeight() * cfg.OutWidth()
	patch := cfg.InChannels * cfg.KernelH * cfg.KernelW

	im2col(c.cols, in, cfg)

	bias := c.bias.Data()
	for oc := 0; oc < cfg.OutChannels; oc++ {
		row := out[oc*spatial : (oc+1)*spatial]
		for i := range row {
			row[i] = bias[oc]
		}
	}
	tensor.Gemm(cfg.OutChannels, spatial, patch, c.weight.Data(), c.cols, 1, out)
}

// im2col writes cols[(c*kh*kw + i*kw + j)*outH*outW + y*outW + x], the input
// element under kernel tap (i, j) of channel c for output position (y, x).
// Taps that fall into the padding read as zero.
func im2col[T tensor.Float](cols, in []T, cfg ConvConfig) {
	outH, outW := cfg.OutHeight(), cfg.OutWidth()
	H, W := cfg.InHeight, cfg.InWidth
	idx := 0
	for ch := 0; ch < cfg.InChannels; ch++ {
		plane := in[ch*H*W : (ch+1)*H*W]
		for kh := 0; kh < cfg.KernelH; kh++ {
			for kw := 0; kw < cfg.KernelW; kw++ {
				for y := 0; y < outH; y++ {
					h := y*cfg.Stride - cfg.PadH + kh
					for x := 0; x < outW; x++ {
						w := x*cfg.Stride - cfg.PadW + kw
						if h >= 0 && h < H && w >= 0 && w < W {
							cols[idx] = plane[h*W+w]
						} else {
							cols[idx] = 0
						}
						idx++
					}
				}
			}
		}
	}
}

// Config returns the convolution's geometry.
func (c *Conv[T]) Config() ConvConfig { return c.cfg }

// InShape returns the input shape.
func (c *Conv[T]) InShape() tensor.Shape { return c.cfg.InShape() }

// OutShape returns the output shape.
func (c *Conv[T]) OutShape() tensor.Shape { return c.cfg.OutShape() }

// Weight returns the filter bank.
func (c *Conv[T]) Weight() *tensor.Tensor[T] { return c.weight }

// Bias returns the per-channel bias.
func (c *Conv[T]) Bias() *tensor.Tensor[T] { return c.bias }

// Parameters returns [weight, bias].
func (c *Conv[T]) Parameters() []*Parameter[T] { return c.params }

func (c *Conv[T]) String() string {
	return fmt.Sprintf("Conv<%s,%s,k%d,s%d,p%d>",
		c.cfg.InShape().Ident(), c.cfg.OutShape().Ident(), c.cfg.KernelW, c.cfg.Stride, c.cfg.PadW)
}
