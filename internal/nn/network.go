package nn

import (
	"fmt"
	"strconv"

	"github.com/born-ml/typednet/internal/netdef"
	"github.com/born-ml/typednet/internal/plan"
	"github.com/born-ml/typednet/internal/tensor"
)

// Build constructs the runtime layers of a resolved network, drawing
// weights from src in layer order.
func Build[T tensor.Float](net *netdef.Network, src Source) []Layer[T] {
	layers := make([]Layer[T], len(net.Layers))
	for i, r := range net.Layers {
		switch l := r.Layer.(type) {
		case netdef.Dense:
			layers[i] = NewDense[T](r.In.NumElements(), l.Size, src)
		case netdef.Conv:
			layers[i] = NewConv[T](ConvConfigOf(r.Geometry()), src)
		case netdef.ReLU:
			layers[i] = NewReLU[T](r.In)
		case netdef.Sigmoid:
			layers[i] = NewSigmoid[T](r.In)
		default:
			panic(fmt.Sprintf("nn.Build: unsupported layer %T", r.Layer))
		}
	}
	return layers
}

// ConvConfigOf converts a resolved convolution geometry.
func ConvConfigOf(g netdef.ConvGeometry) ConvConfig {
	return ConvConfig{
		InRank:      g.InRank,
		InChannels:  g.InChannels,
		InHeight:    g.InHeight,
		InWidth:     g.InWidth,
		OutChannels: g.OutChannels,
		KernelH:     g.KernelH,
		KernelW:     g.KernelW,
		Stride:      g.Stride,
		PadH:        g.PadH,
		PadW:        g.PadW,
	}
}

// Network runs a planned network without generated code.
//
// It holds the same layers and the same buffer plan a generated type would,
// with shapes carried as runtime values that were validated once when the
// plan was made. Like a generated network, Forward reuses its buffers: the
// returned output is valid until the next call.
//
// Example:
//
//	net, _ := netdef.Resolve(def)
//	n := nn.NewNetwork[float32](plan.New(net), rand.New(rand.NewSource(1)))
//	out := n.Forward(input)
type Network[T tensor.Float] struct {
	plan    *plan.Plan
	layers  []Layer[T]
	scratch [][]T
	final   []T
	input   []T
	steps   []step[T]
	params  []*Parameter[T]
}

// step is a plan step bound to its layer and exactly sized buffer slices.
type step[T tensor.Float] struct {
	layer Layer[T]
	in    []T
	out   []T
}

// NewNetwork builds the layers and buffers of p.
func NewNetwork[T tensor.Float](p *plan.Plan, src Source) *Network[T] {
	n := &Network[T]{
		plan:    p,
		layers:  Build[T](p.Network, src),
		scratch: make([][]T, p.Scratch),
		final:   make([]T, p.FinalSize),
	}
	for i := range n.scratch {
		n.scratch[i] = make([]T, p.MaxSize)
	}
	buffer := func(id plan.BufferID, size int) []T {
		if id == plan.BufferFinal {
			return n.final[:size]
		}
		return n.scratch[id][:size]
	}

	n.input = buffer(p.Input, p.Network.Input.NumElements())
	n.steps = make([]step[T], len(p.Steps))
	for i, s := range p.Steps {
		n.steps[i] = step[T]{
			layer: n.layers[i],
			in:    buffer(s.Src, s.InSize()),
			out:   buffer(s.Dst, s.OutSize()),
		}
		n.params = append(n.params, WithPrefix(strconv.Itoa(i), n.layers[i].Parameters())...)
	}
	return n
}

// Forward runs the network on in and returns the final buffer.
// Panics if len(in) differs from the input size.
func (n *Network[T]) Forward(in []T) []T {
	if len(in) != len(n.input) {
		panic(fmt.Sprintf("nn.Network.Forward: %s expects %d input elements, got %d",
			n.plan.Network.Name, len(n.input), len(in)))
	}
	copy(n.input, in)
	for _, s := range n.steps {
		s.layer.Forward(s.in, s.out)
	}
	return n.final
}

// Output returns a view of the final buffer under the output shape.
func (n *Network[T]) Output() tensor.View[T] {
	return tensor.MustViewOf(n.final, n.plan.Network.Output)
}

// Layers returns the network's layers in order.
func (n *Network[T]) Layers() []Layer[T] { return n.layers }

// Parameters returns every layer's parameters named "<layer index>.<name>".
func (n *Network[T]) Parameters() []*Parameter[T] { return n.params }

// Plan returns the buffer plan the network runs.
func (n *Network[T]) Plan() *plan.Plan { return n.plan }

// InputShape returns the network's input shape.
func (n *Network[T]) InputShape() tensor.Shape { return n.plan.Network.Input }

// OutputShape returns the network's output shape.
func (n *Network[T]) OutputShape() tensor.Shape { return n.plan.Network.Output }

// String returns the network's signature.
func (n *Network[T]) String() string { return n.plan.Network.Signature() }
