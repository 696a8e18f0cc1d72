package netdef

import (
	"fmt"
	"go/token"
	"strings"

	"github.com/born-ml/typednet/internal/tensor"
)

// Definition is a network as written by the caller: a name, an input shape
// and an ordered list of layer descriptors.
//
// Lines optionally records the source line of each layer, and Line the line
// of the definition itself, when it was parsed from text.
type Definition struct {
	Name   string
	Input  tensor.Shape
	Layers []Layer
	Lines  []int
	Line   int
}

// Network is a validated definition. Every layer's input is the previous
// layer's output, starting at Input and ending at Output.
type Network struct {
	Name   string
	Input  tensor.Shape
	Output tensor.Shape
	Layers []Resolved
}

// Resolved is one layer of a validated network.
type Resolved struct {
	Index   int
	Layer   Layer
	In      tensor.Shape
	Out     tensor.Shape
	Weights []tensor.Shape
}

// Resolve validates that def's layers chain and returns the resolved network.
//
// It folds over the layers carrying the current shape, seeded at def.Input.
// The first layer that rejects its input aborts the whole resolution with an
// error identifying its position; no partial network is returned.
func Resolve(def Definition) (*Network, error) {
	if !token.IsIdentifier(def.Name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, def.Name)
	}
	if err := def.Input.Validate(); err != nil {
		return nil, fmt.Errorf("network %s: %w", def.Name, &ParamError{
			Position: noPosition, Param: "input shape", Value: def.Input, Msg: err.Error(),
		})
	}
	if len(def.Layers) == 0 {
		return nil, fmt.Errorf("network %s: %w", def.Name, ErrNoLayers)
	}

	net := &Network{
		Name:   def.Name,
		Input:  def.Input.Clone(),
		Layers: make([]Resolved, 0, len(def.Layers)),
	}
	current := net.Input
	for i, layer := range def.Layers {
		at := Position{Index: i, Line: def.lineOf(i)}
		if layer == nil {
			return nil, fmt.Errorf("network %s: %w", def.Name, &ParamError{
				Position: at, Param: "layer", Value: nil, Msg: "descriptor is nil",
			})
		}
		out, err := layer.OutputShape(current)
		if err != nil {
			return nil, fmt.Errorf("network %s: %w", def.Name, locate(err, at))
		}
		net.Layers = append(net.Layers, Resolved{
			Index:   i,
			Layer:   layer,
			In:      current,
			Out:     out,
			Weights: layer.WeightShapes(current),
		})
		current = out
	}
	net.Output = current
	return net, nil
}

func (d Definition) lineOf(i int) int {
	if i < len(d.Lines) {
		return d.Lines[i]
	}
	return 0
}

// MaxActivation returns the largest element count among the input, every
// intermediate activation and the output.
func (n *Network) MaxActivation() int {
	largest := n.Input.NumElements()
	for _, l := range n.Layers {
		largest = max(largest, l.Out.NumElements())
	}
	return largest
}

// ParamCount returns the total number of weight and bias elements.
func (n *Network) ParamCount() int {
	total := 0
	for _, l := range n.Layers {
		for _, w := range l.Weights {
			total += w.NumElements()
		}
	}
	return total
}

// Signature encodes the network's name and its resolved layer sequence,
// e.g. "MNIST[Dense<784,128> ReLU<128> Dense<128,10>]".
func (n *Network) Signature() string {
	parts := make([]string, len(n.Layers))
	for i, l := range n.Layers {
		parts[i] = l.Signature()
	}
	return n.Name + "[" + strings.Join(parts, " ") + "]"
}

// Signature encodes the layer kind with its resolved dimensions, e.g.
// "Dense<784,128>", "ReLU<128>" or "Conv<1x28x28,8x26x26,k3,s1,p0>".
func (r Resolved) Signature() string {
	switch l := r.Layer.(type) {
	case Dense:
		return fmt.Sprintf("Dense<%d,%d>", r.In.NumElements(), l.Size)
	case Conv:
		return fmt.Sprintf("Conv<%s,%s,k%d,s%d,p%d>", r.In.Ident(), r.Out.Ident(), l.Kernel, l.Stride, l.Padding)
	case ReLU:
		return fmt.Sprintf("ReLU<%s>", r.In.Ident())
	case Sigmoid:
		return fmt.Sprintf("Sigmoid<%s>", r.In.Ident())
	default:
		return r.Layer.String()
	}
}

// TypeName is the Go type name of the concrete layer, e.g. "Dense784To128",
// "ReLU128" or "Conv1x28x28To8x26x26K3S1P0". Two resolved layers share a
// type name exactly when they share kind, parameters and shapes.
func (r Resolved) TypeName() string {
	switch l := r.Layer.(type) {
	case Dense:
		return fmt.Sprintf("Dense%dTo%d", r.In.NumElements(), l.Size)
	case Conv:
		return fmt.Sprintf("Conv%sTo%sK%dS%dP%d", r.In.Ident(), r.Out.Ident(), l.Kernel, l.Stride, l.Padding)
	case ReLU:
		return "ReLU" + r.In.Ident()
	case Sigmoid:
		return "Sigmoid" + r.In.Ident()
	default:
		panic(fmt.Sprintf("netdef: unknown layer %T", r.Layer))
	}
}

// Geometry returns the resolved convolution geometry. It panics if the
// layer is not a Conv.
func (r Resolved) Geometry() ConvGeometry {
	c, ok := r.Layer.(Conv)
	if !ok {
		panic(fmt.Sprintf("netdef: %s is not a convolution", r.Layer))
	}
	g, err := c.Geometry(r.In)
	if err != nil {
		panic(fmt.Sprintf("netdef: unresolved convolution: %v", err))
	}
	return g
}
