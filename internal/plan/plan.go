// Package plan assigns scratch buffers to the activations of a resolved
// network.
//
// Every activation lives from the step that writes it to the step that
// reads it. Activations whose live ranges touch must not share a buffer, so
// buffers are assigned by greedy interval colouring in definition order.
// For a linear pipeline this yields the A/B alternation; the network output
// always goes to a separate final buffer.
package plan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/born-ml/typednet/internal/netdef"
)

// ErrInvalidPlan is returned by Check when a plan violates its buffer rules.
var ErrInvalidPlan = errors.New("invalid buffer plan")

// BufferID names one of the network's buffers.
type BufferID int

// Buffers.
const (
	BufferA BufferID = iota
	BufferB
	BufferFinal
)

// String returns "a", "b" or "final".
func (b BufferID) String() string {
	switch b {
	case BufferA:
		return "a"
	case BufferB:
		return "b"
	case BufferFinal:
		return "final"
	default:
		return fmt.Sprintf("BufferID(%d)", int(b))
	}
}

// Scratch reports whether b is one of the reusable scratch buffers.
func (b BufferID) Scratch() bool {
	return b == BufferA || b == BufferB
}

// Step is one layer invocation: read Layer.In from Src, write Layer.Out to Dst.
type Step struct {
	Layer netdef.Resolved
	Src   BufferID
	Dst   BufferID
}

// InSize returns the element count read by the step.
func (s Step) InSize() int { return s.Layer.In.NumElements() }

// OutSize returns the element count written by the step.
func (s Step) OutSize() int { return s.Layer.Out.NumElements() }

// Plan is the static buffer assignment of a network.
type Plan struct {
	Network *netdef.Network

	// MaxSize is the element count of each scratch buffer: the largest of
	// the input, every intermediate activation and the output.
	MaxSize int

	// Scratch is the number of scratch buffers the steps use.
	Scratch int

	// FinalSize is the element count of the final buffer.
	FinalSize int

	// Input is the scratch buffer the caller's input is copied into.
	Input BufferID

	Steps []Step
}

// New plans the buffers of a validated network.
// It does not re-validate the network's shape chain.
func New(net *netdef.Network) *Plan {
	colours := colour(liveRanges(len(net.Layers)))

	p := &Plan{
		Network:   net,
		MaxSize:   net.MaxActivation(),
		FinalSize: net.Output.NumElements(),
		Input:     colours[0],
		Steps:     make([]Step, len(net.Layers)),
	}
	for i, l := range net.Layers {
		dst := BufferFinal
		if i+1 < len(net.Layers) {
			dst = colours[i+1]
		}
		p.Steps[i] = Step{Layer: l, Src: colours[i], Dst: dst}
	}
	for _, c := range colours {
		p.Scratch = max(p.Scratch, int(c)+1)
	}
	return p
}

// liveRange is the span of steps during which an activation must be kept:
// it is written by step def and last read by step last. The network input
// is written before step 0, at def -1.
type liveRange struct {
	def, last int
}

// liveRanges returns the live ranges of the activations that go to scratch
// buffers, i.e. every activation except the network output.
func liveRanges(layers int) []liveRange {
	ranges := make([]liveRange, layers)
	for i := range ranges {
		ranges[i] = liveRange{def: i - 1, last: i}
	}
	return ranges
}

// colour assigns each range the lowest buffer not held by a range that is
// still live when it is written. Ranges must be sorted by def.
func colour(ranges []liveRange) []BufferID {
	var busyUntil []int // last read of the range holding each buffer
	colours := make([]BufferID, len(ranges))
	for i, r := range ranges {
		c := -1
		for k, until := range busyUntil {
			if until < r.def {
				c = k
				break
			}
		}
		if c < 0 {
			c = len(busyUntil)
			busyUntil = append(busyUntil, 0)
		}
		if c > int(BufferB) {
			panic(fmt.Sprintf("plan: activation %d needs scratch buffer %d", i, c))
		}
		busyUntil[c] = r.last
		colours[i] = BufferID(c)
	}
	return colours
}

// Check verifies the plan: no step reads and writes the same buffer, steps
// hand off through the same buffer, only the last step writes the final
// buffer, and every activation fits its buffer.
func (p *Plan) Check() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidPlan)
	}
	if p.Steps[0].Src != p.Input {
		return fmt.Errorf("%w: input copied to %v but step 0 reads %v", ErrInvalidPlan, p.Input, p.Steps[0].Src)
	}
	for i, s := range p.Steps {
		if s.Src == s.Dst {
			return fmt.Errorf("%w: step %d reads and writes buffer %v", ErrInvalidPlan, i, s.Src)
		}
		if !s.Src.Scratch() || int(s.Src) >= p.Scratch {
			return fmt.Errorf("%w: step %d reads from %v", ErrInvalidPlan, i, s.Src)
		}
		if s.InSize() > p.MaxSize {
			return fmt.Errorf("%w: step %d reads %d elements from a %d-element buffer", ErrInvalidPlan, i, s.InSize(), p.MaxSize)
		}
		last := i == len(p.Steps)-1
		switch {
		case last && s.Dst != BufferFinal:
			return fmt.Errorf("%w: last step writes %v instead of the final buffer", ErrInvalidPlan, s.Dst)
		case last && s.OutSize() != p.FinalSize:
			return fmt.Errorf("%w: last step writes %d elements to a %d-element final buffer", ErrInvalidPlan, s.OutSize(), p.FinalSize)
		case !last && s.Dst == BufferFinal:
			return fmt.Errorf("%w: step %d writes the final buffer", ErrInvalidPlan, i)
		case !last && s.Dst != p.Steps[i+1].Src:
			return fmt.Errorf("%w: step %d writes %v but step %d reads %v", ErrInvalidPlan, i, s.Dst, i+1, p.Steps[i+1].Src)
		case !last && s.OutSize() > p.MaxSize:
			return fmt.Errorf("%w: step %d writes %d elements to a %d-element buffer", ErrInvalidPlan, i, s.OutSize(), p.MaxSize)
		}
	}
	return nil
}

// String renders the plan for humans:
//
//	MNIST[Dense<784,128> ReLU<128> Dense<128,10>]
//	buffers: 2 scratch x 784, final x 10
//	  0 Dense784To128  a -> b
//	  1 ReLU128        b -> a
//	  2 Dense128To10   a -> final
func (p *Plan) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", p.Network.Signature())
	fmt.Fprintf(&sb, "buffers: %d scratch x %d, final x %d\n", p.Scratch, p.MaxSize, p.FinalSize)
	width := 0
	for _, s := range p.Steps {
		width = max(width, len(s.Layer.TypeName()))
	}
	for i, s := range p.Steps {
		fmt.Fprintf(&sb, "  %d %-*s  %v -> %v\n", i, width, s.Layer.TypeName(), s.Src, s.Dst)
	}
	return sb.String()
}
