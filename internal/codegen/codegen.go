// Package codegen lowers buffer plans into Go source.
//
// For every distinct resolved layer it emits a concrete type whose Forward
// takes fixed-size array pointers, so handing a layer a buffer of the wrong
// size is a compile error in the generated package. For every network it
// emits a struct holding those layers and its buffers, a constructor that
// draws weights from an nn.Source and a Forward that runs the plan's steps
// in order without any shape arguments.
package codegen

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"go/token"
	"strings"
	"text/template"

	"github.com/born-ml/typednet/internal/netdef"
	"github.com/born-ml/typednet/internal/nn"
	"github.com/born-ml/typednet/internal/plan"
	"github.com/born-ml/typednet/internal/tensor"
)

// Default import paths of the runtime packages generated code uses.
const (
	DefaultNNImport     = "github.com/born-ml/typednet/nn"
	DefaultTensorImport = "github.com/born-ml/typednet/tensor"
)

// Common errors.
var (
	ErrNoNetworks    = errors.New("no networks to generate")
	ErrInvalidConfig = errors.New("invalid generator configuration")
	ErrNameCollision = errors.New("generated identifiers collide")
)

// Config controls code generation.
type Config struct {
	Package string          // Package clause of the generated file
	Element tensor.DataType // Scalar type of every generated network
	Source  string          // Definition file recorded in the header, optional

	NNImport     string // Defaults to DefaultNNImport
	TensorImport string // Defaults to DefaultTensorImport
}

func (c *Config) setDefaults() {
	if c.NNImport == "" {
		c.NNImport = DefaultNNImport
	}
	if c.TensorImport == "" {
		c.TensorImport = DefaultTensorImport
	}
}

func (c Config) validate() error {
	if !token.IsIdentifier(c.Package) {
		return fmt.Errorf("%w: package %q is not a valid identifier", ErrInvalidConfig, c.Package)
	}
	if c.Element != tensor.Float32 && c.Element != tensor.Float64 {
		return fmt.Errorf("%w: element type %v", ErrInvalidConfig, c.Element)
	}
	return nil
}

// Generate emits one gofmt'd Go file defining every plan's network.
//
// Plans are assumed to come from resolved networks; Generate does not
// re-validate their shape chains. Layer types shared by several networks
// are emitted once.
func Generate(cfg Config, plans ...*plan.Plan) ([]byte, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, ErrNoNetworks
	}

	data, err := lower(cfg, plans)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to format generated code: %w\n%s", err, buf.Bytes())
	}
	return src, nil
}

type fileData struct {
	Package      string
	Source       string
	NNImport     string
	TensorImport string
	Layers       []layerData
	Networks     []networkData
}

type layerData struct {
	Type      string
	Signature string
	Elem      string
	Kind      string // "dense", "conv" or "activation"
	Embed     string // embedded runtime type for parameterised layers
	Ctor      string // constructor call taking src
	Apply     string // element-wise function for activations
	In, Out   int
	Doc       string
}

type networkData struct {
	Name        string
	Signature   string
	Elem        string
	Input       int
	Output      int
	InputShape  string
	OutputShape string
	MaxSize     int
	Buffers     []string
	InputBuffer string
	Fields      []fieldData
	Steps       []stepData
}

type fieldData struct {
	Name      string
	Type      string
	Index     int
	HasParams bool
}

type stepData struct {
	Field string
	In    string
	Out   string
}

func lower(cfg Config, plans []*plan.Plan) (*fileData, error) {
	elem := cfg.Element.String()
	data := &fileData{
		Package:      cfg.Package,
		Source:       cfg.Source,
		NNImport:     cfg.NNImport,
		TensorImport: cfg.TensorImport,
	}

	// Every top-level identifier the file declares, with what declared it.
	// Imported package names and the predeclared identifiers the template
	// refers to are reserved.
	declared := map[string]string{
		"nn":     "import " + cfg.NNImport,
		"tensor": "import " + cfg.TensorImport,
	}
	for _, ident := range []string{"append", "copy", "new", "nil", "string", "float32", "float64"} {
		declared[ident] = "predeclared " + ident
	}
	declare := func(ident, owner string) error {
		if prev, ok := declared[ident]; ok && prev != owner {
			return fmt.Errorf("%w: %s is declared by both %s and %s", ErrNameCollision, ident, prev, owner)
		}
		declared[ident] = owner
		return nil
	}

	for _, p := range plans {
		net := p.Network
		owner := "network " + net.Name
		if prev, ok := declared[net.Name]; ok {
			return nil, fmt.Errorf("%w: %s is declared by both %s and %s", ErrNameCollision, net.Name, prev, owner)
		}
		for _, ident := range []string{net.Name, "New" + net.Name, net.Name + "Signature"} {
			if err := declare(ident, owner); err != nil {
				return nil, err
			}
		}

		nd := networkData{
			Name:        net.Name,
			Signature:   net.Signature(),
			Elem:        elem,
			Input:       net.Input.NumElements(),
			Output:      net.Output.NumElements(),
			InputShape:  shapeLiteral(net.Input),
			OutputShape: shapeLiteral(net.Output),
			MaxSize:     p.MaxSize,
			InputBuffer: bufferField(p.Input),
		}
		for i := 0; i < p.Scratch; i++ {
			nd.Buffers = append(nd.Buffers, bufferField(plan.BufferID(i)))
		}

		for i, s := range p.Steps {
			ld := lowerLayer(s.Layer, elem)
			if _, seen := declared[ld.Type]; !seen {
				data.Layers = append(data.Layers, ld)
			}
			idents := []string{ld.Type}
			if ld.Kind != "activation" {
				idents = append(idents, "new"+ld.Type)
			}
			for _, ident := range idents {
				if err := declare(ident, "layer "+ld.Signature); err != nil {
					return nil, err
				}
			}

			field := fmt.Sprintf("l%d", i)
			nd.Fields = append(nd.Fields, fieldData{
				Name:      field,
				Type:      ld.Type,
				Index:     i,
				HasParams: ld.Kind != "activation",
			})
			nd.Steps = append(nd.Steps, stepData{
				Field: field,
				In:    bufferExpr(s.Src, s.InSize(), p.MaxSize, elem),
				Out:   bufferExpr(s.Dst, s.OutSize(), p.MaxSize, elem),
			})
		}
		data.Networks = append(data.Networks, nd)
	}
	return data, nil
}

func lowerLayer(r netdef.Resolved, elem string) layerData {
	ld := layerData{
		Type:      r.TypeName(),
		Signature: r.Signature(),
		Elem:      elem,
		In:        r.In.NumElements(),
		Out:       r.Out.NumElements(),
	}
	switch l := r.Layer.(type) {
	case netdef.Dense:
		ld.Kind = "dense"
		ld.Embed = fmt.Sprintf("*nn.Dense[%s]", elem)
		ld.Ctor = fmt.Sprintf("nn.NewDense[%s](%d, %d, src)", elem, ld.In, l.Size)
		ld.Doc = fmt.Sprintf("is a dense layer from %d to %d elements.", ld.In, ld.Out)
	case netdef.Conv:
		ld.Kind = "conv"
		ld.Embed = fmt.Sprintf("*nn.Conv[%s]", elem)
		ld.Ctor = fmt.Sprintf("nn.NewConv[%s](%s, src)", elem, convConfigLiteral(nn.ConvConfigOf(r.Geometry())))
		ld.Doc = fmt.Sprintf("is a %dx%d convolution from %v to %v.", l.Kernel, l.Kernel, r.In, r.Out)
	case netdef.ReLU:
		ld.Kind = "activation"
		ld.Apply = "nn.ReLU"
		ld.Doc = fmt.Sprintf("applies max(0, x) to %v.", r.In)
	case netdef.Sigmoid:
		ld.Kind = "activation"
		ld.Apply = "nn.Sigmoid"
		ld.Doc = fmt.Sprintf("applies the logistic function to %v.", r.In)
	default:
		panic(fmt.Sprintf("codegen: unsupported layer %T", r.Layer))
	}
	return ld
}

func convConfigLiteral(c nn.ConvConfig) string {
	return fmt.Sprintf("nn.ConvConfig{InRank: %d, InChannels: %d, InHeight: %d, InWidth: %d, "+
		"OutChannels: %d, KernelH: %d, KernelW: %d, Stride: %d, PadH: %d, PadW: %d}",
		c.InRank, c.InChannels, c.InHeight, c.InWidth,
		c.OutChannels, c.KernelH, c.KernelW, c.Stride, c.PadH, c.PadW)
}

func bufferField(id plan.BufferID) string {
	return id.String()
}

// bufferExpr is the array pointer a step reads or writes: the final buffer
// as is, a scratch buffer converted to its leading size elements.
func bufferExpr(id plan.BufferID, size, maxSize int, elem string) string {
	switch {
	case id == plan.BufferFinal:
		return "n.final"
	case size == maxSize:
		return "n." + bufferField(id)
	default:
		return fmt.Sprintf("(*[%d]%s)(n.%s[:%d])", size, elem, bufferField(id), size)
	}
}

func shapeLiteral(s tensor.Shape) string {
	dims := make([]string, len(s))
	for i, d := range s {
		dims[i] = fmt.Sprint(d)
	}
	return "tensor.Shape{" + strings.Join(dims, ", ") + "}"
}

var fileTemplate = template.Must(template.New("file").Parse(fileTmpl))
