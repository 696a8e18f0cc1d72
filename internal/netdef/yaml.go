package netdef

import (
	"errors"
	"fmt"
	"go/token"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/typednet/internal/tensor"
)

// File is a definition file: the networks to generate into one Go package.
//
//	package: mnist
//	element: float32
//	networks:
//	  - name: MNIST
//	    input: 784
//	    layers:
//	      - dense: 128
//	      - relu
//	      - dense: {size: 10, in: 128}
//	  - name: ConvNet
//	    dsl: input(1,28,28) -> conv(8,3) -> relu -> dense(10) -> sigmoid
//
// Package and element are optional; the element type defaults to float32.
type File struct {
	Package  string
	Element  tensor.DataType
	Networks []Definition
}

// LoadFile reads and parses a definition file.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open definition file: %w", err)
	}
	defer f.Close()

	file, err := ParseFile(f)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", path, err)
	}
	return file, nil
}

// ParseFile parses a YAML definition file. Errors locate the offending
// YAML node by line.
func ParseFile(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc fileDoc
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &SyntaxError{Line: 1, Msg: "empty definition file"}
		}
		var se *SyntaxError
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, &SyntaxError{Line: yamlErrorLine(err), Msg: err.Error()}
	}

	if doc.Package != "" && !token.IsIdentifier(doc.Package) {
		return nil, &SyntaxError{Line: 1, Msg: fmt.Sprintf("package %q is not a valid Go identifier", doc.Package)}
	}
	elem, err := tensor.ParseDataType(doc.Element)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedElementType, doc.Element)
	}

	file := &File{Package: doc.Package, Element: elem}
	for _, n := range doc.Networks {
		file.Networks = append(file.Networks, n.def)
	}
	return file, nil
}

// Resolve resolves every network in the file. Network names must be unique.
func (f *File) Resolve() ([]*Network, error) {
	seen := make(map[string]int, len(f.Networks))
	nets := make([]*Network, 0, len(f.Networks))
	for _, def := range f.Networks {
		if line, dup := seen[def.Name]; dup {
			return nil, fmt.Errorf("%w: %s (first defined on line %d)", ErrDuplicateName, def.Name, line)
		}
		seen[def.Name] = def.Line

		net, err := Resolve(def)
		if err != nil {
			return nil, err
		}
		nets = append(nets, net)
	}
	return nets, nil
}

type fileDoc struct {
	Package  string       `yaml:"package"`
	Element  string       `yaml:"element"`
	Networks []networkDoc `yaml:"networks"`
}

type networkDoc struct {
	def Definition
}

func (n *networkDoc) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Name   string     `yaml:"name"`
		Input  *shapeDoc  `yaml:"input"`
		Layers []layerDoc `yaml:"layers"`
		DSL    yaml.Node  `yaml:"dsl"`
	}
	if node.Kind != yaml.MappingNode {
		return nodeError(node, "network must be a mapping")
	}
	if err := knownKeys(node, "name", "input", "layers", "dsl"); err != nil {
		return err
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	if raw.DSL.Kind != 0 {
		if raw.Input != nil || len(raw.Layers) > 0 {
			return nodeError(&raw.DSL, "dsl cannot be combined with input or layers")
		}
		offset := raw.DSL.Line - 1
		if raw.DSL.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
			offset = raw.DSL.Line
		}
		def, err := parseDSL(raw.Name, raw.DSL.Value, offset)
		if err != nil {
			return err
		}
		def.Line = node.Line
		n.def = def
		return nil
	}

	if raw.Input == nil {
		return nodeError(node, fmt.Sprintf("network %q has no input", raw.Name))
	}
	n.def = Definition{Name: raw.Name, Input: raw.Input.shape, Line: node.Line}
	for _, l := range raw.Layers {
		n.def.Layers = append(n.def.Layers, l.layer)
		n.def.Lines = append(n.def.Lines, l.line)
	}
	return nil
}

// shapeDoc is either a single size (784) or a list of dimensions ([1, 28, 28]).
type shapeDoc struct {
	shape tensor.Shape
}

func (s *shapeDoc) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var n int
		if err := node.Decode(&n); err != nil {
			return nodeError(node, fmt.Sprintf("input must be an integer or a list of integers, got %q", node.Value))
		}
		s.shape = tensor.Shape{n}
	case yaml.SequenceNode:
		var dims []int
		if err := node.Decode(&dims); err != nil {
			return nodeError(node, "input must be a list of integers")
		}
		s.shape = dims
	default:
		return nodeError(node, "input must be an integer or a list of integers")
	}
	return nil
}

// layerDoc is a bare kind (relu) or a single-key mapping from kind to
// parameters (dense: 128, conv: {out_channels: 8, kernel: 3}).
type layerDoc struct {
	layer Layer
	line  int
}

func (l *layerDoc) UnmarshalYAML(node *yaml.Node) error {
	l.line = node.Line

	var kindNode, params *yaml.Node
	switch node.Kind {
	case yaml.ScalarNode:
		kindNode = node
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return nodeError(node, "layer must have exactly one kind")
		}
		kindNode, params = node.Content[0], node.Content[1]
	default:
		return nodeError(node, "layer must be a kind name or a single-key mapping")
	}

	kind, err := ParseKind(kindNode.Value)
	if err != nil {
		return nodeError(kindNode, err.Error())
	}
	if params != nil && params.Tag == "!!null" {
		params = nil
	}

	switch kind {
	case KindDense:
		l.layer, err = decodeDense(node, params)
	case KindConv:
		l.layer, err = decodeConv(node, params)
	case KindReLU:
		l.layer, err = ReLU{}, noParams(kind, params)
	case KindSigmoid:
		l.layer, err = Sigmoid{}, noParams(kind, params)
	}
	return err
}

func decodeDense(node, params *yaml.Node) (Layer, error) {
	if params == nil {
		return nil, nodeError(node, "dense requires a size")
	}
	if params.Kind == yaml.ScalarNode {
		var size int
		if err := params.Decode(&size); err != nil {
			return nil, nodeError(params, fmt.Sprintf("dense size must be an integer, got %q", params.Value))
		}
		return Dense{Size: size}, nil
	}
	if err := knownKeys(params, "size", "in"); err != nil {
		return nil, err
	}
	var d struct {
		Size int `yaml:"size"`
		In   int `yaml:"in"`
	}
	if err := params.Decode(&d); err != nil {
		return nil, nodeError(params, err.Error())
	}
	return Dense{Size: d.Size, In: d.In}, nil
}

func decodeConv(node, params *yaml.Node) (Layer, error) {
	if params == nil || params.Kind != yaml.MappingNode {
		return nil, nodeError(node, "conv requires a mapping with out_channels and kernel")
	}
	if err := knownKeys(params, "out_channels", "kernel", "stride", "padding"); err != nil {
		return nil, err
	}
	c := struct {
		OutChannels int `yaml:"out_channels"`
		Kernel      int `yaml:"kernel"`
		Stride      int `yaml:"stride"`
		Padding     int `yaml:"padding"`
	}{Stride: 1}
	if err := params.Decode(&c); err != nil {
		return nil, nodeError(params, err.Error())
	}
	return Conv{OutChannels: c.OutChannels, Kernel: c.Kernel, Stride: c.Stride, Padding: c.Padding}, nil
}

func noParams(kind Kind, params *yaml.Node) error {
	if params == nil {
		return nil
	}
	if params.Kind == yaml.MappingNode && len(params.Content) == 0 {
		return nil
	}
	return nodeError(params, fmt.Sprintf("%s takes no parameters", kind))
}

func knownKeys(m *yaml.Node, keys ...string) error {
	if m.Kind != yaml.MappingNode {
		return nodeError(m, "expected a mapping")
	}
	for i := 0; i < len(m.Content); i += 2 {
		k := m.Content[i]
		if indexOf(keys, k.Value) < 0 {
			return nodeError(k, fmt.Sprintf("unknown parameter %q (want one of %s)", k.Value, strings.Join(keys, ", ")))
		}
	}
	return nil
}

func nodeError(node *yaml.Node, msg string) error {
	return &SyntaxError{Line: node.Line, Column: node.Column, Msg: msg}
}

// yamlErrorLine extracts the line from yaml.v3 messages such as
// "yaml: line 3: did not find expected key".
func yamlErrorLine(err error) int {
	var te *yaml.TypeError
	msg := err.Error()
	if errors.As(err, &te) && len(te.Errors) > 0 {
		msg = te.Errors[0]
	}
	var line int
	if i := strings.Index(msg, "line "); i >= 0 {
		_, _ = fmt.Sscanf(msg[i:], "line %d", &line)
	}
	return line
}
