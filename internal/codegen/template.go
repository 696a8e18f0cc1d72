package codegen

// fileTmpl renders a fileData. The output is passed through go/format, which
// collapses the blank lines the actions leave behind.
const fileTmpl = `// Code generated by shapegen. DO NOT EDIT.
{{- if .Source}}
// Source: {{.Source}}
{{- end}}

package {{.Package}}

import (
	"{{.NNImport}}"
	"{{.TensorImport}}"
)
{{range .Layers}}
{{if eq .Kind "activation" -}}
// {{.Type}} {{.Doc}}
type {{.Type}} struct{}

// Forward computes {{.Signature}}.
func ({{.Type}}) Forward(in, out *[{{.In}}]{{.Elem}}) {
	{{.Apply}}(in[:], out[:])
}

// Parameters returns nil.
func ({{.Type}}) Parameters() []*nn.Parameter[{{.Elem}}] { return nil }
{{- else -}}
// {{.Type}} {{.Doc}}
type {{.Type}} struct {
	{{.Embed}}
}

func new{{.Type}}(src nn.Source) {{.Type}} {
	return {{.Type}}{ {{- .Ctor -}} }
}

// Forward computes {{.Signature}}.
func (l {{.Type}}) Forward(in *[{{.In}}]{{.Elem}}, out *[{{.Out}}]{{.Elem}}) {
{{- if eq .Kind "dense"}}
	l.Dense.Forward(in[:], out[:])
{{- else}}
	l.Conv.Forward(in[:], out[:])
{{- end}}
}
{{- end}}
{{end}}
{{- range $n := .Networks}}
// {{$n.Name}}Signature encodes the resolved layers of {{$n.Name}}.
const {{$n.Name}}Signature = {{printf "%q" $n.Signature}}

// {{$n.Name}} is the network {{$n.Signature}}.
//
// Forward copies its input into a scratch buffer, runs every layer between
// the scratch buffers and writes the result to a separate final buffer. The
// result is valid until the next call to Forward.
type {{$n.Name}} struct {
{{- range $n.Fields}}
	{{.Name}} {{.Type}}
{{- end}}

{{range $n.Buffers}}	{{.}} *[{{$n.MaxSize}}]{{$n.Elem}}
{{end}}	final *[{{$n.Output}}]{{$n.Elem}}
}

// New{{$n.Name}} constructs {{$n.Name}}, drawing initial weights from src in layer order.
func New{{$n.Name}}(src nn.Source) *{{$n.Name}} {
	n := &{{$n.Name}}{
{{- range $n.Buffers}}
		{{.}}: new([{{$n.MaxSize}}]{{$n.Elem}}),
{{- end}}
		final: new([{{$n.Output}}]{{$n.Elem}}),
	}
{{- range $n.Fields}}
{{- if .HasParams}}
	n.{{.Name}} = new{{.Type}}(src)
{{- end}}
{{- end}}
	return n
}

// Forward runs {{$n.Name}} on input and returns the final buffer.
func (n *{{$n.Name}}) Forward(input *[{{$n.Input}}]{{$n.Elem}}) *[{{$n.Output}}]{{$n.Elem}} {
	copy(n.{{$n.InputBuffer}}[:], input[:])
{{- range $n.Steps}}
	n.{{.Field}}.Forward({{.In}}, {{.Out}})
{{- end}}
	return n.final
}

// Output returns a view of the final buffer under the output shape.
func (n *{{$n.Name}}) Output() tensor.View[{{$n.Elem}}] {
	return tensor.MustViewOf(n.final[:], {{$n.OutputShape}})
}

// Parameters returns the weights of every layer, named "<layer index>.<name>".
func (n *{{$n.Name}}) Parameters() []*nn.Parameter[{{$n.Elem}}] {
	var params []*nn.Parameter[{{$n.Elem}}]
{{- range $n.Fields}}
{{- if .HasParams}}
	params = append(params, nn.WithPrefix("{{.Index}}", n.{{.Name}}.Parameters())...)
{{- end}}
{{- end}}
	return params
}

// InputShape returns the input shape.
func (n *{{$n.Name}}) InputShape() tensor.Shape { return {{$n.InputShape}} }

// OutputShape returns the output shape.
func (n *{{$n.Name}}) OutputShape() tensor.Shape { return {{$n.OutputShape}} }

// String returns {{$n.Name}}Signature.
func (n *{{$n.Name}}) String() string { return {{$n.Name}}Signature }
{{end}}`
