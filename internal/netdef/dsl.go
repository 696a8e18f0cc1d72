package netdef

import (
	"fmt"
	"strconv"
	"strings"
	"text/scanner"
)

// ParseDSL parses the arrow syntax for a network definition:
//
//	input(784) -> dense(128) -> relu -> dense(10) -> output
//
// The input may be multi-dimensional, as in input(1,28,28). Layers are
// dense(size[, in=n]), conv(out, kernel[, stride[, padding]]), relu and
// sigmoid; arguments may also be given by name (conv(out=8, kernel=3)).
// Kind names are case-insensitive, the trailing output is optional and
// // or /* */ comments are ignored.
//
// ParseDSL checks syntax only; call Resolve to validate the shape chain.
func ParseDSL(name, src string) (Definition, error) {
	return parseDSL(name, src, 0)
}

// parseDSL parses src whose first line is line lineOffset+1 of the
// enclosing document.
func parseDSL(name, src string, lineOffset int) (def Definition, err error) {
	p := &dslParser{lineOffset: lineOffset}
	p.s.Init(strings.NewReader(src))
	p.s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanComments | scanner.SkipComments
	p.s.Error = func(s *scanner.Scanner, msg string) {
		p.failAt(s.Pos().Line, s.Pos().Column, "%s", msg)
	}

	defer func() {
		if r := recover(); r != nil {
			se, ok := r.(*SyntaxError)
			if !ok {
				panic(r)
			}
			def, err = Definition{}, se
		}
	}()

	p.next()
	return p.definition(name), nil
}

type dslParser struct {
	s          scanner.Scanner
	tok        rune
	lineOffset int
}

func (p *dslParser) next() {
	p.tok = p.s.Scan()
}

// pos returns the line and column of the current token.
func (p *dslParser) pos() (line, column int) {
	at := p.s.Position
	if !at.IsValid() {
		at = p.s.Pos()
	}
	return at.Line, at.Column
}

func (p *dslParser) failAt(line, column int, format string, args ...any) {
	panic(&SyntaxError{Line: line + p.lineOffset, Column: column, Msg: fmt.Sprintf(format, args...)})
}

func (p *dslParser) fail(format string, args ...any) {
	line, column := p.pos()
	p.failAt(line, column, format, args...)
}

func (p *dslParser) found() string {
	if p.tok == scanner.EOF {
		return "end of input"
	}
	return strconv.Quote(p.s.TokenText())
}

func (p *dslParser) expect(tok rune) {
	if p.tok != tok {
		p.fail("expected %q, found %s", string(tok), p.found())
	}
	p.next()
}

func (p *dslParser) ident() string {
	if p.tok != scanner.Ident {
		p.fail("expected layer name, found %s", p.found())
	}
	name := strings.ToLower(p.s.TokenText())
	p.next()
	return name
}

func (p *dslParser) integer() int {
	if p.tok != scanner.Int {
		p.fail("expected integer, found %s", p.found())
	}
	n, err := strconv.Atoi(p.s.TokenText())
	if err != nil {
		p.fail("integer %s out of range", p.s.TokenText())
	}
	p.next()
	return n
}

// arrow consumes "->" if present.
func (p *dslParser) arrow() bool {
	if p.tok != '-' {
		return false
	}
	p.next()
	if p.tok != '>' {
		p.fail("expected \"->\", found %s", p.found())
	}
	p.next()
	return true
}

func (p *dslParser) definition(name string) Definition {
	line, column := p.pos()
	def := Definition{Name: name, Line: line + p.lineOffset}

	if p.tok != scanner.Ident || strings.ToLower(p.s.TokenText()) != "input" {
		p.failAt(line, column, "network must start with input(...), found %s", p.found())
	}
	p.next()
	p.expect('(')
	for {
		def.Input = append(def.Input, p.integer())
		if p.tok != ',' {
			break
		}
		p.next()
	}
	p.expect(')')

	for p.arrow() {
		line, column := p.pos()
		kind := p.ident()
		if kind == "output" {
			if p.tok != scanner.EOF {
				p.fail("unexpected %s after output", p.found())
			}
			break
		}
		def.Layers = append(def.Layers, p.layer(kind, line, column))
		def.Lines = append(def.Lines, line+p.lineOffset)
	}
	if p.tok != scanner.EOF {
		p.fail("expected \"->\" or end of input, found %s", p.found())
	}
	return def
}

// dslArgs holds a layer's parenthesised arguments.
type dslArgs struct {
	positional []int
	named      map[string]int
}

func (p *dslParser) args() dslArgs {
	a := dslArgs{named: map[string]int{}}
	if p.tok != '(' {
		return a
	}
	p.next()
	for p.tok != ')' {
		if p.tok == scanner.Ident {
			key := strings.ToLower(p.s.TokenText())
			p.next()
			p.expect('=')
			if _, dup := a.named[key]; dup {
				p.fail("argument %s given twice", key)
			}
			a.named[key] = p.integer()
		} else {
			if len(a.named) > 0 {
				p.fail("positional argument after named argument")
			}
			a.positional = append(a.positional, p.integer())
		}
		if p.tok != ',' {
			break
		}
		p.next()
	}
	p.expect(')')
	return a
}

// bind assigns arguments to parameter names, positional arguments first.
// Parameters not given are -1; the first required parameters must be given.
func (p *dslParser) bind(kind string, a dslArgs, names []string, required int, line, column int) []int {
	if len(a.positional) > len(names) {
		p.failAt(line, column, "%s takes at most %d arguments, got %d", kind, len(names), len(a.positional))
	}
	values := make([]int, len(names))
	for i := range values {
		values[i] = -1
	}
	copy(values, a.positional)

	for key, v := range a.named {
		i := indexOf(names, key)
		if i < 0 {
			p.failAt(line, column, "%s has no argument %q", kind, key)
		}
		if values[i] >= 0 {
			p.failAt(line, column, "%s argument %s given twice", kind, key)
		}
		values[i] = v
	}
	for i := 0; i < required; i++ {
		if values[i] < 0 {
			p.failAt(line, column, "%s requires argument %s", kind, names[i])
		}
	}
	return values
}

func (p *dslParser) layer(kind string, line, column int) Layer {
	a := p.args()
	switch kind {
	case "dense":
		v := p.bind(kind, a, []string{"size", "in"}, 1, line, column)
		return Dense{Size: v[0], In: orDefault(v[1], 0)}
	case "conv":
		v := p.bind(kind, a, []string{"out", "kernel", "stride", "padding"}, 2, line, column)
		return Conv{OutChannels: v[0], Kernel: v[1], Stride: orDefault(v[2], 1), Padding: orDefault(v[3], 0)}
	case "relu":
		p.bind(kind, a, nil, 0, line, column)
		return ReLU{}
	case "sigmoid":
		p.bind(kind, a, nil, 0, line, column)
		return Sigmoid{}
	default:
		p.failAt(line, column, "unknown layer kind %q", kind)
		return nil
	}
}

func orDefault(v, def int) int {
	if v < 0 {
		return def
	}
	return v
}

func indexOf(names []string, key string) int {
	for i, n := range names {
		if n == key {
			return i
		}
	}
	return -1
}
