package codegen

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/typednet/internal/netdef"
	"github.com/born-ml/typednet/internal/plan"
	"github.com/born-ml/typednet/internal/tensor"
)

func planFor(t *testing.T, src string) *plan.Plan {
	t.Helper()
	name, dsl, _ := strings.Cut(src, ":")
	def, err := netdef.ParseDSL(name, dsl)
	require.NoError(t, err)
	net, err := netdef.Resolve(def)
	require.NoError(t, err)
	return plan.New(net)
}

// declarations parses src and returns its top-level identifiers by kind.
func declarations(t *testing.T, src []byte) (file *ast.File, types, funcs, consts []string) {
	t.Helper()
	file, err := parser.ParseFile(token.NewFileSet(), "gen.go", src, parser.ParseComments)
	require.NoError(t, err, "generated code must parse:\n%s", src)

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			name := d.Name.Name
			if d.Recv != nil {
				name = recvName(d.Recv.List[0].Type) + "." + name
			}
			funcs = append(funcs, name)
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					types = append(types, s.Name.Name)
				case *ast.ValueSpec:
					if d.Tok == token.CONST {
						for _, n := range s.Names {
							consts = append(consts, n.Name)
						}
					}
				}
			}
		}
	}
	return file, types, funcs, consts
}

func recvName(expr ast.Expr) string {
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	if ident, ok := expr.(*ast.Ident); ok {
		return ident.Name
	}
	return "?"
}

func TestGenerateMNIST(t *testing.T) {
	p := planFor(t, "MNIST:input(784) -> dense(128) -> relu -> dense(10)")
	src, err := Generate(Config{Package: "mnist", Element: tensor.Float32, Source: "nets.yaml"}, p)
	require.NoError(t, err)

	file, types, funcs, consts := declarations(t, src)
	assert.True(t, ast.IsGenerated(file))
	assert.Equal(t, "mnist", file.Name.Name)
	assert.True(t, strings.HasPrefix(string(src), "// Code generated by shapegen. DO NOT EDIT.\n// Source: nets.yaml\n"))

	assert.Equal(t, []string{"Dense784To128", "ReLU128", "Dense128To10", "MNIST"}, types)
	assert.Equal(t, []string{"MNISTSignature"}, consts)
	for _, fn := range []string{
		"newDense784To128", "Dense784To128.Forward",
		"ReLU128.Forward", "ReLU128.Parameters",
		"NewMNIST", "MNIST.Forward", "MNIST.Output", "MNIST.Parameters",
		"MNIST.InputShape", "MNIST.OutputShape", "MNIST.String",
	} {
		assert.Contains(t, funcs, fn)
	}

	code := string(src)
	assert.Contains(t, code, `const MNISTSignature = "MNIST[Dense<784,128> ReLU<128> Dense<128,10>]"`)
	assert.Contains(t, code, "func (n *MNIST) Forward(input *[784]float32) *[10]float32 {")
	assert.Contains(t, code, "copy(n.a[:], input[:])")
	assert.Contains(t, code, "n.l0.Forward(n.a, (*[128]float32)(n.b[:128]))")
	assert.Contains(t, code, "n.l1.Forward((*[128]float32)(n.b[:128]), (*[128]float32)(n.a[:128]))")
	assert.Contains(t, code, "n.l2.Forward((*[128]float32)(n.a[:128]), n.final)")
	assert.Contains(t, code, "return Dense784To128{nn.NewDense[float32](784, 128, src)}")
	assert.Contains(t, code, `nn.WithPrefix("2", n.l2.Parameters())`)
	assert.NotContains(t, code, `nn.WithPrefix("1"`)
	assert.Contains(t, code, "tensor.MustViewOf(n.final[:], tensor.Shape{10})")
	assert.Contains(t, code, `"github.com/born-ml/typednet/nn"`)
}

func TestGenerateConvFloat64(t *testing.T) {
	p := planFor(t, "ConvNet:input(1,28,28) -> conv(8,3) -> relu -> dense(10) -> sigmoid")
	src, err := Generate(Config{Package: "conv", Element: tensor.Float64}, p)
	require.NoError(t, err)

	_, types, _, _ := declarations(t, src)
	assert.Equal(t, []string{"Conv1x28x28To8x26x26K3S1P0", "ReLU8x26x26", "Dense5408To10", "Sigmoid10", "ConvNet"}, types)

	code := string(src)
	assert.NotContains(t, code, "// Source:")
	assert.Contains(t, code, "nn.NewConv[float64](nn.ConvConfig{InRank: 3, InChannels: 1, InHeight: 28, InWidth: 28, "+
		"OutChannels: 8, KernelH: 3, KernelW: 3, Stride: 1, PadH: 0, PadW: 0}, src)")
	assert.Contains(t, code, "func (l Conv1x28x28To8x26x26K3S1P0) Forward(in *[784]float64, out *[5408]float64)")
	assert.Contains(t, code, "func (ReLU8x26x26) Forward(in, out *[5408]float64)")
	assert.Contains(t, code, "new([5408]float64)")
	assert.Contains(t, code, "n.l3.Forward((*[10]float64)(n.b[:10]), n.final)")
	assert.Contains(t, code, "tensor.Shape{1, 28, 28}")
}

func TestGenerateSharesLayerTypes(t *testing.T) {
	a := planFor(t, "Small:input(128) -> relu -> dense(10)")
	b := planFor(t, "Large:input(784) -> dense(128) -> relu -> dense(10)")
	src, err := Generate(Config{Package: "nets", Element: tensor.Float32}, a, b)
	require.NoError(t, err)

	_, types, _, consts := declarations(t, src)
	assert.Equal(t, []string{"ReLU128", "Dense128To10", "Dense784To128", "Small", "Large"}, types)
	assert.Equal(t, []string{"SmallSignature", "LargeSignature"}, consts)
	assert.Equal(t, 1, strings.Count(string(src), "type ReLU128 struct{}"))
}

func TestGenerateSingleLayer(t *testing.T) {
	p := planFor(t, "Squash:input(4) -> sigmoid")
	src, err := Generate(Config{Package: "squash", Element: tensor.Float32}, p)
	require.NoError(t, err)

	code := strings.Join(strings.Fields(string(src)), " ")
	assert.Contains(t, code, "a *[4]float32 final *[4]float32 }")
	assert.NotContains(t, code, "b *[4]float32")
	assert.Contains(t, code, "n.l0.Forward(n.a, n.final)")
}

func TestGenerateErrors(t *testing.T) {
	p := planFor(t, "MNIST:input(784) -> dense(10)")

	_, err := Generate(Config{Package: "", Element: tensor.Float32}, p)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Generate(Config{Package: "x-y", Element: tensor.Float32}, p)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Generate(Config{Package: "p", Element: tensor.DataType(9)}, p)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Generate(Config{Package: "p", Element: tensor.Float32})
	assert.ErrorIs(t, err, ErrNoNetworks)

	clash := planFor(t, "ReLU16:input(16) -> relu")
	_, err = Generate(Config{Package: "p", Element: tensor.Float32}, clash)
	assert.ErrorIs(t, err, ErrNameCollision)

	_, err = Generate(Config{Package: "p", Element: tensor.Float32}, p, p)
	assert.ErrorIs(t, err, ErrNameCollision)
}

func TestGenerateReservedNames(t *testing.T) {
	for _, name := range []string{"tensor", "nn", "copy", "float32"} {
		t.Run(name, func(t *testing.T) {
			_, err := Generate(Config{Package: "p", Element: tensor.Float32}, planFor(t, name+":input(4) -> dense(2)"))
			assert.ErrorIs(t, err, ErrNameCollision)
		})
	}

	// The constructor helper of a parameterised layer is a file-level name too.
	_, err := Generate(Config{Package: "p", Element: tensor.Float32}, planFor(t, "newDense4To2:input(4) -> dense(2)"))
	assert.ErrorIs(t, err, ErrNameCollision)

	_, err = Generate(Config{Package: "p", Element: tensor.Float32},
		planFor(t, "A:input(4) -> dense(2)"), planFor(t, "newDense4To2:input(8) -> relu"))
	assert.ErrorIs(t, err, ErrNameCollision)
}
