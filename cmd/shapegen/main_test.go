package main

import (
	"bytes"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/typednet/internal/netdef"
)

const netsYAML = `package: nets
networks:
  - name: MNIST
    input: 784
    layers:
      - dense: 128
      - relu
      - dense: 10
  - name: ConvNet
    dsl: input(1,28,28) -> conv(8,3) -> relu -> dense(10) -> sigmoid
`

func writeDefs(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("GOPACKAGE", "")
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestVersionAndUsage(t *testing.T) {
	out, _, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "shapegen "+version+"\n", out)

	_, stderr, err := runCmd(t)
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr, "Usage: shapegen")

	_, _, err = runCmd(t, "train")
	assert.ErrorContains(t, err, `unknown command "train"`)

	_, _, err = runCmd(t, "gen", "-h")
	assert.NoError(t, err)

	_, _, err = runCmd(t, "gen", "-bogus")
	assert.ErrorIs(t, err, errUsage)
}

func TestGenFromFile(t *testing.T) {
	in := writeDefs(t, netsYAML)
	out := filepath.Join(t.TempDir(), "nets_gen.go")

	_, _, err := runCmd(t, "gen", "-in", in, "-o", out)
	require.NoError(t, err)

	src, err := os.ReadFile(out)
	require.NoError(t, err)
	file, err := parser.ParseFile(token.NewFileSet(), out, src, parser.ParseComments)
	require.NoError(t, err)
	assert.Equal(t, "nets", file.Name.Name)
	assert.Contains(t, string(src), "// Source: nets.yaml")
	assert.Contains(t, string(src), "type MNIST struct")
	assert.Contains(t, string(src), "type ConvNet struct")
	assert.Contains(t, string(src), "*[784]float32")

	info, err := os.Stat(out)
	require.NoError(t, err)

	// An unchanged file is left alone.
	_, _, err = runCmd(t, "gen", "-in", in, "-o", out)
	require.NoError(t, err)
	again, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), again.ModTime())
}

func TestGenFromDSL(t *testing.T) {
	out, _, err := runCmd(t, "gen", "-dsl", "input(4) -> dense(2) -> sigmoid", "-name", "Small", "-pkg", "small", "-elem", "float64")
	require.NoError(t, err)
	assert.Contains(t, out, "package small")
	assert.Contains(t, out, "func (n *Small) Forward(input *[4]float64) *[2]float64")
	assert.NotContains(t, out, "// Source:")
}

func TestGenPackageFromEnvironment(t *testing.T) {
	in := writeDefs(t, netsYAML)
	t.Setenv("GOPACKAGE", "fromenv")
	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"gen", "-in", in}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "package fromenv")
}

func TestGenErrorsWriteNothing(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "bad_gen.go")

	tests := []struct {
		name string
		args []string
		want error
	}{
		{
			name: "shape chain",
			args: []string{"-dsl", "input(784) -> dense(128) -> dense(10, in=64)", "-name", "Bad", "-pkg", "p"},
			want: netdef.ErrShapeChain,
		},
		{
			name: "conv too small",
			args: []string{"-dsl", "input(1,2,2) -> conv(4,3)", "-name", "Bad", "-pkg", "p"},
			want: netdef.ErrConvOutputNonPositive,
		},
		{
			name: "bad definition file",
			args: []string{"-in", writeDefs(t, "networks:\n  - name: X\n    input: 4\n    layers:\n      - pool: 2\n"), "-pkg", "p"},
		},
		{
			name: "no package",
			args: []string{"-dsl", "input(4) -> relu", "-name", "Ok"},
		},
		{
			name: "no source",
			args: []string{"-pkg", "p"},
		},
		{
			name: "dsl without name",
			args: []string{"-dsl", "input(4) -> relu", "-pkg", "p"},
		},
		{
			name: "bad element",
			args: []string{"-dsl", "input(4) -> relu", "-name", "Ok", "-pkg", "p", "-elem", "int8"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"gen", "-o", out}, tt.args...)
			_, _, err := runCmd(t, args...)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			assert.NoFileExists(t, out)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries, "no temporary files are left behind")
		})
	}
}

func TestCheck(t *testing.T) {
	in := writeDefs(t, netsYAML)

	out, _, err := runCmd(t, "check", "-in", in)
	require.NoError(t, err)
	assert.Contains(t, out, "MNIST[Dense<784,128> ReLU<128> Dense<128,10>]")
	assert.Contains(t, out, "input (784), output (10), 101770 parameters, widest activation 784")
	assert.Contains(t, out, "ok: 2 networks")
	assert.NotContains(t, out, "ran ")

	out, _, err = runCmd(t, "check", "-in", in, "-run", "-elem", "float64")
	require.NoError(t, err)
	assert.Contains(t, out, "ran float64 forward: output (10)")
}

func TestPlan(t *testing.T) {
	out, _, err := runCmd(t, "plan", "-dsl", "input(784) -> dense(128) -> relu -> dense(10)", "-name", "MNIST")
	require.NoError(t, err)
	assert.Equal(t, `MNIST[Dense<784,128> ReLU<128> Dense<128,10>]
buffers: 2 scratch x 784, final x 10
  0 Dense784To128  a -> b
  1 ReLU128        b -> a
  2 Dense128To10   a -> final
`, out)
}
