// Package main provides shapegen, the typednet code generator.
//
// shapegen reads network definitions, checks every layer's shapes and emits
// Go types whose Forward signatures carry those shapes:
//
//	//go:generate go run github.com/born-ml/typednet/cmd/shapegen gen -in nets.yaml -o nets_gen.go
//
// Commands:
//
//	gen       generate Go source for the networks
//	check     validate the networks and print a summary
//	plan      print each network's buffer plan
//	version   print the version
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"k8s.io/klog/v2"

	"github.com/born-ml/typednet/internal/codegen"
	"github.com/born-ml/typednet/internal/netdef"
	"github.com/born-ml/typednet/internal/nn"
	"github.com/born-ml/typednet/internal/plan"
	"github.com/born-ml/typednet/internal/tensor"
)

const version = "v0.1.0-dev"

// errUsage marks errors already reported by the flag package.
var errUsage = errors.New("usage")

func main() {
	defer klog.Flush()
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "shapegen: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr)
		return errUsage
	}

	cmd, args := args[0], args[1:]
	var err error
	switch cmd {
	case "gen":
		err = runGen(args, stdout, stderr)
	case "check":
		err = runCheck(args, stdout, stderr)
	case "plan":
		err = runPlan(args, stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "shapegen %s\n", version)
		return nil
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return nil
	default:
		usage(stderr)
		return fmt.Errorf("unknown command %q", cmd)
	}
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: shapegen <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  gen       generate Go source for the networks")
	fmt.Fprintln(w, "  check     validate the networks and print a summary")
	fmt.Fprintln(w, "  plan      print each network's buffer plan")
	fmt.Fprintln(w, "  version   print the version")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'shapegen <command> -h' for the flags of a command.")
}

// source holds the flags that select the networks to work on.
type source struct {
	in   string
	dsl  string
	name string
	elem string
	pkg  string
}

func newFlagSet(name string, stderr io.Writer, src *source) *flag.FlagSet {
	fs := flag.NewFlagSet("shapegen "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&src.in, "in", "", "YAML definition `file`")
	fs.StringVar(&src.dsl, "dsl", "", "single network in the arrow syntax, e.g. 'input(784) -> dense(10)'")
	fs.StringVar(&src.name, "name", "", "type name of the -dsl network")
	fs.StringVar(&src.elem, "elem", "", "element type, float32 or float64 (default: the file's, else float32)")
	klog.InitFlags(fs)
	return fs
}

// parse parses args. The flag package has already reported any error.
func parse(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	switch {
	case err == nil:
		if fs.NArg() > 0 {
			return fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
		}
		return nil
	case errors.Is(err, flag.ErrHelp):
		return err
	default:
		return errUsage
	}
}

// loaded is the outcome of reading and resolving the selected networks.
type loaded struct {
	nets    []*netdef.Network
	plans   []*plan.Plan
	element tensor.DataType
	pkg     string
	origin  string
}

func (s *source) load() (*loaded, error) {
	if (s.in == "") == (s.dsl == "") {
		return nil, errors.New("exactly one of -in and -dsl is required")
	}

	l := &loaded{pkg: s.pkg}
	var err error
	if s.in != "" {
		l.origin = filepath.Base(s.in)
		var file *netdef.File
		if file, err = netdef.LoadFile(s.in); err != nil {
			return nil, err
		}
		klog.V(1).Infof("read %d network definitions from %s", len(file.Networks), s.in)
		if l.nets, err = file.Resolve(); err != nil {
			return nil, fmt.Errorf("%s: %w", s.in, err)
		}
		l.element = file.Element
		if l.pkg == "" {
			l.pkg = file.Package
		}
	} else {
		if s.name == "" {
			return nil, errors.New("-dsl requires -name")
		}
		def, err := netdef.ParseDSL(s.name, s.dsl)
		if err != nil {
			return nil, fmt.Errorf("-dsl: %w", err)
		}
		net, err := netdef.Resolve(def)
		if err != nil {
			return nil, err
		}
		l.nets = []*netdef.Network{net}
	}

	if s.elem != "" {
		if l.element, err = tensor.ParseDataType(s.elem); err != nil {
			return nil, fmt.Errorf("-elem: %w", err)
		}
	}

	for _, net := range l.nets {
		p := plan.New(net)
		if err := p.Check(); err != nil {
			return nil, fmt.Errorf("network %s: %w", net.Name, err)
		}
		klog.V(2).Infof("planned %s: %d scratch buffers of %d elements", net.Name, p.Scratch, p.MaxSize)
		l.plans = append(l.plans, p)
	}
	return l, nil
}

func runGen(args []string, stdout, stderr io.Writer) error {
	var src source
	fs := newFlagSet("gen", stderr, &src)
	out := fs.String("o", "", "output `file` (default: stdout)")
	fs.StringVar(&src.pkg, "pkg", os.Getenv("GOPACKAGE"), "package of the generated file (default: $GOPACKAGE, else the file's)")
	if err := parse(fs, args); err != nil {
		return err
	}

	l, err := src.load()
	if err != nil {
		return err
	}
	if l.pkg == "" {
		return errors.New("no package name: set -pkg, $GOPACKAGE or the file's package")
	}

	code, err := codegen.Generate(codegen.Config{
		Package: l.pkg,
		Element: l.element,
		Source:  l.origin,
	}, l.plans...)
	if err != nil {
		return err
	}

	if *out == "" {
		_, err := stdout.Write(code)
		return err
	}
	if err := writeFile(*out, code); err != nil {
		return err
	}
	klog.Infof("wrote %d networks to %s", len(l.plans), *out)
	return nil
}

// writeFile replaces path only if its contents change, so go generate
// leaves an up-to-date file untouched.
func writeFile(path string, data []byte) error {
	if old, err := os.ReadFile(path); err == nil && bytes.Equal(old, data) {
		klog.V(1).Infof("%s is up to date", path)
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".shapegen-*.go")
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	//nolint:gosec // G302: generated source is world readable
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func runCheck(args []string, stdout, stderr io.Writer) error {
	var src source
	fs := newFlagSet("check", stderr, &src)
	exec := fs.Bool("run", false, "also build each network with random weights and run it once")
	seed := fs.Int64("seed", 1, "weight seed for -run")
	if err := parse(fs, args); err != nil {
		return err
	}

	l, err := src.load()
	if err != nil {
		return err
	}

	for _, p := range l.plans {
		net := p.Network
		fmt.Fprintf(stdout, "%s\n", net.Signature())
		fmt.Fprintf(stdout, "  input %v, output %v, %d parameters, widest activation %d\n",
			net.Input, net.Output, net.ParamCount(), net.MaxActivation())
		if !*exec {
			continue
		}

		var out tensor.Shape
		switch l.element {
		case tensor.Float64:
			out = runOnce[float64](p, *seed)
		default:
			out = runOnce[float32](p, *seed)
		}
		fmt.Fprintf(stdout, "  ran %s forward: output %v\n", l.element, out)
	}
	fmt.Fprintf(stdout, "ok: %d networks\n", len(l.plans))
	return nil
}

// runOnce builds the interpreted network for p and runs it on zeros.
func runOnce[T tensor.Float](p *plan.Plan, seed int64) tensor.Shape {
	n := nn.NewNetwork[T](p, rand.New(rand.NewSource(seed)))
	n.Forward(make([]T, p.Network.Input.NumElements()))
	return n.Output().Shape()
}

func runPlan(args []string, stdout, stderr io.Writer) error {
	var src source
	fs := newFlagSet("plan", stderr, &src)
	if err := parse(fs, args); err != nil {
		return err
	}

	l, err := src.load()
	if err != nil {
		return err
	}
	texts := make([]string, len(l.plans))
	for i, p := range l.plans {
		texts[i] = p.String()
	}
	_, err = io.WriteString(stdout, strings.Join(texts, "\n"))
	return err
}
