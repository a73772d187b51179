// Package main implements the kestrel compiler entry point.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/you-not-fish/kestrel/internal/abi"
	"github.com/you-not-fish/kestrel/internal/cfg"
	"github.com/you-not-fish/kestrel/internal/compiler"
	"github.com/you-not-fish/kestrel/internal/ssa"
	"github.com/you-not-fish/kestrel/internal/ssa/passes"
)

// Compiler flags
var (
	target     = flag.String("target", "ptx64", "Target backend ("+strings.Join(abi.TargetNames(), ", ")+")")
	emitSSA    = flag.Bool("emit-ssa", false, "Output SSA")
	emitLayout = flag.Bool("emit-layout", false, "Output struct layouts")
	version    = flag.Bool("version", false, "Print version")
	dumpFunc   = flag.String("dump-func", "", "Only dump specific function")
	ssaVerify  = flag.Bool("ssa-verify", false, "Verify SSA after each pass")
	dumpBefore = flag.String("dump-before", "", "Dump SSA before pass (name or \"*\")")
	dumpAfter  = flag.String("dump-after", "", "Dump SSA after pass (name or \"*\")")
	jobs       = flag.Int("j", 0, "Methods compiled in parallel (0 = GOMAXPROCS)")
)

// Version information
const Version = "0.1.0-dev"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Kestrel Compiler %s\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: kestrelc [options] <file.lst>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *version {
		fmt.Printf("kestrelc version %s\n", Version)
		fmt.Printf("go version %s\n", runtime.Version())
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "error: no input file")
		fmt.Fprintln(os.Stderr, "usage: kestrelc [options] <file.lst>")
		os.Exit(1)
	}

	filename := args[0]

	if *emitLayout {
		os.Exit(runEmitLayout(filename))
	}

	if *emitSSA {
		os.Exit(runEmitSSA(filename))
	}

	os.Exit(runCompile(filename))
}

// load creates a compilation context for the selected target and parses
// the listing in filename.
func load(filename string) (*compiler.Context, *cfg.Listing, bool) {
	t, err := abi.LookupTarget(*target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return nil, nil, false
	}
	ctx, err := compiler.NewContext(t)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return nil, nil, false
	}

	src, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		ctx.Close()
		return nil, nil, false
	}
	ctx.AddFile(filename, src)

	l, err := cfg.ParseListing(strings.NewReader(string(src)), ctx.Types)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", filename, err)
		ctx.Close()
		return nil, nil, false
	}
	return ctx, l, true
}

func options() compiler.Options {
	return compiler.Options{
		Passes: passes.Config{
			DumpBefore: *dumpBefore,
			DumpAfter:  *dumpAfter,
			Verify:     *ssaVerify,
			DumpFunc:   *dumpFunc,
		},
		Parallelism: *jobs,
	}
}

// compileAll compiles every method of l and reports the failures. It
// returns the compiled functions in listing order, nil for failed ones.
func compileAll(ctx *compiler.Context, filename string, l *cfg.Listing) ([]*ssa.Func, bool) {
	results := compiler.CompileAll(ctx, l.Methods, options())
	funcs := make([]*ssa.Func, len(results))
	ok := true
	for i, r := range results {
		if r.Err != nil {
			reportError(ctx, filename, r.Err)
			ok = false
			continue
		}
		funcs[i] = r.Func
	}
	return funcs, ok
}

// reportError prints err, followed by the offending source line when the
// error carries one.
func reportError(ctx *compiler.Context, filename string, err error) {
	fmt.Fprintf(os.Stderr, "%s: error: %v\n", filename, err)
	if line := errorLine(err); line > 0 {
		if f := ctx.File(filename); f != nil {
			fmt.Fprintf(os.Stderr, "    %d | %s\n", line, strings.TrimSpace(f.Line(line)))
		}
	}
}

// runCompile compiles every method and reports a summary.
func runCompile(filename string) int {
	ctx, l, ok := load(filename)
	if !ok {
		return 1
	}
	defer ctx.Close()

	funcs, ok := compileAll(ctx, filename, l)
	n := 0
	for _, f := range funcs {
		if f != nil {
			n++
		}
	}
	fmt.Printf("%s: compiled %d of %d methods for %s\n", filename, n, len(funcs), ctx.ABI.Target().Name())
	if !ok {
		return 1
	}
	return 0
}

// runEmitSSA compiles every method and prints its SSA form.
func runEmitSSA(filename string) int {
	ctx, l, ok := load(filename)
	if !ok {
		return 1
	}
	defer ctx.Close()

	funcs, ok := compileAll(ctx, filename, l)
	first := true
	for _, fn := range funcs {
		if fn == nil || (*dumpFunc != "" && fn.Name != *dumpFunc) {
			continue
		}
		if !first {
			fmt.Println()
		}
		first = false
		ssa.Print(fn)
	}
	if !ok {
		return 1
	}
	return 0
}

// runEmitLayout prints the managed layout and the native elements of every
// structure declared in the listing.
func runEmitLayout(filename string) int {
	ctx, l, ok := load(filename)
	if !ok {
		return 1
	}
	defer ctx.Close()

	sizes := ctx.ABI.Sizes()
	fmt.Printf("=== Struct Layouts (%s) ===\n", ctx.ABI.Target().Name())
	fmt.Println()

	code := 0
	for _, ns := range l.Structs {
		st := ns.Type
		fmt.Printf(".struct %s\n", ns.Name)
		for i, field := range st.Fields() {
			fmt.Printf("    %-10s %-15s // offset: %d, size: %d, align: %d\n",
				field.Name(), field.Type(), sizes.Offsetof(st, i), sizes.Sizeof(field.Type()), sizes.FieldAlign(st, i))
		}
		fmt.Printf(".end\n")

		layout, err := ctx.ABI.Layout(st)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %s: %v\n", ns.Name, err)
			fmt.Println()
			code = 1
			continue
		}
		elems, _ := ctx.ABI.AlignType(st)
		names := make([]string, len(elems))
		for i, e := range elems {
			names[i] = e.Type.String()
			if e.Padding {
				names[i] = "pad"
			}
		}
		fmt.Printf("// size: %d, align: %d\n", layout.Size, layout.Align)
		fmt.Printf("// native: {%s}\n", strings.Join(names, ", "))
		fmt.Println()
	}
	return code
}
