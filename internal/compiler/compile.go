package compiler

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/you-not-fish/kestrel/internal/cfg"
	"github.com/you-not-fish/kestrel/internal/ssa"
	"github.com/you-not-fish/kestrel/internal/ssa/passes"
	"github.com/you-not-fish/kestrel/internal/types"
)

// Options control CompileMethod and CompileAll.
type Options struct {
	Passes passes.Config

	// Pipeline is run after translation. Nil selects DefaultPipeline.
	Pipeline []passes.Pass

	// Parallelism bounds the methods CompileAll translates at once.
	// Zero or less means GOMAXPROCS.
	Parallelism int
}

// DefaultPipeline returns the lowering passes: views become structures,
// structure loads and stores are split per field, and the values left
// unused are removed.
func (c *Context) DefaultPipeline() []passes.Pass {
	return []passes.Pass{
		passes.LowerViews(c.Types),
		passes.LowerStructures(c.Types),
		passes.DeadCode,
	}
}

// CompileMethod builds the SSA form of m and runs the pipeline on it.
func CompileMethod(c *Context, m *cfg.Method, opts Options) (*ssa.Func, error) {
	if err := c.checkLayouts(m); err != nil {
		return nil, fmt.Errorf("%s: %w", m.Name, err)
	}

	params := append([]types.Type(nil), m.Params...)
	f := ssa.NewFunc(m.Name, params, m.Result)
	g, err := cfg.Build(f, m.Instrs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Name, err)
	}

	t := &translator{
		tc: c.Types,
		m:  m,
		f:  f,
		g:  g,
		bd: ssa.NewBuilder(f, ssa.BuilderConfig{NativeInt: c.ABI.NativeInt()}),
	}
	if err := t.run(); err != nil {
		return nil, err
	}
	f.Blocks = ssa.ReversePostOrder(f)

	pipeline := opts.Pipeline
	if pipeline == nil {
		pipeline = c.DefaultPipeline()
	}
	if err := passes.Run(f, pipeline, opts.Passes); err != nil {
		return nil, fmt.Errorf("%s: %w", m.Name, err)
	}
	return f, nil
}

// checkLayouts validates every structure and view m refers to against
// the target.
func (c *Context) checkLayouts(m *cfg.Method) error {
	check := func(T types.Type) error {
		if p, ok := T.(*types.Pointer); ok {
			T = p.Elem()
		}
		switch T.(type) {
		case *types.Struct, *types.View:
			_, err := c.ABI.Layout(T)
			return err
		}
		return nil
	}

	for _, T := range m.Params {
		if err := check(T); err != nil {
			return err
		}
	}
	for _, T := range m.Locals {
		if err := check(T); err != nil {
			return err
		}
	}
	if m.Result != nil {
		if err := check(m.Result); err != nil {
			return err
		}
	}
	for i := range m.Instrs {
		if T, ok := m.Instrs[i].Operand.(types.Type); ok {
			if err := check(T); err != nil {
				return err
			}
		}
	}
	return nil
}

// Result is the outcome of compiling one method.
type Result struct {
	Func *ssa.Func
	Err  error
}

// CompileAll compiles methods concurrently. Results are returned in the
// order of methods; a failing method does not affect the others.
func CompileAll(c *Context, methods []*cfg.Method, opts Options) []Result {
	n := opts.Parallelism
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(methods))
	sem := make(chan struct{}, n)
	var wg sync.WaitGroup
	for i, m := range methods {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, m *cfg.Method) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					results[i] = Result{Err: fmt.Errorf("%s: internal error: %v", m.Name, r)}
				}
			}()
			f, err := CompileMethod(c, m, opts)
			results[i] = Result{Func: f, Err: err}
		}(i, m)
	}
	wg.Wait()
	return results
}
