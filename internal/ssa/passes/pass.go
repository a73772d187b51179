// Package passes runs transformation passes over SSA functions and
// provides the generic rewriter the lowering passes are built on.
package passes

import (
	"fmt"
	"io"
	"os"

	"github.com/you-not-fish/kestrel/internal/ssa"
)

// Pass is a named transformation of one function.
type Pass struct {
	Name string
	Fn   func(f *ssa.Func)
}

// Config selects which stages of a pipeline are dumped and checked.
// DumpBefore and DumpAfter name a pass, or "*" for every pass.
type Config struct {
	DumpBefore string
	DumpAfter  string
	DumpFunc   string    // only dump this function; all if empty
	Verify     bool      // run ssa.Verify around each pass
	Log        io.Writer // dump destination, os.Stderr if nil
}

// Stage is the side of a pass a dump or verification happens on.
type Stage string

const (
	Before Stage = "before"
	After  Stage = "after"
)

// VerifyError reports a function that failed verification next to a
// pass of the pipeline.
type VerifyError struct {
	Func  string
	Pass  string
	Stage Stage
	Err   error
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("verify %s %s: %v", e.Stage, e.Pass, e.Err)
}

func (e *VerifyError) Unwrap() error { return e.Err }

// Run applies passes to f in order. With Verify set it stops at the first
// stage that leaves f malformed and returns a *VerifyError.
func Run(f *ssa.Func, passes []Pass, cfg Config) error {
	for _, p := range passes {
		cfg.dump(f, p.Name, Before)
		if err := cfg.verify(f, p.Name, Before); err != nil {
			return err
		}
		p.Fn(f)
		if err := cfg.verify(f, p.Name, After); err != nil {
			return err
		}
		cfg.dump(f, p.Name, After)
	}
	return nil
}

func (c *Config) verify(f *ssa.Func, pass string, s Stage) error {
	if !c.Verify {
		return nil
	}
	if err := ssa.Verify(f); err != nil {
		return &VerifyError{Func: f.Name, Pass: pass, Stage: s, Err: err}
	}
	return nil
}

func (c *Config) dump(f *ssa.Func, pass string, s Stage) {
	pattern := c.DumpBefore
	if s == After {
		pattern = c.DumpAfter
	}
	if pattern != "*" && pattern != pass {
		return
	}
	if c.DumpFunc != "" && c.DumpFunc != f.Name {
		return
	}
	w := c.Log
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "--- %s %s (%s) ---\n", s, pass, f.Name)
	ssa.Fprint(w, f)
	fmt.Fprintln(w)
}
