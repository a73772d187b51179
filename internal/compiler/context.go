// Package compiler translates method bodies into SSA functions and runs the
// lowering pipeline on them.
package compiler

import (
	"strings"
	"sync"

	"github.com/you-not-fish/kestrel/internal/abi"
	"github.com/you-not-fish/kestrel/internal/types"
)

// Context holds the state shared by every compilation for one target: the
// type interner, the ABI and the table of source files. It is safe for
// concurrent use.
type Context struct {
	Types *types.Context
	ABI   *abi.ABI

	mu    sync.RWMutex
	files map[string]*File
}

// NewContext creates a context for target.
func NewContext(target abi.Target) (*Context, error) {
	tc := types.NewContext()
	a, err := abi.New(tc, target)
	if err != nil {
		return nil, err
	}
	return &Context{
		Types: tc,
		ABI:   a,
		files: make(map[string]*File),
	}, nil
}

// Close releases the ABI caches. The context must not be used afterwards.
func (c *Context) Close() {
	c.ABI.Dispose()
}

// File is a registered source file.
type File struct {
	ID    int
	Name  string
	lines []string
}

// Line returns source line n (1-based), or "" if out of range.
func (f *File) Line(n int) string {
	if n < 1 || n > len(f.lines) {
		return ""
	}
	return f.lines[n-1]
}

// AddFile registers a source file. Registering a name twice returns the
// first registration.
func (c *Context) AddFile(name string, src []byte) *File {
	c.mu.RLock()
	f, ok := c.files[name]
	c.mu.RUnlock()
	if ok {
		return f
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.files[name]; ok {
		return f
	}
	f = &File{
		ID:    len(c.files),
		Name:  name,
		lines: strings.Split(string(src), "\n"),
	}
	c.files[name] = f
	return f
}

// File returns the registered file with the given name, or nil.
func (c *Context) File(name string) *File {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.files[name]
}
