package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleListing = `
.struct Pair
  a i32
  b i64
.end

.struct Small size 8
  x i32
.end

.struct Bad
  x i32 @4
.end

.method add(i32, i32) i32
  0: ldarg 0
  1: ldarg 1
  2: add
  3: ret
.end

.method first(*global Pair) i32
  0: ldarg 0
  1: ldobj Pair
  2: ldfld 0
  3: ret
.end
`

func TestRunEmitSSA(t *testing.T) {
	filename := writeTempListing(t, sampleListing)
	code, out, errOut := captureOutput(t, func() int {
		return runEmitSSA(filename)
	})

	if code != 0 {
		t.Fatalf("runEmitSSA exit=%d\nstderr:\n%s\nstdout:\n%s", code, errOut, out)
	}
	for _, want := range []string{
		"func add(i32, i32) i32:",
		"Add <i32>",
		"func first(*global struct{a i32; b i64}) i32:",
		"Load <i32>",
		"Load <i64>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("SSA output missing %q:\n%s", want, out)
		}
	}
}

func TestRunEmitSSADumpFunc(t *testing.T) {
	withFlag(t, dumpFunc, "first")
	filename := writeTempListing(t, sampleListing)
	code, out, errOut := captureOutput(t, func() int {
		return runEmitSSA(filename)
	})

	if code != 0 {
		t.Fatalf("runEmitSSA exit=%d\nstderr:\n%s", code, errOut)
	}
	if strings.Contains(out, "func add") || !strings.Contains(out, "func first") {
		t.Errorf("-dump-func first printed:\n%s", out)
	}
}

func TestRunEmitSSADumpAfter(t *testing.T) {
	withFlag(t, dumpAfter, "lowerstructs")
	withFlag(t, dumpFunc, "first")
	filename := writeTempListing(t, sampleListing)
	code, _, errOut := captureOutput(t, func() int {
		return runEmitSSA(filename)
	})

	if code != 0 {
		t.Fatalf("runEmitSSA exit=%d\nstderr:\n%s", code, errOut)
	}
	if !strings.Contains(errOut, "--- after lowerstructs (first) ---") {
		t.Errorf("dump missing from stderr:\n%s", errOut)
	}
	if strings.Contains(errOut, "(add)") {
		t.Errorf("dump not restricted to first:\n%s", errOut)
	}
}

func TestRunEmitLayout(t *testing.T) {
	filename := writeTempListing(t, sampleListing)
	code, out, errOut := captureOutput(t, func() int {
		return runEmitLayout(filename)
	})

	if code != 1 {
		t.Fatalf("runEmitLayout exit=%d, want 1 for the Bad struct\nstdout:\n%s", code, out)
	}
	for _, want := range []string{
		"=== Struct Layouts (ptx64) ===",
		".struct Pair",
		"b          i64             // offset: 8, size: 8, align: 8",
		"// size: 16, align: 8",
		"// native: {i32, i64}",
		"// native: {i32, pad, pad, pad, pad}",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("layout output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(errOut, "error: Bad: abi ExplicitOffset") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestRunCompile(t *testing.T) {
	filename := writeTempListing(t, sampleListing)
	code, out, errOut := captureOutput(t, func() int {
		return runCompile(filename)
	})

	if code != 0 {
		t.Fatalf("runCompile exit=%d\nstderr:\n%s", code, errOut)
	}
	if !strings.Contains(out, "compiled 2 of 2 methods for ptx64") {
		t.Errorf("summary = %q", out)
	}
}

func TestRunCompileReportsSourceLine(t *testing.T) {
	src := `.method f()
  0: ldc.r4 1
  1: ldc.r4 2
  2: or
  3: pop
  4: ret
.end
`
	filename := writeTempListing(t, src)
	code, out, errOut := captureOutput(t, func() int {
		return runCompile(filename)
	})

	if code != 1 {
		t.Fatalf("runCompile exit=%d, want 1", code)
	}
	if !strings.Contains(out, "compiled 0 of 1 methods") {
		t.Errorf("summary = %q", out)
	}
	if !strings.Contains(errOut, "error: f: offset 2: or:") || !strings.Contains(errOut, "    4 | 2: or") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		src    string
		want   string
	}{
		{"unknown target", "z80", "", `error: unknown target "z80"`},
		{"rejected target", "i386", "", "error: abi PrimitiveAlignment"},
		{"parse error", "ptx64", ".method f()\n  0: frob\n.end\n", `line 2: unknown opcode "frob"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withFlag(t, target, tt.target)
			filename := writeTempListing(t, tt.src)
			code, _, errOut := captureOutput(t, func() int {
				return runCompile(filename)
			})
			if code != 1 {
				t.Errorf("exit=%d, want 1", code)
			}
			if !strings.Contains(errOut, tt.want) {
				t.Errorf("stderr %q does not contain %q", errOut, tt.want)
			}
		})
	}
}

func TestMissingFile(t *testing.T) {
	code, _, errOut := captureOutput(t, func() int {
		return runCompile(filepath.Join(t.TempDir(), "missing.lst"))
	})
	if code != 1 || !strings.HasPrefix(errOut, "error: ") {
		t.Errorf("exit=%d stderr=%q", code, errOut)
	}
}

func withFlag[T any](t *testing.T, p *T, v T) {
	t.Helper()
	old := *p
	*p = v
	t.Cleanup(func() { *p = old })
}

func writeTempListing(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	filename := filepath.Join(dir, "input.lst")
	if err := os.WriteFile(filename, []byte(src), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return filename
}

func captureOutput(t *testing.T, fn func() int) (code int, stdout string, stderr string) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	rOut, wOut, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe stdout: %v", err)
	}
	rErr, wErr, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe stderr: %v", err)
	}

	os.Stdout = wOut
	os.Stderr = wErr

	code = fn()

	_ = wOut.Close()
	_ = wErr.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	outBytes, _ := io.ReadAll(rOut)
	errBytes, _ := io.ReadAll(rErr)
	_ = rOut.Close()
	_ = rErr.Close()

	return code, string(outBytes), string(errBytes)
}
