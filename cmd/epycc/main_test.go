package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/raymyers/epycc/pkg/irgen"
)

const addSource = "int add(int a, int b) { return a + b; }\n"

// writeSource writes content to test.c in a fresh directory.
func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.c")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

// execute runs the root command and returns stdout, stderr and the error.
func execute(args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(normalizeFlags(args))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	if version == "" {
		t.Error("version should not be empty")
	}
}

func TestFlagsExist(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)

	for _, name := range []string{"dparse", "externs", "signatures", "verbose", "output", "oplib", "gen-oplib"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected flag --%s to exist", name)
		}
	}
}

func TestNormalizeFlags(t *testing.T) {
	tests := []struct {
		input []string
		want  []string
	}{
		{[]string{"-dparse", "a.c"}, []string{"--dparse", "a.c"}},
		{[]string{"-externs", "-signatures"}, []string{"--externs", "--signatures"}},
		{[]string{"-o", "out.ll", "a.c"}, []string{"-o", "out.ll", "a.c"}},
		{[]string{"--dparse"}, []string{"--dparse"}},
		{[]string{"-v"}, []string{"-v"}},
	}
	for _, tt := range tests {
		be.Equal(t, normalizeFlags(tt.input), tt.want)
	}
}

func TestNoArgsPrintsHelp(t *testing.T) {
	out, _, err := execute()
	be.Err(t, err, nil)
	be.True(t, strings.Contains(out, "epycc [file]"))
}

func TestCompileWritesLLFile(t *testing.T) {
	src := writeSource(t, addSource)
	_, _, err := execute(src)
	be.Err(t, err, nil)

	data, err := os.ReadFile(strings.TrimSuffix(src, ".c") + ".ll")
	be.Err(t, err, nil)
	ir := string(data)
	be.True(t, strings.Contains(ir, "define i32 @add(i32 %a, i32 %b)"))
	be.True(t, strings.Contains(ir, "declare i32 @add__int__int__int("))
}

func TestCompileOutputFlag(t *testing.T) {
	src := writeSource(t, addSource)
	dest := filepath.Join(t.TempDir(), "out.ll")
	_, _, err := execute("-o", dest, src)
	be.Err(t, err, nil)

	_, err = os.Stat(dest)
	be.Err(t, err, nil)
}

func TestCompileToStdout(t *testing.T) {
	src := writeSource(t, addSource)
	out, _, err := execute("-o", "-", src)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(out, "call i32 @add__int__int__int("))
}

func TestListExterns(t *testing.T) {
	src := writeSource(t, "double f(int a, double b) { return a * b; }")
	out, _, err := execute("-externs", src)
	be.Err(t, err, nil)
	be.Equal(t, out, "cnv__double__int\nmul__double__double__double\n")
}

func TestListSignatures(t *testing.T) {
	src := writeSource(t, "int add(int a, int b) { return a + b; }\nvoid nop(void) {}\n")
	out, _, err := execute("--signatures", src)
	be.Err(t, err, nil)
	be.Equal(t, out, "int add(int, int)\nvoid nop()\n")
}

func TestDParse(t *testing.T) {
	src := writeSource(t, "int main() { return 0; }")
	out, _, err := execute("-dparse", src)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(out, "int main()"))
	be.True(t, strings.Contains(out, "return 0;"))

	parsed, err := os.ReadFile(strings.TrimSuffix(src, ".c") + ".parsed.c")
	be.Err(t, err, nil)
	be.Equal(t, string(parsed), out)
}

func TestFileNotFound(t *testing.T) {
	_, errOut, err := execute(filepath.Join(t.TempDir(), "missing.c"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	be.True(t, strings.Contains(errOut, "epycc: error reading"))
}

func TestParseErrorsArePositioned(t *testing.T) {
	src := writeSource(t, "int f( { return 0; }")
	_, errOut, err := execute(src)
	if err == nil {
		t.Fatal("expected a parse error")
	}
	be.True(t, strings.Contains(errOut, src+": line 1, col "))
}

func TestGenerationErrorIsReported(t *testing.T) {
	src := writeSource(t, "int f(void) { return y; }")
	_, errOut, err := execute(src)
	be.True(t, errors.Is(err, irgen.ErrScope))
	be.Equal(t, errOut, src+": scope error in function f: undeclared identifier y\n")

	_, statErr := os.Stat(strings.TrimSuffix(src, ".c") + ".ll")
	be.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestVerbose(t *testing.T) {
	src := writeSource(t, addSource)
	_, errOut, err := execute("--verbose", "-o", "-", src)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(errOut, "epycc: compiling "+src))
	be.True(t, strings.Contains(errOut, "epycc: 1 functions, 1 externs"))
}

func TestVerboseFromEnv(t *testing.T) {
	t.Setenv("EPYCC_VERBOSE", "1")
	src := writeSource(t, addSource)
	_, errOut, err := execute("-o", "-", src)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(errOut, "epycc: compiling"))
}

func TestGenOplib(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "oplib.c")
	_, _, err := execute("--gen-oplib", dest)
	be.Err(t, err, nil)

	data, err := os.ReadFile(dest)
	be.Err(t, err, nil)
	src := string(data)
	be.True(t, strings.Contains(src, "int add__int__int__int(int a, int b) { return "))
	be.True(t, strings.Contains(src, "_Bool cnv___Bool__int(int a) { return "))
}

// libraryIR is the shape of a compiler's IR output for the library source.
const libraryIR = `; ModuleID = 'oplib.c'
source_filename = "oplib.c"

; Function Attrs: noinline nounwind
define dso_local i32 @add__int__int__int(i32 noundef %0, i32 noundef %1) #0 {
  %3 = add nsw i32 %0, %1
  ret i32 %3
}

define dso_local i32 @sub__int__int__int(i32 noundef %0, i32 noundef %1) #0 {
  %3 = sub nsw i32 %0, %1
  ret i32 %3
}

attributes #0 = { noinline nounwind }
`

func writeLibrary(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oplib.ll")
	if err := os.WriteFile(path, []byte(libraryIR), 0644); err != nil {
		t.Fatalf("failed to write library: %v", err)
	}
	return path
}

func TestOplibLinksDefinitions(t *testing.T) {
	src := writeSource(t, addSource)
	out, _, err := execute("--oplib", writeLibrary(t), "-o", "-", src)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(out, "define dso_local i32 @add__int__int__int(i32 noundef %0, i32 noundef %1) {"))
	be.True(t, strings.Contains(out, "add nsw i32 %0, %1"))
	be.True(t, !strings.Contains(out, "declare i32 @add__int__int__int"))
	be.True(t, !strings.Contains(out, "@sub__int__int__int"))
}

func TestOplibFromEnv(t *testing.T) {
	t.Setenv("EPYCC_OPLIB", writeLibrary(t))
	src := writeSource(t, addSource)
	out, _, err := execute("-o", "-", src)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(out, "add nsw i32 %0, %1"))
}

func TestOplibMissingDefinition(t *testing.T) {
	src := writeSource(t, "int mul(int a, int b) { return a * b; }")
	_, errOut, err := execute("--oplib", writeLibrary(t), "-o", "-", src)
	if err == nil {
		t.Fatal("expected a link error")
	}
	be.True(t, strings.Contains(errOut, "operation library has no definition of @mul__int__int__int"))
}

func TestReplaceExt(t *testing.T) {
	tests := []struct {
		input, ext, want string
	}{
		{"test.c", ".ll", "test.ll"},
		{"/path/to/file.c", ".parsed.c", "/path/to/file.parsed.c"},
		{"noext", ".ll", "noext.ll"},
	}
	for _, tt := range tests {
		be.Equal(t, replaceExt(tt.input, tt.ext), tt.want)
	}
}
