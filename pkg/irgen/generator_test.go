package irgen

import (
	"errors"
	"strings"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/nalgeon/be"
	"github.com/raymyers/epycc/pkg/cabs"
	"github.com/raymyers/epycc/pkg/ctypes"
	"github.com/raymyers/epycc/pkg/lexer"
	"github.com/raymyers/epycc/pkg/oplib"
	"github.com/raymyers/epycc/pkg/parser"
	"github.com/raymyers/epycc/pkg/symtab"
)

func parse(t *testing.T, src string) *cabs.Program {
	t.Helper()
	p := parser.New(lexer.New(src))
	prog := p.ParseProgram()
	if len(p.Errors()) > 0 {
		t.Fatalf("parser errors: %v", p.Errors())
	}
	return prog
}

func generate(t *testing.T, src string) *Unit {
	t.Helper()
	unit, err := Generate(parse(t, src), Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return unit
}

func generateErr(t *testing.T, src string) error {
	t.Helper()
	unit, err := Generate(parse(t, src), Options{})
	if err == nil {
		t.Fatalf("expected an error, got module:\n%s", unit.Module)
	}
	return err
}

func function(t *testing.T, u *Unit, name string) *ir.Func {
	t.Helper()
	for _, f := range u.Module.Funcs {
		if f.Name() == name {
			return f
		}
	}
	t.Fatalf("no function %s", name)
	return nil
}

func callee(inst ir.Instruction) string {
	c, ok := inst.(*ir.InstCall)
	if !ok {
		return ""
	}
	if f, ok := c.Callee.(*ir.Func); ok {
		return f.Name()
	}
	return ""
}

// calls lists the functions called by f in block order.
func calls(f *ir.Func) []string {
	var names []string
	for _, blk := range f.Blocks {
		for _, inst := range blk.Insts {
			if name := callee(inst); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

func countCalls(f *ir.Func, name string) int {
	n := 0
	for _, c := range calls(f) {
		if c == name {
			n++
		}
	}
	return n
}

func countTerms[T ir.Terminator](f *ir.Func) int {
	n := 0
	for _, blk := range f.Blocks {
		if _, ok := blk.Term.(T); ok {
			n++
		}
	}
	return n
}

func TestAddFunction(t *testing.T) {
	u := generate(t, "int add(int a, int b) { return a + b; }")
	f := function(t, u, "add")

	be.Equal(t, len(f.Params), 2)
	for _, p := range f.Params {
		be.True(t, p.Type().Equal(types.I32))
	}
	be.Equal(t, calls(f), []string{"add__int__int__int"})
	be.Equal(t, countTerms[*ir.TermRet](f), 1)
	be.Equal(t, u.Externs, []string{"add__int__int__int"})

	be.Equal(t, len(u.Functions), 1)
	be.Equal(t, u.Functions[0].String(), "int add(int, int)")
}

func TestInitializerConversion(t *testing.T) {
	u := generate(t, "int f(void) { char c = 300; return c; }")
	f := function(t, u, "f")
	// 300 is an int constant: converted to char for the store, then back
	// to int for the return.
	be.Equal(t, calls(f), []string{"cnv__char__int", "cnv__int__char"})
}

func TestBoolReturnConversion(t *testing.T) {
	u := generate(t, "_Bool add(char a, char b) { return a + b; }")
	f := function(t, u, "add")
	be.Equal(t, calls(f), []string{
		"cnv__int__char", "cnv__int__char", "add__int__int__int", "cnv___Bool__int",
	})
	be.True(t, f.Sig.RetType.Equal(types.I1))
}

func TestBoolParameterIsZeroExtended(t *testing.T) {
	u := generate(t, "int f(_Bool b) { return b; }")
	text := u.Module.String()
	be.True(t, strings.Contains(text, "i1 zeroext %b"))
	be.Equal(t, calls(function(t, u, "f")), []string{"cnv__int___Bool"})
}

func TestRuntimeArrayInLoop(t *testing.T) {
	u := generate(t, `
void f(int n) {
    for (int i = 0; i < n; i++) {
        int buf[n];
        buf[0] = i;
    }
}`)
	f := function(t, u, "f")
	be.Equal(t, countCalls(f, "llvm.stacksave"), 1)
	be.Equal(t, countCalls(f, "llvm.stackrestore"), 1)

	// The body saves, allocates, indexes through a widened offset and
	// restores before branching to the step block.
	var body *ir.Block
	for _, blk := range f.Blocks {
		if strings.HasPrefix(blk.Name(), "for.body") {
			body = blk
		}
	}
	be.True(t, body != nil)

	var seq []string
	for _, inst := range body.Insts {
		switch inst := inst.(type) {
		case *ir.InstAlloca:
			be.True(t, inst.NElems != nil)
			seq = append(seq, "alloca")
		case *ir.InstCall:
			seq = append(seq, callee(inst))
		case *ir.InstGetElementPtr:
			be.Equal(t, len(inst.Indices), 1)
			seq = append(seq, "gep")
		}
	}
	be.Equal(t, seq, []string{
		"cnv__unsigned_long_long__int",
		"llvm.stacksave",
		"alloca",
		"cnv__unsigned_long_long__int",
		"gep",
		"llvm.stackrestore",
	})
	succs := body.Term.Succs()
	be.Equal(t, len(succs), 1)
	be.True(t, strings.HasPrefix(succs[0].Name(), "for.step"))
	checkStackBalance(t, f)
}

func TestRuntimeArrayMultiDimensional(t *testing.T) {
	u := generate(t, `
int f(int n, int i, int j) {
    int a[n][4];
    a[i][j] = 7;
    return a[i][j];
}`)
	f := function(t, u, "f")
	// a[i][j] is offset i*4 + j, computed twice.
	be.Equal(t, countCalls(f, "mul__unsigned_long_long__unsigned_long_long__unsigned_long_long"), 3)
	be.Equal(t, countCalls(f, "add__unsigned_long_long__unsigned_long_long__unsigned_long_long"), 2)
}

// checkStackBalance walks every path from the entry block counting saved
// stack pointers. Every block must be reached with the same count from all
// of its predecessors, and the count never goes negative.
func checkStackBalance(t *testing.T, f *ir.Func) {
	t.Helper()
	entry := f.Blocks[0]
	depth := map[*ir.Block]int{entry: 0}
	work := []*ir.Block{entry}
	for len(work) > 0 {
		blk := work[0]
		work = work[1:]
		d := depth[blk]
		for _, inst := range blk.Insts {
			switch callee(inst) {
			case "llvm.stacksave":
				d++
			case "llvm.stackrestore":
				d--
			}
			if d < 0 {
				t.Fatalf("block %s restores more than it saved", blk.Name())
			}
		}
		for _, succ := range blk.Term.Succs() {
			if old, seen := depth[succ]; seen {
				if old != d {
					t.Errorf("block %s reached with %d and %d saved stack pointers", succ.Name(), old, d)
				}
				continue
			}
			depth[succ] = d
			work = append(work, succ)
		}
	}
}

func TestRuntimeArrayStackBalance(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"continue", `
void f(int n) {
    for (int i = 0; i < n; i++) {
        int buf[n];
        if (i) continue;
        buf[0] = i;
    }
}`},
		{"break", `
void f(int n) {
    int i = 0;
    while (i < n) {
        int buf[n];
        if (i) break;
        buf[i] = i;
        i++;
    }
}`},
		{"nested scopes", `
void f(int n) {
    do {
        int a[n];
        {
            int b[n];
            if (n) continue;
            b[0] = 1;
        }
        a[0] = 1;
    } while (n);
}`},
		{"save after break", `
void f(int n) {
    while (n) {
        if (n) break;
        int a[n];
        a[0] = n;
    }
}`},
		{"return skips restore", `
int f(int n) {
    int a[n];
    a[0] = 1;
    if (n) return a[0];
    return 0;
}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := generate(t, tt.src)
			checkStackBalance(t, function(t, u, "f"))
		})
	}
}

func TestReturnRestoresNothing(t *testing.T) {
	u := generate(t, "int f(int n) { int a[n]; a[0] = 1; return a[0]; }")
	f := function(t, u, "f")
	be.Equal(t, countCalls(f, "llvm.stacksave"), 1)
	be.Equal(t, countCalls(f, "llvm.stackrestore"), 0)
}

func TestParameterRedeclaration(t *testing.T) {
	err := generateErr(t, "int f(int a) { int a; return 0; }")
	be.True(t, errors.Is(err, ErrScope))
	be.True(t, errors.Is(err, symtab.ErrRedefined))

	u := generate(t, `
int f(int a) {
    {
        double a;
        a = 1.5;
    }
    return a;
}`)
	f := function(t, u, "f")
	// The inner a is a double; the returned a is still the int parameter.
	be.Equal(t, calls(f), []string(nil))
}

func TestTerminators(t *testing.T) {
	tests := []struct {
		name string
		src  string
		rets int
	}{
		{"dead code after return", "int f(int x) { return x; x = 2; return 3; }", 1},
		{"return in both branches", "int f(int x) { if (x) return 1; else return 2; }", 2},
		{"break then code", "void f(int x) { while (x) { break; x = 1; } }", 1},
		{"continue then code", "void f(int x) { for (;;) { continue; x = 1; } }", 0},
		{"fall off void", "void f(void) { }", 1},
		{"nested loops", `
int f(int n) {
    int s = 0;
    for (int i = 0; i < n; i++) {
        for (int j = 0; j < n; j++) {
            if (j > i) break;
            if (j == i) continue;
            s += j;
        }
    }
    return s;
}`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := function(t, generate(t, tt.src), "f")
			names := map[*ir.Block]bool{}
			for _, blk := range f.Blocks {
				be.True(t, blk.Term != nil)
				be.True(t, !strings.HasPrefix(blk.Name(), "unreachable"))
				names[blk] = true
			}
			for _, blk := range f.Blocks {
				for _, succ := range blk.Term.Succs() {
					be.True(t, names[succ])
				}
			}
			be.Equal(t, countTerms[*ir.TermRet](f), tt.rets)
		})
	}
}

func TestFallOffNonVoidIsUnreachable(t *testing.T) {
	f := function(t, generate(t, "int f(int x) { if (x) return 1; }"), "f")
	be.Equal(t, countTerms[*ir.TermRet](f), 1)
	be.Equal(t, countTerms[*ir.TermUnreachable](f), 1)
}

func TestFixedArrayIndexing(t *testing.T) {
	u := generate(t, `
int f(int i, int j) {
    int a[3][5];
    a[i][j] = 1;
    return a[i][j];
}`)
	f := function(t, u, "f")
	geps := 0
	for _, blk := range f.Blocks {
		for _, inst := range blk.Insts {
			if gep, ok := inst.(*ir.InstGetElementPtr); ok {
				geps++
				be.Equal(t, len(gep.Indices), 3)
			}
		}
	}
	be.Equal(t, geps, 2)
	be.Equal(t, calls(f), []string(nil))
}

func TestStructs(t *testing.T) {
	u := generate(t, `
struct point { int x; double y; };
double f(int v) {
    struct point p;
    struct point *q;
    struct point ps[2];
    p.x = v;
    q = &p;
    q->y = q->x;
    ps[1].y = p.y;
    return ps[1].y;
}`)
	f := function(t, u, "f")
	be.Equal(t, calls(f), []string{"cnv__double__int"})
	text := u.Module.String()
	be.True(t, strings.Contains(text, "alloca { i32, double }"))
	be.True(t, strings.Contains(text, "alloca [2 x { i32, double }]"))
}

func TestArrayArgumentDecays(t *testing.T) {
	u := generate(t, `
int sum(int a[], int n);
int g(void) {
    int v[4];
    v[0] = 1;
    return sum(v, 4);
}`)
	g := function(t, u, "g")
	be.Equal(t, calls(g), []string{"sum"})
	be.Equal(t, len(u.Functions), 1)
	be.Equal(t, u.Functions[0].Name, "g")

	sum := function(t, u, "sum")
	be.Equal(t, len(sum.Blocks), 0)
	be.True(t, sum.Params[0].Type().Equal(types.NewPointer(types.I32)))
}

func TestRecursionWithPrototype(t *testing.T) {
	u := generate(t, `
long fact(long n);
long fact(long n) {
    if (n < 2) return 1;
    return n * fact(n - 1);
}`)
	f := function(t, u, "fact")
	be.Equal(t, calls(f), []string{
		"cnv__long__int", "lt__long__long__long", "cnv___Bool__long",
		"cnv__long__int",
		"cnv__long__int", "sub__long__long__long", "fact", "mul__long__long__long",
	})
}

func TestOperators(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"compound assignment", "void f(unsigned u) { u += 2; }",
			[]string{"cnv__unsigned_int__int", "add__unsigned_int__unsigned_int__unsigned_int"}},
		{"post increment", "int f(short s) { return s++; }",
			[]string{"cnv__int__short", "add__int__int__int", "cnv__short__int", "cnv__int__short"}},
		{"unary minus promotes", "int f(char c) { return -c; }",
			[]string{"cnv__int__char", "sub__int__int"}},
		{"logical not", "int f(unsigned long x) { return !x; }",
			[]string{"not__unsigned_long__unsigned_long", "cnv__int__unsigned_long"}},
		{"relational keeps common type", "int f(float a, double b) { return a < b; }",
			[]string{"cnv__double__float", "lt__double__double__double", "cnv__int__double"}},
		{"cast", "int f(double d) { return (int)d + (int)d; }",
			[]string{"cnv__int__double", "cnv__int__double", "add__int__int__int"}},
		{"cast to same type", "int f(int d) { return (int)d; }", nil},
		{"float constant", "float f(void) { return 1.5f; }", nil},
		{"char constant", "int f(void) { return 'a'; }", nil},
		{"logical and", "int f(int a, int b) { return a && b; }", []string{"and__int__int__int"}},
		{"comma", "int f(int a, int b) { return a, b; }", nil},
		{"conditional", "double f(int c, int a, double b) { return c ? a : b; }",
			[]string{"cnv___Bool__int", "cnv__double__int"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := function(t, generate(t, tt.src), "f")
			be.Equal(t, calls(f), tt.want)
		})
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"global variable", "int x;", ErrStructural},
		{"undeclared identifier", "int f(void) { return y; }", ErrScope},
		{"undeclared function", "int f(void) { return g(); }", ErrScope},
		{"modulo on double", "double f(double a) { return a % a; }", ErrType},
		{"bitwise not on float", "float f(float a) { return ~a; }", ErrType},
		{"conflicting prototype", "int f(int a); int f(long a) { return 0; }", ErrType},
		{"function redefinition", "int f(void) { return 0; } int f(void) { return 1; }", ErrScope},
		{"duplicate parameter", "int f(int a, int a) { return a; }", ErrScope},
		{"break outside loop", "void f(void) { break; }", ErrStructural},
		{"continue outside loop", "void f(void) { continue; }", ErrStructural},
		{"value from void function", "void f(void) { return 1; }", ErrType},
		{"missing return value", "int f(void) { return; }", ErrType},
		{"argument count", "int g(int a); int f(void) { return g(); }", ErrType},
		{"assign to array", "void f(void) { int a[2]; int b[2]; a = b; }", ErrType},
		{"assign to rvalue", "void f(int a) { a + 1 = 2; }", ErrType},
		{"unknown member", "struct s { int x; }; int f(void) { struct s v; return v.y; }", ErrType},
		{"undeclared struct", "int f(void) { struct s v; return 0; }", ErrScope},
		{"pointer arithmetic", "int f(int *p) { return *(p + 1); }", ErrType},
		{"void variable", "void f(void) { void v; }", ErrType},
		{"initialized runtime array", "void f(int n) { int a[n] = 0; }", ErrStructural},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := generateErr(t, tt.src)
			be.True(t, errors.Is(err, tt.want))
			var gerr *Error
			be.True(t, errors.As(err, &gerr))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := generateErr(t, "int f(void) { return y; }")
	be.Equal(t, err.Error(), "scope error in function f: undeclared identifier y")
}

func TestCatalogRestrictsOperations(t *testing.T) {
	_, err := Generate(parse(t, "int f(int a) { return a + a; }"), Options{Catalog: &oplib.Catalog{}})
	be.Err(t, err, ErrType)
}

func TestSignatures(t *testing.T) {
	u := generate(t, `
void a(void) { }
unsigned long b(char c, double *d) { return c; }
`)
	be.Equal(t, len(u.Functions), 2)
	be.Equal(t, u.Functions[0].String(), "void a()")
	be.Equal(t, u.Functions[1].Params, []ctypes.Type{
		ctypes.Scalar(ctypes.Char), ctypes.Pointer(ctypes.Scalar(ctypes.Double)),
	})
	be.Equal(t, u.Functions[1].Return, ctypes.Type(ctypes.Scalar(ctypes.ULong)))
}
