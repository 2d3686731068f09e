// Package irgen generates LLVM IR from a parsed C99 translation unit.
//
// Generated code performs no arithmetic of its own. Every operator and
// conversion is a call into the operation library, named by package oplib,
// so that the library's C compiler fixes extension, overflow and rounding
// behavior. Locals live in stack slots and every read reloads its slot.
package irgen

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/raymyers/epycc/pkg/cabs"
	"github.com/raymyers/epycc/pkg/ctypes"
	"github.com/raymyers/epycc/pkg/llbuild"
	"github.com/raymyers/epycc/pkg/oplib"
	"github.com/raymyers/epycc/pkg/symtab"
)

// Builder is the IR construction interface the generator drives.
// *llbuild.Builder implements it.
type Builder interface {
	Module() *ir.Module
	DeclareFunction(name string, ret types.Type, params ...*ir.Param) *ir.Func
	BeginFunction(f *ir.Func)
	FinishFunction() error

	CreateBlock(name string) *ir.Block
	SetInsertBlock(blk *ir.Block)
	InsertBlock() *ir.Block
	Terminated() bool

	AllocateStackSlot(t types.Type) value.Value
	AllocateDynamic(t types.Type, n value.Value) value.Value
	Load(t types.Type, addr value.Value) value.Value
	Store(v, addr value.Value)
	Call(name string, ret types.Type, args ...value.Value) value.Value
	CallFunc(f *ir.Func, args ...value.Value) value.Value
	ElementAddress(elem types.Type, base value.Value, indices ...value.Value) value.Value

	Branch(target *ir.Block)
	CondBranch(cond value.Value, then, els *ir.Block)
	Return(v value.Value)

	SaveStackPointer() value.Value
	RestoreStackPointer(tok value.Value)
}

// Options configures a Generator.
type Options struct {
	// Catalog lists the operation library functions that may be called.
	// Defaults to oplib.Default().
	Catalog *oplib.Catalog
	// Builder receives the generated IR. Defaults to a new llbuild.Builder.
	Builder Builder
}

// Signature is the native calling signature of a generated function.
type Signature struct {
	Name   string
	Params []ctypes.Type
	Return ctypes.Type
}

func (s Signature) String() string {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.String()
	}
	return fmt.Sprintf("%s %s(%s)", s.Return, s.Name, strings.Join(params, ", "))
}

// Unit is the result of generating one translation unit.
type Unit struct {
	Module *ir.Module
	// Functions holds the defined functions in source order.
	Functions []Signature
	// Externs lists the operation library functions referenced, sorted.
	Externs []string
}

// Generator translates one translation unit. It is not safe for
// concurrent use and must not be reused.
type Generator struct {
	b       Builder
	catalog *oplib.Catalog
	syms    *symtab.Table
	externs map[string]bool
	defined []Signature

	// construct names what is being generated, for diagnostics.
	construct string

	// Per-function state.
	ret    ctypes.Type
	frames []*frame
	loops  []loop
}

// New returns a generator configured by opts.
func New(opts Options) *Generator {
	g := &Generator{
		b:       opts.Builder,
		catalog: opts.Catalog,
		syms:    symtab.New(),
		externs: make(map[string]bool),
	}
	if g.catalog == nil {
		g.catalog = oplib.Default()
	}
	if g.b == nil {
		g.b = llbuild.New()
	}
	return g
}

// Generate translates prog with a fresh generator.
func Generate(prog *cabs.Program, opts Options) (*Unit, error) {
	return New(opts).Generate(prog)
}

// Generate translates prog. On error nothing is returned; there is no
// partial output.
func (g *Generator) Generate(prog *cabs.Program) (unit *Unit, err error) {
	defer g.recoverError(&err)

	for _, def := range prog.Definitions {
		switch d := def.(type) {
		case cabs.FunDef:
			g.function(d)
		case cabs.Declaration:
			g.globalDeclaration(d)
		default:
			panic(g.errorf(StructuralError, "unsupported definition %T", def))
		}
	}
	g.construct = ""
	if depth := g.syms.Depth(); depth != 1 {
		panic(g.errorf(InternalError, "symbol table left at depth %d", depth))
	}

	externs := make([]string, 0, len(g.externs))
	for name := range g.externs {
		externs = append(externs, name)
	}
	sort.Strings(externs)
	return &Unit{Module: g.b.Module(), Functions: g.defined, Externs: externs}, nil
}

// globalDeclaration handles prototypes and struct declarations. Global
// variables are not supported.
func (g *Generator) globalDeclaration(d cabs.Declaration) {
	g.construct = "global declaration"
	if len(d.Decls) == 0 {
		g.specType(d.Spec)
		return
	}
	for _, id := range d.Decls {
		g.construct = "declaration of " + id.Decl.Name
		if !id.Decl.IsFunc {
			panic(g.errorf(StructuralError, "global variable %s is not supported", id.Decl.Name))
		}
		g.declareFunction(d.Spec, id.Decl)
	}
}

// declareFunction returns the symbol of a function, declaring it on first
// sight. A later declaration must repeat the same signature.
func (g *Generator) declareFunction(spec cabs.TypeSpec, d cabs.Declarator) *symtab.Symbol {
	ft := g.functionType(spec, d)
	if sym := g.syms.Lookup(d.Name); sym != nil {
		if sym.Kind != symtab.Function {
			panic(g.wrapf(ScopeError, symtab.ErrRedefined, "%s redeclared as a function", d.Name))
		}
		if !ctypes.Equal(sym.Type, ft) {
			panic(g.errorf(TypeError, "conflicting types for %s: %s and %s", d.Name, sym.Type, ft))
		}
		return sym
	}

	params := make([]*ir.Param, len(ft.Params))
	for i, pt := range ft.Params {
		params[i] = ir.NewParam(d.Params[i].Decl.Name, g.llType(pt))
		if ctypes.Equal(pt, ctypes.Scalar(ctypes.Bool)) {
			params[i].Attrs = append(params[i].Attrs, enum.ParamAttrZeroExt)
		}
	}
	sym := symtab.NewSymbol(symtab.Function, d.Name, ft)
	sym.Func = g.b.DeclareFunction(d.Name, g.llType(ft.Return), params...)
	if err := g.syms.Insert(sym); err != nil {
		panic(g.wrapf(InternalError, err, "%v", err))
	}
	return sym
}

func (g *Generator) function(d cabs.FunDef) {
	name := d.Decl.Name
	g.construct = "function " + name
	if !d.Decl.IsFunc {
		panic(g.errorf(StructuralError, "%s is not a function declarator", name))
	}
	sym := g.declareFunction(d.Spec, d.Decl)
	if sym.Defined {
		panic(g.wrapf(ScopeError, symtab.ErrRedefined, "function %s already defined", name))
	}
	sym.Defined = true
	ft := sym.Type.(ctypes.Tfunction)

	f := sym.Func
	sym.Params = nil
	for i, p := range d.Decl.Params {
		pname := p.Decl.Name
		if pname == "" {
			panic(g.errorf(StructuralError, "parameter %d of %s has no name", i+1, name))
		}
		f.Params[i].SetName(pname)
		ps := symtab.NewSymbol(symtab.Parameter, pname, ft.Params[i])
		ps.Incoming = f.Params[i]
		if err := g.syms.SetOverflow(ps); err != nil {
			if errors.Is(err, symtab.ErrRedefined) {
				panic(g.wrapf(ScopeError, err, "duplicate parameter %s", pname))
			}
			panic(g.wrapf(InternalError, err, "%v", err))
		}
		sym.Params = append(sym.Params, ps)
	}

	g.b.BeginFunction(f)
	g.ret = ft.Return
	g.frames, g.loops = nil, nil

	// The overflow scope holding the parameters becomes the body's scope.
	g.pushScope()
	for _, ps := range sym.Params {
		slot := g.b.AllocateStackSlot(g.llType(ps.Type))
		g.b.Store(ps.Incoming, slot)
		ps.Bind(slot)
	}
	g.blockItems(d.Body.Items)
	g.popScope()

	if len(g.loops) != 0 || len(g.frames) != 0 {
		panic(g.errorf(InternalError, "unbalanced loop or scope state"))
	}
	if err := g.b.FinishFunction(); err != nil {
		panic(g.wrapf(InternalError, err, "%v", err))
	}
	g.defined = append(g.defined, Signature{Name: name, Params: ft.Params, Return: ft.Return})
}
