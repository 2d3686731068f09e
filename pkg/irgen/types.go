package irgen

import (
	"github.com/llir/llvm/ir/types"
	"github.com/raymyers/epycc/pkg/cabs"
	"github.com/raymyers/epycc/pkg/ctypes"
	"github.com/raymyers/epycc/pkg/symtab"
)

var scalarTypes = map[ctypes.Kind]types.Type{
	ctypes.Bool:       types.I1,
	ctypes.Char:       types.I8,
	ctypes.SChar:      types.I8,
	ctypes.UChar:      types.I8,
	ctypes.Short:      types.I16,
	ctypes.UShort:     types.I16,
	ctypes.Int:        types.I32,
	ctypes.UInt:       types.I32,
	ctypes.Long:       types.I64,
	ctypes.ULong:      types.I64,
	ctypes.LongLong:   types.I64,
	ctypes.ULongLong:  types.I64,
	ctypes.Float:      types.Float,
	ctypes.Double:     types.Double,
	ctypes.LongDouble: types.X86_FP80,
}

// llType lowers a C type to its IR type. Runtime-sized arrays have no IR
// type; they are addressed through a pointer to their innermost element.
func (g *Generator) llType(t ctypes.Type) types.Type {
	switch t := t.(type) {
	case ctypes.Tvoid:
		return types.Void
	case ctypes.Tscalar:
		return scalarTypes[t.Kind]
	case ctypes.Tpointer:
		if _, ok := t.Elem.(ctypes.Tvoid); ok {
			return types.NewPointer(types.I8)
		}
		return types.NewPointer(g.llType(t.Elem))
	case ctypes.Tarray:
		if !t.Dim.IsConst() {
			panic(g.errorf(StructuralError, "runtime-sized array %s is not allowed here", t))
		}
		return types.NewArray(uint64(t.Dim.Size), g.llType(t.Elem))
	case ctypes.Tstruct:
		fields := make([]types.Type, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = g.llType(f.Type)
		}
		return types.NewStruct(fields...)
	}
	panic(g.errorf(InternalError, "no IR type for %s", t))
}

func structKey(tag string) string {
	return "struct " + tag
}

// specType resolves a declaration specifier. A struct specifier with a body
// declares its tag in the current scope.
func (g *Generator) specType(spec cabs.TypeSpec) ctypes.Type {
	if spec.Struct != nil {
		return g.structType(spec.Struct)
	}
	t, err := ctypes.Canonicalize(spec.Words)
	if err != nil {
		panic(g.wrapf(TypeError, err, "%v", err))
	}
	return t
}

func (g *Generator) structType(s *cabs.StructSpec) ctypes.Type {
	if !s.HasBody {
		sym := g.syms.Lookup(structKey(s.Tag))
		if sym == nil {
			panic(g.errorf(ScopeError, "undeclared struct %s", s.Tag))
		}
		return sym.Type
	}

	st := ctypes.Tstruct{Tag: s.Tag}
	seen := map[string]bool{}
	for _, decl := range s.Fields {
		base := g.specType(decl.Spec)
		for _, id := range decl.Decls {
			name := id.Decl.Name
			if id.Decl.IsFunc {
				panic(g.errorf(StructuralError, "function member %s", name))
			}
			if seen[name] {
				panic(g.errorf(ScopeError, "duplicate member %s", name))
			}
			seen[name] = true
			ft := g.declaredType(base, id.Decl)
			if ctypes.IsRuntimeSized(ft) {
				panic(g.errorf(StructuralError, "member %s has a runtime-sized type", name))
			}
			if _, ok := ft.(ctypes.Tvoid); ok {
				panic(g.errorf(TypeError, "member %s declared void", name))
			}
			st.Fields = append(st.Fields, ctypes.Field{Name: name, Type: ft})
		}
	}
	if len(st.Fields) == 0 {
		panic(g.errorf(StructuralError, "struct without members"))
	}
	if s.Tag != "" {
		sym := symtab.NewSymbol(symtab.StructTag, structKey(s.Tag), st)
		if err := g.syms.Insert(sym); err != nil {
			panic(g.wrapf(ScopeError, err, "%v", err))
		}
	}
	return st
}

// declaredType applies a declarator's pointers and dimensions to base.
// Dimensions that are not constant expressions become runtime dimensions.
func (g *Generator) declaredType(base ctypes.Type, d cabs.Declarator) ctypes.Type {
	t := base
	for i := 0; i < d.Pointers; i++ {
		t = ctypes.Pointer(t)
	}
	if len(d.Dims) == 0 {
		return t
	}
	if _, ok := t.(ctypes.Tvoid); ok {
		panic(g.errorf(TypeError, "array %s of void", d.Name))
	}
	return ctypes.BuildTypeFromDimensions(t, g.dims(d.Name, d.Dims))
}

func (g *Generator) dims(name string, exprs []cabs.Expr) []ctypes.Dim {
	dims := make([]ctypes.Dim, len(exprs))
	for i, e := range exprs {
		if e == nil {
			panic(g.errorf(StructuralError, "array %s needs an explicit size", name))
		}
		n, ok := ctypes.EvalConst(e)
		if !ok {
			dims[i] = ctypes.Dim{Expr: e}
			continue
		}
		if n <= 0 {
			panic(g.errorf(StructuralError, "array %s has non-positive size %d", name, n))
		}
		dims[i] = ctypes.Dim{Size: n}
	}
	return dims
}

// paramType resolves a parameter declaration. Array parameters are
// adjusted to pointers to their element type; only the outermost
// dimension may be open or runtime-sized.
func (g *Generator) paramType(p cabs.Param) ctypes.Type {
	base := g.specType(p.Spec)
	d := p.Decl
	if len(d.Dims) == 0 {
		t := g.declaredType(base, d)
		if _, ok := t.(ctypes.Tvoid); ok {
			panic(g.errorf(TypeError, "parameter %s declared void", d.Name))
		}
		return t
	}
	inner := d
	inner.Dims = d.Dims[1:]
	elem := g.declaredType(base, inner)
	if ctypes.IsRuntimeSized(elem) {
		panic(g.errorf(StructuralError, "parameter %s has a runtime-sized inner dimension", d.Name))
	}
	return ctypes.Pointer(elem)
}

// functionType resolves the type of a function declarator.
func (g *Generator) functionType(spec cabs.TypeSpec, d cabs.Declarator) ctypes.Tfunction {
	ret := g.specType(spec)
	for i := 0; i < d.Pointers; i++ {
		ret = ctypes.Pointer(ret)
	}
	if len(d.Dims) > 0 {
		panic(g.errorf(StructuralError, "function %s returning an array", d.Name))
	}
	if _, ok := ret.(ctypes.Tstruct); ok {
		panic(g.errorf(StructuralError, "function %s returning a struct", d.Name))
	}
	ft := ctypes.Tfunction{Return: ret}
	for _, p := range d.Params {
		pt := g.paramType(p)
		if _, ok := pt.(ctypes.Tstruct); ok {
			panic(g.errorf(StructuralError, "struct parameter %s of function %s", p.Decl.Name, d.Name))
		}
		ft.Params = append(ft.Params, pt)
	}
	return ft
}

func (g *Generator) typeName(tn cabs.TypeName) ctypes.Type {
	t := g.specType(tn.Spec)
	for i := 0; i < tn.Pointers; i++ {
		t = ctypes.Pointer(t)
	}
	return t
}
