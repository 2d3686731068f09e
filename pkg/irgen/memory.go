package irgen

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/raymyers/epycc/pkg/cabs"
	"github.com/raymyers/epycc/pkg/ctypes"
	"github.com/raymyers/epycc/pkg/oplib"
	"github.com/raymyers/epycc/pkg/symtab"
)

// operand is the result of evaluating an expression. Lvalues carry their
// address in one of three forms: a computed addr, a pending element path,
// or a view into a runtime-sized array.
type operand struct {
	typ  ctypes.Type
	val  value.Value
	addr value.Value
	path *elemPath
	flat *flatArray
}

// elemPath is an address computation not yet emitted. Nested subscripts and
// member accesses extend it so the final address takes one instruction.
type elemPath struct {
	elem    types.Type
	base    value.Value
	indices []value.Value
}

func (p *elemPath) with(idx value.Value) *elemPath {
	indices := make([]value.Value, len(p.indices), len(p.indices)+1)
	copy(indices, p.indices)
	return &elemPath{elem: p.elem, base: p.base, indices: append(indices, idx)}
}

// flatArray addresses a runtime-sized array as a flat sequence of its
// innermost elements.
type flatArray struct {
	base   value.Value   // pointer to the first innermost element
	elem   ctypes.Type   // innermost element type
	dims   []value.Value // remaining dimensions, unsigned long long
	offset value.Value   // element offset so far; nil means zero
}

var wide = ctypes.Scalar(ctypes.ULongLong)

func (o operand) lvalue() bool {
	return o.addr != nil || o.path != nil || o.flat != nil
}

// storage returns the slot of a variable, allocating it in the entry block
// on first use.
func (g *Generator) storage(sym *symtab.Symbol) value.Value {
	if b, ok := sym.Bound(); ok {
		return b.Addr
	}
	slot := g.b.AllocateStackSlot(g.llType(sym.Type))
	sym.Bind(slot)
	return slot
}

// allocateRuntimeArray evaluates the dimensions of a runtime-sized array
// and allocates its elements at the current position, after saving the
// stack pointer for the enclosing scope.
func (g *Generator) allocateRuntimeArray(sym *symtab.Symbol) {
	dims, elem := ctypes.Dimensions(sym.Type)
	sizes := make([]value.Value, len(dims))
	for i, d := range dims {
		if d.IsConst() {
			sizes[i] = constant.NewInt(types.I64, d.Size)
			continue
		}
		n := g.rvalue(g.expr(d.Expr))
		if !ctypes.IsInteger(n.typ) {
			panic(g.errorf(TypeError, "size of array %s has type %s", sym.Name, n.typ))
		}
		sizes[i] = g.convert(n, wide)
	}
	total := g.product(sizes)
	g.saveStack()
	addr := g.b.AllocateDynamic(g.llType(elem), total)
	sym.Bind(addr, sizes...)
}

func (g *Generator) product(vals []value.Value) value.Value {
	p := vals[0]
	for _, v := range vals[1:] {
		p = g.callOp(oplib.BinaryName(cabs.OpMul, wide), wide, p, v)
	}
	return p
}

// address materializes the address of an lvalue.
func (g *Generator) address(o *operand) value.Value {
	switch {
	case o.addr != nil:
	case o.path != nil:
		o.addr = g.b.ElementAddress(o.path.elem, o.path.base, o.path.indices...)
		o.path = nil
	case o.flat != nil:
		if o.flat.offset == nil {
			o.addr = o.flat.base
		} else {
			o.addr = g.b.ElementAddress(g.llType(o.flat.elem), o.flat.base, o.flat.offset)
		}
	default:
		panic(g.errorf(TypeError, "expression of type %s is not an lvalue", o.typ))
	}
	return o.addr
}

// rvalue loads an lvalue and decays arrays to element pointers.
func (g *Generator) rvalue(o operand) operand {
	if o.val != nil {
		return o
	}
	switch t := o.typ.(type) {
	case ctypes.Tvoid:
		panic(g.errorf(TypeError, "void value used in an expression"))
	case ctypes.Tarray:
		return g.decay(o, t)
	}
	o.val = g.b.Load(g.llType(o.typ), g.address(&o))
	return o
}

// decay converts an array lvalue to a pointer to its first element with a
// zero-offset element address.
func (g *Generator) decay(o operand, t ctypes.Tarray) operand {
	ptr := ctypes.Pointer(t.Elem)
	switch {
	case o.flat != nil:
		if len(o.flat.dims) > 1 {
			panic(g.errorf(StructuralError, "runtime-sized array of arrays %s used as a value", t))
		}
		return operand{typ: ptr, val: g.address(&o)}
	case o.path != nil:
		zero := constant.NewInt(types.I64, 0)
		p := o.path.with(zero)
		return operand{typ: ptr, val: g.b.ElementAddress(p.elem, p.base, p.indices...)}
	}
	zero := constant.NewInt(types.I64, 0)
	return operand{typ: ptr, val: g.b.ElementAddress(g.llType(t), g.address(&o), zero, zero)}
}

// gepIndex returns an index usable in an element address. Signed and
// 64-bit values are used as they are; narrower unsigned values are
// converted to long first so they are not sign-extended.
func (g *Generator) gepIndex(i operand) value.Value {
	k, _ := i.typ.(ctypes.Tscalar)
	if ctypes.IsSignedInteger(i.typ) || k.Kind.Bits() == 64 {
		return i.val
	}
	return g.convert(i, ctypes.Scalar(ctypes.Long))
}

func (g *Generator) index(e cabs.Index) operand {
	a := g.expr(e.Array)
	i := g.rvalue(g.expr(e.Index))
	if !ctypes.IsInteger(i.typ) {
		panic(g.errorf(TypeError, "array subscript %s has type %s", cabs.ExprString(e.Index), i.typ))
	}

	switch t := a.typ.(type) {
	case ctypes.Tarray:
		if a.flat != nil {
			return g.flatIndex(a, t, i)
		}
		idx := g.gepIndex(i)
		if a.path != nil && a.addr == nil {
			return operand{typ: t.Elem, path: a.path.with(idx)}
		}
		zero := constant.NewInt(types.I64, 0)
		return operand{typ: t.Elem, path: &elemPath{
			elem:    g.llType(t),
			base:    g.address(&a),
			indices: []value.Value{zero, idx},
		}}
	case ctypes.Tpointer:
		if _, ok := t.Elem.(ctypes.Tvoid); ok {
			panic(g.errorf(TypeError, "subscript of void pointer"))
		}
		p := g.rvalue(a)
		return operand{typ: t.Elem, path: &elemPath{
			elem:    g.llType(t.Elem),
			base:    p.val,
			indices: []value.Value{g.gepIndex(i)},
		}}
	}
	panic(g.errorf(TypeError, "subscripted value %s has type %s", cabs.ExprString(e.Array), a.typ))
}

// flatIndex peels the outermost dimension of a runtime-sized array. The
// index is widened to unsigned long long and scaled by the product of the
// inner dimensions before it is added to the running offset.
func (g *Generator) flatIndex(a operand, t ctypes.Tarray, i operand) operand {
	idx := g.convert(i, wide)
	if inner := a.flat.dims[1:]; len(inner) > 0 {
		idx = g.callOp(oplib.BinaryName(cabs.OpMul, wide), wide, idx, g.product(inner))
	}
	if a.flat.offset != nil {
		idx = g.callOp(oplib.BinaryName(cabs.OpAdd, wide), wide, a.flat.offset, idx)
	}
	return operand{typ: t.Elem, flat: &flatArray{
		base:   a.flat.base,
		elem:   a.flat.elem,
		dims:   a.flat.dims[1:],
		offset: idx,
	}}
}

func (g *Generator) member(e cabs.Member) operand {
	base := g.expr(e.Expr)
	if e.Arrow {
		p := g.rvalue(base)
		pt, ok := p.typ.(ctypes.Tpointer)
		if !ok {
			panic(g.errorf(TypeError, "%s is not a pointer", cabs.ExprString(e.Expr)))
		}
		base = operand{typ: pt.Elem, addr: p.val}
	}
	st, ok := base.typ.(ctypes.Tstruct)
	if !ok {
		panic(g.errorf(TypeError, "member %s of non-struct type %s", e.Name, base.typ))
	}
	i, ft, ok := st.FieldIndex(e.Name)
	if !ok {
		panic(g.errorf(TypeError, "%s has no member %s", st, e.Name))
	}
	fi := constant.NewInt(types.I32, int64(i))
	if base.path != nil && base.addr == nil {
		return operand{typ: ft, path: base.path.with(fi)}
	}
	return operand{typ: ft, path: &elemPath{
		elem:    g.llType(st),
		base:    g.address(&base),
		indices: []value.Value{constant.NewInt(types.I32, 0), fi},
	}}
}

func (g *Generator) ident(e cabs.Ident) operand {
	sym := g.syms.Lookup(e.Name)
	if sym == nil {
		panic(g.errorf(ScopeError, "undeclared identifier %s", e.Name))
	}
	if sym.Kind == symtab.Function {
		panic(g.errorf(TypeError, "function %s used as a value", e.Name))
	}
	if ctypes.IsRuntimeSized(sym.Type) {
		b, ok := sym.Bound()
		if !ok {
			panic(g.errorf(InternalError, "runtime-sized array %s has no storage", e.Name))
		}
		_, elem := ctypes.Dimensions(sym.Type)
		return operand{typ: sym.Type, flat: &flatArray{base: b.Addr, elem: elem, dims: b.Dims}}
	}
	return operand{typ: sym.Type, addr: g.storage(sym)}
}
