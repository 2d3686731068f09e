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

// expr evaluates e. Lvalues are returned unloaded; callers that need the
// value use rvalue.
func (g *Generator) expr(e cabs.Expr) operand {
	switch e := e.(type) {
	case cabs.IntConst:
		v, t, err := ctypes.ParseIntConst(e.Text)
		if err != nil {
			panic(g.wrapf(TypeError, err, "%v", err))
		}
		return operand{typ: t, val: constant.NewInt(g.llType(t).(*types.IntType), int64(v))}
	case cabs.FloatConst:
		v, t, err := ctypes.ParseFloatConst(e.Text)
		if err != nil {
			panic(g.wrapf(TypeError, err, "%v", err))
		}
		return operand{typ: t, val: constant.NewFloat(g.llType(t).(*types.FloatType), v)}
	case cabs.CharConst:
		v, err := ctypes.CharValue(e.Text)
		if err != nil {
			panic(g.wrapf(TypeError, err, "%v", err))
		}
		return operand{typ: ctypes.Scalar(ctypes.Int), val: constant.NewInt(types.I32, v)}
	case cabs.Ident:
		return g.ident(e)
	case cabs.Paren:
		return g.expr(e.Expr)
	case cabs.Unary:
		return g.unary(e)
	case cabs.Binary:
		l := g.rvalue(g.expr(e.Left))
		r := g.rvalue(g.expr(e.Right))
		return g.arith(e.Op, l, r)
	case cabs.Assign:
		return g.assign(e)
	case cabs.IncDec:
		return g.incDec(e)
	case cabs.Cast:
		return g.cast(e)
	case cabs.Call:
		return g.call(e)
	case cabs.Index:
		return g.index(e)
	case cabs.Member:
		return g.member(e)
	case cabs.Conditional:
		return g.conditional(e)
	case cabs.Comma:
		g.expr(e.Left)
		return g.rvalue(g.expr(e.Right))
	}
	panic(g.errorf(StructuralError, "unsupported expression %T", e))
}

// callOp calls an operation library function returning result.
func (g *Generator) callOp(name string, result ctypes.Type, args ...value.Value) value.Value {
	if _, ok := g.catalog.Lookup(name); !ok {
		panic(g.errorf(TypeError, "operation library has no function %s", name))
	}
	g.externs[name] = true
	return g.b.Call(name, g.llType(result), args...)
}

// convert returns the value of o converted to t. Scalars are converted by
// the library's cnv functions; other types must already match after array
// decay.
func (g *Generator) convert(o operand, t ctypes.Type) value.Value {
	o = g.rvalue(o)
	if ctypes.Equal(o.typ, t) {
		return o.val
	}
	if ctypes.IsScalar(o.typ) && ctypes.IsScalar(t) {
		return g.callOp(oplib.ConvName(t, o.typ), t, o.val)
	}
	panic(g.errorf(TypeError, "cannot convert %s to %s", o.typ, t))
}

// condition evaluates e as a branch condition of type _Bool.
func (g *Generator) condition(e cabs.Expr) value.Value {
	o := g.rvalue(g.expr(e))
	if !ctypes.IsScalar(o.typ) {
		panic(g.errorf(TypeError, "condition %s has type %s", cabs.ExprString(e), o.typ))
	}
	return g.convert(o, ctypes.Scalar(ctypes.Bool))
}

// arith applies a binary operator after the usual arithmetic conversions.
// The result has the common type, relational operators included.
func (g *Generator) arith(op cabs.BinaryOp, l, r operand) operand {
	t, err := ctypes.UsualArithmeticConversion(op, l.typ, r.typ)
	if err != nil {
		panic(g.wrapf(TypeError, err, "%v", err))
	}
	lv := g.convert(l, t)
	rv := g.convert(r, t)
	return operand{typ: t, val: g.callOp(oplib.BinaryName(op, t), t, lv, rv)}
}

func (g *Generator) unary(e cabs.Unary) operand {
	switch e.Op {
	case cabs.OpAddrOf:
		a := g.expr(e.Expr)
		if a.flat != nil {
			panic(g.errorf(StructuralError, "address of runtime-sized array %s", cabs.ExprString(e.Expr)))
		}
		return operand{typ: ctypes.Pointer(a.typ), val: g.address(&a)}
	case cabs.OpDeref:
		p := g.rvalue(g.expr(e.Expr))
		pt, ok := p.typ.(ctypes.Tpointer)
		if !ok {
			panic(g.errorf(TypeError, "dereference of non-pointer type %s", p.typ))
		}
		if _, ok := pt.Elem.(ctypes.Tvoid); ok {
			panic(g.errorf(TypeError, "dereference of void pointer"))
		}
		return operand{typ: pt.Elem, addr: p.val}
	}

	a := g.rvalue(g.expr(e.Expr))
	s, ok := a.typ.(ctypes.Tscalar)
	if !ok {
		panic(g.errorf(TypeError, "operand of unary %s has type %s", e.Op, a.typ))
	}
	k := ctypes.Promote(s.Kind)
	if oplib.UnaryIntegerOnly(e.Op) && k.IsFloating() {
		panic(g.wrapf(TypeError, ctypes.ErrIntegerOnly, "unary %s on %s", e.Op, k))
	}
	t := ctypes.Scalar(k)
	v := g.convert(a, t)
	return operand{typ: t, val: g.callOp(oplib.UnaryName(e.Op, t), t, v)}
}

// assignable returns the address of the lvalue o, rejecting arrays.
func (g *Generator) assignable(o *operand, e cabs.Expr) value.Value {
	if !o.lvalue() {
		panic(g.errorf(TypeError, "%s is not assignable", cabs.ExprString(e)))
	}
	if _, ok := o.typ.(ctypes.Tarray); ok {
		panic(g.errorf(TypeError, "assignment to array %s", cabs.ExprString(e)))
	}
	return g.address(o)
}

// assign stores the converted right operand; a op= b is a = a op b with a
// evaluated once. The result is the stored value.
func (g *Generator) assign(e cabs.Assign) operand {
	lhs := g.expr(e.Left)
	addr := g.assignable(&lhs, e.Left)

	rhs := g.rvalue(g.expr(e.Right))
	if e.Op != cabs.OpAssign {
		cur := operand{typ: lhs.typ, val: g.b.Load(g.llType(lhs.typ), addr)}
		rhs = g.arith(e.Op, cur, rhs)
	}
	v := g.convert(rhs, lhs.typ)
	g.b.Store(v, addr)
	return operand{typ: lhs.typ, val: v}
}

func (g *Generator) incDec(e cabs.IncDec) operand {
	lhs := g.expr(e.Expr)
	addr := g.assignable(&lhs, e.Expr)
	if !ctypes.IsScalar(lhs.typ) {
		panic(g.errorf(TypeError, "increment of %s", lhs.typ))
	}

	old := operand{typ: lhs.typ, val: g.b.Load(g.llType(lhs.typ), addr)}
	one := operand{typ: ctypes.Scalar(ctypes.Int), val: constant.NewInt(types.I32, 1)}
	op := cabs.OpSub
	if e.Inc {
		op = cabs.OpAdd
	}
	v := g.convert(g.arith(op, old, one), lhs.typ)
	g.b.Store(v, addr)
	if e.Post {
		return old
	}
	return operand{typ: lhs.typ, val: v}
}

func (g *Generator) cast(e cabs.Cast) operand {
	t := g.typeName(e.Type)
	if _, ok := t.(ctypes.Tvoid); ok {
		g.expr(e.Expr)
		return operand{typ: t}
	}
	return operand{typ: t, val: g.convert(g.expr(e.Expr), t)}
}

func (g *Generator) call(e cabs.Call) operand {
	fe := e.Func
	for {
		p, ok := fe.(cabs.Paren)
		if !ok {
			break
		}
		fe = p.Expr
	}
	id, ok := fe.(cabs.Ident)
	if !ok {
		panic(g.errorf(StructuralError, "call through %s is not supported", cabs.ExprString(e.Func)))
	}
	sym := g.syms.Lookup(id.Name)
	if sym == nil {
		panic(g.errorf(ScopeError, "call to undeclared function %s", id.Name))
	}
	if sym.Kind != symtab.Function {
		panic(g.errorf(TypeError, "called object %s is a %s", id.Name, sym.Kind))
	}
	ft := sym.Type.(ctypes.Tfunction)
	if len(e.Args) != len(ft.Params) {
		panic(g.errorf(TypeError, "%s takes %d arguments, got %d", id.Name, len(ft.Params), len(e.Args)))
	}

	args := make([]value.Value, len(e.Args))
	for i, a := range e.Args {
		args[i] = g.convert(g.expr(a), ft.Params[i])
	}
	v := g.b.CallFunc(sym.Func, args...)
	if _, ok := ft.Return.(ctypes.Tvoid); ok {
		return operand{typ: ft.Return}
	}
	return operand{typ: ft.Return, val: v}
}

// conditional evaluates c ? a : b through a temporary slot. Each arm is
// converted to the common type in its own block once both types are known.
func (g *Generator) conditional(e cabs.Conditional) operand {
	cond := g.condition(e.Cond)
	then := g.b.CreateBlock("cond.then")
	els := g.b.CreateBlock("cond.else")
	end := g.b.CreateBlock("cond.end")
	g.branch(cond, then, els)

	g.b.SetInsertBlock(then)
	a := g.expr(e.Then)
	if _, void := a.typ.(ctypes.Tvoid); !void {
		a = g.rvalue(a)
	}
	thenEnd := g.b.InsertBlock()

	g.b.SetInsertBlock(els)
	b := g.expr(e.Else)
	if _, void := b.typ.(ctypes.Tvoid); !void {
		b = g.rvalue(b)
	}
	elseEnd := g.b.InsertBlock()

	t := g.commonType(a.typ, b.typ)
	if _, void := t.(ctypes.Tvoid); void {
		g.b.SetInsertBlock(thenEnd)
		g.jump(end)
		g.b.SetInsertBlock(elseEnd)
		g.jump(end)
		g.b.SetInsertBlock(end)
		return operand{typ: t}
	}

	slot := g.b.AllocateStackSlot(g.llType(t))
	g.b.SetInsertBlock(thenEnd)
	g.b.Store(g.convert(a, t), slot)
	g.jump(end)
	g.b.SetInsertBlock(elseEnd)
	g.b.Store(g.convert(b, t), slot)
	g.jump(end)

	g.b.SetInsertBlock(end)
	return operand{typ: t, val: g.b.Load(g.llType(t), slot)}
}

func (g *Generator) commonType(a, b ctypes.Type) ctypes.Type {
	if ctypes.IsScalar(a) && ctypes.IsScalar(b) {
		t, err := ctypes.UsualArithmeticConversion(cabs.OpAdd, a, b)
		if err != nil {
			panic(g.wrapf(TypeError, err, "%v", err))
		}
		return t
	}
	if !ctypes.Equal(a, b) {
		panic(g.errorf(TypeError, "conditional arms have types %s and %s", a, b))
	}
	return a
}
