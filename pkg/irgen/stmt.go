package irgen

import (
	"github.com/raymyers/epycc/pkg/cabs"
	"github.com/raymyers/epycc/pkg/ctypes"
	"github.com/raymyers/epycc/pkg/symtab"
)

func (g *Generator) blockItems(items []cabs.Stmt) {
	for _, s := range items {
		g.stmt(s)
	}
}

func (g *Generator) stmt(s cabs.Stmt) {
	switch s := s.(type) {
	case cabs.Computation:
		if s.Expr != nil {
			g.expr(s.Expr)
		}
	case cabs.DeclStmt:
		g.localDeclaration(s.Decl)
	case cabs.Block:
		g.pushScope()
		g.blockItems(s.Items)
		g.popScope()
	case cabs.If:
		g.ifStmt(s)
	case cabs.While:
		g.whileStmt(s)
	case cabs.DoWhile:
		g.doWhileStmt(s)
	case cabs.For:
		g.forStmt(s)
	case cabs.Break:
		g.emitBreak()
	case cabs.Continue:
		g.emitContinue()
	case cabs.Return:
		g.returnStmt(s)
	default:
		panic(g.errorf(StructuralError, "unsupported statement %T", s))
	}
}

func (g *Generator) ifStmt(s cabs.If) {
	cond := g.condition(s.Cond)
	then := g.b.CreateBlock("if.then")
	end := g.b.CreateBlock("if.end")
	els := end
	if s.Else != nil {
		els = g.b.CreateBlock("if.else")
	}
	g.branch(cond, then, els)

	g.b.SetInsertBlock(then)
	g.stmt(s.Then)
	g.jump(end)

	if s.Else != nil {
		g.b.SetInsertBlock(els)
		g.stmt(s.Else)
		g.jump(end)
	}
	g.b.SetInsertBlock(end)
}

func (g *Generator) whileStmt(s cabs.While) {
	cond := g.b.CreateBlock("while.cond")
	body := g.b.CreateBlock("while.body")
	end := g.b.CreateBlock("while.end")

	g.jump(cond)
	g.b.SetInsertBlock(cond)
	g.branch(g.condition(s.Cond), body, end)

	g.b.SetInsertBlock(body)
	g.pushLoop(end, cond)
	g.stmt(s.Body)
	g.popLoop()
	g.jump(cond)

	g.b.SetInsertBlock(end)
}

func (g *Generator) doWhileStmt(s cabs.DoWhile) {
	body := g.b.CreateBlock("do.body")
	cond := g.b.CreateBlock("do.cond")
	end := g.b.CreateBlock("do.end")

	g.jump(body)
	g.b.SetInsertBlock(body)
	g.pushLoop(end, cond)
	g.stmt(s.Body)
	g.popLoop()
	g.jump(cond)

	g.b.SetInsertBlock(cond)
	g.branch(g.condition(s.Cond), body, end)
	g.b.SetInsertBlock(end)
}

// forStmt opens one scope for the init clause and a nested one for the
// condition, step and body.
func (g *Generator) forStmt(s cabs.For) {
	g.pushScope()
	switch {
	case s.InitDecl != nil:
		g.localDeclaration(*s.InitDecl)
	case s.Init != nil:
		g.expr(s.Init)
	}

	cond := g.b.CreateBlock("for.cond")
	body := g.b.CreateBlock("for.body")
	step := g.b.CreateBlock("for.step")
	end := g.b.CreateBlock("for.end")

	g.pushScope()
	g.jump(cond)
	g.b.SetInsertBlock(cond)
	if s.Cond != nil {
		g.branch(g.condition(s.Cond), body, end)
	} else {
		g.jump(body)
	}

	g.b.SetInsertBlock(body)
	g.pushLoop(end, step)
	g.stmt(s.Body)
	g.popLoop()
	g.jump(step)

	g.b.SetInsertBlock(step)
	if s.Step != nil {
		g.expr(s.Step)
	}
	g.jump(cond)

	g.b.SetInsertBlock(end)
	g.popScope()
	g.popScope()
}

func (g *Generator) returnStmt(s cabs.Return) {
	_, void := g.ret.(ctypes.Tvoid)
	switch {
	case s.Expr == nil && void:
		g.emitReturn(nil)
	case s.Expr == nil:
		panic(g.errorf(TypeError, "return without a value in function returning %s", g.ret))
	case void:
		panic(g.errorf(TypeError, "return with a value in function returning void"))
	default:
		g.emitReturn(g.convert(g.expr(s.Expr), g.ret))
	}
}

// localDeclaration declares block-scope variables. Fixed-size variables get
// their slot on first use; runtime-sized arrays are allocated here.
func (g *Generator) localDeclaration(d cabs.Declaration) {
	base := g.specType(d.Spec)
	for _, id := range d.Decls {
		name := id.Decl.Name
		if id.Decl.IsFunc {
			panic(g.errorf(StructuralError, "block-scope function declaration %s", name))
		}
		t := g.declaredType(base, id.Decl)
		if _, ok := t.(ctypes.Tvoid); ok {
			panic(g.errorf(TypeError, "variable %s declared void", name))
		}
		sym := symtab.NewSymbol(symtab.Variable, name, t)
		if err := g.syms.Insert(sym); err != nil {
			panic(g.wrapf(ScopeError, err, "%v", err))
		}

		if ctypes.IsRuntimeSized(t) {
			if id.Init != nil {
				panic(g.errorf(StructuralError, "runtime-sized array %s cannot be initialized", name))
			}
			g.allocateRuntimeArray(sym)
			continue
		}
		if id.Init != nil {
			if _, ok := t.(ctypes.Tarray); ok {
				panic(g.errorf(StructuralError, "array initializer for %s", name))
			}
			v := g.convert(g.expr(id.Init), t)
			g.b.Store(v, g.storage(sym))
		}
	}
}
