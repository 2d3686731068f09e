package irgen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
)

// frame is the per-scope state of the block manager.
type frame struct {
	// stackToken is the stack pointer saved before the scope's first
	// runtime-sized array, restored when control leaves the scope.
	stackToken value.Value
}

// loop holds the jump targets of an enclosing loop. depth is the number of
// frames open outside the loop body.
type loop struct {
	breakTarget    *ir.Block
	continueTarget *ir.Block
	depth          int
}

func (g *Generator) pushScope() {
	g.syms.PushScope()
	g.frames = append(g.frames, &frame{})
}

// popScope closes the innermost scope, restoring the stack pointer if the
// scope allocated runtime-sized arrays.
func (g *Generator) popScope() {
	top := g.frames[len(g.frames)-1]
	if top.stackToken != nil {
		g.b.RestoreStackPointer(top.stackToken)
	}
	g.frames = g.frames[:len(g.frames)-1]
	if err := g.syms.PopScope(); err != nil {
		panic(g.wrapf(InternalError, err, "%v", err))
	}
}

// saveStack saves the stack pointer for the innermost scope, once.
func (g *Generator) saveStack() {
	top := g.frames[len(g.frames)-1]
	if top.stackToken == nil {
		top.stackToken = g.b.SaveStackPointer()
	}
}

// restoreTo restores the stack pointer of every frame above depth,
// innermost first.
func (g *Generator) restoreTo(depth int) {
	for i := len(g.frames) - 1; i >= depth; i-- {
		if tok := g.frames[i].stackToken; tok != nil {
			g.b.RestoreStackPointer(tok)
		}
	}
}

func (g *Generator) pushLoop(breakTarget, continueTarget *ir.Block) {
	g.loops = append(g.loops, loop{
		breakTarget:    breakTarget,
		continueTarget: continueTarget,
		depth:          len(g.frames),
	})
}

func (g *Generator) popLoop() {
	g.loops = g.loops[:len(g.loops)-1]
}

func (g *Generator) innermostLoop(stmt string) loop {
	if len(g.loops) == 0 {
		panic(g.errorf(StructuralError, "%s outside of a loop", stmt))
	}
	return g.loops[len(g.loops)-1]
}

// open fails if the insert block is already terminated.
func (g *Generator) open() {
	if g.b.Terminated() {
		blk := g.b.InsertBlock()
		panic(g.errorf(InternalError, "block %%%s is already terminated", blk.Name()))
	}
}

func (g *Generator) jump(target *ir.Block) {
	g.open()
	g.b.Branch(target)
}

func (g *Generator) branch(cond value.Value, then, els *ir.Block) {
	g.open()
	g.b.CondBranch(cond, then, els)
}

// detach moves emission to a fresh block no branch leads to. Code after a
// return, break or continue lands there and is pruned with the block.
func (g *Generator) detach() {
	g.b.SetInsertBlock(g.b.CreateBlock("unreachable"))
}

func (g *Generator) emitReturn(v value.Value) {
	g.open()
	g.b.Return(v)
	g.detach()
}

func (g *Generator) emitBreak() {
	l := g.innermostLoop("break")
	g.restoreTo(l.depth)
	g.jump(l.breakTarget)
	g.detach()
}

func (g *Generator) emitContinue() {
	l := g.innermostLoop("continue")
	g.restoreTo(l.depth)
	g.jump(l.continueTarget)
	g.detach()
}
