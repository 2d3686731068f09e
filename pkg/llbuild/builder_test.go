package llbuild

import (
	"errors"
	"strings"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/nalgeon/be"
)

func TestDeclareFunctionIsIdempotent(t *testing.T) {
	b := New()
	f := b.DeclareFunction("f", types.I32, ir.NewParam("a", types.I32))
	g := b.DeclareFunction("f", types.Void)
	be.True(t, f == g)
	be.True(t, b.Function("f") == f)
	be.True(t, b.Function("g") == nil)
	be.Equal(t, len(b.Module().Funcs), 1)
}

func TestStackSlotsGoToEntryTop(t *testing.T) {
	b := New()
	f := b.DeclareFunction("f", types.Void)
	b.BeginFunction(f)

	x := b.AllocateStackSlot(types.I32)
	b.Store(constant.NewInt(types.I32, 1), x)

	next := b.CreateBlock("next")
	b.Branch(next)
	b.SetInsertBlock(next)
	y := b.AllocateStackSlot(types.I8)
	b.Store(constant.NewInt(types.I8, 2), y)
	be.Err(t, b.FinishFunction(), nil)

	entry := f.Blocks[0]
	be.Equal(t, len(entry.Insts), 3)
	be.True(t, entry.Insts[0] == x)
	be.True(t, entry.Insts[1] == y)
	_, ok := entry.Insts[2].(*ir.InstStore)
	be.True(t, ok)
}

func TestCreateBlockUniqueNames(t *testing.T) {
	b := New()
	b.BeginFunction(b.DeclareFunction("f", types.Void))
	be.Equal(t, b.CreateBlock("while.cond").Name(), "while.cond")
	be.Equal(t, b.CreateBlock("while.cond").Name(), "while.cond.1")
	be.Equal(t, b.CreateBlock("entry").Name(), "entry.1")
}

func TestCallDeclaresExtern(t *testing.T) {
	b := New()
	f := b.DeclareFunction("f", types.I32, ir.NewParam("a", types.I32))
	b.BeginFunction(f)
	sum := b.Call("add__int__int__int", types.I32, f.Params[0], f.Params[0])
	b.Call("add__int__int__int", types.I32, sum, sum)
	b.Return(sum)
	be.Err(t, b.FinishFunction(), nil)

	ext := b.Function("add__int__int__int")
	be.True(t, ext != nil)
	be.Equal(t, len(ext.Params), 2)
	be.Equal(t, len(ext.Blocks), 0)
	be.Equal(t, len(b.Module().Funcs), 2)
}

func TestInstructionAfterTerminatorPanics(t *testing.T) {
	b := New()
	b.BeginFunction(b.DeclareFunction("f", types.Void))
	b.Return(nil)
	be.True(t, b.Terminated())

	defer func() {
		r := recover()
		err, ok := r.(error)
		be.True(t, ok)
		be.True(t, errors.Is(err, ErrTerminated))
	}()
	b.Return(nil)
}

func TestFinishFunctionPrunesAndTerminates(t *testing.T) {
	b := New()
	f := b.DeclareFunction("f", types.Void)
	b.BeginFunction(f)
	live := b.CreateBlock("live")
	dead := b.CreateBlock("dead")
	b.Branch(live)
	b.SetInsertBlock(dead)
	b.Branch(live)
	be.Err(t, b.FinishFunction(), nil)

	be.Equal(t, len(f.Blocks), 2)
	be.Equal(t, f.Blocks[1].Name(), "live")
	_, ok := f.Blocks[1].Term.(*ir.TermRet)
	be.True(t, ok)

	g := b.DeclareFunction("g", types.I32)
	b.BeginFunction(g)
	be.Err(t, b.FinishFunction(), nil)
	_, ok = g.Blocks[0].Term.(*ir.TermUnreachable)
	be.True(t, ok)

	be.Err(t, b.FinishFunction())
}

func TestStackSaveRestore(t *testing.T) {
	b := New()
	f := b.DeclareFunction("f", types.Void, ir.NewParam("n", types.I64))
	b.BeginFunction(f)
	tok := b.SaveStackPointer()
	b.AllocateDynamic(types.I32, f.Params[0])
	b.RestoreStackPointer(tok)
	tok = b.SaveStackPointer()
	b.RestoreStackPointer(tok)
	be.Err(t, b.FinishFunction(), nil)

	text := b.String()
	be.Equal(t, strings.Count(text, "call i8* @llvm.stacksave()"), 2)
	be.Equal(t, strings.Count(text, "call void @llvm.stackrestore("), 2)
	be.True(t, strings.Contains(text, "alloca i32, i64 %n"))
	be.True(t, strings.Contains(text, "declare i8* @llvm.stacksave()"))
}
